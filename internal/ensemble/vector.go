package ensemble

import "math"

// SparseVector is a vector stored as parallel index/value slices sorted by index
type SparseVector struct {
	Indices []int
	Values  []float64
}

// Dot returns the dot product with a dense vector
func (v SparseVector) Dot(dense []float64) float64 {
	sum := 0.0
	for k, i := range v.Indices {
		if i < len(dense) {
			sum += v.Values[k] * dense[i]
		}
	}
	return sum
}

// Norm returns the L2 norm
func (v SparseVector) Norm() float64 {
	sum := 0.0
	for _, x := range v.Values {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// Empty reports whether the vector has no non-zero entries
func (v SparseVector) Empty() bool {
	return len(v.Indices) == 0
}

// Dense expands the vector to dim entries
func (v SparseVector) Dense(dim int) []float64 {
	out := make([]float64, dim)
	for k, i := range v.Indices {
		if i < dim {
			out[i] = v.Values[k]
		}
	}
	return out
}

func normalize(v []float64) []float64 {
	n := 0.0
	for _, x := range v {
		n += x * x
	}
	if n == 0 {
		return v
	}
	n = math.Sqrt(n)
	for i := range v {
		v[i] /= n
	}
	return v
}

func cosine(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// softmax converts scores into probabilities, scaling by temperature first
func softmax(scores []float64, temperature float64) []float64 {
	if len(scores) == 0 {
		return nil
	}
	if temperature <= 0 {
		temperature = 1
	}
	maxScore := math.Inf(-1)
	for _, s := range scores {
		if s*temperature > maxScore {
			maxScore = s * temperature
		}
	}
	out := make([]float64, len(scores))
	sum := 0.0
	for i, s := range scores {
		out[i] = math.Exp(s*temperature - maxScore)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

func argmax(xs []float64) int {
	best := 0
	for i, x := range xs {
		if x > xs[best] {
			best = i
		}
	}
	return best
}
