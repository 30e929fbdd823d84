package review

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// Algorithm selects how review candidates are grouped
type Algorithm string

const (
	// AlgorithmKMeans groups into a fixed number of clusters
	AlgorithmKMeans Algorithm = "kmeans"
	// AlgorithmDensity finds the number of clusters from point density
	AlgorithmDensity Algorithm = "density"
)

// ParseAlgorithm validates an algorithm name
func ParseAlgorithm(s string) (Algorithm, error) {
	switch a := Algorithm(s); a {
	case AlgorithmKMeans, AlgorithmDensity:
		return a, nil
	default:
		return "", fmt.Errorf("unknown clustering algorithm: %q", s)
	}
}

const (
	kmeansMaxIter = 100
	noise         = -1
)

// KMeans partitions points into at most k clusters and returns the cluster
// index of every point. Centers are seeded with k-means++ and the best of
// nInit runs (lowest inertia) is kept.
func KMeans(points [][]float64, k, nInit int, seed uint64) []int {
	n := len(points)
	labels := make([]int, n)
	if n == 0 {
		return labels
	}
	k = min(k, n)
	if k <= 1 {
		return labels
	}
	if nInit < 1 {
		nInit = 1
	}

	rng := rand.New(rand.NewPCG(seed, seed))
	best := math.Inf(1)
	for run := 0; run < nInit; run++ {
		runLabels, inertia := kmeansOnce(points, k, rng)
		if inertia < best {
			best = inertia
			copy(labels, runLabels)
		}
	}
	return labels
}

func kmeansOnce(points [][]float64, k int, rng *rand.Rand) ([]int, float64) {
	centers := seedCenters(points, k, rng)
	labels := make([]int, len(points))
	for i := range labels {
		labels[i] = -1
	}

	for iter := 0; iter < kmeansMaxIter; iter++ {
		changed := false
		for i, p := range points {
			c := nearest(p, centers)
			if c != labels[i] {
				labels[i] = c
				changed = true
			}
		}
		if !changed {
			break
		}

		dim := len(points[0])
		sums := make([][]float64, k)
		counts := make([]int, k)
		for i, p := range points {
			c := labels[i]
			if sums[c] == nil {
				sums[c] = make([]float64, dim)
			}
			for d, v := range p {
				sums[c][d] += v
			}
			counts[c]++
		}
		for c := range centers {
			// An empty cluster keeps its previous center
			if counts[c] == 0 {
				continue
			}
			for d := range sums[c] {
				sums[c][d] /= float64(counts[c])
			}
			centers[c] = sums[c]
		}
	}

	inertia := 0.0
	for i, p := range points {
		inertia += squaredDistance(p, centers[labels[i]])
	}
	return labels, inertia
}

// seedCenters picks k initial centers with k-means++
func seedCenters(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	centers := make([][]float64, 0, k)
	centers = append(centers, points[rng.IntN(len(points))])

	dist := make([]float64, len(points))
	for len(centers) < k {
		total := 0.0
		for i, p := range points {
			dist[i] = squaredDistance(p, centers[nearest(p, centers)])
			total += dist[i]
		}

		next := rng.IntN(len(points))
		if total > 0 {
			target := rng.Float64() * total
			for i, d := range dist {
				target -= d
				if target <= 0 && d > 0 {
					next = i
					break
				}
			}
		}
		centers = append(centers, points[next])
	}

	out := make([][]float64, k)
	for i, c := range centers {
		out[i] = append([]float64(nil), c...)
	}
	return out
}

func nearest(p []float64, centers [][]float64) int {
	best, bestDist := 0, math.Inf(1)
	for c, center := range centers {
		if d := squaredDistance(p, center); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func squaredDistance(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// DBSCAN groups points whose cosine distance is within eps. A point with at
// least minPoints neighbours (itself included) is a core point. Noise points
// are labelled -1.
func DBSCAN(points [][]float64, eps float64, minPoints int) []int {
	n := len(points)
	labels := make([]int, n)
	visited := make([]bool, n)
	for i := range labels {
		labels[i] = noise
	}

	neighbours := func(i int) []int {
		var out []int
		for j := range points {
			if cosineDistance(points[i], points[j]) <= eps {
				out = append(out, j)
			}
		}
		return out
	}

	cluster := 0
	for i := range points {
		if visited[i] {
			continue
		}
		visited[i] = true
		seeds := neighbours(i)
		if len(seeds) < minPoints {
			continue
		}

		labels[i] = cluster
		for q := 0; q < len(seeds); q++ {
			j := seeds[q]
			if labels[j] == noise {
				labels[j] = cluster
			}
			if visited[j] {
				continue
			}
			visited[j] = true
			if more := neighbours(j); len(more) >= minPoints {
				seeds = append(seeds, more...)
			}
		}
		cluster++
	}
	return labels
}

func cosineDistance(a, b []float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		// Empty vectors only match each other
		if na == nb {
			return 0
		}
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}
