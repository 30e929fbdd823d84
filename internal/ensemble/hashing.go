package ensemble

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/mikey/mail-triage/internal/features"
)

// HashingEmbedderName identifies the hashing embedder in snapshots
const HashingEmbedderName = "hashing-v1"

// HashingEmbedder is an offline embedder using signed feature hashing of
// words and character trigrams. It implements core.Embedder.
type HashingEmbedder struct {
	dim int
}

// NewHashingEmbedder creates a hashing embedder of the given dimension
func NewHashingEmbedder(dim int) *HashingEmbedder {
	if dim <= 0 {
		dim = 384
	}
	return &HashingEmbedder{dim: dim}
}

// Name returns the embedder identifier
func (e *HashingEmbedder) Name() string {
	return fmt.Sprintf("%s/%d", HashingEmbedderName, e.dim)
}

// Dimension returns the embedding size
func (e *HashingEmbedder) Dimension() int {
	return e.dim
}

// Embed returns one L2-normalized vector per text
func (e *HashingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float64, e.dim)
		for _, tok := range features.Tokenize(text) {
			e.add(vec, "w:"+tok, 1)
			padded := "<" + tok + ">"
			for j := 0; j+3 <= len(padded); j++ {
				e.add(vec, "c:"+padded[j:j+3], 0.5)
			}
		}
		normalize(vec)
		out[i] = make([]float32, e.dim)
		for j, v := range vec {
			out[i][j] = float32(v)
		}
	}
	return out, nil
}

func (e *HashingEmbedder) add(vec []float64, key string, weight float64) {
	h := fnv.New32a()
	h.Write([]byte(key))
	sum := h.Sum32()
	idx := int(sum % uint32(e.dim))
	if sum&(1<<31) != 0 {
		weight = -weight
	}
	vec[idx] += weight
}
