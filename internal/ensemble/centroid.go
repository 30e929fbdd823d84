package ensemble

import (
	"context"
	"fmt"

	"github.com/mikey/mail-triage/internal/core"
)

// CentroidParams hold one normalized centroid per category
type CentroidParams struct {
	Categories  []core.Category `json:"categories"`
	Centroids   [][]float64     `json:"centroids"`
	Temperature float64         `json:"temperature"`
}

// Centroid is a cosine nearest-centroid classifier over TF-IDF vectors
type Centroid struct {
	vectorizer *Vectorizer
	params     *CentroidParams
}

// NewCentroid creates a nearest-centroid member
func NewCentroid(v *Vectorizer, params *CentroidParams) *Centroid {
	return &Centroid{vectorizer: v, params: params}
}

// ID returns the model identifier
func (m *Centroid) ID() string { return ModelCentroid }

// Predict returns the category of the closest centroid
func (m *Centroid) Predict(_ context.Context, f *core.Features) (core.Vote, error) {
	if m.params == nil || len(m.params.Centroids) == 0 {
		return core.Vote{}, ErrNotTrained
	}
	x := m.vectorizer.Transform(f.ModelTokens())

	sims := make([]float64, len(m.params.Centroids))
	for c, centroid := range m.params.Centroids {
		if len(centroid) != m.vectorizer.Dim() {
			return core.Vote{}, fmt.Errorf("centroid dimension %d does not match vocabulary %d", len(centroid), m.vectorizer.Dim())
		}
		sims[c] = x.Dot(centroid)
	}
	return pick(m.params.Categories, softmax(sims, m.params.Temperature))
}

// fitCentroids averages the vectors of each category. Categories without
// examples get no centroid.
func fitCentroids(xs [][]float64, ys []int, categories []core.Category, temperature float64) *CentroidParams {
	if len(xs) == 0 {
		return &CentroidParams{Temperature: temperature}
	}
	dim := len(xs[0])
	sums := make([][]float64, len(categories))
	counts := make([]int, len(categories))
	for k, x := range xs {
		c := ys[k]
		if sums[c] == nil {
			sums[c] = make([]float64, dim)
		}
		for i, v := range x {
			sums[c][i] += v
		}
		counts[c]++
	}

	params := &CentroidParams{Temperature: temperature}
	for c, sum := range sums {
		if counts[c] == 0 {
			continue
		}
		params.Categories = append(params.Categories, categories[c])
		params.Centroids = append(params.Centroids, normalize(sum))
	}
	return params
}
