package ensemble

import (
	"context"
	"fmt"
	"math"

	"github.com/mikey/mail-triage/internal/core"
)

// NaiveBayesParams are the parameters of a multinomial naive Bayes model
type NaiveBayesParams struct {
	Categories    []core.Category `json:"categories"`
	LogPriors     []float64       `json:"log_priors"`
	LogLikelihood [][]float64     `json:"log_likelihood"`
}

// NaiveBayes is a multinomial naive Bayes classifier over TF-IDF weights
type NaiveBayes struct {
	vectorizer *Vectorizer
	params     *NaiveBayesParams
}

// NewNaiveBayes creates a naive Bayes member
func NewNaiveBayes(v *Vectorizer, params *NaiveBayesParams) *NaiveBayes {
	return &NaiveBayes{vectorizer: v, params: params}
}

// ID returns the model identifier
func (m *NaiveBayes) ID() string { return ModelNaiveBayes }

// Predict returns the most probable category
func (m *NaiveBayes) Predict(_ context.Context, f *core.Features) (core.Vote, error) {
	if m.params == nil || len(m.params.Categories) == 0 {
		return core.Vote{}, ErrNotTrained
	}
	x := m.vectorizer.Transform(f.ModelTokens())

	scores := make([]float64, len(m.params.Categories))
	for c := range m.params.Categories {
		ll := m.params.LogLikelihood[c]
		if len(ll) != m.vectorizer.Dim() {
			return core.Vote{}, fmt.Errorf("likelihood dimension %d does not match vocabulary %d", len(ll), m.vectorizer.Dim())
		}
		scores[c] = m.params.LogPriors[c] + x.Dot(ll)
	}
	return pick(m.params.Categories, softmax(scores, 1))
}

// fitNaiveBayes estimates priors and smoothed feature likelihoods
func fitNaiveBayes(xs []SparseVector, ys []int, categories []core.Category, dim int, alpha float64) *NaiveBayesParams {
	counts := make([]float64, len(categories))
	weights := make([][]float64, len(categories))
	for c := range weights {
		weights[c] = make([]float64, dim)
	}
	for k, x := range xs {
		c := ys[k]
		counts[c]++
		for j, i := range x.Indices {
			weights[c][i] += x.Values[j]
		}
	}

	params := &NaiveBayesParams{
		Categories:    categories,
		LogPriors:     make([]float64, len(categories)),
		LogLikelihood: make([][]float64, len(categories)),
	}
	total := float64(len(xs))
	for c := range categories {
		params.LogPriors[c] = math.Log((counts[c] + 1) / (total + float64(len(categories))))

		sum := 0.0
		for _, w := range weights[c] {
			sum += w
		}
		denom := sum + alpha*float64(dim)
		params.LogLikelihood[c] = make([]float64, dim)
		for i, w := range weights[c] {
			params.LogLikelihood[c][i] = math.Log((w + alpha) / denom)
		}
	}
	return params
}
