package ensemble

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/mikey/mail-triage/internal/core"
)

// LogisticParams are the weights of a multinomial logistic regression
type LogisticParams struct {
	Categories []core.Category `json:"categories"`
	Weights    [][]float64     `json:"weights"`
	Bias       []float64       `json:"bias"`
}

// Logistic is a softmax regression classifier over TF-IDF vectors
type Logistic struct {
	vectorizer *Vectorizer
	params     *LogisticParams
}

// NewLogistic creates a logistic regression member
func NewLogistic(v *Vectorizer, params *LogisticParams) *Logistic {
	return &Logistic{vectorizer: v, params: params}
}

// ID returns the model identifier
func (m *Logistic) ID() string { return ModelLogistic }

// Predict returns the most probable category
func (m *Logistic) Predict(_ context.Context, f *core.Features) (core.Vote, error) {
	if m.params == nil || len(m.params.Weights) == 0 {
		return core.Vote{}, ErrNotTrained
	}
	x := m.vectorizer.Transform(f.ModelTokens())
	logits := make([]float64, len(m.params.Weights))
	for c, w := range m.params.Weights {
		if len(w) != m.vectorizer.Dim() {
			return core.Vote{}, fmt.Errorf("weight dimension %d does not match vocabulary %d", len(w), m.vectorizer.Dim())
		}
		logits[c] = x.Dot(w) + m.params.Bias[c]
	}
	return pick(m.params.Categories, softmax(logits, 1))
}

// LogisticOptions control stochastic gradient descent
type LogisticOptions struct {
	Epochs       int
	LearningRate float64
	L2           float64
	Seed         uint64
}

// fitLogistic trains the weights with deterministic SGD on the cross-entropy loss
func fitLogistic(xs []SparseVector, ys []int, categories []core.Category, dim int, opts LogisticOptions) *LogisticParams {
	if opts.Epochs <= 0 {
		opts.Epochs = 40
	}
	if opts.LearningRate <= 0 {
		opts.LearningRate = 0.5
	}

	params := &LogisticParams{
		Categories: categories,
		Weights:    make([][]float64, len(categories)),
		Bias:       make([]float64, len(categories)),
	}
	for c := range params.Weights {
		params.Weights[c] = make([]float64, dim)
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	order := make([]int, len(xs))
	for i := range order {
		order[i] = i
	}
	logits := make([]float64, len(categories))

	for epoch := 0; epoch < opts.Epochs; epoch++ {
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		lr := opts.LearningRate / (1 + 0.05*float64(epoch))

		for _, k := range order {
			x := xs[k]
			for c := range categories {
				logits[c] = x.Dot(params.Weights[c]) + params.Bias[c]
			}
			probs := softmax(logits, 1)
			for c := range categories {
				grad := probs[c]
				if c == ys[k] {
					grad -= 1
				}
				w := params.Weights[c]
				for j, i := range x.Indices {
					w[i] -= lr * (grad*x.Values[j] + opts.L2*w[i])
				}
				params.Bias[c] -= lr * grad
			}
		}
	}
	return params
}
