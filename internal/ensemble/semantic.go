package ensemble

import (
	"context"
	"fmt"

	"github.com/mikey/mail-triage/internal/core"
)

// SemanticParams hold per-category centroids in embedding space
type SemanticParams struct {
	Embedder    string          `json:"embedder"`
	Dimension   int             `json:"dimension"`
	Categories  []core.Category `json:"categories"`
	Centroids   [][]float64     `json:"centroids"`
	Temperature float64         `json:"temperature"`
}

// Semantic classifies by cosine similarity between the message embedding
// and the category centroids
type Semantic struct {
	embedder core.Embedder
	params   *SemanticParams
}

// NewSemantic creates a semantic member
func NewSemantic(embedder core.Embedder, params *SemanticParams) *Semantic {
	return &Semantic{embedder: embedder, params: params}
}

// ID returns the model identifier
func (m *Semantic) ID() string { return ModelSemantic }

// Predict embeds the message and returns the category of the closest centroid
func (m *Semantic) Predict(ctx context.Context, f *core.Features) (core.Vote, error) {
	if m.params == nil || len(m.params.Centroids) == 0 {
		return core.Vote{}, ErrNotTrained
	}
	if m.embedder == nil {
		return core.Vote{}, fmt.Errorf("no embedder configured")
	}
	if m.embedder.Name() != m.params.Embedder {
		return core.Vote{}, fmt.Errorf("snapshot trained with embedder %q, configured %q", m.params.Embedder, m.embedder.Name())
	}

	vecs, err := m.embedder.Embed(ctx, []string{SemanticText(f)})
	if err != nil {
		return core.Vote{}, fmt.Errorf("failed to embed message: %w", err)
	}
	if len(vecs) != 1 || len(vecs[0]) != m.params.Dimension {
		got := 0
		if len(vecs) == 1 {
			got = len(vecs[0])
		}
		return core.Vote{}, fmt.Errorf("embedding dimension %d does not match snapshot dimension %d", got, m.params.Dimension)
	}

	x := toFloat64(vecs[0])
	sims := make([]float64, len(m.params.Centroids))
	for c, centroid := range m.params.Centroids {
		sims[c] = cosine(x, centroid)
	}
	return pick(m.params.Categories, softmax(sims, m.params.Temperature))
}

// SemanticText is the natural-language text embedded for a message
func SemanticText(f *core.Features) string {
	if f.BodyText == "" {
		return f.SubjectText
	}
	return f.SubjectText + ". " + f.BodyText
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
