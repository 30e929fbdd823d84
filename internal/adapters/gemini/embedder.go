package gemini

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/mikey/mail-triage/internal/utils"
	"go.uber.org/zap"
)

// Embedder implements core.Embedder using a Gemini embedding model
type Embedder struct {
	model         *genai.EmbeddingModel
	modelName     string
	dimension     int
	maxInputSize  int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewEmbedder creates an embedder. Gemini decides the vector size, so
// dimension is what the model is expected to return.
func NewEmbedder(client *genai.Client, modelName string, dimension, maxInputSize int, logger *zap.Logger, textProcessor *utils.TextProcessor) *Embedder {
	model := client.EmbeddingModel(modelName)
	model.TaskType = genai.TaskTypeClassification
	return &Embedder{
		model:         model,
		modelName:     modelName,
		dimension:     dimension,
		maxInputSize:  maxInputSize,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// Name identifies the provider, model and dimension
func (e *Embedder) Name() string {
	return fmt.Sprintf("gemini:%s:%d", e.modelName, e.dimension)
}

// Dimension returns the vector size
func (e *Embedder) Dimension() int {
	return e.dimension
}

// Embed returns one vector per text, in input order
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	batch := e.model.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(e.textProcessor.CleanText(t, e.maxInputSize)))
	}

	resp, err := e.model.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("failed to embed contents with Gemini: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("Gemini returned %d embeddings for %d inputs", len(resp.Embeddings), len(texts))
	}

	out := make([][]float32, len(texts))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) != e.dimension {
			got := 0
			if emb != nil {
				got = len(emb.Values)
			}
			return nil, fmt.Errorf("Gemini returned dimension %d, expected %d", got, e.dimension)
		}
		out[i] = emb.Values
	}
	e.logger.Debug("Gemini embeddings", zap.Int("count", len(out)))
	return out, nil
}
