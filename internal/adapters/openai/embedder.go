package openai

import (
	"context"
	"fmt"

	"github.com/mikey/mail-triage/internal/utils"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Embedder implements core.Embedder using the embeddings API
type Embedder struct {
	client        chatAPI
	model         string
	dimension     int
	maxInputSize  int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewEmbedder creates an embedder requesting vectors of the given dimension
func NewEmbedder(client chatAPI, model string, dimension, maxInputSize int, logger *zap.Logger, textProcessor *utils.TextProcessor) *Embedder {
	return &Embedder{
		client:        client,
		model:         model,
		dimension:     dimension,
		maxInputSize:  maxInputSize,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// Name identifies the provider, model and dimension
func (e *Embedder) Name() string {
	return fmt.Sprintf("openai:%s:%d", e.model, e.dimension)
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
	inputs := make([]string, len(texts))
	for i, t := range texts {
		inputs[i] = e.textProcessor.CleanText(t, e.maxInputSize)
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      inputs,
		Model:      openai.EmbeddingModel(e.model),
		Dimensions: e.dimension,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings with OpenAI: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("OpenAI returned %d embeddings for %d inputs", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("OpenAI returned embedding index %d out of range", d.Index)
		}
		if len(d.Embedding) != e.dimension {
			return nil, fmt.Errorf("OpenAI returned dimension %d, expected %d", len(d.Embedding), e.dimension)
		}
		out[d.Index] = d.Embedding
	}
	e.logger.Debug("OpenAI embeddings", zap.Int("count", len(out)), zap.Int("total_tokens", resp.Usage.TotalTokens))
	return out, nil
}
