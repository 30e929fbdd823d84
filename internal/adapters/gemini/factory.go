package gemini

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/mikey/mail-triage/internal/config"
	"github.com/mikey/mail-triage/internal/utils"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Factory creates Gemini completion and embedding clients
type Factory struct {
	cfg           config.GeminiConfig
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewFactory creates a new factory for Gemini clients
func NewFactory(cfg config.GeminiConfig, logger *zap.Logger, textProcessor *utils.TextProcessor) *Factory {
	return &Factory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

func (f *Factory) client(ctx context.Context) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(f.cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return client, nil
}

// CreateCompleter creates a Gemini completion client
func (f *Factory) CreateCompleter(ctx context.Context) (*GeminiClient, error) {
	client, err := f.client(ctx)
	if err != nil {
		return nil, err
	}
	return NewGeminiClient(
		client,
		f.cfg.ModelName,
		f.cfg.MaxTokens,
		f.cfg.Temperature,
		f.cfg.TopP,
		f.logger,
		f.textProcessor,
	), nil
}

// CreateEmbedder creates a Gemini embedding client
func (f *Factory) CreateEmbedder(ctx context.Context) (*Embedder, error) {
	client, err := f.client(ctx)
	if err != nil {
		return nil, err
	}
	return NewEmbedder(client, f.cfg.EmbeddingModel, f.cfg.EmbeddingDimension, f.cfg.MaxBodySize, f.logger, f.textProcessor), nil
}
