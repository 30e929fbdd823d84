package openai

import (
	"github.com/mikey/mail-triage/internal/config"
	"github.com/mikey/mail-triage/internal/utils"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Factory creates OpenAI completion and embedding clients
type Factory struct {
	cfg           config.OpenAIConfig
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewFactory creates a new factory for OpenAI clients
func NewFactory(cfg config.OpenAIConfig, logger *zap.Logger, textProcessor *utils.TextProcessor) *Factory {
	return &Factory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

func (f *Factory) client() *openai.Client {
	clientCfg := openai.DefaultConfig(f.cfg.APIKey)
	if f.cfg.BaseURL != "" {
		clientCfg.BaseURL = f.cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientCfg)
}

// CreateCompleter creates a chat completion client
func (f *Factory) CreateCompleter() *OpenAIClient {
	return NewOpenAIClient(
		f.client(),
		f.cfg.ModelName,
		f.cfg.MaxTokens,
		f.cfg.Temperature,
		f.cfg.TopP,
		f.logger,
		f.textProcessor,
	)
}

// CreateEmbedder creates an embeddings client
func (f *Factory) CreateEmbedder() *Embedder {
	return NewEmbedder(
		f.client(),
		f.cfg.EmbeddingModel,
		f.cfg.EmbeddingDimensions,
		f.cfg.MaxBodySize,
		f.logger,
		f.textProcessor,
	)
}
