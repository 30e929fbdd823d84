package factory

import (
	"context"
	"fmt"

	"github.com/mikey/mail-triage/internal/adapters/bedrock"
	"github.com/mikey/mail-triage/internal/adapters/gemini"
	"github.com/mikey/mail-triage/internal/adapters/openai"
	"github.com/mikey/mail-triage/internal/config"
	"github.com/mikey/mail-triage/internal/core"
	"github.com/mikey/mail-triage/internal/ensemble"
	"github.com/mikey/mail-triage/internal/utils"
	"go.uber.org/zap"
)

// ProviderFactory creates embedders for the semantic model and text
// completers for the LLM ensemble member
type ProviderFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewProviderFactory creates a new provider factory
func NewProviderFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *ProviderFactory {
	return &ProviderFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateEmbedder creates the embedder named by embedder.provider
func (f *ProviderFactory) CreateEmbedder(ctx context.Context) (core.Embedder, error) {
	embedderCfg := f.cfg.GetEmbedder()

	switch embedderCfg.Provider {
	case "", "hashing":
		return ensemble.NewHashingEmbedder(embedderCfg.Dimension), nil
	case "openai":
		openaiCfg := f.cfg.GetOpenAI()
		if openaiCfg.APIKey == "" {
			return nil, fmt.Errorf("openai API key is required for the openai embedder")
		}
		return openai.NewFactory(openaiCfg, f.logger, f.textProcessor).CreateEmbedder(), nil
	case "gemini":
		geminiCfg := f.cfg.GetGemini()
		if geminiCfg.APIKey == "" {
			return nil, fmt.Errorf("gemini API key is required for the gemini embedder")
		}
		embedder, err := gemini.NewFactory(geminiCfg, f.logger, f.textProcessor).CreateEmbedder(ctx)
		if err != nil {
			return nil, err
		}
		return embedder, nil
	case "bedrock":
		embedder, err := bedrock.NewFactory(f.cfg.GetBedrock(), f.logger, f.textProcessor).CreateEmbedder(ctx)
		if err != nil {
			return nil, err
		}
		return embedder, nil
	default:
		return nil, fmt.Errorf("unsupported embedder provider: %s", embedderCfg.Provider)
	}
}

// CreateCompleter creates the text completer named by llm.provider
func (f *ProviderFactory) CreateCompleter(ctx context.Context) (core.TextCompleter, error) {
	llmConfig := f.cfg.GetLLM()

	switch llmConfig.Provider {
	case "bedrock":
		completer, err := bedrock.NewFactory(f.cfg.GetBedrock(), f.logger, f.textProcessor).CreateCompleter(ctx)
		if err != nil {
			return nil, err
		}
		return completer, nil
	case "gemini":
		geminiCfg := f.cfg.GetGemini()
		if geminiCfg.APIKey == "" {
			return nil, fmt.Errorf("gemini API key is required")
		}
		completer, err := gemini.NewFactory(geminiCfg, f.logger, f.textProcessor).CreateCompleter(ctx)
		if err != nil {
			return nil, err
		}
		return completer, nil
	case "openai":
		openaiCfg := f.cfg.GetOpenAI()
		if openaiCfg.APIKey == "" {
			return nil, fmt.Errorf("openai API key is required")
		}
		return openai.NewFactory(openaiCfg, f.logger, f.textProcessor).CreateCompleter(), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", llmConfig.Provider)
	}
}
