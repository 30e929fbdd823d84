package bedrock

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/mikey/mail-triage/internal/config"
	"github.com/mikey/mail-triage/internal/utils"
	"go.uber.org/zap"
)

// Factory creates Bedrock clients
type Factory struct {
	cfg           config.BedrockConfig
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewFactory creates a new Bedrock factory
func NewFactory(cfg config.BedrockConfig, logger *zap.Logger, textProcessor *utils.TextProcessor) *Factory {
	return &Factory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

func (f *Factory) client(ctx context.Context) (*bedrockruntime.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(f.cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	return bedrockruntime.NewFromConfig(awsCfg), nil
}

// CreateCompleter creates a Bedrock completion client
func (f *Factory) CreateCompleter(ctx context.Context) (*BedrockClient, error) {
	client, err := f.client(ctx)
	if err != nil {
		return nil, err
	}
	return NewBedrockClient(
		client,
		f.cfg.ModelID,
		f.cfg.MaxTokens,
		f.cfg.Temperature,
		f.cfg.TopP,
		f.logger,
		f.textProcessor,
	), nil
}

// CreateEmbedder creates a Bedrock embedding client
func (f *Factory) CreateEmbedder(ctx context.Context) (*Embedder, error) {
	client, err := f.client(ctx)
	if err != nil {
		return nil, err
	}
	return NewEmbedder(client, f.cfg.EmbeddingModelID, f.cfg.EmbeddingDimensions, f.cfg.MaxBodySize, f.logger, f.textProcessor), nil
}
