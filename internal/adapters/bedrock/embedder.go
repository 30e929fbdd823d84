package bedrock

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/mikey/mail-triage/internal/utils"
	"go.uber.org/zap"
)

// Embedder implements core.Embedder with a Titan text embedding model
type Embedder struct {
	client        invoker
	modelID       string
	dimension     int
	maxInputSize  int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewEmbedder creates a Titan embedder. Titan v2 accepts 256, 512 or 1024
// dimensions.
func NewEmbedder(client invoker, modelID string, dimension, maxInputSize int, logger *zap.Logger, textProcessor *utils.TextProcessor) *Embedder {
	return &Embedder{
		client:        client,
		modelID:       modelID,
		dimension:     dimension,
		maxInputSize:  maxInputSize,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// Name identifies the provider, model and dimension
func (e *Embedder) Name() string {
	return fmt.Sprintf("bedrock:%s:%d", e.modelID, e.dimension)
}

// Dimension returns the vector size
func (e *Embedder) Dimension() int {
	return e.dimension
}

// Embed returns one vector per text. Titan embeds a single input per call.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		payload, err := json.Marshal(map[string]interface{}{
			"inputText":  e.textProcessor.CleanText(t, e.maxInputSize),
			"dimensions": e.dimension,
			"normalize":  true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal embedding request: %w", err)
		}

		resp, err := e.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
			ModelId:     aws.String(e.modelID),
			Body:        payload,
			Accept:      aws.String("application/json"),
			ContentType: aws.String("application/json"),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to invoke Bedrock embedding model: %w", err)
		}

		var embResp struct {
			Embedding []float32 `json:"embedding"`
		}
		if err := json.Unmarshal(resp.Body, &embResp); err != nil {
			return nil, fmt.Errorf("failed to unmarshal embedding response: %w", err)
		}
		if len(embResp.Embedding) != e.dimension {
			return nil, fmt.Errorf("Bedrock returned dimension %d, expected %d", len(embResp.Embedding), e.dimension)
		}
		out = append(out, embResp.Embedding)
	}
	return out, nil
}
