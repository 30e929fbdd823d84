package core

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ClassificationService runs the hybrid classification pipeline for one session.
// The rule scorer and predictor it holds are fixed for the lifetime of the service.
type ClassificationService struct {
	extractor FeatureExtractor
	rules     RuleScorer
	predictor Predictor
	arbiter   Arbiter
	taxonomy  *Taxonomy
	logger    *zap.Logger
}

// NewClassificationService creates a new classification service
func NewClassificationService(
	extractor FeatureExtractor,
	rules RuleScorer,
	predictor Predictor,
	arbiter Arbiter,
	taxonomy *Taxonomy,
	logger *zap.Logger,
) *ClassificationService {
	return &ClassificationService{
		extractor: extractor,
		rules:     rules,
		predictor: predictor,
		arbiter:   arbiter,
		taxonomy:  taxonomy,
		logger:    logger,
	}
}

// Taxonomy returns the active taxonomy
func (s *ClassificationService) Taxonomy() *Taxonomy {
	return s.taxonomy
}

// Classify extracts features from a message and produces its classification result
func (s *ClassificationService) Classify(ctx context.Context, sessionID string, msg *Message) (*ClassificationResult, error) {
	features, err := s.extractor.Extract(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to extract features for %s: %w", msg.ID, err)
	}

	ruleResult := s.rules.Score(features)
	votes, dropped := s.predictor.Predict(ctx, features)

	// Votes outside the taxonomy count as model faults
	kept := votes[:0:0]
	for _, v := range votes {
		if !s.taxonomy.Contains(v.Category) {
			dropped = append(dropped, DroppedVote{
				ModelID: v.ModelID,
				Reason:  fmt.Sprintf("category %q not in taxonomy", v.Category),
			})
			continue
		}
		kept = append(kept, v)
	}
	if len(dropped) > 0 {
		s.logger.Debug("Dropped ensemble votes",
			zap.String("message_id", msg.ID),
			zap.Any("dropped", dropped))
	}

	decision := s.arbiter.Decide(ruleResult, kept)
	if decision.Method == MethodNone || !s.taxonomy.Contains(decision.Category) {
		decision.Category = s.taxonomy.Fallback()
		decision.Confidence = 0
		decision.Uncertain = true
	}

	result := &ClassificationResult{
		SessionID:        sessionID,
		MessageID:        msg.ID,
		Category:         decision.Category,
		Confidence:       decision.Confidence,
		Score:            decision.Score,
		Method:           decision.Method,
		Uncertain:        decision.Uncertain,
		Votes:            decision.Votes,
		Dropped:          dropped,
		RuleTableVersion: s.rules.Version(),
		SnapshotVersion:  s.predictor.Version(),
		Summary:          features.Summary,
		ClassifiedAt:     time.Now().UTC(),
	}

	s.logger.Debug("Classified message",
		zap.String("message_id", msg.ID),
		zap.String("category", string(result.Category)),
		zap.Float64("confidence", result.Confidence),
		zap.String("method", string(result.Method)),
		zap.Bool("uncertain", result.Uncertain))

	return result, nil
}
