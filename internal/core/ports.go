package core

import (
	"context"
	"time"
)

// FeatureExtractor turns a message record into a feature record
type FeatureExtractor interface {
	Extract(msg *Message) (*Features, error)
}

// RuleScorer scores features against one rule table version
type RuleScorer interface {
	Score(f *Features) *RuleResult
	Version() string
}

// Predictor runs the ensemble members over a feature record
type Predictor interface {
	// Predict returns the surviving votes and the members whose vote was dropped
	Predict(ctx context.Context, f *Features) ([]Vote, []DroppedVote)
	Version() string
}

// Arbiter combines the rule result and the ensemble votes into one decision
type Arbiter interface {
	Decide(rule *RuleResult, votes []Vote) Decision
}

// Candidate is one message id yielded by the mail service listing.
// Cursor resumes the listing immediately after this candidate.
type Candidate struct {
	ID     string
	Cursor string
	Labels []string
}

// ListFilter selects the candidate messages of a scan
type ListFilter struct {
	Query         string
	DaysBack      int
	UnlabeledOnly bool
	After         string
}

// CandidateIterator is a lazy sequence of candidates; Next returns io.EOF when exhausted
type CandidateIterator interface {
	Next(ctx context.Context) (Candidate, error)
}

// MailService is the mail-service client boundary
type MailService interface {
	ListCandidates(ctx context.Context, filter ListFilter) (CandidateIterator, error)
	FetchMessage(ctx context.Context, id string) (*Message, error)
	ApplyCategory(ctx context.Context, id string, category Category) error
}

// ResultLog is the append-only log of classification results
type ResultLog interface {
	// Append durably stores a batch; a result already stored for the same
	// session and message is kept unchanged
	Append(ctx context.Context, results []*ClassificationResult) error
	Has(ctx context.Context, sessionID, messageID string) (bool, error)
	Get(ctx context.Context, sessionID, messageID string) (*ClassificationResult, error)
	Uncertain(ctx context.Context, sessionID string) ([]*ClassificationResult, error)
	LowConfidence(ctx context.Context, sessionID string, ceiling float64, limit int) ([]*ClassificationResult, error)
	Cleanup(ctx context.Context, olderThan time.Time) error
}

// CorrectionLog is the append-only audit trail of review outcomes
type CorrectionLog interface {
	AppendCorrections(ctx context.Context, corrections []*Correction) error
	AppendConfirmations(ctx context.Context, confirmations []*Confirmation) error
	Corrections(ctx context.Context) ([]*Correction, error)
	Confirmations(ctx context.Context) ([]*Confirmation, error)
}

// Embedder produces dense sentence representations
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// TextCompleter sends a prompt to a language model and returns its reply
type TextCompleter interface {
	Name() string
	Complete(ctx context.Context, system, prompt string) (string, error)
}
