package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mikey/mail-triage/internal/core"
)

// ErrSessionDone is returned when responding to a finished session
var ErrSessionDone = errors.New("review session finished")

// Action is the reviewer's answer to one cluster
type Action string

const (
	ActionConfirm Action = "confirm"
	ActionCorrect Action = "correct"
	ActionSkip    Action = "skip"
	ActionAbort   Action = "abort"
)

// Response answers the current prompt. Category is only read for corrections.
type Response struct {
	Action   Action
	Category core.Category
}

// Cluster is a group of similar results reviewed as one decision
type Cluster struct {
	ID             int
	Predicted      core.Category
	MeanConfidence float64
	Members        []*core.ClassificationResult
}

// Prompt is what the reviewer is shown for one cluster
type Prompt struct {
	ClusterID      int
	Position       int
	Total          int
	Predicted      core.Category
	MeanConfidence float64
	Size           int
	Samples        []core.MessageSummary
	Categories     []core.Category
}

// Summary counts the decisions taken in a session
type Summary struct {
	ReviewSessionID     string
	ScanSessionID       string
	Clusters            int
	Confirmed           int
	Corrected           int
	Skipped             int
	ConfirmationRecords int
	CorrectionRecords   int
	Aborted             bool
}

// Recorded reports whether the session persisted any review outcome
func (s Summary) Recorded() bool {
	return s.ConfirmationRecords+s.CorrectionRecords > 0
}

// Session walks the reviewer through the clusters one prompt at a time.
// Every confirmation and correction is appended to the log as soon as it is
// given, so an interrupted session keeps what was decided.
type Session struct {
	id          string
	scanSession string
	clusters    []Cluster
	next        int
	log         core.CorrectionLog
	taxonomy    *core.Taxonomy
	sampleSize  int
	summary     Summary
	now         func() time.Time
	newID       func() string
}

// ID returns the review session id
func (s *Session) ID() string {
	return s.id
}

// Clusters returns the clusters in review order
func (s *Session) Clusters() []Cluster {
	return s.clusters
}

// Done reports whether there is nothing left to review
func (s *Session) Done() bool {
	return s.summary.Aborted || s.next >= len(s.clusters)
}

// Summary returns the decisions taken so far
func (s *Session) Summary() Summary {
	return s.summary
}

// Next returns the prompt for the current cluster
func (s *Session) Next() (Prompt, bool) {
	if s.Done() {
		return Prompt{}, false
	}
	c := s.clusters[s.next]
	n := min(s.sampleSize, len(c.Members))
	samples := make([]core.MessageSummary, n)
	for i := 0; i < n; i++ {
		samples[i] = c.Members[i].Summary
	}
	return Prompt{
		ClusterID:      c.ID,
		Position:       s.next + 1,
		Total:          len(s.clusters),
		Predicted:      c.Predicted,
		MeanConfidence: c.MeanConfidence,
		Size:           len(c.Members),
		Samples:        samples,
		Categories:     s.taxonomy.Categories(),
	}, true
}

// Respond applies the reviewer's answer to the current cluster and advances
func (s *Session) Respond(ctx context.Context, r Response) error {
	if s.Done() {
		return ErrSessionDone
	}
	c := s.clusters[s.next]

	switch r.Action {
	case ActionConfirm:
		records := s.confirmations(c)
		if err := s.log.AppendConfirmations(ctx, records); err != nil {
			return fmt.Errorf("failed to record confirmation: %w", err)
		}
		s.summary.Confirmed++
		s.summary.ConfirmationRecords += len(records)

	case ActionCorrect:
		if !s.taxonomy.Contains(r.Category) {
			return fmt.Errorf("category %q is not in the %s taxonomy", r.Category, s.taxonomy.Variant())
		}
		records := s.corrections(c, r.Category)
		if err := s.log.AppendCorrections(ctx, records); err != nil {
			return fmt.Errorf("failed to record correction: %w", err)
		}
		s.summary.Corrected++
		s.summary.CorrectionRecords += len(records)

	case ActionSkip:
		s.summary.Skipped++

	case ActionAbort:
		s.summary.Aborted = true
		return nil

	default:
		return fmt.Errorf("unknown review action %q", r.Action)
	}

	s.next++
	return nil
}

func (s *Session) confirmations(c Cluster) []*core.Confirmation {
	now := s.now()
	records := make([]*core.Confirmation, len(c.Members))
	for i, m := range c.Members {
		records[i] = &core.Confirmation{
			ID:              s.newID(),
			MessageID:       m.MessageID,
			SessionID:       m.SessionID,
			ReviewSessionID: s.id,
			ClusterID:       c.ID,
			Category:        c.Predicted,
			Summary:         m.Summary,
			CreatedAt:       now,
		}
	}
	return records
}

func (s *Session) corrections(c Cluster, category core.Category) []*core.Correction {
	now := s.now()
	records := make([]*core.Correction, len(c.Members))
	for i, m := range c.Members {
		records[i] = &core.Correction{
			ID:                s.newID(),
			MessageID:         m.MessageID,
			SessionID:         m.SessionID,
			ReviewSessionID:   s.id,
			ClusterID:         c.ID,
			OriginalCategory:  m.Category,
			CorrectedCategory: category,
			Summary:           m.Summary,
			CreatedAt:         now,
		}
	}
	return records
}
