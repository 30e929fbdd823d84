// Package scan drives a resumable, checkpointed traversal of the mailbox.
package scan

import (
	"fmt"
	"time"

	"github.com/mikey/mail-triage/internal/core"
)

// Status is the position of a session in the scan state machine
type Status string

const (
	StatusIdle         Status = "idle"
	StatusEnumerating  Status = "enumerating"
	StatusProcessing   Status = "processing"
	StatusCheckpointed Status = "checkpointed"
	StatusComplete     Status = "complete"
	StatusPaused       Status = "paused"
	StatusFailed       Status = "failed"
)

var transitions = map[Status][]Status{
	StatusIdle:         {StatusEnumerating},
	StatusEnumerating:  {StatusProcessing, StatusComplete, StatusPaused, StatusFailed},
	StatusProcessing:   {StatusCheckpointed, StatusFailed},
	StatusCheckpointed: {StatusProcessing, StatusComplete, StatusPaused, StatusFailed},
}

// FailedMessage records a message that was given up on
type FailedMessage struct {
	ID       string    `json:"id"`
	Reason   string    `json:"reason"`
	Attempts int       `json:"attempts"`
	At       time.Time `json:"at"`
}

// PendingLabel is a category label still to be applied to a logged message
type PendingLabel struct {
	ID       string        `json:"id"`
	Category core.Category `json:"category"`
}

// State is the durable progress record of one scan session.
// It only ever reflects fully committed batches.
type State struct {
	SessionID        string                `json:"session_id"`
	Mode             core.ScanMode         `json:"mode"`
	Status           Status                `json:"status"`
	Cursor           string                `json:"cursor"`
	LastProcessedID  string                `json:"last_processed_id"`
	ProcessedCount   int                   `json:"processed_count"`
	SkippedCount     int                   `json:"skipped_count"`
	UncertainCount   int                   `json:"uncertain_count"`
	BatchesCommitted int                   `json:"batches_committed"`
	SessionStart     time.Time             `json:"session_start"`
	UpdatedAt        time.Time             `json:"updated_at"`
	CategoryCounts   map[core.Category]int `json:"category_counts"`
	Failed           []FailedMessage       `json:"failed,omitempty"`
	PendingLabels    []PendingLabel        `json:"pending_labels,omitempty"`
	LabelFailures    int                   `json:"label_failures,omitempty"`
	LastError        string                `json:"last_error,omitempty"`
}

// NewState creates an idle session
func NewState(sessionID string, mode core.ScanMode, now time.Time) *State {
	return &State{
		SessionID:      sessionID,
		Mode:           mode,
		Status:         StatusIdle,
		SessionStart:   now,
		UpdatedAt:      now,
		CategoryCounts: make(map[core.Category]int),
	}
}

// Transition moves the session to the next status
func (s *State) Transition(to Status, now time.Time) error {
	for _, allowed := range transitions[s.Status] {
		if allowed == to {
			s.Status = to
			s.UpdatedAt = now
			return nil
		}
	}
	return fmt.Errorf("invalid scan transition %s -> %s", s.Status, to)
}

// Resumable reports whether the session can continue from its cursor
func (s *State) Resumable() bool {
	return s.Status != StatusComplete && s.Status != StatusIdle
}

// Resume restarts enumeration from the last committed cursor.
// A crash can leave a session in any non-terminal status, so all of them resume.
func (s *State) Resume(now time.Time) error {
	if !s.Resumable() {
		return fmt.Errorf("session %s is %s and cannot be resumed", s.SessionID, s.Status)
	}
	s.Status = StatusEnumerating
	s.LastError = ""
	s.UpdatedAt = now
	return nil
}

// Dispatched returns the number of messages with a recorded outcome
func (s *State) Dispatched() int {
	return s.ProcessedCount + s.SkippedCount + len(s.Failed)
}

// Record adds one committed result to the counters
func (s *State) Record(r *core.ClassificationResult) {
	if s.CategoryCounts == nil {
		s.CategoryCounts = make(map[core.Category]int)
	}
	s.ProcessedCount++
	s.CategoryCounts[r.Category]++
	if r.Uncertain {
		s.UncertainCount++
	}
}

// Clone returns a deep copy of the state
func (s *State) Clone() *State {
	c := *s
	c.CategoryCounts = make(map[core.Category]int, len(s.CategoryCounts))
	for k, v := range s.CategoryCounts {
		c.CategoryCounts[k] = v
	}
	c.Failed = append([]FailedMessage(nil), s.Failed...)
	c.PendingLabels = append([]PendingLabel(nil), s.PendingLabels...)
	return &c
}

func (s *State) validate() error {
	if s.SessionID == "" {
		return fmt.Errorf("missing session id")
	}
	if _, err := core.ParseScanMode(string(s.Mode)); err != nil {
		return err
	}
	switch s.Status {
	case StatusIdle, StatusEnumerating, StatusProcessing, StatusCheckpointed,
		StatusComplete, StatusPaused, StatusFailed:
	default:
		return fmt.Errorf("unknown status %q", s.Status)
	}
	if s.ProcessedCount < 0 || s.SkippedCount < 0 || s.UncertainCount < 0 || s.BatchesCommitted < 0 || s.LabelFailures < 0 {
		return fmt.Errorf("negative counters")
	}
	return nil
}
