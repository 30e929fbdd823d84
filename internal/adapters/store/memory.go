package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mikey/mail-triage/internal/core"
	"go.uber.org/zap"
)

// MemoryStore is an in-memory implementation of Store. Nothing survives a
// restart, which makes it suitable for dry runs and tests.
type MemoryStore struct {
	results       map[string]*core.ClassificationResult
	corrections   []*core.Correction
	confirmations []*core.Confirmation
	mu            sync.RWMutex
	logger        *zap.Logger
	retention     time.Duration
	cleanupFreq   time.Duration
	stopCh        chan struct{}
	stopOnce      sync.Once
}

// NewMemoryStore creates a new in-memory store. A positive cleanupFreq
// starts the background retention cleanup.
func NewMemoryStore(logger *zap.Logger, retention, cleanupFreq time.Duration) *MemoryStore {
	s := &MemoryStore{
		results:     make(map[string]*core.ClassificationResult),
		logger:      logger,
		retention:   retention,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
	}
	if cleanupFreq > 0 && retention > 0 {
		go runCleanup(s, retention, cleanupFreq, s.stopCh, logger)
	}
	return s
}

func resultKey(sessionID, messageID string) string {
	return sessionID + "\x00" + messageID
}

// Append stores a batch; existing entries are kept
func (s *MemoryStore) Append(_ context.Context, results []*core.ClassificationResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range results {
		key := resultKey(r.SessionID, r.MessageID)
		if _, ok := s.results[key]; ok {
			continue
		}
		c := *r
		s.results[key] = &c
	}
	return nil
}

// Has reports whether a result is stored
func (s *MemoryStore) Has(_ context.Context, sessionID, messageID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.results[resultKey(sessionID, messageID)]
	return ok, nil
}

// Get returns a stored result
func (s *MemoryStore) Get(_ context.Context, sessionID, messageID string) (*core.ClassificationResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[resultKey(sessionID, messageID)]
	if !ok {
		return nil, ErrNotFound
	}
	c := *r
	return &c, nil
}

// Uncertain returns the uncertain results of a session, least confident first
func (s *MemoryStore) Uncertain(_ context.Context, sessionID string) ([]*core.ClassificationResult, error) {
	return s.filter(sessionID, func(r *core.ClassificationResult) bool { return r.Uncertain }, 0), nil
}

// LowConfidence returns accepted results below ceiling, least confident first
func (s *MemoryStore) LowConfidence(_ context.Context, sessionID string, ceiling float64, limit int) ([]*core.ClassificationResult, error) {
	if limit <= 0 {
		return nil, nil
	}
	return s.filter(sessionID, func(r *core.ClassificationResult) bool {
		return !r.Uncertain && r.Confidence < ceiling
	}, limit), nil
}

func (s *MemoryStore) filter(sessionID string, keep func(*core.ClassificationResult) bool, limit int) []*core.ClassificationResult {
	s.mu.RLock()
	var out []*core.ClassificationResult
	for _, r := range s.results {
		if r.SessionID == sessionID && keep(r) {
			c := *r
			out = append(out, &c)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence < out[j].Confidence
		}
		return out[i].MessageID < out[j].MessageID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Cleanup removes results classified before olderThan. Review records are kept.
func (s *MemoryStore) Cleanup(_ context.Context, olderThan time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, r := range s.results {
		if r.ClassifiedAt.Before(olderThan) {
			delete(s.results, key)
			removed++
		}
	}
	s.logger.Debug("Cleaned up expired results", zap.Int("expired_count", removed))
	return nil
}

// AppendCorrections appends correction records
func (s *MemoryStore) AppendCorrections(_ context.Context, corrections []*core.Correction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range corrections {
		cp := *c
		s.corrections = append(s.corrections, &cp)
	}
	return nil
}

// AppendConfirmations appends confirmation records
func (s *MemoryStore) AppendConfirmations(_ context.Context, confirmations []*core.Confirmation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range confirmations {
		cp := *c
		s.confirmations = append(s.confirmations, &cp)
	}
	return nil
}

// Corrections returns every correction, oldest first
func (s *MemoryStore) Corrections(context.Context) ([]*core.Correction, error) {
	s.mu.RLock()
	out := append([]*core.Correction(nil), s.corrections...)
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Confirmations returns every confirmation, oldest first
func (s *MemoryStore) Confirmations(context.Context) ([]*core.Confirmation, error) {
	s.mu.RLock()
	out := append([]*core.Confirmation(nil), s.confirmations...)
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Stop stops the background cleanup task
func (s *MemoryStore) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

type cleaner interface {
	Cleanup(ctx context.Context, olderThan time.Time) error
}

// runCleanup periodically drops results older than the retention period
func runCleanup(c cleaner, retention, freq time.Duration, stopCh <-chan struct{}, logger *zap.Logger) {
	ticker := time.NewTicker(freq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.Cleanup(context.Background(), time.Now().Add(-retention)); err != nil {
				logger.Error("Failed to clean up result log", zap.Error(err))
			}
		case <-stopCh:
			return
		}
	}
}
