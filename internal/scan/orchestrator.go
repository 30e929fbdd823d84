package scan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/mikey/mail-triage/internal/core"
	"github.com/mikey/mail-triage/internal/worker"
	"go.uber.org/zap"
)

// Classifier produces the classification result of one message
type Classifier interface {
	Classify(ctx context.Context, sessionID string, msg *core.Message) (*core.ClassificationResult, error)
}

// Orchestrator runs scan sessions: it enumerates candidates in batches,
// dispatches each batch to the worker pool, appends the results and
// checkpoints the scan state after every batch.
type Orchestrator struct {
	mail    core.MailService
	results core.ResultLog
	store   StateStore
	limiter *worker.Limiter
	retry   worker.RetryPolicy
	logger  *zap.Logger
	now     func() time.Time
	newID   func() string
}

// NewOrchestrator creates a new scan orchestrator
func NewOrchestrator(
	mail core.MailService,
	results core.ResultLog,
	store StateStore,
	limiter *worker.Limiter,
	retry worker.RetryPolicy,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		mail:    mail,
		results: results,
		store:   store,
		limiter: limiter,
		retry:   retry,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
	}
}

type processed struct {
	result  *core.ClassificationResult
	skipped bool
}

type batch struct {
	candidates []core.Candidate
	pending    []core.Candidate
	// logged holds results appended by a batch whose checkpoint never landed
	logged     []*core.ClassificationResult
	skipped    int
}

// Run executes one scan session and returns its final state.
// Cancelling ctx pauses the session at the next batch boundary; the
// returned error is nil for complete and paused sessions.
func (o *Orchestrator) Run(ctx context.Context, cfg core.RunConfig, classifier Classifier) (*State, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	state, err := o.begin(cfg)
	if err != nil {
		return nil, err
	}
	if err := o.store.Save(state); err != nil {
		return nil, err
	}

	o.logger.Info("Starting scan",
		zap.String("session_id", state.SessionID),
		zap.String("mode", string(state.Mode)),
		zap.String("cursor", state.Cursor),
		zap.Int("batch_size", cfg.BatchSize),
		zap.Int("concurrency", cfg.Concurrency))

	mail := worker.Throttle(o.mail, o.limiter)
	pool := worker.NewPool(cfg.Concurrency, o.retry, o.logger)

	if len(state.PendingLabels) > 0 && !cfg.ApplyLabels {
		o.logger.Warn("Dropping pending labels of resumed session",
			zap.String("session_id", state.SessionID),
			zap.Int("labels", len(state.PendingLabels)))
		state.PendingLabels = nil
	}
	if err := o.label(ctx, mail, pool, state); err != nil {
		return state, err
	}

	filter := core.ListFilter{
		Query:         cfg.Query,
		DaysBack:      cfg.DaysBack,
		UnlabeledOnly: state.Mode == core.ScanIncremental,
		After:         state.Cursor,
	}
	it, err := withRetry(ctx, o, "list", func() (core.CandidateIterator, error) {
		return mail.ListCandidates(ctx, filter)
	})
	if err != nil {
		return o.stop(ctx, state, err)
	}

	handle := o.handler(mail, state.SessionID, state.Mode, classifier)

	for {
		if ctx.Err() != nil {
			return o.pause(state)
		}

		limit := cfg.BatchSize
		if cfg.MaxEmails > 0 {
			remaining := cfg.MaxEmails - state.Dispatched()
			if remaining <= 0 {
				return o.complete(state)
			}
			limit = min(limit, remaining)
		}

		b, exhausted, err := o.collect(ctx, it, state, limit)
		if err != nil {
			return o.stop(ctx, state, err)
		}
		if len(b.candidates) == 0 {
			return o.complete(state)
		}

		if err := state.Transition(StatusProcessing, o.now()); err != nil {
			return state, err
		}
		// A started batch always runs to completion; cancellation is
		// only observed between batches.
		outcomes := worker.Run(context.WithoutCancel(ctx), pool, b.pending, handle)
		if err := o.commit(ctx, mail, pool, cfg.ApplyLabels, state, b, outcomes); err != nil {
			return state, err
		}

		if exhausted {
			return o.complete(state)
		}
	}
}

func (o *Orchestrator) begin(cfg core.RunConfig) (*State, error) {
	now := o.now()
	existing, err := o.store.Load()

	if cfg.ScanMode == core.ScanResume {
		if errors.Is(err, ErrNoState) {
			return nil, fmt.Errorf("nothing to resume: %w", err)
		}
		if err != nil {
			return nil, err
		}
		if err := existing.Resume(now); err != nil {
			return nil, err
		}
		return existing, nil
	}

	if err != nil && !errors.Is(err, ErrNoState) {
		return nil, err
	}
	if existing != nil && existing.Resumable() {
		o.logger.Warn("Replacing unfinished scan session",
			zap.String("session_id", existing.SessionID),
			zap.String("status", string(existing.Status)))
	}

	state := NewState(o.newID(), cfg.ScanMode, now)
	if err := state.Transition(StatusEnumerating, now); err != nil {
		return nil, err
	}
	return state, nil
}

// collect pulls up to limit candidates from the listing. A resumed listing
// may hand back messages the session already handled: those with a result
// covered by the last checkpoint or a failed-and-skipped outcome are passed
// over, and results appended after the last checkpoint are recounted.
func (o *Orchestrator) collect(ctx context.Context, it core.CandidateIterator, state *State, limit int) (batch, bool, error) {
	var b batch
	failed := make(map[string]bool, len(state.Failed))
	for _, f := range state.Failed {
		failed[f.ID] = true
	}

	for len(b.candidates) < limit {
		c, err := withRetry(ctx, o, "list", func() (core.Candidate, error) {
			return it.Next(ctx)
		})
		if errors.Is(err, io.EOF) {
			return b, true, nil
		}
		if err != nil {
			return b, false, err
		}
		b.candidates = append(b.candidates, c)

		if failed[c.ID] {
			continue
		}

		logged, err := o.results.Has(ctx, state.SessionID, c.ID)
		if err != nil {
			return b, false, fmt.Errorf("failed to check result log: %w", err)
		}
		if logged {
			r, err := o.results.Get(ctx, state.SessionID, c.ID)
			if err != nil {
				return b, false, fmt.Errorf("failed to read logged result: %w", err)
			}
			if r.Batch > state.BatchesCommitted {
				b.logged = append(b.logged, r)
			}
			continue
		}

		if state.Mode == core.ScanIncremental && core.HasUserLabels(c.Labels) {
			b.skipped++
			continue
		}
		b.pending = append(b.pending, c)
	}
	return b, false, nil
}

func (o *Orchestrator) handler(
	mail core.MailService,
	sessionID string,
	mode core.ScanMode,
	classifier Classifier,
) worker.Handler[core.Candidate, processed] {
	return func(ctx context.Context, c core.Candidate) (processed, error) {
		msg, err := mail.FetchMessage(ctx, c.ID)
		if err != nil {
			return processed{}, err
		}
		if mode == core.ScanIncremental && core.HasUserLabels(msg.Labels) {
			o.logger.Debug("Skipping organized message", zap.String("message_id", c.ID))
			return processed{skipped: true}, nil
		}

		result, err := classifier.Classify(ctx, sessionID, msg)
		if err != nil {
			return processed{}, err
		}
		return processed{result: result}, nil
	}
}

// commit appends the batch results and checkpoints the state, then labels
// the accepted messages. A batch hit by a fatal error is not committed at
// all. The checkpoint carries the labels still to apply, so a message is
// only ever labelled once its result is logged and counted.
func (o *Orchestrator) commit(
	ctx context.Context,
	mail core.MailService,
	pool *worker.Pool,
	applyLabels bool,
	state *State,
	b batch,
	outcomes []worker.Outcome[core.Candidate, processed],
) error {
	for _, out := range outcomes {
		if out.Status == worker.StatusFailed && core.IsFatal(out.Err) {
			_, err := o.fail(state, out.Err)
			return err
		}
	}
	for _, out := range outcomes {
		if out.Status == worker.StatusAborted {
			_, err := o.fail(state, fmt.Errorf("batch aborted at %s: %w", out.Input.ID, out.Err))
			return err
		}
	}

	ordinal := state.BatchesCommitted + 1
	var results []*core.ClassificationResult
	for _, out := range outcomes {
		if out.Status == worker.StatusDone && !out.Output.skipped {
			out.Output.result.Batch = ordinal
			results = append(results, out.Output.result)
		}
	}
	if len(results) > 0 {
		if err := o.results.Append(context.WithoutCancel(ctx), results); err != nil {
			_, err = o.fail(state, fmt.Errorf("failed to append results: %w", err))
			return err
		}
	}

	now := o.now()
	for _, r := range b.logged {
		state.Record(r)
	}
	state.SkippedCount += b.skipped
	for _, out := range outcomes {
		switch {
		case out.Status == worker.StatusDone && out.Output.skipped:
			state.SkippedCount++
		case out.Status == worker.StatusDone:
			state.Record(out.Output.result)
		default:
			o.logger.Warn("Message failed and skipped",
				zap.String("message_id", out.Input.ID),
				zap.Int("attempts", out.Attempts),
				zap.Error(out.Err))
			state.Failed = append(state.Failed, FailedMessage{
				ID:       out.Input.ID,
				Reason:   out.Err.Error(),
				Attempts: out.Attempts,
				At:       now,
			})
		}
	}

	if applyLabels {
		for _, r := range append(b.logged, results...) {
			if !r.Uncertain {
				state.PendingLabels = append(state.PendingLabels, PendingLabel{ID: r.MessageID, Category: r.Category})
			}
		}
	}

	last := b.candidates[len(b.candidates)-1]
	state.Cursor = last.Cursor
	state.LastProcessedID = last.ID
	state.BatchesCommitted++
	if err := state.Transition(StatusCheckpointed, now); err != nil {
		return err
	}
	if err := o.store.Save(state); err != nil {
		return fmt.Errorf("failed to checkpoint scan state: %w", err)
	}

	o.logger.Info("Committed batch",
		zap.String("session_id", state.SessionID),
		zap.Int("batch", state.BatchesCommitted),
		zap.Int("size", len(b.candidates)),
		zap.Int("processed", state.ProcessedCount),
		zap.Int("skipped", state.SkippedCount),
		zap.Int("failed", len(state.Failed)))

	return o.label(ctx, mail, pool, state)
}

// label applies the pending labels of the state. A label that cannot be
// applied leaves its message unlabelled with the result still logged. A
// fatal error fails the session with the labels still pending, so a
// resumed session applies them first.
func (o *Orchestrator) label(ctx context.Context, mail core.MailService, pool *worker.Pool, state *State) error {
	if len(state.PendingLabels) == 0 {
		return nil
	}

	outcomes := worker.Run(context.WithoutCancel(ctx), pool, state.PendingLabels,
		func(ctx context.Context, l PendingLabel) (struct{}, error) {
			return struct{}{}, mail.ApplyCategory(ctx, l.ID, l.Category)
		})
	for _, out := range outcomes {
		if out.Status == worker.StatusFailed && core.IsFatal(out.Err) {
			_, err := o.fail(state, out.Err)
			return err
		}
	}
	for _, out := range outcomes {
		if out.Status == worker.StatusDone {
			continue
		}
		o.logger.Warn("Failed to apply label",
			zap.String("message_id", out.Input.ID),
			zap.String("category", string(out.Input.Category)),
			zap.Int("attempts", out.Attempts),
			zap.Error(out.Err))
		state.LabelFailures++
	}
	// persisted with the next checkpoint; relabelling after a crash is harmless
	state.PendingLabels = nil
	return nil
}

func (o *Orchestrator) complete(state *State) (*State, error) {
	if err := state.Transition(StatusComplete, o.now()); err != nil {
		return state, err
	}
	if err := o.store.Save(state); err != nil {
		return state, err
	}
	o.logger.Info("Scan complete",
		zap.String("session_id", state.SessionID),
		zap.Int("processed", state.ProcessedCount),
		zap.Int("uncertain", state.UncertainCount),
		zap.Int("skipped", state.SkippedCount),
		zap.Int("failed", len(state.Failed)))
	return state, nil
}

func (o *Orchestrator) pause(state *State) (*State, error) {
	if err := state.Transition(StatusPaused, o.now()); err != nil {
		return state, err
	}
	if err := o.store.Save(state); err != nil {
		return state, err
	}
	o.logger.Info("Scan paused",
		zap.String("session_id", state.SessionID),
		zap.String("cursor", state.Cursor),
		zap.Int("processed", state.ProcessedCount))
	return state, nil
}

func (o *Orchestrator) fail(state *State, cause error) (*State, error) {
	o.logger.Error("Scan failed",
		zap.String("session_id", state.SessionID),
		zap.Error(cause))
	state.LastError = cause.Error()
	if err := state.Transition(StatusFailed, o.now()); err != nil {
		return state, errors.Join(cause, err)
	}
	if err := o.store.Save(state); err != nil {
		return state, errors.Join(cause, err)
	}
	return state, fmt.Errorf("scan %s failed: %w", state.SessionID, cause)
}

// stop ends the session on an enumeration error; cancellation pauses it
func (o *Orchestrator) stop(ctx context.Context, state *State, err error) (*State, error) {
	if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return o.pause(state)
	}
	return o.fail(state, err)
}

// withRetry retries a retryable boundary call with the orchestrator's backoff policy
func withRetry[T any](ctx context.Context, o *Orchestrator, op string, call func() (T, error)) (T, error) {
	for attempt := 1; ; attempt++ {
		v, err := call()
		if err == nil || !core.IsRetryable(err) || attempt > o.retry.MaxRetries {
			return v, err
		}

		delay := o.retry.Backoff(attempt)
		o.logger.Warn("Retrying mail service call",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			var zero T
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
}
