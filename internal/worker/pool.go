// Package worker runs message processing on a bounded pool of workers.
package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mikey/mail-triage/internal/core"
	"go.uber.org/zap"
)

// Status is the final state of one item
type Status int

const (
	// StatusDone means the handler succeeded
	StatusDone Status = iota
	// StatusFailed means the handler failed permanently or ran out of retries
	StatusFailed
	// StatusAborted means the item was not finished because the run was aborted
	StatusAborted
)

func (s Status) String() string {
	switch s {
	case StatusDone:
		return "done"
	case StatusFailed:
		return "failed"
	case StatusAborted:
		return "aborted"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Outcome is the result of processing one item
type Outcome[In, Out any] struct {
	Input    In
	Output   Out
	Err      error
	Attempts int
	Status   Status
}

// Handler processes one item
type Handler[In, Out any] func(ctx context.Context, in In) (Out, error)

// Pool is a bounded set of workers with a retry policy.
// Retryable errors requeue the item after a backoff delay; a fatal error
// aborts the remaining items of the run.
type Pool struct {
	size        int
	retry       RetryPolicy
	logger      *zap.Logger
	isRetryable func(error) bool
	isFatal     func(error) bool
}

// NewPool creates a pool of size workers using the boundary error taxonomy
func NewPool(size int, retry RetryPolicy, logger *zap.Logger) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		size:        size,
		retry:       retry,
		logger:      logger,
		isRetryable: core.IsRetryable,
		isFatal:     core.IsFatal,
	}
}

// Size returns the number of workers
func (p *Pool) Size() int {
	return p.size
}

type job struct {
	index   int
	attempt int
}

// Run processes items with handler and returns one outcome per item, in
// input order. It returns once every item has a final outcome.
func Run[In, Out any](ctx context.Context, p *Pool, items []In, handler Handler[In, Out]) []Outcome[In, Out] {
	outcomes := make([]Outcome[In, Out], len(items))
	if len(items) == 0 {
		return outcomes
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	queue := make(chan job, len(items))
	var pending sync.WaitGroup
	var aborted atomic.Bool

	pending.Add(len(items))
	for i := range items {
		outcomes[i].Input = items[i]
		queue <- job{index: i, attempt: 1}
	}

	finish := func(j job, out Out, err error, status Status) {
		o := &outcomes[j.index]
		o.Output, o.Err, o.Attempts, o.Status = out, err, j.attempt, status
		pending.Done()
	}

	var workers sync.WaitGroup
	for w := 0; w < p.size; w++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			for j := range queue {
				var zero Out
				if aborted.Load() || runCtx.Err() != nil {
					finish(j, zero, runCtx.Err(), StatusAborted)
					continue
				}

				out, err := safeHandle(runCtx, handler, items[j.index])
				switch {
				case err == nil:
					finish(j, out, nil, StatusDone)

				case p.isFatal(err):
					if aborted.CompareAndSwap(false, true) {
						p.logger.Error("Fatal error, aborting remaining work", zap.Error(err))
						cancel()
					}
					finish(j, zero, err, StatusFailed)

				case aborted.Load() || runCtx.Err() != nil:
					finish(j, zero, err, StatusAborted)

				case p.isRetryable(err) && j.attempt <= p.retry.MaxRetries:
					delay := p.retry.Backoff(j.attempt)
					p.logger.Warn("Retrying after transient error",
						zap.Int("attempt", j.attempt),
						zap.Duration("backoff", delay),
						zap.Error(err))
					next := job{index: j.index, attempt: j.attempt + 1}
					time.AfterFunc(delay, func() { queue <- next })

				default:
					finish(j, zero, err, StatusFailed)
				}
			}
		}()
	}

	pending.Wait()
	close(queue)
	workers.Wait()
	return outcomes
}

func safeHandle[In, Out any](ctx context.Context, h Handler[In, Out], in In) (out Out, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker panicked: %v", r)
		}
	}()
	return h(ctx, in)
}
