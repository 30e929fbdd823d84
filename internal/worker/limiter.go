package worker

import (
	"context"
	"sync/atomic"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket gating calls to the mail service. Callers block
// in Wait until a token is available.
type Limiter struct {
	limiter *rate.Limiter
	issued  atomic.Int64
}

// NewLimiter creates a limiter refilling perSecond tokens per second with the
// given burst. A non-positive rate disables limiting.
func NewLimiter(perSecond float64, burst int) *Limiter {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiter{limiter: rate.NewLimiter(limit, burst)}
}

// Wait blocks until a token is issued or ctx is done
func (l *Limiter) Wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return err
	}
	l.issued.Add(1)
	return nil
}

// Issued returns the number of tokens handed out so far
func (l *Limiter) Issued() int64 {
	return l.issued.Load()
}
