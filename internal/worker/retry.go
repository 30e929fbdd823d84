package worker

import (
	"math/rand/v2"
	"time"
)

// RetryPolicy bounds the retries of one message
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	// Jitter returns a random extra delay up to max; nil uses math/rand
	Jitter func(max time.Duration) time.Duration
}

// DefaultRetryPolicy retries three times starting at one second
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, BaseDelay: time.Second, MaxDelay: 30 * time.Second}
}

// Backoff returns the delay before retry number attempt (1-based):
// base * 2^(attempt-1) plus up to base/2 jitter, capped at MaxDelay
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := p.BaseDelay << (attempt - 1)
	if delay <= 0 || (p.MaxDelay > 0 && delay > p.MaxDelay) {
		delay = p.MaxDelay
	}

	if half := p.BaseDelay / 2; half > 0 {
		jitter := p.Jitter
		if jitter == nil {
			jitter = func(max time.Duration) time.Duration {
				return time.Duration(rand.Int64N(int64(max) + 1))
			}
		}
		delay += jitter(half)
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}
