package worker

import (
	"context"

	"github.com/mikey/mail-triage/internal/core"
)

// bufferedIterator is implemented by iterators that page their listing.
// Buffered reports how many candidates are available without a boundary call.
type bufferedIterator interface {
	Buffered() int
}

// throttledMail gates every call to the mail service on the limiter
type throttledMail struct {
	next    core.MailService
	limiter *Limiter
}

// Throttle returns a mail service whose calls each take one limiter token.
// Listing takes a token only when the iterator has to fetch a page.
func Throttle(mail core.MailService, limiter *Limiter) core.MailService {
	if limiter == nil {
		return mail
	}
	return &throttledMail{next: mail, limiter: limiter}
}

func (t *throttledMail) ListCandidates(ctx context.Context, filter core.ListFilter) (core.CandidateIterator, error) {
	it, err := t.next.ListCandidates(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &throttledIterator{next: it, limiter: t.limiter}, nil
}

func (t *throttledMail) FetchMessage(ctx context.Context, id string) (*core.Message, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return t.next.FetchMessage(ctx, id)
}

func (t *throttledMail) ApplyCategory(ctx context.Context, id string, category core.Category) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	return t.next.ApplyCategory(ctx, id, category)
}

type throttledIterator struct {
	next    core.CandidateIterator
	limiter *Limiter
}

func (t *throttledIterator) Next(ctx context.Context) (core.Candidate, error) {
	if b, ok := t.next.(bufferedIterator); !ok || b.Buffered() == 0 {
		if err := t.limiter.Wait(ctx); err != nil {
			return core.Candidate{}, err
		}
	}
	return t.next.Next(ctx)
}
