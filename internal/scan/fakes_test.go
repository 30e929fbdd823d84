package scan

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/mikey/mail-triage/internal/core"
)

type fakeMail struct {
	mu         sync.Mutex
	order      []string
	messages   map[string]*core.Message
	fetchErrs  map[string][]error
	fetches    map[string]int
	applyErrs  map[string][]error
	applied    map[string]core.Category
	lastFilter core.ListFilter
	// shrinking makes an unlabeled-only listing drop labelled messages and
	// restart from the top, the way the Gmail listing behaves
	shrinking bool
}

// newMailbox creates n messages alternating between two categories; every
// fourth message is one the classifier is unsure about
func newMailbox(n int) *fakeMail {
	f := &fakeMail{
		messages:  make(map[string]*core.Message),
		fetchErrs: make(map[string][]error),
		fetches:   make(map[string]int),
		applyErrs: make(map[string][]error),
		applied:   make(map[string]core.Category),
	}
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("m%02d", i)
		category := core.CategoryFinanceBills
		if i%2 == 0 {
			category = core.CategoryPurchasesReceipts
		}
		body := "sure"
		if i%4 == 0 {
			body = "unsure"
		}
		f.order = append(f.order, id)
		f.messages[id] = &core.Message{
			ID:          id,
			Sender:      "sender@example.com",
			Subject:     string(category),
			BodyExcerpt: body,
			Labels:      []string{"INBOX"},
		}
	}
	return f
}

func (f *fakeMail) ListCandidates(_ context.Context, filter core.ListFilter) (core.CandidateIterator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = filter
	shrinking := f.shrinking && filter.UnlabeledOnly
	start := 0
	if filter.After != "" && !shrinking {
		var err error
		if start, err = strconv.Atoi(filter.After); err != nil {
			return nil, err
		}
	}
	return &fakeIterator{mail: f, pos: start, unlabeledOnly: shrinking}, nil
}

func (f *fakeMail) FetchMessage(_ context.Context, id string) (*core.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches[id]++
	if errs := f.fetchErrs[id]; len(errs) > 0 {
		f.fetchErrs[id] = errs[1:]
		return nil, errs[0]
	}
	msg, ok := f.messages[id]
	if !ok {
		return nil, core.NewBoundaryError(core.KindNotFound, "fetch", nil)
	}
	c := *msg
	return &c, nil
}

func (f *fakeMail) ApplyCategory(_ context.Context, id string, category core.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if errs := f.applyErrs[id]; len(errs) > 0 {
		f.applyErrs[id] = errs[1:]
		return errs[0]
	}
	f.applied[id] = category
	return nil
}

func (f *fakeMail) labelled(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.applied[id]
	return ok
}

type fakeIterator struct {
	mail          *fakeMail
	pos           int
	unlabeledOnly bool
}

func (it *fakeIterator) Next(ctx context.Context) (core.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return core.Candidate{}, err
	}
	for it.pos < len(it.mail.order) {
		id := it.mail.order[it.pos]
		it.pos++
		if it.unlabeledOnly && it.mail.labelled(id) {
			continue
		}
		return core.Candidate{ID: id, Cursor: strconv.Itoa(it.pos)}, nil
	}
	return core.Candidate{}, io.EOF
}

type fakeResults struct {
	mu        sync.Mutex
	results   map[string]*core.ClassificationResult
	appends   int
	appendErr error
}

func newFakeResults() *fakeResults {
	return &fakeResults{results: make(map[string]*core.ClassificationResult)}
}

func key(session, id string) string { return session + "/" + id }

func (r *fakeResults) Append(_ context.Context, results []*core.ClassificationResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.appendErr != nil {
		return r.appendErr
	}
	r.appends++
	for _, res := range results {
		if _, ok := r.results[key(res.SessionID, res.MessageID)]; !ok {
			r.results[key(res.SessionID, res.MessageID)] = res
		}
	}
	return nil
}

func (r *fakeResults) Has(_ context.Context, session, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.results[key(session, id)]
	return ok, nil
}

func (r *fakeResults) Get(_ context.Context, session, id string) (*core.ClassificationResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.results[key(session, id)]
	if !ok {
		return nil, core.ErrNotFound
	}
	return res, nil
}

func (r *fakeResults) Uncertain(context.Context, string) ([]*core.ClassificationResult, error) {
	return nil, nil
}

func (r *fakeResults) LowConfidence(context.Context, string, float64, int) ([]*core.ClassificationResult, error) {
	return nil, nil
}

func (r *fakeResults) Cleanup(context.Context, time.Time) error { return nil }

func (r *fakeResults) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.results)
}

type fakeClassifier struct {
	mu     sync.Mutex
	calls  map[string]int
	total  int
	onCall func(total int)
}

func newFakeClassifier() *fakeClassifier {
	return &fakeClassifier{calls: make(map[string]int)}
}

func (c *fakeClassifier) Classify(_ context.Context, sessionID string, msg *core.Message) (*core.ClassificationResult, error) {
	c.mu.Lock()
	c.calls[msg.ID]++
	c.total++
	total, hook := c.total, c.onCall
	c.mu.Unlock()
	if hook != nil {
		hook(total)
	}

	if msg.Sender == "" {
		return nil, core.ErrMalformedMessage
	}
	uncertain := msg.BodyExcerpt == "unsure"
	confidence := 0.9
	if uncertain {
		confidence = 0.3
	}
	return &core.ClassificationResult{
		SessionID:  sessionID,
		MessageID:  msg.ID,
		Category:   core.Category(msg.Subject),
		Confidence: confidence,
		Uncertain:  uncertain,
	}, nil
}

func (c *fakeClassifier) callsFor(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[id]
}

// failingStore fails the nth save to simulate a crash before a checkpoint
type failingStore struct {
	*FileStateStore
	failAt int
	saves  int
}

func (s *failingStore) Save(state *State) error {
	s.saves++
	if s.saves == s.failAt {
		return fmt.Errorf("disk gone")
	}
	return s.FileStateStore.Save(state)
}
