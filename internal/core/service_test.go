package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"
)

type stubExtractor struct{ err error }

func (s stubExtractor) Extract(msg *Message) (*Features, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &Features{Summary: MessageSummary{Sender: msg.Sender, Subject: msg.Subject}}, nil
}

type stubRules struct{ result *RuleResult }

func (s stubRules) Score(*Features) *RuleResult { return s.result }
func (s stubRules) Version() string            { return "rules-v1" }

type stubPredictor struct {
	votes   []Vote
	dropped []DroppedVote
}

func (s stubPredictor) Predict(context.Context, *Features) ([]Vote, []DroppedVote) {
	return s.votes, s.dropped
}
func (s stubPredictor) Version() string { return "snap-v1" }

// recordingArbiter picks the first vote and remembers what it was given
type recordingArbiter struct {
	got []Vote
}

func (a *recordingArbiter) Decide(rule *RuleResult, votes []Vote) Decision {
	a.got = votes
	if best, ok := rule.Best(); ok {
		return Decision{Category: best.Category, Confidence: best.Score, Method: MethodRule, Votes: votes}
	}
	if len(votes) == 0 {
		return Decision{Method: MethodNone, Uncertain: true}
	}
	return Decision{Category: votes[0].Category, Confidence: votes[0].Confidence, Method: MethodML, Votes: votes}
}

func newService(t *testing.T, rules *RuleResult, predictor stubPredictor, arb *recordingArbiter) *ClassificationService {
	t.Helper()
	taxonomy, err := NewTaxonomy(TaxonomyConsolidated)
	if err != nil {
		t.Fatal(err)
	}
	return NewClassificationService(stubExtractor{}, stubRules{result: rules}, predictor, arb, taxonomy, zap.NewNop())
}

func TestClassifyDropsVotesOutsideTaxonomy(t *testing.T) {
	arb := &recordingArbiter{}
	predictor := stubPredictor{
		votes: []Vote{
			{ModelID: "naive_bayes", Category: "Spam", Confidence: 0.99},
			{ModelID: "logistic", Category: CategoryFinanceBills, Confidence: 0.8},
		},
		dropped: []DroppedVote{{ModelID: "semantic", Reason: "embedder unavailable"}},
	}
	svc := newService(t, nil, predictor, arb)

	result, err := svc.Classify(context.Background(), "s1", &Message{ID: "m1", Sender: "a@b.com"})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(arb.got) != 1 || arb.got[0].ModelID != "logistic" {
		t.Errorf("arbiter saw %+v, want only the logistic vote", arb.got)
	}
	if len(result.Dropped) != 2 {
		t.Fatalf("dropped = %+v, want semantic and naive_bayes", result.Dropped)
	}
	if result.Dropped[1].ModelID != "naive_bayes" {
		t.Errorf("dropped[1] = %+v", result.Dropped[1])
	}
	if result.Category != CategoryFinanceBills || result.Method != MethodML {
		t.Errorf("result = %s via %s", result.Category, result.Method)
	}
	if result.SessionID != "s1" || result.RuleTableVersion != "rules-v1" || result.SnapshotVersion != "snap-v1" {
		t.Errorf("result metadata = %+v", result)
	}
	if result.ClassifiedAt.IsZero() {
		t.Error("ClassifiedAt not set")
	}
}

func TestClassifyWithoutVotesFallsBack(t *testing.T) {
	svc := newService(t, nil, stubPredictor{}, &recordingArbiter{})
	result, err := svc.Classify(context.Background(), "s1", &Message{ID: "m1", Sender: "a@b.com"})
	if err != nil {
		t.Fatal(err)
	}
	if result.Category != CategoryPersonalSocial || result.Confidence != 0 || !result.Uncertain || result.Method != MethodNone {
		t.Errorf("result = %+v, want the uncertain fallback", result)
	}
}

func TestClassifyRuleOnly(t *testing.T) {
	rules := &RuleResult{TableVersion: "rules-v1", Scores: []RuleScore{{Category: CategorySecurityAlerts, Score: 0.9}}}
	svc := newService(t, rules, stubPredictor{}, &recordingArbiter{})
	result, err := svc.Classify(context.Background(), "s1", &Message{ID: "m1", Sender: "a@b.com"})
	if err != nil {
		t.Fatal(err)
	}
	if result.Category != CategorySecurityAlerts || result.Method != MethodRule {
		t.Errorf("result = %+v", result)
	}
}

func TestClassifyMalformedMessage(t *testing.T) {
	taxonomy, _ := NewTaxonomy(TaxonomyConsolidated)
	extractErr := fmt.Errorf("missing message id: %w", ErrMalformedMessage)
	svc := NewClassificationService(stubExtractor{err: extractErr}, stubRules{}, stubPredictor{}, &recordingArbiter{}, taxonomy, zap.NewNop())
	if _, err := svc.Classify(context.Background(), "s1", &Message{}); !errors.Is(err, ErrMalformedMessage) {
		t.Errorf("err = %v, want ErrMalformedMessage", err)
	}
}

func TestBoundaryErrors(t *testing.T) {
	tests := []struct {
		kind      BoundaryErrorKind
		sentinel  error
		retryable bool
		fatal     bool
	}{
		{KindQuotaExceeded, ErrQuotaExceeded, true, false},
		{KindTransientNetwork, ErrTransientNetwork, true, false},
		{KindAuthRevoked, ErrAuthRevoked, false, true},
		{KindNotFound, ErrNotFound, false, false},
	}
	for _, tt := range tests {
		err := fmt.Errorf("fetch m1: %w", NewBoundaryError(tt.kind, "fetch", errors.New("boom")))
		if !errors.Is(err, tt.sentinel) {
			t.Errorf("%s: errors.Is(%v) = false", tt.kind, tt.sentinel)
		}
		if IsRetryable(err) != tt.retryable || IsFatal(err) != tt.fatal {
			t.Errorf("%s: retryable=%t fatal=%t", tt.kind, IsRetryable(err), IsFatal(err))
		}
		var be *BoundaryError
		if !errors.As(err, &be) || be.Op != "fetch" {
			t.Errorf("%s: errors.As failed", tt.kind)
		}
	}
	if IsRetryable(errors.New("plain")) || IsFatal(nil) {
		t.Error("plain errors are neither retryable nor fatal")
	}
}

func TestTaxonomyLabels(t *testing.T) {
	taxonomy, err := NewTaxonomy(TaxonomyExtended)
	if err != nil {
		t.Fatal(err)
	}
	if len(taxonomy.Categories()) != 10 || taxonomy.Fallback() != CategoryPersonalWork {
		t.Errorf("extended taxonomy = %v, fallback %s", taxonomy.Categories(), taxonomy.Fallback())
	}

	label := taxonomy.LabelName(CategoryInvestments)
	if label != "📈 Investments & Trading" {
		t.Errorf("LabelName = %q", label)
	}
	if c, ok := taxonomy.CategoryForLabel(label); !ok || c != CategoryInvestments {
		t.Errorf("CategoryForLabel(%q) = %s, %t", label, c, ok)
	}
	if _, err := taxonomy.ParseCategory(string(CategoryFinanceBills)); err == nil {
		t.Error("consolidated category accepted by the extended taxonomy")
	}
	if _, err := NewTaxonomy("custom"); err == nil {
		t.Error("expected error for an unknown variant")
	}
}

func TestHasUserLabels(t *testing.T) {
	tests := []struct {
		labels []string
		want   bool
	}{
		{nil, false},
		{[]string{"INBOX", "UNREAD", "CATEGORY_PROMOTIONS"}, false},
		{[]string{"INBOX", "Label_12"}, true},
	}
	for _, tt := range tests {
		if got := HasUserLabels(tt.labels); got != tt.want {
			t.Errorf("HasUserLabels(%v) = %t, want %t", tt.labels, got, tt.want)
		}
	}
}
