package review

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mikey/mail-triage/internal/core"
	"github.com/mikey/mail-triage/internal/training"
	"go.uber.org/zap"
)

type fakeResults struct {
	uncertain []*core.ClassificationResult
	low       []*core.ClassificationResult
}

func (f *fakeResults) Append(context.Context, []*core.ClassificationResult) error { return nil }
func (f *fakeResults) Has(context.Context, string, string) (bool, error)       { return false, nil }
func (f *fakeResults) Get(context.Context, string, string) (*core.ClassificationResult, error) {
	return nil, core.ErrNotFound
}
func (f *fakeResults) Uncertain(context.Context, string) ([]*core.ClassificationResult, error) {
	return f.uncertain, nil
}
func (f *fakeResults) LowConfidence(_ context.Context, _ string, _ float64, limit int) ([]*core.ClassificationResult, error) {
	return f.low[:min(limit, len(f.low))], nil
}
func (f *fakeResults) Cleanup(context.Context, time.Time) error { return nil }

type fakeLog struct {
	corrections   []*core.Correction
	confirmations []*core.Confirmation
	fail          error
}

func (f *fakeLog) AppendCorrections(_ context.Context, c []*core.Correction) error {
	if f.fail != nil {
		return f.fail
	}
	f.corrections = append(f.corrections, c...)
	return nil
}

func (f *fakeLog) AppendConfirmations(_ context.Context, c []*core.Confirmation) error {
	if f.fail != nil {
		return f.fail
	}
	f.confirmations = append(f.confirmations, c...)
	return nil
}

func (f *fakeLog) Corrections(context.Context) ([]*core.Correction, error) { return f.corrections, nil }
func (f *fakeLog) Confirmations(context.Context) ([]*core.Confirmation, error) {
	return f.confirmations, nil
}

type fakeRetrainer struct{ calls int }

func (f *fakeRetrainer) Retrain(context.Context) (*training.Report, error) {
	f.calls++
	return &training.Report{Version: fmt.Sprintf("v%d", f.calls), Promoted: true}, nil
}

type scriptedFrontEnd struct {
	responses []Response
	prompts   []Prompt
}

func (s *scriptedFrontEnd) Present(_ context.Context, p Prompt) (Response, error) {
	s.prompts = append(s.prompts, p)
	if len(s.responses) == 0 {
		return Response{}, errors.New("no scripted response")
	}
	r := s.responses[0]
	s.responses = s.responses[1:]
	return r, nil
}

type group struct {
	prefix     string
	sender     string
	subject    string
	snippet    string
	extra      []string
	category   core.Category
	confidence float64
}

// threeGroups returns 12 uncertain results forming three obvious groups.
// Mean confidence orders them bank, shop, friends.
func threeGroups() ([]*core.ClassificationResult, map[string]string) {
	groups := []group{
		{"shop", "orders@shop.example", "order shipped package tracking", "package courier delivery tomorrow", []string{"shoes", "jacket", "lamp", "books"}, core.CategoryPurchasesReceipts, 0.35},
		{"bank", "alerts@bank.example", "statement ready account balance", "monthly statement account summary", []string{"savings", "salary", "deposit", "interest"}, core.CategoryFinanceBills, 0.20},
		{"friends", "friend@social.example", "dinner party invitation weekend", "join dinner party saturday evening", []string{"pizza", "garden", "music", "games"}, core.CategoryPersonalSocial, 0.45},
	}

	var results []*core.ClassificationResult
	membership := map[string]string{}
	for _, g := range groups {
		for i, word := range g.extra {
			id := fmt.Sprintf("%s-%d", g.prefix, i)
			category := g.category
			if i == 3 {
				category = core.CategoryPromotionsMarketing
			}
			results = append(results, &core.ClassificationResult{
				SessionID:  "scan-1",
				MessageID:  id,
				Category:   category,
				Confidence: g.confidence + float64(i)*0.01,
				Uncertain:  true,
				Summary: core.MessageSummary{
					Sender:  g.sender,
					Subject: g.subject + " " + word,
					Snippet: g.snippet,
				},
			})
			membership[id] = g.prefix
		}
	}
	return results, membership
}

func newTestReviewer(results core.ResultLog, log core.CorrectionLog, retrainer Retrainer, opts Options) *Reviewer {
	tax, _ := core.NewTaxonomy(core.TaxonomyConsolidated)
	r := NewReviewer(results, log, retrainer, tax, opts, zap.NewNop())
	n := 0
	r.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return r
}

func TestReviewSessionAppliesDecisionsPerCluster(t *testing.T) {
	candidates, membership := threeGroups()
	log := &fakeLog{}
	retrainer := &fakeRetrainer{}
	opts := DefaultOptions()
	opts.ClusterCount = 3
	r := newTestReviewer(&fakeResults{uncertain: candidates}, log, retrainer, opts)

	fe := &scriptedFrontEnd{responses: []Response{
		{Action: ActionConfirm},
		{Action: ActionCorrect, Category: core.CategoryPromotionsMarketing},
		{Action: ActionSkip},
	}}
	summary, report, err := r.Run(context.Background(), "scan-1", fe)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(fe.prompts) != 3 {
		t.Fatalf("got %d prompts, want 3", len(fe.prompts))
	}
	wantPredicted := []core.Category{core.CategoryFinanceBills, core.CategoryPurchasesReceipts, core.CategoryPersonalSocial}
	for i, p := range fe.prompts {
		if p.ClusterID != i+1 || p.Size != 4 || len(p.Samples) != 3 || p.Total != 3 {
			t.Errorf("prompt %d = %+v", i, p)
		}
		if p.Predicted != wantPredicted[i] {
			t.Errorf("prompt %d predicted %s, want %s", i, p.Predicted, wantPredicted[i])
		}
	}

	if len(log.corrections) != 4 {
		t.Fatalf("got %d corrections, want 4", len(log.corrections))
	}
	for _, c := range log.corrections {
		if membership[c.MessageID] != "shop" {
			t.Errorf("correction for %s, only the second cluster was corrected", c.MessageID)
		}
		if c.CorrectedCategory != core.CategoryPromotionsMarketing || c.ClusterID != 2 || c.ReviewSessionID != summary.ReviewSessionID {
			t.Errorf("correction = %+v", c)
		}
	}
	if len(log.confirmations) != 4 {
		t.Fatalf("got %d confirmations, want 4", len(log.confirmations))
	}
	for _, c := range log.confirmations {
		if membership[c.MessageID] != "bank" || c.Category != core.CategoryFinanceBills {
			t.Errorf("confirmation = %+v", c)
		}
	}

	if summary.Confirmed != 1 || summary.Corrected != 1 || summary.Skipped != 1 || summary.Aborted {
		t.Errorf("summary = %+v", summary)
	}
	if retrainer.calls != 1 || report == nil || !report.Promoted {
		t.Errorf("retrainer calls = %d report = %+v", retrainer.calls, report)
	}
}

func TestReviewAbortSkipsRetraining(t *testing.T) {
	candidates, _ := threeGroups()
	log := &fakeLog{}
	retrainer := &fakeRetrainer{}
	opts := DefaultOptions()
	opts.ClusterCount = 3
	r := newTestReviewer(&fakeResults{uncertain: candidates}, log, retrainer, opts)

	s, err := r.Start(context.Background(), "scan-1")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Respond(context.Background(), Response{Action: ActionCorrect, Category: core.CategorySecurityAlerts}); err != nil {
		t.Fatal(err)
	}
	if err := s.Respond(context.Background(), Response{Action: ActionAbort}); err != nil {
		t.Fatal(err)
	}
	if !s.Done() {
		t.Error("aborted session should be done")
	}
	if err := s.Respond(context.Background(), Response{Action: ActionSkip}); !errors.Is(err, ErrSessionDone) {
		t.Errorf("Respond after abort = %v", err)
	}

	report, err := r.Finish(context.Background(), s)
	if err != nil || report != nil || retrainer.calls != 0 {
		t.Errorf("Finish = %v, %v, calls %d", report, err, retrainer.calls)
	}
	// corrections given before the abort are kept
	if len(log.corrections) != 4 {
		t.Errorf("got %d corrections, want 4", len(log.corrections))
	}
}

func TestReviewNothingRecordedSkipsRetraining(t *testing.T) {
	candidates, _ := threeGroups()
	retrainer := &fakeRetrainer{}
	opts := DefaultOptions()
	opts.ClusterCount = 3
	r := newTestReviewer(&fakeResults{uncertain: candidates}, &fakeLog{}, retrainer, opts)

	fe := &scriptedFrontEnd{responses: []Response{{Action: ActionSkip}, {Action: ActionSkip}, {Action: ActionSkip}}}
	if _, _, err := r.Run(context.Background(), "scan-1", fe); err != nil {
		t.Fatal(err)
	}
	if retrainer.calls != 0 {
		t.Errorf("retrained %d times after an all-skip session", retrainer.calls)
	}
}

func TestRespondRejectsInvalidCorrection(t *testing.T) {
	candidates, _ := threeGroups()
	log := &fakeLog{}
	r := newTestReviewer(&fakeResults{uncertain: candidates}, log, nil, DefaultOptions())

	s, err := r.Start(context.Background(), "scan-1")
	if err != nil {
		t.Fatal(err)
	}
	before, _ := s.Next()
	if err := s.Respond(context.Background(), Response{Action: ActionCorrect, Category: "Spam"}); err == nil {
		t.Error("expected an error for a category outside the taxonomy")
	}
	if err := s.Respond(context.Background(), Response{Action: "maybe"}); err == nil {
		t.Error("expected an error for an unknown action")
	}

	log.fail = errors.New("disk full")
	if err := s.Respond(context.Background(), Response{Action: ActionConfirm}); err == nil {
		t.Error("expected the log failure to surface")
	}
	after, _ := s.Next()
	if before.ClusterID != after.ClusterID {
		t.Error("a rejected response must not advance the session")
	}
}

func TestCandidatesIncludeLowConfidence(t *testing.T) {
	uncertain := []*core.ClassificationResult{{MessageID: "a", Uncertain: true}, {MessageID: "b", Uncertain: true}}
	low := []*core.ClassificationResult{{MessageID: "b"}, {MessageID: "c"}, {MessageID: "d"}}
	opts := DefaultOptions()
	opts.LowConfidenceLimit = 2
	r := newTestReviewer(&fakeResults{uncertain: uncertain, low: low}, &fakeLog{}, nil, opts)

	got, err := r.Candidates(context.Background(), "scan-1")
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, res := range got {
		ids = append(ids, res.MessageID)
	}
	if fmt.Sprint(ids) != "[a b c]" {
		t.Errorf("candidates = %v, want [a b c]", ids)
	}
}

func TestDensityClusteringKeepsOutliersAlone(t *testing.T) {
	candidates, _ := threeGroups()
	candidates = append(candidates, &core.ClassificationResult{
		SessionID:  "scan-1",
		MessageID:  "odd",
		Category:   core.CategorySecurityAlerts,
		Confidence: 0.1,
		Summary:    core.MessageSummary{Sender: "x@elsewhere.example", Subject: "zebra quantum violin"},
	})
	opts := DefaultOptions()
	opts.Algorithm = AlgorithmDensity
	r := newTestReviewer(&fakeResults{}, &fakeLog{}, nil, opts)

	clusters := r.Cluster(candidates)
	if len(clusters) != 4 {
		t.Fatalf("got %d clusters, want 4", len(clusters))
	}
	first := clusters[0]
	if first.ID != 1 || len(first.Members) != 1 || first.Members[0].MessageID != "odd" {
		t.Errorf("lowest confidence cluster = %+v", first)
	}
	for i := 1; i < len(clusters); i++ {
		if len(clusters[i].Members) != 4 {
			t.Errorf("cluster %d has %d members", clusters[i].ID, len(clusters[i].Members))
		}
		if clusters[i].MeanConfidence < clusters[i-1].MeanConfidence {
			t.Error("clusters must be ordered by ascending mean confidence")
		}
	}
}

func TestClusterEdgeCases(t *testing.T) {
	r := newTestReviewer(&fakeResults{}, &fakeLog{}, nil, DefaultOptions())
	if got := r.Cluster(nil); got != nil {
		t.Errorf("Cluster(nil) = %v", got)
	}

	single := []*core.ClassificationResult{{MessageID: "a", Category: core.CategoryFinanceBills, Confidence: 0.4}}
	got := r.Cluster(single)
	if len(got) != 1 || got[0].ID != 1 || got[0].Predicted != core.CategoryFinanceBills {
		t.Errorf("single result clusters = %+v", got)
	}
}

func TestKMeansSeparatesGroups(t *testing.T) {
	points := [][]float64{
		{1, 0, 0}, {0.9, 0.1, 0}, {0.95, 0, 0.05},
		{0, 1, 0}, {0.1, 0.9, 0}, {0, 0.95, 0.05},
		{0, 0, 1}, {0.05, 0, 0.95}, {0, 0.1, 0.9},
	}
	labels := KMeans(points, 3, 10, 42)
	for g := 0; g < 3; g++ {
		base := labels[g*3]
		for i := 1; i < 3; i++ {
			if labels[g*3+i] != base {
				t.Errorf("points of group %d split: %v", g, labels)
			}
		}
	}
	if labels[0] == labels[3] || labels[3] == labels[6] || labels[0] == labels[6] {
		t.Errorf("groups merged: %v", labels)
	}

	again := KMeans(points, 3, 10, 42)
	if fmt.Sprint(again) != fmt.Sprint(labels) {
		t.Error("k-means is not deterministic for a fixed seed")
	}
	if got := KMeans(points[:2], 5, 10, 42); len(got) != 2 {
		t.Errorf("k larger than n: %v", got)
	}
}

func TestParseAlgorithm(t *testing.T) {
	if _, err := ParseAlgorithm("kmeans"); err != nil {
		t.Error(err)
	}
	if _, err := ParseAlgorithm("hierarchical"); err == nil {
		t.Error("expected error")
	}
}
