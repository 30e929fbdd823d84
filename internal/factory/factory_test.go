package factory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mikey/mail-triage/internal/config"
	"github.com/mikey/mail-triage/internal/core"
	"github.com/mikey/mail-triage/internal/ensemble"
	"github.com/mikey/mail-triage/internal/features"
	"github.com/mikey/mail-triage/internal/review"
	"github.com/mikey/mail-triage/internal/rules"
	"github.com/mikey/mail-triage/internal/training"
	"github.com/mikey/mail-triage/internal/utils"
	"go.uber.org/zap"
)

func newConfig(t *testing.T, overrides map[string]interface{}) *config.Config {
	t.Helper()
	cfg := config.NewFromViper(config.NewEmptyViper())
	cfg.Set("rules.learned_dir", t.TempDir())
	for k, v := range overrides {
		cfg.Set(k, v)
	}
	return cfg
}

func TestTrainingOptions(t *testing.T) {
	cfg := newConfig(t, map[string]interface{}{
		"training.max_features":         100,
		"training.epochs":               5,
		"training.seed":                 7,
		"training.regression_tolerance": 0.02,
		"review.learn_domain_min":       4,
	})
	opts := TrainingOptions(cfg)
	if opts.Train.Vectorizer.MaxFeatures != 100 || opts.Train.Logistic.Epochs != 5 {
		t.Errorf("train options not mapped: %+v", opts.Train)
	}
	if opts.Seed != 7 || opts.Train.Logistic.Seed != 7 {
		t.Errorf("seed not mapped: %+v", opts)
	}
	if opts.RegressionTolerance != 0.02 || opts.LearnDomainMin != 4 || opts.RulesDir != cfg.GetRules().LearnedDir {
		t.Errorf("unexpected options %+v", opts)
	}
	if opts.Train.Vectorizer.NGramMax != 2 {
		t.Errorf("n-gram range changed: %d", opts.Train.Vectorizer.NGramMax)
	}
}

func TestReviewOptions(t *testing.T) {
	opts, err := ReviewOptions(newConfig(t, map[string]interface{}{
		"review.algorithm":     "density",
		"review.cluster_count": 8,
	}))
	if err != nil {
		t.Fatal(err)
	}
	if opts.Algorithm != review.AlgorithmDensity || opts.ClusterCount != 8 || opts.NInit != 10 {
		t.Errorf("unexpected options %+v", opts)
	}

	if _, err := ReviewOptions(newConfig(t, map[string]interface{}{"review.algorithm": "spectral"})); err == nil {
		t.Error("expected error for an unknown algorithm")
	}
}

func TestRetryPolicy(t *testing.T) {
	p := RetryPolicy(config.WorkersConfig{MaxRetries: 2, BackoffBase: time.Second, BackoffMax: 5 * time.Second})
	if p.MaxRetries != 2 || p.BaseDelay != time.Second || p.MaxDelay != 5*time.Second {
		t.Errorf("unexpected policy %+v", p)
	}
}

func TestLoadRuleTable(t *testing.T) {
	logger := zap.NewNop()
	taxonomy, err := core.NewTaxonomy(core.TaxonomyConsolidated)
	if err != nil {
		t.Fatal(err)
	}
	builtin := rules.DefaultVersion + "-consolidated"

	cfg := newConfig(t, nil)
	snapshots := training.NewSnapshotStore(t.TempDir())
	table, err := LoadRuleTable(cfg, taxonomy, snapshots, logger)
	if err != nil {
		t.Fatalf("LoadRuleTable: %v", err)
	}
	if table.Version != builtin {
		t.Errorf("version = %q, want the built-in table", table.Version)
	}

	learned := table.Clone()
	learned.Version = builtin + "+learned-1"
	if _, err := rules.Save(learned, cfg.GetRules().LearnedDir); err != nil {
		t.Fatal(err)
	}
	// A saved table is only used once a snapshot trained with it is active
	orphan := learned.Clone()
	orphan.Version = builtin + "+learned-2"
	if _, err := rules.Save(orphan, cfg.GetRules().LearnedDir); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		snapshot *ensemble.Snapshot
		want     string
	}{
		{"built-in snapshot", &ensemble.Snapshot{Version: "snap-1", Taxonomy: core.TaxonomyConsolidated, RuleTableVersion: builtin}, builtin},
		{"learned snapshot", &ensemble.Snapshot{Version: "snap-2", Taxonomy: core.TaxonomyConsolidated, RuleTableVersion: learned.Version}, learned.Version},
		{"missing table", &ensemble.Snapshot{Version: "snap-3", Taxonomy: core.TaxonomyConsolidated, RuleTableVersion: builtin + "+learned-9"}, builtin},
		{"other taxonomy", &ensemble.Snapshot{Version: "snap-4", Taxonomy: core.TaxonomyExtended, RuleTableVersion: "builtin-1-extended"}, builtin},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := snapshots.Promote(tt.snapshot); err != nil {
				t.Fatal(err)
			}
			table, err := LoadRuleTable(cfg, taxonomy, snapshots, logger)
			if err != nil {
				t.Fatalf("LoadRuleTable: %v", err)
			}
			if table.Version != tt.want {
				t.Errorf("version = %q, want %q", table.Version, tt.want)
			}
		})
	}

	cfg.Set("rules.path", cfg.GetRules().LearnedDir+"/missing.yaml")
	if _, err := LoadRuleTable(cfg, taxonomy, snapshots, logger); err == nil {
		t.Error("expected error for a missing explicit rule table")
	}
}

type fakeSnapshots struct {
	snap *ensemble.Snapshot
	err  error
}

func (f *fakeSnapshots) EnsureSnapshot(context.Context) (*ensemble.Snapshot, error) {
	return f.snap, f.err
}

type fakeCompleter struct{ reply string }

func (f *fakeCompleter) Name() string { return "fake" }

func (f *fakeCompleter) Complete(context.Context, string, string) (string, error) {
	return f.reply, nil
}

type fakeCompleters struct {
	completer core.TextCompleter
	calls     int
}

func (f *fakeCompleters) CreateCompleter(context.Context) (core.TextCompleter, error) {
	f.calls++
	return f.completer, nil
}

func newClassifierFactory(t *testing.T, cfg *config.Config, snapshots SnapshotSource, completers CompleterSource) *ClassifierFactory {
	t.Helper()
	logger := zap.NewNop()
	taxonomy, err := NewTaxonomy(cfg)
	if err != nil {
		t.Fatal(err)
	}
	table, err := LoadRuleTable(cfg, taxonomy, training.NewSnapshotStore(t.TempDir()), logger)
	if err != nil {
		t.Fatal(err)
	}
	registry, err := rules.NewRegistry(table, taxonomy, logger)
	if err != nil {
		t.Fatal(err)
	}
	extractor := features.NewExtractor(utils.NewTextProcessor(logger), 0, time.UTC)
	return NewClassifierFactory(cfg, logger, taxonomy, extractor, registry, NewArbiter(cfg),
		snapshots, ensemble.NewHashingEmbedder(16), completers)
}

func TestCreateClassifierWithLLMMember(t *testing.T) {
	cfg := newConfig(t, map[string]interface{}{"classifier.llm.enabled": true})
	reply := fmt.Sprintf(`{"category": %q, "confidence": 0.9}`, core.CategoryFinanceBills)
	completers := &fakeCompleters{completer: &fakeCompleter{reply: reply}}
	f := newClassifierFactory(t, cfg, &fakeSnapshots{snap: &ensemble.Snapshot{Version: "snap-1"}}, completers)

	svc, err := f.CreateClassifier(context.Background())
	if err != nil {
		t.Fatalf("CreateClassifier: %v", err)
	}
	if completers.calls != 1 {
		t.Errorf("completer created %d times, want 1", completers.calls)
	}

	result, err := svc.Classify(context.Background(), "s1", &core.Message{
		ID:      "m1",
		Sender:  "alerts@hdfcbank.com",
		Subject: "Your credit card statement",
	})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if result.SnapshotVersion != "snap-1" {
		t.Errorf("snapshot version = %q", result.SnapshotVersion)
	}
	if result.RuleTableVersion != rules.DefaultVersion+"-consolidated" {
		t.Errorf("rule table version = %q", result.RuleTableVersion)
	}
	var llmVoted bool
	for _, v := range result.Votes {
		if v.ModelID == ensemble.ModelLLM {
			llmVoted = true
		}
	}
	if !llmVoted {
		t.Errorf("no LLM vote in %+v", result.Votes)
	}
}

func TestCreateClassifierWithoutLLM(t *testing.T) {
	completers := &fakeCompleters{}
	f := newClassifierFactory(t, newConfig(t, nil), &fakeSnapshots{snap: &ensemble.Snapshot{Version: "snap-1"}}, completers)
	if _, err := f.CreateClassifier(context.Background()); err != nil {
		t.Fatal(err)
	}
	if completers.calls != 0 {
		t.Error("completer created although the LLM member is disabled")
	}
}

func TestCreateClassifierSnapshotError(t *testing.T) {
	boom := errors.New("boom")
	f := newClassifierFactory(t, newConfig(t, nil), &fakeSnapshots{err: boom}, &fakeCompleters{})
	if _, err := f.CreateClassifier(context.Background()); !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped boom", err)
	}
}

func TestProviderFactoryRejectsUnknownProviders(t *testing.T) {
	cfg := newConfig(t, map[string]interface{}{"embedder.provider": "word2vec", "llm.provider": "eliza"})
	f := NewProviderFactory(cfg, zap.NewNop(), utils.NewTextProcessor(zap.NewNop()))
	if _, err := f.CreateEmbedder(context.Background()); err == nil {
		t.Error("expected error for an unknown embedder")
	}
	if _, err := f.CreateCompleter(context.Background()); err == nil {
		t.Error("expected error for an unknown LLM provider")
	}

	cfg.Set("embedder.provider", "hashing")
	e, err := f.CreateEmbedder(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if e.Dimension() != 384 {
		t.Errorf("dimension = %d, want 384", e.Dimension())
	}

	cfg.Set("llm.provider", "openai")
	if _, err := f.CreateCompleter(context.Background()); err == nil {
		t.Error("expected error for openai without an API key")
	}
}

func TestStoreFactory(t *testing.T) {
	cfg := newConfig(t, map[string]interface{}{"storage.type": "memory"})
	s, err := NewStoreFactory(cfg, zap.NewNop()).CreateStore()
	if err != nil {
		t.Fatal(err)
	}
	s.Stop()

	cfg.Set("storage.type", "sqlite")
	cfg.Set("storage.sqlite_path", t.TempDir()+"/results.db")
	s, err = NewStoreFactory(cfg, zap.NewNop()).CreateStore()
	if err != nil {
		t.Fatal(err)
	}
	s.Stop()

	cfg.Set("storage.type", "redis")
	if _, err := NewStoreFactory(cfg, zap.NewNop()).CreateStore(); err == nil {
		t.Error("expected error for an unsupported storage type")
	}
}
