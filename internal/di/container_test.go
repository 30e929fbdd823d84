package di

import (
	"context"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/mikey/mail-triage/internal/adapters/store"
	"github.com/mikey/mail-triage/internal/config"
	"github.com/mikey/mail-triage/internal/core"
	"github.com/mikey/mail-triage/internal/factory"
	"github.com/mikey/mail-triage/internal/review"
	"github.com/mikey/mail-triage/internal/scan"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.NewFromViper(config.NewEmptyViper())
	cfg.Set("storage.type", "memory")
	cfg.Set("snapshot.dir", filepath.Join(dir, "snapshots"))
	cfg.Set("state.path", filepath.Join(dir, "state.json"))
	cfg.Set("rules.learned_dir", filepath.Join(dir, "rules"))
	cfg.Set("gmail.credentials_file", filepath.Join(dir, "missing-credentials.json"))
	return cfg
}

func TestContainerBuildsClassifier(t *testing.T) {
	ctx := context.Background()
	container, err := BuildContainer(ctx, testConfig(t), zap.NewNop())
	if err != nil {
		t.Fatalf("BuildContainer: %v", err)
	}

	err = container.Invoke(func(f *factory.ClassifierFactory, s store.Store) error {
		defer s.Stop()
		svc, err := f.CreateClassifier(ctx)
		if err != nil {
			return err
		}
		result, err := svc.Classify(ctx, "s1", &core.Message{
			ID:      "m1",
			Sender:  "Amazon <shipment-tracking@amazon.in>",
			Subject: "Your order has been shipped",
		})
		if err != nil {
			return err
		}
		if result.SnapshotVersion == "" || result.RuleTableVersion == "" {
			t.Errorf("result missing versions: %+v", result)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
}

func TestContainerResolvesReviewerWithoutMail(t *testing.T) {
	container, err := BuildContainer(context.Background(), testConfig(t), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if err := container.Invoke(func(r *review.Reviewer, s store.Store) {
		s.Stop()
	}); err != nil {
		t.Fatalf("Invoke reviewer: %v", err)
	}
}

func TestContainerScanNeedsCredentials(t *testing.T) {
	container, err := BuildContainer(context.Background(), testConfig(t), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if err := container.Invoke(func(*scan.Orchestrator) {}); err == nil {
		t.Error("expected the orchestrator to fail without Gmail credentials")
	}
}

func TestLoadConfigAppliesOverrides(t *testing.T) {
	cfg, err := LoadConfig(&CLIFlags{Overrides: map[string]interface{}{
		"scan.batch_size":   7,
		"scan.apply_labels": false,
	}})
	if err != nil {
		t.Fatal(err)
	}
	rc, err := cfg.RunConfig()
	if err != nil {
		t.Fatal(err)
	}
	if rc.BatchSize != 7 || rc.ApplyLabels {
		t.Errorf("overrides not applied: %+v", rc)
	}

	path := filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := LoadConfig(&CLIFlags{ConfigFile: path}); err == nil {
		t.Error("expected error for a missing explicit config file")
	}
}
