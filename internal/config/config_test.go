package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mikey/mail-triage/internal/core"
)

func TestDefaults(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())

	rc, err := cfg.RunConfig()
	if err != nil {
		t.Fatalf("RunConfig: %v", err)
	}
	if rc.ScanMode != core.ScanIncremental || rc.BatchSize != 50 || rc.Concurrency != 4 {
		t.Errorf("unexpected run config %+v", rc)
	}
	if rc.ConfidenceThreshold != 0.5 || rc.ClusterCount != 5 || rc.TaxonomyVariant != core.TaxonomyConsolidated {
		t.Errorf("unexpected run config %+v", rc)
	}
	if !rc.ApplyLabels || rc.Query != "in:inbox" {
		t.Errorf("unexpected run config %+v", rc)
	}

	w, err := cfg.GetWorkers()
	if err != nil {
		t.Fatalf("GetWorkers: %v", err)
	}
	if w.BackoffBase != time.Second || w.BackoffMax != 30*time.Second || w.MaxRetries != 3 {
		t.Errorf("unexpected workers %+v", w)
	}

	weights := cfg.GetClassifier().Weights
	want := map[string]float64{"rules": 1.0, "naive_bayes": 1.0, "centroid": 0.8, "logistic": 1.2, "semantic": 1.0, "llm": 1.5}
	for model, w := range want {
		if weights[model] != w {
			t.Errorf("weight %s = %v, want %v", model, weights[model], w)
		}
	}

	st, err := cfg.GetStorage()
	if err != nil {
		t.Fatalf("GetStorage: %v", err)
	}
	if st.Retention != 2160*time.Hour || st.CleanupFrequency != 24*time.Hour {
		t.Errorf("unexpected storage %+v", st)
	}
	if tr := cfg.GetTraining(); tr.Seed != 42 || tr.ValidationSplit != 0.2 {
		t.Errorf("unexpected training %+v", tr)
	}
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `
scan:
  mode: full
  batch_size: 10
classifier:
  confidence_threshold: 0.7
  weights:
    logistic: 2.0
taxonomy:
  variant: extended
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rc, err := cfg.RunConfig()
	if err != nil {
		t.Fatalf("RunConfig: %v", err)
	}
	if rc.ScanMode != core.ScanFull || rc.BatchSize != 10 || rc.TaxonomyVariant != core.TaxonomyExtended {
		t.Errorf("file values not applied: %+v", rc)
	}

	weights := cfg.GetClassifier().Weights
	if weights["logistic"] != 2.0 {
		t.Errorf("logistic weight = %v, want 2.0", weights["logistic"])
	}
	if weights["centroid"] != 0.8 {
		t.Errorf("centroid weight = %v, want default 0.8", weights["centroid"])
	}
}

func TestMissingExplicitFile(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for a missing explicit config file")
	}
}

func TestRunConfigValidation(t *testing.T) {
	tests := []struct {
		key   string
		value interface{}
		want  string
	}{
		{"scan.mode", "sideways", "unknown scan mode"},
		{"taxonomy.variant", "custom", "unknown taxonomy variant"},
		{"workers.concurrency", 0, "concurrency"},
		{"scan.batch_size", -1, "batch_size"},
		{"classifier.confidence_threshold", 1.5, "confidence_threshold"},
		{"scan.max_emails", -3, "max_emails"},
		{"review.cluster_count", 0, "cluster_count"},
	}
	for _, tt := range tests {
		cfg := NewFromViper(NewEmptyViper())
		cfg.Set(tt.key, tt.value)
		_, err := cfg.RunConfig()
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s=%v: err = %v, want mention of %q", tt.key, tt.value, err, tt.want)
		}
	}
}

func TestInvalidDuration(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())
	cfg.Set("workers.backoff_base", "soon")
	if _, err := cfg.GetWorkers(); err == nil {
		t.Error("expected error for an invalid duration")
	}
}
