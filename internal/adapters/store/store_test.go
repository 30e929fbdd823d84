package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/mikey/mail-triage/internal/core"
	"go.uber.org/zap"
)

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func result(session, id string, cat core.Category, conf float64, uncertain bool, at time.Time) *core.ClassificationResult {
	return &core.ClassificationResult{
		SessionID:    session,
		MessageID:    id,
		Category:     cat,
		Confidence:   conf,
		Uncertain:    uncertain,
		Method:       core.MethodHybrid,
		Summary:      core.MessageSummary{Sender: "a@b.com", Domain: "b.com", Subject: id},
		ClassifiedAt: at,
	}
}

func stores(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := NewSQLiteStore(filepath.Join(t.TempDir(), "results.db"), zap.NewNop(), 0, 0)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	all := map[string]Store{
		"memory": NewMemoryStore(zap.NewNop(), 0, 0),
		"sqlite": sqlite,
	}
	t.Cleanup(func() {
		for _, s := range all {
			s.Stop()
		}
	})
	return all
}

func ids(results []*core.ClassificationResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.MessageID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestResultLog(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			batch := []*core.ClassificationResult{
				result("s1", "m1", core.CategoryFinanceBills, 0.9, false, base),
				result("s1", "m2", core.CategoryPurchasesReceipts, 0.3, true, base),
				result("s1", "m3", core.CategoryPersonalSocial, 0.2, true, base),
				result("s2", "m1", core.CategorySecurityAlerts, 0.1, true, base),
			}
			if err := s.Append(ctx, batch); err != nil {
				t.Fatalf("Append: %v", err)
			}

			// a second write for the same message keeps the first
			dup := result("s1", "m1", core.CategoryPromotionsMarketing, 0.99, false, base)
			if err := s.Append(ctx, []*core.ClassificationResult{dup}); err != nil {
				t.Fatalf("Append duplicate: %v", err)
			}
			got, err := s.Get(ctx, "s1", "m1")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.Category != core.CategoryFinanceBills || got.Confidence != 0.9 {
				t.Errorf("Get returned %s %.2f, want first write", got.Category, got.Confidence)
			}
			if !got.ClassifiedAt.Equal(base) || got.Summary.Subject != "m1" {
				t.Errorf("Get lost fields: %+v", got)
			}

			ok, err := s.Has(ctx, "s1", "m2")
			if err != nil || !ok {
				t.Errorf("Has(s1, m2) = %v, %v", ok, err)
			}
			ok, err = s.Has(ctx, "s3", "m2")
			if err != nil || ok {
				t.Errorf("Has(s3, m2) = %v, %v", ok, err)
			}
			if _, err := s.Get(ctx, "s3", "m2"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get missing = %v, want ErrNotFound", err)
			}

			uncertain, err := s.Uncertain(ctx, "s1")
			if err != nil {
				t.Fatalf("Uncertain: %v", err)
			}
			if want := []string{"m3", "m2"}; !equalIDs(ids(uncertain), want) {
				t.Errorf("Uncertain = %v, want %v", ids(uncertain), want)
			}
		})
	}
}

func TestLowConfidence(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			batch := []*core.ClassificationResult{
				result("s1", "a", core.CategoryFinanceBills, 0.70, false, base),
				result("s1", "b", core.CategoryFinanceBills, 0.55, false, base),
				result("s1", "c", core.CategoryFinanceBills, 0.55, false, base),
				result("s1", "d", core.CategoryFinanceBills, 0.95, false, base),
				result("s1", "e", core.CategoryFinanceBills, 0.20, true, base),
			}
			if err := s.Append(ctx, batch); err != nil {
				t.Fatalf("Append: %v", err)
			}

			tests := []struct {
				name    string
				ceiling float64
				limit   int
				want    []string
			}{
				{"below ceiling", 0.8, 10, []string{"b", "c", "a"}},
				{"limited", 0.8, 2, []string{"b", "c"}},
				{"zero limit", 0.8, 0, nil},
				{"nothing below", 0.5, 10, nil},
			}
			for _, tt := range tests {
				got, err := s.LowConfidence(ctx, "s1", tt.ceiling, tt.limit)
				if err != nil {
					t.Fatalf("%s: LowConfidence: %v", tt.name, err)
				}
				if !equalIDs(ids(got), tt.want) {
					t.Errorf("%s: got %v, want %v", tt.name, ids(got), tt.want)
				}
			}
		})
	}
}

func TestCleanup(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			batch := []*core.ClassificationResult{
				result("s1", "old", core.CategoryFinanceBills, 0.2, true, base.Add(-48*time.Hour)),
				result("s1", "new", core.CategoryFinanceBills, 0.2, true, base),
			}
			if err := s.Append(ctx, batch); err != nil {
				t.Fatalf("Append: %v", err)
			}
			if err := s.Cleanup(ctx, base.Add(-time.Hour)); err != nil {
				t.Fatalf("Cleanup: %v", err)
			}
			if ok, _ := s.Has(ctx, "s1", "old"); ok {
				t.Error("expired result survived cleanup")
			}
			if ok, _ := s.Has(ctx, "s1", "new"); !ok {
				t.Error("recent result removed by cleanup")
			}
		})
	}
}

func TestCorrectionLog(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			corrections := []*core.Correction{
				{ID: "c2", MessageID: "m2", SessionID: "s1", CorrectedCategory: core.CategoryPromotionsMarketing, CreatedAt: base.Add(time.Minute)},
				{ID: "c1", MessageID: "m1", SessionID: "s1", CorrectedCategory: core.CategoryFinanceBills, CreatedAt: base},
			}
			if err := s.AppendCorrections(ctx, corrections); err != nil {
				t.Fatalf("AppendCorrections: %v", err)
			}
			confirmations := []*core.Confirmation{
				{ID: "f1", MessageID: "m3", SessionID: "s1", Category: core.CategoryPersonalSocial, CreatedAt: base},
			}
			if err := s.AppendConfirmations(ctx, confirmations); err != nil {
				t.Fatalf("AppendConfirmations: %v", err)
			}

			got, err := s.Corrections(ctx)
			if err != nil {
				t.Fatalf("Corrections: %v", err)
			}
			if len(got) != 2 || got[0].ID != "c1" || got[1].ID != "c2" {
				t.Fatalf("Corrections out of order: %+v", got)
			}
			if got[1].CorrectedCategory != core.CategoryPromotionsMarketing {
				t.Errorf("correction category = %s", got[1].CorrectedCategory)
			}

			conf, err := s.Confirmations(ctx)
			if err != nil {
				t.Fatalf("Confirmations: %v", err)
			}
			if len(conf) != 1 || conf[0].Category != core.CategoryPersonalSocial {
				t.Errorf("Confirmations = %+v", conf)
			}
		})
	}
}

func TestSQLiteReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "results.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(path, zap.NewNop(), 0, 0)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	if err := s.Append(ctx, []*core.ClassificationResult{result("s1", "m1", core.CategoryFinanceBills, 0.9, false, base)}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	s.Stop()
	s.Stop()

	reopened, err := NewSQLiteStore(path, zap.NewNop(), 0, 0)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Stop()
	if ok, err := reopened.Has(ctx, "s1", "m1"); err != nil || !ok {
		t.Errorf("Has after reopen = %v, %v", ok, err)
	}
}
