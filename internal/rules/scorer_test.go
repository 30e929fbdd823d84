package rules

import (
	"testing"

	"github.com/mikey/mail-triage/internal/core"
)

func consolidatedScorer(t *testing.T) *Scorer {
	t.Helper()
	table, err := Default(core.TaxonomyConsolidated)
	if err != nil {
		t.Fatalf("Default returned error: %v", err)
	}
	tax, _ := core.NewTaxonomy(core.TaxonomyConsolidated)
	if err := table.Validate(tax); err != nil {
		t.Fatalf("built-in table invalid: %v", err)
	}
	return NewScorer(table)
}

func TestScoreEmptySignalsIsNoDecision(t *testing.T) {
	s := consolidatedScorer(t)
	cases := []*core.Features{
		{},
		{Domain: "unknown.example", SubjectText: "hello there", BodyText: "nothing to see"},
		nil,
	}
	for i, f := range cases {
		r := s.Score(f)
		if r.Decided() {
			t.Errorf("case %d: expected no decision, got %+v", i, r.Scores)
		}
		if r.TableVersion != s.Version() {
			t.Errorf("case %d: table version = %q", i, r.TableVersion)
		}
	}
}

func TestScoreDomainAndKeyword(t *testing.T) {
	s := consolidatedScorer(t)
	r := s.Score(&core.Features{
		Domain:      "alerts.hdfcbank.com",
		SubjectText: "your credit card statement is ready",
	})
	best, ok := r.Best()
	if !ok {
		t.Fatal("expected a decision")
	}
	if best.Category != core.CategoryFinanceBills {
		t.Fatalf("best category = %q", best.Category)
	}
	// domain_high 1.2 + two subject_high 2.0 + priority bonus 1.35
	if best.Raw < 4.54 || best.Raw > 4.56 {
		t.Errorf("raw score = %v, want 4.55", best.Raw)
	}
	if best.Score < 0.9 || best.Score > 0.92 {
		t.Errorf("normalized score = %v, want 0.91", best.Score)
	}
}

func TestScoreRespectsWordBoundaries(t *testing.T) {
	s := consolidatedScorer(t)
	r := s.Score(&core.Features{SubjectText: "latest gossip from the office"})
	if r.Decided() {
		t.Fatalf("expected no decision for partial word match, got %+v", r.Scores)
	}
}

func TestScoreExclusionSuppressesCategory(t *testing.T) {
	s := consolidatedScorer(t)
	f := &core.Features{SubjectText: "big sale and discount offer this weekend", BodyText: "click to unsubscribe"}
	if best, ok := s.Score(f).Best(); !ok || best.Category != core.CategoryPromotionsMarketing {
		t.Fatalf("expected promotions without exclusion, got %+v", best)
	}

	f.BodyText += " order id 123"
	for _, sc := range s.Score(f).Scores {
		if sc.Category == core.CategoryPromotionsMarketing {
			t.Fatalf("exclusion term should suppress promotions, got %+v", sc)
		}
	}
}

func TestScoreOrdersByScoreThenPriority(t *testing.T) {
	table := &Table{
		Version:  "t1",
		Settings: Settings{Threshold: 0.1, ScoreCeiling: 1},
		Weights:  Weights{SubjectHigh: 1},
		Categories: []CategoryRules{
			{Name: "B", Priority: 5, Keywords: KeywordTiers{SubjectHigh: []string{"shared"}}},
			{Name: "A", Priority: 2, Keywords: KeywordTiers{SubjectHigh: []string{"shared"}}},
		},
	}
	r := NewScorer(table).Score(&core.Features{SubjectText: "shared"})
	if len(r.Scores) != 2 {
		t.Fatalf("expected two categories, got %+v", r.Scores)
	}
	if r.Scores[0].Category != "A" {
		t.Errorf("tie should prefer higher priority, got %q", r.Scores[0].Category)
	}
}

func TestScoreFoldsTermsLikeText(t *testing.T) {
	table := &Table{
		Version:  "t1",
		Settings: Settings{Threshold: 0.1, ScoreCeiling: 1},
		Weights:  Weights{SubjectHigh: 1},
		Categories: []CategoryRules{
			{Name: "Jobs", Priority: 5, Keywords: KeywordTiers{SubjectHigh: []string{"Résumé Review"}}},
		},
	}
	// the extractor folds "Résumé review" to this
	r := NewScorer(table).Score(&core.Features{SubjectText: "your resume review is ready"})
	if !r.Decided() {
		t.Fatal("accented keyword should match folded text")
	}
}

func TestScoreCaseSensitiveUsesRawText(t *testing.T) {
	table := &Table{
		Version:  "t1",
		Settings: Settings{Threshold: 0.1, ScoreCeiling: 1, CaseSensitive: true},
		Weights:  Weights{SubjectHigh: 1},
		Categories: []CategoryRules{
			{Name: "Tax", Priority: 5, Keywords: KeywordTiers{SubjectHigh: []string{"IRS"}}},
		},
	}
	s := NewScorer(table)

	tests := []struct {
		raw  string
		want bool
	}{
		{"IRS notice enclosed", true},
		{"first notice", false},
		{"irs notice", false},
	}
	for _, tt := range tests {
		f := &core.Features{RawSubject: tt.raw, SubjectText: "irs notice enclosed"}
		if got := s.Score(f).Decided(); got != tt.want {
			t.Errorf("raw subject %q: decided = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestContainsTerm(t *testing.T) {
	tests := []struct {
		text, term string
		want       bool
	}{
		{"your sip is due", "sip", true},
		{"gossip", "sip", false},
		{"sip-registration", "sip", true},
		{"credit card statement", "credit card", true},
		{"creditcard", "credit card", false},
		{"gossip and sip", "sip", true},
		{"", "sip", false},
	}
	for _, tt := range tests {
		if got := containsTerm(tt.text, tt.term); got != tt.want {
			t.Errorf("containsTerm(%q, %q) = %v, want %v", tt.text, tt.term, got, tt.want)
		}
	}
}
