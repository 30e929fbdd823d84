package rules

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mikey/mail-triage/internal/core"
	"github.com/mikey/mail-triage/internal/utils"
)

type compiledCategory struct {
	category      core.Category
	priority      int
	order         int
	highDomains   domainSet
	mediumDomains domainSet
	subjectHigh   []string
	subjectMedium []string
	contentHigh   []string
	contentMedium []string
	exclusions    []string
	negatives     []string
}

// Scorer scores feature records against one immutable rule table.
// It implements core.RuleScorer and is safe for concurrent use.
type Scorer struct {
	table      *Table
	categories []compiledCategory
}

// NewScorer compiles a rule table into a scorer
func NewScorer(table *Table) *Scorer {
	fold := func(terms []string) []string {
		out := make([]string, 0, len(terms))
		for _, t := range terms {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			if !table.Settings.CaseSensitive {
				t, _ = utils.Fold(t)
			}
			out = append(out, t)
		}
		return out
	}

	s := &Scorer{table: table}
	for i, c := range table.Categories {
		s.categories = append(s.categories, compiledCategory{
			category:      core.Category(c.Name),
			priority:      c.Priority,
			order:         i,
			highDomains:   newDomainSet(c.Domains.High),
			mediumDomains: newDomainSet(c.Domains.Medium),
			subjectHigh:   fold(c.Keywords.SubjectHigh),
			subjectMedium: fold(c.Keywords.SubjectMedium),
			contentHigh:   fold(c.Keywords.ContentHigh),
			contentMedium: fold(c.Keywords.ContentMedium),
			exclusions:    fold(c.Exclusions),
			negatives:     fold(c.NegativeKeywords),
		})
	}
	return s
}

// Version returns the version of the compiled table
func (s *Scorer) Version() string {
	return s.table.Version
}

// Table returns the compiled table
func (s *Scorer) Table() *Table {
	return s.table
}

// Score computes the normalized score of every category and returns those
// clearing the threshold. With no category above the threshold the result
// carries no decision.
func (s *Scorer) Score(f *core.Features) *core.RuleResult {
	result := &core.RuleResult{TableVersion: s.table.Version}
	if f == nil {
		return result
	}

	type ranked struct {
		core.RuleScore
		priority int
		order    int
	}
	var cleared []ranked

	for _, c := range s.categories {
		raw := s.rawScore(&c, f)
		score := clamp(raw/s.table.Settings.ScoreCeiling, 0, 1)
		if score <= 0 || score < s.table.Settings.Threshold {
			continue
		}
		cleared = append(cleared, ranked{
			RuleScore: core.RuleScore{Category: c.category, Score: score, Raw: raw},
			priority:  c.priority,
			order:     c.order,
		})
	}

	sort.SliceStable(cleared, func(i, j int) bool {
		if cleared[i].Score != cleared[j].Score {
			return cleared[i].Score > cleared[j].Score
		}
		if cleared[i].priority != cleared[j].priority {
			return cleared[i].priority < cleared[j].priority
		}
		return cleared[i].order < cleared[j].order
	})

	for _, r := range cleared {
		result.Scores = append(result.Scores, r.RuleScore)
	}
	return result
}

func (s *Scorer) rawScore(c *compiledCategory, f *core.Features) float64 {
	w := s.table.Weights
	raw := 0.0
	matched := false

	switch {
	case c.highDomains.matches(f.Domain):
		raw += w.DomainHigh
		matched = true
	case c.mediumDomains.matches(f.Domain):
		raw += w.DomainMedium
		matched = true
	}

	subject, body := f.SubjectText, f.BodyText
	if s.table.Settings.CaseSensitive {
		subject, body = f.RawSubject, f.RawBody
	}

	add := func(text string, terms []string, weight float64) {
		for _, term := range terms {
			if containsTerm(text, term) {
				raw += weight
				matched = true
			}
		}
	}
	add(subject, c.subjectHigh, w.SubjectHigh)
	add(subject, c.subjectMedium, w.SubjectMedium)
	if s.table.Settings.EnableContentAnalysis {
		add(body, c.contentHigh, w.ContentHigh)
		add(body, c.contentMedium, w.ContentMedium)
	}
	if !matched {
		return 0
	}

	for _, term := range c.exclusions {
		if containsTerm(subject, term) || containsTerm(body, term) {
			raw += w.Exclusion
		}
	}
	for _, term := range c.negatives {
		if containsTerm(subject, term) || containsTerm(body, term) {
			raw += w.NegativeKeyword
		}
	}

	if raw > 0 {
		raw += w.PriorityBonus * float64(10-c.priority)
	}
	return raw
}

// containsTerm reports whether term occurs in text on word boundaries
func containsTerm(text, term string) bool {
	if term == "" {
		return false
	}
	for start := 0; start < len(text); {
		i := strings.Index(text[start:], term)
		if i < 0 {
			return false
		}
		i += start
		end := i + len(term)
		if boundaryBefore(text, i) && boundaryAfter(text, end) {
			return true
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		start = i + size
	}
	return false
}

func boundaryBefore(text string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return !isWordRune(r)
}

func boundaryAfter(text string, end int) bool {
	if end >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[end:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
