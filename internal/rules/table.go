// Package rules implements the deterministic keyword and domain scorer.
package rules

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mikey/mail-triage/internal/core"
)

// ErrInvalidTable is returned when a rule table fails validation
var ErrInvalidTable = errors.New("invalid rule table")

// Settings are the global scoring settings of a rule table
type Settings struct {
	Threshold             float64 `mapstructure:"threshold" json:"threshold"`
	ScoreCeiling          float64 `mapstructure:"score_ceiling" json:"score_ceiling"`
	CaseSensitive         bool    `mapstructure:"case_sensitive" json:"case_sensitive"`
	EnableContentAnalysis bool    `mapstructure:"enable_content_analysis" json:"enable_content_analysis"`
}

// Weights are the per-signal weights applied to matches
type Weights struct {
	DomainHigh      float64 `mapstructure:"domain_high" json:"domain_high"`
	DomainMedium    float64 `mapstructure:"domain_medium" json:"domain_medium"`
	SubjectHigh     float64 `mapstructure:"subject_high" json:"subject_high"`
	SubjectMedium   float64 `mapstructure:"subject_medium" json:"subject_medium"`
	ContentHigh     float64 `mapstructure:"content_high" json:"content_high"`
	ContentMedium   float64 `mapstructure:"content_medium" json:"content_medium"`
	Exclusion       float64 `mapstructure:"exclusion" json:"exclusion"`
	NegativeKeyword float64 `mapstructure:"negative_keyword" json:"negative_keyword"`
	PriorityBonus   float64 `mapstructure:"priority_bonus" json:"priority_bonus"`
}

// DomainTiers groups sender domains by confidence
type DomainTiers struct {
	High   []string `mapstructure:"high" json:"high,omitempty"`
	Medium []string `mapstructure:"medium" json:"medium,omitempty"`
}

// KeywordTiers groups keywords by where they match and how strongly
type KeywordTiers struct {
	SubjectHigh   []string `mapstructure:"subject_high" json:"subject_high,omitempty"`
	SubjectMedium []string `mapstructure:"subject_medium" json:"subject_medium,omitempty"`
	ContentHigh   []string `mapstructure:"content_high" json:"content_high,omitempty"`
	ContentMedium []string `mapstructure:"content_medium" json:"content_medium,omitempty"`
}

// CategoryRules are the signals of one category
type CategoryRules struct {
	Name             string       `mapstructure:"name" json:"name"`
	Priority         int          `mapstructure:"priority" json:"priority"`
	Domains          DomainTiers  `mapstructure:"domains" json:"domains"`
	Keywords         KeywordTiers `mapstructure:"keywords" json:"keywords"`
	Exclusions       []string     `mapstructure:"exclusions" json:"exclusions,omitempty"`
	NegativeKeywords []string     `mapstructure:"negative_keywords" json:"negative_keywords,omitempty"`
}

// Table is a versioned rule table. A table is never modified after it has
// been handed to a Registry; updates produce a new table.
type Table struct {
	Version    string          `mapstructure:"version" json:"version"`
	Settings   Settings        `mapstructure:"settings" json:"settings"`
	Weights    Weights         `mapstructure:"weights" json:"weights"`
	Categories []CategoryRules `mapstructure:"categories" json:"categories"`
}

// DefaultSettings returns the default global settings
func DefaultSettings() Settings {
	return Settings{
		Threshold:             0.5,
		ScoreCeiling:          5.0,
		EnableContentAnalysis: true,
	}
}

// DefaultWeights returns the default signal weights
func DefaultWeights() Weights {
	return Weights{
		DomainHigh:      1.2,
		DomainMedium:    0.8,
		SubjectHigh:     1.0,
		SubjectMedium:   0.6,
		ContentHigh:     0.7,
		ContentMedium:   0.4,
		Exclusion:       -2.0,
		NegativeKeyword: -1.5,
		PriorityBonus:   0.15,
	}
}

// Validate checks the table against the active taxonomy
func (t *Table) Validate(taxonomy *core.Taxonomy) error {
	var errs []error
	if strings.TrimSpace(t.Version) == "" {
		errs = append(errs, errors.New("version is required"))
	}
	if t.Settings.Threshold <= 0 || t.Settings.Threshold > 1 {
		errs = append(errs, fmt.Errorf("threshold must be within (0,1], got %g", t.Settings.Threshold))
	}
	if t.Settings.ScoreCeiling <= 0 {
		errs = append(errs, fmt.Errorf("score_ceiling must be positive, got %g", t.Settings.ScoreCeiling))
	}
	seen := make(map[string]bool, len(t.Categories))
	for _, c := range t.Categories {
		if taxonomy != nil && !taxonomy.Contains(core.Category(c.Name)) {
			errs = append(errs, fmt.Errorf("category %q is not in the %s taxonomy", c.Name, taxonomy.Variant()))
		}
		if seen[c.Name] {
			errs = append(errs, fmt.Errorf("category %q is defined twice", c.Name))
		}
		seen[c.Name] = true
		if c.Priority < 1 || c.Priority > 10 {
			errs = append(errs, fmt.Errorf("category %q: priority must be within 1..10, got %d", c.Name, c.Priority))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidTable, errors.Join(errs...))
	}
	return nil
}

// Clone returns a deep copy of the table
func (t *Table) Clone() *Table {
	out := *t
	out.Categories = make([]CategoryRules, len(t.Categories))
	for i, c := range t.Categories {
		c.Domains.High = append([]string(nil), c.Domains.High...)
		c.Domains.Medium = append([]string(nil), c.Domains.Medium...)
		c.Keywords.SubjectHigh = append([]string(nil), c.Keywords.SubjectHigh...)
		c.Keywords.SubjectMedium = append([]string(nil), c.Keywords.SubjectMedium...)
		c.Keywords.ContentHigh = append([]string(nil), c.Keywords.ContentHigh...)
		c.Keywords.ContentMedium = append([]string(nil), c.Keywords.ContentMedium...)
		c.Exclusions = append([]string(nil), c.Exclusions...)
		c.NegativeKeywords = append([]string(nil), c.NegativeKeywords...)
		out.Categories[i] = c
	}
	return &out
}
