package rules

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mikey/mail-triage/internal/core"
	"github.com/mikey/mail-triage/internal/utils"
	"github.com/spf13/viper"
)

// Load reads a rule table document (YAML or JSON) and validates it
func Load(path string, taxonomy *core.Taxonomy) (*Table, error) {
	v := viper.New()
	v.SetConfigFile(path)
	setTableDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read rule table %s: %w", path, err)
	}

	var table Table
	if err := v.Unmarshal(&table); err != nil {
		return nil, fmt.Errorf("failed to decode rule table %s: %w", path, err)
	}
	if err := table.Validate(taxonomy); err != nil {
		return nil, fmt.Errorf("rule table %s: %w", path, err)
	}
	return &table, nil
}

func setTableDefaults(v *viper.Viper) {
	s := DefaultSettings()
	v.SetDefault("settings.threshold", s.Threshold)
	v.SetDefault("settings.score_ceiling", s.ScoreCeiling)
	v.SetDefault("settings.case_sensitive", s.CaseSensitive)
	v.SetDefault("settings.enable_content_analysis", s.EnableContentAnalysis)

	w := DefaultWeights()
	v.SetDefault("weights.domain_high", w.DomainHigh)
	v.SetDefault("weights.domain_medium", w.DomainMedium)
	v.SetDefault("weights.subject_high", w.SubjectHigh)
	v.SetDefault("weights.subject_medium", w.SubjectMedium)
	v.SetDefault("weights.content_high", w.ContentHigh)
	v.SetDefault("weights.content_medium", w.ContentMedium)
	v.SetDefault("weights.exclusion", w.Exclusion)
	v.SetDefault("weights.negative_keyword", w.NegativeKeyword)
	v.SetDefault("weights.priority_bonus", w.PriorityBonus)
}

// Save writes the table as a JSON document named after its version and
// returns the path. The file is replaced atomically.
func Save(table *Table, dir string) (string, error) {
	data, err := json.MarshalIndent(table, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode rule table: %w", err)
	}
	path := TablePath(dir, table.Version)
	if err := utils.WriteFileAtomic(path, data); err != nil {
		return "", fmt.Errorf("failed to save rule table: %w", err)
	}
	return path, nil
}

// TablePath returns where Save keeps the table version in dir
func TablePath(dir, version string) string {
	return filepath.Join(dir, "rules-"+version+".json")
}

// Resolve returns the table with the given version: the built-in table for
// the taxonomy or a learned table saved in dir. An empty version resolves
// to the built-in table.
func Resolve(dir, version string, taxonomy *core.Taxonomy) (*Table, error) {
	builtin, err := Default(taxonomy.Variant())
	if err != nil {
		return nil, err
	}
	if version == "" || version == builtin.Version {
		return builtin, nil
	}
	if dir == "" {
		return nil, fmt.Errorf("rule table %s: no learned rule directory configured", version)
	}

	path := TablePath(dir, version)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("rule table %s: %w", version, err)
	}
	table, err := Load(path, taxonomy)
	if err != nil {
		return nil, err
	}
	if table.Version != version {
		return nil, fmt.Errorf("%w: %s holds version %s", ErrInvalidTable, path, table.Version)
	}
	return table, nil
}
