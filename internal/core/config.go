package core

import (
	"errors"
	"fmt"
)

// ScanMode selects which messages a scan visits
type ScanMode string

const (
	ScanFull        ScanMode = "full"
	ScanIncremental ScanMode = "incremental"
	ScanResume      ScanMode = "resume"
)

// ParseScanMode validates a scan mode name
func ParseScanMode(s string) (ScanMode, error) {
	switch m := ScanMode(s); m {
	case ScanFull, ScanIncremental, ScanResume:
		return m, nil
	default:
		return "", fmt.Errorf("unknown scan mode: %q", s)
	}
}

// RunConfig is the immutable configuration handed to a scan session
type RunConfig struct {
	ScanMode            ScanMode
	MaxEmails           int
	DaysBack            int
	BatchSize           int
	Concurrency         int
	ConfidenceThreshold float64
	ClusterCount        int
	TaxonomyVariant     TaxonomyVariant
	Query               string
	ApplyLabels         bool
}

// Validate checks the recognized options once at startup
func (c RunConfig) Validate() error {
	var errs []error
	if _, err := ParseScanMode(string(c.ScanMode)); err != nil {
		errs = append(errs, err)
	}
	if _, ok := taxonomies[c.TaxonomyVariant]; !ok {
		errs = append(errs, fmt.Errorf("unknown taxonomy variant: %q", c.TaxonomyVariant))
	}
	if c.MaxEmails < 0 {
		errs = append(errs, fmt.Errorf("max_emails must not be negative, got %d", c.MaxEmails))
	}
	if c.DaysBack < 0 {
		errs = append(errs, fmt.Errorf("days_back must not be negative, got %d", c.DaysBack))
	}
	if c.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("batch_size must be positive, got %d", c.BatchSize))
	}
	if c.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("concurrency must be positive, got %d", c.Concurrency))
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		errs = append(errs, fmt.Errorf("confidence_threshold must be within [0,1], got %g", c.ConfidenceThreshold))
	}
	if c.ClusterCount < 1 {
		errs = append(errs, fmt.Errorf("cluster_count must be at least 1, got %d", c.ClusterCount))
	}
	return errors.Join(errs...)
}
