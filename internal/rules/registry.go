package rules

import (
	"fmt"
	"sync/atomic"

	"github.com/mikey/mail-triage/internal/core"
	"go.uber.org/zap"
)

// Registry holds the active rule table. Sessions capture Current once and
// keep that scorer; Swap only affects sessions started afterwards.
type Registry struct {
	current  atomic.Pointer[Scorer]
	taxonomy *core.Taxonomy
	logger   *zap.Logger
}

// NewRegistry creates a registry holding an initial table
func NewRegistry(initial *Table, taxonomy *core.Taxonomy, logger *zap.Logger) (*Registry, error) {
	r := &Registry{taxonomy: taxonomy, logger: logger}
	if err := r.Swap(initial); err != nil {
		return nil, err
	}
	return r, nil
}

// Current returns the scorer for the active table version
func (r *Registry) Current() *Scorer {
	return r.current.Load()
}

// Swap validates a table and makes it the active version
func (r *Registry) Swap(table *Table) error {
	if table == nil {
		return fmt.Errorf("%w: nil table", ErrInvalidTable)
	}
	if err := table.Validate(r.taxonomy); err != nil {
		return err
	}
	previous := r.current.Swap(NewScorer(table.Clone()))

	fields := []zap.Field{zap.String("version", table.Version)}
	if previous != nil {
		fields = append(fields, zap.String("previous_version", previous.Version()))
	}
	r.logger.Info("Rule table activated", fields...)
	return nil
}
