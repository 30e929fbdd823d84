package factory

import (
	"context"
	"errors"
	"fmt"

	"github.com/mikey/mail-triage/internal/arbiter"
	"github.com/mikey/mail-triage/internal/config"
	"github.com/mikey/mail-triage/internal/core"
	"github.com/mikey/mail-triage/internal/ensemble"
	"github.com/mikey/mail-triage/internal/rules"
	"github.com/mikey/mail-triage/internal/training"
	"go.uber.org/zap"
)

// SnapshotSource returns the active snapshot, training one if needed
type SnapshotSource interface {
	EnsureSnapshot(ctx context.Context) (*ensemble.Snapshot, error)
}

// CompleterSource creates the text completer of the LLM member
type CompleterSource interface {
	CreateCompleter(ctx context.Context) (core.TextCompleter, error)
}

// ClassifierFactory assembles the hybrid classifier of one session from the
// active rule table and the active snapshot
type ClassifierFactory struct {
	cfg        *config.Config
	logger     *zap.Logger
	taxonomy   *core.Taxonomy
	extractor  core.FeatureExtractor
	registry   *rules.Registry
	arbiter    *arbiter.Arbiter
	snapshots  SnapshotSource
	embedder   core.Embedder
	completers CompleterSource
}

// NewClassifierFactory creates a new classifier factory. completers is only
// used when the LLM member is enabled.
func NewClassifierFactory(
	cfg *config.Config,
	logger *zap.Logger,
	taxonomy *core.Taxonomy,
	extractor core.FeatureExtractor,
	registry *rules.Registry,
	arb *arbiter.Arbiter,
	snapshots SnapshotSource,
	embedder core.Embedder,
	completers CompleterSource,
) *ClassifierFactory {
	return &ClassifierFactory{
		cfg:        cfg,
		logger:     logger,
		taxonomy:   taxonomy,
		extractor:  extractor,
		registry:   registry,
		arbiter:    arb,
		snapshots:  snapshots,
		embedder:   embedder,
		completers: completers,
	}
}

// CreateClassifier captures the current rule table and snapshot. Later rule
// swaps or promotions do not affect the returned service.
func (f *ClassifierFactory) CreateClassifier(ctx context.Context) (*core.ClassificationService, error) {
	snap, err := f.snapshots.EnsureSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load model snapshot: %w", err)
	}

	members := snap.Members(f.embedder)
	if cc := f.cfg.GetClassifier(); cc.LLMEnabled {
		completer, err := f.completers.CreateCompleter(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create LLM member: %w", err)
		}
		members = append(members, ensemble.NewLLM(completer, f.taxonomy.Categories(), cc.LLMMaxBodySize))
	}

	predictor := ensemble.NewPredictor(snap.Version, members, f.logger)
	scorer := f.registry.Current()

	f.logger.Info("Classifier ready",
		zap.String("snapshot", snap.Version),
		zap.String("rule_table", scorer.Version()),
		zap.Strings("members", predictor.Members()),
		zap.String("taxonomy", string(f.taxonomy.Variant())))

	return core.NewClassificationService(f.extractor, scorer, predictor, f.arbiter, f.taxonomy, f.logger), nil
}

// LoadRuleTable returns the rule table a session starts with: the table at
// rules.path when set, otherwise the version the active snapshot was trained
// with, resolved against the built-in table and rules.learned_dir
func LoadRuleTable(cfg *config.Config, taxonomy *core.Taxonomy, snapshots *training.SnapshotStore, logger *zap.Logger) (*rules.Table, error) {
	rc := cfg.GetRules()
	if rc.Path != "" {
		return rules.Load(rc.Path, taxonomy)
	}

	snap, err := snapshots.Current()
	if errors.Is(err, training.ErrNoSnapshot) || (err == nil && snap.Taxonomy != taxonomy.Variant()) {
		return rules.Default(taxonomy.Variant())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read active snapshot: %w", err)
	}

	table, err := rules.Resolve(rc.LearnedDir, snap.RuleTableVersion, taxonomy)
	if err != nil {
		logger.Warn("Rule table of the active snapshot is unavailable, using the built-in table",
			zap.String("snapshot", snap.Version),
			zap.String("rule_table_version", snap.RuleTableVersion),
			zap.Error(err))
		return rules.Default(taxonomy.Variant())
	}
	return table, nil
}

var _ SnapshotSource = (*training.Retrainer)(nil)
