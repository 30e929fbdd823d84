package training

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mikey/mail-triage/internal/arbiter"
	"github.com/mikey/mail-triage/internal/core"
	"github.com/mikey/mail-triage/internal/ensemble"
	"github.com/mikey/mail-triage/internal/rules"
	"go.uber.org/zap"
)

// Options configure retraining
type Options struct {
	ValidationSplit     float64
	Seed                uint64
	RegressionTolerance float64
	LearnDomainMin      int
	RulesDir            string
	Train               ensemble.TrainOptions
}

// DefaultOptions returns the default retraining settings
func DefaultOptions() Options {
	return Options{
		ValidationSplit: 0.2,
		Seed:            42,
		LearnDomainMin:  3,
		Train:           ensemble.DefaultTrainOptions(),
	}
}

// Report describes the outcome of one retraining run
type Report struct {
	Version          string
	PreviousVersion  string
	Accuracy         float64
	PreviousAccuracy float64
	Promoted         bool
	RolledBack       bool
	TrainingSize     int
	ValidationSize   int
	RuleTableVersion string
	RulesLearned     bool
}

// Retrainer trains a new snapshot from the bootstrap corpus and the review
// history, validates it against the active snapshot and promotes it unless
// held-out accuracy regresses. It runs single-threaded between sessions.
type Retrainer struct {
	taxonomy    *core.Taxonomy
	extractor   core.FeatureExtractor
	corrections core.CorrectionLog
	store       *SnapshotStore
	embedder    core.Embedder
	arbiter     *arbiter.Arbiter
	rules       *rules.Registry
	opts        Options
	logger      *zap.Logger
	now         func() time.Time
}

// NewRetrainer creates a new retrainer. registry may be nil, in which case
// no sender domains are learned.
func NewRetrainer(
	taxonomy *core.Taxonomy,
	extractor core.FeatureExtractor,
	corrections core.CorrectionLog,
	store *SnapshotStore,
	embedder core.Embedder,
	arb *arbiter.Arbiter,
	registry *rules.Registry,
	opts Options,
	logger *zap.Logger,
) *Retrainer {
	return &Retrainer{
		taxonomy:    taxonomy,
		extractor:   extractor,
		corrections: corrections,
		store:       store,
		embedder:    embedder,
		arbiter:     arb,
		rules:       registry,
		opts:        opts,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Retrain runs one retraining cycle
func (r *Retrainer) Retrain(ctx context.Context) (*Report, error) {
	corrections, err := r.corrections.Corrections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load corrections: %w", err)
	}
	confirmations, err := r.corrections.Confirmations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load confirmations: %w", err)
	}

	report := &Report{}
	activeRules := ""
	if r.rules != nil {
		activeRules = r.rules.Current().Version()
	}
	learned := r.learnDomains(corrections)
	ruleVersion := activeRules
	if learned != nil {
		ruleVersion = learned.Version
	}

	bootstrap, err := Bootstrap(r.taxonomy)
	if err != nil {
		return nil, err
	}
	samples := BuildTrainingSet(r.taxonomy, bootstrap, corrections, confirmations)
	trainSamples, validationSamples := Split(samples, r.opts.ValidationSplit, r.opts.Seed)
	train := Examples(r.extractor, trainSamples, r.logger)
	validation := Examples(r.extractor, validationSamples, r.logger)

	r.logger.Info("Retraining ensemble",
		zap.Int("corrections", len(corrections)),
		zap.Int("confirmations", len(confirmations)),
		zap.Int("training", len(train)),
		zap.Int("validation", len(validation)))

	snap, err := ensemble.Train(ctx, train, r.taxonomy.Categories(), r.embedder, r.opts.Train)
	if err != nil {
		return nil, fmt.Errorf("failed to train snapshot: %w", err)
	}

	now := r.now()
	snap.TrainingFingerprint = ensemble.Fingerprint(append(append([]ensemble.Example(nil), train...), validation...))
	snap.Version = fmt.Sprintf("%s-%s", now.Format("20060102T150405Z"), snap.TrainingFingerprint[:8])
	snap.CreatedAt = now
	snap.Taxonomy = r.taxonomy.Variant()
	snap.RuleTableVersion = ruleVersion
	snap.Metrics = r.evaluate(ctx, snap, validation)
	snap.Metrics.TrainingSize = len(train)

	report.Version = snap.Version
	report.Accuracy = snap.Metrics.HeldOutAccuracy
	report.TrainingSize = len(train)
	report.ValidationSize = len(validation)

	previous, err := r.store.Current()
	switch {
	case errors.Is(err, ErrNoSnapshot):
		r.logger.Info("No active snapshot, promoting first snapshot", zap.String("version", snap.Version))
	case err != nil:
		return nil, err
	case previous.Taxonomy != r.taxonomy.Variant():
		r.logger.Warn("Active snapshot belongs to another taxonomy, replacing it",
			zap.String("version", previous.Version),
			zap.String("taxonomy", string(previous.Taxonomy)))
	default:
		prev := r.evaluate(ctx, previous, validation)
		report.PreviousVersion = previous.Version
		report.PreviousAccuracy = prev.HeldOutAccuracy

		if len(validation) > 0 && report.Accuracy < report.PreviousAccuracy-r.opts.RegressionTolerance {
			// Keep the candidate on disk for inspection but leave the previous snapshot active
			if err := r.store.Save(snap); err != nil {
				return nil, err
			}
			report.RolledBack = true
			report.RuleTableVersion = activeRules
			r.logger.Warn("Retrained snapshot regressed, keeping previous snapshot",
				zap.String("candidate", snap.Version),
				zap.String("discarded_rules", ruleVersion),
				zap.Float64("accuracy", report.Accuracy),
				zap.String("previous", previous.Version),
				zap.Float64("previous_accuracy", report.PreviousAccuracy))
			return report, nil
		}
	}

	// the learned table goes live with the snapshot that was trained against it
	if learned != nil && r.opts.RulesDir != "" {
		path, err := rules.Save(learned, r.opts.RulesDir)
		if err != nil {
			return nil, err
		}
		r.logger.Info("Saved learned rule table", zap.String("path", path))
	}
	if err := r.store.Promote(snap); err != nil {
		return nil, fmt.Errorf("failed to promote snapshot: %w", err)
	}
	if learned != nil {
		if err := r.rules.Swap(learned); err != nil {
			return nil, err
		}
	}
	report.Promoted = true
	report.RuleTableVersion = ruleVersion
	report.RulesLearned = learned != nil
	r.logger.Info("Promoted snapshot",
		zap.String("version", snap.Version),
		zap.Float64("accuracy", report.Accuracy),
		zap.String("previous", report.PreviousVersion),
		zap.Float64("previous_accuracy", report.PreviousAccuracy))
	return report, nil
}

// EnsureSnapshot returns the active snapshot for the taxonomy, training one
// from the bootstrap corpus when there is none
func (r *Retrainer) EnsureSnapshot(ctx context.Context) (*ensemble.Snapshot, error) {
	snap, err := r.store.Current()
	if err == nil && snap.Taxonomy == r.taxonomy.Variant() {
		return snap, nil
	}
	if err != nil && !errors.Is(err, ErrNoSnapshot) {
		return nil, err
	}

	report, err := r.Retrain(ctx)
	if err != nil {
		return nil, err
	}
	if !report.Promoted {
		return nil, fmt.Errorf("bootstrap snapshot %s was not promoted", report.Version)
	}
	return r.store.Current()
}

// evaluate measures held-out accuracy of the ensemble members combined by
// the arbiter, and of every member on its own
func (r *Retrainer) evaluate(ctx context.Context, snap *ensemble.Snapshot, validation []ensemble.Example) ensemble.Metrics {
	metrics := ensemble.Metrics{
		ModelAccuracy:  make(map[string]float64),
		ValidationSize: len(validation),
	}
	if len(validation) == 0 {
		return metrics
	}

	predictor := ensemble.NewPredictor(snap.Version, snap.Members(r.embedder), r.logger)
	correct := 0
	perModel := make(map[string]int)
	for _, id := range predictor.Members() {
		perModel[id] = 0
	}
	for _, ex := range validation {
		votes, _ := predictor.Predict(ctx, ex.Features)
		for _, v := range votes {
			if v.Category == ex.Category {
				perModel[v.ModelID]++
			}
		}
		d := r.arbiter.Decide(nil, votes)
		if d.Method != core.MethodNone && d.Category == ex.Category {
			correct++
		}
	}

	n := float64(len(validation))
	metrics.HeldOutAccuracy = float64(correct) / n
	for id, c := range perModel {
		metrics.ModelAccuracy[id] = float64(c) / n
	}
	return metrics
}

// Rollback reactivates the previous snapshot together with the rule table
// version it was trained with
func (r *Retrainer) Rollback() (*ensemble.Snapshot, error) {
	previous, err := r.store.Previous()
	if err != nil {
		return nil, err
	}

	var table *rules.Table
	if r.rules != nil && previous.RuleTableVersion != "" && previous.RuleTableVersion != r.rules.Current().Version() {
		table, err = rules.Resolve(r.opts.RulesDir, previous.RuleTableVersion, r.taxonomy)
		if err != nil {
			return nil, fmt.Errorf("failed to restore rule table of snapshot %s: %w", previous.Version, err)
		}
	}

	snap, err := r.store.Rollback()
	if err != nil {
		return nil, err
	}
	if table != nil {
		if err := r.rules.Swap(table); err != nil {
			return nil, err
		}
	}
	r.logger.Info("Rolled back snapshot",
		zap.String("version", snap.Version),
		zap.String("rule_table_version", snap.RuleTableVersion))
	return snap, nil
}

// learnDomains returns the next rule table version when the corrections
// teach new sender domains, or nil. Nothing is saved or activated here.
func (r *Retrainer) learnDomains(corrections []*core.Correction) *rules.Table {
	if r.rules == nil {
		return nil
	}
	next, changed := rules.LearnDomains(r.rules.Current().Table(), corrections, r.opts.LearnDomainMin, r.now())
	if !changed {
		return nil
	}
	if err := next.Validate(r.taxonomy); err != nil {
		r.logger.Warn("Discarding invalid learned rule table", zap.String("version", next.Version), zap.Error(err))
		return nil
	}
	return next
}
