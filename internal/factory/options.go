package factory

import (
	"github.com/mikey/mail-triage/internal/arbiter"
	"github.com/mikey/mail-triage/internal/config"
	"github.com/mikey/mail-triage/internal/core"
	"github.com/mikey/mail-triage/internal/ensemble"
	"github.com/mikey/mail-triage/internal/review"
	"github.com/mikey/mail-triage/internal/training"
	"github.com/mikey/mail-triage/internal/worker"
)

// TrainingOptions maps the training and review keys onto retrainer options
func TrainingOptions(cfg *config.Config) training.Options {
	tc := cfg.GetTraining()

	train := ensemble.DefaultTrainOptions()
	train.Vectorizer.MaxFeatures = tc.MaxFeatures
	train.Vectorizer.MinDF = tc.MinDF
	train.Vectorizer.MaxDF = tc.MaxDF
	train.Logistic.Epochs = tc.Epochs
	train.Logistic.Seed = tc.Seed

	return training.Options{
		ValidationSplit:     tc.ValidationSplit,
		Seed:                tc.Seed,
		RegressionTolerance: tc.RegressionTolerance,
		LearnDomainMin:      cfg.GetReview().LearnDomainMin,
		RulesDir:            cfg.GetRules().LearnedDir,
		Train:               train,
	}
}

// ReviewOptions maps the review keys onto reviewer options
func ReviewOptions(cfg *config.Config) (review.Options, error) {
	rc := cfg.GetReview()
	algorithm, err := review.ParseAlgorithm(rc.Algorithm)
	if err != nil {
		return review.Options{}, err
	}

	opts := review.DefaultOptions()
	opts.Algorithm = algorithm
	opts.ClusterCount = rc.ClusterCount
	opts.DensityEps = rc.DensityEps
	opts.DensityMinPoints = rc.DensityMinPoints
	opts.SampleSize = rc.SampleSize
	opts.LowConfidenceCeiling = rc.LowConfidenceCeiling
	opts.LowConfidenceLimit = rc.LowConfidenceLimit
	opts.RetrainOnFinish = rc.RetrainOnFinish
	opts.Seed = cfg.GetTraining().Seed
	return opts, nil
}

// RetryPolicy maps the worker keys onto the per-message retry policy
func RetryPolicy(wc config.WorkersConfig) worker.RetryPolicy {
	return worker.RetryPolicy{
		MaxRetries: wc.MaxRetries,
		BaseDelay:  wc.BackoffBase,
		MaxDelay:   wc.BackoffMax,
	}
}

// NewTaxonomy returns the configured taxonomy variant
func NewTaxonomy(cfg *config.Config) (*core.Taxonomy, error) {
	return core.NewTaxonomy(core.TaxonomyVariant(cfg.GetString("taxonomy.variant")))
}

// NewArbiter creates the arbiter from the classifier weights
func NewArbiter(cfg *config.Config) *arbiter.Arbiter {
	cc := cfg.GetClassifier()
	return arbiter.New(cc.Weights, cc.DefaultWeight, cc.ConfidenceThreshold)
}
