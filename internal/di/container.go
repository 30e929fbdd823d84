package di

import (
	"context"
	"os"
	"time"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/mail-triage/internal/adapters/store"
	"github.com/mikey/mail-triage/internal/arbiter"
	"github.com/mikey/mail-triage/internal/config"
	"github.com/mikey/mail-triage/internal/core"
	"github.com/mikey/mail-triage/internal/factory"
	"github.com/mikey/mail-triage/internal/features"
	"github.com/mikey/mail-triage/internal/review"
	"github.com/mikey/mail-triage/internal/rules"
	"github.com/mikey/mail-triage/internal/scan"
	"github.com/mikey/mail-triage/internal/training"
	"github.com/mikey/mail-triage/internal/utils"
	"github.com/mikey/mail-triage/internal/worker"
)

// BuildContainer creates and configures a dependency injection container.
// Providers run lazily, so a command only pays for what it resolves; the
// mail service in particular only authorizes when a scan asks for it.
func BuildContainer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*dig.Container, error) {
	container := dig.New()

	providers := []interface{}{
		func() context.Context { return ctx },
		func() *config.Config { return cfg },
		func() *zap.Logger { return logger },
		utils.NewTextProcessor,
		factory.NewTaxonomy,
		factory.NewArbiter,
		factory.NewStoreFactory,
		factory.NewProviderFactory,
	}
	for _, p := range providers {
		if err := container.Provide(p); err != nil {
			return nil, err
		}
	}

	// Register feature extractor
	if err := container.Provide(func(cfg *config.Config, tp *utils.TextProcessor) core.FeatureExtractor {
		return features.NewExtractor(tp, cfg.GetClassifier().MaxBodySize, time.Local)
	}); err != nil {
		return nil, err
	}

	// Register rule registry
	if err := container.Provide(func(
		cfg *config.Config,
		taxonomy *core.Taxonomy,
		snapshots *training.SnapshotStore,
		logger *zap.Logger,
	) (*rules.Registry, error) {
		table, err := factory.LoadRuleTable(cfg, taxonomy, snapshots, logger)
		if err != nil {
			return nil, err
		}
		return rules.NewRegistry(table, taxonomy, logger)
	}); err != nil {
		return nil, err
	}

	// Register result and correction log
	if err := container.Provide(func(f *factory.StoreFactory) (store.Store, error) {
		return f.CreateStore()
	}); err != nil {
		return nil, err
	}

	// Register embedder
	if err := container.Provide(func(ctx context.Context, f *factory.ProviderFactory) (core.Embedder, error) {
		return f.CreateEmbedder(ctx)
	}); err != nil {
		return nil, err
	}

	// Register snapshot store and retrainer
	if err := container.Provide(func(cfg *config.Config) *training.SnapshotStore {
		return training.NewSnapshotStore(cfg.GetSnapshotDir())
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(
		cfg *config.Config,
		logger *zap.Logger,
		taxonomy *core.Taxonomy,
		extractor core.FeatureExtractor,
		s store.Store,
		snapshots *training.SnapshotStore,
		embedder core.Embedder,
		arb *arbiter.Arbiter,
		registry *rules.Registry,
	) *training.Retrainer {
		return training.NewRetrainer(taxonomy, extractor, s, snapshots, embedder, arb, registry, factory.TrainingOptions(cfg), logger)
	}); err != nil {
		return nil, err
	}

	// Register classifier factory
	if err := container.Provide(func(
		cfg *config.Config,
		logger *zap.Logger,
		taxonomy *core.Taxonomy,
		extractor core.FeatureExtractor,
		registry *rules.Registry,
		arb *arbiter.Arbiter,
		retrainer *training.Retrainer,
		embedder core.Embedder,
		providers *factory.ProviderFactory,
	) *factory.ClassifierFactory {
		return factory.NewClassifierFactory(cfg, logger, taxonomy, extractor, registry, arb, retrainer, embedder, providers)
	}); err != nil {
		return nil, err
	}

	// Register reviewer
	if err := container.Provide(func(
		cfg *config.Config,
		logger *zap.Logger,
		s store.Store,
		retrainer *training.Retrainer,
		taxonomy *core.Taxonomy,
	) (*review.Reviewer, error) {
		opts, err := factory.ReviewOptions(cfg)
		if err != nil {
			return nil, err
		}
		return review.NewReviewer(s, s, retrainer, taxonomy, opts, logger), nil
	}); err != nil {
		return nil, err
	}

	// Register mail service
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger, taxonomy *core.Taxonomy) *factory.MailFactory {
		return factory.NewMailFactory(cfg, logger, taxonomy, os.Stdin, os.Stderr)
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(ctx context.Context, f *factory.MailFactory) (core.MailService, error) {
		client, err := f.CreateMailService(ctx)
		if err != nil {
			return nil, err
		}
		return client, nil
	}); err != nil {
		return nil, err
	}

	// Register scan state store and orchestrator
	if err := container.Provide(func(cfg *config.Config) *scan.FileStateStore {
		return scan.NewFileStateStore(cfg.GetStatePath())
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(
		cfg *config.Config,
		logger *zap.Logger,
		mail core.MailService,
		s store.Store,
		states *scan.FileStateStore,
	) (*scan.Orchestrator, error) {
		wc, err := cfg.GetWorkers()
		if err != nil {
			return nil, err
		}
		limiter := worker.NewLimiter(wc.RatePerSecond, wc.Burst)
		return scan.NewOrchestrator(mail, s, states, limiter, factory.RetryPolicy(wc), logger), nil
	}); err != nil {
		return nil, err
	}

	return container, nil
}
