package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey/mail-triage/internal/adapters/store"
	"github.com/mikey/mail-triage/internal/adapters/terminal"
	"github.com/mikey/mail-triage/internal/config"
	"github.com/mikey/mail-triage/internal/factory"
	"github.com/mikey/mail-triage/internal/scan"
)

func scanCmd() *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Classify mailbox messages in resumable, checkpointed batches",
		Long: "Scan lists candidate messages, classifies them on a bounded worker pool and\n" +
			"checkpoints progress after every batch. Interrupting a scan pauses it at the\n" +
			"next batch boundary; run it again with --mode resume to continue.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides := []override{
				{flag: "mode", key: "scan.mode"},
				{flag: "max", key: "scan.max_emails"},
				{flag: "days", key: "scan.days_back"},
				{flag: "batch", key: "scan.batch_size"},
				{flag: "query", key: "scan.query"},
				{flag: "concurrency", key: "workers.concurrency"},
				{flag: "threshold", key: "classifier.confidence_threshold"},
				{flag: "dry-run", key: "scan.apply_labels", value: func(v string) interface{} { return v != "true" }},
			}
			return invoke(cmd, overrides, func(
				cfg *config.Config,
				logger *zap.Logger,
				s store.Store,
				states *scan.FileStateStore,
				classifiers *factory.ClassifierFactory,
				orchestrator *scan.Orchestrator,
			) error {
				defer s.Stop()
				return runScan(cmd.Context(), cfg, logger, states, classifiers, orchestrator, reset)
			})
		},
	}

	cmd.Flags().String("mode", "", "scan mode: full, incremental or resume")
	cmd.Flags().Int("max", 0, "maximum number of messages to process (0 for no cap)")
	cmd.Flags().Int("days", 0, "only consider messages newer than this many days")
	cmd.Flags().Int("batch", 0, "messages per checkpointed batch")
	cmd.Flags().String("query", "", "mail search query")
	cmd.Flags().Int("concurrency", 0, "number of workers")
	cmd.Flags().Float64("threshold", 0, "confidence below which results are marked uncertain")
	cmd.Flags().Bool("dry-run", false, "classify without applying labels")
	cmd.Flags().BoolVar(&reset, "reset", false, "discard the persisted scan state before starting")
	return cmd
}

func runScan(
	ctx context.Context,
	cfg *config.Config,
	logger *zap.Logger,
	states *scan.FileStateStore,
	classifiers *factory.ClassifierFactory,
	orchestrator *scan.Orchestrator,
	reset bool,
) error {
	rc, err := cfg.RunConfig()
	if err != nil {
		return err
	}
	if reset {
		if err := states.Reset(); err != nil {
			return err
		}
		logger.Info("Scan state reset", zap.String("path", states.Path()))
	}

	classifier, err := classifiers.CreateClassifier(ctx)
	if err != nil {
		return err
	}

	state, err := orchestrator.Run(ctx, rc, classifier)
	if state != nil {
		fmt.Fprintln(os.Stdout)
		terminal.NewPrinter(os.Stdout, flags.Verbose).ScanState(state)
	}
	if err != nil {
		if errors.Is(err, scan.ErrStateCorrupt) {
			return fmt.Errorf("%w: run 'status --restore-previous' or 'scan --reset'", err)
		}
		return err
	}
	if state.Status == scan.StatusPaused {
		fmt.Fprintln(os.Stdout, "\nScan paused; continue with 'scan --mode resume'")
	}
	return nil
}
