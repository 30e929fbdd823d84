package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mikey/mail-triage/internal/adapters/store"
	"github.com/mikey/mail-triage/internal/adapters/terminal"
	"github.com/mikey/mail-triage/internal/training"
)

func retrainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retrain",
		Short: "Train a new model snapshot from the bootstrap corpus and review history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return invoke(cmd, nil, func(s store.Store, retrainer *training.Retrainer) error {
				defer s.Stop()
				report, err := retrainer.Retrain(cmd.Context())
				if err != nil {
					return err
				}
				terminal.NewPrinter(os.Stdout, flags.Verbose).TrainingReport(report)
				return nil
			})
		},
	}
}

func rollbackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rollback",
		Short: "Make the previous model snapshot and its rule table active again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return invoke(cmd, nil, func(s store.Store, retrainer *training.Retrainer) error {
				defer s.Stop()
				snap, err := retrainer.Rollback()
				if err != nil {
					return err
				}
				fmt.Fprintln(os.Stdout, "Rolled back")
				terminal.NewPrinter(os.Stdout, flags.Verbose).Snapshot(snap)
				return nil
			})
		},
	}
}
