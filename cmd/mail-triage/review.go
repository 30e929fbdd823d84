package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey/mail-triage/internal/adapters/store"
	"github.com/mikey/mail-triage/internal/adapters/terminal"
	"github.com/mikey/mail-triage/internal/review"
	"github.com/mikey/mail-triage/internal/scan"
)

func reviewCmd() *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "review",
		Short: "Review uncertain classifications cluster by cluster",
		Long: "Review groups the uncertain and low-confidence results of a scan session into\n" +
			"clusters of similar messages. Each cluster is confirmed, corrected or skipped\n" +
			"as one decision; corrections feed the next retraining.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides := []override{
				{flag: "clusters", key: "review.cluster_count"},
				{flag: "algorithm", key: "review.algorithm"},
			}
			return invoke(cmd, overrides, func(
				logger *zap.Logger,
				s store.Store,
				states *scan.FileStateStore,
				reviewer *review.Reviewer,
			) error {
				defer s.Stop()

				session := sessionID
				if session == "" {
					state, err := states.Load()
					if errors.Is(err, scan.ErrNoState) {
						return fmt.Errorf("no scan has run yet; pass --session")
					}
					if err != nil {
						return err
					}
					session = state.SessionID
				}
				logger.Info("Reviewing scan session", zap.String("session_id", session))

				fe := terminal.NewFrontEnd(os.Stdin, os.Stdout)
				summary, report, err := reviewer.Run(cmd.Context(), session, fe)
				if err != nil {
					return err
				}
				if summary.Clusters == 0 {
					fmt.Fprintln(os.Stdout, "Nothing to review")
					return nil
				}
				terminal.NewPrinter(os.Stdout, flags.Verbose).ReviewSummary(summary, report)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "scan session to review (default: the last scan)")
	cmd.Flags().Int("clusters", 0, "number of clusters for k-means")
	cmd.Flags().String("algorithm", "", "clustering algorithm: kmeans or density")
	return cmd
}
