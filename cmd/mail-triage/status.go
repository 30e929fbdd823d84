package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mikey/mail-triage/internal/adapters/terminal"
	"github.com/mikey/mail-triage/internal/scan"
	"github.com/mikey/mail-triage/internal/training"
)

func statusCmd() *cobra.Command {
	var restore bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the persisted scan state and the active model snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return invoke(cmd, nil, func(states *scan.FileStateStore, snapshots *training.SnapshotStore) error {
				printer := terminal.NewPrinter(os.Stdout, flags.Verbose)

				var state *scan.State
				var err error
				if restore {
					state, err = states.RestorePrevious()
					if err == nil {
						fmt.Fprintln(os.Stdout, "Restored the previous checkpoint")
					}
				} else {
					state, err = states.Load()
				}
				switch {
				case errors.Is(err, scan.ErrNoState):
					fmt.Fprintln(os.Stdout, "No scan has run yet")
				case errors.Is(err, scan.ErrStateCorrupt):
					return fmt.Errorf("%w: run 'status --restore-previous' or 'scan --reset'", err)
				case err != nil:
					return err
				default:
					printer.ScanState(state)
				}

				fmt.Fprintln(os.Stdout)
				snap, err := snapshots.Current()
				switch {
				case errors.Is(err, training.ErrNoSnapshot):
					fmt.Fprintln(os.Stdout, "No model snapshot yet; the first scan trains one")
				case err != nil:
					return err
				default:
					printer.Snapshot(snap)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&restore, "restore-previous", false, "replace the scan state with the checkpoint before it")
	return cmd
}
