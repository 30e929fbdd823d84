package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mikey/mail-triage/internal/core"
	"github.com/mikey/mail-triage/internal/rules"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect rule tables",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a rule table document against the configured taxonomy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return invoke(cmd, nil, func(taxonomy *core.Taxonomy) error {
				table, err := rules.Load(args[0], taxonomy)
				if err != nil {
					return err
				}
				fmt.Fprintf(os.Stdout, "Rule table %s is valid for the %s taxonomy (%d categories)\n",
					table.Version, taxonomy.Variant(), len(table.Categories))
				return nil
			})
		},
	})
	return cmd
}
