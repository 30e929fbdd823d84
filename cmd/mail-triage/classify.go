package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mikey/mail-triage/internal/adapters/mime"
	"github.com/mikey/mail-triage/internal/adapters/terminal"
	"github.com/mikey/mail-triage/internal/config"
	"github.com/mikey/mail-triage/internal/factory"
)

func classifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify <file.eml>",
		Short: "Classify a single RFC 5322 message file (- reads stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides := []override{{flag: "threshold", key: "classifier.confidence_threshold"}}
			return invoke(cmd, overrides, func(cfg *config.Config, classifiers *factory.ClassifierFactory) error {
				raw, err := readMessage(args[0])
				if err != nil {
					return err
				}
				msg, err := mime.Parse(raw, cfg.GetClassifier().MaxBodySize)
				if err != nil {
					return err
				}
				if msg.ID == "" {
					msg.ID = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
				}

				classifier, err := classifiers.CreateClassifier(cmd.Context())
				if err != nil {
					return err
				}
				start := time.Now()
				result, err := classifier.Classify(cmd.Context(), "classify", msg)
				if err != nil {
					return err
				}
				terminal.NewPrinter(os.Stdout, flags.Verbose).Classification(msg, result, classifier.Taxonomy(), time.Since(start))
				return nil
			})
		},
	}

	cmd.Flags().Float64("threshold", 0, "confidence below which the result is marked uncertain")
	return cmd
}

func readMessage(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read message: %w", err)
	}
	return raw, nil
}
