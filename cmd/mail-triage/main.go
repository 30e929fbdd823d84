package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/mikey/mail-triage/internal/di"
)

var flags = &di.CLIFlags{}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	// A second interrupt terminates immediately
	go func() {
		<-ctx.Done()
		stop()
	}()

	rootCmd := &cobra.Command{
		Use:           "mail-triage",
		Short:         "Hybrid mailbox classifier with active-learning review",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&flags.ConfigFile, "config", "", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&flags.JSONLog, "json-log", false, "output logs in JSON format")

	rootCmd.AddCommand(scanCmd())
	rootCmd.AddCommand(reviewCmd())
	rootCmd.AddCommand(retrainCmd())
	rootCmd.AddCommand(rollbackCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(classifyCmd())
	rootCmd.AddCommand(rulesCmd())

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// override maps a flag to the configuration key it overrides. value, when
// set, converts the flag text to the configuration value.
type override struct {
	flag  string
	key   string
	value func(string) interface{}
}

// invoke builds the container for a command, applies the flags that were
// set explicitly and runs fn with its dependencies injected
func invoke(cmd *cobra.Command, overrides []override, fn interface{}) error {
	flags.Overrides = changedOverrides(cmd.Flags(), overrides)

	container, logger, err := di.BuildCLIContainer(cmd.Context(), flags)
	if err != nil {
		return fmt.Errorf("failed to build dependency container: %w", err)
	}
	defer logger.Sync()

	if err := container.Invoke(fn); err != nil {
		logger.Debug("Command failed", zap.String("command", cmd.Name()), zap.Error(err))
		return err
	}
	return nil
}

// changedOverrides collects the flags set on the command line. Values are
// passed as strings; viper casts them on read.
func changedOverrides(fs *pflag.FlagSet, overrides []override) map[string]interface{} {
	values := make(map[string]interface{})
	for _, o := range overrides {
		f := fs.Lookup(o.flag)
		if f == nil || !f.Changed {
			continue
		}
		if o.value != nil {
			values[o.key] = o.value(f.Value.String())
		} else {
			values[o.key] = f.Value.String()
		}
	}
	return values
}
