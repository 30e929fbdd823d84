package di

import (
	"context"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/mail-triage/internal/config"
	"github.com/mikey/mail-triage/internal/logging"
)

// CLIFlags contains the global command line flags and the per-command
// overrides of configuration keys
type CLIFlags struct {
	ConfigFile string
	Verbose    bool
	JSONLog    bool

	// Overrides maps configuration keys to flag values that were set
	// explicitly on the command line
	Overrides map[string]interface{}
}

// LoadConfig reads the configuration and applies the flag overrides
func LoadConfig(flags *CLIFlags) (*config.Config, error) {
	cfg, err := config.New(flags.ConfigFile)
	if err != nil {
		return nil, err
	}
	for key, value := range flags.Overrides {
		cfg.Set(key, value)
	}
	return cfg, nil
}

// NewLogger builds the logger: --verbose and --json-log win over the
// logging section of the configuration
func NewLogger(flags *CLIFlags, cfg *config.Config) (*zap.Logger, error) {
	if flags.Verbose || flags.JSONLog {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}
	return logging.InitLogger(cfg.GetLogging())
}

// BuildCLIContainer loads configuration and logging from the flags and
// creates the container for one command invocation
func BuildCLIContainer(ctx context.Context, flags *CLIFlags) (*dig.Container, *zap.Logger, error) {
	cfg, err := LoadConfig(flags)
	if err != nil {
		return nil, nil, err
	}
	logger, err := NewLogger(flags, cfg)
	if err != nil {
		return nil, nil, err
	}
	if used := cfg.GetViper().ConfigFileUsed(); used != "" {
		logger.Debug("Loaded configuration from file", zap.String("file", used))
	}

	container, err := BuildContainer(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return container, logger, nil
}
