package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mikey/mail-triage/internal/core"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance. An explicit configFile replaces
// the search paths.
func New(configFile string) (*Config, error) {
	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/mail-triage/")
		v.AddConfigPath("$HOME/.mail-triage")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Set defaults
	setDefaults(v)

	// Environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix("MAIL_TRIAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Scan defaults
	v.SetDefault("scan.mode", string(core.ScanIncremental))
	v.SetDefault("scan.max_emails", 0)
	v.SetDefault("scan.days_back", 0)
	v.SetDefault("scan.batch_size", 50)
	v.SetDefault("scan.query", "in:inbox")
	v.SetDefault("scan.apply_labels", true)

	// Worker defaults
	v.SetDefault("workers.concurrency", 4)
	v.SetDefault("workers.rate_per_second", 10.0)
	v.SetDefault("workers.burst", 10)
	v.SetDefault("workers.max_retries", 3)
	v.SetDefault("workers.backoff_base", "1s")
	v.SetDefault("workers.backoff_max", "30s")

	// Classifier defaults
	v.SetDefault("classifier.confidence_threshold", 0.5)
	v.SetDefault("classifier.default_weight", 1.0)
	v.SetDefault("classifier.weights.rules", 1.0)
	v.SetDefault("classifier.weights.naive_bayes", 1.0)
	v.SetDefault("classifier.weights.centroid", 0.8)
	v.SetDefault("classifier.weights.logistic", 1.2)
	v.SetDefault("classifier.weights.semantic", 1.0)
	v.SetDefault("classifier.weights.llm", 1.5)
	v.SetDefault("classifier.llm.enabled", false)
	v.SetDefault("classifier.llm.max_body_size", 2000)
	v.SetDefault("classifier.max_body_size", 4000)
	v.SetDefault("taxonomy.variant", string(core.TaxonomyConsolidated))

	// Rule table defaults
	v.SetDefault("rules.path", "")
	v.SetDefault("rules.learned_dir", "./data/rules")

	// Review defaults
	v.SetDefault("review.cluster_count", 5)
	v.SetDefault("review.algorithm", "kmeans")
	v.SetDefault("review.density_eps", 0.6)
	v.SetDefault("review.density_min_points", 2)
	v.SetDefault("review.sample_size", 3)
	v.SetDefault("review.low_confidence_ceiling", 0.65)
	v.SetDefault("review.low_confidence_limit", 20)
	v.SetDefault("review.retrain_on_finish", true)
	v.SetDefault("review.learn_domain_min", 3)

	// Training defaults
	v.SetDefault("training.validation_split", 0.2)
	v.SetDefault("training.seed", 42)
	v.SetDefault("training.max_features", 5000)
	v.SetDefault("training.min_df", 1)
	v.SetDefault("training.max_df", 0.9)
	v.SetDefault("training.regression_tolerance", 0.0)
	v.SetDefault("training.epochs", 40)

	// Persistence defaults
	v.SetDefault("snapshot.dir", "./data/snapshots")
	v.SetDefault("state.path", "./data/scan_state.json")
	v.SetDefault("storage.type", "sqlite")
	v.SetDefault("storage.sqlite_path", "./data/mail_triage.db")
	v.SetDefault("storage.mysql_dsn", "user:password@tcp(localhost:3306)/mail_triage")
	v.SetDefault("storage.retention", "2160h")
	v.SetDefault("storage.cleanup_frequency", "24h")

	// Embedder and LLM provider defaults
	v.SetDefault("embedder.provider", "hashing")
	v.SetDefault("embedder.dimension", 384)
	v.SetDefault("llm.provider", "openai")

	// Bedrock defaults
	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.model_id", "anthropic.claude-3-haiku-20240307-v1:0")
	v.SetDefault("bedrock.embedding_model_id", "amazon.titan-embed-text-v2:0")
	v.SetDefault("bedrock.embedding_dimensions", 512)
	v.SetDefault("bedrock.max_tokens", 200)
	v.SetDefault("bedrock.temperature", 0.1)
	v.SetDefault("bedrock.top_p", 0.9)
	v.SetDefault("bedrock.max_body_size", 4096)

	// Gemini defaults
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "gemini-1.5-flash")
	v.SetDefault("gemini.embedding_model", "text-embedding-004")
	v.SetDefault("gemini.embedding_dimension", 768)
	v.SetDefault("gemini.max_tokens", 200)
	v.SetDefault("gemini.temperature", 0.1)
	v.SetDefault("gemini.top_p", 0.9)
	v.SetDefault("gemini.max_body_size", 4096)

	// OpenAI defaults
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.model_name", "gpt-4o-mini")
	v.SetDefault("openai.embedding_model", "text-embedding-3-small")
	v.SetDefault("openai.embedding_dimensions", 384)
	v.SetDefault("openai.max_tokens", 200)
	v.SetDefault("openai.temperature", 0.1)
	v.SetDefault("openai.top_p", 0.9)
	v.SetDefault("openai.max_body_size", 4096)

	// Gmail defaults
	v.SetDefault("gmail.credentials_file", "./data/credentials.json")
	v.SetDefault("gmail.token_file", "./data/token.json")
	v.SetDefault("gmail.user", "me")
	v.SetDefault("gmail.page_size", 100)
	v.SetDefault("gmail.breaker.failures", 5)
	v.SetDefault("gmail.breaker.open_delay", "30s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// Set overrides a key, used for command-line flags
func (c *Config) Set(key string, value interface{}) {
	c.v.Set(key, value)
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	d, err := time.ParseDuration(c.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return d, nil
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}

// RunConfig returns the validated, immutable scan configuration
func (c *Config) RunConfig() (core.RunConfig, error) {
	rc := core.RunConfig{
		ScanMode:            core.ScanMode(c.GetString("scan.mode")),
		MaxEmails:           c.GetInt("scan.max_emails"),
		DaysBack:            c.GetInt("scan.days_back"),
		BatchSize:           c.GetInt("scan.batch_size"),
		Concurrency:         c.GetInt("workers.concurrency"),
		ConfidenceThreshold: c.GetFloat64("classifier.confidence_threshold"),
		ClusterCount:        c.GetInt("review.cluster_count"),
		TaxonomyVariant:     core.TaxonomyVariant(c.GetString("taxonomy.variant")),
		Query:               c.GetString("scan.query"),
		ApplyLabels:         c.GetBool("scan.apply_labels"),
	}
	if err := rc.Validate(); err != nil {
		return core.RunConfig{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return rc, nil
}
