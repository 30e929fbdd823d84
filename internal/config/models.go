package config

import (
	"fmt"
	"strings"
	"time"
)

// WorkersConfig represents the worker pool and rate limiter settings
type WorkersConfig struct {
	Concurrency   int
	RatePerSecond float64
	Burst         int
	MaxRetries    int
	BackoffBase   time.Duration
	BackoffMax    time.Duration
}

// ClassifierConfig represents the arbiter and ensemble settings
type ClassifierConfig struct {
	ConfidenceThreshold float64
	DefaultWeight       float64
	Weights             map[string]float64
	LLMEnabled          bool
	LLMMaxBodySize      int
	MaxBodySize         int
}

// RulesConfig represents where rule tables are read from and written to
type RulesConfig struct {
	Path       string
	LearnedDir string
}

// ReviewConfig represents the active-learning review settings
type ReviewConfig struct {
	ClusterCount         int
	Algorithm            string
	DensityEps           float64
	DensityMinPoints     int
	SampleSize           int
	LowConfidenceCeiling float64
	LowConfidenceLimit   int
	RetrainOnFinish      bool
	LearnDomainMin       int
}

// TrainingConfig represents the retraining settings
type TrainingConfig struct {
	ValidationSplit     float64
	Seed                uint64
	MaxFeatures         int
	MinDF               int
	MaxDF               float64
	RegressionTolerance float64
	Epochs              int
}

// StorageConfig represents the result and correction log backend
type StorageConfig struct {
	Type             string
	SQLitePath       string
	MySQLDSN         string
	Retention        time.Duration
	CleanupFrequency time.Duration
}

// EmbedderConfig represents the semantic model embedding provider
type EmbedderConfig struct {
	Provider  string
	Dimension int
}

// LLMConfig represents the configuration for the LLM provider
type LLMConfig struct {
	Provider string
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region              string
	ModelID             string
	EmbeddingModelID    string
	EmbeddingDimensions int
	MaxTokens           int
	Temperature         float32
	TopP                float32
	MaxBodySize         int
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey             string
	ModelName          string
	EmbeddingModel     string
	EmbeddingDimension int
	MaxTokens          int
	Temperature        float32
	TopP               float32
	MaxBodySize        int
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey              string
	BaseURL             string
	ModelName           string
	EmbeddingModel      string
	EmbeddingDimensions int
	MaxTokens           int
	Temperature         float32
	TopP                float32
	MaxBodySize         int
}

// GmailConfig represents the Gmail client settings
type GmailConfig struct {
	CredentialsFile  string
	TokenFile        string
	User             string
	PageSize         int64
	BreakerFailures  uint32
	BreakerOpenDelay time.Duration
}

// LoggingConfig represents the logger settings
type LoggingConfig struct {
	Level  string
	Format string
}

// GetWorkers returns the worker configuration
func (c *Config) GetWorkers() (WorkersConfig, error) {
	base, err := c.GetDuration("workers.backoff_base")
	if err != nil {
		return WorkersConfig{}, err
	}
	maxDelay, err := c.GetDuration("workers.backoff_max")
	if err != nil {
		return WorkersConfig{}, err
	}
	w := WorkersConfig{
		Concurrency:   c.GetInt("workers.concurrency"),
		RatePerSecond: c.GetFloat64("workers.rate_per_second"),
		Burst:         c.GetInt("workers.burst"),
		MaxRetries:    c.GetInt("workers.max_retries"),
		BackoffBase:   base,
		BackoffMax:    maxDelay,
	}
	if w.RatePerSecond <= 0 || w.Burst <= 0 {
		return WorkersConfig{}, fmt.Errorf("workers.rate_per_second and workers.burst must be positive")
	}
	if w.MaxRetries < 0 {
		return WorkersConfig{}, fmt.Errorf("workers.max_retries must not be negative")
	}
	return w, nil
}

// GetClassifier returns the classifier configuration
func (c *Config) GetClassifier() ClassifierConfig {
	const prefix = "classifier.weights."
	weights := make(map[string]float64)
	for _, key := range c.v.AllKeys() {
		if model, ok := strings.CutPrefix(key, prefix); ok {
			weights[model] = c.GetFloat64(key)
		}
	}
	return ClassifierConfig{
		ConfidenceThreshold: c.GetFloat64("classifier.confidence_threshold"),
		DefaultWeight:       c.GetFloat64("classifier.default_weight"),
		Weights:             weights,
		LLMEnabled:          c.GetBool("classifier.llm.enabled"),
		LLMMaxBodySize:      c.GetInt("classifier.llm.max_body_size"),
		MaxBodySize:         c.GetInt("classifier.max_body_size"),
	}
}

// GetRules returns the rule table configuration
func (c *Config) GetRules() RulesConfig {
	return RulesConfig{
		Path:       c.GetString("rules.path"),
		LearnedDir: c.GetString("rules.learned_dir"),
	}
}

// GetReview returns the review configuration
func (c *Config) GetReview() ReviewConfig {
	return ReviewConfig{
		ClusterCount:         c.GetInt("review.cluster_count"),
		Algorithm:            c.GetString("review.algorithm"),
		DensityEps:           c.GetFloat64("review.density_eps"),
		DensityMinPoints:     c.GetInt("review.density_min_points"),
		SampleSize:           c.GetInt("review.sample_size"),
		LowConfidenceCeiling: c.GetFloat64("review.low_confidence_ceiling"),
		LowConfidenceLimit:   c.GetInt("review.low_confidence_limit"),
		RetrainOnFinish:      c.GetBool("review.retrain_on_finish"),
		LearnDomainMin:       c.GetInt("review.learn_domain_min"),
	}
}

// GetTraining returns the training configuration
func (c *Config) GetTraining() TrainingConfig {
	return TrainingConfig{
		ValidationSplit:     c.GetFloat64("training.validation_split"),
		Seed:                c.v.GetUint64("training.seed"),
		MaxFeatures:         c.GetInt("training.max_features"),
		MinDF:               c.GetInt("training.min_df"),
		MaxDF:               c.GetFloat64("training.max_df"),
		RegressionTolerance: c.GetFloat64("training.regression_tolerance"),
		Epochs:              c.GetInt("training.epochs"),
	}
}

// GetStorage returns the storage configuration
func (c *Config) GetStorage() (StorageConfig, error) {
	retention, err := c.GetDuration("storage.retention")
	if err != nil {
		return StorageConfig{}, err
	}
	cleanup, err := c.GetDuration("storage.cleanup_frequency")
	if err != nil {
		return StorageConfig{}, err
	}
	return StorageConfig{
		Type:             c.GetString("storage.type"),
		SQLitePath:       c.GetString("storage.sqlite_path"),
		MySQLDSN:         c.GetString("storage.mysql_dsn"),
		Retention:        retention,
		CleanupFrequency: cleanup,
	}, nil
}

// GetEmbedder returns the embedder configuration
func (c *Config) GetEmbedder() EmbedderConfig {
	return EmbedderConfig{
		Provider:  c.GetString("embedder.provider"),
		Dimension: c.GetInt("embedder.dimension"),
	}
}

// GetLLM returns the LLM configuration
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider: c.GetString("llm.provider"),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:              c.GetString("bedrock.region"),
		ModelID:             c.GetString("bedrock.model_id"),
		EmbeddingModelID:    c.GetString("bedrock.embedding_model_id"),
		EmbeddingDimensions: c.GetInt("bedrock.embedding_dimensions"),
		MaxTokens:           c.GetInt("bedrock.max_tokens"),
		Temperature:         float32(c.GetFloat64("bedrock.temperature")),
		TopP:                float32(c.GetFloat64("bedrock.top_p")),
		MaxBodySize:         c.GetInt("bedrock.max_body_size"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:             c.GetString("gemini.api_key"),
		ModelName:          c.GetString("gemini.model_name"),
		EmbeddingModel:     c.GetString("gemini.embedding_model"),
		EmbeddingDimension: c.GetInt("gemini.embedding_dimension"),
		MaxTokens:          c.GetInt("gemini.max_tokens"),
		Temperature:        float32(c.GetFloat64("gemini.temperature")),
		TopP:               float32(c.GetFloat64("gemini.top_p")),
		MaxBodySize:        c.GetInt("gemini.max_body_size"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:              c.GetString("openai.api_key"),
		BaseURL:             c.GetString("openai.base_url"),
		ModelName:           c.GetString("openai.model_name"),
		EmbeddingModel:      c.GetString("openai.embedding_model"),
		EmbeddingDimensions: c.GetInt("openai.embedding_dimensions"),
		MaxTokens:           c.GetInt("openai.max_tokens"),
		Temperature:         float32(c.GetFloat64("openai.temperature")),
		TopP:                float32(c.GetFloat64("openai.top_p")),
		MaxBodySize:         c.GetInt("openai.max_body_size"),
	}
}

// GetGmail returns the Gmail configuration
func (c *Config) GetGmail() (GmailConfig, error) {
	delay, err := c.GetDuration("gmail.breaker.open_delay")
	if err != nil {
		return GmailConfig{}, err
	}
	return GmailConfig{
		CredentialsFile:  c.GetString("gmail.credentials_file"),
		TokenFile:        c.GetString("gmail.token_file"),
		User:             c.GetString("gmail.user"),
		PageSize:         c.v.GetInt64("gmail.page_size"),
		BreakerFailures:  c.v.GetUint32("gmail.breaker.failures"),
		BreakerOpenDelay: delay,
	}, nil
}

// GetLogging returns the logging configuration
func (c *Config) GetLogging() LoggingConfig {
	return LoggingConfig{
		Level:  c.GetString("logging.level"),
		Format: c.GetString("logging.format"),
	}
}

// GetSnapshotDir returns the snapshot store directory
func (c *Config) GetSnapshotDir() string {
	return c.GetString("snapshot.dir")
}

// GetStatePath returns the scan state file path
func (c *Config) GetStatePath() string {
	return c.GetString("state.path")
}
