// Package config resolves txmatch settings from flags, environment and the
// config file through viper.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Veraticus/txmatch/internal/common"
	"github.com/Veraticus/txmatch/internal/model"
)

// Storage backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Scorer names.
const (
	ScorerBase    = "base"
	ScorerAccount = "account"
)

// Config is the resolved application configuration.
type Config struct {
	Logging        LoggingConfig
	ChartPath      string
	RulesPath      string
	MappingsPath   string
	StorageBackend string
	DatabasePath   string
	LLM            LLMConfig
	Matching       MatchingConfig
	Server         ServerConfig
}

// MatchingConfig controls the two matching passes.
type MatchingConfig struct {
	Scorer            string
	Threshold         float64
	MappingConfidence float64
}

// LLMConfig controls the fallback pass and its provider client.
type LLMConfig struct {
	Provider        string
	Model           string
	BaseURL         string
	OpenAIAPIKey    string
	AnthropicAPIKey string
	Temperature     float64
	MaxTokens       int
	MaxRetries      int
	RetryDelay      time.Duration
	CacheTTL        time.Duration
	Timeout         time.Duration
	RateLimit       int
	Concurrency     int
	Enabled         bool
}

// APIKey returns the key for the configured provider.
func (c LLMConfig) APIKey() string {
	switch c.Provider {
	case "anthropic":
		return c.AnthropicAPIKey
	default:
		return c.OpenAIAPIKey
	}
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	CertDir string
	Port    int
	TLS     bool
}

// LoggingConfig selects the slog level and handler.
type LoggingConfig struct {
	Level  string
	Format string
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("chart.path", "data/chart_of_accounts.json")
	v.SetDefault("rules.path", "data/rules.json")
	v.SetDefault("mappings.path", "data/mappings.json")
	v.SetDefault("storage.backend", BackendFile)
	v.SetDefault("database.path", "~/.local/share/txmatch/txmatch.db")

	v.SetDefault("matching.threshold", 0.80)
	v.SetDefault("matching.mapping_confidence", 1.0)
	v.SetDefault("matching.scorer", ScorerBase)

	v.SetDefault("llm.enabled", true)
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("llm.max_tokens", 256)
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.retry_delay", "1s")
	v.SetDefault("llm.cache_ttl", "15m")
	v.SetDefault("llm.rate_limit", 60)
	v.SetDefault("llm.concurrency", 5)
	v.SetDefault("llm.timeout", "30s")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.tls", false)
	v.SetDefault("server.cert_dir", "~/.config/txmatch/certs")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// Load resolves the configuration from v, which defaults to the global viper
// instance. Provider keys fall back to OPENAI_API_KEY and ANTHROPIC_API_KEY.
func Load(v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.GetViper()
	}
	SetDefaults(v)

	cfg := &Config{
		ChartPath:      ExpandPath(v.GetString("chart.path")),
		RulesPath:      ExpandPath(v.GetString("rules.path")),
		MappingsPath:   ExpandPath(v.GetString("mappings.path")),
		StorageBackend: strings.ToLower(v.GetString("storage.backend")),
		DatabasePath:   ExpandPath(v.GetString("database.path")),
		Matching: MatchingConfig{
			Threshold:         v.GetFloat64("matching.threshold"),
			MappingConfidence: v.GetFloat64("matching.mapping_confidence"),
			Scorer:            strings.ToLower(v.GetString("matching.scorer")),
		},
		LLM: LLMConfig{
			Enabled:         v.GetBool("llm.enabled"),
			Provider:        strings.ToLower(v.GetString("llm.provider")),
			Model:           v.GetString("llm.model"),
			BaseURL:         v.GetString("llm.base_url"),
			OpenAIAPIKey:    v.GetString("llm.openai_api_key"),
			AnthropicAPIKey: v.GetString("llm.anthropic_api_key"),
			Temperature:     v.GetFloat64("llm.temperature"),
			MaxTokens:       v.GetInt("llm.max_tokens"),
			MaxRetries:      v.GetInt("llm.max_retries"),
			RetryDelay:      v.GetDuration("llm.retry_delay"),
			CacheTTL:        v.GetDuration("llm.cache_ttl"),
			RateLimit:       v.GetInt("llm.rate_limit"),
			Concurrency:     v.GetInt("llm.concurrency"),
			Timeout:         v.GetDuration("llm.timeout"),
		},
		Server: ServerConfig{
			Port:    v.GetInt("server.port"),
			TLS:     v.GetBool("server.tls"),
			CertDir: ExpandPath(v.GetString("server.cert_dir")),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
	}

	// Override with direct environment variables if not set
	if cfg.LLM.OpenAIAPIKey == "" {
		cfg.LLM.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.LLM.AnthropicAPIKey == "" {
		cfg.LLM.AnthropicAPIKey = os.Getenv("ANTHROPIC_API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations. Missing API keys are not an
// error here; the fallback pass is disabled when none is available.
func (c *Config) Validate() error {
	if c.ChartPath == "" {
		return fmt.Errorf("%w: chart.path", common.ErrMissingConfig)
	}
	switch c.StorageBackend {
	case BackendFile:
		if c.RulesPath == "" || c.MappingsPath == "" {
			return fmt.Errorf("%w: rules.path and mappings.path", common.ErrMissingConfig)
		}
	case BackendSQLite:
		if c.DatabasePath == "" {
			return fmt.Errorf("%w: database.path", common.ErrMissingConfig)
		}
	default:
		return fmt.Errorf("%w: storage.backend %q", common.ErrInvalidConfig, c.StorageBackend)
	}

	if !model.ValidConfidence(c.Matching.Threshold) {
		return fmt.Errorf("%w: matching.threshold %.2f outside [0,1]", common.ErrInvalidConfig, c.Matching.Threshold)
	}
	if !model.ValidConfidence(c.Matching.MappingConfidence) {
		return fmt.Errorf("%w: matching.mapping_confidence %.2f outside [0,1]", common.ErrInvalidConfig, c.Matching.MappingConfidence)
	}
	switch c.Matching.Scorer {
	case ScorerBase, ScorerAccount:
	default:
		return fmt.Errorf("%w: matching.scorer %q", common.ErrInvalidConfig, c.Matching.Scorer)
	}

	switch c.LLM.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("%w: llm.provider %q", common.ErrInvalidConfig, c.LLM.Provider)
	}
	if c.LLM.Concurrency < 1 {
		return fmt.Errorf("%w: llm.concurrency must be at least 1", common.ErrInvalidConfig)
	}
	if c.LLM.MaxRetries < 1 {
		return fmt.Errorf("%w: llm.max_retries must be at least 1", common.ErrInvalidConfig)
	}

	if _, err := common.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("%w: logging.format %q", common.ErrInvalidConfig, c.Logging.Format)
	}
	return nil
}
