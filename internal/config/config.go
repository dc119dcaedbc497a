// Package config handles configuration loading for FinSum.
// It supports YAML config files, an optional .env file, and environment
// variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultSymbols is the watch list refreshed by the scheduler when none is configured.
var DefaultSymbols = []string{
	"TSLA", "NVDA", "AAPL", "GOOGL", "AMZN", "XRP", "MSFT", "META", "NFLX", "BABA", "BAC",
}

// Config represents the complete application configuration.
type Config struct {
	LLM       LLMConfig       `mapstructure:"llm"       yaml:"llm"`
	Sentiment SentimentConfig `mapstructure:"sentiment" yaml:"sentiment"`
	Refresh   RefreshConfig   `mapstructure:"refresh"   yaml:"refresh"`
	Sources   SourcesConfig   `mapstructure:"sources"   yaml:"sources"`
	Cache     CacheConfig     `mapstructure:"cache"     yaml:"cache"`
	API       APIConfig       `mapstructure:"api"       yaml:"api"`
	Logging   LoggingConfig   `mapstructure:"logging"   yaml:"logging"`
}

// LLMConfig holds the hosted language-model settings.
type LLMConfig struct {
	OpenAIKey          string  `mapstructure:"openai_key"          yaml:"openai_key"`
	BaseURL            string  `mapstructure:"base_url"            yaml:"base_url"`
	Model              string  `mapstructure:"model"               yaml:"model"`
	SummaryTemperature float64 `mapstructure:"summary_temperature" yaml:"summary_temperature"`
	AnswerTemperature  float64 `mapstructure:"answer_temperature"  yaml:"answer_temperature"`
	MaxTokens          int     `mapstructure:"max_tokens"          yaml:"max_tokens"` // 0 = provider default
	TimeoutSec         int     `mapstructure:"timeout_sec"         yaml:"timeout_sec"`
}

// SentimentConfig selects and configures the sentiment backend.
type SentimentConfig struct {
	UseFinBERT bool   `mapstructure:"use_finbert" yaml:"use_finbert"`
	FinBERTURL string `mapstructure:"finbert_url" yaml:"finbert_url"`
	HFToken    string `mapstructure:"hf_token"    yaml:"hf_token"`
}

// RefreshConfig holds the background refresh settings.
type RefreshConfig struct {
	IntervalMinutes int      `mapstructure:"interval_minutes" yaml:"interval_minutes"`
	MaxAgeMinutes   int      `mapstructure:"max_age_minutes"  yaml:"max_age_minutes"`
	Symbols         []string `mapstructure:"symbols"          yaml:"symbols"`
	NewsLimit       int      `mapstructure:"news_limit"       yaml:"news_limit"`
	Concurrency     int      `mapstructure:"concurrency"      yaml:"concurrency"`
}

// SourcesConfig holds market-data and news endpoint settings.
type SourcesConfig struct {
	QuoteURL          string  `mapstructure:"quote_url"           yaml:"quote_url"`
	NewsFeedURL       string  `mapstructure:"news_feed_url"       yaml:"news_feed_url"`
	SearchURL         string  `mapstructure:"search_url"          yaml:"search_url"`
	TimeoutSec        int     `mapstructure:"timeout_sec"         yaml:"timeout_sec"`
	RetryMax          int     `mapstructure:"retry_max"           yaml:"retry_max"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	DisablePrimary    bool    `mapstructure:"disable_primary"     yaml:"disable_primary"` // synthetic data only
}

// CacheConfig holds summary cache settings.
type CacheConfig struct {
	SummaryMaxEntries int `mapstructure:"summary_max_entries" yaml:"summary_max_entries"` // 0 = unbounded
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "console" or "json"
}

// RefreshInterval returns the scheduler period.
func (c RefreshConfig) RefreshInterval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// MaxAge returns how old a snapshot may get before a read triggers a refresh.
func (c RefreshConfig) MaxAge() time.Duration {
	return time.Duration(c.MaxAgeMinutes) * time.Minute
}

// Timeout returns the per-request timeout for data sources.
func (c SourcesConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// Timeout returns the per-request timeout for the language model.
func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// Addr returns the listen address for the API server.
func (c APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load reads the configuration from .env, file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.finsum/config.yaml (home directory)
//  3. /etc/finsum/config.yaml (system)
//
// Environment variables override config file values.
// Format: FINSUM_<SECTION>_<KEY>, e.g., FINSUM_REFRESH_INTERVAL_MINUTES
func Load() (*Config, error) {
	loadDotEnv()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".finsum"))
	v.AddConfigPath("/etc/finsum")

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return unmarshal(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadDotEnv()

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	return unmarshal(v)
}

// Default returns the built-in configuration without reading files or env.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Validate reports settings the application cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Refresh.IntervalMinutes <= 0 {
		errs = append(errs, fmt.Errorf("refresh.interval_minutes must be positive, got %d", c.Refresh.IntervalMinutes))
	}
	if c.Refresh.MaxAgeMinutes <= 0 {
		errs = append(errs, fmt.Errorf("refresh.max_age_minutes must be positive, got %d", c.Refresh.MaxAgeMinutes))
	}
	if c.Refresh.NewsLimit <= 0 {
		errs = append(errs, fmt.Errorf("refresh.news_limit must be positive, got %d", c.Refresh.NewsLimit))
	}
	if c.Refresh.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("refresh.concurrency must be positive, got %d", c.Refresh.Concurrency))
	}
	if len(c.Refresh.Symbols) == 0 {
		errs = append(errs, errors.New("refresh.symbols must not be empty"))
	}
	if c.Sources.RetryMax < 0 {
		errs = append(errs, fmt.Errorf("sources.retry_max must not be negative, got %d", c.Sources.RetryMax))
	}
	if c.Cache.SummaryMaxEntries < 0 {
		errs = append(errs, fmt.Errorf("cache.summary_max_entries must not be negative, got %d", c.Cache.SummaryMaxEntries))
	}
	if c.Sentiment.UseFinBERT && c.Sentiment.FinBERTURL == "" {
		errs = append(errs, errors.New("sentiment.finbert_url is required when use_finbert is set"))
	}
	return errors.Join(errs...)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("FINSUM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// LLM defaults
	v.SetDefault("llm.openai_key", "")
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.model", "gpt-3.5-turbo")
	v.SetDefault("llm.summary_temperature", 0.2)
	v.SetDefault("llm.answer_temperature", 0.0)
	v.SetDefault("llm.max_tokens", 0)
	v.SetDefault("llm.timeout_sec", 60)

	// Sentiment defaults
	v.SetDefault("sentiment.use_finbert", false)
	v.SetDefault("sentiment.hf_token", "")
	v.SetDefault("sentiment.finbert_url", "https://api-inference.huggingface.co/models/ProsusAI/finbert")

	// Refresh defaults
	v.SetDefault("refresh.interval_minutes", 30)
	v.SetDefault("refresh.max_age_minutes", 30)
	v.SetDefault("refresh.symbols", DefaultSymbols)
	v.SetDefault("refresh.news_limit", 5)
	v.SetDefault("refresh.concurrency", 4)

	// Source defaults
	v.SetDefault("sources.quote_url", "https://query1.finance.yahoo.com")
	v.SetDefault("sources.news_feed_url", "https://feeds.finance.yahoo.com/rss/2.0/headline")
	v.SetDefault("sources.search_url", "https://www.google.com/search")
	v.SetDefault("sources.timeout_sec", 15)
	v.SetDefault("sources.retry_max", 2)
	v.SetDefault("sources.requests_per_second", 5.0)
	v.SetDefault("sources.disable_primary", false)

	v.SetDefault("cache.summary_max_entries", 0)

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8086)
	v.SetDefault("api.cors_origins", []string{"*"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// overrideFromEnv reads the conventional variable names used by deployments
// that predate the FINSUM_ prefix.
func overrideFromEnv(cfg *Config) {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && cfg.LLM.OpenAIKey == "" {
		cfg.LLM.OpenAIKey = key
	}
	if tok := os.Getenv("HF_API_TOKEN"); tok != "" && cfg.Sentiment.HFToken == "" {
		cfg.Sentiment.HFToken = tok
	}
	if raw := os.Getenv("USE_FINBERT"); raw != "" {
		if on, err := strconv.ParseBool(strings.TrimSpace(raw)); err == nil {
			cfg.Sentiment.UseFinBERT = on
		}
	}
}

// loadDotEnv populates the process environment from ./.env when present.
// Variables already set in the environment win.
func loadDotEnv() {
	_ = godotenv.Load()
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
