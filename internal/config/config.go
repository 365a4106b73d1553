// Package config provides configuration management for the newsletter
// data-retrieval core.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/creasty/defaults"
	"github.com/spf13/viper"

	"marketbrief/internal/models"
)

// Config holds all application configuration. The aggregation facade receives
// a Config; adapters receive individual values and never perform lookups
// themselves.
type Config struct {
	Cache       CacheConfig    `mapstructure:"cache"`
	Concerns    ConcernsConfig `mapstructure:"concerns"`
	Retry       RetryConfig    `mapstructure:"retry"`
	Credentials Credentials    `mapstructure:"-"` // Loaded separately
	LLM         LLMConfig      `mapstructure:"llm"`
}

// CacheConfig holds cache store configuration.
type CacheConfig struct {
	Backend   string `mapstructure:"backend" default:"memory"` // "memory", "redis"
	RedisAddr string `mapstructure:"redis_addr" default:"localhost:6379"`
	RedisDB   int    `mapstructure:"redis_db"`
}

// ConcernsConfig holds per-concern TTLs and lookback windows.
type ConcernsConfig struct {
	TreasuryTTLHours     int `mapstructure:"treasury_ttl_hours" default:"24"`
	InflationTTLHours    int `mapstructure:"inflation_ttl_hours" default:"24"`
	FedPolicyTTLHours    int `mapstructure:"fed_policy_ttl_hours" default:"12"`
	FundamentalsTTLHours int `mapstructure:"fundamentals_ttl_hours" default:"24"`
	GeopoliticsTTLHours  int `mapstructure:"geopolitics_ttl_hours" default:"2"`
	EventLookbackDays    int `mapstructure:"event_lookback_days" default:"7"`
	RiskLookbackDays     int `mapstructure:"risk_lookback_days" default:"14"`
}

// RetryConfig holds retry behavior configuration.
type RetryConfig struct {
	MaxRetries  int `mapstructure:"max_retries" default:"3"`
	BaseDelayMs int `mapstructure:"base_delay_ms" default:"500"`
}

// LLMConfig holds LLM provider selection.
type LLMConfig struct {
	OpenAIModel     string  `mapstructure:"openai_model" default:"gpt-4o"`
	PerplexityModel string  `mapstructure:"perplexity_model" default:"sonar-pro"`
	PerplexityURL   string  `mapstructure:"perplexity_url" default:"https://api.perplexity.ai"`
	Temperature     float32 `mapstructure:"temperature" default:"0.2"`
	MaxTokens       int     `mapstructure:"max_tokens" default:"2048"`
}

// Credentials holds API credentials for the upstream providers.
type Credentials struct {
	FREDAPIKey         string `mapstructure:"fred_api_key"`
	AlphaVantageAPIKey string `mapstructure:"alphavantage_api_key"`
	TradierAPIKey      string `mapstructure:"tradier_api_key"`
	FMPAPIKey          string `mapstructure:"fmp_api_key"`
	FinnhubAPIKey      string `mapstructure:"finnhub_api_key"`
	OpenAIAPIKey       string `mapstructure:"openai_api_key"`
	PerplexityAPIKey   string `mapstructure:"perplexity_api_key"`
}

// Redacted returns the provider names that carry a key, with the key material
// masked. Credentials never appear in logs or CLI output in the clear.
func (c Credentials) Redacted() map[string]string {
	keys := map[string]string{
		"fred":         c.FREDAPIKey,
		"alphavantage": c.AlphaVantageAPIKey,
		"tradier":      c.TradierAPIKey,
		"fmp":          c.FMPAPIKey,
		"finnhub":      c.FinnhubAPIKey,
		"openai":       c.OpenAIAPIKey,
		"perplexity":   c.PerplexityAPIKey,
	}
	out := make(map[string]string, len(keys))
	for provider, key := range keys {
		out[provider] = redactKey(key)
	}
	return out
}

func redactKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/marketbrief"
	}
	return filepath.Join(home, ".config", "marketbrief")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("applying defaults: %w", err)
	}

	if err := loadConfigFile(configDir, "config", cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir, name string, target interface{}) error {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createTemplateConfig(configDir)
		}
		return err
	}

	return v.Unmarshal(target)
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createTemplateCredentials(configDir)
		}
		return err
	}

	return v.Unmarshal(creds)
}

func applyEnvOverrides(cfg *Config) {
	overrides := map[string]*string{
		"FRED_API_KEY":         &cfg.Credentials.FREDAPIKey,
		"ALPHAVANTAGE_API_KEY": &cfg.Credentials.AlphaVantageAPIKey,
		"TRADIER_API_KEY":      &cfg.Credentials.TradierAPIKey,
		"FMP_API_KEY":          &cfg.Credentials.FMPAPIKey,
		"FINNHUB_API_KEY":      &cfg.Credentials.FinnhubAPIKey,
		"OPENAI_API_KEY":       &cfg.Credentials.OpenAIAPIKey,
		"PERPLEXITY_API_KEY":   &cfg.Credentials.PerplexityAPIKey,
	}
	for env, target := range overrides {
		if v := os.Getenv(env); v != "" {
			*target = v
		}
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Cache.Backend != "memory" && c.Cache.Backend != "redis" {
		return fmt.Errorf("invalid cache backend: %s (must be 'memory' or 'redis')", c.Cache.Backend)
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be non-negative")
	}
	if c.Retry.BaseDelayMs <= 0 {
		return fmt.Errorf("base_delay_ms must be positive")
	}
	if c.Concerns.GeopoliticsTTLHours <= 0 {
		return fmt.Errorf("geopolitics_ttl_hours must be positive")
	}
	if c.Concerns.RiskLookbackDays < c.Concerns.EventLookbackDays {
		return fmt.Errorf("risk_lookback_days must be at least event_lookback_days")
	}
	return nil
}

// ConcernSet builds the concern registry from configuration: provider
// priority order, TTLs, lookback windows and merge rules.
func (c *Config) ConcernSet() map[models.ConcernName]models.Concern {
	return map[models.ConcernName]models.Concern{
		models.ConcernTreasuryYields: {
			Name:      models.ConcernTreasuryYields,
			Providers: []string{"fred", "alphavantage", "yahoo"},
			TTL:       time.Duration(c.Concerns.TreasuryTTLHours) * time.Hour,
			Merge:     models.MergeFirstSuccess,
		},
		models.ConcernInflation: {
			Name:      models.ConcernInflation,
			Providers: []string{"fred", "alphavantage", "perplexity"},
			TTL:       time.Duration(c.Concerns.InflationTTLHours) * time.Hour,
			Merge:     models.MergeFirstSuccess,
		},
		models.ConcernFedPolicy: {
			Name:      models.ConcernFedPolicy,
			Providers: []string{"fred", "perplexity"},
			TTL:       time.Duration(c.Concerns.FedPolicyTTLHours) * time.Hour,
			Merge:     models.MergeFirstSuccess,
		},
		models.ConcernFundamentals: {
			Name:      models.ConcernFundamentals,
			Providers: []string{"tradier", "fmp", "finnhub"},
			TTL:       time.Duration(c.Concerns.FundamentalsTTLHours) * time.Hour,
			Merge:     models.MergeBackfill,
		},
		models.ConcernGeopoliticalRisks: {
			Name:      models.ConcernGeopoliticalRisks,
			Providers: []string{"openai", "perplexity"},
			TTL:       time.Duration(c.Concerns.GeopoliticsTTLHours) * time.Hour,
			Lookback:  time.Duration(c.Concerns.RiskLookbackDays) * 24 * time.Hour,
			Merge:     models.MergeFirstSuccess,
		},
	}
}

// EventLookback returns the recency window for discovered events.
func (c *Config) EventLookback() time.Duration {
	return time.Duration(c.Concerns.EventLookbackDays) * 24 * time.Hour
}
