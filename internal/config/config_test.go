package config

import (
	"strings"
	"testing"

	"github.com/creasty/defaults"

	"marketbrief/internal/models"
)

func defaultConfig(t *testing.T) *Config {
	t.Helper()
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		t.Fatalf("applying defaults: %v", err)
	}
	return cfg
}

func TestDefaultsValidate(t *testing.T) {
	cfg := defaultConfig(t)
	if err := cfg.Validate(); err != nil {
		t.Errorf("default configuration rejected: %v", err)
	}
	if cfg.Cache.Backend != "memory" {
		t.Errorf("default backend = %q", cfg.Cache.Backend)
	}
	if cfg.Retry.MaxRetries != 3 || cfg.Retry.BaseDelayMs != 500 {
		t.Errorf("retry defaults = %+v", cfg.Retry)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad backend", func(c *Config) { c.Cache.Backend = "dynamo" }},
		{"negative retries", func(c *Config) { c.Retry.MaxRetries = -1 }},
		{"zero base delay", func(c *Config) { c.Retry.BaseDelayMs = 0 }},
		{"zero geopolitics ttl", func(c *Config) { c.Concerns.GeopoliticsTTLHours = 0 }},
		{"risk window shorter than event window", func(c *Config) {
			c.Concerns.RiskLookbackDays = 3
			c.Concerns.EventLookbackDays = 7
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig(t)
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("invalid configuration accepted")
			}
		})
	}
}

func TestConcernSet(t *testing.T) {
	cfg := defaultConfig(t)
	concerns := cfg.ConcernSet()

	if len(concerns) != 5 {
		t.Fatalf("got %d concerns, want 5", len(concerns))
	}

	fundamentals := concerns[models.ConcernFundamentals]
	if fundamentals.Merge != models.MergeBackfill {
		t.Errorf("fundamentals merge = %v, want backfill", fundamentals.Merge)
	}
	treasuries := concerns[models.ConcernTreasuryYields]
	if treasuries.Merge != models.MergeFirstSuccess {
		t.Errorf("treasuries merge = %v, want first-success", treasuries.Merge)
	}
	if len(treasuries.Providers) == 0 || treasuries.Providers[0] != "fred" {
		t.Errorf("treasury providers = %v, want fred first", treasuries.Providers)
	}
	geo := concerns[models.ConcernGeopoliticalRisks]
	if geo.TTL >= fundamentals.TTL {
		t.Errorf("geopolitics TTL %v should be shorter than fundamentals %v", geo.TTL, fundamentals.TTL)
	}
}

func TestRedactedCredentials(t *testing.T) {
	creds := Credentials{
		FREDAPIKey:   "abcdef1234567890",
		FMPAPIKey:    "short",
		OpenAIAPIKey: "",
	}
	redacted := creds.Redacted()

	if got := redacted["fred"]; got != "abcd...7890" {
		t.Errorf("fred = %q", got)
	}
	if strings.Contains(redacted["fred"], "ef12345") {
		t.Error("redacted key leaks middle characters")
	}
	if got := redacted["fmp"]; got != "****" {
		t.Errorf("short key = %q, want fully masked", got)
	}
	if got := redacted["openai"]; got != "(not set)" {
		t.Errorf("empty key = %q", got)
	}
}
