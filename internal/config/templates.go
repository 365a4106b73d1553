package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# marketbrief configuration

[cache]
# Cache backend: "memory" or "redis"
backend = "memory"
# Redis address (only used when backend = "redis")
redis_addr = "localhost:6379"
redis_db = 0

[concerns]
# Freshness windows per data concern
treasury_ttl_hours = 24
inflation_ttl_hours = 24
fed_policy_ttl_hours = 12
fundamentals_ttl_hours = 24
geopolitics_ttl_hours = 2
# Recency windows for geopolitical items
event_lookback_days = 7
risk_lookback_days = 14

[retry]
max_retries = 3
base_delay_ms = 500

[llm]
openai_model = "gpt-4o"
perplexity_model = "sonar-pro"
perplexity_url = "https://api.perplexity.ai"
temperature = 0.2
max_tokens = 2048
`

const credentialsTemplate = `# marketbrief API credentials
# All keys can also be supplied via environment variables
# (FRED_API_KEY, ALPHAVANTAGE_API_KEY, TRADIER_API_KEY, FMP_API_KEY,
#  FINNHUB_API_KEY, OPENAI_API_KEY, PERPLEXITY_API_KEY).

fred_api_key = ""
alphavantage_api_key = ""
tradier_api_key = ""
fmp_api_key = ""
finnhub_api_key = ""
openai_api_key = ""
perplexity_api_key = ""
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}
	return nil
}

func createTemplateCredentials(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "credentials.toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	// Credentials file is created user-readable only.
	if err := os.WriteFile(path, []byte(credentialsTemplate), 0600); err != nil {
		return fmt.Errorf("writing credentials template: %w", err)
	}
	return nil
}
