package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// WatchItem is a symbol resolved by the quote command when no symbols are
// given on the command line
type WatchItem struct {
	Symbol string `mapstructure:"symbol"`
	Type   string `mapstructure:"type"`
}

// Config holds all configuration for the price quote service.
type Config struct {
	// Server
	ServerAddr      string        `mapstructure:"server_addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	LogLevel        string        `mapstructure:"log_level"`

	// Price cache
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
	CacheMaxEntries int           `mapstructure:"cache_max_entries"`

	// Outbound HTTP shared by all providers
	HTTPTimeout    time.Duration `mapstructure:"http_timeout"`
	HTTPRetryCount int           `mapstructure:"http_retry_count"`
	HTTPUserAgent  string        `mapstructure:"http_user_agent"`

	// API keys; both are optional
	AlphavantageAPIKey string `mapstructure:"alphavantage_api_key"`
	CoingeckoAPIKey    string `mapstructure:"coingecko_api_key"`

	// Base URLs for API endpoints (configurable for testing)
	YahooQuery1BaseURL  string `mapstructure:"yahoo_query1_base_url"`
	YahooQuery2BaseURL  string `mapstructure:"yahoo_query2_base_url"`
	AlphavantageBaseURL string `mapstructure:"alphavantage_base_url"`
	CoingeckoBaseURL    string `mapstructure:"coingecko_base_url"`

	// Requests per second per upstream; 0 disables limiting
	YahooRPS        float64 `mapstructure:"yahoo_rps"`
	AlphavantageRPS float64 `mapstructure:"alphavantage_rps"`
	CoingeckoRPS    float64 `mapstructure:"coingecko_rps"`

	// Batch lookups from the quote command
	BatchPause time.Duration `mapstructure:"batch_pause"`
	Watchlist  []WatchItem   `mapstructure:"watchlist"`
}

// Load reads configuration from environment variables and optional config file.
// Environment variables take precedence over config file values.
//
// Expected environment variables (all optional):
//   - SERVER_ADDR, SHUTDOWN_TIMEOUT, LOG_LEVEL
//   - CACHE_TTL, CACHE_MAX_ENTRIES
//   - HTTP_TIMEOUT, HTTP_RETRY_COUNT, HTTP_USER_AGENT
//   - ALPHAVANTAGE_API_KEY, COINGECKO_API_KEY
//   - YAHOO_QUERY1_BASE_URL, YAHOO_QUERY2_BASE_URL, ALPHAVANTAGE_BASE_URL,
//     COINGECKO_BASE_URL (optional, defaults to production)
//   - YAHOO_RPS, ALPHAVANTAGE_RPS, COINGECKO_RPS
//   - BATCH_PAUSE
//
// A .env file (or the file named by ENV_FILE) is loaded first without
// overriding variables already set; NO_DOTENV=1 skips it.
// The watchlist is only read from the config file.
func Load() (*Config, error) {
	if err := loadDotenv(); err != nil {
		return nil, err
	}

	v := viper.New()

	setDefaults(v)

	// Optionally read from config file if it exists. PRICEQUOTE_CONFIG
	// names an explicit file, which then must exist.
	if path := os.Getenv("PRICEQUOTE_CONFIG"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.pricequote")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind every key to its upper-cased environment variable
	for _, key := range keys {
		if err := v.BindEnv(key, strings.ToUpper(key)); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func loadDotenv() error {
	if os.Getenv("NO_DOTENV") == "1" {
		return nil
	}
	if path := os.Getenv("ENV_FILE"); path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", path, err)
		}
		return nil
	}
	// .env is optional
	_ = godotenv.Load()
	return nil
}

var keys = []string{
	"server_addr", "shutdown_timeout", "log_level",
	"cache_ttl", "cache_max_entries",
	"http_timeout", "http_retry_count", "http_user_agent",
	"alphavantage_api_key", "coingecko_api_key",
	"yahoo_query1_base_url", "yahoo_query2_base_url",
	"alphavantage_base_url", "coingecko_base_url",
	"yahoo_rps", "alphavantage_rps", "coingecko_rps",
	"batch_pause",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server_addr", ":8080")
	v.SetDefault("shutdown_timeout", 5*time.Second)
	v.SetDefault("log_level", "info")

	v.SetDefault("cache_ttl", 60*time.Second)
	v.SetDefault("cache_max_entries", 10000)

	v.SetDefault("http_timeout", 5*time.Second)
	v.SetDefault("http_retry_count", 0)
	v.SetDefault("http_user_agent", "Mozilla/5.0")

	v.SetDefault("yahoo_query1_base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("yahoo_query2_base_url", "https://query2.finance.yahoo.com")
	v.SetDefault("alphavantage_base_url", "https://www.alphavantage.co/query")
	v.SetDefault("coingecko_base_url", "https://api.coingecko.com/api/v3")

	// Yahoo publishes no limit; stay well under what gets a 429
	v.SetDefault("yahoo_rps", 5.0)
	// AlphaVantage: 5 requests per minute on free tier = 1 request every 12 seconds
	v.SetDefault("alphavantage_rps", 1.0/12.0)
	// CoinGecko: 30 requests per minute on the demo plan
	v.SetDefault("coingecko_rps", 0.5)

	v.SetDefault("batch_pause", 600*time.Millisecond)
}

// Validate checks value ranges
func (c *Config) Validate() error {
	var problems []string

	if c.CacheTTL <= 0 {
		problems = append(problems, "CACHE_TTL must be positive")
	}
	if c.CacheMaxEntries < 0 {
		problems = append(problems, "CACHE_MAX_ENTRIES must not be negative")
	}
	if c.HTTPTimeout <= 0 {
		problems = append(problems, "HTTP_TIMEOUT must be positive")
	}
	if c.HTTPRetryCount < 0 {
		problems = append(problems, "HTTP_RETRY_COUNT must not be negative")
	}
	if c.YahooRPS < 0 || c.AlphavantageRPS < 0 || c.CoingeckoRPS < 0 {
		problems = append(problems, "rate limits must not be negative")
	}
	if c.BatchPause < 0 {
		problems = append(problems, "BATCH_PAUSE must not be negative")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("LOG_LEVEL %q is not one of debug, info, warn, error", c.LogLevel))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, ", "))
	}
	return nil
}
