// Package config loads and validates the application configuration.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	YouTube   YouTubeConfig   `mapstructure:"youtube"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Prices    PricesConfig    `mapstructure:"prices"`
	Fetcher   FetcherConfig   `mapstructure:"fetcher"`
	Purchaser PurchaserConfig `mapstructure:"purchaser"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Run       RunConfig       `mapstructure:"run"`
}

// YouTubeConfig holds YouTube Data API configuration.
// The API key arrives via the AUTO_INVEST_YOUTUBE_API_KEY environment variable.
type YouTubeConfig struct {
	APIKey       string        `mapstructure:"api_key"`
	APIURL       string        `mapstructure:"api_url"`
	TimedTextURL string        `mapstructure:"timedtext_url"`
	PageSize     int           `mapstructure:"page_size"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// OpenAIConfig holds language-model completion configuration.
// The API key arrives via the AUTO_INVEST_OPENAI_API_KEY environment variable.
type OpenAIConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	APIURL  string        `mapstructure:"api_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// PricesConfig holds market-data lookup configuration.
type PricesConfig struct {
	ChartAPIURL string        `mapstructure:"chart_api_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// FetcherConfig holds video discovery and extraction pipeline configuration.
type FetcherConfig struct {
	ChannelsFile   string `mapstructure:"channels_file"`
	WindowDays     int    `mapstructure:"window_days"`
	MaxAssets      int    `mapstructure:"max_assets"`
	MaxFeedPages   int    `mapstructure:"max_feed_pages"`
	SkipSeenVideos bool   `mapstructure:"skip_seen_videos"`
}

// PurchaserConfig holds simulated purchase configuration. Either AssetAmounts
// (matched by position against the fetched assets) or UniversalAmount must be
// supplied when purchasing is enabled.
type PurchaserConfig struct {
	Enabled         bool      `mapstructure:"enabled"`
	SimulationMode  bool      `mapstructure:"simulation_mode"`
	LedgerFile      string    `mapstructure:"ledger_file"`
	ValidDays       int       `mapstructure:"valid_days"`
	AssetAmounts    []float64 `mapstructure:"asset_amounts"`
	UniversalAmount float64   `mapstructure:"universal_amount"`
}

// TelegramConfig holds run-summary notification configuration.
type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	Enabled  bool   `mapstructure:"enabled"`
}

// StorageConfig holds the seen-video cache configuration.
type StorageConfig struct {
	DBPath string        `mapstructure:"db_path"`
	MaxAge time.Duration `mapstructure:"max_age"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// RunConfig controls scheduling. Interval 0 means a single pipeline pass.
type RunConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// Load reads configuration from file and environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)

	setDefaults(v)

	v.SetEnvPrefix("AUTO_INVEST")
	v.AutomaticEnv()
	// API keys arrive via the environment, not the config file.
	_ = v.BindEnv("youtube.api_key", "AUTO_INVEST_YOUTUBE_API_KEY")
	_ = v.BindEnv("openai.api_key", "AUTO_INVEST_OPENAI_API_KEY")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options.
func setDefaults(v *viper.Viper) {
	// YouTube defaults
	v.SetDefault("youtube.api_url", "https://www.googleapis.com/youtube/v3")
	v.SetDefault("youtube.timedtext_url", "https://www.youtube.com/api/timedtext")
	v.SetDefault("youtube.page_size", 50)
	v.SetDefault("youtube.timeout", "30s")

	// OpenAI defaults
	v.SetDefault("openai.api_url", "https://api.openai.com/v1")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.timeout", "120s")

	// Prices defaults
	v.SetDefault("prices.chart_api_url", "https://query1.finance.yahoo.com/v8/finance/chart")
	v.SetDefault("prices.timeout", "15s")

	// Fetcher defaults
	v.SetDefault("fetcher.channels_file", "./files/data_in/source_youtubers.csv")
	v.SetDefault("fetcher.window_days", 5)
	v.SetDefault("fetcher.max_assets", 5)
	v.SetDefault("fetcher.max_feed_pages", 10)
	v.SetDefault("fetcher.skip_seen_videos", false)

	// Purchaser defaults
	v.SetDefault("purchaser.enabled", false)
	v.SetDefault("purchaser.simulation_mode", true)
	v.SetDefault("purchaser.ledger_file", "./files/data_out/portfolio_simulation.csv")
	v.SetDefault("purchaser.valid_days", 4)

	// Storage defaults
	v.SetDefault("storage.db_path", "./data/autoinvest.db")
	v.SetDefault("storage.max_age", "720h")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Run defaults
	v.SetDefault("run.interval", "0s")
}

// Validate checks that all configuration values are valid.
func (c *Config) Validate() error {
	// Validate YouTube config
	if c.YouTube.APIKey == "" {
		return fmt.Errorf("youtube.api_key is required (set AUTO_INVEST_YOUTUBE_API_KEY)")
	}
	if c.YouTube.APIURL == "" {
		return fmt.Errorf("youtube.api_url is required")
	}
	if c.YouTube.TimedTextURL == "" {
		return fmt.Errorf("youtube.timedtext_url is required")
	}
	if c.YouTube.PageSize < 1 || c.YouTube.PageSize > 50 {
		return fmt.Errorf("youtube.page_size must be between 1 and 50")
	}

	// Validate OpenAI config
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai.api_key is required (set AUTO_INVEST_OPENAI_API_KEY)")
	}
	if c.OpenAI.APIURL == "" {
		return fmt.Errorf("openai.api_url is required")
	}
	if c.OpenAI.Model == "" {
		return fmt.Errorf("openai.model is required")
	}

	// Validate Prices config
	if c.Prices.ChartAPIURL == "" {
		return fmt.Errorf("prices.chart_api_url is required")
	}

	// Validate Fetcher config
	if c.Fetcher.ChannelsFile == "" {
		return fmt.Errorf("fetcher.channels_file is required")
	}
	if c.Fetcher.WindowDays < 1 {
		return fmt.Errorf("fetcher.window_days must be at least 1")
	}
	if c.Fetcher.MaxAssets < 1 {
		return fmt.Errorf("fetcher.max_assets must be at least 1")
	}
	if c.Fetcher.MaxFeedPages < 1 {
		return fmt.Errorf("fetcher.max_feed_pages must be at least 1")
	}

	// Validate Purchaser config
	if c.Purchaser.Enabled {
		if !c.Purchaser.SimulationMode {
			return fmt.Errorf("purchaser.simulation_mode must be true: real trade execution is not supported")
		}
		if c.Purchaser.LedgerFile == "" {
			return fmt.Errorf("purchaser.ledger_file is required when purchaser is enabled")
		}
		if c.Purchaser.ValidDays < 1 {
			return fmt.Errorf("purchaser.valid_days must be at least 1")
		}
		if len(c.Purchaser.AssetAmounts) == 0 && c.Purchaser.UniversalAmount <= 0 {
			return fmt.Errorf("either purchaser.asset_amounts or purchaser.universal_amount must be specified")
		}
		for i, amount := range c.Purchaser.AssetAmounts {
			if amount <= 0 {
				return fmt.Errorf("purchaser.asset_amounts[%d] must be positive", i)
			}
		}
	}

	// Validate Telegram config
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	// Validate Storage config
	if c.Fetcher.SkipSeenVideos && c.Storage.DBPath == "" {
		return fmt.Errorf("storage.db_path is required when fetcher.skip_seen_videos is enabled")
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	// Validate Run config
	if c.Run.Interval != 0 && c.Run.Interval < time.Minute {
		return fmt.Errorf("run.interval must be 0 (single pass) or at least 1 minute")
	}

	return nil
}
