// Package config loads and validates application configuration from a YAML
// file with environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Odds     OddsConfig     `mapstructure:"odds"`
	Trends   TrendsConfig   `mapstructure:"trends"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Scan     ScanConfig     `mapstructure:"scan"`
}

// OddsConfig holds The Odds API access and the odds-scanner thresholds
type OddsConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	APIURL         string        `mapstructure:"api_url"`
	APIKey         string        `mapstructure:"api_key"`
	Sports         []string      `mapstructure:"sports"`
	Regions        []string      `mapstructure:"regions"`
	SharpBooks     []string      `mapstructure:"sharp_books"`
	TargetBooks    []string      `mapstructure:"target_books"`
	MinEdgePct     float64       `mapstructure:"min_edge_pct"`
	MinPrice       float64       `mapstructure:"min_price"`
	MaxLeadTime    time.Duration `mapstructure:"max_lead_time"`
	Cooldown       time.Duration `mapstructure:"cooldown"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// TrendsConfig holds BallDontLie API access and the trend-scanner thresholds
type TrendsConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	APIURL         string        `mapstructure:"api_url"`
	APIKey         string        `mapstructure:"api_key"`
	Players        []string      `mapstructure:"players"`
	PointThreshold int           `mapstructure:"point_threshold"`
	WindowSize     int           `mapstructure:"window_size"`
	Cooldown       time.Duration `mapstructure:"cooldown"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// CacheConfig holds the dedup cache file location
type CacheConfig struct {
	FilePath string `mapstructure:"file_path"`
}

// StorageConfig holds the dispatch-history database configuration
type StorageConfig struct {
	DBPath    string `mapstructure:"db_path"`
	MaxAlerts int    `mapstructure:"max_alerts"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ScanConfig holds run scheduling configuration. Interval 0 means a single
// scan cycle per process invocation.
type ScanConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// Load reads configuration from file and environment variables
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)

	setDefaults(v)

	// EDGESCOUT_ODDS_API_KEY overrides odds.api_key, and so on
	v.SetEnvPrefix("EDGESCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Odds scanner defaults
	v.SetDefault("odds.enabled", true)
	v.SetDefault("odds.api_url", "https://api.the-odds-api.com/v4")
	v.SetDefault("odds.sports", []string{
		"tennis_atp",
		"tennis_wta",
		"tennis_atp_challenger",
		"tennis_wta_challenger",
	})
	v.SetDefault("odds.regions", []string{"eu", "uk", "us"})
	v.SetDefault("odds.sharp_books", []string{"pinnacle", "betfair_exchange"})
	v.SetDefault("odds.target_books", []string{
		"bet365", "williamhill", "unibet", "betway", "bwin", "888sport", "betfair",
	})
	v.SetDefault("odds.min_edge_pct", 3.0)
	v.SetDefault("odds.min_price", 1.50)
	v.SetDefault("odds.max_lead_time", "48h")
	v.SetDefault("odds.cooldown", "90m")
	v.SetDefault("odds.timeout", "25s")
	v.SetDefault("odds.max_retries", 3)
	v.SetDefault("odds.retry_delay_base", "1s")

	// Trend scanner defaults
	v.SetDefault("trends.enabled", true)
	v.SetDefault("trends.api_url", "https://api.balldontlie.io/v1")
	v.SetDefault("trends.players", []string{
		"Nikola Jokic",
		"Luka Doncic",
		"Stephen Curry",
		"Kevin Durant",
		"Jayson Tatum",
		"Giannis Antetokounmpo",
		"LeBron James",
	})
	v.SetDefault("trends.point_threshold", 20)
	v.SetDefault("trends.window_size", 5)
	v.SetDefault("trends.cooldown", "12h")
	v.SetDefault("trends.timeout", "30s")
	v.SetDefault("trends.max_retries", 3)
	v.SetDefault("trends.retry_delay_base", "1s")

	// Telegram defaults
	v.SetDefault("telegram.enabled", true)
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	// Cache and storage defaults
	v.SetDefault("cache.file_path", "./data/sent_cache.json")
	v.SetDefault("storage.db_path", "./data/edgescout.db")
	v.SetDefault("storage.max_alerts", 1000)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Scan defaults: single run per invocation
	v.SetDefault("scan.interval", "0s")
}

// Validate checks that all configuration values are valid. Any error here is
// fatal at startup, before any scan begins.
func (c *Config) Validate() error {
	if c.Odds.Enabled {
		if c.Odds.APIURL == "" {
			return fmt.Errorf("odds.api_url is required")
		}
		if c.Odds.APIKey == "" {
			return fmt.Errorf("odds.api_key is required when the odds scanner is enabled")
		}
		if len(c.Odds.Sports) == 0 {
			return fmt.Errorf("odds.sports must contain at least one sport key")
		}
		if len(c.Odds.TargetBooks) == 0 {
			return fmt.Errorf("odds.target_books must contain at least one book")
		}
		if c.Odds.MinEdgePct < 0 {
			return fmt.Errorf("odds.min_edge_pct must not be negative")
		}
		if c.Odds.MinPrice <= 1.0 {
			return fmt.Errorf("odds.min_price must be greater than 1.0")
		}
		if c.Odds.MaxLeadTime <= 0 {
			return fmt.Errorf("odds.max_lead_time must be positive")
		}
		if c.Odds.Cooldown <= 0 {
			return fmt.Errorf("odds.cooldown must be positive")
		}
	}

	if c.Trends.Enabled {
		if c.Trends.APIURL == "" {
			return fmt.Errorf("trends.api_url is required")
		}
		if len(c.Trends.Players) == 0 {
			return fmt.Errorf("trends.players must contain at least one player name")
		}
		if c.Trends.PointThreshold <= 0 {
			return fmt.Errorf("trends.point_threshold must be positive")
		}
		if c.Trends.WindowSize != 5 {
			return fmt.Errorf("trends.window_size must be 5")
		}
		if c.Trends.Cooldown <= 0 {
			return fmt.Errorf("trends.cooldown must be positive")
		}
	}

	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	if c.Cache.FilePath == "" {
		return fmt.Errorf("cache.file_path is required")
	}
	if c.Storage.MaxAlerts < 1 {
		return fmt.Errorf("storage.max_alerts must be at least 1")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	if c.Scan.Interval < 0 {
		return fmt.Errorf("scan.interval must not be negative")
	}

	return nil
}
