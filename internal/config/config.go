package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Market    MarketConfig    `mapstructure:"market"`
	Feed      FeedConfig      `mapstructure:"feed"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig holds HTTP listener configuration
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
}

// MarketConfig holds the daily price source configuration
type MarketConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	MarketSuffix   string        `mapstructure:"market_suffix"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
	MaxTickers     int           `mapstructure:"max_tickers"`
	Concurrency    int           `mapstructure:"concurrency"`
	RequestsPerSec float64       `mapstructure:"requests_per_sec"`
	Burst          int           `mapstructure:"burst"`
	BreakerTimeout time.Duration `mapstructure:"breaker_timeout"`
	BreakerTrip    uint32        `mapstructure:"breaker_trip"`
	TrailingDays   int           `mapstructure:"trailing_days"`
}

// FeedConfig holds the community feed sampling parameters
type FeedConfig struct {
	CandidateSectors int `mapstructure:"candidate_sectors"`
	TopSectors       int `mapstructure:"top_sectors"`
	RunnerCount      int `mapstructure:"runner_count"`
	VarietyThreshold int `mapstructure:"variety_threshold"`
	PoolCopies       int `mapstructure:"pool_copies"`
	MinPool          int `mapstructure:"min_pool"`
	IterationFactor  int `mapstructure:"iteration_factor"`
}

// CacheConfig holds the Redis return cache configuration
type CacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// StorageConfig holds the snapshot archive configuration
type StorageConfig struct {
	DBPath       string `mapstructure:"db_path"`
	MaxSnapshots int    `mapstructure:"max_snapshots"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// SchedulerConfig holds the background job configuration
type SchedulerConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	DigestSpec string `mapstructure:"digest_spec"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from an optional file, a .env file and environment variables.
// An empty path skips the config file and uses defaults plus environment.
func Load(path string) (*Config, error) {
	// A missing .env is normal outside development
	_ = godotenv.Load()

	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Enable environment variable override, e.g. SECTORFLOW_SERVER_ADDR
	v.SetEnvPrefix("SECTORFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.cors_origins", []string{"*"})

	// Market defaults
	v.SetDefault("market.base_url", "https://stooq.com")
	v.SetDefault("market.market_suffix", ".us")
	v.SetDefault("market.timeout", "10s")
	v.SetDefault("market.max_retries", 3)
	v.SetDefault("market.retry_delay_base", "500ms")
	v.SetDefault("market.max_tickers", 50)
	v.SetDefault("market.concurrency", 8)
	v.SetDefault("market.requests_per_sec", 5.0)
	v.SetDefault("market.burst", 5)
	v.SetDefault("market.breaker_timeout", "60s")
	v.SetDefault("market.breaker_trip", 5)
	v.SetDefault("market.trailing_days", 30)

	// Feed defaults
	v.SetDefault("feed.candidate_sectors", 8)
	v.SetDefault("feed.top_sectors", 5)
	v.SetDefault("feed.runner_count", 200)
	v.SetDefault("feed.variety_threshold", 120)
	v.SetDefault("feed.pool_copies", 40)
	v.SetDefault("feed.min_pool", 50)
	v.SetDefault("feed.iteration_factor", 10)

	// Cache defaults
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.addr", "localhost:6379")
	v.SetDefault("cache.password", "")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.ttl", "6h")

	// Storage defaults
	v.SetDefault("storage.db_path", "./data/sectorflow.db")
	v.SetDefault("storage.max_snapshots", 90)

	// Telegram defaults
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "2s")

	// Scheduler defaults
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.digest_spec", "0 30 6 * * *")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	// Validate Server config
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server timeouts must be positive")
	}

	// Validate Market config
	if c.Market.BaseURL == "" {
		return fmt.Errorf("market.base_url is required")
	}
	if c.Market.Timeout < 1*time.Second {
		return fmt.Errorf("market.timeout must be at least 1 second")
	}
	if c.Market.MaxRetries < 1 {
		return fmt.Errorf("market.max_retries must be at least 1")
	}
	if c.Market.MaxTickers < 1 || c.Market.MaxTickers > 50 {
		return fmt.Errorf("market.max_tickers must be between 1 and 50")
	}
	if c.Market.Concurrency < 1 {
		return fmt.Errorf("market.concurrency must be at least 1")
	}
	if c.Market.RequestsPerSec <= 0 || c.Market.Burst < 1 {
		return fmt.Errorf("market.requests_per_sec and market.burst must be positive")
	}
	if c.Market.BreakerTrip < 1 {
		return fmt.Errorf("market.breaker_trip must be at least 1")
	}
	if c.Market.TrailingDays < 1 {
		return fmt.Errorf("market.trailing_days must be at least 1")
	}

	// Validate Feed config
	if c.Feed.TopSectors < 1 || c.Feed.CandidateSectors < c.Feed.TopSectors {
		return fmt.Errorf("feed.candidate_sectors must be >= feed.top_sectors >= 1")
	}
	if c.Feed.RunnerCount < 1 {
		return fmt.Errorf("feed.runner_count must be at least 1")
	}
	if c.Feed.VarietyThreshold < 0 || c.Feed.VarietyThreshold > c.Feed.RunnerCount {
		return fmt.Errorf("feed.variety_threshold must be between 0 and feed.runner_count")
	}
	if c.Feed.PoolCopies < 1 || c.Feed.IterationFactor < 1 || c.Feed.MinPool < 0 {
		return fmt.Errorf("feed.pool_copies and feed.iteration_factor must be at least 1")
	}

	// Validate Cache config
	if c.Cache.Enabled {
		if c.Cache.Addr == "" {
			return fmt.Errorf("cache.addr is required when cache is enabled")
		}
		if c.Cache.TTL < 1*time.Minute {
			return fmt.Errorf("cache.ttl must be at least 1 minute")
		}
	}

	// Validate Storage config
	if c.Storage.DBPath == "" {
		return fmt.Errorf("storage.db_path is required")
	}
	if c.Storage.MaxSnapshots < 1 {
		return fmt.Errorf("storage.max_snapshots must be at least 1")
	}

	// Validate Telegram config
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
		if c.Telegram.MaxRetries < 1 {
			return fmt.Errorf("telegram.max_retries must be at least 1")
		}
	}

	// Validate Scheduler config
	if c.Scheduler.Enabled {
		parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		if _, err := parser.Parse(c.Scheduler.DigestSpec); err != nil {
			return fmt.Errorf("scheduler.digest_spec is invalid: %w", err)
		}
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

	return nil
}
