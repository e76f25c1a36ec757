package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	FMP       FMP       `mapstructure:"fmp"`
	Alpaca    Alpaca    `mapstructure:"alpaca"`
	Trading   Trading   `mapstructure:"trading"`
	Scheduler Scheduler `mapstructure:"scheduler"`
	Logger    Logger    `mapstructure:"logger"`
	Server    Server    `mapstructure:"server"`
	Database  Database  `mapstructure:"database"`
}

// FMP holds the configuration for the Financial Modeling Prep API client.
type FMP struct {
	ApiKey            string  `mapstructure:"apiKey"`
	BaseURL           string  `mapstructure:"base_url"`
	DailyLimit        int     `mapstructure:"daily_limit"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	CacheTTLSeconds   int     `mapstructure:"cache_ttl_seconds"`
	RateLimitCooldown int     `mapstructure:"rate_limit_cooldown_seconds"`
	LimitPerChamber   int     `mapstructure:"limit_per_chamber"`
}

// Alpaca holds the configuration for the Alpaca brokerage API.
type Alpaca struct {
	ApiKey    string `mapstructure:"apiKey"`
	SecretKey string `mapstructure:"secretKey"`
	Paper     bool   `mapstructure:"paper"`
}

// Trading holds the configuration for the copy-trading bot.
type Trading struct {
	Enabled        bool    `mapstructure:"enabled"`
	CopyThreshold  float64 `mapstructure:"copy_threshold"`
	MirrorFraction float64 `mapstructure:"mirror_fraction"`
	LookbackHours  int     `mapstructure:"lookback_hours"`
	DryRun         bool    `mapstructure:"dry_run"`
}

// Scheduler holds the cron schedules for the background jobs.
type Scheduler struct {
	SyncCron       string `mapstructure:"sync_cron"`
	StatsCron      string `mapstructure:"stats_cron"`
	Retries        int    `mapstructure:"retries"`
	BackoffSeconds int    `mapstructure:"backoff_seconds"`
}

// Server holds the configuration for the web servers.
type Server struct {
	Port   int `mapstructure:"port"`
	UIPort int `mapstructure:"ui_port"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")    // or yaml, json

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("fmp.base_url", "https://financialmodelingprep.com/api")
	viper.SetDefault("fmp.daily_limit", 200)
	viper.SetDefault("fmp.requests_per_second", 1) // provider asks for >=1s spacing
	viper.SetDefault("fmp.cache_ttl_seconds", 3600)
	viper.SetDefault("fmp.rate_limit_cooldown_seconds", 60)
	viper.SetDefault("fmp.limit_per_chamber", 100)
	viper.SetDefault("trading.copy_threshold", 15000)
	viper.SetDefault("trading.mirror_fraction", 0.1)
	viper.SetDefault("trading.lookback_hours", 1)
	viper.SetDefault("scheduler.sync_cron", "0 * * * *")
	viper.SetDefault("scheduler.stats_cron", "0 2 * * *")
	viper.SetDefault("scheduler.retries", 3)
	viper.SetDefault("scheduler.backoff_seconds", 60)

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
