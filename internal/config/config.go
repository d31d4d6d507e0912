package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"memeboard/internal/apperr"
)

// Config holds everything the service needs at construction time
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Jobs      JobsConfig      `mapstructure:"jobs"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port    string `mapstructure:"port"`
	GinMode string `mapstructure:"gin_mode"`
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

// EnrichTimeout bounds one summarize run. The keyword lock TTL must exceed it.
const EnrichTimeout = 2 * time.Minute

// RedisConfig enables the distributed per-keyword lock when URL is set
type RedisConfig struct {
	URL     string        `mapstructure:"url"`
	LockTTL time.Duration `mapstructure:"lock_ttl"`
}

// AnthropicConfig configures the summarization model
type AnthropicConfig struct {
	APIKey     string        `mapstructure:"api_key"`
	BaseURL    string        `mapstructure:"base_url"`
	Model      string        `mapstructure:"model"`
	Version    string        `mapstructure:"version"`
	MaxTokens  int           `mapstructure:"max_tokens"`
	MaxRetries int           `mapstructure:"max_retries"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// FetchConfig configures outbound page and image fetches
type FetchConfig struct {
	UserAgent    string        `mapstructure:"user_agent"`
	HTMLTimeout  time.Duration `mapstructure:"html_timeout"`
	ImageTimeout time.Duration `mapstructure:"image_timeout"`
}

// JobsConfig configures the scheduled jobs. Classifier is "rule" or "llm".
type JobsConfig struct {
	Enabled       bool    `mapstructure:"enabled"`
	AggregateSpec string  `mapstructure:"aggregate_spec"`
	CleanupSpec   string  `mapstructure:"cleanup_spec"`
	BackfillSpec  string  `mapstructure:"backfill_spec"`
	RetentionDays int     `mapstructure:"retention_days"`
	MaxPostAge    int     `mapstructure:"max_post_age_days"`
	BackfillLimit int     `mapstructure:"backfill_limit"`
	BackfillRPS   float64 `mapstructure:"backfill_rps"`
	Classifier    string  `mapstructure:"classifier"`
	UncertainDir  string  `mapstructure:"uncertain_dir"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// envBindings maps config keys to the environment variables operators set
var envBindings = map[string]string{
	"server.port":        "PORT",
	"server.gin_mode":    "GIN_MODE",
	"database.host":      "DB_HOST",
	"database.port":      "DB_PORT",
	"database.user":      "DB_USER",
	"database.password":  "DB_PASSWORD",
	"database.name":      "DB_NAME",
	"database.sslmode":   "DB_SSLMODE",
	"redis.url":          "REDIS_URL",
	"anthropic.api_key":  "ANTHROPIC_API_KEY",
	"anthropic.base_url": "ANTHROPIC_BASE_URL",
	"anthropic.model":    "ANTHROPIC_MODEL",
	"jobs.enabled":       "JOBS_ENABLED",
	"jobs.classifier":    "JOBS_CLASSIFIER",
	"log.level":          "LOG_LEVEL",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.gin_mode", "debug")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "memeboard")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.lock_ttl", EnrichTimeout+30*time.Second)

	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.base_url", "https://api.anthropic.com/")
	v.SetDefault("anthropic.model", "claude-3-haiku-20240307")
	v.SetDefault("anthropic.version", "2023-06-01")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("anthropic.max_retries", 2)
	v.SetDefault("anthropic.timeout", 60*time.Second)

	v.SetDefault("fetch.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("fetch.html_timeout", 5*time.Second)
	v.SetDefault("fetch.image_timeout", 15*time.Second)

	v.SetDefault("jobs.enabled", true)
	v.SetDefault("jobs.aggregate_spec", "@hourly")
	v.SetDefault("jobs.cleanup_spec", "@daily")
	v.SetDefault("jobs.backfill_spec", "@every 30m")
	v.SetDefault("jobs.retention_days", 7)
	v.SetDefault("jobs.max_post_age_days", 7)
	v.SetDefault("jobs.backfill_limit", 100)
	v.SetDefault("jobs.backfill_rps", 1.0)
	v.SetDefault("jobs.classifier", "rule")
	v.SetDefault("jobs.uncertain_dir", "")

	v.SetDefault("log.level", "info")
}

// Load reads .env, an optional config.yaml and the environment
func Load() (*Config, error) {
	// A missing .env is normal outside local development
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// ValidateStore reports whether the ranking store can be reached at all
func (c *Config) ValidateStore() error {
	if c.Database.Host == "" || c.Database.Name == "" {
		return apperr.Config("database connection parameters are not configured")
	}
	return nil
}

// ValidateLock reports whether a held keyword lock outlives the enrichment
// it guards
func (r RedisConfig) ValidateLock() error {
	if r.URL != "" && r.LockTTL <= EnrichTimeout {
		return apperr.Config(fmt.Sprintf("redis.lock_ttl %s must exceed the %s enrichment timeout", r.LockTTL, EnrichTimeout))
	}
	return nil
}

// ValidateModel reports whether the summarization model is usable
func (c *AnthropicConfig) ValidateModel() error {
	if c.APIKey == "" {
		return apperr.Config("ANTHROPIC_API_KEY not configured")
	}
	if c.BaseURL == "" || c.Model == "" {
		return apperr.Config("anthropic base URL or model not configured")
	}
	return nil
}

// DSN builds the PostgreSQL DSN, omitting an empty password
func (d DatabaseConfig) DSN() string {
	dsn := fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Name, d.SSLMode)
	if d.Password != "" {
		dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
	}
	return dsn
}
