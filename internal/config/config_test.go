package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"memeboard/internal/apperr"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Fetch.HTMLTimeout)
	assert.Equal(t, 15*time.Second, cfg.Fetch.ImageTimeout)
	assert.Equal(t, 1024, cfg.Anthropic.MaxTokens)
	assert.Equal(t, "2023-06-01", cfg.Anthropic.Version)
	assert.Equal(t, "@hourly", cfg.Jobs.AggregateSpec)
	assert.Equal(t, 7, cfg.Jobs.RetentionDays)
	assert.Greater(t, cfg.Redis.LockTTL, EnrichTimeout)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("PORT", "9090")

	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "sk-test", cfg.Anthropic.APIKey)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Contains(t, cfg.Database.DSN(), "password=secret")
}

func TestValidate(t *testing.T) {
	cfg, err := load(viper.New())
	require.NoError(t, err)

	err = cfg.Anthropic.ValidateModel()
	assert.True(t, apperr.Is(err, apperr.KindConfig))

	cfg.Anthropic.APIKey = "sk-test"
	assert.NoError(t, cfg.Anthropic.ValidateModel())

	assert.NoError(t, cfg.ValidateStore())
	cfg.Database.Host = ""
	assert.True(t, apperr.Is(cfg.ValidateStore(), apperr.KindConfig))
}

func TestDSNOmitsEmptyPassword(t *testing.T) {
	d := DatabaseConfig{Host: "h", Port: "5432", User: "u", Name: "n", SSLMode: "disable"}
	assert.NotContains(t, d.DSN(), "password=")
}

func TestValidateLock(t *testing.T) {
	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.NoError(t, cfg.Redis.ValidateLock())

	cfg.Redis.URL = "redis://localhost:6379/0"
	assert.NoError(t, cfg.Redis.ValidateLock())

	cfg.Redis.LockTTL = 90 * time.Second
	assert.True(t, apperr.Is(cfg.Redis.ValidateLock(), apperr.KindConfig))

	cfg.Redis.LockTTL = EnrichTimeout
	assert.Error(t, cfg.Redis.ValidateLock())
}
