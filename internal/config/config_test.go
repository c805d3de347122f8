package config

import (
	"testing"
	"time"

	"github.com/Netflix/go-env"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(env.EnvSet{})
	require.NoError(t, err)

	assert.Equal(t, "https://points-app-backend.vercel.app", cfg.BaseURL)
	assert.Equal(t, time.Duration(0), cfg.HTTPTimeout)
	assert.Equal(t, 0, cfg.RateLimitRPS)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "auto", cfg.LogColor)
	assert.Empty(t, cfg.Database)
	assert.Equal(t, int64(100), cfg.StartingBalance)
	assert.Equal(t, int64(50), cfg.TransferAmount)
	assert.Equal(t, int64(30), cfg.DepositAmount)
	assert.False(t, cfg.FailFast)
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(env.EnvSet{
		"JOURNEY_BASE_URL":         "http://localhost:3000",
		"JOURNEY_HTTP_TIMEOUT":     "15s",
		"JOURNEY_RATE_LIMIT_RPS":   "5",
		"JOURNEY_RATE_LIMIT_BURST": "2",
		"JOURNEY_LOG_LEVEL":        "debug",
		"JOURNEY_DB":               "/tmp/journey.db",
		"JOURNEY_STARTING_BALANCE": "200",
		"JOURNEY_FAIL_FAST":        "true",
	})
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:3000", cfg.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 5, cfg.RateLimitRPS)
	assert.Equal(t, 2, cfg.RateLimitBurst)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/tmp/journey.db", cfg.Database)
	assert.Equal(t, int64(200), cfg.StartingBalance)
	assert.True(t, cfg.FailFast)
}

func TestLoadFrom_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  env.EnvSet
		want string
	}{
		{"relative base url", env.EnvSet{"JOURNEY_BASE_URL": "points.example"}, "JOURNEY_BASE_URL"},
		{"ftp base url", env.EnvSet{"JOURNEY_BASE_URL": "ftp://points.example"}, "JOURNEY_BASE_URL"},
		{"negative timeout", env.EnvSet{"JOURNEY_HTTP_TIMEOUT": "-1s"}, "JOURNEY_HTTP_TIMEOUT"},
		{"unparseable timeout", env.EnvSet{"JOURNEY_HTTP_TIMEOUT": "soon"}, "unmarshal"},
		{"negative rps", env.EnvSet{"JOURNEY_RATE_LIMIT_RPS": "-1"}, "JOURNEY_RATE_LIMIT_RPS"},
		{"zero burst", env.EnvSet{"JOURNEY_RATE_LIMIT_RPS": "1", "JOURNEY_RATE_LIMIT_BURST": "0"}, "JOURNEY_RATE_LIMIT_BURST"},
		{"log level", env.EnvSet{"JOURNEY_LOG_LEVEL": "trace"}, "JOURNEY_LOG_LEVEL"},
		{"log color", env.EnvSet{"JOURNEY_LOG_COLOR": "sometimes"}, "JOURNEY_LOG_COLOR"},
		{"zero transfer", env.EnvSet{"JOURNEY_TRANSFER_AMOUNT": "0"}, "must be positive"},
		{"overdraw", env.EnvSet{"JOURNEY_STARTING_BALANCE": "60"}, "cannot exceed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFrom(tt.env)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_ReadsProcessEnvironment(t *testing.T) {
	t.Setenv("JOURNEY_DEPOSIT_AMOUNT", "10")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int64(10), cfg.DepositAmount)
}

func TestLoadWith_OverridesApplyBeforeValidation(t *testing.T) {
	t.Setenv(EnvBaseURL, "ftp://points.invalid")
	t.Setenv(EnvDatabase, "/var/lib/journey.db")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JOURNEY_BASE_URL")

	cfg, err := LoadWith(map[string]string{
		EnvBaseURL:  "http://localhost:3000",
		EnvDatabase: "",
	})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000", cfg.BaseURL)
	assert.Equal(t, "/var/lib/journey.db", cfg.Database, "empty override keeps the environment value")
}
