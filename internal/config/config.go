// Package config loads runner settings from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/Netflix/go-env"
)

// Environment variables with defaults
type Environment struct {

	// target service
	BaseURL        string        `env:"JOURNEY_BASE_URL,default=https://points-app-backend.vercel.app"`
	HTTPTimeout    time.Duration `env:"JOURNEY_HTTP_TIMEOUT,default=0s"`
	RateLimitRPS   int           `env:"JOURNEY_RATE_LIMIT_RPS,default=0"`
	RateLimitBurst int           `env:"JOURNEY_RATE_LIMIT_BURST,default=1"`

	// logging
	LogLevel string `env:"JOURNEY_LOG_LEVEL,default=info"`
	LogColor string `env:"JOURNEY_LOG_COLOR,default=auto"`

	// run history; empty disables recording
	Database string `env:"JOURNEY_DB"`

	// ledger amounts
	StartingBalance int64 `env:"JOURNEY_STARTING_BALANCE,default=100"`
	TransferAmount  int64 `env:"JOURNEY_TRANSFER_AMOUNT,default=50"`
	DepositAmount   int64 `env:"JOURNEY_DEPOSIT_AMOUNT,default=30"`

	FailFast bool `env:"JOURNEY_FAIL_FAST,default=false"`
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
	"none":  true,
}

var validColorModes = map[string]bool{
	"auto":   true,
	"always": true,
	"never":  true,
}

// Variables that command-line flags can override.
const (
	EnvBaseURL  = "JOURNEY_BASE_URL"
	EnvDatabase = "JOURNEY_DB"
)

// Load reads the process environment and returns a validated Environment.
func Load() (*Environment, error) {
	return LoadWith(nil)
}

// LoadWith is Load with overrides laid over the process environment before
// validation. Empty override values are ignored.
func LoadWith(overrides map[string]string) (*Environment, error) {
	es, err := env.EnvironToEnvSet(os.Environ())
	if err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	for k, v := range overrides {
		if v != "" {
			es[k] = v
		}
	}
	return LoadFrom(es)
}

// LoadFrom is Load over an explicit variable set.
func LoadFrom(es env.EnvSet) (*Environment, error) {
	var cfg Environment
	if err := env.Unmarshal(es, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal environment variables: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validateConfig rejects settings that cannot produce a meaningful run.
func validateConfig(cfg *Environment) error {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("JOURNEY_BASE_URL must be an absolute http(s) URL, got %q", cfg.BaseURL)
	}
	if cfg.HTTPTimeout < 0 {
		return fmt.Errorf("JOURNEY_HTTP_TIMEOUT must be 0 or greater")
	}
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("JOURNEY_RATE_LIMIT_RPS must be 0 or greater")
	}
	if cfg.RateLimitRPS > 0 && cfg.RateLimitBurst < 1 {
		return fmt.Errorf("JOURNEY_RATE_LIMIT_BURST must be at least 1 when rate limiting is enabled")
	}
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("invalid JOURNEY_LOG_LEVEL: %s", cfg.LogLevel)
	}
	if !validColorModes[cfg.LogColor] {
		return fmt.Errorf("invalid JOURNEY_LOG_COLOR: %s", cfg.LogColor)
	}

	if cfg.TransferAmount <= 0 || cfg.DepositAmount <= 0 {
		return fmt.Errorf("JOURNEY_TRANSFER_AMOUNT and JOURNEY_DEPOSIT_AMOUNT must be positive")
	}
	if cfg.TransferAmount+cfg.DepositAmount > cfg.StartingBalance {
		return fmt.Errorf("JOURNEY_TRANSFER_AMOUNT (%d) + JOURNEY_DEPOSIT_AMOUNT (%d) cannot exceed JOURNEY_STARTING_BALANCE (%d)",
			cfg.TransferAmount, cfg.DepositAmount, cfg.StartingBalance)
	}

	return nil
}
