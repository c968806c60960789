// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// knownWeakSecrets contains default/example secrets that must be rejected in production.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	// Remote platform API
	APIBaseURL   string        `env:"ASOC_API_BASE_URL,required"`
	APITimeout   time.Duration `env:"ASOC_API_TIMEOUT" envDefault:"15s"`
	ImageBaseURL string        `env:"ASOC_IMAGE_BASE_URL"` // Defaults to APIBaseURL

	SessionSecret string `env:"ASOC_SESSION_SECRET,required"`
	ServerHost    string `env:"ASOC_SERVER_HOST" envDefault:"localhost"`
	ServerPort    int    `env:"ASOC_SERVER_PORT" envDefault:"8080"`
	Env           string `env:"ASOC_ENV" envDefault:"development"`
	LogLevel      string `env:"ASOC_LOG_LEVEL" envDefault:"info"`

	// Gateway sessions
	SessionLifetime    time.Duration `env:"ASOC_SESSION_LIFETIME" envDefault:"24h"`
	SessionIdleTimeout time.Duration `env:"ASOC_SESSION_IDLE_TIMEOUT" envDefault:"2h"`
	AllowedOrigins     []string      `env:"ASOC_ALLOWED_ORIGINS" envSeparator:","`

	// Cache configuration
	RedisURL     string `env:"ASOC_REDIS_URL"`                         // Optional Redis URL for store snapshots
	CachePrefix  string `env:"ASOC_CACHE_PREFIX" envDefault:"asoc:"`   // Redis key prefix
	CacheTTL     int    `env:"ASOC_CACHE_TTL" envDefault:"86400"`      // Snapshot TTL in seconds
	CacheMaxSize int    `env:"ASOC_CACHE_MAX_SIZE" envDefault:"10000"` // Max memory cache entries

	// Background jobs
	CatalogRefreshSchedule string `env:"ASOC_CATALOG_REFRESH" envDefault:"0 */6 * * *"`
	SessionSweepSchedule   string `env:"ASOC_SESSION_SWEEP" envDefault:"*/10 * * * *"`

	// Image compression
	ImageMaxEdge int `env:"ASOC_IMAGE_MAX_EDGE" envDefault:"1280"`
	ImageQuality int `env:"ASOC_IMAGE_QUALITY" envDefault:"70"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// ImageBase returns the prefix of relative image paths.
func (c Config) ImageBase() string {
	if c.ImageBaseURL != "" {
		return c.ImageBaseURL
	}
	return c.APIBaseURL
}

// MinSessionSecretLength is the minimum required length for the session secret.
const MinSessionSecretLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	u, err := url.Parse(cfg.APIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("ASOC_API_BASE_URL must be an absolute http(s) URL, got %q", cfg.APIBaseURL)
	}
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")

	if cfg.APITimeout <= 0 {
		return nil, fmt.Errorf("ASOC_API_TIMEOUT must be positive, got %s", cfg.APITimeout)
	}
	if cfg.ImageQuality < 1 || cfg.ImageQuality > 100 {
		return nil, fmt.Errorf("ASOC_IMAGE_QUALITY must be between 1 and 100, got %d", cfg.ImageQuality)
	}
	if cfg.ImageMaxEdge <= 0 {
		return nil, fmt.Errorf("ASOC_IMAGE_MAX_EDGE must be positive, got %d", cfg.ImageMaxEdge)
	}

	// Validate session secret length
	if len(cfg.SessionSecret) < MinSessionSecretLength {
		return nil, fmt.Errorf("ASOC_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(cfg.SessionSecret))
	}

	// Reject known weak/default secrets
	for _, weak := range knownWeakSecrets {
		if cfg.SessionSecret == weak {
			return nil, fmt.Errorf("ASOC_SESSION_SECRET is a known default value and must not be used; " +
				"generate a secure secret with: openssl rand -base64 32")
		}
	}

	// Warn about low-entropy secrets
	if !hasMinimumEntropy(cfg.SessionSecret) {
		slog.Warn("ASOC_SESSION_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	return cfg, nil
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
