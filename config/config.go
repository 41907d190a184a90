// Package config loads gateway configuration from the environment.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all process configuration values.
type Config struct {
	// Server
	Addr            string
	Env             string
	GracefulTimeout time.Duration

	// Coordination store (Redis)
	CoordinationURL string
	RedisPoolSize   int

	// Authentication
	APIKeyHeader string

	// Admission window
	WindowSeconds int

	// Deterministic tier derivation defaults: a per-dimension ceiling
	// applied to every resolved config, whether it comes from a static
	// override or from the derived tier.
	InputTPMDefault  int
	OutputTPMDefault int
	RPMDefault       int

	// Path to an optional JSON file of per-key RateLimitConfig overrides.
	// Empty means no overrides.
	OverridesPath string

	// Per-call timeouts
	CSAdmitTimeout    time.Duration
	GeneratorTimeout  time.Duration

	// Backpressure
	MaxInFlight int

	// Body limits
	MaxBodyBytes int64

	// Logging
	LogLevel string
}

// Load reads configuration from environment variables and an optional .env file.
func Load() *Config {
	_ = godotenv.Load()

	gracefulSec := getEnvInt("GATEWAY_GRACEFUL_TIMEOUT_SEC", 15)

	cfg := &Config{
		Addr:             getEnv("LISTEN_ADDR", ":8080"),
		Env:              getEnv("ENV", "development"),
		GracefulTimeout:  time.Duration(gracefulSec) * time.Second,
		CoordinationURL:  getEnv("COORDINATION_URL", "redis://redis:6379"),
		RedisPoolSize:    getEnvInt("REDIS_POOL_SIZE", 16),
		APIKeyHeader:     getEnv("API_KEY_HEADER", "Authorization"),
		WindowSeconds:    getEnvInt("WINDOW_SECONDS", 60),
		InputTPMDefault:  getEnvInt("INPUT_TPM_DEFAULT", 100000),
		OutputTPMDefault: getEnvInt("OUTPUT_TPM_DEFAULT", 100000),
		RPMDefault:       getEnvInt("RPM_DEFAULT", 500),
		OverridesPath:    getEnv("RATE_LIMIT_OVERRIDES_PATH", ""),
		CSAdmitTimeout:   time.Duration(getEnvInt("CS_ADMIT_TIMEOUT_MS", 50)) * time.Millisecond,
		GeneratorTimeout: time.Duration(getEnvInt("GENERATOR_TIMEOUT_MS", 2000)) * time.Millisecond,
		MaxInFlight:      getEnvInt("MAX_INFLIGHT", 1024),
		MaxBodyBytes:     int64(getEnvInt("GATEWAY_MAX_BODY_BYTES", 1*1024*1024)),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
	}
	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
