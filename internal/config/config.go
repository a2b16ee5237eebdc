package config

import (
	"os"
	"strconv"
)

// Auth modes
const (
	AuthModeNone    = "none"
	AuthModeGateway = "gateway"
	AuthModeToken   = "token"
)

const defaultDatasetWorkers = 4

// Config holds the application configuration
type Config struct {
	// Environment
	Environment string
	Port        string

	// Database
	DatabaseURL string

	// Observability
	SentryDSN string // Sentry DSN for error tracking

	// Auth mode
	// - "none": No auth (self-hosted, local dev)
	// - "gateway": Trust X-User-* headers from the edge gateway
	// - "token": Validate service JWTs locally
	AuthMode         string
	ServiceJWTSecret string // HMAC secret for service tokens when AuthMode is "token"

	// Encoder selection. The profile picks an embedded configuration; the
	// override fields, when set, replace individual values from it. Note
	// overrides accept MIDI numbers or note names like "C2".
	EncoderProfile   string
	EncoderMinNote   string
	EncoderMaxNote   string
	EncoderKey       string
	EncoderLookbacks string // Comma-separated step distances, e.g. "16,32"

	// Dataset builds
	DatasetWorkers int
}

func Load() *Config {
	return &Config{
		Environment:      getEnv("ENVIRONMENT", "development"),
		Port:             getEnv("PORT", "8080"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		SentryDSN:        getEnv("SENTRY_DSN", ""),
		AuthMode:         getEnv("AUTH_MODE", AuthModeNone), // Default to no auth for self-hosted
		ServiceJWTSecret: getEnv("SERVICE_JWT_SECRET", ""),
		EncoderProfile:   getEnv("ENCODER_PROFILE", "default"),
		EncoderMinNote:   getEnv("ENCODER_MIN_NOTE", ""),
		EncoderMaxNote:   getEnv("ENCODER_MAX_NOTE", ""),
		EncoderKey:       getEnv("ENCODER_TRANSPOSE_TO_KEY", ""),
		EncoderLookbacks: getEnv("ENCODER_LOOKBACK_DISTANCES", ""),
		DatasetWorkers:   getEnvInt("DATASET_WORKERS", defaultDatasetWorkers),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 1 {
		return defaultValue
	}
	return parsed
}

// IsGatewayMode returns true if running behind the edge gateway
func (c *Config) IsGatewayMode() bool {
	return c.AuthMode == AuthModeGateway
}

// IsTokenMode returns true if service JWTs are validated locally
func (c *Config) IsTokenMode() bool {
	return c.AuthMode == AuthModeToken
}
