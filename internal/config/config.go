package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Logging
	LogLevel string

	// Auth
	PinMaxAttempts int
	BcryptCost     int
	JWTSecret      string
	JWTAccessTTL   time.Duration

	// Accounts
	AccountNumberSeed uint64

	// Savings policy defaults (applied to new savings accounts)
	SavingsFreeWithdrawals int
	SavingsPenaltyRate     float64 // % of the withdrawn amount

	// Observability
	OTLPEndpoint  string
	TracesEnabled bool
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		LogLevel: getEnv("LOG_LEVEL", "info"),

		PinMaxAttempts: getEnvInt("PIN_MAX_ATTEMPTS", 3),
		BcryptCost:     getEnvInt("BCRYPT_COST", 12),
		JWTSecret:      getEnv("JWT_SECRET", "bankapp-default-dev-secret-change-me"),
		JWTAccessTTL:   getEnvDuration("JWT_ACCESS_TTL", 15*time.Minute),

		AccountNumberSeed: uint64(getEnvInt("ACCOUNT_NUMBER_SEED", 100000)),

		SavingsFreeWithdrawals: getEnvInt("SAVINGS_FREE_WITHDRAWALS", 3),
		SavingsPenaltyRate:     getEnvFloat("SAVINGS_PENALTY_RATE", 1.0),

		OTLPEndpoint:  getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		TracesEnabled: getEnv("TRACES_ENABLED", "false") == "true",
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
