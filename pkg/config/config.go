// Package config loads service configuration from environment variables.
package config

import (
	"os"
	"strconv"
)

// Config holds server configuration.
type Config struct {
	Port     string
	LogLevel string

	// RegistryBackend selects where moral records persist:
	// "memory" (default), "sqlite", or "postgres".
	RegistryBackend string
	SQLitePath      string
	DatabaseURL     string

	// PolicyProfile optionally points at a YAML sandbox profile.
	PolicyProfile string

	// LLM collaborator settings. An empty service URL disables the
	// collaborator; positions fall back to the static provider.
	LLMServiceURL string
	LLMAPIKey     string
	LLMModel      string

	// Telemetry
	OTLPEndpoint     string
	TelemetryEnabled bool

	// RateLimitRPS bounds analyze requests per second per client.
	RateLimitRPS float64
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		Port:             getenv("PORT", "8000"),
		LogLevel:         getenv("LOG_LEVEL", "INFO"),
		RegistryBackend:  getenv("REGISTRY_BACKEND", "memory"),
		SQLitePath:       getenv("SQLITE_PATH", "moralogy.db"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		PolicyProfile:    os.Getenv("POLICY_PROFILE"),
		LLMServiceURL:    os.Getenv("LLM_SERVICE_URL"),
		LLMAPIKey:        os.Getenv("LLM_API_KEY"),
		LLMModel:         getenv("LLM_MODEL", "gpt-4o-mini"),
		OTLPEndpoint:     getenv("OTLP_ENDPOINT", "localhost:4317"),
		TelemetryEnabled: os.Getenv("TELEMETRY_ENABLED") == "true",
		RateLimitRPS:     getenvFloat("RATE_LIMIT_RPS", 5),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
