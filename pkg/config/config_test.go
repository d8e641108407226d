package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/moralogy-labs/moralogy/pkg/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := config.Load()

	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, "memory", cfg.RegistryBackend)
	assert.Equal(t, "moralogy.db", cfg.SQLitePath)
	assert.False(t, cfg.TelemetryEnabled)
	assert.Equal(t, 5.0, cfg.RateLimitRPS)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("REGISTRY_BACKEND", "sqlite")
	t.Setenv("TELEMETRY_ENABLED", "true")
	t.Setenv("RATE_LIMIT_RPS", "2.5")

	cfg := config.Load()
	assert.Equal(t, "9999", cfg.Port)
	assert.Equal(t, "sqlite", cfg.RegistryBackend)
	assert.True(t, cfg.TelemetryEnabled)
	assert.Equal(t, 2.5, cfg.RateLimitRPS)
}

func TestLoad_BadFloatFallsBack(t *testing.T) {
	t.Setenv("RATE_LIMIT_RPS", "not-a-number")
	cfg := config.Load()
	assert.Equal(t, 5.0, cfg.RateLimitRPS)
}
