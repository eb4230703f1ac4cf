package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setEnvs(t *testing.T, envs map[string]string) {
	t.Helper()
	for k, v := range envs {
		t.Setenv(k, v)
	}
}

func baseEnvs() map[string]string {
	return map[string]string{
		"PLATFORM_BASE_URL": "http://platform.local",
		"JWT_SECRET":        "dev-secret",
	}
}

func TestLoadDefaults(t *testing.T) {
	setEnvs(t, baseEnvs())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "http://platform.local", cfg.PlatformBaseURL)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "catalog.changes", cfg.KafkaCatalogTopic)
	assert.Equal(t, 30, cfg.RateLimitRPS)
}

func TestLoadRequiresPlatformURL(t *testing.T) {
	setEnvs(t, map[string]string{"JWT_SECRET": "dev-secret"})

	cfg, err := Load()

	assert.Nil(t, cfg)
	assert.Error(t, err)
}

func TestLoadRejectsShortSecretOutsideDevelopment(t *testing.T) {
	envs := baseEnvs()
	envs["ENVIRONMENT"] = "production"
	setEnvs(t, envs)

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET must be at least 32 characters")
}

func TestLoadAcceptsStrongSecretInProduction(t *testing.T) {
	envs := baseEnvs()
	envs["ENVIRONMENT"] = "production"
	envs["JWT_SECRET"] = "this-is-a-very-secure-secret-key-for-production-use"
	setEnvs(t, envs)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Environment)
}

func TestLoadRejectsInvalidSampleRate(t *testing.T) {
	envs := baseEnvs()
	envs["OTEL_SAMPLE_RATE"] = "1.5"
	setEnvs(t, envs)

	cfg, err := Load()

	assert.Nil(t, cfg)
	assert.Error(t, err)
}

func TestLoadParsesBrokerList(t *testing.T) {
	envs := baseEnvs()
	envs["KAFKA_BROKERS"] = "broker-1:9092,broker-2:9092"
	setEnvs(t, envs)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.KafkaBrokers)
}
