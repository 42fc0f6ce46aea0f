package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Port          int           `env:"TEST_CFG_PORT" envDefault:"8080"`
	BackendURL    string        `env:"TEST_CFG_BACKEND_URL" envDefault:"http://localhost:8000"`
	RefetchDelay  time.Duration `env:"TEST_CFG_REFETCH_DELAY" envDefault:"500ms"`
	KafkaBrokers  []string      `env:"TEST_CFG_KAFKA_BROKERS" envSeparator:","`
	RedisDisabled bool          `env:"TEST_CFG_REDIS_DISABLED" envDefault:"false"`
}

func TestLoad_Defaults(t *testing.T) {
	var cfg testConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "http://localhost:8000", cfg.BackendURL)
	assert.Equal(t, 500*time.Millisecond, cfg.RefetchDelay)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.False(t, cfg.RedisDisabled)
}

func TestLoad_FromEnvVars(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "9090")
	t.Setenv("TEST_CFG_REFETCH_DELAY", "2s")
	t.Setenv("TEST_CFG_KAFKA_BROKERS", "k1:9092,k2:9092")

	var cfg testConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 2*time.Second, cfg.RefetchDelay)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
}

func TestLoadPrefixed(t *testing.T) {
	t.Setenv("SF_TEST_CFG_PORT", "7000")
	t.Setenv("TEST_CFG_PORT", "9999")

	var cfg testConfig
	require.NoError(t, LoadPrefixed(&cfg, "SF_"))

	assert.Equal(t, 7000, cfg.Port)
}

type requiredConfig struct {
	APIKey string `env:"TEST_CFG_API_KEY,required"`
}

func TestLoad_RequiredFieldMissing(t *testing.T) {
	var cfg requiredConfig
	err := Load(&cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoad_InvalidValue(t *testing.T) {
	t.Setenv("TEST_CFG_REFETCH_DELAY", "soon")

	var cfg testConfig
	err := Load(&cfg)

	assert.Error(t, err)
}
