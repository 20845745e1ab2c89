package config

import (
	"testing"
	"time"

	"microbiogeo/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"DATABASE_URL", "DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS", "PORT", "GIN_MODE",
	"SHUTDOWN_TIMEOUT", "DEFAULT_PERMUTATIONS", "DEFAULT_ALPHA", "RNG_SEED", "BATTERY_WORKERS",
	"MAX_PERMUTATIONS", "MAX_BIOENV_CATEGORIES",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.Database.Enabled())
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "release", cfg.Server.GinMode)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 999, cfg.Stats.DefaultPermutations)
	assert.Equal(t, 0.05, cfg.Stats.DefaultAlpha)
	assert.Equal(t, int64(42), cfg.Stats.Seed)
	assert.Equal(t, 100000, cfg.Stats.MaxPermutations)
	assert.Equal(t, 12, cfg.Stats.MaxBioEnvCategories)
	assert.Equal(t, 4, cfg.Battery.Workers)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/microbiogeo?sslmode=disable")
	t.Setenv("PORT", "9090")
	t.Setenv("GIN_MODE", "test")
	t.Setenv("DEFAULT_PERMUTATIONS", "0")
	t.Setenv("DEFAULT_ALPHA", "0.01")
	t.Setenv("RNG_SEED", "-7")
	t.Setenv("BATTERY_WORKERS", "8")
	t.Setenv("SHUTDOWN_TIMEOUT", "2s")
	t.Setenv("MAX_PERMUTATIONS", "5000")
	t.Setenv("MAX_BIOENV_CATEGORIES", "6")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Database.Enabled())
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 0, cfg.Stats.DefaultPermutations)
	assert.Equal(t, 0.01, cfg.Stats.DefaultAlpha)
	assert.Equal(t, int64(-7), cfg.Stats.Seed)
	assert.Equal(t, 8, cfg.Battery.Workers)
	assert.Equal(t, 5000, cfg.Stats.MaxPermutations)
	assert.Equal(t, 6, cfg.Stats.MaxBioEnvCategories)
	assert.Equal(t, 2*time.Second, cfg.Server.ShutdownTimeout)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string][2]string{
		"negative permutations":    {"DEFAULT_PERMUTATIONS", "-1"},
		"permutations over max":    {"DEFAULT_PERMUTATIONS", "100001"},
		"alpha out of range":       {"DEFAULT_ALPHA", "1.5"},
		"alpha not a number":       {"DEFAULT_ALPHA", "small"},
		"zero workers":             {"BATTERY_WORKERS", "0"},
		"workers not int":          {"BATTERY_WORKERS", "many"},
		"bad seed":                 {"RNG_SEED", "0x"},
		"bad gin mode":             {"GIN_MODE", "loud"},
		"bad timeout":              {"SHUTDOWN_TIMEOUT", "soon"},
		"zero max permutations":    {"MAX_PERMUTATIONS", "0"},
		"max permutations not int": {"MAX_PERMUTATIONS", "lots"},
		"zero max categories":      {"MAX_BIOENV_CATEGORIES", "0"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(kv[0], kv[1])
			_, err := Load()
			require.Error(t, err)
			assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
		})
	}
}
