package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"microbiogeo/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Stats    StatsConfig
	Battery  BatteryConfig
}

// DatabaseConfig holds database connection settings. An empty URL disables
// result persistence.
type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
}

// Enabled reports whether a database is configured.
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port            string
	GinMode         string
	ShutdownTimeout time.Duration
}

// StatsConfig holds the defaults applied to method requests that leave a
// parameter unset, and the ceilings a request may not exceed.
type StatsConfig struct {
	DefaultPermutations int
	DefaultAlpha        float64
	Seed                int64
	MaxPermutations     int
	MaxBioEnvCategories int
}

// BatteryConfig holds the battery runner settings
type BatteryConfig struct {
	Workers int
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{}

	dbConfig, err := loadDatabaseConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load database configuration")
	}
	config.Database = *dbConfig

	serverConfig, err := loadServerConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load server configuration")
	}
	config.Server = *serverConfig

	statsConfig, err := loadStatsConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load stats configuration")
	}
	config.Stats = *statsConfig

	workers, err := getEnvInt("BATTERY_WORKERS", 4)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load battery configuration")
	}
	config.Battery = BatteryConfig{Workers: workers}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadDatabaseConfig() (*DatabaseConfig, error) {
	maxOpen, err := getEnvInt("DB_MAX_OPEN_CONNS", 10)
	if err != nil {
		return nil, err
	}
	maxIdle, err := getEnvInt("DB_MAX_IDLE_CONNS", 5)
	if err != nil {
		return nil, err
	}
	return &DatabaseConfig{
		URL:          getEnvOrDefault("DATABASE_URL", ""),
		MaxOpenConns: maxOpen,
		MaxIdleConns: maxIdle,
	}, nil
}

func loadServerConfig() (*ServerConfig, error) {
	timeout, err := getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	return &ServerConfig{
		Port:            getEnvOrDefault("PORT", "8080"),
		GinMode:         getEnvOrDefault("GIN_MODE", "release"),
		ShutdownTimeout: timeout,
	}, nil
}

func loadStatsConfig() (*StatsConfig, error) {
	permutations, err := getEnvInt("DEFAULT_PERMUTATIONS", 999)
	if err != nil {
		return nil, err
	}
	alpha, err := getEnvFloat("DEFAULT_ALPHA", 0.05)
	if err != nil {
		return nil, err
	}
	seed, err := getEnvInt64("RNG_SEED", 42)
	if err != nil {
		return nil, err
	}
	maxPermutations, err := getEnvInt("MAX_PERMUTATIONS", 100000)
	if err != nil {
		return nil, err
	}
	maxCategories, err := getEnvInt("MAX_BIOENV_CATEGORIES", 12)
	if err != nil {
		return nil, err
	}
	return &StatsConfig{
		DefaultPermutations: permutations,
		DefaultAlpha:        alpha,
		Seed:                seed,
		MaxPermutations:     maxPermutations,
		MaxBioEnvCategories: maxCategories,
	}, nil
}

func validateConfig(config *Config) error {
	if config.Stats.DefaultPermutations < 0 {
		return errors.ConfigInvalid("DEFAULT_PERMUTATIONS must be non-negative")
	}
	if config.Stats.MaxPermutations < 1 {
		return errors.ConfigInvalid("MAX_PERMUTATIONS must be at least 1")
	}
	if config.Stats.DefaultPermutations > config.Stats.MaxPermutations {
		return errors.ConfigInvalid(fmt.Sprintf("DEFAULT_PERMUTATIONS %d exceeds MAX_PERMUTATIONS %d",
			config.Stats.DefaultPermutations, config.Stats.MaxPermutations))
	}
	if config.Stats.MaxBioEnvCategories < 1 {
		return errors.ConfigInvalid("MAX_BIOENV_CATEGORIES must be at least 1")
	}
	if config.Stats.DefaultAlpha < 0 || config.Stats.DefaultAlpha > 1 {
		return errors.ConfigInvalid("DEFAULT_ALPHA must be in [0, 1]")
	}
	if config.Battery.Workers < 1 {
		return errors.ConfigInvalid("BATTERY_WORKERS must be at least 1")
	}
	switch config.Server.GinMode {
	case "debug", "release", "test":
	default:
		return errors.ConfigInvalid(fmt.Sprintf("GIN_MODE %q is not one of debug, release, test", config.Server.GinMode))
	}
	return nil
}

// Helper functions for environment variable parsing. A set but malformed
// value is a configuration error rather than a silent default.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.ConfigInvalid(fmt.Sprintf("%s=%q is not an integer", key, value))
	}
	return intValue, nil
}

func getEnvInt64(key string, defaultValue int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	intValue, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, errors.ConfigInvalid(fmt.Sprintf("%s=%q is not an integer", key, value))
	}
	return intValue, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, errors.ConfigInvalid(fmt.Sprintf("%s=%q is not a number", key, value))
	}
	return floatValue, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, errors.ConfigInvalid(fmt.Sprintf("%s=%q is not a duration", key, value))
	}
	return duration, nil
}
