package config

import (
	"os"
	"strconv"
	"strings"

	"gorates/internal"
	"gorates/internal/errors"

	"github.com/go-playground/validator/v10"
)

// Config represents the complete application configuration
type Config struct {
	Evaluation EvaluationConfig
	Logging    LoggingConfig
	Input      InputConfig
}

// EvaluationConfig holds the settings seeded into every structure memoizer
type EvaluationConfig struct {
	DenominatorLowerBound float64 `validate:"gte=0"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level string `validate:"required,oneof=ERROR WARN INFO DEBUG TRACE"`
}

// InputConfig holds default input locations for the CLI
type InputConfig struct {
	File  string
	Sheet string `validate:"required"`
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	bound, err := getEnvFloat("DENOMINATOR_LOWER_BOUND", 0)
	if err != nil {
		return nil, err
	}

	config := &Config{
		Evaluation: EvaluationConfig{
			DenominatorLowerBound: bound,
		},
		Logging: LoggingConfig{
			Level: strings.ToUpper(getEnvOrDefault("LOG_LEVEL", "INFO")),
		},
		Input: InputConfig{
			File:  getEnvOrDefault("INPUT_FILE", ""),
			Sheet: getEnvOrDefault("INPUT_SHEET", "Sheet1"),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

// Logger builds the leveled logger described by the configuration
func (c *Config) Logger() *internal.Logger {
	level, _ := internal.ParseLogLevel(c.Logging.Level)
	return internal.NewLogger(level)
}

func validateConfig(config *Config) error {
	if err := validator.New().Struct(config); err != nil {
		return errors.ConfigInvalid(err.Error())
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, errors.ConfigInvalid(key + " must be a number, got " + strconv.Quote(value))
	}
	return f, nil
}
