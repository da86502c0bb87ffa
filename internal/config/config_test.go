package config

import (
	"testing"

	"gorates/internal"
	"gorates/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DENOMINATOR_LOWER_BOUND", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("INPUT_FILE", "")
	t.Setenv("INPUT_SHEET", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 0.0, cfg.Evaluation.DenominatorLowerBound)
	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "Sheet1", cfg.Input.Sheet)
	assert.Equal(t, internal.LogLevelInfo, cfg.Logger().GetLevel())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("DENOMINATOR_LOWER_BOUND", "0.001")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("INPUT_FILE", "scores.xlsx")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 0.001, cfg.Evaluation.DenominatorLowerBound)
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.Equal(t, "scores.xlsx", cfg.Input.File)
	assert.Equal(t, internal.LogLevelDebug, cfg.Logger().GetLevel())
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]map[string]string{
		"negative bound": {"DENOMINATOR_LOWER_BOUND": "-1"},
		"non-numeric":    {"DENOMINATOR_LOWER_BOUND": "tiny"},
		"unknown level":  {"LOG_LEVEL": "VERBOSE"},
	}

	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv("DENOMINATOR_LOWER_BOUND", "")
			t.Setenv("LOG_LEVEL", "")
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
		})
	}
}
