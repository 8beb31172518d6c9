package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Agent.MaxSteps)
	assert.Equal(t, 3, cfg.Agent.MaxConsecutiveFailures)
	assert.Equal(t, 1500*time.Millisecond, cfg.Agent.SettleDelay)
	assert.Equal(t, ProviderAnthropic, cfg.LLM.Provider)
	assert.Equal(t, DriverCDP, cfg.Input.Driver)
	assert.Equal(t, "http://localhost:8000", cfg.Parser.URL)
	assert.True(t, cfg.Artifacts.Enabled)
	assert.Empty(t, cfg.Database.DSN)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
agent:
  max_steps: 5
  history_window: 4
llm:
  provider: gemini
  model: gemini-2.0-flash
input:
  driver: noop
  scaling_factor: 2.0
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Agent.MaxSteps)
	assert.Equal(t, 4, cfg.Agent.HistoryWindow)
	assert.Equal(t, ProviderGemini, cfg.LLM.Provider)
	assert.Equal(t, "gemini-2.0-flash", cfg.LLM.Model)
	assert.Equal(t, DriverNoop, cfg.Input.Driver)
	assert.Equal(t, 2.0, cfg.Scaling())

	// Unset values keep their defaults.
	assert.Equal(t, 3, cfg.Agent.PerceptionRetries)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SIGHTLINE_LLM_PROVIDER", "gemini")

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, ProviderGemini, cfg.LLM.Provider)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load(viper.New(), "")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"zero max steps", func(c *Config) { c.Agent.MaxSteps = 0 }, "max_steps"},
		{"zero failure threshold", func(c *Config) { c.Agent.MaxConsecutiveFailures = 0 }, "max_consecutive_failures"},
		{"unknown provider", func(c *Config) { c.LLM.Provider = "llama" }, "llm.provider"},
		{"unknown driver", func(c *Config) { c.Input.Driver = "robot" }, "input.driver"},
		{"negative scaling", func(c *Config) { c.Input.ScalingFactor = -1 }, "scaling_factor"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestScalingDefaultsToOne(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, 1.0, cfg.Scaling())
}
