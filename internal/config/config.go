// File: internal/config/config.go
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// LLM provider identifiers accepted in llm.provider.
const (
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// Input driver identifiers accepted in input.driver.
const (
	DriverCDP  = "cdp"
	DriverNoop = "noop"
)

// Config is the full application configuration, populated by Load from the
// config file, SIGHTLINE_* environment variables, and bound CLI flags.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Agent     AgentConfig     `mapstructure:"agent"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Parser    ParserConfig    `mapstructure:"parser"`
	Input     InputConfig     `mapstructure:"input"`
	Artifacts ArtifactsConfig `mapstructure:"artifacts"`
	Database  DatabaseConfig  `mapstructure:"database"`
}

// LoggerConfig controls the zap logger and file rotation.
type LoggerConfig struct {
	Level       string `mapstructure:"level"`
	Format      string `mapstructure:"format"` // "console" or "json"
	ServiceName string `mapstructure:"service_name"`
	LogFile     string `mapstructure:"log_file"`
	MaxSizeMB   int    `mapstructure:"max_size_mb"`
	MaxBackups  int    `mapstructure:"max_backups"`
	MaxAgeDays  int    `mapstructure:"max_age_days"`
	Compress    bool   `mapstructure:"compress"`
	AddSource   bool   `mapstructure:"add_source"`
}

// AgentConfig parameterizes the perceive-plan-act loop.
type AgentConfig struct {
	MaxSteps               int           `mapstructure:"max_steps"`
	MaxConsecutiveFailures int           `mapstructure:"max_consecutive_failures"`
	PerceptionRetries      int           `mapstructure:"perception_retries"`
	PerceptionTimeout      time.Duration `mapstructure:"perception_timeout"`
	PlanningTimeout        time.Duration `mapstructure:"planning_timeout"`
	SettleDelay            time.Duration `mapstructure:"settle_delay"`
	HistoryWindow          int           `mapstructure:"history_window"`
	MaxPromptElements      int           `mapstructure:"max_prompt_elements"`
}

// LLMConfig configures the language-model collaborator.
type LLMConfig struct {
	Provider    string        `mapstructure:"provider"`
	Model       string        `mapstructure:"model"`
	APIKey      string        `mapstructure:"api_key"`
	Endpoint    string        `mapstructure:"endpoint"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	APITimeout  time.Duration `mapstructure:"api_timeout"`
	// RequestsPerMinute caps the call rate across all planner invocations.
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
}

// ParserConfig configures the vision-parsing collaborator.
type ParserConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// InputConfig configures the input-simulation driver.
type InputConfig struct {
	Driver string `mapstructure:"driver"`
	// ScalingFactor divides physical pixel coordinates into the logical
	// points the input layer expects (high-density displays). Zero means 1.
	ScalingFactor float64 `mapstructure:"scaling_factor"`
	// TargetURL is the Chromium target for the cdp driver.
	TargetURL string `mapstructure:"target_url"`
	Headless  bool   `mapstructure:"headless"`
}

// ArtifactsConfig configures per-run debug artifact persistence.
type ArtifactsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

// DatabaseConfig configures the optional Postgres run archive. An empty DSN
// disables it.
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

// SetDefaults registers every default value on the given viper instance.
// Called before reading the config file so the file only has to state
// overrides.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "sightline")
	v.SetDefault("logger.max_size_mb", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age_days", 14)

	v.SetDefault("agent.max_steps", 10)
	v.SetDefault("agent.max_consecutive_failures", 3)
	v.SetDefault("agent.perception_retries", 3)
	v.SetDefault("agent.perception_timeout", 30*time.Second)
	v.SetDefault("agent.planning_timeout", 60*time.Second)
	v.SetDefault("agent.settle_delay", 1500*time.Millisecond)
	v.SetDefault("agent.history_window", 10)
	v.SetDefault("agent.max_prompt_elements", 100)

	v.SetDefault("llm.provider", ProviderAnthropic)
	v.SetDefault("llm.model", "claude-3-7-sonnet-20250219")
	v.SetDefault("llm.temperature", 0.1)
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.api_timeout", 60*time.Second)
	v.SetDefault("llm.requests_per_minute", 30)

	v.SetDefault("parser.url", "http://localhost:8000")
	v.SetDefault("parser.timeout", 60*time.Second)

	v.SetDefault("input.driver", DriverCDP)
	v.SetDefault("input.scaling_factor", 1.0)
	v.SetDefault("input.headless", false)

	v.SetDefault("artifacts.enabled", true)
	v.SetDefault("artifacts.dir", "runs")
}

// Load reads configuration from the given file (or the default search path
// when empty), layers SIGHTLINE_* environment variables over it, and
// unmarshals into a validated Config.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	SetDefaults(v)

	if cfgFile != "" {
		expanded, err := homedir.Expand(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("failed to expand config path: %w", err)
		}
		v.SetConfigFile(expanded)
	} else {
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".sightline"))
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("SIGHTLINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults and env vars apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the rest of the system cannot run with.
func (c *Config) Validate() error {
	if c.Agent.MaxSteps < 1 {
		return fmt.Errorf("agent.max_steps must be at least 1, got %d", c.Agent.MaxSteps)
	}
	if c.Agent.MaxConsecutiveFailures < 1 {
		return fmt.Errorf("agent.max_consecutive_failures must be at least 1, got %d", c.Agent.MaxConsecutiveFailures)
	}
	if c.Agent.HistoryWindow < 1 {
		return fmt.Errorf("agent.history_window must be at least 1, got %d", c.Agent.HistoryWindow)
	}
	switch c.LLM.Provider {
	case ProviderAnthropic, ProviderGemini:
	default:
		return fmt.Errorf("llm.provider %q is not supported (anthropic, gemini)", c.LLM.Provider)
	}
	switch c.Input.Driver {
	case DriverCDP, DriverNoop:
	default:
		return fmt.Errorf("input.driver %q is not supported (cdp, noop)", c.Input.Driver)
	}
	if c.Input.ScalingFactor < 0 {
		return fmt.Errorf("input.scaling_factor must not be negative")
	}
	return nil
}

// Scaling returns the effective display scaling factor, defaulting to 1.
func (c *Config) Scaling() float64 {
	if c.Input.ScalingFactor <= 0 {
		return 1
	}
	return c.Input.ScalingFactor
}
