// Package config handles configuration loading and management for scopecraft.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ShayCichocki/scopecraft/pkg/models"
)

const (
	appName = "scopecraft"
	// ProjectConfigName is the per-repository override file.
	ProjectConfigName = ".scopecraft.yaml"
	// EnvPrefix prefixes environment overrides, e.g. SCOPECRAFT_TIMEOUTS_AGENT.
	EnvPrefix = "SCOPECRAFT"
)

// Config holds all configuration for scopecraft.
type Config struct {
	ProjectsDir string          `mapstructure:"projects_dir"`
	Timeouts    TimeoutsConfig  `mapstructure:"timeouts"`
	Replan      ReplanConfig    `mapstructure:"replan"`
	Agents      AgentsConfig    `mapstructure:"agents"`
	Anthropic   AnthropicConfig `mapstructure:"anthropic"`
	Index       IndexConfig     `mapstructure:"index"`
	Log         LogConfig       `mapstructure:"log"`
}

// TimeoutsConfig holds pipeline timeouts.
type TimeoutsConfig struct {
	// Agent bounds a single phase agent.
	Agent time.Duration `mapstructure:"agent"`
	// Overall bounds how long a caller waits for a run.
	Overall time.Duration `mapstructure:"overall"`
	// StopGrace is how long a stopped agent gets to exit.
	StopGrace time.Duration `mapstructure:"stop_grace"`
	// Call bounds synchronous queries to a live coordinator.
	Call time.Duration `mapstructure:"call"`
}

// ReplanConfig holds replan defaults.
type ReplanConfig struct {
	Scope string `mapstructure:"scope"`
}

// AgentsConfig holds phase agent settings.
type AgentsConfig struct {
	// MaxQuestions is how many clarification questions one phase may ask.
	MaxQuestions int `mapstructure:"max_questions"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey     string `mapstructure:"api_key"`
	Model      string `mapstructure:"model"`
	UseBedrock bool   `mapstructure:"use_bedrock"`
	AWSRegion  string `mapstructure:"aws_region"`
	AWSProfile string `mapstructure:"aws_profile"`
}

// IndexConfig holds project index settings.
type IndexConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Debug enables the per-project coordinator log file.
	Debug bool `mapstructure:"debug"`
}

// ConfigError reports an invalid configuration value.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Key, e.Reason)
}

// Keys lists every supported configuration key.
var Keys = []string{
	"projects_dir",
	"timeouts.agent",
	"timeouts.overall",
	"timeouts.stop_grace",
	"timeouts.call",
	"replan.scope",
	"agents.max_questions",
	"anthropic.api_key",
	"anthropic.model",
	"anthropic.use_bedrock",
	"anthropic.aws_region",
	"anthropic.aws_profile",
	"index.enabled",
	"log.debug",
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY, SCOPECRAFT_*)
// 2. Project config (.scopecraft.yaml in current directory or parent)
// 3. User config (~/.config/scopecraft/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading project config %s: %w", projectConfig, err)
		}
		if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
			return nil, fmt.Errorf("merging project config: %w", err)
		}
	}

	bindEnv(v)
	return unmarshal(v)
}

// LoadFromPath loads configuration from a specific file on top of defaults.
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	bindEnv(v)
	return unmarshal(v)
}

var envReplacer = strings.NewReplacer(".", "_")

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(envReplacer)
	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY", EnvPrefix+"_ANTHROPIC_API_KEY")
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)
	cfg.ProjectsDir = expandHome(os.ExpandEnv(cfg.ProjectsDir))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every value and returns a *ConfigError for the first bad one.
func (c *Config) Validate() error {
	if c.ProjectsDir == "" {
		return &ConfigError{Key: "projects_dir", Reason: "must not be empty"}
	}
	durations := []struct {
		key string
		d   time.Duration
	}{
		{"timeouts.agent", c.Timeouts.Agent},
		{"timeouts.overall", c.Timeouts.Overall},
		{"timeouts.stop_grace", c.Timeouts.StopGrace},
		{"timeouts.call", c.Timeouts.Call},
	}
	for _, d := range durations {
		if d.d <= 0 {
			return &ConfigError{Key: d.key, Reason: fmt.Sprintf("must be positive, got %v", d.d)}
		}
	}
	if _, err := models.ParseReplanScope(c.Replan.Scope); err != nil {
		return &ConfigError{Key: "replan.scope", Reason: err.Error()}
	}
	if c.Agents.MaxQuestions < 0 {
		return &ConfigError{Key: "agents.max_questions", Reason: "must not be negative"}
	}
	if c.Anthropic.UseBedrock && c.Anthropic.AWSRegion == "" {
		return &ConfigError{Key: "anthropic.aws_region", Reason: "required when use_bedrock is set"}
	}
	return nil
}

// ReplanScope returns the configured default replan scope.
func (c *Config) ReplanScope() models.ReplanScope {
	scope, err := models.ParseReplanScope(c.Replan.Scope)
	if err != nil {
		return models.ReplanFull
	}
	return scope
}

// Set writes a single key to the user config file, preserving other values.
func Set(key, value string) error {
	if !IsKnownKey(key) {
		return &ConfigError{Key: key, Reason: "unknown key"}
	}

	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)
	if _, err := os.Stat(configPath); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading user config: %w", err)
		}
	}
	v.Set(key, value)

	// Validate the result before persisting it.
	check := viper.New()
	setDefaults(check)
	if err := check.MergeConfigMap(v.AllSettings()); err != nil {
		return fmt.Errorf("merging config: %w", err)
	}
	if _, err := unmarshal(check); err != nil {
		return err
	}

	return v.WriteConfigAs(configPath)
}

// IsKnownKey reports whether key is a supported configuration key.
func IsKnownKey(key string) bool {
	for _, k := range Keys {
		if k == key {
			return true
		}
	}
	return false
}

// Value returns the string form of a key's effective value.
func (c *Config) Value(key string) (string, error) {
	switch key {
	case "projects_dir":
		return c.ProjectsDir, nil
	case "timeouts.agent":
		return c.Timeouts.Agent.String(), nil
	case "timeouts.overall":
		return c.Timeouts.Overall.String(), nil
	case "timeouts.stop_grace":
		return c.Timeouts.StopGrace.String(), nil
	case "timeouts.call":
		return c.Timeouts.Call.String(), nil
	case "replan.scope":
		return c.Replan.Scope, nil
	case "agents.max_questions":
		return fmt.Sprintf("%d", c.Agents.MaxQuestions), nil
	case "anthropic.api_key":
		return MaskAPIKey(c.Anthropic.APIKey), nil
	case "anthropic.model":
		return c.Anthropic.Model, nil
	case "anthropic.use_bedrock":
		return fmt.Sprintf("%t", c.Anthropic.UseBedrock), nil
	case "anthropic.aws_region":
		return c.Anthropic.AWSRegion, nil
	case "anthropic.aws_profile":
		return c.Anthropic.AWSProfile, nil
	case "index.enabled":
		return fmt.Sprintf("%t", c.Index.Enabled), nil
	case "log.debug":
		return fmt.Sprintf("%t", c.Log.Debug), nil
	default:
		return "", &ConfigError{Key: key, Reason: "unknown key"}
	}
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// DefaultProjectsDir returns the XDG data directory for project state.
func DefaultProjectsDir() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".", "."+appName, "projects")
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, appName, "projects")
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("projects_dir", d.ProjectsDir)

	v.SetDefault("timeouts.agent", d.Timeouts.Agent.String())
	v.SetDefault("timeouts.overall", d.Timeouts.Overall.String())
	v.SetDefault("timeouts.stop_grace", d.Timeouts.StopGrace.String())
	v.SetDefault("timeouts.call", d.Timeouts.Call.String())

	v.SetDefault("replan.scope", d.Replan.Scope)
	v.SetDefault("agents.max_questions", d.Agents.MaxQuestions)

	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", d.Anthropic.Model)
	v.SetDefault("anthropic.use_bedrock", false)
	v.SetDefault("anthropic.aws_region", "")
	v.SetDefault("anthropic.aws_profile", "")

	v.SetDefault("index.enabled", d.Index.Enabled)
	v.SetDefault("log.debug", d.Log.Debug)
}

// getUserConfigDir returns the XDG config directory for scopecraft.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", appName)
	}
	return filepath.Join(home, ".config", appName)
}

// findProjectConfig searches for .scopecraft.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		configPath := filepath.Join(cwd, ProjectConfigName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		parent := filepath.Dir(cwd)
		if parent == cwd {
			return ""
		}
		cwd = parent
	}
}

func expandHome(path string) string {
	if len(path) < 2 || path[:2] != "~/" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		ProjectsDir: DefaultProjectsDir(),
		Timeouts: TimeoutsConfig{
			Agent:     5 * time.Minute,
			Overall:   10 * time.Minute,
			StopGrace: 5 * time.Second,
			Call:      5 * time.Second,
		},
		Replan:    ReplanConfig{Scope: string(models.ReplanFull)},
		Agents:    AgentsConfig{MaxQuestions: 3},
		Anthropic: AnthropicConfig{Model: DefaultModel},
		Index:     IndexConfig{Enabled: true},
		Log:       LogConfig{Debug: true},
	}
}

// DefaultModel is the Claude model used when none is configured.
const DefaultModel = "claude-sonnet-4-5-20250929"
