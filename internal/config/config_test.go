package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ShayCichocki/scopecraft/pkg/models"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Timeouts.Agent != 5*time.Minute {
		t.Errorf("Timeouts.Agent = %v, want 5m", cfg.Timeouts.Agent)
	}
	if cfg.Timeouts.Overall != 10*time.Minute {
		t.Errorf("Timeouts.Overall = %v, want 10m", cfg.Timeouts.Overall)
	}
	if cfg.Timeouts.StopGrace != 5*time.Second {
		t.Errorf("Timeouts.StopGrace = %v, want 5s", cfg.Timeouts.StopGrace)
	}
	if cfg.Agents.MaxQuestions != 3 {
		t.Errorf("Agents.MaxQuestions = %d, want 3", cfg.Agents.MaxQuestions)
	}
	if cfg.ReplanScope() != models.ReplanFull {
		t.Errorf("ReplanScope() = %q, want full", cfg.ReplanScope())
	}
	if !cfg.Index.Enabled {
		t.Error("Index.Enabled = false, want true")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}

func TestLoadFromPath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
projects_dir: ` + filepath.Join(tmpDir, "projects") + `
timeouts:
  agent: 2m
  overall: 30m
replan:
  scope: minimal
agents:
  max_questions: 1
anthropic:
  api_key: sk-ant-from-file
  model: claude-test
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}

	if cfg.ProjectsDir != filepath.Join(tmpDir, "projects") {
		t.Errorf("ProjectsDir = %q", cfg.ProjectsDir)
	}
	if cfg.Timeouts.Agent != 2*time.Minute {
		t.Errorf("Timeouts.Agent = %v, want 2m", cfg.Timeouts.Agent)
	}
	if cfg.Timeouts.Overall != 30*time.Minute {
		t.Errorf("Timeouts.Overall = %v, want 30m", cfg.Timeouts.Overall)
	}
	// Unset keys keep their defaults.
	if cfg.Timeouts.StopGrace != 5*time.Second {
		t.Errorf("Timeouts.StopGrace = %v, want default 5s", cfg.Timeouts.StopGrace)
	}
	if cfg.ReplanScope() != models.ReplanMinimal {
		t.Errorf("ReplanScope() = %q, want minimal", cfg.ReplanScope())
	}
	if cfg.Agents.MaxQuestions != 1 {
		t.Errorf("Agents.MaxQuestions = %d, want 1", cfg.Agents.MaxQuestions)
	}
	if cfg.Anthropic.Model != "claude-test" {
		t.Errorf("Anthropic.Model = %q", cfg.Anthropic.Model)
	}
}

func TestLoadFromPath_EnvOverrides(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("timeouts:\n  agent: 2m\n"), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("SCOPECRAFT_TIMEOUTS_AGENT", "45s")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-env-override")

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}
	if cfg.Timeouts.Agent != 45*time.Second {
		t.Errorf("Timeouts.Agent = %v, want 45s", cfg.Timeouts.Agent)
	}
	if cfg.Anthropic.APIKey != "sk-ant-env-override" {
		t.Errorf("Anthropic.APIKey = %q", cfg.Anthropic.APIKey)
	}
}

func TestLoadFromPath_InvalidValue(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("replan:\n  scope: sideways\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFromPath(configPath)
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("LoadFromPath() error = %v, want *ConfigError", err)
	}
	if cfgErr.Key != "replan.scope" {
		t.Errorf("ConfigError.Key = %q, want replan.scope", cfgErr.Key)
	}
}

func TestLoadFromPath_NotFound(t *testing.T) {
	if _, err := LoadFromPath("/nonexistent/path/config.yaml"); err == nil {
		t.Error("expected error for nonexistent config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantKey string
	}{
		{"empty projects dir", func(c *Config) { c.ProjectsDir = "" }, "projects_dir"},
		{"zero agent timeout", func(c *Config) { c.Timeouts.Agent = 0 }, "timeouts.agent"},
		{"negative call timeout", func(c *Config) { c.Timeouts.Call = -time.Second }, "timeouts.call"},
		{"bad scope", func(c *Config) { c.Replan.Scope = "partial" }, "replan.scope"},
		{"negative questions", func(c *Config) { c.Agents.MaxQuestions = -1 }, "agents.max_questions"},
		{"bedrock without region", func(c *Config) { c.Anthropic.UseBedrock = true }, "anthropic.aws_region"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Validate() = %v, want *ConfigError", err)
			}
			if cfgErr.Key != tt.wantKey {
				t.Errorf("Key = %q, want %q", cfgErr.Key, tt.wantKey)
			}
		})
	}
}

func TestLoad_ProjectOverride(t *testing.T) {
	userDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", userDir)
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	t.Setenv("ANTHROPIC_API_KEY", "")

	if err := os.MkdirAll(filepath.Join(userDir, appName), 0755); err != nil {
		t.Fatal(err)
	}
	userConfig := "agents:\n  max_questions: 2\nreplan:\n  scope: minimal\n"
	if err := os.WriteFile(filepath.Join(userDir, appName, "config.yaml"), []byte(userConfig), 0644); err != nil {
		t.Fatal(err)
	}

	repo := t.TempDir()
	nested := filepath.Join(repo, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(repo, ProjectConfigName), []byte("agents:\n  max_questions: 0\n"), 0644); err != nil {
		t.Fatal(err)
	}

	wd, _ := os.Getwd()
	if err := os.Chdir(nested); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(wd)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Agents.MaxQuestions != 0 {
		t.Errorf("MaxQuestions = %d, want project override 0", cfg.Agents.MaxQuestions)
	}
	if cfg.ReplanScope() != models.ReplanMinimal {
		t.Errorf("ReplanScope() = %q, want user value minimal", cfg.ReplanScope())
	}
}

func TestValue(t *testing.T) {
	cfg := Default()
	cfg.Anthropic.APIKey = "sk-ant-REDACTED"

	got, err := cfg.Value("timeouts.agent")
	if err != nil || got != "5m0s" {
		t.Errorf("Value(timeouts.agent) = %q, %v", got, err)
	}
	got, _ = cfg.Value("anthropic.api_key")
	if got != "sk-ant-...wxyz" {
		t.Errorf("Value(anthropic.api_key) = %q, want masked", got)
	}
	for _, key := range Keys {
		if _, err := cfg.Value(key); err != nil {
			t.Errorf("Value(%q) error = %v", key, err)
		}
	}
	if _, err := cfg.Value("nope"); err == nil {
		t.Error("Value(unknown) succeeded")
	}
}

func TestSet(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if err := Set("timeouts.agent", "90s"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := Set("replan.scope", "minimal"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	cfg, err := LoadFromPath(GetUserConfigPath())
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}
	if cfg.Timeouts.Agent != 90*time.Second {
		t.Errorf("Timeouts.Agent = %v, want 90s", cfg.Timeouts.Agent)
	}
	if cfg.ReplanScope() != models.ReplanMinimal {
		t.Errorf("ReplanScope() = %q, want minimal", cfg.ReplanScope())
	}

	if err := Set("replan.scope", "bogus"); err == nil {
		t.Error("Set() accepted an invalid scope")
	}
	if err := Set("unknown.key", "x"); err == nil {
		t.Error("Set() accepted an unknown key")
	}
}
