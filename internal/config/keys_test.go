package config

import (
	"errors"
	"testing"
)

func TestGetAPIKey(t *testing.T) {
	t.Run("environment wins over config", func(t *testing.T) {
		t.Setenv("ANTHROPIC_API_KEY", "sk-ant-env-key")

		cfg := &Config{Anthropic: AnthropicConfig{APIKey: "sk-ant-config-key"}}
		key, err := GetAPIKey(cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if key != "sk-ant-env-key" {
			t.Errorf("GetAPIKey() = %q, want sk-ant-env-key", key)
		}
	})

	t.Run("from config", func(t *testing.T) {
		t.Setenv("ANTHROPIC_API_KEY", "")

		cfg := &Config{Anthropic: AnthropicConfig{APIKey: "sk-ant-config-key"}}
		key, err := GetAPIKey(cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if key != "sk-ant-config-key" {
			t.Errorf("GetAPIKey() = %q, want sk-ant-config-key", key)
		}
	})

	t.Run("unset reference", func(t *testing.T) {
		t.Setenv("ANTHROPIC_API_KEY", "")

		cfg := &Config{Anthropic: AnthropicConfig{APIKey: "${SCOPECRAFT_TEST_MISSING}"}}
		if _, err := GetAPIKey(cfg); !errors.Is(err, ErrNoAPIKey) {
			t.Errorf("GetAPIKey() error = %v, want ErrNoAPIKey", err)
		}
	})

	t.Run("no key configured", func(t *testing.T) {
		t.Setenv("ANTHROPIC_API_KEY", "")

		_, err := GetAPIKey(&Config{})
		if !errors.Is(err, ErrNoAPIKey) {
			t.Errorf("GetAPIKey() error = %v, want ErrNoAPIKey", err)
		}
	})
}

func TestResolveCredentials(t *testing.T) {
	t.Run("bedrock needs no key", func(t *testing.T) {
		t.Setenv("ANTHROPIC_API_KEY", "")

		cfg := &Config{Anthropic: AnthropicConfig{UseBedrock: true, AWSRegion: "us-west-2", AWSProfile: "dev"}}
		creds, err := ResolveCredentials(cfg)
		if err != nil {
			t.Fatalf("ResolveCredentials() error = %v", err)
		}
		if !creds.UseBedrock || creds.AWSRegion != "us-west-2" || creds.AWSProfile != "dev" {
			t.Errorf("ResolveCredentials() = %+v", creds)
		}
		if creds.Source != KeySourceAWS {
			t.Errorf("Source = %v, want aws", creds.Source)
		}
	})

	t.Run("api key", func(t *testing.T) {
		t.Setenv("ANTHROPIC_API_KEY", "sk-ant-env-key")

		creds, err := ResolveCredentials(&Config{})
		if err != nil {
			t.Fatalf("ResolveCredentials() error = %v", err)
		}
		if creds.APIKey != "sk-ant-env-key" || creds.Source != KeySourceEnv {
			t.Errorf("ResolveCredentials() = %+v", creds)
		}
	})

	t.Run("nothing configured", func(t *testing.T) {
		t.Setenv("ANTHROPIC_API_KEY", "")

		_, err := ResolveCredentials(&Config{})
		if !errors.Is(err, ErrNoAPIKey) {
			t.Errorf("ResolveCredentials() error = %v, want ErrNoAPIKey", err)
		}
	})
}

func TestValidateAPIKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"valid key", "sk-ant-REDACTED", false},
		{"empty key", "", true},
		{"wrong prefix", "sk-openai-12345678901234567890", true},
		{"too short", "sk-ant-abc", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAPIKey(tt.key)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAPIKey() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"sk-ant-REDACTED", "sk-ant-...wxyz"},
		{"", "(not set)"},
		{"short", "***"},
	}

	for _, tt := range tests {
		if got := MaskAPIKey(tt.key); got != tt.want {
			t.Errorf("MaskAPIKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestGetAPIKeySource(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	if got := GetAPIKeySource(&Config{}); got != KeySourceNone {
		t.Errorf("GetAPIKeySource(empty) = %v, want none", got)
	}

	cfg := &Config{Anthropic: AnthropicConfig{APIKey: "sk-ant-config-key"}}
	if got := GetAPIKeySource(cfg); got != KeySourceConfig {
		t.Errorf("GetAPIKeySource(config) = %v, want config_file", got)
	}

	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-env")
	if got := GetAPIKeySource(cfg); got != KeySourceEnv {
		t.Errorf("GetAPIKeySource(env) = %v, want environment", got)
	}
}
