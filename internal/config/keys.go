package config

import (
	"errors"
	"os"
	"strings"
)

// ErrNoAPIKey is returned when no API key is configured and Bedrock is off.
var ErrNoAPIKey = errors.New("no Anthropic API key configured")

// Credentials describes how the LLM client should authenticate.
type Credentials struct {
	APIKey     string
	UseBedrock bool
	AWSRegion  string
	AWSProfile string
	Source     KeySource
}

// ResolveCredentials picks the authentication mode for cfg. Bedrock uses
// the AWS credential chain and needs no API key.
func ResolveCredentials(cfg *Config) (Credentials, error) {
	if cfg != nil && cfg.Anthropic.UseBedrock {
		return Credentials{
			UseBedrock: true,
			AWSRegion:  cfg.Anthropic.AWSRegion,
			AWSProfile: cfg.Anthropic.AWSProfile,
			Source:     KeySourceAWS,
		}, nil
	}
	key, err := GetAPIKey(cfg)
	if err != nil {
		return Credentials{Source: KeySourceNone}, err
	}
	return Credentials{APIKey: key, Source: GetAPIKeySource(cfg)}, nil
}

// GetAPIKey returns the Anthropic API key, preferring the environment.
func GetAPIKey(cfg *Config) (string, error) {
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		return key, nil
	}
	if key := configKey(cfg); key != "" {
		return key, nil
	}
	return "", ErrNoAPIKey
}

func configKey(cfg *Config) string {
	if cfg == nil || cfg.Anthropic.APIKey == "" {
		return ""
	}
	key := os.ExpandEnv(cfg.Anthropic.APIKey)
	// An unexpanded reference means the variable is unset.
	if strings.HasPrefix(key, "${") {
		return ""
	}
	return key
}

// ValidateAPIKey checks the key's shape. It does not contact the API.
func ValidateAPIKey(key string) error {
	if key == "" {
		return ErrNoAPIKey
	}
	if !strings.HasPrefix(key, "sk-ant-") {
		return errors.New("invalid API key format: expected 'sk-ant-' prefix")
	}
	if len(key) < 20 {
		return errors.New("invalid API key format: key too short")
	}
	return nil
}

// MaskAPIKey shows the "sk-ant-" prefix and last 4 characters.
func MaskAPIKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 15 {
		return "***"
	}
	return key[:7] + "..." + key[len(key)-4:]
}

// KeySource represents where credentials were loaded from.
type KeySource string

const (
	KeySourceEnv    KeySource = "environment"
	KeySourceConfig KeySource = "config_file"
	KeySourceAWS    KeySource = "aws"
	KeySourceNone   KeySource = "none"
)

// GetAPIKeySource returns where the API key was sourced from.
func GetAPIKeySource(cfg *Config) KeySource {
	if os.Getenv("ANTHROPIC_API_KEY") != "" {
		return KeySourceEnv
	}
	if configKey(cfg) != "" {
		return KeySourceConfig
	}
	return KeySourceNone
}
