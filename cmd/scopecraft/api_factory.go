package main

import (
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/ShayCichocki/scopecraft/internal/api"
	"github.com/ShayCichocki/scopecraft/internal/config"
)

// createClient builds the model client used by every phase.
func createClient(cfg *config.Config) (*api.Client, error) {
	creds, err := config.ResolveCredentials(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w (set ANTHROPIC_API_KEY or anthropic.use_bedrock)", err)
	}
	client, err := api.NewClient(api.ClientConfig{
		Model:         anthropic.Model(cfg.Anthropic.Model),
		APIKey:        creds.APIKey,
		UseAWSBedrock: creds.UseBedrock,
		AWSRegion:     creds.AWSRegion,
		AWSProfile:    creds.AWSProfile,
	})
	if err != nil {
		return nil, fmt.Errorf("create API client: %w", err)
	}
	return client, nil
}
