// Package api provides the Anthropic API client used by phase investigators.
package api

import (
	"context"
	"errors"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aws/aws-sdk-go-v2/config"
)

// ErrNoCredentials is returned when neither an API key nor Bedrock is configured.
var ErrNoCredentials = errors.New("api: no API key configured and Bedrock disabled")

// DefaultModel is used when ClientConfig.Model is empty.
const DefaultModel = anthropic.ModelClaudeSonnet4_5_20250929

// Client wraps the Anthropic SDK client with token tracking.
type Client struct {
	inner   anthropic.Client
	model   anthropic.Model
	bedrock bool
	tracker *TokenTracker
}

// ClientConfig contains configuration for creating a new Client.
type ClientConfig struct {
	// Model is the Claude model to use. Empty means DefaultModel.
	Model anthropic.Model
	// APIKey authenticates direct API calls.
	APIKey string
	// UseAWSBedrock routes calls through AWS Bedrock using the AWS credential chain.
	UseAWSBedrock bool
	// AWSRegion is the AWS region for Bedrock (e.g., "us-west-2").
	AWSRegion string
	// AWSProfile is the optional shared-config profile.
	AWSProfile string
}

// NewClient creates a new Anthropic API client.
func NewClient(cfg ClientConfig) (*Client, error) {
	var opts []option.RequestOption

	if cfg.UseAWSBedrock {
		var loadOpts []func(*config.LoadOptions) error
		if cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, config.WithRegion(cfg.AWSRegion))
		}
		if cfg.AWSProfile != "" {
			loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.AWSProfile))
		}
		opts = append(opts, bedrock.WithLoadDefaultConfig(context.Background(), loadOpts...))
	} else {
		if cfg.APIKey == "" {
			return nil, ErrNoCredentials
		}
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	if cfg.UseAWSBedrock {
		model = bedrockModel(model)
	}

	return &Client{
		inner:   anthropic.NewClient(opts...),
		model:   model,
		bedrock: cfg.UseAWSBedrock,
		tracker: NewTokenTracker(),
	}, nil
}

// bedrockModels maps Anthropic model names to Bedrock cross-region
// inference profiles.
var bedrockModels = map[anthropic.Model]string{
	anthropic.ModelClaudeSonnet4_20250514:   "us.anthropic.claude-sonnet-4-20250514-v1:0",
	anthropic.ModelClaudeSonnet4_5_20250929: "us.anthropic.claude-sonnet-4-5-20250929-v1:0",
	anthropic.ModelClaudeHaiku4_5_20251001:  "us.anthropic.claude-haiku-4-5-20251001-v1:0",
	anthropic.ModelClaudeOpus4_1_20250805:   "us.anthropic.claude-opus-4-1-20250805-v1:0",
	anthropic.ModelClaudeOpus4_5_20251101:   "us.anthropic.claude-opus-4-5-20251101-v1:0",
}

// bedrockModel returns the Bedrock profile for model. Unknown names are
// passed through; they may already be Bedrock ids.
func bedrockModel(model anthropic.Model) anthropic.Model {
	if m, ok := bedrockModels[model]; ok {
		return anthropic.Model(m)
	}
	return model
}

func (c *Client) sdk() *anthropic.Client {
	return &c.inner
}

// Model returns the configured model name.
func (c *Client) Model() anthropic.Model {
	return c.model
}

// Bedrock reports whether calls go through AWS Bedrock.
func (c *Client) Bedrock() bool {
	return c.bedrock
}

// Tracker returns the token tracker for this client.
func (c *Client) Tracker() *TokenTracker {
	return c.tracker
}

// TokenTracker tracks token usage across API calls.
type TokenTracker struct {
	mu        sync.Mutex
	inputTok  int64
	outputTok int64
	calls     int
}

// NewTokenTracker creates a new token tracker.
func NewTokenTracker() *TokenTracker {
	return &TokenTracker{}
}

// Add records token usage from an API call.
func (t *TokenTracker) Add(input, output int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inputTok += input
	t.outputTok += output
	t.calls++
}

// Total returns the total input and output tokens tracked.
func (t *TokenTracker) Total() (input, output int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inputTok, t.outputTok
}

// Calls returns the number of API calls made.
func (t *TokenTracker) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

// Cost estimates the cost in USD at Sonnet pricing ($3/1M input, $15/1M output).
func (t *TokenTracker) Cost() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return float64(t.inputTok)/1_000_000*3.0 + float64(t.outputTok)/1_000_000*15.0
}
