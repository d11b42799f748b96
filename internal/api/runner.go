package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
)

// ErrNoJSON is returned when a response contains no JSON object.
var ErrNoJSON = errors.New("api: no JSON object in response")

// Completer produces a text completion for a system and user prompt.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Runner provides text-in/text-out Claude API calls.
type Runner struct {
	client    *Client
	maxTokens int64
}

// NewRunner creates a new API runner.
func NewRunner(client *Client) *Runner {
	return &Runner{client: client, maxTokens: 8192}
}

// Complete implements Completer.
func (r *Runner) Complete(ctx context.Context, system, prompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     r.client.Model(),
		MaxTokens: r.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	resp, err := r.client.sdk().Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("API call failed: %w", err)
	}

	r.client.Tracker().Add(resp.Usage.InputTokens, resp.Usage.OutputTokens)

	var result strings.Builder
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			result.WriteString(variant.Text)
		}
	}
	return result.String(), nil
}

// CompleteJSON runs a completion and decodes the first JSON object in the
// response into target.
func CompleteJSON(ctx context.Context, c Completer, system, prompt string, target any) error {
	response, err := c.Complete(ctx, system, prompt)
	if err != nil {
		return err
	}
	return DecodeJSONObject(response, target)
}

// DecodeJSONObject finds the outermost JSON object in text, which may be
// wrapped in prose or a code fence, and decodes it into target.
func DecodeJSONObject(text string, target any) error {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return fmt.Errorf("%w: %s", ErrNoJSON, truncate(text, 200))
	}

	raw := text[start : end+1]
	if err := json.Unmarshal([]byte(raw), target); err != nil {
		return fmt.Errorf("parse JSON: %w (response: %s)", err, truncate(raw, 200))
	}
	return nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
