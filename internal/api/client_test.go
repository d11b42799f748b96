package api

import (
	"errors"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
)

func TestNewClient_WithAPIKey(t *testing.T) {
	client, err := NewClient(ClientConfig{
		APIKey: "test-key-123",
		Model:  anthropic.ModelClaudeSonnet4_20250514,
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	if client.Model() != anthropic.ModelClaudeSonnet4_20250514 {
		t.Errorf("Model = %q, want %q", client.Model(), anthropic.ModelClaudeSonnet4_20250514)
	}
	if client.Bedrock() {
		t.Error("Bedrock() = true for an API key client")
	}
	if client.Tracker() == nil {
		t.Error("Tracker should not be nil")
	}
}

func TestNewClient_NoCredentials(t *testing.T) {
	_, err := NewClient(ClientConfig{})
	if !errors.Is(err, ErrNoCredentials) {
		t.Fatalf("NewClient error = %v, want ErrNoCredentials", err)
	}
}

func TestNewClient_DefaultModel(t *testing.T) {
	client, err := NewClient(ClientConfig{APIKey: "test-key"})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if client.Model() != DefaultModel {
		t.Errorf("Default model = %q, want %q", client.Model(), DefaultModel)
	}
}

func TestBedrockModel(t *testing.T) {
	tests := []struct {
		in   anthropic.Model
		want anthropic.Model
	}{
		{anthropic.ModelClaudeSonnet4_5_20250929, "us.anthropic.claude-sonnet-4-5-20250929-v1:0"},
		{anthropic.ModelClaudeHaiku4_5_20251001, "us.anthropic.claude-haiku-4-5-20251001-v1:0"},
		{"us.anthropic.custom-v1:0", "us.anthropic.custom-v1:0"},
	}
	for _, tt := range tests {
		if got := bedrockModel(tt.in); got != tt.want {
			t.Errorf("bedrockModel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTokenTracker(t *testing.T) {
	tracker := NewTokenTracker()

	tracker.Add(100, 50)
	tracker.Add(200, 100)

	input, output := tracker.Total()
	if input != 300 || output != 150 {
		t.Errorf("Total() = %d, %d; want 300, 150", input, output)
	}
	if tracker.Calls() != 2 {
		t.Errorf("Calls = %d, want 2", tracker.Calls())
	}
}

func TestTokenTracker_Cost(t *testing.T) {
	tracker := NewTokenTracker()
	tracker.Add(1_000_000, 1_000_000)

	if cost := tracker.Cost(); cost < 17.99 || cost > 18.01 {
		t.Errorf("Cost() = %f, want 18.0", cost)
	}
}
