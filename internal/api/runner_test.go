package api

import (
	"context"
	"errors"
	"testing"
)

type fakeCompleter struct {
	response string
	err      error
	system   string
	prompt   string
}

func (f *fakeCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	f.system, f.prompt = system, prompt
	return f.response, f.err
}

func TestDecodeJSONObject(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    string
		wantErr error
	}{
		{"bare", `{"domain": "billing"}`, "billing", nil},
		{"fenced", "Here you go:\n```json\n{\"domain\": \"auth\"}\n```\nDone.", "auth", nil},
		{"nested", `{"domain": "x", "inner": {"a": 1}}`, "x", nil},
		{"none", "I cannot answer that.", "", ErrNoJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got struct {
				Domain string `json:"domain"`
			}
			err := DecodeJSONObject(tt.text, &got)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeJSONObject() error = %v", err)
			}
			if got.Domain != tt.want {
				t.Errorf("domain = %q, want %q", got.Domain, tt.want)
			}
		})
	}
}

func TestDecodeJSONObject_Malformed(t *testing.T) {
	var v map[string]any
	if err := DecodeJSONObject(`{"a": }`, &v); err == nil || errors.Is(err, ErrNoJSON) {
		t.Errorf("error = %v, want a parse error", err)
	}
}

func TestCompleteJSON(t *testing.T) {
	c := &fakeCompleter{response: `{"n": 3}`}
	var v struct{ N int }
	if err := CompleteJSON(context.Background(), c, "sys", "user", &v); err != nil {
		t.Fatalf("CompleteJSON() error = %v", err)
	}
	if v.N != 3 || c.system != "sys" || c.prompt != "user" {
		t.Errorf("got %+v, system %q, prompt %q", v, c.system, c.prompt)
	}

	boom := errors.New("boom")
	if err := CompleteJSON(context.Background(), &fakeCompleter{err: boom}, "", "", &v); !errors.Is(err, boom) {
		t.Errorf("error = %v, want boom", err)
	}
}
