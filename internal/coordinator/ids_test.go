package coordinator

import (
	"strings"
	"testing"
)

func TestSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Billing API", "billing-api"},
		{"  my_repo!! ", "my-repo"},
		{"ÜberApp", "berapp"},
		{"!!!", "project"},
		{"", "project"},
		{strings.Repeat("ab ", 30), strings.Repeat("ab-", 13) + "a"},
	}
	for _, tt := range tests {
		if got := slug(tt.in); got != tt.want {
			t.Errorf("slug(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewProjectID(t *testing.T) {
	a := newProjectID("repo")
	b := newProjectID("repo")
	if a == b {
		t.Errorf("ids not unique: %s", a)
	}
	if !strings.HasPrefix(a, "repo-") || len(a) != len("repo-")+8 {
		t.Errorf("newProjectID() = %q, want repo-<8 hex>", a)
	}
}
