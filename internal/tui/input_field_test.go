package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestNewInputField(t *testing.T) {
	field := NewInputField()

	if field.width != 80 {
		t.Errorf("Default width = %d, want 80", field.width)
	}
	if field.Focused() {
		t.Error("new field should not be focused")
	}
}

func TestInputField_SetWidth(t *testing.T) {
	field := NewInputField()
	field.SetWidth(120)

	if field.width != 120 {
		t.Errorf("Width after SetWidth(120) = %d, want 120", field.width)
	}
	if field.input.Width != 116 {
		t.Errorf("Input width = %d, want 116", field.input.Width)
	}
}

func TestInputField_EnterWithEmptyInput(t *testing.T) {
	field := NewInputField()
	field.Focus()

	_, cmd := field.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Error("empty input should not submit")
	}
}

func TestInputField_EnterSubmitsTrimmedAnswer(t *testing.T) {
	field := NewInputField()
	field.Focus()
	field.input.SetValue("  Postgres  ")

	field, cmd := field.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected a command on enter")
	}
	msg, ok := cmd().(AnswerSubmittedMsg)
	if !ok {
		t.Fatalf("command returned %T, want AnswerSubmittedMsg", cmd())
	}
	if msg.Answer != "Postgres" {
		t.Errorf("Answer = %q, want %q", msg.Answer, "Postgres")
	}
	if field.input.Value() != "" {
		t.Errorf("input not reset: %q", field.input.Value())
	}
}

func TestInputField_TypingUpdatesValue(t *testing.T) {
	field := NewInputField()
	field.Focus()

	field, _ = field.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("yes")})
	if field.input.Value() != "yes" {
		t.Errorf("Value = %q, want %q", field.input.Value(), "yes")
	}
}
