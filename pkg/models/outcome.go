package models

import "fmt"

// AgentOutcome is the terminal result of one phase agent.
// Exactly one of the Success or Failure forms is populated.
type AgentOutcome struct {
	// Success is true when the agent produced findings.
	Success bool `json:"success"`
	// Findings is the structured output of a successful agent.
	Findings Findings `json:"findings,omitempty"`
	// RenderedText is the human-readable artifact body of a successful agent.
	RenderedText string `json:"rendered_text,omitempty"`
	// Reason explains a failure.
	Reason string `json:"reason,omitempty"`
}

// Succeeded builds a success outcome.
func Succeeded(findings Findings, rendered string) AgentOutcome {
	return AgentOutcome{Success: true, Findings: findings, RenderedText: rendered}
}

// Failed builds a failure outcome.
func Failed(reason string) AgentOutcome {
	return AgentOutcome{Reason: reason}
}

// String implements fmt.Stringer.
func (o AgentOutcome) String() string {
	if o.Success {
		return fmt.Sprintf("success(%d findings)", len(o.Findings))
	}
	return fmt.Sprintf("failure(%s)", o.Reason)
}

// ReplanScope selects how many trailing phases a replan reopens.
type ReplanScope string

const (
	// ReplanFull resets the last two phases.
	ReplanFull ReplanScope = "full"
	// ReplanMinimal resets only the last phase.
	ReplanMinimal ReplanScope = "minimal"
)

// Valid returns true if the scope is a known value.
func (s ReplanScope) Valid() bool {
	return s == ReplanFull || s == ReplanMinimal
}

// ResetCount returns the number of trailing phases the scope reopens.
func (s ReplanScope) ResetCount() int {
	if s == ReplanMinimal {
		return 1
	}
	return 2
}

// ParseReplanScope converts user input to a scope. Empty input means full.
func ParseReplanScope(s string) (ReplanScope, error) {
	if s == "" {
		return ReplanFull, nil
	}
	scope := ReplanScope(s)
	if !scope.Valid() {
		return "", fmt.Errorf("invalid replan scope %q: expected full or minimal", s)
	}
	return scope, nil
}
