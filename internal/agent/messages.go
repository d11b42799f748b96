package agent

import "github.com/ShayCichocki/scopecraft/pkg/models"

// Message is an outcome reported by an agent to its coordinator.
type Message interface {
	// Source returns the ID of the reporting agent.
	Source() string
}

// AgentComplete reports a successful phase.
type AgentComplete struct {
	AgentID      string
	Phase        string
	Findings     models.Findings
	RenderedText string
	// ArtifactPath is relative to the project directory; empty when no
	// writer was configured.
	ArtifactPath string
}

// Source implements Message.
func (m AgentComplete) Source() string { return m.AgentID }

// Outcome converts the message to an AgentOutcome.
func (m AgentComplete) Outcome() models.AgentOutcome {
	return models.Succeeded(m.Findings, m.RenderedText)
}

// AgentFailed reports a failed phase.
type AgentFailed struct {
	AgentID string
	Phase   string
	Reason  string
}

// Source implements Message.
func (m AgentFailed) Source() string { return m.AgentID }

// Outcome converts the message to an AgentOutcome.
func (m AgentFailed) Outcome() models.AgentOutcome {
	return models.Failed(m.Reason)
}

// AgentQuestion reports that the phase needs a clarification before it can
// produce findings.
type AgentQuestion struct {
	AgentID  string
	Phase    string
	Question string
}

// Source implements Message.
func (m AgentQuestion) Source() string { return m.AgentID }
