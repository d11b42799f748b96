package models

import "time"

// AgentStatus represents the current state of a phase agent.
type AgentStatus string

const (
	// AgentStatusRunning indicates the agent is actively working.
	AgentStatusRunning AgentStatus = "running"
	// AgentStatusDone indicates the agent reported an outcome.
	AgentStatusDone AgentStatus = "done"
	// AgentStatusFailed indicates the agent crashed or reported a failure.
	AgentStatusFailed AgentStatus = "failed"
	// AgentStatusStopped indicates the agent was cancelled by its supervisor.
	AgentStatusStopped AgentStatus = "stopped"
)

// Valid returns true if the status is a known value.
func (s AgentStatus) Valid() bool {
	switch s {
	case AgentStatusRunning, AgentStatusDone, AgentStatusFailed, AgentStatusStopped:
		return true
	default:
		return false
	}
}

// Agent describes one one-shot phase agent.
type Agent struct {
	// ID is the unique identifier for this agent.
	ID string `json:"id"`
	// ProjectID is the project the agent works for.
	ProjectID string `json:"project_id"`
	// Phase is the phase the agent computes.
	Phase string `json:"phase"`
	// Status is the current state of the agent.
	Status AgentStatus `json:"status"`
	// StartedAt is when the agent began working.
	StartedAt time.Time `json:"started_at"`
	// Elapsed is how long the agent has been running, measured from its
	// deadline timer when one is set.
	Elapsed time.Duration `json:"elapsed"`
	// Timeout is the agent's deadline; zero when no timer is running.
	Timeout time.Duration `json:"timeout,omitempty"`
}
