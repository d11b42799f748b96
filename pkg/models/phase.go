package models

import "time"

// PhaseStatus represents the current state of a pipeline phase.
type PhaseStatus string

const (
	// PhaseStatusPending indicates the phase has not started.
	PhaseStatusPending PhaseStatus = "pending"
	// PhaseStatusRunning indicates an agent is working on the phase.
	PhaseStatusRunning PhaseStatus = "running"
	// PhaseStatusCompleted indicates the phase finished and its findings are in the context.
	PhaseStatusCompleted PhaseStatus = "completed"
	// PhaseStatusFailed indicates the phase agent failed or timed out.
	PhaseStatusFailed PhaseStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s PhaseStatus) Valid() bool {
	switch s {
	case PhaseStatusPending, PhaseStatusRunning, PhaseStatusCompleted, PhaseStatusFailed:
		return true
	default:
		return false
	}
}

// Phase names in declared pipeline order.
const (
	PhaseDomainResearch   = "domain_research"
	PhaseTechStack        = "tech_stack"
	PhaseCodebaseScan     = "codebase_scan"
	PhaseImpactAnalysis   = "impact_analysis"
	PhaseArchitecture     = "architecture"
	PhaseRiskAssessment   = "risk_assessment"
	PhaseTicketGeneration = "ticket_generation"
)

// DefaultPhases returns the pipeline phases in execution order.
// Greenfield projects run the same list; individual phases adapt their inputs.
func DefaultPhases() []string {
	return []string{
		PhaseDomainResearch,
		PhaseTechStack,
		PhaseCodebaseScan,
		PhaseImpactAnalysis,
		PhaseArchitecture,
		PhaseRiskAssessment,
		PhaseTicketGeneration,
	}
}

// PhaseRecord tracks the persisted progress of one phase.
type PhaseRecord struct {
	// Status is the current state of the phase.
	Status PhaseStatus `json:"status"`
	// StartedAt is when the most recent attempt began.
	StartedAt *time.Time `json:"started_at,omitempty"`
	// CompletedAt is when the phase reached a terminal status.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	// DurationMS is the wall time of the most recent attempt in milliseconds.
	DurationMS int64 `json:"duration_ms"`
	// Error holds the failure reason for failed phases.
	Error string `json:"error,omitempty"`
	// Artifact is the rendered artifact path, relative to the project directory.
	Artifact string `json:"artifact,omitempty"`
}

// NewPhaseRecord returns a pending phase record.
func NewPhaseRecord() *PhaseRecord {
	return &PhaseRecord{Status: PhaseStatusPending}
}

// Start marks the record as running at the given time.
func (r *PhaseRecord) Start(at time.Time) {
	r.Status = PhaseStatusRunning
	r.StartedAt = &at
	r.CompletedAt = nil
	r.DurationMS = 0
	r.Error = ""
}

// Complete marks the record as completed at the given time.
func (r *PhaseRecord) Complete(at time.Time, artifact string) {
	r.finish(at)
	r.Status = PhaseStatusCompleted
	r.Artifact = artifact
}

// Fail marks the record as failed at the given time with a reason.
func (r *PhaseRecord) Fail(at time.Time, reason string) {
	r.finish(at)
	r.Status = PhaseStatusFailed
	r.Error = reason
}

// Reset returns the record to pending and clears timestamps.
func (r *PhaseRecord) Reset() {
	*r = PhaseRecord{Status: PhaseStatusPending}
}

func (r *PhaseRecord) finish(at time.Time) {
	r.CompletedAt = &at
	if r.StartedAt != nil {
		r.DurationMS = at.Sub(*r.StartedAt).Milliseconds()
	}
}

// Clone returns a deep copy of the record.
func (r *PhaseRecord) Clone() *PhaseRecord {
	if r == nil {
		return nil
	}
	c := *r
	if r.StartedAt != nil {
		t := *r.StartedAt
		c.StartedAt = &t
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}
