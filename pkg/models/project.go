package models

import (
	"fmt"
	"time"
)

// ProjectState represents the overall lifecycle state of a project.
type ProjectState string

const (
	// ProjectCreated indicates the project was persisted but no phase has run.
	ProjectCreated ProjectState = "created"
	// ProjectRunning indicates a coordinator is driving phases.
	ProjectRunning ProjectState = "running"
	// ProjectPaused indicates the pipeline waits for an answer to a clarification question.
	ProjectPaused ProjectState = "paused"
	// ProjectCompleted indicates every phase completed and the summary is available.
	ProjectCompleted ProjectState = "completed"
	// ProjectFailed indicates a phase failed; the project can be resumed.
	ProjectFailed ProjectState = "failed"
)

// Valid returns true if the state is a known value.
func (s ProjectState) Valid() bool {
	switch s {
	case ProjectCreated, ProjectRunning, ProjectPaused, ProjectCompleted, ProjectFailed:
		return true
	default:
		return false
	}
}

// Terminal returns true for states a coordinator exits in.
func (s ProjectState) Terminal() bool {
	return s == ProjectCompleted || s == ProjectFailed
}

// Findings is the JSON-compatible output of one phase.
type Findings map[string]any

// Clone returns a deep copy of the findings.
func (f Findings) Clone() Findings {
	if f == nil {
		return nil
	}
	out := make(Findings, len(f))
	for k, v := range f {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(val))
		for k, inner := range val {
			m[k] = cloneValue(inner)
		}
		return m
	case Findings:
		return val.Clone()
	case []any:
		s := make([]any, len(val))
		for i, inner := range val {
			s[i] = cloneValue(inner)
		}
		return s
	case []string:
		return append([]string(nil), val...)
	default:
		return val
	}
}

// Question is a clarification request raised by a phase agent.
type Question struct {
	// Phase is the phase that asked.
	Phase string `json:"phase"`
	// Text is the question shown to the user.
	Text string `json:"text"`
	// AskedAt is when the question was raised.
	AskedAt time.Time `json:"asked_at"`
}

// Project is the full in-memory state of one pipeline run.
type Project struct {
	// ID is the unique project identifier.
	ID string `json:"id"`
	// Name is a human-readable label (greenfield name or codebase directory name).
	Name string `json:"name,omitempty"`
	// RootDir is the analyzed codebase path; empty for greenfield projects.
	RootDir string `json:"root_dir,omitempty"`
	// Task is the free-text request that drives the pipeline.
	Task string `json:"task"`
	// Greenfield is true when there is no existing codebase.
	Greenfield bool `json:"greenfield"`
	// State is the overall lifecycle state.
	State ProjectState `json:"state"`
	// PhaseOrder lists phase names in execution order.
	PhaseOrder []string `json:"phase_order"`
	// Phases maps phase names to their progress records.
	Phases map[string]*PhaseRecord `json:"phases"`
	// Context accumulates findings of completed phases keyed by phase name.
	Context map[string]Findings `json:"context,omitempty"`
	// Summary is derived from the final phase once it completes.
	Summary *Summary `json:"summary,omitempty"`
	// Question is the pending clarification question while paused.
	Question *Question `json:"question,omitempty"`
	// Answers stores clarification answers per phase, in order given.
	Answers map[string][]string `json:"answers,omitempty"`
	// CreatedAt is when the project was created.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the project was last persisted.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewProject returns a project in the created state with every phase pending.
func NewProject(id, task string, phases []string, now time.Time) *Project {
	p := &Project{
		ID:         id,
		Task:       task,
		State:      ProjectCreated,
		PhaseOrder: append([]string(nil), phases...),
		Phases:     make(map[string]*PhaseRecord, len(phases)),
		Context:    make(map[string]Findings),
		Answers:    make(map[string][]string),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for _, name := range phases {
		p.Phases[name] = NewPhaseRecord()
	}
	return p
}

// Phase returns the record for the named phase, or nil if unknown.
func (p *Project) Phase(name string) *PhaseRecord {
	return p.Phases[name]
}

// FirstIncomplete returns the index of the first phase whose status is not
// completed, or len(PhaseOrder) if every phase completed.
func (p *Project) FirstIncomplete() int {
	for i, name := range p.PhaseOrder {
		rec := p.Phases[name]
		if rec == nil || rec.Status != PhaseStatusCompleted {
			return i
		}
	}
	return len(p.PhaseOrder)
}

// AllCompleted returns true if every phase completed.
func (p *Project) AllCompleted() bool {
	return p.FirstIncomplete() == len(p.PhaseOrder)
}

// LastPhase returns the name of the final phase.
func (p *Project) LastPhase() string {
	if len(p.PhaseOrder) == 0 {
		return ""
	}
	return p.PhaseOrder[len(p.PhaseOrder)-1]
}

// Validate checks structural consistency of the project.
func (p *Project) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("project: missing id")
	}
	if !p.State.Valid() {
		return fmt.Errorf("project %s: invalid state %q", p.ID, p.State)
	}
	if len(p.PhaseOrder) == 0 {
		return fmt.Errorf("project %s: no phases", p.ID)
	}
	for _, name := range p.PhaseOrder {
		rec, ok := p.Phases[name]
		if !ok || rec == nil {
			return fmt.Errorf("project %s: phase %q has no record", p.ID, name)
		}
		if !rec.Status.Valid() {
			return fmt.Errorf("project %s: phase %q has invalid status %q", p.ID, name, rec.Status)
		}
	}
	return nil
}

// Clone returns a deep copy safe to hand to other goroutines.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	c := *p
	c.PhaseOrder = append([]string(nil), p.PhaseOrder...)
	c.Phases = make(map[string]*PhaseRecord, len(p.Phases))
	for name, rec := range p.Phases {
		c.Phases[name] = rec.Clone()
	}
	c.Context = make(map[string]Findings, len(p.Context))
	for name, f := range p.Context {
		c.Context[name] = f.Clone()
	}
	c.Answers = make(map[string][]string, len(p.Answers))
	for name, answers := range p.Answers {
		c.Answers[name] = append([]string(nil), answers...)
	}
	if p.Summary != nil {
		s := p.Summary.Clone()
		c.Summary = &s
	}
	if p.Question != nil {
		q := *p.Question
		c.Question = &q
	}
	return &c
}

// ContextSnapshot returns a deep copy of the accumulated context.
func (p *Project) ContextSnapshot() map[string]Findings {
	out := make(map[string]Findings, len(p.Context))
	for name, f := range p.Context {
		out[name] = f.Clone()
	}
	return out
}
