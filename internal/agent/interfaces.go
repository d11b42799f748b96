// Package agent runs a single pipeline phase once and reports its outcome.
package agent

import (
	"context"

	"github.com/ShayCichocki/scopecraft/pkg/models"
)

// Input is everything a phase agent receives from its coordinator.
type Input struct {
	// ProjectID identifies the owning project.
	ProjectID string
	// Phase is the phase to compute.
	Phase string
	// Task is the free-text request driving the pipeline.
	Task string
	// Name is the project label.
	Name string
	// Context holds the findings of every completed phase.
	Context map[string]models.Findings
	// RootDir is the codebase path; empty for greenfield projects.
	RootDir string
	// Greenfield is true when there is no codebase to inspect.
	Greenfield bool
	// Answers are clarification answers previously given for this phase.
	Answers []string
}

// Investigator computes the findings of one phase.
type Investigator interface {
	Investigate(ctx context.Context, in Input) (models.Findings, error)
}

// InvestigatorFunc adapts a function to the Investigator interface.
type InvestigatorFunc func(ctx context.Context, in Input) (models.Findings, error)

// Investigate calls f(ctx, in).
func (f InvestigatorFunc) Investigate(ctx context.Context, in Input) (models.Findings, error) {
	return f(ctx, in)
}

// Renderer turns findings into a human-readable artifact body.
type Renderer interface {
	Render(phase string, findings models.Findings) (string, error)
}

// RendererFunc adapts a function to the Renderer interface.
type RendererFunc func(phase string, findings models.Findings) (string, error)

// Render calls f(phase, findings).
func (f RendererFunc) Render(phase string, findings models.Findings) (string, error) {
	return f(phase, findings)
}

// ArtifactWriter stores a rendered artifact and returns its path relative
// to the project directory.
type ArtifactWriter interface {
	WriteArtifact(phase, content string) (string, error)
}

// Reporter delivers the agent's single outcome message.
type Reporter interface {
	Report(msg Message) error
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(msg Message) error

// Report calls f(msg).
func (f ReporterFunc) Report(msg Message) error {
	return f(msg)
}
