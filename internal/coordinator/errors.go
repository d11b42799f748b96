package coordinator

import (
	"errors"
	"fmt"

	"github.com/ShayCichocki/scopecraft/internal/registry"
)

var (
	// ErrDuplicate is returned when a project already has a live coordinator.
	ErrDuplicate = registry.ErrAlreadyRegistered
	// ErrNotFound is returned when a project has no live coordinator.
	ErrNotFound = registry.ErrNotFound
	// ErrTimeout is returned when the caller's overall wait elapses. The
	// project keeps running in the background.
	ErrTimeout = errors.New("coordinator: timed out waiting for project")
	// ErrNotPaused is returned when an answer arrives for a project that is
	// not waiting for one.
	ErrNotPaused = errors.New("coordinator: project is not waiting for an answer")
	// ErrInvalidPath is returned when a codebase path is not a directory.
	ErrInvalidPath = errors.New("coordinator: not a directory")
	// ErrShutdown is returned after the service has been shut down.
	ErrShutdown = errors.New("coordinator: service shut down")
)

// ProjectError reports a lifecycle failure that is not a phase failure:
// misuse such as a duplicate start, or a state write that could not be made.
type ProjectError struct {
	ProjectID string
	Reason    string
	Err       error
}

func (e *ProjectError) Error() string {
	msg := e.Reason
	if e.ProjectID != "" {
		msg = fmt.Sprintf("project %s: %s", e.ProjectID, e.Reason)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProjectError) Unwrap() error { return e.Err }

// PhaseFailedError reports that a phase failed and the project stopped.
// The project can be resumed from ProjectDir.
type PhaseFailedError struct {
	ProjectID  string
	ProjectDir string
	Phase      string
	Reason     string
}

func (e *PhaseFailedError) Error() string {
	return fmt.Sprintf("project %s: phase %s failed: %s", e.ProjectID, e.Phase, e.Reason)
}
