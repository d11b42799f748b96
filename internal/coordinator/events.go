package coordinator

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ShayCichocki/scopecraft/pkg/models"
)

// EventType represents the type of coordinator event.
type EventType string

const (
	// EventProjectStarted indicates a coordinator began driving a project.
	EventProjectStarted EventType = "project_started"
	// EventPhaseStarted indicates an agent was spawned for a phase.
	EventPhaseStarted EventType = "phase_started"
	// EventPhaseCompleted indicates a phase completed and was persisted.
	EventPhaseCompleted EventType = "phase_completed"
	// EventPhaseFailed indicates a phase failed and the project stopped.
	EventPhaseFailed EventType = "phase_failed"
	// EventQuestion indicates the project paused for a clarification answer.
	EventQuestion EventType = "question"
	// EventAnswered indicates an answer was recorded and the phase resumes.
	EventAnswered EventType = "answered"
	// EventProjectCompleted indicates the summary was written.
	EventProjectCompleted EventType = "project_completed"
	// EventProjectFailed indicates the coordinator stopped without completing.
	EventProjectFailed EventType = "project_failed"
)

// Event is a lifecycle notification for UIs.
type Event struct {
	Type      EventType
	ProjectID string
	// Phase is set for phase and question events.
	Phase string
	// Message carries a failure reason or other detail.
	Message string
	// Question is the clarification text for EventQuestion.
	Question string
	// State is the project state after the event.
	State     models.ProjectState
	Timestamp time.Time
}

// EventEmitter fans coordinator events out to a single subscriber channel.
// Events are dropped rather than blocking a coordinator.
type EventEmitter struct {
	events       chan Event
	droppedCount atomic.Uint64
	closeOnce    sync.Once
	mu           sync.RWMutex
	closed       bool
}

// NewEventEmitter creates an emitter with the given buffer size.
func NewEventEmitter(bufferSize int) *EventEmitter {
	return &EventEmitter{
		events: make(chan Event, bufferSize),
	}
}

// Emit sends an event if there is room in the buffer.
func (e *EventEmitter) Emit(event Event) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return
	}

	select {
	case e.events <- event:
	default:
		count := e.droppedCount.Add(1)
		if count%10 == 1 {
			log.Printf("[coordinator] WARNING: event channel full, dropped event (total dropped: %d): type=%s", count, event.Type)
		}
	}
}

// DroppedCount returns the number of events dropped so far.
func (e *EventEmitter) DroppedCount() uint64 {
	return e.droppedCount.Load()
}

// Events returns the subscriber channel.
func (e *EventEmitter) Events() <-chan Event {
	return e.events
}

// Close closes the channel. Later Emits are ignored.
func (e *EventEmitter) Close() {
	e.closeOnce.Do(func() {
		e.mu.Lock()
		e.closed = true
		close(e.events)
		e.mu.Unlock()
	})
}
