package supervisor

import (
	"sync"
	"time"
)

// TimeoutEvent is sent when an agent's timer expires.
type TimeoutEvent struct {
	// AgentID is the agent that timed out.
	AgentID string
	// Elapsed is how long the agent ran since its timer started.
	Elapsed time.Duration
	// Timeout is the configured limit that was exceeded.
	Timeout time.Duration
}

type timerEntry struct {
	timer     *time.Timer
	timeout   time.Duration
	startTime time.Time
	eventChan chan TimeoutEvent
}

// TimeoutHandler manages per-agent deadlines.
type TimeoutHandler struct {
	defaultTimeout time.Duration
	timers         map[string]*timerEntry // agentID -> timer entry
	mu             sync.RWMutex
}

// NewTimeoutHandler creates a handler whose timers default to d.
func NewTimeoutHandler(d time.Duration) *TimeoutHandler {
	return &TimeoutHandler{
		defaultTimeout: d,
		timers:         make(map[string]*timerEntry),
	}
}

// StartTimer starts a timer for the agent and returns a channel that
// receives one TimeoutEvent when it fires. The channel is closed by
// StopTimer. A zero d uses the default timeout. An existing timer for the
// same agent is replaced.
func (h *TimeoutHandler) StartTimer(agentID string, d time.Duration) <-chan TimeoutEvent {
	h.mu.Lock()
	defer h.mu.Unlock()

	if entry, exists := h.timers[agentID]; exists {
		entry.timer.Stop()
		close(entry.eventChan)
	}

	if d <= 0 {
		d = h.defaultTimeout
	}

	entry := &timerEntry{
		timeout:   d,
		startTime: time.Now(),
		eventChan: make(chan TimeoutEvent, 1),
	}
	entry.timer = time.AfterFunc(d, func() {
		h.fire(agentID, entry)
	})
	h.timers[agentID] = entry

	return entry.eventChan
}

// fire delivers the event while holding the read lock so StopTimer cannot
// close the channel mid-send.
func (h *TimeoutHandler) fire(agentID string, entry *timerEntry) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if current, exists := h.timers[agentID]; !exists || current != entry {
		return
	}
	select {
	case entry.eventChan <- TimeoutEvent{
		AgentID: agentID,
		Elapsed: time.Since(entry.startTime),
		Timeout: entry.timeout,
	}:
	default:
	}
}

// StopTimer stops the agent's timer and closes its channel.
func (h *TimeoutHandler) StopTimer(agentID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if entry, exists := h.timers[agentID]; exists {
		entry.timer.Stop()
		close(entry.eventChan)
		delete(h.timers, agentID)
	}
}

// IsTimerActive returns true if a timer is running for the agent.
func (h *TimeoutHandler) IsTimerActive(agentID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, exists := h.timers[agentID]
	return exists
}

// GetElapsed returns how long the agent has run since its timer started.
// Returns 0 if no timer exists for the agent.
func (h *TimeoutHandler) GetElapsed(agentID string) time.Duration {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if entry, exists := h.timers[agentID]; exists {
		return time.Since(entry.startTime)
	}
	return 0
}

// Timeout returns the limit of the agent's running timer, or 0.
func (h *TimeoutHandler) Timeout(agentID string) time.Duration {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if entry, exists := h.timers[agentID]; exists {
		return entry.timeout
	}
	return 0
}

// StopAll stops every timer.
func (h *TimeoutHandler) StopAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for agentID, entry := range h.timers {
		entry.timer.Stop()
		close(entry.eventChan)
		delete(h.timers, agentID)
	}
}
