// Package supervisor starts and stops one-shot phase agents.
//
// Agents run as goroutines and are never restarted. The supervisor keeps a
// table of live agents so a project can have at most one at a time, and it
// owns the per-agent timers the coordinator uses to enforce deadlines.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/scopecraft/internal/agent"
	"github.com/ShayCichocki/scopecraft/pkg/models"
)

var (
	// ErrShutdown is returned by StartAgent after Shutdown.
	ErrShutdown = errors.New("supervisor: shut down")
	// ErrAgentLimit is returned when MaxAgents agents are already running.
	ErrAgentLimit = errors.New("supervisor: agent limit reached")
	// ErrProjectBusy is returned when the project already has a live agent.
	ErrProjectBusy = errors.New("supervisor: project already has a live agent")
	// ErrStopTimeout is returned when a stopped agent does not exit within the grace period.
	ErrStopTimeout = errors.New("supervisor: agent did not exit within grace period")
)

// Spec describes one agent to start.
type Spec struct {
	Input        agent.Input
	Investigator agent.Investigator
	Renderer     agent.Renderer
	Writer       agent.ArtifactWriter
	Reporter     agent.Reporter
}

// AgentHandle identifies a started agent.
type AgentHandle struct {
	ID        string
	ProjectID string
	Phase     string
	StartedAt time.Time

	cancel  context.CancelFunc
	done    chan struct{}
	stopped bool // guarded by Supervisor.mu
}

// Done is closed when the agent goroutine exits.
func (h *AgentHandle) Done() <-chan struct{} { return h.done }

// Supervisor manages live agents.
type Supervisor struct {
	agents    map[string]*AgentHandle // agentID -> handle
	byProject map[string]string       // projectID -> agentID
	maxAgents int
	stopGrace time.Duration
	timeouts  *TimeoutHandler
	closed    bool
	mu        sync.Mutex
	wg        sync.WaitGroup
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithMaxAgents bounds the number of concurrently live agents. Zero means unbounded.
func WithMaxAgents(n int) Option {
	return func(s *Supervisor) { s.maxAgents = n }
}

// WithStopGrace sets how long StopAgent waits for an agent to exit.
func WithStopGrace(d time.Duration) Option {
	return func(s *Supervisor) { s.stopGrace = d }
}

// WithAgentTimeout sets the default per-agent timeout of the timeout handler.
func WithAgentTimeout(d time.Duration) Option {
	return func(s *Supervisor) { s.timeouts = NewTimeoutHandler(d) }
}

// New creates a Supervisor.
func New(opts ...Option) *Supervisor {
	s := &Supervisor{
		agents:    make(map[string]*AgentHandle),
		byProject: make(map[string]string),
		stopGrace: 5 * time.Second,
		timeouts:  NewTimeoutHandler(5 * time.Minute),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Timeouts returns the per-agent timeout handler.
func (s *Supervisor) Timeouts() *TimeoutHandler {
	return s.timeouts
}

// StartAgent starts a worker for spec. Failures to start are returned
// synchronously; once started, the worker reports through spec.Reporter.
func (s *Supervisor) StartAgent(ctx context.Context, spec Spec) (*AgentHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrShutdown
	}
	projectID := spec.Input.ProjectID
	if id, busy := s.byProject[projectID]; busy {
		return nil, fmt.Errorf("%w: %s (agent %s)", ErrProjectBusy, projectID, id)
	}
	if s.maxAgents > 0 && len(s.agents) >= s.maxAgents {
		return nil, fmt.Errorf("%w: %d", ErrAgentLimit, s.maxAgents)
	}

	agentID := uuid.New().String()
	worker, err := agent.NewWorker(agent.WorkerConfig{
		ID:           agentID,
		Input:        spec.Input,
		Investigator: spec.Investigator,
		Renderer:     spec.Renderer,
		Writer:       spec.Writer,
		Reporter:     spec.Reporter,
	})
	if err != nil {
		return nil, err
	}

	agentCtx, cancel := context.WithCancel(ctx)
	h := &AgentHandle{
		ID:        agentID,
		ProjectID: projectID,
		Phase:     spec.Input.Phase,
		StartedAt: time.Now(),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	s.agents[agentID] = h
	s.byProject[projectID] = agentID

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(h.done)
		defer s.remove(h)
		defer cancel()

		worker.Run(agentCtx)
	}()

	return h, nil
}

// remove drops the handle from the tables if it is still present. Only the
// agent goroutine calls it, so a stopped agent holds its project slot until
// it has actually exited.
func (s *Supervisor) remove(h *AgentHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.agents[h.ID]; !ok {
		return
	}
	delete(s.agents, h.ID)
	if s.byProject[h.ProjectID] == h.ID {
		delete(s.byProject, h.ProjectID)
	}
}

// StopAgent cancels the agent and waits up to the stop grace period for it
// to exit. An agent that outlives the grace period stays in the table, marked
// stopped, and keeps its project busy until its goroutine returns.
func (s *Supervisor) StopAgent(h *AgentHandle) error {
	if h == nil {
		return nil
	}
	s.timeouts.StopTimer(h.ID)
	s.mu.Lock()
	h.stopped = true
	s.mu.Unlock()
	h.cancel()

	select {
	case <-h.done:
		return nil
	case <-time.After(s.stopGrace):
		log.Printf("[supervisor] agent %s (%s/%s) still running after %v", h.ID, h.ProjectID, h.Phase, s.stopGrace)
		return ErrStopTimeout
	}
}

// ListAgents returns the live agents ordered by start time. Agents that
// were stopped but have not exited yet are listed as stopped.
func (s *Supervisor) ListAgents() []models.Agent {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Agent, 0, len(s.agents))
	for _, h := range s.agents {
		a := models.Agent{
			ID:        h.ID,
			ProjectID: h.ProjectID,
			Phase:     h.Phase,
			Status:    models.AgentStatusRunning,
			StartedAt: h.StartedAt,
			Elapsed:   time.Since(h.StartedAt),
		}
		if h.stopped {
			a.Status = models.AgentStatusStopped
		}
		if s.timeouts.IsTimerActive(h.ID) {
			a.Timeout = s.timeouts.Timeout(h.ID)
			a.Elapsed = s.timeouts.GetElapsed(h.ID)
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}

// CountAgents returns the number of live agents, including stopped agents
// that have not exited yet.
func (s *Supervisor) CountAgents() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.agents)
}

// Shutdown stops every agent and rejects further starts. It waits for agent
// goroutines until ctx is done.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	handles := make([]*AgentHandle, 0, len(s.agents))
	for _, h := range s.agents {
		h.stopped = true
		handles = append(handles, h)
	}
	s.mu.Unlock()

	for _, h := range handles {
		h.cancel()
	}
	s.timeouts.StopAll()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
