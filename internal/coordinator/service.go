// Package coordinator drives projects through their phases.
//
// Each live project is owned by one coordinator goroutine registered under
// the project id. The coordinator spawns one agent per phase through the
// supervisor, persists every transition, and answers state queries over its
// registry inbox. Service is the public API used by the CLI and TUI.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ShayCichocki/scopecraft/internal/agent"
	"github.com/ShayCichocki/scopecraft/internal/registry"
	"github.com/ShayCichocki/scopecraft/internal/state"
	"github.com/ShayCichocki/scopecraft/internal/supervisor"
	"github.com/ShayCichocki/scopecraft/pkg/models"
)

// Store persists project state and artifacts. *state.Store implements it.
type Store interface {
	ProjectDir(id string) string
	Save(dir string, p *models.Project) error
	Load(dir string) (*models.Project, error)
	WriteArtifact(dir string, order []string, phase, content string) (string, error)
	WriteSummary(dir, content string) (string, error)
}

// Index records project progress for listing. *state.Index implements it.
type Index interface {
	Upsert(dir string, p *models.Project) error
}

// Catalog supplies the collaborators that compute and render each phase.
type Catalog interface {
	Lookup(phase string) (agent.Investigator, agent.Renderer, error)
}

// StartOptions configures a new project.
type StartOptions struct {
	// Name labels the project. Defaults to the codebase directory name.
	Name string
}

// ReplanOptions configures Replan.
type ReplanOptions struct {
	// Scope selects how many trailing phases to reset. Empty means full.
	Scope models.ReplanScope
	// NoRun persists the reset without executing it.
	NoRun bool
}

// Service starts, resumes and replans projects.
type Service struct {
	store      Store
	catalog    Catalog
	registry   *registry.Registry
	supervisor *supervisor.Supervisor
	events     *EventEmitter
	opts       serviceOptions

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	// mu orders launches against Shutdown; closed is set once.
	mu     sync.Mutex
	closed bool
}

// New creates a Service. Coordinators run on the service's own context, so
// a caller that stops waiting does not stop the project.
func New(store Store, catalog Catalog, opts ...Option) *Service {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	sup := o.supervisor
	if sup == nil {
		sup = supervisor.New(
			supervisor.WithStopGrace(o.stopGrace),
			supervisor.WithAgentTimeout(o.agentTimeout),
		)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		store:      store,
		catalog:    catalog,
		registry:   registry.New(),
		supervisor: sup,
		events:     NewEventEmitter(o.eventBuffer),
		opts:       o,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Events returns lifecycle events of every project driven by the service.
func (s *Service) Events() <-chan Event {
	return s.events.Events()
}

// Running returns the ids of projects with a live coordinator.
func (s *Service) Running() []string {
	return s.registry.IDs()
}

// Agents returns the live phase agents.
func (s *Service) Agents() []models.Agent {
	return s.supervisor.ListAgents()
}

// Start creates a project for the codebase at path and runs it.
func (s *Service) Start(ctx context.Context, path, task string, opts StartOptions) (*models.Result, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &ProjectError{Reason: "resolve path", Err: err}
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, &ProjectError{Reason: "invalid codebase path", Err: fmt.Errorf("%w: %v", ErrInvalidPath, err)}
	}
	if !info.IsDir() {
		return nil, &ProjectError{Reason: "invalid codebase path", Err: fmt.Errorf("%w: %s", ErrInvalidPath, abs)}
	}

	name := opts.Name
	if name == "" {
		name = filepath.Base(abs)
	}
	p, err := s.newProject(name, task)
	if err != nil {
		return nil, err
	}
	p.RootDir = abs
	return s.startNew(ctx, p)
}

// StartGreenfield creates a project with no codebase and runs it.
func (s *Service) StartGreenfield(ctx context.Context, name, task string, opts StartOptions) (*models.Result, error) {
	if opts.Name != "" {
		name = opts.Name
	}
	if strings.TrimSpace(name) == "" {
		return nil, &ProjectError{Reason: "greenfield project needs a name"}
	}
	p, err := s.newProject(name, task)
	if err != nil {
		return nil, err
	}
	p.Greenfield = true
	return s.startNew(ctx, p)
}

func (s *Service) newProject(name, task string) (*models.Project, error) {
	if strings.TrimSpace(task) == "" {
		return nil, &ProjectError{Reason: "task must not be empty"}
	}
	p := models.NewProject(newProjectID(name), task, s.opts.phases, s.opts.now())
	p.Name = name
	return p, nil
}

func (s *Service) startNew(ctx context.Context, p *models.Project) (*models.Result, error) {
	if err := s.ctx.Err(); err != nil {
		return nil, &ProjectError{ProjectID: p.ID, Reason: "start", Err: ErrShutdown}
	}
	h, err := s.registry.Register(p.ID)
	if err != nil {
		return nil, &ProjectError{ProjectID: p.ID, Reason: "start", Err: err}
	}

	c := s.newCoordinator(h, p, s.store.ProjectDir(p.ID))
	if err := c.persist(); err != nil {
		c.close()
		return nil, err
	}
	log.Printf("[coordinator] created project %s in %s", p.ID, c.dir)
	return s.runAndWait(ctx, c)
}

// Resume continues a persisted project from its first incomplete phase.
// A project that already completed returns its stored result.
func (s *Service) Resume(ctx context.Context, projectDir string) (*models.Result, error) {
	if err := s.ctx.Err(); err != nil {
		return nil, &ProjectError{Reason: "resume", Err: ErrShutdown}
	}
	dir, err := filepath.Abs(projectDir)
	if err != nil {
		return nil, &ProjectError{Reason: "resolve project dir", Err: err}
	}
	p, err := s.store.Load(dir)
	if err != nil {
		return nil, &ProjectError{Reason: "load state", Err: err}
	}
	h, err := s.registry.Register(p.ID)
	if err != nil {
		return nil, &ProjectError{ProjectID: p.ID, Reason: "resume", Err: err}
	}

	if p.State == models.ProjectCompleted && p.AllCompleted() && p.Summary != nil {
		s.registry.Unregister(h)
		log.Printf("[coordinator] project %s already completed", p.ID)
		return &models.Result{
			ProjectID:  p.ID,
			ProjectDir: dir,
			OutputPath: filepath.Join(dir, state.SummaryFile),
			Summary:    p.Summary.Clone(),
		}, nil
	}

	c := s.newCoordinator(h, p, dir)
	return s.runAndWait(ctx, c)
}

// Replan resets trailing phases of a persisted project and runs it again.
// Minimal scope resets the last phase and full scope the last two. Reset
// phases lose their status, timestamps, findings and answers.
func (s *Service) Replan(ctx context.Context, projectDir string, opts ReplanOptions) (*models.Result, error) {
	if err := s.ctx.Err(); err != nil {
		return nil, &ProjectError{Reason: "replan", Err: ErrShutdown}
	}
	scope, err := models.ParseReplanScope(string(opts.Scope))
	if err != nil {
		return nil, &ProjectError{Reason: "replan", Err: err}
	}
	dir, err := filepath.Abs(projectDir)
	if err != nil {
		return nil, &ProjectError{Reason: "resolve project dir", Err: err}
	}

	probe, err := s.store.Load(dir)
	if err != nil {
		return nil, &ProjectError{Reason: "load state", Err: err}
	}
	h, err := s.registry.Register(probe.ID)
	if err != nil {
		return nil, &ProjectError{ProjectID: probe.ID, Reason: "replan", Err: err}
	}

	// Reload now that we own the id.
	p, err := s.store.Load(dir)
	if err != nil {
		s.registry.Unregister(h)
		return nil, &ProjectError{ProjectID: probe.ID, Reason: "load state", Err: err}
	}

	reset := scope.ResetCount()
	if reset > len(p.PhaseOrder) {
		reset = len(p.PhaseOrder)
	}
	for _, name := range p.PhaseOrder[len(p.PhaseOrder)-reset:] {
		p.Phases[name].Reset()
		delete(p.Context, name)
		delete(p.Answers, name)
	}
	p.Summary = nil
	p.Question = nil
	p.State = models.ProjectCreated

	c := s.newCoordinator(h, p, dir)
	c.log.Log("replan (%s): reset %d phase(s)", scope, reset)
	if err := c.persist(); err != nil {
		c.close()
		return nil, err
	}
	log.Printf("[coordinator] replanned project %s (%s, %d phase(s) reset)", p.ID, scope, reset)

	if opts.NoRun {
		c.close()
		return &models.Result{ProjectID: p.ID, ProjectDir: dir}, nil
	}
	return s.runAndWait(ctx, c)
}

// GetState returns a snapshot of a live project.
func (s *Service) GetState(projectID string) (*models.Project, error) {
	reply, err := s.registry.Call(projectID, getStateRequest{}, s.opts.callTimeout)
	if err != nil {
		return nil, &ProjectError{ProjectID: projectID, Reason: "get state", Err: err}
	}
	p, ok := reply.(*models.Project)
	if !ok {
		return nil, &ProjectError{ProjectID: projectID, Reason: fmt.Sprintf("get state: unexpected reply %T", reply)}
	}
	return p, nil
}

// AnswerQuestion delivers an answer to a project paused on a question.
func (s *Service) AnswerQuestion(projectID, answer string) error {
	if strings.TrimSpace(answer) == "" {
		return &ProjectError{ProjectID: projectID, Reason: "answer must not be empty"}
	}
	reply, err := s.registry.Call(projectID, answerRequest{Answer: answer}, s.opts.callTimeout)
	if err != nil {
		return &ProjectError{ProjectID: projectID, Reason: "answer question", Err: err}
	}
	if err, ok := reply.(error); ok && err != nil {
		var pe *ProjectError
		if errors.As(err, &pe) {
			return err
		}
		return &ProjectError{ProjectID: projectID, Reason: "answer question", Err: err}
	}
	return nil
}

// Shutdown stops every live coordinator, marking its current phase failed,
// and stops all agents. It waits until ctx is done.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	err := s.supervisor.Shutdown(ctx)
	s.events.Close()
	return err
}

// run tracks one launched coordinator.
type run struct {
	projectID string
	dir       string
	done      chan struct{}
	result    *models.Result
	err       error
}

// runAndWait launches c and blocks like wait. A coordinator that cannot be
// launched is closed here.
func (s *Service) runAndWait(ctx context.Context, c *coordinator) (*models.Result, error) {
	r, err := s.launch(c)
	if err != nil {
		c.close()
		return nil, err
	}
	return s.wait(ctx, r)
}

// launch starts the coordinator goroutine unless Shutdown has begun.
func (s *Service) launch(c *coordinator) (*run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, &ProjectError{ProjectID: c.project.ID, Reason: "launch", Err: ErrShutdown}
	}

	r := &run{projectID: c.project.ID, dir: c.dir, done: make(chan struct{})}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		r.result, r.err = c.drive(s.ctx)
		c.close()
		close(r.done)
	}()
	return r, nil
}

// wait blocks until the run finishes, ctx is done, or the overall timeout
// elapses. The run continues in the background in the last two cases.
func (s *Service) wait(ctx context.Context, r *run) (*models.Result, error) {
	timer := time.NewTimer(s.opts.overallTimeout)
	defer timer.Stop()

	select {
	case <-r.done:
		return r.result, r.err
	case <-timer.C:
		log.Printf("[coordinator] caller timed out after %v waiting for %s", s.opts.overallTimeout, r.projectID)
		return nil, &ProjectError{ProjectID: r.projectID, Reason: fmt.Sprintf("no outcome after %v", s.opts.overallTimeout), Err: ErrTimeout}
	case <-ctx.Done():
		return nil, &ProjectError{ProjectID: r.projectID, Reason: "wait canceled", Err: ctx.Err()}
	}
}

func (s *Service) newCoordinator(h *registry.Handle, p *models.Project, dir string) *coordinator {
	logger := NopLogger()
	if s.opts.debugLog {
		l, err := NewDebugLogger(filepath.Join(dir, state.LogsDir, "coordinator.log"))
		if err != nil {
			log.Printf("[coordinator] WARNING: debug log for %s: %v", p.ID, err)
		} else {
			logger = l
		}
	}
	return &coordinator{
		svc:     s,
		handle:  h,
		project: p,
		dir:     dir,
		log:     logger,
	}
}
