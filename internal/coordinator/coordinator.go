package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ShayCichocki/scopecraft/internal/agent"
	"github.com/ShayCichocki/scopecraft/internal/registry"
	"github.com/ShayCichocki/scopecraft/internal/supervisor"
	"github.com/ShayCichocki/scopecraft/pkg/models"
)

const reasonTimeout = "timeout"

const reasonCanceled = "canceled"

var errAgentTimeout = errors.New("agent timed out")

// coordinator owns one project while its goroutine is alive. Only that
// goroutine touches project.
type coordinator struct {
	svc     *Service
	handle  *registry.Handle
	project *models.Project
	dir     string
	log     *DebugLogger
}

// drive runs every phase from the first incomplete one, then finalizes.
func (c *coordinator) drive(ctx context.Context) (*models.Result, error) {
	p := c.project
	start := p.FirstIncomplete()

	c.log.Log("driving %s from phase %d/%d", p.ID, start+1, len(p.PhaseOrder))
	p.State = models.ProjectRunning
	if err := c.persist(); err != nil {
		c.emit(Event{Type: EventProjectFailed, Message: err.Error()})
		return nil, err
	}
	c.emit(Event{Type: EventProjectStarted})

	for _, name := range p.PhaseOrder[start:] {
		if err := c.runPhase(ctx, name); err != nil {
			c.emit(Event{Type: EventProjectFailed, Phase: name, Message: err.Error()})
			return nil, err
		}
	}
	return c.finalize()
}

// runPhase executes one phase until it completes, fails, or the project
// aborts. A clarification question pauses the phase and re-spawns it once
// answered.
func (c *coordinator) runPhase(ctx context.Context, name string) error {
	p := c.project
	inv, ren, err := c.svc.catalog.Lookup(name)
	if err != nil {
		return c.failPhase(name, fmt.Sprintf("no agent for phase: %v", err))
	}

	for {
		if q := p.Question; q != nil && q.Phase == name {
			if err := c.awaitAnswer(ctx, name); err != nil {
				return err
			}
		}

		p.Phases[name].Start(c.svc.opts.now())
		p.State = models.ProjectRunning
		if err := c.persist(); err != nil {
			return err
		}

		h, err := c.svc.supervisor.StartAgent(ctx, supervisor.Spec{
			Input:        c.input(name),
			Investigator: inv,
			Renderer:     ren,
			Writer:       artifactWriter{store: c.svc.store, dir: c.dir, order: p.PhaseOrder},
			Reporter:     c.reporter(),
		})
		if err != nil {
			c.log.Log("spawn %s failed: %v", name, err)
			return c.failPhase(name, fmt.Sprintf("spawn: %v", err))
		}
		c.log.Log("phase %s started (agent %s)", name, h.ID)
		c.emit(Event{Type: EventPhaseStarted, Phase: name})

		msg, err := c.await(ctx, h)
		switch {
		case errors.Is(err, errAgentTimeout):
			c.stopAgent(h)
			return c.failPhase(name, reasonTimeout)
		case err != nil:
			c.stopAgent(h)
			return c.failPhase(name, reasonCanceled)
		}

		switch m := msg.(type) {
		case agent.AgentComplete:
			return c.completePhase(name, m)
		case agent.AgentFailed:
			return c.failPhase(name, m.Reason)
		case agent.AgentQuestion:
			if err := c.pause(name, m.Question); err != nil {
				return err
			}
		default:
			return c.failPhase(name, fmt.Sprintf("unexpected agent message %T", msg))
		}
	}
}

// await serves the inbox until the agent reports, its timer fires, or ctx
// is done. Messages from other agents are stale and dropped.
func (c *coordinator) await(ctx context.Context, h *supervisor.AgentHandle) (agent.Message, error) {
	timeouts := c.svc.supervisor.Timeouts()
	timer := timeouts.StartTimer(h.ID, c.svc.opts.agentTimeout)
	defer timeouts.StopTimer(h.ID)

	for {
		select {
		case env := <-c.handle.Inbox():
			msg, ok := env.Msg.(agent.Message)
			if !ok {
				c.serve(env)
				continue
			}
			if msg.Source() != h.ID {
				c.log.Log("dropping stale message from agent %s", msg.Source())
				continue
			}
			c.reap(h)
			return msg, nil

		case ev, ok := <-timer:
			if !ok {
				timer = nil
				continue
			}
			c.log.Log("agent %s timed out after %v", ev.AgentID, ev.Elapsed.Round(time.Millisecond))
			return nil, errAgentTimeout

		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// reap waits for a reporting agent's goroutine to exit so the next phase
// can start on the same project.
func (c *coordinator) reap(h *supervisor.AgentHandle) {
	select {
	case <-h.Done():
	case <-time.After(c.svc.opts.stopGrace):
		c.stopAgent(h)
	}
}

func (c *coordinator) stopAgent(h *supervisor.AgentHandle) {
	if err := c.svc.supervisor.StopAgent(h); err != nil {
		log.Printf("[coordinator] stop agent %s: %v", h.ID, err)
	}
}

// pause records a clarification question, or fails the phase when it has
// already used its allowance.
func (c *coordinator) pause(name, question string) error {
	p := c.project
	asked := len(p.Answers[name])
	if asked >= c.svc.opts.maxQuestions {
		return c.failPhase(name, fmt.Sprintf("too many clarification questions (limit %d)", c.svc.opts.maxQuestions))
	}

	p.Question = &models.Question{Phase: name, Text: question, AskedAt: c.svc.opts.now()}
	p.State = models.ProjectPaused
	if err := c.persist(); err != nil {
		return err
	}
	c.log.Log("phase %s paused: %s", name, question)
	c.emit(Event{Type: EventQuestion, Phase: name, Question: question})
	return nil
}

// awaitAnswer serves the inbox until an answer for the pending question
// arrives. No agent is live while paused, so there is no timer.
func (c *coordinator) awaitAnswer(ctx context.Context, name string) error {
	p := c.project
	if p.State != models.ProjectPaused {
		p.State = models.ProjectPaused
		if err := c.persist(); err != nil {
			return err
		}
		c.emit(Event{Type: EventQuestion, Phase: name, Question: p.Question.Text})
	}

	for {
		select {
		case env := <-c.handle.Inbox():
			switch m := env.Msg.(type) {
			case answerRequest:
				p.Answers[name] = append(p.Answers[name], m.Answer)
				p.Question = nil
				p.State = models.ProjectRunning
				if err := c.persist(); err != nil {
					env.Respond(err)
					return err
				}
				env.Respond(nil)
				c.log.Log("phase %s answered", name)
				c.emit(Event{Type: EventAnswered, Phase: name})
				return nil
			case agent.Message:
				c.log.Log("dropping stale message from agent %s", m.Source())
			default:
				c.serve(env)
			}

		case <-ctx.Done():
			return c.failPhase(name, reasonCanceled)
		}
	}
}

// serve answers requests that do not depend on the current wait.
func (c *coordinator) serve(env registry.Envelope) {
	switch env.Msg.(type) {
	case getStateRequest:
		env.Respond(c.project.Clone())
	case answerRequest:
		env.Respond(&ProjectError{ProjectID: c.project.ID, Reason: "answer question", Err: ErrNotPaused})
	default:
		c.log.Log("ignoring unexpected message %T", env.Msg)
		env.Respond(fmt.Errorf("unexpected message %T", env.Msg))
	}
}

func (c *coordinator) completePhase(name string, m agent.AgentComplete) error {
	p := c.project
	findings := m.Findings.Clone()
	if findings == nil {
		findings = models.Findings{}
	}
	p.Context[name] = findings
	p.Phases[name].Complete(c.svc.opts.now(), m.ArtifactPath)
	if err := c.persist(); err != nil {
		return err
	}
	c.log.Log("phase %s completed in %dms", name, p.Phases[name].DurationMS)
	c.emit(Event{Type: EventPhaseCompleted, Phase: name, Message: m.ArtifactPath})
	return nil
}

// failPhase persists the failure and returns the caller-facing error. A
// persistence error takes precedence.
func (c *coordinator) failPhase(name, reason string) error {
	p := c.project
	p.Phases[name].Fail(c.svc.opts.now(), reason)
	p.State = models.ProjectFailed
	if err := c.persist(); err != nil {
		return err
	}
	c.log.Log("phase %s failed: %s", name, reason)
	log.Printf("[coordinator] project %s: phase %s failed: %s", p.ID, name, reason)
	c.emit(Event{Type: EventPhaseFailed, Phase: name, Message: reason})
	return &PhaseFailedError{ProjectID: p.ID, ProjectDir: c.dir, Phase: name, Reason: reason}
}

// finalize writes the summary derived from the last phase's findings.
func (c *coordinator) finalize() (*models.Result, error) {
	p := c.project
	summary := models.SummarizeFindings(p.Context[p.LastPhase()])

	path, err := c.svc.store.WriteSummary(c.dir, renderSummary(p, summary))
	if err != nil {
		return nil, &ProjectError{ProjectID: p.ID, Reason: "write summary", Err: err}
	}

	p.Summary = &summary
	p.State = models.ProjectCompleted
	if err := c.persist(); err != nil {
		return nil, err
	}
	c.log.Log("project completed: %d tickets, %d points", summary.TicketsCount, summary.TotalPoints)
	c.emit(Event{Type: EventProjectCompleted, Message: path})

	return &models.Result{
		ProjectID:  p.ID,
		ProjectDir: c.dir,
		OutputPath: path,
		Summary:    summary.Clone(),
	}, nil
}

// persist writes the project state. A failed write is fatal to the run;
// the index is best effort.
func (c *coordinator) persist() error {
	p := c.project
	p.UpdatedAt = c.svc.opts.now()
	if err := c.svc.store.Save(c.dir, p); err != nil {
		c.log.Log("persist failed: %v", err)
		return &ProjectError{ProjectID: p.ID, Reason: "persist state", Err: err}
	}
	if idx := c.svc.opts.index; idx != nil {
		if err := idx.Upsert(c.dir, p); err != nil {
			log.Printf("[coordinator] WARNING: index update for %s: %v", p.ID, err)
		}
	}
	return nil
}

func (c *coordinator) input(name string) agent.Input {
	p := c.project
	return agent.Input{
		ProjectID:  p.ID,
		Phase:      name,
		Task:       p.Task,
		Name:       p.Name,
		Context:    p.ContextSnapshot(),
		RootDir:    p.RootDir,
		Greenfield: p.Greenfield,
		Answers:    append([]string(nil), p.Answers[name]...),
	}
}

// reporter routes the agent's outcome through the registry so it reaches
// whichever coordinator currently owns the project.
func (c *coordinator) reporter() agent.Reporter {
	reg := c.svc.registry
	id := c.project.ID
	return agent.ReporterFunc(func(msg agent.Message) error {
		return reg.Send(id, msg)
	})
}

func (c *coordinator) emit(e Event) {
	e.ProjectID = c.project.ID
	e.State = c.project.State
	e.Timestamp = c.svc.opts.now()
	c.svc.events.Emit(e)
}

// close releases the registration and the log file.
func (c *coordinator) close() {
	c.svc.registry.Unregister(c.handle)
	c.log.Close()
}

// artifactWriter binds a project directory to agent.ArtifactWriter.
type artifactWriter struct {
	store Store
	dir   string
	order []string
}

func (w artifactWriter) WriteArtifact(phase, content string) (string, error) {
	return w.store.WriteArtifact(w.dir, w.order, phase, content)
}
