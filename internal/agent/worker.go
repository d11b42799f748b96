package agent

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/ShayCichocki/scopecraft/pkg/models"
)

// Worker executes one phase exactly once and reports exactly one message.
// Workers are never restarted; a retry is a new Worker.
type Worker struct {
	id           string
	input        Input
	investigator Investigator
	renderer     Renderer
	writer       ArtifactWriter
	reporter     Reporter
}

// WorkerConfig holds the collaborators of a Worker.
type WorkerConfig struct {
	ID           string
	Input        Input
	Investigator Investigator
	Renderer     Renderer
	// Writer is optional; without it no artifact is stored.
	Writer   ArtifactWriter
	Reporter Reporter
}

// NewWorker creates a Worker. Investigator, Renderer and Reporter are required.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	if cfg.Investigator == nil {
		return nil, &AgentError{Agent: cfg.ID, Phase: cfg.Input.Phase, Reason: "no investigator"}
	}
	if cfg.Renderer == nil {
		return nil, &AgentError{Agent: cfg.ID, Phase: cfg.Input.Phase, Reason: "no renderer"}
	}
	if cfg.Reporter == nil {
		return nil, &AgentError{Agent: cfg.ID, Phase: cfg.Input.Phase, Reason: "no reporter"}
	}
	return &Worker{
		id:           cfg.ID,
		input:        cfg.Input,
		investigator: cfg.Investigator,
		renderer:     cfg.Renderer,
		writer:       cfg.Writer,
		reporter:     cfg.Reporter,
	}, nil
}

// ID returns the agent ID.
func (w *Worker) ID() string { return w.id }

// Run computes the phase and reports the outcome. If ctx is cancelled
// before the outcome is known, nothing is reported.
func (w *Worker) Run(ctx context.Context) {
	msg := w.execute(ctx)
	if ctx.Err() != nil {
		log.Printf("[agent] %s (%s) stopped before reporting", w.id, w.input.Phase)
		return
	}
	if err := w.reporter.Report(msg); err != nil {
		log.Printf("[agent] %s (%s) report failed: %v", w.id, w.input.Phase, err)
	}
}

func (w *Worker) execute(ctx context.Context) (msg Message) {
	phase := w.input.Phase

	defer func() {
		if r := recover(); r != nil {
			msg = AgentFailed{AgentID: w.id, Phase: phase, Reason: fmt.Sprintf("crashed: %v", r)}
		}
	}()

	findings, err := w.investigator.Investigate(ctx, w.input)
	if err != nil {
		var q *QuestionError
		if errors.As(err, &q) {
			return AgentQuestion{AgentID: w.id, Phase: phase, Question: q.Question}
		}
		return AgentFailed{AgentID: w.id, Phase: phase, Reason: failureReason(err)}
	}
	if findings == nil {
		findings = models.Findings{}
	}

	text, err := w.renderer.Render(phase, findings)
	if err != nil {
		return AgentFailed{AgentID: w.id, Phase: phase, Reason: "render: " + err.Error()}
	}

	// A stopped worker must not touch the project directory; a newer run
	// may already own the artifact.
	if ctx.Err() != nil {
		return AgentFailed{AgentID: w.id, Phase: phase, Reason: "canceled"}
	}

	var path string
	if w.writer != nil {
		path, err = w.writer.WriteArtifact(phase, text)
		if err != nil {
			return AgentFailed{AgentID: w.id, Phase: phase, Reason: "write artifact: " + err.Error()}
		}
	}

	return AgentComplete{
		AgentID:      w.id,
		Phase:        phase,
		Findings:     findings,
		RenderedText: text,
		ArtifactPath: path,
	}
}
