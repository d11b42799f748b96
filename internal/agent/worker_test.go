package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ShayCichocki/scopecraft/pkg/models"
)

type captureReporter struct {
	msgs []Message
}

func (c *captureReporter) Report(msg Message) error {
	c.msgs = append(c.msgs, msg)
	return nil
}

type memWriter struct {
	written map[string]string
	err     error
}

func (m *memWriter) WriteArtifact(phase, content string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if m.written == nil {
		m.written = make(map[string]string)
	}
	m.written[phase] = content
	return "artifacts/" + phase + ".md", nil
}

var echoRenderer = RendererFunc(func(phase string, f models.Findings) (string, error) {
	return "# " + phase, nil
})

func newTestWorker(t *testing.T, inv Investigator, w ArtifactWriter, r Reporter) *Worker {
	t.Helper()
	worker, err := NewWorker(WorkerConfig{
		ID:           "agent-1",
		Input:        Input{ProjectID: "p1", Phase: models.PhaseTechStack, Task: "add auth"},
		Investigator: inv,
		Renderer:     echoRenderer,
		Writer:       w,
		Reporter:     r,
	})
	if err != nil {
		t.Fatalf("NewWorker() error = %v", err)
	}
	return worker
}

func TestWorker_Success(t *testing.T) {
	rep := &captureReporter{}
	writer := &memWriter{}
	inv := InvestigatorFunc(func(ctx context.Context, in Input) (models.Findings, error) {
		if in.Task != "add auth" {
			t.Errorf("Task = %q, want %q", in.Task, "add auth")
		}
		return models.Findings{"language": "Go"}, nil
	})

	newTestWorker(t, inv, writer, rep).Run(context.Background())

	if len(rep.msgs) != 1 {
		t.Fatalf("reported %d messages, want 1", len(rep.msgs))
	}
	done, ok := rep.msgs[0].(AgentComplete)
	if !ok {
		t.Fatalf("message type = %T, want AgentComplete", rep.msgs[0])
	}
	if done.AgentID != "agent-1" || done.Source() != "agent-1" {
		t.Errorf("AgentID = %q, want agent-1", done.AgentID)
	}
	if done.Findings["language"] != "Go" {
		t.Errorf("Findings = %v", done.Findings)
	}
	if done.RenderedText != "# tech_stack" {
		t.Errorf("RenderedText = %q", done.RenderedText)
	}
	if done.ArtifactPath != "artifacts/tech_stack.md" {
		t.Errorf("ArtifactPath = %q", done.ArtifactPath)
	}
	if writer.written[models.PhaseTechStack] != "# tech_stack" {
		t.Errorf("artifact content = %q", writer.written[models.PhaseTechStack])
	}
	if !done.Outcome().Success {
		t.Error("Outcome().Success = false, want true")
	}
}

func TestWorker_InvestigatorError(t *testing.T) {
	rep := &captureReporter{}
	inv := InvestigatorFunc(func(ctx context.Context, in Input) (models.Findings, error) {
		return nil, &AgentError{Phase: in.Phase, Reason: "model returned no JSON"}
	})

	newTestWorker(t, inv, nil, rep).Run(context.Background())

	failed, ok := rep.msgs[0].(AgentFailed)
	if !ok {
		t.Fatalf("message type = %T, want AgentFailed", rep.msgs[0])
	}
	if failed.Reason != "model returned no JSON" {
		t.Errorf("Reason = %q", failed.Reason)
	}
	if failed.Outcome().Success {
		t.Error("Outcome().Success = true, want false")
	}
}

func TestWorker_PanicBecomesFailure(t *testing.T) {
	rep := &captureReporter{}
	inv := InvestigatorFunc(func(ctx context.Context, in Input) (models.Findings, error) {
		panic("boom")
	})

	newTestWorker(t, inv, nil, rep).Run(context.Background())

	if len(rep.msgs) != 1 {
		t.Fatalf("reported %d messages, want 1", len(rep.msgs))
	}
	failed, ok := rep.msgs[0].(AgentFailed)
	if !ok {
		t.Fatalf("message type = %T, want AgentFailed", rep.msgs[0])
	}
	if !strings.HasPrefix(failed.Reason, "crashed:") {
		t.Errorf("Reason = %q, want crashed prefix", failed.Reason)
	}
}

func TestWorker_Question(t *testing.T) {
	rep := &captureReporter{}
	inv := InvestigatorFunc(func(ctx context.Context, in Input) (models.Findings, error) {
		return nil, Ask("Which database?")
	})

	newTestWorker(t, inv, nil, rep).Run(context.Background())

	q, ok := rep.msgs[0].(AgentQuestion)
	if !ok {
		t.Fatalf("message type = %T, want AgentQuestion", rep.msgs[0])
	}
	if q.Question != "Which database?" {
		t.Errorf("Question = %q", q.Question)
	}
}

func TestWorker_WriteFailure(t *testing.T) {
	rep := &captureReporter{}
	writer := &memWriter{err: errors.New("disk full")}
	inv := InvestigatorFunc(func(ctx context.Context, in Input) (models.Findings, error) {
		return models.Findings{}, nil
	})

	newTestWorker(t, inv, writer, rep).Run(context.Background())

	failed, ok := rep.msgs[0].(AgentFailed)
	if !ok {
		t.Fatalf("message type = %T, want AgentFailed", rep.msgs[0])
	}
	if !strings.Contains(failed.Reason, "disk full") {
		t.Errorf("Reason = %q", failed.Reason)
	}
}

func TestWorker_CancelledReportsNothing(t *testing.T) {
	rep := &captureReporter{}
	ctx, cancel := context.WithCancel(context.Background())
	inv := InvestigatorFunc(func(ctx context.Context, in Input) (models.Findings, error) {
		cancel()
		return nil, ctx.Err()
	})

	newTestWorker(t, inv, nil, rep).Run(ctx)

	if len(rep.msgs) != 0 {
		t.Errorf("reported %d messages after cancel, want 0", len(rep.msgs))
	}
}

func TestWorker_CancelledWritesNoArtifact(t *testing.T) {
	rep := &captureReporter{}
	writer := &memWriter{}
	ctx, cancel := context.WithCancel(context.Background())
	inv := InvestigatorFunc(func(_ context.Context, in Input) (models.Findings, error) {
		// Ignores cancellation and finishes anyway.
		cancel()
		return models.Findings{"tag": "stale"}, nil
	})

	newTestWorker(t, inv, writer, rep).Run(ctx)

	if len(writer.written) != 0 {
		t.Errorf("stopped worker wrote artifacts: %v", writer.written)
	}
	if len(rep.msgs) != 0 {
		t.Errorf("reported %d messages after cancel, want 0", len(rep.msgs))
	}
}

func TestNewWorker_RequiresCollaborators(t *testing.T) {
	_, err := NewWorker(WorkerConfig{ID: "a", Input: Input{Phase: "x"}, Renderer: echoRenderer, Reporter: &captureReporter{}})
	var ae *AgentError
	if !errors.As(err, &ae) {
		t.Fatalf("error = %v, want *AgentError", err)
	}
	if ae.Reason != "no investigator" {
		t.Errorf("Reason = %q", ae.Reason)
	}
}
