package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/scopecraft/internal/coordinator"
	"github.com/ShayCichocki/scopecraft/pkg/models"
)

// maxLogEntries bounds the activity log shown under the phase list.
const maxLogEntries = 8

// EventMsg wraps a coordinator event for the TUI.
type EventMsg struct {
	Event coordinator.Event
}

// DoneMsg is sent when the run returns.
type DoneMsg struct {
	Result *models.Result
	Err    error
}

// answerResultMsg reports the outcome of an AnswerHandler call.
type answerResultMsg struct {
	err error
}

// AnswerHandler delivers an answer to the paused project.
type AnswerHandler func(projectID, answer string) error

// LogEntry is one line of the activity log.
type LogEntry struct {
	Timestamp time.Time
	Phase     string
	Message   string
}

// PlanApp is the bubbletea model for a planning run.
type PlanApp struct {
	view     *PlanView
	input    *InputField
	logs     []LogEntry
	answer   AnswerHandler
	width    int
	quitting bool
	done     bool
	result   *models.Result
	err      error

	logStyle     lipgloss.Style
	logTimeStyle lipgloss.Style
	errorStyle   lipgloss.Style
	doneStyle    lipgloss.Style
}

// NewPlanApp creates a PlanApp for one project.
func NewPlanApp(projectID string, order []string) *PlanApp {
	return &PlanApp{
		view:  NewPlanView(NewPlanState(projectID, order)),
		input: NewInputField(),

		logStyle:     lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		logTimeStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		errorStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		doneStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("34")).Bold(true),
	}
}

// NewPlanProgram creates a bubbletea program for a planning run.
func NewPlanProgram(projectID string, order []string) (*tea.Program, *PlanApp) {
	app := NewPlanApp(projectID, order)
	return tea.NewProgram(app, tea.WithAltScreen()), app
}

// SetAnswerHandler sets the callback for clarification answers.
func (a *PlanApp) SetAnswerHandler(h AnswerHandler) {
	a.answer = h
}

// Result returns the run result once DoneMsg arrived.
func (a *PlanApp) Result() (*models.Result, error) {
	return a.result, a.err
}

// State returns the current plan state.
func (a *PlanApp) State() PlanState {
	return a.view.State()
}

// Init implements tea.Model.
func (a *PlanApp) Init() tea.Cmd {
	return a.view.Tick()
}

// Update implements tea.Model.
func (a *PlanApp) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			a.quitting = true
			return a, tea.Quit
		}
		if a.input.Focused() {
			var cmd tea.Cmd
			a.input, cmd = a.input.Update(msg)
			return a, cmd
		}
		if msg.String() == "q" {
			a.quitting = !a.done
			return a, tea.Quit
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.view.SetWidth(msg.Width)
		a.input.SetWidth(msg.Width)

	case EventMsg:
		a.view, _ = a.view.Update(msg)
		a.log(msg.Event.Timestamp, msg.Event.Phase, describe(msg.Event))
		switch msg.Event.Type {
		case coordinator.EventQuestion:
			return a, a.input.Focus()
		case coordinator.EventAnswered:
			a.input.Blur()
		}

	case AnswerSubmittedMsg:
		return a, a.submit(msg.Answer)

	case answerResultMsg:
		if msg.err != nil {
			a.log(time.Now(), "answer", fmt.Sprintf("answer not delivered: %v", msg.err))
			return a, a.input.Focus()
		}
		a.input.Blur()

	case DoneMsg:
		a.done = true
		a.result = msg.Result
		a.err = msg.Err
		a.input.Blur()

	default:
		var cmd tea.Cmd
		a.view, cmd = a.view.Update(msg)
		return a, cmd
	}
	return a, nil
}

// submit runs the handler off the update loop; the project id is read
// here because the model is not safe to share.
func (a *PlanApp) submit(answer string) tea.Cmd {
	h := a.answer
	id := a.view.State().ProjectID
	if h == nil {
		return func() tea.Msg {
			return answerResultMsg{err: fmt.Errorf("no answer handler")}
		}
	}
	return func() tea.Msg {
		return answerResultMsg{err: h(id, answer)}
	}
}

func (a *PlanApp) log(ts time.Time, phase, message string) {
	if ts.IsZero() {
		ts = time.Now()
	}
	a.logs = append(a.logs, LogEntry{Timestamp: ts, Phase: phase, Message: message})
	if len(a.logs) > maxLogEntries {
		a.logs = a.logs[len(a.logs)-maxLogEntries:]
	}
}

// View implements tea.Model.
func (a *PlanApp) View() string {
	if a.quitting {
		return "Planning interrupted.\n"
	}

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).Render("=== scopecraft ==="))
	b.WriteString("\n\n")
	b.WriteString(a.view.View())
	b.WriteString("\n")

	if a.input.Focused() {
		b.WriteString(a.input.View())
		b.WriteString("\n\n")
	}

	b.WriteString(a.renderLogs())
	b.WriteString("\n")

	hint := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	switch {
	case a.done && a.err != nil:
		b.WriteString(a.errorStyle.Render(fmt.Sprintf("Error: %v", a.err)))
		b.WriteString("\n")
		b.WriteString(hint.Render("Press q to exit"))
	case a.done:
		msg := "Plan complete! Press q to exit."
		if a.result != nil && a.result.OutputPath != "" {
			msg = fmt.Sprintf("Plan complete: %s (press q to exit)", a.result.OutputPath)
		}
		b.WriteString(a.doneStyle.Render(msg))
	case a.input.Focused():
		b.WriteString(hint.Render("Enter to answer, Ctrl+C to cancel"))
	default:
		b.WriteString(hint.Render("Press q to cancel"))
	}
	b.WriteString("\n")
	return b.String()
}

func (a *PlanApp) renderLogs() string {
	if len(a.logs) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252")).Render("Activity Log"))
	b.WriteString("\n")
	for _, entry := range a.logs {
		ts := a.logTimeStyle.Render(entry.Timestamp.Format("15:04:05"))
		phase := lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Width(18).Render(entry.Phase)
		fmt.Fprintf(&b, "  %s %s %s\n", ts, phase, a.logStyle.Render(entry.Message))
	}
	return b.String()
}

// describe renders an event as a log line.
func describe(ev coordinator.Event) string {
	switch ev.Type {
	case coordinator.EventProjectStarted:
		return "project started"
	case coordinator.EventPhaseStarted:
		return "phase started"
	case coordinator.EventPhaseCompleted:
		return "wrote " + ev.Message
	case coordinator.EventPhaseFailed:
		return "failed: " + ev.Message
	case coordinator.EventQuestion:
		return "question: " + ev.Question
	case coordinator.EventAnswered:
		return "answer recorded"
	case coordinator.EventProjectCompleted:
		return "summary written to " + ev.Message
	case coordinator.EventProjectFailed:
		return "project stopped: " + ev.Message
	default:
		return string(ev.Type)
	}
}
