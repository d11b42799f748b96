package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/scopecraft/internal/coordinator"
	"github.com/ShayCichocki/scopecraft/pkg/models"
)

// PhaseInfo is the display state of one phase.
type PhaseInfo struct {
	Name      string
	Status    models.PhaseStatus
	StartedAt time.Time
	Duration  time.Duration
	Error     string
}

// PlanState tracks the progress of one project.
type PlanState struct {
	ProjectID string
	State     models.ProjectState
	Phases    []PhaseInfo
	// Question is the pending clarification question, if any.
	Question      string
	QuestionPhase string
}

// NewPlanState creates a state with every phase pending.
func NewPlanState(projectID string, order []string) PlanState {
	phases := make([]PhaseInfo, len(order))
	for i, name := range order {
		phases[i] = PhaseInfo{Name: name, Status: models.PhaseStatusPending}
	}
	return PlanState{ProjectID: projectID, State: models.ProjectCreated, Phases: phases}
}

// Completed returns how many phases have completed.
func (s PlanState) Completed() int {
	n := 0
	for _, p := range s.Phases {
		if p.Status == models.PhaseStatusCompleted {
			n++
		}
	}
	return n
}

// Current returns the running phase name, or "".
func (s PlanState) Current() string {
	for _, p := range s.Phases {
		if p.Status == models.PhaseStatusRunning {
			return p.Name
		}
	}
	return ""
}

// Apply folds a coordinator event into the state. A state without a
// project id adopts the first event's; events for other projects are
// ignored.
func (s *PlanState) Apply(ev coordinator.Event) {
	if s.ProjectID == "" {
		s.ProjectID = ev.ProjectID
	}
	if ev.ProjectID != s.ProjectID {
		return
	}
	if ev.State != "" {
		s.State = ev.State
	}

	p := s.phase(ev.Phase)
	switch ev.Type {
	case coordinator.EventPhaseStarted:
		if p != nil {
			p.Status = models.PhaseStatusRunning
			p.StartedAt = ev.Timestamp
			p.Error = ""
		}
	case coordinator.EventPhaseCompleted:
		if p != nil {
			p.Status = models.PhaseStatusCompleted
			p.Duration = ev.Timestamp.Sub(p.StartedAt)
		}
	case coordinator.EventPhaseFailed:
		if p != nil {
			p.Status = models.PhaseStatusFailed
			p.Error = ev.Message
			if !p.StartedAt.IsZero() {
				p.Duration = ev.Timestamp.Sub(p.StartedAt)
			}
		}
	case coordinator.EventQuestion:
		s.Question = ev.Question
		s.QuestionPhase = ev.Phase
		if p != nil && p.Status == models.PhaseStatusRunning {
			p.Status = models.PhaseStatusPending
		}
	case coordinator.EventAnswered:
		s.Question = ""
		s.QuestionPhase = ""
	}
}

func (s *PlanState) phase(name string) *PhaseInfo {
	if name == "" {
		return nil
	}
	for i := range s.Phases {
		if s.Phases[i].Name == name {
			return &s.Phases[i]
		}
	}
	return nil
}

// PlanView displays the phase progress of a project.
type PlanView struct {
	state   PlanState
	spinner spinner.Model
	width   int

	headerStyle   lipgloss.Style
	labelStyle    lipgloss.Style
	valueStyle    lipgloss.Style
	progressFull  lipgloss.Style
	progressEmpty lipgloss.Style
	pendingStyle  lipgloss.Style
	runningStyle  lipgloss.Style
	doneStyle     lipgloss.Style
	failedStyle   lipgloss.Style
	questionStyle lipgloss.Style
}

// NewPlanView creates a PlanView for state.
func NewPlanView(state PlanState) *PlanView {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return &PlanView{
		state:   state,
		spinner: sp,
		width:   80,

		headerStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("238")).
			MarginBottom(1),

		labelStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(16),

		valueStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true),

		progressFull:  lipgloss.NewStyle().Foreground(lipgloss.Color("34")),
		progressEmpty: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		pendingStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		runningStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true),
		doneStyle:     lipgloss.NewStyle().Foreground(lipgloss.Color("34")),
		failedStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		questionStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("214")).
			Padding(0, 1),
	}
}

// Tick starts the spinner.
func (v *PlanView) Tick() tea.Cmd {
	return v.spinner.Tick
}

// Update handles spinner ticks and events.
func (v *PlanView) Update(msg tea.Msg) (*PlanView, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd
	case EventMsg:
		v.state.Apply(msg.Event)
	}
	return v, nil
}

// SetWidth sets the view width.
func (v *PlanView) SetWidth(width int) {
	v.width = width
}

// State returns the current plan state.
func (v *PlanView) State() PlanState {
	return v.state
}

// View renders the phase list.
func (v *PlanView) View() string {
	var b strings.Builder

	b.WriteString(v.headerStyle.Render("Planning " + v.state.ProjectID))
	b.WriteString("\n")

	b.WriteString(v.labelStyle.Render("State:"))
	b.WriteString(v.valueStyle.Render(string(v.state.State)))
	b.WriteString("\n")

	total := len(v.state.Phases)
	done := v.state.Completed()
	pct := float64(0)
	if total > 0 {
		pct = float64(done) / float64(total) * 100
	}
	b.WriteString(v.labelStyle.Render("Phases:"))
	b.WriteString(v.valueStyle.Render(fmt.Sprintf("%d/%d complete", done, total)))
	b.WriteString("\n")
	b.WriteString(v.renderProgressBar(pct, 30))
	b.WriteString("\n\n")

	for i, p := range v.state.Phases {
		b.WriteString(v.renderPhase(i+1, p))
		b.WriteString("\n")
	}

	if v.state.Question != "" {
		b.WriteString("\n")
		q := fmt.Sprintf("? %s asks: %s", v.state.QuestionPhase, v.state.Question)
		b.WriteString(v.questionStyle.Width(max(v.width-4, 20)).Render(q))
		b.WriteString("\n")
	}
	return b.String()
}

func (v *PlanView) renderPhase(n int, p PhaseInfo) string {
	var marker, status string
	switch p.Status {
	case models.PhaseStatusRunning:
		marker = v.spinner.View()
		status = v.runningStyle.Render("running")
	case models.PhaseStatusCompleted:
		marker = v.doneStyle.Render("✓")
		status = v.doneStyle.Render(fmt.Sprintf("done in %s", p.Duration.Round(time.Millisecond)))
	case models.PhaseStatusFailed:
		marker = v.failedStyle.Render("✗")
		status = v.failedStyle.Render("failed: " + p.Error)
	default:
		marker = v.pendingStyle.Render("·")
		status = v.pendingStyle.Render("pending")
	}
	name := lipgloss.NewStyle().Width(20).Render(p.Name)
	return fmt.Sprintf("  %s %d. %s %s", marker, n, name, status)
}

func (v *PlanView) renderProgressBar(pct float64, width int) string {
	if pct > 100 {
		pct = 100
	}
	if pct < 0 {
		pct = 0
	}
	filled := int(pct / 100 * float64(width))
	bar := v.progressFull.Render(strings.Repeat("█", filled)) +
		v.progressEmpty.Render(strings.Repeat("░", width-filled))
	return fmt.Sprintf("  %s %.0f%%", bar, pct)
}
