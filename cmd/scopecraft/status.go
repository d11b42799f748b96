package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/scopecraft/internal/state"
	"github.com/ShayCichocki/scopecraft/pkg/models"
)

var (
	listState   string
	listRebuild bool
)

var statusCmd = &cobra.Command{
	Use:   "status <project>",
	Short: "Show the persisted state of a project",
	Long: `Display a project's state file: overall state, each phase with its
status, duration and artifact, and any pending question.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, store, err := openStore()
		if err != nil {
			return err
		}
		dir, err := resolveProjectDir(store, args[0])
		if err != nil {
			return err
		}
		p, err := store.Read(dir)
		if err != nil {
			return fmt.Errorf("read project: %w", err)
		}
		displayProject(cmd.OutOrStdout(), dir, p)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List known projects",
	Long: `List projects, most recently updated first. Uses the project index when
index.enabled is set and scans the projects directory otherwise.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

var watchCmd = &cobra.Command{
	Use:   "watch <project>",
	Short: "Follow a project's progress as its state file changes",
	Long: `Print a line every time the project's state changes. Stops when the
project completes or fails, or on interrupt.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, store, err := openStore()
		if err != nil {
			return err
		}
		dir, err := resolveProjectDir(store, args[0])
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		updates, err := store.Watch(ctx, dir)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		var last string
		for p := range updates {
			line := progressLine(p)
			if line == last {
				continue
			}
			last = line
			fmt.Fprintf(out, "%s %s\n", color.New(color.Faint).Sprint(time.Now().Format("15:04:05")), line)
			if p.State.Terminal() {
				return nil
			}
		}
		return nil
	},
}

func init() {
	listCmd.Flags().StringVar(&listState, "state", "", "Only show projects in this state")
	listCmd.Flags().BoolVar(&listRebuild, "rebuild", false, "Rebuild the index from the projects directory first")
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, store, err := openStore()
	if err != nil {
		return err
	}

	var filter *models.ProjectState
	if listState != "" {
		st := models.ProjectState(listState)
		if !st.Valid() {
			return fmt.Errorf("unknown state %q", listState)
		}
		filter = &st
	}

	var entries []state.IndexEntry
	if idx := openIndex(cfg); idx != nil {
		defer idx.Close()
		if listRebuild {
			indexed, skipped, err := idx.Rebuild(store)
			if err != nil {
				return fmt.Errorf("rebuild index: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Indexed %d project(s), skipped %d\n", indexed, skipped)
		}
		if entries, err = idx.List(filter); err != nil {
			return err
		}
	} else {
		if entries, err = scanEntries(store, filter); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No projects. Run 'scopecraft start <path> <task>' to create one.")
		return nil
	}
	fmt.Fprintln(out, renderProjectTable(entries))
	return nil
}

// scanEntries reads every project directory when no index is available.
func scanEntries(store *state.Store, filter *models.ProjectState) ([]state.IndexEntry, error) {
	dirs, err := store.List()
	if err != nil {
		return nil, err
	}
	var entries []state.IndexEntry
	for _, dir := range dirs {
		p, err := store.Read(dir)
		if err != nil {
			continue
		}
		if filter != nil && p.State != *filter {
			continue
		}
		entries = append(entries, state.EntryFor(dir, p))
	}
	return entries, nil
}

func renderProjectTable(entries []state.IndexEntry) string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252")).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("238"))).
		Headers("ID", "STATE", "PHASES", "CURRENT", "TICKETS", "UPDATED").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 1 && row >= 0 && row < len(entries) {
				return cellStyle.Foreground(stateColor(entries[row].State))
			}
			return cellStyle
		})

	for _, e := range entries {
		current := e.CurrentPhase
		if current == "" {
			current = "-"
		}
		kind := ""
		if e.Greenfield {
			kind = " (new)"
		}
		t.Row(
			e.ID+kind,
			string(e.State),
			fmt.Sprintf("%d/%d", e.PhasesCompleted, e.PhasesTotal),
			current,
			fmt.Sprintf("%d", e.TicketsCount),
			e.UpdatedAt.Local().Format("2006-01-02 15:04"),
		)
	}
	return t.String()
}

func stateColor(s models.ProjectState) lipgloss.Color {
	switch s {
	case models.ProjectCompleted:
		return lipgloss.Color("34")
	case models.ProjectFailed:
		return lipgloss.Color("196")
	case models.ProjectPaused:
		return lipgloss.Color("214")
	case models.ProjectRunning:
		return lipgloss.Color("205")
	default:
		return lipgloss.Color("245")
	}
}

// progressLine summarizes a project in one line for watch.
func progressLine(p *models.Project) string {
	e := state.EntryFor("", p)
	line := fmt.Sprintf("%s %s %d/%d", p.ID, p.State, e.PhasesCompleted, e.PhasesTotal)
	if e.CurrentPhase != "" && !p.State.Terminal() {
		line += " " + e.CurrentPhase
	}
	if p.Question != nil {
		line += fmt.Sprintf(" (waiting for answer: %s)", p.Question.Text)
	}
	if p.State == models.ProjectFailed {
		for _, name := range p.PhaseOrder {
			if rec := p.Phases[name]; rec != nil && rec.Status == models.PhaseStatusFailed {
				line += fmt.Sprintf(" (%s: %s)", name, rec.Error)
			}
		}
	}
	return line
}

func displayProject(w io.Writer, dir string, p *models.Project) {
	bold := color.New(color.Bold)
	fmt.Fprintf(w, "Project: %s\n", bold.Sprint(p.ID))
	if p.Name != "" {
		fmt.Fprintf(w, "  Name: %s\n", p.Name)
	}
	fmt.Fprintf(w, "  Task: %s\n", p.Task)
	if p.Greenfield {
		fmt.Fprintln(w, "  Mode: greenfield")
	} else {
		fmt.Fprintf(w, "  Codebase: %s\n", p.RootDir)
	}
	fmt.Fprintf(w, "  Directory: %s\n", dir)
	fmt.Fprintf(w, "  State: %s\n", lipgloss.NewStyle().Foreground(stateColor(p.State)).Render(string(p.State)))
	fmt.Fprintf(w, "  Updated: %s\n", p.UpdatedAt.Local().Format(time.RFC3339))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Phases:")
	for i, name := range p.PhaseOrder {
		rec := p.Phases[name]
		if rec == nil {
			continue
		}
		fmt.Fprintf(w, "  %d. %-18s %s\n", i+1, name, phaseDetail(rec))
	}

	if p.Question != nil {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%s %s asks: %s\n", color.YellowString("?"), p.Question.Phase, p.Question.Text)
		fmt.Fprintf(w, "  Answer with: scopecraft resume %s\n", p.ID)
	}
	if p.Summary != nil {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Summary: %d tickets, %d points\n", p.Summary.TicketsCount, p.Summary.TotalPoints)
	}
}

func phaseDetail(rec *models.PhaseRecord) string {
	var parts []string
	switch rec.Status {
	case models.PhaseStatusCompleted:
		parts = append(parts, color.GreenString("completed"))
	case models.PhaseStatusFailed:
		parts = append(parts, color.RedString("failed"))
	case models.PhaseStatusRunning:
		parts = append(parts, color.CyanString("running"))
	default:
		parts = append(parts, string(rec.Status))
	}
	if rec.DurationMS > 0 {
		parts = append(parts, (time.Duration(rec.DurationMS) * time.Millisecond).String())
	}
	if rec.Artifact != "" {
		parts = append(parts, rec.Artifact)
	}
	if rec.Error != "" {
		parts = append(parts, "error: "+rec.Error)
	}
	return strings.Join(parts, "  ")
}
