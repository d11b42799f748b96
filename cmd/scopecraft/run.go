package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/scopecraft/internal/coordinator"
	"github.com/ShayCichocki/scopecraft/pkg/models"
)

var (
	startName   string
	replanScope string
	replanNoRun bool
)

var startCmd = &cobra.Command{
	Use:   "start <path> <task...>",
	Short: "Plan a change to an existing codebase",
	Long: `Create a project for the codebase at <path> and run every phase.

The task is the remaining arguments joined by spaces.

Examples:
  scopecraft start . add rate limiting to the public API
  scopecraft start ../billing "migrate invoices to Postgres" --tui`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.close()

		path, task := args[0], strings.Join(args[1:], " ")
		return s.execute("", models.DefaultPhases(), func(ctx context.Context) (*models.Result, error) {
			return s.svc.Start(ctx, path, task, coordinator.StartOptions{Name: startName})
		})
	},
}

var greenfieldCmd = &cobra.Command{
	Use:   "greenfield <name> <task...>",
	Short: "Plan a new project from scratch",
	Long: `Create a greenfield project called <name> and run every phase.
No codebase is scanned; phases recommend a stack and setup steps instead.

Example:
  scopecraft greenfield invoicer "a small invoicing service for freelancers"`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.close()

		name, task := args[0], strings.Join(args[1:], " ")
		return s.execute("", models.DefaultPhases(), func(ctx context.Context) (*models.Result, error) {
			return s.svc.StartGreenfield(ctx, name, task, coordinator.StartOptions{})
		})
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume <project>",
	Short: "Continue a project from its first incomplete phase",
	Long: `Resume a project by directory or id. Completed phases are kept; the
first phase that is not completed runs again. A project paused on a
question prompts for the answer first.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.close()

		dir, p, err := s.lookup(args[0])
		if err != nil {
			return err
		}
		return s.execute(p.ID, p.PhaseOrder, func(ctx context.Context) (*models.Result, error) {
			return s.svc.Resume(ctx, dir)
		})
	},
}

var replanCmd = &cobra.Command{
	Use:   "replan <project>",
	Short: "Reset the last phases of a project and run them again",
	Long: `Replan resets trailing phases and reruns them.

Scopes:
  minimal  reset the last phase (ticket generation)
  full     reset the last two phases (risk assessment and ticket generation)

The default scope comes from replan.scope. With --no-run the reset is
saved and nothing runs; use resume later.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.close()

		scope := s.cfg.ReplanScope()
		if replanScope != "" {
			parsed, err := models.ParseReplanScope(replanScope)
			if err != nil {
				return err
			}
			scope = parsed
		}

		dir, p, err := s.lookup(args[0])
		if err != nil {
			return err
		}
		opts := coordinator.ReplanOptions{Scope: scope, NoRun: replanNoRun}
		return s.execute(p.ID, p.PhaseOrder, func(ctx context.Context) (*models.Result, error) {
			return s.svc.Replan(ctx, dir, opts)
		})
	},
}

// lookup resolves a project argument and reads its state as written. Crash
// repair is left to the coordinator, which loads the project again.
func (s *session) lookup(arg string) (string, *models.Project, error) {
	dir, err := resolveProjectDir(s.store, arg)
	if err != nil {
		return "", nil, err
	}
	p, err := s.store.Read(dir)
	if err != nil {
		return "", nil, fmt.Errorf("read project %s: %w", dir, err)
	}
	return dir, p, nil
}

func init() {
	startCmd.Flags().StringVar(&startName, "name", "", "Project name (defaults to the directory name)")
	replanCmd.Flags().StringVar(&replanScope, "scope", "", "Replan scope: full or minimal")
	replanCmd.Flags().BoolVar(&replanNoRun, "no-run", false, "Reset phases without running them")
}
