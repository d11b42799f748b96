package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	projectsDirFlag string
	useTUI          bool
)

var rootCmd = &cobra.Command{
	Use:   "scopecraft",
	Short: "Turn a task description into a phased delivery plan",
	Long: `Scopecraft plans a software change in seven phases: domain research,
tech stack, codebase scan, impact analysis, architecture, risk assessment
and ticket generation.

Each phase runs as its own agent and writes a Markdown artifact. Progress
is persisted after every phase, so a failed or interrupted run can be
resumed, and finished plans can be partially replanned.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&projectsDirFlag, "projects-dir", "", "Directory holding project state (overrides projects_dir)")

	for _, cmd := range []*cobra.Command{startCmd, greenfieldCmd, resumeCmd, replanCmd} {
		cmd.Flags().BoolVar(&useTUI, "tui", false, "Show the interactive progress view")
	}

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(greenfieldCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(replanCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
