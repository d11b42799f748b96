package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/ShayCichocki/scopecraft/internal/config"
)

var configInitForce bool

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify scopecraft configuration.

Without arguments, displays the effective configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the value in the user config.

Configuration is stored at ~/.config/scopecraft/config.yaml
Project-specific overrides can be placed in .scopecraft.yaml`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if len(args) == 2 {
			if err := config.Set(args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(out, "Set %s = %s in %s\n", args[0], args[1], config.GetUserConfigPath())
			return nil
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if len(args) == 1 {
			value, err := cfg.Value(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(out, value)
			return nil
		}
		return displayAllConfig(out, cfg)
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Write a .scopecraft.yaml project override file",
	Long: `Create .scopecraft.yaml in the given directory (default: current) holding
the pipeline settings that are useful to override per repository.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		path, err := writeProjectConfig(dir, cfg, configInitForce)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
}

// displayAllConfig prints all configuration values.
func displayAllConfig(w io.Writer, cfg *config.Config) error {
	for _, key := range config.Keys {
		value, err := cfg.Value(key)
		if err != nil {
			return err
		}
		if value == "" {
			value = "(not set)"
		}
		fmt.Fprintf(w, "%s: %s\n", key, value)
	}
	fmt.Fprintf(w, "\nuser config: %s\n", config.GetUserConfigPath())
	if p := config.GetProjectConfigPath(); p != "" {
		fmt.Fprintf(w, "project config: %s\n", p)
	}
	fmt.Fprintf(w, "api key source: %s\n", config.GetAPIKeySource(cfg))
	return nil
}

// projectFile is the layout of a .scopecraft.yaml override file.
type projectFile struct {
	Timeouts struct {
		Agent   string `yaml:"agent"`
		Overall string `yaml:"overall"`
	} `yaml:"timeouts"`
	Replan struct {
		Scope string `yaml:"scope"`
	} `yaml:"replan"`
	Agents struct {
		MaxQuestions int `yaml:"max_questions"`
	} `yaml:"agents"`
	Anthropic struct {
		Model string `yaml:"model"`
	} `yaml:"anthropic"`
}

const projectFileHeader = `# scopecraft project overrides.
# Values here take precedence over ~/.config/scopecraft/config.yaml.
# Secrets such as anthropic.api_key belong in the environment.
`

// writeProjectConfig writes a project override file seeded from cfg.
func writeProjectConfig(dir string, cfg *config.Config, force bool) (string, error) {
	path := filepath.Join(dir, config.ProjectConfigName)
	if _, err := os.Stat(path); err == nil && !force {
		return "", fmt.Errorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	var f projectFile
	f.Timeouts.Agent = cfg.Timeouts.Agent.String()
	f.Timeouts.Overall = cfg.Timeouts.Overall.String()
	f.Replan.Scope = string(cfg.ReplanScope())
	f.Agents.MaxQuestions = cfg.Agents.MaxQuestions
	f.Anthropic.Model = cfg.Anthropic.Model

	data, err := yaml.Marshal(&f)
	if err != nil {
		return "", fmt.Errorf("encode project config: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, append([]byte(projectFileHeader), data...), 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
