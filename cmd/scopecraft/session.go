package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"

	"github.com/ShayCichocki/scopecraft/internal/api"
	"github.com/ShayCichocki/scopecraft/internal/config"
	"github.com/ShayCichocki/scopecraft/internal/coordinator"
	"github.com/ShayCichocki/scopecraft/internal/phases"
	"github.com/ShayCichocki/scopecraft/internal/state"
	"github.com/ShayCichocki/scopecraft/pkg/models"
)

// runFunc executes one coordinator operation.
type runFunc func(ctx context.Context) (*models.Result, error)

// session holds what a run command needs: configuration, storage, the
// optional project index and the coordinator service.
type session struct {
	cfg    *config.Config
	store  *state.Store
	index  *state.Index
	client *api.Client
	svc    *coordinator.Service
}

// loadConfig loads configuration and applies command-line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if projectsDirFlag != "" {
		cfg.ProjectsDir = projectsDirFlag
	}
	return cfg, nil
}

// openStore loads configuration and opens the project store only.
func openStore() (*config.Config, *state.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	return cfg, state.NewStore(cfg.ProjectsDir), nil
}

// openIndex opens the project index when enabled. A broken index is
// reported and skipped; state files stay authoritative.
func openIndex(cfg *config.Config) *state.Index {
	if !cfg.Index.Enabled {
		return nil
	}
	idx, err := state.OpenIndex(state.IndexPath(cfg.ProjectsDir))
	if err != nil {
		log.Printf("[cli] WARNING: project index unavailable: %v", err)
		return nil
	}
	return idx
}

func openSession() (*session, error) {
	cfg, store, err := openStore()
	if err != nil {
		return nil, err
	}
	client, err := createClient(cfg)
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, store: store, client: client}

	opts := []coordinator.Option{
		coordinator.WithAgentTimeout(cfg.Timeouts.Agent),
		coordinator.WithOverallTimeout(cfg.Timeouts.Overall),
		coordinator.WithCallTimeout(cfg.Timeouts.Call),
		coordinator.WithStopGrace(cfg.Timeouts.StopGrace),
		coordinator.WithMaxQuestions(cfg.Agents.MaxQuestions),
		coordinator.WithDebugLog(cfg.Log.Debug),
	}
	if idx := openIndex(cfg); idx != nil {
		s.index = idx
		opts = append(opts, coordinator.WithIndex(idx))
	}

	catalog := phases.NewLLMCatalog(api.NewRunner(client), phases.DefaultScanner)
	s.svc = coordinator.New(store, catalog, opts...)
	return s, nil
}

// close stops live coordinators, failing their current phase so the
// project can be resumed, and releases the index.
func (s *session) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*s.cfg.Timeouts.StopGrace)
	defer cancel()
	if err := s.svc.Shutdown(ctx); err != nil {
		log.Printf("[cli] WARNING: shutdown: %v", err)
	}
	if s.index != nil {
		s.index.Close()
	}
}

// execute runs fn until it returns or the process is interrupted, in the
// TUI or headless, and prints the outcome.
func (s *session) execute(projectID string, order []string, fn runFunc) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		result *models.Result
		err    error
	)
	if useTUI {
		result, err = runWithTUI(ctx, s.svc, projectID, order, fn)
	} else {
		result, err = runHeadless(ctx, s.svc, os.Stdin, os.Stdout, fn)
	}
	return report(os.Stdout, result, err, s.client.Tracker())
}

// resolveProjectDir accepts a project directory or a project id.
func resolveProjectDir(store *state.Store, arg string) (string, error) {
	if info, err := os.Stat(arg); err == nil && info.IsDir() {
		return filepath.Abs(arg)
	}
	dir := store.ProjectDir(arg)
	if store.Exists(dir) {
		return dir, nil
	}
	return "", fmt.Errorf("%w: no project directory or id %q", coordinator.ErrNotFound, arg)
}

// report prints the outcome of a run and returns the error to exit with.
func report(w io.Writer, result *models.Result, err error, tracker *api.TokenTracker) error {
	if tracker != nil && tracker.Calls() > 0 {
		in, out := tracker.Total()
		fmt.Fprintf(w, "Model usage: %d calls, %d in / %d out tokens (~$%.2f)\n", tracker.Calls(), in, out, tracker.Cost())
	}

	var pfe *coordinator.PhaseFailedError
	switch {
	case errors.As(err, &pfe):
		fmt.Fprintf(w, "%s phase %s failed: %s\n", color.RedString("✗"), pfe.Phase, pfe.Reason)
		fmt.Fprintf(w, "  Project: %s\n", pfe.ProjectDir)
		fmt.Fprintf(w, "  Continue with: scopecraft resume %s\n", pfe.ProjectDir)
		return err
	case errors.Is(err, coordinator.ErrTimeout):
		var pe *coordinator.ProjectError
		if errors.As(err, &pe) {
			fmt.Fprintf(w, "%s project %s did not finish in time and was stopped\n", color.YellowString("⚠"), pe.ProjectID)
			fmt.Fprintf(w, "  Continue with: scopecraft resume %s\n", pe.ProjectID)
		}
		return err
	case err != nil:
		return err
	}

	if result.OutputPath == "" {
		fmt.Fprintf(w, "%s project %s reset in %s\n", color.GreenString("✓"), result.ProjectID, result.ProjectDir)
		return nil
	}
	fmt.Fprintf(w, "%s plan complete: %s\n", color.GreenString("✓"), result.OutputPath)
	fmt.Fprintf(w, "  Tickets: %d (%d points)\n", result.TicketsCount, result.TotalPoints)
	if len(result.RecommendedStack) > 0 {
		fmt.Fprintf(w, "  Stack: %v\n", result.RecommendedStack)
	}
	return nil
}
