// Package state persists projects as JSON documents on disk.
//
// Each project lives in its own directory:
//
//	<projects_dir>/<project_id>/
//	    state.json          current state document (session.json for legacy files)
//	    artifacts/NN_<phase>.md
//	    summary.md
//	    logs/coordinator.log
//
// A project's directory is owned by its single live coordinator, so the
// store does no locking of its own.
package state

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/ShayCichocki/scopecraft/pkg/models"
)

const (
	// StateFile is the current state document name.
	StateFile = "state.json"
	// LegacyStateFile is the state document name written by older releases.
	LegacyStateFile = "session.json"
	// ArtifactsDir holds one rendered artifact per completed phase.
	ArtifactsDir = "artifacts"
	// SummaryFile is the final summary artifact.
	SummaryFile = "summary.md"
	// LogsDir holds per-project log files.
	LogsDir = "logs"
)

// ErrNoState is returned when a directory has neither a current nor a legacy state file.
var ErrNoState = errors.New("state: no state file")

// Store reads and writes project directories under a projects root.
type Store struct {
	root string
}

// NewStore creates a Store rooted at projectsDir.
func NewStore(projectsDir string) *Store {
	return &Store{root: projectsDir}
}

// Root returns the projects directory.
func (s *Store) Root() string {
	return s.root
}

// ProjectDir returns the directory for a project ID.
func (s *Store) ProjectDir(id string) string {
	return filepath.Join(s.root, id)
}

// Save atomically writes the project's state document into dir.
func (s *Store) Save(dir string, p *models.Project) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("save %s: %w", dir, err)
	}
	data, err := encodeDocument(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create project directory: %w", err)
	}
	if err := atomicWriteFile(filepath.Join(dir, StateFile), data, 0644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}

// Load reads the state document in dir for resuming. The current file wins
// over the legacy one. Load also repairs the effects of a crash; see Recover.
func (s *Store) Load(dir string) (*models.Project, error) {
	p, version, err := s.read(dir)
	if err != nil {
		return nil, err
	}
	for _, note := range Recover(dir, p, version) {
		log.Printf("[state] %s: %s", p.ID, note)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", dir, err)
	}
	return p, nil
}

// Read returns the state document in dir as written, without crash
// repair. Use it to observe a project another process may be running.
func (s *Store) Read(dir string) (*models.Project, error) {
	p, _, err := s.read(dir)
	return p, err
}

func (s *Store) read(dir string) (*models.Project, int, error) {
	data, name, err := readStateFile(dir)
	if err != nil {
		return nil, 0, err
	}
	p, version, err := decodeDocument(data)
	if err != nil {
		return nil, version, fmt.Errorf("%s: %w", filepath.Join(dir, name), err)
	}
	return p, version, nil
}

func readStateFile(dir string) ([]byte, string, error) {
	for _, name := range []string{StateFile, LegacyStateFile} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err == nil {
			return data, name, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, name, fmt.Errorf("read %s: %w", name, err)
		}
	}
	return nil, "", fmt.Errorf("%w in %s", ErrNoState, dir)
}

// Exists reports whether dir contains a state document.
func (s *Store) Exists(dir string) bool {
	for _, name := range []string{StateFile, LegacyStateFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// List returns the project directories under the root that contain state.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list projects: %w", err)
	}
	var dirs []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(s.root, e.Name())
		if s.Exists(dir) {
			dirs = append(dirs, dir)
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

// ArtifactName returns the relative artifact path for a phase given the
// project's phase order, e.g. "artifacts/03_codebase_scan.md".
func ArtifactName(order []string, phase string) string {
	idx := len(order) + 1
	for i, name := range order {
		if name == phase {
			idx = i + 1
			break
		}
	}
	return filepath.Join(ArtifactsDir, fmt.Sprintf("%02d_%s.md", idx, phase))
}

// WriteArtifact writes a phase artifact and returns its path relative to dir.
func (s *Store) WriteArtifact(dir string, order []string, phase, content string) (string, error) {
	rel := ArtifactName(order, phase)
	path := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("create artifacts directory: %w", err)
	}
	if err := atomicWriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("write artifact %s: %w", rel, err)
	}
	return rel, nil
}

// WriteSummary writes the summary artifact and returns its absolute path.
func (s *Store) WriteSummary(dir, content string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create project directory: %w", err)
	}
	path := filepath.Join(dir, SummaryFile)
	if err := atomicWriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("write summary: %w", err)
	}
	return path, nil
}
