package state

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ShayCichocki/scopecraft/pkg/models"
)

// IndexFile is the name of the project index database inside the projects dir.
const IndexFile = "index.db"

// Index is a SQLite catalog of projects. It is derived data: state files
// remain the source of truth and the index can be rebuilt from them.
type Index struct {
	conn *sql.DB
	path string
	mu   sync.RWMutex
}

// IndexEntry is one row of the project index.
type IndexEntry struct {
	ID              string
	Name            string
	Task            string
	Dir             string
	Greenfield      bool
	State           models.ProjectState
	PhasesCompleted int
	PhasesTotal     int
	CurrentPhase    string
	TicketsCount    int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IndexPath returns the index location for a projects directory.
func IndexPath(projectsDir string) string {
	return filepath.Join(projectsDir, IndexFile)
}

// OpenIndex opens the index at path, creating parent directories, and
// applies pending migrations.
func OpenIndex(path string) (*Index, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create index directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}

	// WAL lets `scopecraft list` read while a run writes.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	idx := &Index{conn: conn, path: path}
	if err := idx.Migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return idx, nil
}

// Close closes the database connection.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.conn.Close()
}

// Path returns the path to the database file.
func (idx *Index) Path() string {
	return idx.path
}

// Migrate applies all pending schema migrations.
func (idx *Index) Migrate() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	_, err := idx.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var currentVersion int
	row := idx.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1Projects},
		{2, migrationV2Progress},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := idx.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration v%d: %w", m.version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.version, err)
		}
	}
	return nil
}

const migrationV1Projects = `
CREATE TABLE IF NOT EXISTS projects (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	task TEXT NOT NULL,
	dir TEXT NOT NULL,
	greenfield INTEGER NOT NULL DEFAULT 0,
	state TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_projects_state ON projects(state);
`

const migrationV2Progress = `
ALTER TABLE projects ADD COLUMN phases_completed INTEGER NOT NULL DEFAULT 0;
ALTER TABLE projects ADD COLUMN phases_total INTEGER NOT NULL DEFAULT 0;
ALTER TABLE projects ADD COLUMN current_phase TEXT NOT NULL DEFAULT '';
ALTER TABLE projects ADD COLUMN tickets_count INTEGER NOT NULL DEFAULT 0;
`

// Upsert records the project's current state.
func (idx *Index) Upsert(dir string, p *models.Project) error {
	entry := EntryFor(dir, p)

	idx.mu.Lock()
	defer idx.mu.Unlock()

	_, err := idx.conn.Exec(`
		INSERT INTO projects (id, name, task, dir, greenfield, state, created_at, updated_at,
			phases_completed, phases_total, current_phase, tickets_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			task = excluded.task,
			dir = excluded.dir,
			greenfield = excluded.greenfield,
			state = excluded.state,
			updated_at = excluded.updated_at,
			phases_completed = excluded.phases_completed,
			phases_total = excluded.phases_total,
			current_phase = excluded.current_phase,
			tickets_count = excluded.tickets_count
	`, entry.ID, entry.Name, entry.Task, entry.Dir, entry.Greenfield, string(entry.State),
		formatTime(entry.CreatedAt), formatTime(entry.UpdatedAt),
		entry.PhasesCompleted, entry.PhasesTotal, entry.CurrentPhase, entry.TicketsCount)
	if err != nil {
		return fmt.Errorf("upsert project %s: %w", p.ID, err)
	}
	return nil
}

// EntryFor summarizes a project as an index row.
func EntryFor(dir string, p *models.Project) IndexEntry {
	e := IndexEntry{
		ID:          p.ID,
		Name:        p.Name,
		Task:        p.Task,
		Dir:         dir,
		Greenfield:  p.Greenfield,
		State:       p.State,
		PhasesTotal: len(p.PhaseOrder),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	for _, name := range p.PhaseOrder {
		if rec := p.Phases[name]; rec != nil && rec.Status == models.PhaseStatusCompleted {
			e.PhasesCompleted++
		}
	}
	if i := p.FirstIncomplete(); i < len(p.PhaseOrder) {
		e.CurrentPhase = p.PhaseOrder[i]
	}
	if p.Summary != nil {
		e.TicketsCount = p.Summary.TicketsCount
	}
	return e
}

// Get returns the entry for id, or nil if it is not indexed.
func (idx *Index) Get(id string) (*IndexEntry, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	row := idx.conn.QueryRow(`
		SELECT id, name, task, dir, greenfield, state, created_at, updated_at,
			phases_completed, phases_total, current_phase, tickets_count
		FROM projects WHERE id = ?
	`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get project %s: %w", id, err)
	}
	return e, nil
}

// List returns indexed projects, most recently updated first. A nil state
// returns every project.
func (idx *Index) List(state *models.ProjectState) ([]IndexEntry, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	query := `
		SELECT id, name, task, dir, greenfield, state, created_at, updated_at,
			phases_completed, phases_total, current_phase, tickets_count
		FROM projects`
	var args []any
	if state != nil {
		query += " WHERE state = ?"
		args = append(args, string(*state))
	}
	query += " ORDER BY updated_at DESC, id ASC"

	rows, err := idx.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var entries []IndexEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// Delete removes the entry for id.
func (idx *Index) Delete(id string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, err := idx.conn.Exec("DELETE FROM projects WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete project %s: %w", id, err)
	}
	return nil
}

// Rebuild replaces the index contents with the projects found by store.
// Unreadable project directories are skipped and counted.
func (idx *Index) Rebuild(store *Store) (indexed, skipped int, err error) {
	dirs, err := store.List()
	if err != nil {
		return 0, 0, err
	}

	idx.mu.Lock()
	_, err = idx.conn.Exec("DELETE FROM projects")
	idx.mu.Unlock()
	if err != nil {
		return 0, 0, fmt.Errorf("clear index: %w", err)
	}

	for _, dir := range dirs {
		p, err := store.Read(dir)
		if err != nil {
			skipped++
			continue
		}
		if err := idx.Upsert(dir, p); err != nil {
			return indexed, skipped, err
		}
		indexed++
	}
	return indexed, skipped, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*IndexEntry, error) {
	var (
		e                    IndexEntry
		state                string
		greenfield           int
		createdAt, updatedAt string
	)
	err := row.Scan(&e.ID, &e.Name, &e.Task, &e.Dir, &greenfield, &state, &createdAt, &updatedAt,
		&e.PhasesCompleted, &e.PhasesTotal, &e.CurrentPhase, &e.TicketsCount)
	if err != nil {
		return nil, err
	}
	e.Greenfield = greenfield != 0
	e.State = models.ProjectState(state)
	if e.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if e.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &e, nil
}

// Fixed width so timestamps sort lexically.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// formatTime formats a time.Time for SQLite storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

// parseTime parses a time string from SQLite.
func parseTime(s string) (time.Time, error) {
	return time.Parse(sqliteTimeLayout, s)
}
