package state

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ShayCichocki/scopecraft/internal/artifact"
	"github.com/ShayCichocki/scopecraft/pkg/models"
)

func newTestProject(id string) *models.Project {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	p := models.NewProject(id, "Add OAuth login", models.DefaultPhases(), now)
	p.RootDir = "/repo"
	p.Name = "repo"
	return p
}

func TestSaveLoad(t *testing.T) {
	store := NewStore(t.TempDir())
	p := newTestProject("repo-12345678")
	dir := store.ProjectDir(p.ID)

	start := p.CreatedAt.Add(time.Second)
	p.Phases[models.PhaseDomainResearch].Start(start)
	p.Phases[models.PhaseDomainResearch].Complete(start.Add(1500*time.Millisecond), "artifacts/01_domain_research.md")
	p.Context[models.PhaseDomainResearch] = models.Findings{"domain": "auth"}
	p.State = models.ProjectFailed

	if err := store.Save(dir, p); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.ID != p.ID || got.Task != p.Task || got.RootDir != p.RootDir {
		t.Errorf("Load() = %+v", got)
	}
	rec := got.Phases[models.PhaseDomainResearch]
	if rec.Status != models.PhaseStatusCompleted {
		t.Errorf("status = %q, want completed", rec.Status)
	}
	if rec.DurationMS != 1500 {
		t.Errorf("DurationMS = %d, want 1500", rec.DurationMS)
	}
	if got.Context[models.PhaseDomainResearch]["domain"] != "auth" {
		t.Errorf("Context = %v", got.Context)
	}
	if len(got.PhaseOrder) != 7 {
		t.Errorf("PhaseOrder = %v", got.PhaseOrder)
	}

	data, _ := os.ReadFile(filepath.Join(dir, StateFile))
	if !strings.Contains(string(data), `"schema_version": 2`) {
		t.Errorf("state file missing schema_version:\n%s", data)
	}
}

func TestSave_NoTempFilesLeft(t *testing.T) {
	store := NewStore(t.TempDir())
	p := newTestProject("p1")
	dir := store.ProjectDir(p.ID)

	for i := 0; i < 3; i++ {
		if err := store.Save(dir, p); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestSave_RejectsInvalidProject(t *testing.T) {
	store := NewStore(t.TempDir())
	p := newTestProject("p1")
	p.State = "bogus"

	if err := store.Save(store.ProjectDir("p1"), p); err == nil {
		t.Error("Save() accepted an invalid state")
	}
}

func TestLoad_NoState(t *testing.T) {
	store := NewStore(t.TempDir())
	_, err := store.Load(t.TempDir())
	if !errors.Is(err, ErrNoState) {
		t.Errorf("Load() error = %v, want ErrNoState", err)
	}
}

func TestLoad_CurrentWinsOverLegacy(t *testing.T) {
	store := NewStore(t.TempDir())
	dir := store.ProjectDir("p1")

	p := newTestProject("p1")
	p.Task = "current"
	if err := store.Save(dir, p); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	legacy := `{"id":"p1","state":"failed","task":"legacy","greenfield":false,"created_at":"2026-01-01T00:00:00Z","phases":{}}`
	if err := os.WriteFile(filepath.Join(dir, LegacyStateFile), []byte(legacy), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := store.Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Task != "current" {
		t.Errorf("Task = %q, want current", got.Task)
	}
}

func TestLoad_LegacyOnly(t *testing.T) {
	store := NewStore(t.TempDir())
	dir := store.ProjectDir("legacy-1")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	legacy := `{
		"id": "legacy-1",
		"state": "failed",
		"task": "Add OAuth login",
		"greenfield": false,
		"created_at": "2026-01-01T00:00:00Z",
		"phases": {
			"domain_research": {"status": "completed", "started_at": "2026-01-01T00:00:00Z", "completed_at": "2026-01-01T00:00:01Z", "duration_ms": 1000},
			"tech_stack": {"status": "failed", "duration_ms": 0}
		}
	}`
	if err := os.WriteFile(filepath.Join(dir, LegacyStateFile), []byte(legacy), 0644); err != nil {
		t.Fatal(err)
	}

	meta := artifact.Metadata{
		ProjectID: "legacy-1",
		Phase:     models.PhaseDomainResearch,
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC),
		Findings:  models.Findings{"domain": "identity"},
	}
	doc, err := artifact.WriteFrontMatter(meta, []byte("# Domain\n"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.WriteArtifact(dir, models.DefaultPhases()[:2], models.PhaseDomainResearch, string(doc)); err != nil {
		t.Fatal(err)
	}

	got, err := store.Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	wantOrder := []string{models.PhaseDomainResearch, models.PhaseTechStack}
	if len(got.PhaseOrder) != 2 || got.PhaseOrder[0] != wantOrder[0] || got.PhaseOrder[1] != wantOrder[1] {
		t.Errorf("PhaseOrder = %v, want %v", got.PhaseOrder, wantOrder)
	}
	if got.Context[models.PhaseDomainResearch]["domain"] != "identity" {
		t.Errorf("context not recovered from artifact: %v", got.Context)
	}
	if got.FirstIncomplete() != 1 {
		t.Errorf("FirstIncomplete() = %d, want 1", got.FirstIncomplete())
	}
}

func TestLoad_LegacyUnrecoverableContextResetsPhase(t *testing.T) {
	store := NewStore(t.TempDir())
	dir := store.ProjectDir("legacy-2")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	legacy := `{
		"id": "legacy-2", "state": "failed", "task": "t", "greenfield": true,
		"created_at": "2026-01-01T00:00:00Z",
		"phases": {
			"domain_research": {"status": "completed"},
			"tech_stack": {"status": "completed"},
			"codebase_scan": {"status": "pending"}
		}
	}`
	if err := os.WriteFile(filepath.Join(dir, LegacyStateFile), []byte(legacy), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := store.Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	for _, name := range []string{models.PhaseDomainResearch, models.PhaseTechStack} {
		if s := got.Phases[name].Status; s != models.PhaseStatusPending {
			t.Errorf("phase %s status = %q, want pending", name, s)
		}
	}
}

func TestLoad_RejectsNewerVersion(t *testing.T) {
	store := NewStore(t.TempDir())
	dir := store.ProjectDir("p1")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	doc := `{"schema_version": 99, "id": "p1", "state": "created", "task": "t", "phase_order": ["a"], "phases": {"a": {"status": "pending"}}}`
	if err := os.WriteFile(filepath.Join(dir, StateFile), []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := store.Load(dir)
	if !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("Load() error = %v, want ErrUnsupportedVersion", err)
	}
}

func TestLoad_NormalizesInterruptedRun(t *testing.T) {
	store := NewStore(t.TempDir())
	p := newTestProject("p1")
	dir := store.ProjectDir(p.ID)
	now := p.CreatedAt

	p.Phases[models.PhaseDomainResearch].Start(now)
	p.Phases[models.PhaseDomainResearch].Complete(now, "")
	p.Context[models.PhaseDomainResearch] = models.Findings{}
	p.Phases[models.PhaseTechStack].Start(now)
	p.State = models.ProjectRunning
	if err := store.Save(dir, p); err != nil {
		t.Fatal(err)
	}

	got, err := store.Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s := got.Phases[models.PhaseTechStack].Status; s != models.PhaseStatusPending {
		t.Errorf("interrupted phase status = %q, want pending", s)
	}
	if got.State != models.ProjectFailed {
		t.Errorf("State = %q, want failed", got.State)
	}

	// Read shows the file as written.
	raw, err := store.Read(dir)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if raw.State != models.ProjectRunning {
		t.Errorf("Read() State = %q, want running", raw.State)
	}
}

func TestArtifactName(t *testing.T) {
	order := models.DefaultPhases()
	tests := []struct {
		phase string
		want  string
	}{
		{models.PhaseDomainResearch, filepath.Join("artifacts", "01_domain_research.md")},
		{models.PhaseTicketGeneration, filepath.Join("artifacts", "07_ticket_generation.md")},
		{"unknown", filepath.Join("artifacts", "08_unknown.md")},
	}
	for _, tt := range tests {
		if got := ArtifactName(order, tt.phase); got != tt.want {
			t.Errorf("ArtifactName(%q) = %q, want %q", tt.phase, got, tt.want)
		}
	}
}

func TestList(t *testing.T) {
	store := NewStore(t.TempDir())
	for _, id := range []string{"b", "a"} {
		if err := store.Save(store.ProjectDir(id), newTestProject(id)); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.MkdirAll(filepath.Join(store.Root(), "empty"), 0755); err != nil {
		t.Fatal(err)
	}

	dirs, err := store.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(dirs) != 2 || filepath.Base(dirs[0]) != "a" {
		t.Errorf("List() = %v", dirs)
	}
}
