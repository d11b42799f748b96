package state

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ShayCichocki/scopecraft/pkg/models"
)

func setupTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := OpenIndex(filepath.Join(t.TempDir(), "nested", IndexFile))
	if err != nil {
		t.Fatalf("OpenIndex() error = %v", err)
	}
	t.Cleanup(func() {
		idx.Close()
	})
	return idx
}

func TestIndex_MigrateIdempotent(t *testing.T) {
	idx := setupTestIndex(t)
	if err := idx.Migrate(); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}

	var version int
	if err := idx.conn.QueryRow("SELECT MAX(version) FROM schema_version").Scan(&version); err != nil {
		t.Fatal(err)
	}
	if version != 2 {
		t.Errorf("schema version = %d, want 2", version)
	}
}

func TestIndex_UpsertAndGet(t *testing.T) {
	idx := setupTestIndex(t)
	p := newTestProject("p1")
	p.Phases[models.PhaseDomainResearch].Complete(p.CreatedAt, "")

	if err := idx.Upsert("/projects/p1", p); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	p.State = models.ProjectCompleted
	p.Summary = &models.Summary{TicketsCount: 4}
	p.UpdatedAt = p.UpdatedAt.Add(time.Minute)
	if err := idx.Upsert("/projects/p1", p); err != nil {
		t.Fatalf("second Upsert() error = %v", err)
	}

	got, err := idx.Get("p1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got == nil {
		t.Fatal("Get() = nil")
	}
	if got.State != models.ProjectCompleted {
		t.Errorf("State = %q, want completed", got.State)
	}
	if got.TicketsCount != 4 {
		t.Errorf("TicketsCount = %d, want 4", got.TicketsCount)
	}
	if got.PhasesCompleted != 1 || got.PhasesTotal != 7 {
		t.Errorf("progress = %d/%d, want 1/7", got.PhasesCompleted, got.PhasesTotal)
	}
	if got.CurrentPhase != models.PhaseTechStack {
		t.Errorf("CurrentPhase = %q", got.CurrentPhase)
	}
	if !got.UpdatedAt.Equal(p.UpdatedAt) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, p.UpdatedAt)
	}

	missing, err := idx.Get("nope")
	if err != nil || missing != nil {
		t.Errorf("Get(missing) = %v, %v", missing, err)
	}
}

func TestIndex_ListFilterAndOrder(t *testing.T) {
	idx := setupTestIndex(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"old", "new", "done"} {
		p := newTestProject(id)
		p.UpdatedAt = base.Add(time.Duration(i) * time.Hour)
		if id == "done" {
			p.State = models.ProjectCompleted
		}
		if err := idx.Upsert("/projects/"+id, p); err != nil {
			t.Fatal(err)
		}
	}

	all, err := idx.List(nil)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 3 || all[0].ID != "done" || all[2].ID != "old" {
		t.Errorf("List(nil) order = %v", ids(all))
	}

	completed := models.ProjectCompleted
	done, err := idx.List(&completed)
	if err != nil {
		t.Fatal(err)
	}
	if len(done) != 1 || done[0].ID != "done" {
		t.Errorf("List(completed) = %v", ids(done))
	}

	if err := idx.Delete("done"); err != nil {
		t.Fatal(err)
	}
	all, _ = idx.List(nil)
	if len(all) != 2 {
		t.Errorf("after Delete, List() = %v", ids(all))
	}
}

func TestIndex_Rebuild(t *testing.T) {
	idx := setupTestIndex(t)
	store := NewStore(t.TempDir())
	for _, id := range []string{"a", "b"} {
		if err := store.Save(store.ProjectDir(id), newTestProject(id)); err != nil {
			t.Fatal(err)
		}
	}
	if err := idx.Upsert("/gone", newTestProject("stale")); err != nil {
		t.Fatal(err)
	}

	indexed, skipped, err := idx.Rebuild(store)
	if err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	if indexed != 2 || skipped != 0 {
		t.Errorf("Rebuild() = %d, %d; want 2, 0", indexed, skipped)
	}
	if e, _ := idx.Get("stale"); e != nil {
		t.Error("stale entry survived Rebuild")
	}
}

func ids(entries []IndexEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}
