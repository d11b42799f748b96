package state

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ShayCichocki/scopecraft/internal/artifact"
	"github.com/ShayCichocki/scopecraft/pkg/models"
)

// Recover repairs a freshly loaded project left behind by a crash and
// returns a note for every change it made.
//
//   - A phase found running was interrupted; it goes back to pending.
//   - A project found running has no coordinator anymore; it becomes failed.
//   - Version-1 documents carry no context; findings of completed phases are
//     read back from their artifacts' front matter. A completed phase whose
//     findings cannot be recovered is reset together with every later phase.
func Recover(dir string, p *models.Project, version int) []string {
	var notes []string

	for _, name := range p.PhaseOrder {
		rec := p.Phases[name]
		if rec != nil && rec.Status == models.PhaseStatusRunning {
			rec.Reset()
			notes = append(notes, fmt.Sprintf("phase %s was interrupted; reset to pending", name))
		}
	}

	if version < 2 {
		notes = append(notes, recoverContext(dir, p)...)
	}

	if p.State == models.ProjectRunning {
		p.State = models.ProjectFailed
		notes = append(notes, "coordinator did not exit cleanly; marked failed")
	}
	if p.State == models.ProjectCompleted && !p.AllCompleted() {
		p.State = models.ProjectFailed
		notes = append(notes, "completed project has incomplete phases; marked failed")
	}
	return notes
}

func recoverContext(dir string, p *models.Project) []string {
	var notes []string
	broken := false

	for _, name := range p.PhaseOrder {
		rec := p.Phases[name]
		if rec.Status != models.PhaseStatusCompleted {
			continue
		}
		if broken {
			rec.Reset()
			delete(p.Context, name)
			notes = append(notes, fmt.Sprintf("phase %s follows an unrecoverable phase; reset to pending", name))
			continue
		}
		if _, ok := p.Context[name]; ok {
			continue
		}

		findings, err := readArtifactFindings(dir, p.PhaseOrder, name, rec.Artifact)
		if err != nil {
			rec.Reset()
			broken = true
			notes = append(notes, fmt.Sprintf("phase %s findings unrecoverable (%v); reset to pending", name, err))
			continue
		}
		p.Context[name] = findings
		if rec.Artifact == "" {
			rec.Artifact = ArtifactName(p.PhaseOrder, name)
		}
		notes = append(notes, fmt.Sprintf("phase %s context recovered from artifact", name))
	}

	if broken {
		p.Summary = nil
	}
	return notes
}

func readArtifactFindings(dir string, order []string, phase, rel string) (models.Findings, error) {
	if rel == "" {
		rel = ArtifactName(order, phase)
	}
	data, err := os.ReadFile(filepath.Join(dir, rel))
	if err != nil {
		return nil, err
	}
	meta, _, err := artifact.ParseFrontMatter(data)
	if err != nil {
		return nil, err
	}
	if meta.Phase != phase {
		return nil, fmt.Errorf("artifact belongs to phase %s", meta.Phase)
	}
	if meta.Findings == nil {
		return models.Findings{}, nil
	}
	return meta.Findings, nil
}
