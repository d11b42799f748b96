package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/ShayCichocki/scopecraft/pkg/models"
)

// SchemaVersion is the version written by Save.
//
//	1: {id, state, task, greenfield, created_at, phases}; no context.
//	2: adds schema_version, phase_order, context, summary, question, answers.
const SchemaVersion = 2

// ErrUnsupportedVersion is returned for state files written by a newer release.
var ErrUnsupportedVersion = errors.New("state: unsupported schema version")

// document is the on-disk JSON shape of a project.
type document struct {
	SchemaVersion int `json:"schema_version,omitempty"`
	models.Project
}

func encodeDocument(p *models.Project) ([]byte, error) {
	doc := document{SchemaVersion: SchemaVersion, Project: *p}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return append(data, '\n'), nil
}

// decodeDocument parses a state file and returns the project together with
// the schema version it was written with.
func decodeDocument(data []byte) (*models.Project, int, error) {
	var probe struct {
		SchemaVersion *int `json:"schema_version"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, 0, fmt.Errorf("decode state: %w", err)
	}

	version := 1
	if probe.SchemaVersion != nil {
		version = *probe.SchemaVersion
	}
	if version < 1 || version > SchemaVersion {
		return nil, version, fmt.Errorf("%w: %d (supported: 1-%d)", ErrUnsupportedVersion, version, SchemaVersion)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, version, fmt.Errorf("decode state: %w", err)
	}
	p := &doc.Project
	upgrade(p, version)
	return p, version, nil
}

// upgrade fills fields that older versions did not write.
func upgrade(p *models.Project, version int) {
	if p.Phases == nil {
		p.Phases = make(map[string]*models.PhaseRecord)
	}
	if len(p.PhaseOrder) == 0 {
		p.PhaseOrder = inferPhaseOrder(p.Phases)
	}
	for _, name := range p.PhaseOrder {
		if p.Phases[name] == nil {
			p.Phases[name] = models.NewPhaseRecord()
		}
	}
	if p.Context == nil {
		p.Context = make(map[string]models.Findings)
	}
	if p.Answers == nil {
		p.Answers = make(map[string][]string)
	}
	if version < 2 && p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
}

// inferPhaseOrder orders known phases by the default pipeline and appends
// any unknown phase names alphabetically.
func inferPhaseOrder(phases map[string]*models.PhaseRecord) []string {
	defaults := models.DefaultPhases()
	if len(phases) == 0 {
		return defaults
	}

	known := make(map[string]bool, len(defaults))
	var order []string
	for _, name := range defaults {
		known[name] = true
		if _, ok := phases[name]; ok {
			order = append(order, name)
		}
	}
	var extra []string
	for name := range phases {
		if !known[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return append(order, extra...)
}
