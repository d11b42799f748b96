package coordinator

import (
	"fmt"
	"strings"
	"time"

	"github.com/ShayCichocki/scopecraft/pkg/models"
)

// renderSummary builds the summary artifact for a completed project.
func renderSummary(p *models.Project, s models.Summary) string {
	var b strings.Builder

	title := p.Name
	if title == "" {
		title = p.ID
	}
	fmt.Fprintf(&b, "# Plan summary: %s\n\n", title)
	fmt.Fprintf(&b, "**Task:** %s\n\n", p.Task)
	if p.Greenfield {
		b.WriteString("**Mode:** greenfield\n\n")
	} else {
		fmt.Fprintf(&b, "**Codebase:** `%s`\n\n", p.RootDir)
	}

	b.WriteString("## Totals\n\n")
	fmt.Fprintf(&b, "- Tickets: %d\n", s.TicketsCount)
	fmt.Fprintf(&b, "- Story points: %d\n", s.TotalPoints)
	if s.FilesToCreate > 0 || s.FilesToModify > 0 {
		fmt.Fprintf(&b, "- Files to create: %d\n", s.FilesToCreate)
		fmt.Fprintf(&b, "- Files to modify: %d\n", s.FilesToModify)
	}
	if s.RisksIdentified > 0 {
		fmt.Fprintf(&b, "- Risks identified: %d\n", s.RisksIdentified)
	}
	b.WriteString("\n")

	if len(s.RecommendedStack) > 0 {
		b.WriteString("## Recommended stack\n\n")
		for _, item := range s.RecommendedStack {
			fmt.Fprintf(&b, "- %s\n", item)
		}
		b.WriteString("\n")
	}

	if len(s.SetupSteps) > 0 {
		b.WriteString("## Setup steps\n\n")
		for i, step := range s.SetupSteps {
			fmt.Fprintf(&b, "%d. %s\n", i+1, step)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Phases\n\n")
	b.WriteString("| # | Phase | Duration | Artifact |\n")
	b.WriteString("|---|-------|----------|----------|\n")
	for i, name := range p.PhaseOrder {
		rec := p.Phases[name]
		if rec == nil {
			continue
		}
		dur := (time.Duration(rec.DurationMS) * time.Millisecond).Round(time.Millisecond)
		artifact := rec.Artifact
		if artifact == "" {
			artifact = "-"
		}
		fmt.Fprintf(&b, "| %d | %s | %s | %s |\n", i+1, name, dur, artifact)
	}
	return b.String()
}
