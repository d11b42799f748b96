package models

import (
	"testing"
	"time"
)

func TestProject_FirstIncomplete(t *testing.T) {
	now := time.Now()
	p := NewProject("p1", "task", DefaultPhases(), now)
	if p.FirstIncomplete() != 0 {
		t.Fatalf("FirstIncomplete() = %d, want 0", p.FirstIncomplete())
	}

	p.Phases[PhaseDomainResearch].Complete(now, "a.md")
	p.Phases[PhaseTechStack].Fail(now, "boom")
	if got := p.FirstIncomplete(); got != 1 {
		t.Errorf("FirstIncomplete() = %d, want 1", got)
	}
	if p.AllCompleted() {
		t.Error("AllCompleted() = true with pending phases")
	}

	for _, name := range p.PhaseOrder {
		p.Phases[name].Complete(now, "")
	}
	if !p.AllCompleted() {
		t.Error("AllCompleted() = false after completing every phase")
	}
	if p.LastPhase() != PhaseTicketGeneration {
		t.Errorf("LastPhase() = %q", p.LastPhase())
	}
}

func TestProject_Validate(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name   string
		mutate func(p *Project)
	}{
		{"missing id", func(p *Project) { p.ID = "" }},
		{"bad state", func(p *Project) { p.State = "sleeping" }},
		{"no phases", func(p *Project) { p.PhaseOrder = nil }},
		{"missing record", func(p *Project) { delete(p.Phases, PhaseArchitecture) }},
		{"bad status", func(p *Project) { p.Phases[PhaseArchitecture].Status = "done" }},
	}

	if err := NewProject("p1", "task", DefaultPhases(), now).Validate(); err != nil {
		t.Fatalf("Validate() on new project: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProject("p1", "task", DefaultPhases(), now)
			tt.mutate(p)
			if err := p.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestProject_CloneIsDeep(t *testing.T) {
	now := time.Now()
	p := NewProject("p1", "task", DefaultPhases(), now)
	p.Context[PhaseDomainResearch] = Findings{"terms": []any{"a"}, "nested": map[string]any{"k": "v"}}
	p.Answers[PhaseTechStack] = []string{"go"}
	p.Phases[PhaseDomainResearch].Start(now)
	p.Question = &Question{Phase: PhaseTechStack, Text: "which db?"}

	c := p.Clone()
	c.Context[PhaseDomainResearch]["terms"].([]any)[0] = "changed"
	c.Context[PhaseDomainResearch]["nested"].(map[string]any)["k"] = "changed"
	c.Answers[PhaseTechStack][0] = "rust"
	*c.Phases[PhaseDomainResearch].StartedAt = now.Add(time.Hour)
	c.Question.Text = "changed"

	if p.Context[PhaseDomainResearch]["terms"].([]any)[0] != "a" {
		t.Error("clone shares context slices")
	}
	if p.Context[PhaseDomainResearch]["nested"].(map[string]any)["k"] != "v" {
		t.Error("clone shares nested maps")
	}
	if p.Answers[PhaseTechStack][0] != "go" {
		t.Error("clone shares answers")
	}
	if !p.Phases[PhaseDomainResearch].StartedAt.Equal(now) {
		t.Error("clone shares phase timestamps")
	}
	if p.Question.Text != "which db?" {
		t.Error("clone shares question")
	}
}

func TestPhaseRecord_Lifecycle(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	r := NewPhaseRecord()
	r.Start(start)
	if r.Status != PhaseStatusRunning {
		t.Fatalf("Status = %s, want running", r.Status)
	}
	r.Fail(start.Add(1500*time.Millisecond), "timeout")
	if r.Status != PhaseStatusFailed || r.Error != "timeout" || r.DurationMS != 1500 {
		t.Errorf("after Fail: %+v", r)
	}

	r.Start(start.Add(time.Minute))
	if r.Error != "" || r.CompletedAt != nil {
		t.Errorf("Start did not clear previous attempt: %+v", r)
	}

	r.Reset()
	if r.Status != PhaseStatusPending || r.StartedAt != nil || r.DurationMS != 0 {
		t.Errorf("after Reset: %+v", r)
	}
}

func TestParseReplanScope(t *testing.T) {
	tests := []struct {
		in      string
		want    ReplanScope
		reset   int
		wantErr bool
	}{
		{"", ReplanFull, 2, false},
		{"full", ReplanFull, 2, false},
		{"minimal", ReplanMinimal, 1, false},
		{"partial", "", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseReplanScope(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseReplanScope(%q) = nil error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseReplanScope(%q): %v", tt.in, err)
		}
		if got != tt.want || got.ResetCount() != tt.reset {
			t.Errorf("ParseReplanScope(%q) = %s (reset %d), want %s (reset %d)", tt.in, got, got.ResetCount(), tt.want, tt.reset)
		}
	}
}

func TestSummarizeFindings(t *testing.T) {
	f := Findings{
		"tickets": []any{
			map[string]any{"id": "T1", "points": float64(3)},
			map[string]any{"id": "T2", "points": 5},
			"malformed",
		},
		"files_to_create":   []any{"a.go", "b.go"},
		"files_to_modify":   float64(4),
		"risks":             []any{map[string]any{"title": "r"}},
		"recommended_stack": map[string]any{"language": "Go", "database": "Postgres"},
		"setup_steps":       []any{"install", "", 7},
	}

	s := SummarizeFindings(f)
	if s.TicketsCount != 3 || s.TotalPoints != 8 {
		t.Errorf("tickets = %d, points = %d, want 3 and 8", s.TicketsCount, s.TotalPoints)
	}
	if s.FilesToCreate != 2 || s.FilesToModify != 4 || s.RisksIdentified != 1 {
		t.Errorf("counts = %+v", s)
	}
	if len(s.RecommendedStack) != 2 || s.RecommendedStack[0] != "Go" || s.RecommendedStack[1] != "Postgres" {
		t.Errorf("RecommendedStack = %v", s.RecommendedStack)
	}
	if len(s.SetupSteps) != 1 || s.SetupSteps[0] != "install" {
		t.Errorf("SetupSteps = %v", s.SetupSteps)
	}

	if got := SummarizeFindings(nil); got.TicketsCount != 0 || got.RecommendedStack != nil {
		t.Errorf("SummarizeFindings(nil) = %+v", got)
	}
	if got := SummarizeFindings(Findings{"total_points": float64(13)}); got.TotalPoints != 13 {
		t.Errorf("total_points fallback = %d, want 13", got.TotalPoints)
	}
}
