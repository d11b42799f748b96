package models

import "sort"

// Summary holds counts derived from the final phase's findings.
type Summary struct {
	TicketsCount     int      `json:"tickets_count"`
	TotalPoints      int      `json:"total_points"`
	FilesToCreate    int      `json:"files_to_create,omitempty"`
	FilesToModify    int      `json:"files_to_modify,omitempty"`
	RisksIdentified  int      `json:"risks_identified,omitempty"`
	RecommendedStack []string `json:"recommended_stack,omitempty"`
	SetupSteps       []string `json:"setup_steps,omitempty"`
}

// Clone returns a deep copy of the summary.
func (s Summary) Clone() Summary {
	c := s
	c.RecommendedStack = append([]string(nil), s.RecommendedStack...)
	c.SetupSteps = append([]string(nil), s.SetupSteps...)
	return c
}

// Result is returned to callers of a successful run.
type Result struct {
	// ProjectID identifies the project.
	ProjectID string `json:"project_id"`
	// ProjectDir is the directory holding state and artifacts.
	ProjectDir string `json:"project_dir"`
	// OutputPath is the path of the final summary artifact.
	OutputPath string `json:"output_path"`
	Summary
}

// SummarizeFindings derives a Summary from the final phase's findings.
// Every field is optional; missing or malformed keys leave the zero value.
func SummarizeFindings(f Findings) Summary {
	var s Summary

	tickets := asSlice(f["tickets"])
	s.TicketsCount = len(tickets)
	for _, t := range tickets {
		ticket, ok := t.(map[string]any)
		if !ok {
			continue
		}
		s.TotalPoints += asInt(ticket["points"])
	}
	if n, ok := f["total_points"]; ok && s.TotalPoints == 0 {
		s.TotalPoints = asInt(n)
	}

	s.FilesToCreate = countOf(f["files_to_create"])
	s.FilesToModify = countOf(f["files_to_modify"])
	s.RisksIdentified = countOf(f["risks"])
	if s.RisksIdentified == 0 {
		s.RisksIdentified = countOf(f["risks_identified"])
	}
	s.RecommendedStack = asStrings(f["recommended_stack"])
	s.SetupSteps = asStrings(f["setup_steps"])
	return s
}

func asSlice(v any) []any {
	switch val := v.(type) {
	case []any:
		return val
	case []map[string]any:
		out := make([]any, len(val))
		for i, m := range val {
			out[i] = m
		}
		return out
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out
	default:
		return nil
	}
}

// countOf accepts either a list (counted) or a number.
func countOf(v any) int {
	if s := asSlice(v); s != nil {
		return len(s)
	}
	return asInt(v)
}

func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case float32:
		return int(n)
	default:
		return 0
	}
}

func asStrings(v any) []string {
	switch val := v.(type) {
	case string:
		if val == "" {
			return nil
		}
		return []string{val}
	case []string:
		return append([]string(nil), val...)
	case []any:
		var out []string
		for _, item := range val {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case map[string]any:
		// {"language": "Go", "database": "Postgres"} style stacks.
		var out []string
		for _, item := range val {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		sort.Strings(out)
		return out
	default:
		return nil
	}
}
