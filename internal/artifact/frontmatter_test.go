package artifact

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ShayCichocki/scopecraft/pkg/models"
)

func TestWriteThenParseFrontMatter(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	meta := Metadata{
		ProjectID: "shop-1234abcd",
		Phase:     models.PhaseTicketGeneration,
		CreatedAt: created,
		Findings: models.Findings{
			"tickets": []any{
				map[string]any{"title": "Add login", "points": 3},
			},
			"recommended_stack": []any{"Go", "Postgres"},
		},
	}

	doc, err := WriteFrontMatter(meta, []byte("# Tickets\n"))
	if err != nil {
		t.Fatalf("WriteFrontMatter() error = %v", err)
	}
	if !strings.HasPrefix(string(doc), "---\nscopecraft:\n") {
		t.Errorf("document does not start with front matter:\n%s", doc)
	}

	got, body, err := ParseFrontMatter(doc)
	if err != nil {
		t.Fatalf("ParseFrontMatter() error = %v", err)
	}
	if string(body) != "# Tickets\n" {
		t.Errorf("body = %q", body)
	}
	if got.Phase != meta.Phase || got.ProjectID != meta.ProjectID {
		t.Errorf("metadata = %+v", got)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, created)
	}

	summary := models.SummarizeFindings(got.Findings)
	if summary.TicketsCount != 1 || summary.TotalPoints != 3 {
		t.Errorf("recovered summary = %+v", summary)
	}
	if len(summary.RecommendedStack) != 2 {
		t.Errorf("RecommendedStack = %v", summary.RecommendedStack)
	}
}

func TestParseFrontMatter_Missing(t *testing.T) {
	_, _, err := ParseFrontMatter([]byte("# just markdown\n"))
	if !errors.Is(err, ErrMissingFrontMatter) {
		t.Errorf("error = %v, want ErrMissingFrontMatter", err)
	}
}

func TestParseFrontMatter_Unterminated(t *testing.T) {
	_, _, err := ParseFrontMatter([]byte("---\nscopecraft:\n  phase: x\n"))
	if !errors.Is(err, ErrMalformedFrontMatter) {
		t.Errorf("error = %v, want ErrMalformedFrontMatter", err)
	}
}

func TestParseFrontMatter_MissingPhase(t *testing.T) {
	doc := "---\nscopecraft:\n  created: 2026-01-01T00:00:00Z\n---\nbody"
	_, _, err := ParseFrontMatter([]byte(doc))
	if !errors.Is(err, ErrMalformedFrontMatter) {
		t.Errorf("error = %v, want ErrMalformedFrontMatter", err)
	}
}

func TestWriteFrontMatter_RequiresPhase(t *testing.T) {
	if _, err := WriteFrontMatter(Metadata{}, nil); err == nil {
		t.Error("WriteFrontMatter() with no phase returned nil error")
	}
}
