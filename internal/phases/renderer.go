package phases

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ShayCichocki/scopecraft/internal/artifact"
	"github.com/ShayCichocki/scopecraft/pkg/models"
)

// MarkdownRenderer renders findings as Markdown with the findings embedded
// in YAML front matter.
type MarkdownRenderer struct {
	now func() time.Time
}

// NewMarkdownRenderer creates a renderer. A nil now uses time.Now.
func NewMarkdownRenderer(now func() time.Time) *MarkdownRenderer {
	if now == nil {
		now = time.Now
	}
	return &MarkdownRenderer{now: now}
}

// Render implements agent.Renderer.
func (r *MarkdownRenderer) Render(phase string, findings models.Findings) (string, error) {
	var b strings.Builder

	title := phase
	var keys []string
	if def, ok := DefinitionFor(phase); ok {
		title = def.Title
		keys = def.Keys
	}
	fmt.Fprintf(&b, "# %s\n\n", title)

	for _, key := range orderedKeys(findings, keys) {
		fmt.Fprintf(&b, "## %s\n\n", heading(key))
		writeValue(&b, findings[key], 0)
		b.WriteString("\n")
	}

	doc, err := artifact.WriteFrontMatter(artifact.Metadata{
		Phase:     phase,
		CreatedAt: r.now(),
		Findings:  findings,
	}, []byte(b.String()))
	if err != nil {
		return "", err
	}
	return string(doc), nil
}

// orderedKeys returns the preferred keys present in f, then the rest sorted.
func orderedKeys(f models.Findings, preferred []string) []string {
	seen := make(map[string]bool, len(f))
	var out []string
	for _, k := range preferred {
		if _, ok := f[k]; ok {
			out = append(out, k)
			seen[k] = true
		}
	}
	var rest []string
	for k := range f {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func heading(key string) string {
	words := strings.Split(strings.ReplaceAll(key, "-", "_"), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func writeValue(b *strings.Builder, v any, depth int) {
	indent := strings.Repeat("  ", depth)
	switch val := v.(type) {
	case nil:
		fmt.Fprintf(b, "%s_none_\n", indent)
	case string:
		if depth == 0 {
			fmt.Fprintf(b, "%s\n", val)
		} else {
			fmt.Fprintf(b, "%s- %s\n", indent, val)
		}
	case []any:
		if len(val) == 0 {
			fmt.Fprintf(b, "%s_none_\n", indent)
		}
		for _, item := range val {
			writeItem(b, item, depth)
		}
	case []string:
		for _, item := range val {
			fmt.Fprintf(b, "%s- %s\n", indent, item)
		}
	case map[string]any:
		writeMap(b, val, depth)
	case models.Findings:
		writeMap(b, val, depth)
	default:
		if depth == 0 {
			fmt.Fprintf(b, "%v\n", val)
		} else {
			fmt.Fprintf(b, "%s- %v\n", indent, val)
		}
	}
}

func writeItem(b *strings.Builder, item any, depth int) {
	indent := strings.Repeat("  ", depth)
	m, ok := item.(map[string]any)
	if !ok {
		fmt.Fprintf(b, "%s- %v\n", indent, item)
		return
	}
	label, _ := m["title"].(string)
	if label == "" {
		label, _ = m["name"].(string)
	}
	if label == "" {
		writeMap(b, m, depth)
		return
	}
	fmt.Fprintf(b, "%s- **%s**\n", indent, label)
	rest := make(map[string]any, len(m))
	for k, v := range m {
		if k != "title" && k != "name" {
			rest[k] = v
		}
	}
	writeMap(b, rest, depth+1)
}

func writeMap(b *strings.Builder, m map[string]any, depth int) {
	indent := strings.Repeat("  ", depth)
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch v := m[k].(type) {
		case []any, map[string]any:
			fmt.Fprintf(b, "%s- %s:\n", indent, heading(k))
			writeValue(b, v, depth+1)
		default:
			fmt.Fprintf(b, "%s- %s: %v\n", indent, heading(k), v)
		}
	}
}
