package phases

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/ShayCichocki/scopecraft/internal/agent"
	"github.com/ShayCichocki/scopecraft/internal/structure"
	"github.com/ShayCichocki/scopecraft/pkg/models"
)

const systemPrompt = `You are a senior engineer producing one step of a software delivery plan.
Respond with a single JSON object and nothing else.
If information that only the requester can provide is missing and no earlier answer covers it,
respond with {"question": "<one concise question>"} instead.`

// maxScanRules bounds how many directory rules go into a prompt.
const maxScanRules = 40

func buildPrompt(def Definition, in agent.Input, scan *structure.Scan) (string, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "PHASE: %s\n\n", def.Title)
	fmt.Fprintf(&b, "TASK:\n%s\n\n", in.Task)
	if in.Name != "" {
		fmt.Fprintf(&b, "PROJECT: %s\n", in.Name)
	}
	if in.Greenfield {
		b.WriteString("MODE: greenfield (no existing codebase)\n\n")
		fmt.Fprintf(&b, "GOAL:\n%s\n\n", def.GreenfieldGoal)
	} else {
		fmt.Fprintf(&b, "MODE: existing codebase at %s\n\n", in.RootDir)
		fmt.Fprintf(&b, "GOAL:\n%s\n\n", def.Goal)
	}

	if len(in.Context) > 0 {
		prior, err := json.MarshalIndent(orderedContext(in.Context), "", "  ")
		if err != nil {
			return "", fmt.Errorf("encode prior findings: %w", err)
		}
		fmt.Fprintf(&b, "FINDINGS OF EARLIER PHASES:\n%s\n\n", prior)
	}

	if scan != nil {
		b.WriteString("CODEBASE SCAN:\n")
		writeScan(&b, scan)
		b.WriteString("\n")
	}

	if len(in.Answers) > 0 {
		b.WriteString("ANSWERS FROM THE REQUESTER:\n")
		for i, a := range in.Answers {
			fmt.Fprintf(&b, "%d. %s\n", i+1, a)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Return a JSON object with the keys: %s.\n", strings.Join(def.Keys, ", "))
	return b.String(), nil
}

// orderedContext keeps pipeline order for known phases; JSON object keys
// are sorted anyway, so the phase index is part of the key.
func orderedContext(ctx map[string]models.Findings) map[string]models.Findings {
	out := make(map[string]models.Findings, len(ctx))
	known := make(map[string]bool)
	for i, name := range models.DefaultPhases() {
		known[name] = true
		if f, ok := ctx[name]; ok {
			out[fmt.Sprintf("%d_%s", i+1, name)] = f
		}
	}
	var extra []string
	for name := range ctx {
		if !known[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		out[name] = ctx[name]
	}
	return out
}

func writeScan(b *strings.Builder, scan *structure.Scan) {
	fmt.Fprintf(b, "- code files: %d", scan.FileCount)
	if scan.Truncated {
		b.WriteString(" (truncated)")
	}
	b.WriteString("\n")

	langs := make([]string, 0, len(scan.Languages))
	for lang := range scan.Languages {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	for _, lang := range langs {
		fmt.Fprintf(b, "- %s: %d files\n", lang, scan.Languages[lang])
	}
	for _, m := range scan.Manifests {
		fmt.Fprintf(b, "- manifest %s (%s)\n", m.Path, m.Ecosystem)
	}
	for i, r := range scan.Rules {
		if i == maxScanRules {
			fmt.Fprintf(b, "- ... %d more directories\n", len(scan.Rules)-maxScanRules)
			break
		}
		fmt.Fprintf(b, "- %s: %s (e.g. %s)\n", r.Pattern, r.Description, strings.Join(r.Examples, ", "))
	}
}
