package phases

import (
	"context"
	"strings"

	"github.com/ShayCichocki/scopecraft/internal/agent"
	"github.com/ShayCichocki/scopecraft/internal/api"
	"github.com/ShayCichocki/scopecraft/internal/graph"
	"github.com/ShayCichocki/scopecraft/internal/structure"
	"github.com/ShayCichocki/scopecraft/pkg/models"
)

// Scanner analyzes a codebase directory.
type Scanner func(ctx context.Context, root string) (*structure.Scan, error)

// DefaultScanner walks root with a structure.Analyzer.
func DefaultScanner(ctx context.Context, root string) (*structure.Scan, error) {
	return structure.NewAnalyzer(root).Analyze(ctx)
}

// LLMInvestigator computes a phase's findings with a model completion.
type LLMInvestigator struct {
	completer api.Completer
	def       Definition
	scan      Scanner
}

// NewLLMInvestigator creates an investigator for def. A nil scan uses
// DefaultScanner.
func NewLLMInvestigator(c api.Completer, def Definition, scan Scanner) *LLMInvestigator {
	if scan == nil {
		scan = DefaultScanner
	}
	return &LLMInvestigator{completer: c, def: def, scan: scan}
}

// Investigate implements agent.Investigator.
func (i *LLMInvestigator) Investigate(ctx context.Context, in agent.Input) (models.Findings, error) {
	var scan *structure.Scan
	if i.def.NeedsScan && !in.Greenfield && in.RootDir != "" {
		s, err := i.scan(ctx, in.RootDir)
		if err != nil {
			return nil, &agent.AgentError{Phase: in.Phase, Reason: "scan codebase: " + err.Error(), Err: err}
		}
		scan = s
	}

	prompt, err := buildPrompt(i.def, in, scan)
	if err != nil {
		return nil, &agent.AgentError{Phase: in.Phase, Reason: err.Error(), Err: err}
	}

	var findings models.Findings
	if err := api.CompleteJSON(ctx, i.completer, systemPrompt, prompt, &findings); err != nil {
		return nil, &agent.AgentError{Phase: in.Phase, Reason: "model: " + err.Error(), Err: err}
	}

	if q, ok := findings["question"].(string); ok && strings.TrimSpace(q) != "" {
		return nil, agent.Ask(strings.TrimSpace(q))
	}
	delete(findings, "question")

	if scan != nil && in.Phase == models.PhaseCodebaseScan {
		findings["scan"] = scanFindings(scan)
	}
	if in.Phase == models.PhaseTicketGeneration {
		if err := orderTickets(findings); err != nil {
			return nil, &agent.AgentError{Phase: in.Phase, Reason: "ticket dependencies: " + err.Error(), Err: err}
		}
	}
	return findings, nil
}

// orderTickets checks the dependencies between generated tickets and
// records a valid working order and the parallel waves.
func orderTickets(findings models.Findings) error {
	tickets := graph.TicketsFromFindings(findings["tickets"])
	if len(tickets) == 0 {
		return nil
	}
	g := graph.New()
	if err := g.Build(tickets); err != nil {
		return err
	}
	order, err := g.TopologicalSort()
	if err != nil {
		return err
	}
	waves, err := g.Waves()
	if err != nil {
		return err
	}

	orderOut := make([]any, len(order))
	for i, id := range order {
		orderOut[i] = id
	}
	wavesOut := make([]any, len(waves))
	for i, wave := range waves {
		ids := make([]any, len(wave))
		for j, id := range wave {
			ids[j] = id
		}
		wavesOut[i] = ids
	}
	findings["ticket_order"] = orderOut
	findings["ticket_waves"] = wavesOut
	return nil
}

// scanFindings converts a scan into JSON-compatible findings.
func scanFindings(s *structure.Scan) map[string]any {
	langs := make(map[string]any, len(s.Languages))
	for lang, n := range s.Languages {
		langs[lang] = n
	}
	manifests := make([]any, 0, len(s.Manifests))
	for _, m := range s.Manifests {
		manifests = append(manifests, map[string]any{"path": m.Path, "ecosystem": m.Ecosystem})
	}
	return map[string]any{
		"file_count":       s.FileCount,
		"primary_language": s.PrimaryLanguage(),
		"languages":        langs,
		"manifests":        manifests,
		"directories":      len(s.Rules),
	}
}
