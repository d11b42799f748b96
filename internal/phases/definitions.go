// Package phases supplies the investigators and renderers for each
// pipeline phase.
package phases

import "github.com/ShayCichocki/scopecraft/pkg/models"

// Definition describes what one phase asks the model for.
type Definition struct {
	Phase string
	Title string
	// Goal is the instruction for an existing codebase.
	Goal string
	// GreenfieldGoal replaces Goal when there is no codebase.
	GreenfieldGoal string
	// Keys are the top-level findings keys the phase should produce.
	Keys []string
	// NeedsScan attaches a structure scan of the codebase to the prompt.
	NeedsScan bool
}

var definitions = []Definition{
	{
		Phase:          models.PhaseDomainResearch,
		Title:          "Domain Research",
		Goal:           "Identify the business domain of the task: core entities, user flows, and constraints the change must respect.",
		GreenfieldGoal: "Identify the business domain of the product to build: core entities, user flows, and constraints.",
		Keys:           []string{"domain", "entities", "user_flows", "constraints"},
	},
	{
		Phase:          models.PhaseTechStack,
		Title:          "Tech Stack",
		Goal:           "Detect the languages, frameworks, datastores and tooling the codebase already uses, based on the scan.",
		GreenfieldGoal: "Recommend a stack for the product and the concrete setup steps to bootstrap it.",
		Keys:           []string{"languages", "frameworks", "datastores", "recommended_stack", "setup_steps"},
		NeedsScan:      true,
	},
	{
		Phase:          models.PhaseCodebaseScan,
		Title:          "Codebase Scan",
		Goal:           "Describe the modules, entry points and conventions of the codebase that matter for the task.",
		GreenfieldGoal: "Propose a conceptual project layout: modules, entry points and conventions to adopt.",
		Keys:           []string{"modules", "entry_points", "conventions"},
		NeedsScan:      true,
	},
	{
		Phase:          models.PhaseImpactAnalysis,
		Title:          "Impact Analysis",
		Goal:           "List the files to create and the existing files to modify, and the modules the change affects.",
		GreenfieldGoal: "List the files to create for a first working version and the modules they belong to.",
		Keys:           []string{"files_to_create", "files_to_modify", "affected_modules"},
		NeedsScan:      true,
	},
	{
		Phase:          models.PhaseArchitecture,
		Title:          "Architecture",
		Goal:           "Design how the change fits the existing architecture: components, data flow and key decisions.",
		GreenfieldGoal: "Design the architecture: components, data flow and key decisions.",
		Keys:           []string{"components", "data_flow", "decisions"},
	},
	{
		Phase:          models.PhaseRiskAssessment,
		Title:          "Risk Assessment",
		Goal:           "Identify risks of the change. Give each risk a title, a severity (low, medium, high) and a mitigation.",
		GreenfieldGoal: "Identify delivery and technical risks. Give each risk a title, a severity (low, medium, high) and a mitigation.",
		Keys:           []string{"risks"},
	},
	{
		Phase:          models.PhaseTicketGeneration,
		Title:          "Tickets",
		Goal:           "Break the work into tickets. Each ticket has an id (T1, T2, ...), a title, a description, story points (1, 2, 3, 5 or 8) and depends_on, the ids of tickets it depends on. Dependencies must not form a cycle.",
		GreenfieldGoal: "Break the build into tickets. Each ticket has an id (T1, T2, ...), a title, a description, story points (1, 2, 3, 5 or 8) and depends_on, the ids of tickets it depends on. Dependencies must not form a cycle.",
		Keys:           []string{"tickets", "total_points"},
	},
}

// Definitions returns the built-in phase definitions in pipeline order.
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

// DefinitionFor returns the definition of phase.
func DefinitionFor(phase string) (Definition, bool) {
	for _, d := range definitions {
		if d.Phase == phase {
			return d, true
		}
	}
	return Definition{}, false
}
