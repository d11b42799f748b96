// Package structure scans a codebase and summarizes its layout for the
// planning phases.
package structure

// StructureRule represents a detected directory pattern in the repository.
type StructureRule struct {
	// Pattern is the glob pattern for this directory (e.g., "internal/store/*.go").
	Pattern string `json:"pattern"`
	// Description is a human-readable description of the directory.
	Description string `json:"description"`
	// Examples are concrete file paths that match this pattern.
	Examples []string `json:"examples"`
	// Directory is the directory this rule applies to.
	Directory string `json:"directory"`
}

// Manifest is a build or dependency file that identifies an ecosystem.
type Manifest struct {
	Path      string `json:"path"`
	Ecosystem string `json:"ecosystem"`
}

// Scan is the result of analyzing a codebase.
type Scan struct {
	// Root is the scanned directory.
	Root string `json:"root"`
	// FileCount is the number of code files found.
	FileCount int `json:"file_count"`
	// Languages counts code files per language.
	Languages map[string]int `json:"languages"`
	// Manifests lists detected build and dependency files.
	Manifests []Manifest `json:"manifests"`
	// Rules lists directories holding several files of one kind.
	Rules []StructureRule `json:"rules"`
	// Truncated is true when the walk stopped at the file limit.
	Truncated bool `json:"truncated,omitempty"`
}

// PrimaryLanguage returns the language with the most files, or "".
func (s *Scan) PrimaryLanguage() string {
	best, max := "", 0
	for lang, n := range s.Languages {
		if n > max || (n == max && lang < best) {
			best, max = lang, n
		}
	}
	return best
}

// RulesFor returns rules whose directory intersects one of the given
// paths. No paths returns every rule.
func (s *Scan) RulesFor(paths []string) []StructureRule {
	if len(paths) == 0 {
		return s.Rules
	}
	var out []StructureRule
	for _, rule := range s.Rules {
		for _, p := range paths {
			if matchesOrContains(p, rule.Directory) {
				out = append(out, rule)
				break
			}
		}
	}
	return out
}

// matchesOrContains checks if path1 matches or contains path2.
// Examples:
//   - "backend/" contains "backend/internal/"
//   - "backend/internal/" matches "backend/internal/"
//   - "frontend/" does not contain "backend/"
func matchesOrContains(path1, path2 string) bool {
	if len(path1) >= len(path2) {
		return path1[:len(path2)] == path2
	}
	return path2[:len(path1)] == path1
}
