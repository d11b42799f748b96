package structure

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultMaxFiles bounds how many code files a scan visits.
const DefaultMaxFiles = 20000

var errLimit = errors.New("file limit reached")

var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"target":       true,
	"__pycache__":  true,
	".venv":        true,
}

var languages = map[string]string{
	".go":    "Go",
	".js":    "JavaScript",
	".jsx":   "JavaScript",
	".ts":    "TypeScript",
	".tsx":   "TypeScript",
	".py":    "Python",
	".rb":    "Ruby",
	".java":  "Java",
	".kt":    "Kotlin",
	".c":     "C",
	".h":     "C",
	".cpp":   "C++",
	".hpp":   "C++",
	".rs":    "Rust",
	".php":   "PHP",
	".swift": "Swift",
	".cs":    "C#",
	".ex":    "Elixir",
	".exs":   "Elixir",
	".erl":   "Erlang",
	".scala": "Scala",
}

var manifests = map[string]string{
	"go.mod":           "go",
	"package.json":     "node",
	"requirements.txt": "python",
	"pyproject.toml":   "python",
	"Gemfile":          "ruby",
	"Cargo.toml":       "rust",
	"pom.xml":          "maven",
	"build.gradle":     "gradle",
	"composer.json":    "php",
	"mix.exs":          "elixir",
	"rebar.config":     "erlang",
	"Dockerfile":       "docker",
}

// Analyzer scans repository directory structure.
type Analyzer struct {
	root     string
	maxFiles int
}

// NewAnalyzer creates an Analyzer for the given repository.
func NewAnalyzer(root string) *Analyzer {
	return &Analyzer{root: root, maxFiles: DefaultMaxFiles}
}

// WithMaxFiles sets the file limit. Zero or less keeps the default.
func (a *Analyzer) WithMaxFiles(n int) *Analyzer {
	if n > 0 {
		a.maxFiles = n
	}
	return a
}

// Analyze walks the repository. It stops early when ctx is done.
func (a *Analyzer) Analyze(ctx context.Context) (*Scan, error) {
	scan := &Scan{Root: a.root, Languages: make(map[string]int)}
	dirFiles := make(map[string][]string)

	err := filepath.WalkDir(a.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if d.IsDir() {
			name := d.Name()
			if path != a.root && (skipDirs[name] || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(a.root, path)
		if err != nil {
			return nil
		}
		if eco, ok := manifests[d.Name()]; ok {
			scan.Manifests = append(scan.Manifests, Manifest{Path: filepath.ToSlash(rel), Ecosystem: eco})
		}

		lang, ok := languages[strings.ToLower(filepath.Ext(path))]
		if !ok {
			return nil
		}
		if scan.FileCount >= a.maxFiles {
			scan.Truncated = true
			return errLimit
		}
		scan.FileCount++
		scan.Languages[lang]++

		dir := filepath.ToSlash(filepath.Dir(rel))
		if dir == "." {
			dir = ""
		}
		dirFiles[dir] = append(dirFiles[dir], filepath.ToSlash(rel))
		return nil
	})
	if err != nil && !errors.Is(err, errLimit) {
		return nil, err
	}

	scan.Rules = buildRules(dirFiles)
	return scan, nil
}

// buildRules creates a rule for every directory with at least two files.
func buildRules(dirFiles map[string][]string) []StructureRule {
	rules := []StructureRule{}
	for dir, files := range dirFiles {
		if len(files) < 2 {
			continue
		}
		ext := getCommonExtension(files)
		if ext == "" {
			continue
		}

		sort.Strings(files)
		examples := files
		if len(examples) > 3 {
			examples = examples[:3]
		}

		pattern := "*" + ext
		if dir != "" {
			pattern = dir + "/*" + ext
		}
		rules = append(rules, StructureRule{
			Pattern:     pattern,
			Description: describeDirectory(dir),
			Examples:    append([]string(nil), examples...),
			Directory:   dir,
		})
	}
	sort.Slice(rules, func(i, j int) bool {
		return rules[i].Directory < rules[j].Directory
	})
	return rules
}

// getCommonExtension returns the most common extension in the file list.
// Ties go to the lexically smaller extension.
func getCommonExtension(files []string) string {
	extCount := make(map[string]int)
	for _, file := range files {
		extCount[filepath.Ext(file)]++
	}

	maxCount := 0
	commonExt := ""
	for ext, count := range extCount {
		if count > maxCount || (count == maxCount && ext < commonExt) {
			maxCount = count
			commonExt = ext
		}
	}
	return commonExt
}

// describeDirectory generates a human-readable description for a directory.
func describeDirectory(dir string) string {
	if dir == "" {
		return "Root directory files"
	}
	parts := strings.Split(dir, "/")
	last := parts[len(parts)-1]
	if last == "" {
		return "Root directory files"
	}
	return strings.ToUpper(last[:1]) + last[1:] + " files"
}
