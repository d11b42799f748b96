// Package artifact reads and writes phase artifacts: Markdown documents
// whose YAML front matter embeds the phase findings they were rendered from.
package artifact

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/ShayCichocki/scopecraft/pkg/models"
)

var (
	// ErrMissingFrontMatter indicates the document did not start with a YAML fence.
	ErrMissingFrontMatter = errors.New("artifact: missing frontmatter")
	// ErrMalformedFrontMatter indicates the YAML block could not be parsed.
	ErrMalformedFrontMatter = errors.New("artifact: malformed frontmatter")
)

// Metadata is the front matter of a phase artifact.
type Metadata struct {
	ProjectID string
	Phase     string
	CreatedAt time.Time
	Findings  models.Findings
}

// ParseFrontMatter extracts the metadata block and body from a document that
// starts with `---` YAML fences.
func ParseFrontMatter(content []byte) (Metadata, []byte, error) {
	if len(content) == 0 {
		return Metadata{}, nil, ErrMissingFrontMatter
	}
	normalized := normalizeNewlines(content)
	if !bytes.HasPrefix(normalized, []byte("---\n")) {
		return Metadata{}, nil, ErrMissingFrontMatter
	}
	rest := normalized[4:]
	parts := bytes.SplitN(rest, []byte("\n---\n"), 2)
	if len(parts) < 2 {
		return Metadata{}, nil, ErrMalformedFrontMatter
	}
	var env envelope
	if err := yaml.Unmarshal(parts[0], &env); err != nil {
		return Metadata{}, nil, fmt.Errorf("artifact: parse frontmatter: %w", err)
	}
	meta, err := env.toMetadata()
	if err != nil {
		return Metadata{}, nil, err
	}
	return meta, bytes.TrimLeft(parts[1], "\n"), nil
}

// WriteFrontMatter renders metadata + body with YAML fences.
func WriteFrontMatter(meta Metadata, body []byte) ([]byte, error) {
	if meta.Phase == "" {
		return nil, fmt.Errorf("artifact: metadata missing phase")
	}
	var env envelope
	env.fromMetadata(meta)
	data, err := yaml.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("artifact: encode frontmatter: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(bytes.TrimRight(data, "\n"))
	buf.WriteString("\n---\n\n")
	buf.Write(body)
	return buf.Bytes(), nil
}

type envelope struct {
	Scopecraft frontMatter `yaml:"scopecraft"`
}

type frontMatter struct {
	Project  string         `yaml:"project,omitempty"`
	Phase    string         `yaml:"phase"`
	Created  string         `yaml:"created"`
	Findings map[string]any `yaml:"findings,omitempty"`
}

func (e envelope) toMetadata() (Metadata, error) {
	if e.Scopecraft.Phase == "" {
		return Metadata{}, ErrMalformedFrontMatter
	}
	created, err := parseTime(e.Scopecraft.Created)
	if err != nil {
		return Metadata{}, fmt.Errorf("artifact: parse created timestamp: %w", err)
	}
	var findings models.Findings
	if e.Scopecraft.Findings != nil {
		findings = models.Findings(e.Scopecraft.Findings)
	}
	return Metadata{
		ProjectID: e.Scopecraft.Project,
		Phase:     e.Scopecraft.Phase,
		CreatedAt: created,
		Findings:  findings,
	}, nil
}

func (e *envelope) fromMetadata(meta Metadata) {
	e.Scopecraft.Project = meta.ProjectID
	e.Scopecraft.Phase = meta.Phase
	e.Scopecraft.Created = meta.CreatedAt.UTC().Format(timeLayout)
	if meta.Findings != nil {
		e.Scopecraft.Findings = map[string]any(meta.Findings.Clone())
	}
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

func parseTime(value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, fmt.Errorf("artifact: empty created timestamp")
	}
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func normalizeNewlines(content []byte) []byte {
	return bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
}
