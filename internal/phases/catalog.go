package phases

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ShayCichocki/scopecraft/internal/agent"
	"github.com/ShayCichocki/scopecraft/internal/api"
)

// ErrUnknownPhase is returned by Lookup for a phase with no investigator.
var ErrUnknownPhase = errors.New("phases: unknown phase")

// Catalog maps phase names to their investigators. All phases share one
// renderer.
type Catalog struct {
	mu            sync.RWMutex
	investigators map[string]agent.Investigator
	renderer      agent.Renderer
}

// NewCatalog creates an empty catalog rendering with r.
func NewCatalog(r agent.Renderer) *Catalog {
	return &Catalog{
		investigators: make(map[string]agent.Investigator),
		renderer:      r,
	}
}

// NewLLMCatalog registers an LLMInvestigator for every built-in phase.
func NewLLMCatalog(c api.Completer, scan Scanner) *Catalog {
	cat := NewCatalog(NewMarkdownRenderer(nil))
	for _, def := range Definitions() {
		cat.Register(def.Phase, NewLLMInvestigator(c, def, scan))
	}
	return cat
}

// Register sets the investigator for phase.
func (c *Catalog) Register(phase string, inv agent.Investigator) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.investigators[phase] = inv
}

// Lookup returns the collaborators for phase.
func (c *Catalog) Lookup(phase string) (agent.Investigator, agent.Renderer, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	inv, ok := c.investigators[phase]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownPhase, phase)
	}
	return inv, c.renderer, nil
}
