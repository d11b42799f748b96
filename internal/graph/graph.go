// Package graph orders generated tickets by their dependencies.
package graph

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrCycleDetected indicates a circular dependency between tickets.
	ErrCycleDetected = errors.New("circular dependency detected")
	// ErrUnknownDependency indicates a ticket depends on a ticket that does not exist.
	ErrUnknownDependency = errors.New("unknown dependency")
)

// Ticket is the part of a generated ticket the graph needs.
type Ticket struct {
	ID        string
	Title     string
	Points    int
	DependsOn []string
}

// TicketsFromFindings reads the "tickets" list of a findings object.
// Tickets without an id are numbered T1, T2, ... by position. Entries that
// are not objects are skipped.
func TicketsFromFindings(v any) []Ticket {
	items, _ := v.([]any)
	tickets := make([]Ticket, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		t := Ticket{
			ID:        scalar(m["id"]),
			Title:     scalar(m["title"]),
			Points:    number(m["points"]),
			DependsOn: list(m["depends_on"]),
		}
		if t.ID == "" {
			t.ID = fmt.Sprintf("T%d", i+1)
		}
		tickets = append(tickets, t)
	}
	return tickets
}

func scalar(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	default:
		return ""
	}
}

func number(v any) int {
	switch val := v.(type) {
	case float64:
		return int(val)
	case int:
		return val
	case string:
		n, _ := strconv.Atoi(strings.TrimSpace(val))
		return n
	default:
		return 0
	}
}

func list(v any) []string {
	switch val := v.(type) {
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s := scalar(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return append([]string(nil), val...)
	case string:
		if s := strings.TrimSpace(val); s != "" {
			return []string{s}
		}
	}
	return nil
}

// DependencyGraph is a directed acyclic graph of tickets. Edges point from
// a ticket to the tickets it depends on.
type DependencyGraph struct {
	nodes map[string]*Ticket
	edges map[string][]string
	// order is insertion order, so results are deterministic.
	order []string
}

// New creates a new empty dependency graph.
func New() *DependencyGraph {
	return &DependencyGraph{
		nodes: make(map[string]*Ticket),
		edges: make(map[string][]string),
	}
}

// Build constructs the graph from tickets. A dependency may name a ticket
// by id or by title. Returns an error for duplicate ids, unknown
// dependencies and cycles.
func (g *DependencyGraph) Build(tickets []Ticket) error {
	byTitle := make(map[string]string)
	for i := range tickets {
		t := &tickets[i]
		if _, dup := g.nodes[t.ID]; dup {
			return fmt.Errorf("duplicate ticket id %s", t.ID)
		}
		g.nodes[t.ID] = t
		g.edges[t.ID] = nil
		g.order = append(g.order, t.ID)
		if t.Title != "" {
			byTitle[strings.ToLower(t.Title)] = t.ID
		}
	}

	for _, t := range tickets {
		for _, dep := range t.DependsOn {
			id := dep
			if _, ok := g.nodes[id]; !ok {
				if id, ok = byTitle[strings.ToLower(dep)]; !ok {
					return fmt.Errorf("%w: ticket %s depends on %q", ErrUnknownDependency, t.ID, dep)
				}
			}
			if id == t.ID {
				return fmt.Errorf("%w: ticket %s depends on itself", ErrCycleDetected, t.ID)
			}
			g.edges[t.ID] = append(g.edges[t.ID], id)
		}
	}

	if g.HasCycle() {
		return ErrCycleDetected
	}
	return nil
}

// HasCycle returns true if the graph contains a circular dependency.
// Uses depth-first search with coloring to detect back edges.
func (g *DependencyGraph) HasCycle() bool {
	// 0 = unvisited, 1 = in progress, 2 = done.
	colors := make(map[string]int, len(g.nodes))

	var visit func(id string) bool
	visit = func(id string) bool {
		colors[id] = 1
		for _, dep := range g.edges[id] {
			switch colors[dep] {
			case 1:
				return true
			case 0:
				if visit(dep) {
					return true
				}
			}
		}
		colors[id] = 2
		return false
	}

	for _, id := range g.order {
		if colors[id] == 0 && visit(id) {
			return true
		}
	}
	return false
}

// TopologicalSort returns ticket ids with every dependency before the
// tickets that depend on it. Independent tickets keep their input order.
func (g *DependencyGraph) TopologicalSort() ([]string, error) {
	if g.HasCycle() {
		return nil, ErrCycleDetected
	}

	visited := make(map[string]bool, len(g.nodes))
	result := make([]string, 0, len(g.nodes))

	var visit func(id string)
	visit = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, dep := range g.edges[id] {
			visit(dep)
		}
		result = append(result, id)
	}

	for _, id := range g.order {
		visit(id)
	}
	return result, nil
}

// Waves groups tickets into batches that can be worked in parallel: each
// ticket lands one wave after its deepest dependency.
func (g *DependencyGraph) Waves() ([][]string, error) {
	sorted, err := g.TopologicalSort()
	if err != nil {
		return nil, err
	}

	depth := make(map[string]int, len(sorted))
	maxDepth := -1
	for _, id := range sorted {
		d := 0
		for _, dep := range g.edges[id] {
			if depth[dep]+1 > d {
				d = depth[dep] + 1
			}
		}
		depth[id] = d
		if d > maxDepth {
			maxDepth = d
		}
	}

	waves := make([][]string, maxDepth+1)
	for _, id := range g.order {
		waves[depth[id]] = append(waves[depth[id]], id)
	}
	return waves, nil
}

// Ticket returns the ticket for id, or nil if not found.
func (g *DependencyGraph) Ticket(id string) *Ticket {
	return g.nodes[id]
}

// Size returns the number of tickets in the graph.
func (g *DependencyGraph) Size() int {
	return len(g.nodes)
}

// GetDependencies returns the ids of tickets that id depends on.
func (g *DependencyGraph) GetDependencies(id string) []string {
	return g.edges[id]
}

// GetDependents returns the ids of tickets that depend on id.
func (g *DependencyGraph) GetDependents(id string) []string {
	var dependents []string
	for _, other := range g.order {
		for _, dep := range g.edges[other] {
			if dep == id {
				dependents = append(dependents, other)
				break
			}
		}
	}
	return dependents
}
