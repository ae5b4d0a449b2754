// Package graph derives a directed multigraph over element ids from the
// dependency descriptors of a model, and answers the reachability,
// cycle-pre-check and symmetry questions the rule engine needs.
package graph

import (
	"sort"

	"github.com/aretw0/espalier/pkg/domain"
)

// Graph is a directed graph whose nodes are element ids. Edges run in
// feed direction: an OUTBOUND descriptor on A naming B contributes A->B,
// and an INBOUND descriptor on B naming A contributes the same A->B.
type Graph struct {
	adj   map[string][]string
	edges map[[2]string]bool
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		adj:   make(map[string][]string),
		edges: make(map[[2]string]bool),
	}
}

// FromModel builds the graph from every dependency descriptor in the
// model. Both halves of a mirrored pair contribute the same edge, so a
// well-formed model and a half-connected draft produce the same topology.
func FromModel(m *domain.Model) *Graph {
	g := New()
	for i := range m.Slices {
		for _, el := range m.Slices[i].Elements() {
			g.AddNode(el.ID)
			for _, d := range el.Dependencies {
				if d.Type == domain.DependencyOutbound {
					g.AddEdge(el.ID, d.ID)
				} else {
					g.AddEdge(d.ID, el.ID)
				}
			}
		}
	}
	return g
}

// AddNode registers an id with no edges. Adding an existing node is a
// no-op.
func (g *Graph) AddNode(id string) {
	if _, ok := g.adj[id]; !ok {
		g.adj[id] = nil
	}
}

// AddEdge records from->to, deduplicating repeats.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	key := [2]string{from, to}
	if g.edges[key] {
		return
	}
	g.edges[key] = true
	g.adj[from] = append(g.adj[from], to)
}

// HasEdge reports whether from->to is present.
func (g *Graph) HasEdge(from, to string) bool {
	return g.edges[[2]string{from, to}]
}

// HasPath reports whether b is reachable from a. The traversal is an
// iterative DFS so deep chains cannot blow the goroutine stack.
func (g *Graph) HasPath(a, b string) bool {
	if a == b {
		return true
	}
	visited := make(map[string]bool)
	stack := []string{a}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		for _, next := range g.adj[cur] {
			if next == b {
				return true
			}
			if !visited[next] {
				stack = append(stack, next)
			}
		}
	}
	return false
}

// WouldCreateCycle reports whether adding a->b would close a cycle
// through the existing edges. A self-loop is a trivial cycle.
func (g *Graph) WouldCreateCycle(a, b string) bool {
	if a == b {
		return true
	}
	return g.HasPath(b, a)
}

// FindCycle returns one node involved in a cycle and true if the graph
// contains any cycle. Iterative three-color DFS.
func (g *Graph) FindCycle() (string, bool) {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(g.adj))

	roots := make([]string, 0, len(g.adj))
	for id := range g.adj {
		roots = append(roots, id)
	}
	sort.Strings(roots)

	type frame struct {
		id   string
		next int
	}
	for _, root := range roots {
		if color[root] != white {
			continue
		}
		stack := []frame{{id: root}}
		color[root] = gray
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next < len(g.adj[top.id]) {
				next := g.adj[top.id][top.next]
				top.next++
				switch color[next] {
				case gray:
					return next, true
				case white:
					color[next] = gray
					stack = append(stack, frame{id: next})
				}
				continue
			}
			color[top.id] = black
			stack = stack[:len(stack)-1]
		}
	}
	return "", false
}

// Adjacency returns a deterministic copy of the adjacency map: every node
// present as a key, successor lists sorted.
func (g *Graph) Adjacency() map[string][]string {
	out := make(map[string][]string, len(g.adj))
	for id, succ := range g.adj {
		cp := make([]string, len(succ))
		copy(cp, succ)
		sort.Strings(cp)
		out[id] = cp
	}
	return out
}

// VerifySymmetry checks every descriptor of one element: the referenced
// element must exist, its actual type must match the declared
// elementType, and it must carry the mirrored descriptor pointing back.
func VerifySymmetry(m *domain.Model, elementID string) error {
	el, ok := m.Element(elementID)
	if !ok {
		return &domain.UnknownReferenceError{From: "model", Ref: elementID}
	}
	for _, d := range el.Dependencies {
		target, ok := m.Element(d.ID)
		if !ok {
			return &domain.UnknownReferenceError{From: el.ID, Ref: d.ID}
		}
		if target.Type != d.ElementType {
			return &domain.TypeMismatchError{
				From:     el.ID,
				Ref:      d.ID,
				Declared: d.ElementType,
				Actual:   target.Type,
			}
		}
		if !hasMirror(target, el, d.Type.Mirror()) {
			return &domain.UnknownReferenceError{
				From: el.ID,
				Ref:  d.ID,
				Hint: "missing " + string(d.Type.Mirror()) + " mirror descriptor",
			}
		}
	}
	return nil
}

// VerifyAllSymmetry runs VerifySymmetry over every element in the model.
func VerifyAllSymmetry(m *domain.Model) error {
	for i := range m.Slices {
		for _, el := range m.Slices[i].Elements() {
			if err := VerifySymmetry(m, el.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

func hasMirror(on *domain.Element, back *domain.Element, dir domain.DependencyType) bool {
	for _, d := range on.Dependencies {
		if d.ID == back.ID && d.Type == dir {
			return true
		}
	}
	return false
}
