package graph

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/aretw0/espalier/pkg/domain"
)

func chain(ids ...string) *Graph {
	g := New()
	for i := 0; i+1 < len(ids); i++ {
		g.AddEdge(ids[i], ids[i+1])
	}
	return g
}

func TestHasPath(t *testing.T) {
	g := chain("a", "b", "c")
	g.AddEdge("b", "d")

	tests := []struct {
		from, to string
		want     bool
	}{
		{"a", "c", true},
		{"a", "d", true},
		{"c", "a", false},
		{"d", "c", false},
		{"a", "a", true}, // trivially reachable
		{"a", "missing", false},
	}
	for _, tt := range tests {
		if got := g.HasPath(tt.from, tt.to); got != tt.want {
			t.Errorf("HasPath(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestWouldCreateCycle(t *testing.T) {
	g := chain("a", "b", "c")

	if !g.WouldCreateCycle("c", "a") {
		t.Error("closing c->a over a->b->c must be a cycle")
	}
	if g.WouldCreateCycle("a", "c") {
		t.Error("a->c parallels the chain, no cycle")
	}
	if !g.WouldCreateCycle("a", "a") {
		t.Error("a self-loop is a cycle")
	}
	if g.WouldCreateCycle("c", "x") {
		t.Error("edge into a fresh node cannot close a cycle")
	}
}

func TestDeepChain(t *testing.T) {
	// Deep enough that a recursive traversal would overflow the stack.
	g := New()
	const n = 200000
	for i := 0; i < n; i++ {
		g.AddEdge(fmt.Sprintf("n%d", i), fmt.Sprintf("n%d", i+1))
	}
	if !g.HasPath("n0", fmt.Sprintf("n%d", n)) {
		t.Fatal("end of chain must be reachable from the start")
	}
	if !g.WouldCreateCycle(fmt.Sprintf("n%d", n), "n0") {
		t.Fatal("closing the chain must be detected as a cycle")
	}
	if _, cyclic := g.FindCycle(); cyclic {
		t.Fatal("open chain has no cycle")
	}
}

func TestFindCycle(t *testing.T) {
	g := chain("a", "b", "c")
	if node, cyclic := g.FindCycle(); cyclic {
		t.Fatalf("no cycle expected, found at %q", node)
	}

	g.AddEdge("c", "a")
	if _, cyclic := g.FindCycle(); !cyclic {
		t.Fatal("cycle a->b->c->a not found")
	}
}

func TestAdjacencyDeterministic(t *testing.T) {
	g := New()
	g.AddEdge("a", "c")
	g.AddEdge("a", "b")
	g.AddEdge("a", "c") // duplicate, must not double
	g.AddNode("lonely")

	want := map[string][]string{
		"a":      {"b", "c"},
		"b":      nil,
		"c":      nil,
		"lonely": nil,
	}
	got := g.Adjacency()
	for id, succ := range want {
		if len(succ) == 0 {
			if len(got[id]) != 0 {
				t.Errorf("node %q: got successors %v, want none", id, got[id])
			}
			continue
		}
		if !reflect.DeepEqual(got[id], succ) {
			t.Errorf("node %q: got %v, want %v", id, got[id], succ)
		}
	}
	if len(got) != len(want) {
		t.Errorf("adjacency has %d nodes, want %d", len(got), len(want))
	}
}

func symmetricModel() *domain.Model {
	m := &domain.Model{
		Slices: []domain.Slice{{
			ID:        "s1",
			SliceType: domain.SliceStateChange,
			Commands: []domain.Element{{
				ID: "cmd", Type: domain.ElementCommand,
				Dependencies: []domain.Dependency{{ID: "evt", Type: domain.DependencyOutbound, ElementType: domain.ElementEvent}},
			}},
			Events: []domain.Element{{
				ID: "evt", Type: domain.ElementEvent,
				Dependencies: []domain.Dependency{{ID: "cmd", Type: domain.DependencyInbound, ElementType: domain.ElementCommand}},
			}},
		}},
	}
	m.Reindex()
	return m
}

func TestFromModelMergesMirrors(t *testing.T) {
	g := FromModel(symmetricModel())

	// Both halves of the pair describe the same edge.
	adj := g.Adjacency()
	if !reflect.DeepEqual(adj["cmd"], []string{"evt"}) {
		t.Errorf("cmd successors = %v, want [evt]", adj["cmd"])
	}
	if len(adj["evt"]) != 0 {
		t.Errorf("evt successors = %v, want none", adj["evt"])
	}
}

func TestVerifySymmetry(t *testing.T) {
	t.Run("well-formed pair", func(t *testing.T) {
		m := symmetricModel()
		if err := VerifyAllSymmetry(m); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("missing mirror", func(t *testing.T) {
		m := symmetricModel()
		evt, _ := m.Element("evt")
		evt.Dependencies = nil
		err := VerifySymmetry(m, "cmd")
		if domain.KindOf(err) != domain.KindUnknownReference {
			t.Fatalf("got %v, want UNKNOWN_REFERENCE", err)
		}
	})

	t.Run("dangling target", func(t *testing.T) {
		m := symmetricModel()
		cmd, _ := m.Element("cmd")
		cmd.Dependencies[0].ID = "ghost"
		err := VerifySymmetry(m, "cmd")
		if domain.KindOf(err) != domain.KindUnknownReference {
			t.Fatalf("got %v, want UNKNOWN_REFERENCE", err)
		}
	})

	t.Run("declared type mismatch", func(t *testing.T) {
		m := symmetricModel()
		cmd, _ := m.Element("cmd")
		cmd.Dependencies[0].ElementType = domain.ElementReadModel
		err := VerifySymmetry(m, "cmd")
		if domain.KindOf(err) != domain.KindTypeMismatch {
			t.Fatalf("got %v, want TYPE_MISMATCH", err)
		}
	})
}
