package graph

import (
	"errors"
	"testing"
)

func TestAdd_Idempotent(t *testing.T) {
	g := New()

	n1, err := g.Add("/src/a.lua")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	n2, err := g.Add("/src/a.lua")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	if n1 != n2 {
		t.Error("re-adding a key created a second node")
	}
	if g.NodeCount() != 1 {
		t.Errorf("NodeCount() = %d, want 1", g.NodeCount())
	}
	if n1.State != StateDiscovered {
		t.Errorf("State = %v, want discovered", n1.State)
	}
}

func TestAdd_EmptyKey(t *testing.T) {
	g := New()
	if _, err := g.Add(""); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Add(\"\") = %v, want ErrInvalidKey", err)
	}
}

func TestAddEdge_CreatesTargetNode(t *testing.T) {
	g := New()
	g.Add("/src/a.lua")

	created, err := g.AddEdge("/src/a.lua", "/src/b.lua")
	if err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	if !created {
		t.Error("AddEdge() = false, want true for a new edge")
	}

	n, ok := g.Node("/src/b.lua")
	if !ok {
		t.Fatal("edge target was not created as a node")
	}
	if n.State != StateDiscovered {
		t.Errorf("target State = %v, want discovered", n.State)
	}
}

func TestAddEdge_Idempotent(t *testing.T) {
	g := New()
	g.Add("/src/a.lua")
	g.AddEdge("/src/a.lua", "/src/b.lua")

	created, err := g.AddEdge("/src/a.lua", "/src/b.lua")
	if err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	if created {
		t.Error("re-adding an edge reported creation")
	}
	if g.EdgeCount() != 1 {
		t.Errorf("EdgeCount() = %d, want 1", g.EdgeCount())
	}
	if g.NodeCount() != 2 {
		t.Errorf("NodeCount() = %d, want 2", g.NodeCount())
	}
}

func TestAddEdge_UnknownSource(t *testing.T) {
	g := New()
	if _, err := g.AddEdge("/src/missing.lua", "/src/b.lua"); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("AddEdge from unknown node = %v, want ErrUnknownNode", err)
	}
}

func TestMarkError_KeepsNodeAndEdges(t *testing.T) {
	g := New()
	g.Add("/src/a.lua")
	g.AddEdge("/src/a.lua", "/src/b.lua")

	cause := errors.New("permission denied")
	if err := g.MarkError("/src/a.lua", cause); err != nil {
		t.Fatalf("MarkError: %v", err)
	}

	n, _ := g.Node("/src/a.lua")
	if n.State != StateError {
		t.Errorf("State = %v, want error", n.State)
	}
	if !errors.Is(n.Err, cause) {
		t.Errorf("Err = %v, want %v", n.Err, cause)
	}
	if len(n.Dependencies()) != 1 {
		t.Error("MarkError dropped already-resolved edges")
	}
}

func TestSnapshot_Isolation(t *testing.T) {
	g := New()
	g.Add("/src/a.lua")
	g.AddEdge("/src/a.lua", "/src/b.lua")

	s := g.Snapshot()
	g.AddEdge("/src/a.lua", "/src/c.lua")

	if got := len(s.Dependencies("/src/a.lua")); got != 1 {
		t.Errorf("snapshot deps = %d, want 1 (mutation leaked into snapshot)", got)
	}
	if s.NodeCount() != 2 {
		t.Errorf("snapshot NodeCount() = %d, want 2", s.NodeCount())
	}
	if s.EdgeCount() != 1 {
		t.Errorf("snapshot EdgeCount() = %d, want 1", s.EdgeCount())
	}
}

func TestSnapshot_KeysSorted(t *testing.T) {
	g := New()
	g.Add("/src/c.lua")
	g.Add("/src/a.lua")
	g.Add("/src/b.lua")

	keys := g.Snapshot().Keys()
	want := []string{"/src/a.lua", "/src/b.lua", "/src/c.lua"}
	for i, k := range want {
		if keys[i] != k {
			t.Fatalf("Keys() = %v, want %v", keys, want)
		}
	}
}

func TestSelfLoop_Allowed(t *testing.T) {
	g := New()
	g.Add("/src/a.lua")
	if _, err := g.AddEdge("/src/a.lua", "/src/a.lua"); err != nil {
		t.Fatalf("self-loop AddEdge: %v", err)
	}
	if g.EdgeCount() != 1 {
		t.Errorf("EdgeCount() = %d, want 1", g.EdgeCount())
	}
}
