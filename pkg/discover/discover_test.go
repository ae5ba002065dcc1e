package discover

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/restitch/restitch/pkg/errors"
	"github.com/restitch/restitch/pkg/graph"
	"github.com/restitch/restitch/pkg/resolve"
)

// writeFiles creates module files under root. Keys are identifier-style
// relative paths ("a/b.lua"), values are file contents.
func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func newDriver(t *testing.T, root string) *Driver {
	t.Helper()
	r, err := resolve.New([]string{root}, []string{".lua"})
	if err != nil {
		t.Fatal(err)
	}
	return NewDriver(r, nil)
}

func run(t *testing.T, root, start string) *graph.Graph {
	t.Helper()
	g, err := newDriver(t, root).Run(context.Background(), filepath.Join(root, start), Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return g
}

func TestRun_DiamondScenario(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"a.lua": `require("b")` + "\n" + `require("c")`,
		"b.lua": `require("d")`,
		"c.lua": `require("d")`,
		"d.lua": `return {}`,
	})

	g := run(t, root, "a.lua")

	if g.NodeCount() != 4 {
		t.Errorf("NodeCount() = %d, want 4", g.NodeCount())
	}
	if g.EdgeCount() != 4 {
		t.Errorf("EdgeCount() = %d, want 4", g.EdgeCount())
	}

	lin := graph.Linearize(g.Snapshot())
	want := []string{
		filepath.Join(root, "d.lua"),
		filepath.Join(root, "b.lua"),
		filepath.Join(root, "c.lua"),
		filepath.Join(root, "a.lua"),
	}
	if !slices.Equal(lin.Order, want) {
		t.Errorf("Order = %v, want %v", lin.Order, want)
	}
}

func TestRun_CyclicPair(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"a.lua": `require("b")`,
		"b.lua": `require("a")`,
	})

	g := run(t, root, "a.lua")

	lin := graph.Linearize(g.Snapshot())
	if len(lin.Order) != 2 {
		t.Fatalf("Order = %v, want both nodes", lin.Order)
	}
	if len(lin.Cycles) != 1 {
		t.Fatalf("Cycles = %d, want 1", len(lin.Cycles))
	}
	wantPath := []string{
		filepath.Join(root, "a.lua"),
		filepath.Join(root, "b.lua"),
		filepath.Join(root, "a.lua"),
	}
	if !slices.Equal(lin.Cycles[0].ExamplePath, wantPath) {
		t.Errorf("ExamplePath = %v, want %v", lin.Cycles[0].ExamplePath, wantPath)
	}
}

func TestRun_UnresolvedReference(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"a.lua": `require("missing.module")`,
	})

	g := run(t, root, "a.lua")

	if g.NodeCount() != 1 {
		t.Errorf("NodeCount() = %d, want 1 (unresolved reference must not create a node)", g.NodeCount())
	}

	n, _ := g.Node(filepath.Join(root, "a.lua"))
	if n.State != graph.StateResolved {
		t.Errorf("State = %v, want resolved (missing deps do not block)", n.State)
	}
	if !slices.Equal(n.Unresolved, []string{"missing.module"}) {
		t.Errorf("Unresolved = %v, want [missing.module]", n.Unresolved)
	}
}

func TestRun_DuplicateReferencesSingleEdge(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"a.lua": `require("b")` + "\n" + `require("b")`,
		"b.lua": `return {}`,
	})

	g := run(t, root, "a.lua")

	if g.EdgeCount() != 1 {
		t.Errorf("EdgeCount() = %d, want 1 (duplicate references deduplicate)", g.EdgeCount())
	}
	n, _ := g.Node(filepath.Join(root, "a.lua"))
	if len(n.RawReferences) != 2 {
		t.Errorf("RawReferences = %v, want duplicates preserved", n.RawReferences)
	}
}

func TestRun_DynamicReferenceCounted(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"a.lua": `require(mod)` + "\n" + `require("b")`,
		"b.lua": `return {}`,
	})

	g := run(t, root, "a.lua")

	n, _ := g.Node(filepath.Join(root, "a.lua"))
	if n.DynamicCount != 1 {
		t.Errorf("DynamicCount = %d, want 1", n.DynamicCount)
	}
	if g.NodeCount() != 2 {
		t.Errorf("NodeCount() = %d, want 2", g.NodeCount())
	}
}

func TestRun_RootUnreadableAborts(t *testing.T) {
	root := t.TempDir()

	_, err := newDriver(t, root).Run(context.Background(), filepath.Join(root, "absent.lua"), Options{})
	if err == nil {
		t.Fatal("Run() = nil error, want root read failure")
	}
	if !errors.Is(err, errors.ErrCodeRootUnreadable) {
		t.Errorf("error code = %v, want ROOT_UNREADABLE", errors.GetCode(err))
	}
}

func TestRun_NonRootReadErrorIsLocal(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"a.lua": `require("b")`,
		"b.lua": `return {}`,
	})
	// Make b unreadable after it resolves.
	bPath := filepath.Join(root, "b.lua")
	if err := os.Chmod(bPath, 0000); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(bPath, 0644) })
	if _, err := os.ReadFile(bPath); err == nil {
		t.Skip("running as root; cannot produce a permission error")
	}

	g := run(t, root, "a.lua")

	b, ok := g.Node(bPath)
	if !ok {
		t.Fatal("node for b.lua missing")
	}
	if b.State != graph.StateError {
		t.Errorf("b State = %v, want error", b.State)
	}
	a, _ := g.Node(filepath.Join(root, "a.lua"))
	if a.State != graph.StateResolved {
		t.Errorf("a State = %v, want resolved (failure is node-local)", a.State)
	}
}

func TestRun_Deterministic(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"m.lua": `require("n")` + "\n" + `require("o")` + "\n" + `require("p")`,
		"n.lua": `require("q")`,
		"o.lua": `require("q")`,
		"p.lua": `require("n")`,
		"q.lua": `return {}`,
	})

	first := graph.Linearize(run(t, root, "m.lua").Snapshot())
	for i := 0; i < 5; i++ {
		again := graph.Linearize(run(t, root, "m.lua").Snapshot())
		if !slices.Equal(first.Order, again.Order) {
			t.Fatalf("run %d differs:\n%v\n%v", i, first.Order, again.Order)
		}
	}
}

func TestRun_Cancellation(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"a.lua": `require("b")`,
		"b.lua": `return {}`,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := newDriver(t, root).Run(ctx, filepath.Join(root, "a.lua"), Options{}); err == nil {
		t.Error("Run() with cancelled context = nil error, want cancellation")
	}
}

func TestRun_MaxDepth(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"a.lua": `require("b")`,
		"b.lua": `require("c")`,
		"c.lua": `require("d")`,
		"d.lua": `return {}`,
	})

	g, err := newDriver(t, root).Run(context.Background(), filepath.Join(root, "a.lua"), Options{MaxDepth: 2})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// c is read at the depth limit; its edge to d still lands in the graph,
	// but d is never scheduled for reading.
	c, ok := g.Node(filepath.Join(root, "c.lua"))
	if !ok {
		t.Fatal("node at depth limit missing")
	}
	if c.State != graph.StateResolved {
		t.Errorf("c State = %v, want resolved", c.State)
	}
	d, ok := g.Node(filepath.Join(root, "d.lua"))
	if !ok {
		t.Fatal("edge target past depth limit missing")
	}
	if d.State != graph.StateDiscovered {
		t.Errorf("d State = %v, want discovered (never read)", d.State)
	}
}
