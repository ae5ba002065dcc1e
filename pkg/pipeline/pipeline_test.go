package pipeline

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/restitch/restitch/pkg/cache"
	"github.com/restitch/restitch/pkg/errors"
	"github.com/restitch/restitch/pkg/graph"
	"github.com/restitch/restitch/pkg/restore"
)

// fakeRestorer uppercases content and records what it saw.
type fakeRestorer struct {
	mu       sync.Mutex
	requests []restore.Request
	fail     bool
}

func (f *fakeRestorer) Restore(ctx context.Context, req restore.Request) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.fail {
		return "", context.DeadlineExceeded
	}
	return strings.ToUpper(req.Content), nil
}

func (f *fakeRestorer) Model() string { return "fake" }
func (f *fakeRestorer) Close() error  { return nil }

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func TestExecute_AnalysisOnly(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.lua": `require("b")`,
		"b.lua": `return {}`,
	})

	runner := NewRunner(nil, nil, nil, quietLogger())
	result, err := runner.Execute(context.Background(), Options{
		Root:        filepath.Join(root, "a.lua"),
		SearchRoots: []string{root},
		Extensions:  []string{".lua"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if result.Stats.NodeCount != 2 || result.Stats.EdgeCount != 1 {
		t.Errorf("stats = %d nodes / %d edges", result.Stats.NodeCount, result.Stats.EdgeCount)
	}
	if len(result.Linearization.Order) != 2 {
		t.Errorf("Order = %v", result.Linearization.Order)
	}
	if result.Summary == nil || result.Summary.RunID == "" {
		t.Error("summary missing")
	}
	if len(result.Restored) != 0 {
		t.Errorf("Restored = %v, want none without Restore option", result.Restored)
	}
}

func TestExecute_RestoreOrderAndContext(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.lua": `require("b")`,
		"b.lua": `return {}`,
	})
	out := t.TempDir()

	f := &fakeRestorer{}
	runner := NewRunner(cache.NewNullCache(), nil, f, quietLogger())
	result, err := runner.Execute(context.Background(), Options{
		Root:        filepath.Join(root, "a.lua"),
		SearchRoots: []string{root},
		Extensions:  []string{".lua"},
		Restore:     true,
		OutputDir:   out,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if len(result.Restored) != 2 {
		t.Fatalf("Restored = %d files, want 2", len(result.Restored))
	}
	// Dependency restored first
	if result.Restored[0].RelPath != "b.lua" {
		t.Errorf("first restored = %s, want b.lua", result.Restored[0].RelPath)
	}

	// a saw b's restored content as context
	if len(f.requests) != 2 {
		t.Fatalf("requests = %d, want 2", len(f.requests))
	}
	aReq := f.requests[1]
	if len(aReq.Dependencies) != 1 || aReq.Dependencies[0].RelPath != "b.lua" {
		t.Fatalf("a dependencies = %v", aReq.Dependencies)
	}
	if aReq.Dependencies[0].Content != "RETURN {}" {
		t.Errorf("dependency context = %q, want restored content", aReq.Dependencies[0].Content)
	}

	// Output mirrors the tree
	data, err := os.ReadFile(filepath.Join(out, "a.lua"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != `REQUIRE("B")` {
		t.Errorf("output = %q", data)
	}
}

func TestExecute_RestoreCaching(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.lua": `return {}`,
	})

	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	f := &fakeRestorer{}
	runner := NewRunner(c, nil, f, quietLogger())
	opts := Options{
		Root:        filepath.Join(root, "a.lua"),
		SearchRoots: []string{root},
		Extensions:  []string{".lua"},
		Restore:     true,
		OutputDir:   t.TempDir(),
	}

	first, err := runner.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("first Execute: %v", err)
	}
	if first.CacheInfo.RestoreMisses != 1 || first.CacheInfo.RestoreHits != 0 {
		t.Errorf("first run cache info = %+v", first.CacheInfo)
	}

	second, err := runner.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("second Execute: %v", err)
	}
	if second.CacheInfo.RestoreHits != 1 {
		t.Errorf("second run cache info = %+v", second.CacheInfo)
	}
	if len(f.requests) != 1 {
		t.Errorf("restorer called %d times, want 1 (second run cached)", len(f.requests))
	}
	if !second.Restored[0].FromCache {
		t.Error("second run should mark the file as cached")
	}
}

func TestExecute_SnapshotCaching(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.lua": `require("b")`,
		"b.lua": `return {}`,
	})

	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	runner := NewRunner(c, nil, nil, quietLogger())
	opts := Options{
		Root:        filepath.Join(root, "a.lua"),
		SearchRoots: []string{root},
		Extensions:  []string{".lua"},
		CacheTTL:    time.Hour,
	}

	first, err := runner.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("first Execute: %v", err)
	}

	// The tree is gone, so the second run can only succeed from the cached
	// snapshot.
	if err := os.RemoveAll(root); err != nil {
		t.Fatal(err)
	}
	second, err := runner.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("second Execute: %v", err)
	}
	if second.Stats.NodeCount != first.Stats.NodeCount || second.Stats.EdgeCount != first.Stats.EdgeCount {
		t.Errorf("cached run stats = %+v, want %+v", second.Stats, first.Stats)
	}
	if len(second.Linearization.Order) != 2 {
		t.Errorf("Order = %v", second.Linearization.Order)
	}
}

func TestSnapshotCodec(t *testing.T) {
	g := graph.New()
	a, err := g.Add("/src/a.lua")
	if err != nil {
		t.Fatal(err)
	}
	a.Content = `require("b")`
	a.RawReferences = []string{"b"}
	if _, err := g.AddEdge("/src/a.lua", "/src/b.lua"); err != nil {
		t.Fatal(err)
	}
	a.State = graph.StateResolved
	if err := g.MarkError("/src/b.lua", errors.New(errors.ErrCodeReadError, "read /src/b.lua")); err != nil {
		t.Fatal(err)
	}

	data, err := encodeSnapshot(g.Snapshot())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	snap, err := decodeSnapshot(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if snap.NodeCount() != 2 || snap.EdgeCount() != 1 {
		t.Errorf("decoded %d nodes / %d edges", snap.NodeCount(), snap.EdgeCount())
	}
	aNode, _ := snap.Node("/src/a.lua")
	if aNode.State != graph.StateResolved || aNode.Content != `require("b")` {
		t.Errorf("node a = %+v", aNode)
	}
	bNode, _ := snap.Node("/src/b.lua")
	if bNode.State != graph.StateError || bNode.Err == nil {
		t.Errorf("node b = %+v", bNode)
	}
}

func TestExecute_RefreshBypassesCache(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.lua": `return {}`,
	})

	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	f := &fakeRestorer{}
	runner := NewRunner(c, nil, f, quietLogger())
	opts := Options{
		Root:        filepath.Join(root, "a.lua"),
		SearchRoots: []string{root},
		Extensions:  []string{".lua"},
		Restore:     true,
		OutputDir:   t.TempDir(),
		Refresh:     true,
	}

	for i := 0; i < 2; i++ {
		if _, err := runner.Execute(context.Background(), opts); err != nil {
			t.Fatalf("Execute %d: %v", i, err)
		}
	}
	if len(f.requests) != 2 {
		t.Errorf("restorer called %d times, want 2 with Refresh", len(f.requests))
	}
}

func TestExecute_RestorerFailureAborts(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.lua": `return {}`,
	})

	runner := NewRunner(nil, nil, &fakeRestorer{fail: true}, quietLogger())
	_, err := runner.Execute(context.Background(), Options{
		Root:        filepath.Join(root, "a.lua"),
		SearchRoots: []string{root},
		Extensions:  []string{".lua"},
		Restore:     true,
		OutputDir:   t.TempDir(),
	})
	if err == nil {
		t.Error("Execute() = nil error, want restorer failure")
	}
}

func TestExecute_RestoreWithoutRestorer(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.lua": `return {}`,
	})

	runner := NewRunner(nil, nil, nil, quietLogger())
	_, err := runner.Execute(context.Background(), Options{
		Root:        filepath.Join(root, "a.lua"),
		SearchRoots: []string{root},
		Extensions:  []string{".lua"},
		Restore:     true,
	})
	if err == nil {
		t.Error("Execute() = nil error, want missing restorer error")
	}
}

func TestOptions_ValidateAndSetDefaults(t *testing.T) {
	var o Options
	if err := o.ValidateAndSetDefaults(); err == nil {
		t.Error("empty options should fail validation")
	}

	o = Options{Root: "/src/a.lua"}
	if err := o.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults: %v", err)
	}
	if o.Workers != DefaultWorkers || o.MaxDepth != DefaultMaxDepth {
		t.Errorf("defaults not applied: %+v", o)
	}
	if len(o.Extensions) != 2 || o.Extensions[0] != ".lua.unluac" {
		t.Errorf("Extensions = %v", o.Extensions)
	}
}
