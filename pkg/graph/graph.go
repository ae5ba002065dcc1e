// Package graph implements the dependency graph built during discovery.
//
// The graph is a key-indexed arena of nodes: every node is identified by the
// canonical absolute path of its source file, and edges are stored as key
// references resolved by lookup. Cyclic file relationships are therefore
// representable without ownership cycles.
//
// Mutation follows a single-writer discipline: the discovery driver funnels
// all writes through one goroutine, and linearization operates on an
// immutable [Snapshot] taken after discovery quiesces.
package graph

import (
	"errors"
	"maps"
	"slices"
)

var (
	// ErrInvalidKey is returned by [Graph.Add] and [Graph.AddEdge] when a
	// node key is empty. All nodes must have non-empty canonical paths.
	ErrInvalidKey = errors.New("node key must not be empty")

	// ErrUnknownNode is returned by operations that reference a node key
	// not present in the graph.
	ErrUnknownNode = errors.New("unknown node")
)

// State tracks a node's position in the discovery lifecycle.
type State int

const (
	// StateDiscovered means the node exists but its content has not been read.
	StateDiscovered State = iota
	// StateReading means a content read is in flight.
	StateReading
	// StateResolved means content was read and all references were processed.
	// Unresolved references do not prevent this state; they are recorded on
	// the node instead.
	StateResolved
	// StateError means the node's content could not be read. Its outgoing
	// edge set reflects only what was extracted before the failure and must
	// be treated as incomplete by consumers.
	StateError
)

// String returns the lowercase name of the state.
func (s State) String() string {
	switch s {
	case StateDiscovered:
		return "discovered"
	case StateReading:
		return "reading"
	case StateResolved:
		return "resolved"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Node represents one source file's record within the dependency graph.
//
// Nodes are created by discovery and never deleted during a run. Content is
// cached on first successful read and is immutable afterwards.
type Node struct {
	// Key is the canonical absolute path of the source file.
	Key string
	// State is the node's discovery lifecycle state.
	State State
	// RawReferences holds every logical identifier found in the file text,
	// in encounter order, duplicates included. Kept for stable reporting.
	RawReferences []string
	// Content is the cached file text once read.
	Content string
	// Unresolved lists logical identifiers that matched no file under any
	// search root. Recorded, not fatal.
	Unresolved []string
	// DynamicCount counts references whose argument could not be statically
	// determined. Counted for reporting only.
	DynamicCount int
	// MalformedCount counts literal reference arguments that were not valid
	// identifiers. Counted for reporting only.
	MalformedCount int
	// Err holds the read failure for nodes in StateError.
	Err error

	deps     []string            // outgoing edges, insertion order
	depIndex map[string]struct{} // edge dedup
}

// Dependencies returns the node's outgoing edge targets in insertion order.
// The returned slice is a copy.
func (n *Node) Dependencies() []string { return slices.Clone(n.deps) }

// HasDependency reports whether an edge to the given key exists.
func (n *Node) HasDependency(key string) bool {
	_, ok := n.depIndex[key]
	return ok
}

// Graph is the mutable structure of discovered files and resolved references.
//
// Keys are inserted exactly once: re-discovering a reference from a different
// origin adds an edge, never a second node. Edges are directed
// dependent → dependency. Graph is not safe for concurrent use; the discovery
// driver serializes all mutation.
type Graph struct {
	nodes     map[string]*Node
	order     []string // keys in insertion order
	edgeCount int
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{nodes: make(map[string]*Node)}
}

// Add inserts a node in StateDiscovered and returns it. If the key is
// already present the existing node is returned unchanged, so discovery is
// idempotent per key.
func (g *Graph) Add(key string) (*Node, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}
	if n, ok := g.nodes[key]; ok {
		return n, nil
	}
	n := &Node{Key: key, State: StateDiscovered, depIndex: make(map[string]struct{})}
	g.nodes[key] = n
	g.order = append(g.order, key)
	return n, nil
}

// AddEdge records the directed edge from → to. The edge is idempotent: adding
// it twice changes nothing. If to is not yet a node it is created in
// StateDiscovered, so the graph never holds a dangling key. A self-loop is
// stored as-is; linearization treats it as a 1-node cycle group.
//
// Returns true if the edge was newly created.
func (g *Graph) AddEdge(from, to string) (bool, error) {
	if from == "" || to == "" {
		return false, ErrInvalidKey
	}
	src, ok := g.nodes[from]
	if !ok {
		return false, ErrUnknownNode
	}
	if _, ok := g.nodes[to]; !ok {
		if _, err := g.Add(to); err != nil {
			return false, err
		}
	}
	if _, dup := src.depIndex[to]; dup {
		return false, nil
	}
	src.depIndex[to] = struct{}{}
	src.deps = append(src.deps, to)
	g.edgeCount++
	return true, nil
}

// MarkError sets the node's state to StateError and records the cause.
// The node and its already-resolved edges are kept: downstream consumers
// must treat an error node as a dead end with an incomplete edge set.
func (g *Graph) MarkError(key string, cause error) error {
	n, ok := g.nodes[key]
	if !ok {
		return ErrUnknownNode
	}
	n.State = StateError
	n.Err = cause
	return nil
}

// Node returns the node with the given key and true, or nil and false.
func (g *Graph) Node(key string) (*Node, bool) {
	n, ok := g.nodes[key]
	return n, ok
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of distinct edges in the graph.
func (g *Graph) EdgeCount() int { return g.edgeCount }

// Keys returns all node keys in insertion (discovery) order.
func (g *Graph) Keys() []string { return slices.Clone(g.order) }

// Snapshot returns an immutable view of the graph for linearization and
// reporting. The snapshot shares no mutable state with the graph; discovery
// must have quiesced before it is taken.
func (g *Graph) Snapshot() *Snapshot {
	s := &Snapshot{
		nodes: make(map[string]SnapshotNode, len(g.nodes)),
		keys:  slices.Sorted(maps.Keys(g.nodes)),
		edges: g.edgeCount,
	}
	for key, n := range g.nodes {
		s.nodes[key] = SnapshotNode{
			Key:            key,
			State:          n.State,
			Content:        n.Content,
			RawReferences:  slices.Clone(n.RawReferences),
			Dependencies:   slices.Clone(n.deps),
			Unresolved:     slices.Clone(n.Unresolved),
			DynamicCount:   n.DynamicCount,
			MalformedCount: n.MalformedCount,
			Err:            n.Err,
		}
	}
	return s
}

// NewSnapshot reconstructs a snapshot from node records, for example when a
// cached discovery result is loaded. The edge count is derived from the
// records' dependency lists.
func NewSnapshot(nodes []SnapshotNode) *Snapshot {
	s := &Snapshot{nodes: make(map[string]SnapshotNode, len(nodes))}
	for _, n := range nodes {
		s.nodes[n.Key] = n
		s.edges += len(n.Dependencies)
	}
	s.keys = slices.Sorted(maps.Keys(s.nodes))
	return s
}

// SnapshotNode is the read-only projection of a node.
type SnapshotNode struct {
	Key            string
	State          State
	Content        string
	RawReferences  []string
	Dependencies   []string
	Unresolved     []string
	DynamicCount   int
	MalformedCount int
	Err            error
}

// Snapshot is a frozen view of a graph. All accessors are safe for
// concurrent use.
type Snapshot struct {
	nodes map[string]SnapshotNode
	keys  []string
	edges int
}

// Keys returns all node keys in lexicographic order.
func (s *Snapshot) Keys() []string { return slices.Clone(s.keys) }

// Node returns the snapshot of the node with the given key.
func (s *Snapshot) Node(key string) (SnapshotNode, bool) {
	n, ok := s.nodes[key]
	return n, ok
}

// Dependencies returns the outgoing edge targets of the given key in
// insertion order, or nil for an unknown key.
func (s *Snapshot) Dependencies(key string) []string {
	return slices.Clone(s.nodes[key].Dependencies)
}

// NodeCount returns the number of nodes in the snapshot.
func (s *Snapshot) NodeCount() int { return len(s.nodes) }

// EdgeCount returns the number of distinct edges in the snapshot.
func (s *Snapshot) EdgeCount() int { return s.edges }
