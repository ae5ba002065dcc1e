// Package report summarizes a discovery run and exports it in several
// formats: a human-readable text report, deterministic JSON for tooling,
// and Graphviz DOT/SVG for visual inspection.
package report

import (
	"time"

	"github.com/google/uuid"

	"github.com/restitch/restitch/pkg/graph"
)

// CycleSummary describes one cycle group in the dependency graph.
type CycleSummary struct {
	// Members are the cycle's node keys in lexicographic order.
	Members []string `json:"members"`
	// ExamplePath is one concrete require-chain demonstrating the cycle,
	// starting and ending at the same key.
	ExamplePath []string `json:"example_path"`
}

// Summary is the roll-up of one discovery run.
type Summary struct {
	RunID       string    `json:"run_id"`
	Root        string    `json:"root"`
	GeneratedAt time.Time `json:"generated_at"`

	NodeCount      int `json:"node_count"`
	EdgeCount      int `json:"edge_count"`
	ResolvedCount  int `json:"resolved_count"`
	ErrorCount     int `json:"error_count"`
	UnreadCount    int `json:"unread_count"`
	UnresolvedRefs int `json:"unresolved_refs"`
	DynamicRefs    int `json:"dynamic_refs"`
	MalformedRefs  int `json:"malformed_refs"`

	Cycles []CycleSummary `json:"cycles,omitempty"`

	// Unresolved maps each file to the identifiers it could not resolve.
	Unresolved map[string][]string `json:"unresolved,omitempty"`
	// Errors maps each unreadable file to its failure message.
	Errors map[string]string `json:"errors,omitempty"`
}

// Build summarizes a snapshot and its linearization. Each call mints a fresh
// run ID.
func Build(s *graph.Snapshot, lin graph.Linearization, root string) *Summary {
	sum := &Summary{
		RunID:       uuid.NewString(),
		Root:        root,
		GeneratedAt: time.Now().UTC(),
		NodeCount:   s.NodeCount(),
		EdgeCount:   s.EdgeCount(),
		Unresolved:  make(map[string][]string),
		Errors:      make(map[string]string),
	}

	for _, key := range s.Keys() {
		n, _ := s.Node(key)
		switch n.State {
		case graph.StateResolved:
			sum.ResolvedCount++
		case graph.StateError:
			sum.ErrorCount++
			if n.Err != nil {
				sum.Errors[key] = n.Err.Error()
			}
		default:
			sum.UnreadCount++
		}
		sum.UnresolvedRefs += len(n.Unresolved)
		sum.DynamicRefs += n.DynamicCount
		sum.MalformedRefs += n.MalformedCount
		if len(n.Unresolved) > 0 {
			sum.Unresolved[key] = append([]string(nil), n.Unresolved...)
		}
	}

	for _, c := range lin.Cycles {
		sum.Cycles = append(sum.Cycles, CycleSummary{
			Members:     append([]string(nil), c.Members...),
			ExamplePath: append([]string(nil), c.ExamplePath...),
		})
	}
	return sum
}
