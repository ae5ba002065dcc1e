package report

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"

	"github.com/goccy/go-graphviz"

	"github.com/restitch/restitch/pkg/graph"
)

// ToDOT converts a snapshot to Graphviz DOT format. Nodes are labeled with
// their base name and colored by state: read failures red, never-read nodes
// grey. The resulting DOT string can be rendered with [RenderSVG].
func ToDOT(s *graph.Snapshot) string {
	var buf bytes.Buffer
	buf.WriteString("digraph deps {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=12];\n")
	buf.WriteString("\n")

	for _, key := range s.Keys() {
		n, _ := s.Node(key)
		attrs := fmt.Sprintf("label=%q", filepath.Base(key))
		switch n.State {
		case graph.StateError:
			attrs += ", fillcolor=lightcoral"
		case graph.StateResolved:
		default:
			attrs += ", fillcolor=lightgrey, style=\"rounded,filled,dashed\""
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", key, attrs)
	}

	buf.WriteString("\n")
	for _, key := range s.Keys() {
		for _, dep := range s.Dependencies(key) {
			fmt.Fprintf(&buf, "  %q -> %q;\n", key, dep)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
