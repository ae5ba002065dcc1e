package report

import (
	"encoding/json"
	"io"

	"github.com/restitch/restitch/pkg/graph"
)

// jsonNode is the exported projection of one graph node.
type jsonNode struct {
	Key          string   `json:"key"`
	State        string   `json:"state"`
	Dependencies []string `json:"dependencies,omitempty"`
	Unresolved   []string `json:"unresolved,omitempty"`
	Dynamic      int      `json:"dynamic,omitempty"`
	Malformed    int      `json:"malformed,omitempty"`
	Error        string   `json:"error,omitempty"`
}

// jsonExport is the full machine-readable export.
type jsonExport struct {
	Summary *Summary   `json:"summary"`
	Order   []string   `json:"order"`
	Nodes   []jsonNode `json:"nodes"`
}

// WriteJSON writes the graph, linearization, and summary as indented JSON.
// Nodes are emitted in lexicographic key order, so identical runs produce
// byte-identical output.
func WriteJSON(w io.Writer, s *graph.Snapshot, lin graph.Linearization, sum *Summary) error {
	export := jsonExport{
		Summary: sum,
		Order:   lin.Order,
		Nodes:   make([]jsonNode, 0, s.NodeCount()),
	}

	for _, key := range s.Keys() {
		n, _ := s.Node(key)
		jn := jsonNode{
			Key:          key,
			State:        n.State.String(),
			Dependencies: n.Dependencies,
			Unresolved:   n.Unresolved,
			Dynamic:      n.DynamicCount,
			Malformed:    n.MalformedCount,
		}
		if n.Err != nil {
			jn.Error = n.Err.Error()
		}
		export.Nodes = append(export.Nodes, jn)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(export)
}
