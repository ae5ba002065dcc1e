package pipeline

import (
	"encoding/json"

	"github.com/restitch/restitch/pkg/errors"
	"github.com/restitch/restitch/pkg/graph"
)

// snapshotRecord is the serialized form of one graph node. A read failure is
// flattened to its message; the structured cause does not survive a round
// trip through the cache.
type snapshotRecord struct {
	Key            string   `json:"key"`
	State          int      `json:"state"`
	Content        string   `json:"content,omitempty"`
	RawReferences  []string `json:"raw_references,omitempty"`
	Dependencies   []string `json:"dependencies,omitempty"`
	Unresolved     []string `json:"unresolved,omitempty"`
	DynamicCount   int      `json:"dynamic_count,omitempty"`
	MalformedCount int      `json:"malformed_count,omitempty"`
	Error          string   `json:"error,omitempty"`
}

func encodeSnapshot(s *graph.Snapshot) ([]byte, error) {
	records := make([]snapshotRecord, 0, s.NodeCount())
	for _, key := range s.Keys() {
		n, _ := s.Node(key)
		rec := snapshotRecord{
			Key:            n.Key,
			State:          int(n.State),
			Content:        n.Content,
			RawReferences:  n.RawReferences,
			Dependencies:   n.Dependencies,
			Unresolved:     n.Unresolved,
			DynamicCount:   n.DynamicCount,
			MalformedCount: n.MalformedCount,
		}
		if n.Err != nil {
			rec.Error = n.Err.Error()
		}
		records = append(records, rec)
	}
	return json.Marshal(records)
}

func decodeSnapshot(data []byte) (*graph.Snapshot, error) {
	var records []snapshotRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	nodes := make([]graph.SnapshotNode, 0, len(records))
	for _, rec := range records {
		n := graph.SnapshotNode{
			Key:            rec.Key,
			State:          graph.State(rec.State),
			Content:        rec.Content,
			RawReferences:  rec.RawReferences,
			Dependencies:   rec.Dependencies,
			Unresolved:     rec.Unresolved,
			DynamicCount:   rec.DynamicCount,
			MalformedCount: rec.MalformedCount,
		}
		if rec.Error != "" {
			n.Err = errors.New(errors.ErrCodeReadError, "%s", rec.Error)
		}
		nodes = append(nodes, n)
	}
	return graph.NewSnapshot(nodes), nil
}
