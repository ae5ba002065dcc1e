package graph

import "slices"

// Component is a strongly connected component of the snapshot. A component
// with more than one member, or a single member with a self-loop, is a cycle
// group; everything else is trivial.
type Component struct {
	// Members holds the component's node keys in lexicographic order.
	Members []string
	// SelfLoop is set for singleton components whose node depends on itself.
	SelfLoop bool
}

// Representative returns the lexicographically smallest member key. It is
// used as the component's identity for deterministic condensation sorting.
func (c Component) Representative() string { return c.Members[0] }

// IsCycle reports whether the component is a cycle group.
func (c Component) IsCycle() bool { return len(c.Members) > 1 || c.SelfLoop }

// StronglyConnected computes the strongly connected components of the
// snapshot using Tarjan's algorithm, in one pass linear in nodes plus edges.
//
// Node and neighbor iteration order is fixed (lexicographic), so the result
// is deterministic for identical snapshots. Components are returned sorted
// by representative key.
func StronglyConnected(s *Snapshot) []Component {
	t := &tarjan{
		snap:    s,
		index:   make(map[string]int, s.NodeCount()),
		lowlink: make(map[string]int, s.NodeCount()),
		onStack: make(map[string]bool, s.NodeCount()),
	}
	for _, key := range s.Keys() {
		if _, seen := t.index[key]; !seen {
			t.strongConnect(key)
		}
	}

	comps := t.components
	for i := range comps {
		slices.Sort(comps[i].Members)
		if len(comps[i].Members) == 1 {
			k := comps[i].Members[0]
			comps[i].SelfLoop = slices.Contains(s.Dependencies(k), k)
		}
	}
	slices.SortFunc(comps, func(a, b Component) int {
		switch {
		case a.Representative() < b.Representative():
			return -1
		case a.Representative() > b.Representative():
			return 1
		default:
			return 0
		}
	})
	return comps
}

type tarjan struct {
	snap       *Snapshot
	counter    int
	index      map[string]int
	lowlink    map[string]int
	onStack    map[string]bool
	stack      []string
	components []Component
}

func (t *tarjan) strongConnect(v string) {
	t.index[v] = t.counter
	t.lowlink[v] = t.counter
	t.counter++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	deps := t.snap.Dependencies(v)
	slices.Sort(deps)
	for _, w := range deps {
		if _, seen := t.index[w]; !seen {
			t.strongConnect(w)
			t.lowlink[v] = min(t.lowlink[v], t.lowlink[w])
		} else if t.onStack[w] {
			t.lowlink[v] = min(t.lowlink[v], t.index[w])
		}
	}

	if t.lowlink[v] == t.index[v] {
		var members []string
		for {
			w := t.stack[len(t.stack)-1]
			t.stack = t.stack[:len(t.stack)-1]
			t.onStack[w] = false
			members = append(members, w)
			if w == v {
				break
			}
		}
		t.components = append(t.components, Component{Members: members})
	}
}
