package graph

import "slices"

// CycleGroup describes one detected circular dependency.
type CycleGroup struct {
	// Members holds the group's node keys in lexicographic order.
	Members []string
	// ExamplePath is one concrete cycle, a key sequence that starts and ends
	// on the same node (e.g. [a, b, a]). For a self-loop it is [a, a].
	ExamplePath []string
}

// Linearization is the deterministic processing order produced for a
// snapshot, plus the cycle groups found along the way.
type Linearization struct {
	// Order lists every node key such that for every edge whose endpoints
	// lie in distinct non-cyclic positions, the dependency precedes the
	// dependent. Members of a cycle group appear consecutively in
	// lexicographic order; that within-group order is a documented
	// approximation, not a dependency guarantee.
	Order []string
	// Cycles lists the detected cycle groups sorted by smallest member key.
	Cycles []CycleGroup
}

// Linearize computes the processing order of the snapshot.
//
// The snapshot's components are condensed (each cycle group collapses to a
// single condensed node) and the condensation is sorted with Kahn's
// algorithm. Whenever several condensed nodes are simultaneously eligible the
// lexicographically smallest representative key wins, so identical snapshots
// always linearize to byte-identical orders.
func Linearize(s *Snapshot) Linearization {
	comps := StronglyConnected(s)

	compOf := make(map[string]int, s.NodeCount())
	for i, c := range comps {
		for _, key := range c.Members {
			compOf[key] = i
		}
	}

	// Condensation edges, inverted to dependency → dependent so that Kahn
	// emits dependencies first. indegree counts distinct unprocessed
	// dependency components.
	dependents := make(map[int][]int, len(comps))
	indegree := make([]int, len(comps))
	seen := make(map[[2]int]bool)
	for key := range s.nodes {
		from := compOf[key]
		for _, dep := range s.Dependencies(key) {
			to := compOf[dep]
			if from == to {
				continue
			}
			if seen[[2]int{to, from}] {
				continue
			}
			seen[[2]int{to, from}] = true
			dependents[to] = append(dependents[to], from)
			indegree[from]++
		}
	}

	ready := &readySet{comps: comps}
	for i := range comps {
		if indegree[i] == 0 {
			ready.push(i)
		}
	}

	var lin Linearization
	for ready.len() > 0 {
		i := ready.popMin()
		lin.Order = append(lin.Order, comps[i].Members...)
		for _, dep := range dependents[i] {
			indegree[dep]--
			if indegree[dep] == 0 {
				ready.push(dep)
			}
		}
	}

	for _, c := range comps {
		if c.IsCycle() {
			lin.Cycles = append(lin.Cycles, CycleGroup{
				Members:     slices.Clone(c.Members),
				ExamplePath: examplePath(s, c),
			})
		}
	}
	return lin
}

// readySet tracks eligible condensed nodes and always yields the one with
// the lexicographically smallest representative key.
type readySet struct {
	comps []Component
	items []int
}

func (r *readySet) len() int   { return len(r.items) }
func (r *readySet) push(i int) { r.items = append(r.items, i) }
func (r *readySet) popMin() int {
	best := 0
	for j := 1; j < len(r.items); j++ {
		if r.comps[r.items[j]].Representative() < r.comps[r.items[best]].Representative() {
			best = j
		}
	}
	i := r.items[best]
	r.items = slices.Delete(r.items, best, best+1)
	return i
}

// examplePath walks the cycle group's internal edges from its smallest
// member back to itself, preferring the smallest neighbor at each step for
// determinism.
func examplePath(s *Snapshot, c Component) []string {
	start := c.Representative()
	if c.SelfLoop && len(c.Members) == 1 {
		return []string{start, start}
	}

	inGroup := make(map[string]bool, len(c.Members))
	for _, m := range c.Members {
		inGroup[m] = true
	}

	visited := map[string]bool{}
	var path []string
	var dfs func(cur string) bool
	dfs = func(cur string) bool {
		path = append(path, cur)
		visited[cur] = true
		deps := s.Dependencies(cur)
		slices.Sort(deps)
		for _, next := range deps {
			if !inGroup[next] {
				continue
			}
			if next == start && len(path) > 1 {
				path = append(path, start)
				return true
			}
			if !visited[next] {
				if dfs(next) {
					return true
				}
			}
		}
		path = path[:len(path)-1]
		return false
	}
	if dfs(start) {
		return path
	}
	return nil
}
