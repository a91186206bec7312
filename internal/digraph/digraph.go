// Package digraph implements the index-keyed binding-graph arena spec.md
// §9 calls for: "model it as an arena of bindings keyed by integer
// index, with adjacency: Vec<Vec<Ix>> built at seal time... Never store
// direct references between bindings; edges are indices."
//
// It also implements Tarjan's SCC algorithm and the deferred-edge-aware
// topological sort spec.md §4.6 step 4 / §9 describe for cycle breaking:
// an SCC of size > 1 is legal iff removing every edge whose requester is
// Provider/Lazy-wrapped (Edge.Deferrable) leaves it acyclic.
//
// Grounded on dig's internal/graph package (graph.go: a small directed
// graph abstraction used purely for cycle detection via DFS) and on
// dig's DFS-based cycleDetector (cycle.go), generalized from "detect and
// report" to "detect, break what's legally breakable, and produce a
// deterministic topological order" per spec.md's richer requirements.
package digraph

import "sort"

// Ix is a vertex index into a Graph's arena. Vertices are never
// identified by value inside this package; the TypeKey <-> Ix mapping
// is the caller's responsibility (bindinggraph keeps a parallel map).
type Ix int

// Edge is one directed edge, Deferrable marking whether the requester
// reached its target through a Provider/Lazy wrapping (spec.md
// "ContextualTypeKey.isDeferrable") and may therefore legally close a
// cycle.
type Edge struct {
	To         Ix
	Deferrable bool
}

// Graph is a growable directed multigraph over a fixed vertex count,
// adjacency-list represented.
type Graph struct {
	adjacency [][]Edge
}

// New allocates a Graph over n vertices (indices 0..n-1), with no
// edges.
func New(n int) *Graph {
	return &Graph{adjacency: make([][]Edge, n)}
}

// Order returns the number of vertices.
func (g *Graph) Order() int { return len(g.adjacency) }

// AddEdge records a directed edge from -> to.
func (g *Graph) AddEdge(from, to Ix, deferrable bool) {
	g.adjacency[from] = append(g.adjacency[from], Edge{To: to, Deferrable: deferrable})
}

// EdgesFrom returns v's outgoing edges, in insertion order.
func (g *Graph) EdgesFrom(v Ix) []Edge {
	return g.adjacency[v]
}

// Reachable runs a BFS from roots and returns, for every vertex, whether
// it was reached (spec.md §4.6 step 3).
func (g *Graph) Reachable(roots []Ix) []bool {
	visited := make([]bool, g.Order())
	queue := make([]Ix, 0, len(roots))
	for _, r := range roots {
		if !visited[r] {
			visited[r] = true
			queue = append(queue, r)
		}
	}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for _, e := range g.adjacency[v] {
			if !visited[e.To] {
				visited[e.To] = true
				queue = append(queue, e.To)
			}
		}
	}
	return visited
}

// SCCs computes the graph's strongly connected components via Tarjan's
// algorithm. Each returned component is a slice of vertex indices; a
// vertex with no cycle through it yields a singleton component.
func (g *Graph) SCCs() [][]Ix {
	t := &tarjanState{
		g:       g,
		index:   make([]int, g.Order()),
		low:     make([]int, g.Order()),
		onStack: make([]bool, g.Order()),
	}
	for i := range t.index {
		t.index[i] = -1
	}
	for v := Ix(0); v < Ix(g.Order()); v++ {
		if t.index[v] == -1 {
			t.strongConnect(v)
		}
	}
	return t.sccs
}

type tarjanState struct {
	g       *Graph
	index   []int
	low     []int
	onStack []bool
	stack   []Ix
	counter int
	sccs    [][]Ix
}

func (t *tarjanState) strongConnect(v Ix) {
	t.index[v] = t.counter
	t.low[v] = t.counter
	t.counter++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	for _, e := range t.g.adjacency[v] {
		w := e.To
		switch {
		case t.index[w] == -1:
			t.strongConnect(w)
			if t.low[w] < t.low[v] {
				t.low[v] = t.low[w]
			}
		case t.onStack[w]:
			if t.index[w] < t.low[v] {
				t.low[v] = t.index[w]
			}
		}
	}

	if t.low[v] != t.index[v] {
		return
	}
	var scc []Ix
	for {
		w := t.stack[len(t.stack)-1]
		t.stack = t.stack[:len(t.stack)-1]
		t.onStack[w] = false
		scc = append(scc, w)
		if w == v {
			break
		}
	}
	t.sccs = append(t.sccs, scc)
}

// CycleError reports a non-deferrable cycle (spec.md §7
// "DependencyCycle"): Members lists the vertices of the offending
// strongly-connected component, in Tarjan pop order (not necessarily a
// walkable path — callers render the cycle via BindingStack, which
// tracks the actual request order separately).
type CycleError struct {
	Members []Ix
}

func (e *CycleError) Error() string {
	return "non-deferrable dependency cycle"
}

// Seal computes spec.md §4.6 step 4's cycle-break + topological sort
// over vertices (callers pass reachableKeys's indices). less must be a
// strict, total, deterministic order (by TypeKey render) used only to
// break ties among vertices with no ordering constraint between them —
// required so two runs with identical inputs produce byte-identical
// output (spec.md §8 "Determinism").
//
// Seal removes, SCC by SCC, every Deferrable edge whose endpoints both
// lie in a size>1 (or self-looped) component; the edge's destination is
// recorded in Deferred. If a component remains cyclic after every
// deferrable edge within it is removed, Seal returns a *CycleError
// naming that component — no partial order is computed.
func (g *Graph) Seal(vertices []Ix, less func(a, b Ix) bool) (order []Ix, deferred []Ix, err error) {
	inSet := make([]bool, g.Order())
	for _, v := range vertices {
		inSet[v] = true
	}

	sccOf := make([]int, g.Order())
	for i := range sccOf {
		sccOf[i] = -1
	}
	sccs := g.SCCs()
	for i, scc := range sccs {
		for _, v := range scc {
			sccOf[v] = i
		}
	}

	deferredSet := make(map[Ix]bool)
	removedEdge := make(map[[2]Ix]bool)

	for i, scc := range sccs {
		members := make(map[Ix]bool, len(scc))
		for _, v := range scc {
			members[v] = true
		}

		hasInternalCycle := len(scc) > 1
		if !hasInternalCycle {
			v := scc[0]
			for _, e := range g.adjacency[v] {
				if e.To == v {
					hasInternalCycle = true
					break
				}
			}
		}
		if !hasInternalCycle {
			continue
		}

		var anyDeferred bool
		for _, v := range scc {
			for _, e := range g.adjacency[v] {
				if !members[e.To] {
					continue
				}
				if e.Deferrable {
					deferredSet[e.To] = true
					removedEdge[[2]Ix{v, e.To}] = true
					anyDeferred = true
				}
			}
		}

		if !anyDeferred {
			return nil, nil, &CycleError{Members: scc}
		}

		if residual := sccResidualCycle(g, members, removedEdge); residual != nil {
			return nil, nil, &CycleError{Members: residual}
		}
		_ = i
	}

	sorted, err := kahn(g, vertices, inSet, removedEdge, less)
	if err != nil {
		return nil, nil, err
	}

	deferredOut := make([]Ix, 0, len(deferredSet))
	for v := range deferredSet {
		deferredOut = append(deferredOut, v)
	}
	sort.Slice(deferredOut, func(i, j int) bool {
		if less != nil {
			return less(deferredOut[i], deferredOut[j])
		}
		return deferredOut[i] < deferredOut[j]
	})

	return sorted, deferredOut, nil
}

// sccResidualCycle re-checks one component's induced subgraph, minus
// edges already slated for removal, for a remaining cycle. Returns the
// offending component's members if one persists, else nil.
func sccResidualCycle(g *Graph, members map[Ix]bool, removedEdge map[[2]Ix]bool) []Ix {
	n := g.Order()
	reduced := New(n)
	for v := range members {
		for _, e := range g.adjacency[v] {
			if !members[e.To] {
				continue
			}
			if removedEdge[[2]Ix{v, e.To}] {
				continue
			}
			reduced.AddEdge(v, e.To, e.Deferrable)
		}
	}
	for _, scc := range reduced.SCCs() {
		if len(scc) <= 1 {
			v := scc[0]
			self := false
			for _, e := range reduced.adjacency[v] {
				if e.To == v {
					self = true
				}
			}
			if !self {
				continue
			}
		}
		if !members[scc[0]] {
			continue
		}
		return scc
	}
	return nil
}

// kahn computes a deterministic topological order over vertices using
// Kahn's algorithm restricted to the given vertex set and with
// removedEdge edges excluded, breaking ties with less.
func kahn(g *Graph, vertices []Ix, inSet []bool, removedEdge map[[2]Ix]bool, less func(a, b Ix) bool) ([]Ix, error) {
	// spec.md's edges point requester -> dependency, and sortedKeys must
	// satisfy "index(u) > index(v)" for every edge u->v (the dependency
	// v is emitted before its requester u). So a vertex is emitted once
	// every vertex it points to (its dependencies) has already been
	// emitted: track in-degree over the *reverse* graph.
	order := make([]Ix, 0, len(vertices))
	reverseIndegree := make(map[Ix]int, len(vertices))
	for _, v := range vertices {
		reverseIndegree[v] = 0
	}
	for _, v := range vertices {
		for _, e := range g.adjacency[v] {
			if !inSet[e.To] || removedEdge[[2]Ix{v, e.To}] {
				continue
			}
			reverseIndegree[v]++
		}
	}
	var frontier []Ix
	for _, v := range vertices {
		if reverseIndegree[v] == 0 {
			frontier = append(frontier, v)
		}
	}

	dependents := make(map[Ix][]Ix, len(vertices))
	for _, v := range vertices {
		for _, e := range g.adjacency[v] {
			if !inSet[e.To] || removedEdge[[2]Ix{v, e.To}] {
				continue
			}
			dependents[e.To] = append(dependents[e.To], v)
		}
	}

	visited := make(map[Ix]bool, len(vertices))
	for len(frontier) > 0 {
		sort.Slice(frontier, func(i, j int) bool {
			if less != nil {
				return less(frontier[i], frontier[j])
			}
			return frontier[i] < frontier[j]
		})
		v := frontier[0]
		frontier = frontier[1:]
		if visited[v] {
			continue
		}
		visited[v] = true
		order = append(order, v)
		for _, dep := range dependents[v] {
			reverseIndegree[dep]--
			if reverseIndegree[dep] == 0 {
				frontier = append(frontier, dep)
			}
		}
	}

	if len(order) != len(vertices) {
		// Residual cycle not caught by the SCC pass above (should not
		// happen given Seal's prior validation); surface it rather than
		// silently truncate the order.
		var remaining []Ix
		for _, v := range vertices {
			if !visited[v] {
				remaining = append(remaining, v)
			}
		}
		return nil, &CycleError{Members: remaining}
	}

	return order, nil
}
