// Package dot renders a sealed binding graph as Graphviz DOT, an
// additional capability spec.md's operations never name but its
// "downstream code-gen (out of scope) consumes these" framing implies is
// useful for diagnosing the same SCC/deferred-cycle structure spec.md
// §4.6 describes.
//
// Grounded on dig's internal/dot (referenced from dig.go's createGraph /
// ProvideInfo, which projects a Container's providers into a renderable
// node/edge list) and, for the textual DOT writer itself, on OpenTofu's
// internal/dag/graphviz renderer — both reduce a graph abstraction to
// quoted "node -> node" lines with a handful of style attributes; this
// package keeps that shape and adds styling for the one distinction this
// domain cares about: a deferred (Provider/Lazy-broken) edge renders
// dashed rather than solid.
package dot

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// Node is one renderable vertex: a binding's rendered TypeKey plus
// whether it was deferred by seal's cycle-breaking pass.
type Node struct {
	ID       string
	Label    string
	Deferred bool
}

// Edge is one renderable dependency edge: From depends on To.
// Deferrable marks an edge seal may have broken to resolve a cycle.
type Edge struct {
	From, To   string
	Deferrable bool
}

// Graph is the renderable projection of a sealed binding graph, fully
// decoupled from package bindinggraph's own types so this package never
// needs to import it.
type Graph struct {
	Name  string
	Nodes []Node
	Edges []Edge
}

// Render writes g as a Graphviz DOT digraph to w. Node and edge order is
// sorted by ID/From-To pair so that two renders of the same Graph value
// are byte-identical, consistent with spec.md §4.6's determinism intent.
func Render(g Graph, w io.Writer) error {
	nodes := append([]Node(nil), g.Nodes...)
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

	edges := append([]Edge(nil), g.Edges...)
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})

	var b strings.Builder
	name := g.Name
	if name == "" {
		name = "bindinggraph"
	}
	fmt.Fprintf(&b, "digraph %q {\n", name)
	b.WriteString("\trankdir=LR;\n")

	for _, n := range nodes {
		style := "solid"
		if n.Deferred {
			style = "dashed"
		}
		fmt.Fprintf(&b, "\t%q [label=%q, style=%q];\n", n.ID, n.Label, style)
	}
	for _, e := range edges {
		style := "solid"
		if e.Deferrable {
			style = "dashed"
		}
		fmt.Fprintf(&b, "\t%q -> %q [style=%q];\n", e.From, e.To, style)
	}
	b.WriteString("}\n")

	_, err := io.WriteString(w, b.String())
	return err
}
