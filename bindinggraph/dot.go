package bindinggraph

import (
	"io"

	"github.com/bindgraph/resolver/binding"
	"github.com/bindgraph/resolver/dot"
)

// WriteDOT renders result as a Graphviz DOT digraph of this Builder's
// sealed graph, one node per reachable binding and one edge per
// dependency, with deferred nodes and every Provider/Lazy-wrapped
// (deferrable) edge styled dashed, whether or not seal had to break that
// edge to resolve a cycle (spec.md §4.6's cycle-breaking pass made
// visible).
// It is purely a diagnostic aid: it does not change Seal's result and
// must be called after a successful Seal.
func (b *Builder) WriteDOT(w io.Writer, result *Result) error {
	deferred := make(map[string]bool, len(result.DeferredTypes))
	for _, k := range result.DeferredTypes {
		deferred[k.String()] = true
	}

	g := dot.Graph{Name: b.node.TypeKey.Render(true, false)}
	for _, k := range result.ReachableKeys {
		g.Nodes = append(g.Nodes, dot.Node{
			ID:       k.String(),
			Label:    k.Render(true, true),
			Deferred: deferred[k.String()],
		})

		bnd, ok := b.lk.GetStaticBinding(k)
		if !ok || bnd.Kind() == binding.KindAbsent {
			continue
		}
		for _, dep := range bnd.Dependencies() {
			if _, ok := b.lk.GetStaticBinding(dep.TypeKey); !ok {
				continue
			}
			g.Edges = append(g.Edges, dot.Edge{
				From:       k.String(),
				To:         dep.TypeKey.String(),
				Deferrable: dep.IsDeferrable(),
			})
		}
		if a, isAlias := bnd.(binding.Alias); isAlias {
			g.Edges = append(g.Edges, dot.Edge{From: k.String(), To: a.AliasedType.String()})
		}
	}

	return dot.Render(g, w)
}
