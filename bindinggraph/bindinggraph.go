// Package bindinggraph implements spec.md §3.5/§4.5/§4.6's
// MutableBindingGraph: the per-graph seeding procedure (BindingGraphBuilder)
// and the seal algorithm that freezes a graph into a validated,
// deterministically ordered BindingGraphResult.
//
// Grounded on dig's Container construction sequence (dig.go:
// Container.Provide populates the provider map incrementally, much as
// seed populates bindings step by step) and dig's internal/graph-backed
// cycle detection (cycle.go), generalized to spec.md's richer seeding
// order, precedence rules, and deferred-cycle-breaking seal.
package bindinggraph

import (
	"sort"

	"github.com/bindgraph/resolver/decl"
	"github.com/bindgraph/resolver/diag"
	"github.com/bindgraph/resolver/graphnode"
	"github.com/bindgraph/resolver/graphspec"
	"github.com/bindgraph/resolver/lookup"
	"github.com/bindgraph/resolver/typekey"
)

// Result is spec.md §4.6 step 6 / §6's BindingGraphResult.
type Result struct {
	SortedKeys    []typekey.TypeKey
	DeferredTypes []typekey.TypeKey
	ReachableKeys []typekey.TypeKey

	// ExtraKeeps and ReservedFields are carried through per spec.md §6's
	// output list, alongside ManagedBindingContainers (for downstream
	// instance-field generation).
	ExtraKeeps []typekey.TypeKey

	// ReservedFields is keyed by TypeKey.String() — see pendingAlias's
	// doc comment below for why a TypeKey itself never keys a map here.
	ReservedFields           map[string]string
	ManagedBindingContainers []decl.ClassID
}

// Options configures one Builder run (spec.md §4.6 "Inputs": additional
// keeps, a shrink-unused flag; §6: the parent-context collaborator for
// extension graphs).
type Options struct {
	// ExtraKeeps are additional TypeKeys to treat as roots even though no
	// accessor or injector names them (spec.md §4.6 "additional keeps").
	ExtraKeeps []typekey.TypeKey

	// ShrinkUnused, when true, causes unreachable bindings to be dropped
	// from the frozen result entirely rather than merely excluded from
	// ReachableKeys (spec.md §10.3's WithShrinkUnused option in
	// SPEC_FULL.md).
	ShrinkUnused bool

	IcObserver    graphspec.IcObserver
	ParentContext graphspec.ParentContext
}

// Builder is spec.md §4.5's BindingGraphBuilder plus §4.6's seal,
// operating over one graph's Node.
type Builder struct {
	node            *graphnode.Node
	classFactories  graphspec.ClassFactoryFinder
	memberInjectors graphspec.MembersInjectorFinder
	sink            diag.Sink
	opts            Options

	lk *lookup.Lookup

	// pendingAlias is the supertype-alias staging map of spec.md §4.5
	// steps 2 and 8: first entry wins, committed to the graph at step 8.
	// Keyed by the alias source TypeKey's render string — TypeKey embeds
	// rawtype.Type's recursive Args slice and so isn't itself a
	// comparable Go map key; the entry carries the structured TypeKey
	// back out for construction at commit time.
	pendingAlias map[string]pendingAliasEntry

	accessorRoots []typekey.ContextualTypeKey
	injectorRoots []typekey.ContextualTypeKey

	managedBindingContainers []decl.ClassID
	reservedFields           map[string]string

	seededIncludedGraphOwner map[string]bool
}

// pendingAliasEntry is one staged-but-not-yet-committed supertype alias:
// From aliases to To.
type pendingAliasEntry struct {
	From typekey.TypeKey
	To   typekey.TypeKey
}

// NewBuilder constructs a Builder for node, reporting diagnostics to
// sink and resolving on-demand bindings through the given collaborators.
func NewBuilder(node *graphnode.Node, classFactories graphspec.ClassFactoryFinder, memberInjectors graphspec.MembersInjectorFinder, sink diag.Sink, opts Options) *Builder {
	return &Builder{
		node:                     node,
		classFactories:           classFactories,
		memberInjectors:          memberInjectors,
		sink:                     sink,
		opts:                     opts,
		lk:                       lookup.New(classFactories, memberInjectors, opts.IcObserver),
		pendingAlias:             make(map[string]pendingAliasEntry),
		reservedFields:           make(map[string]string),
		seededIncludedGraphOwner: make(map[string]bool),
	}
}

// ancestors returns every node this Builder's node transitively extends,
// nearest-first, deduplicated, in a deterministic order (sorted by
// TypeKey render — spec.md §4.6 "Ordering determinism").
func (b *Builder) ancestors() []*graphnode.Node {
	var out []*graphnode.Node
	seen := make(map[string]bool)
	var walk func(n *graphnode.Node)
	walk = func(n *graphnode.Node) {
		for _, p := range sortedNodes(n.ExtendedGraphNodes) {
			key := p.TypeKey.String()
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, p)
			walk(p)
		}
	}
	walk(b.node)
	return out
}

// sortedNodes returns m's values ordered by TypeKey render, since m is
// keyed by that same render string and Go map iteration order is
// otherwise unspecified (spec.md §4.6 "Ordering determinism").
func sortedNodes(m map[string]*graphnode.Node) []*graphnode.Node {
	out := make([]*graphnode.Node, 0, len(m))
	for _, n := range m {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TypeKey.Less(out[j].TypeKey) })
	return out
}

func sortClassIDs(ids []decl.ClassID) []decl.ClassID {
	out := append([]decl.ClassID(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// report forwards a non-fatal diagnostic (spec.md §7 "DuplicateBinding
// ... aggregated") to the sink without aborting seeding/seal.
func (b *Builder) report(d *diag.Diagnostic) {
	diag.Report(b.sink, d)
}

// fatal forwards a fatal diagnostic and returns the FatalError sentinel
// spec.md §5/§9 call "exitProcessing()".
func (b *Builder) fatal(d *diag.Diagnostic) error {
	return diag.Fatal(b.sink, d)
}
