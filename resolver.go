// Package resolver wires spec.md §2's data flow end to end: a
// GraphNodeCache builds the requested graph's DependencyGraphNode, a
// BindingGraphBuilder seeds and seals it, and the frozen
// BindingGraphResult is handed back to the caller.
//
// Grounded on dig's top-level Container/New/Option pattern (dig.go:
// New(opts ...Option) *Container, with functional options configuring
// constructorOptions before any Provide/Invoke call is made) — this
// package plays the same role Container does in dig, but composes
// graphnode and bindinggraph rather than owning construction itself.
package resolver

import (
	"github.com/bindgraph/resolver/bindinggraph"
	"github.com/bindgraph/resolver/decl"
	"github.com/bindgraph/resolver/diag"
	"github.com/bindgraph/resolver/graphnode"
	"github.com/bindgraph/resolver/graphspec"
	"github.com/bindgraph/resolver/typekey"
)

// Options configures a Resolver (spec.md §10.3 in SPEC_FULL.md).
type Options struct {
	RankedInterop bool
	ShrinkUnused  bool
	IcObserver    graphspec.IcObserver
	ParentContext graphspec.ParentContext
}

// Option mutates Options, dig's functional-option pattern (dig.go).
type Option func(*Options)

// WithRankedInterop enables spec.md §4.8 step 5's rank-based dedup when
// aggregating contributed binding containers.
func WithRankedInterop(enabled bool) Option {
	return func(o *Options) { o.RankedInterop = enabled }
}

// WithShrinkUnused causes Seal to drop unreachable bindings from the
// frozen result rather than merely excluding them from ReachableKeys
// (spec.md §4.6 "shrink unused flag").
func WithShrinkUnused(enabled bool) Option {
	return func(o *Options) { o.ShrinkUnused = enabled }
}

// WithIcObserver supplies the incremental-compilation fingerprinting
// collaborator (spec.md §6 "IcObserver").
func WithIcObserver(obs graphspec.IcObserver) Option {
	return func(o *Options) { o.IcObserver = obs }
}

// WithParentContext supplies the collaborator an extension graph's
// lookup consults to materialize parent-graph keys (spec.md §4.4 step 3,
// §6 "ParentContext"). Required only when resolving a generated
// extension graph class.
func WithParentContext(pc graphspec.ParentContext) Option {
	return func(o *Options) { o.ParentContext = pc }
}

// Resolver is the top-level entry point: one GraphNodeCache shared
// across every graph class resolved through it, per spec.md §4.7's
// memoization requirement.
type Resolver struct {
	cache *graphnode.Cache

	classFactories  graphspec.ClassFactoryFinder
	memberInjectors graphspec.MembersInjectorFinder
	sink            diag.Sink

	opts Options
}

// New constructs a Resolver bound to the given frontend collaborators.
// loader and contrib back the GraphNodeCache; classFactories,
// memberInjectors, and sink back every graph's BindingGraphBuilder.
func New(loader graphspec.Loader, contrib graphspec.ContributionIndex, classFactories graphspec.ClassFactoryFinder, memberInjectors graphspec.MembersInjectorFinder, sink diag.Sink, options ...Option) *Resolver {
	var opts Options
	for _, o := range options {
		o(&opts)
	}
	return &Resolver{
		cache:           graphnode.NewCache(loader, contrib, opts.RankedInterop),
		classFactories:  classFactories,
		memberInjectors: memberInjectors,
		sink:            sink,
		opts:            opts,
	}
}

// Resolve builds, seeds, and seals the binding graph for class, returning
// its frozen BindingGraphResult (spec.md §2's full pipeline). extraKeeps
// are additional TypeKeys to treat as roots even though no accessor or
// injector names them (spec.md §4.6 "additional keeps"). A fatal
// diagnostic aborts with a *diag.FatalError; non-fatal diagnostics
// (duplicate bindings) are reported to the Resolver's sink and do not
// stop processing.
func (r *Resolver) Resolve(class decl.ClassID, extraKeeps ...typekey.TypeKey) (*bindinggraph.Result, error) {
	node, err := r.cache.GetOrBuild(class)
	if err != nil {
		return nil, err
	}

	b := bindinggraph.NewBuilder(node, r.classFactories, r.memberInjectors, r.sink, bindinggraph.Options{
		ExtraKeeps:    extraKeeps,
		ShrinkUnused:  r.opts.ShrinkUnused,
		IcObserver:    r.opts.IcObserver,
		ParentContext: r.opts.ParentContext,
	})
	if err := b.Seed(); err != nil {
		return nil, err
	}
	return b.Seal()
}
