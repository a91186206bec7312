// Package lookup implements spec.md §4.4's BindingLookup: on-demand
// resolution of a dependency that has no declared binding yet
// (constructor-injectable classes, lazy parent keys for graph
// extensions), plus the binding-storage primitives (putBinding,
// getStaticBinding, removeProvidedBinding, removeAliasBinding) §4.5's
// precedence logic is built on.
//
// Grounded on dig's on-demand constructor resolution (dig.go:
// Container.Provide / the provider cache populated lazily as keys are
// requested) and dig's deferred-call pattern for lazily-materialized
// work (Call(containerStore) error), generalized here into a named
// "lazy parent key" thunk per spec.md §9's explicit guidance ("Store as
// TypeKey -> thunk ... consumed at first call").
package lookup

import (
	"github.com/bindgraph/resolver/binding"
	"github.com/bindgraph/resolver/decl"
	"github.com/bindgraph/resolver/graphspec"
	"github.com/bindgraph/resolver/rawtype"
	"github.com/bindgraph/resolver/typekey"
)

// lazyParentKey is the deferred thunk of spec.md §9: it closes over a
// mutable parent-context handle and is consumed at most once.
type lazyParentKey struct {
	key           typekey.TypeKey
	ownerKey      typekey.TypeKey
	parentContext graphspec.ParentContext

	materialized bool
	result       binding.Binding
	ok           bool
}

func (l *lazyParentKey) materialize() (binding.Binding, bool) {
	if l.materialized {
		return l.result, l.ok
	}
	l.materialized = true

	access, marked := l.parentContext.Mark(l.key)
	if !marked {
		l.ok = false
		return nil, false
	}

	ctk := typekey.Contextual(l.key)
	l.result = binding.GraphDependency{
		Base: binding.Base{
			Type:       l.key,
			Contextual: ctk,
		},
		OwnerKey:  l.ownerKey,
		FieldName: access.Field,
	}
	l.ok = true
	return l.result, true
}

// Lookup is the BindingLookup of spec.md §4.4: it owns the graph's
// static-binding map (so putBinding/getStaticBinding/
// removeProvidedBinding/removeAliasBinding all operate on the same
// storage the on-demand Lookup call consults) plus the registry of lazy
// parent keys.
type Lookup struct {
	classFactories  graphspec.ClassFactoryFinder
	memberInjectors graphspec.MembersInjectorFinder
	icObserver      graphspec.IcObserver

	// bindings, extra, and lazyParentKeys are all keyed by
	// TypeKey.String() — TypeKey embeds rawtype.Type's recursive Args
	// slice and so isn't itself a comparable Go map key.
	bindings map[string]binding.Binding

	// extra holds every binding ever putBinding'd, including ones later
	// removed from bindings by the precedence logic — spec.md §4.4 "
	// available to similarity diagnostics even if they are never
	// reached."
	extra map[string]binding.Binding

	lazyParentKeys map[string]*lazyParentKey
}

// New constructs a BindingLookup bound to the given collaborators.
// icObserver may be nil, in which case lookups are not fingerprinted.
func New(classFactories graphspec.ClassFactoryFinder, memberInjectors graphspec.MembersInjectorFinder, icObserver graphspec.IcObserver) *Lookup {
	if icObserver == nil {
		icObserver = graphspec.NoopIcObserver{}
	}
	return &Lookup{
		classFactories:  classFactories,
		memberInjectors: memberInjectors,
		icObserver:      icObserver,
		bindings:        make(map[string]binding.Binding),
		extra:           make(map[string]binding.Binding),
		lazyParentKeys:  make(map[string]*lazyParentKey),
	}
}

// PutBinding records b as the static binding for k, and retains it for
// similarity diagnostics even if a later step removes it from the live
// bindings map (spec.md §4.4).
func (l *Lookup) PutBinding(k typekey.TypeKey, b binding.Binding) {
	l.bindings[k.String()] = b
	l.extra[k.String()] = b
}

// GetStaticBinding returns the currently live binding for k, if any.
func (l *Lookup) GetStaticBinding(k typekey.TypeKey) (binding.Binding, bool) {
	b, ok := l.bindings[k.String()]
	return b, ok
}

// RemoveProvidedBinding removes k's live binding iff it is a Provided
// binding (spec.md §4.5 step 3's "on current-wins, remove ... before
// inserting").
func (l *Lookup) RemoveProvidedBinding(k typekey.TypeKey) {
	key := k.String()
	if b, ok := l.bindings[key]; ok && b.Kind() == binding.KindProvided {
		delete(l.bindings, key)
	}
}

// RemoveAliasBinding removes k's live binding iff it is an Alias
// binding (spec.md §4.5 step 4's "remove the provider binding first" is
// the mirror case; this is the Alias-side removal used by step 3).
func (l *Lookup) RemoveAliasBinding(k typekey.TypeKey) {
	key := k.String()
	if b, ok := l.bindings[key]; ok && b.Kind() == binding.KindAlias {
		delete(l.bindings, key)
	}
}

// AllPut returns every binding ever recorded via PutBinding, including
// ones since removed from the live map — the similarity-diagnostic
// source set (spec.md §4.4). Each binding's own TypeKey() recovers the
// identity the string key stood in for.
func (l *Lookup) AllPut() map[string]binding.Binding {
	out := make(map[string]binding.Binding, len(l.extra))
	for k, v := range l.extra {
		out[k] = v
	}
	return out
}

// AllBindings returns a snapshot copy of every currently live static
// binding — used by seal's validation pass (spec.md §4.6 step 5) to
// walk the whole graph rather than just one request chain.
func (l *Lookup) AllBindings() map[string]binding.Binding {
	out := make(map[string]binding.Binding, len(l.bindings))
	for k, v := range l.bindings {
		out[k] = v
	}
	return out
}

// Shrink discards every live binding whose TypeKey is not in keep
// (spec.md §10.3 in SPEC_FULL.md, "WithShrinkUnused"). Bindings already
// recorded in extra are untouched, so similarity diagnostics still see
// the full history even after a graph has been shrunk.
func (l *Lookup) Shrink(keep []typekey.TypeKey) {
	keepSet := make(map[string]bool, len(keep))
	for _, k := range keep {
		keepSet[k.String()] = true
	}
	for k := range l.bindings {
		if !keepSet[k] {
			delete(l.bindings, k)
		}
	}
}

// HasBinding reports whether k is currently live (spec.md §4.4 rule 1).
func (l *Lookup) HasBinding(k typekey.TypeKey) bool {
	_, ok := l.bindings[k.String()]
	return ok
}

// RegisterLazyParentKey registers a lazy parent key for an extension
// graph (spec.md §4.5 step 12): it materializes to a GraphDependency
// binding owned by ownerKey only on first Lookup consumption.
func (l *Lookup) RegisterLazyParentKey(key typekey.TypeKey, ownerKey typekey.TypeKey, parentContext graphspec.ParentContext) {
	k := key.String()
	if _, exists := l.lazyParentKeys[k]; exists {
		return
	}
	l.lazyParentKeys[k] = &lazyParentKey{key: key, ownerKey: ownerKey, parentContext: parentContext}
}

// classForKey extracts the ClassID a plain (non-wrapped) TypeKey names.
// Constructor-injectable lookups only ever target a bare class
// reference, never a collection/wrapper TypeKey.
func classForKey(k typekey.TypeKey) decl.ClassID {
	return decl.ClassID(k.Type.Name)
}

// Lookup implements spec.md §4.4's on-demand resolution, in order.
// source identifies the requesting declaration, for IcObserver
// fingerprinting; it may be the zero ClassID when the request has no
// single attributable source (e.g. during graph-wide reachability
// sweeps).
func (l *Lookup) Lookup(ctk typekey.ContextualTypeKey, source decl.ClassID) ([]binding.Binding, error) {
	k := ctk.TypeKey

	// Rule 1: already present.
	if l.HasBinding(k) {
		return nil, nil
	}

	// Rule 2: constructor-injectable class.
	if l.classFactories != nil {
		if cf, ok := l.classFactories.FindOrGenerate(classForKey(k), true); ok {
			l.icObserver.TrackClassLookup(source, cf.Class)

			out := []binding.Binding{binding.ConstructorInjected{
				Base: binding.Base{
					Type:        k,
					Contextual:  typekey.Contextual(k),
					Deps:        cf.Params,
					Declaration: cf.Declaration,
				},
				Class:              cf.Class,
				IsAssisted:         cf.IsAssisted,
				AssistedParameters: cf.AssistedParameters,
			}}

			if l.memberInjectors != nil {
				for _, mi := range l.memberInjectors.FindOrGenerateAllFor(cf.Class) {
					miKey := typekey.New(rawtype.Type{Name: "MembersInjector", Args: []rawtype.Type{{Name: string(mi.Class)}}}, nil)
					out = append(out, binding.MembersInjected{
						Base: binding.Base{
							Type:       miKey,
							Contextual: typekey.Contextual(miKey),
							Deps:       mi.Params,
						},
						TargetClassID: mi.Class,
					})
				}
			}
			return out, nil
		}
	}

	// Rule 3: lazy parent key.
	if lp, ok := l.lazyParentKeys[k.String()]; ok {
		b, materialized := lp.materialize()
		if !materialized {
			return nil, nil
		}
		return []binding.Binding{b}, nil
	}

	// Rule 4: missing.
	return nil, nil
}
