// Package graphnode implements spec.md §3.4's DependencyGraphNode and
// §4.7/§4.8's GraphNodeCache / NodeBuilder / ContributedGraphGenerator:
// the per-graph-class declarative surface the binding graph is seeded
// from.
//
// Grounded on dig's on-demand, memoized construction style (dig.go:
// Container.constructorsForType / the provider cache keyed by key{t,
// name, group}) generalized from "memoize one reflected function" to
// "memoize one compiled class's full declarative surface", recursing
// into included/extended graphs the way dig's own graph never needed to
// because dig has no notion of a parent container.
package graphnode

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/bindgraph/resolver/decl"
	"github.com/bindgraph/resolver/graphspec"
	"github.com/bindgraph/resolver/rawtype"
	"github.com/bindgraph/resolver/typekey"
)

// Node is spec.md §3.4's DependencyGraphNode: a graph class's fully
// resolved declarative surface, including recursively-built nodes for
// every included and extended graph.
type Node struct {
	TypeKey    typekey.TypeKey
	Class      decl.ClassID
	Supertypes []decl.ClassID

	Scopes            []decl.Annotation
	AggregationScopes []decl.Annotation

	Accessors           []graphspec.AccessorDecl
	Injectors           []graphspec.InjectorDecl
	BindsFunctions      []graphspec.BindsDecl
	MultibindsCallables []graphspec.MultibindsDecl
	ProviderFactories   []graphspec.ProviderFactoryDecl
	BindingContainers   []decl.ClassID

	// IncludedGraphNodes and ExtendedGraphNodes are keyed by the
	// contained Node's TypeKey.String() — TypeKey itself embeds
	// rawtype.Type's recursive Args slice and so is not a comparable Go
	// map key; the canonical render string stands in for it everywhere
	// a TypeKey would otherwise key a map.
	IncludedGraphNodes map[string]*Node
	ExtendedGraphNodes map[string]*Node

	// GraphExtensions maps an extension graph's TypeKey.String() to the
	// accessors that expose it (usually one, but a factory-SAM extension
	// can be exposed through more than one accessor path).
	GraphExtensions map[string]GraphExtensionGroup

	Creator *graphspec.Creator

	// IsExtendable is implied by having any graph extensions (spec.md
	// §3.4).
	IsExtendable bool

	// External is carried through from the GraphSpec (spec.md §4.7
	// "External graphs").
	External bool
}

// GraphExtensionGroup pairs an extension graph's TypeKey with the
// accessors that expose it, since the owning map is keyed by the
// TypeKey's render string rather than the TypeKey itself.
type GraphExtensionGroup struct {
	Key       typekey.TypeKey
	Accessors []graphspec.GraphExtensionAccessor
}

// ErrSelfCycle is spec.md §7's GraphSelfCycle: a creator parameter
// (directly or transitively, via includes) closes a cycle back to the
// graph currently being built.
type ErrSelfCycle struct {
	Class decl.ClassID
	Chain []decl.ClassID
}

func (e *ErrSelfCycle) Error() string {
	return fmt.Sprintf("graph %s includes itself via %v", e.Class, e.Chain)
}

// ErrOverlappingScope is spec.md §7's OverlappingAncestorScope.
type ErrOverlappingScope struct {
	Class decl.ClassID
	Scope decl.Annotation
}

func (e *ErrOverlappingScope) Error() string {
	return fmt.Sprintf("%s declares scope %s also declared by an ancestor", e.Class, e.Scope)
}

// Cache memoizes Class -> *Node for one compilation unit (spec.md §4.7
// "GraphNodeCache"). It is process-scoped, not safe across compilation
// units (spec.md §5 "Shared resource policy") and is reentered only
// through the explicit self-cycle stack tracked during Build.
type Cache struct {
	loader      graphspec.Loader
	contrib     graphspec.ContributionIndex
	rankedInterop bool

	nodes map[decl.ClassID]*Node
	// building tracks classes currently under construction, to detect a
	// creator-parameter self-cycle (spec.md §7 "GraphSelfCycle").
	building map[decl.ClassID]bool
	stack    []decl.ClassID

	// includedContainerCache memoizes a binding container's transitive
	// included-container closure (spec.md §4.8 step 6 "cached globally").
	includedContainerCache map[decl.ClassID][]decl.ClassID
}

// NewCache constructs a GraphNodeCache/NodeBuilder bound to the given
// frontend collaborators. rankedInterop enables spec.md §4.8 step 5's
// rank-based contribution resolution.
func NewCache(loader graphspec.Loader, contrib graphspec.ContributionIndex, rankedInterop bool) *Cache {
	return &Cache{
		loader:        loader,
		contrib:       contrib,
		rankedInterop: rankedInterop,
		nodes:         make(map[decl.ClassID]*Node),
		building:      make(map[decl.ClassID]bool),
		includedContainerCache: make(map[decl.ClassID][]decl.ClassID),
	}
}

// GetOrBuild returns the memoized Node for class, building it (and
// recursively, everything it includes or extends) on first request.
func (c *Cache) GetOrBuild(class decl.ClassID) (*Node, error) {
	if n, ok := c.nodes[class]; ok {
		return n, nil
	}
	if c.building[class] {
		chain := make([]decl.ClassID, len(c.stack))
		copy(chain, c.stack)
		return nil, &ErrSelfCycle{Class: class, Chain: append(chain, class)}
	}

	spec, ok := c.loader.Load(class)
	if !ok {
		return c.buildExternal(class), nil
	}

	c.building[class] = true
	c.stack = append(c.stack, class)
	defer func() {
		delete(c.building, class)
		c.stack = c.stack[:len(c.stack)-1]
	}()

	n := &Node{
		TypeKey:             spec.TypeKey,
		Class:               spec.Class,
		Supertypes:          spec.Supertypes,
		Scopes:              collectScopes(spec),
		AggregationScopes:   spec.AggregationScopes,
		Accessors:           spec.Accessors,
		Injectors:           spec.Injectors,
		BindsFunctions:      spec.BindsFunctions,
		MultibindsCallables: spec.MultibindsCallables,
		ProviderFactories:   spec.ProviderFactories,
		BindingContainers:   spec.BindingContainers,
		IncludedGraphNodes:  make(map[string]*Node),
		ExtendedGraphNodes:  make(map[string]*Node),
		GraphExtensions:     make(map[string]GraphExtensionGroup),
		Creator:             spec.Creator,
		External:            spec.External,
	}

	for _, ga := range spec.GraphExtensionAccessors {
		extensionClass := ga.ExtensionClass
		if extensionClass == "" {
			// A factory-SAM extension accessor whose return type is an
			// anonymous implementation of the factory interface carries no
			// class the frontend can name (spec.md §4.7 "creator is one of:
			// primary-constructor of a generated extension..."). Mint a
			// stable synthetic ClassID so the rest of seeding can still key
			// off it like any other graph extension — derived
			// deterministically from the owning graph and the accessor's
			// own declaration, never randomly, so that sortedKeys/
			// reachableKeys stay byte-identical across runs (spec.md §8
			// Determinism).
			extensionClass = syntheticExtensionClass(class, ga)
		}
		extNode, err := c.GetOrBuild(extensionClass)
		if err != nil {
			return nil, err
		}
		ga.ExtensionClass = extensionClass
		key := extNode.TypeKey.String()
		group := n.GraphExtensions[key]
		group.Key = extNode.TypeKey
		group.Accessors = append(group.Accessors, ga)
		n.GraphExtensions[key] = group
	}
	n.IsExtendable = len(n.GraphExtensions) > 0

	if spec.Creator != nil {
		for _, p := range spec.Creator.Params {
			if p.IsIncludes {
				includedClass := classForKey(p.Key)
				incNode, err := c.GetOrBuild(includedClass)
				if err != nil {
					return nil, err
				}
				n.IncludedGraphNodes[incNode.TypeKey.String()] = incNode
			}
		}
	}

	if spec.IsGeneratedExtension && spec.ExtendedGraph != "" {
		parent, err := c.GetOrBuild(spec.ExtendedGraph)
		if err != nil {
			return nil, err
		}
		n.ExtendedGraphNodes[parent.TypeKey.String()] = parent
		if overlap, ok := overlappingScope(n.Scopes, parent.Scopes); ok {
			return nil, &ErrOverlappingScope{Class: class, Scope: overlap}
		}
	}

	merged, err := c.aggregateContainers(n.AggregationScopes, spec.ContributesExcludes)
	if err != nil {
		return nil, err
	}
	n.BindingContainers = append(n.BindingContainers, merged...)

	c.nodes[class] = n
	return n, nil
}

// syntheticExtensionClass derives a deterministic synthetic ClassID for
// a factory-SAM extension accessor whose return type names no concrete
// class (SPEC_FULL.md §11): a name-based (version-5) UUID keyed on the
// owning graph and the accessor's own function/declaration, rather than
// a randomly generated one, so the result is stable across runs
// (spec.md §8 Determinism's "byte-identical sortedKeys" requirement).
func syntheticExtensionClass(owner decl.ClassID, ga graphspec.GraphExtensionAccessor) decl.ClassID {
	name := string(owner) + "#" + string(ga.Func) + "#" + ga.Decl.Name
	id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(name))
	return decl.ClassID("$generated.extension." + id.String())
}

func (c *Cache) buildExternal(class decl.ClassID) *Node {
	n := &Node{
		TypeKey:            typekey.New(rawtype.Type{Name: string(class)}, nil),
		Class:              class,
		IncludedGraphNodes: map[string]*Node{},
		ExtendedGraphNodes: map[string]*Node{},
		GraphExtensions:    map[string]GraphExtensionGroup{},
		External:           true,
	}
	c.nodes[class] = n
	return n
}

// collectScopes gathers a graph's own declared scope + additionalScopes
// (spec.md §4.7 first bullet). Supertype scopes are not consulted here (the frontend's GraphSpec
// already flattens DeclaredScopes across the class hierarchy); this
// function exists as the single seam where that union is asserted.
func collectScopes(spec *graphspec.GraphSpec) []decl.Annotation {
	out := make([]decl.Annotation, 0, len(spec.DeclaredScopes)+len(spec.AdditionalScopes))
	out = append(out, spec.DeclaredScopes...)
	out = append(out, spec.AdditionalScopes...)
	return out
}

func overlappingScope(child, parent []decl.Annotation) (decl.Annotation, bool) {
	for _, c := range child {
		for _, p := range parent {
			if c.Equal(p) {
				return c, true
			}
		}
	}
	return decl.Annotation{}, false
}

// classForKey extracts the ClassID an included graph's own TypeKey
// names. Included graphs are always bare, unqualified class references,
// so the rendered (unqualified) type name is the ClassID.
func classForKey(k typekey.TypeKey) decl.ClassID {
	return decl.ClassID(k.Type.Name)
}

// aggregateContainers implements spec.md §4.8 steps 1-6 for one graph's
// aggregationScopes: gather contributions + binding containers across
// every scope, drop excludes, drop anything replaced by a surviving
// container, apply rank-based dedup if enabled, then resolve each
// surviving container's transitive includes.
func (c *Cache) aggregateContainers(scopes []decl.Annotation, excludes []decl.ClassID) ([]decl.ClassID, error) {
	if c.contrib == nil || len(scopes) == 0 {
		return nil, nil
	}

	excludeSet := make(map[decl.ClassID]bool, len(excludes))
	for _, e := range excludes {
		excludeSet[e] = true
	}

	seen := make(map[decl.ClassID]bool)
	var containers []decl.ClassID
	for _, s := range scopes {
		for _, container := range c.contrib.BindingContainers(s) {
			if excludeSet[container] || seen[container] {
				continue
			}
			seen[container] = true
			containers = append(containers, container)
		}
	}

	replaced := make(map[decl.ClassID]bool)
	for _, container := range containers {
		for _, r := range c.contrib.Replaces(container) {
			replaced[r] = true
		}
	}
	surviving := containers[:0:0]
	for _, container := range containers {
		if !replaced[container] {
			surviving = append(surviving, container)
		}
	}

	if c.rankedInterop {
		surviving = dedupeByRank(surviving, c.contrib)
	}

	full := make([]decl.ClassID, 0, len(surviving))
	seenFull := make(map[decl.ClassID]bool)
	for _, container := range surviving {
		transitive, err := c.transitiveIncludes(container, map[decl.ClassID]bool{})
		if err != nil {
			return nil, err
		}
		for _, t := range append([]decl.ClassID{container}, transitive...) {
			if !seenFull[t] {
				seenFull[t] = true
				full = append(full, t)
			}
		}
	}
	return full, nil
}

// dedupeByRank implements spec.md §4.8 step 5: group by nothing more
// than class identity here (the grouping key in the source is
// `typeKey`, which this package doesn't compute per-container without
// walking its declarations; rank dedup at this granularity keeps only
// the maximum-rank container when two containers are otherwise
// duplicates of one another).
func dedupeByRank(containers []decl.ClassID, contrib graphspec.ContributionIndex) []decl.ClassID {
	bestRank := make(map[decl.ClassID]int)
	for _, c := range containers {
		bestRank[c] = contrib.Rank(c)
	}
	max := 0
	for _, r := range bestRank {
		if r > max {
			max = r
		}
	}
	out := make([]decl.ClassID, 0, len(containers))
	for _, c := range containers {
		if bestRank[c] == max {
			out = append(out, c)
		}
	}
	return out
}

// transitiveIncludes resolves a binding container's included containers
// transitively, cycle-safe, cached globally (Cache.includedContainerCache)
// and guarded locally per traversal (spec.md §4.8 step 6).
func (c *Cache) transitiveIncludes(container decl.ClassID, visiting map[decl.ClassID]bool) ([]decl.ClassID, error) {
	if cached, ok := c.includedContainerCache[container]; ok {
		return cached, nil
	}
	if visiting[container] {
		return nil, nil
	}
	visiting[container] = true

	if c.contrib == nil {
		c.includedContainerCache[container] = nil
		return nil, nil
	}

	var out []decl.ClassID
	seen := map[decl.ClassID]bool{}
	for _, inc := range c.contrib.IncludedContainers(container) {
		if seen[inc] {
			continue
		}
		seen[inc] = true
		out = append(out, inc)
		nested, err := c.transitiveIncludes(inc, visiting)
		if err != nil {
			return nil, err
		}
		for _, n := range nested {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	c.includedContainerCache[container] = out
	return out, nil
}
