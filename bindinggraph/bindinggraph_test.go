package bindinggraph

import (
	"strings"
	"testing"

	"github.com/bindgraph/resolver/binding"
	"github.com/bindgraph/resolver/decl"
	"github.com/bindgraph/resolver/diag"
	"github.com/bindgraph/resolver/graphnode"
	"github.com/bindgraph/resolver/graphspec"
	"github.com/bindgraph/resolver/rawtype"
	"github.com/bindgraph/resolver/typekey"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tkey(name string, args ...rawtype.Type) typekey.TypeKey {
	return typekey.New(rawtype.Type{Name: name, Args: args}, nil)
}

type fakeFactories struct {
	m map[decl.ClassID]*graphspec.ClassFactory
}

func (f *fakeFactories) FindOrGenerate(class decl.ClassID, mayBeMissing bool) (*graphspec.ClassFactory, bool) {
	cf, ok := f.m[class]
	return cf, ok
}

// emptyParentContext is a ParentContext exposing no parent keys, for
// extension graphs whose tests don't exercise lazy parent lookups.
type emptyParentContext struct{}

func (emptyParentContext) AvailableKeys() []typekey.TypeKey { return nil }
func (emptyParentContext) Mark(typekey.TypeKey) (*graphspec.FieldAccess, bool) {
	return nil, false
}

func newNode(class decl.ClassID) *graphnode.Node {
	return &graphnode.Node{
		TypeKey:            tkey(string(class)),
		Class:              class,
		IncludedGraphNodes: map[string]*graphnode.Node{},
		ExtendedGraphNodes: map[string]*graphnode.Node{},
		GraphExtensions:    map[string]graphnode.GraphExtensionGroup{},
	}
}

// Scenario: simple satisfy. A constructor-injectable class is requested
// through one accessor and resolves with no diagnostics.
func TestSealSimpleSatisfy(t *testing.T) {
	t.Parallel()

	fooKey := tkey("com.example.Foo")
	node := newNode("com.example.AppGraph")
	node.Accessors = []graphspec.AccessorDecl{
		{Func: "getFoo", Decl: decl.Declaration{Name: "getFoo"}, Key: typekey.Contextual(fooKey)},
	}

	factories := &fakeFactories{m: map[decl.ClassID]*graphspec.ClassFactory{
		"com.example.Foo": {Class: "com.example.Foo", Declaration: decl.Declaration{Name: "<init>"}},
	}}
	sink := &diag.CollectingSink{}
	b := NewBuilder(node, factories, nil, sink, Options{})

	require.NoError(t, b.Seed())
	result, err := b.Seal()
	require.NoError(t, err)
	assert.False(t, sink.HasFatal())
	assert.Contains(t, result.ReachableKeys, fooKey)
	assert.Contains(t, result.SortedKeys, fooKey)

	var buf strings.Builder
	require.NoError(t, b.WriteDOT(&buf, result))
	assert.Contains(t, buf.String(), "digraph")
	assert.Contains(t, buf.String(), fooKey.String())
}

// Scenario: a cycle closed only through a Provider-wrapped edge is legal
// and broken, surfacing the wrapped side as deferred.
func TestSealProviderCycleIsBrokenAndDeferred(t *testing.T) {
	t.Parallel()

	aKey := tkey("com.example.A")
	bKey := tkey("com.example.B")
	node := newNode("com.example.AppGraph")
	node.Accessors = []graphspec.AccessorDecl{
		{Func: "getA", Decl: decl.Declaration{Name: "getA"}, Key: typekey.Contextual(aKey)},
	}

	factories := &fakeFactories{m: map[decl.ClassID]*graphspec.ClassFactory{
		"com.example.A": {
			Class:       "com.example.A",
			Declaration: decl.Declaration{Name: "<init>"},
			Params:      []typekey.ContextualTypeKey{{TypeKey: bKey, Wrapping: typekey.Provider}},
		},
		"com.example.B": {
			Class:       "com.example.B",
			Declaration: decl.Declaration{Name: "<init>"},
			Params:      []typekey.ContextualTypeKey{typekey.Contextual(aKey)},
		},
	}}
	sink := &diag.CollectingSink{}
	b := NewBuilder(node, factories, nil, sink, Options{})

	require.NoError(t, b.Seed())
	result, err := b.Seal()
	require.NoError(t, err)
	assert.False(t, sink.HasFatal())
	assert.Contains(t, result.DeferredTypes, bKey)
	assert.Contains(t, result.SortedKeys, aKey)
	assert.Contains(t, result.SortedKeys, bKey)
}

// Scenario: a cycle with no deferrable edge on either side is a fatal
// DependencyCycle.
func TestSealDirectCycleIsFatal(t *testing.T) {
	t.Parallel()

	aKey := tkey("com.example.A")
	bKey := tkey("com.example.B")
	node := newNode("com.example.AppGraph")
	node.Accessors = []graphspec.AccessorDecl{
		{Func: "getA", Decl: decl.Declaration{Name: "getA"}, Key: typekey.Contextual(aKey)},
	}

	factories := &fakeFactories{m: map[decl.ClassID]*graphspec.ClassFactory{
		"com.example.A": {
			Class:       "com.example.A",
			Declaration: decl.Declaration{Name: "<init>"},
			Params:      []typekey.ContextualTypeKey{typekey.Contextual(bKey)},
		},
		"com.example.B": {
			Class:       "com.example.B",
			Declaration: decl.Declaration{Name: "<init>"},
			Params:      []typekey.ContextualTypeKey{typekey.Contextual(aKey)},
		},
	}}
	sink := &diag.CollectingSink{}
	b := NewBuilder(node, factories, nil, sink, Options{})

	require.NoError(t, b.Seed())
	_, err := b.Seal()
	require.Error(t, err)
	kind, ok := diag.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, diag.KindDependencyCycle, kind)
}

// Scenario: two same-level provider factories for the same target report
// a non-fatal DuplicateBinding and keep the first-seen binding.
func TestSeedDuplicateProviderIsNonFatal(t *testing.T) {
	t.Parallel()

	fooKey := tkey("com.example.Foo")
	node := newNode("com.example.AppGraph")
	node.ProviderFactories = []graphspec.ProviderFactoryDecl{
		{Decl: decl.Declaration{Name: "provideFooOne"}, Result: fooKey},
		{Decl: decl.Declaration{Name: "provideFooTwo"}, Result: fooKey},
	}
	node.Accessors = []graphspec.AccessorDecl{
		{Func: "getFoo", Decl: decl.Declaration{Name: "getFoo"}, Key: typekey.Contextual(fooKey)},
	}

	sink := &diag.CollectingSink{}
	b := NewBuilder(node, nil, nil, sink, Options{})

	require.NoError(t, b.Seed())
	require.Len(t, sink.Diagnostics, 1)
	assert.Equal(t, diag.KindDuplicateBinding, sink.Diagnostics[0].Kind)
	assert.False(t, sink.HasFatal())

	bnd, ok := b.lk.GetStaticBinding(fooKey)
	require.True(t, ok)
	assert.Equal(t, "provideFooOne", bnd.ReportableDeclaration().Name)

	_, err := b.Seal()
	require.NoError(t, err)
}

// Scenario: a child graph's own provider for a type shadows an ancestor's
// unscoped provider for the same type.
func TestSeedChildProviderOverridesInheritedProvider(t *testing.T) {
	t.Parallel()

	fooKey := tkey("com.example.Foo")
	parent := newNode("com.example.Parent")
	parent.ProviderFactories = []graphspec.ProviderFactoryDecl{
		{Decl: decl.Declaration{Name: "provideFooParent"}, Result: fooKey},
	}

	child := newNode("com.example.Child")
	child.ProviderFactories = []graphspec.ProviderFactoryDecl{
		{Decl: decl.Declaration{Name: "provideFooChild"}, Result: fooKey},
	}
	child.ExtendedGraphNodes[parent.TypeKey.String()] = parent
	child.Accessors = []graphspec.AccessorDecl{
		{Func: "getFoo", Decl: decl.Declaration{Name: "getFoo"}, Key: typekey.Contextual(fooKey)},
	}

	sink := &diag.CollectingSink{}
	b := NewBuilder(child, nil, nil, sink, Options{ParentContext: emptyParentContext{}})

	require.NoError(t, b.Seed())
	assert.Empty(t, sink.Diagnostics)

	bnd, ok := b.lk.GetStaticBinding(fooKey)
	require.True(t, ok)
	assert.Equal(t, "provideFooChild", bnd.ReportableDeclaration().Name)
	assert.False(t, bnd.Inherited())

	_, err := b.Seal()
	require.NoError(t, err)
}

// Scenario: a non-empty-allowed multibinding with no contributions is a
// fatal EmptyMultibinding.
func TestSealEmptyMultibindingIsFatal(t *testing.T) {
	t.Parallel()

	setKey := tkey("kotlin.collections.Set", rawtype.Type{Name: "com.example.Foo"})
	node := newNode("com.example.AppGraph")
	node.MultibindsCallables = []graphspec.MultibindsDecl{
		{Decl: decl.Declaration{Name: "multibindFoos"}, Key: setKey, AllowEmpty: false},
	}

	sink := &diag.CollectingSink{}
	b := NewBuilder(node, nil, nil, sink, Options{ExtraKeeps: []typekey.TypeKey{setKey}})

	require.NoError(t, b.Seed())
	_, err := b.Seal()
	require.Error(t, err)
	kind, ok := diag.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, diag.KindEmptyMultibinding, kind)
}

// Scenario: a Provider<Lazy<T>>-wrapped dependency resolves to a
// GraphDependency binding (an included graph's accessor), which is a
// fatal ProviderOfLazyAcrossGraphDependency.
func TestSealProviderOfLazyAcrossGraphDependencyIsFatal(t *testing.T) {
	t.Parallel()

	fooKey := tkey("com.example.Foo")
	barKey := tkey("com.example.Bar")

	included := newNode("com.example.Included")
	included.Accessors = []graphspec.AccessorDecl{
		{Func: "getFoo", Decl: decl.Declaration{Name: "getFoo"}, Key: typekey.Contextual(fooKey)},
	}

	node := newNode("com.example.AppGraph")
	node.IncludedGraphNodes[included.TypeKey.String()] = included
	node.Accessors = []graphspec.AccessorDecl{
		{Func: "getBar", Decl: decl.Declaration{Name: "getBar"}, Key: typekey.Contextual(barKey)},
	}

	factories := &fakeFactories{m: map[decl.ClassID]*graphspec.ClassFactory{
		"com.example.Bar": {
			Class:       "com.example.Bar",
			Declaration: decl.Declaration{Name: "<init>"},
			Params:      []typekey.ContextualTypeKey{{TypeKey: fooKey, Wrapping: typekey.ProviderOfLazy}},
		},
	}}
	sink := &diag.CollectingSink{}
	b := NewBuilder(node, factories, nil, sink, Options{})

	require.NoError(t, b.Seed())
	_, err := b.Seal()
	require.Error(t, err)
	kind, ok := diag.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, diag.KindProviderOfLazyAcrossGraphDependency, kind)
}

// Scenario: an assisted constructor-injected binding requested directly
// as a root is a fatal AssistedInjectMisuse.
func TestSealAssistedRequestedDirectlyIsFatal(t *testing.T) {
	t.Parallel()

	fooKey := tkey("com.example.Foo")
	node := newNode("com.example.AppGraph")
	node.Accessors = []graphspec.AccessorDecl{
		{Func: "getFoo", Decl: decl.Declaration{Name: "getFoo"}, Key: typekey.Contextual(fooKey)},
	}

	factories := &fakeFactories{m: map[decl.ClassID]*graphspec.ClassFactory{
		"com.example.Foo": {
			Class:              "com.example.Foo",
			Declaration:        decl.Declaration{Name: "<init>"},
			IsAssisted:         true,
			AssistedParameters: []string{"id"},
		},
	}}
	sink := &diag.CollectingSink{}
	b := NewBuilder(node, factories, nil, sink, Options{})

	require.NoError(t, b.Seed())
	_, err := b.Seal()
	require.Error(t, err)
	kind, ok := diag.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, diag.KindAssistedInjectMisuse, kind)
}

// Scenario: an assisted constructor-injected binding is never requested
// as a root, but another binding injects it directly as a dependency —
// still a fatal AssistedInjectMisuse.
func TestSealAssistedNonRootDependentIsFatal(t *testing.T) {
	t.Parallel()

	fooKey := tkey("com.example.Foo")
	barKey := tkey("com.example.Bar")
	node := newNode("com.example.AppGraph")
	node.Accessors = []graphspec.AccessorDecl{
		{Func: "getBar", Decl: decl.Declaration{Name: "getBar"}, Key: typekey.Contextual(barKey)},
	}

	factories := &fakeFactories{m: map[decl.ClassID]*graphspec.ClassFactory{
		"com.example.Bar": {
			Class:       "com.example.Bar",
			Declaration: decl.Declaration{Name: "<init>"},
			Params:      []typekey.ContextualTypeKey{typekey.Contextual(fooKey)},
		},
		"com.example.Foo": {
			Class:              "com.example.Foo",
			Declaration:        decl.Declaration{Name: "<init>"},
			IsAssisted:         true,
			AssistedParameters: []string{"id"},
		},
	}}
	sink := &diag.CollectingSink{}
	b := NewBuilder(node, factories, nil, sink, Options{})

	require.NoError(t, b.Seed())
	_, err := b.Seal()
	require.Error(t, err)
	kind, ok := diag.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, diag.KindAssistedInjectMisuse, kind)
}

// Scenario: a Map<K,V> multibinding seeded from a @Provides-into-map
// function must expose a parallel Map<K, Provider<V>> binding with
// matching source bindings (spec.md §4.2).
func TestSeedMapMultibindingSyncsProviderWrappedCounterpart(t *testing.T) {
	t.Parallel()

	mapKeyType := rawtype.Type{Name: "kotlin.String"}
	node := newNode("com.example.AppGraph")
	node.ProviderFactories = []graphspec.ProviderFactoryDecl{
		{
			Decl:   decl.Declaration{Name: "provideFoo"},
			Result: tkey("com.example.Foo"),
			IntoMultibinding: &graphspec.MultibindingContribution{
				Kind:   binding.IntoMap,
				MapKey: &mapKeyType,
			},
		},
	}

	sink := &diag.CollectingSink{}
	b := NewBuilder(node, nil, nil, sink, Options{})
	require.NoError(t, b.Seed())

	mapKey, err := binding.MultibindingKey(binding.IntoMap, tkey("com.example.Foo"), &mapKeyType)
	require.NoError(t, err)

	mapBnd, ok := b.lk.GetStaticBinding(mapKey)
	require.True(t, ok)
	mapMb, isMb := mapBnd.(binding.Multibinding)
	require.True(t, isMb)
	require.Len(t, mapMb.SourceBindings, 1)

	providerKey := binding.MapOfProviderKey(mapKey)
	providerBnd, ok := b.lk.GetStaticBinding(providerKey)
	require.True(t, ok)
	providerMb, isMb := providerBnd.(binding.Multibinding)
	require.True(t, isMb)
	assert.True(t, providerMb.ProviderWrapped)
	assert.Equal(t, mapMb.SourceBindings, providerMb.SourceBindings)

	deps := providerMb.Dependencies()
	require.Len(t, deps, 1)
	assert.Equal(t, typekey.Provider, deps[0].Wrapping)
}
