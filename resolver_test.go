package resolver

import (
	"testing"

	"github.com/bindgraph/resolver/decl"
	"github.com/bindgraph/resolver/diag"
	"github.com/bindgraph/resolver/graphspec"
	"github.com/bindgraph/resolver/rawtype"
	"github.com/bindgraph/resolver/typekey"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLoader struct {
	specs map[decl.ClassID]*graphspec.GraphSpec
}

func (f *fakeLoader) Load(class decl.ClassID) (*graphspec.GraphSpec, bool) {
	s, ok := f.specs[class]
	return s, ok
}

type fakeFactories struct {
	m map[decl.ClassID]*graphspec.ClassFactory
}

func (f *fakeFactories) FindOrGenerate(class decl.ClassID, mayBeMissing bool) (*graphspec.ClassFactory, bool) {
	cf, ok := f.m[class]
	return cf, ok
}

func typeKeyFor(name string) typekey.TypeKey {
	return typekey.New(rawtype.Type{Name: name}, nil)
}

func TestResolverResolveEndToEnd(t *testing.T) {
	t.Parallel()

	loader := &fakeLoader{specs: map[decl.ClassID]*graphspec.GraphSpec{
		"com.example.AppGraph": {
			TypeKey: typeKeyFor("com.example.AppGraph"),
			Class:   "com.example.AppGraph",
			Accessors: []graphspec.AccessorDecl{
				{Func: "getFoo", Decl: decl.Declaration{Name: "getFoo"}, Key: typekey.Contextual(typeKeyFor("com.example.Foo"))},
			},
		},
	}}
	factories := &fakeFactories{m: map[decl.ClassID]*graphspec.ClassFactory{
		"com.example.Foo": {Class: "com.example.Foo", Declaration: decl.Declaration{Name: "<init>"}},
	}}
	sink := &diag.CollectingSink{}

	r := New(loader, nil, factories, nil, sink, WithShrinkUnused(true))
	result, err := r.Resolve("com.example.AppGraph")
	require.NoError(t, err)
	assert.False(t, sink.HasFatal())
	assert.Contains(t, result.ReachableKeys, typeKeyFor("com.example.Foo"))
}

func TestResolverResolveUnknownClassIsExternal(t *testing.T) {
	t.Parallel()

	loader := &fakeLoader{specs: map[decl.ClassID]*graphspec.GraphSpec{}}
	sink := &diag.CollectingSink{}

	r := New(loader, nil, nil, nil, sink)
	result, err := r.Resolve("com.example.NotAGraph")
	require.NoError(t, err)
	assert.Empty(t, result.ReachableKeys)
}
