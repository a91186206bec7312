package graphnode

import (
	"testing"

	"github.com/bindgraph/resolver/decl"
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

func graphKey(name string) typekey.TypeKey {
	return typekey.New(rawtype.Type{Name: name}, nil)
}

func TestGetOrBuildSimpleGraphHasNoExtensionsOrIncludes(t *testing.T) {
	t.Parallel()

	loader := &fakeLoader{specs: map[decl.ClassID]*graphspec.GraphSpec{
		"com.example.AppGraph": {
			TypeKey: graphKey("com.example.AppGraph"),
			Class:   "com.example.AppGraph",
		},
	}}
	cache := NewCache(loader, nil, false)

	n, err := cache.GetOrBuild("com.example.AppGraph")
	require.NoError(t, err)
	assert.False(t, n.IsExtendable)
	assert.Empty(t, n.IncludedGraphNodes)
	assert.Empty(t, n.ExtendedGraphNodes)
}

func TestGetOrBuildMemoizes(t *testing.T) {
	t.Parallel()

	loader := &fakeLoader{specs: map[decl.ClassID]*graphspec.GraphSpec{
		"com.example.AppGraph": {TypeKey: graphKey("com.example.AppGraph"), Class: "com.example.AppGraph"},
	}}
	cache := NewCache(loader, nil, false)

	n1, err := cache.GetOrBuild("com.example.AppGraph")
	require.NoError(t, err)
	n2, err := cache.GetOrBuild("com.example.AppGraph")
	require.NoError(t, err)
	assert.Same(t, n1, n2)
}

func TestGetOrBuildRecursesIntoIncludedGraph(t *testing.T) {
	t.Parallel()

	loader := &fakeLoader{specs: map[decl.ClassID]*graphspec.GraphSpec{
		"com.example.AppGraph": {
			TypeKey: graphKey("com.example.AppGraph"),
			Class:   "com.example.AppGraph",
			Creator: &graphspec.Creator{
				Params: []graphspec.CreatorParam{
					{Name: "net", Key: graphKey("com.example.NetModule"), IsIncludes: true},
				},
			},
		},
		"com.example.NetModule": {
			TypeKey: graphKey("com.example.NetModule"),
			Class:   "com.example.NetModule",
		},
	}}
	cache := NewCache(loader, nil, false)

	n, err := cache.GetOrBuild("com.example.AppGraph")
	require.NoError(t, err)
	require.Len(t, n.IncludedGraphNodes, 1)
	inc, ok := n.IncludedGraphNodes[graphKey("com.example.NetModule").String()]
	require.True(t, ok)
	assert.Equal(t, decl.ClassID("com.example.NetModule"), inc.Class)
}

func TestGetOrBuildDetectsSelfCycle(t *testing.T) {
	t.Parallel()

	loader := &fakeLoader{specs: map[decl.ClassID]*graphspec.GraphSpec{
		"com.example.A": {
			TypeKey: graphKey("com.example.A"),
			Class:   "com.example.A",
			Creator: &graphspec.Creator{
				Params: []graphspec.CreatorParam{
					{Name: "b", Key: graphKey("com.example.B"), IsIncludes: true},
				},
			},
		},
		"com.example.B": {
			TypeKey: graphKey("com.example.B"),
			Class:   "com.example.B",
			Creator: &graphspec.Creator{
				Params: []graphspec.CreatorParam{
					{Name: "a", Key: graphKey("com.example.A"), IsIncludes: true},
				},
			},
		},
	}}
	cache := NewCache(loader, nil, false)

	_, err := cache.GetOrBuild("com.example.A")
	require.Error(t, err)
	var selfCycle *ErrSelfCycle
	require.ErrorAs(t, err, &selfCycle)
}

func TestGetOrBuildExternalClassReturnsMinimalNode(t *testing.T) {
	t.Parallel()

	loader := &fakeLoader{specs: map[decl.ClassID]*graphspec.GraphSpec{}}
	cache := NewCache(loader, nil, false)

	n, err := cache.GetOrBuild("com.example.NotAGraph")
	require.NoError(t, err)
	assert.True(t, n.External)
	assert.Nil(t, n.Creator)
}

func TestGetOrBuildDetectsOverlappingAncestorScope(t *testing.T) {
	t.Parallel()

	appScope := decl.Annotation{Name: "com.example.AppScope"}
	loader := &fakeLoader{specs: map[decl.ClassID]*graphspec.GraphSpec{
		"com.example.Parent": {
			TypeKey:        graphKey("com.example.Parent"),
			Class:          "com.example.Parent",
			DeclaredScopes: []decl.Annotation{appScope},
		},
		"com.example.Child": {
			TypeKey:              graphKey("com.example.Child"),
			Class:                "com.example.Child",
			DeclaredScopes:       []decl.Annotation{appScope},
			IsGeneratedExtension: true,
			ExtendedGraph:        "com.example.Parent",
		},
	}}
	cache := NewCache(loader, nil, false)

	_, err := cache.GetOrBuild("com.example.Child")
	require.Error(t, err)
	var overlap *ErrOverlappingScope
	require.ErrorAs(t, err, &overlap)
}

type fakeContributionIndex struct {
	containers map[string][]decl.ClassID
	replaces   map[decl.ClassID][]decl.ClassID
	includes   map[decl.ClassID][]decl.ClassID
}

func (f *fakeContributionIndex) Contributions(decl.Annotation) []decl.ClassID { return nil }
func (f *fakeContributionIndex) BindingContainers(scope decl.Annotation) []decl.ClassID {
	return f.containers[scope.Name]
}
func (f *fakeContributionIndex) Replaces(container decl.ClassID) []decl.ClassID {
	return f.replaces[container]
}
func (f *fakeContributionIndex) IncludedContainers(container decl.ClassID) []decl.ClassID {
	return f.includes[container]
}
func (f *fakeContributionIndex) Rank(decl.ClassID) int { return 0 }

func TestGetOrBuildMintsSyntheticClassForUnnamedFactorySAMExtension(t *testing.T) {
	t.Parallel()

	loader := &fakeLoader{specs: map[decl.ClassID]*graphspec.GraphSpec{
		"com.example.AppGraph": {
			TypeKey: graphKey("com.example.AppGraph"),
			Class:   "com.example.AppGraph",
			GraphExtensionAccessors: []graphspec.GraphExtensionAccessor{
				{Decl: decl.Declaration{Name: "loggedInGraph"}, Func: "loggedInGraph", IsFactory: true, IsFactorySAM: true},
			},
		},
	}}
	cache := NewCache(loader, nil, false)

	n, err := cache.GetOrBuild("com.example.AppGraph")
	require.NoError(t, err)
	require.True(t, n.IsExtendable)
	require.Len(t, n.GraphExtensions, 1)

	var group GraphExtensionGroup
	for _, g := range n.GraphExtensions {
		group = g
	}
	require.Len(t, group.Accessors, 1)
	minted := group.Accessors[0].ExtensionClass
	assert.NotEmpty(t, minted)
	assert.Contains(t, string(minted), "$generated.extension.")

	mintedNode, err := cache.GetOrBuild(minted)
	require.NoError(t, err)
	assert.True(t, mintedNode.External)

	// Minting must be deterministic across independent caches/runs
	// (spec.md §8 Determinism), not random.
	loader2 := &fakeLoader{specs: map[decl.ClassID]*graphspec.GraphSpec{
		"com.example.AppGraph": {
			TypeKey: graphKey("com.example.AppGraph"),
			Class:   "com.example.AppGraph",
			GraphExtensionAccessors: []graphspec.GraphExtensionAccessor{
				{Decl: decl.Declaration{Name: "loggedInGraph"}, Func: "loggedInGraph", IsFactory: true, IsFactorySAM: true},
			},
		},
	}}
	cache2 := NewCache(loader2, nil, false)
	n2, err := cache2.GetOrBuild("com.example.AppGraph")
	require.NoError(t, err)

	var group2 GraphExtensionGroup
	for _, g := range n2.GraphExtensions {
		group2 = g
	}
	require.Len(t, group2.Accessors, 1)
	assert.Equal(t, minted, group2.Accessors[0].ExtensionClass)
}

func TestAggregateContainersAppliesReplacesAndIncludes(t *testing.T) {
	t.Parallel()

	scope := decl.Annotation{Name: "com.example.AppScope"}
	contrib := &fakeContributionIndex{
		containers: map[string][]decl.ClassID{
			"com.example.AppScope": {"com.example.FakeModule", "com.example.RealModule"},
		},
		replaces: map[decl.ClassID][]decl.ClassID{
			"com.example.RealModule": {"com.example.FakeModule"},
		},
		includes: map[decl.ClassID][]decl.ClassID{
			"com.example.RealModule": {"com.example.NestedModule"},
		},
	}
	loader := &fakeLoader{specs: map[decl.ClassID]*graphspec.GraphSpec{
		"com.example.AppGraph": {
			TypeKey:           graphKey("com.example.AppGraph"),
			Class:             "com.example.AppGraph",
			AggregationScopes: []decl.Annotation{scope},
		},
	}}
	cache := NewCache(loader, contrib, false)

	n, err := cache.GetOrBuild("com.example.AppGraph")
	require.NoError(t, err)
	assert.ElementsMatch(t, []decl.ClassID{"com.example.RealModule", "com.example.NestedModule"}, n.BindingContainers)
}
