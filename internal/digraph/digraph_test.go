package digraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReachableBFS(t *testing.T) {
	t.Parallel()

	g := New(4)
	g.AddEdge(0, 1, false)
	g.AddEdge(1, 2, false)
	// 3 is unreachable from 0.

	reached := g.Reachable([]Ix{0})
	assert.True(t, reached[0])
	assert.True(t, reached[1])
	assert.True(t, reached[2])
	assert.False(t, reached[3])
}

func TestSCCsFindsSimpleCycle(t *testing.T) {
	t.Parallel()

	g := New(3)
	g.AddEdge(0, 1, false)
	g.AddEdge(1, 0, false)
	g.AddEdge(1, 2, false)

	sccs := g.SCCs()
	var foundCycle bool
	for _, scc := range sccs {
		if len(scc) == 2 {
			foundCycle = true
		}
	}
	assert.True(t, foundCycle)
}

func lessByIndex(order []int) func(a, b Ix) bool {
	return func(a, b Ix) bool { return order[a] < order[b] }
}

func TestSealSimpleDAGProducesDependenciesFirst(t *testing.T) {
	t.Parallel()

	// 0 (String) -> no deps; 1 (Foo) depends on 0.
	g := New(2)
	g.AddEdge(1, 0, false)

	order, deferred, err := g.Seal([]Ix{0, 1}, nil)
	require.NoError(t, err)
	assert.Empty(t, deferred)
	require.Len(t, order, 2)
	assert.Equal(t, Ix(0), order[0])
	assert.Equal(t, Ix(1), order[1])
}

func TestSealDeferrableCycleRecordsDeferredDestination(t *testing.T) {
	t.Parallel()

	// Foo=0 depends on Provider<Bar>=1 (deferrable); Bar=1 depends on Foo=0 (direct).
	g := New(2)
	g.AddEdge(0, 1, true)
	g.AddEdge(1, 0, false)

	order, deferred, err := g.Seal([]Ix{0, 1}, nil)
	require.NoError(t, err)
	require.Len(t, order, 2)
	assert.ElementsMatch(t, []Ix{1}, deferred)
}

func TestSealNonDeferrableCycleFails(t *testing.T) {
	t.Parallel()

	g := New(2)
	g.AddEdge(0, 1, false)
	g.AddEdge(1, 0, false)

	_, _, err := g.Seal([]Ix{0, 1}, nil)
	require.Error(t, err)
	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.ElementsMatch(t, []Ix{0, 1}, cycleErr.Members)
}

func TestSealIsDeterministicAcrossTieBreaks(t *testing.T) {
	t.Parallel()

	// Three independent roots with no edges between them; order must be
	// entirely determined by the tie-break function.
	g := New(3)
	less := lessByIndex([]int{2, 0, 1}) // vertex 1 < vertex 2 < vertex 0

	order, _, err := g.Seal([]Ix{0, 1, 2}, less)
	require.NoError(t, err)
	assert.Equal(t, []Ix{1, 2, 0}, order)
}
