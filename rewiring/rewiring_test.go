package rewiring

import (
	"testing"

	"github.com/graphrewire/gnnrewire/graphdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSL2Size(t *testing.T) {
	assert.Equal(t, 6, SL2Size(2))
	assert.Equal(t, 24, SL2Size(3))
	assert.Equal(t, 48, SL2Size(4))
	assert.Equal(t, 120, SL2Size(5))
	assert.Equal(t, 144, SL2Size(6))

	assert.Equal(t, []int{2, 3, 5}, primeFactors(60))
	assert.Equal(t, []int{7}, primeFactors(49))
	assert.Empty(t, primeFactors(1))

	assert.Equal(t, 2, CayleyN(1))
	assert.Equal(t, 2, CayleyN(6))
	assert.Equal(t, 3, CayleyN(7))
	assert.Equal(t, 3, CayleyN(24))
	assert.Equal(t, 5, CayleyN(100))
}

func TestCayleyGraph(t *testing.T) {
	for _, n := range []int{2, 3, 4, 5} {
		numNodes, edges := CayleyGraph(n)
		require.Equalf(t, SL2Size(n), numNodes, "number of nodes for n=%d", n)

		edgeSet := make(map[graphdata.Edge]bool, len(edges))
		outDegree := make([]int, numNodes)
		for _, e := range edges {
			require.Falsef(t, edgeSet[e], "duplicate edge %v for n=%d", e, n)
			require.NotEqualf(t, e[0], e[1], "self-loop for n=%d", n)
			edgeSet[e] = true
			outDegree[e[0]]++
		}
		for _, e := range edges {
			require.Truef(t, edgeSet[graphdata.Edge{e[1], e[0]}], "edge %v without reverse for n=%d", e, n)
		}
		wantDegree := 4
		if n == 2 {
			// Generators are their own inverses mod 2.
			wantDegree = 2
		}
		for node, degree := range outDegree {
			require.Equalf(t, wantDegree, degree, "degree of node %d for n=%d", node, n)
		}
	}

	// Cached graphs are reused.
	_, edges1 := CayleyGraph(3)
	_, edges2 := CayleyGraph(3)
	assert.Equal(t, &edges1[0], &edges2[0])
}

func cycleGraph(t *testing.T, numNodes int) *graphdata.Graph[float32] {
	features := make([]float32, numNodes)
	edges := make([]graphdata.Edge, 0, 2*numNodes)
	for node := range numNodes {
		features[node] = float32(node + 1)
		next := int32((node + 1) % numNodes)
		edges = append(edges, graphdata.Edge{int32(node), next}, graphdata.Edge{next, int32(node)})
	}
	g, err := graphdata.NewGraph(numNodes, 1, features, edges)
	require.NoError(t, err)
	return g
}

func TestFullyAdjacent(t *testing.T) {
	g := cycleGraph(t, 5)
	fa, err := Apply(ModeFA, g)
	require.NoError(t, err)
	assert.Len(t, fa.RewiringEdges, 5*4)
	assert.Equal(t, g.Edges, fa.Edges)
	assert.Nil(t, fa.VirtualNodeMask)
	assert.Nil(t, g.RewiringEdges, "input graph must not change")
	require.NoError(t, fa.Validate())
}

func TestExpander(t *testing.T) {
	g := cycleGraph(t, 10)
	egp, err := Apply(ModeEGP, g)
	require.NoError(t, err)
	require.NoError(t, egp.Validate())
	assert.Equal(t, 10, egp.NumNodes)
	assert.Nil(t, egp.VirtualNodeMask)
	assert.NotEmpty(t, egp.RewiringEdges)
	for _, e := range egp.RewiringEdges {
		assert.Less(t, e[0], int32(10))
		assert.Less(t, e[1], int32(10))
	}
}

func TestCayleyVirtual(t *testing.T) {
	g := cycleGraph(t, 10)
	cgp, err := Apply(ModeCGP, g)
	require.NoError(t, err)
	require.NoError(t, cgp.Validate())
	assert.Equal(t, 24, cgp.NumNodes)
	assert.Equal(t, 14, cgp.NumVirtualNodes())
	assert.Equal(t, g.Edges, cgp.Edges)
	_, cayleyEdges := CayleyGraph(3)
	assert.Len(t, cgp.RewiringEdges, len(cayleyEdges))
	for node := range cgp.NumNodes {
		assert.Equal(t, node >= 10, cgp.VirtualNodeMask[node])
		if node >= 10 {
			assert.Equal(t, []float32{0}, cgp.NodeFeatures(node))
		}
	}
	assert.Equal(t, float32(10), cgp.NodeFeatures(9)[0])
}

func TestParseMode(t *testing.T) {
	for name, want := range map[string]Mode{"": ModeNone, "none": ModeNone, "egp": ModeEGP, "CGP": ModeCGP, "Fa": ModeFA} {
		got, err := ParseMode(name)
		require.NoError(t, err)
		assert.Equalf(t, want, got, "ParseMode(%q)", name)
	}
	_, err := ParseMode("DIGL")
	require.Error(t, err)
	assert.Equal(t, "CGP", ModeCGP.String())
	assert.Equal(t, []string{"NONE", "EGP", "CGP", "FA"}, ModeStrings())

	mode, err := ParseMode(" egp ")
	require.NoError(t, err)
	assert.Equal(t, ModeEGP, mode)

	var fromText Mode
	require.NoError(t, fromText.UnmarshalText([]byte("fa")))
	assert.Equal(t, ModeFA, fromText)
	assert.Equal(t, "Mode(9)", Mode(9).String())
}

func TestApplyAll(t *testing.T) {
	graphs := []*graphdata.Graph[float32]{cycleGraph(t, 3), cycleGraph(t, 8), cycleGraph(t, 30), cycleGraph(t, 5)}
	for _, parallelism := range []int{0, 2} {
		Pool.SetMaxParallelism(parallelism)
		transformed, err := ApplyAll(ModeCGP, graphs)
		require.NoError(t, err)
		require.Len(t, transformed, len(graphs))
		for ii, g := range transformed {
			assert.Equal(t, graphs[ii].NumNodes, g.NumNodes-g.NumVirtualNodes())
			assert.Equal(t, SL2Size(CayleyN(graphs[ii].NumNodes)), g.NumNodes)
		}
	}

	bad := cycleGraph(t, 3)
	bad.Edges = append(bad.Edges, graphdata.Edge{0, 9})
	_, err := ApplyAll(ModeFA, []*graphdata.Graph[float32]{graphs[0], bad})
	require.Error(t, err)

	// A nil graph is reported as an error of its index.
	Pool.SetMaxParallelism(2)
	_, err = ApplyAll(ModeEGP, []*graphdata.Graph[float32]{graphs[0], graphs[1], nil})
	require.ErrorContains(t, err, "graph #2")
	_, err = Apply[float32](ModeNone, nil)
	require.Error(t, err)
}
