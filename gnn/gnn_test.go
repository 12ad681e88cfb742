package gnn_test

import (
	"testing"

	_ "github.com/gomlx/gomlx/backends/default"
	"github.com/gomlx/gomlx/graph/graphtest"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/types/tensors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphrewire/gnnrewire/gnn"
	"github.com/graphrewire/gnnrewire/graphdata"
	"github.com/graphrewire/gnnrewire/rewiring"
)

// cycle returns a cycle graph with numNodes nodes and featureDim features per node.
func cycle(t *testing.T, numNodes, featureDim int) *graphdata.Graph[float32] {
	features := make([]float32, numNodes*featureDim)
	for ii := range features {
		features[ii] = float32(ii%7) / 7
	}
	edges := make([]graphdata.Edge, 0, 2*numNodes)
	for node := range numNodes {
		next := int32((node + 1) % numNodes)
		edges = append(edges, graphdata.Edge{int32(node), next}, graphdata.Edge{next, int32(node)})
	}
	g, err := graphdata.NewGraph(numNodes, featureDim, features, edges)
	require.NoError(t, err)
	return g
}

func smallConfig(numLayers int, layerType gnn.LayerType, transform gnn.TransformMode) *gnn.Config {
	cfg := gnn.DefaultConfig()
	cfg.NumLayers = numLayers
	cfg.HiddenDim = 8
	cfg.InputDim = 3
	cfg.Dropout = 0.5
	cfg.LayerType = layerType
	cfg.Transform = transform
	return cfg
}

func batchOf(t *testing.T, mode rewiring.Mode, graphs ...*graphdata.Graph[float32]) *graphdata.Batch[float32] {
	rewired, err := rewiring.ApplyAll(mode, graphs)
	require.NoError(t, err)
	batch, err := graphdata.Collate(rewired)
	require.NoError(t, err)
	return batch
}

func TestNew(t *testing.T) {
	cfg := smallConfig(4, gnn.LayerGIN, gnn.TransformNone)
	model, err := gnn.New(cfg)
	require.NoError(t, err)
	require.Len(t, model.Convolutions(), 4)
	require.Len(t, model.Norms(), 4)
	assert.Equal(t, 3, model.Convolutions()[0].InputDim())
	for layer, conv := range model.Convolutions() {
		assert.IsType(t, &gnn.GINConv{}, conv)
		assert.Equal(t, 8, conv.OutputDim())
		assert.Equal(t, 8, model.Norms()[layer].Dim)
		if layer > 0 {
			assert.Equal(t, 8, conv.InputDim())
		}
	}
	assert.Equal(t, 8, model.Convolutions()[1].(*gnn.GINConv).EmbedDim)

	cfg.DatasetFormat = gnn.DatasetFormatOGB
	cfg.NodeEncoder = gnn.EncoderAtom
	model, err = gnn.New(cfg)
	require.NoError(t, err)
	assert.Equal(t, 8, model.Convolutions()[0].InputDim(), "atom encoder projects to the hidden dimension")
	assert.Equal(t, 16, model.Convolutions()[0].(*gnn.GINConv).EmbedDim)
	assert.IsType(t, &gnn.AtomEncoder{}, model.Encoder())

	cfg = smallConfig(2, gnn.LayerGCN, gnn.TransformNone)
	model, err = gnn.New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &gnn.GCNConv{}, model.Convolutions()[1])

	cfg.NodeEncoder = gnn.EncoderType(99)
	_, err = gnn.New(cfg)
	require.Error(t, err)
}

func TestEmbed(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	for _, layerType := range gnn.LayerTypeValues() {
		t.Run(layerType.String(), func(t *testing.T) {
			model, err := gnn.New(smallConfig(2, layerType, gnn.TransformNone))
			require.NoError(t, err)
			embedder := gnn.NewEmbedder(backend, context.New(), model)
			batch := batchOf(t, rewiring.ModeNone, cycle(t, 5, 3))
			embeddings, assignment, err := embedder.Embed(batch)
			require.NoError(t, err)
			assert.Equal(t, []int{5, 8}, embeddings.Shape().Dimensions)
			assert.Equal(t, batch.Assignment, tensors.CopyFlatData[int32](assignment))

			// Variables are reused on a second batch with different shapes.
			numParams := embedder.Context().NumParameters()
			batch = batchOf(t, rewiring.ModeNone, cycle(t, 3, 3), cycle(t, 4, 3))
			embeddings, assignment, err = embedder.Embed(batch)
			require.NoError(t, err)
			assert.Equal(t, []int{7, 8}, embeddings.Shape().Dimensions)
			assert.Equal(t, []int32{0, 0, 0, 1, 1, 1, 1}, tensors.CopyFlatData[int32](assignment))
			assert.Equal(t, numParams, embedder.Context().NumParameters())

			// Training mode (dropout) keeps the shapes.
			embeddings, _, err = embedder.Training(true).Embed(batch)
			require.NoError(t, err)
			assert.Equal(t, []int{7, 8}, embeddings.Shape().Dimensions)
		})
	}
}

func TestEmbedVirtualNodes(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	for _, zeroVirtualNodes := range []bool{false, true} {
		cfg := smallConfig(3, gnn.LayerGIN, gnn.TransformCGP)
		cfg.ZeroVirtualNodes = zeroVirtualNodes
		model, err := gnn.New(cfg)
		require.NoError(t, err)
		require.True(t, model.RequiresRewiring())

		// Graphs of 4 and 5 nodes are completed to 6 nodes each.
		batch := batchOf(t, rewiring.ModeCGP, cycle(t, 4, 3), cycle(t, 5, 3))
		require.Equal(t, 12, batch.NumNodes)
		require.Equal(t, 3, batch.NumVirtualNodes())

		embedder := gnn.NewEmbedder(backend, context.New(), model)
		embeddings, assignment, err := embedder.Embed(batch)
		require.NoError(t, err)
		assert.Equal(t, []int{9, 8}, embeddings.Shape().Dimensions)
		assert.Equal(t, []int32{0, 0, 0, 0, 1, 1, 1, 1, 1}, tensors.CopyFlatData[int32](assignment))
		assert.Equal(t, batch.RetainedAssignment(), tensors.CopyFlatData[int32](assignment))
	}
}

func TestEmbedRewired(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	for _, transform := range []gnn.TransformMode{gnn.TransformEGP, gnn.TransformFA} {
		model, err := gnn.New(smallConfig(2, gnn.LayerGCN, transform))
		require.NoError(t, err)
		embedder := gnn.NewEmbedder(backend, context.New(), model)
		batch := batchOf(t, transform, cycle(t, 5, 3), cycle(t, 7, 3))
		embeddings, _, err := embedder.Embed(batch)
		require.NoErrorf(t, err, "transform %s", transform)
		assert.Equal(t, []int{12, 8}, embeddings.Shape().Dimensions)

		// Batch without the rewired edges.
		_, _, err = embedder.Embed(batchOf(t, rewiring.ModeNone, cycle(t, 5, 3)))
		require.Errorf(t, err, "transform %s requires rewired edges", transform)
	}
}

func TestEmbedWrongFeatureDim(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	model, err := gnn.New(smallConfig(2, gnn.LayerGIN, gnn.TransformNone))
	require.NoError(t, err)
	embedder := gnn.NewEmbedder(backend, context.New(), model)
	_, _, err = embedder.Embed(batchOf(t, rewiring.ModeNone, cycle(t, 5, 4)))
	require.Error(t, err)
}
