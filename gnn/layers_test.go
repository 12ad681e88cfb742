package gnn

import (
	"testing"

	_ "github.com/gomlx/gomlx/backends/default"
	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/graph/graphtest"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/ml/context/initializers"
	"github.com/gomlx/gomlx/types/shapes"
	"github.com/gomlx/gomlx/types/tensors"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLayerStates checks that every layer but the last is followed by a Relu.
func TestLayerStates(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	cfg := DefaultConfig()
	cfg.NumLayers, cfg.HiddenDim, cfg.InputDim = 3, 8, 2
	model, err := New(cfg)
	require.NoError(t, err)

	ctx := context.New()
	ctx.RngStateFromSeed(42)
	states := context.ExecOnceN(backend, ctx, func(ctx *context.Context, g *Graph) []*Node {
		ctx.SetTraining(g, false)
		in := &Inputs{
			X:         Sub(IotaFull(g, shapes.Make(dtypes.Float32, 6, 2)), Const(g, float32(5))),
			EdgeIndex: Const(g, [][]int32{{0, 1}, {1, 2}, {2, 0}, {3, 4}, {4, 5}, {5, 3}}),
			Batch:     Const(g, []int32{0, 0, 0, 1, 1, 1}),
		}
		return model.layerStates(ctx, in)
	})
	require.Len(t, states, 4)
	for layer := 1; layer < 3; layer++ {
		assert.Equal(t, []int{6, 8}, states[layer].Shape().Dimensions)
		for _, v := range tensors.CopyFlatData[float32](states[layer]) {
			require.GreaterOrEqualf(t, v, float32(0), "output of layer %d should be non-negative", layer-1)
		}
	}
	assert.Equal(t, []int{6, 8}, states[3].Shape().Dimensions)
}

// onesGCNConfig returns a GCN model configuration for single-feature nodes. With all weights set
// to one and positive features, every node state is positive, so no difference is hidden by the Relu.
func onesGCNConfig(numLayers int, transform TransformMode) *Config {
	cfg := DefaultConfig()
	cfg.NumLayers, cfg.HiddenDim, cfg.InputDim = numLayers, 2, 1
	cfg.LayerType = LayerGCN
	cfg.Dropout = 0
	cfg.Transform = transform
	return cfg
}

func TestRewiredEdgesRouting(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	x := tensors.FromValue([][]float32{{1}, {2}, {3}, {4}})
	edges := tensors.FromValue([][]int32{{0, 1}, {1, 0}, {1, 2}, {2, 1}, {2, 3}, {3, 2}})
	batch := tensors.FromValue([]int32{0, 0, 0, 0})
	rewiredA := tensors.FromValue([][]int32{{0, 1}, {1, 0}})
	rewiredB := tensors.FromValue([][]int32{{0, 3}, {3, 0}})

	for _, tc := range []struct {
		transform    TransformMode
		numLayers    int
		firstRewired int
	}{
		{TransformEGP, 4, 1},
		{TransformFA, 3, 2},
	} {
		model, err := New(onesGCNConfig(tc.numLayers, tc.transform))
		require.NoError(t, err)
		require.Equal(t, 4, model.Layout().NumInputs())

		// Both executions share the same variables.
		ctx := context.New().WithInitializer(initializers.One)
		exec := context.NewExec(backend, ctx.Checked(false), func(ctx *context.Context, inputs []*Node) []*Node {
			ctx.SetTraining(inputs[0].Graph(), false)
			return model.layerStates(ctx, InputsFromNodes(model.Layout(), inputs))
		})
		statesA := exec.Call(x, edges, batch, rewiredA)
		statesB := exec.Call(x, edges, batch, rewiredB)
		require.Len(t, statesA, tc.numLayers+1)
		for state := range statesA {
			layer := state - 1
			valuesA := tensors.CopyFlatData[float32](statesA[state])
			valuesB := tensors.CopyFlatData[float32](statesB[state])
			if layer < tc.firstRewired {
				assert.Equalf(t, valuesA, valuesB, "%s: layer %d uses only the original edges", tc.transform, layer)
			} else if layer == tc.firstRewired {
				assert.NotEqualf(t, valuesA, valuesB, "%s: layer %d uses the rewired edges", tc.transform, layer)
				// Node 2 has no rewired edges in either set.
				assert.Equalf(t, valuesA[4:6], valuesB[4:6], "%s: layer %d, node 2", tc.transform, layer)
			}
		}
	}
}

func TestZeroVirtualNodes(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	embeddings := make(map[bool][]float32)
	for _, zeroVirtualNodes := range []bool{false, true} {
		cfg := onesGCNConfig(2, TransformCGP)
		cfg.ZeroVirtualNodes = zeroVirtualNodes
		model, err := New(cfg)
		require.NoError(t, err)

		ctx := context.New().WithInitializer(initializers.One)
		outputs := context.ExecOnceN(backend, ctx, func(ctx *context.Context, g *Graph) []*Node {
			ctx.SetTraining(g, false)
			// Nodes 2 and 3 are virtual, connected to the real nodes only by rewired edges.
			in := &Inputs{
				X:                 Const(g, [][]float32{{1}, {2}, {5}, {7}}),
				EdgeIndex:         Const(g, [][]int32{{0, 1}, {1, 0}}),
				RewiringEdgeIndex: Const(g, [][]int32{{0, 2}, {2, 0}, {1, 3}, {3, 1}}),
				Batch:             Const(g, []int32{0, 0, 0, 0}),
				VirtualNodeMask:   Const(g, []bool{false, false, true, true}),
				RetainedNodes:     Const(g, [][]int32{{0}, {1}}),
			}
			h, batch := model.Graph(ctx, in)
			return []*Node{h, batch}
		})
		require.Equal(t, []int{2, 2}, outputs[0].Shape().Dimensions)
		assert.Equal(t, []int32{0, 0}, tensors.CopyFlatData[int32](outputs[1]))
		embeddings[zeroVirtualNodes] = tensors.CopyFlatData[float32](outputs[0])
	}
	assert.NotEqual(t, embeddings[false], embeddings[true], "zeroing virtual nodes should change the retained nodes")
}

func TestEncoders(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	ctx := context.New()
	outputs := context.ExecOnceN(backend, ctx, func(ctx *context.Context, g *Graph) []*Node {
		atoms := Const(g, [][]int32{
			{5, 0, 2, 1, 0, 0, 1, 0, 1},
			{5, 0, 2, 1, 0, 0, 1, 0, 1},
			{8, 1, 3, 2, 1, 0, 2, 1, 0},
		})
		atomEmbed := (&AtomEncoder{HiddenDim: 4, FeatureDims: AtomFeatureDims}).Encode(ctx.In("atom"), atoms, dtypes.Float32)
		uniform := (&UniformEncoder{HiddenDim: 4}).Encode(ctx.In("uniform"), atoms, dtypes.Float32)
		passthrough := PassthroughEncoder{}.Encode(ctx, atoms, dtypes.Float32)
		return []*Node{atomEmbed, uniform, passthrough}
	})
	atomEmbed := tensors.CopyFlatData[float32](outputs[0])
	assert.Equal(t, atomEmbed[0:4], atomEmbed[4:8], "same atoms, same embeddings")
	assert.NotEqual(t, atomEmbed[0:4], atomEmbed[8:12])

	uniform := tensors.CopyFlatData[float32](outputs[1])
	assert.Equal(t, uniform[0:4], uniform[4:8])
	assert.Equal(t, uniform[0:4], uniform[8:12])

	assert.Equal(t, []int{3, 9}, outputs[2].Shape().Dimensions)
	assert.Equal(t, dtypes.Float32, outputs[2].DType())

	encoder, err := NewNodeEncoder(EncoderType(7), 4)
	require.Error(t, err)
	require.Nil(t, encoder)
}
