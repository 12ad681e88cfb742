package gnn

import (
	"fmt"

	. "github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/ml/context/initializers"
	"github.com/gomlx/gomlx/ml/layers"
	"github.com/gomlx/gomlx/types/shapes"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

// AtomFeatureDims are the vocabulary sizes of the categorical atom features of molecular datasets, in order:
// atomic number, chirality, degree, formal charge, number of hydrogens, number of radical electrons,
// hybridization, is aromatic and is in ring. Each includes one extra "misc" entry.
var AtomFeatureDims = []int{119, 5, 12, 12, 10, 6, 6, 2, 2}

// NodeEncoder converts the raw node features `x`, shaped `[num_nodes, feature_dim]`, to the input of the
// first layer.
type NodeEncoder interface {
	// Encode returns the encoded features shaped `[num_nodes, OutputDim(feature_dim)]` in the given dtype.
	Encode(ctx *context.Context, x *Node, dtype dtypes.DType) *Node

	// OutputDim returns the width of the encoded features for raw features of the given width.
	OutputDim(inputDim int) int
}

// NewNodeEncoder returns the NodeEncoder for the given type, producing `hiddenDim` wide embeddings where
// applicable.
func NewNodeEncoder(encoderType EncoderType, hiddenDim int) (NodeEncoder, error) {
	switch encoderType {
	case EncoderNone:
		return PassthroughEncoder{}, nil
	case EncoderAtom:
		return &AtomEncoder{HiddenDim: hiddenDim, FeatureDims: AtomFeatureDims}, nil
	case EncoderUniform:
		return &UniformEncoder{HiddenDim: hiddenDim}, nil
	default:
		return nil, errors.Errorf("node encoder %s does not exist: options are %v", encoderType, EncoderTypeStrings())
	}
}

// PassthroughEncoder uses the node features as they are, only converted to the model dtype.
type PassthroughEncoder struct{}

// Encode implements NodeEncoder.
func (PassthroughEncoder) Encode(_ *context.Context, x *Node, dtype dtypes.DType) *Node {
	if x.Rank() != 2 {
		Panicf("node features must be shaped [num_nodes, feature_dim], got %s", x.Shape())
	}
	if x.DType() != dtype {
		x = ConvertDType(x, dtype)
	}
	return x
}

// OutputDim implements NodeEncoder.
func (PassthroughEncoder) OutputDim(inputDim int) int { return inputDim }

// AtomEncoder embeds each categorical atom feature with its own table and sums the embeddings.
//
// The node features must be integers shaped `[num_nodes, len(FeatureDims)]`.
type AtomEncoder struct {
	HiddenDim   int
	FeatureDims []int
}

// Encode implements NodeEncoder.
func (e *AtomEncoder) Encode(ctx *context.Context, x *Node, dtype dtypes.DType) *Node {
	if x.Rank() != 2 || x.Shape().Dimensions[1] != len(e.FeatureDims) {
		Panicf("atom encoder requires features shaped [num_nodes, %d], got %s", len(e.FeatureDims), x.Shape())
	}
	if !x.DType().IsInt() {
		Panicf("atom encoder requires integer (categorical) features, got %s", x.Shape())
	}
	ctx = ctx.In("atom_encoder").WithInitializer(initializers.XavierUniformFn(ctx))
	var embedded *Node
	for ii, vocabSize := range e.FeatureDims {
		feature := Slice(x, AxisRange(), AxisRange(ii, ii+1))
		part := layers.Embedding(ctx.In(fmt.Sprintf("feature_%d", ii)), feature, dtype, vocabSize, e.HiddenDim, false)
		if embedded == nil {
			embedded = part
		} else {
			embedded = Add(embedded, part)
		}
	}
	return embedded
}

// OutputDim implements NodeEncoder.
func (e *AtomEncoder) OutputDim(int) int { return e.HiddenDim }

// UniformEncoder uses one learned embedding for every node, regardless of its features.
type UniformEncoder struct {
	HiddenDim int
}

// Encode implements NodeEncoder.
func (e *UniformEncoder) Encode(ctx *context.Context, x *Node, dtype dtypes.DType) *Node {
	if x.Rank() == 0 {
		Panicf("uniform encoder requires features with a leading num_nodes axis, got %s", x.Shape())
	}
	g := x.Graph()
	numNodes := x.Shape().Dimensions[0]
	ctx = ctx.In("uniform_encoder").WithInitializer(initializers.RandomNormalFn(ctx, 1.0))
	indices := Zeros(g, shapes.Make(dtypes.Int32, numNodes, 1))
	return layers.Embedding(ctx, indices, dtype, 1, e.HiddenDim, true)
}

// OutputDim implements NodeEncoder.
func (e *UniformEncoder) OutputDim(int) int { return e.HiddenDim }
