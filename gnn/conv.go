package gnn

import (
	. "github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/ml/context/initializers"
	"github.com/gomlx/gomlx/ml/layers"
	"github.com/gomlx/gomlx/ml/layers/activations"
	"github.com/gomlx/gomlx/ml/layers/batchnorm"
	"github.com/gomlx/gomlx/types/shapes"
	"github.com/gomlx/gopjrt/dtypes"
)

// Convolution is one message-passing layer over an edge list.
type Convolution interface {
	// Apply runs the convolution on the node states `x`, shaped `[num_nodes, InputDim()]`, over `edges`
	// shaped `[num_edges, 2]` holding (source, target) pairs. Messages flow from source to target.
	// It returns the new node states shaped `[num_nodes, OutputDim()]`.
	//
	// The context `ctx` must already be scoped to the layer.
	Apply(ctx *context.Context, x, edges *Node) *Node

	InputDim() int
	OutputDim() int
}

// splitEdges returns the sources and targets of `edges` (shaped `[num_edges, 2]`), each shaped `[num_edges, 1]`,
// which is the format used for Gather and Scatter indices.
func splitEdges(edges *Node) (sources, targets *Node) {
	if edges.Rank() != 2 || edges.Shape().Dimensions[1] != 2 || !edges.DType().IsInt() {
		Panicf("edges must be integers shaped [num_edges, 2], got %s", edges.Shape())
	}
	sources = Slice(edges, AxisRange(), AxisRange(0, 1))
	targets = Slice(edges, AxisRange(), AxisRange(1, 2))
	return
}

// sumNeighbors sums the states of the sources of every edge into its target.
//
// `x` is shaped `[num_nodes, emb_size]`, `weights` is optional and, if given, shaped `[num_edges, 1]` and
// multiplies each message. The result is shaped `[num_nodes, emb_size]`, with zeros for nodes without
// incoming edges.
func sumNeighbors(x, sources, targets, weights *Node) *Node {
	numNodes := x.Shape().Dimensions[0]
	embSize := x.Shape().Dimensions[1]
	dtype := x.DType()
	dtypeSum := dtype
	if dtype.IsFloat16() {
		// Up-precision to 32 bits for the scatter-sum.
		dtypeSum = dtypes.Float32
	}
	messages := Gather(x, sources)
	if weights != nil {
		messages = Mul(messages, ConvertDType(weights, dtype))
	}
	if dtypeSum != dtype {
		messages = ConvertDType(messages, dtypeSum)
	}
	summed := Scatter(targets, messages, shapes.Make(dtypeSum, numNodes, embSize))
	if dtypeSum != dtype {
		summed = ConvertDType(summed, dtype)
	}
	return summed
}

// GINConv is the Graph Isomorphism Network convolution, with a non-trainable epsilon of 0:
//
//	x'_i = MLP(x_i + Σ_{j→i} x_j)
//
// The MLP is `Dense(EmbedDim) → BatchNorm → Relu → Dense(Dim)`.
type GINConv struct {
	InDim, EmbedDim, Dim int
}

var _ Convolution = (*GINConv)(nil)

// InputDim implements Convolution.
func (c *GINConv) InputDim() int { return c.InDim }

// OutputDim implements Convolution.
func (c *GINConv) OutputDim() int { return c.Dim }

// Apply implements Convolution.
func (c *GINConv) Apply(ctx *context.Context, x, edges *Node) *Node {
	checkNodeStates("GIN", x, c.InDim)
	sources, targets := splitEdges(edges)
	h := Add(x, sumNeighbors(x, sources, targets, nil))
	h = layers.DenseWithBias(ctx.In("mlp_0"), h, c.EmbedDim)
	h = batchnorm.New(ctx.In("mlp_batch_norm"), h, -1).Done()
	h = activations.Relu(h)
	h = layers.DenseWithBias(ctx.In("mlp_1"), h, c.Dim)
	return h
}

// GCNConv is the Graph Convolutional Network convolution with self-loops and symmetric normalization:
//
//	x'_i = Σ_{j→i, j=i} (deg(i)·deg(j))^(-1/2) · W x_j + b
//
// where the degree deg counts the incoming edges of a node, including its self-loop.
//
// Every node gets exactly one self-loop: self-loops already present in the edges are ignored.
type GCNConv struct {
	InDim, Dim int
}

var _ Convolution = (*GCNConv)(nil)

// InputDim implements Convolution.
func (c *GCNConv) InputDim() int { return c.InDim }

// OutputDim implements Convolution.
func (c *GCNConv) OutputDim() int { return c.Dim }

// Apply implements Convolution.
func (c *GCNConv) Apply(ctx *context.Context, x, edges *Node) *Node {
	checkNodeStates("GCN", x, c.InDim)
	g := x.Graph()
	dtype := x.DType()
	numNodes := x.Shape().Dimensions[0]
	sources, targets := splitEdges(edges)

	// Self-loops: existing ones get a weight of 0, and one is added per node.
	weights := ConvertDType(NotEqual(sources, targets), dtype)
	loops := Iota(g, shapes.Make(sources.DType(), numNodes, 1), 0)
	sources = Concatenate([]*Node{sources, loops}, 0)
	targets = Concatenate([]*Node{targets, loops}, 0)
	weights = Concatenate([]*Node{weights, Ones(g, shapes.Make(dtype, numNodes, 1))}, 0)

	// Symmetric normalization: degrees are at least 1 because of the self-loops.
	degree := Scatter(targets, weights, shapes.Make(dtype, numNodes, 1))
	invSqrtDegree := Rsqrt(degree)
	norm := Mul(weights, Mul(Gather(invSqrtDegree, sources), Gather(invSqrtDegree, targets)))

	h := layers.Dense(ctx.In("linear"), x, false, c.Dim)
	h = sumNeighbors(h, sources, targets, norm)
	bias := ctx.In("linear").WithInitializer(initializers.Zero).
		VariableWithShape("gcn_biases", shapes.Make(dtype, c.Dim)).ValueGraph(g)
	return Add(h, InsertAxes(bias, 0))
}

func checkNodeStates(convName string, x *Node, inputDim int) {
	if x.Rank() != 2 || x.Shape().Dimensions[1] != inputDim {
		Panicf("%s convolution expects node states shaped [num_nodes, %d], got %s", convName, inputDim, x.Shape())
	}
}

// Normalization is the batch normalization that follows each convolution, over the feature axis.
type Normalization struct {
	Dim int
}

// Apply normalizes `x`, shaped `[num_nodes, Dim]`. The context `ctx` must already be scoped to the layer.
func (n *Normalization) Apply(ctx *context.Context, x *Node) *Node {
	if x.Rank() != 2 || x.Shape().Dimensions[1] != n.Dim {
		Panicf("batch normalization expects node states shaped [num_nodes, %d], got %s", n.Dim, x.Shape())
	}
	return batchnorm.New(ctx, x, -1).Done()
}
