// Package gnn implements a node embedding GNN: a stack of GIN or GCN convolutions, each followed by
// batch normalization, activation and dropout, over a batch of graphs.
//
// Layers can alternate between the original edges and rewired ones, to support the graph rewiring
// strategies EGP (Expander Graph Propagation), CGP (Cayley Graph Propagation, which adds virtual
// nodes) and FA (fully-adjacent last layer). See UseRewiredEdges.
//
// The model is configured by a Config, usually created from context hyperparameters with
// ConfigFromContext. Example of a model graph function:
//
//	func NodeEmbeddingGraph(ctx *context.Context, spec any, inputs []*Node) []*Node {
//		cfg := must.M1(gnn.ConfigFromContext(ctx))
//		model := must.M1(gnn.New(cfg))
//		h, batch := model.Graph(ctx.In("gnn"), gnn.InputsFromNodes(gnn.LayoutFor(cfg), inputs))
//		return []*Node{h, batch}
//	}
//
// Use Embedder to run the model on a graphdata.Batch.
package gnn

import (
	"fmt"

	. "github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/graph/nanlogger"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/ml/layers"
	"github.com/gomlx/gomlx/ml/layers/activations"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

// NanLogger is used if not nil.
var NanLogger *nanlogger.NanLogger

// Model is the node embedding GNN.
//
// It holds the structure of the layer stack: the learnable variables are created in the context
// the first time Model.Graph is called, and reused afterward.
type Model struct {
	cfg          *Config
	encoder      NodeEncoder
	convolutions []Convolution
	norms        []*Normalization

	// DType of the node states. The default is Float32.
	DType dtypes.DType
}

// New builds the layer stack described by cfg.
//
// It returns an error if cfg is invalid, including an unknown node encoder.
func New(cfg *Config) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	encoder, err := NewNodeEncoder(cfg.NodeEncoder, cfg.HiddenDim)
	if err != nil {
		return nil, err
	}
	m := &Model{
		cfg:          cfg,
		encoder:      encoder,
		convolutions: make([]Convolution, 0, cfg.NumLayers),
		norms:        make([]*Normalization, 0, cfg.NumLayers),
		DType:        dtypes.Float32,
	}
	for layer := range cfg.NumLayers {
		inputDim := cfg.LayerInputDim(layer)
		var conv Convolution
		switch cfg.LayerType {
		case LayerGIN:
			conv = &GINConv{InDim: inputDim, EmbedDim: cfg.GINEmbedDim(), Dim: cfg.HiddenDim}
		case LayerGCN:
			conv = &GCNConv{InDim: inputDim, Dim: cfg.HiddenDim}
		default:
			return nil, errors.Errorf("invalid layer type %s: options are %v", cfg.LayerType, LayerTypeValues())
		}
		m.convolutions = append(m.convolutions, conv)
		m.norms = append(m.norms, &Normalization{Dim: cfg.HiddenDim})
	}
	return m, nil
}

// Config returns the configuration the model was built with.
func (m *Model) Config() *Config { return m.cfg }

// Encoder returns the node encoder selected by the configuration.
func (m *Model) Encoder() NodeEncoder { return m.encoder }

// Convolutions returns the convolutions, one per layer.
func (m *Model) Convolutions() []Convolution { return m.convolutions }

// Norms returns the batch normalizations, one per layer, aligned with Convolutions.
func (m *Model) Norms() []*Normalization { return m.norms }

// Layout returns the order of the inputs expected by the model, see InputsFromNodes.
func (m *Model) Layout() InputLayout { return LayoutFor(m.cfg) }

// RequiresRewiring returns whether any layer runs on the rewired edges.
func (m *Model) RequiresRewiring() bool { return RequiresRewiring(m.cfg.Transform, m.cfg.NumLayers) }

// ctxForLayer returns the context with scope for the given layer.
func ctxForLayer(ctx *context.Context, layer int) *context.Context {
	return ctx.In(fmt.Sprintf("layer_%d", layer))
}

// Graph builds the forward pass and returns the node representations shaped `[num_nodes, hidden_dim]`
// and the batch assignment of each node, shaped `[num_nodes]`.
//
// In CGP mode (virtual nodes) the virtual nodes are removed from both outputs, preserving the order
// of the other nodes, so `num_nodes` is the number of retained nodes.
//
// Dropout is only applied if the context is training, see context.Context.SetTraining.
func (m *Model) Graph(ctx *context.Context, in *Inputs) (h, batch *Node) {
	states := m.layerStates(ctx, in)
	h = states[len(states)-1]
	batch = in.Batch
	if UsesVirtualNodes(m.cfg.Transform) {
		h = Gather(h, in.RetainedNodes)
		batch = Gather(batch, in.RetainedNodes)
	}
	return h, batch
}

// layerStates returns the node states at every layer boundary: the encoded features followed by the
// output of each layer. Virtual nodes are included.
func (m *Model) layerStates(ctx *context.Context, in *Inputs) []*Node {
	cfg := m.cfg
	withVirtualNodes := UsesVirtualNodes(cfg.Transform)
	if withVirtualNodes && (in.VirtualNodeMask == nil || in.RetainedNodes == nil) {
		Panicf("transform %s requires the virtual node mask and the retained nodes indices", cfg.Transform)
	}

	h := m.encoder.Encode(ctx.In("node_encoder"), in.X, m.DType)
	if withVirtualNodes {
		checkMask(in.VirtualNodeMask, h)
		if cfg.ZeroVirtualNodes {
			h = zeroVirtualNodes(h, in.VirtualNodeMask)
		}
	}

	states := make([]*Node, 0, cfg.NumLayers+1)
	states = append(states, h)
	for layer, conv := range m.convolutions {
		layerCtx := ctxForLayer(ctx, layer)
		edges := in.edgesForLayer(cfg.Transform, layer, cfg.NumLayers)
		h = conv.Apply(layerCtx.In("conv"), states[layer], edges)
		h = m.norms[layer].Apply(layerCtx.In("batch_norm"), h)
		if layer < cfg.NumLayers-1 {
			h = activations.Relu(h)
		}
		// Only active while training: inference is deterministic.
		h = layers.DropoutStatic(layerCtx, h, cfg.Dropout)
		if NanLogger != nil {
			NanLogger.Trace(h, fmt.Sprintf("gnn.Graph(%s)", layerCtx.Scope()))
		}
		states = append(states, h)
	}
	return states
}

// zeroVirtualNodes returns x with the rows of virtual nodes set to zero.
func zeroVirtualNodes(x, virtualNodeMask *Node) *Node {
	mask := BroadcastToDims(InsertAxes(virtualNodeMask, -1), x.Shape().Dimensions...)
	return Where(mask, ZerosLike(x), x)
}

func checkMask(mask, x *Node) {
	if mask.DType() != dtypes.Bool || mask.Rank() != 1 || mask.Shape().Dimensions[0] != x.Shape().Dimensions[0] {
		Panicf("virtual node mask must be a boolean shaped [num_nodes=%d], got %s", x.Shape().Dimensions[0], mask.Shape())
	}
}
