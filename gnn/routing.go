package gnn

import (
	. "github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/graph"
	"github.com/graphrewire/gnnrewire/rewiring"
)

// UseRewiredEdges returns whether the given layer (from 0 to numLayers-1) runs over the rewired edges
// instead of the original ones.
//
// EGP and CGP alternate, using the rewired edges on odd layers. FA uses them only on the last layer.
func UseRewiredEdges(mode TransformMode, layer, numLayers int) bool {
	switch mode {
	case TransformNone:
		return false
	case TransformEGP, TransformCGP:
		return layer%2 == 1
	case TransformFA:
		return layer == numLayers-1
	default:
		Panicf("UseRewiredEdges got invalid transform mode %q: options are %v", mode, rewiring.ModeValues())
	}
	return false
}

// RequiresRewiring returns whether any of the numLayers layers uses the rewired edges.
func RequiresRewiring(mode TransformMode, numLayers int) bool {
	for layer := range numLayers {
		if UseRewiredEdges(mode, layer, numLayers) {
			return true
		}
	}
	return false
}

// UsesVirtualNodes returns whether batches prepared with the transform mode carry virtual nodes.
func UsesVirtualNodes(mode TransformMode) bool {
	return mode == TransformCGP
}

// InputLayout describes which inputs the model takes, in order:
// `x`, `edge_index`, `batch`, then `rewiring_edge_index` if WithRewiring, then `virtual_node_mask` and
// `retained_nodes` if WithVirtualNodes.
type InputLayout struct {
	WithRewiring, WithVirtualNodes bool
}

// NumInputs returns the number of inputs of the layout.
func (l InputLayout) NumInputs() int {
	n := 3
	if l.WithRewiring {
		n++
	}
	if l.WithVirtualNodes {
		n += 2
	}
	return n
}

// LayoutFor returns the InputLayout of a model configured with cfg.
func LayoutFor(cfg *Config) InputLayout {
	return InputLayout{
		WithRewiring:     RequiresRewiring(cfg.Transform, cfg.NumLayers),
		WithVirtualNodes: UsesVirtualNodes(cfg.Transform),
	}
}

// Inputs holds the batched graph as graph nodes.
type Inputs struct {
	// X holds the node features, shaped `[num_nodes, feature_dim]`.
	X *Node

	// EdgeIndex holds the original edges, shaped `[num_edges, 2]`, as (source, target) pairs.
	EdgeIndex *Node

	// RewiringEdgeIndex holds the rewired edges, shaped `[num_rewired_edges, 2]`. Optional.
	RewiringEdgeIndex *Node

	// Batch holds the index of the graph of each node, shaped `[num_nodes]`.
	Batch *Node

	// VirtualNodeMask is true for virtual nodes, shaped `[num_nodes]`. Optional.
	VirtualNodeMask *Node

	// RetainedNodes holds the indices of the non-virtual nodes in order, shaped `[num_retained, 1]`.
	// It is required whenever VirtualNodeMask is given.
	RetainedNodes *Node
}

// InputsFromNodes maps the model inputs, ordered as described by layout, to Inputs.
func InputsFromNodes(layout InputLayout, nodes []*Node) *Inputs {
	if len(nodes) != layout.NumInputs() {
		Panicf("model expects %d inputs for layout %+v, got %d", layout.NumInputs(), layout, len(nodes))
	}
	in := &Inputs{
		X:         nodes[0],
		EdgeIndex: nodes[1],
		Batch:     nodes[2],
	}
	next := 3
	if layout.WithRewiring {
		in.RewiringEdgeIndex = nodes[next]
		next++
	}
	if layout.WithVirtualNodes {
		in.VirtualNodeMask = nodes[next]
		in.RetainedNodes = nodes[next+1]
	}
	return in
}

// edgesForLayer returns the edges the given layer runs on.
func (in *Inputs) edgesForLayer(mode TransformMode, layer, numLayers int) *Node {
	if !UseRewiredEdges(mode, layer, numLayers) {
		return in.EdgeIndex
	}
	if in.RewiringEdgeIndex == nil {
		Panicf("layer %d requires the rewired edges (transform %s), but they were not given", layer, mode)
	}
	return in.RewiringEdgeIndex
}
