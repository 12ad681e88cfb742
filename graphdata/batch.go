package graphdata

import (
	"math"

	"github.com/gomlx/gomlx/types/tensors"
	"github.com/pkg/errors"
)

// Batch is a collection of graphs merged into one disconnected graph.
type Batch[T Feature] struct {
	NumGraphs  int
	NumNodes   int
	FeatureDim int

	// X holds the node features, row-major, shaped `[NumNodes, FeatureDim]`.
	X []T

	// EdgeIndex holds the edges of all graphs, with node indices shifted to the batch.
	EdgeIndex []Edge

	// RewiringEdgeIndex holds the rewired edges of all graphs, shifted as EdgeIndex.
	// It is nil if the graphs were not rewired.
	RewiringEdgeIndex []Edge

	// Assignment holds the graph index of each node, it is non-decreasing.
	Assignment []int32

	// VirtualNodeMask marks virtual nodes. It is nil if the graphs have no virtual nodes.
	VirtualNodeMask []bool
}

// Collate merges the graphs into one Batch.
//
// All graphs must have the same FeatureDim. Either all or none of the graphs must have RewiringEdges.
// If any graph has a VirtualNodeMask, the graphs without one are taken as having no virtual nodes.
func Collate[T Feature](graphs []*Graph[T]) (*Batch[T], error) {
	if len(graphs) == 0 {
		return nil, errors.New("cannot collate an empty list of graphs")
	}
	b := &Batch[T]{
		NumGraphs:  len(graphs),
		FeatureDim: graphs[0].FeatureDim,
	}
	var numEdges, numRewiringEdges int
	withRewiring := graphs[0].RewiringEdges != nil
	withVirtualNodes := false
	for ii, g := range graphs {
		if err := g.Validate(); err != nil {
			return nil, errors.WithMessagef(err, "graph #%d", ii)
		}
		if g.FeatureDim != b.FeatureDim {
			return nil, errors.Errorf("graph #%d has %d features per node, but graph #0 has %d", ii, g.FeatureDim, b.FeatureDim)
		}
		if (g.RewiringEdges != nil) != withRewiring {
			return nil, errors.Errorf("graph #%d rewired=%v, but graph #0 rewired=%v: either all graphs or none must be rewired",
				ii, g.RewiringEdges != nil, withRewiring)
		}
		withVirtualNodes = withVirtualNodes || g.VirtualNodeMask != nil
		b.NumNodes += g.NumNodes
		numEdges += len(g.Edges)
		numRewiringEdges += len(g.RewiringEdges)
	}
	if b.NumNodes > math.MaxInt32 {
		return nil, errors.Errorf("batch has %d nodes, more than what an int32 index can address", b.NumNodes)
	}

	b.X = make([]T, 0, b.NumNodes*b.FeatureDim)
	b.EdgeIndex = make([]Edge, 0, numEdges)
	if withRewiring {
		b.RewiringEdgeIndex = make([]Edge, 0, numRewiringEdges)
	}
	b.Assignment = make([]int32, 0, b.NumNodes)
	if withVirtualNodes {
		b.VirtualNodeMask = make([]bool, 0, b.NumNodes)
	}
	offset := 0
	for graphIdx, g := range graphs {
		b.X = append(b.X, g.Features...)
		b.EdgeIndex = shiftEdges(b.EdgeIndex, g.Edges, offset)
		if withRewiring {
			b.RewiringEdgeIndex = shiftEdges(b.RewiringEdgeIndex, g.RewiringEdges, offset)
		}
		for range g.NumNodes {
			b.Assignment = append(b.Assignment, int32(graphIdx))
		}
		if withVirtualNodes {
			if g.VirtualNodeMask != nil {
				b.VirtualNodeMask = append(b.VirtualNodeMask, g.VirtualNodeMask...)
			} else {
				b.VirtualNodeMask = append(b.VirtualNodeMask, make([]bool, g.NumNodes)...)
			}
		}
		offset += g.NumNodes
	}
	return b, nil
}

// NumEdges returns the number of original edges in the batch.
func (b *Batch[T]) NumEdges() int { return len(b.EdgeIndex) }

// NumVirtualNodes returns the number of virtual nodes in the batch.
func (b *Batch[T]) NumVirtualNodes() int {
	return countTrue(b.VirtualNodeMask)
}

// RetainedNodes returns the indices of the non-virtual nodes, in order.
func (b *Batch[T]) RetainedNodes() []int32 {
	retained := make([]int32, 0, b.NumNodes-b.NumVirtualNodes())
	for node := range b.NumNodes {
		if b.VirtualNodeMask == nil || !b.VirtualNodeMask[node] {
			retained = append(retained, int32(node))
		}
	}
	return retained
}

// RetainedAssignment returns the graph index of each non-virtual node, in order.
func (b *Batch[T]) RetainedAssignment() []int32 {
	if b.VirtualNodeMask == nil {
		return b.Assignment
	}
	assignment := make([]int32, 0, b.NumNodes-b.NumVirtualNodes())
	for node, isVirtual := range b.VirtualNodeMask {
		if !isVirtual {
			assignment = append(assignment, b.Assignment[node])
		}
	}
	return assignment
}

// Tensors converts the batch to the model inputs, in order:
//
//   - `x`: shaped `[NumNodes, FeatureDim]` of type T.
//   - `edge_index`: Int32 shaped `[num_edges, 2]`.
//   - `batch`: Int32 shaped `[NumNodes]`.
//   - `rewiring_edge_index`, only if withRewiring: Int32 shaped `[num_rewired_edges, 2]`.
//   - `virtual_node_mask` and `retained_nodes`, only if withVirtualNodes: Bool shaped `[NumNodes]` and
//     Int32 shaped `[num_retained_nodes, 1]`.
//
// It returns an error if the batch doesn't carry the requested rewiring edges. A batch without virtual
// nodes can still be converted withVirtualNodes, with an all false mask.
func (b *Batch[T]) Tensors(withRewiring, withVirtualNodes bool) ([]*tensors.Tensor, error) {
	if withRewiring && b.RewiringEdgeIndex == nil {
		return nil, errors.New("rewiring edges requested, but the batch was not rewired")
	}
	inputs := []*tensors.Tensor{
		tensors.FromFlatDataAndDimensions(b.X, b.NumNodes, b.FeatureDim),
		edgesTensor(b.EdgeIndex),
		tensors.FromFlatDataAndDimensions(b.Assignment, b.NumNodes),
	}
	if withRewiring {
		inputs = append(inputs, edgesTensor(b.RewiringEdgeIndex))
	}
	if withVirtualNodes {
		mask := b.VirtualNodeMask
		if mask == nil {
			mask = make([]bool, b.NumNodes)
		}
		retained := b.RetainedNodes()
		inputs = append(inputs,
			tensors.FromFlatDataAndDimensions(mask, b.NumNodes),
			tensors.FromFlatDataAndDimensions(retained, len(retained), 1))
	}
	return inputs, nil
}

func edgesTensor(edges []Edge) *tensors.Tensor {
	flat := make([]int32, 0, 2*len(edges))
	for _, e := range edges {
		flat = append(flat, e[0], e[1])
	}
	return tensors.FromFlatDataAndDimensions(flat, len(edges), 2)
}
