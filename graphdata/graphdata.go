// Package graphdata holds graphs as flat Go slices, and collates them into batches with the
// tensor layout consumed by the gnn package.
//
// A batch of graphs is represented as one big disconnected graph: node indices of each graph are
// shifted by the number of nodes of the graphs before it, and the `batch` vector holds, for each node,
// the index of the graph it belongs to.
package graphdata

import (
	"github.com/pkg/errors"
)

// Feature is the set of Go types supported for node features.
//
// Integer features are used for categorical encoders (e.g.: atom features), float features otherwise.
type Feature interface {
	float32 | float64 | int32 | int64
}

// Edge is a directed (source, target) pair of node indices.
type Edge [2]int32

// Graph is one graph with node features of type T.
//
// Edges are directed, an undirected graph lists each edge in both directions.
type Graph[T Feature] struct {
	// NumNodes in the graph, including virtual nodes.
	NumNodes int

	// FeatureDim is the number of features per node.
	FeatureDim int

	// Features are stored row-major, shaped `[NumNodes, FeatureDim]`.
	Features []T

	// Edges of the graph, with indices in `[0, NumNodes)`.
	Edges []Edge

	// RewiringEdges are the edges of the rewired graph over the same nodes. It is nil if the graph
	// was not rewired.
	RewiringEdges []Edge

	// VirtualNodeMask marks the nodes added by a transformation (CGP). It is nil if there are none,
	// otherwise it has length NumNodes.
	VirtualNodeMask []bool
}

// NewGraph creates a graph with the given features shaped `[numNodes, featureDim]` and edges.
// It returns an error if the graph is not valid, see Graph.Validate.
func NewGraph[T Feature](numNodes, featureDim int, features []T, edges []Edge) (*Graph[T], error) {
	g := &Graph[T]{
		NumNodes:   numNodes,
		FeatureDim: featureDim,
		Features:   features,
		Edges:      edges,
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// Validate checks that the features and the edges are consistent with the number of nodes.
func (g *Graph[T]) Validate() error {
	if g.NumNodes <= 0 {
		return errors.Errorf("graph must have at least one node, got %d", g.NumNodes)
	}
	if g.FeatureDim <= 0 {
		return errors.Errorf("graph must have at least one feature per node, got %d", g.FeatureDim)
	}
	if len(g.Features) != g.NumNodes*g.FeatureDim {
		return errors.Errorf("graph with %d nodes and %d features per node must have %d features, got %d",
			g.NumNodes, g.FeatureDim, g.NumNodes*g.FeatureDim, len(g.Features))
	}
	if err := checkEdges(g.Edges, g.NumNodes); err != nil {
		return err
	}
	if err := checkEdges(g.RewiringEdges, g.NumNodes); err != nil {
		return errors.WithMessage(err, "rewiring edges")
	}
	if g.VirtualNodeMask != nil && len(g.VirtualNodeMask) != g.NumNodes {
		return errors.Errorf("virtual node mask must have one entry per node (%d), got %d", g.NumNodes, len(g.VirtualNodeMask))
	}
	return nil
}

func checkEdges(edges []Edge, numNodes int) error {
	for ii, e := range edges {
		for _, node := range e {
			if node < 0 || int(node) >= numNodes {
				return errors.Errorf("edge #%d (%d->%d) points to node out of range [0, %d)", ii, e[0], e[1], numNodes)
			}
		}
	}
	return nil
}

// NumVirtualNodes returns how many nodes are marked as virtual.
func (g *Graph[T]) NumVirtualNodes() int {
	return countTrue(g.VirtualNodeMask)
}

// NodeFeatures returns the features of one node. It shares the underlying storage.
func (g *Graph[T]) NodeFeatures(node int) []T {
	return g.Features[node*g.FeatureDim : (node+1)*g.FeatureDim]
}

// Clone returns a deep copy of the graph.
func (g *Graph[T]) Clone() *Graph[T] {
	c := &Graph[T]{
		NumNodes:   g.NumNodes,
		FeatureDim: g.FeatureDim,
		Features:   append([]T(nil), g.Features...),
		Edges:      append([]Edge(nil), g.Edges...),
	}
	if g.RewiringEdges != nil {
		c.RewiringEdges = append([]Edge{}, g.RewiringEdges...)
	}
	if g.VirtualNodeMask != nil {
		c.VirtualNodeMask = append([]bool{}, g.VirtualNodeMask...)
	}
	return c
}

func countTrue(values []bool) int {
	var count int
	for _, v := range values {
		if v {
			count++
		}
	}
	return count
}

// shiftEdges appends edges to dst, with both endpoints shifted by offset.
func shiftEdges(dst []Edge, edges []Edge, offset int) []Edge {
	for _, e := range edges {
		dst = append(dst, Edge{e[0] + int32(offset), e[1] + int32(offset)})
	}
	return dst
}
