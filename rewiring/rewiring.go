// Package rewiring implements the graph transformations that add a second, rewired, set of edges to a
// graph, used by some of the layers of the gnn model:
//
//   - EGP (Expander Graph Propagation): the rewired edges are those of a Cayley graph of SL(2, Z_n), an
//     expander, truncated to the number of nodes of the graph.
//   - CGP (Cayley Graph Propagation): like EGP, but instead of truncating the Cayley graph, virtual
//     nodes are added to the graph to complete it. See graphdata.Graph.VirtualNodeMask.
//   - FA (Fully Adjacent): the rewired edges connect every pair of distinct nodes.
//
// Transformations return new graphs, the input graph is not changed.
package rewiring

import (
	"strings"

	"github.com/graphrewire/gnnrewire/graphdata"
	"github.com/graphrewire/gnnrewire/internal/workerspool"
	"github.com/pkg/errors"
)

// Pool used by ApplyAll to transform graphs in parallel.
// Set its parallelism to 0 to transform graphs sequentially.
var Pool = workerspool.New()

// Mode is a graph rewiring transformation.
type Mode int

const (
	// ModeNone keeps only the original edges.
	ModeNone Mode = iota

	// ModeEGP is Expander Graph Propagation, see Expander.
	ModeEGP

	// ModeCGP is Cayley Graph Propagation, see CayleyVirtual.
	ModeCGP

	// ModeFA is the fully-adjacent graph, see FullyAdjacent.
	ModeFA
)

//go:generate enumer -type=Mode -trimprefix=Mode -transform=upper -values -text -output=gen_mode_enumer.go rewiring.go

// ParseMode returns the Mode with the given name, case-insensitive.
// An empty name is ModeNone.
func ParseMode(name string) (Mode, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return ModeNone, nil
	}
	mode, err := ModeString(name)
	if err != nil {
		return ModeNone, errors.Errorf("unknown rewiring transform %q: options are %v", name, ModeStrings())
	}
	return mode, nil
}

// Apply transforms the graph according to mode. ModeNone returns a copy of the graph unchanged.
func Apply[T graphdata.Feature](mode Mode, g *graphdata.Graph[T]) (*graphdata.Graph[T], error) {
	if g == nil {
		return nil, errors.New("nil graph")
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	switch mode {
	case ModeNone:
		return g.Clone(), nil
	case ModeEGP:
		return Expander(g), nil
	case ModeCGP:
		return CayleyVirtual(g), nil
	case ModeFA:
		return FullyAdjacent(g), nil
	default:
		return nil, errors.Errorf("invalid rewiring mode %s", mode)
	}
}

// ApplyAll transforms every graph in parallel using Pool, see Apply.
// The order of the graphs is preserved.
func ApplyAll[T graphdata.Feature](mode Mode, graphs []*graphdata.Graph[T]) ([]*graphdata.Graph[T], error) {
	transformed := make([]*graphdata.Graph[T], len(graphs))
	err := Pool.Run(len(graphs), func(ii int) error {
		var err error
		transformed[ii], err = Apply(mode, graphs[ii])
		if err != nil {
			return errors.WithMessagef(err, "rewiring graph #%d with %s", ii, mode)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return transformed, nil
}

// FullyAdjacent returns a copy of g whose rewired edges connect every ordered pair of distinct nodes.
func FullyAdjacent[T graphdata.Feature](g *graphdata.Graph[T]) *graphdata.Graph[T] {
	out := g.Clone()
	out.RewiringEdges = make([]graphdata.Edge, 0, g.NumNodes*(g.NumNodes-1))
	for source := range g.NumNodes {
		for target := range g.NumNodes {
			if source != target {
				out.RewiringEdges = append(out.RewiringEdges, graphdata.Edge{int32(source), int32(target)})
			}
		}
	}
	return out
}

// Expander returns a copy of g whose rewired edges are those of the smallest Cayley graph with at least
// g.NumNodes nodes, restricted to its first g.NumNodes nodes.
func Expander[T graphdata.Feature](g *graphdata.Graph[T]) *graphdata.Graph[T] {
	_, cayleyEdges := CayleyGraph(CayleyN(g.NumNodes))
	out := g.Clone()
	out.RewiringEdges = make([]graphdata.Edge, 0, len(cayleyEdges))
	limit := int32(g.NumNodes)
	for _, e := range cayleyEdges {
		if e[0] < limit && e[1] < limit {
			out.RewiringEdges = append(out.RewiringEdges, e)
		}
	}
	return out
}

// CayleyVirtual returns a copy of g completed with virtual nodes to the size of the smallest Cayley graph
// with at least g.NumNodes nodes, whose edges become the rewired edges.
//
// Virtual nodes are appended after the original nodes, with zero features and no original edges.
func CayleyVirtual[T graphdata.Feature](g *graphdata.Graph[T]) *graphdata.Graph[T] {
	numNodes, cayleyEdges := CayleyGraph(CayleyN(g.NumNodes))
	out := g.Clone()
	numVirtual := numNodes - g.NumNodes
	out.NumNodes = numNodes
	out.Features = append(out.Features, make([]T, numVirtual*g.FeatureDim)...)
	out.RewiringEdges = append([]graphdata.Edge(nil), cayleyEdges...)
	out.VirtualNodeMask = make([]bool, numNodes)
	for node := g.NumNodes; node < numNodes; node++ {
		out.VirtualNodeMask[node] = true
	}
	if g.VirtualNodeMask != nil {
		copy(out.VirtualNodeMask, g.VirtualNodeMask)
	}
	return out
}
