package rewiring

import (
	"sync"

	"github.com/graphrewire/gnnrewire/graphdata"
	"k8s.io/klog/v2"
)

// sl2 is a 2x2 matrix with entries in Z_n, stored row-major.
type sl2 [4]int

var sl2Identity = sl2{1, 0, 0, 1}

// mulMod returns a*b mod n.
func (a sl2) mulMod(b sl2, n int) sl2 {
	return sl2{
		(a[0]*b[0] + a[1]*b[2]) % n,
		(a[0]*b[1] + a[1]*b[3]) % n,
		(a[2]*b[0] + a[3]*b[2]) % n,
		(a[2]*b[1] + a[3]*b[3]) % n,
	}
}

// cayleyGenerators returns the generators of SL(2, Z_n) used for the Cayley graph, and their inverses.
func cayleyGenerators(n int) []sl2 {
	return []sl2{
		{1, 1, 0, 1},
		{1, n - 1, 0, 1},
		{1, 0, 1, 1},
		{1, 0, n - 1, 1},
	}
}

// primeFactors returns the distinct prime factors of n, in increasing order.
func primeFactors(n int) []int {
	var factors []int
	for p := 2; p*p <= n; p++ {
		if n%p == 0 {
			factors = append(factors, p)
			for n%p == 0 {
				n /= p
			}
		}
	}
	if n > 1 {
		factors = append(factors, n)
	}
	return factors
}

// SL2Size returns the number of elements of SL(2, Z_n), that is, the number of nodes of its Cayley graph:
//
//	n^3 · ∏_{p|n} (1 - 1/p^2)
//
// For n=2 it is 6, for n=3 it is 24.
func SL2Size(n int) int {
	size := n * n * n
	for _, p := range primeFactors(n) {
		size = size / (p * p) * (p*p - 1)
	}
	return size
}

// CayleyN returns the smallest n >= 2 whose Cayley graph has at least numNodes nodes.
func CayleyN(numNodes int) int {
	n := 2
	for SL2Size(n) < numNodes {
		n++
	}
	return n
}

// cayleyGraph is one cached Cayley graph.
type cayleyGraph struct {
	numNodes int
	edges    []graphdata.Edge
}

var (
	muCayleyCache sync.Mutex
	cayleyCache   = make(map[int]*cayleyGraph)
)

// CayleyGraph returns the Cayley graph of SL(2, Z_n) with the generators `[[1,1],[0,1]]` and `[[1,0],[1,1]]`
// and their inverses.
//
// Nodes are numbered in the order they are visited by a breadth-first search starting at the identity,
// so any prefix of the nodes is connected. Edges are listed in both directions, without duplicates.
//
// Graphs are cached by n, and the returned edges are shared: they must not be modified.
// It is safe for concurrent use.
func CayleyGraph(n int) (numNodes int, edges []graphdata.Edge) {
	if n < 2 {
		n = 2
	}
	muCayleyCache.Lock()
	defer muCayleyCache.Unlock()
	if c, found := cayleyCache[n]; found {
		return c.numNodes, c.edges
	}
	c := buildCayleyGraph(n)
	cayleyCache[n] = c
	klog.V(1).Infof("Cayley graph of SL(2, Z_%d): %d nodes, %d edges", n, c.numNodes, len(c.edges))
	return c.numNodes, c.edges
}

func buildCayleyGraph(n int) *cayleyGraph {
	generators := cayleyGenerators(n)
	index := map[sl2]int32{sl2Identity: 0}
	queue := []sl2{sl2Identity}
	seen := make(map[graphdata.Edge]struct{})
	var edges []graphdata.Edge
	for head := 0; head < len(queue); head++ {
		current := queue[head]
		source := index[current]
		for _, gen := range generators {
			next := current.mulMod(gen, n)
			target, found := index[next]
			if !found {
				target = int32(len(queue))
				index[next] = target
				queue = append(queue, next)
			}
			edge := graphdata.Edge{source, target}
			if _, dup := seen[edge]; dup {
				continue
			}
			seen[edge] = struct{}{}
			edges = append(edges, edge)
		}
	}
	return &cayleyGraph{numNodes: len(queue), edges: edges}
}
