package vamana

import "github.com/pkg/errors"

// Neighbor is a graph edge endpoint: the id of the neighboring vector and
// its distance from the vector that owns this edge list.
type Neighbor struct {
	ID       uint64
	Distance float32
}

// Graph is the directed adjacency list backing a Vamana index. Each node
// holds at most KMax out-edges, chosen by robust pruning during Build.
type Graph struct {
	KMax      int
	adjacency [][]Neighbor
}

// NewGraph allocates an empty graph over n nodes with maximum out-degree
// kMax.
func NewGraph(n, kMax int) *Graph {
	return &Graph{KMax: kMax, adjacency: make([][]Neighbor, n)}
}

func (g *Graph) Size() int { return len(g.adjacency) }

func (g *Graph) Neighbors(id uint64) []Neighbor {
	if int(id) >= len(g.adjacency) {
		return nil
	}
	return g.adjacency[id]
}

func (g *Graph) SetNeighbors(id uint64, ns []Neighbor) error {
	if int(id) >= len(g.adjacency) {
		return errors.Errorf("vamana: node id %d out of range [0,%d)", id, len(g.adjacency))
	}
	if len(ns) > g.KMax {
		ns = ns[:g.KMax]
	}
	g.adjacency[id] = ns
	return nil
}

// NeighborIDs returns the bare ids of a node's out-edges, in edge order.
func NeighborIDs(ns []Neighbor) []uint64 {
	out := make([]uint64, len(ns))
	for i, n := range ns {
		out[i] = n.ID
	}
	return out
}
