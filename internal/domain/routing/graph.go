package routing

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
)

// NodeID is the identifier assigned to a node by the graph source.
type NodeID int64

// Node is a road intersection.
type Node struct {
	ID          NodeID      `json:"id"`
	Coordinates Coordinates `json:"coordinates"`
}

// Edge is a road segment. Traversal From->To is always allowed, To->From only
// when Oneway is false. A self-loop is never traversable.
type Edge struct {
	From   NodeID  `json:"from"`
	To     NodeID  `json:"to"`
	Oneway bool    `json:"oneway"`
	Weight float64 `json:"weight"`
}

// Neighbor is one traversable transition out of a node.
type Neighbor struct {
	ID     NodeID
	Weight float64
}

// Graph is an immutable road network. Once built it is safe for concurrent
// searches; all per-search state lives outside it.
type Graph struct {
	nodes     map[NodeID]Node
	order     []NodeID
	edges     []Edge
	adjacency map[NodeID][]Neighbor
	bound     orb.Bound
}

// NewGraph validates nodes and edges and builds the adjacency index.
func NewGraph(nodes []Node, edges []Edge) (*Graph, error) {
	g := &Graph{
		nodes:     make(map[NodeID]Node, len(nodes)),
		order:     make([]NodeID, 0, len(nodes)),
		edges:     make([]Edge, len(edges)),
		adjacency: make(map[NodeID][]Neighbor, len(nodes)),
	}

	points := make(orb.MultiPoint, 0, len(nodes))
	for _, n := range nodes {
		if _, exists := g.nodes[n.ID]; exists {
			return nil, invariantf("duplicate node id %d", n.ID)
		}
		if err := n.Coordinates.Validate(); err != nil {
			return nil, invariantf("node %d: %v", n.ID, err)
		}
		g.nodes[n.ID] = n
		g.order = append(g.order, n.ID)
		points = append(points, n.Coordinates.Point())
	}
	sort.Slice(g.order, func(i, j int) bool { return g.order[i] < g.order[j] })
	if len(points) > 0 {
		g.bound = points.Bound()
	}

	copy(g.edges, edges)
	best := make(map[NodeID]map[NodeID]float64, len(nodes))
	for i, e := range g.edges {
		if _, ok := g.nodes[e.From]; !ok {
			return nil, invariantf("edge %d references unknown node %d", i, e.From)
		}
		if _, ok := g.nodes[e.To]; !ok {
			return nil, invariantf("edge %d references unknown node %d", i, e.To)
		}
		if math.IsNaN(e.Weight) || math.IsInf(e.Weight, 0) || e.Weight < 0 {
			return nil, invariantf("edge %d (%d->%d) has invalid weight %v", i, e.From, e.To, e.Weight)
		}
		if e.From == e.To {
			continue
		}
		relax(best, e.From, e.To, e.Weight)
		if !e.Oneway {
			relax(best, e.To, e.From, e.Weight)
		}
	}

	for from, targets := range best {
		list := make([]Neighbor, 0, len(targets))
		for to, w := range targets {
			list = append(list, Neighbor{ID: to, Weight: w})
		}
		sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
		g.adjacency[from] = list
	}

	return g, nil
}

// relax keeps the cheapest of any parallel edges between the same ordered pair.
func relax(best map[NodeID]map[NodeID]float64, from, to NodeID, w float64) {
	targets, ok := best[from]
	if !ok {
		targets = make(map[NodeID]float64)
		best[from] = targets
	}
	if cur, ok := targets[to]; !ok || w < cur {
		targets[to] = w
	}
}

// Node returns the node with the given id.
func (g *Graph) Node(id NodeID) (Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns every node ordered by id.
func (g *Graph) Nodes() []Node {
	out := make([]Node, len(g.order))
	for i, id := range g.order {
		out[i] = g.nodes[id]
	}
	return out
}

// Edges returns a copy of the edge set as supplied.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.order) }

// EdgeCount returns the number of edges as supplied, including self-loops and parallels.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Bound returns the bounding box of all nodes.
func (g *Graph) Bound() orb.Bound { return g.bound }

// Neighbors returns the distinct nodes reachable from id over one traversable
// edge, ordered by id. When parallel edges exist the cheapest one is used.
// The returned slice is shared and must not be modified.
func (g *Graph) Neighbors(id NodeID) []Neighbor {
	return g.adjacency[id]
}
