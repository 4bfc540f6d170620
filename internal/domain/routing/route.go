package routing

// Route is an ordered path from start to goal, both inclusive.
type Route struct {
	Nodes []Node  `json:"nodes"`
	Cost  float64 `json:"cost"`
}

// Len returns the number of nodes on the route.
func (r *Route) Len() int { return len(r.Nodes) }

// Start returns the first node.
func (r *Route) Start() Node { return r.Nodes[0] }

// Goal returns the last node.
func (r *Route) Goal() Node { return r.Nodes[len(r.Nodes)-1] }

// NodeIDs returns the node ids in traversal order.
func (r *Route) NodeIDs() []NodeID {
	ids := make([]NodeID, len(r.Nodes))
	for i, n := range r.Nodes {
		ids[i] = n.ID
	}
	return ids
}

// Coordinates returns the node positions in traversal order.
func (r *Route) Coordinates() []Coordinates {
	coords := make([]Coordinates, len(r.Nodes))
	for i, n := range r.Nodes {
		coords[i] = n.Coordinates
	}
	return coords
}

// Distance returns the great-circle length of the route in meters, measured
// leg by leg between consecutive nodes.
func (r *Route) Distance() float64 {
	total := 0.0
	for i := 1; i < len(r.Nodes); i++ {
		total += Distance(r.Nodes[i-1].Coordinates, r.Nodes[i].Coordinates)
	}
	return total
}

// reconstruct walks back-pointers from goal to the start node and returns the
// path in traversal order. The cost is the sum of the edge weights used, not
// the goal's g value.
func reconstruct(g *Graph, states map[NodeID]*searchState, goal NodeID) (*Route, error) {
	var (
		reversed []Node
		cost     float64
	)

	id := goal
	for steps := 0; ; steps++ {
		if steps > len(states) {
			return nil, invariantf("back-pointer cycle detected at node %d", id)
		}
		n, ok := g.Node(id)
		if !ok {
			return nil, invariantf("route references unknown node %d", id)
		}
		reversed = append(reversed, n)

		st := states[id]
		if st == nil || !st.hasPrevious {
			break
		}
		cost += st.costFromPrevious
		id = st.previous
	}

	nodes := make([]Node, len(reversed))
	for i, n := range reversed {
		nodes[len(reversed)-1-i] = n
	}
	return &Route{Nodes: nodes, Cost: cost}, nil
}
