package routing

import "math"

// Nearest returns the node closest to c by great-circle distance, together
// with that distance in meters. Equidistant nodes resolve to the lower id.
func (g *Graph) Nearest(c Coordinates) (Node, float64, error) {
	if len(g.order) == 0 {
		return Node{}, 0, ErrEmptyGraph
	}

	var (
		best     Node
		bestDist = math.Inf(1)
	)
	for _, id := range g.order {
		n := g.nodes[id]
		if d := Distance(c, n.Coordinates); d < bestDist {
			best, bestDist = n, d
		}
	}
	return best, bestDist, nil
}
