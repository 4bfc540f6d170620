package routing

import "context"

// searchState is the per-search record kept for every discovered node.
type searchState struct {
	g, h, f          float64
	visited          bool
	inFrontier       bool
	version          uint32
	previous         NodeID
	hasPrevious      bool
	costFromPrevious float64
}

// Result is a successful search outcome.
type Result struct {
	Route *Route
	// Expanded counts nodes selected from the frontier, including the goal.
	Expanded int
	// Discovered counts distinct nodes that ever received a cost.
	Discovered int
}

// Search runs A* from start to goal over g. It never mutates g, so any number
// of searches may share one graph. ctx is checked once per iteration.
//
// It returns ErrNoPathFound when goal is unreachable and an
// *InvariantViolationError when either endpoint is not in the graph.
func Search(ctx context.Context, g *Graph, start, goal NodeID, h Heuristic) (*Result, error) {
	startNode, ok := g.Node(start)
	if !ok {
		return nil, invariantf("start node %d is not in the graph", start)
	}
	goalNode, ok := g.Node(goal)
	if !ok {
		return nil, invariantf("goal node %d is not in the graph", goal)
	}

	goalAt := goalNode.Coordinates
	states := make(map[NodeID]*searchState)

	first := &searchState{h: h.Estimate(startNode.Coordinates, goalAt), inFrontier: true}
	first.f = first.h
	states[start] = first

	open := &frontier{}
	open.push(frontierItem{id: start, f: first.f, version: first.version})

	expanded := 0
	for open.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		item := open.pop()
		current := states[item.id]
		if !current.inFrontier || item.version != current.version {
			continue
		}
		expanded++

		if item.id == goal {
			route, err := reconstruct(g, states, goal)
			if err != nil {
				return nil, err
			}
			return &Result{Route: route, Expanded: expanded, Discovered: len(states)}, nil
		}

		current.visited = true
		current.inFrontier = false

		for _, nb := range g.Neighbors(item.id) {
			tentativeG := current.g + nb.Weight

			next, discovered := states[nb.ID]
			if !discovered {
				n, _ := g.Node(nb.ID)
				next = &searchState{h: h.Estimate(n.Coordinates, goalAt)}
				states[nb.ID] = next
			} else if tentativeG >= next.g {
				continue
			}

			next.g = tentativeG
			next.f = next.g + next.h
			next.previous = item.id
			next.hasPrevious = true
			next.costFromPrevious = nb.Weight
			next.visited = false
			next.inFrontier = true
			next.version++
			open.push(frontierItem{id: nb.ID, f: next.f, version: next.version})
		}
	}

	return nil, ErrNoPathFound
}
