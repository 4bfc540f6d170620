package routing

import (
	"errors"
	"fmt"
)

var (
	// ErrNoPathFound is returned when the frontier empties before the goal is selected.
	ErrNoPathFound = errors.New("no path found between start and goal")

	// ErrEmptyGraph is returned when a lookup needs at least one node.
	ErrEmptyGraph = errors.New("graph has no nodes")
)

// InputError reports malformed user-supplied coordinates. Nothing is mutated
// when it is returned, so the caller may simply retry with corrected input.
type InputError struct {
	Input  string
	Reason string
}

func (e *InputError) Error() string {
	if e.Input == "" {
		return fmt.Sprintf("invalid coordinates: %s", e.Reason)
	}
	return fmt.Sprintf("invalid coordinates %q: %s", e.Input, e.Reason)
}

// InvariantViolationError reports a graph that breaks the data model rules:
// duplicate node ids, edges to unknown nodes, bad weights, or a search
// endpoint that is not in the graph.
type InvariantViolationError struct {
	Reason string
}

func (e *InvariantViolationError) Error() string {
	return "graph invariant violated: " + e.Reason
}

func invariantf(format string, args ...interface{}) error {
	return &InvariantViolationError{Reason: fmt.Sprintf(format, args...)}
}
