package routeplan

import "fmt"

// PlanStatus is the outcome state of a route plan.
type PlanStatus string

const (
	StatusPending PlanStatus = "pending"
	StatusFound   PlanStatus = "found"
	StatusNoPath  PlanStatus = "no_path"
	StatusFailed  PlanStatus = "failed"
)

var validTransitions = map[PlanStatus][]PlanStatus{
	StatusPending: {StatusFound, StatusNoPath, StatusFailed},
	StatusFound:   {},
	StatusNoPath:  {},
	StatusFailed:  {},
}

// IsValid returns true if the status is a recognized plan status.
func (s PlanStatus) IsValid() bool {
	_, exists := validTransitions[s]
	return exists
}

// CanTransitionTo returns true if a transition from this status to the target is allowed.
func (s PlanStatus) CanTransitionTo(target PlanStatus) bool {
	for _, t := range validTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if no further transitions are possible.
func (s PlanStatus) IsTerminal() bool {
	return len(validTransitions[s]) == 0
}

// IsSettled reports whether the plan's answer holds on a retry: a route was
// found or the endpoints are not connected. Failed plans are worth retrying.
func (s PlanStatus) IsSettled() bool {
	return s == StatusFound || s == StatusNoPath
}

func (s PlanStatus) String() string {
	return string(s)
}

// ParsePlanStatus converts a string to a PlanStatus, returning an error if invalid.
func ParsePlanStatus(s string) (PlanStatus, error) {
	status := PlanStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid plan status: %s", s)
	}
	return status, nil
}
