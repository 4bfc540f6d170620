package routing

import "fmt"

// Metric selects what an edge weight measures.
type Metric string

const (
	// MetricDistance weights edges by length in meters.
	MetricDistance Metric = "distance"
	// MetricTime weights edges by travel time in seconds.
	MetricTime Metric = "time"
)

// IsValid reports whether m is a known metric.
func (m Metric) IsValid() bool {
	return m == MetricDistance || m == MetricTime
}

func (m Metric) String() string { return string(m) }

// ParseMetric converts text to a Metric. Empty input yields fallback.
func ParseMetric(s string, fallback Metric) (Metric, error) {
	if s == "" {
		return fallback, nil
	}
	m := Metric(s)
	if !m.IsValid() {
		return "", &InputError{Input: s, Reason: "metric must be distance or time"}
	}
	return m, nil
}

// Heuristic estimates the remaining cost between two positions. It must never
// overestimate the true cost in the graph's weight unit.
type Heuristic interface {
	Estimate(from, goal Coordinates) float64
}

// DistanceHeuristic estimates meters as the great-circle distance.
type DistanceHeuristic struct{}

// Estimate implements Heuristic.
func (DistanceHeuristic) Estimate(from, goal Coordinates) float64 {
	return Distance(from, goal)
}

// TravelTimeHeuristic estimates seconds as great-circle distance divided by
// the fastest speed any edge allows.
type TravelTimeHeuristic struct {
	maxSpeedMps float64
}

// NewTravelTimeHeuristic builds a time heuristic from an upper speed bound in km/h.
func NewTravelTimeHeuristic(maxSpeedKmh float64) (TravelTimeHeuristic, error) {
	if maxSpeedKmh <= 0 {
		return TravelTimeHeuristic{}, fmt.Errorf("max speed must be positive, got %v", maxSpeedKmh)
	}
	return TravelTimeHeuristic{maxSpeedMps: KmhToMps(maxSpeedKmh)}, nil
}

// Estimate implements Heuristic.
func (h TravelTimeHeuristic) Estimate(from, goal Coordinates) float64 {
	return Distance(from, goal) / h.maxSpeedMps
}

// HeuristicFor returns the heuristic matching metric.
func HeuristicFor(metric Metric, maxSpeedKmh float64) (Heuristic, error) {
	switch metric {
	case MetricDistance:
		return DistanceHeuristic{}, nil
	case MetricTime:
		return NewTravelTimeHeuristic(maxSpeedKmh)
	default:
		return nil, &InputError{Input: string(metric), Reason: "unknown metric"}
	}
}

// KmhToMps converts km/h to m/s.
func KmhToMps(kmh float64) float64 {
	return kmh * 1000 / 3600
}
