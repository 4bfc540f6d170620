package roadnetwork

import (
	"fmt"
	"math"
	"sort"

	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/routing"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/platform/apperror"
)

// RoadNode is an intersection as delivered by the map data source.
type RoadNode struct {
	ID  int64   `json:"id"`
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// RoadSegment is a directed road piece between two intersections. Key tells
// parallel segments between the same pair apart. TravelTimeS is optional; zero
// means unknown.
type RoadSegment struct {
	From        int64   `json:"from"`
	To          int64   `json:"to"`
	Key         int     `json:"key"`
	Oneway      bool    `json:"oneway"`
	LengthM     float64 `json:"length_m"`
	TravelTimeS float64 `json:"travel_time_s"`
}

// RoadNetwork is the raw node and segment data for one region.
type RoadNetwork struct {
	Nodes    []RoadNode    `json:"nodes"`
	Segments []RoadSegment `json:"segments"`
}

// Validate checks field-level sanity before the data is stored. Segments may
// end at nodes outside the payload; ExternalEndpoints lists those so the store
// can check they already exist.
func (n *RoadNetwork) Validate() error {
	seen := make(map[int64]struct{}, len(n.Nodes))
	for _, node := range n.Nodes {
		if _, dup := seen[node.ID]; dup {
			return apperror.NewValidationError(fmt.Sprintf("duplicate node id %d", node.ID))
		}
		seen[node.ID] = struct{}{}
		if err := (routing.Coordinates{Lat: node.Lat, Lon: node.Lon}).Validate(); err != nil {
			return apperror.NewValidationError(fmt.Sprintf("node %d: %v", node.ID, err))
		}
	}
	type segmentKey struct {
		from, to int64
		key      int
	}
	keys := make(map[segmentKey]struct{}, len(n.Segments))
	for i, s := range n.Segments {
		k := segmentKey{s.From, s.To, s.Key}
		if _, dup := keys[k]; dup {
			return apperror.NewValidationError(fmt.Sprintf("segment %d: duplicate (from, to, key) %d, %d, %d", i, s.From, s.To, s.Key))
		}
		keys[k] = struct{}{}
		if math.IsNaN(s.LengthM) || s.LengthM < 0 {
			return apperror.NewValidationError(fmt.Sprintf("segment %d: length must be non-negative", i))
		}
		if math.IsNaN(s.TravelTimeS) || s.TravelTimeS < 0 {
			return apperror.NewValidationError(fmt.Sprintf("segment %d: travel time must be non-negative", i))
		}
	}
	return nil
}

// ExternalEndpoints returns, ascending and without duplicates, the segment
// endpoints that are not among the network's nodes.
func (n *RoadNetwork) ExternalEndpoints() []int64 {
	own := make(map[int64]struct{}, len(n.Nodes))
	for _, node := range n.Nodes {
		own[node.ID] = struct{}{}
	}
	external := make(map[int64]struct{})
	for _, s := range n.Segments {
		for _, id := range [2]int64{s.From, s.To} {
			if _, ok := own[id]; !ok {
				external[id] = struct{}{}
			}
		}
	}
	ids := make([]int64, 0, len(external))
	for id := range external {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// WeightPolicy turns a segment into an edge weight for a metric. MaxSpeedKmh
// is the bound the travel-time heuristic divides by.
type WeightPolicy struct {
	Metric          routing.Metric
	DefaultSpeedKmh float64
	MaxSpeedKmh     float64
}

// Weight returns the segment cost. Under MetricTime a segment without a travel
// time is costed at the default speed, and no segment is ever faster to cross
// than at MaxSpeedKmh.
func (p WeightPolicy) Weight(s RoadSegment) float64 {
	if p.Metric != routing.MetricTime {
		return s.LengthM
	}
	w := s.TravelTimeS
	if w <= 0 {
		w = s.LengthM / routing.KmhToMps(p.DefaultSpeedKmh)
	}
	if p.MaxSpeedKmh > 0 {
		w = math.Max(w, s.LengthM/routing.KmhToMps(p.MaxSpeedKmh))
	}
	return w
}

// BuildGraph converts the raw data into an immutable routing graph, enforcing
// the graph invariants.
func (n *RoadNetwork) BuildGraph(policy WeightPolicy) (*routing.Graph, error) {
	nodes := make([]routing.Node, len(n.Nodes))
	for i, rn := range n.Nodes {
		nodes[i] = routing.Node{
			ID:          routing.NodeID(rn.ID),
			Coordinates: routing.Coordinates{Lat: rn.Lat, Lon: rn.Lon},
		}
	}

	edges := make([]routing.Edge, len(n.Segments))
	for i, s := range n.Segments {
		edges[i] = routing.Edge{
			From:   routing.NodeID(s.From),
			To:     routing.NodeID(s.To),
			Oneway: s.Oneway,
			Weight: policy.Weight(s),
		}
	}

	return routing.NewGraph(nodes, edges)
}

// Stats summarises what is stored.
type Stats struct {
	Nodes    int64 `json:"nodes"`
	Segments int64 `json:"segments"`
	Oneway   int64 `json:"oneway_segments"`
}
