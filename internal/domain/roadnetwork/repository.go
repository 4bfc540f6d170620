package roadnetwork

import (
	"context"

	"github.com/paulmach/orb"
)

// Loader returns the road data for a region. Segments with at least one
// endpoint inside the bound are included together with both endpoints.
type Loader interface {
	LoadRegion(ctx context.Context, bound orb.Bound) (*RoadNetwork, error)
}

// Repository persists road network data.
type Repository interface {
	Loader

	// Import upserts nodes and segments.
	Import(ctx context.Context, network *RoadNetwork) error

	// Stats counts stored nodes and segments.
	Stats(ctx context.Context) (*Stats, error)
}
