package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/roadnetwork"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/platform/apperror"
	"github.com/paulmach/orb"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const importBatchSize = 1000

// RoadNodeModel is the GORM model for the road_nodes table.
type RoadNodeModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement:false"`
	Lat       float64   `gorm:"not null;index:idx_road_nodes_lat_lon,priority:1"`
	Lon       float64   `gorm:"not null;index:idx_road_nodes_lat_lon,priority:2"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (RoadNodeModel) TableName() string {
	return "road_nodes"
}

// RoadSegmentModel is the GORM model for the road_segments table.
type RoadSegmentModel struct {
	FromNodeID  int64     `gorm:"primaryKey;autoIncrement:false;index:idx_road_segments_from"`
	ToNodeID    int64     `gorm:"primaryKey;autoIncrement:false;index:idx_road_segments_to"`
	Key         int       `gorm:"primaryKey;autoIncrement:false"`
	Oneway      bool      `gorm:"not null;default:false"`
	LengthM     float64   `gorm:"not null"`
	TravelTimeS float64   `gorm:"not null;default:0"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (RoadSegmentModel) TableName() string {
	return "road_segments"
}

// GormRoadNetworkRepository is the PostgreSQL-backed road network store.
type GormRoadNetworkRepository struct {
	db *gorm.DB
}

// NewGormRoadNetworkRepository creates a new GormRoadNetworkRepository.
func NewGormRoadNetworkRepository(db *gorm.DB) *GormRoadNetworkRepository {
	return &GormRoadNetworkRepository{db: db}
}

// LoadRegion returns every segment touching the bound plus both of its
// endpoints, even when one endpoint lies outside.
func (r *GormRoadNetworkRepository) LoadRegion(ctx context.Context, bound orb.Bound) (*roadnetwork.RoadNetwork, error) {
	db := r.db.WithContext(ctx)

	inside := func() *gorm.DB {
		return db.Model(&RoadNodeModel{}).
			Where("lat BETWEEN ? AND ? AND lon BETWEEN ? AND ?",
				bound.Min.Lat(), bound.Max.Lat(), bound.Min.Lon(), bound.Max.Lon())
	}

	var nodeModels []RoadNodeModel
	if err := inside().Order("id").Find(&nodeModels).Error; err != nil {
		return nil, fmt.Errorf("failed to load road nodes: %w", err)
	}

	var segmentModels []RoadSegmentModel
	if err := db.
		Where("from_node_id IN (?) OR to_node_id IN (?)", inside().Select("id"), inside().Select("id")).
		Order("from_node_id, to_node_id, key").
		Find(&segmentModels).Error; err != nil {
		return nil, fmt.Errorf("failed to load road segments: %w", err)
	}

	known := make(map[int64]struct{}, len(nodeModels))
	for _, m := range nodeModels {
		known[m.ID] = struct{}{}
	}
	var missing []int64
	for _, s := range segmentModels {
		for _, id := range [2]int64{s.FromNodeID, s.ToNodeID} {
			if _, ok := known[id]; !ok {
				known[id] = struct{}{}
				missing = append(missing, id)
			}
		}
	}
	if len(missing) > 0 {
		var outside []RoadNodeModel
		if err := db.Where("id IN ?", missing).Order("id").Find(&outside).Error; err != nil {
			return nil, fmt.Errorf("failed to load boundary road nodes: %w", err)
		}
		nodeModels = append(nodeModels, outside...)
	}

	network := &roadnetwork.RoadNetwork{
		Nodes:    make([]roadnetwork.RoadNode, len(nodeModels)),
		Segments: resolvedSegments(nodeModels, segmentModels),
	}
	for i, m := range nodeModels {
		network.Nodes[i] = roadnetwork.RoadNode{ID: m.ID, Lat: m.Lat, Lon: m.Lon}
	}
	return network, nil
}

// Import upserts nodes and segments in a single transaction.
func (r *GormRoadNetworkRepository) Import(ctx context.Context, network *roadnetwork.RoadNetwork) error {
	now := time.Now().UTC()

	nodes := make([]RoadNodeModel, len(network.Nodes))
	for i, n := range network.Nodes {
		nodes[i] = RoadNodeModel{ID: n.ID, Lat: n.Lat, Lon: n.Lon, UpdatedAt: now}
	}
	segments := make([]RoadSegmentModel, len(network.Segments))
	for i, s := range network.Segments {
		segments[i] = toSegmentModel(s, now)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if external := network.ExternalEndpoints(); len(external) > 0 {
			var stored []int64
			if err := tx.Model(&RoadNodeModel{}).Where("id IN ?", external).Pluck("id", &stored).Error; err != nil {
				return fmt.Errorf("failed to look up segment endpoints: %w", err)
			}
			if unknown := subtractIDs(external, stored); len(unknown) > 0 {
				return apperror.NewValidationError(fmt.Sprintf("segments reference unknown nodes %v", unknown))
			}
		}
		if len(nodes) > 0 {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{"lat", "lon", "updated_at"}),
			}).CreateInBatches(nodes, importBatchSize).Error; err != nil {
				return fmt.Errorf("failed to upsert road nodes: %w", err)
			}
		}
		if len(segments) > 0 {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "from_node_id"}, {Name: "to_node_id"}, {Name: "key"}},
				DoUpdates: clause.AssignmentColumns([]string{"oneway", "length_m", "travel_time_s", "updated_at"}),
			}).CreateInBatches(segments, importBatchSize).Error; err != nil {
				return fmt.Errorf("failed to upsert road segments: %w", err)
			}
		}
		return nil
	})
}

// Stats counts stored nodes and segments.
func (r *GormRoadNetworkRepository) Stats(ctx context.Context) (*roadnetwork.Stats, error) {
	db := r.db.WithContext(ctx)
	var stats roadnetwork.Stats
	if err := db.Model(&RoadNodeModel{}).Count(&stats.Nodes).Error; err != nil {
		return nil, fmt.Errorf("failed to count road nodes: %w", err)
	}
	if err := db.Model(&RoadSegmentModel{}).Count(&stats.Segments).Error; err != nil {
		return nil, fmt.Errorf("failed to count road segments: %w", err)
	}
	if err := db.Model(&RoadSegmentModel{}).Where("oneway = ?", true).Count(&stats.Oneway).Error; err != nil {
		return nil, fmt.Errorf("failed to count oneway segments: %w", err)
	}
	return &stats, nil
}

// --- Conversion Helpers ---

// resolvedSegments converts the segments whose endpoints are both among nodes.
// Rows stored before imports checked their endpoints are skipped.
func resolvedSegments(nodes []RoadNodeModel, segments []RoadSegmentModel) []roadnetwork.RoadSegment {
	known := make(map[int64]struct{}, len(nodes))
	for _, n := range nodes {
		known[n.ID] = struct{}{}
	}
	out := make([]roadnetwork.RoadSegment, 0, len(segments))
	for _, m := range segments {
		_, fromOK := known[m.FromNodeID]
		_, toOK := known[m.ToNodeID]
		if fromOK && toOK {
			out = append(out, toDomainSegment(m))
		}
	}
	return out
}

// subtractIDs returns the ids in want that are missing from have.
func subtractIDs(want, have []int64) []int64 {
	present := make(map[int64]struct{}, len(have))
	for _, id := range have {
		present[id] = struct{}{}
	}
	var missing []int64
	for _, id := range want {
		if _, ok := present[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

func toSegmentModel(s roadnetwork.RoadSegment, now time.Time) RoadSegmentModel {
	return RoadSegmentModel{
		FromNodeID:  s.From,
		ToNodeID:    s.To,
		Key:         s.Key,
		Oneway:      s.Oneway,
		LengthM:     s.LengthM,
		TravelTimeS: s.TravelTimeS,
		UpdatedAt:   now,
	}
}

func toDomainSegment(m RoadSegmentModel) roadnetwork.RoadSegment {
	return roadnetwork.RoadSegment{
		From:        m.FromNodeID,
		To:          m.ToNodeID,
		Key:         m.Key,
		Oneway:      m.Oneway,
		LengthM:     m.LengthM,
		TravelTimeS: m.TravelTimeS,
	}
}
