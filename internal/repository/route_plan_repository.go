package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/routeplan"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/routing"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/platform/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RoutePlanModel is the GORM model for the route_plans table.
type RoutePlanModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	PlanNumber     string          `gorm:"uniqueIndex;not null;size:20"`
	BookingID      *uuid.UUID      `gorm:"type:uuid;index"`
	OriginLat      float64         `gorm:"not null"`
	OriginLon      float64         `gorm:"not null"`
	DestinationLat float64         `gorm:"not null"`
	DestinationLon float64         `gorm:"not null"`
	Metric         string          `gorm:"not null;size:20"`
	Status         string          `gorm:"not null;size:20;index"`
	StartNodeID    *int64          `gorm:""`
	GoalNodeID     *int64          `gorm:""`
	NodeIDs        json.RawMessage `gorm:"type:jsonb"`
	Geometry       json.RawMessage `gorm:"type:jsonb"`
	Cost           float64         `gorm:"not null;default:0"`
	DistanceM      float64         `gorm:"not null;default:0"`
	DurationS      float64         `gorm:"not null;default:0"`
	Polyline       string          `gorm:"type:text"`
	Expanded       int             `gorm:"not null;default:0"`
	FailReason     string          `gorm:"size:500"`
	Version        int64           `gorm:"not null;default:1"`
	CreatedAt      time.Time       `gorm:"not null;index"`
	UpdatedAt      time.Time       `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (RoutePlanModel) TableName() string {
	return "route_plans"
}

// GormRoutePlanRepository is the GORM-based implementation of RoutePlanRepository.
type GormRoutePlanRepository struct {
	db *gorm.DB
}

// NewGormRoutePlanRepository creates a new GormRoutePlanRepository.
func NewGormRoutePlanRepository(db *gorm.DB) *GormRoutePlanRepository {
	return &GormRoutePlanRepository{db: db}
}

// FindByID retrieves a plan by its unique identifier.
func (r *GormRoutePlanRepository) FindByID(ctx context.Context, id uuid.UUID) (*routeplan.RoutePlan, error) {
	var model RoutePlanModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NewNotFoundError("RoutePlan", id.String())
		}
		return nil, fmt.Errorf("failed to find route plan by ID: %w", err)
	}
	return toDomainRoutePlan(&model)
}

// FindByNumber retrieves a plan by its plan number.
func (r *GormRoutePlanRepository) FindByNumber(ctx context.Context, number string) (*routeplan.RoutePlan, error) {
	var model RoutePlanModel
	if err := r.db.WithContext(ctx).Where("plan_number = ?", number).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NewNotFoundError("RoutePlan", number)
		}
		return nil, fmt.Errorf("failed to find route plan by number: %w", err)
	}
	return toDomainRoutePlan(&model)
}

// FindByBookingID retrieves the latest plan for a booking.
func (r *GormRoutePlanRepository) FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*routeplan.RoutePlan, error) {
	var model RoutePlanModel
	if err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("created_at DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NewNotFoundError("RoutePlan for booking", bookingID.String())
		}
		return nil, fmt.Errorf("failed to find route plan by booking: %w", err)
	}
	return toDomainRoutePlan(&model)
}

// ListAll retrieves all plans with pagination (admin).
func (r *GormRoutePlanRepository) ListAll(ctx context.Context, page, limit int) ([]*routeplan.RoutePlan, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&RoutePlanModel{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count route plans: %w", err)
	}

	var models []RoutePlanModel
	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list route plans: %w", err)
	}

	plans := make([]*routeplan.RoutePlan, len(models))
	for i := range models {
		p, err := toDomainRoutePlan(&models[i])
		if err != nil {
			return nil, 0, err
		}
		plans[i] = p
	}
	return plans, total, nil
}

// CountByStatus returns plan counts grouped by status (admin).
func (r *GormRoutePlanRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}
	var results []statusCount
	if err := r.db.WithContext(ctx).Model(&RoutePlanModel{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}

	counts := make(map[string]int64)
	for _, sc := range results {
		counts[sc.Status] = sc.Count
	}
	return counts, nil
}

// Save persists a new plan.
func (r *GormRoutePlanRepository) Save(ctx context.Context, p *routeplan.RoutePlan) error {
	model, err := toRoutePlanModel(p)
	if err != nil {
		return fmt.Errorf("failed to convert route plan to model: %w", err)
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to save route plan: %w", err)
	}
	return nil
}

// --- Conversion Helpers ---

func toRoutePlanModel(p *routeplan.RoutePlan) (*RoutePlanModel, error) {
	var nodeIDsJSON, geometryJSON json.RawMessage
	if len(p.NodeIDs()) > 0 {
		data, err := json.Marshal(p.NodeIDs())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal node ids: %w", err)
		}
		nodeIDsJSON = data
	}
	if len(p.Geometry()) > 0 {
		data, err := json.Marshal(p.Geometry())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal geometry: %w", err)
		}
		geometryJSON = data
	}

	return &RoutePlanModel{
		ID:             p.ID(),
		PlanNumber:     p.PlanNumber(),
		BookingID:      p.BookingID(),
		OriginLat:      p.Origin().Lat,
		OriginLon:      p.Origin().Lon,
		DestinationLat: p.Destination().Lat,
		DestinationLon: p.Destination().Lon,
		Metric:         string(p.Metric()),
		Status:         string(p.Status()),
		StartNodeID:    p.StartNodeID(),
		GoalNodeID:     p.GoalNodeID(),
		NodeIDs:        nodeIDsJSON,
		Geometry:       geometryJSON,
		Cost:           p.Cost(),
		DistanceM:      p.DistanceM(),
		DurationS:      p.DurationS(),
		Polyline:       p.Polyline(),
		Expanded:       p.Expanded(),
		FailReason:     p.FailReason(),
		Version:        p.Version(),
		CreatedAt:      p.CreatedAt(),
		UpdatedAt:      p.UpdatedAt(),
	}, nil
}

func toDomainRoutePlan(m *RoutePlanModel) (*routeplan.RoutePlan, error) {
	var nodeIDs []int64
	if len(m.NodeIDs) > 0 {
		if err := json.Unmarshal(m.NodeIDs, &nodeIDs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal node ids: %w", err)
		}
	}

	var geometry []routing.Coordinates
	if len(m.Geometry) > 0 {
		if err := json.Unmarshal(m.Geometry, &geometry); err != nil {
			return nil, fmt.Errorf("failed to unmarshal geometry: %w", err)
		}
	}

	status, err := routeplan.ParsePlanStatus(m.Status)
	if err != nil {
		return nil, err
	}

	return routeplan.ReconstructRoutePlan(
		m.ID,
		m.PlanNumber,
		m.BookingID,
		routing.Coordinates{Lat: m.OriginLat, Lon: m.OriginLon},
		routing.Coordinates{Lat: m.DestinationLat, Lon: m.DestinationLon},
		routing.Metric(m.Metric),
		status,
		m.StartNodeID,
		m.GoalNodeID,
		nodeIDs,
		geometry,
		m.Cost,
		m.DistanceM,
		m.DurationS,
		m.Polyline,
		m.Expanded,
		m.FailReason,
		m.Version,
		m.CreatedAt,
		m.UpdatedAt,
	), nil
}
