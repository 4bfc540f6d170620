package routeplan

import (
	"context"

	"github.com/google/uuid"
)

// RoutePlanRepository defines the persistence contract for route plans.
type RoutePlanRepository interface {
	// FindByID retrieves a plan by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*RoutePlan, error)

	// FindByNumber retrieves a plan by its human-readable number.
	FindByNumber(ctx context.Context, number string) (*RoutePlan, error)

	// FindByBookingID retrieves the most recent plan made for a booking.
	FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*RoutePlan, error)

	// ListAll retrieves all plans with pagination (admin).
	ListAll(ctx context.Context, page, limit int) ([]*RoutePlan, int64, error)

	// CountByStatus returns plan counts grouped by status (admin).
	CountByStatus(ctx context.Context) (map[string]int64, error)

	// Save persists a new plan.
	Save(ctx context.Context, plan *RoutePlan) error
}
