package routeplan

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/routing"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/platform/apperror"
	"github.com/google/uuid"
)

const planNumberChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Outcome holds what a successful search produced.
type Outcome struct {
	StartNodeID int64
	GoalNodeID  int64
	NodeIDs     []int64
	Geometry    []routing.Coordinates
	Cost        float64
	DistanceM   float64
	DurationS   float64
	Polyline    string
	Expanded    int
}

// RoutePlan is the aggregate root recording one route request and its result.
type RoutePlan struct {
	id          uuid.UUID
	planNumber  string
	bookingID   *uuid.UUID
	origin      routing.Coordinates
	destination routing.Coordinates
	metric      routing.Metric
	status      PlanStatus

	startNodeID *int64
	goalNodeID  *int64
	nodeIDs     []int64
	geometry    []routing.Coordinates
	cost        float64
	distanceM   float64
	durationS   float64
	polyline    string
	expanded    int
	failReason  string

	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// generatePlanNumber creates a plan number in the format "RT-XXXXXX".
func generatePlanNumber() (string, error) {
	result := make([]byte, 6)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(planNumberChars))))
		if err != nil {
			return "", fmt.Errorf("failed to generate plan number: %w", err)
		}
		result[i] = planNumberChars[n.Int64()]
	}
	return "RT-" + string(result), nil
}

// NewRoutePlan creates a pending plan for the requested endpoints.
func NewRoutePlan(origin, destination routing.Coordinates, metric routing.Metric, bookingID *uuid.UUID) (*RoutePlan, error) {
	if err := origin.Validate(); err != nil {
		return nil, err
	}
	if err := destination.Validate(); err != nil {
		return nil, err
	}
	if !metric.IsValid() {
		return nil, apperror.NewValidationError(fmt.Sprintf("invalid metric: %s", metric))
	}
	if bookingID != nil && *bookingID == uuid.Nil {
		return nil, apperror.NewValidationError("booking ID must not be nil")
	}

	number, err := generatePlanNumber()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &RoutePlan{
		id:          uuid.New(),
		planNumber:  number,
		bookingID:   bookingID,
		origin:      origin,
		destination: destination,
		metric:      metric,
		status:      StatusPending,
		version:     1,
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

// ReconstructRoutePlan rebuilds a RoutePlan from persistence data (no validation).
func ReconstructRoutePlan(
	id uuid.UUID,
	planNumber string,
	bookingID *uuid.UUID,
	origin routing.Coordinates,
	destination routing.Coordinates,
	metric routing.Metric,
	status PlanStatus,
	startNodeID *int64,
	goalNodeID *int64,
	nodeIDs []int64,
	geometry []routing.Coordinates,
	cost float64,
	distanceM float64,
	durationS float64,
	polyline string,
	expanded int,
	failReason string,
	version int64,
	createdAt time.Time,
	updatedAt time.Time,
) *RoutePlan {
	return &RoutePlan{
		id:          id,
		planNumber:  planNumber,
		bookingID:   bookingID,
		origin:      origin,
		destination: destination,
		metric:      metric,
		status:      status,
		startNodeID: startNodeID,
		goalNodeID:  goalNodeID,
		nodeIDs:     nodeIDs,
		geometry:    geometry,
		cost:        cost,
		distanceM:   distanceM,
		durationS:   durationS,
		polyline:    polyline,
		expanded:    expanded,
		failReason:  failReason,
		version:     version,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

// --- Getters ---

func (p *RoutePlan) ID() uuid.UUID                    { return p.id }
func (p *RoutePlan) PlanNumber() string               { return p.planNumber }
func (p *RoutePlan) BookingID() *uuid.UUID            { return p.bookingID }
func (p *RoutePlan) Origin() routing.Coordinates      { return p.origin }
func (p *RoutePlan) Destination() routing.Coordinates { return p.destination }
func (p *RoutePlan) Metric() routing.Metric           { return p.metric }
func (p *RoutePlan) Status() PlanStatus               { return p.status }
func (p *RoutePlan) StartNodeID() *int64              { return p.startNodeID }
func (p *RoutePlan) GoalNodeID() *int64               { return p.goalNodeID }
func (p *RoutePlan) NodeIDs() []int64                 { return p.nodeIDs }
func (p *RoutePlan) Geometry() []routing.Coordinates  { return p.geometry }
func (p *RoutePlan) Cost() float64                    { return p.cost }
func (p *RoutePlan) DistanceM() float64               { return p.distanceM }
func (p *RoutePlan) DurationS() float64               { return p.durationS }
func (p *RoutePlan) Polyline() string                 { return p.polyline }
func (p *RoutePlan) Expanded() int                    { return p.expanded }
func (p *RoutePlan) FailReason() string               { return p.failReason }
func (p *RoutePlan) Version() int64                   { return p.version }
func (p *RoutePlan) CreatedAt() time.Time             { return p.createdAt }
func (p *RoutePlan) UpdatedAt() time.Time             { return p.updatedAt }

// --- Behavior ---

// MarkFound records a successful search.
func (p *RoutePlan) MarkFound(out Outcome) error {
	if !p.status.CanTransitionTo(StatusFound) {
		return apperror.NewInvalidStateError(string(p.status), string(StatusFound))
	}
	if len(out.NodeIDs) == 0 {
		return apperror.NewValidationError("a found route needs at least one node")
	}
	if len(out.Geometry) != len(out.NodeIDs) {
		return apperror.NewValidationError("route geometry does not match its nodes")
	}

	start, goal := out.StartNodeID, out.GoalNodeID
	p.startNodeID = &start
	p.goalNodeID = &goal
	p.nodeIDs = out.NodeIDs
	p.geometry = out.Geometry
	p.cost = out.Cost
	p.distanceM = out.DistanceM
	p.durationS = out.DurationS
	p.polyline = out.Polyline
	p.expanded = out.Expanded
	p.status = StatusFound
	p.updatedAt = time.Now().UTC()
	return nil
}

// MarkNoPath records that the snapped endpoints are not connected.
func (p *RoutePlan) MarkNoPath(startNodeID, goalNodeID int64, expanded int) error {
	if !p.status.CanTransitionTo(StatusNoPath) {
		return apperror.NewInvalidStateError(string(p.status), string(StatusNoPath))
	}
	p.startNodeID = &startNodeID
	p.goalNodeID = &goalNodeID
	p.expanded = expanded
	p.status = StatusNoPath
	p.failReason = routing.ErrNoPathFound.Error()
	p.updatedAt = time.Now().UTC()
	return nil
}

// MarkFailed records that the search could not run.
func (p *RoutePlan) MarkFailed(reason string) error {
	if !p.status.CanTransitionTo(StatusFailed) {
		return apperror.NewInvalidStateError(string(p.status), string(StatusFailed))
	}
	p.status = StatusFailed
	p.failReason = reason
	p.updatedAt = time.Now().UTC()
	return nil
}
