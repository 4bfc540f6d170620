// Package contracts holds the topic names and event payloads exchanged with
// the other Kilat services.
package contracts

import (
	"time"

	"github.com/google/uuid"
)

// Topics.
const (
	TopicBookingEvents = "booking.events"
	TopicRoutingEvents = "routing.events"
)

// Event types.
const (
	BookingRequested = "booking.requested"

	RouteCalculated = "routing.route_calculated"
	RouteNotFound   = "routing.route_not_found"
)

// BookingRequestedEvent is published by the booking service when an owner
// creates a booking.
type BookingRequestedEvent struct {
	BookingID      uuid.UUID `json:"booking_id"`
	BookingNumber  string    `json:"booking_number"`
	OwnerID        uuid.UUID `json:"owner_id"`
	PetType        string    `json:"pet_type"`
	PetName        string    `json:"pet_name"`
	PickupLat      float64   `json:"pickup_lat"`
	PickupLng      float64   `json:"pickup_lng"`
	DropoffLat     float64   `json:"dropoff_lat"`
	DropoffLng     float64   `json:"dropoff_lng"`
	EstimatedPrice int64     `json:"estimated_price"`
	Currency       string    `json:"currency"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// RouteCalculatedEvent announces a found route.
type RouteCalculatedEvent struct {
	PlanID      uuid.UUID  `json:"plan_id"`
	PlanNumber  string     `json:"plan_number"`
	BookingID   *uuid.UUID `json:"booking_id,omitempty"`
	Metric      string     `json:"metric"`
	StartNodeID int64      `json:"start_node_id"`
	GoalNodeID  int64      `json:"goal_node_id"`
	Cost        float64    `json:"cost"`
	DistanceM   float64    `json:"distance_m"`
	DurationS   float64    `json:"duration_s"`
	Polyline    string     `json:"polyline"`
	OccurredAt  time.Time  `json:"occurred_at"`
}

// RouteNotFoundEvent announces a request that could not be routed.
type RouteNotFoundEvent struct {
	PlanID     uuid.UUID  `json:"plan_id"`
	PlanNumber string     `json:"plan_number"`
	BookingID  *uuid.UUID `json:"booking_id,omitempty"`
	Status     string     `json:"status"`
	Reason     string     `json:"reason"`
	OccurredAt time.Time  `json:"occurred_at"`
}
