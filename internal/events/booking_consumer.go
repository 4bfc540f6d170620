package events

import (
	"context"
	"errors"

	"github.com/Kilat-Pet-Delivery/service-routing/internal/application"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/routing"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/platform/apperror"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/platform/contracts"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/platform/kafka"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// BookingRoutePlanner plans the route of a booking.
type BookingRoutePlanner interface {
	PlanForBooking(ctx context.Context, bookingID uuid.UUID, pickup, dropoff routing.Coordinates) (*application.RoutePlanDTO, error)
}

// BookingEventConsumer listens to booking events and plans the pickup to
// dropoff route of every new booking.
type BookingEventConsumer struct {
	consumer *kafka.Consumer
	planner  BookingRoutePlanner
	logger   *zap.Logger
}

// NewBookingEventConsumer creates a new BookingEventConsumer.
func NewBookingEventConsumer(
	brokers []string,
	groupID string,
	planner BookingRoutePlanner,
	logger *zap.Logger,
) *BookingEventConsumer {
	consumer := kafka.NewConsumer(brokers, groupID, contracts.TopicBookingEvents, logger)
	return &BookingEventConsumer{
		consumer: consumer,
		planner:  planner,
		logger:   logger,
	}
}

// Start begins consuming booking events. This blocks until the context is cancelled.
func (c *BookingEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *BookingEventConsumer) Close() error {
	return c.consumer.Close()
}

func (c *BookingEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from booking topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // Don't retry malformed messages
	}

	switch cloudEvent.Type {
	case contracts.BookingRequested:
		return c.handleBookingRequested(ctx, cloudEvent)
	default:
		c.logger.Debug("ignoring unhandled booking event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

func (c *BookingEventConsumer) handleBookingRequested(ctx context.Context, cloudEvent kafka.CloudEvent) error {
	var evt contracts.BookingRequestedEvent
	if err := cloudEvent.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse BookingRequestedEvent data",
			zap.Error(err),
		)
		return nil // Don't retry malformed data
	}

	c.logger.Info("processing booking requested event",
		zap.String("booking_id", evt.BookingID.String()),
		zap.String("booking_number", evt.BookingNumber),
	)

	pickup := routing.Coordinates{Lat: evt.PickupLat, Lon: evt.PickupLng}
	dropoff := routing.Coordinates{Lat: evt.DropoffLat, Lon: evt.DropoffLng}

	plan, err := c.planner.PlanForBooking(ctx, evt.BookingID, pickup, dropoff)
	if err != nil {
		if isPermanent(err) {
			c.logger.Warn("no route for booking",
				zap.String("booking_id", evt.BookingID.String()),
				zap.Error(err),
			)
			return nil
		}
		c.logger.Error("failed to plan route for booking",
			zap.String("booking_id", evt.BookingID.String()),
			zap.Error(err),
		)
		return err
	}

	c.logger.Info("route planned for booking",
		zap.String("booking_id", evt.BookingID.String()),
		zap.String("plan_number", plan.PlanNumber),
		zap.Float64("distance_m", plan.DistanceM),
	)
	return nil
}

// isPermanent reports whether redelivering the event would fail the same way.
func isPermanent(err error) bool {
	var (
		unavailable  *application.GraphUnavailableError
		inputErr     *routing.InputError
		invariantErr *routing.InvariantViolationError
	)
	switch {
	case errors.As(err, &unavailable):
		return unavailable.Empty()
	case errors.As(err, &inputErr), errors.As(err, &invariantErr):
		return true
	case errors.Is(err, routing.ErrNoPathFound), errors.Is(err, routing.ErrEmptyGraph):
		return true
	}
	if appErr, ok := apperror.As(err); ok {
		return appErr.Code == apperror.CodeValidation
	}
	return false
}
