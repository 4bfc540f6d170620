package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Kilat-Pet-Delivery/service-routing/internal/config"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/roadnetwork"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/routeplan"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/routing"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/platform/apperror"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/platform/contracts"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/platform/kafka"
	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/twpayne/go-polyline"
	"go.uber.org/zap"
)

const serviceName = "service-routing"

// EventPublisher sends CloudEvents to a topic. *kafka.Producer satisfies it.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, event kafka.CloudEvent) error
}

// PlanRouteRequest holds the data needed to plan a route.
type PlanRouteRequest struct {
	From   routing.Coordinates `json:"from"`
	To     routing.Coordinates `json:"to"`
	Metric string              `json:"metric"`
}

// RoutePlanDTO is the response representation of a route plan.
type RoutePlanDTO struct {
	ID          uuid.UUID             `json:"id"`
	PlanNumber  string                `json:"plan_number"`
	BookingID   *uuid.UUID            `json:"booking_id,omitempty"`
	Origin      routing.Coordinates   `json:"origin"`
	Destination routing.Coordinates   `json:"destination"`
	Metric      string                `json:"metric"`
	Status      string                `json:"status"`
	StartNodeID *int64                `json:"start_node_id,omitempty"`
	GoalNodeID  *int64                `json:"goal_node_id,omitempty"`
	NodeIDs     []int64               `json:"node_ids,omitempty"`
	Geometry    []routing.Coordinates `json:"geometry,omitempty"`
	Cost        float64               `json:"cost"`
	DistanceM   float64               `json:"distance_m"`
	DurationS   float64               `json:"duration_s"`
	Polyline    string                `json:"polyline,omitempty"`
	Expanded    int                   `json:"expanded"`
	FailReason  string                `json:"fail_reason,omitempty"`
	Version     int64                 `json:"version"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// RouteStatsDTO holds route plan statistics for the admin dashboard.
type RouteStatsDTO struct {
	TotalPlans int64            `json:"total_plans"`
	ByStatus   map[string]int64 `json:"by_status"`
}

// RoutingService is the application service orchestrating route planning.
type RoutingService struct {
	plans     routeplan.RoutePlanRepository
	network   roadnetwork.Loader
	publisher EventPublisher
	cfg       config.RoutingConfig
	logger    *zap.Logger
}

// NewRoutingService creates a new RoutingService.
func NewRoutingService(
	plans routeplan.RoutePlanRepository,
	network roadnetwork.Loader,
	publisher EventPublisher,
	cfg config.RoutingConfig,
	logger *zap.Logger,
) *RoutingService {
	return &RoutingService{
		plans:     plans,
		network:   network,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
	}
}

// PlanRoute snaps both coordinates to the road network, runs the search and
// records the outcome. A plan is stored for found, unreachable and failed
// searches alike; input errors are rejected before anything is stored.
func (s *RoutingService) PlanRoute(ctx context.Context, req PlanRouteRequest) (*RoutePlanDTO, error) {
	return s.plan(ctx, req, nil)
}

// PlanForBooking plans the pickup to dropoff route of a booking using the
// default metric. A booking whose latest plan is found or no_path gets that
// plan back; a failed plan is retried.
func (s *RoutingService) PlanForBooking(ctx context.Context, bookingID uuid.UUID, pickup, dropoff routing.Coordinates) (*RoutePlanDTO, error) {
	existing, err := s.plans.FindByBookingID(ctx, bookingID)
	switch {
	case err == nil && existing.Status().IsSettled():
		s.logger.Info("booking already has a route plan",
			zap.String("booking_id", bookingID.String()),
			zap.String("plan_number", existing.PlanNumber()),
			zap.String("status", string(existing.Status())),
		)
		result := toRoutePlanDTO(existing)
		return &result, nil
	case err == nil:
		s.logger.Info("replanning booking after failed attempt",
			zap.String("booking_id", bookingID.String()),
			zap.String("previous_plan", existing.PlanNumber()),
		)
	default:
		if appErr, ok := apperror.As(err); !ok || appErr.Code != apperror.CodeNotFound {
			return nil, err
		}
	}

	return s.plan(ctx, PlanRouteRequest{From: pickup, To: dropoff}, &bookingID)
}

func (s *RoutingService) plan(ctx context.Context, req PlanRouteRequest, bookingID *uuid.UUID) (*RoutePlanDTO, error) {
	if err := req.From.Validate(); err != nil {
		return nil, err
	}
	if err := req.To.Validate(); err != nil {
		return nil, err
	}
	metric, err := routing.ParseMetric(req.Metric, routing.Metric(s.cfg.DefaultMetric))
	if err != nil {
		return nil, err
	}
	heuristic, err := routing.HeuristicFor(metric, s.cfg.MaxSpeedKmh)
	if err != nil {
		return nil, err
	}

	p, err := routeplan.NewRoutePlan(req.From, req.To, metric, bookingID)
	if err != nil {
		return nil, err
	}

	graph, err := s.loadGraph(ctx, req.From, req.To, metric)
	if err != nil {
		return nil, err
	}

	start, _, err := graph.Nearest(req.From)
	if err != nil {
		return nil, err
	}
	goal, _, err := graph.Nearest(req.To)
	if err != nil {
		return nil, err
	}

	searchCtx, cancel := context.WithTimeout(ctx, s.cfg.SearchTimeout)
	defer cancel()

	result, searchErr := routing.Search(searchCtx, graph, start.ID, goal.ID, heuristic)
	switch {
	case searchErr == nil:
		if err := p.MarkFound(s.outcome(metric, result)); err != nil {
			return nil, err
		}
	case errors.Is(searchErr, routing.ErrNoPathFound):
		if err := p.MarkNoPath(int64(start.ID), int64(goal.ID), 0); err != nil {
			return nil, err
		}
	default:
		if err := p.MarkFailed(searchErr.Error()); err != nil {
			return nil, err
		}
	}

	if err := s.plans.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to save route plan: %w", err)
	}

	s.logger.Info("route planned",
		zap.String("plan_number", p.PlanNumber()),
		zap.String("status", string(p.Status())),
		zap.String("metric", metric.String()),
		zap.Int64("start_node", int64(start.ID)),
		zap.Int64("goal_node", int64(goal.ID)),
		zap.Int("graph_nodes", graph.Len()),
		zap.Int("expanded", p.Expanded()),
	)
	s.publishOutcome(ctx, p)

	if searchErr != nil {
		return nil, fmt.Errorf("route plan %s: %w", p.PlanNumber(), searchErr)
	}
	dto := toRoutePlanDTO(p)
	return &dto, nil
}

// loadGraph fetches the road data around both endpoints and builds the search graph.
func (s *RoutingService) loadGraph(ctx context.Context, from, to routing.Coordinates, metric routing.Metric) (*routing.Graph, error) {
	region := routing.RegionAround(from, to, s.cfg.BBoxMarginDeg)

	network, err := s.network.LoadRegion(ctx, region)
	if err != nil {
		return nil, &GraphUnavailableError{Region: region, Err: err}
	}
	if len(network.Nodes) == 0 {
		return nil, &GraphUnavailableError{Region: region, Err: routing.ErrEmptyGraph}
	}

	graph, err := network.BuildGraph(roadnetwork.WeightPolicy{
		Metric:          metric,
		DefaultSpeedKmh: s.cfg.DefaultSpeedKmh,
		MaxSpeedKmh:     s.cfg.MaxSpeedKmh,
	})
	if err != nil {
		return nil, err
	}
	return graph, nil
}

// outcome turns a search result into what the plan records. Distances are
// summed leg by leg; the duration is the cost itself under MetricTime and an
// estimate at the default speed otherwise.
func (s *RoutingService) outcome(metric routing.Metric, result *routing.Result) routeplan.Outcome {
	route := result.Route
	ids := route.NodeIDs()
	nodeIDs := make([]int64, len(ids))
	for i, id := range ids {
		nodeIDs[i] = int64(id)
	}
	geometry := route.Coordinates()

	out := routeplan.Outcome{
		StartNodeID: int64(route.Start().ID),
		GoalNodeID:  int64(route.Goal().ID),
		NodeIDs:     nodeIDs,
		Geometry:    geometry,
		Cost:        route.Cost,
		Polyline:    encodePolyline(geometry),
		Expanded:    result.Expanded,
	}
	switch metric {
	case routing.MetricTime:
		out.DurationS = route.Cost
		out.DistanceM = route.Distance()
	default:
		out.DistanceM = route.Cost
		out.DurationS = route.Cost / routing.KmhToMps(s.cfg.DefaultSpeedKmh)
	}
	return out
}

// GetRoutePlan retrieves a plan by id.
func (s *RoutingService) GetRoutePlan(ctx context.Context, id uuid.UUID) (*RoutePlanDTO, error) {
	p, err := s.plans.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	result := toRoutePlanDTO(p)
	return &result, nil
}

// GetRoutePlanGeoJSON renders a plan as a feature collection: the requested
// origin and destination as points and, when a route was found, its path as a
// line string.
func (s *RoutingService) GetRoutePlanGeoJSON(ctx context.Context, id uuid.UUID) (*geojson.FeatureCollection, error) {
	p, err := s.plans.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toFeatureCollection(p), nil
}

// --- Admin methods ---

// ListRoutePlans returns a paginated list of all plans (admin).
func (s *RoutingService) ListRoutePlans(ctx context.Context, page, limit int) ([]RoutePlanDTO, int64, error) {
	plans, total, err := s.plans.ListAll(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list route plans: %w", err)
	}

	dtos := make([]RoutePlanDTO, len(plans))
	for i, p := range plans {
		dtos[i] = toRoutePlanDTO(p)
	}
	return dtos, total, nil
}

// GetRouteStats returns aggregate plan statistics (admin).
func (s *RoutingService) GetRouteStats(ctx context.Context) (*RouteStatsDTO, error) {
	counts, err := s.plans.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get route stats: %w", err)
	}

	var total int64
	for _, c := range counts {
		total += c
	}

	return &RouteStatsDTO{
		TotalPlans: total,
		ByStatus:   counts,
	}, nil
}

// --- Helpers ---

func toRoutePlanDTO(p *routeplan.RoutePlan) RoutePlanDTO {
	return RoutePlanDTO{
		ID:          p.ID(),
		PlanNumber:  p.PlanNumber(),
		BookingID:   p.BookingID(),
		Origin:      p.Origin(),
		Destination: p.Destination(),
		Metric:      string(p.Metric()),
		Status:      string(p.Status()),
		StartNodeID: p.StartNodeID(),
		GoalNodeID:  p.GoalNodeID(),
		NodeIDs:     p.NodeIDs(),
		Geometry:    p.Geometry(),
		Cost:        p.Cost(),
		DistanceM:   p.DistanceM(),
		DurationS:   p.DurationS(),
		Polyline:    p.Polyline(),
		Expanded:    p.Expanded(),
		FailReason:  p.FailReason(),
		Version:     p.Version(),
		CreatedAt:   p.CreatedAt(),
		UpdatedAt:   p.UpdatedAt(),
	}
}

// encodePolyline produces a Google encoded polyline, precision 5.
func encodePolyline(coords []routing.Coordinates) string {
	points := make([][]float64, len(coords))
	for i, c := range coords {
		points[i] = []float64{c.Lat, c.Lon}
	}
	return string(polyline.EncodeCoords(points))
}

func toFeatureCollection(p *routeplan.RoutePlan) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	origin := geojson.NewFeature(p.Origin().Point())
	origin.Properties["role"] = "origin"
	fc.Append(origin)

	destination := geojson.NewFeature(p.Destination().Point())
	destination.Properties["role"] = "destination"
	fc.Append(destination)

	if geometry := p.Geometry(); len(geometry) > 0 {
		line := make(orb.LineString, len(geometry))
		for i, c := range geometry {
			line[i] = c.Point()
		}
		route := geojson.NewFeature(line)
		route.ID = p.ID().String()
		route.Properties["role"] = "route"
		route.Properties["plan_number"] = p.PlanNumber()
		route.Properties["metric"] = string(p.Metric())
		route.Properties["cost"] = p.Cost()
		route.Properties["distance_m"] = p.DistanceM()
		route.Properties["duration_s"] = p.DurationS()
		route.Properties["node_ids"] = p.NodeIDs()
		fc.Append(route)
	}
	return fc
}

func (s *RoutingService) publishOutcome(ctx context.Context, p *routeplan.RoutePlan) {
	now := time.Now().UTC()
	if p.Status() == routeplan.StatusFound {
		evt := contracts.RouteCalculatedEvent{
			PlanID:      p.ID(),
			PlanNumber:  p.PlanNumber(),
			BookingID:   p.BookingID(),
			Metric:      string(p.Metric()),
			StartNodeID: *p.StartNodeID(),
			GoalNodeID:  *p.GoalNodeID(),
			Cost:        p.Cost(),
			DistanceM:   p.DistanceM(),
			DurationS:   p.DurationS(),
			Polyline:    p.Polyline(),
			OccurredAt:  now,
		}
		s.publishEvent(ctx, contracts.TopicRoutingEvents, contracts.RouteCalculated, evt)
		return
	}

	evt := contracts.RouteNotFoundEvent{
		PlanID:     p.ID(),
		PlanNumber: p.PlanNumber(),
		BookingID:  p.BookingID(),
		Status:     string(p.Status()),
		Reason:     p.FailReason(),
		OccurredAt: now,
	}
	s.publishEvent(ctx, contracts.TopicRoutingEvents, contracts.RouteNotFound, evt)
}

func (s *RoutingService) publishEvent(ctx context.Context, topic, eventType string, data interface{}) {
	cloudEvent, err := kafka.NewCloudEvent(serviceName, eventType, data)
	if err != nil {
		s.logger.Error("failed to create cloud event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}

	if err := s.publisher.PublishEvent(ctx, topic, cloudEvent); err != nil {
		s.logger.Error("failed to publish event",
			zap.String("topic", topic),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}
