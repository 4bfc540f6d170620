package application

import (
	"context"
	"errors"
	"sync"
	"testing"
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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// --- Fakes ---

type fakePlanRepo struct {
	mu    sync.Mutex
	plans map[uuid.UUID]*routeplan.RoutePlan
	order []uuid.UUID
	saves int
}

func newFakePlanRepo() *fakePlanRepo {
	return &fakePlanRepo{plans: make(map[uuid.UUID]*routeplan.RoutePlan)}
}

func (r *fakePlanRepo) FindByID(_ context.Context, id uuid.UUID) (*routeplan.RoutePlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.plans[id]
	if !ok {
		return nil, apperror.NewNotFoundError("RoutePlan", id.String())
	}
	return p, nil
}

func (r *fakePlanRepo) FindByNumber(_ context.Context, number string) (*routeplan.RoutePlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.plans {
		if p.PlanNumber() == number {
			return p, nil
		}
	}
	return nil, apperror.NewNotFoundError("RoutePlan", number)
}

func (r *fakePlanRepo) FindByBookingID(_ context.Context, bookingID uuid.UUID) (*routeplan.RoutePlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.order) - 1; i >= 0; i-- {
		p := r.plans[r.order[i]]
		if p.BookingID() != nil && *p.BookingID() == bookingID {
			return p, nil
		}
	}
	return nil, apperror.NewNotFoundError("RoutePlan for booking", bookingID.String())
}

func (r *fakePlanRepo) ListAll(_ context.Context, page, limit int) ([]*routeplan.RoutePlan, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*routeplan.RoutePlan
	start := (page - 1) * limit
	for i := start; i < len(r.order) && i < start+limit; i++ {
		out = append(out, r.plans[r.order[i]])
	}
	return out, int64(len(r.order)), nil
}

func (r *fakePlanRepo) CountByStatus(_ context.Context) (map[string]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[string]int64)
	for _, p := range r.plans {
		counts[string(p.Status())]++
	}
	return counts, nil
}

func (r *fakePlanRepo) Save(_ context.Context, p *routeplan.RoutePlan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plans[p.ID()] = p
	r.order = append(r.order, p.ID())
	r.saves++
	return nil
}

func (r *fakePlanRepo) only(t *testing.T) *routeplan.RoutePlan {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.Len(t, r.order, 1)
	return r.plans[r.order[0]]
}

type fakeLoader struct {
	network *roadnetwork.RoadNetwork
	err     error
}

func (l *fakeLoader) LoadRegion(_ context.Context, bound orb.Bound) (*roadnetwork.RoadNetwork, error) {
	if l.err != nil {
		return nil, l.err
	}
	inside := make(map[int64]bool)
	for _, n := range l.network.Nodes {
		if bound.Contains(orb.Point{n.Lon, n.Lat}) {
			inside[n.ID] = true
		}
	}
	out := &roadnetwork.RoadNetwork{}
	keep := make(map[int64]bool)
	for _, s := range l.network.Segments {
		if inside[s.From] || inside[s.To] {
			out.Segments = append(out.Segments, s)
			keep[s.From], keep[s.To] = true, true
		}
	}
	for _, n := range l.network.Nodes {
		if inside[n.ID] || keep[n.ID] {
			out.Nodes = append(out.Nodes, n)
		}
	}
	return out, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []kafka.CloudEvent
}

func (p *fakePublisher) PublishEvent(_ context.Context, _ string, event kafka.CloudEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

// --- Fixtures ---

var (
	atNode1 = routing.Coordinates{Lat: 3.100, Lon: 101.600}
	atNode3 = routing.Coordinates{Lat: 3.102, Lon: 101.602}
	atNode4 = routing.Coordinates{Lat: 3.110, Lon: 101.610}
)

// testNetwork: 1-2-3 is short by length, 1-3 is quick by time, 4 is isolated.
func testNetwork() *roadnetwork.RoadNetwork {
	return &roadnetwork.RoadNetwork{
		Nodes: []roadnetwork.RoadNode{
			{ID: 1, Lat: 3.100, Lon: 101.600},
			{ID: 2, Lat: 3.101, Lon: 101.601},
			{ID: 3, Lat: 3.102, Lon: 101.602},
			{ID: 4, Lat: 3.110, Lon: 101.610},
		},
		Segments: []roadnetwork.RoadSegment{
			{From: 1, To: 2, LengthM: 200, TravelTimeS: 20},
			{From: 2, To: 3, LengthM: 200, TravelTimeS: 20},
			{From: 1, To: 3, LengthM: 1000, TravelTimeS: 30},
		},
	}
}

func testRoutingConfig() config.RoutingConfig {
	return config.RoutingConfig{
		DefaultMetric:   "distance",
		BBoxMarginDeg:   0.01,
		MaxSpeedKmh:     130,
		DefaultSpeedKmh: 36,
		SearchTimeout:   5 * time.Second,
	}
}

func newTestRoutingService(loader roadnetwork.Loader) (*RoutingService, *fakePlanRepo, *fakePublisher) {
	repo := newFakePlanRepo()
	pub := &fakePublisher{}
	return NewRoutingService(repo, loader, pub, testRoutingConfig(), zap.NewNop()), repo, pub
}

// --- Tests ---

func TestPlanRoute_DistanceMetric(t *testing.T) {
	svc, repo, pub := newTestRoutingService(&fakeLoader{network: testNetwork()})

	result, err := svc.PlanRoute(context.Background(), PlanRouteRequest{From: atNode1, To: atNode3})
	require.NoError(t, err)

	assert.Equal(t, "found", result.Status)
	assert.Equal(t, "distance", result.Metric)
	assert.Equal(t, []int64{1, 2, 3}, result.NodeIDs)
	assert.InDelta(t, 400, result.Cost, 1e-9)
	assert.InDelta(t, 400, result.DistanceM, 1e-9)
	assert.InDelta(t, 40, result.DurationS, 1e-9) // 400 m at 10 m/s
	assert.NotEmpty(t, result.Polyline)
	assert.Len(t, result.Geometry, 3)
	assert.Equal(t, int64(1), *result.StartNodeID)
	assert.Equal(t, int64(3), *result.GoalNodeID)

	assert.Equal(t, routeplan.StatusFound, repo.only(t).Status())
	assert.Equal(t, []string{contracts.RouteCalculated}, pub.types())
}

func TestPlanRoute_TimeMetric(t *testing.T) {
	svc, _, _ := newTestRoutingService(&fakeLoader{network: testNetwork()})

	result, err := svc.PlanRoute(context.Background(), PlanRouteRequest{From: atNode1, To: atNode3, Metric: "time"})
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 3}, result.NodeIDs)
	assert.InDelta(t, 30, result.Cost, 1e-9)
	assert.InDelta(t, 30, result.DurationS, 1e-9)
	assert.InDelta(t, routing.Distance(atNode1, atNode3), result.DistanceM, 1e-6)
}

func TestPlanRoute_SameSnappedNode(t *testing.T) {
	svc, _, _ := newTestRoutingService(&fakeLoader{network: testNetwork()})

	near1 := routing.Coordinates{Lat: 3.1001, Lon: 101.6001}
	result, err := svc.PlanRoute(context.Background(), PlanRouteRequest{From: atNode1, To: near1})
	require.NoError(t, err)

	assert.Equal(t, []int64{1}, result.NodeIDs)
	assert.Zero(t, result.Cost)
}

func TestPlanRoute_NoPath(t *testing.T) {
	svc, repo, pub := newTestRoutingService(&fakeLoader{network: testNetwork()})

	_, err := svc.PlanRoute(context.Background(), PlanRouteRequest{From: atNode1, To: atNode4})
	require.Error(t, err)
	assert.True(t, errors.Is(err, routing.ErrNoPathFound))

	p := repo.only(t)
	assert.Equal(t, routeplan.StatusNoPath, p.Status())
	assert.Equal(t, int64(4), *p.GoalNodeID())
	assert.Equal(t, []string{contracts.RouteNotFound}, pub.types())
}

func TestPlanRoute_InvalidInputStoresNothing(t *testing.T) {
	svc, repo, pub := newTestRoutingService(&fakeLoader{network: testNetwork()})

	_, err := svc.PlanRoute(context.Background(), PlanRouteRequest{From: routing.Coordinates{Lat: 91}, To: atNode3})
	var inputErr *routing.InputError
	require.ErrorAs(t, err, &inputErr)

	_, err = svc.PlanRoute(context.Background(), PlanRouteRequest{From: atNode1, To: atNode3, Metric: "scenic"})
	require.ErrorAs(t, err, &inputErr)

	assert.Zero(t, repo.saves)
	assert.Empty(t, pub.types())
}

func TestPlanRoute_NoRoadData(t *testing.T) {
	svc, repo, _ := newTestRoutingService(&fakeLoader{network: testNetwork()})

	far := routing.Coordinates{Lat: 48.85, Lon: 2.35}
	_, err := svc.PlanRoute(context.Background(), PlanRouteRequest{From: far, To: far})

	var unavailable *GraphUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.True(t, unavailable.Empty())
	assert.ErrorIs(t, err, routing.ErrEmptyGraph)
	assert.True(t, unavailable.Region.Contains(far.Point()))

	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeUnavailable, appErr.Code)
	assert.Zero(t, repo.saves)
}

func TestPlanRoute_LoaderFailure(t *testing.T) {
	refused := errors.New("connection refused")
	svc, repo, _ := newTestRoutingService(&fakeLoader{err: refused})

	_, err := svc.PlanRoute(context.Background(), PlanRouteRequest{From: atNode1, To: atNode3})

	var unavailable *GraphUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.False(t, unavailable.Empty())
	assert.ErrorIs(t, err, refused)
	assert.NotErrorIs(t, err, routing.ErrEmptyGraph)

	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeUnavailable, appErr.Code)
	assert.Zero(t, repo.saves)
}

func TestPlanRoute_CancelledSearchIsRecordedAsFailed(t *testing.T) {
	svc, repo, pub := newTestRoutingService(&fakeLoader{network: testNetwork()})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.PlanRoute(ctx, PlanRouteRequest{From: atNode1, To: atNode3})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))

	p := repo.only(t)
	assert.Equal(t, routeplan.StatusFailed, p.Status())
	assert.Equal(t, []string{contracts.RouteNotFound}, pub.types())
}

func TestPlanForBooking_IsIdempotent(t *testing.T) {
	svc, repo, pub := newTestRoutingService(&fakeLoader{network: testNetwork()})
	bookingID := uuid.New()

	first, err := svc.PlanForBooking(context.Background(), bookingID, atNode1, atNode3)
	require.NoError(t, err)
	require.NotNil(t, first.BookingID)
	assert.Equal(t, bookingID, *first.BookingID)

	second, err := svc.PlanForBooking(context.Background(), bookingID, atNode1, atNode3)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, repo.saves)
	assert.Len(t, pub.types(), 1)
}

func TestPlanForBooking_RetriesAfterFailedAttempt(t *testing.T) {
	svc, repo, _ := newTestRoutingService(&fakeLoader{network: testNetwork()})
	bookingID := uuid.New()

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.PlanForBooking(cancelled, bookingID, atNode1, atNode3)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, routeplan.StatusFailed, repo.only(t).Status())

	retry, err := svc.PlanForBooking(context.Background(), bookingID, atNode1, atNode3)
	require.NoError(t, err)
	assert.Equal(t, "found", retry.Status)
	assert.Equal(t, []int64{1, 2, 3}, retry.NodeIDs)
	assert.Equal(t, 2, repo.saves)

	// The found plan now answers further deliveries.
	again, err := svc.PlanForBooking(context.Background(), bookingID, atNode1, atNode3)
	require.NoError(t, err)
	assert.Equal(t, retry.ID, again.ID)
	assert.Equal(t, 2, repo.saves)
}

func TestPlanForBooking_NoPathIsNotReplanned(t *testing.T) {
	svc, repo, _ := newTestRoutingService(&fakeLoader{network: testNetwork()})
	bookingID := uuid.New()

	_, err := svc.PlanForBooking(context.Background(), bookingID, atNode1, atNode4)
	require.ErrorIs(t, err, routing.ErrNoPathFound)

	again, err := svc.PlanForBooking(context.Background(), bookingID, atNode1, atNode4)
	require.NoError(t, err)
	assert.Equal(t, "no_path", again.Status)
	assert.Equal(t, 1, repo.saves)
}

func TestGetRoutePlanGeoJSON(t *testing.T) {
	svc, _, _ := newTestRoutingService(&fakeLoader{network: testNetwork()})

	found, err := svc.PlanRoute(context.Background(), PlanRouteRequest{From: atNode1, To: atNode3})
	require.NoError(t, err)

	fc, err := svc.GetRoutePlanGeoJSON(context.Background(), found.ID)
	require.NoError(t, err)
	require.Len(t, fc.Features, 3)

	line, ok := fc.Features[2].Geometry.(orb.LineString)
	require.True(t, ok)
	assert.Len(t, line, 3)
	assert.Equal(t, orb.Point{101.600, 3.100}, line[0])
	assert.Equal(t, found.PlanNumber, fc.Features[2].Properties["plan_number"])
}

func TestGetRoutePlanGeoJSON_NoPathHasOnlyEndpoints(t *testing.T) {
	svc, repo, _ := newTestRoutingService(&fakeLoader{network: testNetwork()})

	_, err := svc.PlanRoute(context.Background(), PlanRouteRequest{From: atNode1, To: atNode4})
	require.Error(t, err)

	fc, err := svc.GetRoutePlanGeoJSON(context.Background(), repo.only(t).ID())
	require.NoError(t, err)
	assert.Len(t, fc.Features, 2)
}

func TestGetRoutePlan_NotFound(t *testing.T) {
	svc, _, _ := newTestRoutingService(&fakeLoader{network: testNetwork()})

	_, err := svc.GetRoutePlan(context.Background(), uuid.New())

	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeNotFound, appErr.Code)
}

func TestAdminListAndStats(t *testing.T) {
	svc, _, _ := newTestRoutingService(&fakeLoader{network: testNetwork()})
	ctx := context.Background()

	_, err := svc.PlanRoute(ctx, PlanRouteRequest{From: atNode1, To: atNode3})
	require.NoError(t, err)
	_, err = svc.PlanRoute(ctx, PlanRouteRequest{From: atNode3, To: atNode1})
	require.NoError(t, err)
	_, err = svc.PlanRoute(ctx, PlanRouteRequest{From: atNode1, To: atNode4})
	require.Error(t, err)

	plans, total, err := svc.ListRoutePlans(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, plans, 2)

	stats, err := svc.GetRouteStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalPlans)
	assert.Equal(t, int64(2), stats.ByStatus["found"])
	assert.Equal(t, int64(1), stats.ByStatus["no_path"])
}
