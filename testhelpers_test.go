//go:build integration

package main_test

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/Kilat-Pet-Delivery/service-routing/internal/application"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/config"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/roadnetwork"
	routingEvents "github.com/Kilat-Pet-Delivery/service-routing/internal/events"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/platform/kafka"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/repository"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// testInfra holds shared test infrastructure.
type testInfra struct {
	DB           *gorm.DB
	KafkaBrokers []string
	Cleanup      func()
}

// routingStack holds wired-up routing service components.
type routingStack struct {
	Service         *application.RoutingService
	Network         *application.NetworkService
	Consumer        *routingEvents.BookingEventConsumer
	CleanupProducer func()
}

// setupPostgres starts a PostgreSQL container and returns a migrated GORM DB.
func setupPostgres(t *testing.T) (*gorm.DB, func()) {
	t.Helper()
	ctx := context.Background()

	pgReq := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "test_routing",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: pgReq,
		Started:          true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")

	pgHost, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	pgPort, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("host=%s port=%s user=test password=test dbname=test_routing sslmode=disable", pgHost, pgPort.Port())

	// Poll until GORM can actually connect and ping.
	var db *gorm.DB
	require.Eventually(t, func() bool {
		var err error
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err != nil {
			return false
		}
		sqlDB, err := db.DB()
		if err != nil {
			return false
		}
		return sqlDB.Ping() == nil
	}, 30*time.Second, 1*time.Second, "PostgreSQL not ready for connections")

	require.NoError(t, db.AutoMigrate(
		&repository.RoadNodeModel{},
		&repository.RoadSegmentModel{},
		&repository.RoutePlanModel{},
	))

	return db, func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate PostgreSQL container: %v", err)
		}
	}
}

// setupContainers starts PostgreSQL and Kafka testcontainers.
func setupContainers(t *testing.T) *testInfra {
	t.Helper()
	ctx := context.Background()

	db, cleanupPG := setupPostgres(t)

	// Start Kafka container using confluent-local (supports KRaft natively).
	kafkaContainer, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "failed to start Kafka container")

	kafkaBrokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err, "failed to get Kafka brokers")

	// Pre-create required topics.
	createTopics(t, kafkaBrokers, "booking.events", "routing.events")

	cleanup := func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Kafka container: %v", err)
		}
		cleanupPG()
	}

	return &testInfra{
		DB:           db,
		KafkaBrokers: kafkaBrokers,
		Cleanup:      cleanup,
	}
}

func testRoutingConfig() config.RoutingConfig {
	return config.RoutingConfig{
		DefaultMetric:   "distance",
		BBoxMarginDeg:   0.01,
		MaxSpeedKmh:     130,
		DefaultSpeedKmh: 40,
		SearchTimeout:   10 * time.Second,
	}
}

// setupRoutingStack wires up the full routing service stack.
func setupRoutingStack(t *testing.T, db *gorm.DB, brokers []string) *routingStack {
	t.Helper()
	logger, _ := zap.NewDevelopment()

	networkRepo := repository.NewGormRoadNetworkRepository(db)
	planRepo := repository.NewGormRoutePlanRepository(db)
	producer := kafka.NewProducer(brokers, logger)
	routingSvc := application.NewRoutingService(planRepo, networkRepo, producer, testRoutingConfig(), logger)
	networkSvc := application.NewNetworkService(networkRepo, logger)

	groupID := fmt.Sprintf("test-routing-%s", uuid.New().String()[:8])
	consumer := routingEvents.NewBookingEventConsumer(brokers, groupID, routingSvc, logger)

	return &routingStack{
		Service:         routingSvc,
		Network:         networkSvc,
		Consumer:        consumer,
		CleanupProducer: func() { _ = producer.Close() },
	}
}

// klangValleyGrid is a small road grid near KLCC. Nodes 100..108 form a
// 3x3 grid 0.001 degrees apart; the west column is one-way northbound and
// node 199 lies just outside the grid without any road.
func klangValleyGrid() *roadnetwork.RoadNetwork {
	const (
		baseLat = 3.1500
		baseLon = 101.7100
		step    = 0.001
	)
	network := &roadnetwork.RoadNetwork{}
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			network.Nodes = append(network.Nodes, roadnetwork.RoadNode{
				ID:  int64(100 + row*3 + col),
				Lat: baseLat + float64(row)*step,
				Lon: baseLon + float64(col)*step,
			})
		}
	}
	network.Nodes = append(network.Nodes, roadnetwork.RoadNode{ID: 199, Lat: baseLat + 0.005, Lon: baseLon + 0.005})

	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			id := int64(100 + row*3 + col)
			if col < 2 {
				network.Segments = append(network.Segments, roadnetwork.RoadSegment{From: id, To: id + 1, LengthM: 120})
			}
			if row < 2 {
				network.Segments = append(network.Segments, roadnetwork.RoadSegment{From: id, To: id + 3, LengthM: 120, Oneway: col == 0})
			}
		}
	}
	return network
}

// publishTestEvent publishes a CloudEvent to Kafka.
func publishTestEvent(t *testing.T, brokers []string, topic, source, eventType string, data interface{}) {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	producer := kafka.NewProducer(brokers, logger)
	defer func() { _ = producer.Close() }()

	ce, err := kafka.NewCloudEvent(source, eventType, data)
	require.NoError(t, err, "failed to create cloud event")

	err = producer.PublishEvent(context.Background(), topic, ce)
	require.NoError(t, err, "failed to publish event")
}

// waitForBookingPlan polls the route_plans table until a plan for the booking exists.
func waitForBookingPlan(t *testing.T, db *gorm.DB, bookingID uuid.UUID, timeout time.Duration) repository.RoutePlanModel {
	t.Helper()
	var result repository.RoutePlanModel
	require.Eventually(t, func() bool {
		var model repository.RoutePlanModel
		if err := db.Where("booking_id = ?", bookingID).First(&model).Error; err != nil {
			return false
		}
		result = model
		return true
	}, timeout, 200*time.Millisecond, "no route plan stored for booking %s", bookingID)
	return result
}

// consumeOneEvent reads from a Kafka topic until it finds an event of the expected type.
func consumeOneEvent(t *testing.T, brokers []string, topic, expectedType string, timeout time.Duration) kafka.CloudEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	groupID := fmt.Sprintf("test-assert-%s", uuid.New().String()[:8])
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafkago.FirstOffset,
	})
	defer func() { _ = reader.Close() }()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				t.Fatalf("timed out waiting for event type %q on topic %q", expectedType, topic)
			}
			continue
		}
		ce, err := kafka.ParseCloudEvent(msg.Value)
		if err != nil {
			continue
		}
		if ce.Type == expectedType {
			return ce
		}
	}
}

// createTopics pre-creates Kafka topics so producers don't fail with "Unknown Topic".
func createTopics(t *testing.T, brokers []string, topics ...string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", brokers[0])
	require.NoError(t, err, "failed to dial Kafka for topic creation")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "failed to get Kafka controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, fmt.Sprintf("%d", controller.Port)))
	require.NoError(t, err, "failed to connect to Kafka controller")
	defer controllerConn.Close()

	topicConfigs := make([]kafkago.TopicConfig, len(topics))
	for i, topic := range topics {
		topicConfigs[i] = kafkago.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}
	}
	err = controllerConn.CreateTopics(topicConfigs...)
	require.NoError(t, err, "failed to create Kafka topics")

	// Give Kafka a moment to propagate topic metadata.
	time.Sleep(1 * time.Second)
}
