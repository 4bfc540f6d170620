package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/routing"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/platform/database"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// KafkaConfig holds broker settings.
type KafkaConfig struct {
	Brokers     []string
	GroupPrefix string
}

// JWTConfig holds the shared token secret.
type JWTConfig struct {
	Secret string
}

// RoutingConfig tunes the route search.
type RoutingConfig struct {
	DefaultMetric   string
	BBoxMarginDeg   float64
	MaxSpeedKmh     float64
	DefaultSpeedKmh float64
	SearchTimeout   time.Duration
}

// ServiceConfig holds all configuration for the routing service.
type ServiceConfig struct {
	Port          string
	AppEnv        string
	DBConfig      database.PostgresConfig
	JWTConfig     JWTConfig
	KafkaConfig   KafkaConfig
	RoutingConfig RoutingConfig
}

// Load reads configuration from ROUTING_* environment variables, with an
// optional .env file in the working directory.
func Load() (*ServiceConfig, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("ROUTING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service_port", "8084")
	v.SetDefault("app_env", "development")

	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", "5432")
	v.SetDefault("db_user", "postgres")
	v.SetDefault("db_password", "postgres")
	v.SetDefault("db_name", "kilat_routing")
	v.SetDefault("db_sslmode", "disable")

	v.SetDefault("jwt_secret", "change-me-in-production")

	v.SetDefault("kafka_brokers", "localhost:9092")
	v.SetDefault("kafka_group_prefix", "kilat-")

	v.SetDefault("default_metric", "distance")
	v.SetDefault("bbox_margin_deg", 0.01)
	v.SetDefault("max_speed_kmh", 130.0)
	v.SetDefault("default_speed_kmh", 40.0)
	v.SetDefault("search_timeout", "10s")
}

func fromViper(v *viper.Viper) (*ServiceConfig, error) {
	cfg := &ServiceConfig{
		Port:   ":" + strings.TrimPrefix(v.GetString("service_port"), ":"),
		AppEnv: v.GetString("app_env"),
		DBConfig: database.PostgresConfig{
			Host:     v.GetString("db_host"),
			Port:     v.GetString("db_port"),
			User:     v.GetString("db_user"),
			Password: v.GetString("db_password"),
			DBName:   v.GetString("db_name"),
			SSLMode:  v.GetString("db_sslmode"),
		},
		JWTConfig: JWTConfig{Secret: v.GetString("jwt_secret")},
		KafkaConfig: KafkaConfig{
			Brokers:     splitList(v.GetString("kafka_brokers")),
			GroupPrefix: v.GetString("kafka_group_prefix"),
		},
		RoutingConfig: RoutingConfig{
			DefaultMetric:   v.GetString("default_metric"),
			BBoxMarginDeg:   v.GetFloat64("bbox_margin_deg"),
			MaxSpeedKmh:     v.GetFloat64("max_speed_kmh"),
			DefaultSpeedKmh: v.GetFloat64("default_speed_kmh"),
			SearchTimeout:   v.GetDuration("search_timeout"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *ServiceConfig) validate() error {
	rc := c.RoutingConfig
	if !routing.Metric(rc.DefaultMetric).IsValid() {
		return fmt.Errorf("default metric must be distance or time, got %q", rc.DefaultMetric)
	}
	if rc.BBoxMarginDeg < 0 {
		return fmt.Errorf("bbox margin must not be negative, got %v", rc.BBoxMarginDeg)
	}
	if rc.MaxSpeedKmh <= 0 {
		return fmt.Errorf("max speed must be positive, got %v", rc.MaxSpeedKmh)
	}
	if rc.DefaultSpeedKmh <= 0 || rc.DefaultSpeedKmh > rc.MaxSpeedKmh {
		// A default above the max would make the time heuristic overestimate.
		return fmt.Errorf("default speed must be in (0, max speed], got %v", rc.DefaultSpeedKmh)
	}
	if rc.SearchTimeout <= 0 {
		return fmt.Errorf("search timeout must be positive, got %v", rc.SearchTimeout)
	}
	if len(c.KafkaConfig.Brokers) == 0 {
		return fmt.Errorf("at least one kafka broker is required")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
