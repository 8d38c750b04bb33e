package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/samirrijal/tripdesk/internal/core/tripcheck"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Log       LogConfig       `mapstructure:"log"`
	Policy    PolicyConfig    `mapstructure:"policy"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
	Enabled   bool   `mapstructure:"enabled"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// PolicyConfig holds the dispatch tolerances applied by the trip engine.
type PolicyConfig struct {
	StartSoftMinutes        int     `mapstructure:"start_soft_minutes"`
	StartHardMinutes        int     `mapstructure:"start_hard_minutes"`
	ArrivalMaxDistanceKm    float64 `mapstructure:"arrival_max_distance_km"`
	ArrivalToleranceMinutes int     `mapstructure:"arrival_tolerance_minutes"`
	StopOverheadMinutes     float64 `mapstructure:"stop_overhead_minutes"`
}

// StartWindow builds the start gate tolerance bands.
func (p PolicyConfig) StartWindow() (tripcheck.Window, error) {
	return tripcheck.NewWindow(
		time.Duration(p.StartSoftMinutes)*time.Minute,
		time.Duration(p.StartHardMinutes)*time.Minute,
	)
}

// ArrivalValidator builds the stop and destination validator.
func (p PolicyConfig) ArrivalValidator() tripcheck.ArrivalValidator {
	return tripcheck.ArrivalValidator{
		MaxDistanceKm: p.ArrivalMaxDistanceKm,
		Tolerance:     time.Duration(p.ArrivalToleranceMinutes) * time.Minute,
	}
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "tripdesk")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "tripdesk")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "trip-settlement")
	v.SetDefault("temporal.enabled", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("policy.start_soft_minutes", 30)
	v.SetDefault("policy.start_hard_minutes", 180)
	v.SetDefault("policy.arrival_max_distance_km", 0.5)
	v.SetDefault("policy.arrival_tolerance_minutes", 30)
	v.SetDefault("policy.stop_overhead_minutes", tripcheck.DefaultStopOverheadMin)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: TRIPDESK_DATABASE_HOST → database.host
	v.SetEnvPrefix("TRIPDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Temporal.Enabled && c.Temporal.TaskQueue == "" {
		errs = append(errs, "temporal.task_queue is required when temporal is enabled")
	}
	if _, err := c.Policy.StartWindow(); err != nil {
		errs = append(errs, fmt.Sprintf("policy start window: %v", err))
	}
	if c.Policy.ArrivalMaxDistanceKm <= 0 {
		errs = append(errs, "policy.arrival_max_distance_km must be positive")
	}
	if c.Policy.ArrivalToleranceMinutes < 0 {
		errs = append(errs, "policy.arrival_tolerance_minutes must not be negative")
	}
	if c.Policy.StopOverheadMinutes < 0 {
		errs = append(errs, "policy.stop_overhead_minutes must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
