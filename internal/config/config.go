package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // TIMEZONE must resolve in minimal containers

	"github.com/BurntSushi/toml"
)

// Notification policies for low credit alerts
const (
	NotifyAlways          = "always"
	NotifyOncePerCycle    = "once_per_cycle"
	NotifyOncePerCrossing = "once_per_crossing"
)

// Store drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds all application configuration
type Config struct {
	ServiceName string
	ServicePort int
	LogLevel    string
	Database    DatabaseConfig
	RabbitMQ    RabbitMQConfig
	Validation  ValidationConfig
	Anomaly     AnomalyConfig
	Engine      EngineConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver          string
	URL             string
	SQLitePath      string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
}

// RabbitMQConfig holds RabbitMQ connection and queue settings
type RabbitMQConfig struct {
	Enabled          bool
	URL              string
	IngestExchange   string
	IngestQueue      string
	IngestRoutingKey string
	EventsExchange   string
	DLQQueue         string
	PrefetchCount    int
}

// ValidationConfig holds validation settings
type ValidationConfig struct {
	TimestampToleranceMinutes int
}

// AnomalyConfig holds anomaly detection settings
type AnomalyConfig struct {
	SpikeThreshold            float64
	MinDataPointsForDetection int
	HistoryLimit              int
}

// EngineConfig holds the insight and credit policy knobs. Every field can
// also be set from the [engine] table of the optional TOML file.
type EngineConfig struct {
	Timezone           string
	InsightWindow      time.Duration
	BillingCycle       time.Duration
	TipDedupWindow     time.Duration
	MaxTips            int
	LowCreditPolicy    string
	NotifyOnExhausted  bool
	NotificationWindow time.Duration
}

type fileConfig struct {
	Engine struct {
		Timezone           string `toml:"timezone"`
		MaxTips            *int   `toml:"max_tips"`
		LowCreditPolicy    string `toml:"low_credit_policy"`
		NotifyOnExhausted  *bool  `toml:"notify_on_exhausted"`
		InsightWindow      string `toml:"insight_window"`
		BillingCycle       string `toml:"billing_cycle"`
		TipDedupWindow     string `toml:"tip_dedup_window"`
		NotificationWindow string `toml:"notification_window"`
	} `toml:"engine"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		ServiceName: getEnv("SERVICE_NAME", "energy-insight-engine"),
		ServicePort: getEnvAsInt("SERVICE_PORT", 8081),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Database: DatabaseConfig{
			Driver:     strings.ToLower(getEnv("DATABASE_DRIVER", DriverPostgres)),
			URL:        getEnv("DATABASE_URL", ""),
			SQLitePath: getEnv("SQLITE_PATH", "gridsense.db"),

			// postgres only
			MaxConns:        getEnvAsInt("DATABASE_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DATABASE_MIN_CONNS", 0),
			MaxConnLifetime: getEnvAsDuration("DATABASE_MAX_CONN_LIFETIME", time.Hour),
		},
		RabbitMQ: RabbitMQConfig{
			Enabled:          getEnvAsBool("RABBITMQ_ENABLED", true),
			URL:              getEnv("RABBITMQ_URL", ""),
			IngestExchange:   getEnv("RABBITMQ_INGEST_EXCHANGE", "gridsense.readings.exchange"),
			IngestQueue:      getEnv("RABBITMQ_INGEST_QUEUE", "gridsense.readings.queue"),
			IngestRoutingKey: getEnv("RABBITMQ_INGEST_ROUTING_KEY", "power.reading.raw"),
			EventsExchange:   getEnv("RABBITMQ_EVENTS_EXCHANGE", "gridsense.events.exchange"),
			DLQQueue:         getEnv("RABBITMQ_DLQ_QUEUE", "gridsense.readings.dlq"),
			PrefetchCount:    getEnvAsInt("RABBITMQ_PREFETCH", 10),
		},
		Validation: ValidationConfig{
			TimestampToleranceMinutes: getEnvAsInt("VALIDATION_TIMESTAMP_TOLERANCE_MINUTES", 10080),
		},
		Anomaly: AnomalyConfig{
			SpikeThreshold:            getEnvAsFloat("ANOMALY_SPIKE_THRESHOLD", 3.0),
			MinDataPointsForDetection: getEnvAsInt("ANOMALY_MIN_DATA_POINTS", 3),
			HistoryLimit:              getEnvAsInt("ANOMALY_HISTORY_LIMIT", 10),
		},
		Engine: EngineConfig{
			Timezone:           getEnv("TIMEZONE", "Local"),
			InsightWindow:      getEnvAsDuration("INSIGHT_WINDOW", 24*time.Hour),
			BillingCycle:       getEnvAsDuration("BILLING_CYCLE", 30*24*time.Hour),
			TipDedupWindow:     getEnvAsDuration("TIP_DEDUP_WINDOW", 7*24*time.Hour),
			MaxTips:            getEnvAsInt("MAX_TIPS", 2),
			LowCreditPolicy:    getEnv("LOW_CREDIT_NOTIFY_POLICY", NotifyOncePerCrossing),
			NotifyOnExhausted:  getEnvAsBool("NOTIFY_ON_EXHAUSTED", true),
			NotificationWindow: getEnvAsDuration("NOTIFICATION_WINDOW", 24*time.Hour),
		},
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks required fields and enumerations
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required but not set in environment variables")
		}
		if c.Database.MaxConns <= 0 || c.Database.MinConns < 0 || c.Database.MinConns > c.Database.MaxConns {
			return fmt.Errorf("invalid pool size: DATABASE_MIN_CONNS=%d DATABASE_MAX_CONNS=%d", c.Database.MinConns, c.Database.MaxConns)
		}
	case DriverSQLite:
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required when DATABASE_DRIVER=sqlite")
		}
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.Database.Driver)
	}
	if c.RabbitMQ.Enabled && c.RabbitMQ.URL == "" {
		return fmt.Errorf("RABBITMQ_URL is required but not set in environment variables")
	}
	switch c.Engine.LowCreditPolicy {
	case NotifyAlways, NotifyOncePerCycle, NotifyOncePerCrossing:
	default:
		return fmt.Errorf("unsupported LOW_CREDIT_NOTIFY_POLICY %q", c.Engine.LowCreditPolicy)
	}
	if c.Engine.MaxTips < 0 {
		return fmt.Errorf("MAX_TIPS must not be negative")
	}
	windows := []struct {
		name  string
		value time.Duration
	}{
		{"INSIGHT_WINDOW", c.Engine.InsightWindow},
		{"BILLING_CYCLE", c.Engine.BillingCycle},
		{"TIP_DEDUP_WINDOW", c.Engine.TipDedupWindow},
		{"NOTIFICATION_WINDOW", c.Engine.NotificationWindow},
	}
	for _, w := range windows {
		if w.value <= 0 {
			return fmt.Errorf("%s must be positive, got %s", w.name, w.value)
		}
	}
	if _, err := c.Engine.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the configured time zone used for hour-of-day bucketing
func (e EngineConfig) Location() (*time.Location, error) {
	if e.Timezone == "" || e.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(e.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", e.Timezone, err)
	}
	return loc, nil
}

// applyFile overlays non-zero values of the [engine] table from a TOML file
func (c *Config) applyFile(path string) error {
	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return fmt.Errorf("failed to decode config file %s: %w", path, err)
	}

	e := fc.Engine
	if e.Timezone != "" {
		c.Engine.Timezone = e.Timezone
	}
	if e.MaxTips != nil {
		c.Engine.MaxTips = *e.MaxTips
	}
	if e.LowCreditPolicy != "" {
		c.Engine.LowCreditPolicy = e.LowCreditPolicy
	}
	if e.NotifyOnExhausted != nil {
		c.Engine.NotifyOnExhausted = *e.NotifyOnExhausted
	}

	durations := []struct {
		raw string
		dst *time.Duration
	}{
		{e.InsightWindow, &c.Engine.InsightWindow},
		{e.BillingCycle, &c.Engine.BillingCycle},
		{e.TipDedupWindow, &c.Engine.TipDedupWindow},
		{e.NotificationWindow, &c.Engine.NotificationWindow},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("invalid duration %q in %s: %w", d.raw, path, err)
		}
		*d.dst = v
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
