package config

import (
	"fmt"
	"log"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

// Config stores dispatch core settings.
type Config struct {
	Port             int
	LogLevel         string
	OperationTimeout time.Duration
	DB               DB
	Kafka            Kafka
	Notify           Notify
	Redis            Redis
	FleetGateway     FleetGateway
	Reconcile        Reconcile
	RateLimit        RateLimit
	Debug            Debug
}

// DB stores PostgreSQL connection settings.
type DB struct {
	Host        string
	Port        string
	User        string
	Pass        string
	Name        string
	MaxConns    int32
	LockTimeout time.Duration
}

// DSN returns a pgx connection string.
func (d DB) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Pass),
		Host:     net.JoinHostPort(d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// Kafka stores broker settings. Empty Brokers disables Kafka.
type Kafka struct {
	Brokers            []string
	GroupID            string
	StatusTopic        string
	NotificationsTopic string
}

// Notify stores outbox relay settings.
type Notify struct {
	Backend         string
	MQTTBroker      string
	MQTTClientID    string
	MQTTTopicPrefix string
	Interval        time.Duration
	Batch           int
	MaxAttempts     int
}

// Redis stores report cache settings. Empty Addr disables the cache.
type Redis struct {
	Addr      string
	DB        int
	ReportTTL time.Duration
}

// FleetGateway stores remote qualification settings. Empty Host means the
// local fleet tables answer qualification.
type FleetGateway struct {
	Host        string
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Reconcile stores reconciliation settings.
type Reconcile struct {
	ConflictPolicy string
}

// RateLimit stores per-client HTTP rate limiting settings.
type RateLimit struct {
	Enabled    bool
	Rate       float64
	Burst      int
	TTL        time.Duration
	MaxBuckets int
}

// Debug stores pprof and metrics server settings.
type Debug struct {
	Port int
	User string
	Pass string
}

// Load reads configuration in order: .env (if present) → environment → flags.
func Load() (*Config, error) {
	return Parse(os.Args[1:])
}

// Parse is Load with explicit command line arguments. Flags are registered on
// pflag.CommandLine.
func Parse(args []string) (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: .env not loaded: %v", err)
	}

	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}

	pflag.IntVarP(&cfg.Port, "port", "p", cfg.Port, "port to listen on")
	pflag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug|info|warn|error")
	pflag.IntVar(&cfg.Debug.Port, "debug-port", cfg.Debug.Port, "pprof and metrics port, 0 disables")
	if err := pflag.CommandLine.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv builds the configuration from defaults and environment variables only.
func FromEnv() (*Config, error) {
	cfg := Default()
	e := envReader{}

	cfg.Port = e.int("PORT", cfg.Port)
	cfg.LogLevel = e.string("LOG_LEVEL", cfg.LogLevel)
	cfg.OperationTimeout = e.duration("OPERATION_TIMEOUT", cfg.OperationTimeout)

	cfg.DB.Host = e.string("POSTGRES_HOST", cfg.DB.Host)
	cfg.DB.Port = e.string("POSTGRES_PORT", cfg.DB.Port)
	cfg.DB.User = e.string("POSTGRES_USER", cfg.DB.User)
	cfg.DB.Pass = e.string("POSTGRES_PASSWORD", cfg.DB.Pass)
	cfg.DB.Name = e.string("POSTGRES_DB", cfg.DB.Name)
	cfg.DB.MaxConns = int32(e.int("POSTGRES_MAX_CONNS", int(cfg.DB.MaxConns)))
	cfg.DB.LockTimeout = e.duration("DB_LOCK_TIMEOUT", cfg.DB.LockTimeout)
	if _, err := strconv.Atoi(cfg.DB.Port); err != nil {
		e.fail("POSTGRES_PORT", cfg.DB.Port, err)
	}

	cfg.Kafka.Brokers = e.list("KAFKA_BROKERS", cfg.Kafka.Brokers)
	cfg.Kafka.GroupID = e.string("KAFKA_GROUP_ID", cfg.Kafka.GroupID)
	cfg.Kafka.StatusTopic = e.string("KAFKA_STATUS_TOPIC", cfg.Kafka.StatusTopic)
	cfg.Kafka.NotificationsTopic = e.string("KAFKA_NOTIFICATIONS_TOPIC", cfg.Kafka.NotificationsTopic)

	cfg.Notify.Backend = e.string("NOTIFY_BACKEND", cfg.Notify.Backend)
	cfg.Notify.MQTTBroker = e.string("MQTT_BROKER", cfg.Notify.MQTTBroker)
	cfg.Notify.MQTTClientID = e.string("MQTT_CLIENT_ID", cfg.Notify.MQTTClientID)
	cfg.Notify.MQTTTopicPrefix = e.string("MQTT_TOPIC_PREFIX", cfg.Notify.MQTTTopicPrefix)
	cfg.Notify.Interval = e.duration("NOTIFY_INTERVAL", cfg.Notify.Interval)
	cfg.Notify.Batch = e.int("NOTIFY_BATCH", cfg.Notify.Batch)
	cfg.Notify.MaxAttempts = e.int("NOTIFY_MAX_ATTEMPTS", cfg.Notify.MaxAttempts)

	cfg.Redis.Addr = e.string("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.DB = e.int("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.ReportTTL = e.duration("REDIS_REPORT_TTL", cfg.Redis.ReportTTL)

	cfg.FleetGateway.Host = e.string("FLEET_SERVICE_HOST", cfg.FleetGateway.Host)
	cfg.FleetGateway.MaxAttempts = e.int("FLEET_GATEWAY_MAX_ATTEMPTS", cfg.FleetGateway.MaxAttempts)
	cfg.FleetGateway.BaseDelay = e.duration("FLEET_GATEWAY_BASE_DELAY", cfg.FleetGateway.BaseDelay)
	cfg.FleetGateway.MaxDelay = e.duration("FLEET_GATEWAY_MAX_DELAY", cfg.FleetGateway.MaxDelay)

	cfg.Reconcile.ConflictPolicy = e.string("RECONCILE_CONFLICT_POLICY", cfg.Reconcile.ConflictPolicy)

	cfg.RateLimit.Enabled = e.bool("RATE_LIMIT_ENABLED", cfg.RateLimit.Enabled)
	cfg.RateLimit.Rate = e.float("RATE_LIMIT_RATE", cfg.RateLimit.Rate)
	cfg.RateLimit.Burst = e.int("RATE_LIMIT_BURST", cfg.RateLimit.Burst)
	cfg.RateLimit.TTL = e.duration("RATE_LIMIT_TTL", cfg.RateLimit.TTL)
	cfg.RateLimit.MaxBuckets = e.int("RATE_LIMIT_MAX_BUCKETS", cfg.RateLimit.MaxBuckets)

	cfg.Debug.Port = e.int("DEBUG_PORT", cfg.Debug.Port)
	cfg.Debug.User = e.string("DEBUG_USER", cfg.Debug.User)
	cfg.Debug.Pass = e.string("DEBUG_PASS", cfg.Debug.Pass)

	if e.err != nil {
		return nil, e.err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.Debug.Port < 0 || c.Debug.Port > 65535 {
		return fmt.Errorf("invalid debug port: %d", c.Debug.Port)
	}
	if c.OperationTimeout <= 0 {
		return fmt.Errorf("invalid operation timeout: %s", c.OperationTimeout)
	}
	switch c.Notify.Backend {
	case NotifyKafka, NotifyMQTT, NotifyNone:
	default:
		return fmt.Errorf("invalid notify backend: %q", c.Notify.Backend)
	}
	switch c.Reconcile.ConflictPolicy {
	case "newest", "in_progress":
	default:
		return fmt.Errorf("invalid conflict policy: %q", c.Reconcile.ConflictPolicy)
	}
	if c.RateLimit.Enabled && (c.RateLimit.Rate <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("invalid rate limit: rate=%v burst=%d", c.RateLimit.Rate, c.RateLimit.Burst)
	}
	return nil
}

// envReader collects the first parse error so FromEnv stays linear.
type envReader struct{ err error }

func (e *envReader) fail(key, raw string, err error) {
	if e.err == nil {
		e.err = fmt.Errorf("invalid %s=%q: %w", key, raw, err)
	}
}

func (e *envReader) string(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func (e *envReader) int(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, v, err)
		return def
	}
	return n
}

func (e *envReader) float(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.fail(key, v, err)
		return def
	}
	return f
}

func (e *envReader) bool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(key, v, err)
		return def
	}
	return b
}

func (e *envReader) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(key, v, err)
		return def
	}
	return d
}

func (e *envReader) list(key string, def []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
