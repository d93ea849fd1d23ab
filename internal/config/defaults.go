package config

import "time"

// Notification backends.
const (
	NotifyKafka = "kafka"
	NotifyMQTT  = "mqtt"
	NotifyNone  = "none"
)

const defaultPort = 8080

var defaultDB = DB{
	Host:        "127.0.0.1",
	Port:        "5432",
	User:        "dispatch",
	Pass:        "dispatch",
	Name:        "dispatch",
	MaxConns:    10,
	LockTimeout: 2 * time.Second,
}

var defaultKafka = Kafka{
	GroupID:            "dispatch-core",
	StatusTopic:        "driver.status.events",
	NotificationsTopic: "dispatch.notifications",
}

var defaultNotify = Notify{
	Backend:         NotifyNone,
	MQTTClientID:    "dispatch-core",
	MQTTTopicPrefix: "dispatch",
	Interval:        2 * time.Second,
	Batch:           100,
	MaxAttempts:     10,
}

var defaultFleetGateway = FleetGateway{
	MaxAttempts: 4,
	BaseDelay:   150 * time.Millisecond,
	MaxDelay:    time.Second,
}

var defaultRateLimit = RateLimit{
	Enabled:    true,
	Rate:       20,
	Burst:      40,
	TTL:        5 * time.Minute,
	MaxBuckets: 10000,
}

// Default returns a configuration with every default applied.
func Default() *Config {
	return &Config{
		Port:             defaultPort,
		LogLevel:         "info",
		OperationTimeout: 5 * time.Second,
		DB:               defaultDB,
		Kafka:            defaultKafka,
		Notify:           defaultNotify,
		Redis:            Redis{ReportTTL: 5 * time.Minute},
		FleetGateway:     defaultFleetGateway,
		Reconcile:        Reconcile{ConflictPolicy: "newest"},
		RateLimit:        defaultRateLimit,
		Debug:            Debug{Port: 6060},
	}
}

// DefaultPort returns the default port.
func DefaultPort() int {
	return defaultPort
}

// DefaultDB returns the default database settings.
func DefaultDB() DB {
	return defaultDB
}

// DefaultFleetGateway returns the default fleet gateway settings.
func DefaultFleetGateway() FleetGateway {
	return defaultFleetGateway
}
