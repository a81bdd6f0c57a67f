// Package config provides configuration structures and validation for the ledger.
// Settings come from an optional env file and the process environment, with
// defaults suited to a local single-node setup.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Store backends
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config holds the complete application configuration
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Kafka       KafkaConfig
	Postgres    PostgresConfig
	MongoDB     MongoDBConfig
	Redis       RedisConfig
	Outbox      OutboxConfig
	WorkerPool  WorkerPoolConfig
	Ledger      LedgerConfig
}

// ApplicationConfig contains general application configuration
type ApplicationConfig struct {
	Env  string
	Name string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port            int           // Port to listen on
	ShutdownTimeout time.Duration // Grace period for server shutdown
	ReadTimeout     time.Duration // Maximum duration for reading entire request
	WriteTimeout    time.Duration // Maximum duration for writing response
	IdleTimeout     time.Duration // Maximum duration to wait for next request
	RequestTimeout  time.Duration // Deadline attached to each ledger call
	RateLimitRPS    float64       // Sustained requests per second per owner
	RateLimitBurst  int
}

// KafkaConfig contains Kafka configuration
type KafkaConfig struct {
	Enabled           bool
	Brokers           string
	LedgerEventTopic  string // Committed ledger events published by the outbox poller
	RateFeedTopic     string // Exchange rate updates consumed by the converter
	NumPartitions     int
	ReplicationFactor int
	ConsumerGroup     string
	MinBytes          int
	MaxBytes          int
	MaxWait           time.Duration
	StartOffset       int64
	DLQTopic          string
}

// PostgresConfig contains PostgreSQL configuration
type PostgresConfig struct {
	URL             string        // Database connection string
	MaxConns        int32         // Maximum number of open connections
	MinConns        int32         // Minimum number of idle connections
	ConnMaxLifetime time.Duration // Maximum lifetime of a connection
	ConnMaxIdleTime time.Duration // Maximum idle time of a connection
	MigrationsPath  string        // Path to migration files
}

// MongoDBConfig contains MongoDB configuration for the fraud alert audit trail
type MongoDBConfig struct {
	Enabled         bool
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
}

// RedisConfig contains Redis configuration for the shared rate lock
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// OutboxConfig contains outbox pattern configuration
type OutboxConfig struct {
	PollingInterval  time.Duration
	BatchSize        int
	MaxRetryAttempts int
	Retention        time.Duration // Processed messages older than this are purged; zero keeps them
}

// WorkerPoolConfig sizes the pool that writes fraud alerts
type WorkerPoolConfig struct {
	Size int
}

// LedgerConfig contains the engine's policy settings
type LedgerConfig struct {
	Store                string // memory or postgres
	Timezone             string // Location of the local midnight used by daily caps
	Location             *time.Location
	RateLockTTL          time.Duration
	RateRefreshInterval  time.Duration
	RateMaxAge           time.Duration // Quotes older than this are unavailable; zero disables
	StaticRates          string        // e.g. "USD/TRY=32.5,EUR/USD=1.08"
	AutoPayInterval      time.Duration
	FraudWindowSize      int
	FraudMaxAge          time.Duration
	FraudJanitorInterval time.Duration
	FraudAlertTimeout    time.Duration
}

// validate collects every configuration problem into one error
func (c *Config) validate() error {
	var validationErrors []string

	// Server
	if c.Server.Port <= 0 {
		validationErrors = append(validationErrors, "SERVER_PORT must be greater than 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_SHUTDOWN_TIMEOUT must be greater than 0")
	}
	if c.Server.ReadTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_READ_TIMEOUT must be greater than 0")
	}
	if c.Server.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_WRITE_TIMEOUT must be greater than 0")
	}
	if c.Server.IdleTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_IDLE_TIMEOUT must be greater than 0")
	}
	if c.Server.RequestTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_REQUEST_TIMEOUT must be greater than 0")
	}
	if c.Server.RateLimitRPS < 0 {
		validationErrors = append(validationErrors, "SERVER_RATE_LIMIT_RPS cannot be negative")
	}

	// Ledger
	switch c.Ledger.Store {
	case StoreMemory, StorePostgres:
	default:
		validationErrors = append(validationErrors, fmt.Sprintf("LEDGER_STORE must be %q or %q", StoreMemory, StorePostgres))
	}
	if c.Ledger.Location == nil {
		validationErrors = append(validationErrors, "LEDGER_TIMEZONE must name a valid location")
	}
	if c.Ledger.RateLockTTL <= 0 {
		validationErrors = append(validationErrors, "LEDGER_RATE_LOCK_TTL must be greater than 0")
	}
	if c.Ledger.RateRefreshInterval <= 0 {
		validationErrors = append(validationErrors, "LEDGER_RATE_REFRESH_INTERVAL must be greater than 0")
	}
	if c.Ledger.RateMaxAge < 0 {
		validationErrors = append(validationErrors, "LEDGER_RATE_MAX_AGE cannot be negative")
	}
	if c.Ledger.AutoPayInterval <= 0 {
		validationErrors = append(validationErrors, "LEDGER_AUTOPAY_INTERVAL must be greater than 0")
	}
	if c.Ledger.FraudWindowSize <= 0 {
		validationErrors = append(validationErrors, "LEDGER_FRAUD_WINDOW_SIZE must be greater than 0")
	}
	if c.Ledger.FraudMaxAge <= 0 {
		validationErrors = append(validationErrors, "LEDGER_FRAUD_MAX_AGE must be greater than 0")
	}

	// PostgreSQL is only needed by the durable store
	if c.Ledger.Store == StorePostgres {
		if c.Postgres.URL == "" {
			validationErrors = append(validationErrors, "POSTGRES_URL is required")
		}
		if c.Postgres.MaxConns <= 0 {
			validationErrors = append(validationErrors, "POSTGRES_MAX_CONNS must be greater than 0")
		}
		if c.Postgres.MinConns <= 0 {
			validationErrors = append(validationErrors, "POSTGRES_MIN_CONNS must be greater than 0")
		}
		if c.Postgres.ConnMaxLifetime <= 0 {
			validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_LIFETIME must be greater than 0")
		}
		if c.Postgres.ConnMaxIdleTime <= 0 {
			validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_IDLE_TIME must be greater than 0")
		}
		if c.Outbox.PollingInterval <= 0 {
			validationErrors = append(validationErrors, "OUTBOX_POLLING_INTERVAL must be greater than 0")
		}
		if c.Outbox.BatchSize <= 0 {
			validationErrors = append(validationErrors, "OUTBOX_BATCH_SIZE must be greater than 0")
		}
		if c.Outbox.MaxRetryAttempts <= 0 {
			validationErrors = append(validationErrors, "OUTBOX_MAX_RETRY_ATTEMPTS must be greater than 0")
		}
		if c.Outbox.Retention < 0 {
			validationErrors = append(validationErrors, "OUTBOX_RETENTION cannot be negative")
		}
	}

	if c.Kafka.Enabled {
		if c.Kafka.Brokers == "" {
			validationErrors = append(validationErrors, "KAFKA_BROKERS is required")
		}
		if c.Kafka.LedgerEventTopic == "" {
			validationErrors = append(validationErrors, "KAFKA_LEDGER_EVENT_TOPIC is required")
		}
		if c.Kafka.ConsumerGroup == "" {
			validationErrors = append(validationErrors, "KAFKA_CONSUMER_GROUP is required")
		}
		if c.Kafka.MinBytes <= 0 {
			validationErrors = append(validationErrors, "KAFKA_CONSUMER_MIN_BYTES must be greater than 0")
		}
		if c.Kafka.MaxBytes <= 0 {
			validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_BYTES must be greater than 0")
		}
		if c.Kafka.MaxWait <= 0 {
			validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_WAIT must be greater than 0")
		}
	}

	if c.MongoDB.Enabled {
		if c.MongoDB.URI == "" {
			validationErrors = append(validationErrors, "MONGO_URI is required")
		}
		if c.MongoDB.Database == "" {
			validationErrors = append(validationErrors, "MONGO_DATABASE is required")
		}
		if c.MongoDB.Timeout <= 0 {
			validationErrors = append(validationErrors, "MONGO_TIMEOUT must be greater than 0")
		}
		if c.MongoDB.MaxPoolSize <= 0 {
			validationErrors = append(validationErrors, "MONGO_MAX_POOL_SIZE must be greater than 0")
		}
		if c.WorkerPool.Size <= 0 {
			validationErrors = append(validationErrors, "WORKER_POOL_SIZE must be greater than 0")
		}
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		validationErrors = append(validationErrors, "REDIS_ADDR is required")
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}
