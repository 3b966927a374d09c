package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Proposal store backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Server captures process level configuration.
type Server struct {
	Addr     string `env:"MULTISIG_ADDR" envDefault:":8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// DatabaseURL enables the Postgres registry store, and the Postgres
	// proposal store when ProposalBackend is "postgres".
	DatabaseURL     string `env:"DATABASE_URL"`
	ProposalBackend string `env:"PROPOSAL_STORE" envDefault:"memory"`

	Redis RedisConfig

	KafkaBrokers    []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaAuditTopic string   `env:"KAFKA_AUDIT_TOPIC" envDefault:"multisig.audit"`

	IdentityJWTKey   string `env:"IDENTITY_JWT_KEY" envDefault:"dev-secret-key-change-in-production"`
	IdentityIssuer   string `env:"IDENTITY_JWT_ISSUER" envDefault:"multisig"`
	IdentityAudience string `env:"IDENTITY_JWT_AUDIENCE" envDefault:"multisig-api"`

	// ExecutionHostURL is where authorized instructions are POSTed. Empty
	// means a logging no-op host, for development.
	ExecutionHostURL string        `env:"EXECUTION_HOST_URL"`
	ExecutionTimeout time.Duration `env:"EXECUTION_TIMEOUT" envDefault:"10s"`

	// OTelEndpoint enables OTLP/HTTP trace export when set.
	OTelEndpoint string `env:"MULTISIG_OTEL_ENDPOINT"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

// RedisConfig configures the Redis client used by the Redis proposal store.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
	LockTTL      time.Duration `env:"REDIS_LOCK_TTL" envDefault:"30s"`
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	var cfg Server
	if err := env.Parse(&cfg); err != nil {
		return Server{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements.
func (c Server) Validate() error {
	switch c.ProposalBackend {
	case BackendMemory:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("PROPOSAL_STORE=postgres requires DATABASE_URL")
		}
	case BackendRedis:
		if c.Redis.URL == "" {
			return errors.New("PROPOSAL_STORE=redis requires REDIS_URL")
		}
		if c.Redis.LockTTL <= c.ExecutionTimeout {
			return errors.New("REDIS_LOCK_TTL must exceed EXECUTION_TIMEOUT")
		}
	default:
		return fmt.Errorf("unknown PROPOSAL_STORE %q", c.ProposalBackend)
	}
	if c.IdentityJWTKey == "" {
		return errors.New("IDENTITY_JWT_KEY is required")
	}
	return nil
}
