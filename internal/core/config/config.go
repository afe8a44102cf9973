package config

import (
	"time"

	"github.com/vietddude/tema/internal/auth"
	"github.com/vietddude/tema/internal/events"
	"github.com/vietddude/tema/internal/health"
	"github.com/vietddude/tema/internal/infra/rapidoc"
	redisclient "github.com/vietddude/tema/internal/infra/redis"
	"github.com/vietddude/tema/internal/infra/resend"
	"github.com/vietddude/tema/internal/infra/supabase"
	"github.com/vietddude/tema/internal/realtime"
	"github.com/vietddude/tema/internal/resilience/recovery"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Environment string             `yaml:"environment"` // development, production
	Server      ServerConfig       `yaml:"server"`
	Logging     LoggingConfig      `yaml:"logging"`
	Rapidoc     rapidoc.Config     `yaml:"rapidoc"`
	Supabase    supabase.Config    `yaml:"supabase"`
	Asaas       AsaasConfig        `yaml:"asaas"`
	Resend      resend.Config      `yaml:"resend"`
	SMTP        resend.SMTPConfig  `yaml:"smtp"`
	Session     SessionConfig      `yaml:"session"`
	Redis       redisclient.Config `yaml:"redis"`
	Auth        auth.Config        `yaml:"auth"`
	Recovery    recovery.Config    `yaml:"recovery"`
	Cache       CacheConfig        `yaml:"cache"`
	Health      health.Config      `yaml:"health"`
	Realtime    realtime.Config    `yaml:"realtime"`
	Events      EventsConfig       `yaml:"events"`
}

// Production reports whether error details must be stripped from responses.
func (c *AppConfig) Production() bool { return c.Environment == "production" }

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port       int `yaml:"port"`
	HealthPort int `yaml:"health_port"`
	GRPCPort   int `yaml:"grpc_port"` // 0 disables gRPC health
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// AsaasConfig selects the edge function that proxies the payment provider.
type AsaasConfig struct {
	Function string `yaml:"function"`
}

// SessionConfig selects where encrypted session records live.
type SessionConfig struct {
	Backend    string        `yaml:"backend"` // memory, redis, sqlite
	Path       string        `yaml:"path"`    // sqlite file
	Key        string        `yaml:"key"`
	TTL        time.Duration `yaml:"ttl"`
	PruneEvery time.Duration `yaml:"prune_every"`
}

// CacheConfig holds the cache sweep interval.
type CacheConfig struct {
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// EventsConfig selects the event sink.
type EventsConfig struct {
	Sink  string             `yaml:"sink"` // log, kafka
	Kafka events.KafkaConfig `yaml:"kafka"`
}
