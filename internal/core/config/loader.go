package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/vietddude/tema/internal/infra/asaas"
	"github.com/vietddude/tema/internal/resilience/cache"
	"github.com/vietddude/tema/internal/session"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) applyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.HealthPort == 0 {
		c.Server.HealthPort = 8081
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Asaas.Function == "" {
		c.Asaas.Function = asaas.DefaultFunction
	}
	if c.Session.Backend == "" {
		c.Session.Backend = "memory"
	}
	if c.Session.Path == "" {
		c.Session.Path = "tema-session.db"
	}
	if c.Session.TTL == 0 {
		c.Session.TTL = session.DefaultTTL
	}
	if c.Session.PruneEvery == 0 {
		c.Session.PruneEvery = time.Hour
	}
	if c.Cache.CleanupInterval == 0 {
		c.Cache.CleanupInterval = cache.DefaultCleanupInterval
	}
	if c.Events.Sink == "" {
		c.Events.Sink = "log"
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "tema:"
	}
	c.Recovery.Retry = c.Recovery.Retry.WithDefaults()
}

// Validate rejects combinations the service cannot start with.
func (c *AppConfig) Validate() error {
	switch c.Session.Backend {
	case "memory", "sqlite":
	case "redis":
		if c.Redis.URL == "" {
			return fmt.Errorf("session backend redis requires redis.url")
		}
	default:
		return fmt.Errorf("unknown session backend %q", c.Session.Backend)
	}
	switch c.Events.Sink {
	case "log":
	case "kafka":
		if len(c.Events.Kafka.Brokers) == 0 {
			return fmt.Errorf("events sink kafka requires events.kafka.brokers")
		}
	default:
		return fmt.Errorf("unknown events sink %q", c.Events.Sink)
	}
	if c.Rapidoc.BaseURL == "" {
		return fmt.Errorf("rapidoc.base_url is required")
	}
	if c.Supabase.URL == "" {
		return fmt.Errorf("supabase.url is required")
	}
	return nil
}
