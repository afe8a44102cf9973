package retry

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/vietddude/tema/internal/apperr"
	"github.com/vietddude/tema/internal/metrics"
)

// Config defines retry behavior.
type Config struct {
	MaxRetries        int           `yaml:"max_retries"`
	InitialDelay      time.Duration `yaml:"initial_delay"`
	MaxDelay          time.Duration `yaml:"max_delay"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
	RetryableStatuses []int         `yaml:"retryable_statuses"`
}

// DefaultConfig provides sensible defaults.
var DefaultConfig = Config{
	MaxRetries:        3,
	InitialDelay:      1 * time.Second,
	MaxDelay:          10 * time.Second,
	BackoffMultiplier: 2,
	RetryableStatuses: []int{408, 429, 500, 502, 503, 504},
}

// NoRetries disables retrying; fn runs exactly once.
const NoRetries = -1

// WithDefaults fills zero fields from DefaultConfig. A negative MaxRetries means no retries.
func (c Config) WithDefaults() Config {
	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultConfig.MaxRetries
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = DefaultConfig.InitialDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = DefaultConfig.MaxDelay
	}
	if c.BackoffMultiplier < 1 {
		c.BackoffMultiplier = DefaultConfig.BackoffMultiplier
	}
	if len(c.RetryableStatuses) == 0 {
		c.RetryableStatuses = DefaultConfig.RetryableStatuses
	}
	return c
}

var networkSignatures = []string{"network error", "timeout", "load failed"}

// IsRetryable decides whether err is worth another attempt.
func (c Config) IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var se *apperr.StatusError
	if errors.As(err, &se) {
		return slices.Contains(c.RetryableStatuses, se.Status)
	}

	msg := strings.ToLower(err.Error())
	for _, sig := range networkSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return apperr.IsNetwork(err) || apperr.IsTimeout(err)
}

// Do executes fn with exponential backoff. Non-retryable errors are returned immediately;
// after MaxRetries retries the last error is returned unchanged.
func Do[T any](ctx context.Context, cfg Config, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	cfg = cfg.WithDefaults()
	delay := cfg.InitialDelay

	for attempt := 0; ; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}

		if !cfg.IsRetryable(err) || attempt >= cfg.MaxRetries {
			return zero, err
		}
		if ctx.Err() != nil {
			return zero, err
		}

		slog.Debug("Retrying after failure", "attempt", attempt+1, "delay", delay, "error", err)
		metrics.RetryAttempts.Inc()

		select {
		case <-ctx.Done():
			return zero, err
		case <-time.After(delay):
		}

		delay = nextDelay(delay, cfg)
	}
}

func nextDelay(current time.Duration, cfg Config) time.Duration {
	next := time.Duration(float64(current) * cfg.BackoffMultiplier)
	if next > cfg.MaxDelay {
		return cfg.MaxDelay
	}
	return next
}
