// Package recovery composes retry, cache and the offline queue around collaborator calls.
package recovery

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/tema/internal/apperr"
	"github.com/vietddude/tema/internal/metrics"
	"github.com/vietddude/tema/internal/resilience/cache"
	"github.com/vietddude/tema/internal/resilience/retry"
)

// Config holds recovery settings.
type Config struct {
	Retry       retry.Config  `yaml:"retry"`
	OfflineMode bool          `yaml:"offline_mode"`
	QueueLimit  int           `yaml:"queue_limit"`
	QueueMaxAge time.Duration `yaml:"queue_max_age"`
}

// Service wraps operations with retry, stale-cache reads, fallbacks and offline queueing.
type Service struct {
	cfg        Config
	cache      *cache.Cache
	queue      *Queue
	classifier *apperr.Classifier
	log        *slog.Logger
}

// NewService creates a recovery service over an explicitly owned cache.
func NewService(cfg Config, c *cache.Cache, classifier *apperr.Classifier) *Service {
	cfg.Retry = cfg.Retry.WithDefaults()
	return &Service{
		cfg:        cfg,
		cache:      c,
		queue:      NewQueue(cfg.QueueLimit, cfg.QueueMaxAge),
		classifier: classifier,
		log:        slog.Default().With("component", "recovery"),
	}
}

// Cache returns the cache used for stale reads.
func (s *Service) Cache() *cache.Cache { return s.cache }

// Queue returns the offline queue.
func (s *Service) Queue() *Queue { return s.queue }

// RetryConfig returns the retry policy applied to primary operations.
func (s *Service) RetryConfig() retry.Config { return s.cfg.Retry }

// Result is the outcome of Execute.
type Result[T any] struct {
	Success   bool
	Data      T
	FromCache bool
	Err       *apperr.AppError
}

type execOptions struct {
	name     string
	cacheKey string
	cacheTTL time.Duration
	noQueue  bool
}

// Option configures one Execute call.
type Option func(*execOptions)

// WithCache stores successful results under key and serves them when the operation fails.
func WithCache(key string, ttl time.Duration) Option {
	return func(o *execOptions) {
		o.cacheKey = key
		o.cacheTTL = ttl
	}
}

// WithName labels the call in logs and in the offline queue.
func WithName(name string) Option {
	return func(o *execOptions) { o.name = name }
}

// WithoutQueue keeps a failed call out of the offline queue. Use it for reads, whose replay
// would only refresh the cache and take a slot from a pending write.
func WithoutQueue() Option {
	return func(o *execOptions) { o.noQueue = true }
}

// Execute runs operation and recovers in order: cached value, fallback, offline queue.
// fallback may be nil.
func Execute[T any](
	ctx context.Context,
	s *Service,
	operation func(ctx context.Context) (T, error),
	fallback func(ctx context.Context) (T, error),
	opts ...Option,
) Result[T] {
	o := execOptions{name: "operation", cacheTTL: 5 * time.Minute}
	for _, opt := range opts {
		opt(&o)
	}

	data, err := retry.Do(ctx, s.cfg.Retry, operation)
	if err == nil {
		if o.cacheKey != "" {
			s.cache.Set(o.cacheKey, data, o.cacheTTL)
		}
		metrics.RecoveryOutcomes.WithLabelValues("primary").Inc()
		return Result[T]{Success: true, Data: data}
	}
	s.log.Warn("Operation failed after retries", "name", o.name, "error", err)

	if o.cacheKey != "" {
		if cached, ok := cache.Get[T](s.cache, o.cacheKey); ok {
			s.log.Info("Serving cached value", "name", o.name, "key", o.cacheKey)
			metrics.RecoveryOutcomes.WithLabelValues("cache").Inc()
			return Result[T]{Success: true, Data: cached, FromCache: true}
		}
	}

	if fallback != nil {
		fbData, fbErr := fallback(ctx)
		if fbErr == nil {
			metrics.RecoveryOutcomes.WithLabelValues("fallback").Inc()
			return Result[T]{Success: true, Data: fbData}
		}
		s.log.Warn("Fallback failed", "name", o.name, "error", fbErr)
	}

	if s.cfg.OfflineMode && !o.noQueue {
		s.queue.Push(&Item{
			Name:      o.name,
			Operation: deferred(s, operation, o),
			Fallback:  discard(fallback),
		})
		metrics.RecoveryOutcomes.WithLabelValues("queued").Inc()
	} else {
		metrics.RecoveryOutcomes.WithLabelValues("failed").Inc()
	}

	return Result[T]{Err: s.classifier.Handle(err, o.name)}
}

// deferred re-runs operation once per drain and refreshes the cache on success.
func deferred[T any](s *Service, op func(ctx context.Context) (T, error), o execOptions) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		if o.cacheKey != "" {
			s.cache.Set(o.cacheKey, v, o.cacheTTL)
		}
		return nil
	}
}

func discard[T any](fn func(ctx context.Context) (T, error)) func(ctx context.Context) error {
	if fn == nil {
		return nil
	}
	return func(ctx context.Context) error {
		_, err := fn(ctx)
		return err
	}
}

// ProcessOfflineQueue drains the queue. It is the only draining path.
func (s *Service) ProcessOfflineQueue(ctx context.Context) QueueStats {
	stats := s.queue.Drain(ctx)
	if stats.Processed > 0 {
		s.log.Info("Offline queue processed",
			"processed", stats.Processed,
			"successful", stats.Successful,
			"failed", stats.Failed,
			"remaining", s.queue.Len(),
		)
	}
	return stats
}
