// Package realtime keeps health, connectivity, queue draining and periodic user sync
// running for the lifetime of a scope.
package realtime

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/vietddude/tema/internal/core/domain"
	"github.com/vietddude/tema/internal/health"
	"github.com/vietddude/tema/internal/orchestrator"
	"github.com/vietddude/tema/internal/resilience/recovery"
)

// Config holds the scope timers.
type Config struct {
	HealthInterval time.Duration `yaml:"health_interval"`
	SyncInterval   time.Duration `yaml:"sync_interval"`
	// Signals enables SIGUSR1 (foreground) and SIGUSR2 (retry now).
	Signals bool `yaml:"signals"`
}

func (c Config) withDefaults() Config {
	if c.HealthInterval <= 0 {
		c.HealthInterval = 2 * time.Minute
	}
	if c.SyncInterval <= 0 {
		c.SyncInterval = 5 * time.Minute
	}
	return c
}

// HealthChecker is the health monitor as seen by the scope.
type HealthChecker interface {
	CheckHealth(ctx context.Context) health.Report
	Invalidate()
}

// Drainer replays the offline queue.
type Drainer interface {
	ProcessOfflineQueue(ctx context.Context) recovery.QueueStats
	Queue() *recovery.Queue
}

// Syncer reconciles one user across collaborators.
type Syncer interface {
	SyncUserData(ctx context.Context, userID string) orchestrator.Result[*domain.Beneficiary]
}

// Locker serializes periodic sync of a user across instances.
type Locker interface {
	AcquireLock(ctx context.Context, name string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, name string) error
}

// Option configures a Scope.
type Option func(*Scope)

// WithLocker makes periodic sync skip users another instance is already syncing.
func WithLocker(l Locker) Option {
	return func(s *Scope) { s.locker = l }
}

// Snapshot is the state surfaced to callers.
type Snapshot struct {
	Health      *health.Report       `json:"health,omitempty"`
	Online      bool                 `json:"online"`
	QueueLength int                  `json:"queue_length"`
	Pending     []recovery.ItemInfo  `json:"pending,omitempty"`
	LastDrain   *recovery.QueueStats `json:"last_drain,omitempty"`
	LastDrainAt time.Time            `json:"last_drain_at,omitzero"`
	LastSyncAt  time.Time            `json:"last_sync_at,omitzero"`
	Tracked     []string             `json:"tracked,omitempty"`
}

// Scope owns the health and sync timers and the connectivity state.
type Scope struct {
	cfg      Config
	health   HealthChecker
	recovery Drainer
	syncer   Syncer
	locker   Locker

	mu          sync.Mutex
	online      bool
	report      *health.Report
	lastDrain   *recovery.QueueStats
	lastDrainAt time.Time
	lastSyncAt  time.Time
	tracked     map[string]struct{}

	drainMu sync.Mutex
	log     *slog.Logger
}

// New creates a scope. It starts online.
func New(cfg Config, h HealthChecker, r Drainer, s Syncer, opts ...Option) *Scope {
	sc := &Scope{
		cfg:      cfg.withDefaults(),
		health:   h,
		recovery: r,
		syncer:   s,
		online:   true,
		tracked:  make(map[string]struct{}),
		log:      slog.Default().With("component", "realtime"),
	}
	for _, opt := range opts {
		opt(sc)
	}
	return sc
}

// Handle stops a started scope.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Stop cancels the scope and waits until its goroutine has released every timer.
func (h *Handle) Stop() {
	h.once.Do(h.cancel)
	<-h.done
}

// Done is closed once the scope has stopped.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Start runs an initial health check and then the timers until ctx ends or Stop is called.
func (s *Scope) Start(ctx context.Context) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{cancel: cancel, done: make(chan struct{})}

	var sigs chan os.Signal
	if s.cfg.Signals {
		sigs = make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGUSR1, syscall.SIGUSR2)
	}

	go func() {
		defer close(h.done)
		healthTicker := time.NewTicker(s.cfg.HealthInterval)
		syncTicker := time.NewTicker(s.cfg.SyncInterval)
		defer healthTicker.Stop()
		defer syncTicker.Stop()
		if sigs != nil {
			defer signal.Stop(sigs)
		}

		s.applyHealth(ctx, s.health.CheckHealth(ctx))

		for {
			select {
			case <-ctx.Done():
				s.log.Debug("Scope stopped")
				return
			case <-healthTicker.C:
				s.applyHealth(ctx, s.health.CheckHealth(ctx))
			case <-syncTicker.C:
				s.syncTracked(ctx)
			case sig := <-sigs:
				if sig == syscall.SIGUSR2 {
					s.RetryNow(ctx)
				} else {
					s.Foreground(ctx)
				}
			}
		}
	}()
	return h
}

// Foreground forces a fresh health check, as on app resume.
func (s *Scope) Foreground(ctx context.Context) health.Report {
	s.health.Invalidate()
	r := s.health.CheckHealth(ctx)
	s.applyHealth(ctx, r)
	return r
}

func (s *Scope) applyHealth(ctx context.Context, r health.Report) {
	s.mu.Lock()
	s.report = &r
	s.mu.Unlock()
	s.SetConnectivity(ctx, r.Overall != health.StatusDown)
}

// SetConnectivity records the online flag and drains the offline queue on an
// offline to online transition. It returns the drain stats when a drain ran.
func (s *Scope) SetConnectivity(ctx context.Context, online bool) *recovery.QueueStats {
	s.mu.Lock()
	was := s.online
	s.online = online
	s.mu.Unlock()

	if was == online {
		return nil
	}
	s.log.Info("Connectivity changed", "online", online)
	if !online {
		return nil
	}
	st := s.RetryNow(ctx)
	return &st
}

// RetryNow drains the offline queue. Concurrent calls are serialized.
func (s *Scope) RetryNow(ctx context.Context) recovery.QueueStats {
	s.drainMu.Lock()
	defer s.drainMu.Unlock()

	st := s.recovery.ProcessOfflineQueue(ctx)

	s.mu.Lock()
	s.lastDrain = &st
	s.lastDrainAt = time.Now()
	s.mu.Unlock()
	return st
}

// Track adds a user to the periodic sync.
func (s *Scope) Track(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracked[userID] = struct{}{}
}

// Untrack removes a user from the periodic sync.
func (s *Scope) Untrack(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tracked, userID)
}

func (s *Scope) trackedIDs() []string {
	ids := make([]string, 0, len(s.tracked))
	for id := range s.tracked {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// syncTracked runs SyncUserData for every tracked user. Skipped while offline.
func (s *Scope) syncTracked(ctx context.Context) {
	s.mu.Lock()
	online := s.online
	ids := s.trackedIDs()
	s.mu.Unlock()

	if !online || len(ids) == 0 {
		return
	}
	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}
		s.syncOne(ctx, id)
	}

	s.mu.Lock()
	s.lastSyncAt = time.Now()
	s.mu.Unlock()
}

func (s *Scope) syncOne(ctx context.Context, id string) {
	if s.locker != nil {
		lock := "sync:" + id
		ok, err := s.locker.AcquireLock(ctx, lock, s.cfg.SyncInterval)
		if err != nil {
			s.log.Warn("Sync lock unavailable", "user", id, "error", err)
			return
		}
		if !ok {
			s.log.Debug("Sync held elsewhere", "user", id)
			return
		}
		defer func() {
			if err := s.locker.ReleaseLock(ctx, lock); err != nil {
				s.log.Warn("Failed to release sync lock", "user", id, "error", err)
			}
		}()
	}

	r := s.syncer.SyncUserData(ctx, id)
	if !r.Success {
		s.log.Warn("Periodic sync failed", "user", id, "errors", r.Errors())
	}
}

// Snapshot returns the current state.
func (s *Scope) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Health:      s.report,
		Online:      s.online,
		QueueLength: s.recovery.Queue().Len(),
		Pending:     s.recovery.Queue().Snapshot(),
		LastDrain:   s.lastDrain,
		LastDrainAt: s.lastDrainAt,
		LastSyncAt:  s.lastSyncAt,
		Tracked:     s.trackedIDs(),
	}
}
