package health

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/vietddude/tema/internal/core/domain"
	"github.com/vietddude/tema/internal/metrics"
	"github.com/vietddude/tema/internal/resilience/recovery"
)

// Config holds probe settings.
type Config struct {
	Interval      time.Duration `yaml:"interval"`
	CacheTTL      time.Duration `yaml:"cache_ttl"`
	ProbeTimeout  time.Duration `yaml:"probe_timeout"`
	SlowThreshold time.Duration `yaml:"slow_threshold"`
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = 2 * time.Minute
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 2 * time.Minute
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = recovery.DefaultProbeTimeout
	}
	if c.SlowThreshold <= 0 {
		c.SlowThreshold = 3 * time.Second
	}
	return c
}

// Monitor probes collaborators and caches the last report.
type Monitor struct {
	probes map[domain.Service]recovery.Prober
	cfg    Config

	mu        sync.Mutex
	last      *Report
	listeners []func(Report)
	flight    singleflight.Group

	now func() time.Time
	log *slog.Logger
}

// NewMonitor creates a new health monitor over one prober per collaborator.
func NewMonitor(probes map[domain.Service]recovery.Prober, cfg Config) *Monitor {
	return &Monitor{
		probes: probes,
		cfg:    cfg.withDefaults(),
		now:    time.Now,
		log:    slog.Default().With("component", "health"),
	}
}

// Interval is the configured background check period.
func (m *Monitor) Interval() time.Duration { return m.cfg.Interval }

// OnReport registers fn to be called after every fresh probe round.
func (m *Monitor) OnReport(fn func(Report)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// CheckHealth returns the cached report when it is younger than the cache TTL and
// otherwise probes every collaborator in parallel. Concurrent misses share one probe round.
func (m *Monitor) CheckHealth(ctx context.Context) Report {
	if r, ok := m.fresh(); ok {
		return r
	}
	v, _, _ := m.flight.Do("probe", func() (any, error) {
		// A round that finished after our miss already refreshed the cache.
		if r, ok := m.fresh(); ok {
			return r, nil
		}
		return m.refresh(ctx), nil
	})
	return v.(Report)
}

func (m *Monitor) fresh() (Report, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.last != nil && m.now().Sub(m.last.LastCheck) < m.cfg.CacheTTL {
		return *m.last, true
	}
	return Report{}, false
}

func (m *Monitor) refresh(ctx context.Context) Report {
	report := m.probe(ctx)

	m.mu.Lock()
	m.last = &report
	listeners := append([]func(Report){}, m.listeners...)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(report)
	}
	return report
}

// Last returns the most recent report, if any.
func (m *Monitor) Last() (Report, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.last == nil {
		return Report{}, false
	}
	return *m.last, true
}

// Invalidate forces the next CheckHealth to probe.
func (m *Monitor) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = nil
}

func (m *Monitor) probe(ctx context.Context) Report {
	var (
		mu       sync.Mutex
		services = make(map[domain.Service]ServiceHealth, len(m.probes))
	)

	var g errgroup.Group
	for svc, p := range m.probes {
		g.Go(func() error {
			h := m.probeOne(ctx, svc, p)
			mu.Lock()
			services[svc] = h
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	report := Report{
		Overall:   Aggregate(services),
		Services:  services,
		LastCheck: m.now(),
	}
	for svc, h := range services {
		metrics.ServiceHealth.WithLabelValues(string(svc)).Set(h.Status.gauge())
	}
	m.log.Debug("Health checked", "overall", report.Overall)
	return report
}

// probeOne runs a single probe. A panic or error marks the service down; a slow success
// marks it degraded.
func (m *Monitor) probeOne(ctx context.Context, svc domain.Service, p recovery.Prober) (h ServiceHealth) {
	h = ServiceHealth{Service: svc, Status: StatusDown, CheckedAt: m.now()}
	start := time.Now()

	defer func() {
		h.LatencyMs = time.Since(start).Milliseconds()
		if r := recover(); r != nil {
			h.Status = StatusDown
			h.Error = fmt.Sprintf("probe panic: %v", r)
			m.log.Error("Health probe panicked", "service", svc, "panic", r)
		}
	}()

	pctx, cancel := context.WithTimeout(ctx, m.cfg.ProbeTimeout)
	defer cancel()

	if err := p.Ping(pctx); err != nil {
		h.Error = err.Error()
		m.log.Warn("Health probe failed", "service", svc, "error", err)
		return h
	}
	h.Status = StatusHealthy
	if time.Since(start) > m.cfg.SlowThreshold {
		h.Status = StatusDegraded
	}
	return h
}

// Run checks health on the configured interval until ctx ends.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CheckHealth(ctx)
		}
	}
}
