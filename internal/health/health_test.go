package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/vietddude/tema/internal/core/domain"
	"github.com/vietddude/tema/internal/resilience/recovery"
)

type stubProber struct {
	err   error
	delay time.Duration
	panic bool
	calls atomic.Int32
}

func (s *stubProber) Ping(ctx context.Context) error {
	s.calls.Add(1)
	if s.panic {
		panic("boom")
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return s.err
}

func probes(rapidoc, supabase, asaas, resend *stubProber) map[domain.Service]recovery.Prober {
	return map[domain.Service]recovery.Prober{
		domain.ServiceRapidoc:  rapidoc,
		domain.ServiceSupabase: supabase,
		domain.ServiceAsaas:    asaas,
		domain.ServiceResend:   resend,
	}
}

func TestCheckHealth_AllHealthy(t *testing.T) {
	m := NewMonitor(probes(&stubProber{}, &stubProber{}, &stubProber{}, &stubProber{}), Config{})

	r := m.CheckHealth(context.Background())
	if r.Overall != StatusHealthy {
		t.Errorf("expected healthy, got %s", r.Overall)
	}
	if len(r.Services) != 4 {
		t.Errorf("expected 4 services, got %d", len(r.Services))
	}
}

func TestCheckHealth_OneDownIsDegraded(t *testing.T) {
	m := NewMonitor(probes(&stubProber{err: errors.New("dial tcp: refused")}, &stubProber{}, &stubProber{}, &stubProber{}), Config{})

	r := m.CheckHealth(context.Background())
	if r.Overall != StatusDegraded {
		t.Errorf("expected degraded, got %s", r.Overall)
	}
	rd := r.Services[domain.ServiceRapidoc]
	if rd.Status != StatusDown {
		t.Errorf("expected rapidoc down, got %s", rd.Status)
	}
	if rd.Error == "" {
		t.Error("expected probe error to be recorded")
	}
}

func TestCheckHealth_ConcurrentMissesShareOneRound(t *testing.T) {
	rd := &stubProber{delay: 50 * time.Millisecond}
	m := NewMonitor(probes(rd, &stubProber{}, &stubProber{}, &stubProber{}), Config{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r := m.CheckHealth(context.Background()); r.Overall != StatusHealthy {
				t.Errorf("expected healthy, got %s", r.Overall)
			}
		}()
	}
	wg.Wait()

	if n := rd.calls.Load(); n != 1 {
		t.Errorf("expected 1 probe round, got %d", n)
	}
}

func TestCheckHealth_PanicIsIsolated(t *testing.T) {
	boom := errors.New("down")
	m := NewMonitor(probes(&stubProber{panic: true}, &stubProber{err: boom}, &stubProber{err: boom}, &stubProber{}), Config{})

	r := m.CheckHealth(context.Background())
	if r.Services[domain.ServiceRapidoc].Status != StatusDown {
		t.Errorf("expected panicking probe to be down, got %s", r.Services[domain.ServiceRapidoc].Status)
	}
	if r.Services[domain.ServiceResend].Status != StatusHealthy {
		t.Errorf("expected resend healthy, got %s", r.Services[domain.ServiceResend].Status)
	}
	if r.Overall != StatusDown {
		t.Errorf("expected down with 1 of 4 healthy, got %s", r.Overall)
	}
}

func TestCheckHealth_SlowProbeIsDegraded(t *testing.T) {
	m := NewMonitor(probes(&stubProber{delay: 20 * time.Millisecond}, &stubProber{}, &stubProber{}, &stubProber{}), Config{SlowThreshold: 5 * time.Millisecond})

	r := m.CheckHealth(context.Background())
	if r.Services[domain.ServiceRapidoc].Status != StatusDegraded {
		t.Errorf("expected degraded, got %s", r.Services[domain.ServiceRapidoc].Status)
	}
	if r.Overall != StatusDegraded {
		t.Errorf("expected overall degraded, got %s", r.Overall)
	}
}

func TestCheckHealth_CachedWithinTTL(t *testing.T) {
	p := &stubProber{}
	m := NewMonitor(probes(p, &stubProber{}, &stubProber{}, &stubProber{}), Config{})
	now := time.Now()
	m.now = func() time.Time { return now }

	m.CheckHealth(context.Background())
	m.CheckHealth(context.Background())
	if got := p.calls.Load(); got != 1 {
		t.Errorf("expected 1 probe within TTL, got %d", got)
	}

	now = now.Add(3 * time.Minute)
	m.CheckHealth(context.Background())
	if got := p.calls.Load(); got != 2 {
		t.Errorf("expected re-probe after TTL, got %d", got)
	}

	m.Invalidate()
	m.CheckHealth(context.Background())
	if got := p.calls.Load(); got != 3 {
		t.Errorf("expected re-probe after Invalidate, got %d", got)
	}
}

func TestAggregate(t *testing.T) {
	mk := func(sts ...Status) map[domain.Service]ServiceHealth {
		out := map[domain.Service]ServiceHealth{}
		for i, st := range sts {
			out[domain.AllServices[i]] = ServiceHealth{Status: st}
		}
		return out
	}
	tests := []struct {
		name string
		in   map[domain.Service]ServiceHealth
		want Status
	}{
		{"all healthy", mk(StatusHealthy, StatusHealthy, StatusHealthy, StatusHealthy), StatusHealthy},
		{"half healthy", mk(StatusHealthy, StatusHealthy, StatusDown, StatusDegraded), StatusDegraded},
		{"one healthy", mk(StatusHealthy, StatusDown, StatusDown, StatusDown), StatusDown},
		{"empty", mk(), StatusDown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Aggregate(tt.in); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestServer_HTTPAndGRPC(t *testing.T) {
	boom := errors.New("down")
	m := NewMonitor(probes(&stubProber{err: boom}, &stubProber{err: boom}, &stubProber{err: boom}, &stubProber{}), Config{})
	s := NewServer(m, 0, 0)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
	var body map[string]string
	json.NewDecoder(rec.Body).Decode(&body)
	if body["status"] != string(StatusDown) {
		t.Errorf("expected down, got %q", body["status"])
	}

	resp, err := s.HealthServer().Check(context.Background(), &healthpb.HealthCheckRequest{Service: string(domain.ServiceResend)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("expected resend SERVING, got %s", resp.Status)
	}
	resp, _ = s.HealthServer().Check(context.Background(), &healthpb.HealthCheckRequest{Service: ""})
	if resp.Status != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("expected overall NOT_SERVING, got %s", resp.Status)
	}
}
