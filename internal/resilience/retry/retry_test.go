package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vietddude/tema/internal/apperr"
)

func fastConfig(maxRetries int) Config {
	cfg := DefaultConfig
	cfg.MaxRetries = maxRetries
	cfg.InitialDelay = time.Millisecond
	cfg.MaxDelay = 4 * time.Millisecond
	return cfg
}

func TestDo_RetryBound(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastConfig(2), func(ctx context.Context) (int, error) {
		calls++
		return 0, &apperr.StatusError{Service: "asaas", Status: 503}
	})

	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
	var se *apperr.StatusError
	if !errors.As(err, &se) || se.Status != 503 {
		t.Errorf("expected last 503 error to be returned, got %v", err)
	}
}

func TestDo_NonRetryableShortCircuit(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastConfig(3), func(ctx context.Context) (int, error) {
		calls++
		return 0, &apperr.StatusError{Service: "asaas", Status: 400}
	})

	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_SucceedsAfterNetworkError(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), fastConfig(3), func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("Network Error")
		}
		return "ok", nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" || calls != 3 {
		t.Errorf("expected ok after 3 calls, got %q after %d", got, calls)
	}
}

func TestDo_ContextCancelStopsBackoff(t *testing.T) {
	cfg := fastConfig(5)
	cfg.InitialDelay = time.Hour
	cfg.MaxDelay = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	calls := 0
	_, err := Do(ctx, cfg, func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.New("Load failed")
	})

	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call before cancellation, got %d", calls)
	}
}

func TestDo_PartialConfigUsesDefaults(t *testing.T) {
	calls := 0
	cfg := Config{MaxRetries: 2, InitialDelay: time.Millisecond}
	_, err := Do(context.Background(), cfg, func(ctx context.Context) (int, error) {
		calls++
		return 0, &apperr.StatusError{Service: "rapidoc", Status: 503}
	})

	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDo_NoRetries(t *testing.T) {
	calls := 0
	_, _ = Do(context.Background(), Config{MaxRetries: NoRetries}, func(ctx context.Context) (int, error) {
		calls++
		return 0, &apperr.StatusError{Service: "rapidoc", Status: 503}
	})

	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestWithDefaults_ZeroConfig(t *testing.T) {
	cfg := Config{}.WithDefaults()

	if cfg.MaxRetries != 3 {
		t.Errorf("expected 3 retries, got %d", cfg.MaxRetries)
	}
	if cfg.InitialDelay != time.Second || cfg.MaxDelay != 10*time.Second {
		t.Errorf("expected 1s/10s delays, got %v/%v", cfg.InitialDelay, cfg.MaxDelay)
	}
	if len(cfg.RetryableStatuses) != 6 {
		t.Errorf("expected 6 retryable statuses, got %d", len(cfg.RetryableStatuses))
	}
}

func TestNextDelay_Capped(t *testing.T) {
	cfg := Config{BackoffMultiplier: 2, MaxDelay: 10 * time.Second}

	if d := nextDelay(1*time.Second, cfg); d != 2*time.Second {
		t.Errorf("expected 2s, got %v", d)
	}
	if d := nextDelay(8*time.Second, cfg); d != 10*time.Second {
		t.Errorf("expected 10s cap, got %v", d)
	}
}

func TestIsRetryable(t *testing.T) {
	cfg := DefaultConfig
	tests := []struct {
		err    error
		expect bool
	}{
		{&apperr.StatusError{Status: 429}, true},
		{&apperr.StatusError{Status: 408}, true},
		{&apperr.StatusError{Status: 404}, false},
		{&apperr.StatusError{Status: 401}, false},
		{errors.New("request timeout"), true},
		{errors.New("Load failed"), true},
		{errors.New("invalid cpf"), false},
	}

	for _, tt := range tests {
		if got := cfg.IsRetryable(tt.err); got != tt.expect {
			t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.expect)
		}
	}
}
