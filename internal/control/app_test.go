package control

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/vietddude/tema/internal/core/config"
	"github.com/vietddude/tema/internal/infra/rapidoc"
	"github.com/vietddude/tema/internal/infra/supabase"
)

func testConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	cfg := &config.AppConfig{
		Environment: "development",
		Rapidoc:     rapidoc.Config{BaseURL: "http://127.0.0.1:1", Timeout: time.Second},
		Supabase:    supabase.Config{URL: "http://127.0.0.1:1", Timeout: time.Second},
	}
	cfg.Auth.JWTSecret = "test-secret-0123456789"
	cfg.Session.Backend = "memory"
	cfg.Events.Sink = "log"
	cfg.Cache.CleanupInterval = time.Minute
	return cfg
}

func TestApp_Lifecycle(t *testing.T) {
	app, err := NewApp(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	if len(app.Probes()) != 4 {
		t.Errorf("expected 4 probes, got %d", len(app.Probes()))
	}
	if _, ok := app.Store.(*supabase.MemoryStore); !ok {
		t.Errorf("expected memory datastore without database url, got %T", app.Store)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	if err := app.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}

func TestApp_SQLiteSessions(t *testing.T) {
	cfg := testConfig(t)
	cfg.Session.Backend = "sqlite"
	cfg.Session.Path = filepath.Join(t.TempDir(), "sessions.db")
	cfg.Session.PruneEvery = time.Hour

	app, err := NewApp(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	defer app.closeAll()

	if app.sqliteKV == nil {
		t.Error("expected sqlite session store")
	}
}

func TestApp_ProductionRequiresSecrets(t *testing.T) {
	cfg := testConfig(t)
	cfg.Environment = "production"

	if _, err := NewApp(context.Background(), cfg); err == nil {
		t.Error("expected error without session key in production")
	}
}

func TestApp_ShortJWTSecret(t *testing.T) {
	cfg := testConfig(t)
	cfg.Auth.JWTSecret = "short"

	if _, err := NewApp(context.Background(), cfg); err == nil {
		t.Error("expected error for short jwt secret")
	}
}
