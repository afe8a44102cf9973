package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/vietddude/tema/internal/api"
	"github.com/vietddude/tema/internal/apperr"
	"github.com/vietddude/tema/internal/auth"
	"github.com/vietddude/tema/internal/core/config"
	"github.com/vietddude/tema/internal/core/domain"
	"github.com/vietddude/tema/internal/events"
	"github.com/vietddude/tema/internal/health"
	"github.com/vietddude/tema/internal/infra/asaas"
	"github.com/vietddude/tema/internal/infra/httpx"
	"github.com/vietddude/tema/internal/infra/rapidoc"
	redisclient "github.com/vietddude/tema/internal/infra/redis"
	"github.com/vietddude/tema/internal/infra/resend"
	"github.com/vietddude/tema/internal/infra/sqlite"
	"github.com/vietddude/tema/internal/infra/supabase"
	"github.com/vietddude/tema/internal/orchestrator"
	"github.com/vietddude/tema/internal/realtime"
	"github.com/vietddude/tema/internal/resilience/cache"
	"github.com/vietddude/tema/internal/resilience/recovery"
	"github.com/vietddude/tema/internal/session"
)

// App is the composition root that owns every long-lived component.
type App struct {
	cfg *config.AppConfig

	Classifier   *apperr.Classifier
	Cache        *cache.Cache
	Recovery     *recovery.Service
	Rapidoc      *rapidoc.Client
	Functions    *supabase.Functions
	Asaas        *asaas.Client
	Mailer       resend.Sender
	Store        supabase.Datastore
	Auth         *auth.Service
	Orchestrator *orchestrator.Orchestrator
	Health       *health.Monitor
	Scope        *realtime.Scope

	resend       *resend.Client
	emitter      events.Emitter
	kv           session.KV
	sqliteKV     *sqlite.KV
	redisClient  *redisclient.Client
	healthServer *health.Server
	apiServer    *http.Server
	handle       *realtime.Handle
	log          *slog.Logger
}

// NewApp wires all components from cfg. Nothing listens until Start.
func NewApp(ctx context.Context, cfg *config.AppConfig) (app *App, err error) {
	a := &App{cfg: cfg, log: slog.Default()}
	defer func() {
		if err != nil {
			a.closeAll()
		}
	}()

	if cfg.Production() && (cfg.Session.Key == "" || cfg.Auth.JWTSecret == "") {
		return nil, errors.New("session.key and auth.jwt_secret are required in production")
	}

	// 1. Resilience
	a.Classifier = apperr.NewClassifier(cfg.Production(), slog.Default())
	a.Cache = cache.New()
	a.Recovery = recovery.NewService(cfg.Recovery, a.Cache, a.Classifier)

	// 2. Collaborators
	a.Rapidoc = rapidoc.New(cfg.Rapidoc)
	a.Functions = supabase.NewFunctions(cfg.Supabase)
	a.Asaas = asaas.New(a.Functions, cfg.Asaas.Function)
	a.resend = resend.New(cfg.Resend)
	a.Mailer = a.resend
	if cfg.SMTP.Enabled() {
		a.Mailer = resend.NewFallbackSender(a.resend, resend.NewSMTPSender(cfg.SMTP))
		a.log.Info("SMTP fallback enabled", "host", cfg.SMTP.Host)
	}

	// 3. Datastore
	if cfg.Supabase.Database.URL != "" {
		pg, err := supabase.NewPostgresStore(ctx, cfg.Supabase.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init datastore: %w", err)
		}
		a.Store = pg
		if err := pg.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("failed to migrate datastore: %w", err)
		}
		a.log.Info("Using PostgreSQL datastore")
	} else {
		a.Store = supabase.NewMemoryStore()
		a.log.Info("Using memory datastore")
	}

	// 4. Sessions
	if cfg.Redis.URL != "" {
		a.redisClient, err = redisclient.NewClient(cfg.Redis)
		if err != nil {
			if cfg.Session.Backend == "redis" {
				return nil, err
			}
			a.log.Warn("Failed to connect to Redis, sync locking disabled", "error", err)
			a.redisClient = nil
		}
	}
	switch cfg.Session.Backend {
	case "redis":
		a.kv = a.redisClient
	case "sqlite":
		a.sqliteKV, err = sqlite.Open(ctx, cfg.Session.Path)
		if err != nil {
			return nil, err
		}
		a.kv = a.sqliteKV
	default:
		a.kv = session.NewMemoryKV()
	}
	vault, err := session.NewVault(a.kv, session.DeriveKey(cfg.Session.Key))
	if err != nil {
		return nil, err
	}
	issuer, err := auth.NewIssuer(cfg.Auth)
	if err != nil {
		return nil, err
	}
	a.Auth = auth.NewService(a.Rapidoc, session.NewStore(vault, cfg.Session.TTL), issuer, a.Classifier,
		auth.WithRetry(a.Recovery.RetryConfig()))
	a.log.Info("Session store ready", "backend", cfg.Session.Backend)

	// 5. Events
	switch cfg.Events.Sink {
	case "kafka":
		k, err := events.NewKafkaEmitter(cfg.Events.Kafka)
		if err != nil {
			return nil, fmt.Errorf("failed to init kafka emitter: %w", err)
		}
		a.emitter = k
	default:
		a.emitter = events.NewLogEmitter(nil)
	}

	// 6. Orchestration
	a.Orchestrator = orchestrator.New(orchestrator.Deps{
		Telehealth: a.Rapidoc,
		Payments:   a.Asaas,
		Mailer:     a.Mailer,
		Store:      a.Store,
		Recovery:   a.Recovery,
		Classifier: a.Classifier,
		Emitter:    a.emitter,
	})

	// 7. Health and runtime scope
	a.Health = health.NewMonitor(a.Probes(), cfg.Health)
	a.healthServer = health.NewServer(a.Health, cfg.Server.HealthPort, cfg.Server.GRPCPort)

	var opts []realtime.Option
	if a.redisClient != nil {
		opts = append(opts, realtime.WithLocker(a.redisClient))
	}
	a.Scope = realtime.New(cfg.Realtime, a.Health, a.Recovery, a.Orchestrator, opts...)

	// 8. API
	handler := api.NewHandler(api.Deps{
		Orchestrator: a.Orchestrator,
		Auth:         a.Auth,
		Tokens:       issuer,
		Runtime:      a.Scope,
		Users:        a.Store,
		Classifier:   a.Classifier,
	})
	a.apiServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.NewRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// Probes returns one prober per collaborator.
func (a *App) Probes() map[domain.Service]recovery.Prober {
	return map[domain.Service]recovery.Prober{
		domain.ServiceRapidoc:  a.Rapidoc,
		domain.ServiceSupabase: a.Store,
		domain.ServiceAsaas:    a.Asaas,
		domain.ServiceResend:   a.resend,
	}
}

// Monitors returns the HTTP call statistics per collaborator.
func (a *App) Monitors() map[domain.Service]*httpx.Monitor {
	return map[domain.Service]*httpx.Monitor{
		domain.ServiceRapidoc: a.Rapidoc.Monitor(),
		domain.ServiceAsaas:   a.Functions.Monitor(),
		domain.ServiceResend:  a.resend.Monitor(),
	}
}

// Start starts the servers and background tasks. It does not block.
func (a *App) Start(ctx context.Context) error {
	go func() {
		if err := a.healthServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("Health server failed", "error", err)
		}
	}()
	go func() {
		a.log.Info("API listening", "addr", a.apiServer.Addr)
		if err := a.apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("API server failed", "error", err)
		}
	}()

	go a.Cache.Run(ctx, a.cfg.Cache.CleanupInterval)
	if a.sqliteKV != nil {
		go a.runPruner(ctx)
	}
	a.handle = a.Scope.Start(ctx)
	return nil
}

// runPruner removes expired session rows from the local file store.
func (a *App) runPruner(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.Session.PruneEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := a.sqliteKV.Prune(ctx)
			if err != nil {
				a.log.Warn("Session prune failed", "error", err)
				continue
			}
			if n > 0 {
				a.log.Debug("Pruned expired sessions", "count", n)
			}
		}
	}
}

// Stop stops everything Start started and releases connections.
func (a *App) Stop(ctx context.Context) error {
	a.log.Info("Stopping tema...")

	if a.handle != nil {
		a.handle.Stop()
	}
	var errs []error
	if err := a.apiServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("api server: %w", err))
	}
	if err := a.healthServer.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("health server: %w", err))
	}
	a.closeAll()
	return errors.Join(errs...)
}

type closer struct {
	name string
	fn   func() error
}

func (a *App) closeAll() {
	var closers []closer
	if a.emitter != nil {
		closers = append(closers, closer{"emitter", a.emitter.Close})
	}
	if a.Store != nil {
		closers = append(closers, closer{"datastore", a.Store.Close})
	}
	if a.kv != nil {
		closers = append(closers, closer{"session kv", a.kv.Close})
	}
	// With the redis backend the client was already closed as the session KV.
	if a.redisClient != nil && a.cfg.Session.Backend != "redis" {
		closers = append(closers, closer{"redis", a.redisClient.Close})
	}
	if a.Rapidoc != nil {
		closers = append(closers, closer{"rapidoc", a.Rapidoc.Close})
	}
	for _, c := range closers {
		if err := c.fn(); err != nil {
			a.log.Warn("Failed to close", "component", c.name, "error", err)
		}
	}
}
