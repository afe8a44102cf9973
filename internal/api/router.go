// Package api exposes the orchestrator, auth and runtime state over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vietddude/tema/internal/apperr"
	"github.com/vietddude/tema/internal/auth"
	"github.com/vietddude/tema/internal/core/domain"
	"github.com/vietddude/tema/internal/health"
	"github.com/vietddude/tema/internal/orchestrator"
	"github.com/vietddude/tema/internal/realtime"
	"github.com/vietddude/tema/internal/resilience/recovery"
)

// Orchestrator is the set of actions served by the API.
type Orchestrator interface {
	RequestConsultation(ctx context.Context, req domain.ConsultationRequest) orchestrator.Result[*domain.ConsultationBooking]
	CancelConsultation(ctx context.Context, userID, appointmentUUID string) orchestrator.Result[*domain.ConsultationBooking]
	ProcessPayment(ctx context.Context, req domain.PaymentRequest) orchestrator.Result[*orchestrator.PaymentData]
	SendNotification(ctx context.Context, userID string, channel domain.Channel, template domain.Template, data map[string]string) orchestrator.Result[*domain.Notification]
	SyncUserData(ctx context.Context, userID string) orchestrator.Result[*domain.Beneficiary]
}

// Authenticator handles login and session lifecycle.
type Authenticator interface {
	Login(ctx context.Context, cpf, password string) (*auth.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (domain.Tokens, error)
	Logout(ctx context.Context, beneficiaryUUID, refreshToken string) error
	CurrentSession(ctx context.Context, beneficiaryUUID string) (*domain.Session, error)
}

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	Parse(token, kind string) (*auth.Claims, error)
}

// Runtime is the realtime scope as seen by the API.
type Runtime interface {
	Foreground(ctx context.Context) health.Report
	SetConnectivity(ctx context.Context, online bool) *recovery.QueueStats
	RetryNow(ctx context.Context) recovery.QueueStats
	Track(userID string)
	Untrack(userID string)
	Snapshot() realtime.Snapshot
}

// Handler is the HTTP adapter.
type Handler struct {
	orch       Orchestrator
	auth       Authenticator
	tokens     TokenVerifier
	runtime    Runtime
	users      UserDirectory
	classifier *apperr.Classifier
	log        *slog.Logger
}

// Deps are the collaborators of a Handler.
type Deps struct {
	Orchestrator Orchestrator
	Auth         Authenticator
	Tokens       TokenVerifier
	Runtime      Runtime
	Users        UserDirectory
	Classifier   *apperr.Classifier
}

// NewHandler creates a Handler.
func NewHandler(d Deps) *Handler {
	return &Handler{
		orch:       d.Orchestrator,
		auth:       d.Auth,
		tokens:     d.Tokens,
		runtime:    d.Runtime,
		users:      d.Users,
		classifier: d.Classifier,
		log:        slog.Default().With("component", "api"),
	}
}

// NewRouter registers the API routes and middleware stack.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(h.recoverMiddleware)
	r.Use(h.loggingMiddleware)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/login", h.login)
		r.Post("/auth/refresh", h.refresh)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware)
			r.Post("/auth/logout", h.logout)
			r.Get("/auth/session", h.currentSession)

			r.Post("/consultations", h.requestConsultation)
			r.Delete("/consultations/{uuid}", h.cancelConsultation)
			r.Post("/payments", h.processPayment)
			r.Post("/notifications", h.sendNotification)
			r.Post("/users/{id}/sync", h.syncUser)
			r.Delete("/users/{id}/sync", h.untrackUser)

			r.Get("/status", h.status)
			r.Post("/queue/retry", h.retryQueue)
			r.Post("/app/foreground", h.foreground)
			r.Post("/app/connectivity", h.connectivity)
		})
	})

	return r
}
