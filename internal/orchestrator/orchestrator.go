// Package orchestrator coordinates the telehealth, payment, email and datastore
// collaborators for each user-facing action.
package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/tema/internal/apperr"
	"github.com/vietddude/tema/internal/core/domain"
	"github.com/vietddude/tema/internal/events"
	"github.com/vietddude/tema/internal/infra/asaas"
	"github.com/vietddude/tema/internal/infra/resend"
	"github.com/vietddude/tema/internal/infra/supabase"
	"github.com/vietddude/tema/internal/metrics"
	"github.com/vietddude/tema/internal/resilience/cache"
	"github.com/vietddude/tema/internal/resilience/recovery"
	"github.com/vietddude/tema/internal/resilience/retry"
)

const (
	IdentityTTL     = 24 * time.Hour
	AvailabilityTTL = 5 * time.Minute
	ProfileTTL      = 10 * time.Minute
	PlanTTL         = time.Hour
)

// Telehealth is the subset of the telehealth provider the orchestrator uses.
type Telehealth interface {
	FindBeneficiaryByCPF(ctx context.Context, cpf string) (*domain.Beneficiary, error)
	CreateBeneficiary(ctx context.Context, b *domain.Beneficiary) (*domain.Beneficiary, error)
	UpdateBeneficiary(ctx context.Context, uuid string, b *domain.Beneficiary) error
	RequestImmediate(ctx context.Context, beneficiaryUUID string) (*domain.Consultation, error)
	Availability(ctx context.Context, specialtyUUID, beneficiaryUUID, dateFrom, dateTo string) ([]domain.AvailabilitySlot, error)
	Schedule(ctx context.Context, req domain.AppointmentRequest) (*domain.Appointment, error)
	Cancel(ctx context.Context, appointmentUUID string) error
}

// Payments is the subset of the payment provider the orchestrator uses.
type Payments interface {
	EnsureCustomer(ctx context.Context, in domain.Customer) (*domain.Customer, error)
	CreatePayment(ctx context.Context, in asaas.ChargeInput) (*domain.Payment, error)
	CreateSubscription(ctx context.Context, in asaas.ChargeInput) (*domain.Payment, error)
	PixQRCode(ctx context.Context, paymentID string) (*domain.PixQRCode, error)
}

// Deps are the collaborators of an Orchestrator.
type Deps struct {
	Telehealth Telehealth
	Payments   Payments
	Mailer     resend.Sender
	Store      supabase.Datastore
	Recovery   *recovery.Service
	Classifier *apperr.Classifier
	Emitter    events.Emitter
}

// Orchestrator runs multi-collaborator actions.
type Orchestrator struct {
	telehealth Telehealth
	payments   Payments
	mailer     resend.Sender
	store      supabase.Datastore
	recovery   *recovery.Service
	cache      *cache.Cache
	classifier *apperr.Classifier
	emitter    events.Emitter
	log        *slog.Logger
	now        func() time.Time
}

// New creates an Orchestrator. A nil Emitter logs events.
func New(d Deps) *Orchestrator {
	if d.Emitter == nil {
		d.Emitter = events.NewLogEmitter(nil)
	}
	return &Orchestrator{
		telehealth: d.Telehealth,
		payments:   d.Payments,
		mailer:     d.Mailer,
		store:      d.Store,
		recovery:   d.Recovery,
		cache:      d.Recovery.Cache(),
		classifier: d.Classifier,
		emitter:    d.Emitter,
		log:        slog.Default().With("component", "orchestrator"),
		now:        time.Now,
	}
}

// outcome classifies err (nil means success) into a step outcome.
func (o *Orchestrator) outcome(system domain.Service, label string, err error) Outcome {
	out := Outcome{System: system, Label: label}
	if err != nil {
		out.Err = o.classifier.Handle(err, label)
	}
	return out
}

// call runs a mutation with the retry policy only. Mutations are never served from
// cache or queued: replaying them later could double-book or double-charge.
func call[T any](ctx context.Context, o *Orchestrator, fn func(ctx context.Context) (T, error)) (T, error) {
	return retry.Do(ctx, o.recovery.RetryConfig(), fn)
}

// record runs an idempotent bookkeeping write through the recovery service so it is
// queued for replay when offline.
func (o *Orchestrator) record(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	res := recovery.Execute(ctx, o.recovery, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	}, nil, recovery.WithName(name))
	if !res.Success {
		return res.Err
	}
	return nil
}

func (o *Orchestrator) emit(ctx context.Context, ev *events.Event) {
	if err := o.emitter.Emit(ctx, ev); err != nil {
		o.log.Warn("Failed to emit event", "type", ev.Type, "error", err)
	}
}

func finish[T any](o *Orchestrator, action string, r *Result[T], p policy) {
	r.settle(p)
	status := "success"
	if !r.Success {
		status = "failure"
	}
	metrics.Orchestrations.WithLabelValues(action, status).Inc()
	if w := r.Warnings(); len(w) > 0 {
		o.log.Warn("Action completed with warnings", "action", action, "success", r.Success, "warnings", w)
	}
	if !r.Success {
		o.log.Error("Action failed", "action", action, "errors", r.Errors())
	}
}

// fail sets a precondition error.
func fail[T any](o *Orchestrator, r *Result[T], err error, op string) {
	r.Err = o.classifier.Handle(err, op)
}
