// Package supabase provides the datastore tables and edge-function RPC of the backend.
package supabase

import (
	"context"
	"net/http"

	"github.com/vietddude/tema/internal/apperr"
	"github.com/vietddude/tema/internal/core/domain"
)

// Datastore reads and writes the backend tables. Inserts are idempotent on the row id so a
// replayed write never fails on a row an earlier attempt already committed.
type Datastore interface {
	BeneficiaryByUserID(ctx context.Context, userID string) (*domain.Beneficiary, error)
	UpsertBeneficiary(ctx context.Context, b *domain.Beneficiary) error
	ProfileByUserID(ctx context.Context, userID string) (*domain.Profile, error)
	InsertConsultationLog(ctx context.Context, log *domain.ConsultationLog) error
	InsertNotification(ctx context.Context, n *domain.Notification) error
	Plan(ctx context.Context, id string) (*domain.Plan, error)
	InsertSubscription(ctx context.Context, s *domain.SubscriptionRecord) error
	Ping(ctx context.Context) error
	Close() error
}

func notFound(table string) error {
	return &apperr.StatusError{
		Service: string(domain.ServiceSupabase),
		Status:  http.StatusNotFound,
		Code:    "NOT_FOUND",
		Body:    table + ": no rows",
	}
}
