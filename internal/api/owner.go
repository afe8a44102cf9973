package api

import (
	"context"
	"net/http"

	"github.com/vietddude/tema/internal/apperr"
	"github.com/vietddude/tema/internal/auth"
	"github.com/vietddude/tema/internal/core/domain"
)

// UserDirectory maps backend user ids to their beneficiary record.
type UserDirectory interface {
	BeneficiaryByUserID(ctx context.Context, userID string) (*domain.Beneficiary, error)
}

var errNotOwner = &apperr.AppError{Kind: apperr.KindForbidden, Message: apperr.KindForbidden.Message()}

// requireOwner checks that userID belongs to the bearer. A row not yet linked to the
// telehealth provider is matched on the CPF of the bearer's session.
func (h *Handler) requireOwner(r *http.Request, userID string) error {
	ctx := r.Context()
	bearer := auth.BeneficiaryFrom(ctx)
	if bearer == "" {
		return errNotOwner
	}

	b, err := h.users.BeneficiaryByUserID(ctx, userID)
	if err != nil {
		if apperr.Classify(err) == apperr.KindNotFound {
			return errNotOwner
		}
		return err
	}
	if b.UUID != "" {
		if b.UUID == bearer {
			return nil
		}
		return errNotOwner
	}

	sess, err := h.auth.CurrentSession(ctx, bearer)
	if err != nil {
		return errNotOwner
	}
	if cpf := domain.NormalizeCPF(b.CPF); cpf != "" && cpf == sess.CPF {
		return nil
	}
	return errNotOwner
}

