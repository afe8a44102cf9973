package resend

import (
	"context"
	"errors"
	"log/slog"

	"github.com/vietddude/tema/internal/apperr"
	"github.com/vietddude/tema/internal/core/domain"
)

// FallbackSender tries primary and, on a recoverable or configuration failure, secondary.
type FallbackSender struct {
	primary   Sender
	secondary Sender
	log       *slog.Logger
}

// NewFallbackSender chains two senders. A nil secondary returns primary unchanged.
func NewFallbackSender(primary, secondary Sender) Sender {
	if secondary == nil {
		return primary
	}
	return &FallbackSender{
		primary:   primary,
		secondary: secondary,
		log:       slog.Default().With("component", "mailer"),
	}
}

func (f *FallbackSender) Send(ctx context.Context, email domain.Email) (string, error) {
	id, err := f.primary.Send(ctx, email)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, ErrNoAPIKey) {
		switch apperr.Classify(err) {
		case apperr.KindNetwork, apperr.KindTimeout, apperr.KindServer:
		default:
			return "", err
		}
	}
	f.log.Warn("Primary mailer failed, using SMTP", "error", err)
	id, fbErr := f.secondary.Send(ctx, email)
	if fbErr != nil {
		return "", errors.Join(err, fbErr)
	}
	return id, nil
}
