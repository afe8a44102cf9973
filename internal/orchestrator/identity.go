package orchestrator

import (
	"context"

	"github.com/vietddude/tema/internal/apperr"
	"github.com/vietddude/tema/internal/core/domain"
	"github.com/vietddude/tema/internal/resilience/cache"
	"github.com/vietddude/tema/internal/resilience/recovery"
)

func identityKey(cpf string) string {
	return cache.Key("beneficiary:uuid", domain.NormalizeCPF(cpf))
}

// resolveBeneficiaryUUID finds the telehealth UUID in order: explicit value, identity
// cache, datastore row, remote lookup by CPF.
func (o *Orchestrator) resolveBeneficiaryUUID(ctx context.Context, userID, cpf, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if cpf != "" {
		if uuid, ok := cache.Get[string](o.cache, identityKey(cpf)); ok {
			return uuid, nil
		}
	}

	if userID != "" {
		b, err := o.store.BeneficiaryByUserID(ctx, userID)
		switch {
		case err == nil && b.UUID != "":
			o.cache.Set(identityKey(b.CPF), b.UUID, IdentityTTL)
			return b.UUID, nil
		case err == nil:
			cpf = firstNonEmpty(cpf, b.CPF)
		case apperr.Classify(err) != apperr.KindNotFound:
			o.log.Warn("Datastore lookup failed, trying telehealth provider", "user", userID, "error", err)
		}
	}

	if domain.NormalizeCPF(cpf) == "" {
		return "", apperr.Validation("cpf", "required to resolve beneficiary")
	}

	res := recovery.Execute(ctx, o.recovery,
		func(ctx context.Context) (string, error) {
			b, err := o.telehealth.FindBeneficiaryByCPF(ctx, cpf)
			if err != nil {
				return "", err
			}
			return b.UUID, nil
		}, nil,
		recovery.WithName("rapidoc.find_beneficiary"),
		recovery.WithoutQueue(),
		recovery.WithCache(identityKey(cpf), IdentityTTL),
	)
	if !res.Success {
		return "", res.Err
	}
	return res.Data, nil
}

// loadProfile reads contact data, serving a recent copy when the datastore is down.
func (o *Orchestrator) loadProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	res := recovery.Execute(ctx, o.recovery,
		func(ctx context.Context) (*domain.Profile, error) {
			return o.store.ProfileByUserID(ctx, userID)
		}, nil,
		recovery.WithName("supabase.profile"),
		recovery.WithoutQueue(),
		recovery.WithCache(cache.Key("profile", userID), ProfileTTL),
	)
	if !res.Success {
		return nil, res.Err
	}
	return res.Data, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
