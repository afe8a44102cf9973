package orchestrator

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/vietddude/tema/internal/apperr"
	"github.com/vietddude/tema/internal/core/domain"
	"github.com/vietddude/tema/internal/events"
)

// SyncUserData reconciles the beneficiary stored in the datastore with the telehealth and
// payment providers, creating missing remote records. It succeeds when at least one
// provider synced.
func (o *Orchestrator) SyncUserData(ctx context.Context, userID string) (r Result[*domain.Beneficiary]) {
	defer finish(o, "sync_user_data", &r, requireAny)

	b, err := o.store.BeneficiaryByUserID(ctx, userID)
	if err != nil {
		fail(o, &r, err, "sync.load_beneficiary")
		return r
	}
	r.Data = b

	var (
		mu         sync.Mutex
		rapidocID  = b.UUID
		customerID = b.AsaasCustomerID
		rapidocOut Outcome
		asaasOut   Outcome
	)

	// Each step records its own outcome; the group never short-circuits.
	var g errgroup.Group
	g.Go(func() error {
		id, err := o.syncTelehealth(ctx, b)
		mu.Lock()
		defer mu.Unlock()
		rapidocOut = o.outcome(domain.ServiceRapidoc, labelRapidocSync, err)
		if err == nil {
			rapidocID = id
		}
		return nil
	})
	g.Go(func() error {
		id, err := o.syncPayments(ctx, b)
		mu.Lock()
		defer mu.Unlock()
		asaasOut = o.outcome(domain.ServiceAsaas, labelAsaasSync, err)
		if err == nil {
			customerID = id
		}
		return nil
	})
	_ = g.Wait()

	r.primary(rapidocOut)
	r.primary(asaasOut)

	if rapidocID != b.UUID || customerID != b.AsaasCustomerID {
		updated := *b
		updated.UUID = rapidocID
		updated.AsaasCustomerID = customerID
		err := o.record(ctx, "supabase.beneficiary", func(ctx context.Context) error {
			return o.store.UpsertBeneficiary(ctx, &updated)
		})
		r.secondary(o.outcome(domain.ServiceSupabase, labelWriteBack, err))
		if err == nil {
			r.Data = &updated
		}
	}
	if rapidocID != "" && b.CPF != "" {
		o.cache.Set(identityKey(b.CPF), rapidocID, IdentityTTL)
	}

	o.emit(ctx, events.New(events.UserSynced, userID, rapidocOut.OK() || asaasOut.OK(), map[string]any{
		"rapidoc": rapidocOut.OK(),
		"asaas":   asaasOut.OK(),
	}))
	return r
}

// syncTelehealth pushes contact data to an existing beneficiary or enrolls a new one.
func (o *Orchestrator) syncTelehealth(ctx context.Context, b *domain.Beneficiary) (string, error) {
	return call(ctx, o, func(ctx context.Context) (string, error) {
		if b.UUID != "" {
			return b.UUID, o.telehealth.UpdateBeneficiary(ctx, b.UUID, b)
		}
		found, err := o.telehealth.FindBeneficiaryByCPF(ctx, b.CPF)
		if err == nil {
			return found.UUID, nil
		}
		if apperr.Classify(err) != apperr.KindNotFound {
			return "", err
		}
		created, err := o.telehealth.CreateBeneficiary(ctx, b)
		if err != nil {
			return "", err
		}
		return created.UUID, nil
	})
}

func (o *Orchestrator) syncPayments(ctx context.Context, b *domain.Beneficiary) (string, error) {
	if b.AsaasCustomerID != "" {
		return b.AsaasCustomerID, nil
	}
	return call(ctx, o, func(ctx context.Context) (string, error) {
		c, err := o.payments.EnsureCustomer(ctx, domain.Customer{
			Name:    b.Name,
			CPFCNPJ: b.CPF,
			Email:   b.Email,
			Phone:   b.Phone,
		})
		if err != nil {
			return "", err
		}
		return c.ID, nil
	})
}
