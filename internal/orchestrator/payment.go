package orchestrator

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/tema/internal/apperr"
	"github.com/vietddude/tema/internal/core/domain"
	"github.com/vietddude/tema/internal/events"
	"github.com/vietddude/tema/internal/infra/asaas"
	"github.com/vietddude/tema/internal/notify"
	"github.com/vietddude/tema/internal/resilience/cache"
	"github.com/vietddude/tema/internal/resilience/recovery"
)

const (
	labelCustomer = "Asaas cliente"
	labelCharge   = "Asaas cobrança"
	labelPix      = "Asaas PIX"
	labelReceipt  = "Recibo"
)

// PaymentData is returned by ProcessPayment.
type PaymentData struct {
	Customer *domain.Customer `json:"customer,omitempty"`
	Payment  *domain.Payment  `json:"payment,omitempty"`
}

func (o *Orchestrator) validatePayment(ctx context.Context, req *domain.PaymentRequest) error {
	if !req.BillingType.Valid() {
		return apperr.Validation("billing_type", "must be PIX, CREDIT_CARD or BOLETO")
	}
	if len(domain.NormalizeCPF(req.CPF)) != 11 {
		return apperr.Validation("cpf", "must have 11 digits")
	}
	if req.BillingType == domain.BillingCreditCard && req.CreditCard == nil {
		return apperr.Validation("credit_card", "required for CREDIT_CARD billing")
	}
	if req.Value <= 0 && req.PlanID != "" {
		res := recovery.Execute(ctx, o.recovery,
			func(ctx context.Context) (*domain.Plan, error) {
				return o.store.Plan(ctx, req.PlanID)
			}, nil,
			recovery.WithName("supabase.plan"),
			recovery.WithoutQueue(),
			recovery.WithCache(cache.Key("plan", req.PlanID), PlanTTL),
		)
		if !res.Success {
			return res.Err
		}
		req.Value = res.Data.Price
		if req.Cycle == "" {
			req.Cycle = res.Data.Cycle
		}
		if req.Description == "" {
			req.Description = res.Data.Name
		}
	}
	if req.Value <= 0 {
		return apperr.Validation("value", "must be positive")
	}
	if req.DueDate == "" {
		req.DueDate = o.now().AddDate(0, 0, 3).Format(time.DateOnly)
	}
	return nil
}

// ProcessPayment charges the user at the payment provider, then records the subscription
// and emails a receipt. Only the payment-provider steps decide success.
func (o *Orchestrator) ProcessPayment(ctx context.Context, req domain.PaymentRequest) (r Result[*PaymentData]) {
	defer finish(o, "process_payment", &r, requireAll)

	if err := o.validatePayment(ctx, &req); err != nil {
		fail(o, &r, err, "payment.validate")
		return r
	}
	data := &PaymentData{}
	r.Data = data

	var stored *domain.Beneficiary
	if req.UserID != "" {
		if b, err := o.store.BeneficiaryByUserID(ctx, req.UserID); err == nil {
			stored = b
		}
	}

	if stored != nil && stored.AsaasCustomerID != "" {
		data.Customer = &domain.Customer{ID: stored.AsaasCustomerID, Name: req.Name, CPFCNPJ: req.CPF, Email: req.Email}
	} else {
		cust, err := call(ctx, o, func(ctx context.Context) (*domain.Customer, error) {
			return o.payments.EnsureCustomer(ctx, domain.Customer{
				Name:    req.Name,
				CPFCNPJ: req.CPF,
				Email:   req.Email,
				Phone:   req.Phone,
			})
		})
		r.primary(o.outcome(domain.ServiceAsaas, labelCustomer, err))
		if err != nil {
			return r
		}
		data.Customer = cust
	}

	charge := asaas.ChargeInput{
		Customer:          data.Customer.ID,
		BillingType:       req.BillingType,
		Value:             req.Value,
		DueDate:           req.DueDate,
		Cycle:             req.Cycle,
		Description:       req.Description,
		ExternalReference: uuid.NewString(),
		CreditCard:        req.CreditCard,
	}
	payment, err := call(ctx, o, func(ctx context.Context) (*domain.Payment, error) {
		if charge.Cycle != "" {
			return o.payments.CreateSubscription(ctx, charge)
		}
		return o.payments.CreatePayment(ctx, charge)
	})
	chargeOutcome := o.outcome(domain.ServiceAsaas, labelCharge, err)
	r.primary(chargeOutcome)
	if err != nil {
		o.notifyPaymentFailed(ctx, &r, req, chargeOutcome.Err.Message)
		return r
	}
	data.Payment = payment

	if req.BillingType == domain.BillingPIX && payment.Pix == nil && payment.ID != "" {
		qr, err := call(ctx, o, func(ctx context.Context) (*domain.PixQRCode, error) {
			return o.payments.PixQRCode(ctx, payment.ID)
		})
		r.secondary(o.outcome(domain.ServiceAsaas, labelPix, err))
		if err == nil {
			payment.Pix = qr
		}
	}

	if stored != nil && stored.AsaasCustomerID != data.Customer.ID {
		stored.AsaasCustomerID = data.Customer.ID
		err := o.record(ctx, "supabase.beneficiary", func(ctx context.Context) error {
			return o.store.UpsertBeneficiary(ctx, stored)
		})
		r.secondary(o.outcome(domain.ServiceSupabase, labelWriteBack, err))
	}

	if req.UserID != "" {
		rec := &domain.SubscriptionRecord{
			UserID:      req.UserID,
			PlanID:      req.PlanID,
			ExternalID:  firstNonEmpty(payment.SubscriptionID, payment.ID),
			BillingType: req.BillingType,
			Cycle:       req.Cycle,
			Value:       req.Value,
			Status:      payment.Status,
			CreatedAt:   o.now().UTC(),
		}
		err := o.record(ctx, "supabase.subscription", func(ctx context.Context) error {
			return o.store.InsertSubscription(ctx, rec)
		})
		r.secondary(o.outcome(domain.ServiceSupabase, labelSubscription, err))

		o.sendReceipt(ctx, &r, req, payment)
	}

	o.emit(ctx, events.New(events.PaymentProcessed, req.UserID, true, map[string]any{
		"payment_id":   payment.ID,
		"billing_type": string(req.BillingType),
		"value":        req.Value,
		"subscription": payment.SubscriptionID != "",
	}))
	return r
}

func (o *Orchestrator) sendReceipt(ctx context.Context, r *Result[*PaymentData], req domain.PaymentRequest, p *domain.Payment) {
	pdf, err := notify.RenderReceipt(notify.Receipt{
		PaymentID:   p.ID,
		Name:        req.Name,
		CPF:         req.CPF,
		Description: req.Description,
		Value:       req.Value,
		BillingType: req.BillingType,
		DueDate:     p.DueDate,
		InvoiceURL:  p.InvoiceURL,
		Pix:         p.Pix,
		IssuedAt:    o.now(),
	})
	var attachments []domain.Attachment
	if err != nil {
		r.secondary(o.outcome(domain.ServiceResend, labelReceipt, err))
	} else {
		attachments = append(attachments, domain.Attachment{Filename: "recibo-" + p.ID + ".pdf", Content: pdf})
	}
	if p.Pix != nil && p.Pix.EncodedImage != "" {
		if img, err := base64.StdEncoding.DecodeString(p.Pix.EncodedImage); err == nil {
			attachments = append(attachments, domain.Attachment{Filename: "pix.png", Content: img})
		}
	}

	notifyBestEffort(ctx, o, r, req.UserID, domain.TemplatePaymentConfirmed, map[string]string{
		"name":         req.Name,
		"value":        notify.FormatBRL(req.Value),
		"billing_type": string(req.BillingType),
		"invoice_url":  p.InvoiceURL,
	}, attachments)
}

func (o *Orchestrator) notifyPaymentFailed(ctx context.Context, r *Result[*PaymentData], req domain.PaymentRequest, reason string) {
	if req.UserID == "" {
		return
	}
	notifyBestEffort(ctx, o, r, req.UserID, domain.TemplatePaymentFailed,
		map[string]string{"name": req.Name, "reason": reason}, nil)
}
