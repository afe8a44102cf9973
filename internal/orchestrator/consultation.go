package orchestrator

import (
	"context"

	"github.com/vietddude/tema/internal/apperr"
	"github.com/vietddude/tema/internal/core/domain"
	"github.com/vietddude/tema/internal/events"
	"github.com/vietddude/tema/internal/resilience/cache"
	"github.com/vietddude/tema/internal/resilience/recovery"
)

const (
	labelImmediate    = "RapiDoc consulta imediata"
	labelAvailability = "RapiDoc disponibilidade"
	labelSchedule     = "RapiDoc agendamento"
	labelCancel       = "RapiDoc cancelamento"
)

func availabilityKey(specialtyUUID string) string {
	return cache.Key("specialty:availability", specialtyUUID)
}

// RequestConsultation books an immediate or scheduled consultation, then records it and
// notifies the user. Only the telehealth steps decide success.
func (o *Orchestrator) RequestConsultation(
	ctx context.Context,
	req domain.ConsultationRequest,
) (r Result[*domain.ConsultationBooking]) {
	defer finish(o, "request_consultation", &r, requireAll)

	if req.Kind == "" {
		req.Kind = domain.ConsultationImmediate
	}
	if req.Kind != domain.ConsultationImmediate && req.Kind != domain.ConsultationScheduled {
		fail(o, &r, apperr.Validation("kind", "must be immediate or scheduled"), "consultation.validate")
		return r
	}
	if req.Kind == domain.ConsultationScheduled && req.SpecialtyUUID == "" {
		fail(o, &r, apperr.Validation("specialty_uuid", "required for scheduled consultations"), "consultation.validate")
		return r
	}

	uuid, err := o.resolveBeneficiaryUUID(ctx, req.UserID, req.CPF, req.BeneficiaryUUID)
	if err != nil {
		fail(o, &r, err, "consultation.resolve_beneficiary")
		return r
	}
	booking := &domain.ConsultationBooking{Kind: req.Kind, BeneficiaryUUID: uuid}
	r.Data = booking

	var reference, date, url string
	switch req.Kind {
	case domain.ConsultationImmediate:
		c, err := call(ctx, o, func(ctx context.Context) (*domain.Consultation, error) {
			return o.telehealth.RequestImmediate(ctx, uuid)
		})
		r.primary(o.outcome(domain.ServiceRapidoc, labelImmediate, err))
		if err != nil {
			return r
		}
		booking.Consultation = c
		reference, url, date = c.UUID, c.URL, "agora"

	case domain.ConsultationScheduled:
		slot, err := o.pickSlot(ctx, req, uuid)
		if err != nil {
			r.primary(o.outcome(domain.ServiceRapidoc, labelAvailability, err))
			return r
		}
		appt, err := call(ctx, o, func(ctx context.Context) (*domain.Appointment, error) {
			return o.telehealth.Schedule(ctx, domain.AppointmentRequest{
				BeneficiaryUUID:  uuid,
				AvailabilityUUID: slot.UUID,
				SpecialtyUUID:    req.SpecialtyUUID,
			})
		})
		r.primary(o.outcome(domain.ServiceRapidoc, labelSchedule, err))
		if err != nil {
			return r
		}
		// The booked slot is gone; force a fresh availability read next time.
		o.cache.Delete(availabilityKey(req.SpecialtyUUID))
		if appt.Slot.UUID == "" {
			appt.Slot = slot
		}
		booking.Appointment = appt
		reference, url, date = appt.UUID, appt.URL, slot.Date+" "+slot.From
	}

	o.logConsultation(ctx, &r, req, uuid, reference, "requested")
	notifyBestEffort(ctx, o, &r, req.UserID, domain.TemplateConsultationConfirmed,
		map[string]string{"date": date, "url": url}, nil)

	o.emit(ctx, events.New(events.ConsultationRequested, req.UserID, true, map[string]any{
		"kind":             string(req.Kind),
		"beneficiary_uuid": uuid,
		"reference":        reference,
	}))
	return r
}

// pickSlot returns the requested slot, or the first open one.
func (o *Orchestrator) pickSlot(ctx context.Context, req domain.ConsultationRequest, uuid string) (domain.AvailabilitySlot, error) {
	key := availabilityKey(req.SpecialtyUUID)
	slots, ok := cache.Get[[]domain.AvailabilitySlot](o.cache, key)
	if !ok {
		res := recovery.Execute(ctx, o.recovery,
			func(ctx context.Context) ([]domain.AvailabilitySlot, error) {
				return o.telehealth.Availability(ctx, req.SpecialtyUUID, uuid, req.DateFrom, req.DateTo)
			}, nil,
			recovery.WithName("rapidoc.availability"),
			recovery.WithoutQueue(),
			recovery.WithCache(key, AvailabilityTTL),
		)
		if !res.Success {
			return domain.AvailabilitySlot{}, res.Err
		}
		slots = res.Data
	}

	if req.AvailabilityUUID != "" {
		for _, s := range slots {
			if s.UUID == req.AvailabilityUUID {
				return s, nil
			}
		}
		// Not in the cached list; let the provider decide.
		return domain.AvailabilitySlot{UUID: req.AvailabilityUUID, SpecialtyUUID: req.SpecialtyUUID}, nil
	}
	if len(slots) == 0 {
		return domain.AvailabilitySlot{}, &apperr.AppError{
			Kind:    apperr.KindNotFound,
			Message: "Nenhum horário disponível para esta especialidade.",
		}
	}
	return slots[0], nil
}

func (o *Orchestrator) logConsultation(
	ctx context.Context,
	r *Result[*domain.ConsultationBooking],
	req domain.ConsultationRequest,
	beneficiaryUUID, reference, status string,
) {
	entry := &domain.ConsultationLog{
		UserID:          req.UserID,
		BeneficiaryUUID: beneficiaryUUID,
		Kind:            req.Kind,
		SpecialtyUUID:   req.SpecialtyUUID,
		ReferenceUUID:   reference,
		Status:          status,
		SyncedSystems:   r.SyncedSystems(),
		CreatedAt:       o.now().UTC(),
	}
	err := o.record(ctx, "supabase.consultation_log", func(ctx context.Context) error {
		return o.store.InsertConsultationLog(ctx, entry)
	})
	r.secondary(o.outcome(domain.ServiceSupabase, labelConsultLog, err))
}

// CancelConsultation cancels an appointment at the telehealth provider and records it.
func (o *Orchestrator) CancelConsultation(
	ctx context.Context,
	userID, appointmentUUID string,
) (r Result[*domain.ConsultationBooking]) {
	defer finish(o, "cancel_consultation", &r, requireAll)

	if appointmentUUID == "" {
		fail(o, &r, apperr.Validation("appointment_uuid", "required"), "consultation.validate")
		return r
	}

	_, err := call(ctx, o, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, o.telehealth.Cancel(ctx, appointmentUUID)
	})
	r.primary(o.outcome(domain.ServiceRapidoc, labelCancel, err))
	if err != nil {
		return r
	}
	r.Data = &domain.ConsultationBooking{
		Kind:        domain.ConsultationScheduled,
		Appointment: &domain.Appointment{UUID: appointmentUUID, Status: "cancelled"},
	}

	req := domain.ConsultationRequest{UserID: userID, Kind: domain.ConsultationScheduled}
	o.logConsultation(ctx, &r, req, "", appointmentUUID, "cancelled")
	if userID != "" {
		notifyBestEffort(ctx, o, &r, userID, domain.TemplateConsultationCancelled,
			map[string]string{"appointment": appointmentUUID}, nil)
	}

	o.emit(ctx, events.New(events.ConsultationCancelled, userID, true, map[string]any{
		"appointment_uuid": appointmentUUID,
	}))
	return r
}
