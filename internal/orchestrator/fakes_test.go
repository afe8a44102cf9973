package orchestrator

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/vietddude/tema/internal/apperr"
	"github.com/vietddude/tema/internal/core/domain"
	"github.com/vietddude/tema/internal/events"
	"github.com/vietddude/tema/internal/infra/asaas"
	"github.com/vietddude/tema/internal/infra/supabase"
	"github.com/vietddude/tema/internal/resilience/cache"
	"github.com/vietddude/tema/internal/resilience/recovery"
	"github.com/vietddude/tema/internal/resilience/retry"
)

var errUnavailable = &apperr.StatusError{Service: "test", Status: 503, Body: "unavailable"}

type fakeTelehealth struct {
	mu          sync.Mutex
	beneficiary *domain.Beneficiary
	findErr     error
	createErr   error
	updateErr   error
	bookErr     error
	slots       []domain.AvailabilitySlot
	calls       map[string]int
}

func (f *fakeTelehealth) hit(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[name]++
}

func (f *fakeTelehealth) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeTelehealth) FindBeneficiaryByCPF(_ context.Context, cpf string) (*domain.Beneficiary, error) {
	f.hit("find")
	if f.findErr != nil {
		return nil, f.findErr
	}
	if f.beneficiary == nil {
		return nil, &apperr.StatusError{Service: "rapidoc", Status: 404, Code: "NOT_FOUND"}
	}
	return f.beneficiary, nil
}

func (f *fakeTelehealth) CreateBeneficiary(_ context.Context, b *domain.Beneficiary) (*domain.Beneficiary, error) {
	f.hit("create")
	if f.createErr != nil {
		return nil, f.createErr
	}
	out := *b
	out.UUID = "rapidoc-new"
	return &out, nil
}

func (f *fakeTelehealth) UpdateBeneficiary(context.Context, string, *domain.Beneficiary) error {
	f.hit("update")
	return f.updateErr
}

func (f *fakeTelehealth) RequestImmediate(_ context.Context, uuid string) (*domain.Consultation, error) {
	f.hit("immediate")
	if f.bookErr != nil {
		return nil, f.bookErr
	}
	return &domain.Consultation{UUID: "c-1", URL: "https://meet/" + uuid}, nil
}

func (f *fakeTelehealth) Availability(context.Context, string, string, string, string) ([]domain.AvailabilitySlot, error) {
	f.hit("availability")
	return f.slots, nil
}

func (f *fakeTelehealth) Schedule(_ context.Context, req domain.AppointmentRequest) (*domain.Appointment, error) {
	f.hit("schedule")
	if f.bookErr != nil {
		return nil, f.bookErr
	}
	return &domain.Appointment{UUID: "a-1", Status: "scheduled"}, nil
}

func (f *fakeTelehealth) Cancel(context.Context, string) error {
	f.hit("cancel")
	return f.bookErr
}

type fakePayments struct {
	mu          sync.Mutex
	customerErr error
	chargeErr   error
	pixErr      error
	charges     []asaas.ChargeInput
	customers   int
}

func (f *fakePayments) EnsureCustomer(_ context.Context, in domain.Customer) (*domain.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.customers++
	if f.customerErr != nil {
		return nil, f.customerErr
	}
	in.ID = "cus_1"
	return &in, nil
}

func (f *fakePayments) CreatePayment(_ context.Context, in asaas.ChargeInput) (*domain.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.charges = append(f.charges, in)
	if f.chargeErr != nil {
		return nil, f.chargeErr
	}
	return &domain.Payment{ID: "pay_1", CustomerID: in.Customer, Value: in.Value, BillingType: in.BillingType, Status: "PENDING"}, nil
}

func (f *fakePayments) CreateSubscription(_ context.Context, in asaas.ChargeInput) (*domain.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.charges = append(f.charges, in)
	if f.chargeErr != nil {
		return nil, f.chargeErr
	}
	return &domain.Payment{ID: "sub_1", SubscriptionID: "sub_1", Status: "ACTIVE"}, nil
}

func (f *fakePayments) PixQRCode(context.Context, string) (*domain.PixQRCode, error) {
	if f.pixErr != nil {
		return nil, f.pixErr
	}
	png, err := asaas.RenderQR("00020126pix")
	if err != nil {
		return nil, err
	}
	return &domain.PixQRCode{Payload: "00020126pix", EncodedImage: encode(png)}, nil
}

type fakeMailer struct {
	mu   sync.Mutex
	err  error
	sent []domain.Email
}

func (f *fakeMailer) Send(_ context.Context, e domain.Email) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, e)
	return "msg_1", nil
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []*events.Event
}

func (r *recordingEmitter) Emit(_ context.Context, ev *events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingEmitter) EmitBatch(ctx context.Context, evs []*events.Event) error {
	for _, ev := range evs {
		_ = r.Emit(ctx, ev)
	}
	return nil
}

func (r *recordingEmitter) Close() error { return nil }

type harness struct {
	orch     *Orchestrator
	tele     *fakeTelehealth
	pay      *fakePayments
	mail     *fakeMailer
	store    *supabase.MemoryStore
	emitter  *recordingEmitter
	recovery *recovery.Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	classifier := apperr.NewClassifier(false, quiet)
	rec := recovery.NewService(recovery.Config{
		Retry:       retry.Config{MaxRetries: retry.NoRetries, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffMultiplier: 1},
		OfflineMode: true,
	}, cache.New(), classifier)

	h := &harness{
		tele:     &fakeTelehealth{},
		pay:      &fakePayments{},
		mail:     &fakeMailer{},
		store:    supabase.NewMemoryStore(),
		emitter:  &recordingEmitter{},
		recovery: rec,
	}
	h.store.PutProfile(domain.Profile{UserID: "u-1", Name: "Maria", Email: "maria@example.com"})
	h.orch = New(Deps{
		Telehealth: h.tele,
		Payments:   h.pay,
		Mailer:     h.mail,
		Store:      h.store,
		Recovery:   rec,
		Classifier: classifier,
		Emitter:    h.emitter,
	})
	return h
}

func encode(b []byte) string { return base64.StdEncoding.EncodeToString(b) }

// lostAckStore commits the first consultation log and then reports a network failure, the
// way a dropped response looks to the caller.
type lostAckStore struct {
	*supabase.MemoryStore
	mu    sync.Mutex
	calls int
}

func (s *lostAckStore) InsertConsultationLog(ctx context.Context, l *domain.ConsultationLog) error {
	s.mu.Lock()
	s.calls++
	first := s.calls == 1
	s.mu.Unlock()
	if err := s.MemoryStore.InsertConsultationLog(ctx, l); err != nil {
		return err
	}
	if first {
		return errors.New("Network Error")
	}
	return nil
}
