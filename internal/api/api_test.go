package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vietddude/tema/internal/apperr"
	"github.com/vietddude/tema/internal/auth"
	"github.com/vietddude/tema/internal/core/domain"
	"github.com/vietddude/tema/internal/health"
	"github.com/vietddude/tema/internal/infra/supabase"
	"github.com/vietddude/tema/internal/orchestrator"
	"github.com/vietddude/tema/internal/realtime"
	"github.com/vietddude/tema/internal/resilience/recovery"
	"github.com/vietddude/tema/internal/session"
)

const testCPF = "12345678909"

type fakeFinder struct {
	calls int
}

func (f *fakeFinder) FindBeneficiaryByCPF(_ context.Context, cpf string) (*domain.Beneficiary, error) {
	f.calls++
	if cpf != testCPF {
		return nil, &apperr.StatusError{Service: "rapidoc", Status: 404, Code: "NOT_FOUND"}
	}
	return &domain.Beneficiary{UUID: "ben-1", CPF: cpf, Name: "Maria", Status: domain.BeneficiaryActive}, nil
}

type fakeOrchestrator struct {
	lastConsultation domain.ConsultationRequest
	cancelled        string
	syncOK           bool
	template         domain.Template
}

func (f *fakeOrchestrator) RequestConsultation(_ context.Context, req domain.ConsultationRequest) orchestrator.Result[*domain.ConsultationBooking] {
	f.lastConsultation = req
	return orchestrator.Result[*domain.ConsultationBooking]{
		Success: true,
		Data:    &domain.ConsultationBooking{Kind: req.Kind, BeneficiaryUUID: req.BeneficiaryUUID},
		Primary: []orchestrator.Outcome{{System: domain.ServiceRapidoc, Label: "RapiDoc"}},
	}
}

func (f *fakeOrchestrator) CancelConsultation(_ context.Context, _, uuid string) orchestrator.Result[*domain.ConsultationBooking] {
	f.cancelled = uuid
	return orchestrator.Result[*domain.ConsultationBooking]{
		Primary: []orchestrator.Outcome{{
			System: domain.ServiceRapidoc,
			Label:  "RapiDoc",
			Err:    &apperr.AppError{Kind: apperr.KindNotFound, Message: apperr.KindNotFound.Message()},
		}},
	}
}

func (f *fakeOrchestrator) ProcessPayment(context.Context, domain.PaymentRequest) orchestrator.Result[*orchestrator.PaymentData] {
	return orchestrator.Result[*orchestrator.PaymentData]{
		Err: &apperr.AppError{Kind: apperr.KindValidation, Message: apperr.KindValidation.Message()},
	}
}

func (f *fakeOrchestrator) SendNotification(_ context.Context, _ string, _ domain.Channel, t domain.Template, _ map[string]string) orchestrator.Result[*domain.Notification] {
	f.template = t
	return orchestrator.Result[*domain.Notification]{
		Success: true,
		Primary: []orchestrator.Outcome{{System: domain.ServiceSupabase, Label: "Notificação"}},
	}
}

func (f *fakeOrchestrator) SyncUserData(context.Context, string) orchestrator.Result[*domain.Beneficiary] {
	return orchestrator.Result[*domain.Beneficiary]{Success: f.syncOK}
}

type fakeRuntime struct {
	tracked []string
	online  *bool
	retries int
}

func (f *fakeRuntime) Foreground(context.Context) health.Report {
	return health.Report{Overall: health.StatusHealthy}
}

func (f *fakeRuntime) SetConnectivity(_ context.Context, online bool) *recovery.QueueStats {
	f.online = &online
	if online {
		return &recovery.QueueStats{Processed: 1, Successful: 1}
	}
	return nil
}

func (f *fakeRuntime) RetryNow(context.Context) recovery.QueueStats {
	f.retries++
	return recovery.QueueStats{}
}

func (f *fakeRuntime) Track(id string)   { f.tracked = append(f.tracked, id) }
func (f *fakeRuntime) Untrack(id string) {}

func (f *fakeRuntime) Snapshot() realtime.Snapshot {
	return realtime.Snapshot{Online: true, QueueLength: 3}
}

type harness struct {
	server  *httptest.Server
	finder  *fakeFinder
	orch    *fakeOrchestrator
	runtime *fakeRuntime
	issuer  *auth.Issuer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	issuer, err := auth.NewIssuer(auth.Config{JWTSecret: "test-secret-0123456789"})
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	vault, err := session.NewVault(session.NewMemoryKV(), session.DeriveKey("vault-key"))
	if err != nil {
		t.Fatalf("vault: %v", err)
	}
	classifier := apperr.NewClassifier(false, slog.New(slog.NewTextHandler(io.Discard, nil)))
	finder := &fakeFinder{}
	svc := auth.NewService(finder, session.NewStore(vault, 0), issuer, classifier)

	users := supabase.NewMemoryStore()
	ctx := context.Background()
	_ = users.UpsertBeneficiary(ctx, &domain.Beneficiary{UserID: "u1", UUID: "ben-1", CPF: testCPF})
	_ = users.UpsertBeneficiary(ctx, &domain.Beneficiary{UserID: "u2", UUID: "ben-2", CPF: "98765432100"})
	_ = users.UpsertBeneficiary(ctx, &domain.Beneficiary{UserID: "u3", CPF: "123.456.789-09"})

	h := &harness{finder: finder, orch: &fakeOrchestrator{}, runtime: &fakeRuntime{}, issuer: issuer}
	handler := NewHandler(Deps{
		Orchestrator: h.orch,
		Auth:         svc,
		Tokens:       issuer,
		Runtime:      h.runtime,
		Users:        users,
		Classifier:   classifier,
	})
	h.server = httptest.NewServer(NewRouter(handler))
	t.Cleanup(h.server.Close)
	return h
}

func (h *harness) do(t *testing.T, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	}
	req, _ := http.NewRequest(method, h.server.URL+path, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func (h *harness) login(t *testing.T) string {
	t.Helper()
	resp, body := h.do(t, http.MethodPost, "/v1/auth/login", "", loginRequest{CPF: "123.456.789-09", Password: "1234"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected login 200, got %d: %v", resp.StatusCode, body)
	}
	tokens, _ := body["tokens"].(map[string]any)
	token, _ := tokens["access_token"].(string)
	if token == "" {
		t.Fatal("expected access token")
	}
	return token
}

func TestLogin_WrongPasswordSkipsRemote(t *testing.T) {
	h := newHarness(t)

	resp, body := h.do(t, http.MethodPost, "/v1/auth/login", "", loginRequest{CPF: testCPF, Password: "9999"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", resp.StatusCode)
	}
	if body["error"] != "Senha incorreta. Use os 4 primeiros dígitos do seu CPF." {
		t.Errorf("unexpected error message %v", body["error"])
	}
	if body["requires_reauth"] != true {
		t.Errorf("expected requires_reauth, got %v", body["requires_reauth"])
	}
	if body["request_id"] == "" || body["request_id"] == nil {
		t.Error("expected request id in error body")
	}
	if h.finder.calls != 0 {
		t.Errorf("expected no remote lookup, got %d", h.finder.calls)
	}
}

func TestProtectedRoutesRequireBearer(t *testing.T) {
	h := newHarness(t)

	resp, body := h.do(t, http.MethodGet, "/v1/status", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", resp.StatusCode)
	}
	if body["type"] != string(apperr.KindAuthentication) {
		t.Errorf("expected AUTHENTICATION, got %v", body["type"])
	}

	tokens, _, _ := h.issuer.Issue("ben-1")
	resp, _ = h.do(t, http.MethodGet, "/v1/status", tokens.RefreshToken, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected refresh token to be rejected as bearer, got %d", resp.StatusCode)
	}
}

func TestLoginThenSessionAndStatus(t *testing.T) {
	h := newHarness(t)
	token := h.login(t)

	resp, body := h.do(t, http.MethodGet, "/v1/auth/session", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body["beneficiaryUuid"] != "ben-1" {
		t.Errorf("expected ben-1, got %v", body["beneficiaryUuid"])
	}

	resp, body = h.do(t, http.MethodGet, "/v1/status", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body["queue_length"] != float64(3) {
		t.Errorf("expected queue length 3, got %v", body["queue_length"])
	}

	resp, _ = h.do(t, http.MethodPost, "/v1/auth/logout", token, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("expected 204, got %d", resp.StatusCode)
	}
	resp, _ = h.do(t, http.MethodGet, "/v1/auth/session", token, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", resp.StatusCode)
	}
}

func TestRequestConsultation_UsesTokenBeneficiary(t *testing.T) {
	h := newHarness(t)
	token := h.login(t)

	resp, body := h.do(t, http.MethodPost, "/v1/consultations", token, domain.ConsultationRequest{
		UserID: "u1",
		Kind:   domain.ConsultationImmediate,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("expected 201, got %d", resp.StatusCode)
	}
	if h.orch.lastConsultation.BeneficiaryUUID != "ben-1" {
		t.Errorf("expected ben-1, got %q", h.orch.lastConsultation.BeneficiaryUUID)
	}
	if body["success"] != true {
		t.Errorf("expected success, got %v", body["success"])
	}
}

func TestResultFailureStatus(t *testing.T) {
	h := newHarness(t)
	token := h.login(t)

	resp, body := h.do(t, http.MethodDelete, "/v1/consultations/apt-9?user_id=u1", token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 from failed primary step, got %d", resp.StatusCode)
	}
	if h.orch.cancelled != "apt-9" {
		t.Errorf("expected apt-9, got %q", h.orch.cancelled)
	}
	errs, _ := body["errors"].([]any)
	if len(errs) != 1 {
		t.Errorf("expected 1 error, got %v", body["errors"])
	}

	resp, _ = h.do(t, http.MethodDelete, "/v1/consultations/apt-9", token, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 without user_id, got %d", resp.StatusCode)
	}

	resp, _ = h.do(t, http.MethodPost, "/v1/payments", token, domain.PaymentRequest{UserID: "u1"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 from precondition, got %d", resp.StatusCode)
	}
}

func TestSendNotification_Template(t *testing.T) {
	h := newHarness(t)
	token := h.login(t)

	resp, _ := h.do(t, http.MethodPost, "/v1/notifications", token, notificationRequest{
		UserID: "u1", Channel: domain.ChannelEmail, Template: "payment_confirmed",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("expected 201, got %d", resp.StatusCode)
	}
	if h.orch.template != domain.TemplatePaymentConfirmed {
		t.Errorf("expected payment_confirmed, got %s", h.orch.template)
	}

	resp, body := h.do(t, http.MethodPost, "/v1/notifications", token, notificationRequest{
		UserID: "u1", Channel: domain.ChannelEmail, Template: "birthday",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
	if body["type"] != string(apperr.KindValidation) {
		t.Errorf("expected VALIDATION, got %v", body["type"])
	}
}

func TestSyncTracksOnlyOnSuccess(t *testing.T) {
	h := newHarness(t)
	token := h.login(t)

	resp, _ := h.do(t, http.MethodPost, "/v1/users/u1/sync", token, nil)
	if resp.StatusCode == http.StatusOK {
		t.Error("expected failure status for unsuccessful sync")
	}
	if len(h.runtime.tracked) != 0 {
		t.Errorf("expected no tracking, got %v", h.runtime.tracked)
	}

	h.orch.syncOK = true
	resp, _ = h.do(t, http.MethodPost, "/v1/users/u1/sync", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if len(h.runtime.tracked) != 1 || h.runtime.tracked[0] != "u1" {
		t.Errorf("expected u1 tracked, got %v", h.runtime.tracked)
	}
}

func TestUserRoutesRequireOwner(t *testing.T) {
	h := newHarness(t)
	token := h.login(t)

	forbidden := []struct {
		name   string
		method string
		path   string
		body   any
	}{
		{"notify other user", http.MethodPost, "/v1/notifications",
			notificationRequest{UserID: "u2", Channel: domain.ChannelEmail, Template: "welcome"}},
		{"sync other user", http.MethodPost, "/v1/users/u2/sync", nil},
		{"untrack other user", http.MethodDelete, "/v1/users/u2/sync", nil},
		{"sync unknown user", http.MethodPost, "/v1/users/nobody/sync", nil},
		{"cancel for other user", http.MethodDelete, "/v1/consultations/apt-1?user_id=u2", nil},
		{"pay for other user", http.MethodPost, "/v1/payments", domain.PaymentRequest{UserID: "u2"}},
		{"book for other beneficiary", http.MethodPost, "/v1/consultations",
			domain.ConsultationRequest{UserID: "u1", BeneficiaryUUID: "ben-2"}},
	}
	for _, tt := range forbidden {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := h.do(t, tt.method, tt.path, token, tt.body)
			if resp.StatusCode != http.StatusForbidden {
				t.Errorf("expected 403, got %d", resp.StatusCode)
			}
			if body["type"] != string(apperr.KindForbidden) {
				t.Errorf("expected FORBIDDEN, got %v", body["type"])
			}
		})
	}
	if len(h.runtime.tracked) != 0 || h.orch.cancelled != "" {
		t.Errorf("expected no action taken, got tracked=%v cancelled=%q", h.runtime.tracked, h.orch.cancelled)
	}

	// A row not yet linked to the provider matches on the session CPF.
	h.orch.syncOK = true
	resp, _ := h.do(t, http.MethodPost, "/v1/users/u3/sync", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 for unlinked own row, got %d", resp.StatusCode)
	}
}

func TestConnectivityAndRetry(t *testing.T) {
	h := newHarness(t)
	token := h.login(t)

	resp, body := h.do(t, http.MethodPost, "/v1/app/connectivity", token, connectivityRequest{Online: true})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	drain, _ := body["drain"].(map[string]any)
	if drain["processed"] != float64(1) {
		t.Errorf("expected drain stats, got %v", body["drain"])
	}

	h.do(t, http.MethodPost, "/v1/queue/retry", token, nil)
	if h.runtime.retries != 1 {
		t.Errorf("expected 1 retry, got %d", h.runtime.retries)
	}

	resp, body = h.do(t, http.MethodPost, "/v1/app/foreground", token, nil)
	if resp.StatusCode != http.StatusOK || body["overall"] != string(health.StatusHealthy) {
		t.Errorf("expected healthy report, got %d %v", resp.StatusCode, body)
	}
}

func TestRecoverMiddleware(t *testing.T) {
	h := &Handler{classifier: apperr.NewClassifier(false, nil), log: slog.New(slog.NewTextHandler(io.Discard, nil))}
	panicky := requestIDMiddleware(h.recoverMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(errors.New("boom"))
	})))

	rec := httptest.NewRecorder()
	panicky.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("expected request id header")
	}
}
