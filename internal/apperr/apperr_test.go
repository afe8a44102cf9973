package apperr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		err    error
		expect Kind
	}{
		{errors.New("Network Error"), KindNetwork},
		{errors.New("dial tcp 10.0.0.1:443: connect: connection refused"), KindNetwork},
		{&StatusError{Service: "rapidoc", Status: 401}, KindAuthentication},
		{&StatusError{Service: "asaas", Status: 200, Code: "unauthorized"}, KindAuthentication},
		{&StatusError{Service: "rapidoc", Status: 403}, KindForbidden},
		{&StatusError{Service: "rapidoc", Status: 404}, KindNotFound},
		{&StatusError{Service: "asaas", Status: 503}, KindServer},
		{fmt.Errorf("call: %w", context.DeadlineExceeded), KindTimeout},
		{errors.New("Client.Timeout exceeded while awaiting headers"), KindTimeout},
		{&StatusError{Service: "asaas", Status: 400, Body: "cpfCnpj"}, KindValidation},
		{Validation("cpf", "is required"), KindValidation},
		{errors.New("boom"), KindGeneric},
	}

	for _, tt := range tests {
		if got := Classify(tt.err); got != tt.expect {
			t.Errorf("Classify(%q) = %v, want %v", tt.err, got, tt.expect)
		}
	}
}

func TestHandle_UsesFixedMessage(t *testing.T) {
	c := NewClassifier(false, slog.New(slog.NewTextHandler(io.Discard, nil)))
	raw := &StatusError{Service: "rapidoc", Status: 500, Body: "stack trace at db.go:42"}

	ae := c.Handle(raw, "test")
	if ae.Kind != KindServer {
		t.Fatalf("expected SERVER, got %s", ae.Kind)
	}
	if ae.Message != KindServer.Message() {
		t.Errorf("expected fixed message, got %q", ae.Message)
	}
	if ae.Status != 500 {
		t.Errorf("expected status 500, got %d", ae.Status)
	}
	if !errors.Is(ae, raw) {
		t.Error("expected wrapped original error in development mode")
	}
}

func TestHandle_ProductionStripsInternals(t *testing.T) {
	c := NewClassifier(true, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ae := c.Handle(&StatusError{Service: "asaas", Status: 502, Body: "upstream"}, "test")

	if ae.Err != nil || ae.Details != nil {
		t.Errorf("expected internals stripped, got err=%v details=%v", ae.Err, ae.Details)
	}
}

func TestPredicates(t *testing.T) {
	recoverable := map[Kind]bool{KindNetwork: true, KindTimeout: true, KindServer: true}
	reauth := map[Kind]bool{KindAuthentication: true, KindForbidden: true}

	for _, k := range []Kind{KindNetwork, KindAuthentication, KindValidation, KindServer, KindTimeout, KindNotFound, KindForbidden, KindGeneric} {
		ae := &AppError{Kind: k}
		if ae.IsRecoverable() != recoverable[k] {
			t.Errorf("IsRecoverable(%s) = %v", k, ae.IsRecoverable())
		}
		if ae.RequiresReauth() != reauth[k] {
			t.Errorf("RequiresReauth(%s) = %v", k, ae.RequiresReauth())
		}
	}
}
