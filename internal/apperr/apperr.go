// Package apperr classifies collaborator failures into a closed taxonomy with fixed,
// user-facing messages.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// Kind is the closed error taxonomy.
type Kind string

const (
	KindNetwork        Kind = "NETWORK"
	KindAuthentication Kind = "AUTHENTICATION"
	KindValidation     Kind = "VALIDATION"
	KindServer         Kind = "SERVER"
	KindTimeout        Kind = "TIMEOUT"
	KindNotFound       Kind = "NOT_FOUND"
	KindForbidden      Kind = "FORBIDDEN"
	KindGeneric        Kind = "GENERIC"
)

// Message returns the pre-localized text shown to users for k.
func (k Kind) Message() string {
	switch k {
	case KindNetwork:
		return "Erro de conexão. Verifique sua internet e tente novamente."
	case KindAuthentication:
		return "Sua sessão expirou. Faça login novamente."
	case KindValidation:
		return "Dados inválidos. Verifique as informações e tente novamente."
	case KindServer:
		return "Erro no servidor. Tente novamente em alguns instantes."
	case KindTimeout:
		return "A requisição demorou muito para responder. Tente novamente."
	case KindNotFound:
		return "Recurso não encontrado."
	case KindForbidden:
		return "Você não tem permissão para realizar esta ação."
	}
	return "Ocorreu um erro inesperado. Tente novamente."
}

// AppError is a classified failure.
type AppError struct {
	Kind      Kind      `json:"type"`
	Message   string    `json:"message"`
	Code      string    `json:"code,omitempty"`
	Status    int       `json:"status,omitempty"`
	Details   any       `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Err       error     `json:"-"`
}

func (e *AppError) Error() string { return e.Message }

func (e *AppError) Unwrap() error { return e.Err }

// Public returns a copy without internals, as surfaced in production.
func (e *AppError) Public() *AppError {
	cp := *e
	cp.Details = nil
	cp.Err = nil
	return &cp
}

// IsRecoverable reports whether the failure is worth retrying transparently.
func (e *AppError) IsRecoverable() bool {
	switch e.Kind {
	case KindNetwork, KindTimeout, KindServer:
		return true
	}
	return false
}

// RequiresReauth reports whether the caller should send the user back to login.
func (e *AppError) RequiresReauth() bool {
	switch e.Kind {
	case KindAuthentication, KindForbidden:
		return true
	}
	return false
}

// StatusError is a non-2xx response from a collaborator.
type StatusError struct {
	Service string
	Status  int
	Code    string
	Body    string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: http %d (%s): %s", e.Service, e.Status, e.Code, e.Body)
	}
	return fmt.Sprintf("%s: http %d: %s", e.Service, e.Status, e.Body)
}

// ValidationError reports invalid input detected before any remote call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s %s", e.Field, e.Reason)
}

// Validation builds a ValidationError.
func Validation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsNetwork reports network-class failures: dial/DNS errors and the browser-style
// "Network Error"/"Load failed" signatures some collaborators relay.
func IsNetwork(err error) bool {
	if err == nil {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && !opErr.Timeout() {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && !dnsErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, sig := range []string{"network error", "load failed", "failed to fetch", "connection refused", "connection reset", "no such host"} {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}

// IsTimeout reports deadline and timeout failures.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "timeout")
}

func isValidation(err error, status int) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return true
	}
	if status == 400 || status == 422 {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "validation") || strings.Contains(msg, "invalid")
}

// Classify maps err onto the taxonomy. Rules are evaluated in priority order.
func Classify(err error) Kind {
	if err == nil {
		return KindGeneric
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Kind
	}

	status, code := 0, ""
	var se *StatusError
	if errors.As(err, &se) {
		status, code = se.Status, strings.ToUpper(se.Code)
	}

	switch {
	case se == nil && IsNetwork(err):
		return KindNetwork
	case status == 401 || code == "UNAUTHORIZED":
		return KindAuthentication
	case status == 403 || code == "FORBIDDEN":
		return KindForbidden
	case status == 404 || code == "NOT_FOUND":
		return KindNotFound
	case status >= 500 || code == "SERVER_ERROR":
		return KindServer
	case IsTimeout(err):
		return KindTimeout
	case isValidation(err, status):
		return KindValidation
	}
	return KindGeneric
}
