package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/vietddude/tema/internal/apperr"
	"github.com/vietddude/tema/internal/orchestrator"
)

type errorBody struct {
	Error          string `json:"error"`
	Type           string `json:"type"`
	RequiresReauth bool   `json:"requires_reauth"`
	RequestID      string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps a classified failure to the HTTP status returned to clients.
func statusFor(k apperr.Kind) int {
	switch k {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindAuthentication:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindNetwork, apperr.KindServer:
		return http.StatusBadGateway
	case apperr.KindTimeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeAppError(w http.ResponseWriter, r *http.Request, ae *apperr.AppError) {
	writeJSON(w, statusFor(ae.Kind), errorBody{
		Error:          ae.Message,
		Type:           string(ae.Kind),
		RequiresReauth: ae.RequiresReauth(),
		RequestID:      requestIDFromContext(r.Context()),
	})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, op string) {
	writeAppError(w, r, h.classifier.Handle(err, op))
}

// writeResult renders an orchestration result. A failed action takes its status from
// the first failed primary step.
func writeResult[T any](w http.ResponseWriter, res orchestrator.Result[T], okStatus int) {
	if res.Success {
		writeJSON(w, okStatus, res)
		return
	}
	status := http.StatusBadGateway
	if res.Err != nil {
		status = statusFor(res.Err.Kind)
	} else {
		for _, o := range res.Primary {
			if !o.OK() {
				status = statusFor(o.Err.Kind)
				break
			}
		}
	}
	writeJSON(w, status, res)
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperr.Validation("body", err.Error())
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return apperr.Validation("body", "must contain a single JSON value")
	}
	return nil
}
