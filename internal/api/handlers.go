package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vietddude/tema/internal/apperr"
	"github.com/vietddude/tema/internal/auth"
	"github.com/vietddude/tema/internal/core/domain"
)

type loginRequest struct {
	CPF      string `json:"cpf"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type notificationRequest struct {
	UserID   string            `json:"user_id"`
	Channel  domain.Channel    `json:"channel"`
	Template string            `json:"template"`
	Data     map[string]string `json:"data,omitempty"`
}

type connectivityRequest struct {
	Online bool `json:"online"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err, "api.login")
		return
	}
	res, err := h.auth.Login(r.Context(), req.CPF, req.Password)
	if err != nil {
		h.writeError(w, r, err, "api.login")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err, "api.refresh")
		return
	}
	tokens, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.writeError(w, r, err, "api.refresh")
		return
	}
	writeJSON(w, http.StatusOK, tokens)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if r.ContentLength > 0 {
		if err := decodeBody(r, &req); err != nil {
			h.writeError(w, r, err, "api.logout")
			return
		}
	}
	if err := h.auth.Logout(r.Context(), auth.BeneficiaryFrom(r.Context()), req.RefreshToken); err != nil {
		h.writeError(w, r, err, "api.logout")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) currentSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.auth.CurrentSession(r.Context(), auth.BeneficiaryFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err, "api.session")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *Handler) requestConsultation(w http.ResponseWriter, r *http.Request) {
	var req domain.ConsultationRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err, "api.request_consultation")
		return
	}
	bearer := auth.BeneficiaryFrom(r.Context())
	if req.BeneficiaryUUID == "" {
		req.BeneficiaryUUID = bearer
	}
	if req.BeneficiaryUUID != bearer {
		h.writeError(w, r, errNotOwner, "api.request_consultation")
		return
	}
	if req.UserID != "" {
		if err := h.requireOwner(r, req.UserID); err != nil {
			h.writeError(w, r, err, "api.request_consultation")
			return
		}
	}
	writeResult(w, h.orch.RequestConsultation(r.Context(), req), http.StatusCreated)
}

func (h *Handler) cancelConsultation(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		h.writeError(w, r, apperr.Validation("user_id", "is required"), "api.cancel_consultation")
		return
	}
	if err := h.requireOwner(r, userID); err != nil {
		h.writeError(w, r, err, "api.cancel_consultation")
		return
	}
	writeResult(w, h.orch.CancelConsultation(r.Context(), userID, chi.URLParam(r, "uuid")), http.StatusOK)
}

func (h *Handler) processPayment(w http.ResponseWriter, r *http.Request) {
	var req domain.PaymentRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err, "api.process_payment")
		return
	}
	if err := h.requireOwner(r, req.UserID); err != nil {
		h.writeError(w, r, err, "api.process_payment")
		return
	}
	writeResult(w, h.orch.ProcessPayment(r.Context(), req), http.StatusCreated)
}

func (h *Handler) sendNotification(w http.ResponseWriter, r *http.Request) {
	var req notificationRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err, "api.send_notification")
		return
	}
	tpl, ok := domain.ParseTemplate(req.Template)
	if !ok {
		h.writeError(w, r, apperr.Validation("template", "is unknown"), "api.send_notification")
		return
	}
	if err := h.requireOwner(r, req.UserID); err != nil {
		h.writeError(w, r, err, "api.send_notification")
		return
	}
	writeResult(w, h.orch.SendNotification(r.Context(), req.UserID, req.Channel, tpl, req.Data), http.StatusCreated)
}

// syncUser reconciles the user now and keeps them in the periodic sync.
func (h *Handler) syncUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if err := h.requireOwner(r, userID); err != nil {
		h.writeError(w, r, err, "api.sync_user")
		return
	}
	res := h.orch.SyncUserData(r.Context(), userID)
	if res.Success {
		h.runtime.Track(userID)
	}
	writeResult(w, res, http.StatusOK)
}

func (h *Handler) untrackUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if err := h.requireOwner(r, userID); err != nil {
		h.writeError(w, r, err, "api.untrack_user")
		return
	}
	h.runtime.Untrack(userID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.runtime.Snapshot())
}

func (h *Handler) retryQueue(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.runtime.RetryNow(r.Context()))
}

func (h *Handler) foreground(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.runtime.Foreground(r.Context()))
}

func (h *Handler) connectivity(w http.ResponseWriter, r *http.Request) {
	var req connectivityRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err, "api.connectivity")
		return
	}
	drain := h.runtime.SetConnectivity(r.Context(), req.Online)
	writeJSON(w, http.StatusOK, map[string]any{
		"online": req.Online,
		"drain":  drain,
	})
}
