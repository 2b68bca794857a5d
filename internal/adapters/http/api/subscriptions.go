package api

import (
	"net/http"
	"strings"

	"github.com/okian/tes/internal/adapters/repository"
	"github.com/okian/tes/internal/domain/registration"
	"github.com/okian/tes/pkg/metrics"
)

// SubscribeRequest is the body of POST /api/subscriptions.
type SubscribeRequest struct {
	Email  string            `json:"email"`
	Source repository.Source `json:"source"`
}

// SubscribeResponse reports the stored subscription.
type SubscribeResponse struct {
	Status       string                  `json:"status"`
	Subscription repository.Subscription `json:"subscription"`
}

// SubscriptionsHandler accepts newsletter and early-access sign-ups.
type SubscriptionsHandler struct {
	deps Dependencies
}

// NewSubscriptionsHandler creates a new subscriptions handler.
func NewSubscriptionsHandler(deps Dependencies) *SubscriptionsHandler {
	return &SubscriptionsHandler{deps: deps}
}

// HandleSubscribe handles POST /api/subscriptions.
func (h *SubscriptionsHandler) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	const op = "api.subscribe"

	var req SubscribeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.Source == "" {
		req.Source = repository.SourceNewsletter
	}
	if !req.Source.Valid() {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, repository.ErrUnknownSource))
		return
	}

	email := strings.TrimSpace(req.Email)
	if !registration.ValidEmail(email) {
		metrics.RecordSubscription(string(req.Source), "invalid")
		writeError(w, http.StatusBadRequest, "invalid_email", NewKind(op, ErrInvalidEmail))
		return
	}

	sub, created, err := h.deps.Subscribe(r.Context(), email, req.Source)
	if err != nil {
		metrics.RecordSubscription(string(req.Source), "error")
		logInternal(r.Context(), op, err)
		writeError(w, http.StatusInternalServerError, "internal", Wrap(op, err))
		return
	}

	if !created {
		metrics.RecordSubscription(string(req.Source), "existing")
		writeJSON(w, http.StatusOK, SubscribeResponse{Status: "already_subscribed", Subscription: sub})
		return
	}
	metrics.RecordSubscription(string(req.Source), "created")
	writeJSON(w, http.StatusCreated, SubscribeResponse{Status: "subscribed", Subscription: sub})
}
