package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/okian/tes/internal/adapters/mq/queue"
	"github.com/okian/tes/internal/domain/event"
	"github.com/okian/tes/internal/domain/registration"
	"github.com/okian/tes/pkg/metrics"
)

// Submission outcomes as recorded in metrics and returned to clients.
const (
	statusAccepted     = "accepted"
	statusDuplicate    = "duplicate"
	statusInvalid      = "invalid"
	statusBackpressure = "backpressure"
	statusClosed       = "closed"
	statusAbandoned    = "abandoned"
)

// ValidationResponse is the body of a validate call.
type ValidationResponse struct {
	Valid  bool                `json:"valid"`
	Errors registration.Errors `json:"errors"`
}

// RegistrationResponse is the body of an accepted or duplicate submission.
type RegistrationResponse struct {
	Status     string        `json:"status"`
	Reference  string        `json:"reference,omitempty"`
	ReceivedAt time.Time     `json:"receivedAt,omitzero"`
	Ticket     *event.Ticket `json:"ticket,omitempty"`
}

// InvalidResponse carries per-field messages for a rejected submission.
type InvalidResponse struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Errors  registration.Errors `json:"errors"`
}

// RegistrationsHandler validates and accepts registration drafts.
type RegistrationsHandler struct {
	deps Dependencies
}

// NewRegistrationsHandler creates a new registrations handler.
func NewRegistrationsHandler(deps Dependencies) *RegistrationsHandler {
	return &RegistrationsHandler{deps: deps}
}

// HandleValidate handles POST /api/registrations/validate. It never accepts
// the draft; the page calls it to mirror server-side rules.
func (h *RegistrationsHandler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	const op = "api.validate_registration"

	var d registration.Draft
	if err := decodeJSON(w, r, &d); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	errs := registration.Validate(d)
	metrics.RecordValidation(errs.Fields())
	writeJSON(w, http.StatusOK, ValidationResponse{Valid: errs.Valid(), Errors: errs})
}

// HandleSubmit handles POST /api/registrations.
func (h *RegistrationsHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_registration"

	var d registration.Draft
	if err := decodeJSON(w, r, &d); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	d = d.WithDefaults()

	errs := registration.Validate(d)
	metrics.RecordValidation(errs.Fields())
	if !errs.Valid() {
		metrics.RecordSubmission(statusInvalid)
		writeJSON(w, http.StatusUnprocessableEntity, InvalidResponse{
			Code:    statusInvalid,
			Message: ErrInvalidForm.Error(),
			Errors:  errs,
		})
		return
	}

	sub, duplicate, err := h.deps.SubmitRegistration(r.Context(), d)
	switch {
	case errors.Is(err, queue.ErrFull):
		metrics.RecordSubmission(statusBackpressure)
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusTooManyRequests, statusBackpressure, NewKind(op, ErrBackpressure))
		return
	case errors.Is(err, queue.ErrClosed):
		metrics.RecordSubmission(statusClosed)
		writeError(w, http.StatusServiceUnavailable, "unavailable", NewKind(op, ErrUnavailable))
		return
	case errors.Is(err, context.Canceled):
		// The visitor left; nobody reads a response.
		metrics.RecordSubmission(statusAbandoned)
		return
	case err != nil:
		wrapped := Wrap(op, err)
		logInternal(r.Context(), op, err)
		writeError(w, http.StatusInternalServerError, "internal", wrapped)
		return
	}

	if duplicate {
		metrics.RecordSubmission(statusDuplicate)
		writeJSON(w, http.StatusOK, RegistrationResponse{Status: statusDuplicate})
		return
	}

	metrics.RecordSubmission(statusAccepted)
	resp := RegistrationResponse{
		Status:     statusAccepted,
		Reference:  sub.Reference,
		ReceivedAt: sub.ReceivedAt,
	}
	if t, ok := h.deps.Event().Ticket(string(d.TicketType)); ok {
		resp.Ticket = &t
	}
	writeJSON(w, http.StatusAccepted, resp)
}
