package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/tes/internal/domain/countdown"
	"github.com/okian/tes/pkg/logger"
	"github.com/okian/tes/pkg/metrics"
)

// CountdownResponse is one snapshot of the time left.
type CountdownResponse struct {
	Target    time.Time           `json:"target"`
	Remaining countdown.Remaining `json:"remaining"`
	Started   bool                `json:"started"`
}

// CountdownHandler serves the countdown as JSON and as a server-sent stream.
type CountdownHandler struct {
	deps     Dependencies
	now      func() time.Time
	interval time.Duration
}

// NewCountdownHandler creates a new countdown handler.
func NewCountdownHandler(deps Dependencies, now func() time.Time, interval time.Duration) *CountdownHandler {
	return &CountdownHandler{deps: deps, now: now, interval: interval}
}

func (h *CountdownHandler) snapshot(target time.Time, r countdown.Remaining) CountdownResponse {
	return CountdownResponse{Target: target, Remaining: r, Started: r.IsZero()}
}

// HandleGetCountdown handles GET /api/countdown requests.
func (h *CountdownHandler) HandleGetCountdown(w http.ResponseWriter, _ *http.Request) {
	target := h.deps.Event().StartsAt
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, h.snapshot(target, countdown.Compute(target, h.now())))
}

// HandleStream handles GET /api/countdown/stream. It pushes a "tick" event
// every interval and ends after the first all-zero value.
func (h *CountdownHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	const op = "api.countdown_stream"

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal", Wrap(op, fmt.Errorf("streaming unsupported")))
		return
	}

	// The server write timeout would otherwise cut long streams.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	ctx := r.Context()
	target := h.deps.Event().StartsAt

	// The loop never blocks on a slow client; only the newest value is kept.
	latest := make(chan countdown.Remaining, 1)
	handle := countdown.Start(ctx, target, func(rem countdown.Remaining) {
		select {
		case latest <- rem:
		default:
			select {
			case <-latest:
			default:
			}
			latest <- rem
		}
	}, countdown.WithClock(h.now), countdown.WithInterval(h.interval))
	defer handle.Cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	metrics.CountdownStreamOpened()
	defer metrics.CountdownStreamClosed()

	for {
		select {
		case <-ctx.Done():
			return
		case <-handle.Done():
			return
		case rem := <-latest:
			metrics.RecordCountdownTick()
			if err := writeEvent(w, "tick", h.snapshot(target, rem)); err != nil {
				logger.Named("api").Debug(ctx, "countdown stream closed", logger.Error(err))
				return
			}
			flusher.Flush()
			if rem.IsZero() {
				return
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	return err
}
