package api

import (
	"net/http"
	"strconv"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

const (
	defaultQRSize = 256
	minQRSize     = 64
	maxQRSize     = 1024
)

// QRHandler renders a QR code pointing at the registration section.
type QRHandler struct {
	target string
}

// NewQRHandler creates a handler encoding publicURL + "/#register".
func NewQRHandler(publicURL string) *QRHandler {
	return &QRHandler{target: strings.TrimRight(publicURL, "/") + "/#register"}
}

// HandleQR handles GET /api/register/qr.png?size=N.
func (h *QRHandler) HandleQR(w http.ResponseWriter, r *http.Request) {
	const op = "api.register_qr"

	size := defaultQRSize
	if raw := r.URL.Query().Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < minQRSize || n > maxQRSize {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		size = n
	}

	png, err := qrcode.Encode(h.target, qrcode.Medium, size)
	if err != nil {
		logInternal(r.Context(), op, err)
		writeError(w, http.StatusInternalServerError, "internal", Wrap(op, err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
