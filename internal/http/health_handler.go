package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	pinger    Pinger
	timeout   time.Duration
	responder responder
}

func NewHealthHandler(pinger Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{pinger: pinger, timeout: 2 * time.Second, responder: newResponder(logger)}
}

// Check handles GET /healthz.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if h.pinger != nil {
		if err := h.pinger.Ping(ctx); err != nil {
			h.responder.loggerFor(ctx).WarnContext(ctx, "health check failed", "error", err)
			h.responder.writeJSON(ctx, w, http.StatusServiceUnavailable, errorResponse{ErrorCode: codeInternal, Message: "database unavailable"})
			return
		}
	}
	h.responder.writeOK(ctx, w, http.StatusOK, map[string]any{"status": "up"})
}
