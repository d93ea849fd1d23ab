package handlers

import (
	"context"
	"net/http"
	"time"

	"trucking-dispatch-core/internal/logx"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger func(ctx context.Context) error

// Handlers holds the service-level endpoints: ping, readiness and 404.
type Handlers struct {
	Logger logx.Logger
	ready  Pinger
}

// New creates a Handlers instance. A nil logger is replaced with a no-op one.
func New(logger logx.Logger) *Handlers {
	if logger == nil {
		logger = logx.Nop()
	}
	return &Handlers{Logger: logger}
}

// WithReadiness makes HEAD /healthcheck call ping (the database pool).
func (h *Handlers) WithReadiness(ping Pinger) *Handlers {
	h.ready = ping
	return h
}

// Ping handles GET /ping and returns 200 with {"message":"pong"}.
func (h *Handlers) Ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(h.Logger, w, r, http.StatusOK, map[string]string{"message": "pong"})
}

// HealthcheckHead handles HEAD /healthcheck: 204 when the store answers, 503 otherwise.
func (h *Handlers) HealthcheckHead(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.ready(ctx); err != nil {
			h.Logger.Warn("healthcheck failed", logx.String("req_id", reqID(r.Context())), logx.Err(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// NotFound returns a JSON 404 error for unknown routes.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(h.Logger, w, r, http.StatusNotFound, "route not found")
}
