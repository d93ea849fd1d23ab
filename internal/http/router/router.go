package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"trucking-dispatch-core/internal/http/handlers"
)

// Middlewares are applied after the base chi stack, in order.
type Middlewares []func(http.Handler) http.Handler

// New constructs a chi-based http.Handler with base middleware and routes.
func New(
	h *handlers.Handlers,
	dispatch *handlers.DispatchHandler,
	reconcile *handlers.ReconcileHandler,
	extra Middlewares,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(extra...)

	r.Get("/ping", h.Ping)
	r.Method(http.MethodHead, "/healthcheck", http.HandlerFunc(h.HealthcheckHead))

	r.Group(func(r chi.Router) {
		// row locks wait up to lock_timeout, the rest of the budget is for the writes
		r.Use(middleware.Timeout(10 * time.Second))

		r.Post("/dispatches/{id}/status", dispatch.ChangeStatus)
		r.Post("/availability", dispatch.CheckAvailability)
		r.Post("/assignments", dispatch.CreateAssignment)
		r.Patch("/assignments/{id}/window", dispatch.UpdateAssignmentWindow)

		r.Get("/tenants/{tenantID}/inconsistencies", reconcile.Detect)
		r.Post("/tenants/{tenantID}/inconsistencies/fix", reconcile.Fix)
	})

	r.NotFound(http.HandlerFunc(h.NotFound))

	return r
}
