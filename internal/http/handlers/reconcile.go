package handlers

import (
	"net/http"
	"strconv"

	"trucking-dispatch-core/internal/logx"
)

// ReconcileHandler exposes inconsistency detection and repair per tenant.
type ReconcileHandler struct {
	usecase reconcileUsecase
	logger  logx.Logger
}

// NewReconcileHandler creates a new ReconcileHandler.
func NewReconcileHandler(logger logx.Logger, uc reconcileUsecase) *ReconcileHandler {
	if logger == nil {
		logger = logx.Nop()
	}
	return &ReconcileHandler{usecase: uc, logger: logger}
}

// Detect handles GET /tenants/{tenantID}/inconsistencies.
func (h *ReconcileHandler) Detect(w http.ResponseWriter, r *http.Request) {
	tenantID, err := uuidFromURL(r, "tenantID")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid tenant id")
		return
	}

	report, err := h.usecase.Detect(r.Context(), tenantID)
	if err != nil {
		writeServiceError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, report)
}

// Fix handles POST /tenants/{tenantID}/inconsistencies/fix?dry_run=true.
// The report is taken from the cache or detected afresh.
func (h *ReconcileHandler) Fix(w http.ResponseWriter, r *http.Request) {
	tenantID, err := uuidFromURL(r, "tenantID")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid tenant id")
		return
	}
	dryRun := false
	if raw := r.URL.Query().Get("dry_run"); raw != "" {
		dryRun, err = strconv.ParseBool(raw)
		if err != nil {
			writeError(h.logger, w, r, http.StatusBadRequest, "invalid dry_run")
			return
		}
	}

	res, err := h.usecase.Fix(r.Context(), tenantID, nil, dryRun)
	if err != nil {
		writeServiceError(h.logger, w, r, err)
		return
	}
	writeJSON(h.logger, w, r, http.StatusOK, res)
}
