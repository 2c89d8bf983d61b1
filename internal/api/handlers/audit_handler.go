package handlers

import (
	"net/http"
	"strconv"

	"qrgen/internal/platform/audit"
	apiErrors "qrgen/internal/pkg/errors"
)

type AuditHandler struct {
	logger *audit.Logger
}

// NewAuditHandler accepts a nil logger when auditing is disabled.
func NewAuditHandler(logger *audit.Logger) *AuditHandler {
	return &AuditHandler{logger: logger}
}

func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.logger == nil {
		apiErrors.WriteError(w, http.StatusNotFound, apiErrors.ErrCodeNotFound, "Audit trail is disabled", nil)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	events, err := h.logger.Recent(r.Context(), limit)
	if err != nil {
		apiErrors.WriteError(w, http.StatusInternalServerError, apiErrors.ErrCodeInternal, err.Error(), nil)
		return
	}
	apiErrors.WriteJSON(w, http.StatusOK, events)
}
