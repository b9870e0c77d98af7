package handlers

import (
	"net/http"
	"strconv"

	"ukepenger/internal/pkg/errors"
	"ukepenger/internal/platform/audit"
)

type AuditHandler struct {
	audit *audit.Logger
}

func NewAuditHandler(logger *audit.Logger) *AuditHandler {
	return &AuditHandler{audit: logger}
}

// List serves GET /audit?limit=.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	records, err := h.audit.List(r.Context(), actor(r).FamilyID, limit)
	if err != nil {
		errors.Respond(w, errors.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": records})
}
