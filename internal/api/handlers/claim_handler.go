package handlers

import (
	"net/http"
	"strconv"

	"ukepenger/internal/engine/claims"
	"ukepenger/internal/pkg/errors"
	"ukepenger/internal/pkg/validator"
	"ukepenger/internal/platform/audit"
	"ukepenger/internal/platform/models"
)

// ClaimHandler serves the admin inbox.
type ClaimHandler struct {
	claims *claims.Service
	audit  *audit.Logger
}

func NewClaimHandler(svc *claims.Service, auditLogger *audit.Logger) *ClaimHandler {
	return &ClaimHandler{claims: svc, audit: auditLogger}
}

// List serves GET /claims?status&childId&limit.
func (h *ClaimHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := claims.ListFilter{
		Status:  models.ClaimStatus(q.Get("status")),
		ChildID: q.Get("childId"),
	}
	switch filter.Status {
	case "", models.ClaimSent, models.ClaimApproved, models.ClaimRejected, models.ClaimPaid:
	default:
		errors.Respond(w, errors.Invalid("Unknown claim status"))
		return
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil {
		filter.Limit = limit
	}

	list, err := h.claims.ListClaims(r.Context(), actor(r).FamilyID, filter)
	if err != nil {
		errors.Respond(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"claims": list})
}

type decisionRequest struct {
	Decision models.ClaimStatus `json:"decision" validate:"required,oneof=APPROVED REJECTED"`
}

// Decide serves POST /claims/:id/decision.
func (h *ClaimHandler) Decide(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if err := validator.DecodeJSON(r, &req); err != nil {
		errors.Respond(w, err)
		return
	}

	a := actor(r)
	claim, err := h.claims.DecideClaim(r.Context(), a.FamilyID, param(r, "id"), req.Decision, a.UserID)
	if err != nil {
		errors.Respond(w, err)
		return
	}
	h.audit.Log(r.Context(), auditEntry(r, audit.ActionClaimDecided, "claim", claim.ID,
		map[string]interface{}{"decision": string(req.Decision), "child_id": claim.ChildID}))

	writeJSON(w, http.StatusOK, claim)
}
