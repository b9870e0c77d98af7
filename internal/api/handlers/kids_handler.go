package handlers

import (
	"net/http"

	"ukepenger/internal/engine/catalog"
	"ukepenger/internal/engine/claims"
	"ukepenger/internal/pkg/errors"
	"ukepenger/internal/pkg/validator"
	"ukepenger/internal/platform/models"
)

// KidsHandler serves the kiosk-facing child screens.
type KidsHandler struct {
	catalog *catalog.Service
	claims  *claims.Service
	cookies Cookies
}

func NewKidsHandler(catalogSvc *catalog.Service, claimsSvc *claims.Service, cookies Cookies) *KidsHandler {
	return &KidsHandler{catalog: catalogSvc, claims: claimsSvc, cookies: cookies}
}

// Bootstrap serves GET /kids/bootstrap.
func (h *KidsHandler) Bootstrap(w http.ResponseWriter, r *http.Request) {
	children, err := h.catalog.ListChildren(r.Context(), actor(r).FamilyID, true)
	if err != nil {
		errors.Respond(w, err)
		return
	}

	// The pin only counts while it names an active child of this family.
	var selected *string
	if pin := h.cookies.ChildPin(r); pin != "" {
		for _, c := range children {
			if c.ID == pin {
				selected = &c.ID
				break
			}
		}
	}

	writeJSON(w, http.StatusOK, struct {
		Children        []*models.Child `json:"children"`
		SelectedChildID *string         `json:"selectedChildId"`
		Avatars         []string        `json:"avatars"`
	}{children, selected, models.Avatars})
}

// Tasks serves GET /kids/tasks?childId.
func (h *KidsHandler) Tasks(w http.ResponseWriter, r *http.Request) {
	childID := r.URL.Query().Get("childId")
	if childID == "" {
		errors.Respond(w, errors.Invalid("childId is required"))
		return
	}

	board, err := h.claims.ListVisibleTasks(r.Context(), actor(r).FamilyID, childID)
	if err != nil {
		errors.Respond(w, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

type submitClaimRequest struct {
	ChildID string `json:"childId" validate:"required"`
	TaskID  string `json:"taskId" validate:"required"`
}

// Claim serves POST /kids/claim and POST /claims.
func (h *KidsHandler) Claim(w http.ResponseWriter, r *http.Request) {
	var req submitClaimRequest
	if err := validator.DecodeJSON(r, &req); err != nil {
		errors.Respond(w, err)
		return
	}

	claim, err := h.claims.SubmitClaim(r.Context(), actor(r).FamilyID, req.ChildID, req.TaskID)
	if err != nil {
		errors.Respond(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":      true,
		"status":  claim.Status,
		"claimId": claim.ID,
	})
}
