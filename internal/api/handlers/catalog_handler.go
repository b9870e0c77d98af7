package handlers

import (
	"net/http"

	"ukepenger/internal/api/middleware"
	"ukepenger/internal/engine/catalog"
	"ukepenger/internal/pkg/errors"
	"ukepenger/internal/pkg/validator"
	"ukepenger/internal/platform/audit"
	"ukepenger/internal/platform/models"
)

// CatalogHandler serves family settings, children and tasks.
type CatalogHandler struct {
	catalog *catalog.Service
	audit   *audit.Logger
}

func NewCatalogHandler(svc *catalog.Service, auditLogger *audit.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: svc, audit: auditLogger}
}

// GetFamily serves GET /family. The tenant middleware has already loaded it.
func (h *CatalogHandler) GetFamily(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, middleware.FamilyFrom(r.Context()))
}

type updateFamilyRequest struct {
	ApprovalMode models.ApprovalMode `json:"approval_mode" validate:"required,oneof=REQUIRE_APPROVAL AUTO_APPROVE"`
}

func (h *CatalogHandler) UpdateFamily(w http.ResponseWriter, r *http.Request) {
	var req updateFamilyRequest
	if err := validator.DecodeJSON(r, &req); err != nil {
		errors.Respond(w, err)
		return
	}

	before := middleware.FamilyFrom(r.Context())
	family, err := h.catalog.SetApprovalMode(r.Context(), actor(r).FamilyID, req.ApprovalMode)
	if err != nil {
		errors.Respond(w, err)
		return
	}
	if before != nil && before.ApprovalMode != family.ApprovalMode {
		h.audit.Log(r.Context(), auditEntry(r, audit.ActionApprovalMode, "family", family.ID, map[string]interface{}{
			"from": string(before.ApprovalMode),
			"to":   string(family.ApprovalMode),
		}))
	}
	writeJSON(w, http.StatusOK, family)
}

// ListChildren serves GET /children?active=true.
func (h *CatalogHandler) ListChildren(w http.ResponseWriter, r *http.Request) {
	children, err := h.catalog.ListChildren(r.Context(), actor(r).FamilyID, r.URL.Query().Get("active") == "true")
	if err != nil {
		errors.Respond(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"children": children, "avatars": models.Avatars})
}

type createChildRequest struct {
	Name      string `json:"name" validate:"required,max=60"`
	AvatarKey string `json:"avatar_key"`
}

func (h *CatalogHandler) CreateChild(w http.ResponseWriter, r *http.Request) {
	var req createChildRequest
	if err := validator.DecodeJSON(r, &req); err != nil {
		errors.Respond(w, err)
		return
	}

	child, err := h.catalog.CreateChild(r.Context(), actor(r).FamilyID, catalog.ChildInput{Name: req.Name, AvatarKey: req.AvatarKey})
	if err != nil {
		errors.Respond(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, child)
}

type updateChildRequest struct {
	Name      *string `json:"name" validate:"omitempty,max=60"`
	AvatarKey *string `json:"avatar_key"`
	Active    *bool   `json:"active"`
}

func (h *CatalogHandler) UpdateChild(w http.ResponseWriter, r *http.Request) {
	var req updateChildRequest
	if err := validator.DecodeJSON(r, &req); err != nil {
		errors.Respond(w, err)
		return
	}

	child, err := h.catalog.UpdateChild(r.Context(), actor(r).FamilyID, param(r, "id"), catalog.ChildPatch{
		Name:      req.Name,
		AvatarKey: req.AvatarKey,
		Active:    req.Active,
	})
	if err != nil {
		errors.Respond(w, err)
		return
	}
	writeJSON(w, http.StatusOK, child)
}

// ChildTasks serves GET /children/:id/tasks.
func (h *CatalogHandler) ChildTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.catalog.ChildTasks(r.Context(), actor(r).FamilyID, param(r, "id"))
	if err != nil {
		errors.Respond(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tasks": tasks})
}

type childTaskRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// SetChildTask serves PUT /children/:id/tasks/:taskId.
func (h *CatalogHandler) SetChildTask(w http.ResponseWriter, r *http.Request) {
	var req childTaskRequest
	if err := validator.DecodeJSON(r, &req); err != nil {
		errors.Respond(w, err)
		return
	}

	setting, err := h.catalog.SetTaskEnabled(r.Context(), actor(r).FamilyID, param(r, "id"), param(r, "taskId"), *req.Enabled)
	if err != nil {
		errors.Respond(w, err)
		return
	}
	writeJSON(w, http.StatusOK, setting)
}

func (h *CatalogHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.catalog.ListTasks(r.Context(), actor(r).FamilyID, r.URL.Query().Get("active") == "true")
	if err != nil {
		errors.Respond(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tasks": tasks})
}

type createTaskRequest struct {
	Title     string `json:"title" validate:"required,max=120"`
	AmountOre int64  `json:"amount_ore" validate:"gte=0,lte=100000000"`
}

func (h *CatalogHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := validator.DecodeJSON(r, &req); err != nil {
		errors.Respond(w, err)
		return
	}

	task, err := h.catalog.CreateTask(r.Context(), actor(r).FamilyID, catalog.TaskInput{Title: req.Title, AmountOre: req.AmountOre})
	if err != nil {
		errors.Respond(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

type updateTaskRequest struct {
	Title     *string `json:"title" validate:"omitempty,max=120"`
	AmountOre *int64  `json:"amount_ore" validate:"omitempty,gte=0,lte=100000000"`
	Active    *bool   `json:"active"`
}

func (h *CatalogHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	var req updateTaskRequest
	if err := validator.DecodeJSON(r, &req); err != nil {
		errors.Respond(w, err)
		return
	}

	task, err := h.catalog.UpdateTask(r.Context(), actor(r).FamilyID, param(r, "id"), catalog.TaskPatch{
		Title:     req.Title,
		AmountOre: req.AmountOre,
		Active:    req.Active,
	})
	if err != nil {
		errors.Respond(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}
