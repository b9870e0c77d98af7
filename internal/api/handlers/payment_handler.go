package handlers

import (
	"net/http"

	"ukepenger/internal/engine/payments"
	"ukepenger/internal/pkg/errors"
	"ukepenger/internal/pkg/validator"
	"ukepenger/internal/platform/audit"
	"ukepenger/internal/platform/models"
)

type PaymentHandler struct {
	payments *payments.Service
	audit    *audit.Logger
}

func NewPaymentHandler(svc *payments.Service, auditLogger *audit.Logger) *PaymentHandler {
	return &PaymentHandler{payments: svc, audit: auditLogger}
}

type createPaymentRequest struct {
	ChildID  string               `json:"childId" validate:"required"`
	ClaimIDs []string             `json:"claimIds"`
	Method   models.PaymentMethod `json:"method" validate:"required"`
	Note     string               `json:"note" validate:"max=500"`
}

// Create serves POST /payments.
func (h *PaymentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createPaymentRequest
	if err := validator.DecodeJSON(r, &req); err != nil {
		errors.Respond(w, err)
		return
	}

	a := actor(r)
	result, err := h.payments.CreatePayment(r.Context(), payments.CreateInput{
		FamilyID:  a.FamilyID,
		ChildID:   req.ChildID,
		ClaimIDs:  req.ClaimIDs,
		Method:    req.Method,
		Note:      req.Note,
		CreatedBy: a.UserID,
	})
	if err != nil {
		errors.Respond(w, err)
		return
	}
	h.audit.Log(r.Context(), auditEntry(r, audit.ActionPaymentCreated, "payment", result.PaymentID, map[string]interface{}{
		"child_id":   req.ChildID,
		"claims":     result.Claims,
		"amount_ore": result.AmountOre,
		"method":     string(req.Method),
	}))

	writeJSON(w, http.StatusCreated, result)
}

// List serves GET /payments?childId.
func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.payments.ListPayments(r.Context(), actor(r).FamilyID, r.URL.Query().Get("childId"))
	if err != nil {
		errors.Respond(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"payments": list})
}

type deletePaymentRequest struct {
	PaymentID string `json:"paymentId"`
}

// Delete serves POST /payments/:id/delete. A paymentId in the body must
// name the same payment as the path.
func (h *PaymentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req deletePaymentRequest
	if err := validator.DecodeJSON(r, &req); err != nil {
		errors.Respond(w, err)
		return
	}
	paymentID := param(r, "id")
	if req.PaymentID != "" && req.PaymentID != paymentID {
		errors.Respond(w, errors.Invalid("paymentId does not match the path"))
		return
	}

	reverted, err := h.payments.DeletePayment(r.Context(), actor(r).FamilyID, paymentID)
	if err != nil {
		errors.Respond(w, err)
		return
	}
	h.audit.Log(r.Context(), auditEntry(r, audit.ActionPaymentDeleted, "payment", paymentID,
		map[string]interface{}{"reverted_claims": reverted}))

	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "revertedClaims": reverted})
}
