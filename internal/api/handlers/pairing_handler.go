package handlers

import (
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"
	"ukepenger/internal/engine/pairing"
	"ukepenger/internal/pkg/errors"
	"ukepenger/internal/pkg/parser"
	"ukepenger/internal/pkg/validator"
	"ukepenger/internal/platform/audit"
)

const (
	kidsPath  = "/kids"
	kioskPath = "/kiosk"
)

type PairingHandler struct {
	pairing *pairing.Service
	audit   *audit.Logger
	cookies Cookies
}

func NewPairingHandler(svc *pairing.Service, auditLogger *audit.Logger, cookies Cookies) *PairingHandler {
	return &PairingHandler{pairing: svc, audit: auditLogger, cookies: cookies}
}

type pairingRequest struct {
	Regenerate bool `json:"regenerate"`
}

// IssueDevice serves POST /devices/pairing.
func (h *PairingHandler) IssueDevice(w http.ResponseWriter, r *http.Request) {
	var req pairingRequest
	if err := validator.DecodeJSON(r, &req); err != nil {
		errors.Respond(w, err)
		return
	}

	a := actor(r)
	p, err := h.pairing.IssuePairing(r.Context(), a.FamilyID, req.Regenerate)
	if err != nil {
		errors.Respond(w, err)
		return
	}

	action := audit.ActionPairingIssued
	if p.Regenerated {
		action = audit.ActionPairingRotated
	}
	h.audit.Log(r.Context(), auditEntry(r, action, "device", p.DeviceID, nil))

	writeJSON(w, http.StatusOK, p)
}

// ListDevices serves GET /devices.
func (h *PairingHandler) ListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := h.pairing.ListDevices(r.Context(), actor(r).FamilyID)
	if err != nil {
		errors.Respond(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"devices": devices})
}

// RevokeDevice serves DELETE /devices/:id.
func (h *PairingHandler) RevokeDevice(w http.ResponseWriter, r *http.Request) {
	deviceID := param(r, "id")
	if err := h.pairing.Revoke(r.Context(), actor(r).FamilyID, deviceID); err != nil {
		errors.Respond(w, err)
		return
	}
	h.audit.Log(r.Context(), auditEntry(r, audit.ActionDeviceRevoked, "device", deviceID, nil))
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}

// IssueChild serves POST /children/:id/pairing.
func (h *PairingHandler) IssueChild(w http.ResponseWriter, r *http.Request) {
	var req pairingRequest
	if err := validator.DecodeJSON(r, &req); err != nil {
		errors.Respond(w, err)
		return
	}

	childID := param(r, "id")
	p, err := h.pairing.IssueChildPairing(r.Context(), actor(r).FamilyID, childID, req.Regenerate)
	if err != nil {
		errors.Respond(w, err)
		return
	}
	h.audit.Log(r.Context(), auditEntry(r, audit.ActionChildPairingIssued, "child", childID,
		map[string]interface{}{"regenerate": req.Regenerate}))

	writeJSON(w, http.StatusOK, p)
}

// ClaimKiosk serves GET /kiosk/claim?code&secret.
func (h *PairingHandler) ClaimKiosk(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sess, err := h.pairing.ClaimPairing(r.Context(), q.Get("code"), q.Get("secret"))
	if err != nil {
		h.claimFailed(w, r, err, false)
		return
	}

	h.cookies.SetKiosk(w, r, sess.Cookie)
	h.logClaim(r, audit.ActionDeviceClaimed, sess, "device", sess.DeviceID)
	http.Redirect(w, r, kidsPath, http.StatusSeeOther)
}

// ClaimChild serves GET /kiosk/child/claim?code&secret.
func (h *PairingHandler) ClaimChild(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sess, err := h.pairing.ClaimChildPairing(r.Context(), q.Get("code"), q.Get("secret"), h.cookies.Kiosk(r))
	if err != nil {
		h.claimFailed(w, r, err, true)
		return
	}

	if !sess.Reused {
		h.cookies.SetKiosk(w, r, sess.Cookie)
	}
	h.cookies.SetChildPin(w, r, sess.ChildID)
	h.logClaim(r, audit.ActionChildPaired, &sess.Session, "child", sess.ChildID)
	http.Redirect(w, r, kidsPath, http.StatusSeeOther)
}

// Logout serves POST /kiosk/logout.
func (h *PairingHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.cookies.ClearAll(w, r)
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}

// logClaim records a redemption. There is no actor yet, so the entry is
// attributed to the session's device.
func (h *PairingHandler) logClaim(r *http.Request, action string, sess *pairing.Session, resourceType, resourceID string) {
	client := parser.ClientLabel(r.UserAgent())
	log.Info().
		Str("device_id", sess.DeviceID).
		Str("family_id", sess.FamilyID).
		Str("client", client).
		Msg(action)

	e := auditEntry(r, action, resourceType, resourceID, map[string]interface{}{"client": client})
	e.FamilyID = sess.FamilyID
	e.DeviceID = sess.DeviceID
	h.audit.Log(r.Context(), e)
}

func (h *PairingHandler) claimFailed(w http.ResponseWriter, r *http.Request, err error, child bool) {
	reason := claimErrorReason(err, child)
	if reason == "server_error" {
		log.Error().Err(err).Msg("pairing claim failed")
	}
	http.Redirect(w, r, kioskPath+"?claim_error="+url.QueryEscape(reason), http.StatusSeeOther)
}

func claimErrorReason(err error, child bool) string {
	e, ok := errors.As(err)
	if !ok {
		return "server_error"
	}
	switch e.Code {
	case errors.ErrCodeInvalidInput:
		return "missing_params"
	case errors.ErrCodeInvalidDevice:
		return "invalid_device"
	case errors.ErrCodeInvalidChildQR:
		return "invalid_child_qr"
	case errors.ErrCodeInvalidSecret:
		if child {
			return "invalid_child_qr"
		}
		return "invalid_secret"
	default:
		return "server_error"
	}
}
