package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"
	apiContext "ukepenger/internal/api/context"
	"ukepenger/internal/api/middleware"
	"ukepenger/internal/engine/access"
	"ukepenger/internal/platform/audit"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func param(r *http.Request, name string) string {
	params, _ := r.Context().Value(apiContext.Params).(httprouter.Params)
	return params.ByName(name)
}

func actor(r *http.Request) *access.Actor {
	return middleware.ActorFrom(r.Context())
}

// auditEntry fills the request-derived fields of an audit row.
func auditEntry(r *http.Request, action, resourceType, resourceID string, meta map[string]interface{}) audit.Entry {
	a := actor(r)
	e := audit.Entry{
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Metadata:     meta,
		IPAddress:    middleware.ClientIP(r),
		UserAgent:    r.UserAgent(),
	}
	if a != nil {
		e.FamilyID = a.FamilyID
		e.UserID = a.UserID
		e.DeviceID = a.DeviceID
	}
	return e
}
