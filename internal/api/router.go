package api

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"
	apiContext "ukepenger/internal/api/context"
	"ukepenger/internal/api/handlers"
	"ukepenger/internal/api/middleware"
	"ukepenger/internal/pkg/errors"
)

type Dependencies struct {
	PairingHandler   *handlers.PairingHandler
	KidsHandler      *handlers.KidsHandler
	ClaimHandler     *handlers.ClaimHandler
	PaymentHandler   *handlers.PaymentHandler
	CatalogHandler   *handlers.CatalogHandler
	AuditHandler     *handlers.AuditHandler
	HealthHandler    *handlers.HealthHandler
	AuthMiddleware   *middleware.AuthMiddleware
	TenantMiddleware *middleware.TenantMiddleware
	RateLimiter      *middleware.RateLimiter
	PairingPerMinute int
}

func NewRouter(deps *Dependencies) *httprouter.Router {
	router := httprouter.New()
	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Route not found", nil)
	})

	router.GET("/healthz", wrap(deps.HealthHandler.Check))

	authMid := deps.AuthMiddleware
	tenantMid := deps.TenantMiddleware
	pairingLimit := deps.RateLimiter.Limit("pairing", deps.PairingPerMinute)

	// Public pairing redemption
	router.GET("/kiosk/claim", chain(deps.PairingHandler.ClaimKiosk, pairingLimit))
	router.GET("/kiosk/child/claim", chain(deps.PairingHandler.ClaimChild, pairingLimit))
	router.POST("/kiosk/logout", wrap(deps.PairingHandler.Logout))

	// Devices
	router.POST("/devices/pairing",
		chain(deps.PairingHandler.IssueDevice, authMid.RequireAdmin, tenantMid.Handle))
	router.GET("/devices",
		chain(deps.PairingHandler.ListDevices, authMid.RequireAdmin, tenantMid.Handle))
	router.DELETE("/devices/:id",
		chain(deps.PairingHandler.RevokeDevice, authMid.RequireAdmin, tenantMid.Handle))

	// Family settings
	router.GET("/family",
		chain(deps.CatalogHandler.GetFamily, authMid.RequireAdmin, tenantMid.Handle))
	router.PATCH("/family",
		chain(deps.CatalogHandler.UpdateFamily, authMid.RequireAdmin, tenantMid.Handle))

	// Children
	router.GET("/children",
		chain(deps.CatalogHandler.ListChildren, authMid.RequireAdmin, tenantMid.Handle))
	router.POST("/children",
		chain(deps.CatalogHandler.CreateChild, authMid.RequireAdmin, tenantMid.Handle))
	router.PATCH("/children/:id",
		chain(deps.CatalogHandler.UpdateChild, authMid.RequireAdmin, tenantMid.Handle))
	router.GET("/children/:id/tasks",
		chain(deps.CatalogHandler.ChildTasks, authMid.RequireAdmin, tenantMid.Handle))
	router.PUT("/children/:id/tasks/:taskId",
		chain(deps.CatalogHandler.SetChildTask, authMid.RequireAdmin, tenantMid.Handle))
	router.POST("/children/:id/pairing",
		chain(deps.PairingHandler.IssueChild, authMid.RequireAdmin, tenantMid.Handle))

	// Tasks
	router.GET("/tasks",
		chain(deps.CatalogHandler.ListTasks, authMid.RequireAdmin, tenantMid.Handle))
	router.POST("/tasks",
		chain(deps.CatalogHandler.CreateTask, authMid.RequireAdmin, tenantMid.Handle))
	router.PATCH("/tasks/:id",
		chain(deps.CatalogHandler.UpdateTask, authMid.RequireAdmin, tenantMid.Handle))

	// Kiosk
	router.GET("/kids/bootstrap",
		chain(deps.KidsHandler.Bootstrap, authMid.RequireKiosk, tenantMid.Handle))
	router.GET("/kids/tasks",
		chain(deps.KidsHandler.Tasks, authMid.RequireKiosk, tenantMid.Handle))
	router.POST("/kids/claim",
		chain(deps.KidsHandler.Claim, authMid.RequireKiosk, tenantMid.Handle))

	// Claims
	router.POST("/claims",
		chain(deps.KidsHandler.Claim, authMid.RequireActor, tenantMid.Handle))
	router.GET("/claims",
		chain(deps.ClaimHandler.List, authMid.RequireAdmin, tenantMid.Handle))
	router.POST("/claims/:id/decision",
		chain(deps.ClaimHandler.Decide, authMid.RequireAdmin, tenantMid.Handle))

	// Payments
	router.POST("/payments",
		chain(deps.PaymentHandler.Create, authMid.RequireAdmin, tenantMid.Handle))
	router.GET("/payments",
		chain(deps.PaymentHandler.List, authMid.RequireAdmin, tenantMid.Handle))
	router.POST("/payments/:id/delete",
		chain(deps.PaymentHandler.Delete, authMid.RequireAdmin, tenantMid.Handle))

	// Audit
	router.GET("/audit",
		chain(deps.AuditHandler.List, authMid.RequireAdmin, tenantMid.Handle))

	return router
}

// Helper function to chain middlewares
func chain(handler http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) httprouter.Handle {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return wrap(handler)
}

// Convert http.HandlerFunc to httprouter.Handle
func wrap(handler http.HandlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx := context.WithValue(r.Context(), apiContext.Params, ps)
		handler(w, r.WithContext(ctx))
	}
}
