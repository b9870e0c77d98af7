package middleware

import (
	"context"
	"net/http"

	apiContext "ukepenger/internal/api/context"
	"ukepenger/internal/pkg/errors"
	"ukepenger/internal/platform/database"
	"ukepenger/internal/platform/models"
	"ukepenger/internal/platform/repositories"
)

// TenantMiddleware loads the actor's family so handlers work against a
// verified tenant row.
type TenantMiddleware struct {
	db database.Querier
}

func NewTenantMiddleware(db database.Querier) *TenantMiddleware {
	return &TenantMiddleware{db: db}
}

func (m *TenantMiddleware) Handle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := ActorFrom(r.Context())
		if actor == nil {
			errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "No actor resolved", nil)
			return
		}

		family, err := repositories.NewFamilyRepository(m.db).GetByID(r.Context(), actor.FamilyID)
		if err != nil {
			errors.Respond(w, errors.Internal(err))
			return
		}
		if family == nil {
			errors.WriteError(w, http.StatusForbidden, errors.ErrCodeForbidden, "Family not found", nil)
			return
		}

		ctx := context.WithValue(r.Context(), apiContext.Family, family)
		next(w, r.WithContext(ctx))
	}
}

func FamilyFrom(ctx context.Context) *models.Family {
	family, _ := ctx.Value(apiContext.Family).(*models.Family)
	return family
}
