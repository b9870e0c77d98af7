package middleware

import (
	"context"
	"net/http"

	apiContext "ukepenger/internal/api/context"
	"ukepenger/internal/engine/access"
	"ukepenger/internal/pkg/errors"
)

// AuthMiddleware attaches the resolved actor to the request context.
type AuthMiddleware struct {
	resolver *access.Resolver
}

func NewAuthMiddleware(resolver *access.Resolver) *AuthMiddleware {
	return &AuthMiddleware{resolver: resolver}
}

func (m *AuthMiddleware) with(resolve func(*http.Request) (*access.Actor, error), next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := resolve(r)
		if err != nil {
			errors.Respond(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), apiContext.Actor, actor)
		next(w, r.WithContext(ctx))
	}
}

// RequireAdmin accepts only a valid identity-provider bearer token.
func (m *AuthMiddleware) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return m.with(m.resolver.ResolveAdmin, next)
}

// RequireKiosk accepts only a live kiosk session cookie.
func (m *AuthMiddleware) RequireKiosk(next http.HandlerFunc) http.HandlerFunc {
	return m.with(m.resolver.ResolveKiosk, next)
}

// RequireActor accepts either credential, bearer token first.
func (m *AuthMiddleware) RequireActor(next http.HandlerFunc) http.HandlerFunc {
	return m.with(m.resolver.Resolve, next)
}

func ActorFrom(ctx context.Context) *access.Actor {
	actor, _ := ctx.Value(apiContext.Actor).(*access.Actor)
	return actor
}
