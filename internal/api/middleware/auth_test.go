package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ukepenger/internal/engine/access"
	"ukepenger/internal/engine/pairing"
	"ukepenger/internal/platform/auth"
	"ukepenger/internal/platform/config"
	"ukepenger/internal/platform/database/dbtest"
	"ukepenger/internal/platform/models"
)

func TestAuthMiddleware(t *testing.T) {
	db := dbtest.Open(t)
	tokens := auth.NewTokenService(config.AuthConfig{JWTSecret: "middleware-secret", AccessTokenTTL: time.Minute})
	sessions := pairing.NewService(db, "signing-key-signing-key-signing-key", "pairing-key-pairing-key-pairing-key", "http://localhost")
	mw := NewAuthMiddleware(access.NewResolver(db, tokens, sessions, "uk_kiosk"))

	adminToken, _ := tokens.GenerateAccessToken("user-1", "user@example.com")
	family := dbtest.Family(t, db, models.ApprovalAuto)
	p, err := sessions.IssuePairing(context.Background(), family.ID, false)
	if err != nil {
		t.Fatalf("IssuePairing() error = %v", err)
	}
	sess, err := sessions.ClaimPairing(context.Background(), p.Code, p.Secret)
	if err != nil {
		t.Fatalf("ClaimPairing() error = %v", err)
	}

	tests := []struct {
		name       string
		middleware func(http.HandlerFunc) http.HandlerFunc
		bearer     string
		cookie     string
		wantStatus int
		wantKind   access.Kind
	}{
		{name: "Admin Route With Token", middleware: mw.RequireAdmin, bearer: adminToken, wantStatus: http.StatusOK, wantKind: access.KindAdmin},
		{name: "Admin Route With Cookie", middleware: mw.RequireAdmin, cookie: sess.Cookie, wantStatus: http.StatusUnauthorized},
		{name: "Kiosk Route With Cookie", middleware: mw.RequireKiosk, cookie: sess.Cookie, wantStatus: http.StatusOK, wantKind: access.KindKiosk},
		{name: "Kiosk Route With Token", middleware: mw.RequireKiosk, bearer: adminToken, wantStatus: http.StatusUnauthorized},
		{name: "Either With Cookie", middleware: mw.RequireActor, cookie: sess.Cookie, wantStatus: http.StatusOK, wantKind: access.KindKiosk},
		{name: "Either With Nothing", middleware: mw.RequireActor, wantStatus: http.StatusUnauthorized},
		{name: "Expired Token", middleware: mw.RequireAdmin, bearer: expiredToken(t), wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest("GET", "/", nil)
			if tt.bearer != "" {
				req.Header.Set("Authorization", "Bearer "+tt.bearer)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "uk_kiosk", Value: tt.cookie})
			}

			rr := httptest.NewRecorder()
			handler := tt.middleware(func(w http.ResponseWriter, r *http.Request) {
				a := ActorFrom(r.Context())
				if a == nil || a.Kind != tt.wantKind {
					t.Errorf("Expected actor kind %s, got %+v", tt.wantKind, a)
				}
				w.WriteHeader(http.StatusOK)
			})
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, tt.wantStatus)
			}
		})
	}
}

func expiredToken(t *testing.T) string {
	t.Helper()
	svc := auth.NewTokenService(config.AuthConfig{JWTSecret: "middleware-secret", AccessTokenTTL: -time.Minute})
	tok, err := svc.GenerateAccessToken("user-1", "")
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}
	return tok
}
