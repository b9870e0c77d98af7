package auth

import (
	"testing"
	"time"

	"ukepenger/internal/platform/config"
)

func TestTokenService(t *testing.T) {
	cfg := config.AuthConfig{
		JWTSecret:      "test-secret",
		Issuer:         "https://id.example.com/auth/v1",
		Audience:       "authenticated",
		AccessTokenTTL: time.Minute,
	}
	svc := NewTokenService(cfg)

	valid, err := svc.GenerateAccessToken("user-1", "parent@example.com")
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	otherIssuer := cfg
	otherIssuer.Issuer = "https://evil.example.com"
	wrongIssuer, _ := NewTokenService(otherIssuer).GenerateAccessToken("user-1", "")

	otherSecret := cfg
	otherSecret.JWTSecret = "other-secret"
	wrongSecret, _ := NewTokenService(otherSecret).GenerateAccessToken("user-1", "")

	expiredCfg := cfg
	expiredCfg.AccessTokenTTL = -time.Minute
	expired, _ := NewTokenService(expiredCfg).GenerateAccessToken("user-1", "")

	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{name: "Valid Token", token: valid, wantErr: false},
		{name: "Wrong Issuer", token: wrongIssuer, wantErr: true},
		{name: "Wrong Secret", token: wrongSecret, wantErr: true},
		{name: "Garbage", token: "not-a-jwt", wantErr: true},
		{name: "Expired", token: expired, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := svc.ValidateToken(tt.token)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateToken() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && claims.Subject != "user-1" {
				t.Errorf("Expected subject user-1, got %s", claims.Subject)
			}
		})
	}
}
