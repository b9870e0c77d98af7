package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const (
	testSigningKey = "0123456789abcdef0123456789abcdef"
	testPairingKey = "fedcba9876543210fedcba9876543210"
)

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "jwt-secret")
	t.Setenv("SESSION_SIGNING_KEY", testSigningKey)
	t.Setenv("SESSION_PAIRING_KEY", testPairingKey)
	t.Setenv("CLAIMS_COOLDOWN", "30s")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Auth.JWTSecret != "jwt-secret" {
		t.Errorf("Expected jwt secret from env, got %q", cfg.Auth.JWTSecret)
	}
	if cfg.Claims.Cooldown != 30*time.Second {
		t.Errorf("Expected cooldown 30s, got %v", cfg.Claims.Cooldown)
	}
	if cfg.Session.KioskTTL != 365*24*time.Hour {
		t.Errorf("Expected default kiosk ttl, got %v", cfg.Session.KioskTTL)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Expected sqlite default, got %s", cfg.Database.Driver)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9090
auth:
  jwt_secret: file-secret
session:
  signing_key: ` + testSigningKey + `
  pairing_key: ` + testPairingKey + `
database:
  driver: postgres
  url: postgres://localhost/ukepenger
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9090 || cfg.Database.Driver != "postgres" {
		t.Errorf("Unexpected config: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Auth:    AuthConfig{JWTSecret: "x"},
			Session: SessionConfig{SigningKey: testSigningKey, PairingKey: testPairingKey},
			Claims:  ClaimsConfig{Cooldown: time.Second},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "Valid", mutate: func(c *Config) {}},
		{name: "Missing JWT Secret", mutate: func(c *Config) { c.Auth.JWTSecret = "" }, wantErr: true},
		{name: "Short Signing Key", mutate: func(c *Config) { c.Session.SigningKey = "short" }, wantErr: true},
		{name: "Short Pairing Key", mutate: func(c *Config) { c.Session.PairingKey = "short" }, wantErr: true},
		{name: "Zero Cooldown", mutate: func(c *Config) { c.Claims.Cooldown = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
