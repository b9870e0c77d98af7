package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter()
	defer rl.Stop()

	now := time.Unix(1700000000, 0)
	rl.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if !rl.Allow("k", 3) {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("k", 3) {
		t.Error("Expected bucket to be empty")
	}
	if !rl.Allow("other", 3) {
		t.Error("Expected separate key to have its own bucket")
	}

	now = now.Add(20 * time.Second)
	if !rl.Allow("k", 3) {
		t.Error("Expected one token to be refilled after 20s")
	}
	if rl.Allow("k", 3) {
		t.Error("Expected only one token to be refilled")
	}
}

func TestRateLimiterSweep(t *testing.T) {
	rl := NewRateLimiter()
	defer rl.Stop()

	now := time.Unix(1700000000, 0)
	rl.now = func() time.Time { return now }
	rl.Allow("idle", 5)

	now = now.Add(bucketIdleTTL + time.Second)
	rl.sweep()

	if _, ok := rl.store.Load("idle"); ok {
		t.Error("Expected idle bucket to be removed")
	}
}

func TestLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter()
	defer rl.Stop()

	handler := rl.Limit("pairing", 1)(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		wantStatus int
	}{
		{name: "First Request", remoteAddr: "10.0.0.1:1234", wantStatus: http.StatusOK},
		{name: "Second Request Same Client", remoteAddr: "10.0.0.1:5678", wantStatus: http.StatusTooManyRequests},
		{name: "Different Client", remoteAddr: "10.0.0.2:1234", wantStatus: http.StatusOK},
		{name: "Forwarded Client", remoteAddr: "10.0.0.1:1234", forwarded: "192.168.1.9, 10.0.0.1", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/devices/pairing", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusTooManyRequests && rr.Header().Get("Retry-After") == "" {
				t.Error("Expected Retry-After header")
			}
		})
	}
}
