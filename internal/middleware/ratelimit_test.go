package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter()

	for i := 0; i < 3; i++ {
		if !rl.Allow("client", 3, time.Minute) {
			t.Fatalf("request %d denied under limit", i+1)
		}
	}
	if rl.Allow("client", 3, time.Minute) {
		t.Error("request over limit was allowed")
	}
}

func TestRateLimiterSeparateKeys(t *testing.T) {
	rl := NewRateLimiter()

	if !rl.Allow("a", 1, time.Minute) {
		t.Fatal("first request for key a denied")
	}
	if rl.Allow("a", 1, time.Minute) {
		t.Error("second request for key a allowed")
	}
	if !rl.Allow("b", 1, time.Minute) {
		t.Error("key b throttled by key a's window")
	}
}

func TestRateLimiterWindowReset(t *testing.T) {
	rl := NewRateLimiter()

	if !rl.Allow("client", 1, 20*time.Millisecond) {
		t.Fatal("first request denied")
	}
	if rl.Allow("client", 1, 20*time.Millisecond) {
		t.Fatal("second request in window allowed")
	}

	time.Sleep(30 * time.Millisecond)

	if !rl.Allow("client", 1, 20*time.Millisecond) {
		t.Error("request after window expiry denied")
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter()

	rl.Allow("stale", 5, 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	rl.Allow("fresh", 5, time.Minute)

	rl.Cleanup(15 * time.Millisecond)

	rl.mu.Lock()
	_, staleKept := rl.entries["stale"]
	_, freshKept := rl.entries["fresh"]
	rl.mu.Unlock()

	if staleKept {
		t.Error("stale entry survived cleanup")
	}
	if !freshKept {
		t.Error("fresh entry removed by cleanup")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter()
	handler := RateLimit(rl, 2, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.Header.Set("X-Forwarded-For", ip)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send("10.0.0.1"); code != http.StatusOK {
		t.Errorf("first request status = %d, want %d", code, http.StatusOK)
	}
	if code := send("10.0.0.1"); code != http.StatusOK {
		t.Errorf("second request status = %d, want %d", code, http.StatusOK)
	}
	if code := send("10.0.0.1"); code != http.StatusTooManyRequests {
		t.Errorf("third request status = %d, want %d", code, http.StatusTooManyRequests)
	}
	if code := send("10.0.0.2"); code != http.StatusOK {
		t.Errorf("other client status = %d, want %d", code, http.StatusOK)
	}
}

func TestRealIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		want       string
	}{
		{"remote addr with port", "192.0.2.10:54321", "", "192.0.2.10"},
		{"forwarded single", "10.0.0.1:1234", "203.0.113.7", "203.0.113.7"},
		{"forwarded chain", "10.0.0.1:1234", "203.0.113.7, 10.0.0.2", "203.0.113.7"},
		{"bare remote addr", "192.0.2.10", "", "192.0.2.10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if got := RealIP(req); got != tt.want {
				t.Errorf("RealIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
