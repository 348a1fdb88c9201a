package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAllowBurstThenLimit(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 60, Burst: 3})
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Fatalf("request %d within burst must be allowed", i+1)
		}
	}
	if rl.Allow("10.0.0.1") {
		t.Fatalf("request beyond burst must be limited")
	}
	if !rl.Allow("10.0.0.2") {
		t.Fatalf("other clients have their own bucket")
	}

	m := rl.GetMetrics()
	if m.TotalHits != 1 || m.ClientCount != 2 {
		t.Fatalf("unexpected metrics %+v", m)
	}
}

func TestCleanupStaleEntries(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 60, IdleTTL: time.Minute})
	defer rl.Stop()

	rl.Allow("a")
	rl.Allow("b")
	if n := rl.cleanupStaleEntries(time.Now()); n != 0 {
		t.Fatalf("fresh clients must be kept, removed %d", n)
	}
	if n := rl.cleanupStaleEntries(time.Now().Add(2 * time.Minute)); n != 2 {
		t.Fatalf("idle clients must be removed, removed %d", n)
	}
	if rl.ActiveClients() != 0 {
		t.Fatalf("expected no tracked clients")
	}
}

func TestMiddleware(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 30, Burst: 1})
	defer rl.Stop()
	rl.Stop()

	h := rl.Middleware(func(*http.Request) string { return "ip" }, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("first request must pass, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request must be limited, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "2" {
		t.Fatalf("unexpected Retry-After %q", rec.Header().Get("Retry-After"))
	}
}
