package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func limitedHandler(rl *RateLimiter) http.Handler {
	return rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func hit(h http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", http.NoBody)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiterBurstThenReject(t *testing.T) {
	h := limitedHandler(NewRateLimiter(1, 3))

	for i := range 3 {
		if rec := hit(h, "192.168.1.1:5000"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}
	rec := hit(h, "192.168.1.1:5001")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

func TestRateLimiterPerClient(t *testing.T) {
	h := limitedHandler(NewRateLimiter(1, 1))

	hit(h, "10.0.0.1:1")
	if rec := hit(h, "10.0.0.1:2"); rec.Code != http.StatusTooManyRequests {
		t.Errorf("10.0.0.1: expected 429, got %d", rec.Code)
	}
	if rec := hit(h, "10.0.0.2:1"); rec.Code != http.StatusOK {
		t.Errorf("10.0.0.2: expected 200, got %d", rec.Code)
	}
}

func TestRateLimiterRefills(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	rl := NewRateLimiter(1, 1)
	rl.now = func() time.Time { return now }
	h := limitedHandler(rl)

	hit(h, "10.0.0.1:1")
	if rec := hit(h, "10.0.0.1:1"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	now = now.Add(time.Second)
	if rec := hit(h, "10.0.0.1:1"); rec.Code != http.StatusOK {
		t.Errorf("after refill: expected 200, got %d", rec.Code)
	}
}

func TestRateLimiterUsesBridgedAddress(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	h := ProxyBridge(stubLookup{}, "proxy_key")(limitedHandler(rl))

	send := func(xff string) int {
		req := httptest.NewRequest(http.MethodPost, "/", http.NoBody)
		req.RemoteAddr = "10.0.0.1:443"
		req.Header.Set("X-Forwarded-For", xff)
		req.AddCookie(&http.Cookie{Name: "proxy_key", Value: "abc"})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send("9.9.9.9, 10.0.0.1"); code != http.StatusOK {
		t.Fatalf("first client: %d", code)
	}
	if code := send("8.8.8.8, 10.0.0.1"); code != http.StatusOK {
		t.Errorf("second client behind the same proxy was throttled: %d", code)
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	rl := NewRateLimiter(1, 1)
	rl.now = func() time.Time { return now }
	h := limitedHandler(rl)

	hit(h, "10.0.0.1:1")
	hit(h, "10.0.0.2:1")
	now = now.Add(time.Hour)
	rl.cleanup(time.Minute)
	if n := rl.Len(); n != 0 {
		t.Errorf("tracked clients = %d, want 0", n)
	}
}
