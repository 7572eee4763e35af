package status

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiter_Window(t *testing.T) {
	now := time.Unix(1000, 0)
	l := newRateLimiter(2, time.Minute)
	l.now = func() time.Time { return now }

	if ok, left := l.allow("a"); !ok || left != 1 {
		t.Fatalf("first allow = %v, %d, want true, 1", ok, left)
	}
	if ok, left := l.allow("a"); !ok || left != 0 {
		t.Fatalf("second allow = %v, %d, want true, 0", ok, left)
	}
	if ok, _ := l.allow("a"); ok {
		t.Fatal("third allow should be rejected")
	}
	if ok, _ := l.allow("b"); !ok {
		t.Error("other key should not share the budget")
	}

	now = now.Add(time.Minute + time.Second)
	if ok, _ := l.allow("a"); !ok {
		t.Error("allow after window should succeed")
	}
	if _, ok := l.hits["b"]; ok {
		t.Error("stale key b should have been pruned")
	}
}

func TestClientKey(t *testing.T) {
	tests := []struct {
		remote string
		want   string
	}{
		{"192.0.2.1:1234", "192.0.2.1"},
		{"[::1]:8080", "::1"},
		{"unix", "unix"},
	}

	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = tt.remote
		if got := clientKey(r); got != tt.want {
			t.Errorf("clientKey(%q) = %q, want %q", tt.remote, got, tt.want)
		}
	}
}

func TestStop_RateLimited(t *testing.T) {
	p := &fakePoller{running: true}
	s := NewServer("127.0.0.1:0", "/in", p, nil)

	for i := 0; i < DefaultControlRequests; i++ {
		rec := serve(t, s, http.MethodPost, "/api/stop")
		if rec.Code == http.StatusTooManyRequests {
			t.Fatalf("request %d rate limited too early", i+1)
		}
		if rec.Header().Get("X-RateLimit-Limit") == "" {
			t.Errorf("request %d missing X-RateLimit-Limit", i+1)
		}
	}

	rec := serve(t, s, http.MethodPost, "/api/stop")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q, want 60", rec.Header().Get("Retry-After"))
	}
	if p.stops != 1 {
		t.Errorf("Stop() calls = %d, want 1", p.stops)
	}

	if rec := serve(t, s, http.MethodGet, "/api/status"); rec.Code != http.StatusOK {
		t.Errorf("GET /api/status status = %d, want 200", rec.Code)
	}
}
