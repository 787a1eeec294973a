package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrSnakeDoc/sitewatch/internal/logger"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serve(h http.Handler, remote, host string) int {
	r := httptest.NewRequest(http.MethodGet, "/reload", nil)
	r.RemoteAddr = remote
	if host != "" {
		r.Host = host
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w.Code
}

func TestAllowOnlyCIDRS(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		remote  string
		want    int
	}{
		{name: "empty list passes", allowed: nil, remote: "8.8.8.8:1", want: http.StatusOK},
		{name: "inside range", allowed: []string{"10.0.0.0/8"}, remote: "10.1.2.3:1", want: http.StatusOK},
		{name: "outside range", allowed: []string{"10.0.0.0/8"}, remote: "8.8.8.8:1", want: http.StatusForbidden},
		{name: "exact ip", allowed: []string{"127.0.0.1"}, remote: "127.0.0.1:5555", want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := AllowOnlyCIDRS(tt.allowed, false, logger.Nop())(okHandler())
			if got := serve(h, tt.remote, ""); got != tt.want {
				t.Errorf("status = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestEnforceHost(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		host    string
		want    int
	}{
		{name: "empty list passes", host: "anything.test", want: http.StatusOK},
		{name: "exact match", allowed: []string{"status.acme.test"}, host: "status.acme.test", want: http.StatusOK},
		{name: "case insensitive", allowed: []string{"status.acme.test"}, host: "Status.ACME.test", want: http.StatusOK},
		{name: "wildcard subdomain", allowed: []string{"*.acme.test"}, host: "ops.acme.test", want: http.StatusOK},
		{name: "wildcard skips apex", allowed: []string{"*.acme.test"}, host: "acme.test", want: http.StatusForbidden},
		{name: "other host", allowed: []string{"status.acme.test"}, host: "evil.test", want: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := EnforceHost(tt.allowed, logger.Nop())(okHandler())
			if got := serve(h, "127.0.0.1:1", tt.host); got != tt.want {
				t.Errorf("status = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAdminNeedsBoth(t *testing.T) {
	h := Admin([]string{"10.0.0.0/8"}, []string{"ops.test"}, false, logger.Nop())(okHandler())

	if got := serve(h, "10.0.0.1:1", "ops.test"); got != http.StatusOK {
		t.Errorf("allowed ip and host: status = %d, want 200", got)
	}
	if got := serve(h, "10.0.0.1:1", "www.test"); got != http.StatusForbidden {
		t.Errorf("wrong host: status = %d, want 403", got)
	}
	if got := serve(h, "1.1.1.1:1", "ops.test"); got != http.StatusForbidden {
		t.Errorf("wrong ip: status = %d, want 403", got)
	}
}

func TestRateLimit(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	h := RateLimit(RateLimitConfig{
		Burst:             2,
		RefillPerIPPerMin: 60,
		Now:               func() time.Time { return now },
	})(okHandler())

	for i := 0; i < 2; i++ {
		if got := serve(h, "1.2.3.4:1", ""); got != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i, got)
		}
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "1.2.3.4:1"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("third request: status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") != "1" {
		t.Errorf("Retry-After = %q, want 1", w.Header().Get("Retry-After"))
	}

	if got := serve(h, "5.6.7.8:1", ""); got != http.StatusOK {
		t.Errorf("other ip: status = %d, want 200", got)
	}

	now = now.Add(time.Second)
	if got := serve(h, "1.2.3.4:1", ""); got != http.StatusOK {
		t.Errorf("after refill: status = %d, want 200", got)
	}
}

func TestRateLimitOnLimit(t *testing.T) {
	onLimit := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	h := RateLimit(RateLimitConfig{Burst: 1, RefillPerIPPerMin: 1, OnLimit: onLimit})(okHandler())

	serve(h, "1.2.3.4:1", "")
	if got := serve(h, "1.2.3.4:1", ""); got != http.StatusTeapot {
		t.Errorf("throttled status = %d, want custom handler's 418", got)
	}
}

func TestLimiterSweep(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newLimiter(RateLimitConfig{Burst: 5, IdleTTL: time.Minute, SweepInterval: time.Second, Now: func() time.Time { return now }})

	l.allow("a", now)
	l.allow("b", now)
	l.sweepMaybe(now.Add(2 * time.Minute))

	l.mu.Lock()
	n := len(l.buckets)
	l.mu.Unlock()
	if n != 0 {
		t.Errorf("buckets after sweep = %d, want 0", n)
	}
}

func TestStatusWriterDefaultsTo200(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: rec}
	if _, err := sw.Write([]byte("hi")); err != nil {
		t.Fatal(err)
	}
	if sw.status != http.StatusOK || sw.bytes != 2 {
		t.Errorf("statusWriter = %d/%d, want 200/2", sw.status, sw.bytes)
	}
}
