package utils

import (
	"net/http/httptest"
	"testing"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remote     string
		headers    map[string]string
		trustProxy bool
		want       string
	}{
		{name: "remote addr", remote: "10.0.0.5:41234", want: "10.0.0.5"},
		{name: "headers ignored without trust", remote: "10.0.0.5:1", headers: map[string]string{"X-Forwarded-For": "1.2.3.4"}, want: "10.0.0.5"},
		{name: "cloudflare first", remote: "127.0.0.1:1", headers: map[string]string{"CF-Connecting-IP": "9.9.9.9", "X-Forwarded-For": "1.2.3.4"}, trustProxy: true, want: "9.9.9.9"},
		{name: "left-most forwarded", remote: "127.0.0.1:1", headers: map[string]string{"X-Forwarded-For": " 1.2.3.4 , 5.6.7.8"}, trustProxy: true, want: "1.2.3.4"},
		{name: "real ip", remote: "127.0.0.1:1", headers: map[string]string{"X-Real-IP": "4.4.4.4"}, trustProxy: true, want: "4.4.4.4"},
		{name: "trust without headers", remote: "[::1]:8080", trustProxy: true, want: "::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := ClientIP(r, tt.trustProxy); got != tt.want {
				t.Errorf("ClientIP() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIPMatcher(t *testing.T) {
	m := NewIPMatcher([]string{"192.168.1.0/24", " 10.0.0.1 ", "fd00::/8", "garbage", ""})

	tests := []struct {
		ip   string
		want bool
	}{
		{ip: "192.168.1.77", want: true},
		{ip: "192.168.2.1", want: false},
		{ip: "10.0.0.1", want: true},
		{ip: "::ffff:10.0.0.1", want: true},
		{ip: "10.0.0.2", want: false},
		{ip: "fd12::1", want: true},
		{ip: "not-an-ip", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			if got := m.Allow(tt.ip); got != tt.want {
				t.Errorf("Allow(%q) = %v, want %v", tt.ip, got, tt.want)
			}
		})
	}

	if m.IsEmpty() {
		t.Error("IsEmpty() = true with valid rules")
	}
	if !NewIPMatcher([]string{"nope"}).IsEmpty() {
		t.Error("IsEmpty() = false with only invalid rules")
	}
}
