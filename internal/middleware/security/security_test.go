package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"saldo/internal/log"
)

func TestClientIP(t *testing.T) {
	d := NewDetector()

	tests := []struct {
		name   string
		remote string
		xff    string
		xri    string
		want   string
	}{
		{"direct", "203.0.113.7:5000", "", "", "203.0.113.7"},
		{"untrusted peer ignores headers", "203.0.113.7:5000", "198.51.100.1", "", "203.0.113.7"},
		{"trusted proxy xff", "10.0.0.2:5000", "198.51.100.1, 10.0.0.3", "", "198.51.100.1"},
		{"trusted proxy real ip", "127.0.0.1:5000", "", "198.51.100.2", "198.51.100.2"},
		{"trusted proxy bad header", "192.168.1.1:5000", "garbage", "", "192.168.1.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			if got := d.ClientIP(r); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestSuspicious(t *testing.T) {
	d := NewDetector()

	tests := []struct {
		method string
		target string
		agent  string
		want   bool
	}{
		{http.MethodGet, "/api/summary?year=2024", "Mozilla/5.0", false},
		{http.MethodGet, "/.env", "", true},
		{http.MethodGet, "/api/transactions?q=union%20select", "", true},
		{http.MethodGet, "/api/transactions?q=UNION+SELECT", "", true},
		{http.MethodGet, "/api/summary?next=%3Cscript%3Ealert(1)", "", true},
		{http.MethodGet, "/api/summary?title=caf%C3%A9", "", false},
		{http.MethodGet, "/api/cycles", "sqlmap/1.0", true},
		{"TRACE", "/", "", true},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(tt.method, tt.target, nil)
		r.Header.Set("User-Agent", tt.agent)
		if got := d.Suspicious(r); got != tt.want {
			t.Errorf("%s %s (%s): expected %v, got %v", tt.method, tt.target, tt.agent, tt.want, got)
		}
	}

	// Malformed escapes fall back to the raw query.
	r := httptest.NewRequest(http.MethodGet, "/api/summary", nil)
	r.URL.RawQuery = "bad=%zz&f=../etc"
	if !d.Suspicious(r) {
		t.Error("expected raw query to be checked when unescaping fails")
	}
}

func TestMiddleware(t *testing.T) {
	d := NewDetector()
	h := d.Middleware(log.Discard())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("TRACE", "/", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for TRACE, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/wp-admin", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("flagged GET should pass through, got %d", rr.Code)
	}
	if d.SuspiciousCount() != 2 {
		t.Errorf("expected 2 flagged requests, got %d", d.SuspiciousCount())
	}
}

func TestHeaders(t *testing.T) {
	h := Headers(DefaultHeadersConfig())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	for _, name := range []string{"X-Content-Type-Options", "X-Frame-Options", "Content-Security-Policy", "Cache-Control"} {
		if rr.Header().Get(name) == "" {
			t.Errorf("missing header %s", name)
		}
	}
	if rr.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS must not be sent over plain HTTP")
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.TLS = &tls.ConnectionState{}
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, r)
	if rr.Header().Get("Strict-Transport-Security") == "" {
		t.Error("expected HSTS over TLS")
	}
}
