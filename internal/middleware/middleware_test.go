package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		cfg        ProxyConfig
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "proxy not trusted",
			cfg:        ProxyConfig{},
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.9"},
			want:       "10.0.0.1",
		},
		{
			name:       "trusted proxy",
			cfg:        ProxyConfig{TrustProxy: true, TrustedProxies: []string{"10.0.0.0/8"}},
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.2"},
			want:       "203.0.113.9",
		},
		{
			name:       "untrusted peer ignores header",
			cfg:        ProxyConfig{TrustProxy: true, TrustedProxies: []string{"10.0.0.0/8"}},
			remoteAddr: "198.51.100.7:1234",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.9"},
			want:       "198.51.100.7",
		},
		{
			name:       "single address entry",
			cfg:        ProxyConfig{TrustProxy: true, TrustedProxies: []string{"192.168.1.5"}},
			remoteAddr: "192.168.1.5:80",
			headers:    map[string]string{"X-Real-IP": "203.0.113.10"},
			want:       "203.0.113.10",
		},
		{
			name:       "all hops trusted",
			cfg:        ProxyConfig{TrustProxy: true, TrustedProxies: []string{"10.0.0.0/8"}},
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "10.1.1.1, 10.2.2.2"},
			want:       "10.1.1.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := ClientIP(tt.cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = ClientIPFromRequest(r)
			}))

			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClientIPFromRequest_Fallback(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.0.2.1:5555"
	assert.Equal(t, "192.0.2.1", ClientIPFromRequest(req))
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{Enabled: true, RequestsPerMin: 60, WriteRequestsPerMin: 1, BurstSize: 2})
	defer rl.Close()
	h := rl.Handler(okHandler)

	do := func(method, path string) int {
		req := httptest.NewRequest(method, path, nil)
		req.RemoteAddr = "192.0.2.1:1000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do("POST", "/api/v1/domains"))
	assert.Equal(t, http.StatusOK, do("POST", "/api/v1/domains"))
	assert.Equal(t, http.StatusTooManyRequests, do("POST", "/api/v1/domains"))

	// Reads draw from a separate bucket.
	assert.Equal(t, http.StatusOK, do("GET", "/api/v1/domains"))

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, do("GET", "/healthz"))
	}
}

func TestRateLimiter_ResponseFormat(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{Enabled: true, RequestsPerMin: 1, BurstSize: 1})
	defer rl.Close()
	h := rl.Handler(okHandler)

	req := httptest.NewRequest("GET", "/api/v1/stats", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	var body map[string]map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", body["error"]["code"])
}

func TestRateLimiter_Sweep(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{RequestsPerMin: 60, BurstSize: 1, CleanupMinutes: 1})
	defer rl.Close()

	rl.allow("192.0.2.1", false)
	rl.sweep(time.Now())
	assert.Len(t, rl.buckets, 1)

	rl.sweep(time.Now().Add(2 * time.Minute))
	assert.Empty(t, rl.buckets)
}

func TestScanFilter(t *testing.T) {
	tests := []struct {
		path    string
		enabled bool
		want    int
	}{
		{"/wp-admin/", true, http.StatusBadRequest},
		{"/WP-ADMIN/", true, http.StatusBadRequest},
		{"/.git/config", true, http.StatusBadRequest},
		{"/.ENV", true, http.StatusBadRequest},
		{"/phpinfo.php", true, http.StatusBadRequest},
		{"/../../etc/passwd", true, http.StatusBadRequest},
		{"/foo%2e%2e/bar", true, http.StatusBadRequest},
		{"/api/v1/domains/alpha.sui", true, http.StatusOK},
		{"/api/v1/resolve/my-site.sui", true, http.StatusOK},
		{"/healthz", true, http.StatusOK},
		{"/wp-admin/", false, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			ScanFilter(tt.enabled)(okHandler).ServeHTTP(rec, httptest.NewRequest("GET", tt.path, nil))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestMaxBodySize(t *testing.T) {
	h := MaxBodySize(1)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name string
		size int
		want int
	}{
		{"small", 10, http.StatusOK},
		{"exact", 1 << 20, http.StatusOK},
		{"too large", 2 << 20, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/v1/domains", strings.NewReader(strings.Repeat("x", tt.size)))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	r := chi.NewRouter()
	r.Use(ClientIP(ProxyConfig{}))
	r.Use(RequestLogger(logger))
	r.Get("/api/v1/domains/{name}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{}`))
	})

	req := httptest.NewRequest("GET", "/api/v1/domains/alpha.sui", nil)
	req.RemoteAddr = "192.0.2.1:1000"
	r.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "/api/v1/domains/{name}", entry["route"])
	assert.Equal(t, float64(404), entry["status"])
	assert.Equal(t, float64(2), entry["bytes"])
	assert.Equal(t, "192.0.2.1", entry["client_ip"])
}
