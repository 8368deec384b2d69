package middleware

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
)

// scannerPrefixes are paths probed by vulnerability scanners. Nothing the
// API serves lives under them.
var scannerPrefixes = []string{
	"/.env", "/.git/", "/.htaccess", "/.htpasswd", "/.php",
	"/admin/", "/cgi-bin/", "/config.", "/phpinfo", "/phpmyadmin",
	"/server-status", "/shell", "/web-inf/",
	"/wp-admin", "/wp-content", "/wp-includes", "/wp-login", "/xmlrpc.php",
}

var traversalMarkers = []string{"../", "..%2f", "..%5c", "%2e%2e/", "%00"}

// ScanFilter answers scanner probes and traversal attempts with a generic 400.
func ScanFilter(enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if suspicious(r.URL) {
				writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func suspicious(u *url.URL) bool {
	path := strings.ToLower(u.Path)
	for _, p := range scannerPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}

	candidates := []string{path}
	raw := u.RawPath
	if raw == "" {
		raw = u.Path
	}
	if decoded, err := url.PathUnescape(raw); err == nil {
		candidates = append(candidates, strings.ToLower(decoded))
	}
	for _, c := range candidates {
		for _, m := range traversalMarkers {
			if strings.Contains(c, m) {
				return true
			}
		}
	}
	return false
}

// MaxBodySize caps request bodies at maxMB megabytes.
func MaxBodySize(maxMB int) func(http.Handler) http.Handler {
	limit := int64(maxMB) << 20
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}
