// Package auth provides authentication middleware and API key management.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// Context key type for avoiding collisions
type contextKey string

const apiKeyContextKey contextKey = "apiKey"

// Validator resolves a plaintext API key.
type Validator interface {
	ValidateAPIKey(ctx context.Context, key string) (*APIKey, error)
}

// WithAPIKey returns a copy of ctx carrying the authenticated key.
func WithAPIKey(ctx context.Context, key *APIKey) context.Context {
	return context.WithValue(ctx, apiKeyContextKey, key)
}

// GetKeyNameFromContext returns the name of the authenticated key, if any.
func GetKeyNameFromContext(ctx context.Context) string {
	if key, ok := ctx.Value(apiKeyContextKey).(*APIKey); ok && key != nil {
		return key.Name
	}
	return ""
}

// Middleware returns an HTTP middleware that validates API keys.
func Middleware(store Validator, writeError func(w http.ResponseWriter, status int, code, message string)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := keyFromRequest(r)
			if apiKey == "" {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "API key required")
				return
			}

			key, err := store.ValidateAPIKey(r.Context(), apiKey)
			if errors.Is(err, ErrKeyNotFound) {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid API key")
				return
			}
			if err != nil {
				writeError(w, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "Storage is temporarily unavailable")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAPIKey(r.Context(), key)))
		})
	}
}

func keyFromRequest(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}
