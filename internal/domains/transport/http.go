// Package transport provides HTTP handlers for the domains API.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pendergraft/decentradns/internal/domains/domain"
	"github.com/pendergraft/decentradns/internal/observability/metrics"
	"github.com/pendergraft/decentradns/internal/registry"
	"github.com/pendergraft/decentradns/internal/resolver"
)

// Resolver answers simulated lookups.
type Resolver interface {
	Resolve(ctx context.Context, name string) (*resolver.Resolution, error)
	Stats() resolver.Stats
}

// Handler handles HTTP requests for domains, history and resolution.
type Handler struct {
	svc      domain.Service
	resolver Resolver
}

// NewHandler creates a new domains HTTP handler.
func NewHandler(svc domain.Service, res Resolver) *Handler {
	return &Handler{svc: svc, resolver: res}
}

// RegisterReadRoutes registers read-only routes (no auth required).
func (h *Handler) RegisterReadRoutes(r chi.Router) {
	r.Get("/domains", h.handleList)
	r.Get("/domains/{name}", h.handleGet)
	r.Get("/history", h.handleHistory)
	r.Get("/history/export", h.handleHistoryExport)
	r.Get("/stats", h.handleStats)
	r.Get("/plans", h.handlePlans)
	r.Post("/quote", h.handleQuote)
	r.Get("/resolve/{name}", h.handleResolve)
	r.Get("/resolver/stats", h.handleResolverStats)
}

// RegisterWriteRoutes registers mutating routes (auth required).
func (h *Handler) RegisterWriteRoutes(r chi.Router) {
	r.Post("/domains", h.handleRegister)
	r.Put("/domains/{name}/code", h.handleUpdateCode)
	r.Put("/domains/{name}/publish", h.handlePublish)
	r.Post("/domains/{name}/transfer", h.handleTransfer)
	r.Delete("/domains/{name}", h.handleDelete)
	r.Delete("/history", h.handleClearHistory)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	var filter domain.ListFilter
	switch r.URL.Query().Get("status") {
	case "", "active":
	case "all":
		filter.IncludeDeleted = true
	default:
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "status must be 'active' or 'all'")
		return
	}

	domains, err := h.svc.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err, "Failed to list domains")
		return
	}
	writeJSON(w, http.StatusOK, ListResponse{Data: domains, Total: len(domains)})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeServiceError(w, err, "Failed to get domain")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := h.svc.Register(r.Context(), req.ToDomain())
	if err != nil {
		writeServiceError(w, err, "Failed to register domain")
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) handleUpdateCode(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var req CodeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.svc.UpdateCode(r.Context(), name, req.ToDomain()); err != nil {
		writeServiceError(w, err, "Failed to update code")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    name,
		"message": "Code updated",
	})
}

func (h *Handler) handlePublish(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var req PublishRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.IsPublished == nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "isPublished is required")
		return
	}

	if err := h.svc.SetPublished(r.Context(), name, *req.IsPublished); err != nil {
		writeServiceError(w, err, "Failed to update publish state")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":        name,
		"isPublished": *req.IsPublished,
	})
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var req TransferRequest
	if !decodeBody(w, r, &req) {
		return
	}

	tr, err := h.svc.Transfer(r.Context(), name, req.ToAddress)
	if err != nil {
		writeServiceError(w, err, "Failed to transfer domain")
		return
	}
	writeJSON(w, http.StatusOK, tr)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "name")); err != nil {
		writeServiceError(w, err, "Failed to delete domain")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	filter, ok := historyFilter(w, r)
	if !ok {
		return
	}
	history, err := h.svc.History(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err, "Failed to load history")
		return
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Data: history, Total: len(history)})
}

func (h *Handler) handleHistoryExport(w http.ResponseWriter, r *http.Request) {
	filter, ok := historyFilter(w, r)
	if !ok {
		return
	}
	history, err := h.svc.History(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err, "Failed to export history")
		return
	}

	filename := fmt.Sprintf("dns-history-%s.json", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(history)
}

func (h *Handler) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ClearHistory(r.Context()); err != nil {
		writeServiceError(w, err, "Failed to clear history")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Stats(r.Context())
	if err != nil {
		writeServiceError(w, err, "Failed to compute stats")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handler) handlePlans(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"plans":           domain.Plans,
		"addOns":          domain.AddOns,
		"registrationFee": domain.RegistrationFee,
		"gasFee":          domain.GasFee,
		"platformFee":     domain.PlatformFee,
	})
}

func (h *Handler) handleQuote(w http.ResponseWriter, r *http.Request) {
	var req domain.QuoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	q, err := h.svc.Quote(r.Context(), req)
	if err != nil {
		writeServiceError(w, err, "Failed to compute quote")
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	res, err := h.resolver.Resolve(r.Context(), name)
	if err != nil {
		if errors.Is(err, resolver.ErrNotResolvable) {
			metrics.ResolverQuery("not_found")
			writeError(w, http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("%s does not resolve", name))
			return
		}
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to resolve domain")
		return
	}

	if res.Cached {
		metrics.ResolverQuery("hit")
	} else {
		metrics.ResolverQuery("miss")
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleResolverStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.resolver.Stats())
}

func historyFilter(w http.ResponseWriter, r *http.Request) (registry.HistoryFilter, bool) {
	q := r.URL.Query()
	filter := registry.HistoryFilter{
		Query: q.Get("q"),
	}
	if a := q.Get("action"); a != "" && a != "all" {
		filter.Action = registry.Action(a)
	}
	if l := q.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "limit must be a non-negative integer")
			return filter, false
		}
		filter.Limit = n
	}
	return filter, true
}

// decodeBody reads a JSON request body into v, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON: "+err.Error())
		return false
	}
	return true
}

// writeServiceError maps service errors to HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "ALREADY_EXISTS", err.Error())
	case errors.Is(err, domain.ErrAlreadyDeleted):
		writeError(w, http.StatusConflict, "ALREADY_DELETED", err.Error())
	case errors.Is(err, domain.ErrNotDeleted):
		writeError(w, http.StatusConflict, "NOT_DELETED", err.Error())
	case errors.Is(err, domain.ErrInvalidName):
		writeError(w, http.StatusBadRequest, "INVALID_NAME", err.Error())
	case errors.Is(err, domain.ErrInvalidAddress):
		writeError(w, http.StatusBadRequest, "INVALID_ADDRESS", err.Error())
	case errors.Is(err, domain.ErrSameOwner):
		writeError(w, http.StatusBadRequest, "SAME_OWNER", err.Error())
	case errors.Is(err, domain.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
	case errors.Is(err, domain.ErrStorageUnavailable):
		writeError(w, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "Storage is temporarily unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", fallback)
	}
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
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
