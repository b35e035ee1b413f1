// Package api provides the JSON response helper and health endpoint.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/askarihq/patrolbot/internal/store"
	"github.com/go-chi/chi/v5"
)

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

// UpstreamChecker reports whether the tool backend is reachable.
type UpstreamChecker interface {
	Healthy(ctx context.Context) bool
}

// HealthHandler exposes readiness of the database and the upstream MCP
// server.
type HealthHandler struct {
	repo     store.Repository
	upstream UpstreamChecker
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(repo store.Repository, upstream UpstreamChecker) *HealthHandler {
	return &HealthHandler{repo: repo, upstream: upstream}
}

// RegisterRoutes mounts the health endpoint.
func (h *HealthHandler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)
}

func (h *HealthHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	dbOK := h.repo != nil && h.repo.Ping(ctx) == nil
	upstreamOK := h.upstream != nil && h.upstream.Healthy(ctx)

	status := http.StatusOK
	if !dbOK || !upstreamOK {
		status = http.StatusServiceUnavailable
	}

	JSON(w, status, map[string]any{
		"database":         statusString(dbOK),
		"mcp_server_alive": upstreamOK,
	})
}

func statusString(ok bool) string {
	if ok {
		return "ok"
	}
	return "unavailable"
}
