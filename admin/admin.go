// Package admin serves the operational HTTP surface of a cachekit process:
// prometheus metrics, cache inspection and invalidation endpoints, and the cached vendor directory.
package admin

import (
	"encoding/json"
	"net/http"

	"github.com/dailyyoga/cachekit/cache"
	"github.com/dailyyoga/cachekit/invalidation"
	"github.com/dailyyoga/cachekit/logger"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Handler exposes one cache over HTTP
type Handler struct {
	logger      logger.Logger
	cache       cache.Cache
	invalidator *invalidation.Invalidator
}

// NewHandler creates a Handler; invalidations go through inv so peers see them too
func NewHandler(log logger.Logger, c cache.Cache, inv *invalidation.Invalidator) *Handler {
	return &Handler{logger: log, cache: c, invalidator: inv}
}

// NewRouter mounts the metrics handler at metricsPath and the cache endpoints under /debug/cache
func NewRouter(h *Handler, metricsPath string, metrics http.Handler) *mux.Router {
	r := mux.NewRouter()

	r.Handle(metricsPath, metrics).Methods("GET")

	r.HandleFunc("/debug/cache/stats", h.Stats).Methods("GET")
	r.HandleFunc("/debug/cache/entries", h.Entries).Methods("GET")
	r.HandleFunc("/debug/cache/invalidate", h.Invalidate).Methods("POST")

	return r
}

// Stats returns the cache statistics.
// GET /debug/cache/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cache.Stats())
}

// Entries returns the per-entry diagnostics.
// GET /debug/cache/entries
func (h *Handler) Entries(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": h.cache.EntryInfo(),
	})
}

// Invalidate performs the invalidation event in the request body.
// POST /debug/cache/invalidate {"kind":"tags","tags":["vendors:42"]}
func (h *Handler) Invalidate(w http.ResponseWriter, r *http.Request) {
	var e invalidation.Event
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := e.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	removed, err := h.invalidator.Invalidate(r.Context(), e)
	if err != nil {
		// the local cache is already invalidated, only the broadcast failed
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"kind":    e.Kind,
			"removed": removed,
			"error":   err.Error(),
		})
		return
	}

	h.logger.Info("cache invalidated over http",
		zap.String("kind", string(e.Kind)),
		zap.Int("removed", removed),
	)
	writeJSON(w, http.StatusOK, map[string]any{
		"kind":    e.Kind,
		"removed": removed,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
