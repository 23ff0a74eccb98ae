package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dailyyoga/cachekit/logger"
	"github.com/dailyyoga/cachekit/vendors"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// VendorStore is the cached vendor directory served over HTTP
type VendorStore interface {
	vendors.Store
	InvalidateAll(ctx context.Context) error
}

// VendorHandler serves vendor reads through the cache and writes that invalidate it
type VendorHandler struct {
	logger logger.Logger
	store  VendorStore
}

// NewVendorHandler creates a VendorHandler
func NewVendorHandler(log logger.Logger, store VendorStore) *VendorHandler {
	return &VendorHandler{logger: log, store: store}
}

// MountVendors registers the vendor endpoints on r
func MountVendors(r *mux.Router, h *VendorHandler) {
	r.HandleFunc("/vendors", h.Save).Methods("POST")
	r.HandleFunc("/vendors/{id:[0-9]+}", h.Get).Methods("GET")
	r.HandleFunc("/vendors/{id:[0-9]+}/approve", h.Approve).Methods("POST")
	r.HandleFunc("/vendors/slug/{slug}", h.GetBySlug).Methods("GET")
	r.HandleFunc("/vendors/tier/{tier}", h.ListByTier).Methods("GET")
	r.HandleFunc("/debug/cache/vendors/invalidate", h.InvalidateAll).Methods("POST")
}

// Get returns one vendor.
// GET /vendors/{id}
func (h *VendorHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := vendorID(w, r)
	if !ok {
		return
	}
	v, err := h.store.FindByID(r.Context(), id)
	h.respond(w, v, err)
}

// GetBySlug returns one vendor by its slug.
// GET /vendors/slug/{slug}
func (h *VendorHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	v, err := h.store.FindBySlug(r.Context(), mux.Vars(r)["slug"])
	h.respond(w, v, err)
}

// ListByTier returns the approved vendors of a tier.
// GET /vendors/tier/{tier}
func (h *VendorHandler) ListByTier(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.ListByTier(r.Context(), vendors.Tier(mux.Vars(r)["tier"]))
	if err != nil {
		h.respond(w, nil, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"vendors": list})
}

// Save creates or updates the vendor in the request body.
// POST /vendors {"slug":"acme","name":"Acme","tier":"gold"}
func (h *VendorHandler) Save(w http.ResponseWriter, r *http.Request) {
	var v vendors.Vendor
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	err := h.store.Save(r.Context(), &v)
	h.respond(w, &v, err)
}

// Approve approves a pending vendor.
// POST /vendors/{id}/approve
func (h *VendorHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, ok := vendorID(w, r)
	if !ok {
		return
	}
	if err := h.store.Approve(r.Context(), id); err != nil {
		h.respond(w, nil, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": vendors.StatusApproved})
}

// InvalidateAll drops every cached vendor entry, e.g. after a bulk import.
// POST /debug/cache/vendors/invalidate
func (h *VendorHandler) InvalidateAll(w http.ResponseWriter, r *http.Request) {
	if err := h.store.InvalidateAll(r.Context()); err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *VendorHandler) respond(w http.ResponseWriter, v any, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, v)
	case errors.Is(err, vendors.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		h.logger.Warn("vendor request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func vendorID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid vendor id"})
		return 0, false
	}
	return id, true
}
