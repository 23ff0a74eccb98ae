package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/dailyyoga/cachekit/cache"
	"github.com/dailyyoga/cachekit/invalidation"
	"github.com/dailyyoga/cachekit/vendors"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// directory is an in-memory vendors.Store counting the reads that reach it
type directory struct {
	mu      sync.Mutex
	vendors map[uint64]vendors.Vendor
	reads   int
}

func (d *directory) FindByID(ctx context.Context, id uint64) (*vendors.Vendor, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reads++
	v, ok := d.vendors[id]
	if !ok {
		return nil, vendors.ErrNotFound
	}
	return &v, nil
}

func (d *directory) FindBySlug(ctx context.Context, slug string) (*vendors.Vendor, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reads++
	for _, v := range d.vendors {
		if v.Slug == slug {
			return &v, nil
		}
	}
	return nil, vendors.ErrNotFound
}

func (d *directory) ListByTier(ctx context.Context, tier vendors.Tier) ([]vendors.Vendor, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reads++
	var out []vendors.Vendor
	for _, v := range d.vendors {
		if v.Tier == tier && v.Status == vendors.StatusApproved {
			out = append(out, v)
		}
	}
	return out, nil
}

func (d *directory) Save(ctx context.Context, v *vendors.Vendor) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if v.ID == 0 {
		v.ID = uint64(len(d.vendors) + 1)
	}
	d.vendors[v.ID] = *v
	return nil
}

func (d *directory) Approve(ctx context.Context, id uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.vendors[id]
	if !ok {
		return vendors.ErrNotFound
	}
	v.Status = vendors.StatusApproved
	d.vendors[id] = v
	return nil
}

func newVendorRouter(t *testing.T) (*mux.Router, *directory, cache.Cache) {
	t.Helper()
	c, err := cache.NewMemory(zap.NewNop(), &cache.MemoryConfig{Name: "vendors"})
	if err != nil {
		t.Fatalf("NewMemory failed: %v", err)
	}
	dir := &directory{vendors: map[uint64]vendors.Vendor{
		1: {ID: 1, Slug: "acme", Name: "Acme", Tier: vendors.TierGold, Status: vendors.StatusApproved},
		2: {ID: 2, Slug: "globex", Name: "Globex", Tier: vendors.TierGold, Status: vendors.StatusPending},
	}}
	inv := invalidation.NewInvalidator(zap.NewNop(), c, nil)
	store := vendors.NewCachedStore(zap.NewNop(), dir, c, inv, 0)

	r := mux.NewRouter()
	MountVendors(r, NewVendorHandler(zap.NewNop(), store))
	return r, dir, c
}

func serve(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rr
}

func TestVendors_GetIsCached(t *testing.T) {
	r, dir, _ := newVendorRouter(t)

	for i := 0; i < 3; i++ {
		rr := serve(r, http.MethodGet, "/vendors/1", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
		}
		var v vendors.Vendor
		if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if v.Slug != "acme" {
			t.Errorf("unexpected vendor %+v", v)
		}
	}
	if dir.reads != 1 {
		t.Errorf("expected one store read, got %d", dir.reads)
	}

	if rr := serve(r, http.MethodGet, "/vendors/slug/acme", ""); rr.Code != http.StatusOK {
		t.Errorf("expected 200 by slug, got %d", rr.Code)
	}
}

func TestVendors_Errors(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		wantCode int
	}{
		{"unknown id", http.MethodGet, "/vendors/9", "", http.StatusNotFound},
		{"unknown slug", http.MethodGet, "/vendors/slug/none", "", http.StatusNotFound},
		{"id overflow", http.MethodGet, "/vendors/99999999999999999999", "", http.StatusBadRequest},
		{"non numeric id", http.MethodGet, "/vendors/acme", "", http.StatusNotFound},
		{"approve unknown", http.MethodPost, "/vendors/9/approve", "", http.StatusNotFound},
		{"malformed body", http.MethodPost, "/vendors", "{", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _, _ := newVendorRouter(t)
			if rr := serve(r, tt.method, tt.path, tt.body); rr.Code != tt.wantCode {
				t.Errorf("expected %d, got %d: %s", tt.wantCode, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestVendors_ApproveRefreshesTierList(t *testing.T) {
	r, _, _ := newVendorRouter(t)

	list := func() int {
		rr := serve(r, http.MethodGet, "/vendors/tier/gold", "")
		var out struct {
			Vendors []vendors.Vendor `json:"vendors"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return len(out.Vendors)
	}

	if n := list(); n != 1 {
		t.Fatalf("expected one approved gold vendor, got %d", n)
	}
	if rr := serve(r, http.MethodPost, "/vendors/2/approve", ""); rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if n := list(); n != 2 {
		t.Errorf("expected the approval to invalidate the tier list, got %d vendors", n)
	}
}

func TestVendors_SaveInvalidatesEntity(t *testing.T) {
	r, _, _ := newVendorRouter(t)

	serve(r, http.MethodGet, "/vendors/1", "")
	body := `{"id":1,"slug":"acme","name":"Acme Corp","tier":"gold","status":"approved"}`
	if rr := serve(r, http.MethodPost, "/vendors", body); rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var v vendors.Vendor
	if err := json.Unmarshal(serve(r, http.MethodGet, "/vendors/1", "").Body.Bytes(), &v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v.Name != "Acme Corp" {
		t.Errorf("expected fresh vendor after save, got %q", v.Name)
	}
}

func TestVendors_InvalidateAll(t *testing.T) {
	r, _, c := newVendorRouter(t)

	serve(r, http.MethodGet, "/vendors/1", "")
	serve(r, http.MethodGet, "/vendors/tier/gold", "")
	if c.Stats().Size != 2 {
		t.Fatalf("expected 2 cached entries, got %d", c.Stats().Size)
	}

	if rr := serve(r, http.MethodPost, "/debug/cache/vendors/invalidate", ""); rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if c.Stats().Size != 0 {
		t.Errorf("expected vendor entries dropped, got %d", c.Stats().Size)
	}
}
