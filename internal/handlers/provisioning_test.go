package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rk-sharma/detailbook/internal/core"
)

type fakeTenantStore struct {
	created []core.Tenant
}

func (f *fakeTenantStore) Create(_ context.Context, name, slug, timezone string) (core.Tenant, error) {
	if timezone == "" {
		timezone = "UTC"
	}
	t := core.Tenant{ID: "7b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d", Slug: slug, Name: name, Timezone: timezone, Active: true}
	f.created = append(f.created, t)
	return t, nil
}

type fakeServiceStore struct {
	services []core.ServiceOffering
	created  []core.ServiceOffering
}

func (f *fakeServiceStore) ListActive(_ context.Context, _ string) ([]core.ServiceOffering, error) {
	return f.services, nil
}

func (f *fakeServiceStore) Create(_ context.Context, s core.ServiceOffering) (string, error) {
	f.created = append(f.created, s)
	return "svc-1", nil
}

type fakeTenantLookup struct {
	tenant core.Tenant
	err    error
}

func (f *fakeTenantLookup) ResolveTenant(context.Context, string) (core.Tenant, error) {
	return f.tenant, f.err
}

func TestCreateTenant(t *testing.T) {
	store := &fakeTenantStore{}
	h := NewProvisioningHandler(store, nil, nil, nil)

	req := httptest.NewRequest("POST", "/api/v1/tenants",
		strings.NewReader(`{"name": "Sparkle Detailing", "timezone": "America/Denver"}`))
	rec := httptest.NewRecorder()
	h.CreateTenant(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("got status %d, want 201: %s", rec.Code, rec.Body.String())
	}
	if len(store.created) != 1 {
		t.Fatalf("expected one tenant created, got %d", len(store.created))
	}
	if got := store.created[0].Slug; got != "sparkle-detailing" {
		t.Fatalf("slug derives from the name, got %q", got)
	}
	if got := store.created[0].Timezone; got != "America/Denver" {
		t.Fatalf("timezone must persist, got %q", got)
	}
}

func TestCreateTenant_Validation(t *testing.T) {
	h := NewProvisioningHandler(&fakeTenantStore{}, nil, nil, nil)

	cases := []struct {
		name string
		body string
	}{
		{"missing name", `{"timezone": "UTC"}`},
		{"unknown timezone", `{"name": "Sparkle", "timezone": "Mars/Olympus"}`},
		{"broken json", `{`},
	}
	for _, c := range cases {
		req := httptest.NewRequest("POST", "/api/v1/tenants", strings.NewReader(c.body))
		rec := httptest.NewRecorder()
		h.CreateTenant(rec, req)
		if rec.Code != 422 {
			t.Fatalf("%s: got status %d, want 422", c.name, rec.Code)
		}
	}
}

func TestListServices(t *testing.T) {
	lookup := &fakeTenantLookup{tenant: core.Tenant{ID: "t1", Slug: "sparkle", Active: true}}
	store := &fakeServiceStore{services: []core.ServiceOffering{
		{ID: "s1", Name: "Full Detail", Price: 150, DurationMinutes: 120, Active: true},
	}}
	h := NewProvisioningHandler(nil, store, lookup, nil)

	req := httptest.NewRequest("GET", "/api/v1/public/sparkle/services", nil)
	req.SetPathValue("tenantRef", "sparkle")
	rec := httptest.NewRecorder()
	h.ListServices(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rec.Code)
	}
	var body struct {
		Tenant   string `json:"tenant"`
		Services []struct {
			Name  string  `json:"name"`
			Price float64 `json:"price"`
		} `json:"services"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if body.Tenant != "sparkle" || len(body.Services) != 1 || body.Services[0].Price != 150 {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestListServices_UnknownTenant(t *testing.T) {
	h := NewProvisioningHandler(nil, &fakeServiceStore{}, &fakeTenantLookup{err: core.ErrNotFound}, nil)

	req := httptest.NewRequest("GET", "/api/v1/public/ghost/services", nil)
	req.SetPathValue("tenantRef", "ghost")
	rec := httptest.NewRecorder()
	h.ListServices(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("got status %d, want 404", rec.Code)
	}
}

func TestCreateService(t *testing.T) {
	store := &fakeServiceStore{}
	h := NewProvisioningHandler(nil, store, nil, nil)

	req := httptest.NewRequest("POST", "/api/v1/services",
		strings.NewReader(`{"name": "Interior Deep Clean", "price": 95, "duration_minutes": 90}`))
	req.Header.Set("X-Tenant-Id", "7b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d")
	rec := httptest.NewRecorder()
	h.CreateService(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("got status %d, want 201: %s", rec.Code, rec.Body.String())
	}
	if len(store.created) != 1 || !store.created[0].Active {
		t.Fatalf("expected one active service, got %+v", store.created)
	}
}

func TestCreateService_Validation(t *testing.T) {
	h := NewProvisioningHandler(nil, &fakeServiceStore{}, nil, nil)

	cases := []struct {
		name     string
		tenantID string
		body     string
	}{
		{"slug tenant id", "sparkle", `{"name": "Wash", "price": 20, "duration_minutes": 30}`},
		{"missing name", "7b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d", `{"price": 20, "duration_minutes": 30}`},
		{"negative price", "7b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d", `{"name": "Wash", "price": -1, "duration_minutes": 30}`},
		{"zero duration", "7b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d", `{"name": "Wash", "price": 20}`},
	}
	for _, c := range cases {
		req := httptest.NewRequest("POST", "/api/v1/services", strings.NewReader(c.body))
		req.Header.Set("X-Tenant-Id", c.tenantID)
		rec := httptest.NewRecorder()
		h.CreateService(rec, req)
		if rec.Code != 422 {
			t.Fatalf("%s: got status %d, want 422", c.name, rec.Code)
		}
	}
}
