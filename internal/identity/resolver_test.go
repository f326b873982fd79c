package identity

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/rk-sharma/detailbook/internal/core"
)

const (
	tenantID    = "7b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d"
	otherID     = "9f8c1a2e-0d4b-4f6a-8c3e-5a7b9d1e3f2a"
	notUUIDSlug = "sparkle-detailing"
)

type fakeTenantStore struct {
	byID     map[string]core.Tenant
	bySlug   map[string]core.Tenant
	idCalls  int
	slugErr  error
	idErr    error
	slugHits int
}

func (f *fakeTenantStore) GetByID(_ context.Context, id string) (core.Tenant, error) {
	f.idCalls++
	if f.idErr != nil {
		return core.Tenant{}, f.idErr
	}
	t, ok := f.byID[id]
	if !ok {
		return core.Tenant{}, pgx.ErrNoRows
	}
	return t, nil
}

func (f *fakeTenantStore) GetBySlug(_ context.Context, slug string) (core.Tenant, error) {
	f.slugHits++
	if f.slugErr != nil {
		return core.Tenant{}, f.slugErr
	}
	t, ok := f.bySlug[slug]
	if !ok {
		return core.Tenant{}, pgx.ErrNoRows
	}
	return t, nil
}

func storeWith(t core.Tenant) *fakeTenantStore {
	return &fakeTenantStore{
		byID:   map[string]core.Tenant{t.ID: t},
		bySlug: map[string]core.Tenant{t.Slug: t},
	}
}

func activeTenant() core.Tenant {
	return core.Tenant{ID: tenantID, Slug: notUUIDSlug, Name: "Sparkle Detailing", Timezone: "UTC", Active: true}
}

func TestIsInternalID(t *testing.T) {
	if !IsInternalID(tenantID) {
		t.Fatalf("expected %q to be an internal id", tenantID)
	}
	if IsInternalID(notUUIDSlug) {
		t.Fatalf("slug must not pass as an internal id")
	}
	if IsInternalID("") {
		t.Fatalf("empty ref must not pass as an internal id")
	}
}

func TestResolve_InternalIDVerified(t *testing.T) {
	store := storeWith(activeTenant())
	r := NewResolver(store)

	got, err := r.Resolve(context.Background(), tenantID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != tenantID {
		t.Fatalf("expected %q, got %q", tenantID, got)
	}
	if store.idCalls != 1 {
		t.Fatalf("a uuid ref still verifies existence, got %d lookups", store.idCalls)
	}

	// UUID shape alone is not enough; the tenant must exist.
	if _, err := r.Resolve(context.Background(), otherID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown uuid ref, got %v", err)
	}
}

func TestResolve_InactiveInternalIDIsNotFound(t *testing.T) {
	inactive := activeTenant()
	inactive.Active = false
	r := NewResolver(storeWith(inactive))

	if _, err := r.Resolve(context.Background(), tenantID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for inactive uuid ref, got %v", err)
	}
}

func TestResolve_SlugSingleLookup(t *testing.T) {
	store := storeWith(activeTenant())
	r := NewResolver(store)

	got, err := r.Resolve(context.Background(), notUUIDSlug)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != tenantID {
		t.Fatalf("expected %q, got %q", tenantID, got)
	}
	if store.slugHits != 1 {
		t.Fatalf("slug resolution must cost exactly one lookup, got %d", store.slugHits)
	}
}

func TestResolve_InactiveSlugIsNotFound(t *testing.T) {
	inactive := activeTenant()
	inactive.Active = false
	r := NewResolver(storeWith(inactive))

	_, err := r.Resolve(context.Background(), notUUIDSlug)
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolve_EmptyRef(t *testing.T) {
	r := NewResolver(&fakeTenantStore{})
	if _, err := r.Resolve(context.Background(), "  "); !core.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestResolveTenant_BothForms(t *testing.T) {
	ten := activeTenant()
	r := NewResolver(storeWith(ten))

	byID, err := r.ResolveTenant(context.Background(), tenantID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bySlug, err := r.ResolveTenant(context.Background(), notUUIDSlug)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if byID.ID != bySlug.ID || byID.Slug != bySlug.Slug {
		t.Fatalf("both reference forms must resolve to the same tenant")
	}
}

func TestAuthorize(t *testing.T) {
	ten := activeTenant()
	r := NewResolver(storeWith(ten))
	ctx := context.Background()

	cases := []struct {
		name    string
		claimed string
		stored  string
		want    bool
	}{
		{"matching internal id", tenantID, tenantID, true},
		{"matching slug reference", tenantID, notUUIDSlug, true},
		{"uppercase variant of the same id", strings.ToUpper(tenantID), tenantID, true},
		{"foreign tenant", otherID, tenantID, false},
		{"claimed not an internal id", notUUIDSlug, tenantID, false},
		{"empty claimed id", "", tenantID, false},
		{"unresolvable stored ref denies", tenantID, "no-such-slug", false},
	}
	for _, c := range cases {
		ok, err := r.Authorize(ctx, c.claimed, c.stored)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", c.name, err)
		}
		if ok != c.want {
			t.Fatalf("%s: got %v, want %v", c.name, ok, c.want)
		}
	}
}

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Sparkle Detailing", "sparkle-detailing"},
		{"  Bob's Mobile Wash & Wax  ", "bob-s-mobile-wash-wax"},
		{"A1 Auto", "a1-auto"},
		{"---", "tenant"},
		{"", "tenant"},
	}
	for _, c := range cases {
		if got := Slugify(c.in); got != c.want {
			t.Fatalf("Slugify(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestAuthorize_StorageErrorPropagates(t *testing.T) {
	store := &fakeTenantStore{slugErr: errors.New("connection reset")}
	r := NewResolver(store)

	_, err := r.Authorize(context.Background(), tenantID, notUUIDSlug)
	if err == nil {
		t.Fatalf("expected storage error to propagate")
	}
	if !core.IsStorage(err) {
		t.Fatalf("expected storage error, got %v", err)
	}
}
