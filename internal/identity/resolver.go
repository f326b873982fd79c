// Package identity owns the two representations of a tenant: the opaque
// internal identifier (UUID) and the public slug. Stored references carry
// either form, so every trust boundary normalizes through Resolver instead of
// pattern-matching inline.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rk-sharma/detailbook/internal/core"
	"github.com/rk-sharma/detailbook/internal/storage"
)

type TenantStore interface {
	GetByID(ctx context.Context, id string) (core.Tenant, error)
	GetBySlug(ctx context.Context, slug string) (core.Tenant, error)
}

type Resolver struct {
	store TenantStore
}

func NewResolver(store TenantStore) *Resolver {
	return &Resolver{store: store}
}

// IsInternalID reports whether ref is structurally an internal identifier.
// Slugs are human-chosen and never UUID-shaped.
func IsInternalID(ref string) bool {
	_, err := uuid.Parse(ref)
	return err == nil
}

// Slugify derives a booking-link slug from a business name: lowercase,
// alphanumeric runs joined by single hyphens. Uniqueness is the store's
// problem (suffix dedup on insert), not this function's.
func Slugify(name string) string {
	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !isAlnum {
			pendingHyphen = b.Len() > 0
			continue
		}
		if pendingHyphen {
			b.WriteByte('-')
			pendingHyphen = false
		}
		b.WriteRune(r)
	}
	if b.Len() == 0 {
		return "tenant"
	}
	return b.String()
}

// Resolve normalizes a tenant reference to the canonical internal identifier.
// Both forms cost one lookup: a UUID-shaped ref still has to name a tenant
// that exists and is active.
func (r *Resolver) Resolve(ctx context.Context, tenantRef string) (string, error) {
	t, err := r.ResolveTenant(ctx, tenantRef)
	if err != nil {
		return "", err
	}
	return t.ID, nil
}

// ResolveTenant loads the full tenant record for either reference form.
// Inactive tenants resolve as not found on both paths.
func (r *Resolver) ResolveTenant(ctx context.Context, tenantRef string) (core.Tenant, error) {
	ref := strings.TrimSpace(tenantRef)
	if ref == "" {
		return core.Tenant{}, core.Validationf("tenant reference is required")
	}
	var (
		t   core.Tenant
		err error
	)
	if IsInternalID(ref) {
		t, err = r.store.GetByID(ctx, ref)
	} else {
		t, err = r.store.GetBySlug(ctx, ref)
	}
	if err != nil {
		if storage.IsNotFound(err) {
			return core.Tenant{}, fmt.Errorf("tenant %q: %w", ref, core.ErrNotFound)
		}
		return core.Tenant{}, core.StorageFailure("resolve tenant", err)
	}
	if !t.Active {
		return core.Tenant{}, fmt.Errorf("tenant %q: %w", ref, core.ErrNotFound)
	}
	return t, nil
}

// Authorize verifies that an already-authenticated internal id matches the
// tenant implied by a stored reference, whichever form the reference uses.
// Ids compare as parsed UUIDs, so case or format variants of the same id
// authorize consistently. An unresolvable stored reference denies rather
// than errors.
func (r *Resolver) Authorize(ctx context.Context, claimedInternalID, storedRef string) (bool, error) {
	claimed, err := uuid.Parse(strings.TrimSpace(claimedInternalID))
	if err != nil {
		return false, nil
	}
	id, err := r.Resolve(ctx, storedRef)
	if err != nil {
		if core.IsValidation(err) || errors.Is(err, core.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	resolved, err := uuid.Parse(id)
	if err != nil {
		return false, nil
	}
	return resolved == claimed, nil
}
