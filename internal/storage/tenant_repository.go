package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rk-sharma/detailbook/internal/core"
	"github.com/rk-sharma/detailbook/libs/db"
)

type TenantRepository struct {
	pool *db.Pool
}

func NewTenantRepository(pool *db.Pool) *TenantRepository {
	return &TenantRepository{pool: pool}
}

const tenantColumns = `id::text, slug, name, timezone, active, created_at`

func (r *TenantRepository) GetByID(ctx context.Context, id string) (core.Tenant, error) {
	var t core.Tenant
	err := r.pool.QueryRow(ctx, `
		SELECT `+tenantColumns+`
		FROM tenants
		WHERE id = $1
	`, id).Scan(&t.ID, &t.Slug, &t.Name, &t.Timezone, &t.Active, &t.CreatedAt)
	if err != nil {
		return core.Tenant{}, err
	}
	return t, nil
}

func (r *TenantRepository) GetBySlug(ctx context.Context, slug string) (core.Tenant, error) {
	var t core.Tenant
	err := r.pool.QueryRow(ctx, `
		SELECT `+tenantColumns+`
		FROM tenants
		WHERE slug = $1
	`, slug).Scan(&t.ID, &t.Slug, &t.Name, &t.Timezone, &t.Active, &t.CreatedAt)
	if err != nil {
		return core.Tenant{}, err
	}
	return t, nil
}

// Create inserts a tenant under the requested slug, suffixing -2, -3, ... when
// the slug is taken. Signup itself lives elsewhere; this exists so
// provisioning flows get the same dedup behavior everywhere.
func (r *TenantRepository) Create(ctx context.Context, name, slug, timezone string) (core.Tenant, error) {
	if timezone == "" {
		timezone = "UTC"
	}
	id := uuid.NewString()
	candidate := slug
	for attempt := 2; ; attempt++ {
		_, err := r.pool.Exec(ctx, `
			INSERT INTO tenants (id, slug, name, timezone, active)
			VALUES ($1, $2, $3, $4, true)
		`, id, candidate, name, timezone)
		if err == nil {
			break
		}
		if !IsConflict(err) || attempt > 50 {
			return core.Tenant{}, err
		}
		candidate = fmt.Sprintf("%s-%d", slug, attempt)
	}
	return r.GetByID(ctx, id)
}
