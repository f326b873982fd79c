package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rk-sharma/detailbook/internal/core"
	"github.com/rk-sharma/detailbook/libs/db"
)

type ServiceRepository struct {
	pool *db.Pool
}

func NewServiceRepository(pool *db.Pool) *ServiceRepository {
	return &ServiceRepository{pool: pool}
}

const serviceColumns = `id::text, tenant_id::text, name, price, duration_minutes, active, created_at`

// FindActiveByName resolves a persisted service by its name within a tenant.
// Bookings referencing no persisted service fall back to the client-supplied
// (name, price) pair.
func (r *ServiceRepository) FindActiveByName(ctx context.Context, tenantID, name string) (core.ServiceOffering, bool, error) {
	var s core.ServiceOffering
	err := r.pool.QueryRow(ctx, `
		SELECT `+serviceColumns+`
		FROM services
		WHERE tenant_id = $1 AND lower(name) = lower($2) AND active
		LIMIT 1
	`, tenantID, name).Scan(&s.ID, &s.TenantID, &s.Name, &s.Price, &s.DurationMinutes, &s.Active, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return core.ServiceOffering{}, false, nil
		}
		return core.ServiceOffering{}, false, err
	}
	return s, true, nil
}

func (r *ServiceRepository) ListActive(ctx context.Context, tenantID string) ([]core.ServiceOffering, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+serviceColumns+`
		FROM services
		WHERE tenant_id = $1 AND active
		ORDER BY name
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.ServiceOffering
	for rows.Next() {
		var s core.ServiceOffering
		if err := rows.Scan(&s.ID, &s.TenantID, &s.Name, &s.Price, &s.DurationMinutes, &s.Active, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *ServiceRepository) Create(ctx context.Context, s core.ServiceOffering) (string, error) {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO services (id, tenant_id, name, price, duration_minutes, active)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, s.TenantID, s.Name, s.Price, s.DurationMinutes, s.Active)
	if err != nil {
		return "", err
	}
	return id, nil
}
