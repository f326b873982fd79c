package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rk-sharma/detailbook/internal/core"
	"github.com/rk-sharma/detailbook/libs/db"
)

type CustomerRepository struct {
	pool *db.Pool
}

func NewCustomerRepository(pool *db.Pool) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

const customerColumns = `id::text, name, phone,
	COALESCE(email, ''), COALESCE(address, ''), COALESCE(notes, ''),
	created_at, updated_at`

func (r *CustomerRepository) GetByID(ctx context.Context, id string) (core.Customer, error) {
	return r.scanOne(r.pool.QueryRow(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE id = $1
	`, id))
}

// FindByPhoneAndEmail matches both fields exactly; the caller tries this
// before the phone-only lookup.
func (r *CustomerRepository) FindByPhoneAndEmail(ctx context.Context, phone, email string) (core.Customer, bool, error) {
	c, err := r.scanOne(r.pool.QueryRow(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE phone = $1 AND email = $2
		ORDER BY created_at
		LIMIT 1
	`, phone, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return core.Customer{}, false, nil
		}
		return core.Customer{}, false, err
	}
	return c, true, nil
}

func (r *CustomerRepository) FindByPhone(ctx context.Context, phone string) (core.Customer, bool, error) {
	c, err := r.scanOne(r.pool.QueryRow(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE phone = $1
		ORDER BY created_at
		LIMIT 1
	`, phone))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return core.Customer{}, false, nil
		}
		return core.Customer{}, false, err
	}
	return c, true, nil
}

func (r *CustomerRepository) Create(ctx context.Context, c core.Customer) (core.Customer, error) {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO customers (id, name, phone, email, address, notes)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''))
	`, id, c.Name, c.Phone, c.Email, c.Address, c.Notes)
	if err != nil {
		return core.Customer{}, err
	}
	return r.GetByID(ctx, id)
}

// UpdateContact refreshes contact metadata only. Name is deliberately not an
// argument here; identity matching owns that rule.
func (r *CustomerRepository) UpdateContact(ctx context.Context, id, email, address, notes string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE customers
		SET email = COALESCE(NULLIF($2, ''), email),
			address = COALESCE(NULLIF($3, ''), address),
			notes = COALESCE(NULLIF($4, ''), notes),
			updated_at = now()
		WHERE id = $1
	`, id, email, address, notes)
	return err
}

func (r *CustomerRepository) scanOne(row pgx.Row) (core.Customer, error) {
	var c core.Customer
	err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Address, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return core.Customer{}, err
	}
	return c, nil
}
