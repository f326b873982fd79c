// Package customer decides whether an inbound booking reuses an existing
// customer record or creates a new one. Phone is the durable key for a repeat
// customer; a diverging name on the same phone means a household sharing a
// line, never a merge.
package customer

import (
	"context"
	"strings"

	"github.com/rk-sharma/detailbook/internal/core"
)

type Store interface {
	FindByPhoneAndEmail(ctx context.Context, phone, email string) (core.Customer, bool, error)
	FindByPhone(ctx context.Context, phone string) (core.Customer, bool, error)
	Create(ctx context.Context, c core.Customer) (core.Customer, error)
	UpdateContact(ctx context.Context, id, email, address, notes string) error
}

type Input struct {
	Phone   string
	Email   string
	Name    string
	Address string
	Notes   string
}

type Resolver struct {
	store Store
}

func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// ResolveOrCreate matches in this exact order: phone+email, then phone alone,
// then the case-insensitive name gate on whatever matched. Reordering changes
// matching semantics, so don't.
func (r *Resolver) ResolveOrCreate(ctx context.Context, in Input) (core.Customer, error) {
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.TrimSpace(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	in.Address = strings.TrimSpace(in.Address)
	in.Notes = strings.TrimSpace(in.Notes)

	if in.Phone == "" {
		return core.Customer{}, core.Validationf("customer phone is required")
	}
	if in.Name == "" {
		return core.Customer{}, core.Validationf("customer name is required")
	}

	var (
		match core.Customer
		found bool
		err   error
	)
	if in.Email != "" {
		match, found, err = r.store.FindByPhoneAndEmail(ctx, in.Phone, in.Email)
		if err != nil {
			return core.Customer{}, core.StorageFailure("find customer by phone+email", err)
		}
	}
	if !found {
		match, found, err = r.store.FindByPhone(ctx, in.Phone)
		if err != nil {
			return core.Customer{}, core.StorageFailure("find customer by phone", err)
		}
	}

	if found && sameName(match.Name, in.Name) {
		if contactChanged(match, in) {
			if err := r.store.UpdateContact(ctx, match.ID, in.Email, in.Address, in.Notes); err != nil {
				return core.Customer{}, core.StorageFailure("update customer contact", err)
			}
			match = withContact(match, in)
		}
		return match, nil
	}

	// No match, or same phone under a different name: new person.
	created, err := r.store.Create(ctx, core.Customer{
		Name:    in.Name,
		Phone:   in.Phone,
		Email:   in.Email,
		Address: in.Address,
		Notes:   in.Notes,
	})
	if err != nil {
		return core.Customer{}, core.StorageFailure("create customer", err)
	}
	return created, nil
}

func sameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// contactChanged reports whether any incoming contact field is non-empty and
// differs from the stored value. Name never counts.
func contactChanged(existing core.Customer, in Input) bool {
	if in.Email != "" && in.Email != existing.Email {
		return true
	}
	if in.Address != "" && in.Address != existing.Address {
		return true
	}
	if in.Notes != "" && in.Notes != existing.Notes {
		return true
	}
	return false
}

func withContact(c core.Customer, in Input) core.Customer {
	if in.Email != "" {
		c.Email = in.Email
	}
	if in.Address != "" {
		c.Address = in.Address
	}
	if in.Notes != "" {
		c.Notes = in.Notes
	}
	return c
}
