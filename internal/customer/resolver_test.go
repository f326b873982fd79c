package customer

import (
	"context"
	"testing"

	"github.com/rk-sharma/detailbook/internal/core"
)

type fakeStore struct {
	customers []core.Customer

	created        []core.Customer
	contactUpdates int
}

func (f *fakeStore) FindByPhoneAndEmail(_ context.Context, phone, email string) (core.Customer, bool, error) {
	for _, c := range f.customers {
		if c.Phone == phone && c.Email == email {
			return c, true, nil
		}
	}
	return core.Customer{}, false, nil
}

func (f *fakeStore) FindByPhone(_ context.Context, phone string) (core.Customer, bool, error) {
	for _, c := range f.customers {
		if c.Phone == phone {
			return c, true, nil
		}
	}
	return core.Customer{}, false, nil
}

func (f *fakeStore) Create(_ context.Context, c core.Customer) (core.Customer, error) {
	c.ID = "new-id"
	f.created = append(f.created, c)
	f.customers = append(f.customers, c)
	return c, nil
}

func (f *fakeStore) UpdateContact(_ context.Context, id, email, address, notes string) error {
	f.contactUpdates++
	for i, c := range f.customers {
		if c.ID == id {
			if email != "" {
				f.customers[i].Email = email
			}
			if address != "" {
				f.customers[i].Address = address
			}
			if notes != "" {
				f.customers[i].Notes = notes
			}
		}
	}
	return nil
}

func existing() core.Customer {
	return core.Customer{
		ID:      "c1",
		Name:    "Maria Lopez",
		Phone:   "+15550001111",
		Email:   "maria@example.com",
		Address: "12 Oak St",
	}
}

func TestResolveOrCreate_Validation(t *testing.T) {
	r := NewResolver(&fakeStore{})

	if _, err := r.ResolveOrCreate(context.Background(), Input{Name: "Maria"}); !core.IsValidation(err) {
		t.Fatalf("expected validation error for missing phone, got %v", err)
	}
	if _, err := r.ResolveOrCreate(context.Background(), Input{Phone: "+15550001111"}); !core.IsValidation(err) {
		t.Fatalf("expected validation error for missing name, got %v", err)
	}
}

func TestResolveOrCreate_PhoneAndEmailMatch(t *testing.T) {
	store := &fakeStore{customers: []core.Customer{existing()}}
	r := NewResolver(store)

	got, err := r.ResolveOrCreate(context.Background(), Input{
		Phone: "+15550001111",
		Email: "maria@example.com",
		Name:  "maria lopez", // case and spacing must not matter
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "c1" {
		t.Fatalf("expected existing customer c1, got %q", got.ID)
	}
	if len(store.created) != 0 {
		t.Fatalf("no new customer should be created on an exact match")
	}
	if got.Name != "Maria Lopez" {
		t.Fatalf("stored name must never be overwritten, got %q", got.Name)
	}
}

func TestResolveOrCreate_PhoneOnlyFallback(t *testing.T) {
	store := &fakeStore{customers: []core.Customer{existing()}}
	r := NewResolver(store)

	// Different email, so phone+email misses and phone alone matches.
	got, err := r.ResolveOrCreate(context.Background(), Input{
		Phone: "+15550001111",
		Email: "maria.new@example.com",
		Name:  "Maria Lopez",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "c1" {
		t.Fatalf("expected phone-only match to reuse c1, got %q", got.ID)
	}
	if store.contactUpdates != 1 {
		t.Fatalf("expected one contact update, got %d", store.contactUpdates)
	}
	if got.Email != "maria.new@example.com" {
		t.Fatalf("email should refresh on a name match, got %q", got.Email)
	}
}

func TestResolveOrCreate_DivergentNameCreatesNew(t *testing.T) {
	store := &fakeStore{customers: []core.Customer{existing()}}
	r := NewResolver(store)

	got, err := r.ResolveOrCreate(context.Background(), Input{
		Phone: "+15550001111",
		Name:  "Carlos Lopez", // same household line, different person
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID == "c1" {
		t.Fatalf("a different name on the same phone must create a new customer")
	}
	if len(store.created) != 1 {
		t.Fatalf("expected one creation, got %d", len(store.created))
	}
	if store.contactUpdates != 0 {
		t.Fatalf("the existing record must be untouched")
	}
}

func TestResolveOrCreate_NoMatchCreates(t *testing.T) {
	store := &fakeStore{}
	r := NewResolver(store)

	got, err := r.ResolveOrCreate(context.Background(), Input{
		Phone:   "  +15559998888  ",
		Name:    "  Dana Fox ",
		Address: "4 Pine Rd",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.created) != 1 {
		t.Fatalf("expected one creation, got %d", len(store.created))
	}
	if got.Phone != "+15559998888" || got.Name != "Dana Fox" {
		t.Fatalf("inputs must be trimmed before storage: %+v", got)
	}
}

func TestResolveOrCreate_NoChangeNoUpdate(t *testing.T) {
	store := &fakeStore{customers: []core.Customer{existing()}}
	r := NewResolver(store)

	// Identical contact details: repeat booking must not write anything.
	if _, err := r.ResolveOrCreate(context.Background(), Input{
		Phone: "+15550001111",
		Email: "maria@example.com",
		Name:  "Maria Lopez",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.contactUpdates != 0 {
		t.Fatalf("unchanged contact details must not trigger an update")
	}
	if len(store.created) != 0 {
		t.Fatalf("no creation expected")
	}
}
