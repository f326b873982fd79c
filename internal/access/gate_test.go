package access

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/rk-sharma/detailbook/internal/storage"
)

type fakeSubStore struct {
	sub     storage.Subscription
	found   bool
	err     error
	expired []string
}

func (f *fakeSubStore) Get(_ context.Context, _ string) (storage.Subscription, bool, error) {
	return f.sub, f.found, f.err
}

func (f *fakeSubStore) MarkExpired(_ context.Context, tenantID string) error {
	f.expired = append(f.expired, tenantID)
	return nil
}

func ts(t time.Time) *time.Time { return &t }

func TestEvaluate(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		sub     storage.Subscription
		allowed bool
		lapsed  bool
	}{
		{"trialing before end", storage.Subscription{Status: "trialing", TrialEndsAt: ts(now.Add(time.Hour))}, true, false},
		{"trialing at end", storage.Subscription{Status: "trialing", TrialEndsAt: ts(now)}, false, true},
		{"trialing past end", storage.Subscription{Status: "trialing", TrialEndsAt: ts(now.Add(-time.Hour))}, false, true},
		{"trialing without end", storage.Subscription{Status: "trialing"}, true, false},
		{"active before period end", storage.Subscription{Status: "active", CurrentPeriodEnd: ts(now.Add(time.Hour))}, true, false},
		{"active past period end", storage.Subscription{Status: "active", CurrentPeriodEnd: ts(now.Add(-time.Minute))}, false, true},
		{"active without period end", storage.Subscription{Status: "active"}, true, false},
		{"canceled", storage.Subscription{Status: "canceled"}, false, false},
		{"expired", storage.Subscription{Status: "expired"}, false, false},
		{"unknown status", storage.Subscription{Status: "weird"}, false, false},
	}
	for _, c := range cases {
		allowed, lapsed := Evaluate(c.sub, now)
		if allowed != c.allowed || lapsed != c.lapsed {
			t.Fatalf("%s: got (allowed=%v, lapsed=%v), want (%v, %v)", c.name, allowed, lapsed, c.allowed, c.lapsed)
		}
	}
}

func TestHasAccess_MissingRowDenies(t *testing.T) {
	g := NewGate(&fakeSubStore{found: false}, slog.Default())
	ok, err := g.HasAccess(context.Background(), "t1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("a tenant without a subscription row must be denied")
	}
}

func TestHasAccess_LazyExpiryWritesOnce(t *testing.T) {
	store := &fakeSubStore{
		sub: storage.Subscription{
			TenantID:    "t1",
			Status:      "trialing",
			TrialEndsAt: ts(time.Now().UTC().Add(-time.Hour)),
		},
		found: true,
	}
	g := NewGate(store, slog.Default())

	ok, err := g.HasAccess(context.Background(), "t1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("lapsed trial must deny")
	}
	if len(store.expired) != 1 || store.expired[0] != "t1" {
		t.Fatalf("lapse crossing must write expiry exactly once, got %v", store.expired)
	}

	// Second observation: the row now reads expired, no further writes.
	store.sub = storage.Subscription{TenantID: "t1", Status: "expired"}
	if ok, err := g.HasAccess(context.Background(), "t1"); err != nil || ok {
		t.Fatalf("expired row must deny without error, got (%v, %v)", ok, err)
	}
	if len(store.expired) != 1 {
		t.Fatalf("already-expired row must not write again, got %v", store.expired)
	}
}

func TestHasAccess_ActiveAllows(t *testing.T) {
	store := &fakeSubStore{
		sub: storage.Subscription{
			TenantID:         "t1",
			Status:           "active",
			CurrentPeriodEnd: ts(time.Now().UTC().Add(24 * time.Hour)),
		},
		found: true,
	}
	g := NewGate(store, slog.Default())
	ok, err := g.HasAccess(context.Background(), "t1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("active subscription must allow")
	}
	if len(store.expired) != 0 {
		t.Fatalf("no expiry write expected")
	}
}
