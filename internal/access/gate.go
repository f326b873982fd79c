// Package access gates lifecycle operations on the tenant's externally
// maintained subscription state, expiring it lazily at observation time.
package access

import (
	"context"
	"log/slog"
	"time"

	"github.com/rk-sharma/detailbook/internal/core"
	"github.com/rk-sharma/detailbook/internal/storage"
)

type SubscriptionStore interface {
	Get(ctx context.Context, tenantID string) (storage.Subscription, bool, error)
	MarkExpired(ctx context.Context, tenantID string) error
}

type Gate struct {
	store  SubscriptionStore
	logger *slog.Logger
}

func NewGate(store SubscriptionStore, logger *slog.Logger) *Gate {
	return &Gate{store: store, logger: logger}
}

// HasAccess is called on every lifecycle operation, so it writes only on the
// transition into expired; an already-expired row costs a single read.
func (g *Gate) HasAccess(ctx context.Context, tenantID string) (bool, error) {
	sub, ok, err := g.store.Get(ctx, tenantID)
	if err != nil {
		return false, core.StorageFailure("load subscription", err)
	}
	if !ok {
		return false, nil
	}

	allowed, lapsed := Evaluate(sub, time.Now().UTC())
	if lapsed {
		if err := g.store.MarkExpired(ctx, tenantID); err != nil {
			// The deny stands either way; the write retries on the next check.
			g.logger.Warn("failed to persist lazy expiry", "tenant_id", tenantID, "err", err)
		}
	}
	return allowed, nil
}

// Evaluate decides access from the stored subscription at a point in time.
// lapsed is true only on the observation that crosses the boundary, which is
// when the one expiry write happens.
func Evaluate(sub storage.Subscription, now time.Time) (allowed bool, lapsed bool) {
	switch sub.Status {
	case "trialing":
		if sub.TrialEndsAt != nil && !now.Before(*sub.TrialEndsAt) {
			return false, true
		}
		return true, false
	case "active":
		if sub.CurrentPeriodEnd != nil && !now.Before(*sub.CurrentPeriodEnd) {
			return false, true
		}
		return true, false
	default: // canceled, expired, anything unrecognized
		return false, false
	}
}
