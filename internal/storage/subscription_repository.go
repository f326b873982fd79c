package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rk-sharma/detailbook/libs/db"
)

// Subscription is the externally maintained access state for a tenant. The
// gate reads it on every lifecycle operation and flips it to expired lazily.
type Subscription struct {
	TenantID             string
	Status               string // trialing | active | canceled | expired
	TrialEndsAt          *time.Time
	CurrentPeriodEnd     *time.Time
	StripeCustomerID     string
	StripeSubscriptionID string
	UpdatedAt            time.Time
}

var ErrDuplicateProviderEvent = errors.New("duplicate provider event")

type SubscriptionRepository struct {
	pool *db.Pool
}

func NewSubscriptionRepository(pool *db.Pool) *SubscriptionRepository {
	return &SubscriptionRepository{pool: pool}
}

func (r *SubscriptionRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *SubscriptionRepository) Get(ctx context.Context, tenantID string) (Subscription, bool, error) {
	var s Subscription
	err := r.pool.QueryRow(ctx, `
		SELECT tenant_id::text, status, trial_ends_at, current_period_end,
			COALESCE(stripe_customer_id, ''), COALESCE(stripe_subscription_id, ''), updated_at
		FROM subscriptions
		WHERE tenant_id = $1
	`, tenantID).Scan(&s.TenantID, &s.Status, &s.TrialEndsAt, &s.CurrentPeriodEnd,
		&s.StripeCustomerID, &s.StripeSubscriptionID, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Subscription{}, false, nil
		}
		return Subscription{}, false, err
	}
	return s, true, nil
}

// MarkExpired writes the expired status only while the row is still in a
// live status, so repeated gate checks after expiry cost no writes.
func (r *SubscriptionRepository) MarkExpired(ctx context.Context, tenantID string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE subscriptions
		SET status = 'expired',
			updated_at = now()
		WHERE tenant_id = $1 AND status IN ('trialing', 'active')
	`, tenantID)
	return err
}

func (r *SubscriptionRepository) Upsert(ctx context.Context, tx pgx.Tx, s Subscription) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO subscriptions (tenant_id, status, trial_ends_at, current_period_end, stripe_customer_id, stripe_subscription_id)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''))
		ON CONFLICT (tenant_id)
		DO UPDATE SET status = EXCLUDED.status,
		              trial_ends_at = EXCLUDED.trial_ends_at,
		              current_period_end = EXCLUDED.current_period_end,
		              stripe_customer_id = EXCLUDED.stripe_customer_id,
		              stripe_subscription_id = EXCLUDED.stripe_subscription_id,
		              updated_at = now()
	`, s.TenantID, s.Status, s.TrialEndsAt, s.CurrentPeriodEnd, s.StripeCustomerID, s.StripeSubscriptionID)
	return err
}

// InsertProviderEvent records a billing-provider event id for webhook replay
// protection. A duplicate id returns ErrDuplicateProviderEvent.
func (r *SubscriptionRepository) InsertProviderEvent(ctx context.Context, tx pgx.Tx, provider, providerEventID, eventType string, payload []byte) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO provider_events (provider, provider_event_id, event_type, payload)
		VALUES ($1, $2, $3, $4)
	`, provider, providerEventID, eventType, payload)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateProviderEvent
		}
		return err
	}
	return nil
}
