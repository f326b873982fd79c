package storage

import (
	"context"

	"github.com/rk-sharma/detailbook/libs/db"
)

// NotificationRecord is the durable trace of an attempted customer
// notification. The engine records intent and outcome; delivery guarantees
// belong to the provider.
type NotificationRecord struct {
	AppointmentID string
	TenantID      string
	Channel       string
	Recipient     string
	Body          string
	Status        string // sent | failed | skipped
	ProviderID    string
	Error         string
}

type NotificationRepository struct {
	pool *db.Pool
}

func NewNotificationRepository(pool *db.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

func (r *NotificationRepository) Insert(ctx context.Context, n NotificationRecord) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notifications (appointment_id, tenant_id, channel, recipient, body, status, provider_id, error)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''))
	`, n.AppointmentID, n.TenantID, n.Channel, n.Recipient, n.Body, n.Status, n.ProviderID, n.Error)
	return err
}
