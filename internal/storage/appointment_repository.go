package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rk-sharma/detailbook/internal/core"
	"github.com/rk-sharma/detailbook/libs/db"
)

// AppointmentRepository persists appointments. Slot uniqueness is enforced by
// a partial unique index over (tenant_id, scheduled_date, minute-truncated
// scheduled_time) restricted to occupying statuses, so the second of two
// racing inserts fails with a conflict the application surfaces as
// core.ErrConflict.
type AppointmentRepository struct {
	pool *db.Pool
}

func NewAppointmentRepository(pool *db.Pool) *AppointmentRepository {
	return &AppointmentRepository{pool: pool}
}

func (r *AppointmentRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

const appointmentColumns = `id::text, tenant_id::text, customer_id::text,
	to_char(scheduled_date, 'YYYY-MM-DD'), to_char(scheduled_time, 'HH24:MI:SS'),
	service_name, amount, status, payment_status, reminder_sent,
	COALESCE(notes, ''), COALESCE(status_reason, ''), created_at, updated_at`

func (r *AppointmentRepository) Insert(ctx context.Context, tx pgx.Tx, a *core.Appointment) (string, error) {
	id := uuid.NewString()
	_, err := tx.Exec(ctx, `
		INSERT INTO appointments
			(id, tenant_id, customer_id, scheduled_date, scheduled_time,
			 service_name, amount, status, payment_status, notes)
		VALUES ($1, $2, $3, $4::date, $5::time, $6, $7, $8, $9, NULLIF($10, ''))
	`, id, a.TenantID, a.CustomerID, a.ScheduledDate, a.ScheduledTime,
		a.ServiceName, a.Amount, a.Status, a.PaymentStatus, a.Notes)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *AppointmentRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (core.Appointment, error) {
	return scanAppointment(tx.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
		FOR UPDATE
	`, id))
}

func (r *AppointmentRepository) Get(ctx context.Context, id string) (core.Appointment, error) {
	return scanAppointment(r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id))
}

func (r *AppointmentRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id string, status core.AppointmentStatus, reason string) error {
	_, err := tx.Exec(ctx, `
		UPDATE appointments
		SET status = $2,
			status_reason = NULLIF($3, ''),
			updated_at = now()
		WHERE id = $1
	`, id, status, reason)
	return err
}

func (r *AppointmentRepository) SetReminderSent(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET reminder_sent = true,
			updated_at = now()
		WHERE id = $1
	`, id)
	return err
}

// Delete hard-deletes; the lifecycle only permits this from cancelled.
func (r *AppointmentRepository) Delete(ctx context.Context, tx pgx.Tx, id string) error {
	tag, err := tx.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// OccupiedSlots returns slots held by occupying appointments within the
// inclusive date range, times truncated to the minute.
func (r *AppointmentRepository) OccupiedSlots(ctx context.Context, tenantID, startDate, endDate string) ([]core.Slot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT to_char(scheduled_date, 'YYYY-MM-DD'), to_char(scheduled_time, 'HH24:MI')
		FROM appointments
		WHERE tenant_id = $1
			AND scheduled_date BETWEEN $2::date AND $3::date
			AND status IN ('pending', 'confirmed', 'in_progress')
		ORDER BY scheduled_date, scheduled_time
	`, tenantID, startDate, endDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slots []core.Slot
	for rows.Next() {
		var s core.Slot
		if err := rows.Scan(&s.Date, &s.Time); err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return slots, nil
}

func (r *AppointmentRepository) ListByTenant(ctx context.Context, tenantID, fromDate, toDate string, limit int) ([]core.Appointment, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE tenant_id = $1
			AND ($2 = '' OR scheduled_date >= $2::date)
			AND ($3 = '' OR scheduled_date <= $3::date)
		ORDER BY scheduled_date DESC, scheduled_time DESC
		LIMIT $4
	`, tenantID, fromDate, toDate, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []core.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, a)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}

func scanAppointment(row pgx.Row) (core.Appointment, error) {
	var a core.Appointment
	err := row.Scan(
		&a.ID,
		&a.TenantID,
		&a.CustomerID,
		&a.ScheduledDate,
		&a.ScheduledTime,
		&a.ServiceName,
		&a.Amount,
		&a.Status,
		&a.PaymentStatus,
		&a.ReminderSent,
		&a.Notes,
		&a.StatusReason,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return core.Appointment{}, err
	}
	return a, nil
}
