// Package lifecycle owns the appointment status state machine and
// orchestrates every mutation: reservation, the defined transitions, the
// reminder trigger, and the cancelled-only purge. State changes commit before
// any notification is attempted; notification outcomes travel back as data.
package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rk-sharma/detailbook/internal/core"
	"github.com/rk-sharma/detailbook/internal/customer"
	"github.com/rk-sharma/detailbook/internal/notify"
	"github.com/rk-sharma/detailbook/internal/outbox"
	"github.com/rk-sharma/detailbook/internal/storage"
)

type AppointmentStore interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Insert(ctx context.Context, tx pgx.Tx, a *core.Appointment) (string, error)
	Get(ctx context.Context, id string) (core.Appointment, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (core.Appointment, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id string, status core.AppointmentStatus, reason string) error
	SetReminderSent(ctx context.Context, id string) error
	Delete(ctx context.Context, tx pgx.Tx, id string) error
}

type CustomerDirectory interface {
	GetByID(ctx context.Context, id string) (core.Customer, error)
}

type CustomerResolver interface {
	ResolveOrCreate(ctx context.Context, in customer.Input) (core.Customer, error)
}

type TenantResolver interface {
	ResolveTenant(ctx context.Context, tenantRef string) (core.Tenant, error)
	Authorize(ctx context.Context, claimedInternalID, storedRef string) (bool, error)
}

type SlotValidator interface {
	ValidateCandidate(ctx context.Context, tenant core.Tenant, date, at string, now time.Time) (string, error)
}

type ServiceCatalog interface {
	FindActiveByName(ctx context.Context, tenantID, name string) (core.ServiceOffering, bool, error)
}

type AccessGate interface {
	HasAccess(ctx context.Context, tenantID string) (bool, error)
}

type OutboxStore interface {
	Insert(ctx context.Context, tx pgx.Tx, evt outbox.Event) error
}

type NotificationLog interface {
	Insert(ctx context.Context, n storage.NotificationRecord) error
}

type Notifier interface {
	Send(ctx context.Context, recipient, message string) notify.Result
	Channel(recipient string) string
}

// NotificationOutcome reports the side effect of a transition without ever
// being the operation's error.
type NotificationOutcome struct {
	Attempted  bool   `json:"attempted"`
	Sent       bool   `json:"sent"`
	ProviderID string `json:"provider_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

type Service struct {
	appts     AppointmentStore
	customers CustomerDirectory
	resolve   CustomerResolver
	tenants   TenantResolver
	slots     SlotValidator
	catalog   ServiceCatalog
	gate      AccessGate
	outbox    OutboxStore
	noteLog   NotificationLog
	notifier  Notifier
	logger    *slog.Logger
	now       func() time.Time
}

type Deps struct {
	Appointments  AppointmentStore
	Customers     CustomerDirectory
	Resolver      CustomerResolver
	Tenants       TenantResolver
	Slots         SlotValidator
	Catalog       ServiceCatalog
	Gate          AccessGate
	Outbox        OutboxStore
	Notifications NotificationLog
	Notifier      Notifier
	Logger        *slog.Logger
	Now           func() time.Time
}

func NewService(d Deps) *Service {
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Service{
		appts:     d.Appointments,
		customers: d.Customers,
		resolve:   d.Resolver,
		tenants:   d.Tenants,
		slots:     d.Slots,
		catalog:   d.Catalog,
		gate:      d.Gate,
		outbox:    d.Outbox,
		noteLog:   d.Notifications,
		notifier:  d.Notifier,
		logger:    d.Logger,
		now:       d.Now,
	}
}

type ReserveRequest struct {
	TenantRef    string
	Date         string
	Time         string
	ServiceName  string
	ServicePrice *float64
	Customer     customer.Input
	Notes        string
}

// Reserve runs the whole booking flow: tenant resolution, access gate, slot
// validation, customer identity resolution, then the insert. The insert's
// uniqueness constraint settles any race the fast-path check missed.
func (s *Service) Reserve(ctx context.Context, req ReserveRequest) (core.Appointment, core.Customer, error) {
	tenant, err := s.tenants.ResolveTenant(ctx, req.TenantRef)
	if err != nil {
		return core.Appointment{}, core.Customer{}, err
	}
	if err := s.checkAccess(ctx, tenant.ID); err != nil {
		return core.Appointment{}, core.Customer{}, err
	}

	hhmm, err := s.slots.ValidateCandidate(ctx, tenant, req.Date, req.Time, s.now())
	if err != nil {
		return core.Appointment{}, core.Customer{}, err
	}

	serviceName := strings.TrimSpace(req.ServiceName)
	if serviceName == "" {
		return core.Appointment{}, core.Customer{}, core.Validationf("service name is required")
	}
	amount := req.ServicePrice
	if svc, found, err := s.catalog.FindActiveByName(ctx, tenant.ID, serviceName); err != nil {
		return core.Appointment{}, core.Customer{}, core.StorageFailure("look up service", err)
	} else if found {
		// Persisted services win over the client-supplied pair; the
		// appointment snapshots name and price either way.
		serviceName = svc.Name
		price := svc.Price
		amount = &price
	}

	cust, err := s.resolve.ResolveOrCreate(ctx, req.Customer)
	if err != nil {
		return core.Appointment{}, core.Customer{}, err
	}

	appt := core.Appointment{
		TenantID:      tenant.ID,
		CustomerID:    cust.ID,
		ScheduledDate: req.Date,
		ScheduledTime: hhmm,
		ServiceName:   serviceName,
		Amount:        amount,
		Status:        core.StatusPending,
		PaymentStatus: "unpaid",
		Notes:         strings.TrimSpace(req.Notes),
	}

	tx, err := s.appts.Begin(ctx)
	if err != nil {
		return core.Appointment{}, core.Customer{}, core.StorageFailure("begin reservation", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	id, err := s.appts.Insert(ctx, tx, &appt)
	if err != nil {
		if storage.IsConflict(err) {
			return core.Appointment{}, core.Customer{}, core.ErrConflict
		}
		return core.Appointment{}, core.Customer{}, core.StorageFailure("insert appointment", err)
	}
	appt.ID = id

	if err := s.insertEvent(ctx, tx, outbox.EventAppointmentReserved, appt, ""); err != nil {
		return core.Appointment{}, core.Customer{}, core.StorageFailure("write outbox event", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return core.Appointment{}, core.Customer{}, core.StorageFailure("commit reservation", err)
	}

	if stored, err := s.appts.Get(ctx, id); err == nil {
		appt = stored
	}
	return appt, cust, nil
}

// Confirm moves pending to confirmed and tells the customer.
func (s *Service) Confirm(ctx context.Context, tenantID, appointmentID string) (core.Appointment, NotificationOutcome, error) {
	return s.transition(ctx, tenantID, appointmentID, core.StatusConfirmed, "", outbox.EventAppointmentConfirmed,
		func(a core.Appointment, c core.Customer) string {
			return fmt.Sprintf("Hi %s, your %s appointment on %s at %s is confirmed.",
				c.Name, a.ServiceName, a.ScheduledDate, minute(a.ScheduledTime))
		})
}

// Reschedule records the intent with its reason and returns the appointment
// to pending; rebooking the actual slot is a manual follow-up.
func (s *Service) Reschedule(ctx context.Context, tenantID, appointmentID, reason string) (core.Appointment, NotificationOutcome, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return core.Appointment{}, NotificationOutcome{}, core.Validationf("a reschedule reason is required")
	}
	return s.transition(ctx, tenantID, appointmentID, core.StatusPending, reason, outbox.EventAppointmentRescheduled,
		func(a core.Appointment, c core.Customer) string {
			return fmt.Sprintf("Hi %s, your %s appointment on %s at %s needs to be rescheduled: %s. We will contact you to find a new time.",
				c.Name, a.ServiceName, a.ScheduledDate, minute(a.ScheduledTime), reason)
		})
}

func (s *Service) Cancel(ctx context.Context, tenantID, appointmentID, reason string) (core.Appointment, NotificationOutcome, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return core.Appointment{}, NotificationOutcome{}, core.Validationf("a cancellation reason is required")
	}
	return s.transition(ctx, tenantID, appointmentID, core.StatusCancelled, reason, outbox.EventAppointmentCancelled,
		func(a core.Appointment, c core.Customer) string {
			return fmt.Sprintf("Hi %s, your %s appointment on %s at %s has been cancelled: %s.",
				c.Name, a.ServiceName, a.ScheduledDate, minute(a.ScheduledTime), reason)
		})
}

// Start marks the vehicle as in service.
func (s *Service) Start(ctx context.Context, tenantID, appointmentID string) (core.Appointment, NotificationOutcome, error) {
	return s.transition(ctx, tenantID, appointmentID, core.StatusInProgress, "", outbox.EventAppointmentStarted, nil)
}

func (s *Service) Complete(ctx context.Context, tenantID, appointmentID string) (core.Appointment, NotificationOutcome, error) {
	return s.transition(ctx, tenantID, appointmentID, core.StatusCompleted, "", outbox.EventAppointmentCompleted, nil)
}

// MarkNoShow is operator-set; there is no automatic trigger.
func (s *Service) MarkNoShow(ctx context.Context, tenantID, appointmentID string) (core.Appointment, NotificationOutcome, error) {
	return s.transition(ctx, tenantID, appointmentID, core.StatusNoShow, "", outbox.EventAppointmentNoShow, nil)
}

// SendReminder triggers a reminder without changing status. The reminder_sent
// flag is set only after a successful send, so retrying a failed reminder
// stays meaningful.
func (s *Service) SendReminder(ctx context.Context, tenantID, appointmentID string) (core.Appointment, NotificationOutcome, error) {
	if err := s.checkAccess(ctx, tenantID); err != nil {
		return core.Appointment{}, NotificationOutcome{}, err
	}
	appt, err := s.appts.Get(ctx, appointmentID)
	if err != nil {
		if storage.IsNotFound(err) {
			return core.Appointment{}, NotificationOutcome{}, fmt.Errorf("appointment %s: %w", appointmentID, core.ErrNotFound)
		}
		return core.Appointment{}, NotificationOutcome{}, core.StorageFailure("load appointment", err)
	}
	if err := s.authorize(ctx, tenantID, appt); err != nil {
		return core.Appointment{}, NotificationOutcome{}, err
	}
	if appt.Status == core.StatusCancelled {
		return core.Appointment{}, NotificationOutcome{}, core.Validationf("cannot send a reminder for a cancelled appointment")
	}

	outcome := s.notifyCustomer(ctx, appt, func(a core.Appointment, c core.Customer) string {
		return fmt.Sprintf("Hi %s, a reminder: your %s appointment is on %s at %s.",
			c.Name, a.ServiceName, a.ScheduledDate, minute(a.ScheduledTime))
	})
	if outcome.Sent {
		if err := s.appts.SetReminderSent(ctx, appt.ID); err != nil {
			s.logger.Warn("failed to set reminder_sent", "appointment_id", appt.ID, "err", err)
		} else {
			appt.ReminderSent = true
		}
	}
	return appt, outcome, nil
}

// Purge hard-deletes a cancelled appointment. The only operation that deletes
// rather than transitions.
func (s *Service) Purge(ctx context.Context, tenantID, appointmentID string) error {
	if err := s.checkAccess(ctx, tenantID); err != nil {
		return err
	}
	tx, err := s.appts.Begin(ctx)
	if err != nil {
		return core.StorageFailure("begin purge", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := s.appts.GetForUpdate(ctx, tx, appointmentID)
	if err != nil {
		if storage.IsNotFound(err) {
			return fmt.Errorf("appointment %s: %w", appointmentID, core.ErrNotFound)
		}
		return core.StorageFailure("load appointment", err)
	}
	if err := s.authorize(ctx, tenantID, appt); err != nil {
		return err
	}
	if appt.Status != core.StatusCancelled {
		return core.Validationf("only cancelled appointments can be purged")
	}

	if err := s.appts.Delete(ctx, tx, appt.ID); err != nil {
		return core.StorageFailure("delete appointment", err)
	}
	if err := s.insertEvent(ctx, tx, outbox.EventAppointmentPurged, appt, ""); err != nil {
		return core.StorageFailure("write outbox event", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return core.StorageFailure("commit purge", err)
	}
	return nil
}

type messageFunc func(core.Appointment, core.Customer) string

func (s *Service) transition(ctx context.Context, tenantID, appointmentID string, to core.AppointmentStatus, reason, eventType string, message messageFunc) (core.Appointment, NotificationOutcome, error) {
	if err := s.checkAccess(ctx, tenantID); err != nil {
		return core.Appointment{}, NotificationOutcome{}, err
	}

	tx, err := s.appts.Begin(ctx)
	if err != nil {
		return core.Appointment{}, NotificationOutcome{}, core.StorageFailure("begin transition", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := s.appts.GetForUpdate(ctx, tx, appointmentID)
	if err != nil {
		if storage.IsNotFound(err) {
			return core.Appointment{}, NotificationOutcome{}, fmt.Errorf("appointment %s: %w", appointmentID, core.ErrNotFound)
		}
		return core.Appointment{}, NotificationOutcome{}, core.StorageFailure("load appointment", err)
	}
	if err := s.authorize(ctx, tenantID, appt); err != nil {
		return core.Appointment{}, NotificationOutcome{}, err
	}
	if err := validateTransition(appt.Status, to); err != nil {
		return core.Appointment{}, NotificationOutcome{}, err
	}

	if err := s.appts.UpdateStatus(ctx, tx, appt.ID, to, reason); err != nil {
		return core.Appointment{}, NotificationOutcome{}, core.StorageFailure("update status", err)
	}
	from := appt.Status
	appt.Status = to
	if reason != "" {
		appt.StatusReason = reason
	}
	if err := s.insertEvent(ctx, tx, eventType, appt, string(from)); err != nil {
		return core.Appointment{}, NotificationOutcome{}, core.StorageFailure("write outbox event", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return core.Appointment{}, NotificationOutcome{}, core.StorageFailure("commit transition", err)
	}

	var outcome NotificationOutcome
	if message != nil {
		outcome = s.notifyCustomer(ctx, appt, message)
	}
	return appt, outcome, nil
}

func (s *Service) checkAccess(ctx context.Context, tenantID string) error {
	ok, err := s.gate.HasAccess(ctx, tenantID)
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrAccessDenied
	}
	return nil
}

func (s *Service) authorize(ctx context.Context, claimedID string, appt core.Appointment) error {
	ok, err := s.tenants.Authorize(ctx, claimedID, appt.TenantID)
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrForbidden
	}
	return nil
}

// notifyCustomer runs strictly after commit. Failures are logged, recorded,
// and returned as data; skips leave a record too, so the notification log is
// a complete account of why each customer did or did not hear from us.
func (s *Service) notifyCustomer(ctx context.Context, appt core.Appointment, message messageFunc) NotificationOutcome {
	cust, err := s.customers.GetByID(ctx, appt.CustomerID)
	if err != nil {
		s.logger.Warn("notification skipped: customer lookup failed", "appointment_id", appt.ID, "err", err)
		s.recordSkip(ctx, appt, "customer lookup failed")
		return NotificationOutcome{Attempted: true, Error: "customer lookup failed"}
	}
	recipient := cust.Phone
	if recipient == "" {
		recipient = cust.Email
	}
	if recipient == "" {
		s.recordSkip(ctx, appt, "customer has no contact details")
		return NotificationOutcome{}
	}

	body := message(appt, cust)
	res := s.notifier.Send(ctx, recipient, body)

	rec := storage.NotificationRecord{
		AppointmentID: appt.ID,
		TenantID:      appt.TenantID,
		Channel:       s.notifier.Channel(recipient),
		Recipient:     recipient,
		Body:          body,
		Status:        "sent",
		ProviderID:    res.ProviderID,
	}
	outcome := NotificationOutcome{Attempted: true, Sent: res.Sent, ProviderID: res.ProviderID}
	if res.Err != nil {
		rec.Status = "failed"
		rec.Error = res.Err.Error()
		outcome.Error = res.Err.Error()
		s.logger.Warn("notification failed", "appointment_id", appt.ID, "err", res.Err)
	}
	if err := s.noteLog.Insert(ctx, rec); err != nil {
		s.logger.Warn("failed to record notification", "appointment_id", appt.ID, "err", err)
	}
	return outcome
}

func (s *Service) recordSkip(ctx context.Context, appt core.Appointment, reason string) {
	err := s.noteLog.Insert(ctx, storage.NotificationRecord{
		AppointmentID: appt.ID,
		TenantID:      appt.TenantID,
		Status:        "skipped",
		Error:         reason,
	})
	if err != nil {
		s.logger.Warn("failed to record skipped notification", "appointment_id", appt.ID, "err", err)
	}
}

func (s *Service) insertEvent(ctx context.Context, tx pgx.Tx, eventType string, appt core.Appointment, fromStatus string) error {
	payload, err := json.Marshal(map[string]any{
		"appointment_id": appt.ID,
		"tenant_id":      appt.TenantID,
		"customer_id":    appt.CustomerID,
		"scheduled_date": appt.ScheduledDate,
		"scheduled_time": minute(appt.ScheduledTime),
		"service_name":   appt.ServiceName,
		"status":         string(appt.Status),
		"from_status":    fromStatus,
		"reason":         appt.StatusReason,
	})
	if err != nil {
		return err
	}
	return s.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "appointment",
		AggregateID:   appt.ID,
		EventType:     eventType,
		Payload:       payload,
	})
}

func minute(hhmmss string) string {
	if len(hhmmss) > 5 {
		return hhmmss[:5]
	}
	return hhmmss
}
