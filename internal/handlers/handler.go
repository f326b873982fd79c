package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rk-sharma/detailbook/internal/availability"
	"github.com/rk-sharma/detailbook/internal/core"
	"github.com/rk-sharma/detailbook/internal/identity"
	"github.com/rk-sharma/detailbook/internal/lifecycle"
	"github.com/rk-sharma/detailbook/internal/storage"
)

// Handler is the HTTP surface over the booking engine. The operator routes
// trust X-Tenant-Id from the external auth layer; the public routes are
// slug-addressed.
type Handler struct {
	svc    *lifecycle.Service
	avail  *availability.Engine
	ids    *identity.Resolver
	appts  *storage.AppointmentRepository
	logger *slog.Logger
}

func New(svc *lifecycle.Service, avail *availability.Engine, ids *identity.Resolver, appts *storage.AppointmentRepository, logger *slog.Logger) *Handler {
	return &Handler{
		svc:    svc,
		avail:  avail,
		ids:    ids,
		appts:  appts,
		logger: logger,
	}
}

func tenantIDFromHeader(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-Tenant-Id"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the engine's error taxonomy onto transport codes, keeping
// the specific reason for everything the booking UI can act on.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var ve *core.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": ve.Reason})
	case errors.Is(err, core.ErrConflict):
		writeJSON(w, http.StatusConflict, map[string]string{"error": core.ErrConflict.Error()})
	case errors.Is(err, core.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, core.ErrForbidden):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
	case errors.Is(err, core.ErrAccessDenied):
		writeJSON(w, http.StatusPaymentRequired, map[string]string{"error": core.ErrAccessDenied.Error()})
	default:
		if logger != nil {
			logger.Error("internal error", "err", err)
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

type appointmentItem struct {
	AppointmentID string   `json:"appointment_id"`
	CustomerID    string   `json:"customer_id"`
	ScheduledDate string   `json:"scheduled_date"`
	ScheduledTime string   `json:"scheduled_time"`
	ServiceName   string   `json:"service_name"`
	Amount        *float64 `json:"amount,omitempty"`
	Status        string   `json:"status"`
	PaymentStatus string   `json:"payment_status"`
	ReminderSent  bool     `json:"reminder_sent"`
	Notes         string   `json:"notes,omitempty"`
	StatusReason  string   `json:"status_reason,omitempty"`
	CreatedAt     string   `json:"created_at,omitempty"`
	UpdatedAt     string   `json:"updated_at,omitempty"`
}

func toAppointmentItem(a core.Appointment) appointmentItem {
	item := appointmentItem{
		AppointmentID: a.ID,
		CustomerID:    a.CustomerID,
		ScheduledDate: a.ScheduledDate,
		ScheduledTime: minuteOf(a.ScheduledTime),
		ServiceName:   a.ServiceName,
		Amount:        a.Amount,
		Status:        string(a.Status),
		PaymentStatus: a.PaymentStatus,
		ReminderSent:  a.ReminderSent,
		Notes:         a.Notes,
		StatusReason:  a.StatusReason,
	}
	if !a.CreatedAt.IsZero() {
		item.CreatedAt = a.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	if !a.UpdatedAt.IsZero() {
		item.UpdatedAt = a.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	return item
}

func minuteOf(t string) string {
	if len(t) > 5 {
		return t[:5]
	}
	return t
}
