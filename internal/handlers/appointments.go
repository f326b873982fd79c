package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rk-sharma/detailbook/internal/availability"
	"github.com/rk-sharma/detailbook/internal/core"
	"github.com/rk-sharma/detailbook/internal/identity"
	"github.com/rk-sharma/detailbook/internal/lifecycle"
)

// List handles GET /api/v1/appointments?from=&to=&limit=. The tenant comes
// from X-Tenant-Id and must be the internal UUID form.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	tenantID := tenantIDFromHeader(r)
	if !identity.IsInternalID(tenantID) {
		writeError(w, h.logger, core.Validationf("X-Tenant-Id must be the internal tenant id"))
		return
	}

	q := r.URL.Query()
	from, to := q.Get("from"), q.Get("to")
	for _, d := range []string{from, to} {
		if d == "" {
			continue
		}
		if err := availability.ValidateDate(d); err != nil {
			writeError(w, h.logger, err)
			return
		}
	}
	if from != "" && to != "" && to < from {
		writeError(w, h.logger, core.Validationf("end date %s precedes start date %s", to, from))
		return
	}
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, h.logger, core.Validationf("limit must be a positive integer"))
			return
		}
		limit = n
	}

	appts, err := h.appts.ListByTenant(r.Context(), tenantID, from, to, limit)
	if err != nil {
		writeError(w, h.logger, core.StorageFailure("list appointments", err))
		return
	}
	items := make([]appointmentItem, 0, len(appts))
	for _, a := range appts {
		items = append(items, toAppointmentItem(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": items})
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

func decodeReason(r *http.Request) string {
	var req reasonRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	return req.Reason
}

func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	appt, outcome, err := h.svc.Confirm(r.Context(), tenantIDFromHeader(r), r.PathValue("id"))
	h.respondTransition(w, appt, outcome, err)
}

func (h *Handler) Reschedule(w http.ResponseWriter, r *http.Request) {
	appt, outcome, err := h.svc.Reschedule(r.Context(), tenantIDFromHeader(r), r.PathValue("id"), decodeReason(r))
	h.respondTransition(w, appt, outcome, err)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	appt, outcome, err := h.svc.Cancel(r.Context(), tenantIDFromHeader(r), r.PathValue("id"), decodeReason(r))
	h.respondTransition(w, appt, outcome, err)
}

func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	appt, outcome, err := h.svc.Start(r.Context(), tenantIDFromHeader(r), r.PathValue("id"))
	h.respondTransition(w, appt, outcome, err)
}

func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	appt, outcome, err := h.svc.Complete(r.Context(), tenantIDFromHeader(r), r.PathValue("id"))
	h.respondTransition(w, appt, outcome, err)
}

func (h *Handler) NoShow(w http.ResponseWriter, r *http.Request) {
	appt, outcome, err := h.svc.MarkNoShow(r.Context(), tenantIDFromHeader(r), r.PathValue("id"))
	h.respondTransition(w, appt, outcome, err)
}

func (h *Handler) Remind(w http.ResponseWriter, r *http.Request) {
	appt, outcome, err := h.svc.SendReminder(r.Context(), tenantIDFromHeader(r), r.PathValue("id"))
	h.respondTransition(w, appt, outcome, err)
}

func (h *Handler) Purge(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Purge(r.Context(), tenantIDFromHeader(r), r.PathValue("id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondTransition(w http.ResponseWriter, appt core.Appointment, outcome lifecycle.NotificationOutcome, err error) {
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"appointment":  toAppointmentItem(appt),
		"notification": outcome,
	})
}
