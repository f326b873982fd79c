package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rk-sharma/detailbook/internal/core"
	"github.com/rk-sharma/detailbook/internal/customer"
	"github.com/rk-sharma/detailbook/internal/lifecycle"
)

// Slots handles GET /api/v1/public/{tenantRef}/slots?start=&end=.
// end defaults to start, so a single-day query needs one parameter.
func (h *Handler) Slots(w http.ResponseWriter, r *http.Request) {
	tenant, err := h.ids.ResolveTenant(r.Context(), r.PathValue("tenantRef"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	start := r.URL.Query().Get("start")
	end := r.URL.Query().Get("end")
	if start == "" {
		writeError(w, h.logger, core.Validationf("start date is required"))
		return
	}
	if end == "" {
		end = start
	}

	slots, err := h.avail.OccupiedSlots(r.Context(), tenant.ID, start, end)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if slots == nil {
		slots = []core.Slot{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tenant":         tenant.Slug,
		"start":          start,
		"end":            end,
		"occupied_slots": slots,
	})
}

type bookRequest struct {
	Date            string   `json:"date"`
	Time            string   `json:"time"`
	ServiceName     string   `json:"service_name"`
	ServicePrice    *float64 `json:"service_price,omitempty"`
	CustomerName    string   `json:"customer_name"`
	CustomerPhone   string   `json:"customer_phone"`
	CustomerEmail   string   `json:"customer_email,omitempty"`
	CustomerAddress string   `json:"customer_address,omitempty"`
	Notes           string   `json:"notes,omitempty"`
}

// Book handles POST /api/v1/public/{tenantRef}/book.
func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, core.Validationf("invalid JSON body"))
		return
	}

	appt, cust, err := h.svc.Reserve(r.Context(), lifecycle.ReserveRequest{
		TenantRef:    r.PathValue("tenantRef"),
		Date:         req.Date,
		Time:         req.Time,
		ServiceName:  req.ServiceName,
		ServicePrice: req.ServicePrice,
		Customer: customer.Input{
			Name:    req.CustomerName,
			Phone:   req.CustomerPhone,
			Email:   req.CustomerEmail,
			Address: req.CustomerAddress,
		},
		Notes: req.Notes,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"appointment": toAppointmentItem(appt),
		"customer": map[string]string{
			"customer_id": cust.ID,
			"name":        cust.Name,
		},
	})
}
