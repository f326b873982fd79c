// Package availability computes occupied slots and validates candidate
// bookings. The application-level check is a fast path with a friendly error;
// the storage layer's uniqueness constraint is the authoritative guard under
// concurrency.
package availability

import (
	"context"
	"regexp"
	"time"

	"github.com/rk-sharma/detailbook/internal/core"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// 24-hour HH:MM with optional seconds; validated before parsing.
var timePattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9](:[0-5][0-9])?$`)

type SlotStore interface {
	OccupiedSlots(ctx context.Context, tenantID, startDate, endDate string) ([]core.Slot, error)
}

type Engine struct {
	store SlotStore
}

func NewEngine(store SlotStore) *Engine {
	return &Engine{store: store}
}

// ValidateDate checks a calendar date string.
func ValidateDate(s string) error {
	if _, err := time.Parse(dateLayout, s); err != nil {
		return core.Validationf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return nil
}

// NormalizeTime validates HH:MM or HH:MM:SS and truncates to minute
// precision, which is the slot identity everywhere in the engine.
func NormalizeTime(s string) (string, error) {
	if !timePattern.MatchString(s) {
		return "", core.Validationf("invalid time %q, expected HH:MM or HH:MM:SS (24-hour)", s)
	}
	return s[:5], nil
}

// SlotInFuture reports whether (date, HH:MM) lies strictly after now when
// constructed in loc. Tenant wall-clock time is the declared policy.
func SlotInFuture(date, hhmm string, loc *time.Location, now time.Time) bool {
	at, err := time.ParseInLocation(dateLayout+" "+timeLayout, date+" "+hhmm, loc)
	if err != nil {
		return false
	}
	return at.After(now)
}

// OccupiedSlots returns every slot held by an occupying appointment within
// [startDate, endDate] inclusive, minute precision.
func (e *Engine) OccupiedSlots(ctx context.Context, tenantID, startDate, endDate string) ([]core.Slot, error) {
	if err := ValidateDate(startDate); err != nil {
		return nil, err
	}
	if err := ValidateDate(endDate); err != nil {
		return nil, err
	}
	if endDate < startDate {
		return nil, core.Validationf("end date %s precedes start date %s", endDate, startDate)
	}
	slots, err := e.store.OccupiedSlots(ctx, tenantID, startDate, endDate)
	if err != nil {
		return nil, core.StorageFailure("load occupied slots", err)
	}
	return slots, nil
}

// ValidateCandidate validates a requested slot for a tenant: well-formed,
// strictly in the future in the tenant's timezone, and not currently held.
// Returns the minute-normalized time. The conflict answer here can go stale
// under a race; the insert constraint settles it.
func (e *Engine) ValidateCandidate(ctx context.Context, tenant core.Tenant, date, at string, now time.Time) (string, error) {
	if err := ValidateDate(date); err != nil {
		return "", err
	}
	hhmm, err := NormalizeTime(at)
	if err != nil {
		return "", err
	}
	loc, err := time.LoadLocation(tenant.Timezone)
	if err != nil {
		loc = time.UTC
	}
	if !SlotInFuture(date, hhmm, loc, now) {
		return "", core.Validationf("requested slot %s %s is in the past", date, hhmm)
	}

	held, err := e.store.OccupiedSlots(ctx, tenant.ID, date, date)
	if err != nil {
		return "", core.StorageFailure("check slot availability", err)
	}
	for _, s := range held {
		if s.Date == date && s.Time == hhmm {
			return "", core.ErrConflict
		}
	}
	return hhmm, nil
}
