package core

import "time"

// Tenant is a detailing business. Slug is the public identifier used in
// booking links; ID is the stable internal identifier. Both forms appear in
// stored references, so callers resolve through identity.Resolver instead of
// comparing raw strings.
type Tenant struct {
	ID        string
	Slug      string
	Name      string
	Timezone  string // IANA name, e.g. America/Denver
	Active    bool
	CreatedAt time.Time
}

// Customer is matched by contact details and shared across tenants; a tenant
// only ever reaches a customer through its appointments.
type Customer struct {
	ID        string
	Name      string
	Phone     string
	Email     string
	Address   string
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ServiceOffering is a tenant-configured service. Bookings may also carry an
// ephemeral (name, price) pair when the tenant has configured none; the
// appointment snapshots name and amount either way.
type ServiceOffering struct {
	ID              string
	TenantID        string
	Name            string
	Price           float64
	DurationMinutes int
	Active          bool
	CreatedAt       time.Time
}

type AppointmentStatus string

const (
	StatusPending    AppointmentStatus = "pending"
	StatusConfirmed  AppointmentStatus = "confirmed"
	StatusInProgress AppointmentStatus = "in_progress"
	StatusCompleted  AppointmentStatus = "completed"
	StatusCancelled  AppointmentStatus = "cancelled"
	StatusNoShow     AppointmentStatus = "no_show"
)

// Terminal reports whether no further transition is permitted from s.
func (s AppointmentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusNoShow
}

// Occupying reports whether an appointment in status s holds its slot.
func (s AppointmentStatus) Occupying() bool {
	return s == StatusPending || s == StatusConfirmed || s == StatusInProgress
}

// Appointment keys its slot by calendar date plus time-of-day, compared at
// minute precision. ScheduledDate is "2006-01-02"; ScheduledTime is
// "15:04:05" (seconds stored but never part of slot identity).
type Appointment struct {
	ID            string
	TenantID      string
	CustomerID    string
	ScheduledDate string
	ScheduledTime string
	ServiceName   string
	Amount        *float64
	Status        AppointmentStatus
	PaymentStatus string // externally driven; the engine never derives it
	ReminderSent  bool
	Notes         string
	StatusReason  string // last cancel/reschedule reason
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Slot is a bookable (date, minute) pair.
type Slot struct {
	Date string `json:"date"`
	Time string `json:"time"` // HH:MM
}
