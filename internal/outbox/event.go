package outbox

// Event is the domain event envelope written to the outbox table.
// The Kafka topic name equals EventType (event per topic).
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// Event types emitted by the appointment lifecycle.
const (
	EventAppointmentReserved    = "booking.appointment.reserved.v1"
	EventAppointmentConfirmed   = "booking.appointment.confirmed.v1"
	EventAppointmentRescheduled = "booking.appointment.rescheduled.v1"
	EventAppointmentCancelled   = "booking.appointment.cancelled.v1"
	EventAppointmentStarted     = "booking.appointment.started.v1"
	EventAppointmentCompleted   = "booking.appointment.completed.v1"
	EventAppointmentNoShow      = "booking.appointment.no_show.v1"
	EventAppointmentPurged      = "booking.appointment.purged.v1"
)
