package lifecycle

import (
	"github.com/rk-sharma/detailbook/internal/core"
)

// allowedTransitions is the whole state machine. pending appears as a target
// of itself and of confirmed because reschedule records intent and returns
// the appointment to pending for manual follow-up. no_show is operator-set;
// nothing here fires it automatically.
var allowedTransitions = map[core.AppointmentStatus][]core.AppointmentStatus{
	core.StatusPending:    {core.StatusConfirmed, core.StatusPending, core.StatusCancelled, core.StatusNoShow},
	core.StatusConfirmed:  {core.StatusInProgress, core.StatusPending, core.StatusCancelled, core.StatusNoShow},
	core.StatusInProgress: {core.StatusCompleted, core.StatusCancelled},
}

func CanTransition(from, to core.AppointmentStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func validateTransition(from, to core.AppointmentStatus) error {
	if from.Terminal() {
		return core.Validationf("no transitions allowed from %s", from)
	}
	if !CanTransition(from, to) {
		return core.Validationf("invalid transition from %s to %s", from, to)
	}
	return nil
}
