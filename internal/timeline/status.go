package timeline

import "errors"

// Status represents the lifecycle state of a reservation.
type Status string

const (
	StatusPendiente  Status = "pendiente"
	StatusConfirmada Status = "confirmada"
	StatusCheckin    Status = "checkin"
	StatusCheckout   Status = "checkout"
	StatusCancelada  Status = "cancelada"
)

// ErrIllegalTransition signals a transition that is not legal from the
// booking's current status. Rejected locally before any network call.
var ErrIllegalTransition = errors.New("transition not allowed from current status")

// Op names a reservation write operation on the backend.
type Op string

const (
	OpCreate   Op = "create"
	OpConfirm  Op = "confirm"
	OpCheckIn  Op = "checkin"
	OpCheckOut Op = "checkout"
	OpCancel   Op = "cancel"
)

// transitions holds the allowed next statuses per status. checkout and
// cancelada are terminal.
var transitions = map[Status][]Status{
	StatusPendiente:  {StatusConfirmada, StatusCancelada},
	StatusConfirmada: {StatusCheckin, StatusCancelada},
	StatusCheckin:    {StatusCheckout},
	StatusCheckout:   {},
	StatusCancelada:  {},
}

// forwardFlow is the single happy-path step from each non-terminal status.
var forwardFlow = map[Status]Status{
	StatusPendiente:  StatusConfirmada,
	StatusConfirmada: StatusCheckin,
	StatusCheckin:    StatusCheckout,
}

// transitionOps maps a forward or cancel target status to the backend write
// operation that performs it.
var transitionOps = map[Status]Op{
	StatusConfirmada: OpConfirm,
	StatusCheckin:    OpCheckIn,
	StatusCheckout:   OpCheckOut,
	StatusCancelada:  OpCancel,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal reports whether s admits no further transition.
func (s Status) IsTerminal() bool {
	next, ok := transitions[s]
	return ok && len(next) == 0
}

// CanTransition reports whether moving from s to target is allowed.
func CanTransition(s, target Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// NextInFlow returns the single forward transition from s
// (pendiente→confirmada→checkin→checkout). ok is false for terminal or
// unknown statuses.
func NextInFlow(s Status) (next Status, ok bool) {
	next, ok = forwardFlow[s]
	return next, ok
}

// CanCancel reports whether cancellation is offered from s.
func CanCancel(s Status) bool {
	return CanTransition(s, StatusCancelada)
}

// OpFor returns the backend write operation that moves a booking from s to
// target, validating the transition first.
func OpFor(s, target Status) (Op, error) {
	if !CanTransition(s, target) {
		return "", ErrIllegalTransition
	}
	op, ok := transitionOps[target]
	if !ok {
		return "", ErrIllegalTransition
	}
	return op, nil
}

// TargetOf returns the status an operation leads to when applied to a booking
// in status s, validating the transition. The inverse of OpFor, used by the
// HTTP layer which receives operation names.
func TargetOf(s Status, op Op) (Status, error) {
	for target, candidate := range transitionOps {
		if candidate != op {
			continue
		}
		if !CanTransition(s, target) {
			return "", ErrIllegalTransition
		}
		return target, nil
	}
	return "", ErrIllegalTransition
}
