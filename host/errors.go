package host

import "errors"

var (
	ErrInvalidModule     = errors.New("invalid module")
	ErrUnresolvedImport  = errors.New("unresolved import")
	ErrSignatureMismatch = errors.New("signature mismatch")
	ErrInstantiation     = errors.New("instantiation failed")
	ErrExportNotFound    = errors.New("export not found")
	ErrTrapped           = errors.New("trapped")

	ErrClosed       = errors.New("closed")
	ErrInstanceBusy = errors.New("instance busy")
)

// State is a step of the load/link/run state machine. Transitions only move
// forward; a failure leaves the attempt in the last state reached.
type State int

const (
	StateUnloaded State = iota
	StateValidated
	StateLinked
	StateInstantiated
	StateInvoked
	StateReturned
	StateTrapped
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateValidated:
		return "validated"
	case StateLinked:
		return "linked"
	case StateInstantiated:
		return "instantiated"
	case StateInvoked:
		return "invoked"
	case StateReturned:
		return "returned"
	case StateTrapped:
		return "trapped"
	default:
		return "unknown"
	}
}
