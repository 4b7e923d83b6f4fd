package flow

import (
	"github.com/roach88/tradefin/internal/ledger"
)

// State is the position of an attempt in the protocol.
type State int

const (
	StateBuilding State = iota + 1
	StateLocallyValidated
	StateAwaitingEndorsements
	StateOrdering
	StateCommitting
	StateCommitted
	StateRejected
	StateFailed
)

var stateNames = map[State]string{
	StateBuilding:             "BUILDING",
	StateLocallyValidated:     "LOCALLY_VALIDATED",
	StateAwaitingEndorsements: "AWAITING_ENDORSEMENTS",
	StateOrdering:             "ORDERING",
	StateCommitting:           "COMMITTING",
	StateCommitted:            "COMMITTED",
	StateRejected:             "REJECTED",
	StateFailed:               "FAILED",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// Terminal reports whether no further transition follows s.
func (s State) Terminal() bool {
	return s == StateCommitted || s == StateRejected || s == StateFailed
}

// Event reports one state change of one attempt.
type Event struct {
	Attempt string
	Op      ledger.Op
	State   State
	TxID    string
	Err     error
}

// Observer receives events synchronously, in order, from the attempt's
// goroutine. It must not block.
type Observer func(Event)

// terminalState classifies an attempt error. Refusals (by the rule engine,
// a counterparty, the builder or the ordering authority) are REJECTED;
// transport and programming errors are FAILED.
func terminalState(err error) State {
	switch ledger.CodeOf(err) {
	case ledger.ErrCodeValidationRejected, ledger.ErrCodeNotFound,
		ledger.ErrCodeDuplicateID, ledger.ErrCodeConflictRejected:
		return StateRejected
	default:
		return StateFailed
	}
}
