// Package network is the in-process transport between parties.
//
// Each registered party owns a Mailbox: an unbounded FIFO queue drained by
// a single goroutine that hands every message to the party's Handler. A
// party therefore processes one protocol message at a time, in arrival
// order, the same way the rest of tradefin keeps mutation on a single
// writer.
//
// Request is synchronous from the caller's point of view: it enqueues the
// message and waits for the handler's reply or for ctx to end. Transport
// failures (unknown party, unreachable party, timeout) surface as
// SESSION_FAILED errors attributed to the remote party. Errors returned by
// the remote handler pass through unchanged, so a counterparty's refusal
// stays VALIDATION_REJECTED and is never confused with a timeout.
//
// Faults can be injected per party with SetUnreachable and SetDelay.
package network
