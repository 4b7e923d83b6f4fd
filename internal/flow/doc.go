// Package flow runs the multi-party commitment protocol.
//
// An Initiator drives one transition attempt through an explicit state
// machine:
//
//	BUILDING -> LOCALLY_VALIDATED -> AWAITING_ENDORSEMENTS -> ORDERING -> COMMITTING -> COMMITTED
//
// with REJECTED and FAILED as terminal error states reachable from any
// non-terminal state. Every state change is reported to an Observer and
// logged at Debug.
//
// # Stages
//
//  1. BUILDING: the proposal builder resolves inputs and assembles the
//     transaction. NOT_FOUND, DUPLICATE_ID and initiator-side refusals end
//     here, before any message is sent.
//  2. LOCALLY_VALIDATED: the rule engine accepted the transaction locally.
//  3. AWAITING_ENDORSEMENTS: the proposal goes to every other required
//     signer concurrently. Each Responder re-runs the rule engine and its
//     own relevance checks. The first refusal cancels the outstanding
//     sessions and ends the attempt REJECTED. A timeout or unreachable
//     party ends it FAILED.
//  4. ORDERING: the fully endorsed transaction is submitted to the
//     ordering authority. CONFLICT_REJECTED ends the attempt REJECTED; it
//     is the only error RunWithRetry retries, rebuilding from BUILDING
//     against fresh live records.
//  5. COMMITTING: the admitted transaction is applied to the initiator's
//     vault and fanned out concurrently to every other recipient. Once
//     admitted, the transaction is committed: fan-out failures are
//     reported in Result.CommitErrors, never as an attempt error.
//
// Nothing is written to any vault before admission, so no partial
// transition is ever visible.
package flow
