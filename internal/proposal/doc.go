// Package proposal turns operation parameters into transaction proposals.
//
// A Builder resolves every referenced business id against its party's view
// of live records, runs the initiator-side checks that depend on store
// contents (business id uniqueness, "I must be the buyer", the input
// credit's current status) and assembles the inputs, outputs and required
// signers the rule engine expects.
//
// Building never touches the network. Every failure is one of NOT_FOUND,
// DUPLICATE_ID or VALIDATION_REJECTED and happens before any counterparty
// sees the proposal.
package proposal
