// Package vault is one party's Record Store: the durable set of records the
// party has seen, each either live or retired.
//
// A vault only changes through Apply, which takes a transaction admitted by
// the ordering authority and, in a single SQLite transaction, retires every
// input and inserts every output as live. Apply is idempotent on the
// transaction id, so a repeated commit fan-out is a no-op.
//
// Inputs the vault has never seen (for example, a bank receiving a bill of
// lading it was not a participant of when it was created) are recorded
// directly as retired. Retired(kind, id) therefore answers uniformly for
// every record a party has been shown.
//
// # Ordering
//
// Every query is ordered by the local applied counter and then the output
// index. No wall-clock time is stored.
package vault
