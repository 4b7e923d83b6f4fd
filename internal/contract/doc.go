// Package contract implements the transition rule engine.
//
// Verify is a pure function of (operation, inputs, outputs, endorsers). It
// performs no I/O and reads no clock, so every party that runs it against
// the same transaction reaches the same verdict. That is what makes
// independent re-validation by each endorser meaningful.
//
// Each operation specifies:
//   - exact input/output cardinality per record kind (no foreign kinds)
//   - field conservation between consumed and produced records
//   - value and identity invariants (distinct parties, positive amounts,
//     legal status successor)
//   - the required endorser set: the participants of every touched record
//
// Rejections are *ledger.Error with code VALIDATION_REJECTED and a
// human-readable reason. The first failing requirement wins, in the order
// the rules are written. An unknown operation is FATAL.
package contract
