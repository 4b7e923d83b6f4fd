// Package notary is the ordering authority: the single service that admits
// fully endorsed transactions and guarantees that no record is consumed by
// more than one of them.
//
// The notary does not re-run the rule engine. It checks the transaction's
// identity, that every required signer has a valid endorsement, and that
// none of the inputs was consumed by an earlier admission. Admissions are
// serialized by a mutex and recorded in SQLite, so the consumed-ref
// registry survives restarts and its primary key backs the mutex.
package notary

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/tradefin/internal/contract"
	"github.com/roach88/tradefin/internal/ledger"
	"github.com/roach88/tradefin/internal/sqlitedb"
)

//go:embed schema.sql
var schemaSQL string

// Notary admits transactions in a single total order.
//
// Thread-safety: Admit is safe for concurrent use. Concurrent calls are
// serialized; of two transactions sharing an input, the first to take the
// lock is admitted and the second receives CONFLICT_REJECTED.
type Notary struct {
	party  ledger.Party
	keys   ledger.KeyPair
	db     *sql.DB
	clock  *Clock
	mu     sync.Mutex
	logger *slog.Logger
}

// Option configures a Notary.
type Option func(*Notary)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(n *Notary) {
		n.logger = l
	}
}

// Open creates or opens the registry at path and resumes the clock after
// the highest recorded admission.
func Open(path string, name string, keys ledger.KeyPair, opts ...Option) (*Notary, error) {
	db, err := sqlitedb.Open(path, schemaSQL)
	if err != nil {
		return nil, fmt.Errorf("open notary: %w", err)
	}

	var last int64
	if err := db.QueryRow(`SELECT COALESCE(MAX(seq), 0) FROM admissions`).Scan(&last); err != nil {
		db.Close()
		return nil, fmt.Errorf("open notary: read last seq: %w", err)
	}

	n := &Notary{
		party:  keys.Party(name),
		keys:   keys,
		db:     db,
		clock:  NewClock(last),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// Close closes the registry.
func (n *Notary) Close() error {
	return n.db.Close()
}

// Party returns the notary's identity.
func (n *Notary) Party() ledger.Party {
	return n.party
}

// Admit admits stx or explains why not.
//
// Errors:
//   - FATAL: the transaction's content does not hash to its id
//   - VALIDATION_REJECTED: wrong notary, an input listed twice, or a
//     required signer has no valid endorsement
//   - CONFLICT_REJECTED: an input was already consumed by another admitted
//     transaction (TxID on the error is the loser; the message names the
//     winner)
//
// Re-admitting an already admitted transaction returns its original
// admission.
func (n *Notary) Admit(ctx context.Context, stx *ledger.SignedTransaction) (ledger.Admission, error) {
	if stx == nil || stx.Tx == nil {
		return ledger.Admission{}, ledger.Fatal("admit: nil transaction")
	}
	tx := stx.Tx
	if err := tx.VerifyID(); err != nil {
		return ledger.Admission{}, ledger.Fatal("admit: %v", err).WithTx(tx.ID)
	}
	if !tx.Notary.Equal(n.party) {
		return ledger.Admission{}, ledger.Rejected("transaction names ordering authority %s, not %s", tx.Notary, n.party).WithTx(tx.ID)
	}

	if ref, dup := contract.DuplicateInput(tx); dup {
		return ledger.Admission{}, ledger.Rejected("input %s is listed more than once", ref).WithTx(tx.ID)
	}

	endorsers := stx.Endorsers()
	required := ledger.UniqueParties(append(contract.RequiredSigners(tx), tx.Signers...)...)
	for _, p := range required {
		if !ledger.ContainsParty(endorsers, p) {
			return ledger.Admission{}, ledger.Rejected("missing endorsement from %s", p).WithTx(tx.ID)
		}
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	var seq int64
	err := sqlitedb.InTx(ctx, n.db, func(sqlTx *sql.Tx) error {
		err := sqlTx.QueryRowContext(ctx,
			`SELECT seq FROM admissions WHERE tx_id = ?`, tx.ID).Scan(&seq)
		if err == nil {
			return nil
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("admit: lookup: %w", err)
		}

		for _, ref := range tx.InputRefs() {
			var winner string
			err := sqlTx.QueryRowContext(ctx,
				`SELECT tx_id FROM consumed WHERE ref = ?`, ref.String()).Scan(&winner)
			switch {
			case err == sql.ErrNoRows:
			case err != nil:
				return fmt.Errorf("admit: check %s: %w", ref, err)
			default:
				return ledger.Conflict("input %s already consumed by transaction %s", ref, winner).WithTx(tx.ID)
			}
		}

		seq = n.clock.Peek()
		if _, err := sqlTx.ExecContext(ctx,
			`INSERT INTO admissions (tx_id, seq, op) VALUES (?, ?, ?)`,
			tx.ID, seq, tx.Op.String()); err != nil {
			return fmt.Errorf("admit: insert admission: %w", err)
		}
		for _, ref := range tx.InputRefs() {
			if _, err := sqlTx.ExecContext(ctx,
				`INSERT INTO consumed (ref, tx_id) VALUES (?, ?)`, ref.String(), tx.ID); err != nil {
				return fmt.Errorf("admit: consume %s: %w", ref, err)
			}
		}
		return nil
	})
	if err != nil {
		if ledger.IsConflict(err) {
			n.logger.Warn("admission refused", "tx", tx.ID, "op", tx.Op.String(), "reason", ledger.ReasonOf(err))
		}
		return ledger.Admission{}, err
	}
	if n.clock.Commit(seq) {
		n.logger.Debug("admitted", "tx", tx.ID, "op", tx.Op.String(), "seq", seq)
	}

	return n.admission(tx.ID, seq), nil
}

func (n *Notary) admission(txID string, seq int64) ledger.Admission {
	return ledger.Admission{
		TxID:      txID,
		Seq:       seq,
		Notary:    n.party,
		Signature: n.keys.Sign(ledger.AdmissionMessage(txID, seq)),
	}
}

// ConsumedBy returns the transaction that consumed ref, or "" if none has.
func (n *Notary) ConsumedBy(ctx context.Context, ref ledger.StateRef) (string, error) {
	var txID string
	err := n.db.QueryRowContext(ctx, `SELECT tx_id FROM consumed WHERE ref = ?`, ref.String()).Scan(&txID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("consumed by %s: %w", ref, err)
	}
	return txID, nil
}

// Admissions returns every admission in seq order.
func (n *Notary) Admissions(ctx context.Context) ([]ledger.Admission, error) {
	rows, err := n.db.QueryContext(ctx, `SELECT tx_id, seq FROM admissions ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("admissions: %w", err)
	}
	defer rows.Close()

	var out []ledger.Admission
	for rows.Next() {
		var (
			txID string
			seq  int64
		)
		if err := rows.Scan(&txID, &seq); err != nil {
			return nil, fmt.Errorf("admissions: scan: %w", err)
		}
		out = append(out, n.admission(txID, seq))
	}
	return out, rows.Err()
}
