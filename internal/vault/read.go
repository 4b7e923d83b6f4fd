package vault

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/tradefin/internal/ledger"
)

// Applied describes one transaction recorded in the vault.
type Applied struct {
	ID  string
	Op  string
	Seq int64
}

const selectRecords = `SELECT tx_id, idx, kind, payload FROM records`

// Live returns every live record of kind.
func (v *Vault) Live(ctx context.Context, kind ledger.Kind) ([]ledger.StateAndRef, error) {
	return v.query(ctx, selectRecords+`
		WHERE kind = ? AND live = 1
		ORDER BY recorded ASC, idx ASC
	`, string(kind))
}

// LiveByID returns the live records of kind with business id.
func (v *Vault) LiveByID(ctx context.Context, kind ledger.Kind, id string) ([]ledger.StateAndRef, error) {
	return v.query(ctx, selectRecords+`
		WHERE kind = ? AND business_id = ? AND live = 1
		ORDER BY recorded ASC, idx ASC
	`, string(kind), id)
}

// Retired returns the retired records of kind with business id, oldest first.
func (v *Vault) Retired(ctx context.Context, kind ledger.Kind, id string) ([]ledger.StateAndRef, error) {
	return v.query(ctx, selectRecords+`
		WHERE kind = ? AND business_id = ? AND live = 0
		ORDER BY recorded ASC, idx ASC
	`, string(kind), id)
}

// Known reports whether any record of kind with business id was ever
// recorded, live or retired.
func (v *Vault) Known(ctx context.Context, kind ledger.Kind, id string) (bool, error) {
	var n int
	err := v.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM records WHERE kind = ? AND business_id = ?`,
		string(kind), id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("known %s %s: %w", kind, id, err)
	}
	return n > 0, nil
}

// Lookup returns the record at ref and whether it is live.
func (v *Vault) Lookup(ctx context.Context, ref ledger.StateRef) (ledger.StateAndRef, bool, error) {
	var (
		kind    string
		payload string
		live    int
	)
	err := v.db.QueryRowContext(ctx,
		`SELECT kind, payload, live FROM records WHERE ref = ?`, ref.String()).Scan(&kind, &payload, &live)
	if err == sql.ErrNoRows {
		return ledger.StateAndRef{}, false, ledger.NotFound("no record at %s", ref)
	}
	if err != nil {
		return ledger.StateAndRef{}, false, fmt.Errorf("lookup %s: %w", ref, err)
	}
	rec, err := ledger.UnmarshalRecord(ledger.Kind(kind), []byte(payload))
	if err != nil {
		return ledger.StateAndRef{}, false, fmt.Errorf("lookup %s: %w", ref, err)
	}
	return ledger.StateAndRef{Ref: ref, Record: rec}, live == 1, nil
}

// HasTransaction reports whether txID was applied.
func (v *Vault) HasTransaction(ctx context.Context, txID string) (bool, error) {
	var n int
	if err := v.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE id = ?`, txID).Scan(&n); err != nil {
		return false, fmt.Errorf("has transaction %s: %w", txID, err)
	}
	return n > 0, nil
}

// Transactions returns every applied transaction in application order.
func (v *Vault) Transactions(ctx context.Context) ([]Applied, error) {
	rows, err := v.db.QueryContext(ctx,
		`SELECT id, op, seq FROM transactions ORDER BY applied ASC`)
	if err != nil {
		return nil, fmt.Errorf("transactions: %w", err)
	}
	defer rows.Close()

	var out []Applied
	for rows.Next() {
		var a Applied
		if err := rows.Scan(&a.ID, &a.Op, &a.Seq); err != nil {
			return nil, fmt.Errorf("transactions: scan: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (v *Vault) query(ctx context.Context, q string, args ...any) ([]ledger.StateAndRef, error) {
	rows, err := v.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []ledger.StateAndRef
	for rows.Next() {
		var (
			txID    string
			idx     int
			kind    string
			payload string
		)
		if err := rows.Scan(&txID, &idx, &kind, &payload); err != nil {
			return nil, fmt.Errorf("query records: scan: %w", err)
		}
		rec, err := ledger.UnmarshalRecord(ledger.Kind(kind), []byte(payload))
		if err != nil {
			return nil, fmt.Errorf("query records: %w", err)
		}
		out = append(out, ledger.StateAndRef{Ref: ledger.StateRef{TxID: txID, Index: idx}, Record: rec})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	return out, nil
}
