package vault

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"

	"github.com/roach88/tradefin/internal/ledger"
	"github.com/roach88/tradefin/internal/sqlitedb"
)

// Apply records an admitted transaction: inputs retired, outputs live,
// all in one SQLite transaction. Returns applied=false if the transaction
// id was already recorded (idempotent no-op).
//
// Apply trusts its caller to have verified endorsements and the admission
// signature. It only checks that the admission names this transaction and
// that no input was already retired by a different transaction.
func (v *Vault) Apply(ctx context.Context, stx *ledger.SignedTransaction, adm ledger.Admission) (applied bool, err error) {
	if stx == nil || stx.Tx == nil {
		return false, ledger.Fatal("apply: nil transaction")
	}
	tx := stx.Tx
	if adm.TxID != tx.ID {
		return false, ledger.Fatal("apply: admission for %s does not match transaction %s", adm.TxID, tx.ID)
	}

	err = sqlitedb.InTx(ctx, v.db, func(sqlTx *sql.Tx) error {
		var order int64
		if err := sqlTx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(applied), 0) + 1 FROM transactions`).Scan(&order); err != nil {
			return fmt.Errorf("apply: next order: %w", err)
		}

		res, err := sqlTx.ExecContext(ctx, `
			INSERT INTO transactions (id, op, seq, applied, notary, signature)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING
		`, tx.ID, tx.Op.String(), adm.Seq, order, adm.Notary.Name, hex.EncodeToString(adm.Signature))
		if err != nil {
			return fmt.Errorf("apply: insert transaction: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("apply: rows affected: %w", err)
		}
		if n == 0 {
			return nil
		}
		applied = true

		for _, in := range tx.Inputs {
			if err := retire(ctx, sqlTx, tx.ID, in, order); err != nil {
				return err
			}
		}
		for i, out := range tx.Outputs {
			if err := insert(ctx, sqlTx, tx.OutputRef(i), out, true, "", order); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

// retire marks in as consumed by txID, inserting it as retired when this
// vault has never seen it.
func retire(ctx context.Context, sqlTx *sql.Tx, txID string, in ledger.StateAndRef, order int64) error {
	res, err := sqlTx.ExecContext(ctx, `
		UPDATE records SET live = 0, consumed_by = ?
		WHERE ref = ? AND live = 1
	`, txID, in.Ref.String())
	if err != nil {
		return fmt.Errorf("apply: retire %s: %w", in.Ref, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("apply: rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}

	var consumedBy sql.NullString
	err = sqlTx.QueryRowContext(ctx,
		`SELECT consumed_by FROM records WHERE ref = ?`, in.Ref.String()).Scan(&consumedBy)
	switch {
	case err == sql.ErrNoRows:
		return insert(ctx, sqlTx, in.Ref, in.Record, false, txID, order)
	case err != nil:
		return fmt.Errorf("apply: lookup %s: %w", in.Ref, err)
	case consumedBy.String != txID:
		return ledger.Conflict("input %s already consumed by %s", in.Ref, consumedBy.String).WithTx(txID)
	default:
		return nil
	}
}

func insert(ctx context.Context, sqlTx *sql.Tx, ref ledger.StateRef, rec ledger.Record, live bool, consumedBy string, order int64) error {
	payload, err := ledger.MarshalRecord(rec)
	if err != nil {
		return fmt.Errorf("apply: %w", err)
	}
	var consumed any
	if consumedBy != "" {
		consumed = consumedBy
	}
	_, err = sqlTx.ExecContext(ctx, `
		INSERT INTO records (ref, tx_id, idx, kind, business_id, payload, live, consumed_by, recorded)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(ref) DO NOTHING
	`, ref.String(), ref.TxID, ref.Index, string(rec.Kind()), rec.BusinessID(), string(payload), boolInt(live), consumed, order)
	if err != nil {
		return fmt.Errorf("apply: insert %s: %w", ref, err)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
