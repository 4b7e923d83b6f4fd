package vault_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tradefin/internal/ledger"
	"github.com/roach88/tradefin/internal/sqlitedb"
	"github.com/roach88/tradefin/internal/testutil"
	"github.com/roach88/tradefin/internal/vault"
)

func openVault(t *testing.T) *vault.Vault {
	t.Helper()
	v, err := vault.Open(filepath.Join(t.TempDir(), "vault.db"))
	require.NoError(t, err)
	t.Cleanup(func() { v.Close() })
	return v
}

func admit(tx *ledger.Transaction, seq int64) ledger.Admission {
	return ledger.Admission{TxID: tx.ID, Seq: seq}
}

// createAndApply commits a purchase order and an application against it.
func createAndApply(t *testing.T, v *vault.Vault, p *testutil.Parties) (*ledger.Transaction, *ledger.Transaction) {
	t.Helper()
	ctx := context.Background()

	create := p.Transaction(t, ledger.OpCreatePurchaseOrder, nil, []ledger.Record{p.PurchaseOrder("PO-1")})
	ok, err := v.Apply(ctx, &ledger.SignedTransaction{Tx: create}, admit(create, 1))
	require.NoError(t, err)
	require.True(t, ok)

	po := ledger.StateAndRef{Ref: create.OutputRef(0), Record: create.Outputs[0]}
	apply := p.Transaction(t, ledger.OpApplyForLetterOfCredit, []ledger.StateAndRef{po},
		[]ledger.Record{p.LetterOfCredit(p.PurchaseOrder("PO-1"), "LOC-1", 500)})
	ok, err = v.Apply(ctx, &ledger.SignedTransaction{Tx: apply}, admit(apply, 2))
	require.NoError(t, err)
	require.True(t, ok)
	return create, apply
}

func TestApply_RetiresInputsAndInsertsOutputs(t *testing.T) {
	ctx := context.Background()
	p := testutil.NewParties()
	v := openVault(t)

	create, apply := createAndApply(t, v, p)

	live, err := v.LiveByID(ctx, ledger.KindPurchaseOrder, "PO-1")
	require.NoError(t, err)
	assert.Empty(t, live)

	retired, err := v.Retired(ctx, ledger.KindPurchaseOrder, "PO-1")
	require.NoError(t, err)
	require.Len(t, retired, 1)
	assert.Equal(t, create.OutputRef(0), retired[0].Ref)
	assert.Equal(t, p.PurchaseOrder("PO-1"), retired[0].Record)

	locs, err := v.Live(ctx, ledger.KindLetterOfCredit)
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, apply.OutputRef(0), locs[0].Ref)
	assert.Equal(t, ledger.StatusApplied, locs[0].Record.(ledger.LetterOfCredit).Status)
}

func TestApply_Idempotent(t *testing.T) {
	ctx := context.Background()
	p := testutil.NewParties()
	v := openVault(t)

	tx := p.Transaction(t, ledger.OpCreatePurchaseOrder, nil, []ledger.Record{p.PurchaseOrder("PO-1")})
	stx := &ledger.SignedTransaction{Tx: tx}

	ok, err := v.Apply(ctx, stx, admit(tx, 1))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = v.Apply(ctx, stx, admit(tx, 1))
	require.NoError(t, err)
	assert.False(t, ok)

	live, err := v.Live(ctx, ledger.KindPurchaseOrder)
	require.NoError(t, err)
	assert.Len(t, live, 1)

	applied, err := v.Transactions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []vault.Applied{{ID: tx.ID, Op: "CreatePurchaseOrder", Seq: 1}}, applied)
}

func TestApply_UnknownInputRecordedRetired(t *testing.T) {
	ctx := context.Background()
	p := testutil.NewParties()
	v := openVault(t)

	// The vault never saw the bill being paid for.
	tx := p.Transition(t, ledger.OpPaySeller)
	ok, err := v.Apply(ctx, &ledger.SignedTransaction{Tx: tx}, admit(tx, 7))
	require.NoError(t, err)
	require.True(t, ok)

	retired, err := v.Retired(ctx, ledger.KindBillOfLading, "BOL-1")
	require.NoError(t, err)
	require.Len(t, retired, 1)
	assert.Equal(t, testutil.Ref("shipped", 1), retired[0].Ref)

	live, err := v.LiveByID(ctx, ledger.KindBillOfLading, "BOL-1")
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.True(t, live[0].Record.(ledger.BillOfLading).CurrentOwner.Equal(p.AdvisingBank))
}

func TestApply_InputConsumedElsewhereRollsBack(t *testing.T) {
	ctx := context.Background()
	p := testutil.NewParties()
	v := openVault(t)

	create, _ := createAndApply(t, v, p)

	// A second application against the already retired order.
	po := ledger.StateAndRef{Ref: create.OutputRef(0), Record: create.Outputs[0]}
	rival := p.Transaction(t, ledger.OpApplyForLetterOfCredit, []ledger.StateAndRef{po},
		[]ledger.Record{p.LetterOfCredit(p.PurchaseOrder("PO-1"), "LOC-2", 600)})

	ok, err := v.Apply(ctx, &ledger.SignedTransaction{Tx: rival}, admit(rival, 3))
	require.Error(t, err)
	assert.False(t, ok)
	assert.True(t, ledger.IsConflict(err))

	has, err := v.HasTransaction(ctx, rival.ID)
	require.NoError(t, err)
	assert.False(t, has)

	known, err := v.Known(ctx, ledger.KindLetterOfCredit, "LOC-2")
	require.NoError(t, err)
	assert.False(t, known)
}

func TestApply_AdmissionMismatchIsFatal(t *testing.T) {
	p := testutil.NewParties()
	v := openVault(t)
	tx := p.Transition(t, ledger.OpCreatePurchaseOrder)

	_, err := v.Apply(context.Background(), &ledger.SignedTransaction{Tx: tx}, ledger.Admission{TxID: "other"})
	assert.True(t, ledger.IsFatal(err))
}

func TestKnown_IncludesRetired(t *testing.T) {
	ctx := context.Background()
	p := testutil.NewParties()
	v := openVault(t)

	createAndApply(t, v, p)

	for _, c := range []struct {
		kind ledger.Kind
		id   string
		want bool
	}{
		{ledger.KindPurchaseOrder, "PO-1", true},
		{ledger.KindLetterOfCredit, "LOC-1", true},
		{ledger.KindPurchaseOrder, "PO-2", false},
		{ledger.KindLetterOfCredit, "PO-1", false},
	} {
		got, err := v.Known(ctx, c.kind, c.id)
		require.NoError(t, err)
		assert.Equal(t, c.want, got, "%s %s", c.kind, c.id)
	}
}

func TestLookup(t *testing.T) {
	ctx := context.Background()
	p := testutil.NewParties()
	v := openVault(t)
	create, apply := createAndApply(t, v, p)

	sr, live, err := v.Lookup(ctx, create.OutputRef(0))
	require.NoError(t, err)
	assert.False(t, live)
	assert.Equal(t, "PO-1", sr.Record.BusinessID())

	_, live, err = v.Lookup(ctx, apply.OutputRef(0))
	require.NoError(t, err)
	assert.True(t, live)

	_, _, err = v.Lookup(ctx, ledger.StateRef{TxID: "missing", Index: 0})
	assert.True(t, ledger.IsNotFound(err))
}

func TestOpen_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	p := testutil.NewParties()
	path := filepath.Join(t.TempDir(), "vault.db")

	v, err := vault.Open(path)
	require.NoError(t, err)
	createAndApply(t, v, p)
	require.NoError(t, v.Close())

	v, err = vault.Open(path)
	require.NoError(t, err)
	defer v.Close()

	ver, err := sqlitedb.Version(v.DB())
	require.NoError(t, err)
	assert.Equal(t, 1, ver)

	live, err := v.Live(ctx, ledger.KindLetterOfCredit)
	require.NoError(t, err)
	assert.Len(t, live, 1)
}

func TestOpen_InMemoryVaultsAreIsolated(t *testing.T) {
	ctx := context.Background()
	p := testutil.NewParties()

	a, err := vault.Open(sqlitedb.Memory)
	require.NoError(t, err)
	defer a.Close()
	b, err := vault.Open(sqlitedb.Memory)
	require.NoError(t, err)
	defer b.Close()

	createAndApply(t, a, p)

	live, err := b.Live(ctx, ledger.KindLetterOfCredit)
	require.NoError(t, err)
	assert.Empty(t, live)
}
