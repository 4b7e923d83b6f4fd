package proposal_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tradefin/internal/contract"
	"github.com/roach88/tradefin/internal/ledger"
	"github.com/roach88/tradefin/internal/proposal"
	"github.com/roach88/tradefin/internal/sqlitedb"
	"github.com/roach88/tradefin/internal/testutil"
	"github.com/roach88/tradefin/internal/vault"
)

// fixture is a single shared vault that every party's builder reads from.
type fixture struct {
	p     *testutil.Parties
	vault *vault.Vault
	seq   int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	v, err := vault.Open(sqlitedb.Memory)
	require.NoError(t, err)
	t.Cleanup(func() { v.Close() })
	return &fixture{p: testutil.NewParties(), vault: v}
}

func (f *fixture) builder(me ledger.Party) *proposal.Builder {
	return proposal.New(me, f.p.Notary, f.vault)
}

// commit builds, verifies and applies params as me.
func (f *fixture) commit(t *testing.T, me ledger.Party, params proposal.Params) *ledger.Transaction {
	t.Helper()
	tx, err := f.builder(me).Build(context.Background(), params, "salt")
	require.NoError(t, err)
	require.NoError(t, contract.VerifyTransaction(tx))
	f.seq++
	_, err = f.vault.Apply(context.Background(), &ledger.SignedTransaction{Tx: tx}, ledger.Admission{TxID: tx.ID, Seq: f.seq})
	require.NoError(t, err)
	return tx
}

func TestBuild_FullChain(t *testing.T) {
	f := newFixture(t)
	p := f.p
	ctx := context.Background()
	pay := testutil.PaymentParams("LOC-1", "BOL-1")

	create := f.commit(t, p.Seller, f.p.CreateParams("PO-1"))
	assert.Equal(t, ledger.OpCreatePurchaseOrder, create.Op)
	assert.ElementsMatch(t, []ledger.Party{p.Seller, p.Buyer}, create.Signers)
	assert.Equal(t, p.Notary, create.Notary)

	apply := f.commit(t, p.Buyer, f.p.ApplyParams("PO-1", "LOC-1", 500))
	assert.Equal(t, create.OutputRef(0), apply.Inputs[0].Ref)
	assert.ElementsMatch(t, p.Traders(), apply.Signers)

	f.commit(t, p.IssuingBank, proposal.ApproveLetterOfCreditApplication{LOCID: "LOC-1", Status: ledger.StatusIssued})
	f.commit(t, p.Seller, testutil.ShipParams("LOC-1", "BOL-1"))
	f.commit(t, p.AdvisingBank, proposal.PaySeller(pay))
	f.commit(t, p.IssuingBank, proposal.PayAdvisingBank(pay))
	f.commit(t, p.Buyer, proposal.PayIssuingBank(pay))

	locs, err := f.vault.LiveByID(ctx, ledger.KindLetterOfCredit, "LOC-1")
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, ledger.StatusIssuingBankPaid, locs[0].Record.(ledger.LetterOfCredit).Status)

	bols, err := f.vault.LiveByID(ctx, ledger.KindBillOfLading, "BOL-1")
	require.NoError(t, err)
	require.Len(t, bols, 1)
	assert.True(t, bols[0].Record.(ledger.BillOfLading).CurrentOwner.Equal(p.Buyer))
}

func TestBuild_CreatePurchaseOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("duplicate id", func(t *testing.T) {
		f := newFixture(t)
		f.commit(t, f.p.Seller, f.p.CreateParams("PO-1"))

		_, err := f.builder(f.p.Seller).Build(ctx, f.p.CreateParams("PO-1"), "again")
		require.Error(t, err)
		assert.True(t, ledger.IsDuplicate(err))
		assert.Equal(t, "purchaseOrderId: PO-1 already exists.", ledger.ReasonOf(err))
	})

	t.Run("duplicate id after retirement", func(t *testing.T) {
		f := newFixture(t)
		f.commit(t, f.p.Seller, f.p.CreateParams("PO-1"))
		f.commit(t, f.p.Buyer, f.p.ApplyParams("PO-1", "LOC-1", 500))

		_, err := f.builder(f.p.Seller).Build(ctx, f.p.CreateParams("PO-1"), "again")
		assert.True(t, ledger.IsDuplicate(err))
	})

	t.Run("empty id", func(t *testing.T) {
		f := newFixture(t)
		params := f.p.CreateParams("PO-1")
		params.PurchaseOrderID = ""

		_, err := f.builder(f.p.Seller).Build(ctx, params, "salt")
		assert.True(t, ledger.IsRejected(err))
	})

	t.Run("salt separates attempts", func(t *testing.T) {
		f := newFixture(t)
		b := f.builder(f.p.Seller)
		a, err := b.Build(ctx, f.p.CreateParams("PO-1"), "attempt-1")
		require.NoError(t, err)
		c, err := b.Build(ctx, f.p.CreateParams("PO-1"), "attempt-2")
		require.NoError(t, err)
		assert.NotEqual(t, a.ID, c.ID)
	})
}

func TestBuild_ApplyForLetterOfCredit(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown order", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.builder(f.p.Buyer).Build(ctx, f.p.ApplyParams("PO-1", "LOC-1", 500), "salt")
		require.Error(t, err)
		assert.True(t, ledger.IsNotFound(err))
	})

	t.Run("initiator must be the buyer", func(t *testing.T) {
		f := newFixture(t)
		f.commit(t, f.p.Seller, f.p.CreateParams("PO-1"))

		_, err := f.builder(f.p.Seller).Build(ctx, f.p.ApplyParams("PO-1", "LOC-1", 500), "salt")
		require.Error(t, err)
		assert.True(t, ledger.IsRejected(err))
		assert.Equal(t, "I (Seller) must be the buyer in the referenced purchase order.", ledger.ReasonOf(err))
	})

	t.Run("insufficient value is left to the rule engine", func(t *testing.T) {
		f := newFixture(t)
		f.commit(t, f.p.Seller, f.p.CreateParams("PO-1"))

		tx, err := f.builder(f.p.Buyer).Build(ctx, f.p.ApplyParams("PO-1", "LOC-1", 400), "salt")
		require.NoError(t, err)
		err = contract.VerifyTransaction(tx)
		require.Error(t, err)
		assert.Contains(t, ledger.ReasonOf(err), "value insufficient")
	})

	t.Run("copies product fields", func(t *testing.T) {
		f := newFixture(t)
		f.commit(t, f.p.Seller, f.p.CreateParams("PO-1"))

		tx, err := f.builder(f.p.Buyer).Build(ctx, f.p.ApplyParams("PO-1", "LOC-1", 500), "salt")
		require.NoError(t, err)
		loc := tx.Outputs[0].(ledger.LetterOfCredit)
		assert.Equal(t, f.p.LetterOfCredit(f.p.PurchaseOrder("PO-1"), "LOC-1", 500), loc)
	})
}

func TestBuild_StatusPreconditions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.p
	f.commit(t, p.Seller, f.p.CreateParams("PO-1"))
	f.commit(t, p.Buyer, f.p.ApplyParams("PO-1", "LOC-1", 500))

	_, err := f.builder(p.IssuingBank).Build(ctx,
		proposal.ApproveLetterOfCreditApplication{LOCID: "LOC-1", Status: ledger.StatusShipped}, "salt")
	assert.True(t, ledger.IsRejected(err))

	_, err = f.builder(p.AdvisingBank).Build(ctx,
		proposal.ApproveLetterOfCreditApplication{LOCID: "LOC-1", Status: ledger.StatusIssued}, "salt")
	require.Error(t, err)
	assert.Contains(t, ledger.ReasonOf(err), "must be the issuing bank")

	f.commit(t, p.IssuingBank, proposal.ApproveLetterOfCreditApplication{LOCID: "LOC-1", Status: ledger.StatusRejected})

	_, err = f.builder(p.Seller).Build(ctx, testutil.ShipParams("LOC-1", "BOL-1"), "salt")
	require.Error(t, err)
	assert.True(t, ledger.IsRejected(err))
	assert.Contains(t, ledger.ReasonOf(err), "required status ISSUED")

	_, err = f.builder(p.IssuingBank).Build(ctx,
		proposal.ApproveLetterOfCreditApplication{LOCID: "LOC-1", Status: ledger.StatusIssued}, "salt")
	require.Error(t, err)
	assert.Contains(t, ledger.ReasonOf(err), "required status APPLIED")
}

func TestBuild_PaymentRoles(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.p
	pay := testutil.PaymentParams("LOC-1", "BOL-1")

	f.commit(t, p.Seller, f.p.CreateParams("PO-1"))
	f.commit(t, p.Buyer, f.p.ApplyParams("PO-1", "LOC-1", 500))
	f.commit(t, p.IssuingBank, proposal.ApproveLetterOfCreditApplication{LOCID: "LOC-1", Status: ledger.StatusIssued})
	f.commit(t, p.Seller, testutil.ShipParams("LOC-1", "BOL-1"))

	_, err := f.builder(p.IssuingBank).Build(ctx, proposal.PaySeller(pay), "salt")
	assert.Contains(t, ledger.ReasonOf(err), "must be the advising bank")

	_, err = f.builder(p.IssuingBank).Build(ctx, proposal.PayAdvisingBank(pay), "salt")
	assert.Contains(t, ledger.ReasonOf(err), "required status SELLER_PAID")

	_, err = f.builder(p.AdvisingBank).Build(ctx, proposal.PaySeller{LOCID: "LOC-1", BillOfLadingID: "BOL-9"}, "salt")
	assert.True(t, ledger.IsNotFound(err))

	_, err = f.builder(p.Seller).Build(ctx, testutil.ShipParams("LOC-1", "BOL-1"), "salt")
	assert.True(t, ledger.IsRejected(err), "credit already shipped")
}

func TestBuild_NilParamsIsFatal(t *testing.T) {
	f := newFixture(t)
	_, err := f.builder(f.p.Seller).Build(context.Background(), nil, "salt")
	assert.True(t, ledger.IsFatal(err))
}
