package contract

import (
	"github.com/roach88/tradefin/internal/ledger"
)

// shapes gives the exact input and output cardinality of every operation.
var shapes = map[ledger.Op]struct{ in, out shape }{
	ledger.OpCreatePurchaseOrder: {
		in:  shape{},
		out: shape{ledger.KindPurchaseOrder: 1},
	},
	ledger.OpApplyForLetterOfCredit: {
		in:  shape{ledger.KindPurchaseOrder: 1},
		out: shape{ledger.KindLetterOfCredit: 1},
	},
	ledger.OpApproveLetterOfCreditApplication: {
		in:  shape{ledger.KindLetterOfCredit: 1},
		out: shape{ledger.KindLetterOfCredit: 1},
	},
	ledger.OpShipProducts: {
		in:  shape{ledger.KindLetterOfCredit: 1},
		out: shape{ledger.KindLetterOfCredit: 1, ledger.KindBillOfLading: 1},
	},
	ledger.OpPaySeller:       paymentShape,
	ledger.OpPayAdvisingBank: paymentShape,
	ledger.OpPayIssuingBank:  paymentShape,
}

var paymentShape = struct{ in, out shape }{
	in:  shape{ledger.KindLetterOfCredit: 1, ledger.KindBillOfLading: 1},
	out: shape{ledger.KindLetterOfCredit: 1, ledger.KindBillOfLading: 1},
}

// payment describes one ownership-transfer step of the bill of lading.
type payment struct {
	from, to ledger.Status
	// owner roles before and after, as named in reasons
	prevRole, nextRole string
	prev, next         func(ledger.BillOfLading) ledger.Party
}

var payments = map[ledger.Op]payment{
	ledger.OpPaySeller: {
		from: ledger.StatusShipped, to: ledger.StatusSellerPaid,
		prevRole: "Seller", nextRole: "Advising Bank",
		prev: func(b ledger.BillOfLading) ledger.Party { return b.Seller },
		next: func(b ledger.BillOfLading) ledger.Party { return b.AdvisingBank },
	},
	ledger.OpPayAdvisingBank: {
		from: ledger.StatusSellerPaid, to: ledger.StatusAdvisingBankPaid,
		prevRole: "Advising Bank", nextRole: "Issuing Bank",
		prev: func(b ledger.BillOfLading) ledger.Party { return b.AdvisingBank },
		next: func(b ledger.BillOfLading) ledger.Party { return b.IssuingBank },
	},
	ledger.OpPayIssuingBank: {
		from: ledger.StatusAdvisingBankPaid, to: ledger.StatusIssuingBankPaid,
		prevRole: "Issuing Bank", nextRole: "Buyer",
		prev: func(b ledger.BillOfLading) ledger.Party { return b.IssuingBank },
		next: func(b ledger.BillOfLading) ledger.Party { return b.Buyer },
	},
}

// Verify checks tx against the rules of its operation. endorsers is the set
// of parties that have endorsed (or will endorse) tx; it must be a superset
// of RequiredSigners(tx).
//
// Returns nil on acceptance, a VALIDATION_REJECTED *ledger.Error with the
// first failing reason on rejection, or FATAL for an unknown operation or a
// structurally malformed transaction.
func Verify(tx *ledger.Transaction, endorsers []ledger.Party) error {
	if tx == nil {
		return ledger.Fatal("nil transaction")
	}
	for i, in := range tx.Inputs {
		if !concrete(in.Record) {
			return ledger.Fatal("input %d of %s is not a ledger record value", i, tx.Op)
		}
	}
	for i, out := range tx.Outputs {
		if !concrete(out) {
			return ledger.Fatal("output %d of %s is not a ledger record value", i, tx.Op)
		}
	}

	sh, known := shapes[tx.Op]
	if !known {
		return ledger.Fatal("unknown operation %s", tx.Op)
	}

	r := &requirements{}
	inputs := tx.InputRecords()
	r.cardinality("input", tx.Op, inputs, sh.in)
	r.cardinality("output", tx.Op, tx.Outputs, sh.out)
	if r.failed() {
		return r.err
	}
	if ref, dup := DuplicateInput(tx); dup {
		return ledger.Rejected("Input %s is consumed more than once in %s.", ref, tx.Op)
	}

	switch tx.Op {
	case ledger.OpCreatePurchaseOrder:
		verifyCreatePurchaseOrder(r, tx, endorsers)
	case ledger.OpApplyForLetterOfCredit:
		verifyApplyForLetterOfCredit(r, tx, endorsers)
	case ledger.OpApproveLetterOfCreditApplication:
		verifyApproveLetterOfCreditApplication(r, tx, endorsers)
	case ledger.OpShipProducts:
		verifyShipProducts(r, tx, endorsers)
	case ledger.OpPaySeller, ledger.OpPayAdvisingBank, ledger.OpPayIssuingBank:
		verifyPayment(r, tx, endorsers, payments[tx.Op])
	default:
		return ledger.Fatal("unknown operation %s", tx.Op)
	}
	if r.failed() {
		return r.err
	}

	// Backstop: whatever the per-operation roles say, every participant of
	// every touched record must have endorsed.
	for _, p := range RequiredSigners(tx) {
		r.usingf(ledger.ContainsParty(endorsers, p), "%s must be a signer in %s.", p.Name, tx.Op)
	}
	return r.err
}

// DuplicateInput returns the first input ref that tx lists twice.
func DuplicateInput(tx *ledger.Transaction) (ledger.StateRef, bool) {
	seen := make(map[ledger.StateRef]bool, len(tx.Inputs))
	for _, in := range tx.Inputs {
		if seen[in.Ref] {
			return in.Ref, true
		}
		seen[in.Ref] = true
	}
	return ledger.StateRef{}, false
}

// VerifyTransaction verifies tx using its declared signers as endorsers,
// and additionally requires the declared signers to cover RequiredSigners.
// This is the check an initiator runs locally and every endorser re-runs.
func VerifyTransaction(tx *ledger.Transaction) error {
	if tx == nil {
		return ledger.Fatal("nil transaction")
	}
	if err := tx.VerifyID(); err != nil {
		return ledger.Fatal("malformed transaction: %v", err)
	}
	if tx.Notary.IsZero() {
		return ledger.Fatal("malformed transaction: no ordering authority named")
	}
	return Verify(tx, tx.Signers)
}

// RequiredSigners is the union of the participants of every input and
// output record, in first-seen order.
func RequiredSigners(tx *ledger.Transaction) []ledger.Party {
	var parties []ledger.Party
	for _, in := range tx.Inputs {
		if in.Record != nil {
			parties = append(parties, in.Record.Participants()...)
		}
	}
	for _, out := range tx.Outputs {
		if out != nil {
			parties = append(parties, out.Participants()...)
		}
	}
	return ledger.UniqueParties(parties...)
}

func locRoles(l ledger.LetterOfCredit) []role {
	return []role{
		{"Buyer", l.Buyer},
		{"Seller", l.Seller},
		{"IssuingBank", l.IssuingBank},
		{"AdvisingBank", l.AdvisingBank},
	}
}

func verifyCreatePurchaseOrder(r *requirements, tx *ledger.Transaction, endorsers []ledger.Party) {
	po := ledger.RecordsOf[ledger.PurchaseOrder](tx.Outputs)[0]

	r.using("The seller and the buyer should not be the same party.",
		!po.Seller.Equal(po.Buyer))
	r.using("All numeric values in the purchase order should be positive.",
		po.Quantity > 0 && po.PriceUSD > 0 && po.GrossWeightKG > 0)
	r.using("Purchase order id must not be empty.", po.ID != "")
	r.signers(tx.Op, endorsers, role{"Seller", po.Seller}, role{"Buyer", po.Buyer})
}

func verifyApplyForLetterOfCredit(r *requirements, tx *ledger.Transaction, endorsers []ledger.Party) {
	po := ledger.RecordsOf[ledger.PurchaseOrder](tx.InputRecords())[0]
	loc := ledger.RecordsOf[ledger.LetterOfCredit](tx.Outputs)[0]

	r.using("Seller & Buyer should be conserved in input & output.",
		po.Seller.Equal(loc.Seller) && po.Buyer.Equal(loc.Buyer))
	r.using("The advisingBank and the issuingBank should not be the same party.",
		!loc.AdvisingBank.Equal(loc.IssuingBank))
	r.using("All participants should be distinct parties.",
		distinct(loc.Seller, loc.Buyer, loc.AdvisingBank, loc.IssuingBank))
	r.using("Product Details should be conserved in input & output.",
		po.ProductName == loc.ProductName &&
			po.Quantity == loc.Quantity &&
			po.PriceUSD == loc.PriceUSD &&
			po.GrossWeightKG == loc.GrossWeightKG)
	r.using("Source purchase order id should be conserved in input & output.",
		loc.PurchaseOrderID == po.ID)
	r.using("LOC value should be positive.", loc.Value > 0)
	owed, ok := checkedMul(po.Quantity, po.PriceUSD)
	r.usingf(ok && loc.Value >= owed,
		"LOC value insufficient for seller: %d < %d (quantity × unit price).", loc.Value, owed)
	r.usingf(loc.Status == ledger.StatusApplied,
		"LetterOfCredit status should be %s in %s.", ledger.StatusApplied, tx.Op)
	r.using("LOC id must not be empty.", loc.ID != "")
	r.signers(tx.Op, endorsers, locRoles(loc)...)
}

func verifyApproveLetterOfCreditApplication(r *requirements, tx *ledger.Transaction, endorsers []ledger.Party) {
	in := ledger.RecordsOf[ledger.LetterOfCredit](tx.InputRecords())[0]
	out := ledger.RecordsOf[ledger.LetterOfCredit](tx.Outputs)[0]

	r.using("LetterOfCredit details should be same in input & output.", in.EqualIgnoringStatus(out))
	requireStatus(r, tx.Op, in.Status, ledger.StatusApplied)
	r.usingf(out.Status == ledger.StatusIssued || out.Status == ledger.StatusRejected,
		"Output LetterOfCredit status should be %s/%s in %s.", ledger.StatusIssued, ledger.StatusRejected, tx.Op)
	r.signers(tx.Op, endorsers, locRoles(out)...)
}

func verifyShipProducts(r *requirements, tx *ledger.Transaction, endorsers []ledger.Party) {
	in := ledger.RecordsOf[ledger.LetterOfCredit](tx.InputRecords())[0]
	out := ledger.RecordsOf[ledger.LetterOfCredit](tx.Outputs)[0]
	bol := ledger.RecordsOf[ledger.BillOfLading](tx.Outputs)[0]

	r.using("Seller should be the owner in output BillOfLading in ShipProducts.",
		bol.CurrentOwner.Equal(bol.Seller))
	r.using("LetterOfCredit details should be same in input & output.", in.EqualIgnoringStatus(out))
	r.using("BillOfLading details should be conserved.", billMatchesCredit(bol, in))
	r.using("BillOfLading id must not be empty.", bol.ID != "")
	requireStatus(r, tx.Op, in.Status, ledger.StatusIssued)
	requireSuccessor(r, tx.Op, in.Status, out.Status, ledger.StatusShipped)
	r.signers(tx.Op, endorsers, locRoles(out)...)
}

func verifyPayment(r *requirements, tx *ledger.Transaction, endorsers []ledger.Party, step payment) {
	in := ledger.RecordsOf[ledger.LetterOfCredit](tx.InputRecords())[0]
	out := ledger.RecordsOf[ledger.LetterOfCredit](tx.Outputs)[0]
	bolIn := ledger.RecordsOf[ledger.BillOfLading](tx.InputRecords())[0]
	bolOut := ledger.RecordsOf[ledger.BillOfLading](tx.Outputs)[0]

	r.usingf(bolIn.CurrentOwner.Equal(step.prev(bolIn)),
		"%s should be the owner in input BillOfLading in %s.", step.prevRole, tx.Op)
	r.usingf(bolOut.CurrentOwner.Equal(step.next(bolOut)),
		"%s should be the owner in output BillOfLading in %s.", step.nextRole, tx.Op)
	r.using("BillOfLading details should be same in input & output.", bolIn.EqualIgnoringOwner(bolOut))
	r.using("BillOfLading should belong to the LetterOfCredit's trade.", billMatchesCredit(bolIn, in))
	r.using("LetterOfCredit details should be same in input & output.", in.EqualIgnoringStatus(out))
	requireStatus(r, tx.Op, in.Status, step.from)
	requireSuccessor(r, tx.Op, in.Status, out.Status, step.to)
	r.signers(tx.Op, endorsers, locRoles(out)...)
}

// requireStatus checks the consumed letter of credit's status.
func requireStatus(r *requirements, op ledger.Op, have, want ledger.Status) {
	r.usingf(have == want,
		"Input LetterOfCredit status should be %s in %s (required status %s, found %s).", want, op, want, have)
}

// requireSuccessor checks the produced status is exactly want and legal.
func requireSuccessor(r *requirements, op ledger.Op, from, to, want ledger.Status) {
	r.usingf(to == want && from.CanAdvanceTo(to),
		"Output LetterOfCredit status should be %s in %s.", want, op)
}

// billMatchesCredit checks the trade fields a bill copies from its credit.
func billMatchesCredit(b ledger.BillOfLading, l ledger.LetterOfCredit) bool {
	return b.Seller.Equal(l.Seller) &&
		b.Buyer.Equal(l.Buyer) &&
		b.AdvisingBank.Equal(l.AdvisingBank) &&
		b.IssuingBank.Equal(l.IssuingBank) &&
		b.ProductName == l.ProductName &&
		b.Quantity == l.Quantity &&
		b.PriceUSD == l.PriceUSD &&
		b.GrossWeightKG == l.GrossWeightKG &&
		b.LoadingPort == l.LoadingPort &&
		b.DischargePort == l.DischargePort
}

func distinct(parties ...ledger.Party) bool {
	return len(ledger.UniqueParties(parties...)) == len(parties)
}

// concrete reports whether r is one of the record value types. Pointers to
// records satisfy the interface too, but the rules never see them.
func concrete(r ledger.Record) bool {
	switch r.(type) {
	case ledger.PurchaseOrder, ledger.LetterOfCredit, ledger.BillOfLading:
		return true
	default:
		return false
	}
}
