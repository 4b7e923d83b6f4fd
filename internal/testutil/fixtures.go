// Package testutil provides deterministic fixtures shared by package tests.
package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/tradefin/internal/ledger"
)

// Parties is the standard four-party trade plus the ordering authority,
// each with a key derived from its name.
type Parties struct {
	Seller       ledger.Party
	Buyer        ledger.Party
	AdvisingBank ledger.Party
	IssuingBank  ledger.Party
	Notary       ledger.Party
	Keys         map[string]ledger.KeyPair
}

// NewParties creates the standard party set.
func NewParties() *Parties {
	p := &Parties{Keys: make(map[string]ledger.KeyPair)}
	mk := func(name string) ledger.Party {
		k := ledger.KeyPairFromName(name)
		p.Keys[name] = k
		return k.Party(name)
	}
	p.Seller = mk("Seller")
	p.Buyer = mk("Buyer")
	p.AdvisingBank = mk("AdvisingBank")
	p.IssuingBank = mk("IssuingBank")
	p.Notary = mk("Notary")
	return p
}

// Traders returns the four trade participants.
func (p *Parties) Traders() []ledger.Party {
	return []ledger.Party{p.Seller, p.Buyer, p.AdvisingBank, p.IssuingBank}
}

// Endorse signs tx as every party in signers.
func (p *Parties) Endorse(tx *ledger.Transaction, signers ...ledger.Party) []ledger.Endorsement {
	out := make([]ledger.Endorsement, 0, len(signers))
	for _, s := range signers {
		out = append(out, ledger.Endorse(p.Keys[s.Name], s, tx.ID))
	}
	return out
}

// PurchaseOrder returns the reference order: 100 units at 5 USD, 700 kg.
func (p *Parties) PurchaseOrder(id string) ledger.PurchaseOrder {
	return ledger.PurchaseOrder{
		ID:            id,
		Seller:        p.Seller,
		Buyer:         p.Buyer,
		IssueDate:     "2026-10-01",
		ProductName:   "Jute",
		Quantity:      100,
		PriceUSD:      5,
		GrossWeightKG: 700,
	}
}

// LetterOfCredit returns an APPLIED letter of credit backing po.
func (p *Parties) LetterOfCredit(po ledger.PurchaseOrder, id string, value int64) ledger.LetterOfCredit {
	return ledger.LetterOfCredit{
		ID:              id,
		Type:            "IRREVOCABLE",
		ExpiryDate:      "2027-06-30",
		Seller:          po.Seller,
		Buyer:           po.Buyer,
		AdvisingBank:    p.AdvisingBank,
		IssuingBank:     p.IssuingBank,
		Value:           value,
		LoadingPort:     ledger.Port{Address: "Berth 4", City: "Chittagong", Country: "Bangladesh"},
		DischargePort:   ledger.Port{Address: "Waalhaven 12", City: "Rotterdam", Country: "Netherlands"},
		ProductName:     po.ProductName,
		Quantity:        po.Quantity,
		PriceUSD:        po.PriceUSD,
		GrossWeightKG:   po.GrossWeightKG,
		PurchaseOrderID: po.ID,
		Status:          ledger.StatusApplied,
	}
}

// BillOfLading returns a bill for loc owned by the seller.
func (p *Parties) BillOfLading(loc ledger.LetterOfCredit, id string) ledger.BillOfLading {
	return ledger.BillOfLading{
		ID:                 id,
		CurrentOwner:       loc.Seller,
		Seller:             loc.Seller,
		Buyer:              loc.Buyer,
		AdvisingBank:       loc.AdvisingBank,
		IssuingBank:        loc.IssuingBank,
		CarrierCompany:     "Maersk",
		CarrierName:        "Emma Maersk",
		LoadingDate:        "2026-11-01",
		DischargeDate:      "2026-12-01",
		ProductName:        loc.ProductName,
		ProductDescription: "Raw jute fibre, grade A",
		Quantity:           loc.Quantity,
		PriceUSD:           loc.PriceUSD,
		GrossWeightKG:      loc.GrossWeightKG,
		LoadingPort:        loc.LoadingPort,
		DischargePort:      loc.DischargePort,
	}
}

// Ref returns a fake committed ref for fixtures that skip the protocol.
func Ref(tag string, index int) ledger.StateRef {
	return ledger.StateRef{TxID: "fixture-" + tag, Index: index}
}

// Chain is one version of each record on the happy path: an order, its
// APPLIED credit, and a bill owned by the seller.
type Chain struct {
	PO  ledger.PurchaseOrder
	LOC ledger.LetterOfCredit
	BOL ledger.BillOfLading
}

// NewChain builds the reference chain with a credit worth exactly 500.
func (p *Parties) NewChain() Chain {
	po := p.PurchaseOrder("PO-1")
	loc := p.LetterOfCredit(po, "LOC-1", 500)
	return Chain{PO: po, LOC: loc, BOL: p.BillOfLading(loc, "BOL-1")}
}

// Parts returns the inputs and outputs of a valid transition for op.
func (p *Parties) Parts(op ledger.Op) ([]ledger.StateAndRef, []ledger.Record) {
	c := p.NewChain()
	in := func(tag string, recs ...ledger.Record) []ledger.StateAndRef {
		out := make([]ledger.StateAndRef, len(recs))
		for i, r := range recs {
			out[i] = ledger.StateAndRef{Ref: Ref(tag, i), Record: r}
		}
		return out
	}
	loc := c.LOC
	bol := c.BOL
	switch op {
	case ledger.OpCreatePurchaseOrder:
		return nil, []ledger.Record{c.PO}
	case ledger.OpApplyForLetterOfCredit:
		return in("po", c.PO), []ledger.Record{loc}
	case ledger.OpApproveLetterOfCreditApplication:
		return in("applied", loc), []ledger.Record{loc.WithStatus(ledger.StatusIssued)}
	case ledger.OpShipProducts:
		return in("issued", loc.WithStatus(ledger.StatusIssued)),
			[]ledger.Record{loc.WithStatus(ledger.StatusShipped), bol}
	case ledger.OpPaySeller:
		return in("shipped", loc.WithStatus(ledger.StatusShipped), bol),
			[]ledger.Record{loc.WithStatus(ledger.StatusSellerPaid), bol.WithOwner(bol.AdvisingBank)}
	case ledger.OpPayAdvisingBank:
		return in("seller-paid", loc.WithStatus(ledger.StatusSellerPaid), bol.WithOwner(bol.AdvisingBank)),
			[]ledger.Record{loc.WithStatus(ledger.StatusAdvisingBankPaid), bol.WithOwner(bol.IssuingBank)}
	case ledger.OpPayIssuingBank:
		return in("advising-paid", loc.WithStatus(ledger.StatusAdvisingBankPaid), bol.WithOwner(bol.IssuingBank)),
			[]ledger.Record{loc.WithStatus(ledger.StatusIssuingBankPaid), bol.WithOwner(bol.Buyer)}
	default:
		return nil, nil
	}
}

// Participants is the union of participants of every record given.
func Participants(inputs []ledger.StateAndRef, outputs []ledger.Record) []ledger.Party {
	var ps []ledger.Party
	for _, in := range inputs {
		ps = append(ps, in.Record.Participants()...)
	}
	for _, out := range outputs {
		ps = append(ps, out.Participants()...)
	}
	return ledger.UniqueParties(ps...)
}

// Transaction assembles a transaction signed-for by every participant.
func (p *Parties) Transaction(t testing.TB, op ledger.Op, inputs []ledger.StateAndRef, outputs []ledger.Record) *ledger.Transaction {
	t.Helper()
	tx, err := ledger.NewTransaction(op, inputs, outputs, Participants(inputs, outputs), p.Notary, "fixture")
	require.NoError(t, err)
	return tx
}

// Transition is Parts followed by Transaction.
func (p *Parties) Transition(t testing.TB, op ledger.Op) *ledger.Transaction {
	t.Helper()
	inputs, outputs := p.Parts(op)
	return p.Transaction(t, op, inputs, outputs)
}
