package proposal

import (
	"context"

	"github.com/roach88/tradefin/internal/contract"
	"github.com/roach88/tradefin/internal/ledger"
)

// Query is the read side of a record store the builder needs.
type Query interface {
	LiveByID(ctx context.Context, kind ledger.Kind, id string) ([]ledger.StateAndRef, error)
	Known(ctx context.Context, kind ledger.Kind, id string) (bool, error)
}

// Builder assembles proposals on behalf of Me.
type Builder struct {
	Me     ledger.Party
	Notary ledger.Party
	Query  Query
}

// New creates a Builder.
func New(me, notary ledger.Party, q Query) *Builder {
	return &Builder{Me: me, Notary: notary, Query: q}
}

// Build resolves params into an unendorsed transaction. salt distinguishes
// this attempt's transaction from any other built from the same params.
func (b *Builder) Build(ctx context.Context, params Params, salt string) (*ledger.Transaction, error) {
	var (
		inputs  []ledger.StateAndRef
		outputs []ledger.Record
		err     error
	)
	switch p := params.(type) {
	case CreatePurchaseOrder:
		outputs, err = b.createPurchaseOrder(ctx, p)
	case ApplyForLetterOfCredit:
		inputs, outputs, err = b.applyForLetterOfCredit(ctx, p)
	case ApproveLetterOfCreditApplication:
		inputs, outputs, err = b.approve(ctx, p)
	case ShipProducts:
		inputs, outputs, err = b.shipProducts(ctx, p)
	case PaySeller:
		inputs, outputs, err = b.pay(ctx, ledger.OpPaySeller, Payment(p))
	case PayAdvisingBank:
		inputs, outputs, err = b.pay(ctx, ledger.OpPayAdvisingBank, Payment(p))
	case PayIssuingBank:
		inputs, outputs, err = b.pay(ctx, ledger.OpPayIssuingBank, Payment(p))
	case nil:
		return nil, ledger.Fatal("build: nil params")
	default:
		return nil, ledger.Fatal("build: unknown params %T", params)
	}
	if err != nil {
		return nil, err
	}

	signers := contract.RequiredSigners(&ledger.Transaction{Inputs: inputs, Outputs: outputs})
	tx, err := ledger.NewTransaction(params.Op(), inputs, outputs, signers, b.Notary, salt)
	if err != nil {
		return nil, ledger.Fatal("build %s: %v", params.Op(), err)
	}
	return tx, nil
}

func (b *Builder) createPurchaseOrder(ctx context.Context, p CreatePurchaseOrder) ([]ledger.Record, error) {
	if err := b.unique(ctx, ledger.KindPurchaseOrder, "purchaseOrderId", p.PurchaseOrderID); err != nil {
		return nil, err
	}
	po := ledger.PurchaseOrder{
		ID:            p.PurchaseOrderID,
		Seller:        b.Me,
		Buyer:         p.Buyer,
		IssueDate:     p.IssueDate,
		ProductName:   p.ProductName,
		Quantity:      p.Quantity,
		PriceUSD:      p.PriceUSD,
		GrossWeightKG: p.GrossWeightKG,
	}
	return []ledger.Record{po}, nil
}

func (b *Builder) applyForLetterOfCredit(ctx context.Context, p ApplyForLetterOfCredit) ([]ledger.StateAndRef, []ledger.Record, error) {
	poRef, po, err := resolve[ledger.PurchaseOrder](ctx, b.Query, ledger.KindPurchaseOrder, p.PurchaseOrderID)
	if err != nil {
		return nil, nil, err
	}
	if !po.Buyer.Equal(b.Me) {
		return nil, nil, ledger.Rejected("I (%s) must be the buyer in the referenced purchase order.", b.Me)
	}
	if err := b.unique(ctx, ledger.KindLetterOfCredit, "locId", p.LOCID); err != nil {
		return nil, nil, err
	}

	loc := ledger.LetterOfCredit{
		ID:              p.LOCID,
		Type:            p.Type,
		ExpiryDate:      p.ExpiryDate,
		Seller:          po.Seller,
		Buyer:           po.Buyer,
		AdvisingBank:    p.AdvisingBank,
		IssuingBank:     p.IssuingBank,
		Value:           p.Value,
		LoadingPort:     p.LoadingPort,
		DischargePort:   p.DischargePort,
		ProductName:     po.ProductName,
		Quantity:        po.Quantity,
		PriceUSD:        po.PriceUSD,
		GrossWeightKG:   po.GrossWeightKG,
		PurchaseOrderID: po.ID,
		Status:          ledger.StatusApplied,
	}
	return []ledger.StateAndRef{poRef}, []ledger.Record{loc}, nil
}

func (b *Builder) approve(ctx context.Context, p ApproveLetterOfCreditApplication) ([]ledger.StateAndRef, []ledger.Record, error) {
	if p.Status != ledger.StatusIssued && p.Status != ledger.StatusRejected {
		return nil, nil, ledger.Rejected("decision must be %s or %s, got %q",
			ledger.StatusIssued, ledger.StatusRejected, p.Status)
	}
	ref, loc, err := b.credit(ctx, p.LOCID, "issuing bank", ledger.StatusApplied,
		func(l ledger.LetterOfCredit) ledger.Party { return l.IssuingBank })
	if err != nil {
		return nil, nil, err
	}
	return []ledger.StateAndRef{ref}, []ledger.Record{loc.WithStatus(p.Status)}, nil
}

func (b *Builder) shipProducts(ctx context.Context, p ShipProducts) ([]ledger.StateAndRef, []ledger.Record, error) {
	ref, loc, err := b.credit(ctx, p.LOCID, "seller", ledger.StatusIssued,
		func(l ledger.LetterOfCredit) ledger.Party { return l.Seller })
	if err != nil {
		return nil, nil, err
	}
	if err := b.unique(ctx, ledger.KindBillOfLading, "billOfLadingId", p.BillOfLadingID); err != nil {
		return nil, nil, err
	}

	bol := ledger.BillOfLading{
		ID:                 p.BillOfLadingID,
		CurrentOwner:       loc.Seller,
		Seller:             loc.Seller,
		Buyer:              loc.Buyer,
		AdvisingBank:       loc.AdvisingBank,
		IssuingBank:        loc.IssuingBank,
		CarrierCompany:     p.CarrierCompany,
		CarrierName:        p.CarrierName,
		LoadingDate:        p.LoadingDate,
		DischargeDate:      p.DischargeDate,
		ProductName:        loc.ProductName,
		ProductDescription: p.ProductDescription,
		Quantity:           loc.Quantity,
		PriceUSD:           loc.PriceUSD,
		GrossWeightKG:      loc.GrossWeightKG,
		LoadingPort:        loc.LoadingPort,
		DischargePort:      loc.DischargePort,
	}
	return []ledger.StateAndRef{ref}, []ledger.Record{loc.WithStatus(ledger.StatusShipped), bol}, nil
}

// step is the initiator-side view of a payment.
type step struct {
	payer  string
	role   func(ledger.LetterOfCredit) ledger.Party
	from   ledger.Status
	to     ledger.Status
	holder func(ledger.BillOfLading) ledger.Party
}

var steps = map[ledger.Op]step{
	ledger.OpPaySeller: {
		payer:  "advising bank",
		role:   func(l ledger.LetterOfCredit) ledger.Party { return l.AdvisingBank },
		from:   ledger.StatusShipped,
		to:     ledger.StatusSellerPaid,
		holder: func(b ledger.BillOfLading) ledger.Party { return b.AdvisingBank },
	},
	ledger.OpPayAdvisingBank: {
		payer:  "issuing bank",
		role:   func(l ledger.LetterOfCredit) ledger.Party { return l.IssuingBank },
		from:   ledger.StatusSellerPaid,
		to:     ledger.StatusAdvisingBankPaid,
		holder: func(b ledger.BillOfLading) ledger.Party { return b.IssuingBank },
	},
	ledger.OpPayIssuingBank: {
		payer:  "buyer",
		role:   func(l ledger.LetterOfCredit) ledger.Party { return l.Buyer },
		from:   ledger.StatusAdvisingBankPaid,
		to:     ledger.StatusIssuingBankPaid,
		holder: func(b ledger.BillOfLading) ledger.Party { return b.Buyer },
	},
}

func (b *Builder) pay(ctx context.Context, op ledger.Op, p Payment) ([]ledger.StateAndRef, []ledger.Record, error) {
	s := steps[op]
	locRef, loc, err := b.credit(ctx, p.LOCID, s.payer, s.from, s.role)
	if err != nil {
		return nil, nil, err
	}
	bolRef, bol, err := resolve[ledger.BillOfLading](ctx, b.Query, ledger.KindBillOfLading, p.BillOfLadingID)
	if err != nil {
		return nil, nil, err
	}
	return []ledger.StateAndRef{locRef, bolRef},
		[]ledger.Record{loc.WithStatus(s.to), bol.WithOwner(s.holder(bol))},
		nil
}

// credit resolves a live letter of credit, checks that Me holds the named
// role in it and that it is in status want.
func (b *Builder) credit(ctx context.Context, locID, roleName string, want ledger.Status, role func(ledger.LetterOfCredit) ledger.Party) (ledger.StateAndRef, ledger.LetterOfCredit, error) {
	ref, loc, err := resolve[ledger.LetterOfCredit](ctx, b.Query, ledger.KindLetterOfCredit, locID)
	if err != nil {
		return ledger.StateAndRef{}, ledger.LetterOfCredit{}, err
	}
	if !role(loc).Equal(b.Me) {
		return ledger.StateAndRef{}, ledger.LetterOfCredit{},
			ledger.Rejected("I (%s) must be the %s in the referenced letter of credit.", b.Me, roleName)
	}
	if loc.Status != want {
		return ledger.StateAndRef{}, ledger.LetterOfCredit{},
			ledger.Rejected("invalid letter of credit status %s: required status %s", loc.Status, want)
	}
	return ref, loc, nil
}

// unique fails with DUPLICATE_ID if any record of kind, live or retired,
// already carries id.
func (b *Builder) unique(ctx context.Context, kind ledger.Kind, field, id string) error {
	if id == "" {
		return ledger.Rejected("%s must not be empty", field)
	}
	known, err := b.Query.Known(ctx, kind, id)
	if err != nil {
		return err
	}
	if known {
		return ledger.Duplicate("%s: %s already exists.", field, id)
	}
	return nil
}

// resolve returns the single live record of kind with id.
func resolve[T ledger.Record](ctx context.Context, q Query, kind ledger.Kind, id string) (ledger.StateAndRef, T, error) {
	var zero T
	found, err := q.LiveByID(ctx, kind, id)
	if err != nil {
		return ledger.StateAndRef{}, zero, err
	}
	if len(found) != 1 {
		return ledger.StateAndRef{}, zero, ledger.NotFound("live %s with id %s not found (%d matches)", kind, id, len(found))
	}
	rec, ok := found[0].Record.(T)
	if !ok {
		return ledger.StateAndRef{}, zero, ledger.Fatal("record %s is %T, want %s", found[0].Ref, found[0].Record, kind)
	}
	return found[0], rec, nil
}
