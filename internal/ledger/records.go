package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Record is a sealed interface over the three ledger record kinds.
// Only PurchaseOrder, LetterOfCredit and BillOfLading implement it.
type Record interface {
	Kind() Kind
	// BusinessID is the human-meaningful key (purchase order id, loc id, bill id).
	BusinessID() string
	// Participants are the parties whose endorsement any transition touching
	// this record requires.
	Participants() []Party
	fields() map[string]any
}

// Port is a loading or discharge port.
type Port struct {
	Address string `json:"address"`
	City    string `json:"city"`
	Country string `json:"country"`
}

func (p Port) fields() map[string]any {
	return map[string]any{"address": p.Address, "city": p.City, "country": p.Country}
}

// PurchaseOrder is an order placed by a buyer with a seller. Never mutated;
// retired when a letter of credit is applied against it.
type PurchaseOrder struct {
	ID            string `json:"purchase_order_id"`
	Seller        Party  `json:"seller"`
	Buyer         Party  `json:"buyer"`
	IssueDate     string `json:"issue_date"`
	ProductName   string `json:"product_name"`
	Quantity      int64  `json:"product_quantity"`
	PriceUSD      int64  `json:"product_price_usd"`
	GrossWeightKG int64  `json:"product_gross_weight_kg"`
}

func (PurchaseOrder) Kind() Kind { return KindPurchaseOrder }

func (po PurchaseOrder) BusinessID() string { return po.ID }

func (po PurchaseOrder) Participants() []Party {
	return []Party{po.Seller, po.Buyer}
}

func (po PurchaseOrder) fields() map[string]any {
	return map[string]any{
		"purchase_order_id":       po.ID,
		"seller":                  po.Seller.fields(),
		"buyer":                   po.Buyer.fields(),
		"issue_date":              po.IssueDate,
		"product_name":            po.ProductName,
		"product_quantity":        po.Quantity,
		"product_price_usd":       po.PriceUSD,
		"product_gross_weight_kg": po.GrossWeightKG,
	}
}

// LetterOfCredit is a bank undertaking backing a purchase order. Status is
// the only field that changes between successive versions.
type LetterOfCredit struct {
	ID              string `json:"loc_id"`
	Type            string `json:"loc_type"`
	ExpiryDate      string `json:"loc_expiry_date"`
	Seller          Party  `json:"seller"`
	Buyer           Party  `json:"buyer"`
	AdvisingBank    Party  `json:"advising_bank"`
	IssuingBank     Party  `json:"issuing_bank"`
	Value           int64  `json:"loc_value"`
	LoadingPort     Port   `json:"loading_port"`
	DischargePort   Port   `json:"discharge_port"`
	ProductName     string `json:"product_name"`
	Quantity        int64  `json:"product_quantity"`
	PriceUSD        int64  `json:"product_price_usd"`
	GrossWeightKG   int64  `json:"product_gross_weight_kg"`
	PurchaseOrderID string `json:"purchase_order_id"`
	Status          Status `json:"loc_status"`
}

func (LetterOfCredit) Kind() Kind { return KindLetterOfCredit }

func (l LetterOfCredit) BusinessID() string { return l.ID }

func (l LetterOfCredit) Participants() []Party {
	return []Party{l.Seller, l.Buyer, l.IssuingBank, l.AdvisingBank}
}

// WithStatus returns a copy of l with a new status.
func (l LetterOfCredit) WithStatus(s Status) LetterOfCredit {
	l.Status = s
	return l
}

// Equal compares every field.
func (l LetterOfCredit) Equal(o LetterOfCredit) bool {
	return l.EqualIgnoringStatus(o) && l.Status == o.Status
}

// EqualIgnoringStatus compares every field except Status.
func (l LetterOfCredit) EqualIgnoringStatus(o LetterOfCredit) bool {
	return l.ID == o.ID &&
		l.Type == o.Type &&
		l.ExpiryDate == o.ExpiryDate &&
		l.Seller.Equal(o.Seller) &&
		l.Buyer.Equal(o.Buyer) &&
		l.AdvisingBank.Equal(o.AdvisingBank) &&
		l.IssuingBank.Equal(o.IssuingBank) &&
		l.Value == o.Value &&
		l.LoadingPort == o.LoadingPort &&
		l.DischargePort == o.DischargePort &&
		l.ProductName == o.ProductName &&
		l.Quantity == o.Quantity &&
		l.PriceUSD == o.PriceUSD &&
		l.GrossWeightKG == o.GrossWeightKG &&
		l.PurchaseOrderID == o.PurchaseOrderID
}

func (l LetterOfCredit) fields() map[string]any {
	return map[string]any{
		"loc_id":                  l.ID,
		"loc_type":                l.Type,
		"loc_expiry_date":         l.ExpiryDate,
		"seller":                  l.Seller.fields(),
		"buyer":                   l.Buyer.fields(),
		"advising_bank":           l.AdvisingBank.fields(),
		"issuing_bank":            l.IssuingBank.fields(),
		"loc_value":               l.Value,
		"loading_port":            l.LoadingPort.fields(),
		"discharge_port":          l.DischargePort.fields(),
		"product_name":            l.ProductName,
		"product_quantity":        l.Quantity,
		"product_price_usd":       l.PriceUSD,
		"product_gross_weight_kg": l.GrossWeightKG,
		"purchase_order_id":       l.PurchaseOrderID,
		"loc_status":              string(l.Status),
	}
}

// BillOfLading is the shipping document. CurrentOwner is the only field
// that changes between successive versions. Banks are data fields here,
// not participants.
type BillOfLading struct {
	ID                 string `json:"bill_of_lading_id"`
	CurrentOwner       Party  `json:"current_owner"`
	Seller             Party  `json:"seller"`
	Buyer              Party  `json:"buyer"`
	AdvisingBank       Party  `json:"advising_bank"`
	IssuingBank        Party  `json:"issuing_bank"`
	CarrierCompany     string `json:"carrier_company_name"`
	CarrierName        string `json:"carrier_name"`
	LoadingDate        string `json:"loading_date"`
	DischargeDate      string `json:"discharge_date"`
	ProductName        string `json:"product_name"`
	ProductDescription string `json:"product_description"`
	Quantity           int64  `json:"product_quantity"`
	PriceUSD           int64  `json:"product_price_usd"`
	GrossWeightKG      int64  `json:"product_gross_weight_kg"`
	LoadingPort        Port   `json:"loading_port"`
	DischargePort      Port   `json:"discharge_port"`
}

func (BillOfLading) Kind() Kind { return KindBillOfLading }

func (b BillOfLading) BusinessID() string { return b.ID }

func (b BillOfLading) Participants() []Party {
	return []Party{b.Seller, b.Buyer}
}

// WithOwner returns a copy of b owned by p.
func (b BillOfLading) WithOwner(p Party) BillOfLading {
	b.CurrentOwner = p
	return b
}

// Equal compares every field.
func (b BillOfLading) Equal(o BillOfLading) bool {
	return b.EqualIgnoringOwner(o) && b.CurrentOwner.Equal(o.CurrentOwner)
}

// EqualIgnoringOwner compares every field except CurrentOwner.
func (b BillOfLading) EqualIgnoringOwner(o BillOfLading) bool {
	return b.ID == o.ID &&
		b.Seller.Equal(o.Seller) &&
		b.Buyer.Equal(o.Buyer) &&
		b.AdvisingBank.Equal(o.AdvisingBank) &&
		b.IssuingBank.Equal(o.IssuingBank) &&
		b.CarrierCompany == o.CarrierCompany &&
		b.CarrierName == o.CarrierName &&
		b.LoadingDate == o.LoadingDate &&
		b.DischargeDate == o.DischargeDate &&
		b.ProductName == o.ProductName &&
		b.ProductDescription == o.ProductDescription &&
		b.Quantity == o.Quantity &&
		b.PriceUSD == o.PriceUSD &&
		b.GrossWeightKG == o.GrossWeightKG &&
		b.LoadingPort == o.LoadingPort &&
		b.DischargePort == o.DischargePort
}

func (b BillOfLading) fields() map[string]any {
	return map[string]any{
		"bill_of_lading_id":       b.ID,
		"current_owner":           b.CurrentOwner.fields(),
		"seller":                  b.Seller.fields(),
		"buyer":                   b.Buyer.fields(),
		"advising_bank":           b.AdvisingBank.fields(),
		"issuing_bank":            b.IssuingBank.fields(),
		"carrier_company_name":    b.CarrierCompany,
		"carrier_name":            b.CarrierName,
		"loading_date":            b.LoadingDate,
		"discharge_date":          b.DischargeDate,
		"product_name":            b.ProductName,
		"product_description":     b.ProductDescription,
		"product_quantity":        b.Quantity,
		"product_price_usd":       b.PriceUSD,
		"product_gross_weight_kg": b.GrossWeightKG,
		"loading_port":            b.LoadingPort.fields(),
		"discharge_port":          b.DischargePort.fields(),
	}
}

// RecordsOf returns the records of type T, in order.
func RecordsOf[T Record](records []Record) []T {
	var out []T
	for _, r := range records {
		if t, ok := r.(T); ok {
			out = append(out, t)
		}
	}
	return out
}

// SameRecord reports whether a and b are the same kind with identical
// content.
func SameRecord(a, b Record) bool {
	if a == nil || b == nil || a.Kind() != b.Kind() {
		return false
	}
	ca, err := MarshalCanonical(a.fields())
	if err != nil {
		return false
	}
	cb, err := MarshalCanonical(b.fields())
	if err != nil {
		return false
	}
	return bytes.Equal(ca, cb)
}

// MarshalRecord encodes a record as JSON for storage. The kind is not
// embedded; callers store it alongside.
func MarshalRecord(r Record) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", r.Kind(), err)
	}
	return data, nil
}

// UnmarshalRecord decodes a record of the given kind.
func UnmarshalRecord(kind Kind, data []byte) (Record, error) {
	switch kind {
	case KindPurchaseOrder:
		var po PurchaseOrder
		if err := json.Unmarshal(data, &po); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", kind, err)
		}
		return po, nil
	case KindLetterOfCredit:
		var l LetterOfCredit
		if err := json.Unmarshal(data, &l); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", kind, err)
		}
		return l, nil
	case KindBillOfLading:
		var b BillOfLading
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", kind, err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unmarshal: unknown record kind %q", kind)
	}
}
