package proposal

import "github.com/roach88/tradefin/internal/ledger"

// Params is the sealed set of per-operation parameters.
type Params interface {
	Op() ledger.Op
	sealed()
}

// CreatePurchaseOrder is placed by the seller.
type CreatePurchaseOrder struct {
	PurchaseOrderID string       `json:"purchase_order_id" yaml:"purchase_order_id"`
	Buyer           ledger.Party `json:"-" yaml:"-"`
	IssueDate       string       `json:"issue_date" yaml:"issue_date"`
	ProductName     string       `json:"product_name" yaml:"product_name"`
	Quantity        int64        `json:"product_quantity" yaml:"product_quantity"`
	PriceUSD        int64        `json:"product_price_usd" yaml:"product_price_usd"`
	GrossWeightKG   int64        `json:"product_gross_weight_kg" yaml:"product_gross_weight_kg"`
}

// ApplyForLetterOfCredit is submitted by the buyer against a live order.
type ApplyForLetterOfCredit struct {
	PurchaseOrderID string       `json:"purchase_order_id" yaml:"purchase_order_id"`
	LOCID           string       `json:"loc_id" yaml:"loc_id"`
	Type            string       `json:"loc_type" yaml:"loc_type"`
	ExpiryDate      string       `json:"loc_expiry_date" yaml:"loc_expiry_date"`
	AdvisingBank    ledger.Party `json:"-" yaml:"-"`
	IssuingBank     ledger.Party `json:"-" yaml:"-"`
	Value           int64        `json:"loc_value" yaml:"loc_value"`
	LoadingPort     ledger.Port  `json:"loading_port" yaml:"loading_port"`
	DischargePort   ledger.Port  `json:"discharge_port" yaml:"discharge_port"`
}

// ApproveLetterOfCreditApplication is decided by the issuing bank. Status
// is ISSUED or REJECTED.
type ApproveLetterOfCreditApplication struct {
	LOCID  string        `json:"loc_id" yaml:"loc_id"`
	Status ledger.Status `json:"loc_status" yaml:"loc_status"`
}

// ShipProducts is declared by the seller once the credit is issued.
type ShipProducts struct {
	LOCID              string `json:"loc_id" yaml:"loc_id"`
	BillOfLadingID     string `json:"bill_of_lading_id" yaml:"bill_of_lading_id"`
	CarrierCompany     string `json:"carrier_company_name" yaml:"carrier_company_name"`
	CarrierName        string `json:"carrier_name" yaml:"carrier_name"`
	LoadingDate        string `json:"loading_date" yaml:"loading_date"`
	DischargeDate      string `json:"discharge_date" yaml:"discharge_date"`
	ProductDescription string `json:"product_description" yaml:"product_description"`
}

// Payment identifies the credit and bill a payment step settles.
type Payment struct {
	LOCID          string `json:"loc_id" yaml:"loc_id"`
	BillOfLadingID string `json:"bill_of_lading_id" yaml:"bill_of_lading_id"`
}

// PaySeller is made by the advising bank.
type PaySeller Payment

// PayAdvisingBank is made by the issuing bank.
type PayAdvisingBank Payment

// PayIssuingBank is made by the buyer.
type PayIssuingBank Payment

func (CreatePurchaseOrder) Op() ledger.Op { return ledger.OpCreatePurchaseOrder }
func (ApplyForLetterOfCredit) Op() ledger.Op { return ledger.OpApplyForLetterOfCredit }
func (ApproveLetterOfCreditApplication) Op() ledger.Op {
	return ledger.OpApproveLetterOfCreditApplication
}
func (ShipProducts) Op() ledger.Op    { return ledger.OpShipProducts }
func (PaySeller) Op() ledger.Op       { return ledger.OpPaySeller }
func (PayAdvisingBank) Op() ledger.Op { return ledger.OpPayAdvisingBank }
func (PayIssuingBank) Op() ledger.Op  { return ledger.OpPayIssuingBank }

func (CreatePurchaseOrder) sealed()              {}
func (ApplyForLetterOfCredit) sealed()           {}
func (ApproveLetterOfCreditApplication) sealed() {}
func (ShipProducts) sealed()                     {}
func (PaySeller) sealed()                        {}
func (PayAdvisingBank) sealed()                  {}
func (PayIssuingBank) sealed()                   {}
