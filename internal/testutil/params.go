package testutil

import (
	"github.com/roach88/tradefin/internal/ledger"
	"github.com/roach88/tradefin/internal/proposal"
)

// CreateParams orders 100 units of jute at 5 USD from the seller.
func (p *Parties) CreateParams(id string) proposal.CreatePurchaseOrder {
	return proposal.CreatePurchaseOrder{
		PurchaseOrderID: id,
		Buyer:           p.Buyer,
		IssueDate:       "2026-10-01",
		ProductName:     "Jute",
		Quantity:        100,
		PriceUSD:        5,
		GrossWeightKG:   700,
	}
}

// ApplyParams applies for a credit of value against order poID.
func (p *Parties) ApplyParams(poID, locID string, value int64) proposal.ApplyForLetterOfCredit {
	return proposal.ApplyForLetterOfCredit{
		PurchaseOrderID: poID,
		LOCID:           locID,
		Type:            "IRREVOCABLE",
		ExpiryDate:      "2027-06-30",
		AdvisingBank:    p.AdvisingBank,
		IssuingBank:     p.IssuingBank,
		Value:           value,
		LoadingPort:     ledger.Port{Address: "Berth 4", City: "Chittagong", Country: "Bangladesh"},
		DischargePort:   ledger.Port{Address: "Waalhaven 12", City: "Rotterdam", Country: "Netherlands"},
	}
}

// ApproveParams decides the application for locID.
func ApproveParams(locID string, decision ledger.Status) proposal.ApproveLetterOfCreditApplication {
	return proposal.ApproveLetterOfCreditApplication{LOCID: locID, Status: decision}
}

// ShipParams ships the goods under locID with bill bolID.
func ShipParams(locID, bolID string) proposal.ShipProducts {
	return proposal.ShipProducts{
		LOCID:              locID,
		BillOfLadingID:     bolID,
		CarrierCompany:     "Maersk",
		CarrierName:        "Emma Maersk",
		LoadingDate:        "2026-11-01",
		DischargeDate:      "2026-12-01",
		ProductDescription: "Raw jute fibre, grade A",
	}
}

// PaymentParams identifies the credit and bill a payment settles.
func PaymentParams(locID, bolID string) proposal.Payment {
	return proposal.Payment{LOCID: locID, BillOfLadingID: bolID}
}
