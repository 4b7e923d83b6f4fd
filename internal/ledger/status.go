package ledger

import "fmt"

// Kind identifies a record kind.
type Kind string

const (
	KindPurchaseOrder  Kind = "PurchaseOrder"
	KindLetterOfCredit Kind = "LetterOfCredit"
	KindBillOfLading   Kind = "BillOfLading"
)

// Kinds lists every record kind in declaration order.
func Kinds() []Kind {
	return []Kind{KindPurchaseOrder, KindLetterOfCredit, KindBillOfLading}
}

// ParseKind parses a record kind name.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown record kind %q", s)
}

// Status is the life-cycle status of a LetterOfCredit.
//
//	APPLIED -> REJECTED
//	APPLIED -> ISSUED -> SHIPPED -> SELLER_PAID -> ADVISING_BANK_PAID -> ISSUING_BANK_PAID
type Status string

const (
	StatusApplied          Status = "APPLIED"
	StatusRejected         Status = "REJECTED"
	StatusIssued           Status = "ISSUED"
	StatusShipped          Status = "SHIPPED"
	StatusSellerPaid       Status = "SELLER_PAID"
	StatusAdvisingBankPaid Status = "ADVISING_BANK_PAID"
	StatusIssuingBankPaid  Status = "ISSUING_BANK_PAID"
)

// successors is the complete legal transition table. Anything absent is illegal.
var successors = map[Status][]Status{
	StatusApplied:          {StatusIssued, StatusRejected},
	StatusIssued:           {StatusShipped},
	StatusShipped:          {StatusSellerPaid},
	StatusSellerPaid:       {StatusAdvisingBankPaid},
	StatusAdvisingBankPaid: {StatusIssuingBankPaid},
}

// Statuses lists every status.
func Statuses() []Status {
	return []Status{
		StatusApplied, StatusRejected, StatusIssued, StatusShipped,
		StatusSellerPaid, StatusAdvisingBankPaid, StatusIssuingBankPaid,
	}
}

// ParseStatus parses a status name. Matching is exact.
func ParseStatus(s string) (Status, error) {
	for _, st := range Statuses() {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown letter of credit status %q", s)
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, err := ParseStatus(string(s))
	return err == nil
}

// Next returns the legal successor statuses of s.
func (s Status) Next() []Status {
	return append([]Status(nil), successors[s]...)
}

// CanAdvanceTo reports whether next is a legal successor of s.
func (s Status) CanAdvanceTo(next Status) bool {
	for _, n := range successors[s] {
		if n == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no operation can advance s.
func (s Status) Terminal() bool {
	return s.Valid() && len(successors[s]) == 0
}
