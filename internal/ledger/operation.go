package ledger

import "fmt"

// Op is the closed set of ledger operations. The zero value is invalid.
type Op int

const (
	OpCreatePurchaseOrder Op = iota + 1
	OpApplyForLetterOfCredit
	OpApproveLetterOfCreditApplication
	OpShipProducts
	OpPaySeller
	OpPayAdvisingBank
	OpPayIssuingBank
)

var opNames = map[Op]string{
	OpCreatePurchaseOrder:              "CreatePurchaseOrder",
	OpApplyForLetterOfCredit:           "ApplyForLetterOfCredit",
	OpApproveLetterOfCreditApplication: "ApproveLetterOfCreditApplication",
	OpShipProducts:                     "ShipProducts",
	OpPaySeller:                        "PaySeller",
	OpPayAdvisingBank:                  "PayAdvisingBank",
	OpPayIssuingBank:                   "PayIssuingBank",
}

// Ops lists every operation in life-cycle order.
func Ops() []Op {
	return []Op{
		OpCreatePurchaseOrder,
		OpApplyForLetterOfCredit,
		OpApproveLetterOfCreditApplication,
		OpShipProducts,
		OpPaySeller,
		OpPayAdvisingBank,
		OpPayIssuingBank,
	}
}

// String returns the operation tag.
func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// Valid reports whether o is a known operation.
func (o Op) Valid() bool {
	_, ok := opNames[o]
	return ok
}

// ParseOp parses an operation tag.
func ParseOp(s string) (Op, error) {
	for _, o := range Ops() {
		if opNames[o] == s {
			return o, nil
		}
	}
	return 0, fmt.Errorf("unknown operation %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (o Op) MarshalText() ([]byte, error) {
	if !o.Valid() {
		return nil, fmt.Errorf("marshal invalid operation %d", int(o))
	}
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Op) UnmarshalText(b []byte) error {
	parsed, err := ParseOp(string(b))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}
