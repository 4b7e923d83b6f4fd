package harness

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/roach88/tradefin/internal/ledger"
	"github.com/roach88/tradefin/internal/proposal"
)

// createArgs adds the party-valued field the params type does not decode.
type createArgs struct {
	proposal.CreatePurchaseOrder `yaml:",inline"`
	Buyer                        string `yaml:"buyer"`
}

type applyArgs struct {
	proposal.ApplyForLetterOfCredit `yaml:",inline"`
	AdvisingBank                    string `yaml:"advising_bank"`
	IssuingBank                     string `yaml:"issuing_bank"`
}

// partyFunc resolves a configured party name.
type partyFunc func(name string) (ledger.Party, error)

// decodeParams decodes a step's args into the params of op. Unknown fields
// are errors.
func decodeParams(op ledger.Op, args *yaml.Node, party partyFunc) (proposal.Params, error) {
	switch op {
	case ledger.OpCreatePurchaseOrder:
		var a createArgs
		if err := strict(args, &a); err != nil {
			return nil, err
		}
		buyer, err := party(a.Buyer)
		if err != nil {
			return nil, fmt.Errorf("buyer: %w", err)
		}
		p := a.CreatePurchaseOrder
		p.Buyer = buyer
		return p, nil

	case ledger.OpApplyForLetterOfCredit:
		var a applyArgs
		if err := strict(args, &a); err != nil {
			return nil, err
		}
		advising, err := party(a.AdvisingBank)
		if err != nil {
			return nil, fmt.Errorf("advising_bank: %w", err)
		}
		issuing, err := party(a.IssuingBank)
		if err != nil {
			return nil, fmt.Errorf("issuing_bank: %w", err)
		}
		p := a.ApplyForLetterOfCredit
		p.AdvisingBank = advising
		p.IssuingBank = issuing
		return p, nil

	case ledger.OpApproveLetterOfCreditApplication:
		var p proposal.ApproveLetterOfCreditApplication
		if err := strict(args, &p); err != nil {
			return nil, err
		}
		return p, nil

	case ledger.OpShipProducts:
		var p proposal.ShipProducts
		if err := strict(args, &p); err != nil {
			return nil, err
		}
		return p, nil

	case ledger.OpPaySeller, ledger.OpPayAdvisingBank, ledger.OpPayIssuingBank:
		var p proposal.Payment
		if err := strict(args, &p); err != nil {
			return nil, err
		}
		switch op {
		case ledger.OpPaySeller:
			return proposal.PaySeller(p), nil
		case ledger.OpPayAdvisingBank:
			return proposal.PayAdvisingBank(p), nil
		default:
			return proposal.PayIssuingBank(p), nil
		}

	default:
		return nil, fmt.Errorf("unknown operation %s", op)
	}
}

// strict decodes node into out, rejecting unknown fields. yaml.Node.Decode
// has no such mode, so the node is re-encoded and decoded again.
func strict(node *yaml.Node, out any) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	if err := enc.Encode(node); err != nil {
		return fmt.Errorf("args: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("args: %w", err)
	}

	dec := yaml.NewDecoder(&buf)
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("args: %w", err)
	}
	return nil
}
