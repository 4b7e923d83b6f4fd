package flow

import (
	"strings"

	"github.com/roach88/tradefin/internal/ledger"
)

// namedRole picks one party out of a letter of credit.
type namedRole struct {
	name  string
	party func(ledger.LetterOfCredit) ledger.Party
}

var (
	roleSeller       = namedRole{"seller", func(l ledger.LetterOfCredit) ledger.Party { return l.Seller }}
	roleBuyer        = namedRole{"buyer", func(l ledger.LetterOfCredit) ledger.Party { return l.Buyer }}
	roleAdvisingBank = namedRole{"advising bank", func(l ledger.LetterOfCredit) ledger.Party { return l.AdvisingBank }}
	roleIssuingBank  = namedRole{"issuing bank", func(l ledger.LetterOfCredit) ledger.Party { return l.IssuingBank }}
)

// relevance lists, per credit operation, who may initiate it and who is
// expected to endorse it.
var relevance = map[ledger.Op]struct {
	initiator  namedRole
	responders []namedRole
}{
	ledger.OpApplyForLetterOfCredit:           {roleBuyer, []namedRole{roleSeller, roleIssuingBank, roleAdvisingBank}},
	ledger.OpApproveLetterOfCreditApplication: {roleIssuingBank, []namedRole{roleBuyer, roleSeller, roleAdvisingBank}},
	ledger.OpShipProducts:                     {roleSeller, []namedRole{roleBuyer, roleAdvisingBank, roleIssuingBank}},
	ledger.OpPaySeller:                        {roleAdvisingBank, []namedRole{roleSeller, roleBuyer, roleIssuingBank}},
	ledger.OpPayAdvisingBank:                  {roleIssuingBank, []namedRole{roleSeller, roleBuyer, roleAdvisingBank}},
	ledger.OpPayIssuingBank:                   {roleBuyer, []namedRole{roleSeller, roleAdvisingBank, roleIssuingBank}},
}

// checkRelevance runs the counterparty-side checks that go beyond the rule
// engine: the initiator must hold the operation's caller role, and me must
// hold one of the roles that endorse it.
func checkRelevance(tx *ledger.Transaction, me, initiator ledger.Party) error {
	if tx.Op == ledger.OpCreatePurchaseOrder {
		po := ledger.RecordsOf[ledger.PurchaseOrder](tx.Outputs)[0]
		if !po.Seller.Equal(initiator) {
			return ledger.Rejected("%s may not initiate %s: only the seller can.", initiator, tx.Op)
		}
		if !po.Buyer.Equal(me) {
			return ledger.Rejected("I (%s) must be the buyer in the purchase order.", me)
		}
		return nil
	}

	rules, ok := relevance[tx.Op]
	if !ok {
		return ledger.Fatal("no relevance rules for %s", tx.Op)
	}
	loc := ledger.RecordsOf[ledger.LetterOfCredit](tx.Outputs)[0]

	if !rules.initiator.party(loc).Equal(initiator) {
		return ledger.Rejected("%s may not initiate %s: only the %s can.", initiator, tx.Op, rules.initiator.name)
	}
	names := make([]string, len(rules.responders))
	for i, role := range rules.responders {
		if role.party(loc).Equal(me) {
			return nil
		}
		names[i] = role.name
	}
	return ledger.Rejected("I (%s) must be the %s in the letter of credit.", me, joinOr(names))
}

// joinOr renders ["a", "b", "c"] as "a, b or c".
func joinOr(names []string) string {
	if len(names) < 2 {
		return strings.Join(names, "")
	}
	return strings.Join(names[:len(names)-1], ", ") + " or " + names[len(names)-1]
}
