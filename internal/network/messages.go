package network

import "github.com/roach88/tradefin/internal/ledger"

// Message is the sealed set of protocol messages.
type Message interface {
	isMessage()
}

// EndorseRequest asks a counterparty to check and endorse a proposal.
type EndorseRequest struct {
	Tx        *ledger.Transaction
	Initiator ledger.Party
}

// EndorseResponse carries the counterparty's endorsement.
type EndorseResponse struct {
	Endorsement ledger.Endorsement
}

// CommitRequest delivers an admitted, fully endorsed transaction.
type CommitRequest struct {
	Stx       *ledger.SignedTransaction
	Admission ledger.Admission
}

// CommitResponse acknowledges a commit. Applied is false when the receiver
// had already recorded the transaction.
type CommitResponse struct {
	Applied bool
}

func (EndorseRequest) isMessage()  {}
func (EndorseResponse) isMessage() {}
func (CommitRequest) isMessage()   {}
func (CommitResponse) isMessage()  {}
