package ledger

import (
	"fmt"
	"strconv"
	"strings"
)

// StateRef points at one output of a committed transaction.
type StateRef struct {
	TxID  string `json:"tx_id"`
	Index int    `json:"index"`
}

// String renders the ref as "<tx_id>:<index>".
func (r StateRef) String() string {
	return r.TxID + ":" + strconv.Itoa(r.Index)
}

// ParseStateRef parses the String form.
func ParseStateRef(s string) (StateRef, error) {
	i := strings.LastIndexByte(s, ':')
	if i <= 0 {
		return StateRef{}, fmt.Errorf("invalid state ref %q", s)
	}
	idx, err := strconv.Atoi(s[i+1:])
	if err != nil || idx < 0 {
		return StateRef{}, fmt.Errorf("invalid state ref index in %q", s)
	}
	return StateRef{TxID: s[:i], Index: idx}, nil
}

// StateAndRef is a record together with the ref that identifies it.
type StateAndRef struct {
	Ref    StateRef
	Record Record
}

// Transaction is a proposed or committed replacement of live records.
//
// INVARIANTS:
//   - ID is the content hash of every other field (see ComputeID)
//   - Output i of the transaction is addressed as StateRef{ID, i}
type Transaction struct {
	ID      string
	Op      Op
	Inputs  []StateAndRef
	Outputs []Record
	Signers []Party
	Notary  Party
	// Salt distinguishes otherwise identical proposals (e.g. two creation
	// attempts with the same fields).
	Salt string
}

// NewTransaction assembles a transaction and computes its ID.
func NewTransaction(op Op, inputs []StateAndRef, outputs []Record, signers []Party, notary Party, salt string) (*Transaction, error) {
	tx := &Transaction{
		Op:      op,
		Inputs:  inputs,
		Outputs: outputs,
		Signers: signers,
		Notary:  notary,
		Salt:    salt,
	}
	id, err := tx.ComputeID()
	if err != nil {
		return nil, err
	}
	tx.ID = id
	return tx, nil
}

// ComputeID hashes the canonical form of the transaction, excluding ID.
func (tx *Transaction) ComputeID() (string, error) {
	inputs := make([]any, len(tx.Inputs))
	for i, in := range tx.Inputs {
		if in.Record == nil {
			return "", fmt.Errorf("TransactionID: input %d has no record", i)
		}
		inputs[i] = map[string]any{
			"ref":    in.Ref.String(),
			"kind":   string(in.Record.Kind()),
			"record": in.Record.fields(),
		}
	}
	outputs := make([]any, len(tx.Outputs))
	for i, out := range tx.Outputs {
		if out == nil {
			return "", fmt.Errorf("TransactionID: output %d is nil", i)
		}
		outputs[i] = map[string]any{
			"kind":   string(out.Kind()),
			"record": out.fields(),
		}
	}
	signers := make([]any, len(tx.Signers))
	for i, p := range tx.Signers {
		signers[i] = p.fields()
	}

	obj := map[string]any{
		"op":      tx.Op.String(),
		"inputs":  inputs,
		"outputs": outputs,
		"signers": signers,
		"notary":  tx.Notary.fields(),
		"salt":    tx.Salt,
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("TransactionID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainTransaction, canonical), nil
}

// VerifyID checks that ID matches the content.
func (tx *Transaction) VerifyID() error {
	id, err := tx.ComputeID()
	if err != nil {
		return err
	}
	if id != tx.ID {
		return fmt.Errorf("transaction id mismatch: have %s, content hashes to %s", tx.ID, id)
	}
	return nil
}

// InputRefs returns the refs of all inputs, in order.
func (tx *Transaction) InputRefs() []StateRef {
	refs := make([]StateRef, len(tx.Inputs))
	for i, in := range tx.Inputs {
		refs[i] = in.Ref
	}
	return refs
}

// OutputRef returns the ref output i will have once committed.
func (tx *Transaction) OutputRef(i int) StateRef {
	return StateRef{TxID: tx.ID, Index: i}
}

// OutputStates pairs each output with its ref.
func (tx *Transaction) OutputStates() []StateAndRef {
	out := make([]StateAndRef, len(tx.Outputs))
	for i, r := range tx.Outputs {
		out[i] = StateAndRef{Ref: tx.OutputRef(i), Record: r}
	}
	return out
}

// InputRecords returns the input records without refs.
func (tx *Transaction) InputRecords() []Record {
	out := make([]Record, len(tx.Inputs))
	for i, in := range tx.Inputs {
		out[i] = in.Record
	}
	return out
}

// Recipients is every party that must receive the finished transaction:
// the signers plus the participants of all inputs and outputs.
func (tx *Transaction) Recipients() []Party {
	parties := append([]Party(nil), tx.Signers...)
	for _, in := range tx.Inputs {
		parties = append(parties, in.Record.Participants()...)
	}
	for _, out := range tx.Outputs {
		parties = append(parties, out.Participants()...)
	}
	return UniqueParties(parties...)
}

// Endorsement is a party's signature over a transaction ID.
type Endorsement struct {
	Party     Party
	Signature []byte
}

// Endorse signs txID as party using keys.
func Endorse(keys KeyPair, party Party, txID string) Endorsement {
	return Endorsement{Party: party, Signature: keys.Sign(EndorsementMessage(txID))}
}

// Valid reports whether e is a valid signature over txID.
func (e Endorsement) Valid(txID string) bool {
	return e.Party.Verify(EndorsementMessage(txID), e.Signature)
}

// SignedTransaction is a transaction with the endorsements collected so far.
type SignedTransaction struct {
	Tx           *Transaction
	Endorsements []Endorsement
}

// Endorsers returns the parties with a valid endorsement.
func (s *SignedTransaction) Endorsers() []Party {
	var out []Party
	for _, e := range s.Endorsements {
		if e.Valid(s.Tx.ID) && !ContainsParty(out, e.Party) {
			out = append(out, e.Party)
		}
	}
	return out
}

// Missing returns the signers with no valid endorsement.
func (s *SignedTransaction) Missing() []Party {
	have := s.Endorsers()
	var missing []Party
	for _, p := range s.Tx.Signers {
		if !ContainsParty(have, p) {
			missing = append(missing, p)
		}
	}
	return missing
}

// Admission is the ordering authority's record that a transaction was
// admitted: its position in the total order, signed by the authority.
type Admission struct {
	TxID      string
	Seq       int64
	Notary    Party
	Signature []byte
}

// Valid reports whether the admission is signed by the expected notary.
func (a Admission) Valid(notary Party) bool {
	return a.Notary.Equal(notary) && notary.Verify(AdmissionMessage(a.TxID, a.Seq), a.Signature)
}
