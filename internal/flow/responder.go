package flow

import (
	"context"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/roach88/tradefin/internal/contract"
	"github.com/roach88/tradefin/internal/ledger"
	"github.com/roach88/tradefin/internal/network"
)

// DefaultEndorsementTTL is how long a responder remembers endorsements it
// has issued.
const DefaultEndorsementTTL = 10 * time.Minute

// Responder answers protocol messages on behalf of one party. It implements
// network.Handler.
type Responder struct {
	me     ledger.Party
	keys   ledger.KeyPair
	notary ledger.Party
	store  Store
	issued *cache.Cache
	logger *slog.Logger
}

// ResponderOption configures a Responder.
type ResponderOption func(*Responder)

// WithResponderLogger sets the logger. Default: slog.Default().
func WithResponderLogger(l *slog.Logger) ResponderOption {
	return func(r *Responder) {
		r.logger = l
	}
}

// WithEndorsementTTL sets how long issued endorsements are remembered.
func WithEndorsementTTL(ttl time.Duration) ResponderOption {
	return func(r *Responder) {
		r.issued = cache.New(ttl, 2*ttl)
	}
}

// NewResponder creates a Responder for me that trusts admissions signed by
// notary and applies commits to store.
func NewResponder(me ledger.Party, keys ledger.KeyPair, notary ledger.Party, store Store, opts ...ResponderOption) *Responder {
	r := &Responder{
		me:     me,
		keys:   keys,
		notary: notary,
		store:  store,
		issued: cache.New(DefaultEndorsementTTL, 2*DefaultEndorsementTTL),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handle implements network.Handler.
func (r *Responder) Handle(ctx context.Context, from ledger.Party, msg network.Message) (network.Message, error) {
	switch m := msg.(type) {
	case network.EndorseRequest:
		e, err := r.Endorse(ctx, from, m.Tx)
		if err != nil {
			return nil, err
		}
		return network.EndorseResponse{Endorsement: e}, nil
	case network.CommitRequest:
		applied, err := r.Commit(ctx, m.Stx, m.Admission)
		if err != nil {
			return nil, err
		}
		return network.CommitResponse{Applied: applied}, nil
	default:
		return nil, ledger.Fatal("responder %s: unexpected message %T", r.me, msg)
	}
}

// Endorse checks tx as a counterparty and signs it. A transaction already
// endorsed for the same initiator returns the same endorsement without
// re-checking.
//
// Every input this party participates in must be live in its own store
// with identical content.
func (r *Responder) Endorse(ctx context.Context, from ledger.Party, tx *ledger.Transaction) (ledger.Endorsement, error) {
	if tx == nil {
		return ledger.Endorsement{}, ledger.Fatal("endorse: nil transaction")
	}
	key := tx.ID + "/" + from.Name
	if cached, ok := r.issued.Get(key); ok {
		return cached.(ledger.Endorsement), nil
	}

	if err := contract.VerifyTransaction(tx); err != nil {
		r.logger.Info("refusing endorsement", "party", r.me.Name, "tx", tx.ID, "op", tx.Op.String(), "reason", ledger.ReasonOf(err))
		return ledger.Endorsement{}, err
	}
	if !tx.Notary.Equal(r.notary) {
		return ledger.Endorsement{}, ledger.Rejected("transaction names ordering authority %s, not %s", tx.Notary, r.notary)
	}
	if !ledger.ContainsParty(tx.Signers, r.me) {
		return ledger.Endorsement{}, ledger.Rejected("I (%s) am not a required signer of %s.", r.me, tx.Op)
	}
	if err := checkRelevance(tx, r.me, from); err != nil {
		r.logger.Info("refusing endorsement", "party", r.me.Name, "tx", tx.ID, "op", tx.Op.String(), "reason", ledger.ReasonOf(err))
		return ledger.Endorsement{}, err
	}
	if err := r.checkInputs(ctx, tx); err != nil {
		r.logger.Info("refusing endorsement", "party", r.me.Name, "tx", tx.ID, "op", tx.Op.String(), "reason", ledger.ReasonOf(err))
		return ledger.Endorsement{}, err
	}

	e := ledger.Endorse(r.keys, r.me, tx.ID)
	r.issued.Set(key, e, cache.DefaultExpiration)
	r.logger.Debug("endorsed", "party", r.me.Name, "tx", tx.ID, "op", tx.Op.String(), "initiator", from.Name)
	return e, nil
}

// checkInputs requires each input this party participates in to be a live
// record in its store, unchanged.
func (r *Responder) checkInputs(ctx context.Context, tx *ledger.Transaction) error {
	for _, in := range tx.Inputs {
		if !ledger.ContainsParty(in.Record.Participants(), r.me) {
			continue
		}
		held, live, err := r.store.Lookup(ctx, in.Ref)
		switch {
		case ledger.IsNotFound(err):
			return ledger.Rejected("input %s %s at %s is not a record I (%s) hold.", in.Record.Kind(), in.Record.BusinessID(), in.Ref, r.me).WithTx(tx.ID)
		case err != nil:
			return err
		case !live:
			return ledger.Conflict("input %s %s at %s was already consumed by a transaction I (%s) recorded.", in.Record.Kind(), in.Record.BusinessID(), in.Ref, r.me).WithTx(tx.ID)
		case !ledger.SameRecord(held.Record, in.Record):
			return ledger.Rejected("input %s %s at %s does not match the record I (%s) hold.", in.Record.Kind(), in.Record.BusinessID(), in.Ref, r.me).WithTx(tx.ID)
		}
	}
	return nil
}

// Commit verifies an admitted transaction and applies it to the store.
// Returns applied=false if it was already recorded.
func (r *Responder) Commit(ctx context.Context, stx *ledger.SignedTransaction, adm ledger.Admission) (bool, error) {
	if stx == nil || stx.Tx == nil {
		return false, ledger.Fatal("commit: nil transaction")
	}
	tx := stx.Tx
	if err := tx.VerifyID(); err != nil {
		return false, ledger.Fatal("commit: %v", err).WithTx(tx.ID)
	}
	if adm.TxID != tx.ID || !adm.Valid(r.notary) {
		return false, ledger.Rejected("commit: admission is not signed by %s for this transaction", r.notary).WithTx(tx.ID)
	}
	endorsers := stx.Endorsers()
	for _, p := range contract.RequiredSigners(tx) {
		if !ledger.ContainsParty(endorsers, p) {
			return false, ledger.Rejected("commit: missing endorsement from %s", p).WithTx(tx.ID)
		}
	}
	if !ledger.ContainsParty(tx.Recipients(), r.me) {
		return false, ledger.Rejected("commit: %s is not a recipient", r.me).WithTx(tx.ID)
	}

	applied, err := r.store.Apply(ctx, stx, adm)
	if err != nil {
		return false, err
	}
	r.logger.Debug("committed", "party", r.me.Name, "tx", tx.ID, "op", tx.Op.String(), "seq", adm.Seq, "applied", applied)
	return applied, nil
}
