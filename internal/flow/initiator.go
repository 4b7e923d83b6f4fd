package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/roach88/tradefin/internal/contract"
	"github.com/roach88/tradefin/internal/ledger"
	"github.com/roach88/tradefin/internal/network"
	"github.com/roach88/tradefin/internal/proposal"
)

// Default protocol tuning.
const (
	DefaultEndorsementTimeout = 5 * time.Second
	DefaultCommitTimeout      = 5 * time.Second
	DefaultConflictRetries    = 3
	DefaultRetryInterval      = 50 * time.Millisecond
)

// Builder assembles a transaction from operation parameters.
type Builder interface {
	Build(ctx context.Context, params proposal.Params, salt string) (*ledger.Transaction, error)
}

// Transport carries protocol messages between parties.
type Transport interface {
	Request(ctx context.Context, from, to ledger.Party, msg network.Message) (network.Message, error)
}

// Orderer is the ordering authority.
type Orderer interface {
	Admit(ctx context.Context, stx *ledger.SignedTransaction) (ledger.Admission, error)
}

// Store is a party's record store: commits are applied to it and
// endorsement requests are checked against it.
type Store interface {
	Apply(ctx context.Context, stx *ledger.SignedTransaction, adm ledger.Admission) (bool, error)
	Lookup(ctx context.Context, ref ledger.StateRef) (ledger.StateAndRef, bool, error)
}

// Result describes a committed transition.
type Result struct {
	Attempt string
	TxID    string
	Op      ledger.Op
	Outputs []ledger.StateAndRef
	Seq     int64
	// Attempts counts the attempts RunWithRetry made, including this one.
	Attempts int
	// CommitErrors holds fan-out failures by party name. The transition is
	// committed regardless; these parties must reconcile later.
	CommitErrors map[string]error
}

// Initiator runs attempts on behalf of one party.
//
// Thread-safety: safe for concurrent use. Each Run call is an independent
// attempt; concurrent attempts over the same records are resolved by the
// ordering authority.
type Initiator struct {
	me      ledger.Party
	keys    ledger.KeyPair
	builder Builder
	net     Transport
	orderer Orderer
	store   Store

	ids            IDGenerator
	endorseTimeout time.Duration
	commitTimeout  time.Duration
	retries        int
	limiter        *rate.Limiter
	observer       Observer
	logger         *slog.Logger
}

// Option configures an Initiator.
type Option func(*Initiator)

// WithIDs sets the attempt id generator. Default: UUIDv7Generator.
func WithIDs(g IDGenerator) Option {
	return func(i *Initiator) {
		i.ids = g
	}
}

// WithTimeouts bounds each endorsement session and each commit delivery.
func WithTimeouts(endorse, commit time.Duration) Option {
	return func(i *Initiator) {
		i.endorseTimeout = endorse
		i.commitTimeout = commit
	}
}

// WithConflictRetry sets how many times RunWithRetry rebuilds after
// CONFLICT_REJECTED, and the minimum spacing between rebuilds.
func WithConflictRetry(retries int, interval time.Duration) Option {
	return func(i *Initiator) {
		i.retries = retries
		i.limiter = rate.NewLimiter(rate.Every(interval), 1)
	}
}

// WithObserver receives every state change.
func WithObserver(o Observer) Option {
	return func(i *Initiator) {
		i.observer = o
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(i *Initiator) {
		i.logger = l
	}
}

// NewInitiator creates an Initiator for me.
func NewInitiator(me ledger.Party, keys ledger.KeyPair, b Builder, t Transport, o Orderer, s Store, opts ...Option) *Initiator {
	i := &Initiator{
		me:             me,
		keys:           keys,
		builder:        b,
		net:            t,
		orderer:        o,
		store:          s,
		ids:            UUIDv7Generator{},
		endorseTimeout: DefaultEndorsementTimeout,
		commitTimeout:  DefaultCommitTimeout,
		retries:        DefaultConflictRetries,
		limiter:        rate.NewLimiter(rate.Every(DefaultRetryInterval), 1),
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// RunWithRetry runs attempts until one commits, one fails with an error
// other than CONFLICT_REJECTED, or the retry budget is spent. Rebuilds are
// paced by the retry limiter.
func (i *Initiator) RunWithRetry(ctx context.Context, params proposal.Params) (*Result, error) {
	for n := 1; ; n++ {
		res, err := i.Run(ctx, params)
		if err == nil {
			res.Attempts = n
			return res, nil
		}
		if !ledger.IsRetryable(err) || n > i.retries {
			return nil, err
		}
		i.logger.Info("retrying after conflict", "op", params.Op().String(), "attempt", n, "reason", ledger.ReasonOf(err))
		if werr := i.limiter.Wait(ctx); werr != nil {
			return nil, fmt.Errorf("retry %s: %w", params.Op(), werr)
		}
	}
}

// Run makes one attempt.
func (i *Initiator) Run(ctx context.Context, params proposal.Params) (*Result, error) {
	if params == nil {
		return nil, ledger.Fatal("run: nil params")
	}
	a := &attempt{Initiator: i, id: i.ids.Generate(), op: params.Op()}
	res, err := a.run(ctx, params)
	if err != nil {
		a.fail(err)
		return nil, err
	}
	return res, nil
}

// attempt carries the state of one Run.
type attempt struct {
	*Initiator
	id    string
	op    ledger.Op
	txID  string
	state State
}

func (a *attempt) enter(s State) {
	a.state = s
	a.logger.Debug("attempt state", "attempt", a.id, "op", a.op.String(), "state", s.String(), "tx", a.txID)
	if a.observer != nil {
		a.observer(Event{Attempt: a.id, Op: a.op, State: s, TxID: a.txID})
	}
}

func (a *attempt) fail(err error) {
	s := terminalState(err)
	a.state = s
	a.logger.Warn("attempt ended", "attempt", a.id, "op", a.op.String(), "state", s.String(), "tx", a.txID, "error", err)
	if a.observer != nil {
		a.observer(Event{Attempt: a.id, Op: a.op, State: s, TxID: a.txID, Err: err})
	}
}

func (a *attempt) run(ctx context.Context, params proposal.Params) (*Result, error) {
	a.enter(StateBuilding)
	tx, err := a.builder.Build(ctx, params, a.id)
	if err != nil {
		return nil, err
	}
	a.txID = tx.ID

	if err := contract.VerifyTransaction(tx); err != nil {
		return nil, withTx(err, tx.ID)
	}
	if !ledger.ContainsParty(tx.Signers, a.me) {
		return nil, ledger.Rejected("I (%s) am not a required signer of %s.", a.me, tx.Op).WithTx(tx.ID)
	}
	a.enter(StateLocallyValidated)

	a.enter(StateAwaitingEndorsements)
	stx, err := a.collect(ctx, tx)
	if err != nil {
		return nil, withTx(err, tx.ID)
	}

	a.enter(StateOrdering)
	adm, err := a.orderer.Admit(ctx, stx)
	if err != nil {
		return nil, withTx(err, tx.ID)
	}
	if adm.TxID != tx.ID || !adm.Valid(tx.Notary) {
		return nil, ledger.Fatal("ordering authority returned an invalid admission for %s", tx.ID).WithTx(tx.ID)
	}

	a.enter(StateCommitting)
	commitErrs := a.commit(ctx, stx, adm)
	a.enter(StateCommitted)

	return &Result{
		Attempt:      a.id,
		TxID:         tx.ID,
		Op:           tx.Op,
		Outputs:      tx.OutputStates(),
		Seq:          adm.Seq,
		Attempts:     1,
		CommitErrors: commitErrs,
	}, nil
}

// collect gathers an endorsement from every signer. Sessions run
// concurrently; the first error cancels the rest.
func (a *attempt) collect(ctx context.Context, tx *ledger.Transaction) (*ledger.SignedTransaction, error) {
	var counterparties []ledger.Party
	for _, p := range tx.Signers {
		if !p.Equal(a.me) {
			counterparties = append(counterparties, p)
		}
	}

	endorsements := make([]ledger.Endorsement, len(counterparties))
	g, gctx := errgroup.WithContext(ctx)
	for idx, party := range counterparties {
		g.Go(func() error {
			sctx, cancel := context.WithTimeout(gctx, a.endorseTimeout)
			defer cancel()

			resp, err := a.net.Request(sctx, a.me, party, network.EndorseRequest{Tx: tx, Initiator: a.me})
			if err != nil {
				return err
			}
			er, ok := resp.(network.EndorseResponse)
			if !ok {
				return ledger.Fatal("unexpected reply %T to endorsement request", resp).WithParty(party.Name)
			}
			if !er.Endorsement.Party.Equal(party) || !er.Endorsement.Valid(tx.ID) {
				return ledger.Rejected("invalid endorsement returned").WithParty(party.Name)
			}
			endorsements[idx] = er.Endorsement
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stx := &ledger.SignedTransaction{
		Tx:           tx,
		Endorsements: append([]ledger.Endorsement{ledger.Endorse(a.keys, a.me, tx.ID)}, endorsements...),
	}
	if missing := stx.Missing(); len(missing) > 0 {
		return nil, ledger.Fatal("endorsements missing after collection: %v", missing)
	}
	return stx, nil
}

// commit applies the admitted transaction locally and fans it out to every
// other recipient. It never fails the attempt; failures are returned by
// party name.
func (a *attempt) commit(ctx context.Context, stx *ledger.SignedTransaction, adm ledger.Admission) map[string]error {
	var (
		mu   sync.Mutex
		errs map[string]error
	)
	record := func(party string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if errs == nil {
			errs = make(map[string]error)
		}
		errs[party] = err
		a.logger.Warn("commit delivery failed", "attempt", a.id, "tx", stx.Tx.ID, "party", party, "error", err)
	}

	if _, err := a.store.Apply(ctx, stx, adm); err != nil {
		record(a.me.Name, err)
	}

	var g errgroup.Group
	for _, party := range stx.Tx.Recipients() {
		if party.Equal(a.me) {
			continue
		}
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, a.commitTimeout)
			defer cancel()

			resp, err := a.net.Request(cctx, a.me, party, network.CommitRequest{Stx: stx, Admission: adm})
			if err != nil {
				record(party.Name, err)
				return nil
			}
			if _, ok := resp.(network.CommitResponse); !ok {
				record(party.Name, ledger.Fatal("unexpected reply %T to commit", resp))
			}
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

// withTx tags err with txID when it is a classified error without one.
func withTx(err error, txID string) error {
	var lerr *ledger.Error
	if errors.As(err, &lerr) && lerr.TxID == "" {
		return lerr.WithTx(txID)
	}
	return err
}
