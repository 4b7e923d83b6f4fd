// Package node assembles one party's view of the trade network: its record
// store, the builder and initiator that run its transitions, and the
// responder that answers its counterparties.
//
// Cluster wires a whole network in one process from a config.Config.
package node

import (
	"context"
	"log/slog"

	"github.com/roach88/tradefin/internal/flow"
	"github.com/roach88/tradefin/internal/ledger"
	"github.com/roach88/tradefin/internal/proposal"
	"github.com/roach88/tradefin/internal/vault"
)

// Node is one trade participant.
//
// Write entry points run the commitment protocol with automatic retry on
// CONFLICT_REJECTED and return the committed transition or a classified
// *ledger.Error. Read entry points query the node's own vault only.
type Node struct {
	party     ledger.Party
	vault     *vault.Vault
	initiator *flow.Initiator
	responder *flow.Responder
}

// Option configures a Node.
type Option func(*options)

type options struct {
	logger *slog.Logger
	flow   []flow.Option
}

// WithLogger sets the logger for both protocol roles. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithFlowOptions passes options through to the node's initiator.
func WithFlowOptions(opts ...flow.Option) Option {
	return func(o *options) {
		o.flow = append(o.flow, opts...)
	}
}

// New creates a node for party. The node does not own v, t or o.
func New(party ledger.Party, keys ledger.KeyPair, notary ledger.Party, v *vault.Vault, t flow.Transport, o flow.Orderer, opts ...Option) *Node {
	cfg := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	initOpts := append([]flow.Option{flow.WithLogger(cfg.logger)}, cfg.flow...)

	return &Node{
		party:     party,
		vault:     v,
		initiator: flow.NewInitiator(party, keys, proposal.New(party, notary, v), t, o, v, initOpts...),
		responder: flow.NewResponder(party, keys, notary, v, flow.WithResponderLogger(cfg.logger)),
	}
}

// Party returns the node's identity.
func (n *Node) Party() ledger.Party { return n.party }

// Name returns the node's party name.
func (n *Node) Name() string { return n.party.Name }

// Vault returns the node's record store.
func (n *Node) Vault() *vault.Vault { return n.vault }

// Responder returns the handler to register on the network.
func (n *Node) Responder() *flow.Responder { return n.responder }

// Submit runs any operation.
func (n *Node) Submit(ctx context.Context, params proposal.Params) (*flow.Result, error) {
	return n.initiator.RunWithRetry(ctx, params)
}

// CreatePurchaseOrder records a new order with this node as seller.
func (n *Node) CreatePurchaseOrder(ctx context.Context, p proposal.CreatePurchaseOrder) (*flow.Result, error) {
	return n.Submit(ctx, p)
}

// ApplyForLetterOfCredit replaces the buyer's purchase order with a credit
// application.
func (n *Node) ApplyForLetterOfCredit(ctx context.Context, p proposal.ApplyForLetterOfCredit) (*flow.Result, error) {
	return n.Submit(ctx, p)
}

// ApproveLetterOfCreditApplication issues or rejects an application as the
// issuing bank.
func (n *Node) ApproveLetterOfCreditApplication(ctx context.Context, p proposal.ApproveLetterOfCreditApplication) (*flow.Result, error) {
	return n.Submit(ctx, p)
}

// ShipProducts ships the goods under an issued credit and creates the bill
// of lading.
func (n *Node) ShipProducts(ctx context.Context, p proposal.ShipProducts) (*flow.Result, error) {
	return n.Submit(ctx, p)
}

// PaySeller pays the seller as the advising bank.
func (n *Node) PaySeller(ctx context.Context, p proposal.PaySeller) (*flow.Result, error) {
	return n.Submit(ctx, p)
}

// PayAdvisingBank pays the advising bank as the issuing bank.
func (n *Node) PayAdvisingBank(ctx context.Context, p proposal.PayAdvisingBank) (*flow.Result, error) {
	return n.Submit(ctx, p)
}

// PayIssuingBank pays the issuing bank as the buyer.
func (n *Node) PayIssuingBank(ctx context.Context, p proposal.PayIssuingBank) (*flow.Result, error) {
	return n.Submit(ctx, p)
}

// Live returns live records of kind. An empty id returns all of them.
func (n *Node) Live(ctx context.Context, kind ledger.Kind, id string) ([]ledger.StateAndRef, error) {
	if id == "" {
		return n.vault.Live(ctx, kind)
	}
	return n.vault.LiveByID(ctx, kind, id)
}

// Retired returns retired records of kind with business id.
func (n *Node) Retired(ctx context.Context, kind ledger.Kind, id string) ([]ledger.StateAndRef, error) {
	return n.vault.Retired(ctx, kind, id)
}
