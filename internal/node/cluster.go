package node

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roach88/tradefin/internal/config"
	"github.com/roach88/tradefin/internal/flow"
	"github.com/roach88/tradefin/internal/ledger"
	"github.com/roach88/tradefin/internal/network"
	"github.com/roach88/tradefin/internal/notary"
	"github.com/roach88/tradefin/internal/sqlitedb"
	"github.com/roach88/tradefin/internal/vault"
)

// Cluster is a whole trade network in one process: an ordering authority
// and one node per configured party, connected by an in-process network.
//
// Party keys are derived from party names, so a cluster reopened over the
// same data directory recognises its own records.
type Cluster struct {
	cfg    config.Config
	net    *network.Network
	notary *notary.Notary
	nodes  map[string]*Node
	logger *slog.Logger
}

// ClusterOption configures a Cluster.
type ClusterOption func(*clusterOptions)

type clusterOptions struct {
	logger   *slog.Logger
	ids      flow.IDGenerator
	observer flow.Observer
}

// WithClusterLogger sets the logger shared by every component.
func WithClusterLogger(l *slog.Logger) ClusterOption {
	return func(o *clusterOptions) {
		o.logger = l
	}
}

// WithClusterIDs sets the attempt id generator shared by every node.
func WithClusterIDs(g flow.IDGenerator) ClusterOption {
	return func(o *clusterOptions) {
		o.ids = g
	}
}

// WithClusterObserver receives the attempt events of every node.
func WithClusterObserver(obs flow.Observer) ClusterOption {
	return func(o *clusterOptions) {
		o.observer = obs
	}
}

// NewCluster opens the notary and every party's vault and registers each
// node's responder on a fresh network.
func NewCluster(cfg config.Config, opts ...ClusterOption) (_ *Cluster, err error) {
	o := clusterOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	if cfg.DataDir != "" {
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	c := &Cluster{
		cfg:    cfg,
		net:    network.New(network.WithLogger(o.logger)),
		nodes:  make(map[string]*Node, len(cfg.Parties)),
		logger: o.logger,
	}
	defer func() {
		if err != nil {
			c.Close()
		}
	}()

	notaryKeys := ledger.KeyPairFromName(cfg.Notary)
	c.notary, err = notary.Open(c.path(cfg.Notary), cfg.Notary, notaryKeys, notary.WithLogger(o.logger))
	if err != nil {
		return nil, err
	}

	flowOpts := []flow.Option{
		flow.WithTimeouts(cfg.EndorsementTimeout, cfg.CommitTimeout),
		flow.WithConflictRetry(cfg.ConflictRetries, cfg.RetryInterval),
	}
	if o.ids != nil {
		flowOpts = append(flowOpts, flow.WithIDs(o.ids))
	}
	if o.observer != nil {
		flowOpts = append(flowOpts, flow.WithObserver(o.observer))
	}

	for _, p := range cfg.Parties {
		keys := ledger.KeyPairFromName(p.Name)
		party := keys.Party(p.Name)

		v, err := vault.Open(c.path(p.Name))
		if err != nil {
			return nil, fmt.Errorf("party %s: %w", p.Name, err)
		}
		n := New(party, keys, c.notary.Party(), v, c.net, c.notary,
			WithLogger(o.logger), WithFlowOptions(flowOpts...))
		c.nodes[p.Name] = n

		if _, err := c.net.Register(party, n.Responder()); err != nil {
			return nil, fmt.Errorf("party %s: %w", p.Name, err)
		}
	}

	c.logger.Debug("cluster started", "notary", cfg.Notary, "parties", cfg.Names(), "data_dir", cfg.DataDir)
	return c, nil
}

func (c *Cluster) path(name string) string {
	if c.cfg.DataDir == "" {
		return sqlitedb.Memory
	}
	return filepath.Join(c.cfg.DataDir, name+".db")
}

// Config returns the configuration the cluster was built from.
func (c *Cluster) Config() config.Config { return c.cfg }

// Network returns the in-process network, for fault injection.
func (c *Cluster) Network() *network.Network { return c.net }

// Notary returns the ordering authority.
func (c *Cluster) Notary() *notary.Notary { return c.notary }

// Node returns the node for a party name.
func (c *Cluster) Node(name string) (*Node, error) {
	n, ok := c.nodes[name]
	if !ok {
		return nil, fmt.Errorf("unknown party %q", name)
	}
	return n, nil
}

// NodeFor returns the node holding role.
func (c *Cluster) NodeFor(role config.Role) (*Node, error) {
	return c.Node(c.cfg.PartyFor(role))
}

// Nodes returns every node in configuration order.
func (c *Cluster) Nodes() []*Node {
	out := make([]*Node, 0, len(c.cfg.Parties))
	for _, p := range c.cfg.Parties {
		if n, ok := c.nodes[p.Name]; ok {
			out = append(out, n)
		}
	}
	return out
}

// Party returns the identity of a party name, including the notary.
func (c *Cluster) Party(name string) (ledger.Party, error) {
	if c.notary != nil && name == c.notary.Party().Name {
		return c.notary.Party(), nil
	}
	n, err := c.Node(name)
	if err != nil {
		return ledger.Party{}, err
	}
	return n.Party(), nil
}

// Close stops the network and closes every store.
func (c *Cluster) Close() error {
	c.net.Close()

	var errs []error
	for _, n := range c.nodes {
		if err := n.Vault().Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", n.Name(), err))
		}
	}
	if c.notary != nil {
		if err := c.notary.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close notary: %w", err))
		}
	}
	return errors.Join(errs...)
}
