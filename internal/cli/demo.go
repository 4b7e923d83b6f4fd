package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/tradefin/internal/config"
	"github.com/roach88/tradefin/internal/flow"
	"github.com/roach88/tradefin/internal/ledger"
	"github.com/roach88/tradefin/internal/node"
	"github.com/roach88/tradefin/internal/proposal"
)

// DemoOptions holds flags for the demo command.
type DemoOptions struct {
	*RootOptions
	Trade string // suffix of the business ids
	Value int64  // letter of credit value
}

// DemoStep is one committed or refused transition of the demo trade.
type DemoStep struct {
	Op       string `json:"op"`
	As       string `json:"as"`
	TxID     string `json:"tx_id,omitempty"`
	Seq      int64  `json:"seq,omitempty"`
	Attempts int    `json:"attempts,omitempty"`
	Error    string `json:"error,omitempty"`
}

// DemoRecord is one live record in one party's store.
type DemoRecord struct {
	Party  string        `json:"party"`
	Kind   ledger.Kind   `json:"kind"`
	Ref    string        `json:"ref"`
	Record ledger.Record `json:"record"`
}

// DemoResult is the demo output.
type DemoResult struct {
	Steps   []DemoStep   `json:"steps"`
	Records []DemoRecord `json:"records"`
}

// NewDemoCommand creates the demo command.
func NewDemoCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DemoOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run one complete trade, from purchase order to final payment",
		Long: `Run a complete trade on the configured network: the seller creates a
purchase order, the buyer applies for a letter of credit, the issuing bank
issues it, the seller ships, and the three payments pass the bill of lading
to the buyer. Every party's live records are printed at the end.

Stores persist across runs when the configuration sets data_dir; use
--trade to pick fresh business ids.

Exit codes:
  0 - The trade completed
  1 - A transition was refused or failed
  2 - Command error (invalid configuration, unreadable stores)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Trade, "trade", "1", "suffix of the business ids (PO-<trade>, LOC-<trade>, BOL-<trade>)")
	cmd.Flags().Int64Var(&opts.Value, "value", 500, "letter of credit value in USD")

	return cmd
}

// demoStep is one transition of the demo trade, run by the holder of role.
type demoStep struct {
	role   config.Role
	params proposal.Params
}

func runDemo(cmd *cobra.Command, opts *DemoOptions) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	f := newFormatter(opts.RootOptions, cmd)

	var cOpts []node.ClusterOption
	cOpts = append(cOpts, node.WithClusterLogger(f.Logger()))
	if f.Verbose && !f.JSON() {
		cOpts = append(cOpts, node.WithClusterObserver(func(e flow.Event) {
			fmt.Fprintf(f.ErrWriter, "  %s %s %s\n", e.Attempt, e.Op, e.State)
		}))
	}
	cluster, err := node.NewCluster(cfg, cOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start network", err)
	}
	defer cluster.Close()

	steps, err := demoSteps(cluster, opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "demo trade", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var result DemoResult
	var failure error
	for _, s := range steps {
		n, err := cluster.NodeFor(s.role)
		if err != nil {
			return WrapExitError(ExitCommandError, "demo trade", err)
		}
		step := DemoStep{Op: s.params.Op().String(), As: n.Name()}
		res, err := n.Submit(ctx, s.params)
		if err != nil {
			step.Error = err.Error()
			failure = err
		} else {
			step.TxID, step.Seq, step.Attempts = res.TxID, res.Seq, res.Attempts
		}
		result.Steps = append(result.Steps, step)
		if step.Error != "" {
			f.Textf("✗ %s as %s: %s", step.Op, step.As, step.Error)
			break
		}
		f.Textf("✓ %s as %s: seq=%d tx=%s", step.Op, step.As, step.Seq, step.TxID)
	}

	records, err := liveRecords(ctx, cluster)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read stores", err)
	}
	result.Records = records

	if f.JSON() {
		if err := f.Success(result); err != nil {
			return err
		}
	} else {
		printRecords(f, records)
	}

	if failure != nil {
		return WrapExitError(ExitFailure, "trade did not complete", failure)
	}
	return nil
}

func demoSteps(c *node.Cluster, opts *DemoOptions) ([]demoStep, error) {
	cfg := c.Config()
	party := func(role config.Role) (ledger.Party, error) {
		return c.Party(cfg.PartyFor(role))
	}
	buyer, err := party(config.RoleBuyer)
	if err != nil {
		return nil, err
	}
	advising, err := party(config.RoleAdvisingBank)
	if err != nil {
		return nil, err
	}
	issuing, err := party(config.RoleIssuingBank)
	if err != nil {
		return nil, err
	}

	po := "PO-" + opts.Trade
	loc := "LOC-" + opts.Trade
	bol := "BOL-" + opts.Trade
	payment := proposal.Payment{LOCID: loc, BillOfLadingID: bol}

	return []demoStep{
		{config.RoleSeller, proposal.CreatePurchaseOrder{
			PurchaseOrderID: po,
			Buyer:           buyer,
			IssueDate:       "2026-10-01",
			ProductName:     "Jute",
			Quantity:        100,
			PriceUSD:        5,
			GrossWeightKG:   700,
		}},
		{config.RoleBuyer, proposal.ApplyForLetterOfCredit{
			PurchaseOrderID: po,
			LOCID:           loc,
			Type:            "IRREVOCABLE",
			ExpiryDate:      "2027-06-30",
			AdvisingBank:    advising,
			IssuingBank:     issuing,
			Value:           opts.Value,
			LoadingPort:     ledger.Port{Address: "Berth 4", City: "Chittagong", Country: "Bangladesh"},
			DischargePort:   ledger.Port{Address: "Waalhaven 12", City: "Rotterdam", Country: "Netherlands"},
		}},
		{config.RoleIssuingBank, proposal.ApproveLetterOfCreditApplication{
			LOCID:  loc,
			Status: ledger.StatusIssued,
		}},
		{config.RoleSeller, proposal.ShipProducts{
			LOCID:              loc,
			BillOfLadingID:     bol,
			CarrierCompany:     "Maersk",
			CarrierName:        "Emma Maersk",
			LoadingDate:        "2026-11-01",
			DischargeDate:      "2026-12-01",
			ProductDescription: "Raw jute fibre, grade A",
		}},
		{config.RoleAdvisingBank, proposal.PaySeller(payment)},
		{config.RoleIssuingBank, proposal.PayAdvisingBank(payment)},
		{config.RoleBuyer, proposal.PayIssuingBank(payment)},
	}, nil
}

// liveRecords lists every live record of every node, in configuration
// order.
func liveRecords(ctx context.Context, c *node.Cluster) ([]DemoRecord, error) {
	var out []DemoRecord
	for _, n := range c.Nodes() {
		for _, kind := range ledger.Kinds() {
			live, err := n.Live(ctx, kind, "")
			if err != nil {
				return nil, err
			}
			for _, sr := range live {
				out = append(out, DemoRecord{Party: n.Name(), Kind: kind, Ref: sr.Ref.String(), Record: sr.Record})
			}
		}
	}
	return out, nil
}

func printRecords(f *Formatter, records []DemoRecord) {
	f.Textf("")
	party := ""
	for _, r := range records {
		if r.Party != party {
			party = r.Party
			f.Textf("%s:", party)
		}
		f.Textf("  %s", describe(r.Record))
	}
}

// describe summarizes a record on one line.
func describe(r ledger.Record) string {
	switch rec := r.(type) {
	case ledger.PurchaseOrder:
		return fmt.Sprintf("PurchaseOrder %s: %d × %s at %d USD, %s -> %s",
			rec.ID, rec.Quantity, rec.ProductName, rec.PriceUSD, rec.Seller.Name, rec.Buyer.Name)
	case ledger.LetterOfCredit:
		return fmt.Sprintf("LetterOfCredit %s: %s, %d USD, issued by %s",
			rec.ID, rec.Status, rec.Value, rec.IssuingBank.Name)
	case ledger.BillOfLading:
		return fmt.Sprintf("BillOfLading %s: held by %s, carried by %s",
			rec.ID, rec.CurrentOwner.Name, rec.CarrierName)
	default:
		return fmt.Sprintf("%s %s", r.Kind(), r.BusinessID())
	}
}
