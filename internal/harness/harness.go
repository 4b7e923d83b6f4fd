package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/roach88/tradefin/internal/config"
	"github.com/roach88/tradefin/internal/flow"
	"github.com/roach88/tradefin/internal/ledger"
	"github.com/roach88/tradefin/internal/node"
	"github.com/roach88/tradefin/internal/testutil"
)

// Option configures a scenario run.
type Option func(*options)

type options struct {
	logger *slog.Logger
	config *config.Config
}

// WithLogger sets the logger handed to the cluster. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithConfig runs the scenario on cfg instead of its own configuration.
func WithConfig(cfg config.Config) Option {
	return func(o *options) {
		o.config = &cfg
	}
}

// Harness runs one scenario against one cluster.
type Harness struct {
	cluster *node.Cluster
	tracer  *tracer
}

// Run executes a scenario on a fresh in-memory cluster and returns the
// result. The error is non-nil only if the scenario could not be run at
// all; failed expectations are reported in the result.
func Run(ctx context.Context, s *Scenario, opts ...Option) (*Result, error) {
	o := options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}

	cfg, err := scenarioConfig(s, o.config)
	if err != nil {
		return nil, err
	}
	// Scenarios never touch disk.
	cfg.DataDir = ""

	tr := &tracer{}
	cluster, err := node.NewCluster(cfg,
		node.WithClusterLogger(o.logger),
		node.WithClusterIDs(testutil.NewSequentialIDs("attempt")),
		node.WithClusterObserver(tr.observe),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start cluster: %w", err)
	}
	defer cluster.Close()

	h := &Harness{cluster: cluster, tracer: tr}
	result := NewResult()
	for i, step := range s.Steps {
		h.runStep(ctx, i+1, step, result)
	}
	result.Trace = tr.lines()

	for _, msg := range h.evaluate(ctx, s.Assertions) {
		result.AddError("%s", msg)
	}
	return result, nil
}

func scenarioConfig(s *Scenario, override *config.Config) (config.Config, error) {
	if override != nil {
		return *override, nil
	}
	if s.Config == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(s.Config)
	if err != nil {
		return config.Config{}, fmt.Errorf("scenario %s: %w", s.Name, err)
	}
	return cfg, nil
}

// runStep runs one step and checks it against its expectation.
func (h *Harness) runStep(ctx context.Context, n int, step Step, result *Result) {
	label := fmt.Sprintf("step %d (%s as %s)", n, step.Op, step.As)
	sr := StepResult{Op: step.Op.String(), As: step.As}
	defer func() { result.Steps = append(result.Steps, sr) }()

	nd, err := h.cluster.Node(step.As)
	if err != nil {
		sr.Code = string(ledger.ErrCodeFatal)
		result.AddError("%s: %v", label, err)
		return
	}
	params, err := decodeParams(step.Op, &step.Args, h.cluster.Party)
	if err != nil {
		sr.Code = string(ledger.ErrCodeFatal)
		result.AddError("%s: %v", label, err)
		return
	}

	net := h.cluster.Network()
	for _, name := range step.Unreachable {
		net.SetUnreachable(name, true)
	}
	defer func() {
		for _, name := range step.Unreachable {
			net.SetUnreachable(name, false)
		}
	}()

	h.tracer.begin(n)
	res, err := nd.Submit(ctx, params)
	if err == nil {
		sr.TxID = res.TxID
		sr.Seq = res.Seq
		for party, cerr := range res.CommitErrors {
			result.AddError("%s: commit not delivered to %s: %v", label, party, cerr)
		}
	} else {
		sr.Code = string(ledger.CodeOf(err))
		sr.Reason = ledger.ReasonOf(err)
		sr.Party = partyOf(err)
	}

	checkExpect(label, step.Expect, err, sr, result)
}

func checkExpect(label string, want *Expect, err error, got StepResult, result *Result) {
	switch {
	case want == nil && err != nil:
		result.AddError("%s: expected commit, got %v", label, err)
	case want == nil:
	case err == nil:
		result.AddError("%s: expected %s, got commit", label, want.Code)
	default:
		if string(want.Code) != got.Code {
			result.AddError("%s: expected %s, got %v", label, want.Code, err)
		}
		if want.Reason != "" && !strings.Contains(got.Reason, want.Reason) {
			result.AddError("%s: expected reason containing %q, got %q", label, want.Reason, got.Reason)
		}
		if want.Party != "" && want.Party != got.Party {
			result.AddError("%s: expected error from %s, got %q", label, want.Party, got.Party)
		}
	}
}

// tracer collects attempt events as trace lines, tagged with the running
// step.
type tracer struct {
	mu    sync.Mutex
	step  int
	trace []string
}

func (t *tracer) begin(step int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.step = step
}

func (t *tracer) observe(e flow.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.trace = append(t.trace, fmt.Sprintf("%d %s %s", t.step, e.Op, e.State))
}

func (t *tracer) lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.trace...)
}
