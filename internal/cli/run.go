package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tradefin/internal/harness"
)

// ScenarioResult is the outcome of one scenario file.
type ScenarioResult struct {
	Name   string               `json:"name"`
	File   string               `json:"file"`
	Pass   bool                 `json:"pass"`
	Trace  []string             `json:"trace,omitempty"`
	Steps  []harness.StepResult `json:"steps,omitempty"`
	Errors []string             `json:"errors,omitempty"`

	snapshot []byte
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run <scenario.yaml>...",
		Short: "Run scenarios on a fresh in-memory network",
		Long: `Run one or more scenario files, each on its own in-memory network, and
report every step's outcome and every failed expectation.

With --config, every scenario runs on that network instead of its own.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (unreadable scenario, invalid configuration)`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(cmd, rootOpts, args)
		},
	}
}

func runScenarios(cmd *cobra.Command, opts *RootOptions, files []string) error {
	f := newFormatter(opts, cmd)
	hopts, err := harnessOptions(opts, f)
	if err != nil {
		return err
	}

	results := make([]ScenarioResult, 0, len(files))
	failed := 0
	for _, file := range files {
		r, err := runScenarioFile(cmd.Context(), file, hopts)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("scenario %s", file), err)
		}
		if !r.Pass {
			failed++
		}
		results = append(results, r)
		if !f.JSON() {
			printScenario(f, r)
		}
	}

	if f.JSON() {
		if err := f.Success(results); err != nil {
			return err
		}
	}
	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", failed))
	}
	return nil
}

// harnessOptions maps global flags to harness options.
func harnessOptions(opts *RootOptions, f *Formatter) ([]harness.Option, error) {
	hopts := []harness.Option{harness.WithLogger(f.Logger())}
	if opts.Config != "" {
		cfg, err := loadConfig(opts)
		if err != nil {
			return nil, err
		}
		hopts = append(hopts, harness.WithConfig(cfg))
	}
	return hopts, nil
}

// runScenarioFile loads and runs one scenario. The error is non-nil only if
// the scenario could not be run.
func runScenarioFile(ctx context.Context, file string, hopts []harness.Option) (ScenarioResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := harness.LoadScenario(file)
	if err != nil {
		return ScenarioResult{}, err
	}
	result, err := harness.Run(ctx, s, hopts...)
	if err != nil {
		return ScenarioResult{}, err
	}
	return ScenarioResult{
		Name:     s.Name,
		File:     file,
		Pass:     result.Pass,
		Trace:    result.Trace,
		Steps:    result.Steps,
		Errors:   result.Errors,
		snapshot: harness.Snapshot(s.Name, result),
	}, nil
}

func printScenario(f *Formatter, r ScenarioResult) {
	mark := "✓"
	if !r.Pass {
		mark = "✗"
	}
	f.Textf("%s %s", mark, r.Name)
	if f.Verbose {
		fmt.Fprint(f.Writer, indent(string(r.snapshot)))
	}
	for _, e := range r.Errors {
		f.Textf("  %s", e)
	}
}

func indent(s string) string {
	var b strings.Builder
	for _, line := range strings.SplitAfter(s, "\n") {
		if line != "" {
			b.WriteString("  ")
			b.WriteString(line)
		}
	}
	return b.String()
}
