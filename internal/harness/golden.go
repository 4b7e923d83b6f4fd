package harness

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot renders a result for golden comparison: the attempt trace
// followed by one outcome line per step.
func Snapshot(name string, result *Result) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario: %s\n", name)
	for _, line := range result.Trace {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	for i, s := range result.Steps {
		if s.Code == "" {
			fmt.Fprintf(&b, "step %d %s as %s: COMMITTED seq=%d\n", i+1, s.Op, s.As, s.Seq)
			continue
		}
		fmt.Fprintf(&b, "step %d %s as %s: %s", i+1, s.Op, s.As, s.Code)
		if s.Party != "" {
			fmt.Fprintf(&b, " party=%s", s.Party)
		}
		fmt.Fprintf(&b, " reason=%q\n", s.Reason)
	}
	return []byte(b.String())
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, Snapshot(name, result))
}
