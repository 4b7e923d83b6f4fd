package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/tradefin/internal/ledger"
)

// Scenario is a sequence of operations run against a fresh cluster,
// followed by assertions over the parties' stores.
type Scenario struct {
	// Name identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario demonstrates.
	Description string `yaml:"description"`

	// Config is an optional CUE network configuration. Relative paths are
	// resolved against the scenario file's directory.
	Config string `yaml:"config,omitempty"`

	// Steps run in order, each as one node's write entry point.
	Steps []Step `yaml:"steps"`

	// Assertions are checked after the last step.
	Assertions []Assertion `yaml:"assertions"`
}

// Step runs one operation as one party.
type Step struct {
	// Op is the operation name, e.g. "ShipProducts".
	Op ledger.Op `yaml:"op"`

	// As is the initiating party's name.
	As string `yaml:"as"`

	// Args are the operation parameters, decoded strictly per operation.
	Args yaml.Node `yaml:"args"`

	// Unreachable lists parties cut off from the network for this step only.
	Unreachable []string `yaml:"unreachable,omitempty"`

	// Expect describes the expected failure. Nil means the step must commit.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect describes how a step should fail.
type Expect struct {
	// Code is the expected error code, e.g. "VALIDATION_REJECTED".
	Code ledger.ErrorCode `yaml:"code"`

	// Reason must be a substring of the error's reason, if set.
	Reason string `yaml:"reason,omitempty"`

	// Party is the party the error must be attributed to, if set.
	Party string `yaml:"party,omitempty"`
}

// Assertion checks the stores after the last step.
type Assertion struct {
	// Type is one of live, retired, absent.
	Type string `yaml:"type"`

	// Kind is the record kind.
	Kind ledger.Kind `yaml:"kind"`

	// ID is the record's business id.
	ID string `yaml:"id"`

	// In lists the parties whose stores are checked. Empty means all.
	In []string `yaml:"in,omitempty"`

	// Count is the expected number of retired records (retired only).
	// Defaults to 1.
	Count *int `yaml:"count,omitempty"`

	// Expect are field values the live record must carry (live only).
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertLive    = "live"
	AssertRetired = "retired"
	AssertAbsent  = "absent"
)

// LoadScenario reads and validates a scenario file. Unknown fields are
// rejected so typos surface as errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	s, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	if s.Config != "" && !filepath.IsAbs(s.Config) {
		s.Config = filepath.Join(filepath.Dir(path), s.Config)
	}
	return s, nil
}

// ParseScenario decodes and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

// validateScenario checks the structure. Argument contents are checked when
// each step runs, against the cluster's parties.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if !step.Op.Valid() {
			return fmt.Errorf("steps[%d]: op is required", i)
		}
		if step.As == "" {
			return fmt.Errorf("steps[%d]: as is required", i)
		}
		if step.Args.Kind != yaml.MappingNode {
			return fmt.Errorf("steps[%d]: args must be a mapping", i)
		}
		if step.Expect != nil && step.Expect.Code == "" {
			return fmt.Errorf("steps[%d].expect: code is required", i)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if _, err := ledger.ParseKind(string(a.Kind)); err != nil {
		return fmt.Errorf("assertions[%d]: %w", index, err)
	}
	if a.ID == "" {
		return fmt.Errorf("assertions[%d]: id is required", index)
	}

	switch a.Type {
	case AssertLive:
		if a.Count != nil {
			return fmt.Errorf("assertions[%d]: count is only valid for retired", index)
		}
	case AssertRetired:
		if a.Count != nil && *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
		if len(a.Expect) > 0 {
			return fmt.Errorf("assertions[%d]: expect is only valid for live", index)
		}
	case AssertAbsent:
		if a.Count != nil || len(a.Expect) > 0 {
			return fmt.Errorf("assertions[%d]: absent takes no count or expect", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
