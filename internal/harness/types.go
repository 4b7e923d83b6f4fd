package harness

import "fmt"

// StepResult is the outcome of one step.
type StepResult struct {
	Op     string `json:"op"`
	As     string `json:"as"`
	TxID   string `json:"tx_id,omitempty"`
	Seq    int64  `json:"seq,omitempty"`
	Code   string `json:"code,omitempty"`
	Reason string `json:"reason,omitempty"`
	Party  string `json:"party,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true if every step behaved as expected and every assertion
	// held.
	Pass bool `json:"pass"`

	// Trace holds one "<step> <op> <STATE>" line per attempt state change.
	Trace []string `json:"trace"`

	// Steps holds one entry per step, in order.
	Steps []StepResult `json:"steps"`

	// Errors describes every failed expectation. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []string{},
		Steps:  []StepResult{},
		Errors: []string{},
	}
}

// AddError records a failure and marks the result failed.
func (r *Result) AddError(format string, args ...any) {
	r.Pass = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}
