package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Regenerate with: go test ./internal/harness -run TestGolden -update
func TestGolden(t *testing.T) {
	for _, name := range []string{"full_chain", "insufficient_value", "rejected_application", "unreachable_bank"} {
		t.Run(name, func(t *testing.T) {
			result, err := RunWithGolden(t, load(t, name))
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestSnapshot(t *testing.T) {
	result := NewResult()
	result.Trace = []string{"1 PaySeller BUILDING", "1 PaySeller REJECTED"}
	result.Steps = []StepResult{
		{Op: "PaySeller", As: "AdvisingBank", Code: "VALIDATION_REJECTED", Reason: `status "ISSUED"`},
		{Op: "PaySeller", As: "AdvisingBank", Code: "SESSION_FAILED", Party: "Seller", Reason: "session failed"},
		{Op: "PaySeller", As: "AdvisingBank", Seq: 9},
	}

	want := `scenario: demo
1 PaySeller BUILDING
1 PaySeller REJECTED
step 1 PaySeller as AdvisingBank: VALIDATION_REJECTED reason="status \"ISSUED\""
step 2 PaySeller as AdvisingBank: SESSION_FAILED party=Seller reason="session failed"
step 3 PaySeller as AdvisingBank: COMMITTED seq=9
`
	assert.Equal(t, want, string(Snapshot("demo", result)))
}
