package harness

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tradefin/internal/config"
	"github.com/roach88/tradefin/internal/ledger"
)

func load(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return s
}

func TestRun_Testdata(t *testing.T) {
	for _, name := range []string{"full_chain", "insufficient_value", "rejected_application", "unreachable_bank"} {
		t.Run(name, func(t *testing.T) {
			result, err := Run(context.Background(), load(t, name))
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Empty(t, result.Errors)
		})
	}
}

func TestRun_StepResults(t *testing.T) {
	result, err := Run(context.Background(), load(t, "insufficient_value"))
	require.NoError(t, err)
	require.Len(t, result.Steps, 3)

	assert.Equal(t, int64(1), result.Steps[0].Seq)
	assert.NotEmpty(t, result.Steps[0].TxID)
	assert.Empty(t, result.Steps[0].Code)

	assert.Equal(t, string(ledger.ErrCodeValidationRejected), result.Steps[1].Code)
	assert.Contains(t, result.Steps[1].Reason, "value insufficient")
	assert.Zero(t, result.Steps[1].Seq)

	assert.Equal(t, int64(2), result.Steps[2].Seq)
}

func TestRun_UnexpectedOutcomes(t *testing.T) {
	s := load(t, "rejected_application")

	// Expect the shipment to commit instead.
	s.Steps[3].Expect = nil
	// And the approval to fail.
	s.Steps[2].Expect = &Expect{Code: ledger.ErrCodeValidationRejected}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "step 3 (ApproveLetterOfCreditApplication as IssuingBank): expected VALIDATION_REJECTED, got commit")
	assert.Contains(t, result.Errors[1], "step 4 (ShipProducts as Seller): expected commit")
}

func TestRun_WrongReasonAndParty(t *testing.T) {
	s := load(t, "unreachable_bank")
	s.Steps[1].Expect.Party = "IssuingBank"
	s.Steps[1].Expect.Reason = "timed out"

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], `expected reason containing "timed out"`)
	assert.Contains(t, result.Errors[1], `expected error from IssuingBank, got "AdvisingBank"`)
}

func TestRun_WrongCode(t *testing.T) {
	s := load(t, "insufficient_value")
	s.Steps[1].Expect.Code = ledger.ErrCodeNotFound

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected NOT_FOUND")
}

func TestRun_UnknownParty(t *testing.T) {
	s := load(t, "full_chain")
	s.Steps = s.Steps[:1]
	s.Steps[0].As = "Mallory"
	s.Assertions = nil

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Steps, 1)
	assert.Equal(t, string(ledger.ErrCodeFatal), result.Steps[0].Code)
	assert.Contains(t, result.Errors[0], "Mallory")
}

func TestRun_BadArgs(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: bad_args
description: "An unknown argument field"
steps:
  - op: PaySeller
    as: AdvisingBank
    args: {loc_id: LOC-1, bill_of_lading_id: BOL-1, amount: 5}
`))
	require.NoError(t, err)

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "field amount not found")
	assert.Empty(t, result.Trace, "nothing is attempted")
}

func TestRun_FailedAssertions(t *testing.T) {
	three := 3
	s := load(t, "rejected_application")
	s.Assertions = []Assertion{
		{Type: AssertLive, Kind: ledger.KindLetterOfCredit, ID: "LOC-1", In: []string{"Buyer"},
			Expect: map[string]any{"loc_status": "ISSUED"}},
		{Type: AssertAbsent, Kind: ledger.KindLetterOfCredit, ID: "LOC-1", In: []string{"Seller"}},
		{Type: AssertRetired, Kind: ledger.KindLetterOfCredit, ID: "LOC-1", In: []string{"Buyer"}, Count: &three},
		{Type: AssertLive, Kind: ledger.KindBillOfLading, ID: "BOL-1", In: []string{"Nobody"}},
	}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 4)
	assert.Contains(t, result.Errors[0], "loc_status: want ISSUED, got REJECTED")
	assert.Contains(t, result.Errors[1], "assertion absent LetterOfCredit LOC-1 in Seller")
	assert.Contains(t, result.Errors[2], "expected 3 retired records, actual 1")
	assert.Contains(t, result.Errors[3], "assertions[3]")
}

func TestRun_CustomConfig(t *testing.T) {
	dir := t.TempDir()
	cue := `
network: {
	notary: "Registry"
	parties: [
		{name: "Exporter", role: "seller"},
		{name: "Importer", role: "buyer"},
		{name: "Correspondent", role: "advising_bank"},
		{name: "Lender", role: "issuing_bank"},
	]
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "network.cue"), []byte(cue), 0o644))
	scenario := `
name: renamed
description: "Parties named by configuration"
config: network.cue
steps:
  - op: CreatePurchaseOrder
    as: Exporter
    args:
      purchase_order_id: PO-7
      buyer: Importer
      issue_date: "2026-10-01"
      product_name: Cotton
      product_quantity: 10
      product_price_usd: 3
      product_gross_weight_kg: 40
  - op: CreatePurchaseOrder
    as: Exporter
    args:
      purchase_order_id: PO-8
      buyer: Buyer
      issue_date: "2026-10-01"
      product_name: Cotton
      product_quantity: 10
      product_price_usd: 3
      product_gross_weight_kg: 40
assertions:
  - type: live
    kind: PurchaseOrder
    id: PO-7
    in: [Exporter, Importer]
    expect: {seller: Exporter, buyer: Importer, product_quantity: 10}
`
	path := filepath.Join(dir, "renamed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(scenario), 0o644))

	s, err := LoadScenario(path)
	require.NoError(t, err)

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass, "an unknown buyer cannot be decoded")
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], `step 2 (CreatePurchaseOrder as Exporter): buyer: unknown party "Buyer"`)
	assert.Equal(t, int64(1), result.Steps[0].Seq)
}

func TestRun_MissingConfig(t *testing.T) {
	s := load(t, "full_chain")
	s.Config = filepath.Join(t.TempDir(), "missing.cue")

	_, err := Run(context.Background(), s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenario full_chain")
}

func TestRun_WithConfig(t *testing.T) {
	cfg := config.Default()
	cfg.ConflictRetries = 0

	result, err := Run(context.Background(), load(t, "full_chain"), WithConfig(cfg))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_Trace(t *testing.T) {
	result, err := Run(context.Background(), load(t, "rejected_application"))
	require.NoError(t, err)

	assert.Equal(t, "1 CreatePurchaseOrder BUILDING", result.Trace[0])
	assert.Equal(t, "4 ShipProducts REJECTED", result.Trace[len(result.Trace)-1])
	assert.Len(t, result.Trace, 3*6+2)
}
