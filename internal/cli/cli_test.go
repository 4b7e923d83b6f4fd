package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tradefin/internal/config"
)

const scenarios = "../harness/testdata/scenarios"

// execute runs the root command and returns stdout, stderr and the error.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "tradefin", cmd.Use)

	for _, name := range []string{"run", "test", "demo", "config"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)
	assert.Equal(t, "text", cmd.PersistentFlags().Lookup("format").DefValue)
	assert.Equal(t, "c", cmd.PersistentFlags().Lookup("config").Shorthand)
}

func TestRootCommand_InvalidFormat(t *testing.T) {
	_, _, err := execute(t, "config", "--format", "xml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), `invalid format "xml"`)
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(assert.AnError))
	assert.Equal(t, ExitCommandError, GetExitCode(WrapExitError(ExitCommandError, "bad", assert.AnError)))

	err := WrapExitError(ExitFailure, "scenario", assert.AnError)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, "scenario: "+assert.AnError.Error(), err.Error())
}

func TestFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := &Formatter{Format: "json", Writer: &buf}
	require.NoError(t, f.Error("E_CONFIG", "bad config", map[string]string{"field": "notary"}))

	var resp Response
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_CONFIG", resp.Error.Code)

	buf.Reset()
	f = &Formatter{Format: "text", Writer: &buf}
	f.Textf("hello %s", "world")
	require.NoError(t, f.Error("E_CONFIG", "bad config", nil))
	assert.Equal(t, "hello world\nError [E_CONFIG]: bad config\n", buf.String())
}

func TestRun_Pass(t *testing.T) {
	out, _, err := execute(t, "run", filepath.Join(scenarios, "full_chain.yaml"), filepath.Join(scenarios, "unreachable_bank.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "✓ full_chain")
	assert.Contains(t, out, "✓ unreachable_bank")
}

func TestRun_Verbose(t *testing.T) {
	out, _, err := execute(t, "run", "-v", filepath.Join(scenarios, "rejected_application.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "  4 ShipProducts REJECTED\n")
	assert.Contains(t, out, "  step 3 ApproveLetterOfCreditApplication as IssuingBank: COMMITTED seq=3\n")
}

func TestRun_JSON(t *testing.T) {
	out, _, err := execute(t, "run", "--format", "json", filepath.Join(scenarios, "insufficient_value.yaml"))
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   []ScenarioResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 1)
	assert.True(t, resp.Data[0].Pass)
	require.Len(t, resp.Data[0].Steps, 3)
	assert.Equal(t, "VALIDATION_REJECTED", resp.Data[0].Steps[1].Code)
}

func TestRun_Failure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fails.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: fails
description: "Paying against a credit that does not exist"
steps:
  - op: PaySeller
    as: AdvisingBank
    args: {loc_id: LOC-1, bill_of_lading_id: BOL-1}
`), 0o644))

	out, _, err := execute(t, "run", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ fails")
	assert.Contains(t, out, "expected commit")
}

func TestRun_MissingFile(t *testing.T) {
	_, _, err := execute(t, "run", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTest_Testdata(t *testing.T) {
	out, _, err := execute(t, "test", scenarios, "--golden-dir", "../harness/testdata/golden")
	require.NoError(t, err)
	assert.Contains(t, out, "Test Summary: 4 passed, 0 failed, 4 total")
}

func TestTest_Filter(t *testing.T) {
	out, _, err := execute(t, "test", scenarios, "--golden-dir", "../harness/testdata/golden", "--filter", "full_*")
	require.NoError(t, err)
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
}

func TestTest_UpdateAndMismatch(t *testing.T) {
	dir := t.TempDir()
	src, err := os.ReadFile(filepath.Join(scenarios, "rejected_application.yaml"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rejected_application.yaml"), src, 0o644))

	_, _, err = execute(t, "test", dir, "--update")
	require.NoError(t, err)
	golden := filepath.Join(dir, "golden", "rejected_application.golden")
	want, err := os.ReadFile("../harness/testdata/golden/rejected_application.golden")
	require.NoError(t, err)
	got, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))

	require.NoError(t, os.WriteFile(golden, []byte("scenario: rejected_application\n"), 0o644))
	out, _, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "trace does not match")
	assert.Contains(t, out, "Test Summary: 0 passed, 1 failed, 1 total")
}

func TestTest_MissingDir(t *testing.T) {
	_, _, err := execute(t, "test", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestDemo(t *testing.T) {
	out, _, err := execute(t, "demo")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ PayIssuingBank as Buyer: seq=7")
	assert.Contains(t, out, "BillOfLading BOL-1: held by Buyer, carried by Emma Maersk")
	assert.Contains(t, out, "LetterOfCredit LOC-1: ISSUING_BANK_PAID, 500 USD, issued by IssuingBank")
	assert.NotContains(t, out, "PurchaseOrder PO-1")
}

func TestDemo_Refused(t *testing.T) {
	out, _, err := execute(t, "demo", "--value", "400")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ ApplyForLetterOfCredit as Buyer")
	assert.Contains(t, out, "PurchaseOrder PO-1")
}

func TestDemo_Persistent(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "network.cue")
	src := `network: data_dir: "` + filepath.ToSlash(filepath.Join(dir, "data")) + `"` + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(src), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "data"), 0o755))

	_, _, err := execute(t, "demo", "--config", cfgPath)
	require.NoError(t, err)

	// The same ids are taken now.
	out, _, err := execute(t, "demo", "--config", cfgPath)
	require.Error(t, err)
	assert.Contains(t, out, "DUPLICATE_ID")

	_, _, err = execute(t, "demo", "--config", cfgPath, "--trade", "2")
	require.NoError(t, err)
}

func TestConfig_Text(t *testing.T) {
	out, _, err := execute(t, "config")
	require.NoError(t, err)

	cfg, err := config.Parse([]byte(out), "printed.cue")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestConfig_JSON(t *testing.T) {
	out, _, err := execute(t, "config", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Data ConfigSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "Notary", resp.Data.Notary)
	assert.Len(t, resp.Data.Parties, 4)
	assert.Equal(t, "5s", resp.Data.EndorsementTimeout)
}

func TestConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.cue")
	require.NoError(t, os.WriteFile(path, []byte(`network: conflict_retries: -1`+"\n"), 0o644))

	_, _, err := execute(t, "config", "--config", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
