package contract

import (
	"github.com/roach88/tradefin/internal/ledger"
)

// requirements records the first failed condition.
type requirements struct {
	err error
}

// using fails with reason unless cond holds. Later calls are no-ops once
// a requirement has failed.
func (r *requirements) using(reason string, cond bool) {
	if r.err == nil && !cond {
		r.err = ledger.Rejected("%s", reason)
	}
}

// usingf is using with a formatted reason.
func (r *requirements) usingf(cond bool, format string, args ...any) {
	if r.err == nil && !cond {
		r.err = ledger.Rejected(format, args...)
	}
}

func (r *requirements) failed() bool { return r.err != nil }

// role is a named party slot used in signer requirements.
type role struct {
	name  string
	party ledger.Party
}

// signers requires every role to be among endorsers.
func (r *requirements) signers(op ledger.Op, endorsers []ledger.Party, roles ...role) {
	for _, ro := range roles {
		r.usingf(ledger.ContainsParty(endorsers, ro.party), "%s must be a signer in %s.", ro.name, op)
	}
}

// shape is the exact record-kind cardinality of one side of a transition.
type shape map[ledger.Kind]int

// cardinality checks records against want. Kinds absent from want must not
// appear at all.
func (r *requirements) cardinality(side string, op ledger.Op, records []ledger.Record, want shape) {
	got := make(map[ledger.Kind]int)
	for _, rec := range records {
		got[rec.Kind()]++
	}
	if len(want) == 0 {
		r.usingf(len(records) == 0, "There should be no %s in %s.", side, op)
		return
	}
	for _, k := range ledger.Kinds() {
		n, expected := want[k]
		switch {
		case expected:
			r.usingf(got[k] == n, "%s should have exactly %d %s in %s.", capitalize(side), n, k, op)
		default:
			r.usingf(got[k] == 0, "%s should not contain %s in %s.", capitalize(side), k, op)
		}
	}
}

// checkedMul multiplies two non-negative values, reporting overflow.
func checkedMul(a, b int64) (int64, bool) {
	if a < 0 || b < 0 {
		return 0, false
	}
	if a != 0 && b > (1<<63-1)/a {
		return 0, false
	}
	return a * b, true
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	if s[0] >= 'a' && s[0] <= 'z' {
		return string(s[0]-'a'+'A') + s[1:]
	}
	return s
}
