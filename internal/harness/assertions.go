package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/tradefin/internal/ledger"
	"github.com/roach88/tradefin/internal/node"
)

// AssertionError is returned when an assertion fails in one party's store.
type AssertionError struct {
	Type     string
	Party    string
	Record   string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertion %s %s in %s: expected %s, actual %s",
		e.Type, e.Record, e.Party, e.Expected, e.Actual)
}

// evaluate checks every assertion and returns one message per failure.
func (h *Harness) evaluate(ctx context.Context, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		nodes, err := h.nodesFor(a.In)
		if err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
			continue
		}
		for _, n := range nodes {
			if err := check(ctx, n, a); err != nil {
				failures = append(failures, err.Error())
			}
		}
	}
	return failures
}

func (h *Harness) nodesFor(names []string) ([]*node.Node, error) {
	if len(names) == 0 {
		return h.cluster.Nodes(), nil
	}
	out := make([]*node.Node, 0, len(names))
	for _, name := range names {
		n, err := h.cluster.Node(name)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// check evaluates one assertion against one node's store.
func check(ctx context.Context, n *node.Node, a Assertion) error {
	fail := func(expected, actual string) error {
		return &AssertionError{
			Type:     a.Type,
			Party:    n.Name(),
			Record:   fmt.Sprintf("%s %s", a.Kind, a.ID),
			Expected: expected,
			Actual:   actual,
		}
	}

	switch a.Type {
	case AssertLive:
		live, err := n.Live(ctx, a.Kind, a.ID)
		if err != nil {
			return err
		}
		if len(live) != 1 {
			return fail("1 live record", fmt.Sprintf("%d", len(live)))
		}
		if len(a.Expect) == 0 {
			return nil
		}
		fields, err := recordFields(live[0].Record)
		if err != nil {
			return err
		}
		if mismatches := matchFields("", fields, a.Expect); len(mismatches) > 0 {
			return fail("fields to match", strings.Join(mismatches, "; "))
		}
		return nil

	case AssertRetired:
		want := 1
		if a.Count != nil {
			want = *a.Count
		}
		retired, err := n.Retired(ctx, a.Kind, a.ID)
		if err != nil {
			return err
		}
		if len(retired) != want {
			return fail(fmt.Sprintf("%d retired records", want), fmt.Sprintf("%d", len(retired)))
		}
		return nil

	case AssertAbsent:
		live, err := n.Live(ctx, a.Kind, a.ID)
		if err != nil {
			return err
		}
		if len(live) != 0 {
			return fail("no live record", fmt.Sprintf("%d", len(live)))
		}
		return nil

	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// recordFields decodes a record's JSON form, keeping numbers exact.
func recordFields(r ledger.Record) (map[string]any, error) {
	data, err := ledger.MarshalRecord(r)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("decode %s: %w", r.Kind(), err)
	}
	return fields, nil
}

// matchFields reports every field of expect that actual does not carry.
// Nested objects match recursively; a party matches a bare name.
func matchFields(prefix string, actual, expect map[string]any) []string {
	keys := make([]string, 0, len(expect))
	for k := range expect {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var mismatches []string
	for _, k := range keys {
		path := prefix + k
		want := expect[k]
		got, ok := actual[k]
		if !ok {
			mismatches = append(mismatches, fmt.Sprintf("%s missing", path))
			continue
		}

		obj, isObj := got.(map[string]any)
		switch w := want.(type) {
		case map[string]any:
			if !isObj {
				mismatches = append(mismatches, fmt.Sprintf("%s: want object, got %v", path, got))
				continue
			}
			mismatches = append(mismatches, matchFields(path+".", obj, w)...)
		default:
			if isObj {
				if name, ok := obj["name"]; ok {
					got = name
				}
			}
			if fmt.Sprint(got) != fmt.Sprint(want) {
				mismatches = append(mismatches, fmt.Sprintf("%s: want %v, got %v", path, want, got))
			}
		}
	}
	return mismatches
}

// partyOf returns the party an error is attributed to, if any.
func partyOf(err error) string {
	var lerr *ledger.Error
	if errors.As(err, &lerr) {
		return lerr.Party
	}
	return ""
}
