// Package config loads the network configuration: which parties take part
// in a trade, who the ordering authority is, and how the commitment protocol
// is tuned. Configuration is written in CUE and checked against an embedded
// schema, so every field has a default and unknown fields are errors.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/format"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
)

//go:embed schema.cue
var schemaSrc []byte

// Role is a party's part in the trade.
type Role string

const (
	RoleSeller       Role = "seller"
	RoleBuyer        Role = "buyer"
	RoleAdvisingBank Role = "advising_bank"
	RoleIssuingBank  Role = "issuing_bank"
)

// Roles returns every role in trade order.
func Roles() []Role {
	return []Role{RoleSeller, RoleBuyer, RoleAdvisingBank, RoleIssuingBank}
}

// defaultParties is the four-party network used when none is configured.
func defaultParties() []Party {
	return []Party{
		{Name: "Seller", Role: RoleSeller},
		{Name: "Buyer", Role: RoleBuyer},
		{Name: "AdvisingBank", Role: RoleAdvisingBank},
		{Name: "IssuingBank", Role: RoleIssuingBank},
	}
}

// Party names one participant and its role.
type Party struct {
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// Config is the effective network configuration.
type Config struct {
	Notary             string
	Parties            []Party
	EndorsementTimeout time.Duration
	CommitTimeout      time.Duration
	ConflictRetries    int
	RetryInterval      time.Duration
	// DataDir holds one SQLite file per party. Empty keeps every store in
	// memory.
	DataDir string
}

// raw mirrors the CUE schema before durations are parsed.
type raw struct {
	Notary             string  `json:"notary"`
	Parties            []Party `json:"parties"`
	EndorsementTimeout string  `json:"endorsement_timeout"`
	CommitTimeout      string  `json:"commit_timeout"`
	ConflictRetries    int     `json:"conflict_retries"`
	RetryInterval      string  `json:"retry_interval"`
	DataDir            string  `json:"data_dir"`
}

// Error is a configuration error, positioned when CUE reports a position.
type Error struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Default returns the four-party network with default tuning.
func Default() Config {
	c, err := Parse([]byte("network: {}"), "default.cue")
	if err != nil {
		panic(fmt.Sprintf("config: embedded schema is invalid: %v", err))
	}
	return c
}

// Load reads a CUE configuration file.
func Load(path string) (Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if info.IsDir() {
		return Config{}, fmt.Errorf("load config: %s is a directory", path)
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{filepath.Base(path)}, &load.Config{Dir: filepath.Dir(path)})
	if len(instances) == 0 {
		return Config{}, &Error{Field: "load", Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return Config{}, cueError(inst.Err)
	}
	return decode(ctx, ctx.BuildInstance(inst))
}

// Parse reads CUE source. filename is used in error positions.
func Parse(src []byte, filename string) (Config, error) {
	ctx := cuecontext.New()
	return decode(ctx, ctx.CompileBytes(src, cue.Filename(filename)))
}

func decode(ctx *cue.Context, v cue.Value) (Config, error) {
	if err := v.Err(); err != nil {
		return Config{}, cueError(err)
	}
	schema := ctx.CompileBytes(schemaSrc, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, cueError(err)
	}

	network := schema.Unify(v).LookupPath(cue.ParsePath("network"))
	if err := network.Validate(cue.Concrete(true)); err != nil {
		return Config{}, cueError(err)
	}
	var r raw
	if err := network.Decode(&r); err != nil {
		return Config{}, cueError(err)
	}

	c := Config{
		Notary:          r.Notary,
		Parties:         r.Parties,
		ConflictRetries: r.ConflictRetries,
		DataDir:         r.DataDir,
	}
	if len(c.Parties) == 0 {
		c.Parties = defaultParties()
	}
	durations := []struct {
		field string
		src   string
		dst   *time.Duration
	}{
		{"endorsement_timeout", r.EndorsementTimeout, &c.EndorsementTimeout},
		{"commit_timeout", r.CommitTimeout, &c.CommitTimeout},
		{"retry_interval", r.RetryInterval, &c.RetryInterval},
	}
	for _, d := range durations {
		parsed, err := time.ParseDuration(d.src)
		if err != nil || parsed <= 0 {
			return Config{}, &Error{
				Field:   d.field,
				Message: fmt.Sprintf("must be a positive duration, got %q", d.src),
				Pos:     network.LookupPath(cue.ParsePath(d.field)).Pos(),
			}
		}
		*d.dst = parsed
	}

	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// validate checks the cross-field rules the schema cannot express.
func (c Config) validate() error {
	seen := map[string]bool{c.Notary: true}
	roles := make(map[Role]string)
	for _, p := range c.Parties {
		if seen[p.Name] {
			return &Error{Field: "parties", Message: fmt.Sprintf("duplicate party name %s", p.Name)}
		}
		seen[p.Name] = true
		if other, ok := roles[p.Role]; ok {
			return &Error{Field: "parties", Message: fmt.Sprintf("role %s held by both %s and %s", p.Role, other, p.Name)}
		}
		roles[p.Role] = p.Name
	}
	for _, r := range Roles() {
		if _, ok := roles[r]; !ok {
			return &Error{Field: "parties", Message: fmt.Sprintf("no party has role %s", r)}
		}
	}
	return nil
}

// PartyFor returns the name of the party holding role.
func (c Config) PartyFor(role Role) string {
	for _, p := range c.Parties {
		if p.Role == role {
			return p.Name
		}
	}
	return ""
}

// Names returns the party names in configuration order.
func (c Config) Names() []string {
	names := make([]string, len(c.Parties))
	for i, p := range c.Parties {
		names[i] = p.Name
	}
	return names
}

// Format renders c as CUE source that Parse accepts.
func (c Config) Format() ([]byte, error) {
	r := raw{
		Notary:             c.Notary,
		Parties:            c.Parties,
		EndorsementTimeout: c.EndorsementTimeout.String(),
		CommitTimeout:      c.CommitTimeout.String(),
		ConflictRetries:    c.ConflictRetries,
		RetryInterval:      c.RetryInterval.String(),
		DataDir:            c.DataDir,
	}
	ctx := cuecontext.New()
	v := ctx.Encode(map[string]raw{"network": r})
	if err := v.Err(); err != nil {
		return nil, cueError(err)
	}
	return format.Node(v.Syntax())
}

// cueError converts the first CUE error to an *Error carrying its position.
func cueError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	e := &Error{Field: "cue", Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		e.Pos = positions[0]
	}
	return e
}
