package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()

	assert.Equal(t, "Notary", c.Notary)
	assert.Equal(t, []string{"Seller", "Buyer", "AdvisingBank", "IssuingBank"}, c.Names())
	assert.Equal(t, 5*time.Second, c.EndorsementTimeout)
	assert.Equal(t, 5*time.Second, c.CommitTimeout)
	assert.Equal(t, 3, c.ConflictRetries)
	assert.Equal(t, 50*time.Millisecond, c.RetryInterval)
	assert.Empty(t, c.DataDir)
	assert.Equal(t, "AdvisingBank", c.PartyFor(RoleAdvisingBank))
}

func TestParse_Overrides(t *testing.T) {
	src := `
network: {
	notary: "Registry"
	parties: [
		{name: "Mill", role: "seller"},
		{name: "Importer", role: "buyer"},
		{name: "SonaliBank", role: "advising_bank"},
		{name: "ING", role: "issuing_bank"},
	]
	endorsement_timeout: "250ms"
	conflict_retries: 0
	data_dir: "/var/lib/tradefin"
}
`
	c, err := Parse([]byte(src), "net.cue")
	require.NoError(t, err)

	assert.Equal(t, "Registry", c.Notary)
	assert.Equal(t, "Importer", c.PartyFor(RoleBuyer))
	assert.Equal(t, 250*time.Millisecond, c.EndorsementTimeout)
	assert.Equal(t, 5*time.Second, c.CommitTimeout)
	assert.Zero(t, c.ConflictRetries)
	assert.Equal(t, "/var/lib/tradefin", c.DataDir)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "unknown field",
			src:  `network: {notry: "X"}`,
			want: "notry",
		},
		{
			name: "unknown role",
			src:  `network: parties: [{name: "A", role: "broker"}]`,
			want: "parties.0.role",
		},
		{
			name: "malformed party name",
			src: `network: parties: [
				{name: "A", role: "seller"},
				{name: "2B", role: "buyer"},
			]`,
			want: "parties.1.name",
		},
		{
			name: "malformed duration",
			src:  `network: commit_timeout: "five seconds"`,
			want: "commit_timeout",
		},
		{
			name: "zero duration",
			src:  `network: retry_interval: "0s"`,
			want: "retry_interval: must be a positive duration",
		},
		{
			name: "negative retries",
			src:  `network: conflict_retries: -1`,
			want: "conflict_retries",
		},
		{
			name: "missing role",
			src: `network: parties: [
				{name: "A", role: "seller"},
				{name: "B", role: "buyer"},
				{name: "C", role: "advising_bank"},
			]`,
			want: "no party has role issuing_bank",
		},
		{
			name: "shared role",
			src: `network: parties: [
				{name: "A", role: "seller"},
				{name: "B", role: "seller"},
			]`,
			want: "role seller held by both A and B",
		},
		{
			name: "notary is a party",
			src: `network: {
				notary: "A"
				parties: [{name: "A", role: "seller"}]
			}`,
			want: "duplicate party name A",
		},
		{
			name: "syntax",
			src:  `network: {`,
			want: "bad.cue",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src), "bad.cue")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "network.cue")
	require.NoError(t, os.WriteFile(path, []byte(`network: conflict_retries: 7`), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, c.ConflictRetries)
	assert.Len(t, c.Parties, 4)

	_, err = Load(filepath.Join(dir, "missing.cue"))
	assert.Error(t, err)

	_, err = Load(dir)
	assert.Error(t, err)
}

func TestFormat_RoundTrip(t *testing.T) {
	c := Default()
	c.ConflictRetries = 9
	c.EndorsementTimeout = 1500 * time.Millisecond

	src, err := c.Format()
	require.NoError(t, err)
	assert.Contains(t, string(src), "network")

	back, err := Parse(src, "formatted.cue")
	require.NoError(t, err)
	assert.Equal(t, c, back)
}
