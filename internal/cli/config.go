package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/tradefin/internal/config"
)

// ConfigSummary is the JSON form of the effective configuration.
type ConfigSummary struct {
	Notary             string         `json:"notary"`
	Parties            []config.Party `json:"parties"`
	EndorsementTimeout string         `json:"endorsement_timeout"`
	CommitTimeout      string         `json:"commit_timeout"`
	ConflictRetries    int            `json:"conflict_retries"`
	RetryInterval      string         `json:"retry_interval"`
	DataDir            string         `json:"data_dir"`
}

// NewConfigCommand creates the config command.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective network configuration",
		Long: `Validate the configuration named by --config (or the defaults) and print it
with every default filled in. Text output is CUE that --config accepts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			f := newFormatter(rootOpts, cmd)
			if f.JSON() {
				return f.Success(ConfigSummary{
					Notary:             cfg.Notary,
					Parties:            cfg.Parties,
					EndorsementTimeout: cfg.EndorsementTimeout.String(),
					CommitTimeout:      cfg.CommitTimeout.String(),
					ConflictRetries:    cfg.ConflictRetries,
					RetryInterval:      cfg.RetryInterval.String(),
					DataDir:            cfg.DataDir,
				})
			}
			src, err := cfg.Format()
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to format configuration", err)
			}
			_, err = f.Writer.Write(src)
			return err
		},
	}
}
