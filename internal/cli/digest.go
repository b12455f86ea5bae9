package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/signoracle/internal/config"
	"github.com/roach88/signoracle/internal/fixture"
	"github.com/roach88/signoracle/internal/harness"
)

// DigestReport identifies the inputs of a run.
type DigestReport struct {
	FixtureName       string `json:"fixture_name,omitempty"`
	FixtureDigest     string `json:"fixture_digest"`
	EnvironmentDigest string `json:"environment_digest"`
}

func (r DigestReport) String() string {
	return fmt.Sprintf("fixture     %s\nenvironment %s", r.FixtureDigest, r.EnvironmentDigest)
}

// NewDigestCommand creates the digest command.
func NewDigestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OracleOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Print the fixture and environment digests",
		Long: `Print content digests of the fixture and of the deterministic environment
(random sequence and clock). Two runs with equal digests saw identical
inputs. The signing artifact is not loaded.

Example:
  signoracle digest
  signoracle digest --fixture reply.yaml --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(opts.RootOptions, cmd.ErrOrStderr())

			cfg, err := resolveConfig(opts, cmd)
			if err != nil {
				return err
			}
			report, err := digestConfig(cfg)
			if err != nil {
				return err
			}

			formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
			return formatter.Success(report)
		},
	}

	addOracleFlags(cmd, opts)
	return cmd
}

func digestConfig(cfg *config.Config) (DigestReport, error) {
	hopts, err := cfg.Options()
	if err != nil {
		return DigestReport{}, optionsExitError("preparing digests", err)
	}

	fixtureDigest, err := fixture.Digest(hopts.Fixture)
	if err != nil {
		return DigestReport{}, WrapExitError(ExitCommandError, "digesting fixture", err)
	}
	envDigest, err := harness.EnvironmentDigest(hopts.Sequence, hopts.ClockMillis)
	if err != nil {
		return DigestReport{}, WrapExitError(ExitCommandError, "digesting environment", err)
	}

	return DigestReport{
		FixtureName:       hopts.Fixture.Name,
		FixtureDigest:     fixtureDigest,
		EnvironmentDigest: envDigest,
	}, nil
}
