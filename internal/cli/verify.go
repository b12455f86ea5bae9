package cli

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// VerifyOptions holds flags for the verify command.
type VerifyOptions struct {
	OracleOptions
	Expect     string
	ExpectFile string
}

// VerifyReport is the outcome of a verify run.
type VerifyReport struct {
	Match             bool   `json:"match"`
	Expected          string `json:"expected"`
	Actual            string `json:"actual"`
	FixtureDigest     string `json:"fixture_digest"`
	EnvironmentDigest string `json:"environment_digest"`
}

func (r VerifyReport) String() string {
	if r.Match {
		return fmt.Sprintf("✓ signature matches: %s", r.Actual)
	}
	return fmt.Sprintf("✗ signature mismatch\n  expected: %s\n  actual:   %s", r.Expected, r.Actual)
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{OracleOptions: OracleOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Compare the oracle's signature with an expected value",
		Long: `Run the oracle and compare its signature with an expected one.

The expected signature comes from --expect or from the first line of
--expect-file, typically the stdout of a port under test. Exits 1 on
mismatch.

Example:
  signoracle verify --expect "$(python port.py)"
  signoracle verify --expect-file port-output.txt --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return verifyCommand(opts, cmd)
		},
	}

	addOracleFlags(cmd, &opts.OracleOptions)
	cmd.Flags().StringVar(&opts.Expect, "expect", "", "expected signature")
	cmd.Flags().StringVar(&opts.ExpectFile, "expect-file", "", "file whose first line is the expected signature")
	cmd.MarkFlagsMutuallyExclusive("expect", "expect-file")
	cmd.MarkFlagsOneRequired("expect", "expect-file")

	return cmd
}

func verifyCommand(opts *VerifyOptions, cmd *cobra.Command) error {
	setupLogging(opts.RootOptions, cmd.ErrOrStderr())
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	expected, err := expectedSignature(opts)
	if err != nil {
		return err
	}

	cfg, err := resolveConfig(&opts.OracleOptions, cmd)
	if err != nil {
		return err
	}

	var out bytes.Buffer
	res, err := runOracle(cmd.Context(), &opts.OracleOptions, cfg, &out)
	if err != nil {
		_ = formatter.Error(phaseErrCode(err), err.Error(), nil)
		return err
	}

	report := VerifyReport{
		Match:             res.Signature == expected,
		Expected:          expected,
		Actual:            res.Signature,
		FixtureDigest:     res.FixtureDigest,
		EnvironmentDigest: res.EnvironmentDigest,
	}
	if report.Match {
		return formatter.Success(report)
	}

	if opts.Format == "json" {
		_ = formatter.Error(ErrCodeMismatch, "signature mismatch", report)
	} else {
		fmt.Fprintln(formatter.Writer, report)
	}
	return NewExitError(ExitFailure, "signature mismatch")
}

func expectedSignature(opts *VerifyOptions) (string, error) {
	if opts.ExpectFile == "" {
		return strings.TrimRight(opts.Expect, "\r\n"), nil
	}
	data, err := os.ReadFile(opts.ExpectFile)
	if err != nil {
		return "", WrapExitError(ExitCommandError, "reading expected signature", err)
	}
	line, _, _ := strings.Cut(string(data), "\n")
	return strings.TrimRight(line, "\r"), nil
}
