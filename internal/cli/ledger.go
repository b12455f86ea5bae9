package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/signoracle/internal/config"
	"github.com/roach88/signoracle/internal/ledger"
)

// LedgerOptions holds flags for the ledger subcommands.
type LedgerOptions struct {
	OracleOptions
	Ledger    string
	Signature string
}

// ComparisonReport is the text/JSON view of a ledger comparison.
type ComparisonReport struct {
	*ledger.Comparison
	Conformant bool `json:"conformant"`
}

func (r ComparisonReport) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "fixture     %s\n", r.FixtureDigest)
	fmt.Fprintf(&b, "environment %s\n", r.EnvironmentDigest)
	for _, sig := range r.Signatures() {
		fmt.Fprintf(&b, "%s\n  %s\n", sig, strings.Join(r.BySignature[sig], ", "))
	}
	switch {
	case r.Conformant:
		fmt.Fprintf(&b, "✓ conformant (%d implementations)", len(r.Entries))
	case len(r.BySignature) > 1:
		fmt.Fprintf(&b, "✗ divergent: %d distinct signatures", len(r.BySignature))
	default:
		fmt.Fprintf(&b, "- %d implementation(s) recorded, nothing to compare", len(r.Entries))
	}
	return b.String()
}

// NewLedgerCommand creates the ledger command group.
func NewLedgerCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Record and compare signatures across implementations",
		Long: `Keep signatures from several implementations of the signing routine in a
SQLite ledger, keyed by fixture and environment digests, and compare them.`,
	}

	cmd.AddCommand(newLedgerRecordCommand(rootOpts))
	cmd.AddCommand(newLedgerCompareCommand(rootOpts))
	return cmd
}

func newLedgerOptions(rootOpts *RootOptions) *LedgerOptions {
	return &LedgerOptions{OracleOptions: OracleOptions{RootOptions: rootOpts}}
}

func addLedgerFlags(cmd *cobra.Command, opts *LedgerOptions) {
	addOracleFlags(cmd, &opts.OracleOptions)
	cmd.Flags().StringVar(&opts.Ledger, "ledger", "", "path to SQLite ledger (default: configured ledger)")
}

func newLedgerRecordCommand(rootOpts *RootOptions) *cobra.Command {
	opts := newLedgerOptions(rootOpts)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a signature produced elsewhere",
		Long: `Record a signature produced by another implementation. The fixture and
environment digests are computed from the current configuration, so the
other implementation must have used the same fixture, random sequence and
clock.

Example:
  signoracle ledger record --ledger runs.db --implementation python --signature "$(python port.py)"`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ledgerRecord(opts, cmd)
		},
	}

	addLedgerFlags(cmd, opts)
	cmd.Flags().StringVar(&opts.Signature, "signature", "", "signature to record")
	_ = cmd.MarkFlagRequired("signature")
	_ = cmd.MarkFlagRequired("implementation")

	return cmd
}

func newLedgerCompareCommand(rootOpts *RootOptions) *cobra.Command {
	opts := newLedgerOptions(rootOpts)

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare the latest signature of every implementation",
		Long: `Compare the latest recorded signature of every implementation for the
configured fixture and environment. Exits 1 when implementations disagree.

Example:
  signoracle ledger compare --ledger runs.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ledgerCompare(opts, cmd)
		},
	}

	addLedgerFlags(cmd, opts)
	return cmd
}

func ledgerRecord(opts *LedgerOptions, cmd *cobra.Command) error {
	setupLogging(opts.RootOptions, cmd.ErrOrStderr())

	sig := strings.TrimRight(opts.Signature, "\r\n")
	if sig == "" || strings.ContainsAny(sig, "\r\n") {
		return NewExitError(ExitCommandError, "--signature must be a single non-empty line")
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	cfg, l, err := openLedger(opts, cmd, formatter)
	if err != nil {
		return err
	}
	defer closeLedger(l)

	digests, err := digestConfig(cfg)
	if err != nil {
		return err
	}

	e, err := l.Record(commandContext(cmd), ledger.Entry{
		Implementation:    cfg.Implementation,
		Artifact:          cfg.Artifact,
		FixtureDigest:     digests.FixtureDigest,
		EnvironmentDigest: digests.EnvironmentDigest,
		Signature:         sig,
		Draws:             -1,
	})
	if err != nil {
		return ledgerError(formatter, "recording signature", err)
	}

	if opts.Format == "json" {
		return formatter.Success(e)
	}
	return formatter.Success(fmt.Sprintf("✓ recorded %s for %s (seq %d)", e.ID, e.Implementation, e.Seq))
}

func ledgerCompare(opts *LedgerOptions, cmd *cobra.Command) error {
	setupLogging(opts.RootOptions, cmd.ErrOrStderr())

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	cfg, l, err := openLedger(opts, cmd, formatter)
	if err != nil {
		return err
	}
	defer closeLedger(l)

	digests, err := digestConfig(cfg)
	if err != nil {
		return err
	}

	c, err := l.Compare(commandContext(cmd), digests.FixtureDigest, digests.EnvironmentDigest)
	if err != nil {
		return ledgerError(formatter, "comparing signatures", err)
	}
	report := ComparisonReport{Comparison: c, Conformant: c.Conformant()}

	if len(c.BySignature) <= 1 {
		return formatter.Success(report)
	}

	if opts.Format == "json" {
		_ = formatter.Error(ErrCodeDiverged, "implementations disagree", report)
	} else {
		fmt.Fprintln(formatter.Writer, report)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("implementations disagree: %d distinct signatures", len(c.BySignature)))
}

// openLedger resolves the configuration and opens the ledger it names.
func openLedger(opts *LedgerOptions, cmd *cobra.Command, formatter *OutputFormatter) (*config.Config, *ledger.Ledger, error) {
	cfg, err := resolveConfig(&opts.OracleOptions, cmd)
	if err != nil {
		return nil, nil, err
	}
	if cmd.Flags().Changed("ledger") {
		cfg.Ledger = opts.Ledger
	}
	if cfg.Ledger == "" {
		return nil, nil, ledgerError(formatter, "no ledger configured", errors.New("pass --ledger or set ledger in the config"))
	}

	l, err := ledger.Open(cfg.Ledger)
	if err != nil {
		return nil, nil, ledgerError(formatter, "opening ledger", err)
	}
	slog.Debug("ledger opened", "path", cfg.Ledger)
	return cfg, l, nil
}

// ledgerError reports a ledger failure as ErrCodeLedger and returns it as a
// command error.
func ledgerError(formatter *OutputFormatter, message string, err error) error {
	exitErr := WrapExitError(ExitCommandError, message, err)
	_ = formatter.Error(ErrCodeLedger, exitErr.Error(), nil)
	return exitErr
}

func closeLedger(l *ledger.Ledger) {
	if err := l.Close(); err != nil {
		slog.Error("error closing ledger", "error", err)
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
