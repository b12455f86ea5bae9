package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/signoracle/internal/config"
	"github.com/roach88/signoracle/internal/harness"
	"github.com/roach88/signoracle/internal/ledger"
)

// OracleOptions holds the flags shared by every command that needs a
// resolved configuration.
type OracleOptions struct {
	*RootOptions
	ConfigFile     string
	Artifact       string
	Fixture        string
	Implementation string

	// BaseDir overrides the directory relative artifact paths resolve
	// against (for testing). Empty means the executable's directory.
	BaseDir string
}

// RunOptions holds flags for the run command.
type RunOptions struct {
	OracleOptions
	Ledger string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{OracleOptions: OracleOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the signing oracle once",
		Long: `Run the signing routine once and print its signature.

Without flags the bundled sign.js next to the executable is invoked with the
built-in fixture, the random sequence [0.123, 0.456, 0.789] and the clock
frozen at 1678886400000 ms. Only the signature is written to stdout; logs go
to stderr.

Relative artifact paths resolve against the directory of the signoracle
binary, not the working directory: ship sign.js next to the binary or pass
an absolute --artifact.

Example:
  signoracle run
  signoracle run --artifact js:./sign.js#sign_reply --fixture reply.yaml
  signoracle run --config oracle.yaml --ledger runs.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(opts, cmd)
		},
	}

	addOracleFlags(cmd, &opts.OracleOptions)
	cmd.Flags().StringVar(&opts.Ledger, "ledger", "", "record the run in this SQLite ledger")

	return cmd
}

func addOracleFlags(cmd *cobra.Command, opts *OracleOptions) {
	cmd.Flags().StringVar(&opts.ConfigFile, "config", "", "YAML configuration file")
	cmd.Flags().StringVar(&opts.Artifact, "artifact", "", "artifact reference (js:<path>#<entry> | native:<name>)")
	cmd.Flags().StringVar(&opts.Fixture, "fixture", "", "YAML fixture file (default: built-in fixture)")
	cmd.Flags().StringVar(&opts.Implementation, "implementation", "", "implementation label for ledger entries")
}

func runCommand(opts *RunOptions, cmd *cobra.Command) error {
	setupLogging(opts.RootOptions, cmd.ErrOrStderr())

	cfg, err := resolveConfig(&opts.OracleOptions, cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("ledger") {
		cfg.Ledger = opts.Ledger
	}

	if cfg.Ledger == "" {
		_, err := runOracle(cmd.Context(), &opts.OracleOptions, cfg, cmd.OutOrStdout())
		return err
	}

	// The ledger is opened before the run and the signature is held back
	// until the entry is stored: a ledger failure leaves stdout empty.
	l, err := ledger.Open(cfg.Ledger)
	if err != nil {
		return WrapExitError(ExitCommandError, "opening ledger", err)
	}
	defer closeLedger(l)

	var line bytes.Buffer
	res, err := runOracle(cmd.Context(), &opts.OracleOptions, cfg, &line)
	if err != nil {
		return err
	}
	if err := recordResult(commandContext(cmd), l, cfg, res); err != nil {
		return err
	}
	if _, err := cmd.OutOrStdout().Write(line.Bytes()); err != nil {
		return WrapExitError(ExitFailure, "writing signature", err)
	}
	return nil
}

// setupLogging installs the slog text handler on w.
func setupLogging(opts *RootOptions, w io.Writer) {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// resolveConfig loads the configuration file and environment, then applies
// flags the user set explicitly.
func resolveConfig(opts *OracleOptions, cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return nil, WrapExitError(ExitInstall, "loading configuration", err)
	}

	flags := cmd.Flags()
	if flags.Changed("artifact") {
		cfg.Artifact = opts.Artifact
	}
	if flags.Changed("fixture") {
		cfg.Fixture = opts.Fixture
	}
	if flags.Changed("implementation") {
		cfg.Implementation = opts.Implementation
	}

	if err := cfg.Validate(); err != nil {
		return nil, WrapExitError(ExitInstall, "invalid configuration", err)
	}
	return cfg, nil
}

// harnessOptions builds harness options for cfg, writing to out.
func harnessOptions(opts *OracleOptions, cfg *config.Config, out io.Writer) (harness.Options, error) {
	hopts, err := cfg.Options()
	if err != nil {
		return harness.Options{}, optionsExitError("preparing run", err)
	}
	hopts.BaseDir = opts.BaseDir
	hopts.Out = out
	return hopts, nil
}

// optionsExitError maps a failure to build run options: phase errors keep
// their phase's exit code, anything else (an unreadable fixture) is a
// command error.
func optionsExitError(message string, err error) *ExitError {
	if harness.PhaseOf(err) != "" {
		return phaseExitError(err)
	}
	return WrapExitError(ExitCommandError, message, err)
}

// runOracle performs one oracle run. SIGINT and SIGTERM interrupt a
// running signing routine.
func runOracle(parent context.Context, opts *OracleOptions, cfg *config.Config, out io.Writer) (*harness.Result, error) {
	hopts, err := harnessOptions(opts, cfg, out)
	if err != nil {
		return nil, err
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Debug("running oracle",
		"artifact", hopts.Artifact.String(),
		"fixture", cfg.Fixture,
		"implementation", cfg.Implementation)

	res, err := harness.Run(ctx, hopts)
	if err != nil {
		slog.Debug("oracle run failed", "phase", harness.PhaseOf(err), "error", err)
		return nil, phaseExitError(err)
	}
	return res, nil
}

func recordResult(ctx context.Context, l *ledger.Ledger, cfg *config.Config, res *harness.Result) error {
	e, err := l.Record(ctx, ledger.Entry{
		Implementation:    cfg.Implementation,
		Artifact:          res.Artifact,
		FixtureDigest:     res.FixtureDigest,
		EnvironmentDigest: res.EnvironmentDigest,
		Signature:         res.Signature,
		Draws:             res.Draws,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "recording run", err)
	}
	slog.Debug("run recorded", "ledger", cfg.Ledger, "id", e.ID, "seq", e.Seq)
	return nil
}
