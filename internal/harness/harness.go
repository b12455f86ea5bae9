package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/signoracle/internal/canon"
	"github.com/roach88/signoracle/internal/determinism"
	"github.com/roach88/signoracle/internal/fixture"
	"github.com/roach88/signoracle/internal/signer"
)

// DefaultArtifact is the reference signing script, shipped next to the
// binary.
const DefaultArtifact = "js:sign.js#" + signer.DefaultEntry

// Options configures one run.
type Options struct {
	// Artifact addresses the signing routine.
	Artifact signer.Ref

	// Fixture is the single input handed to the routine.
	Fixture fixture.Fixture

	// Sequence and ClockMillis define the deterministic environment.
	Sequence    determinism.Sequence
	ClockMillis int64

	// BaseDir anchors relative artifact paths. Empty means the directory of
	// the running executable.
	BaseDir string

	// Out receives the signature line.
	Out io.Writer
}

// DefaultOptions returns the built-in run: reference script, built-in
// fixture, default sequence and clock. Out is left for the caller.
func DefaultOptions() Options {
	return Options{
		Artifact:    signer.MustParseRef(DefaultArtifact),
		Fixture:     fixture.Default(),
		Sequence:    determinism.DefaultSequence,
		ClockMillis: determinism.DefaultClockMillis,
	}
}

// Result describes a successful run.
type Result struct {
	Signature         string `json:"signature"`
	Artifact          string `json:"artifact"`
	FixtureName       string `json:"fixture_name,omitempty"`
	FixtureDigest     string `json:"fixture_digest"`
	EnvironmentDigest string `json:"environment_digest"`
	Draws             int64  `json:"draws"`
	ClockReads        int64  `json:"clock_reads"`
}

// Run performs one oracle run: install the deterministic sources, load the
// signer, invoke it once, and emit the signature. On error nothing is
// written to opts.Out.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Out == nil {
		return nil, &PhaseError{Phase: PhaseInstall, Err: &determinism.ConfigurationError{Reason: "no output writer"}}
	}

	// Phase 1: install.
	src, err := determinism.NewFixed(opts.Sequence, opts.ClockMillis)
	if err != nil {
		return nil, &PhaseError{Phase: PhaseInstall, Err: err}
	}
	restore, err := determinism.Install(src)
	if err != nil {
		return nil, &PhaseError{Phase: PhaseInstall, Err: err}
	}
	defer restore()
	restoreLoc, err := determinism.PinLocation(time.UTC)
	if err != nil {
		return nil, &PhaseError{Phase: PhaseInstall, Err: err}
	}
	defer restoreLoc()

	fixtureDigest, err := fixture.Digest(opts.Fixture)
	if err != nil {
		return nil, &PhaseError{Phase: PhaseInstall, Err: err}
	}
	envDigest, err := EnvironmentDigest(opts.Sequence, opts.ClockMillis)
	if err != nil {
		return nil, &PhaseError{Phase: PhaseInstall, Err: err}
	}
	slog.Debug("deterministic sources installed",
		"sequence_len", len(opts.Sequence),
		"clock_ms", opts.ClockMillis,
		"environment", envDigest)

	// Phase 2: load.
	loader := &signer.Loader{BaseDir: opts.BaseDir}
	s, err := loader.Load(ctx, opts.Artifact, src)
	if err != nil {
		if determinism.IsConfigurationError(err) {
			return nil, &PhaseError{Phase: PhaseInstall, Err: err}
		}
		return nil, &PhaseError{Phase: PhaseLoad, Err: err}
	}
	slog.Debug("signer loaded", "artifact", opts.Artifact.String(), "draws", src.Draws())

	// Phase 3: invoke and emit.
	sig, err := Invoke(ctx, s, opts.Fixture)
	if err != nil {
		return nil, &PhaseError{Phase: PhaseInvoke, Err: err}
	}
	if err := Emit(opts.Out, sig); err != nil {
		return nil, &PhaseError{Phase: PhaseInvoke, Err: err}
	}

	res := &Result{
		Signature:         sig,
		Artifact:          opts.Artifact.String(),
		FixtureName:       opts.Fixture.Name,
		FixtureDigest:     fixtureDigest,
		EnvironmentDigest: envDigest,
		Draws:             src.Draws(),
		ClockReads:        src.ClockReads(),
	}
	slog.Debug("signature emitted",
		"fixture", res.FixtureName,
		"draws", res.Draws,
		"clock_reads", res.ClockReads)
	return res, nil
}

// Invoke calls s exactly once with f. A signature that cannot be emitted
// as a single line is rejected.
func Invoke(ctx context.Context, s signer.Signer, f fixture.Fixture) (string, error) {
	sig, err := s.Sign(ctx, f.Query, f.Identity)
	if err != nil {
		if signer.IsInvokeError(err) {
			return "", err
		}
		return "", &signer.InvokeError{Message: "signing routine failed", Err: err}
	}
	if strings.ContainsAny(sig, "\r\n") {
		return "", &signer.InvokeError{Message: fmt.Sprintf("cannot emit %d-byte signature", len(sig)), Err: ErrMultiLine}
	}
	return sig, nil
}

// Emit writes sig and a newline in a single write.
func Emit(w io.Writer, sig string) error {
	line := make([]byte, 0, len(sig)+1)
	line = append(line, sig...)
	line = append(line, '\n')
	n, err := w.Write(line)
	if err != nil {
		return fmt.Errorf("writing signature: %w", err)
	}
	if n != len(line) {
		return fmt.Errorf("writing signature: %w", io.ErrShortWrite)
	}
	return nil
}

// EnvironmentDigest identifies a deterministic environment. Draws are
// encoded as shortest round-trip decimal strings.
func EnvironmentDigest(seq determinism.Sequence, clockMillis int64) (string, error) {
	draws := make([]string, len(seq))
	for i, v := range seq {
		draws[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return canon.DigestValue(canon.DomainEnvironment, map[string]any{
		"random":   draws,
		"clock_ms": clockMillis,
	})
}
