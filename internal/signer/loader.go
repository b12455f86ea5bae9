package signer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roach88/signoracle/internal/determinism"
)

// Loader binds Signers from artifact references.
type Loader struct {
	// BaseDir anchors relative artifact paths. Empty means the directory of
	// the running executable.
	BaseDir string
}

// ExecutableDir returns the directory containing the running binary, with
// symlinks resolved.
func ExecutableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locating executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe), nil
}

// Resolve turns an artifact path into an absolute one. Relative paths are
// anchored at BaseDir, never at the process working directory.
func (l *Loader) Resolve(path string) (string, error) {
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	base := l.BaseDir
	if base == "" {
		dir, err := ExecutableDir()
		if err != nil {
			return "", err
		}
		base = dir
	}
	return filepath.Join(base, path), nil
}

// Load binds the callable addressed by ref. src must already be the
// deterministic source for the run: loading may execute artifact code that
// draws randomness or reads the clock.
func (l *Loader) Load(ctx context.Context, ref Ref, src determinism.Source) (Signer, error) {
	if src == nil {
		return nil, &determinism.ConfigurationError{Reason: "no source supplied to loader"}
	}

	switch ref.Kind {
	case KindJS:
		return l.loadJS(ctx, ref, src)
	case KindNative:
		return loadNative(ref, src)
	default:
		return nil, &LoadError{Code: ErrCodeBadReference, Ref: ref.String(), Message: fmt.Sprintf("unknown artifact kind %q", ref.Kind)}
	}
}

func (l *Loader) loadJS(ctx context.Context, ref Ref, src determinism.Source) (Signer, error) {
	path, err := l.Resolve(ref.Target)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeArtifactNotFound, Ref: ref.String(), Message: "cannot resolve artifact path", Err: err}
	}

	code, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &LoadError{Code: ErrCodeArtifactNotFound, Ref: ref.String(), Message: fmt.Sprintf("artifact not found: %s", path)}
		}
		return nil, &LoadError{Code: ErrCodeArtifactUnreadable, Ref: ref.String(), Message: fmt.Sprintf("reading %s", path), Err: err}
	}

	slog.Debug("loading js artifact", "path", path, "entry", ref.Entry, "bytes", len(code))
	return newJSSigner(ctx, ref, path, string(code), src)
}

func loadNative(ref Ref, src determinism.Source) (Signer, error) {
	factory, ok := lookupNative(ref.Target)
	if !ok {
		return nil, &LoadError{
			Code:    ErrCodeUnknownNative,
			Ref:     ref.String(),
			Message: fmt.Sprintf("no native implementation registered as %q (have %v)", ref.Target, Registered()),
		}
	}

	s, err := factory(src)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNativeInit, Ref: ref.String(), Message: "native factory failed", Err: err}
	}
	if s == nil {
		return nil, &LoadError{Code: ErrCodeNativeInit, Ref: ref.String(), Message: "native factory returned no signer"}
	}
	return s, nil
}
