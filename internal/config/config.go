// Package config loads harness settings from an optional YAML file,
// SIGNORACLE_* environment variables and built-in defaults, in that order
// of precedence (environment wins over file).
package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"

	"github.com/roach88/signoracle/internal/determinism"
	"github.com/roach88/signoracle/internal/fixture"
	"github.com/roach88/signoracle/internal/harness"
	"github.com/roach88/signoracle/internal/signer"
)

// EnvPrefix prefixes every environment override, e.g. SIGNORACLE_ARTIFACT.
const EnvPrefix = "SIGNORACLE"

// DefaultImplementation labels runs of this harness in the ledger.
const DefaultImplementation = "go-goja"

// Config is the resolved harness configuration.
type Config struct {
	// Artifact is an artifact reference, see signer.ParseRef.
	Artifact string `mapstructure:"artifact"`

	// Fixture is a path to a YAML fixture. Empty selects the built-in one.
	Fixture string `mapstructure:"fixture"`

	// Random is the deterministic random sequence.
	Random []float64 `mapstructure:"random"`

	// ClockMillis is the deterministic clock instant.
	ClockMillis int64 `mapstructure:"clock_ms"`

	// Implementation labels this harness in ledger entries.
	Implementation string `mapstructure:"implementation"`

	// Ledger is a path to the SQLite run ledger. Empty disables recording.
	Ledger string `mapstructure:"ledger"`
}

// Load reads path (if non-empty), applies environment overrides and fills
// in defaults.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	v.SetDefault("artifact", harness.DefaultArtifact)
	v.SetDefault("fixture", "")
	v.SetDefault("random", []float64(determinism.DefaultSequence))
	v.SetDefault("clock_ms", determinism.DefaultClockMillis)
	v.SetDefault("implementation", DefaultImplementation)
	v.SetDefault("ledger", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the settings of the install phase. The artifact
// reference belongs to the load phase and is checked by Options.
func (c *Config) Validate() error {
	var errs []error
	if err := determinism.Sequence(c.Random).Validate(); err != nil {
		errs = append(errs, fmt.Errorf("random: %w", err))
	}
	if c.Implementation == "" {
		errs = append(errs, errors.New("implementation: label must not be empty"))
	}
	return errors.Join(errs...)
}

// Options converts the configuration into harness options. Out and BaseDir
// are left to the caller. A malformed artifact reference is returned as a
// load-phase *harness.PhaseError.
func (c *Config) Options() (harness.Options, error) {
	ref, err := signer.ParseRef(c.Artifact)
	if err != nil {
		return harness.Options{}, &harness.PhaseError{Phase: harness.PhaseLoad, Err: err}
	}

	fx := fixture.Default()
	if c.Fixture != "" {
		fx, err = fixture.Load(c.Fixture)
		if err != nil {
			return harness.Options{}, err
		}
	}

	return harness.Options{
		Artifact:    ref,
		Fixture:     fx,
		Sequence:    determinism.Sequence(c.Random),
		ClockMillis: c.ClockMillis,
	}, nil
}
