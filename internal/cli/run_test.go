package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/signoracle/internal/determinism"
	"github.com/roach88/signoracle/internal/fixture"
	"github.com/roach88/signoracle/internal/harness"
	"github.com/roach88/signoracle/internal/ledger"
	"github.com/roach88/signoracle/internal/testutil"
)

func executeRun(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd := NewRunCommand(&RootOptions{Format: "text"})
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRun_DefaultScenario(t *testing.T) {
	stdout, _, err := executeRun(t, "--artifact", testutil.ReferenceArtifact(t, "sign_datail"))
	require.NoError(t, err)
	assert.Equal(t, wantDefaultSignature+"\n", stdout)
}

func TestRun_Deterministic(t *testing.T) {
	art := testutil.ReferenceArtifact(t, "sign_datail")
	first, _, err := executeRun(t, "--artifact", art)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		got, _, err := executeRun(t, "--artifact", art)
		require.NoError(t, err)
		assert.Equal(t, first, got, "run %d", i)
	}
}

func TestRun_ReplyEntry(t *testing.T) {
	stdout, _, err := executeRun(t, "--artifact", testutil.ReferenceArtifact(t, "sign_reply"))
	require.NoError(t, err)
	assert.Equal(t, "r.123.8370a105.f8c8e8c7.lf9pm51c.stable.456-789-123\n", stdout)
}

func TestRun_ConfigFile(t *testing.T) {
	cfg := testutil.WriteFile(t, "oracle.yaml", "random: [0.5, 0.25]\nclock_ms: 1700000000000\n")

	stdout, _, err := executeRun(t, "--config", cfg, "--artifact", testutil.ReferenceArtifact(t, "sign_datail"))
	require.NoError(t, err)
	assert.Equal(t, "d.500.8370a105.f8c8e8c7.loyw3v28.stable.250-500-250\n", stdout)
}

func TestRun_VerboseLogsToStderr(t *testing.T) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd := NewRunCommand(&RootOptions{Format: "text", Verbose: true})
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs([]string{"--artifact", testutil.ReferenceArtifact(t, "sign_datail")})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, wantDefaultSignature+"\n", stdout.String(), "stdout carries only the signature")
	assert.Contains(t, stderr.String(), "signer loaded")
}

func TestRun_ExitCodes(t *testing.T) {
	badRandom := testutil.WriteFile(t, "bad.yaml", "random: [1.5]\n")
	throwing := testutil.WriteFile(t, "throw.js", "function sign_datail(q, ua) { throw new Error('nope'); }\n")
	multiline := testutil.WriteFile(t, "multi.js", "function sign_datail(q, ua) { return 'a\\nb'; }\n")
	badFixture := testutil.WriteFile(t, "fixture.yaml", "query: \"\"\nidentity: ua\n")

	tests := []struct {
		name     string
		args     []string
		wantCode int
	}{
		{"missing artifact", []string{"--artifact", "js:" + filepath.Join(t.TempDir(), "missing.js")}, ExitLoad},
		{"unknown native", []string{"--artifact", "native:no-such-signer"}, ExitLoad},
		{"missing entry", []string{"--artifact", testutil.ReferenceArtifact(t, "sign_nothing")}, ExitLoad},
		{"random out of range", []string{"--config", badRandom, "--artifact", testutil.ReferenceArtifact(t, "sign_datail")}, ExitInstall},
		{"missing config", []string{"--config", filepath.Join(t.TempDir(), "none.yaml")}, ExitInstall},
		{"empty implementation", []string{"--implementation", "", "--artifact", testutil.ReferenceArtifact(t, "sign_datail")}, ExitInstall},
		{"throwing routine", []string{"--artifact", "js:" + throwing}, ExitFailure},
		{"multi-line signature", []string{"--artifact", "js:" + multiline}, ExitFailure},
		{"invalid fixture", []string{"--fixture", badFixture, "--artifact", testutil.ReferenceArtifact(t, "sign_datail")}, ExitCommandError},
		{"native reference without name", []string{"--artifact", "native:"}, ExitLoad},
		{"js reference without path", []string{"--artifact", "js:#x"}, ExitLoad},
		{"empty reference", []string{"--artifact", ""}, ExitLoad},
		{"bad random wins over bad reference", []string{"--config", badRandom, "--artifact", "native:"}, ExitInstall},
		{"ledger in missing directory", []string{
			"--artifact", testutil.ReferenceArtifact(t, "sign_datail"),
			"--ledger", filepath.Join(t.TempDir(), "missing", "runs.db"),
		}, ExitCommandError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := executeRun(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, GetExitCode(err))
			assert.Empty(t, stdout, "nothing is written on failure")
		})
	}
}

func TestRun_BadReferenceNamesLoadPhase(t *testing.T) {
	_, _, err := executeRun(t, "--artifact", "native:")
	require.Error(t, err)
	assert.Equal(t, harness.PhaseLoad, harness.PhaseOf(err))
	assert.Contains(t, err.Error(), "load phase")
	assert.Contains(t, err.Error(), "BAD_REFERENCE")
}

func TestRun_RecordsToLedger(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	stdout, _, err := executeRun(t,
		"--artifact", testutil.ReferenceArtifact(t, "sign_datail"),
		"--ledger", dbPath,
		"--implementation", "go-test")
	require.NoError(t, err)
	assert.Equal(t, wantDefaultSignature+"\n", stdout)

	fixtureDigest, err := fixture.Digest(fixture.Default())
	require.NoError(t, err)
	envDigest, err := harness.EnvironmentDigest(determinism.DefaultSequence, determinism.DefaultClockMillis)
	require.NoError(t, err)

	l, err := ledger.Open(dbPath)
	require.NoError(t, err)
	defer l.Close()

	entries, err := l.Latest(context.Background(), fixtureDigest, envDigest)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "go-test", entries[0].Implementation)
	assert.Equal(t, wantDefaultSignature, entries[0].Signature)
	assert.Equal(t, int64(4), entries[0].Draws)
}
