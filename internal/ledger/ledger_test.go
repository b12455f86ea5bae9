package ledger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	fixtureA = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	fixtureB = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	envA     = "eeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"
)

func openTest(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func entry(impl, sig string) Entry {
	return Entry{
		Implementation:    impl,
		FixtureDigest:     fixtureA,
		EnvironmentDigest: envA,
		Signature:         sig,
		Draws:             -1,
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	for i := 0; i < 3; i++ {
		l, err := Open(path)
		require.NoError(t, err, "iteration %d", i)
		require.NoError(t, l.Close())
	}
}

func TestOpen_Pragmas(t *testing.T) {
	l := openTest(t)

	var mode string
	require.NoError(t, l.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	var version int
	require.NoError(t, l.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)
}

func TestOpen_RejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	l, err := Open(path)
	require.NoError(t, err)
	_, err = l.db.Exec("PRAGMA user_version = 99")
	require.NoError(t, err)
	require.NoError(t, l.Close())

	_, err = Open(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "newer than supported")
}

func TestRecord_AssignsIDAndSeq(t *testing.T) {
	l := openTest(t)
	ctx := context.Background()

	a, err := l.Record(ctx, entry("go-goja", "sig-1"))
	require.NoError(t, err)
	b, err := l.Record(ctx, entry("node", "sig-1"))
	require.NoError(t, err)

	_, err = uuid.Parse(a.ID)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Less(t, a.Seq, b.Seq)
}

func TestRecord_KeepsExplicitID(t *testing.T) {
	l := openTest(t)
	e := entry("node", "sig")
	e.ID = "external-run-1"

	got, err := l.Record(context.Background(), e)
	require.NoError(t, err)
	assert.Equal(t, "external-run-1", got.ID)

	_, err = l.Record(context.Background(), e)
	require.Error(t, err, "ids are unique")
}

func TestRecord_Validation(t *testing.T) {
	l := openTest(t)
	ctx := context.Background()

	_, err := l.Record(ctx, Entry{FixtureDigest: fixtureA, EnvironmentDigest: envA})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "implementation")

	_, err = l.Record(ctx, Entry{Implementation: "x", EnvironmentDigest: envA})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "digests")
}

func TestLatest_NewestPerImplementation(t *testing.T) {
	l := openTest(t)
	ctx := context.Background()

	_, err := l.Record(ctx, entry("python", "old"))
	require.NoError(t, err)
	_, err = l.Record(ctx, entry("go-goja", "sig"))
	require.NoError(t, err)
	_, err = l.Record(ctx, entry("python", "sig"))
	require.NoError(t, err)

	other := entry("go-goja", "other-fixture")
	other.FixtureDigest = fixtureB
	_, err = l.Record(ctx, other)
	require.NoError(t, err)

	got, err := l.Latest(ctx, fixtureA, envA)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "go-goja", got[0].Implementation)
	assert.Equal(t, "python", got[1].Implementation)
	assert.Equal(t, "sig", got[1].Signature)
}

func TestCompare(t *testing.T) {
	ctx := context.Background()

	t.Run("conformant", func(t *testing.T) {
		l := openTest(t)
		for _, impl := range []string{"go-goja", "node", "python"} {
			_, err := l.Record(ctx, entry(impl, "same"))
			require.NoError(t, err)
		}

		c, err := l.Compare(ctx, fixtureA, envA)
		require.NoError(t, err)
		assert.True(t, c.Conformant())
		assert.Equal(t, []string{"same"}, c.Signatures())
		assert.Equal(t, []string{"go-goja", "node", "python"}, c.BySignature["same"])
	})

	t.Run("divergent", func(t *testing.T) {
		l := openTest(t)
		_, err := l.Record(ctx, entry("go-goja", "x"))
		require.NoError(t, err)
		_, err = l.Record(ctx, entry("node", "y"))
		require.NoError(t, err)

		c, err := l.Compare(ctx, fixtureA, envA)
		require.NoError(t, err)
		assert.False(t, c.Conformant())
		assert.Equal(t, []string{"x", "y"}, c.Signatures())
	})

	t.Run("single implementation", func(t *testing.T) {
		l := openTest(t)
		_, err := l.Record(ctx, entry("go-goja", "x"))
		require.NoError(t, err)

		c, err := l.Compare(ctx, fixtureA, envA)
		require.NoError(t, err)
		assert.False(t, c.Conformant(), "nothing to compare against")
	})

	t.Run("empty", func(t *testing.T) {
		l := openTest(t)
		c, err := l.Compare(ctx, fixtureB, envA)
		require.NoError(t, err)
		assert.Empty(t, c.Entries)
		assert.False(t, c.Conformant())
	})
}
