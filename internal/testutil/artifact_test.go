package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArtifactDir(t *testing.T) {
	dir := ArtifactDir(t)
	assert.True(t, filepath.IsAbs(dir))

	_, err := os.Stat(filepath.Join(dir, "sign.js"))
	require.NoError(t, err)
}

func TestReferenceArtifact(t *testing.T) {
	ref := ReferenceArtifact(t, "sign_reply")
	assert.True(t, strings.HasPrefix(ref, "js:"))
	assert.True(t, strings.HasSuffix(ref, "sign.js#sign_reply"))
}

func TestWriteFile(t *testing.T) {
	path := WriteFile(t, "a.js", "function f(a, b) {}")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "function f(a, b) {}", string(data))
	assert.Equal(t, "a.js", filepath.Base(path))
}
