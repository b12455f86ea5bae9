// Package testutil holds helpers shared by tests that run signing artifacts.
package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// ArtifactDir returns the absolute path of the directory holding the
// reference sign.js used across package tests.
func ArtifactDir(t testing.TB) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("testutil: cannot locate source file")
	}
	return filepath.Join(filepath.Dir(file), "..", "signer", "testdata")
}

// ReferenceArtifact returns an absolute js reference to entry in the
// reference sign.js. Absolute references do not depend on the directory
// of the test binary.
func ReferenceArtifact(t testing.TB, entry string) string {
	t.Helper()
	return "js:" + filepath.Join(ArtifactDir(t), "sign.js") + "#" + entry
}

// WriteFile writes content to name inside a fresh temporary directory and
// returns its path.
func WriteFile(t testing.TB, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("testutil: writing %s: %v", name, err)
	}
	return path
}
