package harness

import (
	"bytes"
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// RunWithGolden runs the harness and compares the emitted line against
// testdata/golden/{name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the run error, if any. A mismatch fails t through goldie.
func RunWithGolden(t *testing.T, name string, opts Options) (*Result, error) {
	t.Helper()

	var out bytes.Buffer
	opts.Out = &out
	res, err := Run(context.Background(), opts)
	if err != nil {
		return nil, err
	}

	AssertGolden(t, name, out.Bytes())
	return res, nil
}

// AssertGolden compares already emitted output against a golden file.
func AssertGolden(t *testing.T, name string, output []byte) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, output)
}
