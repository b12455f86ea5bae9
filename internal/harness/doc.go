// Package harness runs the signing oracle: one fixture, one signing call,
// one line of output.
//
// # Phases
//
// A run is three phases composed strictly in order:
//
//  1. install: build the fixed random/clock source and make it the
//     process-wide default (restored when the run ends)
//  2. load: bind the signing routine; artifact top-level code already sees
//     the fixed sources
//  3. invoke: call the routine exactly once and write its result
//
// There are no retries. Any failure is wrapped in a *PhaseError naming the
// phase, and nothing is written to the output.
//
// # Output
//
// The output is the signature followed by a single newline, written in one
// call. No framing, no logging. Two harnesses built around different
// implementations of the signing routine can be diffed byte for byte.
//
// # Golden Files
//
// RunWithGolden compares the emitted line against
// testdata/golden/{name}.golden. To regenerate:
//
//	go test ./internal/harness -update
package harness
