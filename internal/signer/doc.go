// Package signer binds an opaque signing routine behind the Signer
// interface.
//
// Two kinds of artifact are supported:
//
//   - js: a JavaScript source file evaluated in an embedded goja runtime.
//     The runtime's Math.random and Date sources are bound to a
//     determinism.Source before any artifact code runs, so top-level
//     initialization is covered too.
//   - native: a Go implementation linked into the binary and registered
//     under a name with Register.
//
// References are written as "js:<path>#<entry>" or "native:<name>". A bare
// path is shorthand for a js reference with the default entry. Relative
// paths resolve against the directory of the running executable, never the
// working directory.
//
// The loader never looks at what the routine computes. Loading problems are
// reported as *LoadError; failures of the signing call itself are reported
// as *InvokeError.
package signer
