// Package ledger records oracle runs in SQLite so signatures produced by
// different implementations can be compared in one place.
//
// Each entry carries the implementation label, the artifact reference, the
// fixture and environment digests, and the emitted signature. Entries with
// equal digests were computed from identical inputs; a conformant set of
// implementations has exactly one distinct signature per digest pair.
//
// # Database Configuration
//
//   - WAL mode, synchronous=NORMAL, busy_timeout=5000
//   - schema embedded from schema.sql, migrated via PRAGMA user_version
//   - ordering by seq, never by timestamps
package ledger
