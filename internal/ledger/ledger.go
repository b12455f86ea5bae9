package ledger

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - Initial runs table
const currentSchemaVersion = 1

// Ledger is a SQLite-backed run ledger.
type Ledger struct {
	db *sql.DB
}

// Entry is one recorded signature.
type Entry struct {
	Seq               int64  `json:"seq"`
	ID                string `json:"id"`
	Implementation    string `json:"implementation"`
	Artifact          string `json:"artifact,omitempty"`
	FixtureDigest     string `json:"fixture_digest"`
	EnvironmentDigest string `json:"environment_digest"`
	Signature         string `json:"signature"`

	// Draws is the number of random draws consumed, or -1 when the
	// recording harness did not report it.
	Draws int64 `json:"draws"`
}

// Open creates or opens a ledger at path. Use ":memory:" for tests.
func Open(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to ledger: %w", err)
	}

	// SQLite supports one writer; a single connection also keeps an
	// in-memory database alive across calls.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Ledger{db: db}, nil
}

// Close closes the database.
func (l *Ledger) Close() error {
	if l.db == nil {
		return nil
	}
	return l.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("ledger schema version %d is newer than supported %d", version, currentSchemaVersion)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// Record appends e. An empty ID is replaced by a fresh UUIDv7; Seq is
// assigned by the database. The stored entry is returned.
func (l *Ledger) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.Implementation == "" {
		return Entry{}, errors.New("record: implementation is required")
	}
	if e.FixtureDigest == "" || e.EnvironmentDigest == "" {
		return Entry{}, errors.New("record: fixture and environment digests are required")
	}
	if e.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return Entry{}, fmt.Errorf("record: generating id: %w", err)
		}
		e.ID = id.String()
	}

	res, err := l.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, implementation, artifact, fixture_digest, environment_digest, signature, draws)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		e.ID,
		e.Implementation,
		e.Artifact,
		e.FixtureDigest,
		e.EnvironmentDigest,
		e.Signature,
		e.Draws,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("record: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return Entry{}, fmt.Errorf("record: reading seq: %w", err)
	}
	e.Seq = seq
	return e, nil
}

// Latest returns the newest entry per implementation for a digest pair,
// ordered by implementation label.
func (l *Ledger) Latest(ctx context.Context, fixtureDigest, envDigest string) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT r.seq, r.id, r.implementation, r.artifact, r.fixture_digest,
		       r.environment_digest, r.signature, r.draws
		FROM runs r
		WHERE r.fixture_digest = ? AND r.environment_digest = ?
		  AND r.seq = (
		      SELECT MAX(seq) FROM runs
		      WHERE fixture_digest = r.fixture_digest
		        AND environment_digest = r.environment_digest
		        AND implementation = r.implementation
		  )
		ORDER BY r.implementation ASC COLLATE BINARY
	`, fixtureDigest, envDigest)
	if err != nil {
		return nil, fmt.Errorf("latest: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Seq, &e.ID, &e.Implementation, &e.Artifact,
			&e.FixtureDigest, &e.EnvironmentDigest, &e.Signature, &e.Draws); err != nil {
			return nil, fmt.Errorf("latest: scan: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("latest: %w", err)
	}
	return entries, nil
}

// Comparison groups the latest entries of each implementation by
// signature.
type Comparison struct {
	FixtureDigest     string              `json:"fixture_digest"`
	EnvironmentDigest string              `json:"environment_digest"`
	Entries           []Entry             `json:"entries"`
	BySignature       map[string][]string `json:"by_signature"`
}

// Conformant reports whether at least two implementations were recorded
// and all of them agree.
func (c *Comparison) Conformant() bool {
	return len(c.Entries) >= 2 && len(c.BySignature) == 1
}

// Signatures returns the distinct signatures in sorted order.
func (c *Comparison) Signatures() []string {
	sigs := make([]string, 0, len(c.BySignature))
	for s := range c.BySignature {
		sigs = append(sigs, s)
	}
	sort.Strings(sigs)
	return sigs
}

// Compare loads the latest entries for a digest pair and groups them.
func (l *Ledger) Compare(ctx context.Context, fixtureDigest, envDigest string) (*Comparison, error) {
	entries, err := l.Latest(ctx, fixtureDigest, envDigest)
	if err != nil {
		return nil, err
	}

	c := &Comparison{
		FixtureDigest:     fixtureDigest,
		EnvironmentDigest: envDigest,
		Entries:           entries,
		BySignature:       make(map[string][]string),
	}
	for _, e := range entries {
		c.BySignature[e.Signature] = append(c.BySignature[e.Signature], e.Implementation)
	}
	return c, nil
}
