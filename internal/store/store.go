package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Version is the generator version recorded into every metadata artifact.
// The in-process pass refuses an artifact written by a different version:
// the fingerprint algorithm is a protocol, and mixed versions must fail
// loudly rather than diverge silently.
const Version = "0.1.0"

// Capability flags recorded per class invocation.
const (
	FlagDestructible         = 1 << 0
	FlagCopyable             = 1 << 1
	FlagComparable           = 1 << 2
	FlagDefaultConstructible = 1 << 3
)

// Record is one invocation's build-time metadata.
type Record struct {
	Fingerprint string
	Kind        string
	Scope       string
	Ordinal     int
	Line        int
	// Size and Align are the native type's measured layout, meaningful for
	// class records only.
	Size  int
	Align int
	// Flags is a bitset of the Flag* capability constants.
	Flags int
}

// HasFlag reports whether a capability flag is set.
func (r Record) HasFlag(flag int) bool { return r.Flags&flag != 0 }

// Store provides durable storage for build metadata.
// Uses SQLite with WAL mode for concurrent read access.
type Store struct {
	db *sql.DB
}

// Open creates or opens the metadata database at the given path.
// Applies required pragmas and the schema automatically; idempotent.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY during the build-time pass.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Reset clears all invocation records and stamps the generator version.
// Called at the start of every build-time pass.
func (s *Store) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM invocations`); err != nil {
		return fmt.Errorf("reset invocations: %w", err)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO meta (key, value) VALUES ('version', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, Version)
	if err != nil {
		return fmt.Errorf("stamp version: %w", err)
	}
	return nil
}

// WriteRecord upserts one invocation record.
func (s *Store) WriteRecord(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO invocations
		(fingerprint, kind, scope, ordinal, line, size, align, flags)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(fingerprint) DO UPDATE SET
			kind = excluded.kind,
			scope = excluded.scope,
			ordinal = excluded.ordinal,
			line = excluded.line,
			size = excluded.size,
			align = excluded.align,
			flags = excluded.flags
	`,
		rec.Fingerprint, rec.Kind, rec.Scope, rec.Ordinal,
		rec.Line, rec.Size, rec.Align, rec.Flags,
	)
	if err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

// ReadRecord looks an invocation up by fingerprint.
// The boolean is false when no record exists — the caller decides whether
// that is a protocol failure.
func (s *Store) ReadRecord(ctx context.Context, fingerprint string) (Record, bool, error) {
	var rec Record
	err := s.db.QueryRowContext(ctx, `
		SELECT fingerprint, kind, scope, ordinal, line, size, align, flags
		FROM invocations WHERE fingerprint = ?
	`, fingerprint).Scan(
		&rec.Fingerprint, &rec.Kind, &rec.Scope, &rec.Ordinal,
		&rec.Line, &rec.Size, &rec.Align, &rec.Flags,
	)
	if err == sql.ErrNoRows {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("read record: %w", err)
	}
	return rec, true, nil
}

// ListRecords returns all records ordered by (scope, kind, ordinal) for
// deterministic iteration.
func (s *Store) ListRecords(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT fingerprint, kind, scope, ordinal, line, size, align, flags
		FROM invocations ORDER BY scope, kind, ordinal
	`)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(
			&rec.Fingerprint, &rec.Kind, &rec.Scope, &rec.Ordinal,
			&rec.Line, &rec.Size, &rec.Align, &rec.Flags,
		); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// WrittenVersion returns the generator version stamped into the artifact,
// or "" when the artifact was never stamped.
func (s *Store) WrittenVersion(ctx context.Context) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM meta WHERE key = 'version'`).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read version: %w", err)
	}
	return v, nil
}

// CheckVersion fails unless the artifact was written by this generator
// version.
func (s *Store) CheckVersion(ctx context.Context) error {
	v, err := s.WrittenVersion(ctx)
	if err != nil {
		return err
	}
	if v != Version {
		return fmt.Errorf("metadata version mismatch: artifact %q, generator %q", v, Version)
	}
	return nil
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
