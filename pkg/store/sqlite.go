package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Sternrassler/parldok-indexer/pkg/parldok"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS records (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	title       TEXT,
	link        TEXT,
	reference   TEXT,
	type        TEXT,
	date        TEXT NOT NULL,
	inserted_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
);
CREATE INDEX IF NOT EXISTS idx_records_date ON records(date);
CREATE INDEX IF NOT EXISTS idx_records_reference ON records(reference);
`

// SQLite stores records in a local SQLite database.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
// ":memory:" gives a private in-memory database.
func OpenSQLite(path string) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Inserts are sequential; one connection also keeps :memory: a single database.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=10000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Name returns "sqlite".
func (s *SQLite) Name() string { return BackendSQLite }

// Insert stores rec. Empty optional fields are stored as NULL.
func (s *SQLite) Insert(ctx context.Context, rec parldok.Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO records (title, link, reference, type, date) VALUES (?, ?, ?, ?, ?)`,
		nullable(rec.Title), nullable(rec.Link), nullable(rec.Reference), nullable(rec.Type), rec.Date,
	)
	if err != nil {
		return fmt.Errorf("sqlite insert: %w", err)
	}
	return nil
}

// Records returns all stored records in insertion order.
func (s *SQLite) Records(ctx context.Context) ([]parldok.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT title, link, reference, type, date FROM records ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []parldok.Record
	for rows.Next() {
		var title, link, reference, typ sql.NullString
		var rec parldok.Record
		if err := rows.Scan(&title, &link, &reference, &typ, &rec.Date); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.Title, rec.Link, rec.Reference, rec.Type = title.String, link.String, reference.String, typ.String
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Count returns the number of stored records.
func (s *SQLite) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
