package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/FranksOps/stockists/internal/results"
	"github.com/FranksOps/stockists/internal/storage"
	_ "modernc.org/sqlite"
)

// ensure sqliteBackend implements storage.Backend
var _ storage.Backend = (*sqliteBackend)(nil)

type sqliteBackend struct {
	db  *sql.DB
	dsn string
}

const schema = `
CREATE TABLE IF NOT EXISTS stockist_links (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	url TEXT NOT NULL UNIQUE,
	query TEXT NOT NULL,
	title TEXT NOT NULL,
	description TEXT NOT NULL,
	run_id TEXT NOT NULL,
	created_at DATETIME NOT NULL
);
`

// New creates a new SQLite-backed storage.Backend. A URL already stored by
// an earlier run keeps its original row.
func New(dsn string) (storage.Backend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: %w", err)
	}

	return &sqliteBackend{db: db, dsn: dsn}, nil
}

func (b *sqliteBackend) Save(ctx context.Context, batch storage.Batch) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return &storage.WriteError{Path: b.dsn, Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO stockist_links (url, query, title, description, run_id, created_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT (url) DO NOTHING
	`)
	if err != nil {
		return &storage.WriteError{Path: b.dsn, Err: err}
	}
	defer stmt.Close()

	for _, r := range batch.Records {
		if _, err := stmt.ExecContext(ctx, r.URL, r.Query, r.Title, r.Description, batch.RunID, batch.CreatedAt); err != nil {
			return &storage.WriteError{Path: b.dsn, Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &storage.WriteError{Path: b.dsn, Err: err}
	}
	return nil
}

func (b *sqliteBackend) Query(ctx context.Context, filter storage.Filter) ([]results.CleanedRecord, error) {
	query := `SELECT query, url, title, description FROM stockist_links WHERE 1=1`
	args := []any{}

	if filter.Query != "" {
		query += ` AND query = ?`
		args = append(args, filter.Query)
	}
	if filter.URL != "" {
		query += ` AND url = ?`
		args = append(args, filter.URL)
	}

	query += ` ORDER BY id ASC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	} else if filter.Offset > 0 {
		// SQLite only accepts OFFSET after a LIMIT; -1 means no limit.
		query += ` LIMIT -1`
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}
	defer rows.Close()

	var out []results.CleanedRecord
	for rows.Next() {
		var r results.CleanedRecord
		if err := rows.Scan(&r.Query, &r.URL, &r.Title, &r.Description); err != nil {
			return nil, fmt.Errorf("sqlite: %w", err)
		}
		out = append(out, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}

	return out, nil
}

func (b *sqliteBackend) Close() error {
	return b.db.Close()
}
