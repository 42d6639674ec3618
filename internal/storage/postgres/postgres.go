package postgres

import (
	"context"
	"fmt"

	"github.com/FranksOps/stockists/internal/results"
	"github.com/FranksOps/stockists/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ensure postgresBackend implements storage.Backend
var _ storage.Backend = (*postgresBackend)(nil)

type postgresBackend struct {
	pool *pgxpool.Pool
	host string
}

const schema = `
CREATE TABLE IF NOT EXISTS stockist_links (
	id BIGSERIAL PRIMARY KEY,
	url TEXT NOT NULL UNIQUE,
	query TEXT NOT NULL,
	title TEXT NOT NULL,
	description TEXT NOT NULL,
	run_id UUID NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
`

const insert = `
INSERT INTO stockist_links (url, query, title, description, run_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (url) DO NOTHING
`

// New creates a new Postgres-backed storage.Backend. A URL already stored
// by an earlier run keeps its original row.
func New(ctx context.Context, dsn string) (storage.Backend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	return &postgresBackend{pool: pool, host: pool.Config().ConnConfig.Host}, nil
}

func (b *postgresBackend) Save(ctx context.Context, batch storage.Batch) error {
	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return &storage.WriteError{Path: b.host, Err: err}
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows := &pgx.Batch{}
	for _, r := range batch.Records {
		rows.Queue(insert, r.URL, r.Query, r.Title, r.Description, batch.RunID, batch.CreatedAt)
	}
	if err := tx.SendBatch(ctx, rows).Close(); err != nil {
		return &storage.WriteError{Path: b.host, Err: err}
	}

	if err := tx.Commit(ctx); err != nil {
		return &storage.WriteError{Path: b.host, Err: err}
	}
	return nil
}

func (b *postgresBackend) Query(ctx context.Context, filter storage.Filter) ([]results.CleanedRecord, error) {
	query := `SELECT query, url, title, description FROM stockist_links WHERE 1=1`
	args := []any{}
	paramCount := 1

	if filter.Query != "" {
		query += fmt.Sprintf(` AND query = $%d`, paramCount)
		args = append(args, filter.Query)
		paramCount++
	}
	if filter.URL != "" {
		query += fmt.Sprintf(` AND url = $%d`, paramCount)
		args = append(args, filter.URL)
		paramCount++
	}

	query += ` ORDER BY id ASC`

	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, paramCount)
		args = append(args, filter.Limit)
		paramCount++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, paramCount)
		args = append(args, filter.Offset)
	}

	rows, err := b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	defer rows.Close()

	var out []results.CleanedRecord
	for rows.Next() {
		var r results.CleanedRecord
		if err := rows.Scan(&r.Query, &r.URL, &r.Title, &r.Description); err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		out = append(out, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}

	return out, nil
}

func (b *postgresBackend) Close() error {
	b.pool.Close()
	return nil
}
