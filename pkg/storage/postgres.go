package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS documents (
	path       TEXT PRIMARY KEY,
	parent     TEXT NOT NULL,
	data       BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS documents_parent_idx ON documents (parent, path);
ALTER TABLE documents ADD COLUMN IF NOT EXISTS version BIGINT NOT NULL DEFAULT 0;
`

// PostgresStorage implements Storage on a single documents table. The parent
// column indexes the directory part of each path so List stays an index scan.
// Every write bumps the version column used by WriteIfVersion.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage connects to dsn, verifies the connection and ensures the
// documents table exists.
func NewPostgresStorage(ctx context.Context, dsn string) (*PostgresStorage, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate documents table: %w", err)
	}
	return &PostgresStorage{pool: pool}, nil
}

func (s *PostgresStorage) Close() {
	s.pool.Close()
}

func parentOf(p string) string {
	dir := path.Dir(strings.TrimPrefix(p, "/"))
	if dir == "." {
		return ""
	}
	return dir
}

func (s *PostgresStorage) Read(ctx context.Context, p string) ([]byte, error) {
	data, _, err := s.ReadVersion(ctx, p)
	return data, err
}

func (s *PostgresStorage) ReadVersion(ctx context.Context, p string) ([]byte, string, error) {
	var (
		data    []byte
		version int64
	)
	err := s.pool.QueryRow(ctx, `SELECT data, version FROM documents WHERE path = $1`, p).Scan(&data, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, "", fmt.Errorf("%s: %w", p, ErrNotFound)
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", p, err)
	}
	return data, strconv.FormatInt(version, 10), nil
}

func (s *PostgresStorage) Write(ctx context.Context, p string, data []byte) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO documents (path, parent, data, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (path) DO UPDATE
		 SET data = EXCLUDED.data, version = documents.version + 1, updated_at = now()`,
		p, parentOf(p), data,
	)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", p, err)
	}
	return nil
}

func (s *PostgresStorage) WriteIfVersion(ctx context.Context, p string, data []byte, version string) error {
	want, err := strconv.ParseInt(version, 10, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", p, ErrConflict)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE documents SET data = $3, version = version + 1, updated_at = now()
		 WHERE path = $1 AND version = $2`,
		p, want, data,
	)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", p, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	exists, err := s.Exists(ctx, p)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%s: %w", p, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", p, ErrConflict)
}

func (s *PostgresStorage) Delete(ctx context.Context, p string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE path = $1`, p)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", p, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", p, ErrNotFound)
	}
	return nil
}

func (s *PostgresStorage) List(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT path FROM documents WHERE parent = $1 ORDER BY path`,
		strings.Trim(prefix, "/"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
	}
	paths, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
	}
	return paths, nil
}

func (s *PostgresStorage) Exists(ctx context.Context, p string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM documents WHERE path = $1)`, p).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", p, err)
	}
	return exists, nil
}
