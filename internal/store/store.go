// Package store provides the relational storage adapters for users,
// projects, assets, chunks, and query logs over PostgreSQL.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

var (
	// ErrNotFound indicates a row that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate indicates a unique constraint violation.
	ErrDuplicate = errors.New("duplicate")
)

// uniqueViolation is the PostgreSQL error code for unique constraint hits.
const uniqueViolation = "23505"

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}

// NewPool creates a pgx connection pool. With registerVector, every
// connection installs the pgvector extension and registers its types so the
// pool can be shared with the pgvector-backed vector store.
func NewPool(ctx context.Context, databaseURL string, registerVector bool) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database url: %w", err)
	}

	if registerVector {
		poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			if _, err := conn.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
				return fmt.Errorf("installing vector extension: %w", err)
			}
			return pgxvec.RegisterTypes(ctx, conn)
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the application tables when missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id bigserial PRIMARY KEY,
			user_uuid uuid NOT NULL UNIQUE DEFAULT gen_random_uuid(),
			email varchar(255) NOT NULL UNIQUE,
			hashed_password varchar(255) NOT NULL,
			is_active boolean NOT NULL DEFAULT true,
			is_superuser boolean NOT NULL DEFAULT false,
			created_at timestamptz NOT NULL DEFAULT now(),
			updated_at timestamptz
		)`,
		`CREATE TABLE IF NOT EXISTS projects (
			project_id bigserial PRIMARY KEY,
			project_uuid uuid NOT NULL UNIQUE DEFAULT gen_random_uuid(),
			user_id bigint NOT NULL REFERENCES users(user_id),
			project_code bigint NOT NULL,
			created_at timestamptz NOT NULL DEFAULT now(),
			updated_at timestamptz,
			UNIQUE (user_id, project_code)
		)`,
		`CREATE TABLE IF NOT EXISTS assets (
			asset_id bigserial PRIMARY KEY,
			asset_uuid uuid NOT NULL UNIQUE DEFAULT gen_random_uuid(),
			asset_project_id bigint NOT NULL REFERENCES projects(project_id) ON DELETE CASCADE,
			asset_type varchar(32) NOT NULL,
			asset_name varchar(512) NOT NULL,
			asset_size bigint NOT NULL DEFAULT 0,
			created_at timestamptz NOT NULL DEFAULT now(),
			UNIQUE (asset_project_id, asset_name)
		)`,
		`CREATE TABLE IF NOT EXISTS chunks (
			chunk_id bigserial PRIMARY KEY,
			chunk_uuid uuid NOT NULL UNIQUE DEFAULT gen_random_uuid(),
			chunk_text text NOT NULL,
			chunk_metadata jsonb NOT NULL DEFAULT '{}',
			chunk_order integer NOT NULL,
			chunk_project_id bigint NOT NULL REFERENCES projects(project_id) ON DELETE CASCADE,
			chunk_asset_id bigint NOT NULL REFERENCES assets(asset_id) ON DELETE CASCADE,
			created_at timestamptz NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS chunks_project_idx ON chunks (chunk_project_id)`,
		`CREATE TABLE IF NOT EXISTS query_logs (
			log_id bigserial PRIMARY KEY,
			log_uuid uuid NOT NULL UNIQUE DEFAULT gen_random_uuid(),
			user_id bigint NOT NULL REFERENCES users(user_id),
			question text NOT NULL,
			llm_response text NOT NULL,
			response_time_ms double precision NOT NULL,
			created_at timestamptz NOT NULL DEFAULT now()
		)`,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensuring schema: %w", err)
		}
	}
	return nil
}

// Pagination bounds shared by list operations.
const (
	MaxPageSize     = 100
	DefaultPageSize = 10
)

// ClampPage normalizes page and pageSize: page >= 1, and any pageSize
// outside [1, 100] falls back to the default.
func ClampPage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > MaxPageSize {
		pageSize = DefaultPageSize
	}
	return page, pageSize
}
