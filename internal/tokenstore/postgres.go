package tokenstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps credential records in a single-row-per-provider table,
// for deployments that already run Postgres. The default deployment uses
// FileStore.
type PostgresStore struct {
	pool *pgxpool.Pool
}

const createTokensTable = `
CREATE TABLE IF NOT EXISTS provider_tokens (
    provider   text PRIMARY KEY,
    record     bytea NOT NULL,
    updated_at timestamptz NOT NULL DEFAULT now()
)`

// NewPostgresStore creates the backing table if needed and returns the store.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	if _, err := pool.Exec(ctx, createTokensTable); err != nil {
		return nil, fmt.Errorf("tokenstore: create provider_tokens: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Save upserts the provider's record.
func (s *PostgresStore) Save(ctx context.Context, provider string, record []byte) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO provider_tokens (provider, record, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (provider) DO UPDATE SET record = $2, updated_at = now()`,
		provider, record)
	if err != nil {
		return fmt.Errorf("tokenstore: upsert %s: %w", provider, err)
	}
	return nil
}

// Load returns the provider's record, or ErrNotFound.
func (s *PostgresStore) Load(ctx context.Context, provider string) ([]byte, error) {
	var record []byte
	err := s.pool.QueryRow(ctx,
		`SELECT record FROM provider_tokens WHERE provider = $1`, provider).Scan(&record)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("tokenstore: load %s: %w", provider, err)
	}
	return record, nil
}
