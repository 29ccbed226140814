package state

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists node state to PostgreSQL through a pgx pool.
type PostgresStore struct {
	pool    *pgxpool.Pool
	timeout time.Duration
	mu      sync.RWMutex
	closed  bool
}

const defaultPostgresTimeout = 5 * time.Second

// NewPostgresStore connects to dsn and ensures the state table exists.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultPostgresTimeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return NewPostgresStoreFromPool(ctx, pool)
}

// NewPostgresStoreFromPool uses an existing pool. The store owns the pool
// and closes it on Close.
func NewPostgresStoreFromPool(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	if _, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS node_state (
			name       TEXT PRIMARY KEY,
			blob       TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}
	return &PostgresStore{pool: pool, timeout: defaultPostgresTimeout}, nil
}

func (s *PostgresStore) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

// Save implements Store.
func (s *PostgresStore) Save(name, blob string) error {
	if err := validateName(name); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}

	ctx, cancel := s.ctx()
	defer cancel()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO node_state (name, blob, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE SET
			blob = EXCLUDED.blob,
			updated_at = EXCLUDED.updated_at`, name, blob)
	if err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// Load implements Store.
func (s *PostgresStore) Load(name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", ErrStoreClosed
	}

	ctx, cancel := s.ctx()
	defer cancel()
	var blob string
	err := s.pool.QueryRow(ctx, `SELECT blob FROM node_state WHERE name = $1`, name).Scan(&blob)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("load state: %w", err)
	}
	return blob, nil
}

// List implements Store.
func (s *PostgresStore) List() ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	ctx, cancel := s.ctx()
	defer cancel()
	rows, err := s.pool.Query(ctx, `
		SELECT name, updated_at, octet_length(blob)
		FROM node_state
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list state: %w", err)
	}
	defer rows.Close()

	var infos []Info
	for rows.Next() {
		var info Info
		var size int32
		if err := rows.Scan(&info.Name, &info.UpdatedAt, &size); err != nil {
			return nil, fmt.Errorf("scan state info: %w", err)
		}
		info.Size = int64(size)
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate state: %w", err)
	}
	return infos, nil
}

// Delete implements Store.
func (s *PostgresStore) Delete(name string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}

	ctx, cancel := s.ctx()
	defer cancel()
	if _, err := s.pool.Exec(ctx, `DELETE FROM node_state WHERE name = $1`, name); err != nil {
		return fmt.Errorf("delete state: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *PostgresStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.pool.Close()
	return nil
}
