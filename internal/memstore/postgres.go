package memstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists memory records in PostgreSQL so they survive process
// restarts. Upsert keeps the original created_at so insertion order is stable.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS memory_items (
			category TEXT NOT NULL,
			user_id TEXT NOT NULL,
			key TEXT NOT NULL,
			value JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (category, user_id, key)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_memory_items_ns ON memory_items (category, user_id, created_at);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) Put(ctx context.Context, ns Namespace, key string, value json.RawMessage) error {
	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO memory_items (category, user_id, key, value, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $5)
		 ON CONFLICT (category, user_id, key)
		 DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		string(ns.Category),
		ns.UserID,
		key,
		value,
		now,
	)
	if err != nil {
		return fmt.Errorf("put memory item: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, ns Namespace, key string) (Item, error) {
	var it Item
	err := s.pool.QueryRow(ctx,
		`SELECT key, value, created_at, updated_at
		 FROM memory_items WHERE category=$1 AND user_id=$2 AND key=$3`,
		string(ns.Category),
		ns.UserID,
		key,
	).Scan(&it.Key, &it.Value, &it.CreatedAt, &it.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, ErrNotFound
	}
	if err != nil {
		return Item{}, fmt.Errorf("get memory item: %w", err)
	}
	return it, nil
}

func (s *PostgresStore) Search(ctx context.Context, ns Namespace) ([]Item, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT key, value, created_at, updated_at
		 FROM memory_items WHERE category=$1 AND user_id=$2 ORDER BY created_at`,
		string(ns.Category),
		ns.UserID,
	)
	if err != nil {
		return nil, fmt.Errorf("search namespace: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.Key, &it.Value, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan memory item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate memory items: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
