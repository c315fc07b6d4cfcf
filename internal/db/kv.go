package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonathan/resumind/internal/kv"
)

// KVStore implements kv.Store on the kv_entries table.
type KVStore struct {
	pool *pgxpool.Pool
}

var _ kv.Store = (*KVStore)(nil)

// Get implements kv.Store.
func (s *KVStore) Get(ctx context.Context, owner, key string) (string, bool, error) {
	if err := kv.CheckScope(owner, key); err != nil {
		return "", false, err
	}
	var value string
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM kv_entries WHERE owner = $1 AND key = $2`,
		owner, key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return value, true, nil
}

// Set implements kv.Store.
func (s *KVStore) Set(ctx context.Context, owner, key, value string) error {
	if err := kv.CheckScope(owner, key); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO kv_entries (owner, key, value)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (owner, key) DO UPDATE SET value = $3, updated_at = NOW()`,
		owner, key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

// Delete implements kv.Store.
func (s *KVStore) Delete(ctx context.Context, owner, key string) (bool, error) {
	if err := kv.CheckScope(owner, key); err != nil {
		return false, err
	}
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM kv_entries WHERE owner = $1 AND key = $2`,
		owner, key,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return tag.RowsAffected() > 0, nil
}

// List implements kv.Store.
func (s *KVStore) List(ctx context.Context, owner, pattern string, withValues bool) ([]kv.Entry, error) {
	if owner == "" {
		return nil, kv.ErrEmptyOwner
	}
	matcher, err := kv.CompilePattern(pattern)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT key, value FROM kv_entries
		 WHERE owner = $1 AND key LIKE $2 ESCAPE '\'
		 ORDER BY key`,
		owner, matcher.LikePrefix(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	defer rows.Close()

	entries := []kv.Entry{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		if !matcher.Match(key) {
			continue
		}
		e := kv.Entry{Key: key}
		if withValues {
			e.Value = value
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Flush implements kv.Store.
func (s *KVStore) Flush(ctx context.Context, owner string) error {
	if owner == "" {
		return kv.ErrEmptyOwner
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM kv_entries WHERE owner = $1`, owner); err != nil {
		return fmt.Errorf("failed to flush keys: %w", err)
	}
	return nil
}

// Close is a no-op; the pool belongs to DB.
func (s *KVStore) Close() error {
	return nil
}
