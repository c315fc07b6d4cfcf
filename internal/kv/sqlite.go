package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS kv_entries (
	owner      TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (owner, key)
)`

// SQLite is a Store backed by a local SQLite file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and ensures the schema exists.
// Use ":memory:" for a throwaway database.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create kv schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Get implements Store.
func (s *SQLite) Get(ctx context.Context, owner, key string) (string, bool, error) {
	if err := CheckScope(owner, key); err != nil {
		return "", false, err
	}
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM kv_entries WHERE owner = ? AND key = ?`, owner, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return value, true, nil
}

// Set implements Store.
func (s *SQLite) Set(ctx context.Context, owner, key, value string) error {
	if err := CheckScope(owner, key); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv_entries (owner, key, value) VALUES (?, ?, ?)
		 ON CONFLICT (owner, key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		owner, key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

// Delete implements Store.
func (s *SQLite) Delete(ctx context.Context, owner, key string) (bool, error) {
	if err := CheckScope(owner, key); err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE owner = ? AND key = ?`, owner, key)
	if err != nil {
		return false, fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return n > 0, nil
}

// List implements Store.
func (s *SQLite) List(ctx context.Context, owner, pattern string, withValues bool) ([]Entry, error) {
	if owner == "" {
		return nil, ErrEmptyOwner
	}
	matcher, err := CompilePattern(pattern)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM kv_entries WHERE owner = ? AND key LIKE ? ESCAPE '\' ORDER BY key`,
		owner, matcher.LikePrefix(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var value string
		if err := rows.Scan(&e.Key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		if !matcher.Match(e.Key) {
			continue
		}
		if withValues {
			e.Value = value
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Flush implements Store.
func (s *SQLite) Flush(ctx context.Context, owner string) error {
	if owner == "" {
		return ErrEmptyOwner
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE owner = ?`, owner); err != nil {
		return fmt.Errorf("failed to flush keys: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *SQLite) Close() error {
	return s.db.Close()
}
