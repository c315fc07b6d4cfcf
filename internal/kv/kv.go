// Package kv provides the per-user key-value store that holds resume records.
package kv

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// ErrEmptyOwner is returned when an operation is not scoped to an owner.
var ErrEmptyOwner = errors.New("kv: owner is required")

// ErrEmptyKey is returned when a key is empty.
var ErrEmptyKey = errors.New("kv: key is required")

// Entry is one key with its value. Value is empty when values were not requested.
type Entry struct {
	Key   string `json:"key"`
	Value string `json:"value,omitempty"`
}

// Store is a key-value store partitioned by owner.
// Operations on one owner never observe or modify another owner's keys.
type Store interface {
	// Get returns the value for key and whether it exists.
	Get(ctx context.Context, owner, key string) (string, bool, error)
	// Set creates or replaces the value for key.
	Set(ctx context.Context, owner, key, value string) error
	// Delete removes key and reports whether it existed.
	Delete(ctx context.Context, owner, key string) (bool, error)
	// List returns entries whose key matches the glob pattern, sorted by key.
	List(ctx context.Context, owner, pattern string, withValues bool) ([]Entry, error)
	// Flush removes every key of owner.
	Flush(ctx context.Context, owner string) error
	// Close releases resources held by the store.
	Close() error
}

// Matcher matches keys against a glob pattern using "*" and "?" wildcards.
type Matcher struct {
	pattern string
	g       glob.Glob
}

// CompilePattern compiles a key pattern. An empty pattern matches every key.
func CompilePattern(pattern string) (*Matcher, error) {
	if pattern == "" {
		pattern = "*"
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("kv: invalid pattern %q: %w", pattern, err)
	}
	return &Matcher{pattern: pattern, g: g}, nil
}

// Match reports whether key matches the pattern.
func (m *Matcher) Match(key string) bool {
	return m.g.Match(key)
}

// Prefix returns the literal text before the first wildcard.
// SQL backends narrow their scan with it before matching in Go.
func (m *Matcher) Prefix() string {
	if i := strings.IndexAny(m.pattern, "*?[{\\"); i >= 0 {
		return m.pattern[:i]
	}
	return m.pattern
}

// LikePrefix returns Prefix escaped for a SQL LIKE clause with "\" as the escape character,
// followed by "%".
func (m *Matcher) LikePrefix() string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(m.Prefix()) + "%"
}

// CheckScope validates that an operation names both an owner and a key.
func CheckScope(owner, key string) error {
	if owner == "" {
		return ErrEmptyOwner
	}
	if key == "" {
		return ErrEmptyKey
	}
	return nil
}
