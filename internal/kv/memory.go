package kv

import (
	"context"
	"sort"
	"sync"
)

// Memory is an in-process Store, used for development and tests.
type Memory struct {
	mu   sync.RWMutex
	data map[string]map[string]string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]map[string]string)}
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, owner, key string) (string, bool, error) {
	if err := CheckScope(owner, key); err != nil {
		return "", false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[owner][key]
	return v, ok, nil
}

// Set implements Store.
func (m *Memory) Set(_ context.Context, owner, key, value string) error {
	if err := CheckScope(owner, key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data[owner] == nil {
		m.data[owner] = make(map[string]string)
	}
	m.data[owner][key] = value
	return nil
}

// Delete implements Store.
func (m *Memory) Delete(_ context.Context, owner, key string) (bool, error) {
	if err := CheckScope(owner, key); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[owner][key]; !ok {
		return false, nil
	}
	delete(m.data[owner], key)
	return true, nil
}

// List implements Store.
func (m *Memory) List(_ context.Context, owner, pattern string, withValues bool) ([]Entry, error) {
	if owner == "" {
		return nil, ErrEmptyOwner
	}
	matcher, err := CompilePattern(pattern)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := []Entry{}
	for k, v := range m.data[owner] {
		if !matcher.Match(k) {
			continue
		}
		e := Entry{Key: k}
		if withValues {
			e.Value = v
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

// Flush implements Store.
func (m *Memory) Flush(_ context.Context, owner string) error {
	if owner == "" {
		return ErrEmptyOwner
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, owner)
	return nil
}

// Close implements Store.
func (m *Memory) Close() error {
	return nil
}
