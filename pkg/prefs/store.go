// Package prefs persists small viewer preferences, such as the zoom level,
// in a key-value store.
package prefs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrNotFound is returned by Get when a key has never been written
var ErrNotFound = errors.New("preference not found")

// Store is a string key-value store
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Backend is a Store that holds external resources
type Backend interface {
	Store
	Ping(ctx context.Context) error
	Close() error
}

// MemoryStore keeps preferences in process memory
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Get returns the value for key
func (m *MemoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// Set stores value under key
func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// Ping always succeeds
func (m *MemoryStore) Ping(context.Context) error { return nil }

// Close is a no-op
func (m *MemoryStore) Close() error { return nil }

// Open selects a backend from a location string:
//
//	memory:                      in-process map
//	file:/path/prefs.yaml        YAML file
//	sqlite:/path/prefs.db        SQLite database
//	postgres://user@host/db      PostgreSQL (also postgresql://)
//
// A bare path is treated as a YAML file.
func Open(ctx context.Context, location string) (Backend, error) {
	var (
		b   Backend
		err error
	)
	switch {
	case location == "" || location == "memory:":
		return NewMemoryStore(), nil
	case strings.HasPrefix(location, "postgres://"), strings.HasPrefix(location, "postgresql://"):
		var pg *PGStore
		if pg, err = NewPGStore(ctx, location); err == nil {
			b = pg
		}
	case strings.HasPrefix(location, "sqlite:"):
		var lite *SQLiteStore
		if lite, err = OpenSQLite(strings.TrimPrefix(location, "sqlite:")); err == nil {
			b = lite
		}
	case strings.Contains(location, "://"):
		return nil, fmt.Errorf("prefs: unsupported location %q", location)
	default:
		var file *FileStore
		if file, err = OpenFile(strings.TrimPrefix(location, "file:")); err == nil {
			b = file
		}
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}
