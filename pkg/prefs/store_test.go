package prefs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore runs the shared contract against any backend
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "forcegraph.scale")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "forcegraph.scale", "1.5"))
	v, err := s.Get(ctx, "forcegraph.scale")
	require.NoError(t, err)
	assert.Equal(t, "1.5", v)

	require.NoError(t, s.Set(ctx, "forcegraph.scale", "0.3"))
	v, err = s.Get(ctx, "forcegraph.scale")
	require.NoError(t, err)
	assert.Equal(t, "0.3", v)

	require.NoError(t, s.Set(ctx, "other", ""))
	v, err = s.Get(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, "", v)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "prefs.yaml")
	s, err := OpenFile(path)
	require.NoError(t, err)
	exerciseStore(t, s)

	// a second handle sees the flushed values
	reopened, err := OpenFile(path)
	require.NoError(t, err)
	v, err := reopened.Get(context.Background(), "forcegraph.scale")
	require.NoError(t, err)
	assert.Equal(t, "0.3", v)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `forcegraph.scale: "0.3"`)
	assert.NoError(t, s.Ping(context.Background()))
}

func TestFileStoreRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- not\n- a map\n"), 0o644))
	_, err := OpenFile(path)
	assert.Error(t, err)
}

func TestFileStoreHonoursCancelledContext(t *testing.T) {
	s, err := OpenFile(filepath.Join(t.TempDir(), "prefs.yaml"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Set(ctx, "k", "v"), context.Canceled)

	_, err = s.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.db")
	s, err := OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)
	assert.NoError(t, s.Ping(context.Background()))
	assert.Equal(t, path, s.Path())
}

func TestPGStore(t *testing.T) {
	url := os.Getenv("FORCEGRAPH_TEST_PG_URL")
	if url == "" {
		t.Skip("FORCEGRAPH_TEST_PG_URL not set")
	}

	ctx := context.Background()
	s, err := NewPGStore(ctx, url)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.pool.Exec(ctx, "DELETE FROM forcegraph_preferences")
	require.NoError(t, err)
	exerciseStore(t, s)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		location string
		check    func(Backend) bool
	}{
		{"", func(b Backend) bool { _, ok := b.(*MemoryStore); return ok }},
		{"memory:", func(b Backend) bool { _, ok := b.(*MemoryStore); return ok }},
		{"file:" + filepath.Join(dir, "a.yaml"), func(b Backend) bool { _, ok := b.(*FileStore); return ok }},
		{filepath.Join(dir, "b.yaml"), func(b Backend) bool { _, ok := b.(*FileStore); return ok }},
		{"sqlite:" + filepath.Join(dir, "c.db"), func(b Backend) bool { _, ok := b.(*SQLiteStore); return ok }},
	}

	for _, tt := range tests {
		t.Run(tt.location, func(t *testing.T) {
			b, err := Open(ctx, tt.location)
			require.NoError(t, err)
			defer b.Close()
			assert.True(t, tt.check(b), "unexpected backend %T", b)
		})
	}

	_, err := Open(ctx, "redis://localhost")
	assert.Error(t, err)

	b, err := Open(ctx, "sqlite:")
	assert.Error(t, err)
	assert.Nil(t, b)
}

func TestErrNotFoundIsSentinel(t *testing.T) {
	_, err := NewMemoryStore().Get(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}
