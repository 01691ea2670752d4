package testutil

import (
	"path/filepath"
	"testing"

	"github.com/HerbHall/labtrack/internal/store"
)

// NewStore opens a private in-memory store closed at test cleanup.
func NewStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	return openStore(t, ":memory:")
}

// NewFileStore opens a store backed by a file in a temp directory, for
// tests that need WAL behavior or a second connection to the same data.
func NewFileStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	return openStore(t, filepath.Join(t.TempDir(), "labtrack.db"))
}

func openStore(t *testing.T, path string) *store.SQLiteStore {
	t.Helper()
	s, err := store.New(path)
	if err != nil {
		t.Fatalf("open store %s: %v", path, err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}
