// ABOUTME: Tests for SQLite store implementation
// ABOUTME: Covers schema creation, activation journaling, and the audit log

package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNewSQLiteStore(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "subdir", "test.db")

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "database file should exist")
}

func TestSaveAndListActivations(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveActivation(ctx, "alice", "devices"))
	require.NoError(t, store.SaveActivation(ctx, "alice", "streams"))
	require.NoError(t, store.SaveActivation(ctx, "bob", "devices"))

	// Saving the same pair again must not create a second row
	require.NoError(t, store.SaveActivation(ctx, "alice", "devices"))

	activations, err := store.ListActivations(ctx)
	require.NoError(t, err)
	require.Len(t, activations, 3)

	seen := make(map[string]bool)
	for _, a := range activations {
		seen[a.TenantID+"/"+a.Category] = true
		assert.False(t, a.CreatedAt.IsZero(), "activation %s/%s has zero CreatedAt", a.TenantID, a.Category)
	}
	for _, want := range []string{"alice/devices", "alice/streams", "bob/devices"} {
		assert.True(t, seen[want], "missing activation %s", want)
	}
}

func TestRecordToolCall(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.RecordToolCall(ctx, "alice", "list_devices", false, 120*time.Millisecond))
	require.NoError(t, store.RecordToolCall(ctx, "alice", "get_device", true, 40*time.Millisecond))
	require.NoError(t, store.RecordToolCall(ctx, "bob", "list_streams", false, 10*time.Millisecond))

	calls, err := store.ListRecentToolCalls(ctx, "alice", 10)
	require.NoError(t, err)
	require.Len(t, calls, 2)
	for _, c := range calls {
		assert.Equal(t, "alice", c.TenantID)
		assert.NotEmpty(t, c.ID)
	}

	limited, err := store.ListRecentToolCalls(ctx, "alice", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
