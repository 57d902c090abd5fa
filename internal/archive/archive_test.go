package archive

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/adminpanel/apiserver/config"
	"github.com/adminpanel/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedArchiver(store ObjectStore, prefix string) *Archiver {
	a := NewArchiver(store, prefix)
	a.now = func() time.Time {
		return time.Date(2024, 5, 1, 10, 30, 0, 0, time.FixedZone("CEST", 2*60*60))
	}
	return a
}

func TestArchiverKey(t *testing.T) {
	at := time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)

	assert.Equal(t, "audit/logs-20240501T083000Z.json", NewArchiver(nil, "/audit/").Key(at))
	assert.Equal(t, "logs-20240501T083000Z.json", NewArchiver(nil, "").Key(at))
}

func TestArchiverSnapshot(t *testing.T) {
	store := NewMemoryStore("logs")
	entries := []types.LogEntry{
		{ID: 2, Admin: "hayden", TargetUser: "bob", Action: "delete", Details: "gone", Time: "t2"},
		{ID: 1, Admin: "hayden", TargetUser: "bob", Action: "create", Details: "new", Time: "t1"},
	}

	key, err := fixedArchiver(store, "audit").Snapshot(context.Background(), entries)
	require.NoError(t, err)
	assert.Equal(t, "audit/logs-20240501T083000Z.json", key)
	assert.Equal(t, []string{key}, store.Keys())
	assert.Equal(t, "application/json", store.ContentType(key))

	rc, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)

	var snap Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.Equal(t, "2024-05-01T08:30:00Z", snap.TakenAt)
	assert.Equal(t, 2, snap.Count)
	assert.Equal(t, entries, snap.Entries)
}

func TestArchiverSnapshotEmpty(t *testing.T) {
	store := NewMemoryStore("logs")

	key, err := fixedArchiver(store, "audit").Snapshot(context.Background(), nil)
	require.NoError(t, err)

	rc, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"entries":[]`)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore("b")

	require.Error(t, store.Put(ctx, "k", strings.NewReader("x"), 1, ""), "put before bucket exists")
	require.NoError(t, store.EnsureBucket(ctx))

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	assert.Equal(t, "b", store.Bucket())
}

// truncatingStore drops the body of every object on the way out.
type truncatingStore struct {
	*MemoryStore
}

func (s truncatingStore) Get(context.Context, string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(`{"count":0,"entries":[]}`)), nil
}

func TestArchiverSnapshotVerifiesReadBack(t *testing.T) {
	store := truncatingStore{NewMemoryStore("logs")}
	entries := []types.LogEntry{{ID: 1, Admin: "hayden", Action: "create", Time: "t1"}}

	_, err := fixedArchiver(store, "audit").Snapshot(context.Background(), entries)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read back 0 entries, wrote 1")
}

func TestArchiverLoad(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore("logs")
	a := fixedArchiver(store, "audit")
	entries := []types.LogEntry{{ID: 3, Admin: "hayden", Action: "edit", Time: "t3"}}

	key, err := a.Snapshot(ctx, entries)
	require.NoError(t, err)

	snap, err := a.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Count)
	assert.Equal(t, entries, snap.Entries)

	_, err = a.Load(ctx, "audit/missing.json")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestNewObjectStore(t *testing.T) {
	ctx := context.Background()

	_, err := NewObjectStore(ctx, config.ArchiveConfig{})
	assert.ErrorIs(t, err, ErrNoBackend)

	_, err = NewObjectStore(ctx, config.ArchiveConfig{Backend: "s4"})
	assert.EqualError(t, err, `unsupported archive backend "s4"`)

	_, err = NewObjectStore(ctx, config.ArchiveConfig{Backend: BackendMinio})
	assert.EqualError(t, err, "minio endpoint is required")

	_, err = NewObjectStore(ctx, config.ArchiveConfig{Backend: BackendGCS})
	assert.EqualError(t, err, "gcs bucket is required")

	store, err := NewObjectStore(ctx, config.ArchiveConfig{Backend: BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)
}
