// Package archive writes audit log snapshots to object storage.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/adminpanel/apiserver/config"
	"github.com/adminpanel/apiserver/types"
)

// Supported backend names for ARCHIVE_BACKEND.
const (
	BackendMinio  = "minio"
	BackendGCS    = "gcs"
	BackendMemory = "memory"
)

// ErrNoBackend is returned by NewObjectStore when no backend is configured.
var ErrNoBackend = errors.New("archive backend not configured")

// ErrObjectNotFound is returned by Get when the key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStore defines object operations shared by all backends.
type ObjectStore interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Bucket() string
}

// NewObjectStore constructs the backend named by cfg.Backend.
func NewObjectStore(ctx context.Context, cfg config.ArchiveConfig) (ObjectStore, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case BackendMinio:
		return NewMinioStore(cfg.Minio)
	case BackendGCS:
		return NewGCSStore(ctx, cfg.GCS)
	case BackendMemory:
		return NewMemoryStore("memory"), nil
	case "":
		return nil, ErrNoBackend
	default:
		return nil, fmt.Errorf("unsupported archive backend %q", cfg.Backend)
	}
}

// Snapshot is the document written for each archive run.
type Snapshot struct {
	TakenAt string           `json:"takenAt"`
	Count   int              `json:"count"`
	Entries []types.LogEntry `json:"entries"`
}

// Archiver serialises log entries and uploads them under a key prefix.
type Archiver struct {
	store  ObjectStore
	prefix string
	now    func() time.Time
}

// NewArchiver returns an Archiver writing below prefix.
func NewArchiver(store ObjectStore, prefix string) *Archiver {
	return &Archiver{
		store:  store,
		prefix: strings.Trim(prefix, "/"),
		now:    time.Now,
	}
}

// Key returns the object key used for a snapshot taken at t.
func (a *Archiver) Key(t time.Time) string {
	name := "logs-" + t.UTC().Format("20060102T150405Z") + ".json"
	if a.prefix == "" {
		return name
	}
	return path.Join(a.prefix, name)
}

// Snapshot uploads entries as one JSON document and returns its key. The
// bucket is created when missing, and the object is read back before the key
// is returned.
func (a *Archiver) Snapshot(ctx context.Context, entries []types.LogEntry) (string, error) {
	if entries == nil {
		entries = []types.LogEntry{}
	}
	takenAt := a.now()
	data, err := json.Marshal(Snapshot{
		TakenAt: takenAt.UTC().Format(time.RFC3339),
		Count:   len(entries),
		Entries: entries,
	})
	if err != nil {
		return "", fmt.Errorf("encoding snapshot: %w", err)
	}

	if err := a.store.EnsureBucket(ctx); err != nil {
		return "", fmt.Errorf("ensuring bucket %q: %w", a.store.Bucket(), err)
	}

	key := a.Key(takenAt)
	if err := a.store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), "application/json"); err != nil {
		return "", fmt.Errorf("uploading %s: %w", key, err)
	}

	stored, err := a.Load(ctx, key)
	if err != nil {
		return "", fmt.Errorf("verifying %s: %w", key, err)
	}
	if stored.Count != len(entries) || len(stored.Entries) != len(entries) {
		return "", fmt.Errorf("verifying %s: read back %d entries, wrote %d", key, len(stored.Entries), len(entries))
	}
	return key, nil
}

// Load downloads and decodes the snapshot stored under key.
func (a *Archiver) Load(ctx context.Context, key string) (Snapshot, error) {
	rc, err := a.store.Get(ctx, key)
	if err != nil {
		return Snapshot{}, err
	}
	defer rc.Close()

	var snap Snapshot
	if err := json.NewDecoder(rc).Decode(&snap); err != nil {
		return Snapshot{}, fmt.Errorf("decoding snapshot: %w", err)
	}
	return snap, nil
}
