package reports

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"sitereport/internal/blob"
)

// ObjectStore persists export artifacts.
type ObjectStore interface {
	// Put stores a new immutable object and fails if key exists.
	Put(ctx context.Context, key string, payload []byte, contentType string, metadata map[string]string) (ExportArtifact, error)
	// Get returns the artifact metadata and full payload bytes.
	Get(ctx context.Context, key string) (ExportArtifact, []byte, error)
	// Delete removes the object and reports whether it existed.
	Delete(ctx context.Context, key string) (bool, error)
	// List returns artifacts whose keys start with prefix. Empty prefix lists all.
	List(ctx context.Context, prefix string) ([]ExportArtifact, error)
}

// BlobObjectStore adapts a blob.Store to ObjectStore. Every key is stored
// below Prefix.
type BlobObjectStore struct {
	Store  blob.Store
	Prefix string
}

// NewBlobObjectStore returns an object store writing below "exports/".
func NewBlobObjectStore(store blob.Store) *BlobObjectStore {
	return &BlobObjectStore{Store: store, Prefix: "exports/"}
}

// Put writes payload below Prefix.
func (s *BlobObjectStore) Put(ctx context.Context, key string, payload []byte, contentType string, metadata map[string]string) (ExportArtifact, error) {
	info, err := s.Store.Put(ctx, s.Prefix+key, bytes.NewReader(payload), blob.PutOptions{
		ContentType: contentType,
		Metadata:    metadata,
	})
	if err != nil {
		return ExportArtifact{}, err
	}
	return s.artifact(info), nil
}

// Get reads the whole artifact stored under key.
func (s *BlobObjectStore) Get(ctx context.Context, key string) (ExportArtifact, []byte, error) {
	info, body, err := s.Store.Get(ctx, s.Prefix+key)
	if err != nil {
		return ExportArtifact{}, nil, err
	}
	defer func() { _ = body.Close() }()
	payload, err := io.ReadAll(body)
	if err != nil {
		return ExportArtifact{}, nil, fmt.Errorf("read artifact %s: %w", key, err)
	}
	return s.artifact(info), payload, nil
}

// Delete removes key, reporting whether it existed.
func (s *BlobObjectStore) Delete(ctx context.Context, key string) (bool, error) {
	return s.Store.Delete(ctx, s.Prefix+key)
}

// List returns the artifacts whose key starts with prefix.
func (s *BlobObjectStore) List(ctx context.Context, prefix string) ([]ExportArtifact, error) {
	infos, err := s.Store.List(ctx, s.Prefix+prefix)
	if err != nil {
		return nil, err
	}
	out := make([]ExportArtifact, 0, len(infos))
	for _, info := range infos {
		out = append(out, s.artifact(info))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *BlobObjectStore) artifact(info blob.Info) ExportArtifact {
	created := info.LastModified
	if created.IsZero() {
		created = time.Now().UTC()
	}
	return ExportArtifact{
		Key:         strings.TrimPrefix(info.Key, s.Prefix),
		ContentType: info.ContentType,
		SizeBytes:   info.Size,
		ETag:        info.ETag,
		Metadata:    info.Metadata,
		CreatedAt:   created,
	}
}
