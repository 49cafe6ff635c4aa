// Package azure stores report archives in an Azure Blob Storage container.
package azure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"sitereport/internal/blob/core"
)

// Config locates the container.
type Config struct {
	ConnectionString string
	Container        string
}

// Store implements core.Store on one container.
type Store struct {
	client    *azblob.Client
	container string
}

// New validates the connection string and builds the client. No request is
// made until EnsureContainer or the first operation.
func New(cfg Config) (*Store, error) {
	if cfg.Container == "" {
		return nil, errors.New("azure container required")
	}
	client, err := azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &Store{client: client, container: cfg.Container}, nil
}

// EnsureContainer creates the container unless it already exists.
func (s *Store) EnsureContainer(ctx context.Context) error {
	_, err := s.client.CreateContainer(ctx, s.container, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return fmt.Errorf("create container %s: %w", s.container, err)
	}
	return nil
}

// Driver returns core.DriverAzure.
func (s *Store) Driver() core.Driver { return core.DriverAzure }

// Put uploads r with an If-None-Match: * condition.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, opts core.PutOptions) (core.Info, error) {
	if err := core.ValidateKey(key); err != nil {
		return core.Info{}, err
	}
	upload := &azblob.UploadStreamOptions{
		Metadata: toAzureMetadata(opts.Metadata),
		AccessConditions: &blob.AccessConditions{
			ModifiedAccessConditions: &blob.ModifiedAccessConditions{IfNoneMatch: ptr(azcore.ETagAny)},
		},
	}
	if opts.ContentType != "" {
		upload.HTTPHeaders = &blob.HTTPHeaders{BlobContentType: ptr(opts.ContentType)}
	}
	if _, err := s.client.UploadStream(ctx, s.container, key, r, upload); err != nil {
		return core.Info{}, translate(key, err)
	}
	return s.Head(ctx, key)
}

// Get streams the blob at key. The caller closes the body.
func (s *Store) Get(ctx context.Context, key string) (core.Info, io.ReadCloser, error) {
	if err := core.ValidateKey(key); err != nil {
		return core.Info{}, nil, err
	}
	resp, err := s.client.DownloadStream(ctx, s.container, key, nil)
	if err != nil {
		return core.Info{}, nil, translate(key, err)
	}
	info := core.Info{
		Key:          key,
		Size:         deref(resp.ContentLength),
		ContentType:  deref(resp.ContentType),
		ETag:         etag(resp.ETag),
		Metadata:     fromAzureMetadata(resp.Metadata),
		LastModified: lastModified(resp.LastModified),
	}
	return info, resp.Body, nil
}

// Head reads the blob properties of key.
func (s *Store) Head(ctx context.Context, key string) (core.Info, error) {
	if err := core.ValidateKey(key); err != nil {
		return core.Info{}, err
	}
	props, err := s.client.ServiceClient().
		NewContainerClient(s.container).
		NewBlobClient(key).
		GetProperties(ctx, nil)
	if err != nil {
		return core.Info{}, translate(key, err)
	}
	return core.Info{
		Key:          key,
		Size:         deref(props.ContentLength),
		ContentType:  deref(props.ContentType),
		ETag:         etag(props.ETag),
		Metadata:     fromAzureMetadata(props.Metadata),
		LastModified: lastModified(props.LastModified),
	}, nil
}

// Delete removes key, reporting false when it did not exist.
func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	if err := core.ValidateKey(key); err != nil {
		return false, err
	}
	if _, err := s.client.DeleteBlob(ctx, s.container, key, nil); err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("delete blob %s: %w", key, err)
	}
	return true, nil
}

// List pages through the flat blob listing below prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]core.Info, error) {
	pager := s.client.NewListBlobsFlatPager(s.container, &azblob.ListBlobsFlatOptions{
		Prefix:  ptr(prefix),
		Include: azblob.ListBlobsInclude{Metadata: true},
	})
	var out []core.Info
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, err)
		}
		for _, item := range page.Segment.BlobItems {
			info := core.Info{Key: deref(item.Name), Metadata: fromAzureMetadata(item.Metadata)}
			if p := item.Properties; p != nil {
				info.Size = deref(p.ContentLength)
				info.ContentType = deref(p.ContentType)
				info.ETag = etag(p.ETag)
				info.LastModified = lastModified(p.LastModified)
			}
			out = append(out, info)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func translate(key string, err error) error {
	switch {
	case bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound):
		return fmt.Errorf("%w: %s", core.ErrNotFound, key)
	case bloberror.HasCode(err, bloberror.BlobAlreadyExists, bloberror.ConditionNotMet):
		return fmt.Errorf("%w: %s", core.ErrExists, key)
	}
	return fmt.Errorf("azure blob %s: %w", key, err)
}

func toAzureMetadata(in map[string]string) map[string]*string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]*string, len(in))
	for k, v := range in {
		out[k] = ptr(v)
	}
	return out
}

// fromAzureMetadata lower-cases keys; the service does not preserve their case.
func fromAzureMetadata(in map[string]*string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[strings.ToLower(k)] = deref(v)
	}
	return out
}

func etag(tag *azcore.ETag) string {
	if tag == nil {
		return ""
	}
	return strings.Trim(string(*tag), `"`)
}

func lastModified(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}

func ptr[T any](v T) *T { return &v }

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
