package blob

import (
	"context"
	"fmt"

	"sitereport/internal/infra/blob/azure"
	"sitereport/internal/infra/blob/fs"
	memorystore "sitereport/internal/infra/blob/memory"
	infraS3 "sitereport/internal/infra/blob/s3"
)

type (
	// S3Config configures the S3 driver.
	S3Config = infraS3.Config
	// AzureConfig configures the Azure driver.
	AzureConfig = azure.Config
)

// Config selects and configures a backend.
type Config struct {
	Driver Driver
	FSRoot string
	S3     S3Config
	Azure  AzureConfig
}

// Open builds the Store named by cfg.Driver; the empty driver means fs.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverFilesystem:
		return NewFilesystem(cfg.FSRoot)
	case DriverMemory:
		return NewMemory(), nil
	case DriverS3:
		store, err := infraS3.New(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		return store, nil
	case DriverAzure:
		store, err := azure.New(cfg.Azure)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureContainer(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Driver)
	}
}

// NewFilesystem returns a filesystem store rooted at root.
func NewFilesystem(root string) (Store, error) {
	store, err := fs.New(root)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// NewMemory returns an in-memory store.
func NewMemory() Store { return memorystore.New() }
