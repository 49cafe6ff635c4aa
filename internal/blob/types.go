// Package blob is the facade over the archive storage backends. Callers hold a
// blob.Store and never import internal/infra/blob directly.
package blob

import (
	"sitereport/internal/blob/core"
)

type (
	// Driver identifies a blob backend driver.
	Driver = core.Driver
	// PutOptions configures a blob write.
	PutOptions = core.PutOptions
	// Info describes stored blob metadata.
	Info = core.Info
	// Store is the interface for blob storage backends.
	Store = core.Store
)

const (
	// DriverFilesystem is the local filesystem driver.
	DriverFilesystem = core.DriverFilesystem
	// DriverS3 is the S3-compatible driver.
	DriverS3 = core.DriverS3
	// DriverAzure is the Azure Blob Storage driver.
	DriverAzure = core.DriverAzure
	// DriverMemory is the in-memory driver.
	DriverMemory = core.DriverMemory
)

var (
	// ErrNotFound reports a missing blob.
	ErrNotFound = core.ErrNotFound
	// ErrExists reports a Put against an existing key.
	ErrExists = core.ErrExists
	// ErrInvalidKey reports a malformed key.
	ErrInvalidKey = core.ErrInvalidKey
)
