// Package blob is the facade over the attachment store backends. It
// re-exports the storage contract and selects a backend from configuration.
package blob

import (
	"context"
	"fmt"

	core "buildledger/internal/infra/blob"
	blobfs "buildledger/internal/infra/blob/fs"
	blobmem "buildledger/internal/infra/blob/memory"
	blobs3 "buildledger/internal/infra/blob/s3"
)

type (
	// Store is the attachment store contract.
	Store = core.Store
	// Driver identifies a backend.
	Driver = core.Driver
	// Info describes a stored attachment.
	Info = core.Info
	// PutOptions carries optional attachment metadata.
	PutOptions = core.PutOptions
)

// Re-exported driver identifiers and sentinel errors.
var ErrNotFound = core.ErrNotFound

const (
	DriverMemory     = core.DriverMemory
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
)

// Config selects and parameterizes a backend.
type Config struct {
	Driver     Driver
	Root       string // fs driver
	S3Region   string
	S3Bucket   string
	S3Endpoint string
}

// Open constructs the attachment store named by cfg.Driver. An empty driver
// selects memory.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverMemory:
		return blobmem.New(), nil
	case DriverFilesystem:
		root := cfg.Root
		if root == "" {
			root = "./blobdata"
		}
		return blobfs.New(root)
	case DriverS3:
		return blobs3.New(ctx, blobs3.Config{
			Region:   cfg.S3Region,
			Bucket:   cfg.S3Bucket,
			Endpoint: cfg.S3Endpoint,
		})
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Driver)
	}
}
