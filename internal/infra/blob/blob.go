// Package blob defines the dispute-evidence attachment boundary. Dispute
// records hold keys into a Store; upload mechanics live outside the ledger.
package blob

import (
	"context"
	"errors"
	"io"
	"time"
)

// Driver identifies a blob store backend.
type Driver string

const (
	DriverMemory     Driver = "memory"
	DriverFilesystem Driver = "fs"
	DriverS3         Driver = "s3"
)

// ErrNotFound is returned when a key has no stored attachment.
var ErrNotFound = errors.New("blob not found")

// Info describes a stored attachment.
type Info struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// PutOptions carries optional attachment metadata.
type PutOptions struct {
	ContentType string
}

// Store is the attachment store contract. Put is create-only; overwriting an
// existing key is an error.
type Store interface {
	Driver() Driver
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Delete(ctx context.Context, key string) (bool, error)
	List(ctx context.Context, prefix string) ([]Info, error)
}
