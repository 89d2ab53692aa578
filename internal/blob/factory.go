package blob

import (
	"context"
	"fmt"
	"os"

	"plantcare/internal/infra/blob/fs"
	memorystore "plantcare/internal/infra/blob/memory"
	infraS3 "plantcare/internal/infra/blob/s3"
)

// Open selects a Store implementation using environment variables.
//
//	PLANTCARE_BLOB_DRIVER: fs|s3|memory (default fs)
//	PLANTCARE_BLOB_FS_ROOT: directory root when driver=fs (default ./labels)
//	PLANTCARE_BLOB_S3_*: see OpenS3FromEnv
func Open(ctx context.Context) (Store, error) {
	driver := os.Getenv("PLANTCARE_BLOB_DRIVER")
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	switch Driver(driver) {
	case DriverFilesystem:
		return NewFilesystem(os.Getenv("PLANTCARE_BLOB_FS_ROOT"))
	case DriverS3:
		return OpenS3FromEnv(ctx)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}

// NewFilesystem constructs a filesystem-backed Store rooted at root.
func NewFilesystem(root string) (Store, error) {
	store, err := fs.New(root)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// NewMemory returns an in-memory Store.
func NewMemory() Store { return memorystore.New() }

// S3Config is the explicit S3 configuration.
type S3Config = infraS3.Config

// NewS3 constructs an S3-backed Store.
func NewS3(ctx context.Context, cfg S3Config) (Store, error) {
	store, err := infraS3.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// OpenS3FromEnv constructs an S3 store from PLANTCARE_BLOB_S3_* variables.
func OpenS3FromEnv(ctx context.Context) (Store, error) {
	store, err := infraS3.OpenFromEnv(ctx)
	if err != nil {
		return nil, err
	}
	return store, nil
}
