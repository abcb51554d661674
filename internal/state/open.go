package state

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/imamik/pvecfg/internal/platform/s3"
)

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendS3     = "s3"
)

// S3Options locates the bucket used by the s3 backend.
type S3Options struct {
	Endpoint  string
	Region    string
	Bucket    string
	Prefix    string
	AccessKey string
	SecretKey string
	PathStyle bool
}

// Options selects and configures a backend.
type Options struct {
	Backend string
	// Path is the SQLite database file.
	Path string
	S3   S3Options
}

// Open returns the configured backend wrapped with per-key locking.
func Open(ctx context.Context, opts Options) (*Locked, error) {
	switch opts.Backend {
	case "", BackendSQLite:
		if dir := filepath.Dir(opts.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, fmt.Errorf("failed to create state directory: %w", err)
			}
		}
		store, err := OpenSQLite(opts.Path)
		if err != nil {
			return nil, err
		}
		return NewLocked(store), nil

	case BackendS3:
		client, err := s3.NewClient(ctx, s3.Options{
			Endpoint:  opts.S3.Endpoint,
			Region:    opts.S3.Region,
			AccessKey: opts.S3.AccessKey,
			SecretKey: opts.S3.SecretKey,
			PathStyle: opts.S3.PathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		exists, err := client.BucketExists(ctx, opts.S3.Bucket)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, fmt.Errorf("state bucket %s does not exist", opts.S3.Bucket)
		}
		return NewLocked(NewS3Store(client, opts.S3.Bucket, opts.S3.Prefix)), nil

	default:
		return nil, fmt.Errorf("unknown state backend %q", opts.Backend)
	}
}
