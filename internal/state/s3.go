package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/imamik/pvecfg/internal/platform/s3"
	"github.com/imamik/pvecfg/internal/resource"
)

// ObjectClient is the subset of the S3 client used by S3Store.
type ObjectClient interface {
	PutObject(ctx context.Context, bucket, key string, data []byte) error
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
	DeleteObject(ctx context.Context, bucket, key string) error
	ListObjects(ctx context.Context, bucket, prefix string) ([]string, error)
}

// S3Store keeps one JSON object per record in an S3-compatible bucket.
type S3Store struct {
	client ObjectClient
	bucket string
	prefix string
}

// NewS3Store creates a store rooted at prefix inside bucket.
func NewS3Store(client ObjectClient, bucket, prefix string) *S3Store {
	return &S3Store{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

func (s *S3Store) objectKey(key resource.Key) string {
	return path.Join(s.prefix, "records", string(key.Kind), key.ID+".json")
}

func (s *S3Store) listPrefix() string {
	return path.Join(s.prefix, "records") + "/"
}

// Get retrieves the record for key, or ErrNotFound.
func (s *S3Store) Get(ctx context.Context, key resource.Key) (*Record, error) {
	data, err := s.client.GetObject(ctx, s.bucket, s.objectKey(key))
	if errors.Is(err, s3.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read record %s: %w", key, err)
	}
	return decodeRecord(data)
}

// Put uploads the record, replacing any previous version.
func (s *S3Store) Put(ctx context.Context, record *Record) error {
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = time.Now().UTC()
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode record %s: %w", record.Key, err)
	}
	if err := s.client.PutObject(ctx, s.bucket, s.objectKey(record.Key), data); err != nil {
		return fmt.Errorf("failed to write record %s: %w", record.Key, err)
	}

	log.Debug().
		Str("bucket", s.bucket).
		Str("object", s.objectKey(record.Key)).
		Str("outcome", string(record.Outcome)).
		Msg("state record written")
	return nil
}

// Delete removes the record object.
func (s *S3Store) Delete(ctx context.Context, key resource.Key) error {
	if err := s.client.DeleteObject(ctx, s.bucket, s.objectKey(key)); err != nil {
		return fmt.Errorf("failed to delete record %s: %w", key, err)
	}
	return nil
}

// List downloads every record under the store prefix.
func (s *S3Store) List(ctx context.Context) ([]*Record, error) {
	keys, err := s.client.ListObjects(ctx, s.bucket, s.listPrefix())
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	records := make([]*Record, 0, len(keys))
	for _, objectKey := range keys {
		if !strings.HasSuffix(objectKey, ".json") {
			continue
		}
		data, err := s.client.GetObject(ctx, s.bucket, objectKey)
		if errors.Is(err, s3.ErrNotFound) {
			// Deleted between list and get.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", objectKey, err)
		}
		record, err := decodeRecord(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", objectKey, err)
		}
		records = append(records, record)
	}

	sortRecords(records)
	return records, nil
}

// Close is a no-op; the S3 client holds no resources that need releasing.
func (s *S3Store) Close() error {
	return nil
}
