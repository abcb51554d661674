package state

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/pvecfg/internal/platform/s3"
	"github.com/imamik/pvecfg/internal/resource"
)

// fakeObjects is an in-process stand-in for an S3 bucket.
type fakeObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    int
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: map[string][]byte{}}
}

func (f *fakeObjects) PutObject(_ context.Context, bucket, key string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[bucket+"/"+key] = append([]byte(nil), data...)
	f.puts++
	return nil
}

func (f *fakeObjects) GetObject(_ context.Context, bucket, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[bucket+"/"+key]
	if !ok {
		return nil, s3.ErrNotFound
	}
	return data, nil
}

func (f *fakeObjects) DeleteObject(_ context.Context, bucket, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, bucket+"/"+key)
	return nil
}

func (f *fakeObjects) ListObjects(_ context.Context, bucket, prefix string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for k := range f.objects {
		if rest, ok := strings.CutPrefix(k, bucket+"/"); ok && strings.HasPrefix(rest, prefix) {
			keys = append(keys, rest)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func sampleRecord(kind resource.Kind, id string) *Record {
	return &Record{
		Key: resource.Key{Kind: kind, ID: id},
		Descriptor: resource.Descriptor{
			Kind:       kind,
			ID:         id,
			Attributes: map[string]string{"server": "10.0.0.5"},
			Hosts:      []string{"10.0.0.1"},
		},
		Fingerprint:   "abc123",
		ObservedState: resource.Present(true, ""),
		Outcome:       resource.OutcomeSucceeded,
		PassID:        "pass-1",
		UpdatedAt:     time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC),
	}
}

func backends(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := OpenSQLite(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	return map[string]Store{
		"sqlite": sqlite,
		"s3":     NewS3Store(newFakeObjects(), "bucket", "clusters/lab"),
		"memory": NewMemory(),
		"locked": NewLocked(NewMemory()),
	}
}

func TestStore_RoundTrip(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			rec := sampleRecord(resource.KindStorageNFS, "nfs1")

			_, err := store.Get(ctx, rec.Key)
			assert.True(t, errors.Is(err, ErrNotFound))

			require.NoError(t, store.Put(ctx, rec))

			got, err := store.Get(ctx, rec.Key)
			require.NoError(t, err)
			assert.Equal(t, rec.Fingerprint, got.Fingerprint)
			assert.Equal(t, rec.Outcome, got.Outcome)
			assert.Equal(t, rec.Descriptor, got.Descriptor)
			assert.True(t, got.ObservedState.IsConverged())
			assert.True(t, rec.UpdatedAt.Equal(got.UpdatedAt))
		})
	}
}

func TestStore_PutReplaces(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			rec := sampleRecord(resource.KindHAGroup, "prod")
			require.NoError(t, store.Put(ctx, rec))

			updated := sampleRecord(resource.KindHAGroup, "prod")
			updated.Outcome = resource.OutcomeFailed
			updated.ErrorKind = resource.ErrorTimeout
			updated.ObservedState = resource.Unknown("timeout")
			require.NoError(t, store.Put(ctx, updated))

			got, err := store.Get(ctx, rec.Key)
			require.NoError(t, err)
			assert.Equal(t, resource.OutcomeFailed, got.Outcome)
			assert.Equal(t, resource.ErrorTimeout, got.ErrorKind)
			assert.True(t, got.ObservedState.IsUnknown())

			all, err := store.List(ctx)
			require.NoError(t, err)
			assert.Len(t, all, 1)
		})
	}
}

func TestStore_DeleteAndList(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Put(ctx, sampleRecord(resource.KindBackupJob, "daily")))
			require.NoError(t, store.Put(ctx, sampleRecord(resource.KindClusterJoin, "pve2")))
			require.NoError(t, store.Put(ctx, sampleRecord(resource.KindClusterCreate, "lab")))

			all, err := store.List(ctx)
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, resource.KindClusterCreate, all[0].Key.Kind, "records are listed in tier order")
			assert.Equal(t, resource.KindClusterJoin, all[1].Key.Kind)
			assert.Equal(t, resource.KindBackupJob, all[2].Key.Kind)

			require.NoError(t, store.Delete(ctx, all[1].Key))
			require.NoError(t, store.Delete(ctx, all[1].Key), "deleting twice is not an error")

			all, err = store.List(ctx)
			require.NoError(t, err)
			assert.Len(t, all, 2)
		})
	}
}

func TestS3Store_ObjectLayout(t *testing.T) {
	objects := newFakeObjects()
	store := NewS3Store(objects, "bucket", "/clusters/lab/")
	require.NoError(t, store.Put(context.Background(), sampleRecord(resource.KindStorageCeph, "rbd")))

	_, ok := objects.objects["bucket/clusters/lab/records/storage_ceph/rbd.json"]
	assert.True(t, ok)
	assert.Equal(t, 1, objects.puts)
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	store, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, store.Put(context.Background(), sampleRecord(resource.KindContainer, "200")))
	require.NoError(t, store.Close())

	store, err = OpenSQLite(path)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.Get(context.Background(), resource.Key{Kind: resource.KindContainer, ID: "200"})
	require.NoError(t, err)
	assert.Equal(t, "pass-1", got.PassID)
}

func TestLocked_SerializesPerKey(t *testing.T) {
	locked := NewLocked(NewMemory())
	key := resource.Key{Kind: resource.KindHAGroup, ID: "prod"}

	var active, maxActive int
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = locked.WithKey(key, func(Store) error {
				mu.Lock()
				active++
				if active > maxActive {
					maxActive = active
				}
				mu.Unlock()
				time.Sleep(time.Millisecond)
				mu.Lock()
				active--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxActive)
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), Options{Backend: "etcd"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown state backend")
}

func TestOpen_SQLiteCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.db")
	store, err := Open(context.Background(), Options{Backend: BackendSQLite, Path: path})
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Put(context.Background(), sampleRecord(resource.KindClusterCreate, "lab")))
}
