package state

import (
	"context"
	"sync"

	"github.com/imamik/pvecfg/internal/resource"
)

// Locked serializes operations on the same key so that concurrent workers
// never interleave a read-modify-write of one record.
type Locked struct {
	inner Store

	mu    sync.Mutex
	locks map[resource.Key]*sync.Mutex
}

// NewLocked wraps store with per-key locking.
func NewLocked(store Store) *Locked {
	return &Locked{inner: store, locks: make(map[resource.Key]*sync.Mutex)}
}

func (l *Locked) lockFor(key resource.Key) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	return m
}

// WithKey runs fn while holding the lock for key.
func (l *Locked) WithKey(key resource.Key, fn func(Store) error) error {
	m := l.lockFor(key)
	m.Lock()
	defer m.Unlock()
	return fn(l.inner)
}

func (l *Locked) Get(ctx context.Context, key resource.Key) (*Record, error) {
	var record *Record
	err := l.WithKey(key, func(s Store) error {
		var err error
		record, err = s.Get(ctx, key)
		return err
	})
	return record, err
}

func (l *Locked) Put(ctx context.Context, record *Record) error {
	return l.WithKey(record.Key, func(s Store) error {
		return s.Put(ctx, record)
	})
}

func (l *Locked) Delete(ctx context.Context, key resource.Key) error {
	return l.WithKey(key, func(s Store) error {
		return s.Delete(ctx, key)
	})
}

func (l *Locked) List(ctx context.Context) ([]*Record, error) {
	return l.inner.List(ctx)
}

func (l *Locked) Close() error {
	return l.inner.Close()
}
