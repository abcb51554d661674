// Package state persists reconciliation records between passes.
//
// A record remembers, per resource, the fingerprint of the descriptor that was
// last attempted and how that attempt ended. Backends write one record at a
// time atomically; the driver is the only writer.
package state

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/imamik/pvecfg/internal/resource"
)

// ErrNotFound is returned by Get when no record exists for a key.
var ErrNotFound = errors.New("record not found")

// Record is the persisted result of the last attempt on one resource.
type Record struct {
	Key           resource.Key         `json:"key"`
	Descriptor    resource.Descriptor  `json:"descriptor"`
	Fingerprint   string               `json:"fingerprint"`
	ObservedState resource.RemoteState `json:"observed_state"`
	Outcome       resource.Outcome     `json:"outcome"`
	ErrorKind     resource.ErrorKind   `json:"error_kind,omitempty"`
	Error         string               `json:"error,omitempty"`
	PassID        string               `json:"pass_id"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// Store is a durable map from resource key to Record.
type Store interface {
	Get(ctx context.Context, key resource.Key) (*Record, error)
	Put(ctx context.Context, record *Record) error
	Delete(ctx context.Context, key resource.Key) error
	// List returns every record ordered by kind tier, then id.
	List(ctx context.Context) ([]*Record, error)
	Close() error
}

func sortRecords(records []*Record) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i].Key, records[j].Key
		if ta, tb := a.Kind.Tier(), b.Kind.Tier(); ta != tb {
			return ta < tb
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.ID < b.ID
	})
}
