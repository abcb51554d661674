package orchestration

import (
	"fmt"

	"github.com/imamik/pvecfg/internal/resource"
	"github.com/imamik/pvecfg/internal/state"
)

// Change classifies a resource relative to the previous pass.
type Change string

const (
	ChangeAdded     Change = "added"
	ChangeChanged   Change = "changed"
	ChangeUnchanged Change = "unchanged"
	ChangeRemoved   Change = "removed"
)

// Diff is the set difference between desired descriptors and stored records.
type Diff struct {
	Added     []resource.Descriptor
	Changed   []resource.Descriptor
	Unchanged []resource.Descriptor
	// Removed holds records whose key is no longer declared.
	Removed []*state.Record

	previous     map[resource.Key]*state.Record
	fingerprints map[resource.Key]string
}

// ComputeDiff classifies desired against records. Duplicate keys in desired
// are rejected.
func ComputeDiff(desired []resource.Descriptor, records []*state.Record, conn resource.ConnectionParams) (*Diff, error) {
	d := &Diff{
		previous:     make(map[resource.Key]*state.Record, len(records)),
		fingerprints: make(map[resource.Key]string, len(desired)),
	}
	for _, r := range records {
		d.previous[r.Key] = r
	}

	for _, desc := range desired {
		key := desc.Key()
		if _, dup := d.fingerprints[key]; dup {
			return nil, fmt.Errorf("resource %s is declared more than once", key)
		}
		fp := resource.Fingerprint(desc, conn)
		d.fingerprints[key] = fp

		prev, ok := d.previous[key]
		switch {
		case !ok:
			d.Added = append(d.Added, desc)
		case prev.Fingerprint != fp:
			d.Changed = append(d.Changed, desc)
		default:
			d.Unchanged = append(d.Unchanged, desc)
		}
	}

	for _, r := range records {
		if _, declared := d.fingerprints[r.Key]; !declared {
			d.Removed = append(d.Removed, r)
		}
	}
	return d, nil
}

// Declared returns every desired descriptor.
func (d *Diff) Declared() []resource.Descriptor {
	out := make([]resource.Descriptor, 0, len(d.Added)+len(d.Changed)+len(d.Unchanged))
	out = append(out, d.Added...)
	out = append(out, d.Changed...)
	return append(out, d.Unchanged...)
}

// RemovedDescriptors returns the last recorded descriptor of every removed resource.
func (d *Diff) RemovedDescriptors() []resource.Descriptor {
	out := make([]resource.Descriptor, 0, len(d.Removed))
	for _, r := range d.Removed {
		out = append(out, r.Descriptor)
	}
	return out
}

// ChangeOf reports how key differs from the previous pass.
func (d *Diff) ChangeOf(key resource.Key) Change {
	_, declared := d.fingerprints[key]
	prev, recorded := d.previous[key]
	switch {
	case !declared:
		return ChangeRemoved
	case !recorded:
		return ChangeAdded
	case prev.Fingerprint != d.fingerprints[key]:
		return ChangeChanged
	default:
		return ChangeUnchanged
	}
}

// Previous returns the stored record for key, or nil.
func (d *Diff) Previous(key resource.Key) *state.Record {
	return d.previous[key]
}

// Fingerprint returns the fingerprint of a declared descriptor.
func (d *Diff) Fingerprint(key resource.Key) string {
	return d.fingerprints[key]
}

// settled reports an unchanged resource whose last attempt left it healthy
// and observed. Such resources need no reconciliation.
func (d *Diff) settled(key resource.Key) bool {
	if d.ChangeOf(key) != ChangeUnchanged {
		return false
	}
	prev := d.previous[key]
	return prev.Outcome.Healthy() && !prev.ObservedState.IsUnknown()
}
