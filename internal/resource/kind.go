// Package resource defines the declared units of Proxmox configuration and
// the vocabulary shared by probing, reconciliation and the state store:
// kinds and their dependency graph, descriptors, fingerprints, observed remote
// state, outcomes and the error taxonomy.
package resource

import (
	"fmt"
	"sort"
)

// Kind identifies a class of resource.
type Kind string

const (
	KindClusterCreate Kind = "cluster_create"
	KindClusterJoin   Kind = "cluster_join"
	KindHAGroup       Kind = "ha_group"
	KindCorosyncTune  Kind = "corosync_tune"
	KindStorageNFS    Kind = "storage_nfs"
	KindStorageISCSI  Kind = "storage_iscsi"
	KindStorageCeph   Kind = "storage_ceph"
	KindBackupJob     Kind = "backup_job"
	KindContainer     Kind = "container"
)

// prerequisites lists the kinds that must reach a terminal non-failed outcome
// before a kind may be reconciled.
var prerequisites = map[Kind][]Kind{
	KindClusterCreate: nil,
	KindClusterJoin:   {KindClusterCreate},
	KindHAGroup:       {KindClusterJoin},
	KindCorosyncTune:  {KindClusterJoin},
	KindStorageNFS:    {KindClusterJoin},
	KindStorageISCSI:  {KindClusterJoin},
	KindStorageCeph:   {KindClusterJoin},
	KindBackupJob:     {KindStorageNFS, KindStorageISCSI, KindStorageCeph},
	KindContainer:     {KindStorageNFS, KindStorageISCSI, KindStorageCeph},
}

// AllKinds returns every known kind in tier order, ties broken by name.
func AllKinds() []Kind {
	kinds := make([]Kind, 0, len(prerequisites))
	for k := range prerequisites {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool {
		ti, tj := kinds[i].Tier(), kinds[j].Tier()
		if ti != tj {
			return ti < tj
		}
		return kinds[i] < kinds[j]
	})
	return kinds
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	_, ok := prerequisites[k]
	return ok
}

// Prerequisites returns the direct prerequisite kinds of k.
func (k Kind) Prerequisites() []Kind {
	return append([]Kind(nil), prerequisites[k]...)
}

// DependsOn reports whether other is a direct or transitive prerequisite of k.
func (k Kind) DependsOn(other Kind) bool {
	for _, p := range prerequisites[k] {
		if p == other || p.DependsOn(other) {
			return true
		}
	}
	return false
}

// Tier returns the depth of k in the dependency graph (longest path from a root).
func (k Kind) Tier() int {
	tier := 0
	for _, p := range prerequisites[k] {
		if t := p.Tier() + 1; t > tier {
			tier = t
		}
	}
	return tier
}

// IsStorage reports whether k is one of the storage kinds.
func (k Kind) IsStorage() bool {
	return k == KindStorageNFS || k == KindStorageISCSI || k == KindStorageCeph
}

// ParseKind converts a string into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown resource kind %q", s)
	}
	return k, nil
}

// Tiers groups descriptors by dependency tier, lowest tier first.
// Order within a tier follows the input order.
func Tiers(descriptors []Descriptor) [][]Descriptor {
	maxTier := -1
	for _, d := range descriptors {
		if t := d.Kind.Tier(); t > maxTier {
			maxTier = t
		}
	}
	if maxTier < 0 {
		return nil
	}

	tiers := make([][]Descriptor, maxTier+1)
	for _, d := range descriptors {
		t := d.Kind.Tier()
		tiers[t] = append(tiers[t], d)
	}

	out := tiers[:0]
	for _, tier := range tiers {
		if len(tier) > 0 {
			out = append(out, tier)
		}
	}
	return out
}
