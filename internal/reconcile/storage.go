package reconcile

import (
	"context"

	"github.com/imamik/pvecfg/internal/platform/pve"
	"github.com/imamik/pvecfg/internal/resource"
)

// StorageHandler defines a storage on every target host. Attributes are
// passed to `pvesm add` as flags verbatim.
type StorageHandler struct {
	*base
	// storageType is the pvesm type tag (nfs, iscsi, rbd).
	storageType string
}

func (h *StorageHandler) Policy() Policy { return PolicyCreate }

// Probe lists storages on the primary host. A storage with the same id but a
// different type is a conflict.
func (h *StorageHandler) Probe(ctx context.Context, d resource.Descriptor) resource.RemoteState {
	res, err := h.query(ctx, d.Kind, d.PrimaryHost(), pve.StorageListCommand)
	if err != nil {
		return probeFailure(err)
	}
	entries, err := pve.ParseStorageList(res.Stdout)
	if err != nil {
		return resource.Unknown(err.Error())
	}

	for _, e := range entries {
		if e.Storage != d.ID {
			continue
		}
		if e.Type != h.storageType {
			var diff differences
			diff.add("type", e.Type, h.storageType)
			return resource.Present(false, diff.String())
		}
		return resource.Present(true, "")
	}
	return resource.Absent()
}

// Reconcile issues the add command once per host. A failure on one host
// does not stop the others and nothing already applied is rolled back.
func (h *StorageHandler) Reconcile(ctx context.Context, d resource.Descriptor, state resource.RemoteState) resource.Result {
	cmd := pve.AddStorage(h.storageType, d.ID, d.Attributes)
	return h.createOnly(ctx, d, state, onHosts(d.Hosts, cmd, alreadyExistsSignatures), true)
}

func (h *StorageHandler) Destroy(ctx context.Context, d resource.Descriptor, state resource.RemoteState) resource.Result {
	steps := []step{{host: d.PrimaryHost(), command: pve.RemoveStorage(d.ID), benign: notFoundSignatures}}
	return h.destroy(ctx, d, state, steps, true)
}
