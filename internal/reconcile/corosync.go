package reconcile

import (
	"context"

	"github.com/imamik/pvecfg/internal/platform/pve"
	"github.com/imamik/pvecfg/internal/resource"
)

// CorosyncHandler converges options of the totem section of the cluster-wide
// corosync.conf. Every attribute is a totem key.
type CorosyncHandler struct {
	*base
}

var missingFileSignatures = []string{"No such file or directory"}

func (h *CorosyncHandler) Policy() Policy { return PolicyConverge }

// Probe reads corosync.conf. The resource is Absent when none of its keys are
// set, and converged when all of them have the desired value.
func (h *CorosyncHandler) Probe(ctx context.Context, d resource.Descriptor) resource.RemoteState {
	res, err := h.query(ctx, d.Kind, d.PrimaryHost(), pve.ReadCorosyncCommand())
	if err != nil {
		if exitedWith(err, missingFileSignatures) {
			return resource.Absent()
		}
		return probeFailure(err)
	}

	totem, err := pve.ParseTotem(res.Stdout)
	if err != nil {
		return resource.Unknown(err.Error())
	}

	var diff differences
	set := 0
	for _, key := range d.AttributeNames() {
		have, ok := totem[key]
		if ok {
			set++
		}
		if want := d.Attr(key); have != want {
			diff.add(key, have, want)
		}
	}
	if set == 0 {
		return resource.Absent()
	}
	return resource.Present(len(diff) == 0, diff.String())
}

func (h *CorosyncHandler) Reconcile(ctx context.Context, d resource.Descriptor, state resource.RemoteState) resource.Result {
	return h.converge(ctx, d, state, func(resource.RemoteState) []step {
		return []step{{host: d.PrimaryHost(), command: pve.SetTotem(d.Attributes)}}
	})
}

// Destroy drops the keys, returning them to corosync defaults.
func (h *CorosyncHandler) Destroy(ctx context.Context, d resource.Descriptor, state resource.RemoteState) resource.Result {
	steps := []step{{host: d.PrimaryHost(), command: pve.UnsetTotem(d.AttributeNames())}}
	return h.destroy(ctx, d, state, steps, false)
}
