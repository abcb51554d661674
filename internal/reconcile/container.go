package reconcile

import (
	"context"

	"github.com/imamik/pvecfg/internal/platform/pve"
	"github.com/imamik/pvecfg/internal/resource"
)

// ContainerHandler creates an LXC container on Hosts[0]. The id is the VMID;
// ostemplate is required and every other attribute is a `pct create` flag.
type ContainerHandler struct {
	*base
}

// containerComparable are the attributes that `pct config` reports back as given.
var containerComparable = []string{"hostname", "memory", "swap", "cores", "cpulimit", "onboot", "unprivileged", "arch", "ostype"}

func (h *ContainerHandler) Policy() Policy { return PolicyCreate }

func (h *ContainerHandler) Probe(ctx context.Context, d resource.Descriptor) resource.RemoteState {
	res, err := h.query(ctx, d.Kind, d.PrimaryHost(), pve.ContainerConfig(d.ID))
	if err != nil {
		if exitedWith(err, notFoundSignatures) {
			return resource.Absent()
		}
		return probeFailure(err)
	}
	config, err := pve.ParseConfig(res.Stdout)
	if err != nil {
		return resource.Unknown(err.Error())
	}

	var diff differences
	for _, key := range containerComparable {
		want := d.Attr(key)
		if want == "" {
			continue
		}
		if have := config[key]; have != want {
			diff.add(key, have, want)
		}
	}
	return resource.Present(len(diff) == 0, diff.String())
}

func (h *ContainerHandler) Reconcile(ctx context.Context, d resource.Descriptor, state resource.RemoteState) resource.Result {
	attrs := make(map[string]string, len(d.Attributes))
	for k, v := range d.Attributes {
		if k != "ostemplate" {
			attrs[k] = v
		}
	}
	cmd := pve.CreateContainer(d.ID, d.Attr("ostemplate"), attrs)
	return h.createOnly(ctx, d, state, []step{{host: d.PrimaryHost(), command: cmd, benign: alreadyExistsSignatures}}, false)
}

// Destroy stops and purges the container. A container whose configuration
// differs may belong to someone else and is left alone.
func (h *ContainerHandler) Destroy(ctx context.Context, d resource.Descriptor, state resource.RemoteState) resource.Result {
	steps := []step{{host: d.PrimaryHost(), command: pve.DestroyContainer(d.ID), benign: notFoundSignatures}}
	return h.destroy(ctx, d, state, steps, true)
}
