package reconcile

import (
	"context"

	"github.com/imamik/pvecfg/internal/platform/pve"
	"github.com/imamik/pvecfg/internal/resource"
)

// ClusterHandler creates the cluster on its first node.
//
// Attributes: cluster_name (defaults to the id), link0, nodeid, votes.
type ClusterHandler struct {
	*base
}

func (h *ClusterHandler) Policy() Policy { return PolicyCreate }

func clusterName(d resource.Descriptor) string {
	if name := d.Attr("cluster_name"); name != "" {
		return name
	}
	return d.ID
}

// Probe reads `pvecm status` on the primary host.
func (h *ClusterHandler) Probe(ctx context.Context, d resource.Descriptor) resource.RemoteState {
	status, unknown, ok := h.clusterStatus(ctx, d.Kind, d.PrimaryHost())
	if !ok {
		return unknown
	}
	if !status.Clustered {
		return resource.Absent()
	}

	want := clusterName(d)
	if status.Name != want {
		var diff differences
		diff.add("cluster name", status.Name, want)
		return resource.Present(false, diff.String())
	}
	return resource.Present(true, "")
}

func (h *ClusterHandler) Reconcile(ctx context.Context, d resource.Descriptor, state resource.RemoteState) resource.Result {
	cmd := pve.CreateCluster(clusterName(d), d.Attr("link0"), d.Attr("nodeid"), d.Attr("votes"))
	return h.createOnly(ctx, d, state, []step{{host: d.PrimaryHost(), command: cmd, benign: alreadyExistsSignatures}}, false)
}

// Destroy separates the primary node from the cluster. A cluster with a
// different name is not ours to remove.
func (h *ClusterHandler) Destroy(ctx context.Context, d resource.Descriptor, state resource.RemoteState) resource.Result {
	steps := []step{{
		host:    d.PrimaryHost(),
		command: pve.DestroyCluster(),
		benign:  signatures(notFoundSignatures, pve.NotClusteredSignatures),
	}}
	return h.destroy(ctx, d, state, steps, true)
}

// clusterStatus queries and parses `pvecm status` on host. When ok is false,
// the returned state is the Unknown to report.
func (b *base) clusterStatus(ctx context.Context, kind resource.Kind, host string) (pve.ClusterStatus, resource.RemoteState, bool) {
	res, err := b.query(ctx, kind, host, pve.ClusterStatusCommand)
	if err != nil {
		if exitedWith(err, pve.NotClusteredSignatures) {
			return pve.ClusterStatus{}, resource.RemoteState{}, true
		}
		return pve.ClusterStatus{}, probeFailure(err), false
	}

	status, err := pve.ParseClusterStatus(res.Stdout)
	if err != nil {
		return pve.ClusterStatus{}, resource.Unknown(err.Error()), false
	}
	return status, resource.RemoteState{}, true
}
