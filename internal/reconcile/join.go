package reconcile

import (
	"context"
	"fmt"
	"slices"

	"github.com/imamik/pvecfg/internal/platform/pve"
	"github.com/imamik/pvecfg/internal/resource"
)

// JoinHandler adds a node to the cluster. Hosts[0] is the joining node.
//
// Attributes: primary (address of a cluster member, required), node (node
// name, defaults to the id), cluster_name, link0, nodeid, votes.
type JoinHandler struct {
	*base
}

var alreadyMemberSignatures = []string{"already a member", "may already be a member"}

func (h *JoinHandler) Policy() Policy { return PolicyCreate }

func nodeName(d resource.Descriptor) string {
	if name := d.Attr("node"); name != "" {
		return name
	}
	return d.ID
}

// Probe checks the member list on the primary, then whether the joining node
// already belongs to some other cluster.
func (h *JoinHandler) Probe(ctx context.Context, d resource.Descriptor) resource.RemoteState {
	primary := d.Attr("primary")
	if primary == "" {
		return resource.Unknown("no primary host to query membership on")
	}

	res, err := h.query(ctx, d.Kind, primary, pve.ClusterNodesCommand)
	if err != nil {
		if exitedWith(err, pve.NotClusteredSignatures) {
			return resource.Absent()
		}
		return probeFailure(err)
	}
	members, err := pve.ParseNodeList(res.Stdout)
	if err != nil {
		return resource.Unknown(err.Error())
	}
	if slices.Contains(members, nodeName(d)) {
		return resource.Present(true, "")
	}

	status, unknown, ok := h.clusterStatus(ctx, d.Kind, d.PrimaryHost())
	if !ok {
		return unknown
	}
	if status.Clustered {
		return resource.Present(false, fmt.Sprintf("node is a member of cluster %q", status.Name))
	}
	return resource.Absent()
}

func (h *JoinHandler) Reconcile(ctx context.Context, d resource.Descriptor, state resource.RemoteState) resource.Result {
	cmd := pve.JoinCluster(d.Attr("primary"), d.Attr("link0"), d.Attr("nodeid"), d.Attr("votes"))
	return h.createOnly(ctx, d, state, []step{{
		host:    d.PrimaryHost(),
		command: cmd,
		benign:  signatures(alreadyExistsSignatures, alreadyMemberSignatures),
	}}, false)
}

// Destroy separates the node locally, then removes it from the member list.
func (h *JoinHandler) Destroy(ctx context.Context, d resource.Descriptor, state resource.RemoteState) resource.Result {
	steps := []step{
		{host: d.PrimaryHost(), command: pve.DestroyCluster(), benign: signatures(notFoundSignatures, pve.NotClusteredSignatures)},
		{host: d.Attr("primary"), command: pve.RemoveNode(nodeName(d)), benign: notFoundSignatures},
	}
	return h.destroy(ctx, d, state, steps, true)
}
