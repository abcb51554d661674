package reconcile

import (
	"context"
	"slices"
	"strings"

	"github.com/imamik/pvecfg/internal/platform/pve"
	"github.com/imamik/pvecfg/internal/resource"
)

// HAGroupHandler converges an HA group and the membership of its resources.
//
// Attributes: nodes (comma list, "node[:priority]"), restricted, nofailback,
// comment, resources (comma list of service ids such as vm:100).
type HAGroupHandler struct {
	*base
}

var haBenignSignatures = []string{"already in group", "already exists", "already defined"}

func (h *HAGroupHandler) Policy() Policy { return PolicyConverge }

func haOptions(d resource.Descriptor) pve.HAGroupOptions {
	return pve.HAGroupOptions{
		Nodes:      pve.JoinList(d.List("nodes")),
		Restricted: truthy(d.Attr("restricted")),
		NoFailback: truthy(d.Attr("nofailback")),
		Comment:    d.Attr("comment"),
	}
}

func (h *HAGroupHandler) Probe(ctx context.Context, d resource.Descriptor) resource.RemoteState {
	host := d.PrimaryHost()
	res, err := h.query(ctx, d.Kind, host, pve.HAGroupsCommand)
	if err != nil {
		return probeFailure(err)
	}
	groups, err := pve.ParseHAGroups(res.Stdout)
	if err != nil {
		return resource.Unknown(err.Error())
	}

	idx := slices.IndexFunc(groups, func(g pve.HAGroup) bool { return g.Group == d.ID })
	if idx < 0 {
		return resource.Absent()
	}
	group := groups[idx]
	want := haOptions(d)

	var diff differences
	if have := normalizeList(group.Nodes); have != normalizeList(want.Nodes) {
		diff.add("nodes", group.Nodes, want.Nodes)
	}
	if bool(group.Restricted) != want.Restricted {
		diff.add("restricted", boolText(bool(group.Restricted)), boolText(want.Restricted))
	}
	if bool(group.NoFailback) != want.NoFailback {
		diff.add("nofailback", boolText(bool(group.NoFailback)), boolText(want.NoFailback))
	}
	if want.Comment != "" && group.Comment != want.Comment {
		diff.add("comment", group.Comment, want.Comment)
	}

	if sids := d.List("resources"); len(sids) > 0 {
		res, err := h.query(ctx, d.Kind, host, pve.HAResourcesCommand)
		if err != nil {
			return probeFailure(err)
		}
		resources, err := pve.ParseHAResources(res.Stdout)
		if err != nil {
			return resource.Unknown(err.Error())
		}
		groupOf := make(map[string]string, len(resources))
		for _, r := range resources {
			groupOf[r.SID] = r.Group
		}
		for _, sid := range sids {
			if groupOf[sid] != d.ID {
				diff.add("group of "+sid, groupOf[sid], d.ID)
			}
		}
	}

	return resource.Present(len(diff) == 0, diff.String())
}

func (h *HAGroupHandler) Reconcile(ctx context.Context, d resource.Descriptor, state resource.RemoteState) resource.Result {
	return h.converge(ctx, d, state, func(state resource.RemoteState) []step {
		host := d.PrimaryHost()
		groupCmd := pve.SetHAGroup(d.ID, haOptions(d))
		if state.IsAbsent() {
			groupCmd = pve.AddHAGroup(d.ID, haOptions(d))
		}
		steps := []step{{host: host, command: groupCmd, benign: haBenignSignatures}}
		for _, sid := range d.List("resources") {
			steps = append(steps, step{host: host, command: pve.AssignHAResource(sid, d.ID), benign: haBenignSignatures})
		}
		return steps
	})
}

// Destroy releases the group's resources from HA management, then removes the group.
func (h *HAGroupHandler) Destroy(ctx context.Context, d resource.Descriptor, state resource.RemoteState) resource.Result {
	host := d.PrimaryHost()
	var steps []step
	for _, sid := range d.List("resources") {
		steps = append(steps, step{host: host, command: pve.RemoveHAResource(sid), benign: notFoundSignatures})
	}
	steps = append(steps, step{host: host, command: pve.RemoveHAGroup(d.ID), benign: notFoundSignatures})
	return h.destroy(ctx, d, state, steps, false)
}

// normalizeList sorts a comma list so that ordering differences do not count.
func normalizeList(list string) string {
	var items []string
	for _, item := range strings.Split(list, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	slices.Sort(items)
	return strings.Join(items, ",")
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func boolText(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
