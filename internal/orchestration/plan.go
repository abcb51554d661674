package orchestration

import (
	"context"
	"fmt"
	"sort"

	"github.com/imamik/pvecfg/internal/provisioning"
	"github.com/imamik/pvecfg/internal/reconcile"
	"github.com/imamik/pvecfg/internal/resource"
	"github.com/imamik/pvecfg/internal/util/async"
)

// PlanEntry is the intended action for one resource.
type PlanEntry struct {
	Key    resource.Key
	Change Change
	Action resource.Action
	State  resource.RemoteState
	// Note explains a no-op or a blocked action.
	Note string
}

// Plan lists what apply would do, in tier order.
type Plan struct {
	PassID  string
	Entries []PlanEntry
}

// Actionable reports how many entries would issue commands.
func (p *Plan) Actionable() int {
	n := 0
	for _, e := range p.Entries {
		if e.Action != resource.ActionNone {
			n++
		}
	}
	return n
}

// Plan computes the diff and probes every resource without mutating anything.
// Neither the remote system nor the state store is written.
func (d *Driver) Plan(ctx *provisioning.Context, desired []resource.Descriptor) (*Plan, error) {
	if err := provisioning.NewValidationPhase(desired).Run(ctx); err != nil {
		return nil, err
	}
	records, err := d.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list state records: %w", err)
	}
	diff, err := ComputeDiff(desired, records, d.conn)
	if err != nil {
		return nil, err
	}

	type item struct {
		desc       resource.Descriptor
		destroying bool
	}
	var items []item
	for _, desc := range diff.Declared() {
		items = append(items, item{desc: desc})
	}
	for _, desc := range diff.RemovedDescriptors() {
		items = append(items, item{desc: desc, destroying: true})
	}

	entries := make([]PlanEntry, len(items))
	tasks := make([]async.Task, len(items))
	for i, it := range items {
		tasks[i] = async.Task{
			Name: it.desc.Key().String(),
			Func: func(c context.Context) error {
				entry, err := d.planOne(c, diff, it.desc, it.destroying)
				entries[i] = entry
				return err
			},
		}
	}
	if err := async.RunBounded(ctx, ctx.Concurrency, tasks); err != nil {
		return nil, err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].Key, entries[j].Key
		if ta, tb := a.Kind.Tier(), b.Kind.Tier(); ta != tb {
			return ta < tb
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.ID < b.ID
	})
	return &Plan{PassID: ctx.PassID, Entries: entries}, nil
}

func (d *Driver) planOne(ctx context.Context, diff *Diff, desc resource.Descriptor, destroying bool) (PlanEntry, error) {
	key := desc.Key()
	entry := PlanEntry{Key: key, Change: diff.ChangeOf(key)}

	h, err := d.registry.For(desc.Kind)
	if err != nil {
		return entry, err
	}

	if !destroying && diff.settled(key) && !d.refresh {
		entry.Action = resource.ActionNone
		entry.State = diff.Previous(key).ObservedState
		entry.Note = "unchanged since last pass"
		return entry, nil
	}

	entry.State = h.Probe(ctx, desc)
	if destroying {
		entry.Action, entry.Note = plannedDestroy(h.Policy(), entry.State)
	} else {
		entry.Action, entry.Note = reconcile.PlannedAction(h.Policy(), entry.State)
	}
	return entry, nil
}

func plannedDestroy(policy reconcile.Policy, st resource.RemoteState) (resource.Action, string) {
	switch {
	case st.IsAbsent():
		return resource.ActionNone, "already absent"
	case st.IsUnknown():
		return resource.ActionNone, st.String()
	case !st.Matching && policy == reconcile.PolicyCreate:
		return resource.ActionNone, "conflict: " + st.Details
	default:
		return resource.ActionDestroy, ""
	}
}
