package reconcile

import (
	"context"
	"slices"

	"github.com/imamik/pvecfg/internal/platform/pve"
	"github.com/imamik/pvecfg/internal/resource"
)

// BackupJobHandler converges a cluster-wide vzdump job. Attributes are passed
// to `pvesh create|set /cluster/backup` verbatim; storage names the target
// storage id.
type BackupJobHandler struct {
	*base
}

func (h *BackupJobHandler) Policy() Policy { return PolicyConverge }

func (h *BackupJobHandler) Probe(ctx context.Context, d resource.Descriptor) resource.RemoteState {
	res, err := h.query(ctx, d.Kind, d.PrimaryHost(), pve.BackupJobsCommand)
	if err != nil {
		return probeFailure(err)
	}
	jobs, err := pve.ParseBackupJobs(res.Stdout)
	if err != nil {
		return resource.Unknown(err.Error())
	}

	idx := slices.IndexFunc(jobs, func(j pve.BackupJob) bool { return j.ID == d.ID })
	if idx < 0 {
		return resource.Absent()
	}
	job := jobs[idx]

	observed := map[string]string{
		"storage":  job.Storage,
		"schedule": job.Schedule,
		"mode":     job.Mode,
		"vmid":     normalizeList(string(job.VMID)),
		"all":      boolText(bool(job.All)),
		"enabled":  boolText(job.IsEnabled()),
		"compress": job.Compress,
		"node":     job.Node,
		"mailto":   job.MailTo,
	}

	var diff differences
	for _, key := range d.AttributeNames() {
		have, known := observed[key]
		if !known {
			continue
		}
		want := d.Attr(key)
		switch key {
		case "vmid":
			want = normalizeList(want)
		case "all", "enabled":
			want = boolText(truthy(want))
		}
		if have != want {
			diff.add(key, have, want)
		}
	}
	return resource.Present(len(diff) == 0, diff.String())
}

func (h *BackupJobHandler) Reconcile(ctx context.Context, d resource.Descriptor, state resource.RemoteState) resource.Result {
	return h.converge(ctx, d, state, func(state resource.RemoteState) []step {
		cmd := pve.UpdateBackupJob(d.ID, d.Attributes)
		if state.IsAbsent() {
			cmd = pve.CreateBackupJob(d.ID, d.Attributes)
		}
		return []step{{host: d.PrimaryHost(), command: cmd, benign: alreadyExistsSignatures}}
	})
}

func (h *BackupJobHandler) Destroy(ctx context.Context, d resource.Descriptor, state resource.RemoteState) resource.Result {
	steps := []step{{host: d.PrimaryHost(), command: pve.DeleteBackupJob(d.ID), benign: notFoundSignatures}}
	return h.destroy(ctx, d, state, steps, false)
}
