package orchestration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/imamik/pvecfg/internal/provisioning"
	"github.com/imamik/pvecfg/internal/reconcile"
	"github.com/imamik/pvecfg/internal/resource"
	"github.com/imamik/pvecfg/internal/state"
)

// Driver runs apply, destroy and plan passes.
type Driver struct {
	registry *reconcile.Registry
	store    state.Store
	conn     resource.ConnectionParams

	// refresh probes settled resources to detect drift.
	refresh bool
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithRefresh makes apply probe unchanged, healthy resources instead of
// trusting their record, so drift made outside pvecfg is converged.
func WithRefresh(refresh bool) DriverOption {
	return func(d *Driver) {
		d.refresh = refresh
	}
}

// NewDriver creates a driver. conn is folded into every fingerprint.
func NewDriver(registry *reconcile.Registry, store state.Store, conn resource.ConnectionParams, opts ...DriverOption) *Driver {
	d := &Driver{registry: registry, store: store, conn: conn}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// pass carries what the phases of one apply or destroy pass share.
type pass struct {
	driver  *Driver
	desired []resource.Descriptor
	diff    *Diff
	report  *Report

	mu        sync.Mutex
	storeErrs []error
}

func (p *pass) storeFailed(err error) {
	p.mu.Lock()
	p.storeErrs = append(p.storeErrs, err)
	p.mu.Unlock()
}

func (p *pass) takeStoreErrors() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := errors.Join(p.storeErrs...)
	p.storeErrs = nil
	return err
}

// phase adapts a pass step to provisioning.Phase.
type phase struct {
	name string
	run  func(*provisioning.Context) error
}

func (ph phase) Name() string                         { return ph.name }
func (ph phase) Run(ctx *provisioning.Context) error { return ph.run(ctx) }

// Apply reconciles desired against the remote system.
//
// The returned error is set only when the pass itself could not run to
// completion; the report is returned in either case.
func (d *Driver) Apply(ctx *provisioning.Context, desired []resource.Descriptor) (*Report, error) {
	p := &pass{driver: d, desired: desired, report: newReport(ctx.PassID, ModeApply)}
	start := time.Now()

	err := provisioning.RunPhases(ctx, []provisioning.Phase{
		provisioning.NewValidationPhase(desired),
		phase{name: "state", run: p.loadState},
		phase{name: "destroy", run: p.destroyRemoved},
		phase{name: "reconcile", run: p.reconcileDeclared},
	})
	p.report.Duration = time.Since(start)
	d.finish(ctx, p.report, err)
	return p.report, err
}

// Destroy tears down every recorded resource.
func (d *Driver) Destroy(ctx *provisioning.Context) (*Report, error) {
	p := &pass{driver: d, report: newReport(ctx.PassID, ModeDestroy)}
	start := time.Now()

	err := provisioning.RunPhases(ctx, []provisioning.Phase{
		phase{name: "state", run: p.loadState},
		phase{name: "destroy", run: p.destroyRemoved},
	})
	p.report.Duration = time.Since(start)
	d.finish(ctx, p.report, err)
	return p.report, err
}

func (d *Driver) finish(ctx *provisioning.Context, report *Report, err error) {
	ctx.Metrics.SetPassSuccess(err == nil && report.Success)
	ctx.Observer.Printf("%s pass: %d applied, %d skipped, %d failed, %d destroyed, %d not attempted",
		report.Mode, report.Counts.Applied, report.Counts.Skipped, report.Counts.Failed,
		report.Counts.Destroyed, report.Counts.NotAttempted)
}

func (p *pass) loadState(ctx *provisioning.Context) error {
	records, err := p.driver.store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list state records: %w", err)
	}
	diff, err := ComputeDiff(p.desired, records, p.driver.conn)
	if err != nil {
		return err
	}
	p.diff = diff
	ctx.Observer.Printf("%d added, %d changed, %d unchanged, %d removed",
		len(diff.Added), len(diff.Changed), len(diff.Unchanged), len(diff.Removed))
	return nil
}

func (p *pass) destroyRemoved(ctx *provisioning.Context) error {
	if len(p.diff.Removed) == 0 {
		return nil
	}
	results := provisioning.Destroy(ctx, p.diff.RemovedDescriptors(), p.destroyOne)
	p.report.add(results, true)
	return p.takeStoreErrors()
}

func (p *pass) reconcileDeclared(ctx *provisioning.Context) error {
	results := provisioning.Apply(ctx, p.diff.Declared(), p.reconcileOne)
	p.report.add(results, false)
	return p.takeStoreErrors()
}

func (p *pass) reconcileOne(ctx context.Context, desc resource.Descriptor) resource.Result {
	key := desc.Key()
	h, err := p.driver.registry.For(desc.Kind)
	if err != nil {
		return resource.Failed(key, resource.ActionNone, resource.Unknown("no handler"), err, 0)
	}

	var res resource.Result
	if p.diff.settled(key) && !p.driver.refresh {
		prev := p.diff.Previous(key)
		res = resource.Skipped(key, prev.ObservedState, "unchanged since last pass")
	} else {
		res = h.Reconcile(ctx, desc, h.Probe(ctx, desc))
	}

	p.record(ctx, desc, p.diff.Fingerprint(key), res)
	return res
}

func (p *pass) destroyOne(ctx context.Context, desc resource.Descriptor) resource.Result {
	key := desc.Key()
	h, err := p.driver.registry.For(desc.Kind)
	if err != nil {
		return resource.Failed(key, resource.ActionDestroy, resource.Unknown("no handler"), err, 0)
	}

	res := h.Destroy(ctx, desc, h.Probe(ctx, desc))
	if res.Outcome.Healthy() {
		if err := p.driver.store.Delete(ctx, key); err != nil && !errors.Is(err, state.ErrNotFound) {
			p.storeFailed(fmt.Errorf("failed to delete record %s: %w", key, err))
		}
		return res
	}

	fingerprint := ""
	if prev := p.diff.Previous(key); prev != nil {
		fingerprint = prev.Fingerprint
	}
	p.record(ctx, desc, fingerprint, res)
	return res
}

// record persists the outcome of an attempt. The store write is detached from
// pass cancellation: an attempt that ran must be recorded.
func (p *pass) record(ctx context.Context, desc resource.Descriptor, fingerprint string, res resource.Result) {
	rec := &state.Record{
		Key:           desc.Key(),
		Descriptor:    desc,
		Fingerprint:   fingerprint,
		ObservedState: observedAfter(res),
		Outcome:       res.Outcome,
		PassID:        p.report.PassID,
		UpdatedAt:     time.Now().UTC(),
	}
	if res.Err != nil {
		rec.ErrorKind = resource.KindOf(res.Err)
		rec.Error = res.Err.Error()
	}
	if err := p.driver.store.Put(context.WithoutCancel(ctx), rec); err != nil {
		p.storeFailed(fmt.Errorf("failed to write record %s: %w", rec.Key, err))
	}
}

// observedAfter derives the remote state left behind by an attempt.
func observedAfter(res resource.Result) resource.RemoteState {
	if res.Err != nil {
		for _, e := range resource.Errors(res.Err) {
			if e.Kind.InvalidatesState() {
				return resource.Unknown("command timed out; remote effect unknown")
			}
		}
	}
	switch {
	case res.Outcome.Healthy() && res.Action == resource.ActionDestroy:
		return resource.Absent()
	case res.Outcome.Healthy():
		return resource.Present(true, "")
	default:
		return res.State
	}
}
