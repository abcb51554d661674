package provisioning

import (
	"context"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/imamik/pvecfg/internal/resource"
	"github.com/imamik/pvecfg/internal/util/async"
)

// WorkFunc reconciles or destroys one resource.
type WorkFunc func(ctx context.Context, d resource.Descriptor) resource.Result

// Apply runs work over descriptors tier by tier, in dependency order.
//
// A tier starts only after every resource of the previous tier reached an
// outcome. Resources whose kind depends on a kind with a failed or
// unattempted resource are not attempted. Results are returned in tier order.
func Apply(ctx *Context, descriptors []resource.Descriptor, work WorkFunc) []resource.Result {
	unhealthy := make(map[resource.Kind]bool)
	blocked := func(d resource.Descriptor) string {
		for _, k := range resource.AllKinds() {
			if unhealthy[k] && d.Kind.DependsOn(k) {
				return fmt.Sprintf("prerequisite %s did not succeed", k)
			}
		}
		return ""
	}

	var results []resource.Result
	for _, tier := range resource.Tiers(descriptors) {
		phase := fmt.Sprintf("tier %d", tier[0].Kind.Tier())
		tierResults := runTier(ctx, phase, tier, false, blocked, work)
		for _, r := range tierResults {
			if !r.Outcome.Healthy() {
				unhealthy[r.Key.Kind] = true
			}
		}
		results = append(results, tierResults...)
	}
	return results
}

// Destroy runs work over descriptors in reverse tier order. Nothing is
// blocked: teardown is best effort and total.
func Destroy(ctx *Context, descriptors []resource.Descriptor, work WorkFunc) []resource.Result {
	tiers := resource.Tiers(descriptors)
	slices.Reverse(tiers)

	var results []resource.Result
	for _, tier := range tiers {
		phase := fmt.Sprintf("destroy tier %d", tier[0].Kind.Tier())
		results = append(results, runTier(ctx, phase, tier, true, func(resource.Descriptor) string { return "" }, work)...)
	}
	return results
}

func runTier(ctx *Context, phase string, tier []resource.Descriptor, destroying bool, blocked func(resource.Descriptor) string, work WorkFunc) []resource.Result {
	start := time.Now()
	LogPhaseStart(ctx.Observer, phase, len(tier))

	results := make([]resource.Result, len(tier))
	var done atomic.Int32

	tasks := make([]async.Task, len(tier))
	for i, d := range tier {
		tasks[i] = async.Task{
			Name: d.Key().String(),
			Func: func(c context.Context) error {
				results[i] = runOne(ctx, c, phase, d, destroying, blocked, work)
				ctx.Observer.Progress(phase, int(done.Add(1)), len(tier))
				return nil
			},
		}
	}
	_ = async.RunBounded(ctx, ctx.Concurrency, tasks)

	failed := 0
	for _, r := range results {
		if r.Outcome == resource.OutcomeFailed {
			failed++
		}
	}
	LogPhaseComplete(ctx.Observer, phase, failed, time.Since(start))
	return results
}

func runOne(ctx *Context, c context.Context, phase string, d resource.Descriptor, destroying bool, blocked func(resource.Descriptor) string, work WorkFunc) resource.Result {
	key := d.Key()

	var res resource.Result
	switch reason := blocked(d); {
	case reason != "":
		res = resource.NotAttempted(key, reason)
	case c.Err() != nil:
		res = resource.NotAttempted(key, "pass cancelled")
	default:
		LogResourceStart(ctx.Observer, phase, key, destroying)
		start := time.Now()
		res = work(c, d)
		res.Key = key
		if res.Duration == 0 {
			res.Duration = time.Since(start)
		}
	}

	LogResourceResult(ctx.Observer, phase, res)
	ctx.Metrics.ObserveResult(res)
	return res
}
