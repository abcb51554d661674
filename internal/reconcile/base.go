package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/imamik/pvecfg/internal/platform/pve"
	"github.com/imamik/pvecfg/internal/remote"
	"github.com/imamik/pvecfg/internal/resource"
	"github.com/imamik/pvecfg/internal/util/retry"
)

// Signatures of non-zero exits that mean the desired effect already holds.
var (
	alreadyExistsSignatures = []string{"already exists", "already defined"}
	notFoundSignatures      = []string{"does not exist", "not found", "no such"}
)

// base carries what every handler shares: the executor and query policy.
type base struct {
	exec         remote.Executor
	probeRetries int
	probeDelay   time.Duration
	hook         CommandHook
}

// step is one mutating command on one host.
type step struct {
	host    string
	command string
	// benign lists output signatures that count as "already done".
	benign []string
}

// query runs a read-only command, retrying connection failures.
func (b *base) query(ctx context.Context, kind resource.Kind, host, command string) (*remote.Result, error) {
	var res *remote.Result
	err := retry.WithExponentialBackoff(ctx, func() error {
		b.notify(kind, false)
		var err error
		res, err = b.exec.Execute(ctx, host, command)
		return err
	},
		retry.WithMaxRetries(b.probeRetries),
		retry.WithInitialDelay(b.probeDelay),
		retry.WithRetryIf(remote.IsConnection),
		retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
			log.Debug().Str("host", host).Int("attempt", attempt).Dur("delay", delay).Err(err).Msg("retrying probe")
		}),
	)
	return res, err
}

// mutate issues a mutating command exactly once. The command is detached
// from ctx cancellation so a cancelled pass never interrupts it.
func (b *base) mutate(ctx context.Context, kind resource.Kind, host, command string) (*remote.Result, error) {
	b.notify(kind, true)
	log.Debug().Str("kind", string(kind)).Str("host", host).Str("command", command).Msg("issuing command")
	return b.exec.Execute(context.WithoutCancel(ctx), host, command)
}

func (b *base) notify(kind resource.Kind, mutating bool) {
	if b.hook != nil {
		b.hook(kind, mutating)
	}
}

// run issues steps in order and folds their results into one Result.
//
// With keepGoing, a failing step does not stop later steps; every failure is
// joined into the result error. Steps are never rolled back.
func (b *base) run(ctx context.Context, d resource.Descriptor, state resource.RemoteState, action resource.Action, steps []step, keepGoing bool) resource.Result {
	key := d.Key()
	start := time.Now()
	var (
		errs      []error
		mutations int
		benign    int
		timedOut  bool
	)

	for _, s := range steps {
		_, err := b.mutate(ctx, d.Kind, s.host, s.command)
		mutations++
		if err == nil {
			continue
		}
		if exitedWith(err, s.benign) {
			benign++
			continue
		}

		classified := resource.FromRemote(key, s.host, err)
		if classified.Kind.InvalidatesState() {
			timedOut = true
		}
		errs = append(errs, classified)
		if !keepGoing {
			break
		}
	}

	var result resource.Result
	switch {
	case len(errs) > 0:
		if timedOut {
			state = resource.Unknown("command timed out; remote effect unknown")
		}
		result = resource.Failed(key, action, state, errors.Join(errs...), mutations)
	case benign == len(steps):
		result = resource.Skipped(key, state, "already "+pastTense(action))
		result.Action = action
		result.Mutations = mutations
	default:
		result = resource.Succeeded(key, action, state, mutations)
	}
	result.Duration = time.Since(start)
	return result
}

// createOnly applies the create policy.
func (b *base) createOnly(ctx context.Context, d resource.Descriptor, state resource.RemoteState, steps []step, keepGoing bool) resource.Result {
	key := d.Key()
	switch {
	case state.IsConverged():
		return resource.Skipped(key, state, "up to date")
	case state.IsUnknown():
		return resource.Failed(key, resource.ActionCreate, state, resource.NewProbeUnavailableError(key, d.PrimaryHost(), state), 0)
	case state.IsPresent():
		return resource.Failed(key, resource.ActionCreate, state, resource.NewConflictError(key, d.PrimaryHost(), state), 0)
	}
	return b.run(ctx, d, state, resource.ActionCreate, steps, keepGoing)
}

// converge applies the converge policy. build receives the probed state so it
// can choose between create and update commands.
func (b *base) converge(ctx context.Context, d resource.Descriptor, state resource.RemoteState, build func(resource.RemoteState) []step) resource.Result {
	key := d.Key()
	switch {
	case state.IsConverged():
		return resource.Skipped(key, state, "up to date")
	case state.IsUnknown():
		return resource.Failed(key, resource.ActionConverge, state, resource.NewProbeUnavailableError(key, d.PrimaryHost(), state), 0)
	}
	action := resource.ActionConverge
	if state.IsAbsent() {
		action = resource.ActionCreate
	}
	return b.run(ctx, d, state, action, build(state), false)
}

// destroy applies the destroy policy. With refuseMismatch, a resource that is
// present but does not match is left alone as a conflict.
func (b *base) destroy(ctx context.Context, d resource.Descriptor, state resource.RemoteState, steps []step, refuseMismatch bool) resource.Result {
	key := d.Key()
	switch {
	case state.IsAbsent():
		return resource.Skipped(key, state, "already absent")
	case state.IsUnknown():
		return resource.Failed(key, resource.ActionDestroy, state, resource.NewProbeUnavailableError(key, d.PrimaryHost(), state), 0)
	case refuseMismatch && !state.Matching:
		return resource.Failed(key, resource.ActionDestroy, state, resource.NewConflictError(key, d.PrimaryHost(), state), 0)
	}
	return b.run(ctx, d, state, resource.ActionDestroy, steps, true)
}

// probeFailure turns a query error into Unknown state.
func probeFailure(err error) resource.RemoteState {
	switch {
	case remote.IsTimeout(err):
		return resource.Unknown("probe timed out")
	case remote.IsConnection(err):
		return resource.Unknown(fmt.Sprintf("probe connection failed: %v", err))
	default:
		return resource.Unknown(fmt.Sprintf("probe failed: %v", err))
	}
}

// exitedWith reports whether err is a non-zero exit whose output carries one
// of signatures. Transport failures never match, whatever output they carry.
func exitedWith(err error, signatures []string) bool {
	cmdErr, ok := remote.AsCommandError(err)
	return ok && pve.MatchesAny(cmdErr.Result.Output(), signatures)
}

func pastTense(action resource.Action) string {
	switch action {
	case resource.ActionDestroy:
		return "absent"
	case resource.ActionConverge:
		return "converged"
	default:
		return "exists"
	}
}

func onHosts(hosts []string, command string, benign []string) []step {
	steps := make([]step, 0, len(hosts))
	for _, h := range hosts {
		steps = append(steps, step{host: h, command: command, benign: benign})
	}
	return steps
}

// differences collects "name: have x, want y" fragments for Details.
type differences []string

func (d *differences) add(name, have, want string) {
	*d = append(*d, fmt.Sprintf("%s: have %q, want %q", name, have, want))
}

func (d differences) String() string {
	return strings.Join(d, "; ")
}

func signatures(lists ...[]string) []string {
	var out []string
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}
