package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/imamik/pvecfg/internal/remote"
	"github.com/imamik/pvecfg/internal/resource"
)

// Prober determines the remote state of a resource.
type Prober interface {
	Probe(ctx context.Context, d resource.Descriptor) resource.RemoteState
}

// Reconciler converges and removes resources of one kind.
type Reconciler interface {
	Prober
	// Policy reports how the handler treats present but differing resources.
	Policy() Policy
	Reconcile(ctx context.Context, d resource.Descriptor, state resource.RemoteState) resource.Result
	Destroy(ctx context.Context, d resource.Descriptor, state resource.RemoteState) resource.Result
}

// Policy distinguishes create-only kinds from convergent kinds.
type Policy int

const (
	// PolicyCreate: Present(false) is a conflict and is never overwritten.
	PolicyCreate Policy = iota
	// PolicyConverge: Present(false) is converged with idempotent set commands.
	PolicyConverge
)

func (p Policy) String() string {
	if p == PolicyConverge {
		return "converge"
	}
	return "create"
}

// CommandHook is notified of every command a handler issues.
type CommandHook func(kind resource.Kind, mutating bool)

// Option configures handlers built by NewRegistry.
type Option func(*base)

// WithProbeRetries sets how often a read-only query is retried after a connection error.
func WithProbeRetries(retries int, delay time.Duration) Option {
	return func(b *base) {
		b.probeRetries = retries
		b.probeDelay = delay
	}
}

// WithCommandHook registers a hook called for every issued command.
func WithCommandHook(hook CommandHook) Option {
	return func(b *base) {
		b.hook = hook
	}
}

// Registry maps kinds to their handlers.
type Registry struct {
	handlers map[resource.Kind]Reconciler
}

// NewRegistry builds handlers for every known kind on top of exec.
func NewRegistry(exec remote.Executor, opts ...Option) *Registry {
	b := &base{exec: exec, probeRetries: 1, probeDelay: 2 * time.Second}
	for _, opt := range opts {
		opt(b)
	}

	r := &Registry{handlers: make(map[resource.Kind]Reconciler)}
	r.Register(resource.KindClusterCreate, &ClusterHandler{base: b})
	r.Register(resource.KindClusterJoin, &JoinHandler{base: b})
	r.Register(resource.KindHAGroup, &HAGroupHandler{base: b})
	r.Register(resource.KindCorosyncTune, &CorosyncHandler{base: b})
	r.Register(resource.KindStorageNFS, &StorageHandler{base: b, storageType: "nfs"})
	r.Register(resource.KindStorageISCSI, &StorageHandler{base: b, storageType: "iscsi"})
	r.Register(resource.KindStorageCeph, &StorageHandler{base: b, storageType: "rbd"})
	r.Register(resource.KindBackupJob, &BackupJobHandler{base: b})
	r.Register(resource.KindContainer, &ContainerHandler{base: b})
	return r
}

// Register installs or replaces the handler for kind.
func (r *Registry) Register(kind resource.Kind, h Reconciler) {
	r.handlers[kind] = h
}

// For returns the handler for kind.
func (r *Registry) For(kind resource.Kind) (Reconciler, error) {
	h, ok := r.handlers[kind]
	if !ok {
		return nil, fmt.Errorf("no reconciler registered for kind %q", kind)
	}
	return h, nil
}

// PlannedAction reports what Reconcile would do for state under policy,
// without issuing anything. The second value explains a no-op.
func PlannedAction(policy Policy, state resource.RemoteState) (resource.Action, string) {
	switch {
	case state.IsConverged():
		return resource.ActionNone, "up to date"
	case state.IsUnknown():
		return resource.ActionNone, state.String()
	case state.IsAbsent():
		return resource.ActionCreate, ""
	case policy == PolicyConverge:
		return resource.ActionConverge, state.Details
	default:
		return resource.ActionNone, "conflict: " + state.Details
	}
}
