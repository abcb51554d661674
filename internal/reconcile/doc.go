// Package reconcile probes and converges individual Proxmox resources.
//
// Every resource kind has a handler that can Probe remote state, Reconcile a
// descriptor against a probed state, and Destroy it. Handlers share two
// policies:
//
//   - create kinds (cluster create/join, storage, containers) never overwrite:
//     a present but different resource is a conflict for the operator.
//   - converge kinds (HA groups, corosync totem options, backup jobs) are set
//     with idempotent commands whenever they differ.
//
// A handler never acts on Unknown state. Mutating commands are issued exactly
// once and are detached from pass cancellation; read-only queries may be
// retried on connection errors.
package reconcile
