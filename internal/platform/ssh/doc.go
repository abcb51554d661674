// Package ssh provides the SSH-backed remote.Executor used to run Proxmox CLI
// commands (pvecm, pvesh, pvesm, ha-manager, pct) on cluster nodes.
//
// A single Executor is built once per reconciliation pass from the connection
// parameters and is shared by every resource. Each Execute call opens its own
// connection, runs one command, and closes the connection again.
//
// Security: Host key verification is disabled unless HostKeyCallback is set.
// Private key material is parsed once and never logged.
package ssh
