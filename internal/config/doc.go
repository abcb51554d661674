// Package config loads pvecfg.yaml, the declared configuration of one
// Proxmox VE cluster, and expands it into resource descriptors.
//
// Secrets may be referenced as ${ENV_VAR}; they are expanded before parsing.
// Timeouts of the remote executor come from PVECFG_* environment variables,
// see LoadTimeouts.
package config
