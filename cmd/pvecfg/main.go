// Package main is the entry point for the pvecfg CLI.
//
// pvecfg configures Proxmox VE clusters declaratively over SSH: it forms the
// cluster, joins nodes, and manages HA groups, corosync options, storage,
// backup jobs and containers from a single pvecfg.yaml.
//
// Commands: apply, plan, destroy, state, version.
//
// For detailed usage information, run:
//
//	pvecfg --help
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/imamik/pvecfg/cmd/pvecfg/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// A signal stops the pass before the next resource starts; commands
	// already issued run to completion.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
