// Package pve is the boundary to the Proxmox VE command line.
//
// It builds the command lines issued on nodes (pvecm, pvesm, pvesh,
// ha-manager, pct) and parses their human- or JSON-formatted output. Flag
// names and values are passed through verbatim; nothing here interprets
// Proxmox semantics beyond what is needed to classify state.
package pve

import (
	"sort"
	"strings"

	"al.essio.dev/pkg/shellescape"
)

// Command accumulates the argv of a single Proxmox CLI invocation.
type Command struct {
	args []string
}

// NewCommand starts a command line with program and positional args.
func NewCommand(program string, args ...string) *Command {
	return &Command{args: append([]string{program}, args...)}
}

// Arg appends a positional argument.
func (c *Command) Arg(arg string) *Command {
	c.args = append(c.args, arg)
	return c
}

// Flag appends --name value. Empty values are omitted.
func (c *Command) Flag(name, value string) *Command {
	if value == "" {
		return c
	}
	c.args = append(c.args, "--"+name, value)
	return c
}

// BoolFlag appends --name 1 when set is true.
func (c *Command) BoolFlag(name string, set bool) *Command {
	if set {
		c.args = append(c.args, "--"+name, "1")
	}
	return c
}

// FlagsFrom appends every non-empty attribute as a flag, in sorted name order,
// skipping names listed in exclude.
func (c *Command) FlagsFrom(attrs map[string]string, exclude ...string) *Command {
	skip := make(map[string]bool, len(exclude))
	for _, name := range exclude {
		skip[name] = true
	}

	names := make([]string, 0, len(attrs))
	for name := range attrs {
		if !skip[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		c.Flag(name, attrs[name])
	}
	return c
}

// Args returns a copy of the argv.
func (c *Command) Args() []string {
	return append([]string(nil), c.args...)
}

// String renders the command line with shell quoting applied.
func (c *Command) String() string {
	return shellescape.QuoteCommand(c.args)
}

// Script wraps a multi-line POSIX shell script into a single command line.
func Script(lines ...string) string {
	body := strings.Join(append([]string{"set -e"}, lines...), "\n")
	return "sh -c " + shellescape.Quote(body)
}
