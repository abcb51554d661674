// Package remote defines the command channel used to act on Proxmox nodes.
//
// An Executor runs exactly one command per call on a target host and reports
// the exit status together with captured stdout and stderr. Transport failures,
// non-zero exits and timeouts are reported as distinct error types so callers
// can classify them without parsing messages.
package remote

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Result holds the outcome of a single remote command.
type Result struct {
	Host     string
	Command  string
	ExitCode int
	Stdout   string
	Stderr   string
}

// Output returns stdout and stderr joined, for matching against known messages.
func (r *Result) Output() string {
	if r == nil {
		return ""
	}
	if r.Stderr == "" {
		return r.Stdout
	}
	if r.Stdout == "" {
		return r.Stderr
	}
	return r.Stdout + "\n" + r.Stderr
}

// Executor runs commands on remote hosts.
//
// Implementations issue the command exactly once. A nil error means the
// command exited with status zero.
type Executor interface {
	Execute(ctx context.Context, host, command string) (*Result, error)
}

// ConnectionError reports that the transport to a host could not be established.
type ConnectionError struct {
	Host string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection to %s failed: %v", e.Host, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// CommandError reports that a command ran but exited non-zero.
type CommandError struct {
	Result *Result
}

func (e *CommandError) Error() string {
	msg := strings.TrimSpace(e.Result.Stderr)
	if msg == "" {
		msg = strings.TrimSpace(e.Result.Stdout)
	}
	return fmt.Sprintf("command on %s exited with status %d: %s", e.Result.Host, e.Result.ExitCode, msg)
}

// TimeoutError reports that a command did not finish within its deadline.
// The remote side effect of the command is unknown.
type TimeoutError struct {
	Host    string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("command on %s timed out after %v", e.Host, e.Timeout)
}

// IsConnection reports whether err is a transport failure.
func IsConnection(err error) bool {
	var connErr *ConnectionError
	return errors.As(err, &connErr)
}

// IsTimeout reports whether err is a command timeout.
func IsTimeout(err error) bool {
	var timeoutErr *TimeoutError
	return errors.As(err, &timeoutErr)
}

// AsCommandError extracts the CommandError from err, if any.
func AsCommandError(err error) (*CommandError, bool) {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr, true
	}
	return nil, false
}
