package resource

import (
	"errors"
	"fmt"
	"strings"

	"github.com/imamik/pvecfg/internal/remote"
)

// ErrorKind classifies why a reconciliation failed.
type ErrorKind string

const (
	// ErrorConnection: the transport to the node could not be established.
	ErrorConnection ErrorKind = "connection"
	// ErrorCommand: a remote command ran and exited non-zero with no benign signature.
	ErrorCommand ErrorKind = "command"
	// ErrorConflict: the resource exists remotely with a different configuration.
	ErrorConflict ErrorKind = "conflict"
	// ErrorProbeUnavailable: remote state could not be determined.
	ErrorProbeUnavailable ErrorKind = "probe_unavailable"
	// ErrorTimeout: a remote command did not finish in time.
	ErrorTimeout ErrorKind = "timeout"
)

// Retryable reports whether the next pass may succeed without operator action.
func (k ErrorKind) Retryable() bool {
	switch k {
	case ErrorConnection, ErrorTimeout, ErrorProbeUnavailable:
		return true
	default:
		return false
	}
}

// InvalidatesState reports whether remote state must be treated as Unknown afterwards.
func (k ErrorKind) InvalidatesState() bool {
	return k == ErrorTimeout
}

// Sentinels for errors.Is checks.
var (
	ErrConflict         = errors.New("remote state conflicts with desired configuration")
	ErrProbeUnavailable = errors.New("remote state could not be determined")
)

// Error is a classified reconciliation failure.
type Error struct {
	Kind   ErrorKind
	Key    Key
	Host   string
	Stderr string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Key, e.Kind)
	if e.Host != "" {
		fmt.Fprintf(&b, " on %s", e.Host)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewConflictError reports an existing resource that does not match.
func NewConflictError(key Key, host string, state RemoteState) *Error {
	details := state.Details
	if details == "" {
		details = "configuration differs"
	}
	return &Error{
		Kind: ErrorConflict,
		Key:  key,
		Host: host,
		Err:  fmt.Errorf("%w: %s; operator intervention required", ErrConflict, details),
	}
}

// NewProbeUnavailableError reports that no action was taken because state is unknown.
func NewProbeUnavailableError(key Key, host string, state RemoteState) *Error {
	reason := state.Reason
	if reason == "" {
		reason = "no probe result"
	}
	return &Error{
		Kind: ErrorProbeUnavailable,
		Key:  key,
		Host: host,
		Err:  fmt.Errorf("%w: %s", ErrProbeUnavailable, reason),
	}
}

// FromRemote classifies an error returned by a remote.Executor.
func FromRemote(key Key, host string, err error) *Error {
	e := &Error{Key: key, Host: host, Err: err}
	switch {
	case remote.IsTimeout(err):
		e.Kind = ErrorTimeout
	case remote.IsConnection(err):
		e.Kind = ErrorConnection
	default:
		e.Kind = ErrorCommand
		if cmdErr, ok := remote.AsCommandError(err); ok {
			e.Stderr = cmdErr.Result.Stderr
			if strings.TrimSpace(e.Stderr) == "" {
				e.Stderr = cmdErr.Result.Stdout
			}
		}
	}
	return e
}

// Errors flattens err (including errors.Join trees) into classified errors.
// Unclassified leaves are reported as command errors.
func Errors(err error) []*Error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) && !isJoin(err) {
		return []*Error{e}
	}

	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []*Error
		for _, inner := range joined.Unwrap() {
			out = append(out, Errors(inner)...)
		}
		return out
	}

	return []*Error{{Kind: ErrorCommand, Err: err}}
}

// KindOf returns the kind of the first classified error in err.
func KindOf(err error) ErrorKind {
	errs := Errors(err)
	if len(errs) == 0 {
		return ""
	}
	return errs[0].Kind
}

func isJoin(err error) bool {
	_, ok := err.(interface{ Unwrap() []error })
	return ok
}
