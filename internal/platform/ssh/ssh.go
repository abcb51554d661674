package ssh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/imamik/pvecfg/internal/remote"
	"github.com/imamik/pvecfg/internal/util/retry"
)

const (
	defaultPort           = 22
	defaultDialTimeout    = 10 * time.Second
	defaultCommandTimeout = 5 * time.Minute
	defaultMaxRetries     = 2
	defaultRetryDelay     = 2 * time.Second
	defaultMaxDelay       = 10 * time.Second
)

// Config holds the connection context shared by all commands of a pass.
type Config struct {
	Port       int
	User       string
	PrivateKey []byte

	// DialTimeout bounds TCP connect plus SSH handshake.
	// If zero, defaultDialTimeout is used.
	DialTimeout time.Duration

	// CommandTimeout bounds a single command once it has been issued.
	// If zero, defaultCommandTimeout is used.
	CommandTimeout time.Duration

	// MaxRetries is the number of additional connection attempts.
	// Retries only cover establishing the transport; a command is never re-issued.
	// Negative disables retries. If zero, defaultMaxRetries is used.
	MaxRetries int

	// RetryDelay is the initial delay between connection attempts.
	// If zero, defaultRetryDelay is used.
	RetryDelay time.Duration

	// HostKeyCallback handles host key verification.
	// If nil, ssh.InsecureIgnoreHostKey() is used.
	HostKeyCallback ssh.HostKeyCallback
}

// Executor runs commands on Proxmox nodes over SSH.
type Executor struct {
	config *Config
	signer ssh.Signer
}

var _ remote.Executor = (*Executor)(nil)

// NewExecutor creates a new SSH executor and validates the private key.
func NewExecutor(cfg *Config) (*Executor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.User == "" {
		return nil, fmt.Errorf("config user cannot be empty")
	}
	if len(cfg.PrivateKey) == 0 {
		return nil, fmt.Errorf("config private key cannot be empty")
	}

	// Copy config to avoid mutating caller's struct
	configCopy := *cfg

	if configCopy.Port == 0 {
		configCopy.Port = defaultPort
	}
	if configCopy.DialTimeout == 0 {
		configCopy.DialTimeout = defaultDialTimeout
	}
	if configCopy.CommandTimeout == 0 {
		configCopy.CommandTimeout = defaultCommandTimeout
	}
	if configCopy.MaxRetries == 0 {
		configCopy.MaxRetries = defaultMaxRetries
	} else if configCopy.MaxRetries < 0 {
		configCopy.MaxRetries = 0
	}
	if configCopy.RetryDelay == 0 {
		configCopy.RetryDelay = defaultRetryDelay
	}
	if configCopy.HostKeyCallback == nil {
		configCopy.HostKeyCallback = ssh.InsecureIgnoreHostKey() //nolint:gosec // opt-in verification via HostKeyCallback
	}

	signer, err := ssh.ParsePrivateKey(configCopy.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	return &Executor{
		config: &configCopy,
		signer: signer,
	}, nil
}

// Execute runs a single command on host.
//
// The dial honours ctx. Once the command has been issued it runs until it
// exits or CommandTimeout elapses; cancelling ctx does not interrupt it.
func (e *Executor) Execute(ctx context.Context, host, command string) (*remote.Result, error) {
	client, err := e.connect(ctx, host)
	if err != nil {
		return nil, &remote.ConnectionError{Host: host, Err: err}
	}
	defer func() { _ = client.Close() }()

	return e.runCommand(client, host, command)
}

// connect establishes the SSH connection, retrying transport failures.
func (e *Executor) connect(ctx context.Context, host string) (*ssh.Client, error) {
	config := &ssh.ClientConfig{
		User: e.config.User,
		Auth: []ssh.AuthMethod{
			ssh.PublicKeys(e.signer),
		},
		HostKeyCallback: e.config.HostKeyCallback,
		Timeout:         e.config.DialTimeout,
	}

	addr := net.JoinHostPort(host, strconv.Itoa(e.config.Port))
	var client *ssh.Client

	err := retry.WithExponentialBackoff(ctx, func() error {
		var dialErr error
		client, dialErr = e.dial(ctx, addr, config)
		if dialErr != nil && isAuthFailure(dialErr) {
			return retry.Fatal(dialErr)
		}
		return dialErr
	},
		retry.WithMaxRetries(e.config.MaxRetries),
		retry.WithInitialDelay(e.config.RetryDelay),
		retry.WithMaxDelay(defaultMaxDelay),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to establish SSH connection to %s: %w", addr, err)
	}

	return client, nil
}

// dial opens the TCP connection with ctx and bounds the handshake by DialTimeout.
func (e *Executor) dial(ctx context.Context, addr string, config *ssh.ClientConfig) (*ssh.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, retry.Fatal(err)
	}

	dialer := &net.Dialer{Timeout: e.config.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	_ = conn.SetDeadline(time.Now().Add(e.config.DialTimeout))
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	_ = conn.SetDeadline(time.Time{})

	return ssh.NewClient(c, chans, reqs), nil
}

// runCommand issues the command once on an established connection.
func (e *Executor) runCommand(client *ssh.Client, host, command string) (*remote.Result, error) {
	session, err := client.NewSession()
	if err != nil {
		return nil, &remote.ConnectionError{Host: host, Err: fmt.Errorf("failed to create SSH session: %w", err)}
	}
	defer func() { _ = session.Close() }()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	if err := session.Start(command); err != nil {
		return nil, &remote.ConnectionError{Host: host, Err: fmt.Errorf("failed to start command: %w", err)}
	}

	done := make(chan error, 1)
	go func() { done <- session.Wait() }()

	timer := time.NewTimer(e.config.CommandTimeout)
	defer timer.Stop()

	select {
	case err = <-done:
	case <-timer.C:
		// Tear the transport down; the remote process may still finish on its own.
		_ = client.Close()
		return nil, &remote.TimeoutError{Host: host, Timeout: e.config.CommandTimeout}
	}

	res := &remote.Result{
		Host:    host,
		Command: command,
		Stdout:  stdout.String(),
		Stderr:  stderr.String(),
	}
	if err == nil {
		return res, nil
	}

	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitStatus()
		return res, &remote.CommandError{Result: res}
	}

	// ExitMissingError or a dropped connection: the command's fate is unknown.
	return res, &remote.ConnectionError{Host: host, Err: err}
}

func isAuthFailure(err error) bool {
	return strings.Contains(err.Error(), "unable to authenticate")
}
