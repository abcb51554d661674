// Package handlers implements the business logic for CLI commands.
//
// Each handler loads the configuration, wires the SSH executor, state store
// and reconcilers together, runs one pass and renders its report.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/imamik/pvecfg/internal/config"
	"github.com/imamik/pvecfg/internal/orchestration"
	pvessh "github.com/imamik/pvecfg/internal/platform/ssh"
	"github.com/imamik/pvecfg/internal/provisioning"
	"github.com/imamik/pvecfg/internal/reconcile"
	"github.com/imamik/pvecfg/internal/remote"
	"github.com/imamik/pvecfg/internal/state"
)

// GlobalOptions are the flags shared by every command.
type GlobalOptions struct {
	ConfigPath  string
	LogLevel    string
	LogJSON     bool
	MetricsFile string
}

// ErrPassFailed is returned when a pass finished with failed resources.
// The report has already been printed when it is returned.
var ErrPassFailed = errors.New("pass finished with failures")

// Factory functions for dependency injection in tests.
var (
	findConfigFile = config.FindConfigFile
	loadConfig     = config.Load
	readPrivateKey = func(cfg *config.Config) ([]byte, error) { return cfg.ReadPrivateKey() }
	newExecutor    = func(cfg *pvessh.Config) (remote.Executor, error) { return pvessh.NewExecutor(cfg) }
	openStore      = func(ctx context.Context, opts state.Options) (state.Store, error) { return state.Open(ctx, opts) }
	stdout         io.Writer = os.Stdout
)

// session holds what one pass is wired from.
type session struct {
	cfg     *config.Config
	store   state.Store
	driver  *orchestration.Driver
	metrics *provisioning.Metrics
}

func resolveConfig(path string) (*config.Config, error) {
	if path == "" {
		found, err := findConfigFile()
		if err != nil {
			return nil, err
		}
		path = found
	}
	cfg, err := loadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func stateOptions(cfg *config.Config) state.Options {
	return state.Options{
		Backend: cfg.State.Backend,
		Path:    cfg.State.Path,
		S3: state.S3Options{
			Endpoint:  cfg.State.S3.Endpoint,
			Region:    cfg.State.S3.Region,
			Bucket:    cfg.State.S3.Bucket,
			Prefix:    cfg.State.S3.Prefix,
			AccessKey: cfg.State.S3.AccessKey,
			SecretKey: cfg.State.S3.SecretKey,
			PathStyle: cfg.State.S3.PathStyle,
		},
	}
}

func executorConfig(cfg *config.Config, key []byte, timeouts *config.Timeouts) (*pvessh.Config, error) {
	sshCfg := &pvessh.Config{
		Port:           cfg.Connection.Port,
		User:           cfg.Connection.User,
		PrivateKey:     key,
		DialTimeout:    timeouts.Dial,
		CommandTimeout: timeouts.Command,
		MaxRetries:     timeouts.RetryMaxAttempts,
		RetryDelay:     timeouts.RetryInitialDelay,
	}
	if timeouts.RetryMaxAttempts == 0 {
		sshCfg.MaxRetries = -1
	}
	if cfg.Connection.KnownHostsPath != "" {
		callback, err := knownhosts.New(cfg.Connection.KnownHostsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load known hosts: %w", err)
		}
		sshCfg.HostKeyCallback = callback
	} else {
		log.Warn().Msg("known_hosts_path is not set, host keys are not verified")
	}
	return sshCfg, nil
}

// openSession wires a driver for the configuration at opts.ConfigPath.
// The caller closes the returned session.
func openSession(ctx context.Context, opts GlobalOptions, refresh bool) (*session, error) {
	cfg, err := resolveConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	key, err := readPrivateKey(cfg)
	if err != nil {
		return nil, err
	}
	timeouts := config.LoadTimeouts()
	sshCfg, err := executorConfig(cfg, key, timeouts)
	if err != nil {
		return nil, err
	}
	exec, err := newExecutor(sshCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create SSH executor: %w", err)
	}

	store, err := openStore(ctx, stateOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open state: %w", err)
	}

	metrics := provisioning.NewMetrics()
	registry := reconcile.NewRegistry(exec,
		reconcile.WithCommandHook(metrics.CommandHook()),
		reconcile.WithProbeRetries(timeouts.RetryMaxAttempts, timeouts.RetryInitialDelay),
	)

	return &session{
		cfg:     cfg,
		store:   store,
		driver:  orchestration.NewDriver(registry, store, cfg.ConnectionParams(), orchestration.WithRefresh(refresh)),
		metrics: metrics,
	}, nil
}

func (s *session) passContext(ctx context.Context) *provisioning.Context {
	pctx := provisioning.NewContext(ctx, provisioning.NewZerologObserver(log.Logger))
	pctx.Metrics = s.metrics
	if s.cfg.Concurrency > 0 {
		pctx.Concurrency = s.cfg.Concurrency
	}
	return pctx
}

func (s *session) close() {
	if err := s.store.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close state store")
	}
}

// writeMetrics writes the pass metrics when a textfile path was given.
func (s *session) writeMetrics(path string) {
	if path == "" {
		return
	}
	if err := s.metrics.WriteTextfile(path); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("failed to write metrics")
	}
}

// finishReport prints the report and maps it to the command's exit status.
func finishReport(report *orchestration.Report, passErr error) error {
	if report != nil {
		fmt.Fprint(stdout, renderReport(report, isInteractiveTTY()))
	}
	if passErr != nil {
		return passErr
	}
	if report != nil && !report.Success {
		return ErrPassFailed
	}
	return nil
}
