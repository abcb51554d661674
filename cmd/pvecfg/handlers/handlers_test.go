package handlers

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/pvecfg/internal/config"
	"github.com/imamik/pvecfg/internal/orchestration"
	pvessh "github.com/imamik/pvecfg/internal/platform/ssh"
	"github.com/imamik/pvecfg/internal/remote"
	"github.com/imamik/pvecfg/internal/resource"
	"github.com/imamik/pvecfg/internal/state"
)

const singleNodeYAML = `
connection:
  user: root
  private_key_path: /keys/id_ed25519
cluster:
  name: lab
  primary: pve1
nodes:
  - name: pve1
    address: 10.0.0.1
`

// fakeCluster answers the cluster probe and pvecm create; createErr makes
// creation fail with that stderr.
type fakeCluster struct {
	clustered bool
	createErr string
}

func (f *fakeCluster) execute(_ context.Context, host, command string) (*remote.Result, error) {
	switch {
	case command == "pvecm status" && !f.clustered:
		return remote.Fail(host, command, 2, "Error: Corosync config '/etc/pve/corosync.conf' does not exist - is this node part of a cluster?")
	case command == "pvecm status":
		return remote.Succeed(host, command, "Cluster information\n-------------------\nName:             lab\n\nQuorum information\nQuorate: Yes\n")
	case strings.HasPrefix(command, "pvecm create"):
		if f.createErr != "" {
			return remote.Fail(host, command, 255, f.createErr)
		}
		f.clustered = true
		return remote.Succeed(host, command, "")
	}
	return remote.Fail(host, command, 1, "unexpected command")
}

// withFakes swaps the factories for in-memory fakes and restores them after the test.
func withFakes(t *testing.T, exec *remote.MockExecutor, store state.Store) *bytes.Buffer {
	t.Helper()
	origFind, origLoad, origKey := findConfigFile, loadConfig, readPrivateKey
	origExec, origStore, origOut := newExecutor, openStore, stdout
	t.Cleanup(func() {
		findConfigFile, loadConfig, readPrivateKey = origFind, origLoad, origKey
		newExecutor, openStore, stdout = origExec, origStore, origOut
	})

	loadConfig = func(_ string) (*config.Config, error) {
		return config.LoadFromBytes([]byte(singleNodeYAML))
	}
	findConfigFile = func() (string, error) { return "pvecfg.yaml", nil }
	readPrivateKey = func(_ *config.Config) ([]byte, error) { return []byte("key"), nil }
	newExecutor = func(_ *pvessh.Config) (remote.Executor, error) { return exec, nil }
	openStore = func(_ context.Context, _ state.Options) (state.Store, error) { return nopClose{store}, nil }

	out := &bytes.Buffer{}
	stdout = out
	return out
}

// nopClose keeps the memory store usable after a handler closes it.
type nopClose struct{ state.Store }

func (nopClose) Close() error { return nil }

func TestApply_CreatesClusterThenSkips(t *testing.T) {
	fake := &fakeCluster{}
	exec := &remote.MockExecutor{ExecuteFunc: fake.execute}
	store := state.NewMemory()
	out := withFakes(t, exec, store)

	require.NoError(t, Apply(context.Background(), GlobalOptions{}, false))
	assert.Contains(t, out.String(), "1 applied")
	assert.Contains(t, out.String(), "Pass succeeded")

	records, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, resource.Key{Kind: resource.KindClusterCreate, ID: "lab"}, records[0].Key)

	exec.Reset()
	out.Reset()
	require.NoError(t, Apply(context.Background(), GlobalOptions{}, false))
	assert.Contains(t, out.String(), "1 unchanged")
	assert.Zero(t, exec.CallCount(), "unchanged resources are not probed")
}

func TestApply_FailureReturnsErrPassFailed(t *testing.T) {
	fake := &fakeCluster{createErr: "corosync: bind failed"}
	out := withFakes(t, &remote.MockExecutor{ExecuteFunc: fake.execute}, state.NewMemory())

	err := Apply(context.Background(), GlobalOptions{}, false)
	require.ErrorIs(t, err, ErrPassFailed)
	assert.Contains(t, out.String(), "cluster_create/lab")
	assert.Contains(t, out.String(), "corosync: bind failed")
	assert.Contains(t, out.String(), "Pass failed")
}

func TestApply_WritesMetricsFile(t *testing.T) {
	fake := &fakeCluster{}
	withFakes(t, &remote.MockExecutor{ExecuteFunc: fake.execute}, state.NewMemory())
	path := filepath.Join(t.TempDir(), "pvecfg.prom")

	require.NoError(t, Apply(context.Background(), GlobalOptions{MetricsFile: path}, false))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "pvecfg_pass_success 1")
}

func TestApply_ConfigError(t *testing.T) {
	withFakes(t, &remote.MockExecutor{}, state.NewMemory())
	loadConfig = func(_ string) (*config.Config, error) { return nil, errors.New("boom") }

	err := Apply(context.Background(), GlobalOptions{ConfigPath: "missing.yaml"}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestPlan_DoesNotMutate(t *testing.T) {
	fake := &fakeCluster{}
	exec := &remote.MockExecutor{ExecuteFunc: fake.execute}
	store := state.NewMemory()
	out := withFakes(t, exec, store)

	require.NoError(t, Plan(context.Background(), GlobalOptions{}, false))
	assert.Contains(t, out.String(), "cluster_create/lab")
	assert.Contains(t, out.String(), "1 of 1 resources need changes")
	assert.Equal(t, 1, exec.CallCount())

	records, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestPlan_RetriesUnreachableHost(t *testing.T) {
	t.Setenv("PVECFG_RETRY_MAX_ATTEMPTS", "2")
	t.Setenv("PVECFG_RETRY_INITIAL_DELAY", "1ms")
	fake := &fakeCluster{}
	failures := 0
	exec := &remote.MockExecutor{ExecuteFunc: func(ctx context.Context, host, command string) (*remote.Result, error) {
		if failures < 2 {
			failures++
			return nil, &remote.ConnectionError{Host: host, Err: errors.New("connection refused")}
		}
		return fake.execute(ctx, host, command)
	}}
	out := withFakes(t, exec, state.NewMemory())

	require.NoError(t, Plan(context.Background(), GlobalOptions{}, false))
	assert.Contains(t, out.String(), "1 of 1 resources need changes")
	assert.Equal(t, 3, exec.CallCount())
}

func TestPlan_ZeroRetriesReportsUnreachableHost(t *testing.T) {
	t.Setenv("PVECFG_RETRY_MAX_ATTEMPTS", "0")
	exec := &remote.MockExecutor{ExecuteFunc: func(_ context.Context, host, _ string) (*remote.Result, error) {
		return nil, &remote.ConnectionError{Host: host, Err: errors.New("connection refused")}
	}}
	withFakes(t, exec, state.NewMemory())

	_ = Plan(context.Background(), GlobalOptions{}, false)
	assert.Equal(t, 1, exec.CallCount())
}

func TestDestroy_RequiresConfirmation(t *testing.T) {
	exec := &remote.MockExecutor{}
	withFakes(t, exec, state.NewMemory())

	err := Destroy(context.Background(), GlobalOptions{}, false)
	require.ErrorIs(t, err, errNotConfirmed)
	assert.Zero(t, exec.CallCount())
}

func TestDestroy_EmptyState(t *testing.T) {
	out := withFakes(t, &remote.MockExecutor{}, state.NewMemory())

	require.NoError(t, Destroy(context.Background(), GlobalOptions{}, true))
	assert.Contains(t, out.String(), "0 destroyed")
}

func seedRecord(t *testing.T, store state.Store, kind resource.Kind, id string) {
	t.Helper()
	require.NoError(t, store.Put(context.Background(), &state.Record{
		Key:           resource.Key{Kind: kind, ID: id},
		Fingerprint:   "abc",
		ObservedState: resource.Present(true, ""),
		Outcome:       resource.OutcomeSucceeded,
		UpdatedAt:     time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC),
	}))
}

func TestStateList(t *testing.T) {
	store := state.NewMemory()
	out := withFakes(t, &remote.MockExecutor{}, store)

	require.NoError(t, StateList(context.Background(), GlobalOptions{}))
	assert.Contains(t, out.String(), "No records.")

	seedRecord(t, store, resource.KindStorageNFS, "backups")
	out.Reset()
	require.NoError(t, StateList(context.Background(), GlobalOptions{}))
	assert.Contains(t, out.String(), "storage_nfs")
	assert.Contains(t, out.String(), "backups")
	assert.Contains(t, out.String(), "succeeded")
}

func TestStateRemove(t *testing.T) {
	store := state.NewMemory()
	out := withFakes(t, &remote.MockExecutor{}, store)
	seedRecord(t, store, resource.KindContainer, "200")

	err := StateRemove(context.Background(), GlobalOptions{}, []string{"container/200", "container/201"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no record for container/201")
	assert.Contains(t, out.String(), "Removed container/200")

	records, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestParseKey(t *testing.T) {
	key, err := parseKey("storage_ceph/rbd")
	require.NoError(t, err)
	assert.Equal(t, resource.Key{Kind: resource.KindStorageCeph, ID: "rbd"}, key)

	for _, bad := range []string{"container", "container/", "vm/100"} {
		_, err := parseKey(bad)
		assert.Error(t, err, bad)
	}
}

func TestExecutorConfig(t *testing.T) {
	t.Setenv("PVECFG_RETRY_MAX_ATTEMPTS", "0")
	t.Setenv("PVECFG_TIMEOUT_COMMAND", "90s")
	cfg, err := config.LoadFromBytes([]byte(singleNodeYAML))
	require.NoError(t, err)

	sshCfg, err := executorConfig(cfg, []byte("key"), config.LoadTimeouts())
	require.NoError(t, err)
	assert.Equal(t, "root", sshCfg.User)
	assert.Equal(t, 22, sshCfg.Port)
	assert.Equal(t, 90*time.Second, sshCfg.CommandTimeout)
	assert.Equal(t, -1, sshCfg.MaxRetries, "zero attempts disables retries")
	assert.Nil(t, sshCfg.HostKeyCallback)

	cfg.Connection.KnownHostsPath = filepath.Join(t.TempDir(), "missing")
	_, err = executorConfig(cfg, []byte("key"), config.LoadTimeouts())
	assert.Error(t, err)
}

func TestRenderReport_Plain(t *testing.T) {
	r := &orchestration.Report{
		PassID: "p1",
		Mode:   orchestration.ModeApply,
		Counts: orchestration.Counts{Applied: 1, Failed: 1, NotAttempted: 1},
		Results: []resource.Result{
			resource.NotAttempted(resource.Key{Kind: resource.KindContainer, ID: "200"}, "prerequisite storage_nfs/backups failed"),
		},
		Failures: []orchestration.Failure{{
			Key:       resource.Key{Kind: resource.KindStorageNFS, ID: "backups"},
			ErrorKind: resource.ErrorCommand,
			Host:      "10.0.0.2",
			Message:   "exit status 1",
			Stderr:    "mount error\nno route",
		}},
	}

	out := renderReport(r, false)
	assert.NotContains(t, out, "\x1b[", "no escape codes without a terminal")
	assert.Contains(t, out, "1 applied")
	assert.Contains(t, out, "storage_nfs/backups (command) on 10.0.0.2")
	assert.Contains(t, out, "│ no route")
	assert.Contains(t, out, "container/200 prerequisite storage_nfs/backups failed")
	assert.Contains(t, out, "Pass failed")
}

func TestSetupLogging(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, SetupLogging(buf, "warn", true))
	assert.Error(t, SetupLogging(buf, "loud", false))
	require.NoError(t, SetupLogging(buf, "info", false))
}

func TestDoctor(t *testing.T) {
	exec := &remote.MockExecutor{ExecuteFunc: func(_ context.Context, host, command string) (*remote.Result, error) {
		if command == "command -v pct" {
			return remote.Fail(host, command, 1, "")
		}
		if command == "pveversion" {
			return remote.Succeed(host, command, "pve-manager/8.2.4\n")
		}
		return remote.Succeed(host, command, "/usr/bin/x\n")
	}}
	out := withFakes(t, exec, state.NewMemory())

	err := Doctor(context.Background(), GlobalOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "10.0.0.1: missing required tools: pct")
	assert.Contains(t, out.String(), "pve-manager/8.2.4")
	assert.Contains(t, out.String(), "missing")
}
