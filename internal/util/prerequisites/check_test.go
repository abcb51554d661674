package prerequisites

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/pvecfg/internal/remote"
)

// nodeWith answers `command -v` for the given tools only.
func nodeWith(tools ...string) *remote.MockExecutor {
	present := make(map[string]bool, len(tools))
	for _, t := range tools {
		present[t] = true
	}
	return &remote.MockExecutor{ExecuteFunc: func(_ context.Context, host, command string) (*remote.Result, error) {
		if command == "pveversion" {
			return remote.Succeed(host, command, "pve-manager/8.2.4/faa83925c9641325 (running kernel: 6.8.8-2-pve)\n")
		}
		name := strings.TrimPrefix(command, "command -v ")
		if present[name] {
			return remote.Succeed(host, command, "/usr/bin/"+name+"\n")
		}
		return remote.Fail(host, command, 1, "")
	}}
}

func TestCheck_AllPresent(t *testing.T) {
	exec := nodeWith("pvecm", "pvesm", "pvesh", "ha-manager", "pct", "pveversion")

	results := Check(context.Background(), exec, "10.0.0.1", NodeTools())

	require.Len(t, results.Results, len(NodeTools()))
	assert.False(t, results.HasErrors())
	require.NoError(t, results.Error())
	assert.Equal(t, "/usr/bin/pvecm", results.Results[0].Path)
	assert.Equal(t, "pve-manager/8.2.4/faa83925c9641325 (running kernel: 6.8.8-2-pve)", results.Version)
}

func TestCheck_MissingRequired(t *testing.T) {
	exec := nodeWith("pvecm", "pvesm", "pvesh", "pveversion")

	results := Check(context.Background(), exec, "10.0.0.2", NodeTools())

	assert.True(t, results.HasErrors())
	require.Error(t, results.Error())
	assert.Equal(t, "10.0.0.2: missing required tools: ha-manager, pct", results.Error().Error())
}

func TestCheck_MissingOptional(t *testing.T) {
	exec := nodeWith("pvecm", "pvesm", "pvesh", "ha-manager", "pct")

	results := Check(context.Background(), exec, "10.0.0.1", NodeTools())

	assert.False(t, results.HasErrors())
	assert.Empty(t, results.Version)
	require.Len(t, results.Missing, 1)
	assert.Equal(t, "pveversion", results.Missing[0].Name)
}

func TestCheck_UnreachableHost(t *testing.T) {
	exec := &remote.MockExecutor{ExecuteFunc: func(_ context.Context, host, _ string) (*remote.Result, error) {
		return nil, &remote.ConnectionError{Host: host, Err: errors.New("connection refused")}
	}}

	results := Check(context.Background(), exec, "10.0.0.3", NodeTools())

	assert.True(t, results.HasErrors())
	assert.Empty(t, results.Results)
	assert.Equal(t, 1, exec.CallCount(), "checking stops at the first transport failure")
	assert.True(t, remote.IsConnection(results.Error()))
}

func TestCheckHosts_KeepsHostOrder(t *testing.T) {
	exec := nodeWith("pvecm")
	hosts := []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"}

	all := CheckHosts(context.Background(), exec, hosts, []Tool{{Name: "pvecm", Required: true}}, 2)

	require.Len(t, all, 3)
	for i, host := range hosts {
		assert.Equal(t, host, all[i].Host)
		assert.False(t, all[i].HasErrors())
	}
}
