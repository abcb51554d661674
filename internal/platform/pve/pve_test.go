package pve

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const clusteredStatus = `Cluster information
-------------------
Name:             pve-cluster
Config Version:   3
Transport:        knet
Secure auth:      on

Quorum information
------------------
Date:             Mon Oct 19 10:00:00 2026
Quorum provider:  corosync_votequorum
Nodes:            2
Node ID:          0x00000001
Ring ID:          1.2d
Quorate:          Yes
`

func TestParseClusterStatus(t *testing.T) {
	tests := []struct {
		name      string
		output    string
		want      ClusterStatus
		wantError bool
	}{
		{
			name:   "clustered",
			output: clusteredStatus,
			want:   ClusterStatus{Clustered: true, Name: "pve-cluster", Quorate: true},
		},
		{
			name:   "not clustered",
			output: "Error: Corosync config '/etc/pve/corosync.conf' does not exist - is this node part of a cluster?",
			want:   ClusterStatus{},
		},
		{
			name:      "no indicators",
			output:    "some unrelated text",
			wantError: true,
		},
		{
			name:      "empty output",
			output:    "",
			wantError: true,
		},
		{
			name:      "binary garbage",
			output:    "garbage\x00\x01 not a status",
			wantError: true,
		},
		{
			name:      "indicators without name",
			output:    "Quorum information\n------------------\nQuorate: No\n",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseClusterStatus(tt.output)
			if tt.wantError {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrUnparseable))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseNodeList(t *testing.T) {
	output := `
Membership information
----------------------
    Nodeid      Votes Name
         1          1 pve1 (local)
         2          1 pve2
`
	nodes, err := ParseNodeList(output)
	require.NoError(t, err)
	assert.Equal(t, []string{"pve1", "pve2"}, nodes)

	_, err = ParseNodeList("Error: no cluster")
	assert.ErrorIs(t, err, ErrUnparseable)
}

func TestParseStorageList(t *testing.T) {
	entries, err := ParseStorageList(`[{"storage":"local","type":"dir","content":"iso"},{"storage":"nfs1","type":"nfs","disable":1}]`)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "nfs1", entries[1].Storage)
	assert.Equal(t, "nfs", entries[1].Type)
	assert.True(t, bool(entries[1].Disable))

	_, err = ParseStorageList("ipcc_send_rec failed")
	assert.ErrorIs(t, err, ErrUnparseable)
}

func TestParseHAGroupsAndResources(t *testing.T) {
	groups, err := ParseHAGroups(`[{"group":"prod","nodes":"pve1:2,pve2","restricted":"1","nofailback":0,"type":"group"}]`)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.True(t, bool(groups[0].Restricted))
	assert.False(t, bool(groups[0].NoFailback))

	resources, err := ParseHAResources(`[{"sid":"vm:100","group":"prod","state":"started"}]`)
	require.NoError(t, err)
	assert.Equal(t, "prod", resources[0].Group)
}

func TestParseBackupJobs(t *testing.T) {
	jobs, err := ParseBackupJobs(`[{"id":"daily","storage":"nfs1","schedule":"sun 01:00","mode":"snapshot","vmid":100,"enabled":0},{"id":"all","all":1}]`)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, Text("100"), jobs[0].VMID)
	assert.False(t, jobs[0].IsEnabled())
	assert.True(t, jobs[1].IsEnabled(), "missing enabled defaults to true")
	assert.True(t, bool(jobs[1].All))
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig("arch: amd64\ncores: 2\nhostname: web1\nnet0: name=eth0,bridge=vmbr0,ip=dhcp\n\n[snap1]\nhostname: old\n")
	require.NoError(t, err)
	assert.Equal(t, "web1", cfg["hostname"])
	assert.Equal(t, "name=eth0,bridge=vmbr0,ip=dhcp", cfg["net0"])

	_, err = ParseConfig("")
	assert.ErrorIs(t, err, ErrUnparseable)
}

func TestParseTotem(t *testing.T) {
	conf := `logging {
  debug: off
}

totem {
  cluster_name: pve-cluster
  config_version: 4
  interface {
    linknumber: 0
  }
  ip_version: ipv4-6
  token: 3000
  version: 2
}
`
	values, err := ParseTotem(conf)
	require.NoError(t, err)
	assert.Equal(t, "3000", values["token"])
	assert.Equal(t, "4", values["config_version"])
	_, nested := values["linknumber"]
	assert.False(t, nested, "nested interface keys are not top-level totem options")

	_, err = ParseTotem("logging {\n}\n")
	assert.Error(t, err)
}

func TestCommandBuilders(t *testing.T) {
	assert.Equal(t, "pvecm create pve-cluster --link0 10.0.0.1", CreateCluster("pve-cluster", "10.0.0.1", "", ""))
	assert.Equal(t, "pvecm add 10.0.0.1 --use_ssh 1 --link0 10.0.0.2", JoinCluster("10.0.0.1", "10.0.0.2", "", ""))
	assert.Equal(t, "pvecm delnode pve2", RemoveNode("pve2"))
	assert.Equal(t,
		"pvesm add nfs nfs1 --content backup --export /srv/nfs --server 10.0.0.5",
		AddStorage("nfs", "nfs1", map[string]string{"server": "10.0.0.5", "export": "/srv/nfs", "content": "backup"}))
	assert.Equal(t, "pvesm remove nfs1", RemoveStorage("nfs1"))
	assert.Equal(t, "ha-manager groupadd prod --nodes pve1,pve2 --restricted 1", AddHAGroup("prod", HAGroupOptions{Nodes: "pve1,pve2", Restricted: true}))
	assert.Equal(t, "ha-manager groupset prod --nodes pve1 --restricted 0 --nofailback 1", SetHAGroup("prod", HAGroupOptions{Nodes: "pve1", NoFailback: true}))
	assert.Equal(t, "ha-manager add vm:100 --group prod", AddHAResource("vm:100", "prod"))
	assert.Equal(t, "pvesh create /cluster/backup --id daily --mode snapshot --schedule 'sun 01:00' --storage nfs1",
		CreateBackupJob("daily", map[string]string{"schedule": "sun 01:00", "mode": "snapshot", "storage": "nfs1"}))
	assert.Equal(t, "pvesh delete /cluster/backup/daily", DeleteBackupJob("daily"))
	assert.Equal(t, "pct destroy 200 --force 1 --purge 1", DestroyContainer("200"))
}

func TestCommand_FlagsFromExcludeAndEmpty(t *testing.T) {
	c := NewCommand("pct", "create", "200", "local:vztmpl/debian.tar.zst").
		FlagsFrom(map[string]string{"hostname": "web1", "ostemplate": "x", "cores": ""}, "ostemplate")
	assert.Equal(t, []string{"pct", "create", "200", "local:vztmpl/debian.tar.zst", "--hostname", "web1"}, c.Args())
}

func TestScriptAndTotemEdits(t *testing.T) {
	s := Script("echo a", "echo b")
	assert.Equal(t, "sh -c 'set -e\necho a\necho b'", s)

	set := SetTotem(map[string]string{"token": "10000", "join": "60"})
	assert.Contains(t, set, "cd /etc/pve")
	assert.Contains(t, set, "join=60;token=10000")
	assert.Contains(t, set, "mv corosync.conf.new corosync.conf")

	unset := UnsetTotem([]string{"token", "join"})
	assert.Contains(t, unset, "join;token")
}

func TestMatchesAny(t *testing.T) {
	assert.True(t, MatchesAny("storage ID 'nfs1' ALREADY defined", []string{"already defined"}))
	assert.False(t, MatchesAny("permission denied", []string{"already defined"}))
}
