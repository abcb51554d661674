package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/pvecfg/internal/resource"
)

func TestExpand(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(exampleYAML))
	require.NoError(t, err)

	descriptors, err := cfg.Expand()
	require.NoError(t, err)

	byKey := map[string]resource.Descriptor{}
	for _, d := range descriptors {
		byKey[d.Key().String()] = d
	}
	assert.Len(t, byKey, 10)

	cluster := byKey["cluster_create/lab"]
	assert.Equal(t, []string{"10.0.0.1"}, cluster.Hosts)
	assert.Equal(t, map[string]string{"cluster_name": "lab", "link0": "10.10.0.1", "nodeid": "1"}, cluster.Attributes)

	join := byKey["cluster_join/pve3"]
	assert.Equal(t, []string{"10.0.0.3"}, join.Hosts)
	assert.Equal(t, "10.0.0.1", join.Attr("primary"))
	assert.Equal(t, "2", join.Attr("votes"))
	_, hasLink := join.Attributes["link0"]
	assert.False(t, hasLink, "empty attributes are dropped")
	assert.NotContains(t, byKey, "cluster_join/pve1")

	ha := byKey["ha_group/prod"]
	assert.Equal(t, "pve1:2,pve2", ha.Attr("nodes"))
	assert.Equal(t, "1", ha.Attr("restricted"))
	assert.Equal(t, "0", ha.Attr("nofailback"))
	assert.Equal(t, []string{"vm:100", "ct:200"}, ha.List("resources"))

	assert.Equal(t, map[string]string{"token": "10000"}, byKey["corosync_tune/totem"].Attributes)

	nfs := byKey["storage_nfs/backups"]
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, nfs.Hosts)
	assert.Equal(t, "pve1,pve2", nfs.Attr("nodes"))
	assert.Equal(t, "/srv/backups", nfs.Attr("export"))

	rbd := byKey["storage_ceph/rbd"]
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"}, rbd.Hosts, "unrestricted storage targets every node, primary first")
	assert.Equal(t, "10.0.0.7 10.0.0.8", rbd.Attr("monhost"))
	assert.Equal(t, "1", rbd.Attr("krbd"))
	assert.Equal(t, "images", rbd.Attr("content"))

	backup := byKey["backup_job/daily"]
	assert.Equal(t, "1", backup.Attr("all"))
	assert.Equal(t, "0", backup.Attr("enabled"))
	assert.Empty(t, backup.Attr("vmid"))

	ct := byKey["container/200"]
	assert.Equal(t, []string{"10.0.0.2"}, ct.Hosts)
	assert.Equal(t, "512", ct.Attr("memory"))
	assert.Equal(t, "local:vztmpl/debian-12-standard_12.7-1_amd64.tar.zst", ct.Attr("ostemplate"))
}

func TestExpand_NoCorosyncWithoutOptions(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(`
connection: {user: root, private_key_path: /k}
cluster: {name: lab, primary: pve1}
nodes: [{name: pve1, address: 10.0.0.1}]
`))
	require.NoError(t, err)

	descriptors, err := cfg.Expand()
	require.NoError(t, err)
	require.Len(t, descriptors, 1)
	assert.Equal(t, resource.KindClusterCreate, descriptors[0].Kind)
}

func TestConnectionParams(t *testing.T) {
	cfg := validConfig(t)
	assert.Equal(t, resource.ConnectionParams{User: "root", Port: 22, KeyPath: "keys/id_ed25519"}, cfg.ConnectionParams())
}
