package config

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func validConfig(t *testing.T) *Config {
	t.Helper()
	var cfg Config
	require.NoError(t, yaml.Unmarshal([]byte(exampleYAML), &cfg))
	cfg.applyDefaults()
	return &cfg
}

func TestValidate_Example(t *testing.T) {
	assert.NoError(t, validConfig(t).Validate())
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		path   string
		msg    string
	}{
		{
			name:   "missing user",
			mutate: func(c *Config) { c.Connection.User = "" },
			path:   "connection.user",
			msg:    "is required",
		},
		{
			name:   "cluster name too long",
			mutate: func(c *Config) { c.Cluster.Name = "a-very-long-cluster-name" },
			path:   "cluster.name",
			msg:    "must be at most 15",
		},
		{
			name:   "unknown primary",
			mutate: func(c *Config) { c.Cluster.Primary = "pve9" },
			path:   "cluster.primary",
			msg:    `node "pve9" is not declared`,
		},
		{
			name:   "bad node address",
			mutate: func(c *Config) { c.Nodes[1].Address = "not an address" },
			path:   "nodes[1].address",
			msg:    "neither an IP address nor a host name",
		},
		{
			name:   "duplicate node",
			mutate: func(c *Config) { c.Nodes[2].Name = "pve2" },
			path:   "nodes[2].name",
			msg:    "duplicate node",
		},
		{
			name:   "unknown state backend",
			mutate: func(c *Config) { c.State.Backend = "etcd" },
			path:   "state.backend",
			msg:    "must be one of [sqlite s3]",
		},
		{
			name:   "s3 without bucket",
			mutate: func(c *Config) { c.State.Backend = "s3" },
			path:   "state.s3.bucket",
			msg:    "is required for the s3 backend",
		},
		{
			name:   "HA group with unknown node",
			mutate: func(c *Config) { c.HAGroups[0].Nodes = []string{"pve7:1"} },
			path:   "ha_groups[0].nodes",
			msg:    `node "pve7" is not declared`,
		},
		{
			name: "HA resource in two groups",
			mutate: func(c *Config) {
				c.HAGroups = append(c.HAGroups, HAGroup{Name: "dev", Nodes: []string{"pve3"}, Resources: []string{"vm:100"}})
			},
			path: "ha_groups[1].resources",
			msg:  `already assigned to group "prod"`,
		},
		{
			name:   "reserved totem key",
			mutate: func(c *Config) { c.Corosync["config_version"] = "9" },
			path:   "corosync.config_version",
			msg:    "managed by Proxmox VE",
		},
		{
			name:   "duplicate storage id across types",
			mutate: func(c *Config) { c.Storage.ISCSI[0].ID = "backups" },
			path:   "storage.iscsi[0].id",
			msg:    "duplicate storage",
		},
		{
			name:   "nfs export must be absolute",
			mutate: func(c *Config) { c.Storage.NFS[0].Export = "srv" },
			path:   "storage.nfs[0].export",
			msg:    "startswith",
		},
		{
			name:   "backup job on undeclared storage",
			mutate: func(c *Config) { c.BackupJobs[0].Storage = "tape" },
			path:   "backup_jobs[0].storage",
			msg:    `storage "tape" is not declared`,
		},
		{
			name:   "backup mode",
			mutate: func(c *Config) { c.BackupJobs[0].Mode = "live" },
			path:   "backup_jobs[0].mode",
			msg:    "must be one of [snapshot stop suspend]",
		},
		{
			name:   "backup job without selection",
			mutate: func(c *Config) { c.BackupJobs[0].All = false },
			path:   "backup_jobs[0]",
			msg:    "one of vmid or all is required",
		},
		{
			name:   "container vmid range",
			mutate: func(c *Config) { c.Containers[0].VMID = 42 },
			path:   "containers[0].vmid",
			msg:    "must be at least 100",
		},
		{
			name:   "container on unknown node",
			mutate: func(c *Config) { c.Containers[0].Node = "pve8" },
			path:   "containers[0].node",
			msg:    `node "pve8" is not declared`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var verrs *ValidationErrors
			require.True(t, errors.As(err, &verrs))
			found := false
			for _, e := range verrs.Errors {
				if e.Path == tt.path && strings.Contains(e.Message, tt.msg) {
					found = true
				}
			}
			assert.True(t, found, "expected %s: %s in\n%v", tt.path, tt.msg, err)
		})
	}
}

func TestValidate_BuiltinStorageNeedsNoDeclaration(t *testing.T) {
	cfg := validConfig(t)
	cfg.BackupJobs[0].Storage = "local"
	assert.NoError(t, cfg.Validate())
}

func TestValidationErrors_Format(t *testing.T) {
	errs := &ValidationErrors{}
	assert.Equal(t, "no validation errors", errs.Error())

	errs.Add("nodes[0].name", "duplicate node %q", "pve1")
	errs.Add("cluster.primary", "is required")
	assert.Equal(t,
		"validation failed with 2 error(s):\n  - nodes[0].name: duplicate node \"pve1\"\n  - cluster.primary: is required",
		errs.Error())
}
