package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/imamik/pvecfg/internal/resource"
)

// ConnectionParams returns the connection parameters folded into fingerprints.
func (c *Config) ConnectionParams() resource.ConnectionParams {
	return resource.ConnectionParams{
		User:    c.Connection.User,
		Port:    c.Connection.Port,
		KeyPath: c.Connection.PrivateKeyPath,
	}
}

// ReadPrivateKey loads the SSH key referenced by the configuration.
func (c *Config) ReadPrivateKey() ([]byte, error) {
	// #nosec G304
	key, err := os.ReadFile(c.Connection.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}
	return key, nil
}

// Expand turns the configuration into resource descriptors.
//
// The cluster is created on the primary node; every other node joins it.
// Cluster-wide resources are managed through the primary. Storage is defined
// on each node it is restricted to, or on all nodes.
func (c *Config) Expand() ([]resource.Descriptor, error) {
	byName := make(map[string]Node, len(c.Nodes))
	for _, n := range c.Nodes {
		byName[n.Name] = n
	}
	primary, ok := byName[c.Cluster.Primary]
	if !ok {
		return nil, fmt.Errorf("primary node %q is not declared", c.Cluster.Primary)
	}

	addresses := func(names []string) []string {
		if len(names) == 0 {
			out := []string{primary.Address}
			for _, n := range c.Nodes {
				if n.Name != primary.Name {
					out = append(out, n.Address)
				}
			}
			return out
		}
		out := make([]string, 0, len(names))
		for _, name := range names {
			out = append(out, byName[name].Address)
		}
		return out
	}
	onPrimary := []string{primary.Address}

	var out []resource.Descriptor
	add := func(kind resource.Kind, id string, hosts []string, attrs map[string]string) {
		out = append(out, resource.Descriptor{Kind: kind, ID: id, Hosts: hosts, Attributes: compact(attrs)})
	}

	add(resource.KindClusterCreate, c.Cluster.Name, onPrimary, map[string]string{
		"cluster_name": c.Cluster.Name,
		"link0":        primary.Link0,
		"nodeid":       itoa(primary.NodeID),
		"votes":        itoa(primary.Votes),
	})

	for _, n := range c.Nodes {
		if n.Name == primary.Name {
			continue
		}
		add(resource.KindClusterJoin, n.Name, []string{n.Address}, map[string]string{
			"primary":      primary.Address,
			"node":         n.Name,
			"cluster_name": c.Cluster.Name,
			"link0":        n.Link0,
			"nodeid":       itoa(n.NodeID),
			"votes":        itoa(n.Votes),
		})
	}

	for _, g := range c.HAGroups {
		add(resource.KindHAGroup, g.Name, onPrimary, map[string]string{
			"nodes":      strings.Join(g.Nodes, ","),
			"restricted": boolAttr(g.Restricted),
			"nofailback": boolAttr(g.NoFailback),
			"comment":    g.Comment,
			"resources":  strings.Join(g.Resources, ","),
		})
	}

	if len(c.Corosync) > 0 {
		add(resource.KindCorosyncTune, "totem", onPrimary, c.Corosync)
	}

	for _, s := range c.Storage.NFS {
		attrs := storageAttrs(s.StorageCommon)
		attrs["server"] = s.Server
		attrs["export"] = s.Export
		add(resource.KindStorageNFS, s.ID, addresses(s.Nodes), attrs)
	}
	for _, s := range c.Storage.ISCSI {
		attrs := storageAttrs(s.StorageCommon)
		attrs["portal"] = s.Portal
		attrs["target"] = s.Target
		add(resource.KindStorageISCSI, s.ID, addresses(s.Nodes), attrs)
	}
	for _, s := range c.Storage.Ceph {
		attrs := storageAttrs(s.StorageCommon)
		attrs["pool"] = s.Pool
		set(attrs, "monhost", strings.Join(s.MonHosts, " "))
		set(attrs, "username", s.Username)
		if s.KRBD {
			attrs["krbd"] = "1"
		}
		add(resource.KindStorageCeph, s.ID, addresses(s.Nodes), attrs)
	}

	for _, j := range c.BackupJobs {
		attrs := map[string]string{
			"storage":  j.Storage,
			"schedule": j.Schedule,
			"mode":     j.Mode,
			"vmid":     strings.Join(j.VMIDs, ","),
			"compress": j.Compress,
			"node":     j.Node,
			"mailto":   j.MailTo,
		}
		if j.All {
			attrs["all"] = "1"
		}
		if j.Enabled != nil {
			attrs["enabled"] = boolAttr(*j.Enabled)
		}
		add(resource.KindBackupJob, j.ID, onPrimary, attrs)
	}

	for _, ct := range c.Containers {
		attrs := make(map[string]string, len(ct.Options)+6)
		for k, v := range ct.Options {
			attrs[k] = v
		}
		attrs["ostemplate"] = ct.OSTemplate
		set(attrs, "hostname", ct.Hostname)
		set(attrs, "memory", itoa(ct.Memory))
		set(attrs, "cores", itoa(ct.Cores))
		set(attrs, "rootfs", ct.RootFS)
		set(attrs, "net0", ct.Net0)
		add(resource.KindContainer, strconv.Itoa(ct.VMID), []string{byName[ct.Node].Address}, attrs)
	}

	for _, d := range out {
		if err := d.Validate(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func storageAttrs(s StorageCommon) map[string]string {
	attrs := make(map[string]string, len(s.Options)+6)
	for k, v := range s.Options {
		attrs[k] = v
	}
	set(attrs, "content", s.Content)
	set(attrs, "nodes", strings.Join(s.Nodes, ","))
	return attrs
}

// set assigns non-empty values only, leaving verbatim options in place.
func set(attrs map[string]string, key, value string) {
	if value != "" {
		attrs[key] = value
	}
}

// compact drops empty attributes so an unset field never becomes an empty flag.
func compact(attrs map[string]string) map[string]string {
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

func itoa(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

func boolAttr(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
