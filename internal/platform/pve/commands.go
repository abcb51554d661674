package pve

import "strings"

// Read-only queries used by probes.
const (
	ClusterStatusCommand = "pvecm status"
	ClusterNodesCommand  = "pvecm nodes"
	StorageListCommand   = "pvesh get /storage --output-format json"
	HAGroupsCommand      = "pvesh get /cluster/ha/groups --output-format json"
	HAResourcesCommand   = "pvesh get /cluster/ha/resources --output-format json"
	BackupJobsCommand    = "pvesh get /cluster/backup --output-format json"
	CorosyncConfPath     = "/etc/pve/corosync.conf"
)

// ReadCorosyncCommand prints the cluster-wide corosync configuration.
func ReadCorosyncCommand() string {
	return NewCommand("cat", CorosyncConfPath).String()
}

// CreateCluster builds `pvecm create`.
func CreateCluster(name, link0, nodeID, votes string) string {
	return NewCommand("pvecm", "create", name).
		Flag("link0", link0).
		Flag("nodeid", nodeID).
		Flag("votes", votes).
		String()
}

// DestroyCluster separates a node from its cluster without reinstalling it.
// It stops the cluster stack, removes the corosync configuration, and brings
// pve-cluster back in local mode.
func DestroyCluster() string {
	return Script(
		"systemctl stop pve-cluster corosync",
		"pmxcfs -l",
		"rm -f /etc/pve/corosync.conf",
		"rm -rf /etc/corosync/*",
		"killall pmxcfs || true",
		"systemctl start pve-cluster",
	)
}

// JoinCluster builds `pvecm add`, run on the joining node. Authentication
// against the primary uses SSH so no password is needed.
func JoinCluster(primary, link0, nodeID, votes string) string {
	return NewCommand("pvecm", "add", primary).
		Flag("use_ssh", "1").
		Flag("link0", link0).
		Flag("nodeid", nodeID).
		Flag("votes", votes).
		String()
}

// RemoveNode builds `pvecm delnode`, run on a remaining member.
func RemoveNode(node string) string {
	return NewCommand("pvecm", "delnode", node).String()
}

// AddStorage builds `pvesm add <type> <id>` with attrs passed as flags.
func AddStorage(storageType, id string, attrs map[string]string) string {
	return NewCommand("pvesm", "add", storageType, id).FlagsFrom(attrs).String()
}

// RemoveStorage builds `pvesm remove`.
func RemoveStorage(id string) string {
	return NewCommand("pvesm", "remove", id).String()
}

// HAGroupOptions are the settable properties of an HA group.
type HAGroupOptions struct {
	Nodes      string
	Restricted bool
	NoFailback bool
	Comment    string
}

// AddHAGroup builds `ha-manager groupadd`.
func AddHAGroup(id string, opts HAGroupOptions) string {
	return haGroupCommand("groupadd", id, opts)
}

// SetHAGroup builds `ha-manager groupset`. Boolean flags are always sent so
// that clearing them converges too.
func SetHAGroup(id string, opts HAGroupOptions) string {
	return haGroupCommand("groupset", id, opts)
}

func haGroupCommand(verb, id string, opts HAGroupOptions) string {
	c := NewCommand("ha-manager", verb, id).Flag("nodes", opts.Nodes)
	if verb == "groupset" {
		c.Flag("restricted", boolArg(opts.Restricted)).Flag("nofailback", boolArg(opts.NoFailback))
	} else {
		c.BoolFlag("restricted", opts.Restricted).BoolFlag("nofailback", opts.NoFailback)
	}
	return c.Flag("comment", opts.Comment).String()
}

// RemoveHAGroup builds `ha-manager groupremove`.
func RemoveHAGroup(id string) string {
	return NewCommand("ha-manager", "groupremove", id).String()
}

// AddHAResource builds `ha-manager add <sid> --group`.
func AddHAResource(sid, group string) string {
	return NewCommand("ha-manager", "add", sid).Flag("group", group).String()
}

// SetHAResource builds `ha-manager set <sid> --group`.
func SetHAResource(sid, group string) string {
	return NewCommand("ha-manager", "set", sid).Flag("group", group).String()
}

// AssignHAResource places sid in group, adding it to HA management when it
// is not managed yet.
func AssignHAResource(sid, group string) string {
	return Script(SetHAResource(sid, group) + " 2>/dev/null || " + AddHAResource(sid, group))
}

// RemoveHAResource builds `ha-manager remove`.
func RemoveHAResource(sid string) string {
	return NewCommand("ha-manager", "remove", sid).String()
}

// CreateBackupJob builds `pvesh create /cluster/backup`.
func CreateBackupJob(id string, attrs map[string]string) string {
	return NewCommand("pvesh", "create", "/cluster/backup").
		Flag("id", id).
		FlagsFrom(attrs).
		String()
}

// UpdateBackupJob builds `pvesh set /cluster/backup/<id>`.
func UpdateBackupJob(id string, attrs map[string]string) string {
	return NewCommand("pvesh", "set", "/cluster/backup/"+id).FlagsFrom(attrs).String()
}

// DeleteBackupJob builds `pvesh delete /cluster/backup/<id>`.
func DeleteBackupJob(id string) string {
	return NewCommand("pvesh", "delete", "/cluster/backup/"+id).String()
}

// ContainerConfig builds `pct config <vmid>`.
func ContainerConfig(vmid string) string {
	return NewCommand("pct", "config", vmid).String()
}

// CreateContainer builds `pct create <vmid> <ostemplate>` with attrs as flags.
func CreateContainer(vmid, ostemplate string, attrs map[string]string) string {
	return NewCommand("pct", "create", vmid, ostemplate).FlagsFrom(attrs).String()
}

// DestroyContainer builds `pct destroy`, stopping a running container first.
func DestroyContainer(vmid string) string {
	return NewCommand("pct", "destroy", vmid).
		Flag("force", "1").
		Flag("purge", "1").
		String()
}

// JoinList renders a list the way Proxmox expects list-valued flags.
func JoinList(items []string) string {
	return strings.Join(items, ",")
}

func boolArg(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
