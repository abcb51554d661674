package config

// DefaultConfigFilename is the default configuration filename.
const DefaultConfigFilename = "pvecfg.yaml"

// Config is the root of pvecfg.yaml.
type Config struct {
	Connection Connection `yaml:"connection" validate:"required"`
	State      State      `yaml:"state"`
	// Concurrency bounds how many resources of one tier are reconciled at once.
	Concurrency int `yaml:"concurrency,omitempty" validate:"omitempty,min=1,max=64"`

	Cluster Cluster `yaml:"cluster" validate:"required"`
	Nodes   []Node  `yaml:"nodes" validate:"required,min=1,dive"`

	HAGroups []HAGroup `yaml:"ha_groups,omitempty" validate:"dive"`
	// Corosync holds totem options, written verbatim.
	Corosync   map[string]string `yaml:"corosync,omitempty"`
	Storage    Storage           `yaml:"storage,omitempty"`
	BackupJobs []BackupJob       `yaml:"backup_jobs,omitempty" validate:"dive"`
	Containers []Container       `yaml:"containers,omitempty" validate:"dive"`
}

// Connection is the SSH context shared by every command of a pass.
type Connection struct {
	User string `yaml:"user" validate:"required"`
	Port int    `yaml:"port,omitempty" validate:"omitempty,min=1,max=65535"`
	// PrivateKeyPath is read once per pass; the key itself is never stored.
	PrivateKeyPath string `yaml:"private_key_path" validate:"required"`
	// KnownHostsPath enables host key verification when set.
	KnownHostsPath string `yaml:"known_hosts_path,omitempty"`
}

// State selects where reconciliation records are kept.
type State struct {
	Backend string  `yaml:"backend,omitempty" validate:"omitempty,oneof=sqlite s3"`
	Path    string  `yaml:"path,omitempty"`
	S3      StateS3 `yaml:"s3,omitempty"`
}

// StateS3 configures the S3-compatible state backend.
type StateS3 struct {
	Endpoint  string `yaml:"endpoint,omitempty" validate:"omitempty,url"`
	Region    string `yaml:"region,omitempty"`
	Bucket    string `yaml:"bucket,omitempty"`
	Prefix    string `yaml:"prefix,omitempty"`
	AccessKey string `yaml:"access_key,omitempty"`
	SecretKey string `yaml:"secret_key,omitempty"`
	PathStyle bool   `yaml:"path_style,omitempty"`
}

// Cluster declares the cluster formed by the primary node.
type Cluster struct {
	// Name is at most 15 characters, the corosync limit.
	Name string `yaml:"name" validate:"required,hostname_rfc1123,max=15"`
	// Primary names the node the cluster is created on.
	Primary string `yaml:"primary" validate:"required"`
}

// Node is one Proxmox VE host.
type Node struct {
	Name    string `yaml:"name" validate:"required,hostname_rfc1123"`
	Address string `yaml:"address" validate:"required,ip|hostname_rfc1123"`
	// Link0 is the corosync link address, if it differs from Address.
	Link0  string `yaml:"link0,omitempty" validate:"omitempty,ip"`
	NodeID int    `yaml:"nodeid,omitempty" validate:"omitempty,min=1"`
	Votes  int    `yaml:"votes,omitempty" validate:"omitempty,min=1"`
}

// HAGroup is an HA group with the resources assigned to it.
type HAGroup struct {
	Name string `yaml:"name" validate:"required"`
	// Nodes are node names, optionally with a priority suffix ("pve1:2").
	Nodes      []string `yaml:"nodes" validate:"required,min=1"`
	Restricted bool     `yaml:"restricted,omitempty"`
	NoFailback bool     `yaml:"nofailback,omitempty"`
	Comment    string   `yaml:"comment,omitempty"`
	// Resources are HA service ids such as vm:100 or ct:200.
	Resources []string `yaml:"resources,omitempty"`
}

// Storage groups storage definitions by type.
type Storage struct {
	NFS   []NFSStorage   `yaml:"nfs,omitempty" validate:"dive"`
	ISCSI []ISCSIStorage `yaml:"iscsi,omitempty" validate:"dive"`
	Ceph  []CephStorage  `yaml:"ceph,omitempty" validate:"dive"`
}

// StorageCommon are the fields every storage type shares.
type StorageCommon struct {
	ID      string `yaml:"id" validate:"required"`
	Content string `yaml:"content,omitempty"`
	// Nodes restricts the storage to these node names; empty means all nodes.
	Nodes []string `yaml:"nodes,omitempty"`
	// Options are extra pvesm flags, passed verbatim.
	Options map[string]string `yaml:"options,omitempty"`
}

// NFSStorage is an NFS export.
type NFSStorage struct {
	StorageCommon `yaml:",inline"`
	Server        string `yaml:"server" validate:"required"`
	Export        string `yaml:"export" validate:"required,startswith=/"`
}

// ISCSIStorage is an iSCSI target.
type ISCSIStorage struct {
	StorageCommon `yaml:",inline"`
	Portal        string `yaml:"portal" validate:"required"`
	Target        string `yaml:"target" validate:"required"`
}

// CephStorage is an RBD pool.
type CephStorage struct {
	StorageCommon `yaml:",inline"`
	Pool          string   `yaml:"pool" validate:"required"`
	MonHosts      []string `yaml:"monhost,omitempty"`
	Username      string   `yaml:"username,omitempty"`
	KRBD          bool     `yaml:"krbd,omitempty"`
}

// BackupJob is a cluster-wide vzdump schedule.
type BackupJob struct {
	ID       string `yaml:"id" validate:"required"`
	Storage  string `yaml:"storage" validate:"required"`
	Schedule string `yaml:"schedule" validate:"required"`
	Mode     string `yaml:"mode,omitempty" validate:"omitempty,oneof=snapshot stop suspend"`
	// VMIDs selects guests; mutually exclusive with All.
	VMIDs    []string `yaml:"vmid,omitempty"`
	All      bool     `yaml:"all,omitempty"`
	Enabled  *bool    `yaml:"enabled,omitempty"`
	Compress string   `yaml:"compress,omitempty" validate:"omitempty,oneof=0 1 gzip lzo zstd"`
	Node     string   `yaml:"node,omitempty"`
	MailTo   string   `yaml:"mailto,omitempty" validate:"omitempty,email"`
}

// Container is an LXC guest.
type Container struct {
	VMID       int    `yaml:"vmid" validate:"required,min=100,max=999999999"`
	Node       string `yaml:"node" validate:"required"`
	OSTemplate string `yaml:"ostemplate" validate:"required"`
	Hostname   string `yaml:"hostname,omitempty" validate:"omitempty,hostname_rfc1123"`
	Memory     int    `yaml:"memory,omitempty" validate:"omitempty,min=16"`
	Cores      int    `yaml:"cores,omitempty" validate:"omitempty,min=1"`
	RootFS     string `yaml:"rootfs,omitempty"`
	Net0       string `yaml:"net0,omitempty"`
	// Options are extra pct create flags, passed verbatim.
	Options map[string]string `yaml:"options,omitempty"`
}
