package pve

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrUnparseable is returned when output does not have the expected shape.
var ErrUnparseable = errors.New("unparseable output")

var (
	clusterIndicators = []string{"Cluster information", "Quorum information", "Votequorum information"}
	clusterNameRe     = regexp.MustCompile(`(?m)^Name:\s+(\S+)\s*$`)
	quorateRe         = regexp.MustCompile(`(?m)^Quorate:\s+(\S+)\s*$`)
)

// NotClusteredSignatures match `pvecm` output on a node that is not part of a cluster.
var NotClusteredSignatures = []string{
	"does not exist - is this node part of a cluster",
	"is this node part of a cluster?",
	"Corosync config '/etc/pve/corosync.conf' does not exist",
}

// ClusterStatus is the information extracted from `pvecm status`.
type ClusterStatus struct {
	Clustered bool
	Name      string
	Quorate   bool
}

// ParseClusterStatus classifies `pvecm status` output.
//
// Only a known not-clustered signature means no cluster. Output carrying a
// cluster indicator must also carry a cluster name; anything else, empty
// output included, is rejected as unparseable rather than guessed at.
func ParseClusterStatus(output string) (ClusterStatus, error) {
	if MatchesAny(output, NotClusteredSignatures) {
		return ClusterStatus{}, nil
	}

	clustered := false
	for _, indicator := range clusterIndicators {
		if strings.Contains(output, indicator) {
			clustered = true
			break
		}
	}
	if !clustered {
		return ClusterStatus{}, fmt.Errorf("%w: neither cluster information nor a not-clustered message", ErrUnparseable)
	}

	m := clusterNameRe.FindStringSubmatch(output)
	if m == nil {
		return ClusterStatus{}, fmt.Errorf("%w: cluster indicators without a cluster name", ErrUnparseable)
	}

	status := ClusterStatus{Clustered: true, Name: m[1]}
	if q := quorateRe.FindStringSubmatch(output); q != nil {
		status.Quorate = strings.EqualFold(q[1], "yes")
	}
	return status, nil
}

// ParseNodeList extracts member names from `pvecm nodes`.
func ParseNodeList(output string) ([]string, error) {
	scanner := bufio.NewScanner(strings.NewReader(output))
	var nodes []string
	inTable := false

	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if !inTable {
			if len(fields) >= 3 && fields[0] == "Nodeid" && fields[1] == "Votes" && fields[2] == "Name" {
				inTable = true
			}
			continue
		}
		if len(fields) < 3 {
			continue
		}
		nodes = append(nodes, fields[2])
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if !inTable {
		return nil, fmt.Errorf("%w: no membership table in node list", ErrUnparseable)
	}
	return nodes, nil
}

// Flag decodes Proxmox booleans, which arrive as 0/1 numbers, strings or bools.
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	switch s {
	case "", "null", "0", "false":
		*f = false
	case "1", "true":
		*f = true
	default:
		return fmt.Errorf("invalid boolean %s", data)
	}
	return nil
}

// Text decodes values that Proxmox emits either as strings or as numbers.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	if string(data) == "null" {
		*t = ""
		return nil
	}
	if _, err := strconv.ParseFloat(string(data), 64); err != nil {
		return fmt.Errorf("invalid scalar %s", data)
	}
	*t = Text(data)
	return nil
}

// StorageEntry is one item of `pvesh get /storage`.
type StorageEntry struct {
	Storage string `json:"storage"`
	Type    string `json:"type"`
	Content string `json:"content"`
	Nodes   string `json:"nodes"`
	Disable Flag   `json:"disable"`
}

// HAGroup is one item of `pvesh get /cluster/ha/groups`.
type HAGroup struct {
	Group      string `json:"group"`
	Nodes      string `json:"nodes"`
	Restricted Flag   `json:"restricted"`
	NoFailback Flag   `json:"nofailback"`
	Comment    string `json:"comment"`
}

// HAResource is one item of `pvesh get /cluster/ha/resources`.
type HAResource struct {
	SID   string `json:"sid"`
	Group string `json:"group"`
	State string `json:"state"`
}

// BackupJob is one item of `pvesh get /cluster/backup`.
type BackupJob struct {
	ID       string `json:"id"`
	Storage  string `json:"storage"`
	Schedule string `json:"schedule"`
	Mode     string `json:"mode"`
	VMID     Text   `json:"vmid"`
	All      Flag   `json:"all"`
	Enabled  *Flag  `json:"enabled"`
	Compress string `json:"compress"`
	Node     string `json:"node"`
	MailTo   string `json:"mailto"`
}

// IsEnabled applies the Proxmox default of enabled when the field is missing.
func (j BackupJob) IsEnabled() bool {
	return j.Enabled == nil || bool(*j.Enabled)
}

// ParseStorageList decodes `pvesh get /storage --output-format json`.
func ParseStorageList(output string) ([]StorageEntry, error) {
	return decodeList[StorageEntry](output)
}

// ParseHAGroups decodes `pvesh get /cluster/ha/groups --output-format json`.
func ParseHAGroups(output string) ([]HAGroup, error) {
	return decodeList[HAGroup](output)
}

// ParseHAResources decodes `pvesh get /cluster/ha/resources --output-format json`.
func ParseHAResources(output string) ([]HAResource, error) {
	return decodeList[HAResource](output)
}

// ParseBackupJobs decodes `pvesh get /cluster/backup --output-format json`.
func ParseBackupJobs(output string) ([]BackupJob, error) {
	return decodeList[BackupJob](output)
}

func decodeList[T any](output string) ([]T, error) {
	var items []T
	if err := json.Unmarshal([]byte(strings.TrimSpace(output)), &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}
	return items, nil
}

// ParseConfig decodes `key: value` configuration listings such as `pct config`.
// Snapshot sections ([name]) and comments are ignored.
func ParseConfig(output string) (map[string]string, error) {
	scanner := bufio.NewScanner(strings.NewReader(output))
	values := make(map[string]string)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "[") {
			break
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("%w: config line %q", ErrUnparseable, line)
		}
		values[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: empty configuration", ErrUnparseable)
	}
	return values, nil
}

// MatchesAny reports whether output contains any of the signatures, ignoring case.
func MatchesAny(output string, signatures []string) bool {
	lower := strings.ToLower(output)
	for _, sig := range signatures {
		if strings.Contains(lower, strings.ToLower(sig)) {
			return true
		}
	}
	return false
}
