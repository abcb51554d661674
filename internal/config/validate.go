package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError is one problem found in the configuration.
type ValidationError struct {
	Path    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors holds every problem found, so they can be fixed in one go.
type ValidationErrors struct {
	Errors []ValidationError
}

func (ve *ValidationErrors) Error() string {
	if len(ve.Errors) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(ve.Errors))
	for _, e := range ve.Errors {
		msgs = append(msgs, e.Error())
	}
	return fmt.Sprintf("validation failed with %d error(s):\n  - %s", len(ve.Errors), strings.Join(msgs, "\n  - "))
}

// Add records a problem at path.
func (ve *ValidationErrors) Add(path, format string, args ...any) {
	ve.Errors = append(ve.Errors, ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
}

// HasErrors reports whether any problem was recorded.
func (ve *ValidationErrors) HasErrors() bool {
	return len(ve.Errors) > 0
}

// Totem options pvecfg must not write: they identify the cluster or are
// bumped on every edit.
var reservedTotemKeys = map[string]bool{
	"cluster_name":   true,
	"config_version": true,
	"version":        true,
}

// builtinStorage exists on every Proxmox VE node without being declared.
var builtinStorage = map[string]bool{"local": true, "local-lvm": true}

var structValidator = newStructValidator()

func newStructValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report yaml names, as written in pvecfg.yaml.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" || name == "" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks field constraints and cross references.
func (c *Config) Validate() error {
	errs := &ValidationErrors{}

	if err := structValidator.Struct(c); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return fmt.Errorf("failed to validate configuration: %w", err)
		}
		for _, fe := range verrs {
			errs.Add(fieldPath(fe), "%s", describe(fe))
		}
	}

	c.validateState(errs)
	nodes := c.validateNodes(errs)
	c.validateHAGroups(errs, nodes)
	c.validateCorosync(errs)
	storages := c.validateStorage(errs, nodes)
	c.validateBackupJobs(errs, nodes, storages)
	c.validateContainers(errs, nodes)

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// fieldPath strips the root type name from a validator namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "hostname_rfc1123":
		return fmt.Sprintf("%q is not a valid host name", fe.Value())
	case "ip":
		return fmt.Sprintf("%q is not an IP address", fe.Value())
	case "ip|hostname_rfc1123":
		return fmt.Sprintf("%q is neither an IP address nor a host name", fe.Value())
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}

func (c *Config) validateState(errs *ValidationErrors) {
	if c.State.Backend == "s3" && c.State.S3.Bucket == "" {
		errs.Add("state.s3.bucket", "is required for the s3 backend")
	}
}

// validateNodes returns the declared node names.
func (c *Config) validateNodes(errs *ValidationErrors) map[string]bool {
	names := make(map[string]bool, len(c.Nodes))
	addresses := make(map[string]bool, len(c.Nodes))
	for i, n := range c.Nodes {
		if names[n.Name] {
			errs.Add(fmt.Sprintf("nodes[%d].name", i), "duplicate node %q", n.Name)
		}
		if addresses[n.Address] {
			errs.Add(fmt.Sprintf("nodes[%d].address", i), "duplicate address %q", n.Address)
		}
		names[n.Name] = true
		addresses[n.Address] = true
	}
	if c.Cluster.Primary != "" && !names[c.Cluster.Primary] {
		errs.Add("cluster.primary", "node %q is not declared", c.Cluster.Primary)
	}
	return names
}

func (c *Config) validateHAGroups(errs *ValidationErrors, nodes map[string]bool) {
	groups := map[string]bool{}
	assigned := map[string]string{}
	for i, g := range c.HAGroups {
		path := fmt.Sprintf("ha_groups[%d]", i)
		if groups[g.Name] {
			errs.Add(path+".name", "duplicate HA group %q", g.Name)
		}
		groups[g.Name] = true

		for _, member := range g.Nodes {
			name, _, _ := strings.Cut(member, ":")
			if !nodes[name] {
				errs.Add(path+".nodes", "node %q is not declared", name)
			}
		}
		for _, sid := range g.Resources {
			if other, dup := assigned[sid]; dup {
				errs.Add(path+".resources", "%s is already assigned to group %q", sid, other)
			}
			assigned[sid] = g.Name
		}
	}
}

func (c *Config) validateCorosync(errs *ValidationErrors) {
	for key, value := range c.Corosync {
		if reservedTotemKeys[key] {
			errs.Add("corosync."+key, "is managed by Proxmox VE and cannot be set")
		}
		if strings.ContainsAny(key, "=; \t") || strings.ContainsAny(value, ";\n") {
			errs.Add("corosync."+key, "contains characters not allowed in a totem option")
		}
	}
}

// validateStorage returns the declared storage ids.
func (c *Config) validateStorage(errs *ValidationErrors, nodes map[string]bool) map[string]bool {
	ids := map[string]bool{}
	check := func(path string, s StorageCommon) {
		if ids[s.ID] {
			errs.Add(path+".id", "duplicate storage %q", s.ID)
		}
		ids[s.ID] = true
		for _, n := range s.Nodes {
			if !nodes[n] {
				errs.Add(path+".nodes", "node %q is not declared", n)
			}
		}
	}
	for i, s := range c.Storage.NFS {
		check(fmt.Sprintf("storage.nfs[%d]", i), s.StorageCommon)
	}
	for i, s := range c.Storage.ISCSI {
		check(fmt.Sprintf("storage.iscsi[%d]", i), s.StorageCommon)
	}
	for i, s := range c.Storage.Ceph {
		check(fmt.Sprintf("storage.ceph[%d]", i), s.StorageCommon)
	}
	return ids
}

func (c *Config) validateBackupJobs(errs *ValidationErrors, nodes, storages map[string]bool) {
	ids := map[string]bool{}
	for i, j := range c.BackupJobs {
		path := fmt.Sprintf("backup_jobs[%d]", i)
		if ids[j.ID] {
			errs.Add(path+".id", "duplicate backup job %q", j.ID)
		}
		ids[j.ID] = true

		if j.Storage != "" && !storages[j.Storage] && !builtinStorage[j.Storage] {
			errs.Add(path+".storage", "storage %q is not declared", j.Storage)
		}
		switch {
		case j.All && len(j.VMIDs) > 0:
			errs.Add(path, "vmid and all are mutually exclusive")
		case !j.All && len(j.VMIDs) == 0:
			errs.Add(path, "one of vmid or all is required")
		}
		if j.Node != "" && !nodes[j.Node] {
			errs.Add(path+".node", "node %q is not declared", j.Node)
		}
	}
}

func (c *Config) validateContainers(errs *ValidationErrors, nodes map[string]bool) {
	vmids := map[int]bool{}
	for i, ct := range c.Containers {
		path := fmt.Sprintf("containers[%d]", i)
		if vmids[ct.VMID] {
			errs.Add(path+".vmid", "duplicate vmid %d", ct.VMID)
		}
		vmids[ct.VMID] = true
		if ct.Node != "" && !nodes[ct.Node] {
			errs.Add(path+".node", "node %q is not declared", ct.Node)
		}
	}
}
