package resource

import (
	"fmt"
	"sort"
	"strings"
)

// Key identifies a resource across reconciliation passes.
type Key struct {
	Kind Kind   `json:"kind"`
	ID   string `json:"id"`
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s", k.Kind, k.ID)
}

// Descriptor is one declared unit of desired configuration.
//
// ID is unique within Kind and stable across passes; Attributes may change.
// Hosts are the node addresses commands are issued on, in order.
type Descriptor struct {
	Kind       Kind              `json:"kind"`
	ID         string            `json:"id"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Hosts      []string          `json:"hosts"`
}

// Key returns the identity of the descriptor.
func (d Descriptor) Key() Key {
	return Key{Kind: d.Kind, ID: d.ID}
}

// Attr returns the attribute value for name, or "".
func (d Descriptor) Attr(name string) string {
	return d.Attributes[name]
}

// List returns a comma-separated attribute split into trimmed, non-empty items.
func (d Descriptor) List(name string) []string {
	raw := d.Attributes[name]
	if raw == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// PrimaryHost returns the first target host, or "".
func (d Descriptor) PrimaryHost() string {
	if len(d.Hosts) == 0 {
		return ""
	}
	return d.Hosts[0]
}

// AttributeNames returns the attribute keys in sorted order.
func (d Descriptor) AttributeNames() []string {
	names := make([]string, 0, len(d.Attributes))
	for name := range d.Attributes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks the descriptor's structural fields.
func (d Descriptor) Validate() error {
	if !d.Kind.Valid() {
		return fmt.Errorf("unknown resource kind %q", d.Kind)
	}
	if d.ID == "" {
		return fmt.Errorf("%s: id is required", d.Kind)
	}
	if len(d.Hosts) == 0 {
		return fmt.Errorf("%s: at least one target host is required", d.Key())
	}
	for _, h := range d.Hosts {
		if h == "" {
			return fmt.Errorf("%s: empty target host", d.Key())
		}
	}
	return nil
}
