package resource

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// ConnectionParams are the connection settings folded into a fingerprint.
// Key material is never part of it, only the path it was loaded from.
type ConnectionParams struct {
	User    string `json:"user"`
	Port    int    `json:"port"`
	KeyPath string `json:"key_path"`
}

type fingerprintInput struct {
	Kind       Kind              `json:"kind"`
	ID         string            `json:"id"`
	Attributes map[string]string `json:"attributes"`
	Hosts      []string          `json:"hosts"`
	Connection ConnectionParams  `json:"connection"`
}

// Fingerprint returns a deterministic hash of the descriptor's desired
// configuration plus connection parameters.
//
// encoding/json sorts map keys, so attribute order does not matter. Host
// order does: it decides which node commands are issued on first.
func Fingerprint(d Descriptor, conn ConnectionParams) string {
	attrs := d.Attributes
	if attrs == nil {
		attrs = map[string]string{}
	}
	hosts := d.Hosts
	if hosts == nil {
		hosts = []string{}
	}

	data, err := json.Marshal(fingerprintInput{
		Kind:       d.Kind,
		ID:         d.ID,
		Attributes: attrs,
		Hosts:      hosts,
		Connection: conn,
	})
	if err != nil {
		// Only strings are marshalled; this cannot fail.
		panic(err)
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
