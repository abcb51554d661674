package pve

import (
	"bufio"
	"fmt"
	"sort"
	"strings"

	"al.essio.dev/pkg/shellescape"
)

// totemEditAWK rewrites the top-level keys of the totem section.
//
// Variables: set is "k=v;k=v" (replace or append), drop is "k;k" (remove).
// config_version is always incremented so corosync picks up the change.
const totemEditAWK = `
BEGIN {
  n = split(set, pairs, ";")
  for (i = 1; i <= n; i++) {
    eq = index(pairs[i], "=")
    k = substr(pairs[i], 1, eq - 1)
    want[k] = substr(pairs[i], eq + 1)
    order[i] = k
  }
  m = split(drop, dropped, ";")
  for (i = 1; i <= m; i++) gone[dropped[i]] = 1
}
!intotem && /^totem[ \t]*\{/ { intotem = 1; depth = 1; print; next }
intotem {
  if ($0 ~ /\{/) depth++
  if ($0 ~ /\}/) depth--
  if (depth == 0) {
    for (i = 1; i <= n; i++) if (!(order[i] in seen)) printf "  %s: %s\n", order[i], want[order[i]]
    intotem = 0
    print
    next
  }
  if (depth == 1) {
    key = $1
    sub(/:$/, "", key)
    if (key == "config_version") { printf "  config_version: %d\n", $2 + 1; next }
    if (key in gone) next
    if (key in want) { printf "  %s: %s\n", key, want[key]; seen[key] = 1; next }
  }
}
{ print }
`

// SetTotem sets the given totem options in corosync.conf.
// The edit goes through a .new copy and a rename inside /etc/pve, as the
// Proxmox documentation prescribes for pmxcfs.
func SetTotem(settings map[string]string) string {
	keys := sortedKeys(settings)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+settings[k])
	}
	return totemScript(strings.Join(pairs, ";"), "")
}

// UnsetTotem removes the given totem options, reverting them to corosync defaults.
func UnsetTotem(keys []string) string {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)
	return totemScript("", strings.Join(sorted, ";"))
}

func totemScript(set, drop string) string {
	return Script(
		"cd /etc/pve",
		fmt.Sprintf("awk -v set=%s -v drop=%s %s corosync.conf > corosync.conf.new",
			shellescape.Quote(set), shellescape.Quote(drop), shellescape.Quote(totemEditAWK)),
		"mv corosync.conf.new corosync.conf",
	)
}

// ParseTotem extracts the top-level key/value pairs of the totem section.
func ParseTotem(conf string) (map[string]string, error) {
	scanner := bufio.NewScanner(strings.NewReader(conf))
	values := make(map[string]string)
	inTotem, found := false, false
	depth := 0

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !inTotem {
			if strings.HasPrefix(line, "totem") && strings.HasSuffix(line, "{") {
				inTotem, found, depth = true, true, 1
			}
			continue
		}

		if strings.Contains(line, "{") {
			depth++
		}
		if strings.Contains(line, "}") {
			depth--
		}
		if depth == 0 {
			inTotem = false
			continue
		}
		if depth != 1 || strings.HasSuffix(line, "{") {
			continue
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		values[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("no totem section in corosync configuration")
	}
	if inTotem {
		return nil, fmt.Errorf("unterminated totem section in corosync configuration")
	}
	return values, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
