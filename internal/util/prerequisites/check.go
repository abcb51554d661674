// Package prerequisites checks that nodes carry the Proxmox VE tools pvecfg
// drives. Every check is read-only.
package prerequisites

import (
	"context"
	"fmt"
	"strings"

	"al.essio.dev/pkg/shellescape"

	"github.com/imamik/pvecfg/internal/remote"
	"github.com/imamik/pvecfg/internal/util/async"
)

// Tool is a command a node must (or should) provide.
type Tool struct {
	Name     string
	Required bool
	// Description explains what the tool is used for.
	Description string
}

// NodeTools returns the tools the reconcilers issue commands with.
func NodeTools() []Tool {
	return []Tool{
		{Name: "pvecm", Required: true, Description: "Creates and joins the cluster"},
		{Name: "pvesm", Required: true, Description: "Defines storage"},
		{Name: "pvesh", Required: true, Description: "Reads cluster state and manages backup jobs"},
		{Name: "ha-manager", Required: true, Description: "Manages HA groups"},
		{Name: "pct", Required: true, Description: "Manages containers"},
		{Name: "pveversion", Required: false, Description: "Reports the Proxmox VE release"},
	}
}

// CheckResult is the result of checking a single tool.
type CheckResult struct {
	Tool  Tool
	Found bool
	Path  string
}

// CheckResults holds the results for one host.
type CheckResults struct {
	Host    string
	Version string
	Results []CheckResult
	Missing []Tool
	// Err is set when the host could not be checked at all.
	Err error
}

// HasErrors reports an unreachable host or a missing required tool.
func (r *CheckResults) HasErrors() bool {
	if r.Err != nil {
		return true
	}
	for _, tool := range r.Missing {
		if tool.Required {
			return true
		}
	}
	return false
}

// Error returns an error if the host failed the check.
func (r *CheckResults) Error() error {
	if r.Err != nil {
		return fmt.Errorf("%s: %w", r.Host, r.Err)
	}
	var missing []string
	for _, tool := range r.Missing {
		if tool.Required {
			missing = append(missing, tool.Name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("%s: missing required tools: %s", r.Host, strings.Join(missing, ", "))
}

// Check looks each tool up on host with `command -v`.
// A non-zero exit means the tool is missing; any other failure aborts the
// host's check and is reported through Err.
func Check(ctx context.Context, exec remote.Executor, host string, tools []Tool) *CheckResults {
	results := &CheckResults{Host: host}

	for _, tool := range tools {
		result := CheckResult{Tool: tool}

		res, err := exec.Execute(ctx, host, "command -v "+shellescape.Quote(tool.Name))
		switch {
		case err == nil:
			result.Found = true
			result.Path = strings.TrimSpace(res.Stdout)
			if tool.Name == "pveversion" {
				results.Version = version(ctx, exec, host)
			}
		case isCommandError(err):
			results.Missing = append(results.Missing, tool)
		default:
			results.Err = err
			return results
		}

		results.Results = append(results.Results, result)
	}

	return results
}

// CheckHosts checks every host, at most limit at a time.
// Results are returned in host order.
func CheckHosts(ctx context.Context, exec remote.Executor, hosts []string, tools []Tool, limit int) []*CheckResults {
	all := make([]*CheckResults, len(hosts))
	tasks := make([]async.Task, len(hosts))
	for i, host := range hosts {
		tasks[i] = async.Task{Name: host, Func: func(ctx context.Context) error {
			all[i] = Check(ctx, exec, host, tools)
			return nil
		}}
	}
	_ = async.RunBounded(ctx, limit, tasks)
	return all
}

// version returns the first line of `pveversion`, or "" when it fails.
func version(ctx context.Context, exec remote.Executor, host string) string {
	res, err := exec.Execute(ctx, host, "pveversion")
	if err != nil {
		return ""
	}
	line, _, _ := strings.Cut(strings.TrimSpace(res.Stdout), "\n")
	return strings.TrimSpace(line)
}

func isCommandError(err error) bool {
	_, ok := remote.AsCommandError(err)
	return ok
}
