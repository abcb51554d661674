package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/imamik/pvecfg/internal/config"
	"github.com/imamik/pvecfg/internal/util/prerequisites"
)

// Doctor checks every configured node for the tools the reconcilers use.
func Doctor(ctx context.Context, opts GlobalOptions) error {
	cfg, err := resolveConfig(opts.ConfigPath)
	if err != nil {
		return err
	}
	key, err := readPrivateKey(cfg)
	if err != nil {
		return err
	}
	sshCfg, err := executorConfig(cfg, key, config.LoadTimeouts())
	if err != nil {
		return err
	}
	exec, err := newExecutor(sshCfg)
	if err != nil {
		return fmt.Errorf("failed to create SSH executor: %w", err)
	}

	hosts := make([]string, len(cfg.Nodes))
	for i, n := range cfg.Nodes {
		hosts[i] = n.Address
	}

	all := prerequisites.CheckHosts(ctx, exec, hosts, prerequisites.NodeTools(), cfg.Concurrency)
	fmt.Fprintln(stdout, renderChecks(all))

	var errs []error
	for _, r := range all {
		if r.HasErrors() {
			errs = append(errs, r.Error())
		}
	}
	return errors.Join(errs...)
}

func renderChecks(all []*prerequisites.CheckResults) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)

	header := table.Row{}
	for _, h := range []string{"HOST", "TOOL", "STATUS", "PATH"} {
		header = append(header, text.FgHiCyan.Sprint(h))
	}
	t.AppendHeader(header)

	for _, r := range all {
		if r.Err != nil {
			t.AppendRow(table.Row{r.Host, "", text.FgRed.Sprint("unreachable"), r.Err.Error()})
			continue
		}
		for _, res := range r.Results {
			status := text.FgGreen.Sprint("ok")
			switch {
			case !res.Found && res.Tool.Required:
				status = text.FgRed.Sprint("missing")
			case !res.Found:
				status = text.FgYellow.Sprint("missing (optional)")
			}
			t.AppendRow(table.Row{r.Host, res.Tool.Name, status, res.Path})
		}
		if r.Version != "" {
			t.AppendRow(table.Row{r.Host, "release", r.Version, ""})
		}
	}
	return t.Render()
}
