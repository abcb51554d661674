package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/imamik/pvecfg/internal/orchestration"
	"github.com/imamik/pvecfg/internal/resource"
	"github.com/imamik/pvecfg/internal/state"
)

type palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	bad   lipgloss.Style
	warn  lipgloss.Style
	info  lipgloss.Style
	dim   lipgloss.Style
}

func newPalette(color bool) palette {
	if !color {
		plain := lipgloss.NewStyle()
		return palette{title: plain, ok: plain, bad: plain, warn: plain, info: plain, dim: plain}
	}
	return palette{
		title: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#f9fafb")),
		ok:    lipgloss.NewStyle().Foreground(lipgloss.Color("#22c55e")),
		bad:   lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444")),
		warn:  lipgloss.NewStyle().Foreground(lipgloss.Color("#f59e0b")),
		info:  lipgloss.NewStyle().Foreground(lipgloss.Color("#3b82f6")),
		dim:   lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280")),
	}
}

func renderReport(r *orchestration.Report, color bool) string {
	p := newPalette(color)
	var b strings.Builder

	b.WriteString(p.title.Render(fmt.Sprintf("pvecfg %s", r.Mode)))
	b.WriteString(p.dim.Render(fmt.Sprintf("  pass %s  %s", r.PassID, r.Duration.Round(time.Millisecond))))
	b.WriteString("\n\n")

	c := r.Counts
	if r.Mode == orchestration.ModeDestroy {
		fmt.Fprintf(&b, "  %s  %s  %s\n",
			p.ok.Render(fmt.Sprintf("%d destroyed", c.Destroyed)),
			p.bad.Render(fmt.Sprintf("%d failed", c.Failed)),
			p.warn.Render(fmt.Sprintf("%d not attempted", c.NotAttempted)))
	} else {
		fmt.Fprintf(&b, "  %s  %s  %s  %s  %s\n",
			p.ok.Render(fmt.Sprintf("%d applied", c.Applied)),
			p.dim.Render(fmt.Sprintf("%d unchanged", c.Skipped)),
			p.info.Render(fmt.Sprintf("%d destroyed", c.Destroyed)),
			p.bad.Render(fmt.Sprintf("%d failed", c.Failed)),
			p.warn.Render(fmt.Sprintf("%d not attempted", c.NotAttempted)))
	}

	if len(r.Failures) > 0 {
		b.WriteString("\n")
		b.WriteString(p.bad.Render("Failures"))
		b.WriteString("\n")
		for _, f := range r.Failures {
			where := ""
			if f.Host != "" {
				where = " on " + f.Host
			}
			fmt.Fprintf(&b, "  %s %s %s%s\n", p.bad.Render("✗"), f.Key, p.dim.Render("("+string(f.ErrorKind)+")"), where)
			fmt.Fprintf(&b, "    %s\n", f.Message)
			if f.Stderr != "" {
				for _, line := range strings.Split(strings.TrimRight(f.Stderr, "\n"), "\n") {
					fmt.Fprintf(&b, "    %s %s\n", p.dim.Render("│"), line)
				}
			}
		}
	}

	if blocked := blockedResults(r.Results); len(blocked) > 0 {
		b.WriteString("\n")
		b.WriteString(p.warn.Render("Not attempted"))
		b.WriteString("\n")
		for _, res := range blocked {
			fmt.Fprintf(&b, "  %s %s %s\n", p.warn.Render("-"), res.Key, p.dim.Render(res.Message))
		}
	}

	b.WriteString("\n")
	if r.Success {
		b.WriteString(p.ok.Render("✓ Pass succeeded"))
	} else {
		b.WriteString(p.bad.Render("✗ Pass failed"))
	}
	b.WriteString("\n")
	return b.String()
}

func blockedResults(results []resource.Result) []resource.Result {
	var out []resource.Result
	for _, res := range results {
		if res.Outcome == resource.OutcomeNotAttempted {
			out = append(out, res)
		}
	}
	return out
}

func renderPlan(plan *orchestration.Plan, color bool) string {
	p := newPalette(color)
	var b strings.Builder

	b.WriteString(p.title.Render("pvecfg plan"))
	b.WriteString("\n\n")

	for _, e := range plan.Entries {
		var mark string
		switch e.Action {
		case resource.ActionCreate:
			mark = p.ok.Render("+")
		case resource.ActionConverge:
			mark = p.info.Render("~")
		case resource.ActionDestroy:
			mark = p.bad.Render("-")
		default:
			mark = p.dim.Render("=")
		}
		line := fmt.Sprintf("  %s %-32s %-9s %s", mark, e.Key, e.Action, e.State)
		if e.Note != "" {
			line += "  " + p.dim.Render(e.Note)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\n%d of %d resources need changes.\n", plan.Actionable(), len(plan.Entries))
	return b.String()
}

func renderRecords(records []*state.Record) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)

	header := table.Row{}
	for _, h := range []string{"KIND", "ID", "OUTCOME", "OBSERVED", "ERROR", "UPDATED"} {
		header = append(header, text.FgHiCyan.Sprint(h))
	}
	t.AppendHeader(header)

	for _, r := range records {
		errText := ""
		if r.ErrorKind != "" {
			errText = string(r.ErrorKind)
		}
		t.AppendRow(table.Row{
			r.Key.Kind,
			r.Key.ID,
			r.Outcome,
			r.ObservedState,
			errText,
			r.UpdatedAt.Local().Format(time.DateTime),
		})
	}
	return t.Render()
}
