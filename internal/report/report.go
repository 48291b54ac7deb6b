// Package report renders run summaries as console tables.
package report

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/mtalcott/notion-file-migration-tool/internal/cleanup"
	"github.com/mtalcott/notion-file-migration-tool/internal/folders"
	"github.com/mtalcott/notion-file-migration-tool/internal/migrate"
)

const maxErrorWidth = 80

// Renderer writes summary tables to an output.
type Renderer struct {
	out io.Writer
}

// NewRenderer creates a Renderer writing to out.
func NewRenderer(out io.Writer) *Renderer {
	return &Renderer{out: out}
}

func (r *Renderer) newTable(title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleLight)
	t.SetTitle(title)
	return t
}

// Migration renders the outcome of a migration run.
func (r *Renderer) Migration(stats migrate.Stats, folderStats folders.Stats, dryRun bool, logPath string) {
	title := "Migration Summary"
	if dryRun {
		title = "Migration Preview (dry run)"
	}

	t := r.newTable(title)
	t.AppendHeader(table.Row{"Metric", "Count"})
	t.AppendRows([]table.Row{
		{"Pages processed", stats.Total},
		{"Single-attachment pages", stats.Eligible},
		{"Skipped", stats.Skipped},
	})
	if !dryRun {
		t.AppendRows([]table.Row{
			{"Migrated", stats.Succeeded},
			{"Failed", stats.Failed},
			{"Bytes uploaded", stats.Bytes},
			{"Folders created", folderStats.Created},
			{"Folder cache hits", folderStats.Hits},
		})
	}
	t.AppendSeparator()
	t.AppendRow(table.Row{"Log file", logPath})
	t.Render()

	if len(stats.Failures) == 0 {
		return
	}

	ft := r.newTable("Failed Pages")
	ft.AppendHeader(table.Row{"Page", "Stage", "Error"})
	for _, f := range stats.Failures {
		ft.AppendRow(table.Row{f.Title, string(f.Stage), truncate(errString(f.Err), maxErrorWidth)})
	}
	ft.Render()
}

// Cleanup renders the outcome of a cleanup run.
func (r *Renderer) Cleanup(summary cleanup.Summary, dryRun bool, logPath string) {
	title := "Cleanup Summary"
	if dryRun {
		title = "Cleanup Preview (dry run)"
	}

	t := r.newTable(title)
	t.AppendHeader(table.Row{"Metric", "Count"})
	t.AppendRow(table.Row{"Migrated pages found", summary.Found})
	if dryRun {
		t.AppendRow(table.Row{"Would archive", summary.Previewed})
	} else {
		t.AppendRows([]table.Row{
			{"Archived", summary.Archived},
			{"Failed", summary.Failed},
		})
	}
	t.AppendRow(table.Row{"Unparseable success lines", summary.Anomalies})
	t.AppendSeparator()
	t.AppendRow(table.Row{"Log file", logPath})
	t.Render()

	if len(summary.Failures) == 0 {
		return
	}

	ft := r.newTable("Failed Archives")
	ft.AppendHeader(table.Row{"Page ID", "Title", "Error"})
	for _, f := range summary.Failures {
		ft.AppendRow(table.Row{f.PageID, f.Title, truncate(errString(f.Err), maxErrorWidth)})
	}
	ft.Render()
}

// Check is one line of the setup check.
type Check struct {
	Name   string
	OK     bool
	Detail string
}

// Checks renders setup check results.
func (r *Renderer) Checks(checks []Check) {
	t := r.newTable("Setup Check")
	t.AppendHeader(table.Row{"Check", "Status", "Detail"})
	for _, c := range checks {
		status := "OK"
		if !c.OK {
			status = "FAIL"
		}
		t.AppendRow(table.Row{c.Name, status, c.Detail})
	}
	t.Render()
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return fmt.Sprintf("%s...", string(runes[:n-3]))
}
