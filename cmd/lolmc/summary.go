package main

import (
	"fmt"
	"io"
	"time"

	"github.com/Sternrassler/lol-match-collector/pkg/pipeline"
	"github.com/Sternrassler/lol-match-collector/pkg/routing"
	"github.com/jedib0t/go-pretty/v6/table"
)

// writeSummary renders the per-domain outcome of a run as a table.
func writeSummary(w io.Writer, report *pipeline.Report) error {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle(fmt.Sprintf("%s run %s", report.Stage, report.RunID))
	t.AppendHeader(table.Row{"Domain", "Items", "Contributed", "Empty", "Failed", "Malformed", "Duration"})

	for _, domain := range routing.Domains() {
		r, ok := report.PerDomain[domain]
		if !ok {
			continue
		}
		t.AppendRow(table.Row{domain.String(), r.Items, r.Contributed, r.Empty, r.Failed, r.Malformed, r.Duration.Round(time.Millisecond).String()})
	}

	t.AppendFooter(table.Row{"total", report.Processed, report.Contributed, report.Empty, report.Failed, report.Malformed, report.Duration.Round(time.Millisecond).String()})
	t.Render()

	counts := report.Results.Counts()
	_, err := fmt.Fprintf(w, "input %d, unroutable %d, duplicates %d | match ids %d, roles %d, filtered matches %d, trajectories %d\n",
		report.Input, report.Unroutable, report.Duplicates,
		counts.MatchIDs, counts.Roles, counts.FilteredMatches, counts.Trajectories)
	return err
}
