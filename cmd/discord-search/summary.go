package main

import (
	"fmt"
	"io"
	"time"

	"discordsearch/internal/services/export/domain"

	"github.com/jedib0t/go-pretty/v6/table"
)

// printSummary renders the session report
func printSummary(w io.Writer, rep domain.Report) {
	fmt.Fprintf(w, "Total requests made: %d\n", rep.TotalRequests)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Session", "Value"})
	t.AppendRows([]table.Row{
		{"State", string(rep.State)},
		{"Guild", rep.GuildID},
		{"Target", rep.Target},
		{"Total results", rep.TotalResults},
		{"Pages written", fmt.Sprintf("%d / %d", rep.Pages, rep.TotalPages)},
		{"Messages written", rep.Messages},
		{"Re-anchors", rep.Reanchors},
		{"Errors", rep.Errors},
	})
	if rep.ResumedAfter != "" {
		t.AppendRow(table.Row{"Resumed after", rep.ResumedAfter})
	}
	if rep.LastID != "" {
		t.AppendRow(table.Row{"Last message id", rep.LastID})
	}
	t.AppendRow(table.Row{"Elapsed", rep.Elapsed().Round(time.Millisecond).String()})
	t.AppendFooter(table.Row{"Session id", rep.SessionID})
	t.Render()
}
