// Package report renders partitions and run summaries as terminal tables.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/fgeck/partition-archiver/internal/models"
	"github.com/olekukonko/tablewriter"
)

// RenderPartitions writes the partitions of a parent table with their bounds.
func RenderPartitions(w io.Writer, partitions []models.Partition) {
	table := newTable(w, []string{"#", "Schema", "Partition", "Bound"})
	for i, p := range partitions {
		table.Append([]string{fmt.Sprintf("%d", i+1), p.Schema, p.Name, p.Bound})
	}
	table.Render()
}

// RenderSummary writes the per-partition outcome of a run followed by a footer line.
func RenderSummary(w io.Writer, summary models.RunSummary) {
	if len(summary.Partitions) > 0 {
		table := newTable(w, []string{"Partition", "State", "Dump File", "Error"})
		for _, p := range summary.Partitions {
			table.Append([]string{p.Name, string(p.State), p.DumpFile, p.Error})
		}
		table.Render()
	}

	fmt.Fprintf(w, "Outcome: %s (%s)\n", summary.Outcome, summary.Duration.Round(time.Millisecond))
	if summary.FailedStep != "" {
		fmt.Fprintf(w, "Failed step: %s\n", summary.FailedStep)
	}
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	return table
}
