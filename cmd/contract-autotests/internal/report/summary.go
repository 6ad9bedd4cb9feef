// Package report renders finished runs: a summary table for the terminal
// and parquet or csv exports of their steps.
package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/collector"
	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/db"
	"github.com/evmtools/contract-autotests/cmd/contract-autotests/internal/runner"
)

const maxErrorWidth = 60

var statusColors = map[string]*color.Color{
	db.StatusPassed:  color.New(color.FgGreen),
	db.StatusFailed:  color.New(color.FgRed, color.Bold),
	db.StatusSkipped: color.New(color.FgYellow),
}

func colorStatus(status string) string {
	if c, ok := statusColors[status]; ok {
		return c.Sprint(status)
	}
	return status
}

// PrintSummary writes one table line per case execution followed by the
// run totals.
func PrintSummary(w io.Writer, report *runner.Report) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "Case", "Row", "Author", "Status", "Steps", "Duration", "Error"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	for _, result := range report.Results {
		table.Append([]string{
			strconv.Itoa(result.Sequence + 1),
			result.ShowName,
			rowLabel(result),
			result.Author,
			colorStatus(result.Status),
			strconv.Itoa(len(result.Steps)),
			result.Duration().Round(time.Millisecond).String(),
			truncate(result.Error, maxErrorWidth),
		})
	}
	table.Render()

	run := report.Run
	elapsed := time.Duration(run.FinishedAt-run.StartedAt) * time.Millisecond
	fmt.Fprintf(w, "run %s %s: %d passed, %d failed, %d skipped in %s\n",
		run.ID, colorStatus(run.Status), run.Passed, run.Failed, run.Skipped, collector.Elapsed(elapsed))
}

func rowLabel(result collector.Result) string {
	if result.Source == "" {
		return "-"
	}
	return fmt.Sprintf("%s:%d", result.Source, result.Row)
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-3]) + "..."
}
