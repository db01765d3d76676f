// Package cli holds helpers shared by the command entry point: client
// initialization, input validation, and run summary rendering.
package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/fpang/asset-classifier/internal/pipeline"
	"github.com/fpang/asset-classifier/internal/retry"
)

// FormatDurationShort formats a duration in a short format (M:SS or H:MM:SS).
func FormatDurationShort(d time.Duration) string {
	totalSeconds := int(d.Seconds())
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// RenderSummary renders one row per asset plus a totals footer.
func RenderSummary(report *pipeline.Report) string {
	if report == nil || len(report.Assets) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Footer = text.FormatDefault
	tw.AppendHeader(table.Row{"Asset", "Size", "Status", "Attempts", "Category"})

	for _, a := range report.Assets {
		category := a.Category
		if a.State != retry.Succeeded {
			category = "-"
		}
		tw.AppendRow(table.Row{
			a.Name,
			humanize.Bytes(uint64(a.Size)),
			a.State.String(),
			strconv.Itoa(a.Attempts),
			category,
		})
	}

	tw.AppendFooter(table.Row{
		fmt.Sprintf("%d assets", len(report.Assets)),
		"",
		fmt.Sprintf("%d ok / %d skipped", report.Succeeded(), report.Exhausted()),
		"",
		FormatDurationShort(report.Duration),
	})

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 4, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})

	return tw.Render()
}
