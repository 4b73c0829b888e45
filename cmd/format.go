package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/sells-group/nutrition-scraper/internal/model"
	"github.com/sells-group/nutrition-scraper/internal/output"
	"github.com/sells-group/nutrition-scraper/internal/pipeline"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}

// printSummary renders the outcome of a pipeline run.
func printSummary(w io.Writer, sum *pipeline.Summary) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Field", "Value"})
	if sum.RunID != "" {
		t.AppendRow(table.Row{"Run", sum.RunID})
	}
	t.AppendRow(table.Row{"Kind", sum.Kind})
	t.AppendRow(table.Row{"Status", sum.Status})
	if sum.CrawlState != "" {
		t.AppendRow(table.Row{"Crawl", fmt.Sprintf("%s (%d pages)", sum.CrawlState, sum.Pages)})
	}
	t.AppendRow(table.Row{"Locators", sum.Locators})
	if sum.Kind != model.RunKindCollect {
		t.AppendRow(table.Row{"Records", len(sum.Records)})
		t.AppendRow(table.Row{"Failed", len(sum.Failed)})
	}
	for _, out := range sum.Outputs {
		t.AppendRow(table.Row{"Output", out})
	}
	t.AppendRow(table.Row{"Duration", sum.Duration.Round(time.Millisecond)})
	t.Render()

	if len(sum.Failed) > 0 {
		ft := newTable(w)
		ft.AppendHeader(table.Row{"Locator", "Error"})
		for _, f := range sum.Failed {
			ft.AppendRow(table.Row{f.Locator, f.Error})
		}
		ft.Render()
	}
}

func formatRunsList(w io.Writer, runs []model.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs found.")
		return
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"ID", "Kind", "Status", "Locators", "Records", "Failed", "Created"})
	for _, r := range runs {
		locs, recs, failed := "-", "-", "-"
		if r.Result != nil {
			locs = strconv.Itoa(r.Result.Locators)
			recs = strconv.Itoa(r.Result.Records)
			failed = strconv.Itoa(len(r.Result.Failed))
		}
		t.AppendRow(table.Row{
			r.ID, r.Kind, r.Status, locs, recs, failed,
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
		})
	}
	t.Render()
}

func formatFilesList(w io.Writer, files []output.FileInfo) {
	if len(files) == 0 {
		fmt.Fprintln(w, "No data files found.")
		return
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"File", "Size", "Modified"})
	for _, f := range files {
		t.AppendRow(table.Row{f.Name, humanSize(f.Size), f.ModTime.Local().Format("2006-01-02 15:04:05")})
	}
	t.Render()
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %sB", float64(n)/float64(div), strings.Split("K,M,G,T", ",")[exp])
}
