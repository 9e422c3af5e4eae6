package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	types "github.com/charpstar/pipeline-backend/internal/domain"
	"github.com/charpstar/pipeline-backend/internal/services"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
)

func printSuccess(w io.Writer, format string, a ...any) {
	green.Fprintf(w, "✓ %s\n", fmt.Sprintf(format, a...))
}

func printWarning(w io.Writer, format string, a ...any) {
	yellow.Fprintf(w, "! %s\n", fmt.Sprintf(format, a...))
}

func printInfo(w io.Writer, format string, a ...any) {
	fmt.Fprintf(w, format+"\n", a...)
}

func printError(w io.Writer, err error) {
	red.Fprintf(w, "error: %v\n", err)
}

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)
	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

func renderSweep(res *services.SweepResult) string {
	rows := make([][]string, 0, len(res.DeletedLists)+len(res.Errors))
	for _, d := range res.DeletedLists {
		rows = append(rows, []string{d.ID.String(), d.Name, "deleted", d.Reason})
	}
	for _, e := range res.Errors {
		rows = append(rows, []string{e.ID.String(), "", "error", e.Error})
	}
	if len(rows) == 0 {
		return "no lists deleted"
	}
	return renderTable([]string{"List", "Name", "Result", "Detail"}, rows, nil)
}

// renderOrphans prints the orphaned lists, and the active ones too unless
// orphansOnly is set.
func renderOrphans(report *services.OrphanReport, orphansOnly bool) string {
	lists := append([]services.ListReport{}, report.OrphanedLists...)
	if !orphansOnly {
		lists = append(lists, report.ActiveLists...)
	}
	if len(lists) == 0 {
		return "no orphaned lists"
	}
	rows := make([][]string, 0, len(lists))
	for _, l := range lists {
		rows = append(rows, []string{
			l.ID.String(),
			l.Name,
			string(l.Role),
			l.UserID.String(),
			strconv.FormatInt(l.AssetCount, 10),
			l.Status,
			formatTime(l.CreatedAt),
		})
	}
	return renderTable(
		[]string{"List", "Name", "Role", "User", "Assets", "Status", "Created"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
	)
}

func renderDeadLetters(rows []*types.SideEffectTask) string {
	out := make([][]string, 0, len(rows))
	for _, t := range rows {
		if t == nil {
			continue
		}
		out = append(out, []string{
			t.ID.String(),
			t.Kind,
			strconv.Itoa(t.Attempts),
			truncate(t.Error, 60),
			formatTime(t.UpdatedAt),
		})
	}
	return renderTable(
		[]string{"Task", "Kind", "Attempts", "Last error", "Updated"},
		out,
		[]columnAlignment{alignLeft, alignLeft, alignRight},
	)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04")
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}
