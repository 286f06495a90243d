package cli

import (
	"fmt"
	"io"
	"sync"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/alnah/go-summarizeme/internal/format"
	"github.com/alnah/go-summarizeme/internal/store"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// renderTable renders rows under headers as a rounded table.
func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range columns {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// progressPrinter writes one line per progress step, skipping repeats.
type progressPrinter struct {
	mu   sync.Mutex
	w    io.Writer
	last string
}

func (p *progressPrinter) print(_ string, processed, total int) {
	line := format.Progress(processed, total)
	p.mu.Lock()
	defer p.mu.Unlock()
	if line == p.last {
		return
	}
	p.last = line
	_, _ = fmt.Fprintf(p.w, "  Progress: %s\n", line)
}

// writeRunSummary prints the final state of a run and its errors.
func writeRunSummary(w io.Writer, r *store.Run) {
	_, _ = fmt.Fprintf(w, "Run %s %s: %s", r.ID, format.Label(string(r.Status)), format.Progress(r.Processed, r.Total))
	if len(r.Errors) > 0 {
		_, _ = fmt.Fprintf(w, ", %d error(s)", len(r.Errors))
	}
	if r.Message != "" {
		_, _ = fmt.Fprintf(w, " (%s)", r.Message)
	}
	_, _ = fmt.Fprintln(w)
	for _, msg := range r.Errors {
		_, _ = fmt.Fprintf(w, "  - %s\n", msg)
	}
}
