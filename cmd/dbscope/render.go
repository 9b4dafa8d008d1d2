package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/VatsalSy/dbscope/internal/errors"
	"github.com/VatsalSy/dbscope/pkg/data"
)

// renderOptions controls how a DataTable is written.
type renderOptions struct {
	Format   string // table, csv, markdown, html
	NullText string
}

// renderTable writes the live rows of t to w.
func renderTable(w io.Writer, t *data.DataTable, opts renderOptions) error {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.Style().Format.Header = text.FormatDefault

	columns := t.Columns()
	header := make(table.Row, len(columns))
	for i, c := range columns {
		header[i] = c.Name
	}
	tw.AppendHeader(header)

	nullCell := opts.NullText
	if opts.Format == "table" {
		nullCell = color.New(color.FgHiBlack).Sprint(opts.NullText)
	}

	for _, row := range t.Rows() {
		if row.State() == data.RowDeleted {
			continue
		}
		values := row.Values()
		out := make(table.Row, len(values))
		for i, v := range values {
			if v == nil {
				out[i] = nullCell
				continue
			}
			out[i] = formatCell(v)
		}
		tw.AppendRow(out)
	}

	var rendered string
	switch opts.Format {
	case "", "table":
		rendered = tw.Render()
	case "csv":
		rendered = tw.RenderCSV()
	case "markdown":
		rendered = tw.RenderMarkdown()
	case "html":
		rendered = tw.RenderHTML()
	default:
		return errors.Configuration("output.format", errors.Errorf("unknown format %q", opts.Format))
	}

	_, err := fmt.Fprintln(w, rendered)
	return err
}

func formatCell(v any) string {
	switch x := v.(type) {
	case []byte:
		return "0x" + hex.EncodeToString(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}
