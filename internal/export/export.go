// Package export writes finalized takeoff rows to tabular outputs.
// Exporters only see an ordered header and string rows; all formatting
// decisions (precision, joining, column order) happen upstream.
package export

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Table is an ordered header plus data rows. Every row has exactly one
// value per column.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Exporter encodes a table onto a writer.
type Exporter interface {
	Export(t Table, w io.Writer) error
}

// ForFormat returns the exporter for a file format name.
func ForFormat(format string) (Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "xlsx":
		return &XLSXExporter{SheetName: "Sheet1"}, nil
	case "csv":
		return &CSVExporter{}, nil
	case "json":
		return &JSONExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

// Save writes a table to a file path, creating or truncating the target.
// An unwritable path surfaces as an error to the caller.
func Save(e Exporter, t Table, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	if err := e.Export(t, f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to flush output file: %w", err)
	}
	return nil
}

// Render prints a table for terminal output with aligned columns.
func Render(w io.Writer, t Table) error {
	widths := make([]int, len(t.Columns))
	for i, c := range t.Columns {
		widths[i] = len(c)
	}
	for _, row := range t.Rows {
		for i, v := range row {
			if i < len(widths) && len(v) > widths[i] {
				widths[i] = len(v)
			}
		}
	}

	writeRow := func(values []string) error {
		cells := make([]string, len(values))
		for i, v := range values {
			cells[i] = fmt.Sprintf("%-*s", widths[i], v)
		}
		_, err := fmt.Fprintln(w, strings.TrimRight(strings.Join(cells, "  "), " "))
		return err
	}

	if err := writeRow(t.Columns); err != nil {
		return err
	}
	rule := make([]string, len(t.Columns))
	for i, width := range widths {
		rule[i] = strings.Repeat("-", width)
	}
	if _, err := fmt.Fprintln(w, strings.Join(rule, "  ")); err != nil {
		return err
	}
	for _, row := range t.Rows {
		if err := writeRow(row); err != nil {
			return err
		}
	}
	return nil
}
