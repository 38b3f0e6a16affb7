package export

import (
	"encoding/csv"
	"fmt"
	"io"
)

// CSVExporter writes one header row followed by one row per group.
type CSVExporter struct{}

func (e *CSVExporter) Export(t Table, w io.Writer) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(t.Columns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, row := range t.Rows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}
