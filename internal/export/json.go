package export

import (
	"encoding/json"
	"io"
)

// JSONExporter writes rows as an array of column→value objects, preserving
// column order via an ordered encoding of each row.
type JSONExporter struct{}

func (e *JSONExporter) Export(t Table, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	out := make([]orderedRow, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = orderedRow{columns: t.Columns, values: row}
	}
	return enc.Encode(out)
}

// orderedRow marshals as a JSON object with keys in column order.
// encoding/json sorts map keys, which would scramble the declared layout.
type orderedRow struct {
	columns []string
	values  []string
}

func (r orderedRow) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, col := range r.columns {
		if i > 0 {
			buf = append(buf, ',')
		}
		key, err := json.Marshal(col)
		if err != nil {
			return nil, err
		}
		value := ""
		if i < len(r.values) {
			value = r.values[i]
		}
		val, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		buf = append(buf, key...)
		buf = append(buf, ':')
		buf = append(buf, val...)
	}
	return append(buf, '}'), nil
}
