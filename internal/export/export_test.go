package export

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleTable() Table {
	return Table{
		Columns: []string{"Level", "Material Name", "Quantity", "Area (m²)"},
		Rows: [][]string{
			{"L1", "Concrete", "2", "15.0000"},
			{"L2", "Concrete", "1", "20.0000"},
		},
	}
}

func TestForFormat(t *testing.T) {
	for _, format := range []string{"xlsx", "csv", "json", "XLSX", " csv "} {
		e, err := ForFormat(format)
		require.NoError(t, err, format)
		assert.NotNil(t, e)
	}

	_, err := ForFormat("pdf")
	assert.Error(t, err)
}

func TestCSVExport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&CSVExporter{}).Export(sampleTable(), &buf))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Level,Material Name,Quantity,Area (m²)", lines[0])
	assert.Equal(t, "L1,Concrete,2,15.0000", lines[1])
	assert.Equal(t, "L2,Concrete,1,20.0000", lines[2])
}

func TestCSVExportIdempotent(t *testing.T) {
	var a, b bytes.Buffer
	e := &CSVExporter{}
	require.NoError(t, e.Export(sampleTable(), &a))
	require.NoError(t, e.Export(sampleTable(), &b))
	assert.Equal(t, a.Bytes(), b.Bytes())
}

func TestJSONExportPreservesColumnOrder(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JSONExporter{}).Export(sampleTable(), &buf))

	out := buf.String()
	// Keys must appear in declared column order, not alphabetical.
	assert.Less(t, strings.Index(out, `"Level"`), strings.Index(out, `"Material Name"`))
	assert.Less(t, strings.Index(out, `"Material Name"`), strings.Index(out, `"Quantity"`))
	assert.Contains(t, out, `"Area (m²)": "15.0000"`)
}

func TestXLSXExportRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&XLSXExporter{SheetName: "Takeoff"}).Export(sampleTable(), &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Takeoff")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Level", "Material Name", "Quantity", "Area (m²)"}, rows[0])
	assert.Equal(t, []string{"L1", "Concrete", "2", "15.0000"}, rows[1])
}

func TestSaveToUnwritablePath(t *testing.T) {
	err := Save(&CSVExporter{}, sampleTable(), filepath.Join(t.TempDir(), "no", "such", "dir", "x.csv"))
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleTable()))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "Level"))
	assert.True(t, strings.HasPrefix(lines[1], "-----"))
	assert.Contains(t, lines[2], "Concrete")
}
