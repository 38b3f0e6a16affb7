package takeoff

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableColumnsAndRows(t *testing.T) {
	cfg := baseConfig()
	params, err := ParseParameters("properties.mark")
	require.NoError(t, err)
	cfg.ExtraParams = params

	data := `{
		"elements": [{
			"id": "w1", "category": "Walls", "family": "Basic Wall",
			"type": "Generic", "level": "L1",
			"properties": {
				"mark": "W-01",
				"Material Quantities": {"Concrete": {"area": 10, "volume": 3}}
			}
		}]
	}`
	result, _ := runPipeline(t, data, cfg)
	table := result.Table()

	assert.Equal(t, []string{
		"Level", "Category", "Family", "Type", "Material Name",
		"properties.mark",
		"Quantity", "Area (m²)", "Volume (m³)", "Density (kg/m³)", "Mass (kg)",
	}, table.Columns)

	require.Len(t, table.Rows, 1)
	assert.Equal(t, []string{
		"L1", "Walls", "Basic Wall", "Generic", "Concrete",
		"W-01",
		"1", "10.0000", "3.0000", "2400.0000", "7200.0000",
	}, table.Rows[0])
}

func TestTableUnknownDensityBlank(t *testing.T) {
	data := `{
		"elements": [{
			"id": "w1", "category": "Walls", "family": "Basic Wall",
			"type": "Generic", "level": "L1",
			"properties": {"Material Quantities": {"Mystery": {"area": 1, "volume": 1}}}
		}]
	}`
	result, _ := runPipeline(t, data, baseConfig())
	table := result.Table()

	require.Len(t, table.Rows, 1)
	row := table.Rows[0]
	assert.Equal(t, "", row[len(row)-2], "density column")
	assert.Equal(t, "", row[len(row)-1], "mass column")
}

func TestTableStructuralColumns(t *testing.T) {
	cfg := baseConfig()
	cfg.IncludeStructural = true

	data := `{
		"elements": [{
			"id": "w1", "category": "Walls", "family": "Basic Wall",
			"type": "Generic", "level": "L1",
			"properties": {
				"Material Quantities": {"Concrete": {"area": 5, "volume": 1}},
				"Parameters": {"Type Parameters": {"Structure": {
					"Layer 1": {"function": "Structure", "thickness": 0.2}
				}}}
			}
		}]
	}`
	result, _ := runPipeline(t, data, cfg)
	table := result.Table()

	require.Len(t, table.Rows, 1)
	assert.Contains(t, table.Columns, "Structural function")
	assert.Contains(t, table.Columns, "Structural thickness")

	byColumn := map[string]string{}
	for i, c := range table.Columns {
		byColumn[c] = table.Rows[0][i]
	}
	assert.Equal(t, "Structure", byColumn["Structural function"])
	assert.Equal(t, "0.2", byColumn["Structural thickness"])
}

func TestOutputPathTimestamp(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	res := &Result{cfg: Config{OutputPath: "out/takeoff.xlsx", Timestamp: true}}
	assert.Equal(t, "out/takeoff_20260314_092653.xlsx", res.OutputPath(now))

	res = &Result{cfg: Config{OutputPath: "takeoff.csv"}}
	assert.Equal(t, "takeoff.csv", res.OutputPath(now))
}

func TestEngineExportCSV(t *testing.T) {
	dir := t.TempDir()
	cfg := baseConfig()
	cfg.Format = FormatCSV
	cfg.OutputPath = filepath.Join(dir, "takeoff.csv")

	result, engine := runPipeline(t, wallsAndFloors, cfg)
	path, err := engine.Export(result)
	require.NoError(t, err)
	assert.Equal(t, cfg.OutputPath, path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Level,Category,Family,Type,Material Name")
	assert.Contains(t, string(content), "L1,Walls,Basic Wall,Basic Wall,Concrete,2,15.0000,4.5000")
}

func TestEngineExportUnwritablePath(t *testing.T) {
	cfg := baseConfig()
	cfg.Format = FormatCSV
	cfg.OutputPath = filepath.Join(t.TempDir(), "missing", "deep", "takeoff.csv")

	result, engine := runPipeline(t, wallsAndFloors, cfg)
	_, err := engine.Export(result)
	require.Error(t, err)

	// A second export attempt is rejected: the run already failed.
	_, err = engine.Export(result)
	assert.Error(t, err)
}
