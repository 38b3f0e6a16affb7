package takeoff

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"bim-takeoff/internal/export"
	takeofferrors "bim-takeoff/pkg/errors"
	"bim-takeoff/pkg/units"
)

const (
	colFamily   = "Family"
	colQuantity = "Quantity"

	// measurePrecision is the fixed number of decimal places for every
	// exported numeric value.
	measurePrecision = 4

	joinSeparator = ", "
)

func fixedColumnName(f GroupField) string {
	switch f {
	case GroupLevel:
		return "Level"
	case GroupCategory:
		return "Category"
	case GroupType:
		return "Type"
	case GroupMaterial:
		return "Material Name"
	default:
		return string(f)
	}
}

// Table renders the finalized summaries as an ordered header plus rows,
// ready for any exporter. Column order is fixed: the five semantic fields,
// extra parameters in declared order, Quantity, then the measures, then
// structural parameter columns.
func (r *Result) Table() export.Table {
	keyIndex := map[GroupField]int{}
	for i, f := range r.cfg.keyFields() {
		keyIndex[f] = i
	}
	extraOffset := len(keyIndex)

	structuralCols := r.structuralColumns()

	columns := []string{}
	for _, f := range []GroupField{GroupLevel, GroupCategory} {
		columns = append(columns, fixedColumnName(f))
	}
	columns = append(columns, colFamily)
	for _, f := range []GroupField{GroupType, GroupMaterial} {
		columns = append(columns, fixedColumnName(f))
	}
	for _, d := range r.cfg.ExtraParams {
		columns = append(columns, d.Name)
	}
	columns = append(columns,
		colQuantity,
		fmt.Sprintf("Area (%s)", r.areaUnit),
		fmt.Sprintf("Volume (%s)", r.volumeUnit),
		fmt.Sprintf("Density (%s)", units.KgPerCubicM),
		fmt.Sprintf("Mass (%s)", units.Kilograms),
	)
	for _, name := range structuralCols {
		columns = append(columns, "Structural "+name)
	}

	rows := make([][]string, 0, len(r.Summaries))
	for _, s := range r.Summaries {
		row := make([]string, 0, len(columns))

		fixed := func(f GroupField) string {
			if idx, ok := keyIndex[f]; ok {
				return s.Key[idx]
			}
			return strings.Join(s.Info[fixedColumnName(f)], joinSeparator)
		}

		row = append(row,
			fixed(GroupLevel),
			fixed(GroupCategory),
			strings.Join(s.Info[colFamily], joinSeparator),
			fixed(GroupType),
			fixed(GroupMaterial),
		)
		for i := range r.cfg.ExtraParams {
			row = append(row, s.Key[extraOffset+i])
		}
		row = append(row,
			strconv.Itoa(s.Quantity),
			s.Area.StringFixed(measurePrecision),
			s.Volume.StringFixed(measurePrecision),
		)
		if s.DensityKnown {
			row = append(row,
				s.Density.StringFixed(measurePrecision),
				s.Mass.StringFixed(measurePrecision),
			)
		} else {
			row = append(row, "", "")
		}
		for _, name := range structuralCols {
			row = append(row, strings.Join(s.Structural[name], joinSeparator))
		}

		rows = append(rows, row)
	}

	return export.Table{Columns: columns, Rows: rows}
}

// FlatRow is one summary with the semantic fields resolved out of the
// key/info split, for sinks that want typed columns.
type FlatRow struct {
	Level    string
	Category string
	Family   string
	Type     string
	Material string
	Quantity int
	Area     decimal.Decimal
	Volume   decimal.Decimal
	Density  decimal.Decimal
	Mass     decimal.Decimal
}

// FlatRows resolves each summary's semantic fields, joining distinct values
// for fields that were not part of the grouping key.
func (r *Result) FlatRows() []FlatRow {
	keyIndex := map[GroupField]int{}
	for i, f := range r.cfg.keyFields() {
		keyIndex[f] = i
	}

	rows := make([]FlatRow, 0, len(r.Summaries))
	for _, s := range r.Summaries {
		fixed := func(f GroupField) string {
			if idx, ok := keyIndex[f]; ok {
				return s.Key[idx]
			}
			return strings.Join(s.Info[fixedColumnName(f)], joinSeparator)
		}
		rows = append(rows, FlatRow{
			Level:    fixed(GroupLevel),
			Category: fixed(GroupCategory),
			Family:   strings.Join(s.Info[colFamily], joinSeparator),
			Type:     fixed(GroupType),
			Material: fixed(GroupMaterial),
			Quantity: s.Quantity,
			Area:     s.Area,
			Volume:   s.Volume,
			Density:  s.Density,
			Mass:     s.Mass,
		})
	}
	return rows
}

// structuralColumns returns the union of structural parameter names seen
// across all groups, sorted for a stable header.
func (r *Result) structuralColumns() []string {
	seen := map[string]bool{}
	for _, s := range r.Summaries {
		for name := range s.Structural {
			seen[name] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OutputPath returns the configured destination, with the timestamp suffix
// applied when enabled.
func (r *Result) OutputPath(now time.Time) string {
	path := r.cfg.OutputPath
	if !r.cfg.Timestamp {
		return path
	}
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + now.Format("_20060102_150405") + ext
}

// Export writes the finalized result to its configured destination.
// Table format renders to stdout; file formats go through the exporter for
// the configured format. A failed write is fatal and surfaced to the
// caller so the run can be retried with a different path.
func (e *Engine) Export(res *Result) (string, error) {
	if e.state != stateFinalizing {
		return "", e.fail(fmt.Errorf("export requires a finalized run (state: %s)", e.state))
	}
	e.transition(stateExporting)

	table := res.Table()

	if res.cfg.Format == FormatTable {
		if err := export.Render(os.Stdout, table); err != nil {
			return "", e.fail(takeofferrors.NewExportError("stdout", err))
		}
		e.transition(stateDone)
		return "", nil
	}

	exporter, err := export.ForFormat(string(res.cfg.Format))
	if err != nil {
		return "", e.fail(takeofferrors.NewConfigError(err.Error()))
	}

	path := res.OutputPath(time.Now())
	if err := export.Save(exporter, table, path); err != nil {
		return "", e.fail(takeofferrors.NewExportError(path, err))
	}

	e.log.Info("takeoff exported", "path", path, "format", string(res.cfg.Format), "rows", len(table.Rows))
	e.transition(stateDone)
	return path, nil
}
