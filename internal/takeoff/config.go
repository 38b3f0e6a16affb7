// Package takeoff implements the material quantity takeoff pipeline:
// filter elements by category, group material associations by a composite
// key, accumulate area and volume, derive density and mass from the catalog,
// and hand finalized rows to an exporter.
package takeoff

import (
	"fmt"
	"strings"

	"bim-takeoff/internal/resolve"
	takeofferrors "bim-takeoff/pkg/errors"
)

// Format selects the output encoding.
type Format string

const (
	FormatXLSX  Format = "xlsx"
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
	FormatTable Format = "table"
)

// GroupField is one of the toggleable fixed grouping fields.
type GroupField string

const (
	GroupLevel    GroupField = "level"
	GroupCategory GroupField = "category"
	GroupType     GroupField = "type"
	GroupMaterial GroupField = "material"
)

// groupFieldOrder fixes the key-tuple and column order of the fixed fields.
var groupFieldOrder = []GroupField{GroupLevel, GroupCategory, GroupType, GroupMaterial}

// Config is the immutable input for one takeoff run. Build it once with the
// Parse helpers, validate it, and never mutate it while the run is active.
type Config struct {
	// Categories restricts the run to elements whose category name matches
	// exactly (after whitespace trimming). Empty means all categories.
	Categories []string

	// ExtraParams are additional dot-path parameters resolved per element
	// and folded into the grouping key, in declared order.
	ExtraParams []resolve.Descriptor

	// GroupBy holds the enabled fixed grouping fields. The zero value
	// (nil) means the default: group by all four.
	GroupBy map[GroupField]bool

	// IncludeStructural extracts structural layer type parameters onto
	// material associations.
	IncludeStructural bool

	OutputPath string
	Format     Format

	// Timestamp appends _YYYYMMDD_HHMMSS to the output file name.
	Timestamp bool
}

// DefaultGroupBy enables all four fixed grouping fields.
func DefaultGroupBy() map[GroupField]bool {
	return map[GroupField]bool{
		GroupLevel:    true,
		GroupCategory: true,
		GroupType:     true,
		GroupMaterial: true,
	}
}

// SplitList parses a comma-separated user list, trimming whitespace and
// dropping empty items.
func SplitList(csv string) []string {
	var out []string
	for _, item := range strings.Split(csv, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// ParseParameters parses the comma-separated extra-parameter list into
// descriptors. Malformed descriptors are configuration errors.
func ParseParameters(csv string) ([]resolve.Descriptor, error) {
	var descriptors []resolve.Descriptor
	for _, name := range SplitList(csv) {
		d, err := resolve.ParseDescriptor(name)
		if err != nil {
			return nil, takeofferrors.NewConfigError(err.Error())
		}
		descriptors = append(descriptors, d)
	}
	return descriptors, nil
}

// ParseGroupBy parses the comma-separated group-by list. An empty list
// yields the default grouping; "none" disables grouping entirely.
func ParseGroupBy(csv string) (map[GroupField]bool, error) {
	trimmed := strings.TrimSpace(csv)
	if trimmed == "" {
		return DefaultGroupBy(), nil
	}
	if strings.EqualFold(trimmed, "none") {
		return map[GroupField]bool{}, nil
	}

	groupBy := map[GroupField]bool{}
	for _, item := range SplitList(csv) {
		field := GroupField(strings.ToLower(item))
		switch field {
		case GroupLevel, GroupCategory, GroupType, GroupMaterial:
			groupBy[field] = true
		default:
			return nil, takeofferrors.NewConfigError(
				fmt.Sprintf("unknown group-by field %q (want level, category, type, material or none)", item))
		}
	}
	return groupBy, nil
}

// Validate rejects malformed configuration before any element is read.
func (c *Config) Validate() error {
	switch c.Format {
	case FormatXLSX, FormatCSV, FormatJSON, FormatTable:
	case "":
		return takeofferrors.NewConfigError("output format is required")
	default:
		return takeofferrors.NewConfigError(fmt.Sprintf("unknown output format %q", c.Format))
	}

	if c.Format != FormatTable && strings.TrimSpace(c.OutputPath) == "" {
		return takeofferrors.NewConfigError("output path is required for file formats")
	}

	for _, cat := range c.Categories {
		if strings.TrimSpace(cat) == "" {
			return takeofferrors.NewConfigError("empty category name in selection")
		}
	}
	return nil
}

// groupBy returns the effective grouping toggles (nil means default).
func (c *Config) groupBy() map[GroupField]bool {
	if c.GroupBy == nil {
		return DefaultGroupBy()
	}
	return c.GroupBy
}

// keyFields returns the enabled fixed grouping fields in canonical order.
func (c *Config) keyFields() []GroupField {
	enabled := c.groupBy()
	var fields []GroupField
	for _, f := range groupFieldOrder {
		if enabled[f] {
			fields = append(fields, f)
		}
	}
	return fields
}

// grouped reports whether any grouping applies. With no fixed fields and no
// extra parameters every association becomes its own output row.
func (c *Config) grouped() bool {
	return len(c.keyFields()) > 0 || len(c.ExtraParams) > 0
}

// categorySet returns the selected categories as a lookup set.
func (c *Config) categorySet() map[string]bool {
	if len(c.Categories) == 0 {
		return nil
	}
	set := make(map[string]bool, len(c.Categories))
	for _, cat := range c.Categories {
		set[strings.TrimSpace(cat)] = true
	}
	return set
}
