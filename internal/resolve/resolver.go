// Package resolve answers "what is the value of field X on element E" for
// both the fixed semantic fields (level, category, family, type) and
// user-supplied dot-path parameters addressed into the element's property bag.
package resolve

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"bim-takeoff/internal/source"
)

// FixedField identifies one of the built-in element attributes.
type FixedField string

const (
	FieldLevel    FixedField = "level"
	FieldCategory FixedField = "category"
	FieldFamily   FixedField = "family"
	FieldType     FixedField = "type"
)

// Descriptor selects a field on an element: either a fixed semantic field
// or a dot-path into the element's raw record.
type Descriptor struct {
	Fixed FixedField
	Path  []string

	// Name is the descriptor as the user wrote it, used as the column header.
	Name string
}

// ParseDescriptor builds a Descriptor from a user-supplied field name.
// Recognized fixed names resolve against built-in attributes; anything else
// is treated as a dot-path into the property bag. Empty descriptors and
// empty path segments are configuration errors, caught here rather than
// during resolution.
func ParseDescriptor(name string) (Descriptor, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return Descriptor{}, fmt.Errorf("empty field descriptor")
	}

	switch FixedField(strings.ToLower(trimmed)) {
	case FieldLevel, FieldCategory, FieldFamily, FieldType:
		return Descriptor{Fixed: FixedField(strings.ToLower(trimmed)), Name: trimmed}, nil
	}

	segments := strings.Split(trimmed, ".")
	for _, seg := range segments {
		if strings.TrimSpace(seg) == "" {
			return Descriptor{}, fmt.Errorf("descriptor %q has an empty path segment", trimmed)
		}
	}
	return Descriptor{Path: segments, Name: trimmed}, nil
}

// Resolve looks up the descriptor's value on an element. The second return
// reports whether the field was found; a missing field is never an error.
// Resolution is a pure lookup with no side effects.
func Resolve(el *source.Element, d Descriptor) (string, bool) {
	if d.Fixed != "" {
		return resolveFixed(el, d.Fixed)
	}
	return resolvePath(el.Bag, d.Path)
}

func resolveFixed(el *source.Element, f FixedField) (string, bool) {
	var v string
	switch f {
	case FieldLevel:
		v = el.Level
	case FieldCategory:
		v = el.Category
	case FieldFamily:
		v = el.Family
	case FieldType:
		v = el.Type
	}
	return v, v != ""
}

// resolvePath walks dot-path segments left to right. Any segment that is
// absent, or whose current value is not a traversable object, yields a miss.
func resolvePath(bag map[string]interface{}, path []string) (string, bool) {
	var current interface{} = bag
	for _, seg := range path {
		obj, ok := current.(map[string]interface{})
		if !ok {
			return "", false
		}
		current, ok = obj[seg]
		if !ok {
			return "", false
		}
	}
	if current == nil {
		return "", false
	}
	return FormatValue(current), true
}

// FormatValue renders a resolved leaf value for grouping and export.
// Strings are trimmed; structured leaves fall back to their JSON encoding.
func FormatValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		if b, err := json.Marshal(val); err == nil {
			return string(b)
		}
		return fmt.Sprintf("%v", val)
	}
}
