// Package units normalizes the unit labels that BIM exports attach to
// material quantities. Revit-style exports are inconsistent about symbols
// ("m2" vs "m²" vs "sqm"), so all comparison happens on canonical forms.
package units

import (
	"fmt"
	"strings"
)

// Canonical unit labels used in exported column headers.
const (
	SquareMeters = "m²"
	CubicMeters  = "m³"
	KgPerCubicM  = "kg/m³"
	Kilograms    = "kg"
)

var areaAliases = map[string]string{
	"m2":            SquareMeters,
	"m²":            SquareMeters,
	"sqm":           SquareMeters,
	"sq m":          SquareMeters,
	"square meters": SquareMeters,
	"square metres": SquareMeters,
}

var volumeAliases = map[string]string{
	"m3":           CubicMeters,
	"m³":           CubicMeters,
	"cum":          CubicMeters,
	"cu m":         CubicMeters,
	"cubic meters": CubicMeters,
	"cubic metres": CubicMeters,
}

// CanonicalArea maps an area unit label to its canonical form.
// An empty label is treated as the canonical metric unit.
func CanonicalArea(label string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(label))
	if key == "" {
		return SquareMeters, nil
	}
	if u, ok := areaAliases[key]; ok {
		return u, nil
	}
	return "", fmt.Errorf("unrecognized area unit: %q", label)
}

// CanonicalVolume maps a volume unit label to its canonical form.
func CanonicalVolume(label string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(label))
	if key == "" {
		return CubicMeters, nil
	}
	if u, ok := volumeAliases[key]; ok {
		return u, nil
	}
	return "", fmt.Errorf("unrecognized volume unit: %q", label)
}
