// Package catalog resolves material names to intrinsic densities (kg/m³).
// Density cannot be derived from a group's area and volume; it is a material
// property and has to come from an external catalog.
package catalog

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
)

// Store looks up material densities.
type Store interface {
	// Density returns the density in kg/m³ for a material name.
	// The boolean reports whether the material is known; an unknown
	// material is not an error.
	Density(ctx context.Context, material string) (decimal.Decimal, bool, error)

	Close() error
}

// normalizeName is the lookup key convention shared by every backend:
// trimmed and lowercased. Output rows always keep the source spelling.
func normalizeName(material string) string {
	return strings.ToLower(strings.TrimSpace(material))
}

// memoryStore is an in-memory name→density map.
type memoryStore struct {
	densities map[string]decimal.Decimal
}

func (s *memoryStore) Density(_ context.Context, material string) (decimal.Decimal, bool, error) {
	d, ok := s.densities[normalizeName(material)]
	return d, ok, nil
}

func (s *memoryStore) Close() error { return nil }

// NewBuiltinStore returns a store seeded with nominal densities for common
// construction materials. Values are reference densities; project-specific
// catalogs should override them via a file or Postgres store.
func NewBuiltinStore() Store {
	seed := map[string]float64{
		"concrete":                2400,
		"concrete, cast-in-place": 2400,
		"concrete, precast":       2500,
		"reinforced concrete":     2500,
		"steel":                   7850,
		"structural steel":        7850,
		"aluminum":                2700,
		"brick":                   1920,
		"brick, common":           1920,
		"masonry":                 2000,
		"timber":                  600,
		"wood":                    600,
		"plywood":                 540,
		"glass":                   2500,
		"gypsum wall board":       800,
		"plaster":                 850,
		"insulation":              40,
		"rigid insulation":        40,
		"mineral wool":            100,
		"asphalt":                 2300,
		"stone":                   2600,
		"granite":                 2700,
		"sand":                    1600,
		"gravel":                  1800,
		"air":                     1.2,
		"vapor retarder":          900,
		"membrane":                1100,
	}

	store := &memoryStore{densities: make(map[string]decimal.Decimal, len(seed))}
	for name, d := range seed {
		store.densities[name] = decimal.NewFromFloat(d)
	}
	return store
}
