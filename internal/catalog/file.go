package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/shopspring/decimal"
)

// Entry is one record in a JSON catalog file.
type Entry struct {
	Name        string  `json:"name"`
	DensityKgM3 float64 `json:"density_kg_m3"`
}

// NewFileStore loads a JSON density catalog:
//
//	[{"name": "Concrete", "density_kg_m3": 2400}, ...]
//
// Entries layer on top of the builtin defaults, so a project catalog only
// has to list the materials it wants to add or override.
func NewFileStore(path string) (Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode catalog file %s: %w", path, err)
	}

	base := NewBuiltinStore().(*memoryStore)
	for _, e := range entries {
		if e.Name == "" {
			return nil, fmt.Errorf("catalog file %s: entry with empty material name", path)
		}
		if e.DensityKgM3 < 0 {
			return nil, fmt.Errorf("catalog file %s: negative density for %q", path, e.Name)
		}
		base.densities[normalizeName(e.Name)] = decimal.NewFromFloat(e.DensityKgM3)
	}
	return base, nil
}

// Entries returns an in-memory store's contents sorted by name,
// for `catalog show`.
func Entries(s Store) []Entry {
	ms, ok := s.(*memoryStore)
	if !ok {
		return nil
	}
	entries := make([]Entry, 0, len(ms.densities))
	for name, d := range ms.densities {
		f, _ := d.Float64()
		entries = append(entries, Entry{Name: name, DensityKgM3: f})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}
