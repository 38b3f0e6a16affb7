package takeoff

import (
	"sort"

	"github.com/shopspring/decimal"

	takeofferrors "bim-takeoff/pkg/errors"
)

// Contribution is one material association prepared for accumulation:
// the resolved key, the measures, and the informational field values that
// ride along without being part of the key.
type Contribution struct {
	Key Key

	// Info holds the values of columns that are not in the key
	// (Family, plus any fixed field whose grouping toggle is off).
	// Distinct values within a group are joined in the output.
	Info map[string]string

	Area   decimal.Decimal
	Volume decimal.Decimal

	// Density is the material's catalog density (kg/m³).
	// DensityKnown is false when the catalog has no entry.
	Density      decimal.Decimal
	DensityKnown bool

	// Structural holds structural layer parameters, keyed by name.
	Structural map[string]string
}

// Summary is one finalized output row.
type Summary struct {
	Key Key

	// Info maps informational column names to their sorted distinct values.
	Info map[string][]string

	// Quantity counts the material associations accumulated into the group.
	Quantity int

	Area   decimal.Decimal
	Volume decimal.Decimal

	// Mass is sum(volume_i * density_i) over associations with a catalog
	// density. Density is the volume-weighted mean over those same
	// associations; DensityKnown is false when none had a catalog entry.
	Mass         decimal.Decimal
	Density      decimal.Decimal
	DensityKnown bool

	// Structural maps structural parameter names to sorted distinct values.
	Structural map[string][]string
}

type groupTotals struct {
	key        Key
	info       map[string]map[string]bool
	quantity   int
	area       decimal.Decimal
	volume     decimal.Decimal
	mass       decimal.Decimal
	massVolume decimal.Decimal // volume covered by a known density
	structural map[string]map[string]bool
}

// Aggregator maintains running totals per group key. It is owned by a single
// pipeline run and is not safe for concurrent use.
type Aggregator struct {
	groups    map[string]*groupTotals
	finalized bool
}

func NewAggregator() *Aggregator {
	return &Aggregator{groups: make(map[string]*groupTotals)}
}

// Accumulate folds one contribution into its group's running totals,
// creating the group at zero on first sight. Accumulating after Finalize
// is a programming error and fails fast.
func (a *Aggregator) Accumulate(c Contribution) error {
	if a.finalized {
		return &takeofferrors.TakeoffError{
			Code:     takeofferrors.ErrCodeRunFinalized,
			Message:  "accumulate called after finalize",
			Severity: takeofferrors.SeverityFatal,
		}
	}

	id := c.Key.join()
	g, ok := a.groups[id]
	if !ok {
		g = &groupTotals{
			key:        c.Key,
			info:       make(map[string]map[string]bool),
			structural: make(map[string]map[string]bool),
		}
		a.groups[id] = g
	}

	g.quantity++
	g.area = g.area.Add(c.Area)
	g.volume = g.volume.Add(c.Volume)
	if c.DensityKnown {
		g.mass = g.mass.Add(c.Volume.Mul(c.Density))
		g.massVolume = g.massVolume.Add(c.Volume)
	}

	for col, val := range c.Info {
		if val == "" {
			continue
		}
		if g.info[col] == nil {
			g.info[col] = make(map[string]bool)
		}
		g.info[col][val] = true
	}
	for name, val := range c.Structural {
		if g.structural[name] == nil {
			g.structural[name] = make(map[string]bool)
		}
		g.structural[name][val] = true
	}
	return nil
}

// Finalize closes accumulation and returns one summary per distinct key,
// sorted by key tuple. Calling Finalize twice is a programming error.
func (a *Aggregator) Finalize() ([]Summary, error) {
	if a.finalized {
		return nil, &takeofferrors.TakeoffError{
			Code:     takeofferrors.ErrCodeRunFinalized,
			Message:  "finalize called twice",
			Severity: takeofferrors.SeverityFatal,
		}
	}
	a.finalized = true

	summaries := make([]Summary, 0, len(a.groups))
	for _, g := range a.groups {
		s := Summary{
			Key:        g.key,
			Info:       sortedSets(g.info),
			Quantity:   g.quantity,
			Area:       g.area,
			Volume:     g.volume,
			Mass:       g.mass,
			Structural: sortedSets(g.structural),
		}
		if g.massVolume.IsPositive() {
			s.Density = g.mass.Div(g.massVolume)
			s.DensityKnown = true
		}
		summaries = append(summaries, s)
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Key.Less(summaries[j].Key)
	})
	return summaries, nil
}

func sortedSets(sets map[string]map[string]bool) map[string][]string {
	out := make(map[string][]string, len(sets))
	for name, set := range sets {
		values := make([]string, 0, len(set))
		for v := range set {
			values = append(values, v)
		}
		sort.Strings(values)
		out[name] = values
	}
	return out
}
