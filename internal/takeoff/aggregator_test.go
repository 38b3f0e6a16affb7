package takeoff

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	takeofferrors "bim-takeoff/pkg/errors"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func contribution(key Key, area, volume string) Contribution {
	return Contribution{Key: key, Area: dec(area), Volume: dec(volume)}
}

func TestAggregatorSumsPerKey(t *testing.T) {
	agg := NewAggregator()
	require.NoError(t, agg.Accumulate(contribution(Key{"L1", "Walls", "Concrete"}, "10", "3")))
	require.NoError(t, agg.Accumulate(contribution(Key{"L1", "Walls", "Concrete"}, "5", "1.5")))
	require.NoError(t, agg.Accumulate(contribution(Key{"L2", "Floors", "Concrete"}, "20", "4")))

	summaries, err := agg.Finalize()
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	assert.Equal(t, Key{"L1", "Walls", "Concrete"}, summaries[0].Key)
	assert.Equal(t, "15", summaries[0].Area.String())
	assert.Equal(t, "4.5", summaries[0].Volume.String())
	assert.Equal(t, 2, summaries[0].Quantity)

	assert.Equal(t, Key{"L2", "Floors", "Concrete"}, summaries[1].Key)
	assert.Equal(t, "20", summaries[1].Area.String())
	assert.Equal(t, "4", summaries[1].Volume.String())
	assert.Equal(t, 1, summaries[1].Quantity)
}

func TestAggregatorOrderIndependence(t *testing.T) {
	contributions := []Contribution{
		contribution(Key{"L1", "Walls"}, "1.1", "0.2"),
		contribution(Key{"L1", "Walls"}, "2.2", "0.4"),
		contribution(Key{"L2", "Walls"}, "3.3", "0.6"),
		contribution(Key{"L1", "Floors"}, "4.4", "0.8"),
		contribution(Key{"L2", "Floors"}, "5.5", "1.0"),
	}

	finalize := func(cs []Contribution) []Summary {
		agg := NewAggregator()
		for _, c := range cs {
			require.NoError(t, agg.Accumulate(c))
		}
		summaries, err := agg.Finalize()
		require.NoError(t, err)
		return summaries
	}

	want := finalize(contributions)

	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 5; trial++ {
		shuffled := make([]Contribution, len(contributions))
		copy(shuffled, contributions)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		assert.Equal(t, want, finalize(shuffled))
	}
}

func TestAggregatorMissingFieldsGroupTogether(t *testing.T) {
	agg := NewAggregator()
	// Both elements miss the same grouping field; the empty sentinel must
	// land them in one group.
	require.NoError(t, agg.Accumulate(contribution(Key{"", "Walls", "Concrete"}, "1", "1")))
	require.NoError(t, agg.Accumulate(contribution(Key{"", "Walls", "Concrete"}, "2", "2")))

	summaries, err := agg.Finalize()
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, 2, summaries[0].Quantity)
}

func TestAggregatorDensityVolumeWeighted(t *testing.T) {
	agg := NewAggregator()

	// 2 m³ at 2400 kg/m³ and 1 m³ at 600 kg/m³ in one group.
	c1 := contribution(Key{"L1"}, "10", "2")
	c1.Density, c1.DensityKnown = dec("2400"), true
	c2 := contribution(Key{"L1"}, "10", "1")
	c2.Density, c2.DensityKnown = dec("600"), true
	// Unknown density contributes volume but neither mass nor weight.
	c3 := contribution(Key{"L1"}, "10", "5")

	require.NoError(t, agg.Accumulate(c1))
	require.NoError(t, agg.Accumulate(c2))
	require.NoError(t, agg.Accumulate(c3))

	summaries, err := agg.Finalize()
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	s := summaries[0]
	assert.True(t, s.DensityKnown)
	assert.Equal(t, "5400", s.Mass.String())    // 2*2400 + 1*600
	assert.Equal(t, "1800", s.Density.String()) // 5400 / 3
	assert.Equal(t, "8", s.Volume.String())     // all volume counted
}

func TestAggregatorUnknownDensity(t *testing.T) {
	agg := NewAggregator()
	require.NoError(t, agg.Accumulate(contribution(Key{"L1"}, "10", "2")))

	summaries, err := agg.Finalize()
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.False(t, summaries[0].DensityKnown)
}

func TestAggregatorJoinsInfoValues(t *testing.T) {
	agg := NewAggregator()

	c1 := contribution(Key{"L1"}, "1", "1")
	c1.Info = map[string]string{"Family": "Basic Wall"}
	c2 := contribution(Key{"L1"}, "1", "1")
	c2.Info = map[string]string{"Family": "Curtain Wall"}
	c3 := contribution(Key{"L1"}, "1", "1")
	c3.Info = map[string]string{"Family": "Basic Wall"}

	require.NoError(t, agg.Accumulate(c1))
	require.NoError(t, agg.Accumulate(c2))
	require.NoError(t, agg.Accumulate(c3))

	summaries, err := agg.Finalize()
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, []string{"Basic Wall", "Curtain Wall"}, summaries[0].Info["Family"])
}

func TestAggregatorFailsFastAfterFinalize(t *testing.T) {
	agg := NewAggregator()
	require.NoError(t, agg.Accumulate(contribution(Key{"L1"}, "1", "1")))

	_, err := agg.Finalize()
	require.NoError(t, err)

	err = agg.Accumulate(contribution(Key{"L1"}, "1", "1"))
	require.Error(t, err)
	var te *takeofferrors.TakeoffError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, takeofferrors.ErrCodeRunFinalized, te.Code)

	_, err = agg.Finalize()
	assert.Error(t, err)
}

func TestKeyOrdering(t *testing.T) {
	assert.True(t, Key{"A", "B"}.Less(Key{"A", "C"}))
	assert.True(t, Key{"A"}.Less(Key{"A", "B"}))
	assert.False(t, Key{"B"}.Less(Key{"A", "Z"}))
	assert.False(t, Key{"A", "B"}.Less(Key{"A", "B"}))
	// Empty sentinel sorts first.
	assert.True(t, Key{"", "Walls"}.Less(Key{"L1", "Walls"}))
}
