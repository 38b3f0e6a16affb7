package units

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalArea(t *testing.T) {
	for _, alias := range []string{"m2", "m²", "sqm", " M2 ", "Square Meters", ""} {
		u, err := CanonicalArea(alias)
		require.NoError(t, err, alias)
		assert.Equal(t, SquareMeters, u)
	}

	_, err := CanonicalArea("ft2")
	assert.Error(t, err)
}

func TestCanonicalVolume(t *testing.T) {
	for _, alias := range []string{"m3", "m³", "cum", "Cubic Metres", ""} {
		u, err := CanonicalVolume(alias)
		require.NoError(t, err, alias)
		assert.Equal(t, CubicMeters, u)
	}

	_, err := CanonicalVolume("gallons")
	assert.Error(t, err)
}
