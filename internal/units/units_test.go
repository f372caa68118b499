package units

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allUnits = []Unit{Inches, Points, Millimeters, Centimeters, Meters, Kilometers, DecimalDegrees}

func TestConvertRoundTrip(t *testing.T) {
	values := []float64{0, 0.001, 1, 8.5, 72, 1234.5678, 1e6}
	for _, from := range allUnits {
		for _, to := range allUnits {
			for _, v := range values {
				there, err := Convert(v, from, to)
				require.NoError(t, err)
				back, err := Convert(there, to, from)
				require.NoError(t, err)
				if v == 0 {
					assert.Zero(t, back)
					continue
				}
				if rel := math.Abs(back-v) / v; rel > 1e-9 {
					t.Fatalf("%g %s -> %s -> %s = %g (rel err %g)", v, from, to, from, back, rel)
				}
			}
		}
	}
}

func TestConvertKnownFactors(t *testing.T) {
	tests := []struct {
		value    float64
		from, to Unit
		want     float64
	}{
		{1, Inches, Points, 72},
		{72, Points, Inches, 1},
		{10, Millimeters, Inches, 0.3937},
		{1, Centimeters, Inches, 0.3937},
		{39.37, Inches, Meters, 1},
		{1, Kilometers, Meters, 1000},
		{8.5, Inches, Inches, 8.5},
	}
	for _, tt := range tests {
		got, err := Convert(tt.value, tt.from, tt.to)
		require.NoError(t, err)
		assert.InDelta(t, tt.want, got, 1e-9, "%g %s -> %s", tt.value, tt.from, tt.to)
	}
}

func TestConvertUnsupported(t *testing.T) {
	_, err := Convert(1, "FURLONGS", Inches)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedUnit))

	var unitErr *UnsupportedUnitError
	require.True(t, errors.As(err, &unitErr))
	assert.Equal(t, "FURLONGS", unitErr.Unit)

	_, err = Convert(1, Inches, "")
	assert.ErrorIs(t, err, ErrUnsupportedUnit)

	got, err := Convert(0, "FURLONGS", "PARSECS")
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestLegacyConvertFallback(t *testing.T) {
	// Known pairs agree with the strict table.
	assert.InDelta(t, 72.0, LegacyConvert(nil, 1, Inches, Points), 1e-12)
	assert.InDelta(t, 1/(inchesPerMillimeter*10), LegacyConvert(nil, 1, Inches, Centimeters), 1e-12)

	// Unknown source: read as millimeters.
	assert.InDelta(t, 10*inchesPerMillimeter, LegacyConvert(nil, 10, "FURLONGS", Inches), 1e-12)
	// Millimeters hit the same default and happen to be right.
	assert.InDelta(t, 10*inchesPerMillimeter, LegacyConvert(nil, 10, Millimeters, Inches), 1e-12)
	// Meters as a source are not handled either.
	assert.InDelta(t, 2*inchesPerMillimeter, LegacyConvert(nil, 2, Meters, Inches), 1e-12)

	// Unknown target: the source factor is applied twice.
	assert.InDelta(t, 3*(1/72.0)*(1/72.0), LegacyConvert(nil, 3, Points, Kilometers), 1e-12)
	assert.InDelta(t, 5.0, LegacyConvert(nil, 5, Inches, "FURLONGS"), 1e-12)

	assert.Zero(t, LegacyConvert(nil, 0, "X", "Y"))
}

func TestConverterModes(t *testing.T) {
	strict := Converter{}
	_, err := strict.Convert(1, "FURLONGS", Inches)
	assert.ErrorIs(t, err, ErrUnsupportedUnit)

	legacy := Converter{Legacy: true}
	got, err := legacy.Convert(1, "FURLONGS", Inches)
	require.NoError(t, err)
	assert.InDelta(t, inchesPerMillimeter, got, 1e-12)
}

func TestParseAndAbbreviation(t *testing.T) {
	assert.Equal(t, DecimalDegrees, Parse("Decimal Degrees"))
	assert.Equal(t, DecimalDegrees, Parse("decimal_degrees"))
	assert.Equal(t, Meters, Parse(" meters "))

	assert.Equal(t, "m", Unit("Meters").Abbreviation())
	assert.Equal(t, "km", Kilometers.Abbreviation())
	assert.Equal(t, "degrees", Unit("Decimal Degrees").Abbreviation())
	assert.Equal(t, "inches", Points.Abbreviation())
	assert.Equal(t, "inches", Unit("").Abbreviation())

	assert.True(t, Unit("centimeters").IsPageUnit())
	assert.False(t, Meters.IsPageUnit())
	assert.True(t, Unit("kilometers").Supported())
	assert.False(t, Unit("FURLONGS").Supported())
}
