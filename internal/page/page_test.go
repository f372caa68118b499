package page

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-pod/internal/units"
)

func TestParseMargin(t *testing.T) {
	tests := []struct {
		spec string
		want Margin
	}{
		{"5", Margin{5, 5, 5, 5, units.Inches}},
		{"1 2", Margin{1, 2, 1, 2, units.Inches}},
		{"1 2 3", Margin{1, 2, 3, 2, units.Inches}},
		{"1 2 3 4", Margin{1, 2, 3, 4, units.Inches}},
		{"1 2 3 4 CENTIMETERS", Margin{1, 2, 3, 4, units.Centimeters}},
		{"0.5 points", Margin{0.5, 0.5, 0.5, 0.5, units.Points}},
		{"4.5 8 23 8 CENTIMETERS", Margin{4.5, 8, 23, 8, units.Centimeters}},
		{"2 FURLONGS", Margin{2, 2, 2, 2, units.Inches}},
		{"1 x 3", Margin{1, 3, 1, 3, units.Inches}},
		{"1 2 3 4 5", Margin{0, 0, 0, 0, units.Inches}},
		{"", Margin{0, 0, 0, 0, units.Inches}},
		{"INCHES", Margin{0, 0, 0, 0, units.Inches}},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, err := ParseMargin(tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseMarginTooManyValues(t *testing.T) {
	got, err := ParseMargin("1 2 3 4 5 6")
	assert.ErrorIs(t, err, ErrTooManyMarginValues)
	assert.Equal(t, Margin{Units: units.Inches}, got)
}

func TestMarginIn(t *testing.T) {
	m := Margin{1, 2, 3, 4, units.Inches}
	got, err := m.In(units.Converter{}, units.Points)
	require.NoError(t, err)
	assert.Equal(t, units.Points, got.Units)
	assert.InDelta(t, 72, got.Top, 1e-9)
	assert.InDelta(t, 144, got.Right, 1e-9)
	assert.InDelta(t, 216, got.Bottom, 1e-9)
	assert.InDelta(t, 288, got.Left, 1e-9)
	assert.Equal(t, 6.0, m.Horizontal())
	assert.Equal(t, 4.0, m.Vertical())
}

func TestLintMargin(t *testing.T) {
	assert.Empty(t, LintMargin("0.5 0.5 0.5 0.5 INCHES"))
	assert.Empty(t, LintMargin("0"))

	assert.Equal(t, []MarginProblem{{Kind: TooManyValues}}, LintMargin("1 2 3 4 5 6"))
	assert.Equal(t, []MarginProblem{{Kind: UnknownUnits, Token: "FEET"}}, LintMargin("1 feet"))
	assert.Equal(t, []MarginProblem{{Kind: InvalidNumber, Token: "abc"}}, LintMargin("1 abc 3"))
}

func TestResolveSize(t *testing.T) {
	tests := []struct {
		value, orientation string
		want               Size
	}{
		{"LETTER", "Landscape", Size{11, 8.5, units.Inches}},
		{"LETTER", "Portrait", Size{8.5, 11, units.Inches}},
		{"letter", "portrait", Size{8.5, 11, units.Inches}},
		{"A4", "", Size{8.27, 11.69, units.Inches}},
		{"ANSI D", "Landscape", Size{34, 22, units.Inches}},
		{"E", "Portrait", Size{34, 44, units.Inches}},
		{"63 88 CENTIMETERS", "Portrait", Size{63, 88, units.Centimeters}},
		{"63 88 CENTIMETERS", "Landscape", Size{88, 63, units.Centimeters}},
		{"88 63 centimeters", "Portrait", Size{63, 88, units.Centimeters}},
		{"88 63 CENTIMETERS", "Landscape", Size{88, 63, units.Centimeters}},
		{"88 63 CENTIMETERS", "", Size{88, 63, units.Centimeters}},
	}
	for _, tt := range tests {
		t.Run(tt.value+"/"+tt.orientation, func(t *testing.T) {
			got, err := ResolveSize(tt.value, tt.orientation)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveSizeInvalid(t *testing.T) {
	for _, v := range []string{"", "B7", "32 CENTIMETERS", "x 44 CENTIMETERS", "32 y CENTIMETERS"} {
		_, err := ResolveSize(v, "Portrait")
		assert.ErrorIs(t, err, ErrInvalidPageSize, v)
	}
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "LETTER PORTRAIT", FormatValue("Letter", ""))
	assert.Equal(t, "A4 LANDSCAPE", FormatValue("a4", "Landscape"))
	assert.Equal(t, "CUSTOM PORTRAIT 63 88 CENTIMETERS", FormatValue("63 88 CENTIMETERS", "Portrait"))
	assert.Equal(t, "CUSTOM LANDSCAPE 88 63 CENTIMETERS", FormatValue("63 88 centimeters", "landscape"))
}

func TestSizeValue(t *testing.T) {
	assert.Equal(t, "8.5 11 INCHES", Size{8.5, 11, units.Inches}.Value())
	assert.Equal(t, "12.35 7 CENTIMETERS", Size{12.346, 7.0001, units.Centimeters}.Value())
}

func TestRoundScale(t *testing.T) {
	scales := []float64{5000, 25000, 50000, 100000}
	assert.Equal(t, 103000.0, RoundScale(102546, 1000, scales))
	assert.Equal(t, 50000.0, RoundScale(30000, 0, scales))
	assert.Equal(t, 50000.0, RoundScale(25000, 0, scales))
	assert.Equal(t, 250000.0, RoundScale(250000, 0, scales))
}

func TestFitSize(t *testing.T) {
	available := []string{"A3", "A4", "A5", "Letter", "Tabloid", "32 44 CENTIMETERS"}

	got, ok := FitSize(units.Converter{}, Size{8, 10, units.Inches}, available)
	require.True(t, ok)
	assert.Equal(t, Size{8.5, 11, units.Inches}, got)

	got, ok = FitSize(units.Converter{}, Size{8.4, 11.5, units.Inches}, available)
	require.True(t, ok)
	assert.Equal(t, Size{8.27, 11.69, units.Inches}, got.Oriented(Portrait))

	got, ok = FitSize(units.Converter{}, Size{14, 10, units.Inches}, available)
	require.True(t, ok)
	assert.Equal(t, Size{17, 11, units.Inches}, got)

	_, ok = FitSize(units.Converter{}, Size{100, 100, units.Inches}, available)
	assert.False(t, ok)
}
