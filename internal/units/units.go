// Package units converts linear page and ground measurements.
//
// All conversions go through inches. The factors use 0.03937 inches per
// millimeter, the value the product catalogs and the export service agree on,
// so a 63 88 CENTIMETERS page measures the same on both sides.
package units

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Unit is a linear measurement unit as it appears in a product catalog.
type Unit string

const (
	Inches         Unit = "INCHES"
	Points         Unit = "POINTS"
	Millimeters    Unit = "MILLIMETERS"
	Centimeters    Unit = "CENTIMETERS"
	Meters         Unit = "METERS"
	Kilometers     Unit = "KILOMETERS"
	DecimalDegrees Unit = "DECIMAL DEGREES"
)

// inchesPerMillimeter is the base factor of every metric conversion.
const inchesPerMillimeter = 0.03937

// metersPerDegree is the equatorial length of one degree of longitude on the
// web mercator sphere.
const metersPerDegree = 111319.49079327357

// inchesPer maps each supported unit to its length in inches.
var inchesPer = map[Unit]float64{
	Inches:         1,
	Points:         1 / 72.0,
	Millimeters:    inchesPerMillimeter,
	Centimeters:    inchesPerMillimeter * 10,
	Meters:         inchesPerMillimeter * 1000,
	Kilometers:     inchesPerMillimeter * 1000 * 1000,
	DecimalDegrees: inchesPerMillimeter * 1000 * metersPerDegree,
}

// ErrUnsupportedUnit is matched by every *UnsupportedUnitError.
var ErrUnsupportedUnit = errors.New("unsupported unit")

// UnsupportedUnitError reports a unit outside the conversion table.
type UnsupportedUnitError struct {
	Unit string
}

func (e *UnsupportedUnitError) Error() string {
	return fmt.Sprintf("unsupported unit %q", e.Unit)
}

func (e *UnsupportedUnitError) Is(target error) bool {
	return target == ErrUnsupportedUnit
}

// Parse normalizes a unit name: case-insensitive, underscores and spaces are
// interchangeable ("Decimal Degrees", "DECIMAL_DEGREES").
func Parse(s string) Unit {
	s = strings.ToUpper(strings.TrimSpace(s))
	return Unit(strings.ReplaceAll(s, "_", " "))
}

// Supported reports whether u is in the conversion table.
func (u Unit) Supported() bool {
	_, ok := inchesPer[Parse(string(u))]
	return ok
}

// IsPageUnit reports whether u may be used for page sizes and margins.
func (u Unit) IsPageUnit() bool {
	switch Parse(string(u)) {
	case Inches, Points, Millimeters, Centimeters:
		return true
	}
	return false
}

// Abbreviation returns the short form used in ground-size labels. Anything
// that is not a ground unit falls back to "inches".
func (u Unit) Abbreviation() string {
	switch Parse(string(u)) {
	case Meters:
		return "m"
	case Kilometers:
		return "km"
	case DecimalDegrees:
		return "degrees"
	default:
		return "inches"
	}
}

// Convert converts value between two supported units.
func Convert(value float64, from, to Unit) (float64, error) {
	if value == 0 {
		return 0, nil
	}
	f, t := Parse(string(from)), Parse(string(to))
	fromFactor, ok := inchesPer[f]
	if !ok {
		return 0, &UnsupportedUnitError{Unit: string(from)}
	}
	toFactor, ok := inchesPer[t]
	if !ok {
		return 0, &UnsupportedUnitError{Unit: string(to)}
	}
	if f == t {
		return value, nil
	}
	return value * fromFactor / toFactor, nil
}

// LegacyConvert reproduces the conversion of the legacy web client,
// unknown units included: an unknown source unit is read as millimeters and
// an unknown target unit multiplies the result by the source factor again.
// It never fails.
func LegacyConvert(logger *slog.Logger, value float64, from, to Unit) float64 {
	if value == 0 {
		return value
	}
	if logger == nil {
		logger = slog.Default()
	}
	f, t := Parse(string(from)), Parse(string(to))
	if f == t {
		return value
	}

	factor := inchesPerMillimeter
	switch f {
	case Inches:
		factor = 1
	case Centimeters:
		factor = inchesPerMillimeter * 10
	case Points:
		factor = 1 / 72.0
	default:
		logger.Warn("unsupported units conversion", "fromUnits", string(from))
	}

	result := value * factor

	switch t {
	case Inches:
		factor = 1
	case Centimeters:
		factor = 1 / (inchesPerMillimeter * 10)
	case Meters:
		factor = 1 / (inchesPerMillimeter * 1000)
	case Points:
		factor = 72.0
	default:
		logger.Warn("unsupported units conversion", "toUnits", string(to))
	}

	return result * factor
}

// Converter selects between the strict table and the legacy fallback.
type Converter struct {
	// Legacy switches to LegacyConvert; conversions then never fail.
	Legacy bool
	Logger *slog.Logger
}

// Convert converts value from one unit to another.
func (c Converter) Convert(value float64, from, to Unit) (float64, error) {
	if c.Legacy {
		return LegacyConvert(c.Logger, value, from, to), nil
	}
	return Convert(value, from, to)
}
