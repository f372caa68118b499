package page

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/joeblew999/plat-pod/internal/units"
)

// ErrInvalidPageSize is returned for page size values that are neither a
// standard size nor a "<width> <height> <units>" custom size.
var ErrInvalidPageSize = errors.New("invalid page size")

// Orientation of a page.
type Orientation string

const (
	Portrait  Orientation = "PORTRAIT"
	Landscape Orientation = "LANDSCAPE"
)

// ParseOrientation normalizes an orientation value. Unknown values give "".
func ParseOrientation(s string) Orientation {
	switch o := Orientation(strings.ToUpper(strings.TrimSpace(s))); o {
	case Portrait, Landscape:
		return o
	}
	return ""
}

// Size is a page size.
type Size struct {
	Width  float64    `json:"width"`
	Height float64    `json:"height"`
	Units  units.Unit `json:"units"`
}

// Orientation reports the orientation the size is drawn in.
func (s Size) Orientation() Orientation {
	if s.Width > s.Height {
		return Landscape
	}
	return Portrait
}

// Oriented returns s with width and height swapped if they disagree with o.
func (s Size) Oriented(o Orientation) Size {
	if (o == Landscape && s.Width < s.Height) || (o == Portrait && s.Width > s.Height) {
		s.Width, s.Height = s.Height, s.Width
	}
	return s
}

// In returns the size converted to u.
func (s Size) In(conv units.Converter, u units.Unit) (Size, error) {
	w, err := conv.Convert(s.Width, s.Units, u)
	if err != nil {
		return Size{}, err
	}
	h, err := conv.Convert(s.Height, s.Units, u)
	if err != nil {
		return Size{}, err
	}
	return Size{Width: w, Height: h, Units: u}, nil
}

// Value formats s the way custom sizes are stored in a catalog:
// "<width> <height> <UNITS>", dimensions rounded to two decimals.
func (s Size) Value() string {
	return FormatNumber(s.Width) + " " + FormatNumber(s.Height) + " " + string(s.Units)
}

// FormatNumber rounds v to two decimals and drops trailing zeros.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(roundTo(v, 100), 'f', -1, 64)
}

func roundTo(v, scale float64) float64 {
	r := v * scale
	if r < 0 {
		r -= 0.5
	} else {
		r += 0.5
	}
	return float64(int64(r)) / scale
}

// standardSizes holds portrait dimensions in inches.
var standardSizes = map[string][2]float64{
	"LETTER":  {8.5, 11},
	"LEGAL":   {8.5, 14},
	"TABLOID": {11, 17},
	"A5":      {5.83, 8.27},
	"A4":      {8.27, 11.69},
	"A3":      {11.69, 16.54},
	"A2":      {16.54, 23.39},
	"A1":      {23.39, 33.11},
	"A0":      {33.11, 46.8},
	"C":       {17, 22},
	"D":       {22, 34},
	"E":       {34, 44},
}

// standardName maps a page size value to its standard size key.
func standardName(value string) (string, bool) {
	v := strings.ToUpper(strings.TrimSpace(value))
	v = strings.TrimPrefix(v, "ANSI ")
	_, ok := standardSizes[v]
	return v, ok
}

// IsStandard reports whether value names a standard page size.
func IsStandard(value string) bool {
	_, ok := standardName(value)
	return ok
}

// ResolveSize turns a page size value and an orientation into concrete
// dimensions. Standard sizes (A0-A5, Letter, Legal, Tabloid, ANSI C/D/E) are
// stored portrait and swapped for landscape. Custom sizes "<w> <h> <units>"
// are swapped only when they disagree with the requested orientation.
func ResolveSize(value string, orientation string) (Size, error) {
	o := ParseOrientation(orientation)
	if name, ok := standardName(value); ok {
		dims := standardSizes[name]
		s := Size{Width: dims[0], Height: dims[1], Units: units.Inches}
		if o == Landscape {
			s.Width, s.Height = s.Height, s.Width
		}
		return s, nil
	}

	s, err := ParseCustomSize(value)
	if err != nil {
		return Size{}, err
	}
	return s.Oriented(o), nil
}

// ParseCustomSize parses a "<width> <height> <units>" page size.
func ParseCustomSize(value string) (Size, error) {
	parts := strings.Fields(strings.ToUpper(value))
	if len(parts) != 3 {
		return Size{}, fmt.Errorf("%w: %q", ErrInvalidPageSize, value)
	}
	w, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return Size{}, fmt.Errorf("%w: width %q", ErrInvalidPageSize, parts[0])
	}
	h, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return Size{}, fmt.Errorf("%w: height %q", ErrInvalidPageSize, parts[1])
	}
	return Size{Width: w, Height: h, Units: units.Parse(parts[2])}, nil
}

// FormatValue formats a page size value and orientation for the export
// service: "LETTER PORTRAIT" for standard sizes, "CUSTOM <ORIENTATION> <w> <h>
// <UNITS>" for custom ones, dimensions swapped to match the orientation. An
// empty orientation reads as PORTRAIT.
func FormatValue(value, orientation string) string {
	ps := strings.ToUpper(strings.TrimSpace(value))
	o := strings.ToUpper(strings.TrimSpace(orientation))
	if o == "" {
		o = string(Portrait)
	}
	parts := strings.Fields(ps)
	if len(parts) <= 1 {
		return ps + " " + o
	}

	out := "CUSTOM " + o
	if len(parts) < 3 {
		return out + " " + ps
	}
	w, _ := strconv.ParseFloat(parts[0], 64)
	h, _ := strconv.ParseFloat(parts[1], 64)
	if (o == string(Portrait) && w > h) || (o == string(Landscape) && w < h) {
		return out + " " + parts[1] + " " + parts[0] + " " + parts[2]
	}
	return out + " " + ps
}
