package page

import (
	"math"

	"github.com/joeblew999/plat-pod/internal/units"
)

// RoundScale rounds a computed scale for Scale products. A positive interval
// rounds up to the next multiple; otherwise the scale becomes the smallest
// available scale strictly larger than it (a smaller map scale, so the
// extent still fits). Without a larger candidate the scale is unchanged.
func RoundScale(scale, interval float64, available []float64) float64 {
	if interval > 0 {
		return math.Ceil(scale/interval) * interval
	}
	fit := math.Inf(1)
	for _, s := range available {
		if scale < s && s < fit {
			fit = s
		}
	}
	if math.IsInf(fit, 1) {
		return scale
	}
	return fit
}

// FitSize picks the smallest available page that contains want, for
// PageSize products. Candidates are page size values resolved in want's
// orientation and converted to want's units. Among containing pages a
// narrower page wins if it is also shorter, otherwise the smaller area wins.
// Values that cannot be resolved or converted are skipped.
func FitSize(conv units.Converter, want Size, available []string) (Size, bool) {
	orientation := string(Landscape)
	if want.Height > want.Width {
		orientation = string(Portrait)
	}

	fitW, fitH := math.Inf(1), math.Inf(1)
	for _, value := range available {
		p, err := ResolveSize(value, orientation)
		if err != nil {
			continue
		}
		if units.Parse(string(p.Units)) != units.Parse(string(want.Units)) {
			if p, err = p.In(conv, want.Units); err != nil {
				continue
			}
		}
		if p.Width < want.Width || p.Height < want.Height {
			continue
		}
		switch {
		case p.Width < fitW && p.Height < fitH:
			fitW, fitH = p.Width, p.Height
		case p.Width*p.Height < fitW*fitH:
			fitW, fitH = p.Width, p.Height
		}
	}
	if math.IsInf(fitW, 1) {
		return want, false
	}
	return Size{Width: fitW, Height: fitH, Units: want.Units}, true
}
