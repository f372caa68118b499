// Package geom rotates map product footprints and measures their upright
// extent.
//
// Angles are in degrees, counter-clockwise. A footprint's angle is the
// rotation that maps its upright (axis-aligned) form onto the footprint.
package geom

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// RotatePoint rotates p by angle degrees about center. A nil center leaves
// p where it is.
func RotatePoint(p orb.Point, angle float64, center *orb.Point) orb.Point {
	if center == nil || angle == 0 {
		return p
	}
	s, c := math.Sincos(angle * math.Pi / 180)
	vx, vy := p[0]-center[0], p[1]-center[1]
	return orb.Point{
		c*vx - s*vy + center[0],
		s*vx + c*vy + center[1],
	}
}

// RotateRing returns a rotated copy of r.
func RotateRing(r orb.Ring, angle float64, center *orb.Point) orb.Ring {
	out := make(orb.Ring, len(r))
	for i, p := range r {
		out[i] = RotatePoint(p, angle, center)
	}
	return out
}

// RotatePolygon returns a rotated copy of every ring of poly. Ring order and
// winding are kept.
func RotatePolygon(poly orb.Polygon, angle float64, center *orb.Point) orb.Polygon {
	out := make(orb.Polygon, len(poly))
	for i, r := range poly {
		out[i] = RotateRing(r, angle, center)
	}
	return out
}

// Trend is the direction metadata of footprints that come from an extent
// layer. It selects the half-turn the footprint angle is folded into.
type Trend string

const (
	TrendWENS Trend = "WE_NS"
	TrendEWNS Trend = "EW_NS"
	TrendEWSN Trend = "EW_SN"
	TrendWESN Trend = "WE_SN"
)

// Start returns the lower bound of the [start, start+180) range angles of
// this trend are folded into. Unknown trends fold like WE_SN.
func (t Trend) Start() float64 {
	switch t {
	case TrendWENS:
		return -120
	case TrendEWNS:
		return 120
	case TrendEWSN:
		return 60
	default:
		return -60
	}
}

// Fold brings angle into [t.Start(), t.Start()+180).
func (t Trend) Fold(angle float64) float64 {
	start := t.Start()
	for angle < start {
		angle += 360
	}
	for angle >= start+360 {
		angle -= 360
	}
	if angle >= start+180 {
		angle -= 180
	}
	return angle
}

// Footprint is the ground polygon a product page is built around, with the
// orientation metadata an extent layer may carry.
type Footprint struct {
	Polygon orb.Polygon `json:"polygon"`
	// Angle overrides the computed angle when Direction is empty.
	Angle *float64 `json:"angle,omitempty"`
	// Direction folds the computed angle into the trend's range. It only
	// applies together with Angle.
	Direction Trend `json:"direction,omitempty"`
}

// Exterior returns the outer ring, or nil for an empty footprint.
func (f Footprint) Exterior() orb.Ring {
	if len(f.Polygon) == 0 {
		return nil
	}
	return f.Polygon[0]
}

// Upright is the footprint measured in its own rotated frame.
type Upright struct {
	// Extent is the axis-aligned bound of the footprint rotated by -Angle
	// about Centroid.
	Extent   orb.Bound `json:"extent"`
	Angle    float64   `json:"angle"`
	Centroid orb.Point `json:"centroid"`
}

// Centroid returns the area centroid of poly, falling back to the center of
// its bound when the polygon has no area.
func Centroid(poly orb.Polygon) orb.Point {
	c, area := planar.CentroidArea(poly)
	if area == 0 || math.IsNaN(c[0]) || math.IsNaN(c[1]) {
		return poly.Bound().Center()
	}
	return c
}

// EdgeAngle returns the angle of the first edge of r measured from the
// y axis, the rotation of a quad whose first edge runs north in upright form.
func EdgeAngle(r orb.Ring) float64 {
	if len(r) < 2 {
		return 0
	}
	dx, dy := r[1][0]-r[0][0], r[1][1]-r[0][1]
	return math.Atan2(dy, dx)*180/math.Pi - 90
}

// UprightExtent computes the angle, centroid and upright extent of a
// footprint. Anything that is not a quad (rings of more than four distinct
// vertices) keeps angle 0 and its raw bound. The footprint is not modified.
func UprightExtent(fp Footprint) Upright {
	ring := fp.Exterior()
	c := Centroid(fp.Polygon)
	if vertices(ring) > 4 || len(ring) < 2 {
		return Upright{Extent: fp.Polygon.Bound(), Centroid: c}
	}

	angle := EdgeAngle(ring)
	if fp.Angle != nil {
		if fp.Direction == "" {
			angle = *fp.Angle
		} else {
			angle = fp.Direction.Fold(angle + 90)
		}
	}

	return Upright{
		Extent:   RotateRing(ring, -angle, &c).Bound(),
		Angle:    angle,
		Centroid: c,
	}
}

// vertices counts the corners of r, not repeating the closing point.
func vertices(r orb.Ring) int {
	if len(r) > 1 && r.Closed() {
		return len(r) - 1
	}
	return len(r)
}

// FeatureAngle converts an extent-layer Angle attribute (degrees clockwise
// from north) to a footprint angle.
func FeatureAngle(northAngle float64) float64 {
	return 90 - northAngle
}
