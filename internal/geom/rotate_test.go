package geom

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

func rect(xmin, ymin, xmax, ymax float64) orb.Polygon {
	return orb.Polygon{{
		{xmin, ymin}, {xmin, ymax}, {xmax, ymax}, {xmax, ymin}, {xmin, ymin},
	}}
}

func TestRotatePointNilCenter(t *testing.T) {
	p := orb.Point{3, 4}
	assert.Equal(t, p, RotatePoint(p, 45, nil))
}

func TestRotatePointQuarterTurn(t *testing.T) {
	c := orb.Point{1, 1}
	got := RotatePoint(orb.Point{2, 1}, 90, &c)
	if diff := cmp.Diff(orb.Point{1, 2}, got, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("RotatePoint mismatch (-want +got):\n%s", diff)
	}
}

func TestRotatePolygonRoundTrip(t *testing.T) {
	poly := orb.Polygon{
		{{0, 0}, {1, 7}, {9, 8}, {12, -3}, {0, 0}},
		{{2, 1}, {3, 2}, {4, 1}, {2, 1}},
	}
	c := orb.Point{4.5, 2.25}
	for _, angle := range []float64{-270, -33.3, 0.5, 45, 90, 179.9, 360, 1234} {
		back := RotatePolygon(RotatePolygon(poly, angle, &c), -angle, &c)
		if diff := cmp.Diff(poly, back, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
			t.Errorf("angle %v: round trip mismatch (-want +got):\n%s", angle, diff)
		}
	}
}

func TestRotatePolygonCopies(t *testing.T) {
	poly := rect(0, 0, 10, 10)
	c := orb.Point{5, 5}
	_ = RotatePolygon(poly, 30, &c)
	assert.Equal(t, rect(0, 0, 10, 10), poly)
}

func TestUprightExtentExplicitZero(t *testing.T) {
	zero := 0.0
	fp := Footprint{Polygon: rect(2, 3, 12, 8), Angle: &zero}
	got := UprightExtent(fp)
	assert.Equal(t, orb.Bound{Min: orb.Point{2, 3}, Max: orb.Point{12, 8}}, got.Extent)
	assert.Equal(t, 0.0, got.Angle)
	assert.Equal(t, rect(2, 3, 12, 8), fp.Polygon)
}

func TestUprightExtentComputedAngle(t *testing.T) {
	c := orb.Point{10, 5}
	fp := Footprint{Polygon: RotatePolygon(rect(0, 0, 20, 10), 30, &c)}

	got := UprightExtent(fp)
	assert.InDelta(t, 30, got.Angle, 1e-9)
	assert.InDelta(t, 10, got.Centroid[0], 1e-9)
	assert.InDelta(t, 5, got.Centroid[1], 1e-9)

	want := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{20, 10}}
	if diff := cmp.Diff(want, got.Extent, approx); diff != "" {
		t.Errorf("extent mismatch (-want +got):\n%s", diff)
	}
}

func TestUprightExtentNotAQuad(t *testing.T) {
	poly := orb.Polygon{{{0, 0}, {0, 4}, {2, 6}, {4, 4}, {4, 0}, {0, 0}}}
	got := UprightExtent(Footprint{Polygon: poly})
	assert.Equal(t, 0.0, got.Angle)
	assert.Equal(t, poly.Bound(), got.Extent)
}

func TestUprightExtentOpenRings(t *testing.T) {
	// five distinct corners without a closing point
	pentagon := orb.Polygon{{{0, 0}, {1, 4}, {3, 6}, {5, 4}, {4, 0}}}
	got := UprightExtent(Footprint{Polygon: pentagon})
	assert.Equal(t, 0.0, got.Angle)
	assert.Equal(t, pentagon.Bound(), got.Extent)

	c := orb.Point{10, 5}
	quad := RotatePolygon(rect(0, 0, 20, 10), 30, &c)
	quad[0] = quad[0][:4]
	got = UprightExtent(Footprint{Polygon: quad})
	assert.InDelta(t, 30, got.Angle, 1e-9)
}

func TestUprightExtentDirection(t *testing.T) {
	c := orb.Point{10, 5}
	angle := 0.0
	fp := Footprint{
		Polygon:   RotatePolygon(rect(0, 0, 20, 10), 30, &c),
		Angle:     &angle,
		Direction: TrendWENS,
	}
	got := UprightExtent(fp)
	// 30 + 90 folded into [-120, 60).
	assert.InDelta(t, -60, got.Angle, 1e-9)

	want := orb.Bound{Min: orb.Point{5, -5}, Max: orb.Point{15, 15}}
	if diff := cmp.Diff(want, got.Extent, approx); diff != "" {
		t.Errorf("extent mismatch (-want +got):\n%s", diff)
	}
}

func TestTrendFold(t *testing.T) {
	tests := []struct {
		trend Trend
		in    float64
		want  float64
	}{
		{TrendWENS, 120, -60},
		{TrendWENS, -150, 30},
		{TrendEWNS, 0, 180},
		{TrendEWNS, 300, 120},
		{TrendEWSN, 0, 180},
		{TrendWESN, 0, 0},
		{"", 130, -50},
		{TrendWESN, 900, 0},
	}
	for _, tt := range tests {
		got := tt.trend.Fold(tt.in)
		assert.InDelta(t, tt.want, got, 1e-9, "%s fold %v", tt.trend, tt.in)
		start := tt.trend.Start()
		assert.True(t, got >= start && got < start+180, "%v outside [%v, %v)", got, start, start+180)
	}
}

func TestFeatureAngle(t *testing.T) {
	assert.Equal(t, 90.0, FeatureAngle(0))
	assert.Equal(t, 0.0, FeatureAngle(90))
	assert.Equal(t, -45.0, FeatureAngle(135))
}
