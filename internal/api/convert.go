package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-pod/internal/geom"
	"github.com/joeblew999/plat-pod/internal/page"
	"github.com/joeblew999/plat-pod/internal/pageextent"
	"github.com/joeblew999/plat-pod/internal/service"
	"github.com/joeblew999/plat-pod/internal/units"
)

func (p Polygon) toOrb() orb.Polygon {
	poly := make(orb.Polygon, 0, len(p))
	for _, ring := range p {
		r := make(orb.Ring, len(ring))
		for i, pt := range ring {
			r[i] = orb.Point(pt)
		}
		poly = append(poly, r)
	}
	return poly
}

// Input turns a layout request into calculator input. A margin with too
// many values is used as parsed, like the catalog's margins are.
func (b LayoutBody) Input() (pageextent.Input, error) {
	fp := geom.Footprint{Polygon: b.Polygon.toOrb()}
	if b.Angle != nil {
		a := geom.FeatureAngle(*b.Angle)
		fp.Angle = &a
	}
	if d := strings.TrimSpace(b.Direction); d != "" {
		fp.Direction = geom.Trend(strings.ToUpper(d))
	}

	size, err := page.ResolveSize(b.PageSize, b.Orientation)
	if err != nil {
		return pageextent.Input{}, fmt.Errorf("page size %q: %w", b.PageSize, err)
	}
	margin, err := page.ParseMargin(b.PageMargin)
	if err != nil && !errors.Is(err, page.ErrTooManyMarginValues) {
		return pageextent.Input{}, err
	}

	return pageextent.Input{
		Footprint: fp,
		Scale:     b.Scale,
		Width:     b.Width,
		Height:    b.Height,
		Units:     units.Parse(b.Units),
		PageSize:  size,
		Margin:    margin,
	}, nil
}

func addRequest(b AddBody) (service.AddRequest, error) {
	req := service.AddRequest{
		Product: b.Product,
		Custom:  b.Custom,
		Values:  b.Values,
		Scale:   b.Scale,
	}
	if len(b.Polygon) > 0 {
		feat := geojson.NewFeature(b.Polygon.toOrb())
		for k, v := range b.Properties {
			feat.Properties[k] = v
		}
		req.Feature = feat
	}
	if b.PageSize != nil {
		u := units.Parse(b.PageSize.Units)
		if !u.IsPageUnit() {
			return req, &units.UnsupportedUnitError{Unit: b.PageSize.Units}
		}
		req.PageSize = &page.Size{Width: b.PageSize.Width, Height: b.PageSize.Height, Units: u}
	}
	return req, nil
}
