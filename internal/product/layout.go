package product

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joeblew999/plat-pod/internal/catalog"
	"github.com/joeblew999/plat-pod/internal/geom"
	"github.com/joeblew999/plat-pod/internal/page"
	"github.com/joeblew999/plat-pod/internal/pageextent"
	"github.com/joeblew999/plat-pod/internal/units"
)

// SetFootprint places a drawn product.
func (p *Product) SetFootprint(fp geom.Footprint) {
	p.Footprint = fp
	p.Layout = nil
}

// PageSizeValue returns the page size value of p as a resolvable string.
// Domain entries that give dimensions are written as "<w> <h> <UNITS>",
// with a missing height taken from the width.
func (f *Factory) PageSizeValue(p *Product) string {
	a, ok := p.Attributes.Get(string(catalog.AttrPageSize))
	if !ok {
		return ""
	}
	value := p.Text(catalog.AttrPageSize)
	d, ok := f.catalog.Domain(a.DomainName())
	if !ok {
		return value
	}
	for _, e := range d.Entries {
		if e.Value().Text() != value {
			continue
		}
		w := e["width"]
		if w.Blank() {
			return value
		}
		h := e["height"]
		if h.Blank() {
			h = w
		}
		out := w.Text() + " " + h.Text()
		if u := e.Text("units"); u != "" {
			out += " " + strings.ToUpper(u)
		}
		return out
	}
	return value
}

// FormatPageSize returns the page size as the export service reads it.
// Products without a pageSize attribute export as "A4 PORTRAIT".
func (p *Product) FormatPageSize() string {
	if _, ok := p.Attributes.Get(string(catalog.AttrPageSize)); !ok {
		return "A4 " + string(page.Portrait)
	}
	return page.FormatValue(p.Text(catalog.AttrPageSize), p.Text(catalog.AttrOrientation))
}

// LayoutInput collects the values the page layout of p depends on.
func (f *Factory) LayoutInput(p *Product) (pageextent.Input, error) {
	in := pageextent.Input{
		Footprint:          p.Footprint,
		Scale:              p.Number(catalog.AttrScale),
		Width:              p.Number(catalog.AttrWidth),
		Height:             p.Number(catalog.AttrHeight),
		Units:              units.Parse(p.Text(catalog.AttrUnits)),
		CalculatedPageSize: p.CalculatedPageSize,
	}

	if p.PageSize != nil {
		in.PageSize = *p.PageSize
	} else {
		size, err := page.ResolveSize(f.PageSizeValue(p), p.Text(catalog.AttrOrientation))
		if err != nil {
			return in, fmt.Errorf("%s: %w", p.Name, err)
		}
		in.PageSize = size
	}

	margin, err := page.ParseMargin(p.Text(catalog.AttrPageMargin))
	if errors.Is(err, page.ErrTooManyMarginValues) {
		f.log.Warn("page margin ignored", "product", p.Name, "margin", p.Text(catalog.AttrPageMargin), "error", err)
	}
	in.Margin = margin
	return in, nil
}

// Layout lays out the page of p and stores the result on it.
func (f *Factory) Layout(p *Product) (pageextent.Result, error) {
	in, err := f.LayoutInput(p)
	if err != nil {
		return pageextent.Result{}, err
	}
	res, err := f.calc.Layout(in)
	if err != nil {
		return pageextent.Result{}, fmt.Errorf("layout %s: %w", p.Name, err)
	}
	p.ApplyLayout(res)
	return res, nil
}

// ApplyLayout stores a layout on p: the angle, and the units, width and
// height the layout defaulted or filled in.
func (p *Product) ApplyLayout(res pageextent.Result) {
	if res.UnitsDefaulted {
		p.SetValue(catalog.AttrUnits, catalog.StringValue(string(res.Units)))
	}
	if res.WidthFilled {
		p.SetValue(catalog.AttrWidth, catalog.NumberValue(res.Width))
	}
	if res.HeightFilled {
		p.SetValue(catalog.AttrHeight, catalog.NumberValue(res.Height))
	}
	p.SetValue(catalog.AttrAngle, catalog.NumberValue(res.Angle))
	p.Layout = &res
}

// roundInterval reads roundToNearest: a positive number is an interval,
// any other truthy value rounds to the available values.
func (p *Product) roundInterval() (interval float64, round bool) {
	v := p.Value(catalog.AttrRoundToNearest)
	if !v.Truthy() {
		return 0, false
	}
	n, _ := v.Num()
	return n, true
}

// available lists the values an attribute may take: its filter, or else
// the values of its domain.
func (f *Factory) available(p *Product, attr catalog.AttributeName) []catalog.Value {
	a, ok := p.Attributes.Get(string(attr))
	if !ok {
		return nil
	}
	if a.Filter != nil {
		return a.Filter
	}
	if d, ok := f.catalog.Domain(a.DomainName()); ok {
		return d.Values()
	}
	f.log.Debug("nothing to round to", "product", p.Name, "attr", attr)
	return nil
}

// ApplyScale stores a scale computed for a Scale product. When the product
// rounds, a numeric interval rounds up to its next multiple and any other
// setting picks the next smaller map scale the product offers.
func (f *Factory) ApplyScale(p *Product, scale float64) float64 {
	if interval, ok := p.roundInterval(); ok {
		var avail []float64
		if interval <= 0 {
			for _, v := range f.available(p, catalog.AttrScale) {
				if n, ok := numeric(v); ok {
					avail = append(avail, n)
				}
			}
		}
		scale = page.RoundScale(scale, interval, avail)
	}
	p.SetValue(catalog.AttrScale, catalog.NumberValue(scale))
	p.Layout = nil
	return scale
}

// ApplyPageSize stores a page size computed for a PageSize product. When
// the product rounds, the computed size is kept as CalculatedPageSize and
// the smallest available page containing it becomes the page size.
func (f *Factory) ApplyPageSize(p *Product, size page.Size) page.Size {
	if _, ok := p.roundInterval(); ok {
		calc := size
		p.CalculatedPageSize = &calc

		var avail []string
		for _, v := range f.available(p, catalog.AttrPageSize) {
			avail = append(avail, v.Text())
		}
		if fit, ok := page.FitSize(f.calc.Conv, size, avail); ok {
			size = fit
		}
	}
	p.PageSize = &size
	p.SetValue(catalog.AttrPageSize, catalog.StringValue(size.Value()))
	p.SetValue(catalog.AttrOrientation, catalog.StringValue(string(size.Orientation())))
	p.Layout = nil
	return size
}

func numeric(v catalog.Value) (float64, bool) {
	if n, ok := v.Num(); ok {
		return n, true
	}
	var n float64
	if _, err := fmt.Sscan(v.Text(), &n); err != nil {
		return 0, false
	}
	return n, true
}
