// Package product builds map products from a catalog. A Template is what
// the catalog offers; a Product is one instance of it placed on the map,
// with its own footprint, attribute values and page layout.
package product

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-pod/internal/catalog"
	"github.com/joeblew999/plat-pod/internal/geom"
	"github.com/joeblew999/plat-pod/internal/page"
	"github.com/joeblew999/plat-pod/internal/pageextent"
	"github.com/joeblew999/plat-pod/internal/units"
)

// Product types.
const (
	TypeFixed    = "Fixed"
	TypeArea     = "Area"
	TypeScale    = "Scale"
	TypePageSize = "PageSize"
)

// ErrUnknownProduct is returned when a template name matches nothing.
var ErrUnknownProduct = errors.New("unknown product")

// ErrNoFootprint is returned when a feature carries no polygon.
var ErrNoFootprint = errors.New("feature has no polygon footprint")

// Template is a product as the catalog defines it: the base product table
// merged with the product's own table.
type Template struct {
	Name          string        `json:"name"`
	Type          string        `json:"type"`
	AttrTable     string        `json:"attrTable"`
	InstanceTable string        `json:"instanceTable,omitempty"`
	Attributes    catalog.Table `json:"attributes"`
}

// Product is an instantiated template.
type Product struct {
	ID         uuid.UUID     `json:"uuid"`
	Name       string        `json:"productName"`
	Type       string        `json:"type"`
	Template   string        `json:"template"`
	IsCustom   bool          `json:"isCustom"`
	Attributes catalog.Table `json:"attributes"`

	Footprint geom.Footprint `json:"footprint"`
	// PageSize is the rounded page of PageSize products, overriding the
	// pageSize attribute for layout.
	PageSize           *page.Size         `json:"pageSize,omitempty"`
	CalculatedPageSize *page.Size         `json:"calculatedPageSize,omitempty"`
	Layout             *pageextent.Result `json:"layout,omitempty"`
}

// Value returns the value of attr.
func (p *Product) Value(attr catalog.AttributeName) catalog.Value {
	return p.Attributes.Value(string(attr))
}

// Text returns the value of attr as text, "" when missing or blank.
func (p *Product) Text(attr catalog.AttributeName) string {
	return p.Attributes.Text(string(attr))
}

// Number returns a numeric attribute, 0 when it is not a number.
func (p *Product) Number(attr catalog.AttributeName) float64 {
	n, _ := p.Value(attr).Num()
	return n
}

// SetValue sets the value of an existing attribute. The product name and
// type are fixed at instantiation; setting them reports false, as does
// setting an attribute the product does not have.
func (p *Product) SetValue(attr catalog.AttributeName, v catalog.Value) bool {
	switch attr {
	case catalog.AttrProductName, catalog.AttrType:
		return false
	}
	return p.Attributes.SetValue(string(attr), v)
}

// Displayed returns the attributes shown to users.
func (p *Product) Displayed() catalog.Table { return p.Attributes.Displayed() }

// Passed returns the attributes sent to the export service.
func (p *Product) Passed() catalog.Table { return p.Attributes.Passed() }

// Factory creates products from a catalog.
type Factory struct {
	catalog *catalog.Catalog
	calc    pageextent.Calculator
	log     *slog.Logger

	mu       sync.Mutex
	counters map[string]int
}

// NewFactory returns a factory for c. A nil logger uses slog.Default.
func NewFactory(c *catalog.Catalog, conv units.Converter, logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{
		catalog:  c,
		calc:     pageextent.Calculator{Conv: conv, Logger: logger},
		log:      logger,
		counters: make(map[string]int),
	}
}

// Catalog returns the factory's catalog.
func (f *Factory) Catalog() *catalog.Catalog { return f.catalog }

// Templates returns every product the catalog defines, in definition order.
func (f *Factory) Templates() ([]Template, error) {
	base, err := f.catalog.RequireTable(catalog.BaseProductTable)
	if err != nil {
		return nil, err
	}
	defs := f.catalog.ProductDefinitions()
	out := make([]Template, 0, len(defs))
	for _, def := range defs {
		prod, err := f.catalog.RequireTable(def.AttrTable)
		if err != nil {
			return nil, err
		}
		attrs := catalog.MergeTables(base, prod)
		name := attrs.Text(string(catalog.AttrProductName))
		if name == "" {
			return nil, fmt.Errorf("%s: product has no %s", def.AttrTable, catalog.AttrProductName)
		}
		out = append(out, Template{
			Name:          name,
			Type:          attrs.Text(string(catalog.AttrType)),
			AttrTable:     def.AttrTable,
			InstanceTable: def.InstanceTable,
			Attributes:    attrs,
		})
	}
	return out, nil
}

// Template returns the template whose product name or attribute table
// is name, compared case-insensitively.
func (f *Factory) Template(name string) (Template, error) {
	ts, err := f.Templates()
	if err != nil {
		return Template{}, err
	}
	for _, t := range ts {
		if strings.EqualFold(t.Name, name) || strings.EqualFold(t.AttrTable, name) {
			return t, nil
		}
	}
	return Template{}, fmt.Errorf("%w: %s", ErrUnknownProduct, name)
}

// Instantiate creates a product from t. The base instance table and the
// product's instance table are merged in. A feature, when given, supplies
// the footprint and the values of attributes with a source. Custom
// products are numbered per product type into their map sheet name.
func (f *Factory) Instantiate(t Template, isCustom bool, feature *geojson.Feature) (*Product, error) {
	p := &Product{
		ID:         uuid.New(),
		Name:       t.Name,
		Type:       t.Type,
		Template:   t.AttrTable,
		IsCustom:   isCustom,
		Attributes: t.Attributes.Clone(),
	}
	if inst, ok := f.catalog.Table(catalog.BaseProductInstanceTable); ok {
		p.Attributes = catalog.MergeTables(p.Attributes, inst)
	}
	if t.InstanceTable != "" {
		if inst, ok := f.catalog.Table(t.InstanceTable); ok {
			p.Attributes = catalog.MergeTables(p.Attributes, inst)
		}
	}

	if feature != nil {
		if err := f.ApplyFeature(p, feature); err != nil {
			return nil, err
		}
	}

	if isCustom {
		if _, ok := p.Attributes.Get(string(catalog.AttrMapSheetName)); ok {
			f.mu.Lock()
			n := f.counters[p.Type]
			f.counters[p.Type]++
			f.mu.Unlock()
			p.Attributes.SetValue(string(catalog.AttrMapSheetName), catalog.StringValue(fmt.Sprintf("%s_%d", p.Name, n)))
		}
	}
	return p, nil
}

// ApplyFeature takes the footprint of an extent layer feature and copies
// the feature's values into attributes with a source. The source names a
// key of the product's extent layer entry, which maps to a feature field.
// The feature's Angle (degrees from north) and Direction become the
// footprint's orientation metadata.
func (f *Factory) ApplyFeature(p *Product, feature *geojson.Feature) error {
	fp, err := FootprintOf(feature)
	if err != nil {
		return err
	}
	p.Footprint = fp

	layer, ok := f.extentLayer(p)
	if !ok {
		return nil
	}
	for _, a := range p.Attributes {
		if a.SourceField() == "" {
			continue
		}
		field := layer.Text(a.SourceField())
		if strings.TrimSpace(field) == "" {
			continue
		}
		v := catalog.ValueOf(feature.Properties[field])
		if v.Kind() == catalog.Null {
			v = catalog.StringValue("")
		}
		p.SetValue(a.Name(), v)
	}
	return nil
}

// FootprintOf reads the footprint of a feature: its polygon, or the first
// polygon of a multipolygon.
func FootprintOf(feature *geojson.Feature) (geom.Footprint, error) {
	var fp geom.Footprint
	switch g := feature.Geometry.(type) {
	case orb.Polygon:
		fp.Polygon = g
	case orb.MultiPolygon:
		if len(g) == 0 {
			return fp, ErrNoFootprint
		}
		fp.Polygon = g[0]
	case orb.Bound:
		fp.Polygon = g.ToPolygon()
	default:
		return fp, ErrNoFootprint
	}
	if a, ok := feature.Properties["Angle"].(float64); ok {
		angle := geom.FeatureAngle(a)
		fp.Angle = &angle
	}
	if d, ok := feature.Properties["Direction"].(string); ok {
		fp.Direction = geom.Trend(strings.ToUpper(strings.TrimSpace(d)))
	}
	return fp, nil
}

// extentLayer returns the entry of the product's extent layer in the
// source domain of its product type.
func (f *Factory) extentLayer(p *Product) (catalog.Entry, bool) {
	name := p.Value(catalog.AttrExtentLayer)
	if name.Blank() {
		return nil, false
	}
	typ, _ := p.Attributes.Get(string(catalog.AttrType))
	types, ok := f.catalog.Domain(typ.DomainName())
	if !ok {
		return nil, false
	}
	entry, ok := types.Lookup(catalog.StringValue(p.Type))
	if !ok {
		return nil, false
	}
	layers, ok := f.catalog.Domain(entry.Text("source"))
	if !ok {
		return nil, false
	}
	for _, l := range layers.Entries {
		if l.Value().Equal(name) {
			return l, true
		}
	}
	return nil, false
}
