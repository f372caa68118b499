package product

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-pod/internal/catalog"
)

// Export options.
const (
	OptionPreview = "Preview"
	OptionExport  = "Export"
)

// maxNameLength bounds custom export names.
const maxNameLength = 64

// DataFrame returns the polygon the map is drawn into: the clipped data
// frame of the last layout, or the footprint when p has not been laid out.
func (p *Product) DataFrame() orb.Polygon {
	if p.Layout != nil && len(p.Layout.DataFrame) > 0 {
		return p.Layout.DataFrame
	}
	return p.Footprint.Polygon
}

// ExportParams returns the parameters of one export request: every
// attribute passed to the server, keyed by name. The geometry is the data
// frame as GeoJSON, exportOption is option, pageSize is formatted for the
// service, and missing values are sent as "".
func (p *Product) ExportParams(option string) map[string]any {
	params := make(map[string]any)
	for _, a := range p.Passed() {
		var v any
		switch a.Name() {
		case catalog.AttrGeometry:
			if df := p.DataFrame(); len(df) > 0 {
				v = geojson.NewGeometry(df)
			}
		case catalog.AttrExportOption:
			v = option
		case catalog.AttrPageSize:
			v = p.FormatPageSize()
		default:
			v = a.Value.Raw()
		}
		if v == nil {
			v = ""
		}
		params[a.Attr] = v
	}
	return params
}

// ExportString is ExportParams encoded as JSON.
func (p *Product) ExportString(option string) (string, error) {
	b, err := json.Marshal(p.ExportParams(option))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ExportName is the name a product is exported under, with the checks the
// export service needs to succeed.
type ExportName struct {
	ID           uuid.UUID `json:"uuid"`
	ProductName  string    `json:"productName"`
	MapSheetName string    `json:"mapSheetName"`
	CustomName   string    `json:"customName"`
	Valid        bool      `json:"valid"`
	Duplicate    bool      `json:"duplicate"`
}

var nameReserved = regexp.MustCompile(`[!?@#$%^&*()+={}\[\]|\\;'"<>,./]`)

// ValidCustomName reports whether name can be used as an export name
// as-is: no reserved characters, no surrounding space, at most 64
// characters.
func ValidCustomName(name string) bool {
	fixed := strings.TrimSpace(nameReserved.ReplaceAllString(name, ""))
	return fixed == name && len(name) <= maxNameLength
}

// ExportNames checks the names of products exported together. A product
// is invalid without a map sheet name or with an unusable custom name. It
// is a duplicate when its map sheet or custom name collides with an
// earlier product's.
func ExportNames(products []*Product) []ExportName {
	out := make([]ExportName, 0, len(products))
	for _, p := range products {
		n := ExportName{
			ID:           p.ID,
			ProductName:  p.Name,
			MapSheetName: p.Text(catalog.AttrMapSheetName),
			CustomName:   strings.TrimSpace(p.Text(catalog.AttrCustomName)),
		}
		n.Valid = n.MapSheetName != "" && ValidCustomName(n.CustomName)
		for _, prev := range out {
			switch {
			case n.MapSheetName == prev.MapSheetName,
				n.CustomName == prev.MapSheetName,
				n.MapSheetName == prev.CustomName,
				n.CustomName != "" && n.CustomName == prev.CustomName:
				n.Duplicate = true
			}
		}
		out = append(out, n)
	}
	return out
}
