// Package pageextent lays a printed page out around a product footprint.
//
// Given the footprint of a data frame and the product's scale, page size and
// margins, Layout derives the upright extent of the footprint, the ground
// distance from each data frame edge to the page edge, the dimension labels
// and the page outline polygons. Everything is returned in the footprint's
// coordinate system; nothing is drawn here.
package pageextent

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-pod/internal/geom"
	"github.com/joeblew999/plat-pod/internal/page"
	"github.com/joeblew999/plat-pod/internal/units"
)

// ErrDegenerateGeometry is matched by every *DegenerateGeometryError.
var ErrDegenerateGeometry = errors.New("degenerate geometry")

// DegenerateGeometryError reports a footprint or page that cannot be laid
// out: an empty footprint, a zero or non-finite extent, or margins that
// leave no room on the page.
type DegenerateGeometryError struct {
	Reason string
	Width  float64
	Height float64
}

func (e *DegenerateGeometryError) Error() string {
	return fmt.Sprintf("degenerate geometry: %s (%g x %g)", e.Reason, e.Width, e.Height)
}

func (e *DegenerateGeometryError) Is(target error) bool {
	return target == ErrDegenerateGeometry
}

// cornerRatio sizes the folded page corner relative to the shorter page side.
const cornerRatio = 0.2

// labelGap is the distance of labels from the edge they describe, relative
// to the shorter extent side.
const labelGap = 0.05

// Input holds the product values a layout depends on.
type Input struct {
	Footprint geom.Footprint
	Scale     float64
	// Width and Height are the ground size of the data frame. Zero means
	// unset; Layout fills them from the page size.
	Width  float64
	Height float64
	// Units of the ground measurements. Empty means METERS.
	Units units.Unit
	// PageSize is the nominal page, already oriented.
	PageSize page.Size
	// CalculatedPageSize is the unrounded page size of PageSize products.
	// When set, it replaces PageSize for the reference scale and the
	// ground size.
	CalculatedPageSize *page.Size
	Margin             page.Margin
}

// Offsets are ground distances from the upright extent to the page edge.
type Offsets struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// LabelKind identifies a dimension label.
type LabelKind string

const (
	GroundWidthLabel  LabelKind = "groundWidth"
	GroundHeightLabel LabelKind = "groundHeight"
	ScaleLabel        LabelKind = "scale"
	PageWidthLabel    LabelKind = "pageWidth"
	PageHeightLabel   LabelKind = "pageHeight"
)

// Label is a text placed in map space. Angle is the text rotation in
// degrees.
type Label struct {
	Kind     LabelKind `json:"kind"`
	Text     string    `json:"text"`
	Position orb.Point `json:"position"`
	Angle    float64   `json:"angle"`
}

// Result is a page laid out around a footprint.
type Result struct {
	geom.Upright

	// Units, Width and Height are the product values after defaults and
	// lazy fill. The Filled flags tell the caller which ones to store back.
	Units          units.Unit `json:"units"`
	Width          float64    `json:"width"`
	Height         float64    `json:"height"`
	UnitsDefaulted bool       `json:"unitsDefaulted,omitempty"`
	WidthFilled    bool       `json:"widthFilled,omitempty"`
	HeightFilled   bool       `json:"heightFilled,omitempty"`

	ReferenceScale float64 `json:"referenceScale"`
	Offsets        Offsets `json:"offsets"`
	Labels         []Label `json:"labels"`

	// Page is the page outline with its folded corner cut off; its second
	// ring is the data frame.
	Page orb.Polygon `json:"page"`
	// Corner is the folded corner triangle.
	Corner orb.Polygon `json:"corner"`
	// DataFrame is the footprint, notched where it reaches into the corner.
	DataFrame orb.Polygon `json:"dataFrame"`
}

// Oversized reports whether the footprint is larger than the page minus its
// margins, in which case some offsets are negative.
func (r Result) Oversized() bool {
	o := r.Offsets
	return o.Top < 0 || o.Right < 0 || o.Bottom < 0 || o.Left < 0
}

// Label returns the label of the given kind.
func (r Result) Label(kind LabelKind) (Label, bool) {
	for _, l := range r.Labels {
		if l.Kind == kind {
			return l, true
		}
	}
	return Label{}, false
}

// Calculator lays out pages. The zero value converts strictly and logs to
// slog.Default.
type Calculator struct {
	Conv   units.Converter
	Logger *slog.Logger
}

// Layout computes the page layout of in. It does not modify in.
func (c Calculator) Layout(in Input) (Result, error) {
	log := c.Logger
	if log == nil {
		log = slog.Default()
	}

	var res Result
	res.Units = in.Units
	if strings.TrimSpace(string(res.Units)) == "" {
		res.Units = units.Meters
		res.UnitsDefaulted = true
	}
	u := res.Units

	ring := in.Footprint.Exterior()
	if len(ring) == 0 {
		return Result{}, &DegenerateGeometryError{Reason: "empty footprint"}
	}

	margin, err := in.Margin.In(c.Conv, u)
	if err != nil {
		return Result{}, fmt.Errorf("margin: %w", err)
	}
	pageSize, err := in.PageSize.In(c.Conv, u)
	if err != nil {
		return Result{}, fmt.Errorf("page size: %w", err)
	}
	calculated := pageSize
	if in.CalculatedPageSize != nil {
		if calculated, err = in.CalculatedPageSize.In(c.Conv, u); err != nil {
			return Result{}, fmt.Errorf("calculated page size: %w", err)
		}
	}

	res.Upright = geom.UprightExtent(in.Footprint)
	ext := res.Extent
	extW, extH := ext.Max[0]-ext.Min[0], ext.Max[1]-ext.Min[1]
	if !finite(extW) || !finite(extH) || extW <= 0 || extH <= 0 {
		return Result{}, &DegenerateGeometryError{Reason: "footprint extent", Width: extW, Height: extH}
	}

	availW := calculated.Width - margin.Left - margin.Right
	availH := calculated.Height - margin.Top - margin.Bottom
	if availW <= 0 || availH <= 0 {
		return Result{}, &DegenerateGeometryError{Reason: "no room inside page margins", Width: availW, Height: availH}
	}
	res.ReferenceScale = math.Max(extW/availW, extH/availH)

	res.Width, res.Height = in.Width, in.Height
	if res.Width == 0 {
		res.Width = availW * in.Scale
		res.WidthFilled = true
	}
	if res.Height == 0 {
		res.Height = availH * in.Scale
		res.HeightFilled = true
	}

	ref := res.ReferenceScale
	res.Offsets = Offsets{
		Bottom: margin.Bottom * ref,
		Left:   margin.Left * ref,
		Top:    (pageSize.Height-margin.Bottom)*ref - extH,
		Right:  (pageSize.Width-margin.Left)*ref - extW,
	}
	if res.Oversized() {
		log.Debug("footprint larger than page", "offsets", res.Offsets, "referenceScale", ref)
	}

	res.pageGraphics(ring)
	res.Labels = res.labels(extW, extH, in, u)
	return res, nil
}

func (r *Result) labels(extW, extH float64, in Input, u units.Unit) []Label {
	ext, o, angle := r.Extent, r.Offsets, r.Angle
	gap := labelGap * math.Min(extW, extH)
	abbr := u.Abbreviation()
	pageUnits := strings.ToLower(string(in.PageSize.Units))

	place := func(kind LabelKind, text string, x, y, textAngle float64) Label {
		return Label{
			Kind:     kind,
			Text:     text,
			Position: geom.RotatePoint(orb.Point{x, y}, angle, &r.Centroid),
			Angle:    textAngle,
		}
	}

	midX := (ext.Min[0] + ext.Max[0]) / 2
	midY := (ext.Min[1] + ext.Max[1]) / 2
	return []Label{
		place(GroundWidthLabel, roundText(extW)+" "+abbr, midX, ext.Min[1]+gap, -angle),
		place(GroundHeightLabel, roundText(extH)+" "+abbr, ext.Min[0]+gap, midY, 90-angle),
		place(ScaleLabel, "Scale: "+roundText(in.Scale), midX, midY, -angle),
		place(PageWidthLabel, page.FormatNumber(in.PageSize.Width)+" "+pageUnits,
			(ext.Min[0]-o.Left+ext.Max[0]+o.Right)/2, ext.Max[1]+o.Top+gap, -angle),
		place(PageHeightLabel, page.FormatNumber(in.PageSize.Height)+" "+pageUnits,
			ext.Max[0]+o.Right+gap, (ext.Min[1]-o.Bottom+ext.Max[1]+o.Top)/2, 90-angle),
	}
}

// pageGraphics builds the page outline, the folded corner and the clipped
// data frame in upright space and rotates them onto the footprint.
func (r *Result) pageGraphics(footprint orb.Ring) {
	ext, o := r.Extent, r.Offsets
	c := &r.Centroid

	xmin, ymin := ext.Min[0]-o.Left, ext.Min[1]-o.Bottom
	xmax, ymax := ext.Max[0]+o.Right, ext.Max[1]+o.Top
	corner := cornerRatio * math.Min(xmax-xmin, ymax-ymin)

	dataFrame := append(orb.Ring(nil), footprint...)
	if ext.Max[0] > xmax-corner && ext.Max[1] > ymax-corner {
		dataFrame = geom.RotateRing(orb.Ring{
			{ext.Min[0], ext.Min[1]},
			{ext.Min[0], ext.Max[1]},
			{xmax - corner, ext.Max[1]},
			{xmax - corner, ymax - corner},
			{ext.Max[0], ymax - corner},
			{ext.Max[0], ext.Min[1]},
			{ext.Min[0], ext.Min[1]},
		}, r.Angle, c)
	}
	r.DataFrame = orb.Polygon{dataFrame}

	outline := geom.RotateRing(orb.Ring{
		{xmin, ymin},
		{xmin, ymax},
		{xmax - corner, ymax},
		{xmax, ymax - corner},
		{xmax, ymin},
		{xmin, ymin},
	}, r.Angle, c)
	r.Page = orb.Polygon{outline, append(orb.Ring(nil), dataFrame...)}

	r.Corner = orb.Polygon{geom.RotateRing(orb.Ring{
		{xmax - corner, ymax},
		{xmax, ymax - corner},
		{xmax - corner, ymax - corner},
		{xmax - corner, ymax},
	}, r.Angle, c)}
}

// roundText rounds half up to an integer, the way dimension labels read.
func roundText(v float64) string {
	return fmt.Sprintf("%.0f", math.Floor(v+0.5))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
