// Package page parses page margins and page sizes of map products.
package page

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/joeblew999/plat-pod/internal/units"
)

// ErrTooManyMarginValues is returned when a margin spec has more than five
// space-separated tokens.
var ErrTooManyMarginValues = errors.New("margin has too many values defined")

// maxMarginTokens is four sides plus a unit token.
const maxMarginTokens = 5

// Margin is a page margin, one value per side, in Units.
type Margin struct {
	Top    float64    `json:"top"`
	Right  float64    `json:"right"`
	Bottom float64    `json:"bottom"`
	Left   float64    `json:"left"`
	Units  units.Unit `json:"units"`
}

// Horizontal returns Left + Right.
func (m Margin) Horizontal() float64 { return m.Left + m.Right }

// Vertical returns Top + Bottom.
func (m Margin) Vertical() float64 { return m.Top + m.Bottom }

// In returns the margin converted to u.
func (m Margin) In(conv units.Converter, u units.Unit) (Margin, error) {
	out := Margin{Units: u}
	var err error
	for _, side := range []struct {
		src float64
		dst *float64
	}{
		{m.Top, &out.Top},
		{m.Right, &out.Right},
		{m.Bottom, &out.Bottom},
		{m.Left, &out.Left},
	} {
		if *side.dst, err = conv.Convert(side.src, m.Units, u); err != nil {
			return Margin{}, err
		}
	}
	return out, nil
}

// leadingFloat matches the numeric prefix of a token ("2.5in" reads as 2.5).
var leadingFloat = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// parseNumber reads the leading number of s.
func parseNumber(s string) (float64, bool) {
	m := leadingFloat.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// splitMarginUnits separates a margin spec into its tokens and the unit
// token, if the last token is not numeric.
func splitMarginUnits(spec string) (tokens []string, unit string, hasUnit bool) {
	tokens = strings.Fields(spec)
	if len(tokens) == 0 {
		return tokens, "", false
	}
	last := strings.ToUpper(tokens[len(tokens)-1])
	if _, ok := parseNumber(last); ok {
		return tokens, "", false
	}
	return tokens[:len(tokens)-1], last, true
}

// ParseMargin parses a "top right bottom left units" margin spec. The
// numeric part follows the CSS shorthand: one value for all sides, two for
// vertical/horizontal, three for top/horizontal/bottom, four for each side.
// Any other count gives a zero margin. Units default to INCHES. Tokens that
// are not numbers are skipped.
//
// A spec with more than five tokens gives a zero margin and
// ErrTooManyMarginValues; the margin is still usable.
func ParseMargin(spec string) (Margin, error) {
	tokens, unit, _ := splitMarginUnits(spec)
	m := Margin{Units: units.Inches}
	if u := units.Unit(unit); u.IsPageUnit() {
		m.Units = units.Parse(unit)
	}

	if len(strings.Fields(spec)) > maxMarginTokens {
		return m, ErrTooManyMarginValues
	}

	var v []float64
	for _, tok := range tokens {
		if n, ok := parseNumber(tok); ok {
			v = append(v, n)
		}
	}

	switch len(v) {
	case 1:
		m.Top, m.Right, m.Bottom, m.Left = v[0], v[0], v[0], v[0]
	case 2:
		m.Top, m.Bottom = v[0], v[0]
		m.Right, m.Left = v[1], v[1]
	case 3:
		m.Top = v[0]
		m.Right, m.Left = v[1], v[1]
		m.Bottom = v[2]
	case 4:
		m.Top, m.Right, m.Bottom, m.Left = v[0], v[1], v[2], v[3]
	}
	return m, nil
}

// MarginProblemKind classifies a margin lint finding.
type MarginProblemKind int

const (
	TooManyValues MarginProblemKind = iota
	UnknownUnits
	InvalidNumber
)

// MarginProblem is a single finding of LintMargin.
type MarginProblem struct {
	Kind  MarginProblemKind
	Token string
}

// LintMargin reports everything ParseMargin would silently tolerate: too many
// tokens, an unknown unit token and tokens that are not numbers.
func LintMargin(spec string) []MarginProblem {
	var problems []MarginProblem
	if len(strings.Fields(spec)) > maxMarginTokens {
		problems = append(problems, MarginProblem{Kind: TooManyValues})
	}
	tokens, unit, hasUnit := splitMarginUnits(spec)
	if hasUnit && !units.Unit(unit).IsPageUnit() {
		problems = append(problems, MarginProblem{Kind: UnknownUnits, Token: unit})
	}
	for _, tok := range tokens {
		if _, ok := parseNumber(tok); !ok {
			problems = append(problems, MarginProblem{Kind: InvalidNumber, Token: tok})
		}
	}
	return problems
}
