// Package stamp draws page numbers and exhibit notices onto pages. Positions
// are computed in the displayed orientation of the page, so a notice on a
// page carrying /Rotate 90 reads upright once the viewer turns the page.
package stamp

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/wudi/legalkit/pdf"
)

const margin = 10

var ErrInvalidPosition = errors.New("invalid position")

// Geometry is the displayed size of a page.
type Geometry struct {
	Width   float64
	Height  float64
	Rotated bool
}

// PageGeometry reads the rotation-normalized size of p.
func PageGeometry(p *pdf.Page) Geometry {
	return Geometry{Width: p.RotatedWidth(), Height: p.RotatedHeight(), Rotated: p.IsRotated()}
}

// Placement is the text origin in user space. Rotate turns the text matrix
// by a quarter turn.
type Placement struct {
	X, Y   float64
	Rotate bool
}

// Line returns the origin of line i for lines lineHeight apart.
func (p Placement) Line(i int, lineHeight float64) (x, y float64) {
	if p.Rotate {
		return p.X + float64(i)*lineHeight, p.Y
	}
	return p.X, p.Y - float64(i)*lineHeight
}

// Position is an explicit exhibit notice origin, written "a;b".
type Position struct {
	A, B float64
}

// ParsePosition reads a Sworn Pos cell. Empty and "default" mean no
// explicit position.
func ParsePosition(s string) (*Position, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "default" {
		return nil, nil
	}
	a, b, ok := strings.Cut(s, ";")
	if !ok {
		return nil, errors.Wrapf(ErrInvalidPosition, "%q must contain two semicolon separated numbers or be 'default'", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(a), 64)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidPosition, "%q", s)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(b), 64)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidPosition, "%q", s)
	}
	return &Position{A: x, B: y}, nil
}

// PageNumberPlacement puts text of width tw and height th in the top right
// corner of the displayed page.
func PageNumberPlacement(g Geometry, tw, th float64) Placement {
	if g.Rotated {
		return Placement{X: th + margin, Y: g.Width - tw - margin, Rotate: true}
	}
	return Placement{X: g.Width - tw - margin, Y: g.Height - th - margin}
}

// FractionPlacement puts the text origin at (fx, fy) fractions of the
// displayed page, measured from its bottom left corner.
func FractionPlacement(g Geometry, fx, fy float64) Placement {
	dx, dy := fx*g.Width, fy*g.Height
	if g.Rotated {
		return Placement{X: g.Height - dy, Y: dx, Rotate: true}
	}
	return Placement{X: dx, Y: dy}
}

// ExhibitPlacement returns the origin of the first line of an exhibit
// notice of line height th.
func ExhibitPlacement(g Geometry, th float64, pos *Position) Placement {
	if pos != nil {
		if g.Rotated {
			return Placement{X: pos.B, Y: pos.A, Rotate: true}
		}
		return Placement{X: pos.A, Y: pos.B}
	}
	if g.Rotated {
		return Placement{X: margin, Y: margin, Rotate: true}
	}
	return Placement{X: margin, Y: g.Height - th - margin}
}
