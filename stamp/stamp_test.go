package stamp

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/legalkit/pdf"
)

func TestPageNumberPlacement(t *testing.T) {
	at := PageNumberPlacement(Geometry{Width: 612, Height: 792}, 64, 24)
	assert.Equal(t, Placement{X: 538, Y: 758}, at)

	at = PageNumberPlacement(Geometry{Width: 792, Height: 612, Rotated: true}, 64, 24)
	assert.Equal(t, Placement{X: 34, Y: 718, Rotate: true}, at)
}

func TestExhibitPlacement(t *testing.T) {
	portrait := Geometry{Width: 612, Height: 792}
	rotated := Geometry{Width: 792, Height: 612, Rotated: true}

	assert.Equal(t, Placement{X: 10, Y: 762}, ExhibitPlacement(portrait, 20, nil))
	assert.Equal(t, Placement{X: 10, Y: 10, Rotate: true}, ExhibitPlacement(rotated, 20, nil))

	pos := &Position{A: 100, B: 200}
	assert.Equal(t, Placement{X: 100, Y: 200}, ExhibitPlacement(portrait, 20, pos))
	assert.Equal(t, Placement{X: 200, Y: 100, Rotate: true}, ExhibitPlacement(rotated, 20, pos))
}

func TestFractionPlacementMatchesCorner(t *testing.T) {
	g := Geometry{Width: 792, Height: 612, Rotated: true}
	at := FractionPlacement(g, 0.5, 0.25)
	assert.Equal(t, Placement{X: 459, Y: 396, Rotate: true}, at)

	at = FractionPlacement(Geometry{Width: 600, Height: 800}, 0.5, 0.25)
	assert.Equal(t, Placement{X: 300, Y: 200}, at)
}

func TestLineOffsets(t *testing.T) {
	p := Placement{X: 10, Y: 700}
	x, y := p.Line(2, 15)
	assert.Equal(t, 10.0, x)
	assert.Equal(t, 670.0, y)

	p.Rotate = true
	x, y = p.Line(2, 15)
	assert.Equal(t, 40.0, x)
	assert.Equal(t, 700.0, y)
}

func TestParsePosition(t *testing.T) {
	pos, err := ParsePosition("72;144.5")
	require.NoError(t, err)
	assert.Equal(t, &Position{A: 72, B: 144.5}, pos)

	for _, empty := range []string{"", "default", "  "} {
		pos, err := ParsePosition(empty)
		require.NoError(t, err)
		assert.Nil(t, pos)
	}
	for _, bad := range []string{"72", "a;b", "1;"} {
		_, err := ParsePosition(bad)
		assert.True(t, errors.Is(err, ErrInvalidPosition), bad)
	}
}

func TestPageNumberDrawsCorner(t *testing.T) {
	doc := pdf.New()
	page := doc.AddBlankPage(pdf.Letter)
	s, err := New()
	require.NoError(t, err)

	require.NoError(t, s.PageNumber(page, "Pg 001"))

	content, err := page.ContentBytes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "q\nBT\n/LKF1 20 Tf\n0.5 0.5 1 rg\n1 0 0 1 537.52 758.2 Tm\n(Pg 001) Tj\nET\nQ\n\n", string(content))
	assert.Equal(t, 0, page.Rotation())
	assert.Equal(t, pdf.Letter, page.MediaBox())
}

func TestExhibitRotatedMultiLine(t *testing.T) {
	doc := pdf.New()
	page := doc.AddBlankPage(pdf.Rect{URX: 792, URY: 612})
	require.True(t, page.RotatePortrait())
	s, err := New()
	require.NoError(t, err)

	require.NoError(t, s.Exhibit(page, "This is Exhibit \"AA\"\nline two\n", nil))

	content, err := page.ContentBytes(context.Background())
	require.NoError(t, err)
	text := string(content)
	assert.Contains(t, text, "0.1 0.1 0.5 rg\n")
	assert.Contains(t, text, "0 1 -1 0 10 10 Tm\n(This is Exhibit \"AA\") Tj\n")
	assert.Contains(t, text, "(line two) Tj\n")
	assert.Contains(t, text, "/LKF1 12 Tf\n")
}

func TestFontSharedAcrossPages(t *testing.T) {
	doc := pdf.New()
	a := doc.AddBlankPage(pdf.Letter)
	b := doc.AddBlankPage(pdf.Letter)
	s, err := New()
	require.NoError(t, err)
	require.NoError(t, s.PageNumber(a, "Pg 001"))
	before := len(doc.Raw().Objects)
	require.NoError(t, s.PageNumber(b, "Pg 002"))
	// only the new content stream
	assert.Equal(t, before+1, len(doc.Raw().Objects))
}
