package stamp

import (
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/wudi/legalkit/contentstream"
	"github.com/wudi/legalkit/fonts"
	"github.com/wudi/legalkit/ir/raw"
	"github.com/wudi/legalkit/observability"
	"github.com/wudi/legalkit/pdf"
)

const (
	PageNumberSize     = 20
	DefaultPagePattern = "Pg %03d"
)

// RGB is a fill colour with components in [0, 1].
type RGB struct{ R, G, B float64 }

var (
	PageNumberColor = RGB{0.5, 0.5, 1}
	ExhibitColor    = RGB{0.1, 0.1, 0.5}
)

// Stamper draws notices with a fixed pair of fonts.
type Stamper struct {
	numberFont  fonts.Font
	exhibitFont fonts.Font
	log         observability.Logger
}

type Option func(*Stamper)

// WithExhibitFont replaces Helvetica for exhibit notices.
func WithExhibitFont(f fonts.Font) Option {
	return func(s *Stamper) { s.exhibitFont = f }
}

func WithLogger(l observability.Logger) Option {
	return func(s *Stamper) { s.log = observability.OrNop(l) }
}

// New returns a Stamper using Helvetica-Bold for page numbers and Helvetica
// for exhibit notices.
func New(opts ...Option) (*Stamper, error) {
	bold, err := fonts.Standard(fonts.HelveticaBold)
	if err != nil {
		return nil, err
	}
	regular, err := fonts.Standard(fonts.Helvetica)
	if err != nil {
		return nil, err
	}
	s := &Stamper{numberFont: bold, exhibitFont: regular, log: observability.NopLogger{}}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// LoadExhibitFont reads a TrueType file for WithExhibitFont.
func LoadExhibitFont(name string, data []byte) (fonts.Font, error) {
	f, err := fonts.LoadTrueType(name, data)
	if err != nil {
		return nil, errors.Wrapf(err, "load font %s", name)
	}
	return f, nil
}

// PageNumber draws text in the top right corner of page.
func (s *Stamper) PageNumber(page *pdf.Page, text string) error {
	g := PageGeometry(page)
	tw, err := s.numberFont.Width(text)
	if err != nil {
		return errors.Wrapf(err, "measure %q", text)
	}
	tw = fonts.Size(tw, PageNumberSize)
	th := fonts.Size(s.numberFont.BBoxHeight(), PageNumberSize)
	at := PageNumberPlacement(g, tw, th)
	s.log.Debug("page number",
		observability.String("text", text),
		observability.Float("width", g.Width),
		observability.Float("height", g.Height),
		observability.Float("x", at.X),
		observability.Float("y", at.Y))
	return s.draw(page, s.numberFont, PageNumberSize, PageNumberColor, at, th, []string{text})
}

// PageNumberAt draws text with its origin at fractions (fx, fy) of the page.
func (s *Stamper) PageNumberAt(page *pdf.Page, text string, fx, fy float64) error {
	if _, err := s.numberFont.Width(text); err != nil {
		return errors.Wrapf(err, "measure %q", text)
	}
	th := fonts.Size(s.numberFont.BBoxHeight(), PageNumberSize)
	at := FractionPlacement(PageGeometry(page), fx, fy)
	return s.draw(page, s.numberFont, PageNumberSize, PageNumberColor, at, th, []string{text})
}

// Exhibit draws a possibly multi-line notice near the top left corner of
// page, or at pos when given. The font scales with the page height.
func (s *Stamper) Exhibit(page *pdf.Page, text string, pos *Position) error {
	g := PageGeometry(page)
	size := 12 * (g.Height / 792)
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	var widest float64
	for _, line := range lines {
		w, err := s.exhibitFont.Width(line)
		if err != nil {
			return errors.Wrapf(err, "measure %q", line)
		}
		widest = max(widest, fonts.Size(w, size))
	}
	th := fonts.Size(s.exhibitFont.BBoxHeight(), size)
	at := ExhibitPlacement(g, th, pos)
	s.log.Debug("exhibit",
		observability.Int("lines", len(lines)),
		observability.Float("text_width", widest),
		observability.Float("x", at.X),
		observability.Float("y", at.Y))
	return s.draw(page, s.exhibitFont, size, ExhibitColor, at, th, lines)
}

func (s *Stamper) draw(page *pdf.Page, font fonts.Font, size float64, color RGB, at Placement, lineHeight float64, lines []string) error {
	doc := page.Document()
	ref := doc.Shared(font.Key(), func() raw.Object { return font.Dict(doc.AddObject) })
	name := page.AddFont(ref)

	b := contentstream.NewBuilder().SaveState().BeginText().
		SetFont(name, size).
		SetFillRGB(color.R, color.G, color.B)
	for i, line := range lines {
		code, err := font.Encode(line)
		if err != nil {
			return errors.Wrapf(err, "encode %q", line)
		}
		x, y := at.Line(i, lineHeight)
		if at.Rotate {
			b.SetTextMatrix(0, 1, -1, 0, x, y)
		} else {
			b.SetTextMatrix(1, 0, 0, 1, x, y)
		}
		if font.TwoByte() {
			b.ShowHex(code)
		} else {
			b.ShowText(code)
		}
	}
	b.EndText().RestoreState()
	page.AppendContent(b.Bytes())
	return nil
}
