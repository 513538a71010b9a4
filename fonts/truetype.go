package fonts

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/go-text/typesetting/di"
	gofont "github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"github.com/wudi/legalkit/filters"
	"github.com/wudi/legalkit/ir/raw"
)

// TrueType is an embedded TrueType face drawn through Identity-H glyph ids.
type TrueType struct {
	name    string
	data    []byte
	face    *gofont.Face
	shaper  shaping.HarfbuzzShaper
	widths  []int
	bbox    [4]float64
	ascent  float64
	descent float64
	italic  float64
}

// LoadTrueType parses data and reads the metrics needed for measuring and
// embedding. name is used when the font carries no PostScript name.
func LoadTrueType(name string, data []byte) (*TrueType, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("truetype font data is empty")
	}
	f, err := sfnt.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse truetype: %w", err)
	}
	unitsPerEm := f.UnitsPerEm()
	if unitsPerEm == 0 {
		return nil, fmt.Errorf("invalid unitsPerEm")
	}
	face, err := gofont.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse truetype: %w", err)
	}
	buf := &sfnt.Buffer{}
	ppem := fixed.Int26_6(unitsPerEm << 6)

	baseName := strings.TrimSpace(name)
	if ps, _ := f.Name(buf, sfnt.NameIDPostScript); len(ps) > 0 {
		baseName = ps
	}
	if baseName == "" {
		baseName = "CustomTT"
	}
	baseName = strings.ReplaceAll(baseName, " ", "")

	widths := make([]int, f.NumGlyphs())
	for i := range widths {
		adv, err := f.GlyphAdvance(buf, sfnt.GlyphIndex(i), ppem, xfont.HintingNone)
		if err != nil {
			continue
		}
		widths[i] = int(math.Round(scaleFixed(adv, unitsPerEm)))
	}
	metrics, _ := f.Metrics(buf, ppem, xfont.HintingNone)
	bounds, _ := f.Bounds(buf, ppem, xfont.HintingNone)
	t := &TrueType{
		name:   baseName,
		data:   data,
		face:   face,
		widths: widths,
		bbox: [4]float64{
			scaleFixed(bounds.Min.X, unitsPerEm),
			// sfnt bounds are y-down
			-scaleFixed(bounds.Max.Y, unitsPerEm),
			scaleFixed(bounds.Max.X, unitsPerEm),
			-scaleFixed(bounds.Min.Y, unitsPerEm),
		},
		ascent:  scaleFixed(metrics.Ascent, unitsPerEm),
		descent: -scaleFixed(metrics.Descent, unitsPerEm),
	}
	if post := f.PostTable(); post != nil {
		t.italic = post.ItalicAngle
	}
	return t, nil
}

func scaleFixed(val fixed.Int26_6, unitsPerEm sfnt.Units) float64 {
	return float64(val) * 1000.0 / (64.0 * float64(unitsPerEm))
}

func (t *TrueType) Key() string         { return "ttf:" + t.name }
func (t *TrueType) Name() string        { return t.name }
func (t *TrueType) TwoByte() bool       { return true }
func (t *TrueType) BBoxHeight() float64 { return t.bbox[3] - t.bbox[1] }

func (t *TrueType) shape(text string) shaping.Output {
	runes := []rune(text)
	return t.shaper.Shape(shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: di.DirectionLTR,
		Face:      t.face,
		// 1000 units per em
		Size:     fixed.Int26_6(1000 * 64),
		Script:   language.Latin,
		Language: language.DefaultLanguage(),
	})
}

// Width sums the shaped advances.
func (t *TrueType) Width(text string) (float64, error) {
	out := t.shape(text)
	var w float64
	for _, g := range out.Glyphs {
		w += float64(g.XAdvance) / 64.0
	}
	return w, nil
}

// Encode returns the big-endian glyph ids of the shaped text.
func (t *TrueType) Encode(text string) ([]byte, error) {
	out := t.shape(text)
	codes := make([]byte, 0, 2*len(out.Glyphs))
	for _, g := range out.Glyphs {
		if int(g.GlyphID) > math.MaxUint16 {
			return nil, fmt.Errorf("glyph id %d out of range", g.GlyphID)
		}
		codes = binary.BigEndian.AppendUint16(codes, uint16(g.GlyphID))
	}
	return codes, nil
}

// Dict builds a Type0 font with the whole face embedded as FontFile2.
func (t *TrueType) Dict(add func(raw.Object) raw.RefObj) raw.Object {
	fileDict := raw.Dict()
	fileDict.Set("Length1", raw.NumberInt(int64(len(t.data))))
	payload := t.data
	if enc, err := filters.EncodeFlate(t.data); err == nil {
		payload = enc
		fileDict.Set("Filter", raw.NameLiteral("FlateDecode"))
	}
	fileRef := add(raw.NewStream(fileDict, payload))

	desc := raw.Dict()
	desc.Set("Type", raw.NameLiteral("FontDescriptor"))
	desc.Set("FontName", raw.NameLiteral(t.name))
	desc.Set("Flags", raw.NumberInt(32))
	desc.Set("FontBBox", raw.NewArray(
		raw.NumberFloat(t.bbox[0]), raw.NumberFloat(t.bbox[1]),
		raw.NumberFloat(t.bbox[2]), raw.NumberFloat(t.bbox[3])))
	desc.Set("ItalicAngle", raw.NumberFloat(t.italic))
	desc.Set("Ascent", raw.NumberFloat(t.ascent))
	desc.Set("Descent", raw.NumberFloat(t.descent))
	desc.Set("CapHeight", raw.NumberFloat(t.ascent))
	desc.Set("StemV", raw.NumberInt(80))
	desc.Set("FontFile2", fileRef)
	descRef := add(desc)

	w := raw.NewArray()
	for _, v := range t.widths {
		w.Append(raw.NumberInt(int64(v)))
	}
	sysInfo := raw.Dict()
	sysInfo.Set("Registry", raw.Str([]byte("Adobe")))
	sysInfo.Set("Ordering", raw.Str([]byte("Identity")))
	sysInfo.Set("Supplement", raw.NumberInt(0))
	cid := raw.Dict()
	cid.Set("Type", raw.NameLiteral("Font"))
	cid.Set("Subtype", raw.NameLiteral("CIDFontType2"))
	cid.Set("BaseFont", raw.NameLiteral(t.name))
	cid.Set("CIDSystemInfo", sysInfo)
	cid.Set("FontDescriptor", descRef)
	cid.Set("CIDToGIDMap", raw.NameLiteral("Identity"))
	cid.Set("W", raw.NewArray(raw.NumberInt(0), w))
	cidRef := add(cid)

	font := raw.Dict()
	font.Set("Type", raw.NameLiteral("Font"))
	font.Set("Subtype", raw.NameLiteral("Type0"))
	font.Set("BaseFont", raw.NameLiteral(t.name))
	font.Set("Encoding", raw.NameLiteral("Identity-H"))
	font.Set("DescendantFonts", raw.NewArray(cidRef))
	return font
}
