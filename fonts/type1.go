package fonts

import (
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"

	"github.com/wudi/legalkit/ir/raw"
)

const (
	Helvetica     = "Helvetica"
	HelveticaBold = "Helvetica-Bold"
)

// Type1 is a non-embedded standard font using WinAnsiEncoding.
type Type1 struct {
	name   string
	widths *[95]int16
	extra  map[rune]int
	bbox   [4]float64
	dflt   float64
}

// Standard returns one of the supported standard fonts.
func Standard(name string) (*Type1, error) {
	switch name {
	case Helvetica:
		return &Type1{name: name, widths: &helveticaWidths, extra: helveticaExtra, bbox: [4]float64{-166, -225, 1000, 931}, dflt: 556}, nil
	case HelveticaBold:
		return &Type1{name: name, widths: &helveticaBoldWidths, extra: helveticaBoldExtra, bbox: [4]float64{-170, -228, 1003, 962}, dflt: 556}, nil
	}
	return nil, ErrUnknownFont
}

func (f *Type1) Key() string         { return "std:" + f.name }
func (f *Type1) Name() string        { return f.name }
func (f *Type1) TwoByte() bool       { return false }
func (f *Type1) BBoxHeight() float64 { return f.bbox[3] - f.bbox[1] }

func (f *Type1) Encode(text string) ([]byte, error) {
	return encoding.ReplaceUnsupported(charmap.Windows1252.NewEncoder()).Bytes([]byte(text))
}

func (f *Type1) Width(text string) (float64, error) {
	codes, err := f.Encode(text)
	if err != nil {
		return 0, err
	}
	var w float64
	for _, c := range codes {
		w += f.codeWidth(c)
	}
	return w, nil
}

func (f *Type1) codeWidth(c byte) float64 {
	if c >= 32 && c <= 126 {
		return float64(f.widths[c-32])
	}
	r := charmap.Windows1252.DecodeByte(c)
	if w, ok := f.extra[r]; ok {
		return float64(w)
	}
	// accented letters share the advance of their base letter
	if base := norm.NFD.String(string(r)); len(base) > 0 && base[0] >= 32 && base[0] <= 126 {
		return float64(f.widths[base[0]-32])
	}
	return f.dflt
}

func (f *Type1) Dict(func(raw.Object) raw.RefObj) raw.Object {
	d := raw.Dict()
	d.Set("Type", raw.NameLiteral("Font"))
	d.Set("Subtype", raw.NameLiteral("Type1"))
	d.Set("BaseFont", raw.NameLiteral(f.name))
	d.Set("Encoding", raw.NameLiteral("WinAnsiEncoding"))
	return d
}

// Advance widths of codes 32..126 from the Adobe AFM files.
var helveticaWidths = [95]int16{
	278, 278, 355, 556, 556, 889, 667, 191, 333, 333, 389, 584, 278, 333, 278, 278,
	556, 556, 556, 556, 556, 556, 556, 556, 556, 556, 278, 278, 584, 584, 584, 556,
	1015, 667, 667, 722, 722, 667, 611, 778, 722, 278, 500, 667, 556, 833, 722, 778,
	667, 778, 722, 667, 611, 722, 667, 944, 667, 667, 611, 278, 278, 278, 469, 556,
	333, 556, 556, 500, 556, 556, 278, 556, 556, 222, 222, 500, 222, 833, 556, 556,
	556, 556, 333, 500, 278, 556, 500, 722, 500, 500, 500, 334, 260, 334, 584,
}

var helveticaBoldWidths = [95]int16{
	278, 333, 474, 556, 556, 889, 722, 238, 333, 333, 389, 584, 278, 333, 278, 278,
	556, 556, 556, 556, 556, 556, 556, 556, 556, 556, 333, 333, 584, 584, 584, 611,
	975, 722, 722, 722, 722, 667, 611, 778, 722, 278, 556, 722, 611, 833, 722, 778,
	667, 778, 722, 667, 611, 722, 667, 944, 667, 667, 611, 333, 278, 333, 584, 556,
	333, 556, 611, 556, 611, 556, 333, 611, 611, 278, 278, 556, 278, 889, 611, 611,
	611, 611, 389, 556, 333, 611, 556, 778, 556, 556, 500, 389, 280, 389, 584,
}

var helveticaExtra = map[rune]int{
	' ': 278, '‘': 222, '’': 222, '‚': 222, '“': 333, '”': 333, '„': 333,
	'–': 556, '—': 1000, '•': 350, '…': 1000, '§': 556, '¶': 537, '©': 737,
	'®': 737, '°': 400, '€': 556, '£': 556, '×': 584, '÷': 584, '·': 278,
	'ß': 611, 'æ': 889, 'Æ': 1000, 'ø': 611, 'Ø': 778, '¡': 333, '¿': 611,
}

var helveticaBoldExtra = map[rune]int{
	' ': 278, '‘': 278, '’': 278, '‚': 278, '“': 500, '”': 500, '„': 500,
	'–': 556, '—': 1000, '•': 350, '…': 1000, '§': 556, '¶': 556, '©': 737,
	'®': 737, '°': 400, '€': 556, '£': 556, '×': 584, '÷': 584, '·': 278,
	'ß': 611, 'æ': 889, 'Æ': 1000, 'ø': 611, 'Ø': 778, '¡': 333, '¿': 611,
}
