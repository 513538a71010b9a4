package contentstream

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Builder accumulates content stream operators.
type Builder struct {
	buf bytes.Buffer
}

func NewBuilder() *Builder { return &Builder{} }

func (b *Builder) op(operator string, operands ...string) *Builder {
	for _, o := range operands {
		b.buf.WriteString(o)
		b.buf.WriteByte(' ')
	}
	b.buf.WriteString(operator)
	b.buf.WriteByte('\n')
	return b
}

func (b *Builder) SaveState() *Builder    { return b.op("q") }
func (b *Builder) RestoreState() *Builder { return b.op("Q") }
func (b *Builder) BeginText() *Builder    { return b.op("BT") }
func (b *Builder) EndText() *Builder      { return b.op("ET") }

// SetFont selects the font resource name at size.
func (b *Builder) SetFont(resource string, size float64) *Builder {
	return b.op("Tf", "/"+resource, formatFloat(size))
}

// SetFillRGB sets the non-stroking colour.
func (b *Builder) SetFillRGB(r, g, bl float64) *Builder {
	return b.op("rg", formatFloat(r), formatFloat(g), formatFloat(bl))
}

// SetTextMatrix replaces the text matrix [a b c d e f].
func (b *Builder) SetTextMatrix(a, bb, c, d, e, f float64) *Builder {
	return b.op("Tm", formatFloat(a), formatFloat(bb), formatFloat(c), formatFloat(d), formatFloat(e), formatFloat(f))
}

// ShowText draws already encoded text bytes.
func (b *Builder) ShowText(encoded []byte) *Builder {
	return b.op("Tj", literal(encoded))
}

// ShowHex draws encoded bytes written as a hex string, used for two-byte
// glyph ids.
func (b *Builder) ShowHex(encoded []byte) *Builder {
	return b.op("Tj", fmt.Sprintf("<%X>", encoded))
}

func (b *Builder) Bytes() []byte { return append([]byte(nil), b.buf.Bytes()...) }

func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', 4, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" || s == "" {
		return "0"
	}
	return s
}

func literal(data []byte) string {
	var b bytes.Buffer
	b.WriteByte('(')
	for _, ch := range data {
		switch ch {
		case '\\', '(', ')':
			b.WriteByte('\\')
			b.WriteByte(ch)
		default:
			if ch < 0x20 || ch >= 0x7F {
				fmt.Fprintf(&b, "\\%03o", ch)
			} else {
				b.WriteByte(ch)
			}
		}
	}
	b.WriteByte(')')
	return b.String()
}
