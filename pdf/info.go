package pdf

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/wudi/legalkit/ir/raw"
)

var utf16BOM = []byte{0xFE, 0xFF}

func (d *Document) infoDict(create bool) *raw.DictObj {
	obj, ok := d.raw.Trailer.Get("Info")
	if ok {
		if info, isDict := d.raw.ResolveDict(obj); isDict {
			return info
		}
	}
	if !create {
		return nil
	}
	info := raw.Dict()
	d.raw.Trailer.Set("Info", d.raw.Add(info))
	return info
}

// InfoKeys returns the Info dictionary keys in sorted order.
func (d *Document) InfoKeys() []string {
	info := d.infoDict(false)
	if info == nil {
		return nil
	}
	return info.Keys()
}

// Info returns the text value of an Info entry.
func (d *Document) Info(key string) (string, bool) {
	info := d.infoDict(false)
	if info == nil {
		return "", false
	}
	obj, ok := info.Get(key)
	if !ok {
		return "", false
	}
	switch v := d.raw.Resolve(obj).(type) {
	case raw.StringObj:
		return DecodeText(v.Bytes), true
	case raw.NameObj:
		return v.Val, true
	case raw.NumberObj:
		return writerNumber(v), true
	case raw.BoolObj:
		if v.V {
			return "true", true
		}
		return "false", true
	}
	return "", false
}

// SetInfo stores value as a text string.
func (d *Document) SetInfo(key, value string) {
	d.infoDict(true).Set(key, raw.Str(EncodeText(value)))
}

// DeleteInfo removes one Info entry.
func (d *Document) DeleteInfo(key string) {
	if info := d.infoDict(false); info != nil {
		info.Delete(key)
	}
}

// ClearInfo removes every Info entry.
func (d *Document) ClearInfo() {
	if info := d.infoDict(false); info != nil {
		for _, k := range info.Keys() {
			info.Delete(k)
		}
	}
}

// DecodeText decodes a PDF text string: UTF-16BE with BOM, UTF-8 with BOM,
// or PDFDocEncoding (approximated by Windows-1252).
func DecodeText(b []byte) string {
	if bytes.HasPrefix(b, utf16BOM) {
		dec := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
		if out, err := dec.Bytes(b); err == nil {
			return string(out)
		}
	}
	if bytes.HasPrefix(b, []byte{0xEF, 0xBB, 0xBF}) {
		return string(b[3:])
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

// EncodeText keeps ASCII as is and encodes anything else as UTF-16BE with
// BOM.
func EncodeText(s string) []byte {
	ascii := true
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			ascii = false
			break
		}
	}
	if ascii {
		return []byte(s)
	}
	enc := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder()
	out, err := enc.Bytes([]byte(s))
	if err != nil {
		return []byte(s)
	}
	return out
}

func writerNumber(n raw.NumberObj) string {
	if n.IsInt {
		return itoa(n.I)
	}
	return ftoa(n.F)
}
