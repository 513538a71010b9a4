package pdf

import (
	"context"
	"fmt"

	"github.com/wudi/legalkit/ir/raw"
)

// Rect is a PDF rectangle in default user space.
type Rect struct {
	LLX, LLY, URX, URY float64
}

func (r Rect) Width() float64  { return r.URX - r.LLX }
func (r Rect) Height() float64 { return r.URY - r.LLY }

// Landscape reports a box wider than it is high.
func (r Rect) Landscape() bool { return r.Width() > r.Height() }

func (r Rect) array() *raw.ArrayObj {
	return raw.NewArray(num(r.LLX), num(r.LLY), num(r.URX), num(r.URY))
}

func num(v float64) raw.NumberObj {
	if v == float64(int64(v)) {
		return raw.NumberInt(int64(v))
	}
	return raw.NumberFloat(v)
}

// Page is a view on one page dictionary of a Document.
type Page struct {
	doc  *Document
	Ref  raw.ObjectRef
	Dict *raw.DictObj
}

func (p *Page) Document() *Document { return p.doc }

// MediaBox returns the page media box, Letter when absent or malformed.
func (p *Page) MediaBox() Rect {
	obj, ok := p.Dict.Get("MediaBox")
	if !ok {
		return Letter
	}
	arr, ok := p.doc.raw.ResolveArray(obj)
	if !ok || arr.Len() != 4 {
		return Letter
	}
	var v [4]float64
	for i := range v {
		f, ok := raw.Number(p.doc.raw.Resolve(arr.Items[i]))
		if !ok {
			return Letter
		}
		v[i] = f
	}
	r := Rect{LLX: min(v[0], v[2]), LLY: min(v[1], v[3]), URX: max(v[0], v[2]), URY: max(v[1], v[3])}
	return r
}

// Rotation returns /Rotate normalized to 0, 90, 180 or 270.
func (p *Page) Rotation() int {
	obj, ok := p.Dict.Get("Rotate")
	if !ok {
		return 0
	}
	f, ok := raw.Number(p.doc.raw.Resolve(obj))
	if !ok {
		return 0
	}
	return normalizeRotation(int(f))
}

func (p *Page) SetRotation(deg int) {
	deg = normalizeRotation(deg)
	if deg == 0 {
		p.Dict.Delete("Rotate")
		return
	}
	p.Dict.Set("Rotate", raw.NumberInt(int64(deg)))
}

func normalizeRotation(deg int) int {
	deg %= 360
	if deg < 0 {
		deg += 360
	}
	return deg / 90 * 90
}

// IsRotated reports a quarter-turn rotation (90 or 270).
func (p *Page) IsRotated() bool {
	r := p.Rotation()
	return r == 90 || r == 270
}

// RotatedWidth is the displayed width once /Rotate is applied.
func (p *Page) RotatedWidth() float64 {
	if p.IsRotated() {
		return p.MediaBox().Height()
	}
	return p.MediaBox().Width()
}

// RotatedHeight is the displayed height once /Rotate is applied.
func (p *Page) RotatedHeight() float64 {
	if p.IsRotated() {
		return p.MediaBox().Width()
	}
	return p.MediaBox().Height()
}

// RotatePortrait adds a quarter turn when the displayed page is landscape.
// It reports whether the page was turned.
func (p *Page) RotatePortrait() bool {
	if p.RotatedWidth() > p.RotatedHeight() {
		p.SetRotation(p.Rotation() + 90)
		return true
	}
	return false
}

// AppendContent adds data as a new content stream drawn after the existing
// content. The existing content is wrapped in q/Q so its graphics state
// does not leak into data.
func (p *Page) AppendContent(data []byte) {
	var streams []raw.Object
	if obj, ok := p.Dict.Get("Contents"); ok {
		switch v := p.doc.raw.Resolve(obj).(type) {
		case *raw.StreamObj:
			streams = append(streams, obj)
		case *raw.ArrayObj:
			streams = append(streams, v.Items...)
		}
	}
	out := raw.NewArray()
	if len(streams) > 0 {
		out.Append(p.doc.raw.Add(raw.NewStream(raw.Dict(), []byte("q\n"))))
		out.Items = append(out.Items, streams...)
		out.Append(p.doc.raw.Add(raw.NewStream(raw.Dict(), []byte("\nQ\n"))))
	}
	out.Append(p.doc.raw.Add(raw.NewStream(raw.Dict(), data)))
	p.Dict.Set("Contents", out)
}

// resources returns the page's own resource dictionary, copying a shared
// one so that additions stay local to the page.
func (p *Page) resources() *raw.DictObj {
	obj, ok := p.Dict.Get("Resources")
	var res *raw.DictObj
	if ok {
		if d, isDict := p.doc.raw.ResolveDict(obj); isDict {
			res = raw.Clone(d).(*raw.DictObj)
		}
	}
	if res == nil {
		res = raw.Dict()
	}
	p.Dict.Set("Resources", res)
	return res
}

// AddResource registers obj under category (Font, XObject, ...) with a fresh
// name derived from prefix and returns that name.
func (p *Page) AddResource(category, prefix string, obj raw.Object) string {
	res := p.resources()
	var cat *raw.DictObj
	if c, ok := res.Get(category); ok {
		if d, isDict := p.doc.raw.ResolveDict(c); isDict {
			cat = raw.Clone(d).(*raw.DictObj)
		}
	}
	if cat == nil {
		cat = raw.Dict()
	}
	res.Set(category, cat)
	for _, k := range cat.Keys() {
		if existing, _ := cat.Get(k); sameRef(existing, obj) {
			return k
		}
	}
	for i := 1; ; i++ {
		name := fmt.Sprintf("%s%d", prefix, i)
		if _, taken := cat.Get(name); !taken {
			cat.Set(name, obj)
			return name
		}
	}
}

func sameRef(a, b raw.Object) bool {
	ra, ok1 := a.(raw.RefObj)
	rb, ok2 := b.(raw.RefObj)
	return ok1 && ok2 && ra.R == rb.R
}

// AddFont registers a font dictionary owned by the document on the page and
// returns its resource name.
func (p *Page) AddFont(font raw.RefObj) string {
	return p.AddResource("Font", "LKF", font)
}

// ContentBytes returns the decoded, concatenated content streams.
func (p *Page) ContentBytes(ctx context.Context) ([]byte, error) {
	obj, ok := p.Dict.Get("Contents")
	if !ok {
		return nil, nil
	}
	var parts []raw.Object
	switch v := p.doc.raw.Resolve(obj).(type) {
	case *raw.StreamObj:
		parts = []raw.Object{v}
	case *raw.ArrayObj:
		parts = v.Items
	}
	var out []byte
	for _, part := range parts {
		s, ok := p.doc.raw.Resolve(part).(*raw.StreamObj)
		if !ok {
			continue
		}
		data, err := p.doc.pipeline.DecodeStream(ctx, s)
		if err != nil {
			return nil, err
		}
		out = append(out, data...)
		out = append(out, '\n')
	}
	return out, nil
}
