package pdf

import (
	"github.com/wudi/legalkit/ir/raw"
)

// Link is a link annotation found on a page.
type Link struct {
	Page  *Page
	Annot *raw.DictObj
}

// URI returns the target of a /URI action, if the link has one.
func (l Link) URI() (string, bool) {
	doc := l.Page.doc.raw
	actObj, ok := l.Annot.Get("A")
	if !ok {
		return "", false
	}
	act, ok := doc.ResolveDict(actObj)
	if !ok {
		return "", false
	}
	if s, _ := act.Name("S"); s != "URI" {
		return "", false
	}
	uriObj, ok := act.Get("URI")
	if !ok {
		return "", false
	}
	str, ok := doc.Resolve(uriObj).(raw.StringObj)
	if !ok {
		return "", false
	}
	return string(str.Bytes), true
}

// SetGoTo points the link at target, fitted to the window.
func (l Link) SetGoTo(target *Page) {
	dest := raw.NewArray(raw.RefObj{R: target.Ref}, raw.NameLiteral("Fit"))
	act := raw.Dict()
	act.Set("S", raw.NameLiteral("GoTo"))
	act.Set("D", dest)
	l.Annot.Set("A", act)
	l.Annot.Delete("Dest")
}

// Links returns the link annotations of the page. Annotation dictionaries
// held by reference are edited in place by SetGoTo.
func (p *Page) Links() []Link {
	obj, ok := p.Dict.Get("Annots")
	if !ok {
		return nil
	}
	arr, ok := p.doc.raw.ResolveArray(obj)
	if !ok {
		return nil
	}
	var out []Link
	for _, item := range arr.Items {
		annot, ok := p.doc.raw.ResolveDict(item)
		if !ok {
			continue
		}
		if st, _ := annot.Name("Subtype"); st != "Link" {
			continue
		}
		out = append(out, Link{Page: p, Annot: annot})
	}
	return out
}

// AddURILink adds a link annotation over rect opening uri.
func (p *Page) AddURILink(rect Rect, uri string) Link {
	act := raw.Dict()
	act.Set("S", raw.NameLiteral("URI"))
	act.Set("URI", raw.Str([]byte(uri)))
	annot := raw.Dict()
	annot.Set("Type", raw.NameLiteral("Annot"))
	annot.Set("Subtype", raw.NameLiteral("Link"))
	annot.Set("Rect", rect.array())
	annot.Set("Border", raw.NewArray(raw.NumberInt(0), raw.NumberInt(0), raw.NumberInt(0)))
	annot.Set("A", act)
	ref := p.doc.raw.Add(annot)

	annots := raw.NewArray()
	if obj, ok := p.Dict.Get("Annots"); ok {
		if arr, ok := p.doc.raw.ResolveArray(obj); ok {
			annots.Items = append(annots.Items, arr.Items...)
		}
	}
	annots.Append(ref)
	p.Dict.Set("Annots", annots)
	return Link{Page: p, Annot: annot}
}
