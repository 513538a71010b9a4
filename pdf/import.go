package pdf

import (
	"github.com/wudi/legalkit/ir/raw"
)

// ImportPages deep-copies the listed pages of src, with everything they
// reference, into d and returns the copies. The copies are not yet part of
// the page list; see InsertPages. Objects shared by several imported pages
// are copied once. References to src pages outside the selection are
// replaced by null so that no foreign page is dragged along.
func (d *Document) ImportPages(src *Document, indices []int) ([]*Page, error) {
	for _, i := range indices {
		if i < 0 || i >= src.PageCount() {
			return nil, ErrPageRange
		}
	}
	c := &copier{
		src:     src.raw,
		dst:     d.raw,
		mapping: make(map[raw.ObjectRef]raw.ObjectRef),
		pages:   make(map[raw.ObjectRef]bool, len(src.pages)),
	}
	for _, ref := range src.pages {
		c.pages[ref] = false
	}
	// reserve numbers for the selected pages first so that links between
	// them resolve to the copies
	out := make([]*Page, len(indices))
	for n, i := range indices {
		ref := src.pages[i]
		if _, done := c.mapping[ref]; done {
			// the same page selected twice gets two copies
			dup := d.raw.Add(raw.NullObj{})
			out[n] = &Page{doc: d, Ref: dup.R}
			continue
		}
		c.pages[ref] = true
		nr := d.raw.Add(raw.NullObj{})
		c.mapping[ref] = nr.R
		out[n] = &Page{doc: d, Ref: nr.R}
	}
	for n, i := range indices {
		ref := src.pages[i]
		dict, _ := src.raw.Objects[ref].(*raw.DictObj)
		if dict == nil {
			dict = raw.Dict()
		}
		cp := c.copy(dict).(*raw.DictObj)
		cp.Delete("Parent")
		d.raw.Objects[out[n].Ref] = cp
		out[n].Dict = cp
	}
	if src.raw.Version > d.raw.Version {
		d.raw.Version = src.raw.Version
	}
	return out, nil
}

type copier struct {
	src, dst *raw.Document
	mapping  map[raw.ObjectRef]raw.ObjectRef
	// pages maps every source page to whether it is being imported
	pages map[raw.ObjectRef]bool
}

func (c *copier) copy(obj raw.Object) raw.Object {
	switch v := obj.(type) {
	case raw.RefObj:
		if nr, ok := c.mapping[v.R]; ok {
			return raw.RefObj{R: nr}
		}
		if selected, isPage := c.pages[v.R]; isPage && !selected {
			return raw.NullObj{}
		}
		target, ok := c.src.Objects[v.R]
		if !ok {
			return raw.NullObj{}
		}
		if isPageTree(target) {
			return raw.NullObj{}
		}
		nr := c.dst.Add(raw.NullObj{})
		c.mapping[v.R] = nr.R
		c.dst.Objects[nr.R] = c.copy(target)
		return nr
	case *raw.ArrayObj:
		out := raw.NewArray()
		out.Items = make([]raw.Object, len(v.Items))
		for i, item := range v.Items {
			out.Items[i] = c.copy(item)
		}
		return out
	case *raw.DictObj:
		out := raw.Dict()
		for k, item := range v.KV {
			if k == "Parent" && isPageDict(v) {
				continue
			}
			out.Set(k, c.copy(item))
		}
		return out
	case *raw.StreamObj:
		data := make([]byte, len(v.Data))
		copy(data, v.Data)
		return raw.NewStream(c.copy(v.Dict).(*raw.DictObj), data)
	default:
		return raw.Clone(obj)
	}
}

func isPageDict(d *raw.DictObj) bool {
	t, _ := d.Name("Type")
	return t == "Page"
}

func isPageTree(obj raw.Object) bool {
	d, ok := obj.(*raw.DictObj)
	if !ok {
		return false
	}
	t, _ := d.Name("Type")
	return t == "Pages"
}
