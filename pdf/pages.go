package pdf

import (
	"errors"

	"github.com/wudi/legalkit/ir/raw"
)

var inheritable = []string{"Resources", "MediaBox", "CropBox", "Rotate"}

// flattenPages walks the page tree, pushes inherited attributes down to
// the leaves and records them in document order.
func (d *Document) flattenPages() error {
	cat := d.catalog()
	if cat == nil {
		return errors.New("catalog is not a dictionary")
	}
	pagesObj, _ := cat.Get("Pages")
	ref, ok := pagesObj.(raw.RefObj)
	if !ok {
		// direct or missing page tree: give it an object number
		root, isDict := pagesObj.(*raw.DictObj)
		if !isDict {
			root = raw.Dict()
			root.Set("Type", raw.NameLiteral("Pages"))
		}
		ref = d.raw.Add(root)
		cat.Set("Pages", ref)
	}
	d.pagesRef = ref.R
	visited := make(map[raw.ObjectRef]bool)
	return d.walk(ref, raw.Dict(), visited, 0)
}

func (d *Document) walk(ref raw.RefObj, inherited *raw.DictObj, visited map[raw.ObjectRef]bool, depth int) error {
	if visited[ref.R] || depth > 64 {
		return nil
	}
	visited[ref.R] = true
	node, ok := d.raw.ResolveDict(ref)
	if !ok {
		return nil
	}
	kidsObj, hasKids := node.Get("Kids")
	t, _ := node.Name("Type")
	if t == "Page" || (!hasKids && t != "Pages") {
		for _, k := range inheritable {
			if _, own := node.Get(k); !own {
				if v, ok := inherited.Get(k); ok {
					node.Set(k, raw.Clone(v))
				}
			}
		}
		node.Set("Type", raw.NameLiteral("Page"))
		d.pages = append(d.pages, ref.R)
		return nil
	}
	next := raw.Clone(inherited).(*raw.DictObj)
	for _, k := range inheritable {
		if v, ok := node.Get(k); ok {
			next.Set(k, v)
		}
	}
	kids, ok := d.raw.ResolveArray(kidsObj)
	if !ok {
		return nil
	}
	for _, kid := range kids.Items {
		kidRef, ok := kid.(raw.RefObj)
		if !ok {
			continue
		}
		if err := d.walk(kidRef, next, visited, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// rebuildPageTree replaces the page tree with a single node listing the
// current pages.
func (d *Document) rebuildPageTree() {
	root, ok := d.raw.Objects[d.pagesRef].(*raw.DictObj)
	if !ok {
		root = raw.Dict()
		d.raw.Objects[d.pagesRef] = root
	}
	for _, k := range inheritable {
		root.Delete(k)
	}
	root.Delete("Parent")
	root.Set("Type", raw.NameLiteral("Pages"))
	kids := raw.NewArray()
	for _, ref := range d.pages {
		if page, ok := d.raw.Objects[ref].(*raw.DictObj); ok {
			page.Set("Parent", raw.RefObj{R: d.pagesRef})
		}
		kids.Append(raw.RefObj{R: ref})
	}
	root.Set("Kids", kids)
	root.Set("Count", raw.NumberInt(int64(len(d.pages))))
	if cat := d.catalog(); cat != nil {
		cat.Set("Pages", raw.RefObj{R: d.pagesRef})
	}
}

func (d *Document) PageCount() int { return len(d.pages) }

// Page returns the page at zero-based index i.
func (d *Document) Page(i int) (*Page, error) {
	if i < 0 || i >= len(d.pages) {
		return nil, ErrPageRange
	}
	return d.pageAt(i), nil
}

func (d *Document) pageAt(i int) *Page {
	ref := d.pages[i]
	dict, _ := d.raw.Objects[ref].(*raw.DictObj)
	return &Page{doc: d, Ref: ref, Dict: dict}
}

// Pages returns all pages in order.
func (d *Document) Pages() []*Page {
	out := make([]*Page, len(d.pages))
	for i := range d.pages {
		out[i] = d.pageAt(i)
	}
	return out
}

// RemovePage drops the page at index i from the page list.
func (d *Document) RemovePage(i int) error {
	if i < 0 || i >= len(d.pages) {
		return ErrPageRange
	}
	d.pages = append(d.pages[:i], d.pages[i+1:]...)
	return nil
}

// InsertPages places pages (owned by d) before index at.
func (d *Document) InsertPages(at int, pages ...*Page) error {
	if at < 0 || at > len(d.pages) {
		return ErrPageRange
	}
	refs := make([]raw.ObjectRef, 0, len(pages))
	for _, p := range pages {
		if p.doc != d {
			return errors.New("page belongs to another document")
		}
		refs = append(refs, p.Ref)
	}
	tail := append([]raw.ObjectRef{}, d.pages[at:]...)
	d.pages = append(append(d.pages[:at], refs...), tail...)
	return nil
}

// NewBlankPage creates a page object of the given box without adding it to
// the page list.
func (d *Document) NewBlankPage(box Rect) *Page {
	dict := raw.Dict()
	dict.Set("Type", raw.NameLiteral("Page"))
	dict.Set("MediaBox", box.array())
	dict.Set("Resources", raw.Dict())
	ref := d.raw.Add(dict)
	return &Page{doc: d, Ref: ref.R, Dict: dict}
}

// AddBlankPage appends an empty page of the given box.
func (d *Document) AddBlankPage(box Rect) *Page {
	p := d.NewBlankPage(box)
	d.pages = append(d.pages, p.Ref)
	return p
}

// InsertBlankPage inserts an empty page before index at.
func (d *Document) InsertBlankPage(at int, box Rect) (*Page, error) {
	p := d.NewBlankPage(box)
	if err := d.InsertPages(at, p); err != nil {
		delete(d.raw.Objects, p.Ref)
		return nil, err
	}
	return p, nil
}

// ReplacePage swaps the page at index i for page srcIndex of src.
func (d *Document) ReplacePage(i int, src *Document, srcIndex int) error {
	if i < 0 || i >= len(d.pages) {
		return ErrPageRange
	}
	imported, err := d.ImportPages(src, []int{srcIndex})
	if err != nil {
		return err
	}
	d.pages[i] = imported[0].Ref
	return nil
}

// AppendDocument imports every page of src and appends them.
func (d *Document) AppendDocument(src *Document) error {
	idx := make([]int, src.PageCount())
	for i := range idx {
		idx[i] = i
	}
	imported, err := d.ImportPages(src, idx)
	if err != nil {
		return err
	}
	return d.InsertPages(len(d.pages), imported...)
}
