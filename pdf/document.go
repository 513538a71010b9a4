// Package pdf is the document model used by the assembly commands: it loads a
// file into raw objects, exposes a flat page list, and writes the result back
// with a rebuilt page tree.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/wudi/legalkit/filters"
	"github.com/wudi/legalkit/ir/raw"
	"github.com/wudi/legalkit/parser"
	"github.com/wudi/legalkit/writer"
)

// ErrPageRange is returned for page indexes outside the document.
var ErrPageRange = errors.New("page index out of range")

// Letter is the default media box for pages that declare none.
var Letter = Rect{URX: 612, URY: 792}

type Document struct {
	raw      *raw.Document
	pagesRef raw.ObjectRef
	pages    []raw.ObjectRef
	fonts    map[string]raw.RefObj
	pipeline *filters.Pipeline
}

// SaveOptions controls serialization.
type SaveOptions struct {
	Compress bool
}

// New returns an empty document with a catalog and an empty page tree.
func New() *Document {
	doc := raw.NewDocument()
	pages := raw.Dict()
	pages.Set("Type", raw.NameLiteral("Pages"))
	pages.Set("Kids", raw.NewArray())
	pages.Set("Count", raw.NumberInt(0))
	pagesRef := doc.Add(pages)
	cat := raw.Dict()
	cat.Set("Type", raw.NameLiteral("Catalog"))
	cat.Set("Pages", pagesRef)
	doc.Trailer.Set("Root", doc.Add(cat))
	return &Document{raw: doc, pagesRef: pagesRef.R, pipeline: filters.Default()}
}

// Load parses data and flattens its page tree.
func Load(ctx context.Context, data []byte) (*Document, error) {
	rd, err := parser.Parse(ctx, data)
	if err != nil {
		return nil, err
	}
	d := &Document{raw: rd, pipeline: filters.Default()}
	if err := d.flattenPages(); err != nil {
		return nil, err
	}
	return d, nil
}

// Open loads the file at path from fsys.
func Open(ctx context.Context, fsys afero.Fs, path string) (*Document, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, err
	}
	doc, err := Load(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("failed to load PDF %s: %w", path, err)
	}
	return doc, nil
}

// Raw exposes the underlying object store.
func (d *Document) Raw() *raw.Document { return d.raw }

func (d *Document) Version() string { return d.raw.Version }

func (d *Document) catalog() *raw.DictObj {
	root, _ := d.raw.Trailer.Get("Root")
	cat, _ := d.raw.ResolveDict(root)
	return cat
}

// Write serializes the document. Objects not reachable from the catalog or
// the Info dictionary are dropped.
func (d *Document) Write(ctx context.Context, w io.Writer, opts SaveOptions) error {
	d.rebuildPageTree()
	live := d.collect()
	return writer.New().Write(ctx, live, w, writer.Config{Compress: opts.Compress, Deterministic: true})
}

// Bytes returns the serialized document.
func (d *Document) Bytes(ctx context.Context, opts SaveOptions) ([]byte, error) {
	var buf bytes.Buffer
	if err := d.Write(ctx, &buf, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Size returns the serialized length in bytes.
func (d *Document) Size(ctx context.Context) (int64, error) {
	var cw countWriter
	if err := d.Write(ctx, &cw, SaveOptions{}); err != nil {
		return 0, err
	}
	return int64(cw), nil
}

type countWriter int64

func (c *countWriter) Write(p []byte) (int, error) {
	*c += countWriter(len(p))
	return len(p), nil
}

// Save writes the document to a temporary file next to path and renames it
// into place, so a failed save never leaves a truncated output.
func (d *Document) Save(ctx context.Context, fsys afero.Fs, path string) error {
	dir := filepath.Dir(path)
	tmp, err := afero.TempFile(fsys, dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if err := d.Write(ctx, tmp, SaveOptions{}); err != nil {
		tmp.Close()
		fsys.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		fsys.Remove(tmpName)
		return err
	}
	if err := fsys.Rename(tmpName, path); err != nil {
		fsys.Remove(tmpName)
		return err
	}
	return nil
}

// SaveFile is Save on the OS file system.
func (d *Document) SaveFile(ctx context.Context, path string) error {
	return d.Save(ctx, afero.NewOsFs(), path)
}

// OpenFile is Open on the OS file system.
func OpenFile(ctx context.Context, path string) (*Document, error) {
	return Open(ctx, afero.NewOsFs(), path)
}

// collect copies the live object graph into a fresh raw document.
// References to page objects no longer in the page list become null.
func (d *Document) collect() *raw.Document {
	live := raw.NewDocument()
	live.Version = d.raw.Version
	current := make(map[raw.ObjectRef]bool, len(d.pages))
	for _, ref := range d.pages {
		current[ref] = true
	}
	var visit func(obj raw.Object) raw.Object
	visit = func(obj raw.Object) raw.Object {
		switch v := obj.(type) {
		case raw.RefObj:
			target, ok := d.raw.Objects[v.R]
			if !ok {
				return raw.NullObj{}
			}
			if !current[v.R] && isPage(target) {
				return raw.NullObj{}
			}
			if _, seen := live.Objects[v.R]; !seen {
				live.Objects[v.R] = raw.NullObj{}
				live.Objects[v.R] = visit(target)
			}
			return v
		case *raw.ArrayObj:
			for i, item := range v.Items {
				v.Items[i] = visit(item)
			}
		case *raw.DictObj:
			for _, k := range v.Keys() {
				v.KV[k] = visit(v.KV[k])
			}
		case *raw.StreamObj:
			visit(v.Dict)
		}
		return obj
	}
	for _, k := range []string{"Root", "Info", "ID"} {
		if o, ok := d.raw.Trailer.Get(k); ok {
			live.Trailer.Set(k, visit(o))
		}
	}
	return live
}

func isPage(obj raw.Object) bool {
	d, ok := obj.(*raw.DictObj)
	if !ok {
		return false
	}
	t, _ := d.Name("Type")
	return t == "Page"
}

// AddObject stores obj as a new indirect object.
func (d *Document) AddObject(obj raw.Object) raw.RefObj { return d.raw.Add(obj) }

// Shared returns the object registered under key, building and storing it
// on first use. Fonts drawn on many pages are added once this way.
func (d *Document) Shared(key string, build func() raw.Object) raw.RefObj {
	if ref, ok := d.fonts[key]; ok {
		return ref
	}
	if d.fonts == nil {
		d.fonts = make(map[string]raw.RefObj)
	}
	ref := d.raw.Add(build())
	d.fonts[key] = ref
	return ref
}
