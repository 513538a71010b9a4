package parser

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/wudi/legalkit/filters"
	"github.com/wudi/legalkit/ir/raw"
	"github.com/wudi/legalkit/xref"
)

var (
	// ErrEncrypted is returned for documents carrying an /Encrypt dictionary.
	ErrEncrypted = errors.New("encrypted documents are not supported")
	// ErrNoRoot is returned when neither the trailer nor a scan yields a catalog.
	ErrNoRoot = errors.New("document has no catalog")
)

var headerVersion = regexp.MustCompile(`%PDF-(\d\.\d)`)

// Config controls document parsing.
type Config struct {
	Pipeline *filters.Pipeline
	// Strict disables the object scan used when the xref chain is broken.
	Strict bool
}

// DocumentParser builds a raw.Document from a complete file image.
type DocumentParser struct {
	cfg Config
}

func NewDocumentParser(cfg Config) *DocumentParser {
	if cfg.Pipeline == nil {
		cfg.Pipeline = filters.Default()
	}
	return &DocumentParser{cfg: cfg}
}

// Parse is shorthand for NewDocumentParser(Config{}).Parse.
func Parse(ctx context.Context, data []byte) (*raw.Document, error) {
	return NewDocumentParser(Config{}).Parse(ctx, data)
}

func (p *DocumentParser) Parse(ctx context.Context, data []byte) (*raw.Document, error) {
	l := &loader{
		ctx:      ctx,
		data:     data,
		pipeline: p.cfg.Pipeline,
		objects:  make(map[int]raw.Object),
		loading:  make(map[int]bool),
		streams:  make(map[int]map[int]raw.Object),
	}
	l.parser = NewObjectParser(data, l.length)

	table, trailer, err := l.readChain()
	if err != nil || trailer == nil || !hasRoot(trailer) {
		if p.cfg.Strict {
			if err == nil {
				err = ErrNoRoot
			}
			return nil, fmt.Errorf("resolve xref: %w", err)
		}
		table, trailer = l.recover()
	}
	l.table = table

	if _, ok := trailer.Get("Encrypt"); ok {
		return nil, ErrEncrypted
	}

	doc := raw.NewDocument()
	doc.Trailer = trailer
	if v := Version(data); v != "" {
		doc.Version = v
	}

	for i, num := range table.Objects() {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		obj, gen, ok := l.object(num)
		if !ok || isXRefMachinery(obj) {
			continue
		}
		doc.Objects[raw.ObjectRef{Num: num, Gen: gen}] = obj
	}
	if !hasRoot(doc.Trailer) {
		return nil, ErrNoRoot
	}
	if root, ok := doc.ResolveDict(mustGet(doc.Trailer, "Root")); !ok || root == nil {
		return nil, ErrNoRoot
	}
	for _, k := range []string{"Prev", "XRefStm", "Index", "W", "Filter", "DecodeParms", "Length", "Type"} {
		doc.Trailer.Delete(k)
	}
	return doc, nil
}

func mustGet(d *raw.DictObj, key string) raw.Object {
	o, ok := d.Get(key)
	if !ok {
		return raw.NullObj{}
	}
	return o
}

func hasRoot(trailer *raw.DictObj) bool {
	_, ok := trailer.Get("Root")
	return ok
}

// isXRefMachinery reports object and xref streams, which are rebuilt on save.
func isXRefMachinery(obj raw.Object) bool {
	s, ok := obj.(*raw.StreamObj)
	if !ok {
		return false
	}
	t, _ := s.Dict.Name("Type")
	return t == "XRef" || t == "ObjStm"
}

type loader struct {
	ctx      context.Context
	data     []byte
	pipeline *filters.Pipeline
	parser   *ObjectParser
	table    *xref.Table
	scanned  *xref.Table
	objects  map[int]raw.Object
	gens     map[int]int
	loading  map[int]bool
	streams  map[int]map[int]raw.Object
}

// readChain walks startxref and every /Prev and /XRefStm section.
func (l *loader) readChain() (*xref.Table, *raw.DictObj, error) {
	offset, err := xref.FindStartXRef(l.data)
	if err != nil {
		return nil, nil, err
	}
	table := xref.NewTable()
	var trailer *raw.DictObj
	seen := make(map[int64]bool)
	for !seen[offset] {
		seen[offset] = true
		section, dict, err := l.readSection(offset)
		if err != nil {
			return nil, nil, err
		}
		table.Merge(section)
		if trailer == nil {
			trailer = raw.Clone(dict).(*raw.DictObj)
		}
		prev, ok := dict.Int("Prev")
		if !ok {
			break
		}
		offset = prev
	}
	return table, trailer, nil
}

func (l *loader) readSection(offset int64) (*xref.Table, *raw.DictObj, error) {
	if xref.IsClassic(l.data, offset) {
		table, pos, err := xref.ParseClassic(l.data, offset)
		if err != nil {
			return nil, nil, err
		}
		if err := l.parser.Seek(pos); err != nil {
			return nil, nil, err
		}
		obj, err := l.parser.ParseObject()
		if err != nil {
			return nil, nil, fmt.Errorf("trailer: %w", err)
		}
		dict, ok := obj.(*raw.DictObj)
		if !ok {
			return nil, nil, errors.New("trailer is not a dictionary")
		}
		if stm, ok := dict.Int("XRefStm"); ok {
			hidden, _, err := l.readStreamSection(stm)
			if err == nil {
				hidden.Merge(table)
				table = hidden
			}
		}
		return table, dict, nil
	}
	return l.readStreamSection(offset)
}

func (l *loader) readStreamSection(offset int64) (*xref.Table, *raw.DictObj, error) {
	if offset < 0 || offset >= int64(len(l.data)) {
		return nil, nil, fmt.Errorf("xref offset %d out of range", offset)
	}
	_, obj, err := l.parser.ParseIndirectAt(offset)
	if err != nil {
		return nil, nil, err
	}
	stream, ok := obj.(*raw.StreamObj)
	if !ok {
		return nil, nil, errors.New("xref offset does not point at a stream")
	}
	if t, _ := stream.Dict.Name("Type"); t != "XRef" {
		return nil, nil, errors.New("stream at xref offset is not /XRef")
	}
	decoded, err := l.pipeline.DecodeStream(l.ctx, stream)
	if err != nil {
		return nil, nil, err
	}
	table, err := xref.DecodeStream(stream.Dict, decoded)
	if err != nil {
		return nil, nil, err
	}
	return table, stream.Dict, nil
}

// recover rebuilds the table from object headers and merges every trailer
// found in the file; an /XRef stream dictionary or a catalog stands in when
// there is no trailer.
func (l *loader) recover() (*xref.Table, *raw.DictObj) {
	table := xref.Scan(l.data)
	l.table = table
	trailer := raw.Dict()
	for _, pos := range xref.Trailers(l.data) {
		if err := l.parser.Seek(pos); err != nil {
			continue
		}
		obj, err := l.parser.ParseObject()
		if err != nil {
			continue
		}
		if d, ok := obj.(*raw.DictObj); ok {
			for _, k := range d.Keys() {
				trailer.Set(k, d.KV[k])
			}
		}
	}
	if hasRoot(trailer) {
		return table, trailer
	}
	for _, num := range table.Objects() {
		obj, gen, ok := l.object(num)
		if !ok {
			continue
		}
		switch v := obj.(type) {
		case *raw.StreamObj:
			if t, _ := v.Dict.Name("Type"); t == "XRef" {
				for _, k := range []string{"Root", "Info", "ID"} {
					if o, ok := v.Dict.Get(k); ok {
						trailer.Set(k, o)
					}
				}
			}
		case *raw.DictObj:
			if t, _ := v.Name("Type"); t == "Catalog" && !hasRoot(trailer) {
				trailer.Set("Root", raw.Ref(num, gen))
			}
		}
	}
	return table, trailer
}

// object loads object num, consulting object streams for compressed entries.
func (l *loader) object(num int) (raw.Object, int, bool) {
	if obj, ok := l.objects[num]; ok {
		return obj, l.gen(num), obj != nil
	}
	if l.loading[num] || l.table == nil {
		return nil, 0, false
	}
	e, ok := l.table.Lookup(num)
	if !ok || e.Type == xref.Free {
		return nil, 0, false
	}
	l.loading[num] = true
	defer delete(l.loading, num)

	var obj raw.Object
	switch e.Type {
	case xref.InUse:
		if e.Offset <= 0 || e.Offset >= int64(len(l.data)) {
			break
		}
		ref, parsed, err := l.parser.ParseIndirectAt(e.Offset)
		if err == nil && ref.Num == num {
			obj = parsed
			l.setGen(num, ref.Gen)
		}
	case xref.Compressed:
		obj = l.compressed(e.Stream, num)
	}
	if obj == nil && e.Type == xref.InUse {
		obj = l.rescue(num)
	}
	l.objects[num] = obj
	return obj, l.gen(num), obj != nil
}

// rescue finds num by scanning object headers when its xref offset is stale.
func (l *loader) rescue(num int) raw.Object {
	if l.scanned == nil {
		l.scanned = xref.Scan(l.data)
	}
	e, ok := l.scanned.Lookup(num)
	if !ok {
		return nil
	}
	ref, obj, err := l.parser.ParseIndirectAt(e.Offset)
	if err != nil || ref.Num != num {
		return nil
	}
	l.setGen(num, ref.Gen)
	return obj
}

func (l *loader) gen(num int) int {
	if l.gens == nil {
		return 0
	}
	return l.gens[num]
}

func (l *loader) setGen(num, gen int) {
	if gen == 0 {
		return
	}
	if l.gens == nil {
		l.gens = make(map[int]int)
	}
	l.gens[num] = gen
}

func (l *loader) compressed(streamNum, num int) raw.Object {
	if objs, ok := l.streams[streamNum]; ok {
		return objs[num]
	}
	objs := make(map[int]raw.Object)
	l.streams[streamNum] = objs

	container, _, ok := l.object(streamNum)
	if !ok {
		return nil
	}
	stream, ok := container.(*raw.StreamObj)
	if !ok {
		return nil
	}
	decoded, err := l.pipeline.DecodeStream(l.ctx, stream)
	if err != nil {
		return nil
	}
	n, _ := stream.Dict.Int("N")
	first, _ := stream.Dict.Int("First")
	if first < 0 || first > int64(len(decoded)) {
		return nil
	}
	p := NewObjectParser(decoded, l.length)
	header := make([]int64, 0, 2*n)
	for i := int64(0); i < 2*n; i++ {
		obj, err := p.ParseObject()
		if err != nil {
			break
		}
		v, ok := obj.(raw.NumberObj)
		if !ok {
			break
		}
		header = append(header, v.Int())
	}
	for i := 0; i+1 < len(header); i += 2 {
		pos := first + header[i+1]
		if pos >= int64(len(decoded)) {
			continue
		}
		if err := p.Seek(int(pos)); err != nil {
			continue
		}
		obj, err := p.ParseObject()
		if err != nil {
			continue
		}
		objs[int(header[i])] = obj
	}
	return objs[num]
}

func (l *loader) length(ref raw.ObjectRef) (int64, bool) {
	if l.table == nil {
		return 0, false
	}
	// Resolve on a separate parser so the caller's position is untouched.
	saved := l.parser
	l.parser = NewObjectParser(l.data, l.length)
	defer func() { l.parser = saved }()
	obj, _, ok := l.object(ref.Num)
	if !ok {
		return 0, false
	}
	n, ok := obj.(raw.NumberObj)
	return n.Int(), ok
}

// Version returns the header version of data, or "" when absent.
func Version(data []byte) string {
	if m := headerVersion.FindSubmatch(data[:min(len(data), 1024)]); m != nil {
		return string(m[1])
	}
	return ""
}
