package pdf

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/afero"

	"github.com/wudi/legalkit/filters"
	"github.com/wudi/legalkit/ir/raw"
)

func reload(t *testing.T, d *Document) *Document {
	t.Helper()
	data, err := d.Bytes(context.Background(), SaveOptions{})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	out, err := Load(context.Background(), data)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return out
}

func TestBlankPagesRoundTrip(t *testing.T) {
	d := New()
	d.AddBlankPage(Letter)
	d.AddBlankPage(Rect{URX: 842, URY: 595})
	got := reload(t, d)
	if got.PageCount() != 2 {
		t.Fatalf("pages = %d", got.PageCount())
	}
	p, _ := got.Page(1)
	if !p.MediaBox().Landscape() || p.RotatedWidth() != 842 {
		t.Fatalf("unexpected box %+v", p.MediaBox())
	}
}

func TestRotation(t *testing.T) {
	d := New()
	p := d.AddBlankPage(Rect{URX: 842, URY: 595})
	if !p.RotatePortrait() {
		t.Fatalf("landscape page should be turned")
	}
	if p.Rotation() != 90 || !p.IsRotated() {
		t.Fatalf("rotation = %d", p.Rotation())
	}
	if p.RotatedWidth() != 595 || p.RotatedHeight() != 842 {
		t.Fatalf("rotated size %vx%v", p.RotatedWidth(), p.RotatedHeight())
	}
	if p.RotatePortrait() {
		t.Fatalf("portrait page must not be turned again")
	}
	p.SetRotation(-90)
	if p.Rotation() != 270 {
		t.Fatalf("normalized rotation = %d", p.Rotation())
	}
}

func TestInheritedAttributesFlattened(t *testing.T) {
	rd := raw.NewDocument()
	leaf := raw.Dict()
	leaf.Set("Type", raw.NameLiteral("Page"))
	leafRef := rd.Add(leaf)
	mid := raw.Dict()
	mid.Set("Type", raw.NameLiteral("Pages"))
	mid.Set("Kids", raw.NewArray(leafRef))
	mid.Set("Rotate", raw.NumberInt(90))
	midRef := rd.Add(mid)
	root := raw.Dict()
	root.Set("Type", raw.NameLiteral("Pages"))
	root.Set("Kids", raw.NewArray(midRef))
	root.Set("MediaBox", raw.NewArray(raw.NumberInt(0), raw.NumberInt(0), raw.NumberInt(100), raw.NumberInt(200)))
	rootRef := rd.Add(root)
	cat := raw.Dict()
	cat.Set("Type", raw.NameLiteral("Catalog"))
	cat.Set("Pages", rootRef)
	rd.Trailer.Set("Root", rd.Add(cat))

	d := &Document{raw: rd, pipeline: filters.Default()}
	if err := d.flattenPages(); err != nil {
		t.Fatalf("flatten: %v", err)
	}
	got := reload(t, d)
	p, err := got.Page(0)
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if p.Rotation() != 90 || p.MediaBox().Height() != 200 {
		t.Fatalf("inherited attributes lost: rot=%d box=%+v", p.Rotation(), p.MediaBox())
	}
	if len(got.Raw().Objects) != 3 {
		t.Fatalf("intermediate page tree node should be dropped, objects=%d", len(got.Raw().Objects))
	}
}

func TestAppendDocumentSharesResources(t *testing.T) {
	src := New()
	font := src.AddObject(raw.Dict())
	for i := 0; i < 3; i++ {
		p := src.AddBlankPage(Letter)
		p.AddFont(font)
	}
	dst := New()
	dst.AddBlankPage(Letter)
	before := len(dst.Raw().Objects)
	if err := dst.AppendDocument(src); err != nil {
		t.Fatalf("append: %v", err)
	}
	if dst.PageCount() != 4 {
		t.Fatalf("pages = %d", dst.PageCount())
	}
	// three pages plus one shared font
	if added := len(dst.Raw().Objects) - before; added != 4 {
		t.Fatalf("expected 4 new objects, got %d", added)
	}
	if reload(t, dst).PageCount() != 4 {
		t.Fatalf("reloaded page count wrong")
	}
}

func TestRemoveAndInsertPages(t *testing.T) {
	d := New()
	for i := 0; i < 4; i++ {
		d.AddBlankPage(Rect{URX: float64(100 + i), URY: 100})
	}
	if err := d.RemovePage(1); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := d.InsertBlankPage(0, Rect{URX: 50, URY: 50}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	got := reload(t, d)
	var widths []float64
	for _, p := range got.Pages() {
		widths = append(widths, p.MediaBox().Width())
	}
	want := []float64{50, 100, 102, 103}
	for i := range want {
		if widths[i] != want[i] {
			t.Fatalf("widths = %v, want %v", widths, want)
		}
	}
	if err := d.RemovePage(9); err != ErrPageRange {
		t.Fatalf("expected ErrPageRange, got %v", err)
	}
}

func TestReplacePage(t *testing.T) {
	d := New()
	d.AddBlankPage(Letter)
	d.AddBlankPage(Letter)
	src := New()
	src.AddBlankPage(Rect{URX: 10, URY: 20})
	if err := d.ReplacePage(1, src, 0); err != nil {
		t.Fatalf("replace: %v", err)
	}
	p, _ := reload(t, d).Page(1)
	if p.MediaBox().Width() != 10 {
		t.Fatalf("page not replaced")
	}
}

func TestLinksRetarget(t *testing.T) {
	d := New()
	first := d.AddBlankPage(Letter)
	target := d.AddBlankPage(Letter)
	first.AddURILink(Rect{URX: 10, URY: 10}, "https://example.com/doc")
	links := first.Links()
	if len(links) != 1 {
		t.Fatalf("links = %d", len(links))
	}
	uri, ok := links[0].URI()
	if !ok || uri != "https://example.com/doc" {
		t.Fatalf("uri = %q", uri)
	}
	links[0].SetGoTo(target)
	got := reload(t, d)
	p, _ := got.Page(0)
	l := p.Links()[0]
	if _, ok := l.URI(); ok {
		t.Fatalf("link still has URI action")
	}
	act, _ := got.Raw().ResolveDict(mustGet(l.Annot, "A"))
	dest, _ := got.Raw().ResolveArray(mustGet(act, "D"))
	if ref, ok := dest.Items[0].(raw.RefObj); !ok || ref.R != got.Pages()[1].Ref {
		t.Fatalf("destination does not point at page 2: %v", dest.Items)
	}
}

func mustGet(d *raw.DictObj, key string) raw.Object {
	o, _ := d.Get(key)
	return o
}

func TestInfoRoundTrip(t *testing.T) {
	d := New()
	d.SetInfo("Title", "Affidavit")
	d.SetInfo("Author", "Žofie Nováková")
	d.SetInfo("Subject", "x")
	d.DeleteInfo("Subject")
	got := reload(t, d)
	if v, _ := got.Info("Title"); v != "Affidavit" {
		t.Fatalf("title = %q", v)
	}
	if v, _ := got.Info("Author"); v != "Žofie Nováková" {
		t.Fatalf("author = %q", v)
	}
	if keys := got.InfoKeys(); len(keys) != 2 {
		t.Fatalf("keys = %v", keys)
	}
	got.ClearInfo()
	if len(got.InfoKeys()) != 0 {
		t.Fatalf("info not cleared")
	}
}

func TestAppendContentAndDecompress(t *testing.T) {
	d := New()
	p := d.AddBlankPage(Letter)
	enc, _ := filters.EncodeFlate([]byte("0 0 m 10 10 l S"))
	sd := raw.Dict()
	sd.Set("Filter", raw.NameLiteral("FlateDecode"))
	p.Dict.Set("Contents", d.AddObject(raw.NewStream(sd, enc)))
	p.AppendContent([]byte("BT ET"))

	if err := d.Decompress(context.Background(), nil); err != nil {
		t.Fatalf("decompress: %v", err)
	}
	content, err := p.ContentBytes(context.Background())
	if err != nil {
		t.Fatalf("content: %v", err)
	}
	if !bytes.Equal(content, []byte("q\n\n0 0 m 10 10 l S\n\nQ\n\nBT ET\n")) {
		t.Fatalf("content = %q", content)
	}
}

func TestSaveViaTempFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := fs.MkdirAll("/out", 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	d := New()
	d.AddBlankPage(Letter)
	if err := d.Save(context.Background(), fs, "/out/result.pdf"); err != nil {
		t.Fatalf("save: %v", err)
	}
	entries, _ := afero.ReadDir(fs, "/out")
	if len(entries) != 1 || entries[0].Name() != "result.pdf" {
		t.Fatalf("unexpected files %v", entries)
	}
	got, err := Open(context.Background(), fs, "/out/result.pdf")
	if err != nil || got.PageCount() != 1 {
		t.Fatalf("open: %v", err)
	}
}

func TestDeduplicateStreams(t *testing.T) {
	d := New()
	for i := 0; i < 3; i++ {
		d.AddBlankPage(Letter).AppendContent([]byte("0 0 m 10 10 l S"))
	}
	d.AddBlankPage(Letter).AppendContent([]byte("1 1 m"))
	before, err := d.Size(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n := d.DeduplicateStreams(); n != 2 {
		t.Fatalf("removed = %d, want 2", n)
	}
	if n := d.DeduplicateStreams(); n != 0 {
		t.Fatalf("second pass removed = %d", n)
	}
	after, err := d.Size(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if after >= before {
		t.Fatalf("size %d not below %d", after, before)
	}
	got := reload(t, d)
	for i, want := range []string{"0 0 m 10 10 l S", "0 0 m 10 10 l S", "0 0 m 10 10 l S", "1 1 m"} {
		p, _ := got.Page(i)
		data, err := p.ContentBytes(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Contains(data, []byte(want)) {
			t.Fatalf("page %d content %q", i, data)
		}
	}
}
