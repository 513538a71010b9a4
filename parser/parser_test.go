package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/wudi/legalkit/filters"
	"github.com/wudi/legalkit/ir/raw"
	"github.com/wudi/legalkit/writer"
)

func buildDoc(t *testing.T) []byte {
	t.Helper()
	doc := raw.NewDocument()
	content := raw.NewStream(raw.Dict(), []byte("BT /F1 12 Tf (endstream inside) Tj ET"))
	contentRef := doc.Add(content)
	pages := raw.Dict()
	pages.Set("Type", raw.NameLiteral("Pages"))
	pagesRef := doc.Add(pages)
	page := raw.Dict()
	page.Set("Type", raw.NameLiteral("Page"))
	page.Set("Parent", pagesRef)
	page.Set("Contents", contentRef)
	pageRef := doc.Add(page)
	pages.Set("Kids", raw.NewArray(pageRef))
	pages.Set("Count", raw.NumberInt(1))
	cat := raw.Dict()
	cat.Set("Type", raw.NameLiteral("Catalog"))
	cat.Set("Pages", pagesRef)
	doc.Trailer.Set("Root", doc.Add(cat))
	out, err := writer.Bytes(context.Background(), doc, writer.Config{})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	return out
}

func TestParseRoundTrip(t *testing.T) {
	doc, err := Parse(context.Background(), buildDoc(t))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(doc.Objects) != 4 {
		t.Fatalf("expected 4 objects, got %d", len(doc.Objects))
	}
	stream, ok := doc.Objects[raw.ObjectRef{Num: 1}].(*raw.StreamObj)
	if !ok || string(stream.Data) != "BT /F1 12 Tf (endstream inside) Tj ET" {
		t.Fatalf("content stream not recovered: %#v", doc.Objects[raw.ObjectRef{Num: 1}])
	}
	if _, ok := doc.Trailer.Get("Size"); !ok {
		t.Fatalf("trailer lost /Size")
	}
}

func TestParseRecoversBrokenXRef(t *testing.T) {
	data := buildDoc(t)
	broken := bytes.Replace(data, []byte("startxref\n"), []byte("startxref\n9"), 1)
	doc, err := Parse(context.Background(), broken)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, ok := doc.ResolveDict(mustGet(doc.Trailer, "Root")); !ok {
		t.Fatalf("catalog not found after recovery")
	}
	if _, err := NewDocumentParser(Config{Strict: true}).Parse(context.Background(), broken); err == nil {
		t.Fatalf("strict parse should fail")
	}
}

func TestParseEncryptedRejected(t *testing.T) {
	data := buildDoc(t)
	enc := bytes.Replace(data, []byte("trailer\n<<"), []byte("trailer\n<</Encrypt 9 0 R"), 1)
	if _, err := Parse(context.Background(), enc); !errors.Is(err, ErrEncrypted) {
		t.Fatalf("expected ErrEncrypted, got %v", err)
	}
}

func TestParseObjectAndXRefStreams(t *testing.T) {
	var b bytes.Buffer
	b.WriteString("%PDF-1.5\n")
	objStm := "1 0 2 40 " // header pairs: obj 1 at 0, obj 2 at 40
	first := len(objStm)
	body := "<< /Type /Catalog /Pages 2 0 R >>"
	body += string(bytes.Repeat([]byte(" "), 40-len(body)))
	body += "<< /Type /Pages /Kids [] /Count 0 >>"
	payload, _ := filters.EncodeFlate([]byte(objStm + body))
	off3 := b.Len()
	fmt.Fprintf(&b, "3 0 obj\n<< /Type /ObjStm /N 2 /First %d /Filter /FlateDecode /Length %d >>\nstream\n", first, len(payload))
	b.Write(payload)
	b.WriteString("\nendstream\nendobj\n")

	rows := []byte{
		0, 0, 0, 255,
		2, 0, 3, 0,
		2, 0, 3, 1,
		1, byte(off3 >> 8), byte(off3), 0,
	}
	off4 := b.Len()
	rows = append(rows, 1, byte(off4>>8), byte(off4), 0)
	fmt.Fprintf(&b, "4 0 obj\n<< /Type /XRef /Size 5 /W [1 2 1] /Root 1 0 R /Length %d >>\nstream\n", len(rows))
	b.Write(rows)
	b.WriteString("\nendstream\nendobj\n")
	fmt.Fprintf(&b, "startxref\n%d\n%%%%EOF\n", off4)

	doc, err := NewDocumentParser(Config{Strict: true}).Parse(context.Background(), b.Bytes())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if doc.Version != "1.5" {
		t.Fatalf("version %q", doc.Version)
	}
	pages, ok := doc.ResolveDict(raw.Ref(2, 0))
	if !ok {
		t.Fatalf("object 2 not loaded from object stream")
	}
	if n, _ := pages.Int("Count"); n != 0 {
		t.Fatalf("unexpected count %d", n)
	}
	if _, ok := doc.Objects[raw.ObjectRef{Num: 3}]; ok {
		t.Fatalf("object stream container should be dropped")
	}
}

func TestObjectParserIndirectLength(t *testing.T) {
	data := []byte("1 0 obj\n<< /Length 2 0 R >>\nstream\nhello\nendstream\nendobj\n")
	p := NewObjectParser(data, func(ref raw.ObjectRef) (int64, bool) { return 5, ref.Num == 2 })
	ref, obj, err := p.ParseIndirectAt(0)
	if err != nil || ref.Num != 1 {
		t.Fatalf("parse: %v %v", ref, err)
	}
	if s := obj.(*raw.StreamObj); string(s.Data) != "hello" {
		t.Fatalf("data %q", s.Data)
	}
}
