package writer

import (
	"bufio"
	"bytes"
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"io"

	"github.com/wudi/legalkit/filters"
	"github.com/wudi/legalkit/ir/raw"
)

type Config struct {
	// Compress flate-encodes streams that carry no filter.
	Compress bool
	// Deterministic derives a missing /ID from the object bytes.
	Deterministic bool
}

// Writer serializes raw documents as classic xref files.
type Writer interface {
	Write(ctx context.Context, doc *raw.Document, w io.Writer, cfg Config) error
	SerializeObject(ref raw.ObjectRef, obj raw.Object) ([]byte, error)
}

type impl struct{}

func New() Writer { return impl{} }

// Bytes writes doc with cfg into memory.
func Bytes(ctx context.Context, doc *raw.Document, cfg Config) ([]byte, error) {
	var buf bytes.Buffer
	if err := New().Write(ctx, doc, &buf, cfg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type countingWriter struct {
	w *bufio.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

func (impl) SerializeObject(ref raw.ObjectRef, obj raw.Object) ([]byte, error) {
	var b bytes.Buffer
	fmt.Fprintf(&b, "%d %d obj\n", ref.Num, ref.Gen)
	b.Write(serializePrimitive(obj))
	b.WriteString("\nendobj\n")
	return b.Bytes(), nil
}

func (w impl) Write(ctx context.Context, doc *raw.Document, out io.Writer, cfg Config) error {
	if doc == nil || doc.Trailer == nil {
		return errors.New("document has no trailer")
	}
	if _, ok := doc.Trailer.Get("Root"); !ok {
		return errors.New("trailer has no /Root")
	}
	cw := &countingWriter{w: bufio.NewWriter(out)}
	version := doc.Version
	if version == "" {
		version = "1.7"
	}
	fmt.Fprintf(cw, "%%PDF-%s\n%%\xE2\xE3\xCF\xD3\n", version)

	refs := doc.Refs()
	offsets := make(map[int]int64, len(refs))
	gens := make(map[int]int, len(refs))
	digest := md5.New()
	for i, ref := range refs {
		if i%512 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		obj := doc.Objects[ref]
		if cfg.Compress {
			obj = compressStream(obj)
		}
		data, err := w.SerializeObject(ref, obj)
		if err != nil {
			return err
		}
		offsets[ref.Num] = cw.n
		gens[ref.Num] = ref.Gen
		if _, err := cw.Write(data); err != nil {
			return err
		}
		if cfg.Deterministic {
			digest.Write(data)
		}
	}

	size := doc.MaxObjectNumber() + 1
	xrefOffset := cw.n
	fmt.Fprintf(cw, "xref\n0 %d\n", size)
	cw.Write([]byte("0000000000 65535 f\r\n"))
	for num := 1; num < size; num++ {
		if off, ok := offsets[num]; ok {
			fmt.Fprintf(cw, "%010d %05d n\r\n", off, gens[num])
		} else {
			cw.Write([]byte("0000000000 00001 f\r\n"))
		}
	}

	trailer := buildTrailer(doc.Trailer, size)
	if _, ok := trailer.Get("ID"); !ok && cfg.Deterministic {
		sum := digest.Sum(nil)
		id := raw.StringObj{Bytes: sum, Hex: true}
		trailer.Set("ID", raw.NewArray(id, id))
	}
	cw.Write([]byte("trailer\n"))
	cw.Write(serializePrimitive(trailer))
	fmt.Fprintf(cw, "\nstartxref\n%d\n%%%%EOF\n", xrefOffset)
	return cw.w.Flush()
}

func buildTrailer(src *raw.DictObj, size int) *raw.DictObj {
	trailer := raw.Dict()
	for _, k := range []string{"Root", "Info", "ID"} {
		if v, ok := src.Get(k); ok {
			trailer.Set(k, v)
		}
	}
	trailer.Set("Size", raw.NumberInt(int64(size)))
	return trailer
}

func compressStream(obj raw.Object) raw.Object {
	s, ok := obj.(*raw.StreamObj)
	if !ok || len(s.Data) < 64 {
		return obj
	}
	if _, has := s.Dict.Get("Filter"); has {
		return obj
	}
	enc, err := filters.EncodeFlate(s.Data)
	if err != nil || len(enc) >= len(s.Data) {
		return obj
	}
	d := raw.Clone(s.Dict).(*raw.DictObj)
	d.Set("Filter", raw.NameLiteral("FlateDecode"))
	d.Delete("DecodeParms")
	return raw.NewStream(d, enc)
}
