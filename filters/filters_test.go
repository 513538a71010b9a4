package filters

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/wudi/legalkit/ir/raw"
)

func TestFlateRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("BT /F1 12 Tf (hello) Tj ET\n"), 20)
	enc, err := EncodeFlate(payload)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	dict := raw.Dict()
	dict.Set("Filter", raw.NameLiteral("FlateDecode"))
	out, err := Default().DecodeStream(context.Background(), raw.NewStream(dict, enc))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(out, payload) {
		t.Fatalf("payload mismatch")
	}
}

func TestPNGUpPredictor(t *testing.T) {
	// two rows of three columns; second row uses the Up filter
	decoded := []byte{0, 1, 2, 3, 2, 1, 1, 1}
	enc, _ := EncodeFlate(decoded)
	params := raw.Dict()
	params.Set("Predictor", raw.NumberInt(12))
	params.Set("Columns", raw.NumberInt(3))
	out, err := Default().Decode(context.Background(), enc, []string{"FlateDecode"}, []*raw.DictObj{params})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []byte{1, 2, 3, 2, 3, 4}
	if !bytes.Equal(out, want) {
		t.Fatalf("got %v want %v", out, want)
	}
}

func TestASCIIDecoders(t *testing.T) {
	ctx := context.Background()
	out, err := Default().Decode(ctx, []byte("48656C6C6F>"), []string{"ASCIIHexDecode"}, nil)
	if err != nil || string(out) != "Hello" {
		t.Fatalf("hex: %q %v", out, err)
	}
	out, err = Default().Decode(ctx, []byte("<~87cURD]i,\"Ebo80~>"), []string{"ASCII85Decode"}, nil)
	if err != nil || string(out) != "Hello World" {
		t.Fatalf("a85: %q %v", out, err)
	}
}

func TestUnsupportedFilter(t *testing.T) {
	_, err := Default().Decode(context.Background(), []byte{1}, []string{"DCTDecode"}, nil)
	if !errors.Is(err, ErrUnsupportedFilter) {
		t.Fatalf("expected ErrUnsupportedFilter, got %v", err)
	}
}

func TestExtractFiltersArray(t *testing.T) {
	d := raw.Dict()
	d.Set("Filter", raw.NewArray(raw.NameLiteral("ASCII85Decode"), raw.NameLiteral("FlateDecode")))
	d.Set("DecodeParms", raw.NewArray(raw.NullObj{}, raw.Dict()))
	names, params := ExtractFilters(d)
	if len(names) != 2 || names[1] != "FlateDecode" {
		t.Fatalf("names %v", names)
	}
	if len(params) != 2 || params[0] != nil || params[1] == nil {
		t.Fatalf("params %v", params)
	}
}
