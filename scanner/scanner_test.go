package scanner

import (
	"io"
	"testing"
)

func nextToken(t *testing.T, s *Scanner) Token {
	t.Helper()
	tok, err := s.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return tok
}

func TestScanner_BasicTokens(t *testing.T) {
	s := New([]byte("%PDF-1.7\n1 0 obj\n<< /Name /Value /Nums [1 2.5 -3] /Flag true /Null null /Ref 12 0 R >>\nendobj"))

	tok := nextToken(t, s)
	if tok.Type != TokenNumber || !tok.IsInt || tok.Int != 1 {
		t.Fatalf("expected first token number 1, got %+v", tok)
	}
	if tok = nextToken(t, s); tok.Type != TokenNumber || tok.Int != 0 {
		t.Fatalf("expected generation number 0, got %+v", tok)
	}
	if tok = nextToken(t, s); tok.Type != TokenKeyword || tok.Str != "obj" {
		t.Fatalf("expected obj keyword, got %+v", tok)
	}
	if tok = nextToken(t, s); tok.Type != TokenDict {
		t.Fatalf("expected dict start, got %+v", tok)
	}
	if tok = nextToken(t, s); tok.Type != TokenName || tok.Str != "Name" {
		t.Fatalf("expected Name key, got %+v", tok)
	}
	if tok = nextToken(t, s); tok.Type != TokenName || tok.Str != "Value" {
		t.Fatalf("expected Name value, got %+v", tok)
	}
	nextToken(t, s) // /Nums
	if tok = nextToken(t, s); tok.Type != TokenArray {
		t.Fatalf("expected array start, got %+v", tok)
	}
	if tok = nextToken(t, s); !tok.IsInt || tok.Int != 1 {
		t.Fatalf("expected 1, got %+v", tok)
	}
	if tok = nextToken(t, s); tok.IsInt || tok.Float != 2.5 {
		t.Fatalf("expected 2.5, got %+v", tok)
	}
	if tok = nextToken(t, s); !tok.IsInt || tok.Int != -3 {
		t.Fatalf("expected -3, got %+v", tok)
	}
	if tok = nextToken(t, s); tok.Type != TokenKeyword || tok.Str != "]" {
		t.Fatalf("expected array end, got %+v", tok)
	}
	nextToken(t, s) // /Flag
	if tok = nextToken(t, s); tok.Type != TokenBoolean || !tok.Bool {
		t.Fatalf("expected true, got %+v", tok)
	}
	nextToken(t, s) // /Null
	if tok = nextToken(t, s); tok.Type != TokenNull {
		t.Fatalf("expected null, got %+v", tok)
	}
	nextToken(t, s) // /Ref
	if tok = nextToken(t, s); tok.Type != TokenRef || tok.Num != 12 || tok.Gen != 0 {
		t.Fatalf("expected reference 12 0 R, got %+v", tok)
	}
	if tok = nextToken(t, s); tok.Type != TokenKeyword || tok.Str != ">>" {
		t.Fatalf("expected dict end, got %+v", tok)
	}
	if tok = nextToken(t, s); tok.Str != "endobj" {
		t.Fatalf("expected endobj, got %+v", tok)
	}
	if _, err := s.Next(); err != io.EOF {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestScanner_Strings(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		hex  bool
	}{
		{"plain", "(hello)", "hello", false},
		{"nested", "(a (b) c)", "a (b) c", false},
		{"escapes", `(a\nb\)\\)`, "a\nb)\\", false},
		{"octal", `(\101\102)`, "AB", false},
		{"continuation", "(ab\\\ncd)", "abcd", false},
		{"hex", "<48 65 6C6C6F>", "Hello", true},
		{"hex odd", "<414>", "A@", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tok := nextToken(t, New([]byte(tc.in)))
			if tok.Type != TokenString {
				t.Fatalf("expected string, got %+v", tok)
			}
			if string(tok.Bytes) != tc.want || tok.Hex != tc.hex {
				t.Fatalf("got %q hex=%v, want %q hex=%v", tok.Bytes, tok.Hex, tc.want, tc.hex)
			}
		})
	}
}

func TestScanner_NameEscapes(t *testing.T) {
	tok := nextToken(t, New([]byte("/A#20B")))
	if tok.Str != "A B" {
		t.Fatalf("got %q", tok.Str)
	}
}

func TestScanner_NumberNotReference(t *testing.T) {
	s := New([]byte("3 0 obj"))
	if tok := nextToken(t, s); tok.Type != TokenNumber || tok.Int != 3 {
		t.Fatalf("expected number, got %+v", tok)
	}
	if tok := nextToken(t, s); tok.Type != TokenNumber || tok.Int != 0 {
		t.Fatalf("expected number, got %+v", tok)
	}
}

func TestScanner_Unterminated(t *testing.T) {
	if _, err := New([]byte("(abc")).Next(); err != ErrUnterminated {
		t.Fatalf("expected ErrUnterminated, got %v", err)
	}
}
