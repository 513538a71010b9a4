package scanner

import (
	"bytes"
	"errors"
	"io"
	"strconv"
)

type TokenType int

const (
	TokenDict    TokenType = iota // '<<'
	TokenArray                    // '['
	TokenName                     // '/Name'
	TokenString                   // literal or hex string
	TokenNumber                   // numeric value
	TokenBoolean                  // true/false
	TokenNull                     // null
	TokenRef                      // indirect ref '5 0 R'
	TokenKeyword                  // other keywords (obj, endobj, stream, >>, ], etc.)
)

// Token is a lexical unit. Only the fields relevant to Type are set.
type Token struct {
	Type  TokenType
	Str   string // name (without slash) or keyword
	Bytes []byte // decoded string bytes
	Hex   bool
	Int   int64
	Float float64
	IsInt bool
	Bool  bool
	Num   int // reference object number
	Gen   int // reference generation
	Pos   int
}

var ErrUnterminated = errors.New("unterminated token")

// Scanner tokenizes an in-memory PDF byte slice.
type Scanner struct {
	data []byte
	pos  int
}

func New(data []byte) *Scanner { return &Scanner{data: data} }

func (s *Scanner) Data() []byte  { return s.data }
func (s *Scanner) Position() int { return s.pos }

func (s *Scanner) Seek(offset int) error {
	if offset < 0 || offset > len(s.data) {
		return errors.New("seek out of range")
	}
	s.pos = offset
	return nil
}

// Next returns the next token or io.EOF.
func (s *Scanner) Next() (Token, error) {
	s.SkipSpace()
	if s.pos >= len(s.data) {
		return Token{}, io.EOF
	}
	start := s.pos
	c := s.data[s.pos]
	switch c {
	case '<':
		if s.peek(1) == '<' {
			s.pos += 2
			return Token{Type: TokenDict, Str: "<<", Pos: start}, nil
		}
		return s.scanHexString()
	case '>':
		if s.peek(1) == '>' {
			s.pos += 2
			return Token{Type: TokenKeyword, Str: ">>", Pos: start}, nil
		}
		s.pos++
		return Token{Type: TokenKeyword, Str: ">", Pos: start}, nil
	case '[':
		s.pos++
		return Token{Type: TokenArray, Str: "[", Pos: start}, nil
	case ']':
		s.pos++
		return Token{Type: TokenKeyword, Str: "]", Pos: start}, nil
	case '{', '}':
		s.pos++
		return Token{Type: TokenKeyword, Str: string(c), Pos: start}, nil
	case '(':
		return s.scanLiteralString()
	case '/':
		return s.scanName()
	}
	if isNumberStart(c) {
		return s.scanNumberOrRef()
	}
	return s.scanKeyword()
}

// SkipSpace advances past whitespace and comments.
func (s *Scanner) SkipSpace() {
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		if IsWhitespace(c) {
			s.pos++
			continue
		}
		if c == '%' {
			for s.pos < len(s.data) && s.data[s.pos] != '\n' && s.data[s.pos] != '\r' {
				s.pos++
			}
			continue
		}
		return
	}
}

func (s *Scanner) peek(n int) byte {
	if s.pos+n < len(s.data) {
		return s.data[s.pos+n]
	}
	return 0
}

// IsWhitespace reports PDF whitespace (space, tab, CR, LF, FF, NUL).
func IsWhitespace(c byte) bool {
	return c == 0x00 || c == 0x09 || c == 0x0A || c == 0x0C || c == 0x0D || c == 0x20
}

// IsDelimiter reports PDF delimiter characters.
func IsDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isRegular(c byte) bool { return !IsWhitespace(c) && !IsDelimiter(c) }

func isNumberStart(c byte) bool { return c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9') }

func (s *Scanner) scanName() (Token, error) {
	start := s.pos
	s.pos++ // skip '/'
	var buf bytes.Buffer
	for s.pos < len(s.data) && isRegular(s.data[s.pos]) {
		c := s.data[s.pos]
		if c == '#' && s.pos+2 < len(s.data) && isHex(s.data[s.pos+1]) && isHex(s.data[s.pos+2]) {
			buf.WriteByte(fromHex(s.data[s.pos+1])<<4 | fromHex(s.data[s.pos+2]))
			s.pos += 3
			continue
		}
		buf.WriteByte(c)
		s.pos++
	}
	return Token{Type: TokenName, Str: buf.String(), Pos: start}, nil
}

func (s *Scanner) scanKeyword() (Token, error) {
	start := s.pos
	for s.pos < len(s.data) && isRegular(s.data[s.pos]) {
		s.pos++
	}
	if s.pos == start {
		// stray delimiter such as ')'
		s.pos++
	}
	word := string(s.data[start:s.pos])
	switch word {
	case "true":
		return Token{Type: TokenBoolean, Bool: true, Str: word, Pos: start}, nil
	case "false":
		return Token{Type: TokenBoolean, Bool: false, Str: word, Pos: start}, nil
	case "null":
		return Token{Type: TokenNull, Str: word, Pos: start}, nil
	}
	return Token{Type: TokenKeyword, Str: word, Pos: start}, nil
}

func (s *Scanner) scanNumberOrRef() (Token, error) {
	tok := s.scanNumber()
	if !tok.IsInt || tok.Int < 0 {
		return tok, nil
	}
	// Look ahead for "<gen> R" without consuming on mismatch.
	save := s.pos
	s.SkipSpace()
	if s.pos < len(s.data) && s.data[s.pos] >= '0' && s.data[s.pos] <= '9' {
		gen := s.scanNumber()
		if gen.IsInt {
			s.SkipSpace()
			if s.pos < len(s.data) && s.data[s.pos] == 'R' && (s.pos+1 >= len(s.data) || !isRegular(s.data[s.pos+1])) {
				s.pos++
				return Token{Type: TokenRef, Num: int(tok.Int), Gen: int(gen.Int), Pos: tok.Pos}, nil
			}
		}
	}
	s.pos = save
	return tok, nil
}

func (s *Scanner) scanNumber() Token {
	start := s.pos
	for s.pos < len(s.data) && (isNumberStart(s.data[s.pos])) {
		s.pos++
	}
	text := string(s.data[start:s.pos])
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return Token{Type: TokenNumber, Int: i, IsInt: true, Pos: start}
	}
	f, err := strconv.ParseFloat(normalizeReal(text), 64)
	if err != nil {
		f = 0
	}
	return Token{Type: TokenNumber, Float: f, Pos: start}
}

// normalizeReal tolerates malformed reals such as "--1" or "1.2.3" seen in the wild.
func normalizeReal(text string) string {
	neg := false
	for len(text) > 0 && (text[0] == '-' || text[0] == '+') {
		if text[0] == '-' {
			neg = !neg
		}
		text = text[1:]
	}
	if i := bytes.IndexByte([]byte(text), '.'); i >= 0 {
		if j := bytes.IndexByte([]byte(text[i+1:]), '.'); j >= 0 {
			text = text[:i+1+j]
		}
	}
	if text == "" || text == "." {
		text = "0"
	}
	if neg {
		return "-" + text
	}
	return text
}

func (s *Scanner) scanLiteralString() (Token, error) {
	start := s.pos
	s.pos++ // skip '('
	var buf bytes.Buffer
	depth := 1
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		switch c {
		case '\\':
			s.pos++
			if s.pos >= len(s.data) {
				return Token{}, ErrUnterminated
			}
			esc := s.data[s.pos]
			switch {
			case esc == '\r':
				s.pos++
				if s.pos < len(s.data) && s.data[s.pos] == '\n' {
					s.pos++
				}
			case esc == '\n':
				s.pos++
			case esc >= '0' && esc <= '7':
				val := int(esc - '0')
				s.pos++
				for k := 0; k < 2 && s.pos < len(s.data); k++ {
					d := s.data[s.pos]
					if d < '0' || d > '7' {
						break
					}
					val = val<<3 + int(d-'0')
					s.pos++
				}
				buf.WriteByte(byte(val))
			default:
				buf.WriteByte(translateEscape(esc))
				s.pos++
			}
			continue
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				s.pos++
				return Token{Type: TokenString, Bytes: buf.Bytes(), Pos: start}, nil
			}
		}
		buf.WriteByte(c)
		s.pos++
	}
	return Token{}, ErrUnterminated
}

func translateEscape(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 'r':
		return '\r'
	case 't':
		return '\t'
	case 'b':
		return '\b'
	case 'f':
		return '\f'
	default:
		return c
	}
}

func (s *Scanner) scanHexString() (Token, error) {
	start := s.pos
	s.pos++ // skip '<'
	var nibbles []byte
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		s.pos++
		if c == '>' {
			if len(nibbles)%2 == 1 {
				nibbles = append(nibbles, '0')
			}
			out := make([]byte, 0, len(nibbles)/2)
			for i := 0; i < len(nibbles); i += 2 {
				out = append(out, fromHex(nibbles[i])<<4|fromHex(nibbles[i+1]))
			}
			return Token{Type: TokenString, Bytes: out, Hex: true, Pos: start}, nil
		}
		if isHex(c) {
			nibbles = append(nibbles, c)
		}
	}
	return Token{}, ErrUnterminated
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'F') || (c >= 'a' && c <= 'f')
}

func fromHex(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return 0
	}
}
