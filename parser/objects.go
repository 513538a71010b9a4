package parser

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/wudi/legalkit/ir/raw"
	"github.com/wudi/legalkit/scanner"
)

const maxNesting = 256

var errUnexpected = errors.New("unexpected token")

// LengthResolver returns the value of an indirect /Length entry.
type LengthResolver func(ref raw.ObjectRef) (int64, bool)

// ObjectParser reads objects from an in-memory buffer with one scanner and a
// small push-back buffer of tokens.
type ObjectParser struct {
	s      *scanner.Scanner
	buf    []scanner.Token
	length LengthResolver
}

func NewObjectParser(data []byte, length LengthResolver) *ObjectParser {
	return &ObjectParser{s: scanner.New(data), length: length}
}

func (p *ObjectParser) Seek(pos int) error {
	p.buf = p.buf[:0]
	return p.s.Seek(pos)
}

func (p *ObjectParser) next() (scanner.Token, error) {
	if n := len(p.buf); n > 0 {
		tok := p.buf[n-1]
		p.buf = p.buf[:n-1]
		return tok, nil
	}
	return p.s.Next()
}

func (p *ObjectParser) unread(tok scanner.Token) { p.buf = append(p.buf, tok) }

// ParseObject parses the next direct object.
func (p *ObjectParser) ParseObject() (raw.Object, error) {
	return p.parse(0)
}

func (p *ObjectParser) parse(depth int) (raw.Object, error) {
	if depth > maxNesting {
		return nil, errors.New("object nesting too deep")
	}
	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	switch tok.Type {
	case scanner.TokenNumber:
		if tok.IsInt {
			return raw.NumberInt(tok.Int), nil
		}
		return raw.NumberFloat(tok.Float), nil
	case scanner.TokenName:
		return raw.NameLiteral(tok.Str), nil
	case scanner.TokenString:
		return raw.StringObj{Bytes: tok.Bytes, Hex: tok.Hex}, nil
	case scanner.TokenBoolean:
		return raw.Bool(tok.Bool), nil
	case scanner.TokenNull:
		return raw.NullObj{}, nil
	case scanner.TokenRef:
		return raw.Ref(tok.Num, tok.Gen), nil
	case scanner.TokenArray:
		arr := raw.NewArray()
		for {
			t, err := p.next()
			if err != nil {
				return nil, err
			}
			if t.Type == scanner.TokenKeyword && t.Str == "]" {
				return arr, nil
			}
			p.unread(t)
			item, err := p.parse(depth + 1)
			if err != nil {
				return nil, err
			}
			arr.Append(item)
		}
	case scanner.TokenDict:
		return p.parseDict(depth)
	}
	return nil, fmt.Errorf("%w %q at %d", errUnexpected, tok.Str, tok.Pos)
}

func (p *ObjectParser) parseDict(depth int) (raw.Object, error) {
	dict := raw.Dict()
	for {
		t, err := p.next()
		if err != nil {
			return nil, err
		}
		if t.Type == scanner.TokenKeyword && t.Str == ">>" {
			return p.maybeStream(dict)
		}
		if t.Type != scanner.TokenName {
			// tolerate junk between entries
			continue
		}
		v, err := p.next()
		if err != nil {
			return nil, err
		}
		if v.Type == scanner.TokenKeyword && v.Str == ">>" {
			dict.Set(t.Str, raw.NullObj{})
			return p.maybeStream(dict)
		}
		p.unread(v)
		val, err := p.parse(depth + 1)
		if err != nil {
			return nil, err
		}
		if _, isNull := val.(raw.NullObj); !isNull {
			dict.Set(t.Str, val)
		}
	}
}

func (p *ObjectParser) maybeStream(dict *raw.DictObj) (raw.Object, error) {
	t, err := p.next()
	if err != nil {
		return dict, nil
	}
	if t.Type != scanner.TokenKeyword || t.Str != "stream" {
		p.unread(t)
		return dict, nil
	}
	data := p.s.Data()
	start := t.Pos + len("stream")
	if start < len(data) && data[start] == '\r' {
		start++
	}
	if start < len(data) && data[start] == '\n' {
		start++
	}
	payload, end := p.streamPayload(dict, data, start)
	if err := p.s.Seek(end); err != nil {
		return nil, err
	}
	if tok, err := p.next(); err != nil || tok.Str != "endstream" {
		if err == nil {
			p.unread(tok)
		}
	}
	return raw.NewStream(dict, payload), nil
}

// streamPayload trusts /Length when it lands on endstream and otherwise
// searches for the keyword.
func (p *ObjectParser) streamPayload(dict *raw.DictObj, data []byte, start int) ([]byte, int) {
	length := int64(-1)
	if obj, ok := dict.Get("Length"); ok {
		switch v := obj.(type) {
		case raw.NumberObj:
			length = v.Int()
		case raw.RefObj:
			if p.length != nil {
				if n, ok := p.length(v.R); ok {
					length = n
				}
			}
		}
	}
	if length >= 0 && int64(start)+length <= int64(len(data)) {
		end := start + int(length)
		rest := bytes.TrimLeft(data[end:min(len(data), end+32)], "\r\n \t")
		if bytes.HasPrefix(rest, []byte("endstream")) {
			return data[start:end], end
		}
	}
	idx := bytes.Index(data[start:], []byte("endstream"))
	if idx < 0 {
		return data[start:], len(data)
	}
	end := start + idx
	payload := data[start:end]
	payload = bytes.TrimSuffix(payload, []byte("\n"))
	payload = bytes.TrimSuffix(payload, []byte("\r"))
	return payload, end
}

// ParseIndirectAt parses "num gen obj <object>" at offset.
func (p *ObjectParser) ParseIndirectAt(offset int64) (raw.ObjectRef, raw.Object, error) {
	if err := p.Seek(int(offset)); err != nil {
		return raw.ObjectRef{}, nil, err
	}
	num, err := p.next()
	if err != nil {
		return raw.ObjectRef{}, nil, err
	}
	gen, err := p.next()
	if err != nil {
		return raw.ObjectRef{}, nil, err
	}
	kw, err := p.next()
	if err != nil {
		return raw.ObjectRef{}, nil, err
	}
	if num.Type != scanner.TokenNumber || gen.Type != scanner.TokenNumber || kw.Str != "obj" {
		return raw.ObjectRef{}, nil, fmt.Errorf("no object header at offset %d", offset)
	}
	ref := raw.ObjectRef{Num: int(num.Int), Gen: int(gen.Int)}
	// empty object body
	if t, err := p.next(); err == nil {
		if t.Type == scanner.TokenKeyword && t.Str == "endobj" {
			return ref, raw.NullObj{}, nil
		}
		p.unread(t)
	}
	obj, err := p.ParseObject()
	if err != nil {
		return ref, nil, fmt.Errorf("object %s: %w", ref, err)
	}
	return ref, obj, nil
}

// ParseObjectEnd parses the next object and returns the offset just past it.
func (p *ObjectParser) ParseObjectEnd() (raw.Object, int, error) {
	obj, err := p.ParseObject()
	if err != nil {
		return nil, 0, err
	}
	pos := p.s.Position()
	if len(p.buf) > 0 {
		pos = p.buf[0].Pos
	}
	return obj, pos, nil
}
