package contentstream

import (
	"errors"
	"io"

	"github.com/wudi/legalkit/ir/raw"
	"github.com/wudi/legalkit/parser"
	"github.com/wudi/legalkit/scanner"
)

// Operation is one operator with its operands.
type Operation struct {
	Operator string
	Operands []raw.Object
}

// Parse splits a decoded content stream into operations. Inline images are
// skipped up to their EI keyword.
func Parse(data []byte) ([]Operation, error) {
	s := scanner.New(data)
	var ops []Operation
	var operands []raw.Object
	for {
		tok, err := s.Next()
		if errors.Is(err, io.EOF) {
			return ops, nil
		}
		if err != nil {
			return nil, err
		}
		switch tok.Type {
		case scanner.TokenKeyword:
			if tok.Str == "BI" {
				if err := skipInlineImage(s); err != nil {
					return nil, err
				}
				operands = nil
				continue
			}
			ops = append(ops, Operation{Operator: tok.Str, Operands: operands})
			operands = nil
		case scanner.TokenArray, scanner.TokenDict:
			p := parser.NewObjectParser(data, nil)
			if err := p.Seek(tok.Pos); err != nil {
				return nil, err
			}
			obj, end, err := p.ParseObjectEnd()
			if err != nil {
				return nil, err
			}
			operands = append(operands, obj)
			if err := s.Seek(end); err != nil {
				return nil, err
			}
		default:
			operands = append(operands, tokenObject(tok))
		}
	}
}

func tokenObject(tok scanner.Token) raw.Object {
	switch tok.Type {
	case scanner.TokenNumber:
		if tok.IsInt {
			return raw.NumberInt(tok.Int)
		}
		return raw.NumberFloat(tok.Float)
	case scanner.TokenName:
		return raw.NameLiteral(tok.Str)
	case scanner.TokenString:
		return raw.StringObj{Bytes: tok.Bytes, Hex: tok.Hex}
	case scanner.TokenBoolean:
		return raw.Bool(tok.Bool)
	case scanner.TokenRef:
		return raw.Ref(tok.Num, tok.Gen)
	}
	return raw.NullObj{}
}

func skipInlineImage(s *scanner.Scanner) error {
	data := s.Data()
	for i := s.Position(); i+2 <= len(data); i++ {
		if data[i] == 'E' && data[i+1] == 'I' && (i == 0 || scanner.IsWhitespace(data[i-1])) &&
			(i+2 == len(data) || scanner.IsWhitespace(data[i+2])) {
			return s.Seek(i + 2)
		}
	}
	return errors.New("unterminated inline image")
}

// Handler receives the operands of one operator.
type Handler func(operands []raw.Object) error

// Processor dispatches parsed operations to registered handlers.
type Processor struct {
	handlers map[string]Handler
}

func NewProcessor() *Processor { return &Processor{handlers: make(map[string]Handler)} }

func (p *Processor) RegisterHandler(op string, h Handler) { p.handlers[op] = h }

func (p *Processor) Process(stream []byte) error {
	ops, err := Parse(stream)
	if err != nil {
		return err
	}
	for _, op := range ops {
		if h, ok := p.handlers[op.Operator]; ok {
			if err := h(op.Operands); err != nil {
				return err
			}
		}
	}
	return nil
}
