package xref

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/wudi/legalkit/ir/raw"
	"github.com/wudi/legalkit/scanner"
)

var (
	ErrNoStartXRef = errors.New("startxref not found")
	ErrMalformed   = errors.New("malformed xref section")
)

type EntryType int

const (
	Free EntryType = iota
	InUse
	Compressed
)

// Entry locates one object. InUse entries carry a byte Offset; Compressed
// entries name the object Stream holding the object and its Index there.
type Entry struct {
	Type   EntryType
	Offset int64
	Gen    int
	Stream int
	Index  int
}

// Table maps object numbers to their location.
type Table struct {
	entries map[int]Entry
}

func NewTable() *Table { return &Table{entries: make(map[int]Entry)} }

func (t *Table) Lookup(num int) (Entry, bool) {
	e, ok := t.entries[num]
	return e, ok
}

func (t *Table) Set(num int, e Entry) { t.entries[num] = e }

func (t *Table) Len() int { return len(t.entries) }

// Merge adds entries of older that t does not define yet. Sections are
// visited newest first, so existing entries win.
func (t *Table) Merge(older *Table) {
	for num, e := range older.entries {
		if _, ok := t.entries[num]; !ok {
			t.entries[num] = e
		}
	}
}

// Objects returns the in-use and compressed object numbers in order.
func (t *Table) Objects() []int {
	nums := make([]int, 0, len(t.entries))
	for num, e := range t.entries {
		if e.Type != Free {
			nums = append(nums, num)
		}
	}
	sort.Ints(nums)
	return nums
}

// FindStartXRef returns the offset recorded after the last startxref keyword.
func FindStartXRef(data []byte) (int64, error) {
	idx := bytes.LastIndex(data, []byte("startxref"))
	if idx < 0 {
		return 0, ErrNoStartXRef
	}
	s := scanner.New(data)
	_ = s.Seek(idx + len("startxref"))
	tok, err := s.Next()
	if err != nil || tok.Type != scanner.TokenNumber || !tok.IsInt {
		return 0, ErrNoStartXRef
	}
	return tok.Int, nil
}

// IsClassic reports whether a classic "xref" table begins at offset.
func IsClassic(data []byte, offset int64) bool {
	if offset < 0 || offset >= int64(len(data)) {
		return false
	}
	s := scanner.New(data)
	_ = s.Seek(int(offset))
	s.SkipSpace()
	return bytes.HasPrefix(data[s.Position():], []byte("xref"))
}

// ParseClassic parses the xref table at offset and returns it with the
// position just after the "trailer" keyword.
func ParseClassic(data []byte, offset int64) (*Table, int, error) {
	if !IsClassic(data, offset) {
		return nil, 0, ErrMalformed
	}
	s := scanner.New(data)
	_ = s.Seek(int(offset))
	if tok, err := s.Next(); err != nil || tok.Str != "xref" {
		return nil, 0, ErrMalformed
	}
	table := NewTable()
	for {
		tok, err := s.Next()
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if tok.Type == scanner.TokenKeyword && tok.Str == "trailer" {
			return table, s.Position(), nil
		}
		if tok.Type != scanner.TokenNumber || !tok.IsInt {
			return nil, 0, fmt.Errorf("%w: unexpected %q", ErrMalformed, tok.Str)
		}
		countTok, err := s.Next()
		if err != nil || countTok.Type != scanner.TokenNumber {
			return nil, 0, ErrMalformed
		}
		start, count := int(tok.Int), int(countTok.Int)
		for i := 0; i < count; i++ {
			e, err := classicEntry(s)
			if err != nil {
				return nil, 0, err
			}
			if _, seen := table.entries[start+i]; !seen {
				table.entries[start+i] = e
			}
		}
	}
}

func classicEntry(s *scanner.Scanner) (Entry, error) {
	s.SkipSpace()
	data := s.Data()
	pos := s.Position()
	// nnnnnnnnnn ggggg n
	fields := make([]string, 0, 3)
	for len(fields) < 3 && pos < len(data) {
		for pos < len(data) && scanner.IsWhitespace(data[pos]) {
			pos++
		}
		start := pos
		for pos < len(data) && !scanner.IsWhitespace(data[pos]) {
			pos++
		}
		fields = append(fields, string(data[start:pos]))
	}
	if len(fields) != 3 {
		return Entry{}, ErrMalformed
	}
	_ = s.Seek(pos)
	off, err1 := strconv.ParseInt(fields[0], 10, 64)
	gen, err2 := strconv.Atoi(fields[1])
	if err1 != nil || err2 != nil {
		return Entry{}, ErrMalformed
	}
	switch fields[2] {
	case "n":
		return Entry{Type: InUse, Offset: off, Gen: gen}, nil
	case "f":
		return Entry{Type: Free, Gen: gen}, nil
	}
	return Entry{}, ErrMalformed
}

// DecodeStream interprets the decoded payload of a cross-reference stream.
func DecodeStream(dict *raw.DictObj, decoded []byte) (*Table, error) {
	wObj, ok := dict.Get("W")
	w, isArr := wObj.(*raw.ArrayObj)
	if !ok || !isArr || w.Len() != 3 {
		return nil, fmt.Errorf("%w: bad /W", ErrMalformed)
	}
	widths := make([]int, 3)
	rowLen := 0
	for i := 0; i < 3; i++ {
		v, _ := raw.Number(w.Items[i])
		widths[i] = int(v)
		if widths[i] < 0 || widths[i] > 8 {
			return nil, fmt.Errorf("%w: bad /W", ErrMalformed)
		}
		rowLen += widths[i]
	}
	if rowLen == 0 {
		return nil, fmt.Errorf("%w: bad /W", ErrMalformed)
	}

	size, _ := dict.Int("Size")
	var index []int
	if idxObj, ok := dict.Get("Index"); ok {
		if arr, ok := idxObj.(*raw.ArrayObj); ok {
			for _, item := range arr.Items {
				v, _ := raw.Number(item)
				index = append(index, int(v))
			}
		}
	}
	if len(index) == 0 {
		index = []int{0, int(size)}
	}

	table := NewTable()
	pos := 0
	for i := 0; i+1 < len(index); i += 2 {
		start, count := index[i], index[i+1]
		for j := 0; j < count; j++ {
			if pos+rowLen > len(decoded) {
				return table, nil
			}
			row := decoded[pos : pos+rowLen]
			pos += rowLen
			f1 := field(row[:widths[0]], 1)
			f2 := field(row[widths[0]:widths[0]+widths[1]], 0)
			f3 := field(row[widths[0]+widths[1]:], 0)
			var e Entry
			switch f1 {
			case 0:
				e = Entry{Type: Free, Gen: int(f3)}
			case 1:
				e = Entry{Type: InUse, Offset: f2, Gen: int(f3)}
			case 2:
				e = Entry{Type: Compressed, Stream: int(f2), Index: int(f3)}
			default:
				continue
			}
			if _, seen := table.entries[start+j]; !seen {
				table.entries[start+j] = e
			}
		}
	}
	return table, nil
}

func field(b []byte, def int64) int64 {
	if len(b) == 0 {
		return def
	}
	var v int64
	for _, c := range b {
		v = v<<8 | int64(c)
	}
	return v
}
