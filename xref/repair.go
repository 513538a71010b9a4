package xref

import (
	"bytes"

	"github.com/wudi/legalkit/scanner"
)

// Scan rebuilds a table by searching data for "<num> <gen> obj" headers.
// Later definitions of the same object win, matching incremental updates.
func Scan(data []byte) *Table {
	table := NewTable()
	marker := []byte("obj")
	pos := 0
	for {
		i := bytes.Index(data[pos:], marker)
		if i < 0 {
			break
		}
		at := pos + i
		pos = at + len(marker)
		if at > 0 && !scanner.IsWhitespace(data[at-1]) {
			continue
		}
		if pos < len(data) && !scanner.IsWhitespace(data[pos]) && !scanner.IsDelimiter(data[pos]) {
			continue
		}
		num, gen, start, ok := headerBefore(data, at)
		if !ok {
			continue
		}
		table.entries[num] = Entry{Type: InUse, Offset: int64(start), Gen: gen}
	}
	return table
}

// headerBefore reads "<num> <gen> " walking backwards from the obj keyword.
func headerBefore(data []byte, at int) (num, gen, start int, ok bool) {
	p := at - 1
	readInt := func() (int, bool) {
		for p >= 0 && scanner.IsWhitespace(data[p]) {
			p--
		}
		end := p
		for p >= 0 && data[p] >= '0' && data[p] <= '9' {
			p--
		}
		if end == p || end-p > 10 {
			return 0, false
		}
		v := 0
		for _, c := range data[p+1 : end+1] {
			v = v*10 + int(c-'0')
		}
		return v, true
	}
	gen, ok = readInt()
	if !ok {
		return
	}
	num, ok = readInt()
	if !ok || num == 0 {
		return 0, 0, 0, false
	}
	if p >= 0 && !scanner.IsWhitespace(data[p]) && !scanner.IsDelimiter(data[p]) {
		return 0, 0, 0, false
	}
	return num, gen, p + 1, true
}

// Trailers returns the positions just after every "trailer" keyword.
func Trailers(data []byte) []int {
	var out []int
	kw := []byte("trailer")
	pos := 0
	for {
		i := bytes.Index(data[pos:], kw)
		if i < 0 {
			return out
		}
		pos += i + len(kw)
		out = append(out, pos)
	}
}
