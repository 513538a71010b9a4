// Package table reads and updates the index spreadsheets that drive the
// assembly commands. An index is a list of rows keyed by an id column
// (normally "Name"); a few reserved rows carry configuration.
package table

import (
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
)

const (
	IDColumn = "Name"

	RowBase  = "BASE"
	RowFiles = "FILES"
)

var (
	ErrColumnNotFound = errors.New("column not found")
	ErrRowNotFound    = errors.New("row not found")
	ErrSheetNotFound  = errors.New("sheet not found")
	ErrUnsupported    = errors.New("unsupported index file")
)

// Row is one keyed record of an index.
type Row struct {
	ID     string
	Values map[string]string
}

// Get returns the value of column, empty when absent.
func (r Row) Get(column string) string { return r.Values[column] }

// Table is an editable index.
type Table interface {
	Headers() []string
	HasColumn(name string) bool
	// Rows returns the rows with a non-empty id in file order.
	Rows() []Row
	Row(id string) (Row, bool)
	Value(id, column string) (string, bool)
	// Hyperlink returns the link target of a cell, if the format has links.
	Hyperlink(id, column string) (string, bool)
	SetValue(id, column, value string) error
	// Config reads column of the configuration row named section.
	Config(section, column string) (string, bool)
	// ReadSheet reads another sheet keyed by keyColumn.
	ReadSheet(name, keyColumn string) (map[string]map[string]string, error)
	Save() error
	Close() error
}

// IsSection reports a configuration section name: one or more uppercase
// ASCII letters, such as BASE, FILES, TABMAP or NEEDURL.
func IsSection(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}

// IsConfigRow reports a row carrying run configuration instead of a
// document: its id is a section name, or its Date cell is one.
func IsConfigRow(row Row) bool {
	return IsSection(row.ID) || IsSection(row.Get(DateColumn))
}

// ExhibitColumn and PageColumn name the paired columns of an exhibit key.
func ExhibitColumn(key string) string { return key + " Exh" }
func PageColumn(key string) string    { return key + " Pg" }

// Open picks the implementation by file extension. sheet selects the XLSX
// sheet; empty means the first one.
func Open(fs afero.Fs, path, sheet, idColumn string) (Table, error) {
	if idColumn == "" {
		idColumn = IDColumn
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsv":
		return OpenTSV(fs, path, idColumn)
	case ".xls", ".xlsx":
		return OpenXLSX(fs, path, sheet, idColumn)
	}
	return nil, errors.Wrapf(ErrUnsupported, "extension of %s", path)
}

// index keeps header order and the id lookup shared by both formats.
type index struct {
	headers []string
	columns map[string]int
	rows    []Row
	byID    map[string]int
}

func newIndex(headers []string) *index {
	ix := &index{headers: headers, columns: make(map[string]int, len(headers)), byID: make(map[string]int)}
	for i, h := range headers {
		if h == "" {
			continue
		}
		if _, dup := ix.columns[h]; !dup {
			ix.columns[h] = i
		}
	}
	return ix
}

func (ix *index) add(row Row) {
	if row.ID == "" {
		return
	}
	if _, dup := ix.byID[row.ID]; dup {
		return
	}
	ix.byID[row.ID] = len(ix.rows)
	ix.rows = append(ix.rows, row)
}

func (ix *index) Headers() []string { return append([]string(nil), ix.headers...) }

func (ix *index) HasColumn(name string) bool {
	_, ok := ix.columns[name]
	return ok
}

func (ix *index) Rows() []Row { return append([]Row(nil), ix.rows...) }

func (ix *index) Row(id string) (Row, bool) {
	i, ok := ix.byID[id]
	if !ok {
		return Row{}, false
	}
	return ix.rows[i], true
}

func (ix *index) Value(id, column string) (string, bool) {
	row, ok := ix.Row(id)
	if !ok {
		return "", false
	}
	v, ok := row.Values[column]
	return v, ok
}

func (ix *index) check(id, column string) (Row, error) {
	if !ix.HasColumn(column) {
		return Row{}, errors.Wrapf(ErrColumnNotFound, "%q", column)
	}
	row, ok := ix.Row(id)
	if !ok {
		return Row{}, errors.Wrapf(ErrRowNotFound, "%q", id)
	}
	return row, nil
}

func rowValues(headers []string, cells []string) map[string]string {
	values := make(map[string]string, len(headers))
	for i, h := range headers {
		if h == "" {
			continue
		}
		if _, seen := values[h]; seen {
			continue
		}
		if i < len(cells) {
			values[h] = cells[i]
		} else {
			values[h] = ""
		}
	}
	return values
}
