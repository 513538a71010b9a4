// Package index selects the rows of an index table that belong to a set of
// exhibit keys.
package index

import (
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/wudi/legalkit/table"
)

var ErrMissingKeyColumn = errors.New("exhibit key column not found")

// Reader filters the rows of a table by exhibit keys.
type Reader struct {
	table table.Table
}

func NewReader(t table.Table) *Reader { return &Reader{table: t} }

// Excluded reports an exhibit cell that keeps its row out of a set: empty,
// "exclude" or any "exclude..." value, and "ref:" back references.
func Excluded(value string) bool {
	return value == "" || strings.HasPrefix(value, "exclude") || strings.HasPrefix(value, "ref:")
}

// ReadIndex returns the included rows in table order. Configuration rows
// (BASE, FILES, TABMAP...) are never returned. With no keys every other row is included, otherwise a row needs
// at least one key whose "<key> Exh" cell is not excluded.
func (r *Reader) ReadIndex(keys []string) ([]table.Row, error) {
	for _, k := range keys {
		if col := table.ExhibitColumn(k); !r.table.HasColumn(col) {
			return nil, errors.Wrapf(ErrMissingKeyColumn, "header %q", col)
		}
	}
	var out []table.Row
	for _, row := range r.table.Rows() {
		if table.IsConfigRow(row) {
			continue
		}
		if len(keys) == 0 || included(row, keys) {
			out = append(out, row)
		}
	}
	return out, nil
}

// IsExhibitIncluded applies the ReadIndex predicate to the row id.
func (r *Reader) IsExhibitIncluded(id string, keys []string) bool {
	row, ok := r.table.Row(id)
	if !ok || table.IsConfigRow(row) {
		return false
	}
	return len(keys) == 0 || included(row, keys)
}

func included(row table.Row, keys []string) bool {
	for _, k := range keys {
		if !Excluded(row.Get(table.ExhibitColumn(k))) {
			return true
		}
	}
	return false
}
