package table

import (
	"bytes"
	"encoding/csv"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
)

// TSV is a tab separated UTF-8 index whose first line holds the headers.
type TSV struct {
	*index
	fs      afero.Fs
	path    string
	records [][]string
	recOf   map[string]int
}

func OpenTSV(fs afero.Fs, path, idColumn string) (*TSV, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Wrapf(err, "read index %s", path)
	}
	r := newTSVReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xEF\xBB\xBF"))))
	records, err := r.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "parse index %s", path)
	}
	if len(records) == 0 {
		return nil, errors.Wrapf(ErrColumnNotFound, "%s has no header, need %q", path, idColumn)
	}
	t := &TSV{index: newIndex(records[0]), fs: fs, path: path, recOf: make(map[string]int)}
	if !t.HasColumn(idColumn) {
		return nil, errors.Wrapf(ErrColumnNotFound, "id column %q in %s", idColumn, path)
	}
	idPos := t.columns[idColumn]
	for _, rec := range records[1:] {
		for len(rec) < len(t.headers) {
			rec = append(rec, "")
		}
		if _, dup := t.recOf[rec[idPos]]; !dup && rec[idPos] != "" {
			t.recOf[rec[idPos]] = len(t.records)
		}
		t.records = append(t.records, rec)
		t.add(Row{ID: rec[idPos], Values: rowValues(t.headers, rec)})
	}
	return t, nil
}

func newTSVReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr
}

// Hyperlink is never set for TSV.
func (t *TSV) Hyperlink(id, column string) (string, bool) { return "", false }

func (t *TSV) SetValue(id, column, value string) error {
	row, err := t.check(id, column)
	if err != nil {
		return err
	}
	row.Values[column] = value
	t.records[t.recOf[id]][t.columns[column]] = value
	return nil
}

// Config reads the row whose id is the section name.
func (t *TSV) Config(section, column string) (string, bool) {
	v, ok := t.Value(section, column)
	return v, ok && v != ""
}

// ReadSheet always fails: a TSV file has a single sheet.
func (t *TSV) ReadSheet(name, keyColumn string) (map[string]map[string]string, error) {
	return nil, errors.Wrapf(ErrSheetNotFound, "%q, TSV index has no sheets", name)
}

// Save rewrites the file with every record, including rows without id.
func (t *TSV) Save() error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = '\t'
	if err := w.Write(t.headers); err != nil {
		return err
	}
	if err := w.WriteAll(t.records); err != nil {
		return errors.Wrapf(err, "format index %s", t.path)
	}
	if err := afero.WriteFile(t.fs, t.path, buf.Bytes(), 0o644); err != nil {
		return errors.Wrapf(err, "write index %s", t.path)
	}
	return nil
}

func (t *TSV) Close() error { return nil }
