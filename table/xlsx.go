package table

import (
	"bytes"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
	"github.com/xuri/excelize/v2"
)

// DateColumn is mandatory in XLSX indexes. A row whose Date cell is an all
// uppercase word (BASE, FILES, TABMAP, NEEDURL) is a configuration row.
const DateColumn = "Date"

// XLSX is an index held in one sheet of a workbook.
type XLSX struct {
	*index
	fs     afero.Fs
	path   string
	file   *excelize.File
	sheet  string
	config map[string]int // section -> 1-based sheet row
	rowOf  map[string]int // id -> 1-based sheet row
}

func OpenXLSX(fs afero.Fs, path, sheet, idColumn string) (*XLSX, error) {
	in, err := fs.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open index %s", path)
	}
	defer in.Close()
	f, err := excelize.OpenReader(in)
	if err != nil {
		return nil, errors.Wrapf(err, "parse index %s", path)
	}
	t, err := newXLSX(f, sheet, idColumn)
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "index %s", path)
	}
	t.fs, t.path = fs, path
	return t, nil
}

func newXLSX(f *excelize.File, sheet, idColumn string) (*XLSX, error) {
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.Wrap(ErrSheetNotFound, "workbook has no sheets")
		}
		sheet = sheets[0]
	} else if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, errors.Wrapf(ErrSheetNotFound, "%q", sheet)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrapf(err, "read sheet %q", sheet)
	}
	if len(rows) == 0 {
		return nil, errors.Wrapf(ErrColumnNotFound, "sheet %q has no header", sheet)
	}
	t := &XLSX{
		index:  newIndex(rows[0]),
		file:   f,
		sheet:  sheet,
		config: make(map[string]int),
		rowOf:  make(map[string]int),
	}
	if !t.HasColumn(DateColumn) {
		return nil, errors.Wrapf(ErrColumnNotFound, "header %q", DateColumn)
	}
	if !t.HasColumn(idColumn) {
		return nil, errors.Wrapf(ErrColumnNotFound, "id column %q", idColumn)
	}
	datePos, idPos := t.columns[DateColumn], t.columns[idColumn]
	for i, cells := range rows[1:] {
		sheetRow := i + 2
		if datePos < len(cells) && IsSection(cells[datePos]) {
			if _, dup := t.config[cells[datePos]]; !dup {
				t.config[cells[datePos]] = sheetRow
			}
		}
		var id string
		if idPos < len(cells) {
			id = cells[idPos]
		}
		if id == "" {
			continue
		}
		if _, dup := t.rowOf[id]; !dup {
			t.rowOf[id] = sheetRow
		}
		t.add(Row{ID: id, Values: rowValues(t.headers, cells)})
	}
	return t, nil
}

func (t *XLSX) cell(sheetRow int, column string) (string, error) {
	return excelize.CoordinatesToCellName(t.columns[column]+1, sheetRow)
}

func (t *XLSX) Hyperlink(id, column string) (string, bool) {
	row, ok := t.rowOf[id]
	if !ok || !t.HasColumn(column) {
		return "", false
	}
	name, err := t.cell(row, column)
	if err != nil {
		return "", false
	}
	has, target, err := t.file.GetCellHyperLink(t.sheet, name)
	if err != nil || !has || target == "" {
		return "", false
	}
	return target, true
}

func (t *XLSX) SetValue(id, column, value string) error {
	row, err := t.check(id, column)
	if err != nil {
		return err
	}
	name, err := t.cell(t.rowOf[id], column)
	if err != nil {
		return err
	}
	if err := t.file.SetCellStr(t.sheet, name, value); err != nil {
		return errors.Wrapf(err, "set %s!%s", t.sheet, name)
	}
	row.Values[column] = value
	return nil
}

// Config reads column of the configuration row named section, falling back
// to a row whose id is section.
func (t *XLSX) Config(section, column string) (string, bool) {
	if !t.HasColumn(column) {
		return "", false
	}
	if row, ok := t.config[section]; ok {
		name, err := t.cell(row, column)
		if err == nil {
			if v, err := t.file.GetCellValue(t.sheet, name); err == nil && v != "" {
				return v, true
			}
		}
	}
	v, ok := t.Value(section, column)
	return v, ok && v != ""
}

func (t *XLSX) ReadSheet(name, keyColumn string) (map[string]map[string]string, error) {
	if idx, err := t.file.GetSheetIndex(name); err != nil || idx < 0 {
		return nil, errors.Wrapf(ErrSheetNotFound, "%q", name)
	}
	rows, err := t.file.GetRows(name)
	if err != nil {
		return nil, errors.Wrapf(err, "read sheet %q", name)
	}
	if len(rows) == 0 {
		return nil, errors.Wrapf(ErrColumnNotFound, "sheet %q has no header", name)
	}
	ix := newIndex(rows[0])
	keyPos, ok := ix.columns[keyColumn]
	if !ok {
		return nil, errors.Wrapf(ErrColumnNotFound, "sheet %q key %q", name, keyColumn)
	}
	out := make(map[string]map[string]string)
	for _, cells := range rows[1:] {
		if keyPos >= len(cells) || cells[keyPos] == "" {
			continue
		}
		out[cells[keyPos]] = rowValues(ix.headers, cells)
	}
	return out, nil
}

func (t *XLSX) Save() error {
	var buf bytes.Buffer
	if err := t.file.Write(&buf); err != nil {
		return errors.Wrapf(err, "format index %s", t.path)
	}
	if err := afero.WriteFile(t.fs, t.path, buf.Bytes(), 0o644); err != nil {
		return errors.Wrapf(err, "write index %s", t.path)
	}
	return nil
}

func (t *XLSX) Close() error { return t.file.Close() }
