// Package assembly builds the court bundles: exhibits joined behind an
// optional base document with exhibit notices and page numbers stamped on
// them, per-category document indexes, and plain page numbering or joining
// of files. The index table drives the inputs and receives the resulting
// page numbers and exhibit ids back.
package assembly

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"

	"github.com/wudi/legalkit/filedb"
	"github.com/wudi/legalkit/index"
	"github.com/wudi/legalkit/observability"
	"github.com/wudi/legalkit/pdf"
	"github.com/wudi/legalkit/stamp"
	"github.com/wudi/legalkit/table"
)

// ErrConfig marks invalid options or index configuration.
var ErrConfig = errors.New("configuration error")

const (
	columnSwornPos = "Sworn Pos"
	columnCategory = "Category"
)

// Counters is the numbering state threaded through a run.
//
// Internal is the zero-based page offset in the output document and is the
// only page counter that advances. PageCounter is fixed for the run, set so
// that PageCounter+Internal is the number stamped on the current page. The
// effective page counter is that sum: after p exhibit pages it has grown by
// exactly p. ExhibitCounter advances once per document with pages.
type Counters struct {
	PageCounter    int
	ExhibitCounter int
	Internal       int
}

// Entry is one input document and what happened to it.
type Entry struct {
	Name     string
	URL      string
	Position *stamp.Position
	Category string

	// PageNumber is the stamped number of the first page, -1 when the
	// document was not added. Internal is its output page offset.
	PageNumber int
	Internal   int
	ExhibitID  string
	Width      float64
	Height     float64

	CategoryID    string
	CategoryPage0 int

	Err error
}

func newEntry(name string) *Entry {
	return &Entry{Name: name, PageNumber: -1, Internal: -1}
}

// NotFound reports an entry whose file could not be located.
func (e *Entry) NotFound() bool { return e.Err != nil && errors.Is(e.Err, filedb.ErrNotFound) }

// Pipeline runs the assembly commands against one file system.
type Pipeline struct {
	fs      afero.Fs
	files   *filedb.DirTree
	stamper *stamp.Stamper
	log     observability.Logger
}

// New returns a Pipeline locating inputs through files. A nil stamper uses
// the default fonts.
func New(fs afero.Fs, files *filedb.DirTree, stamper *stamp.Stamper, log observability.Logger) (*Pipeline, error) {
	log = observability.OrNop(log)
	if stamper == nil {
		s, err := stamp.New(stamp.WithLogger(log))
		if err != nil {
			return nil, err
		}
		stamper = s
	}
	if files == nil {
		files = &filedb.DirTree{Fs: fs, Root: ".", Extension: ".pdf"}
	}
	return &Pipeline{fs: fs, files: files, stamper: stamper, log: log}, nil
}

func (p *Pipeline) load(ctx context.Context, name string) (*pdf.Document, error) {
	path, err := p.files.Find(name)
	if err != nil {
		return nil, err
	}
	doc, err := pdf.Open(ctx, p.fs, path)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return doc, nil
}

// indexEntries reads the included rows of t as entries.
func indexEntries(t table.Table, keys []string) ([]*Entry, error) {
	rows, err := index.NewReader(t).ReadIndex(keys)
	if err != nil {
		return nil, errors.Mark(err, ErrConfig)
	}
	entries := make([]*Entry, 0, len(rows))
	for _, row := range rows {
		e := newEntry(row.ID)
		e.URL, _ = t.Hyperlink(row.ID, table.IDColumn)
		e.Category = row.Get(columnCategory)
		pos, err := stamp.ParsePosition(row.Get(columnSwornPos))
		if err != nil {
			return nil, errors.Mark(errors.Wrapf(err, "entry %s", row.ID), ErrConfig)
		}
		e.Position = pos
		entries = append(entries, e)
	}
	return entries, nil
}

func fileEntries(inputs []string) ([]*Entry, error) {
	seen := make(map[string]bool, len(inputs))
	entries := make([]*Entry, 0, len(inputs))
	for _, in := range inputs {
		if seen[in] {
			return nil, errors.Wrapf(ErrConfig, "file specified twice: %s", in)
		}
		seen[in] = true
		entries = append(entries, newEntry(in))
	}
	return entries, nil
}

// writeBack stores page and exhibit columns of entries for every key the
// entry belongs to, then saves the table once.
func writeBack(t table.Table, keys []string, entries []*Entry, page func(*Entry) string, exhibit func(*Entry) string) error {
	reader := index.NewReader(t)
	for _, e := range entries {
		if e.NotFound() {
			continue
		}
		for _, k := range keys {
			if !reader.IsExhibitIncluded(e.Name, []string{k}) {
				continue
			}
			if err := t.SetValue(e.Name, table.PageColumn(k), page(e)); err != nil {
				return err
			}
			if err := t.SetValue(e.Name, table.ExhibitColumn(k), exhibit(e)); err != nil {
				return err
			}
		}
	}
	return t.Save()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// ParseRanges reads "1,3-5" style lists.
func ParseRanges(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		a, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, errors.Wrapf(ErrConfig, "range %q", part)
		}
		b := a
		if isRange {
			if b, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil || b < a {
				return nil, errors.Wrapf(ErrConfig, "range %q", part)
			}
		}
		for i := a; i <= b; i++ {
			out = append(out, i)
		}
	}
	return out, nil
}

// CheckPattern verifies a page number pattern formats one integer.
func CheckPattern(pattern string) error {
	s := fmt.Sprintf(pattern, 1)
	if strings.Contains(s, "%!") {
		return errors.Wrapf(ErrConfig, "page number pattern %q must format one integer", pattern)
	}
	return nil
}
