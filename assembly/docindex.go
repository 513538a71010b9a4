package assembly

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/wudi/legalkit/exhibit"
	"github.com/wudi/legalkit/observability"
	"github.com/wudi/legalkit/pdf"
	"github.com/wudi/legalkit/table"
)

// DocIndexOptions configures DocIndex.
type DocIndexOptions struct {
	Table table.Table
	Keys  []string
	// OutputDir receives one <code>.pdf per category.
	OutputDir string
}

// Category is one tab of a document index.
type Category struct {
	Code  string
	Tab   string
	Count int
	Pages int

	exhibits int
	output   *pdf.Document
}

// DocIndexResult describes a finished doc-index run.
type DocIndexResult struct {
	OutputDir  string
	Categories []*Category
	Entries    []*Entry
	// Errors holds entries skipped for an unknown category.
	Errors []error
}

// ParseTabMap reads "code=tab,code=tab" into categories in order.
func ParseTabMap(s string) ([]*Category, error) {
	var out []*Category
	seen := make(map[string]bool)
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		code, tab, ok := strings.Cut(part, "=")
		if !ok || code == "" {
			return nil, errors.Wrapf(ErrConfig, "TABMAP entry %q, expected code=tab", part)
		}
		if seen[code] {
			return nil, errors.Wrapf(ErrConfig, "TABMAP code %q repeated", code)
		}
		seen[code] = true
		out = append(out, &Category{Code: code, Tab: tab})
	}
	return out, nil
}

// DocIndex splits the index entries into one document per category. Every
// document of a category starts on an odd page, carries an exhibit notice
// naming the category and has pages numbered "<code> 001" onwards.
func (p *Pipeline) DocIndex(ctx context.Context, opts DocIndexOptions) (*DocIndexResult, error) {
	if opts.Table == nil {
		return nil, errors.Wrap(ErrConfig, "index file must be provided")
	}
	if len(opts.Keys) != 1 {
		return nil, errors.Wrap(ErrConfig, "exactly one index key must be provided")
	}
	t, key := opts.Table, opts.Keys[0]

	entries, err := indexEntries(t, opts.Keys)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.Category == "" {
			return nil, errors.Wrapf(ErrConfig, "category not specified for %s", e.Name)
		}
	}
	if opts.OutputDir == "" {
		opts.OutputDir, _ = t.Config(table.RowFiles, table.PageColumn(key))
	}
	if opts.OutputDir == "" {
		return nil, errors.Wrap(ErrConfig, "output must be provided, either as option or in the FILES row")
	}
	tabMap, ok := t.Config("TABMAP", table.ExhibitColumn(key))
	if !ok {
		return nil, errors.Wrapf(ErrConfig, "TABMAP not found for %q", table.ExhibitColumn(key))
	}
	categories, err := ParseTabMap(tabMap)
	if err != nil {
		return nil, err
	}
	byCode := make(map[string]*Category, len(categories))
	for _, c := range categories {
		byCode[c.Code] = c
	}
	needURL := true
	if v, ok := t.Config("NEEDURL", table.IDColumn); ok {
		if n, err := strconv.Atoi(v); err == nil && n == 0 {
			needURL = false
		}
	}

	if err := p.fs.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create %s", opts.OutputDir)
	}

	res := &DocIndexResult{OutputDir: opts.OutputDir, Categories: categories, Entries: entries}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cat, ok := byCode[e.Category]
		if !ok {
			err := errors.Newf("unknown category for file: file=%s category=%s", e.Name, e.Category)
			e.Err = err
			res.Errors = append(res.Errors, err)
			continue
		}
		if needURL && e.URL == "" {
			continue
		}
		src, err := p.load(ctx, e.Name)
		if err != nil {
			e.Err = err
			return nil, err
		}
		if err := p.addToCategory(cat, src, e); err != nil {
			e.Err = err
			return nil, errors.Wrapf(err, "process %s", e.Name)
		}
	}

	for _, c := range categories {
		if c.output == nil {
			continue
		}
		path := filepath.Join(opts.OutputDir, c.Code+".pdf")
		if err := c.output.Save(ctx, p.fs, path); err != nil {
			return nil, errors.Wrapf(err, "save %s", path)
		}
	}
	for _, err := range res.Errors {
		p.log.Error("skipped entry", observability.Error("error", err))
	}

	err = writeBack(t, opts.Keys, entries,
		func(e *Entry) string { return strconv.Itoa(e.CategoryPage0) },
		func(e *Entry) string { return orDash(e.CategoryID) })
	if err != nil {
		return nil, errors.Wrap(err, "update index")
	}
	return res, nil
}

// addToCategory appends src to its category. A document without pages gets
// neither an exhibit label nor a category slot.
func (p *Pipeline) addToCategory(cat *Category, src *pdf.Document, e *Entry) error {
	if src.PageCount() == 0 {
		p.log.Warn("document has no pages", observability.String("file", e.Name))
		return nil
	}
	if cat.output == nil {
		cat.output = pdf.New()
	}
	out := cat.output
	e.CategoryPage0 = cat.Pages
	if err := out.AppendDocument(src); err != nil {
		return err
	}
	if n := src.PageCount(); n%2 == 1 {
		first, err := src.Page(0)
		if err != nil {
			return err
		}
		out.AddBlankPage(first.MediaBox())
	}
	id, err := exhibit.Label(cat.exhibits)
	if err != nil {
		return err
	}
	cat.exhibits++
	e.ExhibitID = id

	notice := Render(categoryTemplate, map[string]string{"category": e.Category, "exhibit": id})
	for i := cat.Pages; i < out.PageCount(); i++ {
		page, err := out.Page(i)
		if err != nil {
			return err
		}
		page.RotatePortrait()
		if i == cat.Pages {
			if err := p.stamper.Exhibit(page, notice, e.Position); err != nil {
				return err
			}
		}
		if err := p.stamper.PageNumber(page, cat.Code+fmt.Sprintf(" %03d", i+1)); err != nil {
			return err
		}
	}
	cat.Pages = out.PageCount()
	cat.Count++
	e.CategoryID = fmt.Sprintf("%s-%03d", cat.Tab, cat.Count)
	return nil
}
