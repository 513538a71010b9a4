package assembly

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cockroachdb/errors"

	"github.com/wudi/legalkit/exhibit"
	"github.com/wudi/legalkit/observability"
	"github.com/wudi/legalkit/pdf"
	"github.com/wudi/legalkit/table"
)

// JoinOptions configures JoinExhibit. Either Inputs or Table is set.
type JoinOptions struct {
	Inputs []string
	Table  table.Table
	Keys   []string

	Output string
	Base   string

	// FirstPage is the number printed on the first page of the output,
	// base document included. FirstExhibit is the counter of the first
	// exhibit id.
	FirstPage    *int
	FirstExhibit *int

	SwornText   string
	Substitutes map[string]string
	Source      SubstituteSource

	Extract       []string
	IgnoreMissing bool
}

// JoinResult describes a finished join-exhibit run.
type JoinResult struct {
	Output    string
	BasePages int
	Pages     int
	Entries   []*Entry
	Counters  Counters
	Links     int
}

// JoinExhibit stamps every entry with an exhibit notice on its first page
// and page numbers on all pages, appends the entries to the base document
// and saves the result to the output.
func (p *Pipeline) JoinExhibit(ctx context.Context, opts JoinOptions) (*JoinResult, error) {
	if (len(opts.Inputs) == 0) == (opts.Table == nil) {
		return nil, errors.Wrap(ErrConfig, "input files or an index file required")
	}
	if err := ValidateExtract(opts.Extract); err != nil {
		return nil, err
	}
	subs := make(map[string]string, len(opts.Substitutes))
	for k, v := range opts.Substitutes {
		subs[k] = v
	}

	var entries []*Entry
	var err error
	if opts.Table != nil {
		if len(opts.Keys) == 0 {
			return nil, errors.Wrap(ErrConfig, "index file needs at least one key")
		}
		if len(opts.Keys) > 1 {
			p.log.Info("multiple exhibit keys, only the first one is used for BASE and FILES",
				observability.String("key", opts.Keys[0]))
		}
		if entries, err = indexEntries(opts.Table, opts.Keys); err != nil {
			return nil, err
		}
		if err := p.indexDefaults(&opts); err != nil {
			return nil, err
		}
		if err := p.readSubstitutes(opts, subs); err != nil {
			return nil, err
		}
	} else if entries, err = fileEntries(opts.Inputs); err != nil {
		return nil, err
	}

	if opts.Output == "" {
		return nil, errors.Wrap(ErrConfig, "output file not specified, neither as option nor in the FILES row")
	}
	if opts.SwornText == "" {
		opts.SwornText = SwearOrAffirmTemplate
	}
	if err := ValidateTemplate(opts.SwornText, subs); err != nil {
		return nil, err
	}

	out := pdf.New()
	if opts.Base != "" {
		if out, err = p.load(ctx, opts.Base); err != nil {
			return nil, errors.Wrap(err, "base document")
		}
	}
	basePages := out.PageCount()
	firstPage := 1
	if opts.FirstPage != nil {
		firstPage = *opts.FirstPage - basePages
	}
	c := Counters{PageCounter: firstPage, Internal: basePages}
	if opts.FirstExhibit != nil {
		c.ExhibitCounter = *opts.FirstExhibit
	}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		src, err := p.load(ctx, e.Name)
		if err != nil {
			e.Err = err
			if e.NotFound() && opts.IgnoreMissing {
				p.log.Error("file not found", observability.String("file", e.Name))
				continue
			}
			return nil, err
		}
		if err := p.stampExhibit(src, e, &c, opts.SwornText, subs); err != nil {
			e.Err = err
			return nil, errors.Wrapf(err, "process %s", e.Name)
		}
		if err := out.AppendDocument(src); err != nil {
			e.Err = err
			return nil, errors.Wrapf(err, "append %s", e.Name)
		}
	}

	links := RetargetLinks(out, basePages, entries)

	if len(opts.Extract) > 0 {
		var firsts []int
		for _, e := range entries {
			firsts = append(firsts, e.Internal)
		}
		keep, even := ExtractPages(opts.Extract, basePages, firsts)
		for _, i := range PagesToRemove(out.PageCount(), keep, even) {
			if err := out.RemovePage(i); err != nil {
				return nil, err
			}
		}
	}

	if n := out.DeduplicateStreams(); n > 0 {
		p.log.Debug("merged duplicate streams", observability.Int("streams", n))
	}
	if err := out.Save(ctx, p.fs, opts.Output); err != nil {
		return nil, errors.Wrapf(err, "save %s", opts.Output)
	}

	if opts.Table != nil {
		err := writeBack(opts.Table, opts.Keys, entries,
			func(e *Entry) string { return strconv.Itoa(e.PageNumber) },
			func(e *Entry) string { return orDash(e.ExhibitID) })
		if err != nil {
			return nil, errors.Wrap(err, "update index")
		}
	}

	return &JoinResult{
		Output:    opts.Output,
		BasePages: basePages,
		Pages:     out.PageCount(),
		Entries:   entries,
		Counters:  c,
		Links:     links,
	}, nil
}

// stampExhibit turns landscape pages portrait, stamps the exhibit notice on
// the first page and numbers every page.
func (p *Pipeline) stampExhibit(src *pdf.Document, e *Entry, c *Counters, tmpl string, subs map[string]string) error {
	pages := src.Pages()
	if len(pages) == 0 {
		p.log.Warn("document has no pages", observability.String("file", e.Name))
		return nil
	}
	e.Internal = c.Internal
	e.PageNumber = c.PageCounter + c.Internal
	for i, page := range pages {
		page.RotatePortrait()
		e.Width, e.Height = page.RotatedWidth(), page.RotatedHeight()
		if i == 0 {
			id, err := exhibit.Label(c.ExhibitCounter)
			if err != nil {
				return err
			}
			c.ExhibitCounter++
			e.ExhibitID = id
			values := make(map[string]string, len(subs)+1)
			for k, v := range subs {
				values[k] = v
			}
			values["exhibit"] = id
			if err := p.stamper.Exhibit(page, Render(tmpl, values), e.Position); err != nil {
				return err
			}
		}
		if err := p.stamper.PageNumber(page, fmt.Sprintf("Pg %03d", c.PageCounter+c.Internal)); err != nil {
			return err
		}
		c.Internal++
	}
	return nil
}

// indexDefaults fills unset options from the BASE and FILES rows and the
// config sheet.
func (p *Pipeline) indexDefaults(opts *JoinOptions) error {
	t, key := opts.Table, opts.Keys[0]
	if opts.FirstExhibit == nil {
		if v, ok := t.Config(table.RowBase, table.ExhibitColumn(key)); ok {
			n, err := exhibit.Parse(v)
			if err != nil {
				return errors.Mark(errors.Wrap(err, "BASE row"), ErrConfig)
			}
			opts.FirstExhibit = &n
		}
	}
	if opts.FirstPage == nil {
		if v, ok := t.Config(table.RowBase, table.PageColumn(key)); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return errors.Wrapf(ErrConfig, "BASE row page %q", v)
			}
			opts.FirstPage = &n
		}
	}
	if err := p.readTemplateConfig(opts); err != nil {
		return err
	}
	if opts.Output == "" {
		opts.Output, _ = t.Config(table.RowFiles, table.PageColumn(key))
	}
	if opts.Base == "" {
		opts.Base, _ = t.Config(table.RowFiles, table.ExhibitColumn(key))
	}
	return nil
}

func (p *Pipeline) readTemplateConfig(opts *JoinOptions) error {
	values, err := opts.Table.ReadSheet("config", "key")
	if errors.Is(err, table.ErrSheetNotFound) {
		p.log.Warn("sheet 'config' not found in index file, skipping")
		return nil
	}
	if err != nil {
		return err
	}
	for key, row := range values {
		value, ok := row["value"]
		if !ok {
			return errors.Wrap(ErrConfig, "config sheet has no value column")
		}
		switch key {
		case "exhibitTemplateName":
			if opts.SwornText == "" {
				tmpl, err := NamedTemplate(value)
				if err != nil {
					return err
				}
				opts.SwornText = tmpl
			}
		case "exhibitTemplateText":
			if opts.SwornText == "" {
				opts.SwornText = value
			}
		default:
			return errors.Wrapf(ErrConfig, "unknown config option %q, supported: exhibitTemplateName, exhibitTemplateText", key)
		}
	}
	return nil
}

// readSubstitutes adds template values from the text sheet, and the date
// derived from the key, without overriding values given explicitly.
func (p *Pipeline) readSubstitutes(opts JoinOptions, subs map[string]string) error {
	switch opts.Source {
	case SubstituteNone:
		return nil
	case SubstituteTableAndDate:
		if len(opts.Keys) != 1 {
			return errors.Wrap(ErrConfig, "index key must be specified exactly once (-k)")
		}
		if _, ok := subs["date"]; !ok {
			d, err := KeyDate(opts.Keys[0])
			if err != nil {
				return err
			}
			subs["date"] = d
		}
	}
	values, err := opts.Table.ReadSheet("text", "key")
	if errors.Is(err, table.ErrSheetNotFound) {
		p.log.Warn("sheet 'text' not found in index file, skipping")
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "read substitutes table")
	}
	for key, row := range values {
		value, ok := row["value"]
		if !ok {
			return errors.Wrap(ErrConfig, "text sheet has no value column")
		}
		if _, set := subs[key]; !set {
			subs[key] = value
		}
	}
	return nil
}
