package assembly

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/wudi/legalkit/observability"
	"github.com/wudi/legalkit/pdf"
)

// PageOp replaces page Dest (1-based) with page Source of the input file,
// or inserts a blank page at index Dest when Source is zero.
type PageOp struct {
	Dest   int
	Source int
}

func (o PageOp) Blank() bool { return o.Source == 0 }

// MetaEdit sets an Info entry, or removes it when Delete is set.
type MetaEdit struct {
	Key    string
	Value  string
	Delete bool
}

// ReplaceOptions configures Replace. Target is rewritten in place.
type ReplaceOptions struct {
	Target string
	Input  string
	Ops    []PageOp

	// ReplaceMeta starts from empty metadata instead of the target's.
	ReplaceMeta   bool
	DeleteAllMeta bool
	MetaFrom      string
	Meta          []MetaEdit
}

// Replace edits the pages and the Info dictionary of opts.Target.
func (p *Pipeline) Replace(ctx context.Context, opts ReplaceOptions) error {
	if opts.Target == "" {
		return errors.Wrap(ErrConfig, "output is mandatory")
	}
	if opts.Input == "" && len(opts.Meta) == 0 && opts.MetaFrom == "" && !opts.DeleteAllMeta {
		return errors.Wrap(ErrConfig, "input or meta setting options are mandatory")
	}
	for _, op := range opts.Ops {
		if !op.Blank() && opts.Input == "" {
			return errors.Wrap(ErrConfig, "input is mandatory if page replacements are specified")
		}
	}

	doc, err := pdf.Open(ctx, p.fs, opts.Target)
	if err != nil {
		return errors.Wrapf(err, "load %s", opts.Target)
	}
	meta := make(map[string]string)
	var order []string
	put := func(k, v string) {
		if _, ok := meta[k]; !ok {
			order = append(order, k)
		}
		meta[k] = v
	}
	if !opts.ReplaceMeta && !opts.DeleteAllMeta {
		for _, k := range doc.InfoKeys() {
			if v, ok := doc.Info(k); ok {
				put(k, v)
			}
		}
	}

	var input *pdf.Document
	if opts.Input != "" {
		if input, err = pdf.Open(ctx, p.fs, opts.Input); err != nil {
			return errors.Wrapf(err, "load %s", opts.Input)
		}
	}
	for _, op := range opts.Ops {
		if err := applyPageOp(doc, input, op); err != nil {
			return err
		}
	}

	if opts.MetaFrom != "" {
		src, err := pdf.Open(ctx, p.fs, opts.MetaFrom)
		if err != nil {
			return errors.Wrapf(err, "load %s", opts.MetaFrom)
		}
		for _, k := range src.InfoKeys() {
			if v, ok := src.Info(k); ok {
				put(k, v)
			}
		}
	}
	for _, e := range opts.Meta {
		if e.Delete {
			delete(meta, e.Key)
			continue
		}
		put(e.Key, e.Value)
	}

	doc.ClearInfo()
	for _, k := range order {
		if v, ok := meta[k]; ok {
			doc.SetInfo(k, v)
		}
	}
	if err := doc.Save(ctx, p.fs, opts.Target); err != nil {
		return errors.Wrapf(err, "save %s", opts.Target)
	}
	p.log.Info("replaced", observability.String("file", opts.Target),
		observability.Int("operations", len(opts.Ops)), observability.Int("pages", doc.PageCount()))
	return nil
}

func applyPageOp(doc, input *pdf.Document, op PageOp) error {
	if op.Blank() {
		if op.Dest < 0 || op.Dest > doc.PageCount() {
			return errors.Wrapf(pdf.ErrPageRange, "blank page at %d of %d", op.Dest, doc.PageCount())
		}
		box := pdf.Letter
		if page, err := doc.Page(max(op.Dest-1, 0)); err == nil {
			box = page.MediaBox()
		}
		_, err := doc.InsertBlankPage(op.Dest, box)
		return err
	}
	if op.Source < 1 || op.Source > input.PageCount() {
		return errors.Wrapf(pdf.ErrPageRange, "source page %d of %d", op.Source, input.PageCount())
	}
	if err := doc.ReplacePage(op.Dest-1, input, op.Source-1); err != nil {
		return errors.Wrapf(err, "replace page %d", op.Dest)
	}
	return nil
}
