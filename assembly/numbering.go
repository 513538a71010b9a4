package assembly

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/wudi/legalkit/ir/raw"
	"github.com/wudi/legalkit/observability"
	"github.com/wudi/legalkit/pdf"
	"github.com/wudi/legalkit/stamp"
)

// PageNumbersOptions configures AddPageNumbers. Pages and Files select
// what gets stamped by page number and by 1-based input position; both
// empty stamps everything.
type PageNumbersOptions struct {
	Inputs    []string
	Output    string
	FirstPage int
	Pages     []int
	Files     []int
}

// AddPageNumbers merges the inputs, turning landscape pages portrait, and
// numbers the selected pages. The counter advances once per page whether
// or not the page is stamped.
func (p *Pipeline) AddPageNumbers(ctx context.Context, opts PageNumbersOptions) (int, error) {
	if len(opts.Inputs) == 0 {
		return 0, errors.Wrap(ErrConfig, "need one or more input files")
	}
	if opts.Output == "" {
		return 0, errors.Wrap(ErrConfig, "output is mandatory")
	}
	if opts.FirstPage == 0 {
		opts.FirstPage = 1
	}
	pages, files := toSet(opts.Pages), toSet(opts.Files)
	all := len(pages) == 0 && len(files) == 0

	out := pdf.New()
	counter := opts.FirstPage
	for fileNo, name := range opts.Inputs {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		src, err := pdf.Open(ctx, p.fs, name)
		if err != nil {
			return 0, err
		}
		for _, page := range src.Pages() {
			page.RotatePortrait()
			if all || files[fileNo+1] || pages[counter] {
				if err := p.stamper.PageNumber(page, fmt.Sprintf("Pg %03d", counter)); err != nil {
					return 0, errors.Wrapf(err, "stamp %s", name)
				}
			}
			counter++
		}
		if err := out.AppendDocument(src); err != nil {
			return 0, errors.Wrapf(err, "append %s", name)
		}
	}
	if err := out.Save(ctx, p.fs, opts.Output); err != nil {
		return 0, errors.Wrapf(err, "save %s", opts.Output)
	}
	return out.PageCount(), nil
}

func toSet(values []int) map[int]bool {
	m := make(map[int]bool, len(values))
	for _, v := range values {
		m[v] = true
	}
	return m
}

// PdfJoinOptions configures PdfJoin. A nil FirstPage disables numbering.
type PdfJoinOptions struct {
	Inputs     []string
	Output     string
	Append     bool
	SkipFirst  bool
	Align      int
	FirstPage  *int
	Position   *[2]float64
	Pattern    string
	Decompress bool
}

// JoinedInput is the placement of one input in the joined output.
type JoinedInput struct {
	File  string
	Start int
	Size  int
}

// PdfJoin concatenates the inputs, optionally numbering pages and padding
// each input to a multiple of Align pages.
func (p *Pipeline) PdfJoin(ctx context.Context, opts PdfJoinOptions) ([]JoinedInput, error) {
	if opts.Output == "" {
		return nil, errors.Wrap(ErrConfig, "output is mandatory")
	}
	if len(opts.Inputs) == 0 {
		return nil, errors.Wrap(ErrConfig, "inputs are mandatory")
	}
	if opts.Align < 0 {
		return nil, errors.Wrap(ErrConfig, "align must not be negative")
	}
	if opts.Pattern == "" {
		opts.Pattern = stamp.DefaultPagePattern
	}
	if err := CheckPattern(opts.Pattern); err != nil {
		return nil, err
	}

	doc := pdf.New()
	if opts.Append {
		var err error
		if doc, err = pdf.Open(ctx, p.fs, opts.Output); err != nil {
			return nil, err
		}
	}
	internal := doc.PageCount()
	var placed []JoinedInput
	for n, name := range opts.Inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		src, err := pdf.Open(ctx, p.fs, name)
		if err != nil {
			return nil, err
		}
		if opts.Decompress {
			err := src.Decompress(ctx, func(ref raw.ObjectRef, err error) {
				p.log.Warn("decompress: skip object",
					observability.String("file", name),
					observability.Int("object", ref.Num),
					observability.Error("error", err))
			})
			if err != nil {
				return nil, err
			}
		}
		start := doc.PageCount()
		if err := doc.AppendDocument(src); err != nil {
			return nil, errors.Wrapf(err, "append %s", name)
		}
		if opts.FirstPage != nil {
			for ; internal < doc.PageCount(); internal++ {
				if n == 0 && opts.SkipFirst {
					continue
				}
				page, err := doc.Page(internal)
				if err != nil {
					return nil, err
				}
				text := fmt.Sprintf(opts.Pattern, *opts.FirstPage+internal)
				if opts.Position != nil {
					err = p.stamper.PageNumberAt(page, text, opts.Position[0], opts.Position[1])
				} else {
					err = p.stamper.PageNumber(page, text)
				}
				if err != nil {
					return nil, errors.Wrapf(err, "stamp %s", name)
				}
			}
		}
		if opts.Align > 1 {
			for doc.PageCount()%opts.Align != 0 {
				doc.AddBlankPage(lastBox(doc))
			}
		}
		placed = append(placed, JoinedInput{File: name, Start: start, Size: doc.PageCount() - start})
	}
	doc.DeduplicateStreams()
	if err := doc.Save(ctx, p.fs, opts.Output); err != nil {
		return nil, errors.Wrapf(err, "save %s", opts.Output)
	}
	return placed, nil
}

func lastBox(doc *pdf.Document) pdf.Rect {
	if n := doc.PageCount(); n > 0 {
		if page, err := doc.Page(n - 1); err == nil {
			return page.MediaBox()
		}
	}
	return pdf.Letter
}
