// Package split cuts the concatenated pages of several documents into
// numbered parts bounded by a byte size and a page count. Part boundaries
// stay on multiples of the group size so that printed sheets are not torn
// apart.
package split

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/spf13/afero"

	"github.com/wudi/legalkit/observability"
	"github.com/wudi/legalkit/pdf"
	"github.com/wudi/legalkit/sizeformat"
)

const (
	DefaultGroupSize = 2
	DefaultCacheSize = 8
)

var ErrNoSources = errors.New("no source documents")

// Options bounds the parts. A zero MaxBytes or MaxPages means unlimited.
// MaxPages counts whole groups: 5 pages with a group of 2 allow 4 pages per
// part, and a limit below one group allows exactly one group.
type Options struct {
	MaxBytes  int64
	MaxPages  int
	GroupSize int
	Output    string
}

func (o Options) group() int {
	if o.GroupSize <= 0 {
		return DefaultGroupSize
	}
	return o.GroupSize
}

// Range is the half-open page interval [Start, End) of the concatenation.
type Range struct {
	Start, End int
}

// Part is one written output file.
type Part struct {
	Path string
	Range
	Size int64
}

// Splitter loads sources through an LRU cache of parsed documents.
type Splitter struct {
	fs    afero.Fs
	log   observability.Logger
	cache *lru.Cache[string, *pdf.Document]
}

func New(fs afero.Fs, log observability.Logger, cacheSize int) (*Splitter, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, *pdf.Document](cacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "init document cache")
	}
	return &Splitter{fs: fs, log: observability.OrNop(log), cache: cache}, nil
}

func (s *Splitter) load(ctx context.Context, path string) (*pdf.Document, error) {
	if doc, ok := s.cache.Get(path); ok {
		return doc, nil
	}
	doc, err := pdf.Open(ctx, s.fs, path)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	s.cache.Add(path, doc)
	return doc, nil
}

type source struct {
	path   string
	offset int
	pages  int
}

// pageMap maps cumulative page offsets to the source supplying them.
type pageMap []source

func (m pageMap) total() int {
	if len(m) == 0 {
		return 0
	}
	last := m[len(m)-1]
	return last.offset + last.pages
}

// from returns the sources overlapping [start, end) in order.
func (m pageMap) from(start, end int) []source {
	i := sort.Search(len(m), func(i int) bool { return m[i].offset+m[i].pages > start })
	var out []source
	for ; i < len(m) && m[i].offset < end; i++ {
		if m[i].pages > 0 {
			out = append(out, m[i])
		}
	}
	return out
}

// Split writes the pages of sources as parts named after opts.Output with a
// "-%04d" counter before the extension.
func (s *Splitter) Split(ctx context.Context, sources []string, opts Options) ([]Part, error) {
	if len(sources) == 0 {
		return nil, ErrNoSources
	}
	if opts.Output == "" {
		return nil, errors.New("output is mandatory")
	}
	var m pageMap
	offset := 0
	for _, path := range sources {
		doc, err := s.load(ctx, path)
		if err != nil {
			return nil, err
		}
		m = append(m, source{path: path, offset: offset, pages: doc.PageCount()})
		offset += doc.PageCount()
	}
	total := m.total()

	var parts []Part
	for cur := 0; cur < total; {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var candidate *pdf.Document
		candidateEnd := -1
		fits := func(end int) (bool, error) {
			if opts.MaxBytes <= 0 {
				return true, nil
			}
			doc, err := s.build(ctx, m, cur, end)
			if err != nil {
				return false, err
			}
			size, err := doc.Size(ctx)
			if err != nil {
				return false, err
			}
			s.log.Debug("measured candidate",
				observability.Int("start", cur), observability.Int("end", end), observability.Int64("size", size))
			candidate, candidateEnd = doc, end
			return size <= opts.MaxBytes, nil
		}
		end, err := nextEnd(cur, total, opts.MaxPages, opts.group(), fits)
		if err != nil {
			return nil, err
		}
		if candidateEnd != end {
			if candidate, err = s.build(ctx, m, cur, end); err != nil {
				return nil, err
			}
		}
		part, err := s.save(ctx, candidate, PartName(opts.Output, len(parts)))
		if err != nil {
			return nil, err
		}
		part.Range = Range{Start: cur, End: end}
		parts = append(parts, part)
		cur = end
	}
	return parts, nil
}

// build assembles pages [start, end). A source lying entirely inside the
// range is appended whole, otherwise only the covered pages are cloned.
// Identical streams are merged before the size is measured.
func (s *Splitter) build(ctx context.Context, m pageMap, start, end int) (*pdf.Document, error) {
	out := pdf.New()
	for _, src := range m.from(start, end) {
		doc, err := s.load(ctx, src.path)
		if err != nil {
			return nil, err
		}
		lo, hi := max(start, src.offset), min(end, src.offset+src.pages)
		if lo == src.offset && hi == src.offset+src.pages {
			if err := out.AppendDocument(doc); err != nil {
				return nil, errors.Wrapf(err, "append %s", src.path)
			}
			continue
		}
		indices := make([]int, 0, hi-lo)
		for i := lo; i < hi; i++ {
			indices = append(indices, i-src.offset)
		}
		pages, err := out.ImportPages(doc, indices)
		if err != nil {
			return nil, errors.Wrapf(err, "clone pages of %s", src.path)
		}
		if err := out.InsertPages(out.PageCount(), pages...); err != nil {
			return nil, err
		}
	}
	out.DeduplicateStreams()
	return out, nil
}

func (s *Splitter) save(ctx context.Context, doc *pdf.Document, path string) (Part, error) {
	if err := doc.Save(ctx, s.fs, path); err != nil {
		return Part{}, errors.Wrapf(err, "save %s", path)
	}
	info, err := s.fs.Stat(path)
	if err != nil {
		return Part{}, errors.Wrapf(err, "stat %s", path)
	}
	s.log.Info("saved output",
		observability.String("file", path),
		observability.String("size", sizeformat.Format(info.Size())),
		observability.Int("pages", doc.PageCount()))
	return Part{Path: path, Size: info.Size()}, nil
}

// PartName returns the n-th part file name for output.
func PartName(output string, n int) string {
	ext := filepath.Ext(output)
	return strings.TrimSuffix(output, ext) + fmt.Sprintf("-%04d", n) + ext
}

// Plan partitions total pages by page count alone.
func Plan(total, maxPages, group int) []Range {
	if group <= 0 {
		group = DefaultGroupSize
	}
	var out []Range
	for cur := 0; cur < total; {
		end, _ := nextEnd(cur, total, maxPages, group, func(int) (bool, error) { return true, nil })
		out = append(out, Range{Start: cur, End: end})
		cur = end
	}
	return out
}

// nextEnd searches the end of the part starting at cur. The candidate end
// is rounded down to a multiple of group; fits reports whether the
// candidate [cur, end) is within the size limit. The window never shrinks
// below lowEnd, and a single group that does not fit is accepted anyway.
//
// maxPages is rounded down to whole groups, and is at least one group, so
// only the final part of a split may end off a group boundary.
func nextEnd(cur, total, maxPages, group int, fits func(end int) (bool, error)) (int, error) {
	lowEnd := min(cur+group, total)
	highEnd := total
	if maxPages > 0 {
		if limit := max(group, maxPages/group*group); limit < total-cur {
			highEnd = cur + limit
		}
	}
	for {
		middle := (lowEnd + highEnd) / 2 / group * group
		if middle <= lowEnd {
			middle = highEnd
		}
		ok, err := fits(middle)
		if err != nil {
			return 0, err
		}
		switch {
		case !ok && middle-group > cur:
			highEnd = max(middle-group, lowEnd)
		case lowEnd < middle && middle < highEnd:
			lowEnd = middle
		default:
			return middle, nil
		}
	}
}
