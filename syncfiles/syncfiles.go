// Package syncfiles downloads the documents and media files linked from an
// index into the local tree, skipping files whose checksum already matches
// the remote one.
package syncfiles

import (
	"context"
	"io"
	"path/filepath"
	"runtime"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/spf13/afero"
	"github.com/ulikunitz/xz"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/wudi/legalkit/checksum"
	"github.com/wudi/legalkit/index"
	"github.com/wudi/legalkit/observability"
	"github.com/wudi/legalkit/storage"
	"github.com/wudi/legalkit/table"
)

const ColumnMedia = "Media"

// Decompressors maps remote file extensions to stream decoders. A document
// with one of these extensions is kept compressed next to its expanded copy.
var Decompressors = map[string]func(io.Reader) (io.ReadCloser, error){
	"zst": func(r io.Reader) (io.ReadCloser, error) {
		d, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return d.IOReadCloser(), nil
	},
	"gz": func(r io.Reader) (io.ReadCloser, error) {
		return gzip.NewReader(r)
	},
	"xz": func(r io.Reader) (io.ReadCloser, error) {
		d, err := xz.NewReader(r)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(d), nil
	},
}

type Options struct {
	Keys []string
	// Dir is where files are stored, the working directory when empty.
	Dir     string
	Workers int
	// DownloadsPerSecond limits transfers; zero is unlimited.
	DownloadsPerSecond float64
}

// Result counts files per outcome.
type Result struct {
	Downloaded int64
	UpToDate   int64
	Failed     int64
}

type Syncer struct {
	fs   afero.Fs
	repo storage.Repository
	log  observability.Logger
}

func New(fs afero.Fs, repo storage.Repository, log observability.Logger) *Syncer {
	return &Syncer{fs: fs, repo: repo, log: observability.OrNop(log)}
}

type job struct {
	local string
	url   string
	pdf   bool

	// set by prepare
	target string
	decode func(io.Reader) (io.ReadCloser, error)
}

// Run syncs every included row. Preparation and decompression run in a
// bounded pool, transfers go through a single download worker. All work
// is finished when Run returns; per-file failures are counted in Result.
func (s *Syncer) Run(ctx context.Context, t table.Table, opts Options) (Result, error) {
	rows, err := index.NewReader(t).ReadIndex(opts.Keys)
	if err != nil {
		return Result{}, err
	}
	var jobs []*job
	for _, row := range rows {
		if url, ok := t.Hyperlink(row.ID, table.IDColumn); ok {
			jobs = append(jobs, &job{local: filepath.Join(opts.Dir, row.ID+".pdf"), url: url, pdf: true})
		}
		if media := row.Get(ColumnMedia); media != "" {
			if url, ok := t.Hyperlink(row.ID, ColumnMedia); ok {
				jobs = append(jobs, &job{local: filepath.Join(opts.Dir, media), url: url})
			}
		}
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	var limiter *rate.Limiter
	if opts.DownloadsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.DownloadsPerSecond), 1)
	}

	var (
		res       Result
		prepare   errgroup.Group
		post      errgroup.Group
		downloads = make(chan *job)
		done      = make(chan struct{})
	)
	prepare.SetLimit(workers)
	post.SetLimit(workers)

	go func() {
		defer close(done)
		for j := range downloads {
			j := j
			if err := s.download(ctx, j, limiter); err != nil {
				s.fail(&res, j, err)
				continue
			}
			if j.decode == nil {
				atomic.AddInt64(&res.Downloaded, 1)
				continue
			}
			post.Go(func() error {
				if err := s.decompress(j); err != nil {
					s.fail(&res, j, err)
					return nil
				}
				atomic.AddInt64(&res.Downloaded, 1)
				return nil
			})
		}
	}()

	for _, j := range jobs {
		j := j
		prepare.Go(func() error {
			current, err := s.prepare(ctx, j)
			switch {
			case err != nil:
				s.fail(&res, j, err)
			case current:
				s.log.Debug("up to date", observability.String("file", j.target))
				atomic.AddInt64(&res.UpToDate, 1)
			default:
				select {
				case downloads <- j:
				case <-ctx.Done():
					s.fail(&res, j, ctx.Err())
				}
			}
			return nil
		})
	}
	prepare.Wait()
	close(downloads)
	<-done
	post.Wait()
	return res, ctx.Err()
}

func (s *Syncer) fail(res *Result, j *job, err error) {
	s.log.Error("failed to download file",
		observability.String("file", j.local),
		observability.String("url", j.url),
		observability.Error("error", err))
	atomic.AddInt64(&res.Failed, 1)
}

// prepare picks the local target of j and reports whether it already
// matches the remote checksum.
func (s *Syncer) prepare(ctx context.Context, j *job) (bool, error) {
	j.target = j.local
	md, err := s.repo.Metadata(ctx, j.url)
	if errors.Is(err, storage.ErrNoMetadata) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if j.pdf {
		if decode, ok := Decompressors[md.FileExtension]; ok {
			j.target = j.local + "." + md.FileExtension
			j.decode = decode
		}
	}
	if ok, _ := afero.Exists(s.fs, j.target); !ok {
		return false, nil
	}
	algorithm, want, err := md.Checksum()
	if err != nil {
		return false, err
	}
	got, err := checksum.Sum(s.fs, j.target, algorithm)
	if err != nil {
		return false, err
	}
	if got != want {
		return false, nil
	}
	if j.decode != nil {
		expanded, _ := afero.Exists(s.fs, j.local)
		if !expanded {
			return false, nil
		}
	}
	return true, nil
}

func (s *Syncer) download(ctx context.Context, j *job, limiter *rate.Limiter) error {
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
	}
	s.log.Info("downloading", observability.String("file", j.target), observability.String("url", j.url))
	body, err := s.repo.Download(ctx, j.url)
	if err != nil {
		return err
	}
	defer body.Close()
	if err := afero.WriteReader(s.fs, j.target, body); err != nil {
		return errors.Wrapf(err, "write %s", j.target)
	}
	return nil
}

func (s *Syncer) decompress(j *job) error {
	in, err := s.fs.Open(j.target)
	if err != nil {
		return err
	}
	defer in.Close()
	r, err := j.decode(in)
	if err != nil {
		return errors.Wrapf(err, "decompress %s", j.target)
	}
	defer r.Close()
	if err := afero.WriteReader(s.fs, j.local, r); err != nil {
		return errors.Wrapf(err, "decompress %s", j.target)
	}
	return nil
}
