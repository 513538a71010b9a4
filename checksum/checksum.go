// Package checksum records SHA-256 digests of index documents and their
// media files in the index.
package checksum

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
	"path/filepath"
	"runtime"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/wudi/legalkit/filedb"
	"github.com/wudi/legalkit/index"
	"github.com/wudi/legalkit/observability"
	"github.com/wudi/legalkit/table"
)

const (
	ColumnSHA256      = "SHA256"
	ColumnMedia       = "Media"
	ColumnMediaSHA256 = "Media SHA256"
)

var (
	ErrMissingColumn        = errors.New("column not found in index file")
	ErrUnsupportedAlgorithm = errors.New("unsupported checksum algorithm")
)

// Sum returns the lowercase hex digest of the file at path. algorithm is
// "md5" or "sha256".
func Sum(fs afero.Fs, path, algorithm string) (string, error) {
	var h hash.Hash
	switch algorithm {
	case "md5":
		h = md5.New()
	case "sha256":
		h = sha256.New()
	default:
		return "", errors.Wrapf(ErrUnsupportedAlgorithm, "%q", algorithm)
	}
	f, err := fs.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.Wrapf(err, "read %s", path)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

type Options struct {
	Keys    []string
	Workers int
}

// Result counts the digests written and the files that could not be found.
type Result struct {
	Documents int
	Media     int
	Missing   int
}

type Updater struct {
	fs    afero.Fs
	files *filedb.DirTree
	log   observability.Logger
}

func New(fs afero.Fs, files *filedb.DirTree, log observability.Logger) *Updater {
	return &Updater{fs: fs, files: files, log: observability.OrNop(log)}
}

type entry struct {
	name, media           string
	sum, mediaSum         string
	missing, mediaMissing bool
}

// Run hashes the document and media file of every included row in a
// bounded pool and saves the index once. Missing files are logged and
// left unchanged in the index.
func (u *Updater) Run(ctx context.Context, t table.Table, opts Options) (Result, error) {
	for _, col := range []string{ColumnSHA256, ColumnMedia, ColumnMediaSHA256} {
		if !t.HasColumn(col) {
			return Result{}, errors.Wrapf(ErrMissingColumn, "%q", col)
		}
	}
	rows, err := index.NewReader(t).ReadIndex(opts.Keys)
	if err != nil {
		return Result{}, err
	}
	entries := make([]*entry, len(rows))
	for i, row := range rows {
		entries[i] = &entry{name: row.ID, media: row.Get(ColumnMedia)}
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, e := range entries {
		e := e
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			e.sum, e.missing = u.document(e.name)
			return nil
		})
		if e.media == "" {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			e.mediaSum, e.mediaMissing = u.mediaFile(e.media)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	var res Result
	for _, e := range entries {
		if e.missing {
			res.Missing++
		}
		if e.mediaMissing {
			res.Missing++
		}
		if e.sum != "" {
			if err := t.SetValue(e.name, ColumnSHA256, e.sum); err != nil {
				return res, err
			}
			res.Documents++
		}
		if e.mediaSum != "" {
			if err := t.SetValue(e.name, ColumnMediaSHA256, e.mediaSum); err != nil {
				return res, err
			}
			res.Media++
		}
	}
	if err := t.Save(); err != nil {
		return res, errors.Wrap(err, "update index")
	}
	return res, nil
}

func (u *Updater) document(name string) (sum string, missing bool) {
	path, err := u.files.Find(name)
	if err != nil {
		u.log.Error("cannot find file", observability.String("file", name))
		return "", true
	}
	sum, err = Sum(u.fs, path, "sha256")
	if err != nil {
		u.log.Error("failed to process file", observability.String("file", path), observability.Error("error", err))
		return "", false
	}
	return sum, false
}

func (u *Updater) mediaFile(name string) (sum string, missing bool) {
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(u.files.Root, name)
	}
	if ok, _ := afero.Exists(u.fs, path); !ok {
		u.log.Error("cannot find file", observability.String("file", path))
		return "", true
	}
	sum, err := Sum(u.fs, path, "sha256")
	if err != nil {
		u.log.Error("failed to process file", observability.String("file", path), observability.Error("error", err))
		return "", false
	}
	return sum, false
}
