// Package archive packs the documents and media files of an index into zip
// archives, optionally as a series of archives bounded in size.
package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"hash/crc32"
	"io"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/flate"
	"github.com/spf13/afero"

	"github.com/wudi/legalkit/filedb"
	"github.com/wudi/legalkit/index"
	"github.com/wudi/legalkit/observability"
	"github.com/wudi/legalkit/sizeformat"
	"github.com/wudi/legalkit/split"
	"github.com/wudi/legalkit/table"
)

const ColumnMedia = "Media"

// entryOverhead is the per-entry allowance for headers and the central
// directory when sizing an archive series.
const entryOverhead = 512

var (
	ErrSpanned       = errors.New("multi-volume zip archives are not supported, use a series of archives instead")
	ErrMissingColumn = errors.New("column not found in index file")
)

// Options selects the rows and the archive layout. With MaxArchive set the
// output is a series of archives each at most MaxArchive bytes. MaxPart
// asks for one spanned archive and is rejected.
type Options struct {
	Keys       []string
	Output     string
	MaxArchive int64
	MaxPart    int64
}

type Archiver struct {
	fs    afero.Fs
	files *filedb.DirTree
	log   observability.Logger
}

func New(fs afero.Fs, files *filedb.DirTree, log observability.Logger) *Archiver {
	return &Archiver{fs: fs, files: files, log: observability.OrNop(log)}
}

// Run archives the files of the included rows and returns the archives
// written.
func (a *Archiver) Run(ctx context.Context, t table.Table, opts Options) ([]string, error) {
	if opts.Output == "" {
		return nil, errors.New("output is mandatory")
	}
	if opts.MaxPart > 0 && opts.MaxArchive > 0 {
		return nil, errors.New("max part size and max archive size cannot be specified both")
	}
	if opts.MaxPart > 0 {
		return nil, ErrSpanned
	}
	paths, err := a.Collect(t, opts.Keys)
	if err != nil {
		return nil, err
	}
	if opts.MaxArchive > 0 {
		return a.WriteSeries(ctx, opts.Output, paths, opts.MaxArchive)
	}
	if err := a.Write(ctx, opts.Output, paths); err != nil {
		return nil, err
	}
	return []string{opts.Output}, nil
}

// Collect lists the existing document and media files of the included rows
// in index order. Missing files are logged and skipped.
func (a *Archiver) Collect(t table.Table, keys []string) ([]string, error) {
	if !t.HasColumn(ColumnMedia) {
		return nil, errors.Wrapf(ErrMissingColumn, "%q", ColumnMedia)
	}
	rows, err := index.NewReader(t).ReadIndex(keys)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, row := range rows {
		if path, err := a.files.Find(row.ID); err == nil {
			out = append(out, path)
		} else {
			a.log.Error("cannot find file", observability.String("file", row.ID))
		}
		media := row.Get(ColumnMedia)
		if media == "" {
			continue
		}
		if !filepath.IsAbs(media) {
			media = filepath.Join(a.files.Root, media)
		}
		if ok, _ := afero.Exists(a.fs, media); ok {
			out = append(out, media)
		} else {
			a.log.Error("cannot find file", observability.String("file", media))
		}
	}
	return out, nil
}

// Write stores paths in one archive.
func (a *Archiver) Write(ctx context.Context, output string, paths []string) error {
	z, err := a.create(output)
	if err != nil {
		return err
	}
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			z.abort()
			return err
		}
		e, err := deflate(a.fs, p)
		if err != nil {
			z.abort()
			return err
		}
		if err := z.add(e); err != nil {
			z.abort()
			return err
		}
	}
	return z.close(a.log)
}

// WriteSeries stores paths in archives named like split parts. An entry
// moves to the next archive when the bytes written so far plus its
// compressed size plus 512 bytes per entry would exceed max; the first
// entry of an archive is always accepted.
func (a *Archiver) WriteSeries(ctx context.Context, output string, paths []string, max int64) ([]string, error) {
	var written []string
	for n := 0; len(paths) > 0; n++ {
		name := split.PartName(output, n)
		z, err := a.create(name)
		if err != nil {
			return written, err
		}
		for count := 0; len(paths) > 0; count++ {
			if err := ctx.Err(); err != nil {
				z.abort()
				return written, err
			}
			e, err := deflate(a.fs, paths[0])
			if err != nil {
				z.abort()
				return written, err
			}
			if count > 0 && z.size()+int64(len(e.data))+entryOverhead*int64(count+1) > max {
				break
			}
			if err := z.add(e); err != nil {
				z.abort()
				return written, err
			}
			paths = paths[1:]
		}
		if err := z.close(a.log); err != nil {
			return written, err
		}
		written = append(written, name)
	}
	return written, nil
}

type rawEntry struct {
	header *zip.FileHeader
	data   []byte
}

// deflate compresses the file at path at best compression.
func deflate(fs afero.Fs, path string) (*rawEntry, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return nil, err
	}
	crc := crc32.NewIEEE()
	n, err := io.Copy(w, io.TeeReader(f, crc))
	if err != nil {
		return nil, errors.Wrapf(err, "compress %s", path)
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrapf(err, "compress %s", path)
	}
	header := &zip.FileHeader{
		Name:               filepath.Base(path),
		Method:             zip.Deflate,
		CRC32:              crc.Sum32(),
		CompressedSize64:   uint64(buf.Len()),
		UncompressedSize64: uint64(n),
		Modified:           info.ModTime(),
	}
	return &rawEntry{header: header, data: buf.Bytes()}, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

type zipFile struct {
	fs   afero.Fs
	path string
	file afero.File
	cw   *countingWriter
	zw   *zip.Writer
}

func (a *Archiver) create(path string) (*zipFile, error) {
	f, err := a.fs.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "create %s", path)
	}
	cw := &countingWriter{w: f}
	return &zipFile{fs: a.fs, path: path, file: f, cw: cw, zw: zip.NewWriter(cw)}, nil
}

// size is the number of bytes flushed to the file so far.
func (z *zipFile) size() int64 { return z.cw.n }

func (z *zipFile) add(e *rawEntry) error {
	w, err := z.zw.CreateRaw(e.header)
	if err != nil {
		return errors.Wrapf(err, "add %s to %s", e.header.Name, z.path)
	}
	if _, err := w.Write(e.data); err != nil {
		return errors.Wrapf(err, "add %s to %s", e.header.Name, z.path)
	}
	return z.zw.Flush()
}

func (z *zipFile) close(log observability.Logger) error {
	if err := z.zw.Close(); err != nil {
		z.file.Close()
		return errors.Wrapf(err, "finish %s", z.path)
	}
	if err := z.file.Close(); err != nil {
		return errors.Wrapf(err, "close %s", z.path)
	}
	log.Info("saved archive",
		observability.String("file", z.path),
		observability.String("size", sizeformat.Format(z.cw.n)))
	return nil
}

func (z *zipFile) abort() {
	z.file.Close()
	z.fs.Remove(z.path)
}
