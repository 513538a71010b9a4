package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	getter "github.com/hashicorp/go-getter"
)

// Getter downloads anything go-getter supports (git::, s3::, file::, ...)
// into a temporary file. It has no metadata, so callers always download.
type Getter struct {
	// TempDir is the parent of the per-download directories, os.TempDir
	// when empty.
	TempDir string
}

func (g *Getter) Metadata(ctx context.Context, url string) (Metadata, error) {
	return Metadata{}, errors.Wrapf(ErrNoMetadata, "go-getter source %s", url)
}

func (g *Getter) Download(ctx context.Context, url string) (io.ReadCloser, error) {
	dir, err := os.MkdirTemp(g.TempDir, "legalkit-get-")
	if err != nil {
		return nil, errors.Wrap(err, "create download directory")
	}
	pwd, _ := os.Getwd()
	dst := filepath.Join(dir, "file")
	client := &getter.Client{
		Ctx:  ctx,
		Src:  url,
		Dst:  dst,
		Pwd:  pwd,
		Mode: getter.ClientModeFile,
		// decompression is left to the caller, which keeps the archive
		Decompressors: map[string]getter.Decompressor{},
	}
	if err := client.Get(); err != nil {
		os.RemoveAll(dir)
		return nil, errors.Wrapf(err, "get %s", url)
	}
	f, err := os.Open(dst)
	if err != nil {
		os.RemoveAll(dir)
		return nil, errors.Wrapf(err, "open download of %s", url)
	}
	return &tempFile{File: f, dir: dir}, nil
}

// tempFile removes its directory on Close.
type tempFile struct {
	*os.File
	dir string
}

func (t *tempFile) Close() error {
	err := t.File.Close()
	if rmErr := os.RemoveAll(t.dir); err == nil {
		err = rmErr
	}
	return err
}
