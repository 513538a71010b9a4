// Package storage fetches index documents from remote repositories: Google
// Drive, plain HTTP(S) servers and anything go-getter understands.
package storage

import (
	"context"
	"io"
	"regexp"
	"sync"

	"github.com/cockroachdb/errors"
)

var (
	ErrUnsupported = errors.New("unsupported storage repository")
	ErrNoMetadata  = errors.New("metadata not available")
	ErrNoChecksum  = errors.New("no checksum in metadata")
)

// Repository reads one kind of remote storage.
type Repository interface {
	Metadata(ctx context.Context, url string) (Metadata, error)
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}

// Metadata describes a remote file. Checksums are lowercase hex.
type Metadata struct {
	Filename      string
	FileExtension string
	MD5           string
	SHA256        string
}

// Checksum returns the preferred digest: md5 when present, else sha256.
func (m Metadata) Checksum() (algorithm, sum string, err error) {
	switch {
	case m.MD5 != "":
		return "md5", m.MD5, nil
	case m.SHA256 != "":
		return "sha256", m.SHA256, nil
	}
	return "", "", errors.Wrapf(ErrNoChecksum, "file %q", m.Filename)
}

var (
	urlPrefix    = regexp.MustCompile(`^(\w+://[^/]+/)`)
	forcedGetter = regexp.MustCompile(`^\w+::`)
)

// Delegating routes each URL to the repository registered for its
// "scheme://host/" prefix. URLs forcing a go-getter ("git::...") go to the
// getter repository.
type Delegating struct {
	mu       sync.RWMutex
	prefixes map[string]func() (Repository, error)
	getter   Repository
}

func NewDelegating(getter Repository) *Delegating {
	return &Delegating{prefixes: make(map[string]func() (Repository, error)), getter: getter}
}

// Register adds repo for prefix, which must look like "https://host/".
func (d *Delegating) Register(prefix string, repo Repository) {
	d.RegisterLazy(prefix, func() (Repository, error) { return repo, nil })
}

// RegisterLazy adds a repository built on first use.
func (d *Delegating) RegisterLazy(prefix string, build func() (Repository, error)) {
	var (
		once sync.Once
		repo Repository
		err  error
	)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.prefixes[prefix] = func() (Repository, error) {
		once.Do(func() { repo, err = build() })
		return repo, err
	}
}

func (d *Delegating) find(url string) (Repository, error) {
	if d.getter != nil && forcedGetter.MatchString(url) {
		return d.getter, nil
	}
	m := urlPrefix.FindStringSubmatch(url)
	if m == nil {
		return nil, errors.Wrapf(ErrUnsupported, "unrecognized URL, expecting %s got: %s", urlPrefix, url)
	}
	d.mu.RLock()
	build, ok := d.prefixes[m[1]]
	d.mu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrUnsupported, "URL %s", url)
	}
	repo, err := build()
	if err != nil {
		return nil, errors.Wrapf(err, "storage for %s", m[1])
	}
	return repo, nil
}

func (d *Delegating) Metadata(ctx context.Context, url string) (Metadata, error) {
	repo, err := d.find(url)
	if err != nil {
		return Metadata{}, err
	}
	return repo.Metadata(ctx, url)
}

func (d *Delegating) Download(ctx context.Context, url string) (io.ReadCloser, error) {
	repo, err := d.find(url)
	if err != nil {
		return nil, err
	}
	return repo.Download(ctx, url)
}
