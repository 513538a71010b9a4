// Package filedb locates documents by name below a root directory.
package filedb

import (
	"io/fs"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
)

var ErrNotFound = errors.New("file not found")

// DirTree resolves names to paths below Root.
type DirTree struct {
	Fs        afero.Fs
	Root      string
	Extension string
}

// New returns a DirTree over the OS file system with the ".pdf" extension.
func New(root string) *DirTree {
	return &DirTree{Fs: afero.NewOsFs(), Root: root, Extension: ".pdf"}
}

// Find tries root/name, then root/name+Extension (name itself when
// absolute), then walks the tree for a file whose base name is name or
// name+Extension. The walk visits entries in lexical order, so the first
// match is stable.
func (d *DirTree) Find(name string) (string, error) {
	candidates := []string{name}
	if d.Extension != "" {
		candidates = append(candidates, name+d.Extension)
	}
	for _, c := range candidates {
		p := c
		if !filepath.IsAbs(c) {
			p = filepath.Join(d.Root, c)
		}
		if st, err := d.Fs.Stat(p); err == nil && !st.IsDir() {
			return p, nil
		}
	}

	base := filepath.Base(name)
	var found string
	errStop := errors.New("stop")
	err := afero.Walk(d.Fs, d.Root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			return nil
		}
		n := info.Name()
		if n == base || (d.Extension != "" && n == base+d.Extension) {
			found = path
			return errStop
		}
		return nil
	})
	if found != "" {
		return found, nil
	}
	if err != nil && !errors.Is(err, errStop) {
		return "", errors.Wrapf(err, "search %s", name)
	}
	return "", errors.Wrapf(ErrNotFound, "%s", name)
}
