package filedb

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture(t *testing.T) *DirTree {
	t.Helper()
	fs := afero.NewMemMapFs()
	for _, p := range []string{"/case/a.pdf", "/case/notes", "/case/sub/deep/b.pdf", "/case/sub/c"} {
		require.NoError(t, afero.WriteFile(fs, p, []byte("x"), 0o644))
	}
	return &DirTree{Fs: fs, Root: "/case", Extension: ".pdf"}
}

func TestFind(t *testing.T) {
	db := fixture(t)
	tests := map[string]string{
		"a":     "/case/a.pdf",
		"a.pdf": "/case/a.pdf",
		"notes": "/case/notes",
		"b":     "/case/sub/deep/b.pdf",
		"c":     "/case/sub/c",
	}
	for name, want := range tests {
		got, err := db.Find(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
}

func TestFindMissing(t *testing.T) {
	_, err := fixture(t).Find("nothing")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "nothing")
}
