package checksum

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/legalkit/filedb"
	"github.com/wudi/legalkit/table"
)

func sha(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func TestSum(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/f", []byte("abc"), 0o644))

	got, err := Sum(fs, "/f", "md5")
	require.NoError(t, err)
	assert.Equal(t, "900150983cd24fb0d6963f7d28e17f72", got)
	got, err = Sum(fs, "/f", "sha256")
	require.NoError(t, err)
	assert.Equal(t, sha("abc"), got)

	_, err = Sum(fs, "/f", "crc32")
	assert.True(t, errors.Is(err, ErrUnsupportedAlgorithm))
	_, err = Sum(fs, "/missing", "md5")
	assert.Error(t, err)
}

const indexTSV = "Name\tMedia\tSHA256\tMedia SHA256\tK Exh\n" +
	"a\ta.mp4\told\t\tx\n" +
	"b\tgone.mp4\t\t\tx\n" +
	"c\t\t\t\texclude\n"

func TestRun(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/case/docs/a.pdf", []byte("alpha"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/case/a.mp4", []byte("movie"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/case/c.pdf", []byte("gamma"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/case/index.tsv", []byte(indexTSV), 0o644))
	tbl, err := table.Open(fs, "/case/index.tsv", "", "")
	require.NoError(t, err)

	u := New(fs, &filedb.DirTree{Fs: fs, Root: "/case", Extension: ".pdf"}, nil)
	res, err := u.Run(context.Background(), tbl, Options{Keys: []string{"K"}, Workers: 2})
	require.NoError(t, err)
	assert.Equal(t, Result{Documents: 1, Media: 1, Missing: 2}, res)

	again, err := table.Open(fs, "/case/index.tsv", "", "")
	require.NoError(t, err)
	for _, c := range []struct{ id, col, want string }{
		{"a", ColumnSHA256, sha("alpha")},
		{"a", ColumnMediaSHA256, sha("movie")},
		{"b", ColumnSHA256, ""},
		{"c", ColumnSHA256, ""},
	} {
		v, _ := again.Value(c.id, c.col)
		assert.Equal(t, c.want, v, c.id+" "+c.col)
	}
}

func TestRunRequiresColumns(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/i.tsv", []byte("Name\tSHA256\na\t\n"), 0o644))
	tbl, err := table.Open(fs, "/i.tsv", "", "")
	require.NoError(t, err)
	_, err = New(fs, &filedb.DirTree{Fs: fs, Root: "/"}, nil).Run(context.Background(), tbl, Options{})
	assert.True(t, errors.Is(err, ErrMissingColumn))
}
