package index

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/legalkit/table"
)

const fixture = "Name\tA Exh\tB Exh\n" +
	"BASE\tAA\tAA\n" +
	"FILES\t/case/base.pdf\t/case/out.pdf\n" +
	"TABMAP\tA=tab1\tB=tab2\n" +
	"one\tx\t\n" +
	"two\texclude\t\n" +
	"three\texclude:dup\ty\n" +
	"four\tref:one\t\n" +
	"five\texcluded\t\n"

func open(t *testing.T) table.Table {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/i.tsv", []byte(fixture), 0o644))
	tbl, err := table.Open(fs, "/i.tsv", "", "")
	require.NoError(t, err)
	return tbl
}

func ids(rows []table.Row) []string {
	var out []string
	for _, r := range rows {
		out = append(out, r.ID)
	}
	return out
}

func TestExcluded(t *testing.T) {
	for _, v := range []string{"", "exclude", "exclude:dup", "excluded", "ref:one"} {
		assert.True(t, Excluded(v), v)
	}
	for _, v := range []string{"x", "AA", "ref", "Exclude"} {
		assert.False(t, Excluded(v), v)
	}
}

func TestReadIndex(t *testing.T) {
	r := NewReader(open(t))

	rows, err := r.ReadIndex([]string{"A"})
	require.NoError(t, err)
	assert.Equal(t, []string{"one"}, ids(rows))

	rows, err = r.ReadIndex([]string{"A", "B"})
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "three"}, ids(rows))

	rows, err = r.ReadIndex(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two", "three", "four", "five"}, ids(rows))
}

func TestReadIndexMissingKey(t *testing.T) {
	_, err := NewReader(open(t)).ReadIndex([]string{"C"})
	assert.True(t, errors.Is(err, ErrMissingKeyColumn))
}

func TestIsExhibitIncluded(t *testing.T) {
	r := NewReader(open(t))
	assert.True(t, r.IsExhibitIncluded("three", []string{"B"}))
	assert.False(t, r.IsExhibitIncluded("three", []string{"A"}))
	for _, id := range []string{"BASE", "FILES", "TABMAP"} {
		assert.False(t, r.IsExhibitIncluded(id, []string{"A"}), id)
		assert.False(t, r.IsExhibitIncluded(id, nil), id)
	}
	assert.False(t, r.IsExhibitIncluded("missing", nil))
}
