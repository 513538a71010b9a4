package syncfiles

import (
	"bytes"
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
	"github.com/xuri/excelize/v2"

	"github.com/wudi/legalkit/storage"
	"github.com/wudi/legalkit/table"
)

var (
	docA  = []byte("%PDF-1.7 document a")
	docB  = []byte("%PDF-1.7 document b, delivered compressed")
	movie = []byte("media bytes")
)

func zstdOf(t *testing.T, data []byte) []byte {
	t.Helper()
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	defer enc.Close()
	return enc.EncodeAll(data, nil)
}

type remote struct {
	files map[string][]byte
	gets  atomic.Int64
}

func (r *remote) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	data, ok := r.files[req.URL.Path]
	if !ok {
		http.NotFound(w, req)
		return
	}
	if req.URL.Path == "/media.bin" {
		sum := sha256.Sum256(data)
		w.Header().Set("X-Checksum-Sha256", hex.EncodeToString(sum[:]))
	} else {
		sum := md5.Sum(data)
		w.Header().Set("Content-MD5", base64.StdEncoding.EncodeToString(sum[:]))
	}
	if req.Method == http.MethodGet {
		r.gets.Add(1)
		w.Write(data)
	}
}

func writeIndex(t *testing.T, fs afero.Fs, base string) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	rows := [][]any{
		{"Date", "Name", "Media"},
		{"2024-01-01", "a", "a-media.bin"},
		{"2024-01-02", "b", ""},
		{"2024-01-03", "c", ""},
		{"2024-01-04", "d", ""},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	links := map[string]string{
		"B2": base + "/a.pdf",
		"C2": base + "/media.bin",
		"B3": base + "/b.pdf.zst",
		"B4": base + "/missing.pdf",
	}
	for cell, link := range links {
		require.NoError(t, f.SetCellHyperLink("Sheet1", cell, link, "External"))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, afero.WriteFile(fs, "/index.xlsx", buf.Bytes(), 0o644))
}

func TestRun(t *testing.T) {
	rem := &remote{files: map[string][]byte{
		"/a.pdf":     docA,
		"/media.bin": movie,
		"/b.pdf.zst": zstdOf(t, docB),
	}}
	srv := httptest.NewServer(rem)
	defer srv.Close()

	fs := afero.NewMemMapFs()
	writeIndex(t, fs, srv.URL)
	tbl, err := table.Open(fs, "/index.xlsx", "", "")
	require.NoError(t, err)
	defer tbl.Close()

	s := New(fs, storage.NewHTTP(storage.ClientConfig{}), nil)
	opts := Options{Dir: "/docs", Workers: 2, DownloadsPerSecond: 1000}
	res, err := s.Run(context.Background(), tbl, opts)
	require.NoError(t, err)
	assert.Equal(t, Result{Downloaded: 3, Failed: 1}, res)
	assert.Equal(t, int64(3), rem.gets.Load())

	for path, want := range map[string][]byte{
		"/docs/a.pdf":       docA,
		"/docs/a-media.bin": movie,
		"/docs/b.pdf":       docB,
		"/docs/b.pdf.zst":   rem.files["/b.pdf.zst"],
	} {
		got, err := afero.ReadFile(fs, path)
		require.NoError(t, err, path)
		assert.Equal(t, want, got, path)
	}

	res, err = s.Run(context.Background(), tbl, opts)
	require.NoError(t, err)
	assert.Equal(t, Result{UpToDate: 3, Failed: 1}, res)
	assert.Equal(t, int64(3), rem.gets.Load())

	require.NoError(t, fs.Remove("/docs/b.pdf"))
	require.NoError(t, afero.WriteFile(fs, "/docs/a.pdf", []byte("stale"), 0o644))
	res, err = s.Run(context.Background(), tbl, opts)
	require.NoError(t, err)
	assert.Equal(t, Result{Downloaded: 2, UpToDate: 1, Failed: 1}, res)
	got, _ := afero.ReadFile(fs, "/docs/b.pdf")
	assert.Equal(t, docB, got)
}

func TestDecompressors(t *testing.T) {
	var gz bytes.Buffer
	w := gzip.NewWriter(&gz)
	w.Write(docB)
	require.NoError(t, w.Close())

	var xzBuf bytes.Buffer
	xw, err := xz.NewWriter(&xzBuf)
	require.NoError(t, err)
	xw.Write(docB)
	require.NoError(t, xw.Close())

	for ext, data := range map[string][]byte{"zst": zstdOf(t, docB), "gz": gz.Bytes(), "xz": xzBuf.Bytes()} {
		r, err := Decompressors[ext](bytes.NewReader(data))
		require.NoError(t, err, ext)
		var out bytes.Buffer
		_, err = out.ReadFrom(r)
		require.NoError(t, err, ext)
		r.Close()
		assert.Equal(t, docB, out.Bytes(), ext)
	}
}
