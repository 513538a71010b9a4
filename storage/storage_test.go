package storage

import (
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var payload = []byte("%PDF-1.7 payload")

func readAll(t *testing.T, rc io.ReadCloser) []byte {
	t.Helper()
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return data
}

func TestMetadataChecksum(t *testing.T) {
	algo, sum, err := Metadata{MD5: "aa", SHA256: "bb"}.Checksum()
	require.NoError(t, err)
	assert.Equal(t, []string{"md5", "aa"}, []string{algo, sum})

	algo, sum, err = Metadata{SHA256: "bb"}.Checksum()
	require.NoError(t, err)
	assert.Equal(t, []string{"sha256", "bb"}, []string{algo, sum})

	_, _, err = Metadata{Filename: "x"}.Checksum()
	assert.True(t, errors.Is(err, ErrNoChecksum))
}

func TestGoogleDrive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/files/abc123" {
			http.NotFound(w, r)
			return
		}
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		if r.URL.Query().Get("alt") == "media" {
			w.Write(payload)
			return
		}
		assert.Equal(t, "name,fileExtension,md5Checksum", r.URL.Query().Get("fields"))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"name":"report.pdf.zst","fileExtension":"zst","md5Checksum":"0123abcd"}`)
	}))
	defer srv.Close()

	g := NewGoogleDrive(DriveConfig{BaseURL: srv.URL, Token: "tok", ClientConfig: ClientConfig{Retries: 0}})
	url := "https://drive.google.com/file/d/abc123/view?usp=sharing"

	md, err := g.Metadata(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, Metadata{Filename: "report.pdf.zst", FileExtension: "zst", MD5: "0123abcd"}, md)

	rc, err := g.Download(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, payload, readAll(t, rc))

	_, err = g.Metadata(context.Background(), "https://drive.google.com/file/d/missing/view")
	assert.Error(t, err)
	_, err = g.Download(context.Background(), "https://drive.google.com/drive/folders/x")
	assert.True(t, errors.Is(err, ErrUnsupported))
}

func TestDriveFileID(t *testing.T) {
	id, err := DriveFileID("https://drive.google.com/file/d/1AbC-d_E/view")
	require.NoError(t, err)
	assert.Equal(t, "1AbC-d_E", id)
	_, err = DriveFileID("https://drive.google.com/file/d/1AbC/edit")
	assert.Error(t, err)
}

func TestHTTP(t *testing.T) {
	sum := md5.Sum(payload)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/docs/a.pdf":
			w.Header().Set("Content-MD5", base64.StdEncoding.EncodeToString(sum[:]))
		case "/docs/b.pdf.gz":
			w.Header().Set("X-Checksum-Sha256", "ABCDEF")
		default:
			http.NotFound(w, r)
			return
		}
		if r.Method == http.MethodGet {
			w.Write(payload)
		}
	}))
	defer srv.Close()
	h := NewHTTP(ClientConfig{})

	md, err := h.Metadata(context.Background(), srv.URL+"/docs/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "a.pdf", md.Filename)
	assert.Equal(t, "pdf", md.FileExtension)
	assert.Equal(t, hex.EncodeToString(sum[:]), md.MD5)

	md, err = h.Metadata(context.Background(), srv.URL+"/docs/b.pdf.gz?x=1")
	require.NoError(t, err)
	assert.Equal(t, "gz", md.FileExtension)
	assert.Equal(t, "abcdef", md.SHA256)
	assert.Empty(t, md.MD5)

	rc, err := h.Download(context.Background(), srv.URL+"/docs/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, payload, readAll(t, rc))

	_, err = h.Download(context.Background(), srv.URL+"/missing")
	assert.Error(t, err)
}

type fakeRepo struct{ name string }

func (f fakeRepo) Metadata(context.Context, string) (Metadata, error) {
	return Metadata{Filename: f.name}, nil
}

func (f fakeRepo) Download(context.Context, string) (io.ReadCloser, error) {
	return io.NopCloser(nil), nil
}

func TestDelegating(t *testing.T) {
	d := NewDelegating(fakeRepo{"getter"})
	d.Register(DriveURLPrefix, fakeRepo{"drive"})
	built := 0
	d.RegisterLazy("https://files.example.com/", func() (Repository, error) {
		built++
		return fakeRepo{"files"}, nil
	})
	d.RegisterLazy("https://broken.example.com/", func() (Repository, error) {
		return nil, errors.New("no credentials")
	})

	for url, want := range map[string]string{
		"https://drive.google.com/file/d/x/view": "drive",
		"https://files.example.com/a/b.pdf":      "files",
		"https://files.example.com/c.pdf":        "files",
		"git::https://example.com/repo.git":      "getter",
	} {
		md, err := d.Metadata(context.Background(), url)
		require.NoError(t, err, url)
		assert.Equal(t, want, md.Filename, url)
	}
	assert.Equal(t, 1, built)

	_, err := d.Metadata(context.Background(), "https://other.example.com/x")
	assert.True(t, errors.Is(err, ErrUnsupported))
	_, err = d.Download(context.Background(), "not a url")
	assert.True(t, errors.Is(err, ErrUnsupported))
	_, err = d.Metadata(context.Background(), "https://broken.example.com/x")
	assert.ErrorContains(t, err, "no credentials")
}

func TestGetter(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "source.pdf")
	require.NoError(t, os.WriteFile(src, payload, 0o644))
	g := &Getter{TempDir: dir}

	_, err := g.Metadata(context.Background(), "file::"+src)
	assert.True(t, errors.Is(err, ErrNoMetadata))

	rc, err := g.Download(context.Background(), "file::"+src)
	require.NoError(t, err)
	assert.Equal(t, payload, readAll(t, rc))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "download directory removed on close")
}
