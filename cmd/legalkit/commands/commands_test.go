package commands

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/legalkit/observability"
	"github.com/wudi/legalkit/pdf"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	chdir(t, t.TempDir())
	return &App{Fs: afero.NewMemMapFs(), Root: "/case", Viper: viper.New(), Log: observability.NopLogger{}}
}

func run(t *testing.T, app *App, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRoot(app)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writePDF(t *testing.T, fs afero.Fs, path string, pages int) {
	t.Helper()
	doc := pdf.New()
	for i := 0; i < pages; i++ {
		doc.AddBlankPage(pdf.Letter)
	}
	data, err := doc.Bytes(context.Background(), pdf.SaveOptions{})
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, path, data, 0o644))
}

func TestCode(t *testing.T) {
	out, err := run(t, newTestApp(t), "", "join-exhibit", "--code")
	require.NoError(t, err)
	assert.Contains(t, out, "google-docs-exhibit-update.js - Google Docs exhibit update script")

	out, err = run(t, newTestApp(t), "", "join-exhibit", "--code", "google-docs-exhibit-update.js")
	require.NoError(t, err)
	assert.Contains(t, out, "function processExhibits()")

	_, err = run(t, newTestApp(t), "", "join-exhibit", "--code=missing.js")
	assert.Error(t, err)
}

func TestJoinExhibitWithScript(t *testing.T) {
	app := newTestApp(t)
	writePDF(t, app.Fs, "/case/a.pdf", 1)
	writePDF(t, app.Fs, "/case/b.pdf", 2)

	out, err := run(t, app, "", "join-exhibit", "-o", "/case/out.pdf", "--tn",
		"-t", "name=Jane Roe", "-t", "date=2024/Jan/05", "-t", "province=Ontario",
		"--script-out", "/case/update.js", "a", "b")
	require.NoError(t, err)
	assert.Contains(t, out, "Exhibit map:")

	doc, err := pdf.Open(context.Background(), app.Fs, "/case/out.pdf")
	require.NoError(t, err)
	assert.Equal(t, 3, doc.PageCount())

	script, err := afero.ReadFile(app.Fs, "/case/update.js")
	require.NoError(t, err)
	assert.Contains(t, string(script), `"a": {`)
	assert.NotContains(t, string(script), "my-storage.com")
}

func TestJoinExhibitArgs(t *testing.T) {
	_, err := run(t, newTestApp(t), "", "join-exhibit", "-o", "/out.pdf")
	assert.ErrorContains(t, err, "source files")

	_, err = run(t, newTestApp(t), "", "join-exhibit", "--ss", "--sa", "a")
	assert.Error(t, err)

	_, err = run(t, newTestApp(t), "", "join-exhibit", "-o", "/out.pdf", "-t", "novalue", "a")
	assert.ErrorContains(t, err, "key=value")
}

func TestPdfUtilities(t *testing.T) {
	app := newTestApp(t)
	require.NoError(t, app.Fs.MkdirAll("/case", 0o755))

	_, err := run(t, app, "", "pdf-empty", "-o", "/case/empty.pdf")
	require.NoError(t, err)
	doc, err := pdf.Open(context.Background(), app.Fs, "/case/empty.pdf")
	require.NoError(t, err)
	assert.Equal(t, 0, doc.PageCount())

	writePDF(t, app.Fs, "/case/doc.pdf", 2)
	_, err = run(t, app, "", "pdf-replace", "-o", "/case/doc.pdf", "--title", "Bundle", "--author", "Clerk", "-a", "1")
	require.NoError(t, err)
	out, err := run(t, app, "", "pdf-meta", "-o", "/case/doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, "Author: Clerk\nTitle: Bundle\n", out)
	doc, err = pdf.Open(context.Background(), app.Fs, "/case/doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, 3, doc.PageCount())

	_, err = run(t, app, "", "pdf-decompress", "-o", "/case/plain.pdf", "/case/doc.pdf")
	require.NoError(t, err)
	exists, _ := afero.Exists(app.Fs, "/case/plain.pdf")
	assert.True(t, exists)

	_, err = run(t, app, "", "pdf-meta")
	assert.ErrorContains(t, err, "-o output")
	_, err = run(t, app, "", "pdf-replace", "-o", "/case/doc.pdf", "-m", "1=x", "-i", "/case/doc.pdf")
	assert.Error(t, err)
}

func TestPdfJoinAndSplit(t *testing.T) {
	app := newTestApp(t)
	writePDF(t, app.Fs, "/case/a.pdf", 3)
	writePDF(t, app.Fs, "/case/b.pdf", 2)

	out, err := run(t, app, "", "pdf-join", "-o", "/case/joined.pdf", "--align", "2", "-a", "1",
		"/case/a.pdf", "/case/b.pdf")
	require.NoError(t, err)
	assert.Equal(t, "/case/a.pdf\t1\t4\n/case/b.pdf\t5\t2\n", out)

	out, err = run(t, app, "", "pdf-split", "-o", "/case/part.pdf", "-p", "4", "/case/joined.pdf")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "/case/part-0000.pdf\t1\t4\t"))
	assert.True(t, strings.HasPrefix(lines[1], "/case/part-0001.pdf\t5\t2\t"))

	_, err = run(t, app, "", "pdf-split", "-o", "/case/part.pdf", "--max-size", "12Q", "/case/joined.pdf")
	assert.Error(t, err)
}

func TestTabConfigToText(t *testing.T) {
	out, err := run(t, newTestApp(t), "A\ttab1\nB\ttab2\textra\n", "tab-config-to-text")
	require.NoError(t, err)
	assert.Equal(t, "A=tab1,B=tab2=extra,\n", out)
}

func TestIndexCommandsNeedList(t *testing.T) {
	for _, name := range []string{"update-checksum", "sync-files", "zip", "doc-index"} {
		_, err := run(t, newTestApp(t), "", name)
		assert.ErrorContains(t, err, "-l index file", name)
	}
}

// chdir changes the working directory for the duration of the test
// (equivalent to testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(old) })
}
