package assembly

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/legalkit/pdf"
)

func writeMetaPDF(t *testing.T, fs afero.Fs, path string, info map[string]string, boxes ...pdf.Rect) {
	t.Helper()
	doc := pdf.New()
	for _, b := range boxes {
		doc.AddBlankPage(b)
	}
	for k, v := range info {
		doc.SetInfo(k, v)
	}
	data, err := doc.Bytes(context.Background(), pdf.SaveOptions{})
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, path, data, 0o644))
}

func heights(t *testing.T, fs afero.Fs, path string) []float64 {
	t.Helper()
	doc, err := pdf.Open(context.Background(), fs, path)
	require.NoError(t, err)
	var out []float64
	for _, p := range doc.Pages() {
		out = append(out, p.MediaBox().URY)
	}
	return out
}

func TestReplacePages(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeMetaPDF(t, fs, "/out.pdf", map[string]string{"Title": "Bundle", "Author": "Clerk"},
		pdf.Rect{URX: 600, URY: 100}, pdf.Rect{URX: 600, URY: 101}, pdf.Rect{URX: 600, URY: 102})
	writeMetaPDF(t, fs, "/in.pdf", nil, pdf.Rect{URX: 600, URY: 200}, pdf.Rect{URX: 600, URY: 201})
	p := newPipeline(t, fs)

	err := p.Replace(context.Background(), ReplaceOptions{
		Target: "/out.pdf",
		Input:  "/in.pdf",
		Ops:    []PageOp{{Dest: 2, Source: 2}, {Dest: 2}},
		Meta:   []MetaEdit{{Key: "Title", Value: "Signed bundle"}, {Key: "Author", Delete: true}},
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{100, 201, 201, 102}, heights(t, fs, "/out.pdf"))

	doc, err := pdf.Open(context.Background(), fs, "/out.pdf")
	require.NoError(t, err)
	assert.Equal(t, []string{"Title"}, doc.InfoKeys())
	title, _ := doc.Info("Title")
	assert.Equal(t, "Signed bundle", title)
}

func TestReplaceMeta(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeMetaPDF(t, fs, "/out.pdf", map[string]string{"Title": "Old", "Keywords": "x"}, pdf.Letter)
	writeMetaPDF(t, fs, "/meta.pdf", map[string]string{"Author": "Registry"}, pdf.Letter)
	p := newPipeline(t, fs)

	require.NoError(t, p.Replace(context.Background(), ReplaceOptions{
		Target:      "/out.pdf",
		ReplaceMeta: true,
		MetaFrom:    "/meta.pdf",
		Meta:        []MetaEdit{{Key: "Subject", Value: "Exhibits"}},
	}))
	doc, err := pdf.Open(context.Background(), fs, "/out.pdf")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Author", "Subject"}, doc.InfoKeys())

	require.NoError(t, p.Replace(context.Background(), ReplaceOptions{Target: "/out.pdf", DeleteAllMeta: true}))
	doc, err = pdf.Open(context.Background(), fs, "/out.pdf")
	require.NoError(t, err)
	assert.Empty(t, doc.InfoKeys())
	assert.Equal(t, 1, doc.PageCount())
}

func TestReplaceValidation(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeMetaPDF(t, fs, "/out.pdf", nil, pdf.Letter)
	p := newPipeline(t, fs)
	ctx := context.Background()

	assert.True(t, errors.Is(p.Replace(ctx, ReplaceOptions{Input: "/in.pdf"}), ErrConfig))
	assert.True(t, errors.Is(p.Replace(ctx, ReplaceOptions{Target: "/out.pdf"}), ErrConfig))
	assert.True(t, errors.Is(p.Replace(ctx, ReplaceOptions{
		Target: "/out.pdf", Meta: []MetaEdit{{Key: "Title", Value: "x"}}, Ops: []PageOp{{Dest: 1, Source: 1}},
	}), ErrConfig))
	assert.True(t, errors.Is(p.Replace(ctx, ReplaceOptions{
		Target: "/out.pdf", Input: "/out.pdf", Ops: []PageOp{{Dest: 5}},
	}), pdf.ErrPageRange))
}
