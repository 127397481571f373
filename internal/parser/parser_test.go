package parser

import (
	"archive/zip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"document-oracle/internal/config"
	"document-oracle/internal/models"
	"document-oracle/internal/ocr"
)

func newTestParser(t *testing.T, o *fakeOCR) (*Parser, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.OCR.TempDir = dir
	cfg.Loader = config.LoaderConfig{SiteAttempts: 3}
	gate := NewGate(cfg.Extraction, fakeDirect{text: wordsOf(40, 6)}, o)
	return New(cfg, gate, o), dir
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseDocumentText(t *testing.T) {
	p, _ := newTestParser(t, &fakeOCR{})
	path := writeFile(t, t.TempDir(), "notes.TXT", "first line\nsecond line\n")

	doc, err := p.ParseDocument(context.Background(), path)

	require.NoError(t, err)
	assert.Equal(t, models.MethodLoader, doc.Method)
	assert.Contains(t, doc.Text, "first line\nsecond line")
	assert.Equal(t, 4, doc.Stats.Words)
}

func TestParseDocumentCSV(t *testing.T) {
	p, _ := newTestParser(t, &fakeOCR{})
	path := writeFile(t, t.TempDir(), "clients.csv", "name,city\nAna,Belém\nJoão,Santarém\n")

	doc, err := p.ParseDocument(context.Background(), path)

	require.NoError(t, err)
	assert.Contains(t, doc.Text, "Belém")
	assert.Contains(t, doc.Text, "Santarém")
	assert.Contains(t, doc.Text, "\n\n")
}

func TestParseDocumentMarkdown(t *testing.T) {
	p, _ := newTestParser(t, &fakeOCR{})
	path := writeFile(t, t.TempDir(), "README.md", "# Title\n\nSome *bold* text.\n\n- item one\n- item two\n")

	doc, err := p.ParseDocument(context.Background(), path)

	require.NoError(t, err)
	assert.NotContains(t, doc.Text, "#")
	assert.NotContains(t, doc.Text, "*")
	assert.Contains(t, doc.Text, "Title")
	assert.Contains(t, doc.Text, "Some bold text.")
	assert.Contains(t, doc.Text, "item two")
}

func TestMarkdownTextCodeBlock(t *testing.T) {
	text, err := markdownText([]byte("Intro\n\n```go\nfmt.Println(1)\n```\n"))
	require.NoError(t, err)
	assert.Equal(t, "Intro\nfmt.Println(1)", text)
}

func TestParseDocumentPPTXInSlideOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deck.pptx")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	slides := []struct{ name, body string }{
		{"ppt/slides/slide10.xml", `<p:sld><a:t>tenth</a:t></p:sld>`},
		{"ppt/slides/slide2.xml", `<p:sld><a:t>second</a:t><a:t xml:space="preserve">slide &amp; more</a:t></p:sld>`},
		{"ppt/slides/slide1.xml", `<p:sld><a:t>first</a:t></p:sld>`},
		{"ppt/slides/_rels/slide1.xml.rels", `<Relationships/>`},
	}
	for _, s := range slides {
		w, err := zw.Create(s.name)
		require.NoError(t, err)
		_, err = w.Write([]byte(s.body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	p, _ := newTestParser(t, &fakeOCR{})
	doc, err := p.ParseDocument(context.Background(), path)

	require.NoError(t, err)
	assert.Equal(t, "first\n\nsecond slide & more\n\ntenth", doc.Text)
}

func TestParseDocumentPDFGoesThroughGate(t *testing.T) {
	o := &fakeOCR{}
	p, _ := newTestParser(t, o)

	doc, err := p.ParseDocument(context.Background(), "contract.pdf")

	require.NoError(t, err)
	assert.Equal(t, models.MethodDirect, doc.Method)
	assert.Zero(t, o.calls)
}

func TestParseDocumentImageUsesOCR(t *testing.T) {
	o := &fakeOCR{text: "scanned receipt"}
	p, _ := newTestParser(t, o)

	doc, err := p.ParseDocument(context.Background(), "receipt.JPG")

	require.NoError(t, err)
	assert.Equal(t, models.MethodOCR, doc.Method)
	assert.Equal(t, "scanned receipt", doc.Text)
	assert.Equal(t, []any{"receipt.JPG"}, o.files)
}

func TestParseDocumentImageWithoutText(t *testing.T) {
	p, _ := newTestParser(t, &fakeOCR{})
	_, err := p.ParseDocument(context.Background(), "blank.png")
	assert.ErrorIs(t, err, ErrNoText)
}

func TestParseDocumentEmptyText(t *testing.T) {
	p, _ := newTestParser(t, &fakeOCR{})
	path := writeFile(t, t.TempDir(), "empty.txt", "  \n\n ")

	_, err := p.ParseDocument(context.Background(), path)

	assert.ErrorIs(t, err, ErrNoText)
}

func TestParseDocumentUnsupported(t *testing.T) {
	p, _ := newTestParser(t, &fakeOCR{})
	_, err := p.ParseDocument(context.Background(), "archive.rar")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestParseDocumentMissingFile(t *testing.T) {
	p, _ := newTestParser(t, &fakeOCR{})
	_, err := p.ParseDocument(context.Background(), "/nonexistent/notes.txt")

	var extractErr *ExtractionError
	require.ErrorAs(t, err, &extractErr)
	assert.Equal(t, KindProcessing, extractErr.Kind)
}

func TestParseUploadRemovesTempFile(t *testing.T) {
	p, dir := newTestParser(t, &fakeOCR{})

	doc, err := p.ParseUpload(context.Background(), ocr.Upload{Name: "Minutes.txt", Reader: strings.NewReader("meeting minutes")})

	require.NoError(t, err)
	assert.Equal(t, "Minutes.txt", doc.Source)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestParseUploadErrorNamesUpload(t *testing.T) {
	p, dir := newTestParser(t, &fakeOCR{})

	_, err := p.ParseUpload(context.Background(), ocr.Upload{Name: "blank.txt", Reader: strings.NewReader("   ")})

	var extractErr *ExtractionError
	require.ErrorAs(t, err, &extractErr)
	assert.Equal(t, "blank.txt", extractErr.Source)
	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries)
}

func TestLoadSiteRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		assert.NotEmpty(t, r.UserAgent())
		w.Write([]byte("<html><body><p>Hello site</p></body></html>"))
	}))
	defer srv.Close()

	p, _ := newTestParser(t, &fakeOCR{})
	doc, err := p.LoadSite(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Contains(t, doc.Text, "Hello site")
	assert.Equal(t, int32(3), hits.Load())
}

func TestLoadSiteGivesUp(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	p, _ := newTestParser(t, &fakeOCR{})
	_, err := p.LoadSite(context.Background(), srv.URL)

	var extractErr *ExtractionError
	require.ErrorAs(t, err, &extractErr)
	assert.Equal(t, KindProcessing, extractErr.Kind)
	assert.Equal(t, int32(3), hits.Load())
}
