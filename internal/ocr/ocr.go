package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog/log"

	"document-oracle/internal/config"
)

var ErrUnsupportedType = errors.New("unsupported OCR input type")

// UnsupportedTypeError is returned for inputs that are neither an Upload
// nor a path (ProcessFile), or neither a path, bytes nor an image
// (ProcessImage).
type UnsupportedTypeError struct {
	Type string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("%s: %s", ErrUnsupportedType, e.Type)
}

func (e *UnsupportedTypeError) Is(target error) bool {
	return target == ErrUnsupportedType
}

// Recognizer turns an image into text.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) (string, error)
}

// Upload is a file received from a user. Name is only used for its extension.
type Upload struct {
	Name   string
	Reader io.Reader
}

// PageResult is the outcome for one page. Empty Text with a nil Err means
// the page had no text.
type PageResult struct {
	Page int
	Text string
	Err  error
}

// Report is the outcome of OCR over one file. Err is set when the file could
// not be processed at all; page failures are kept on their page.
type Report struct {
	Source string
	Pages  []PageResult
	Err    error
}

// Text joins the pages that produced text with a blank line.
func (r *Report) Text() string {
	var texts []string
	for _, p := range r.Pages {
		if strings.TrimSpace(p.Text) != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n\n")
}

func (r *Report) Failed() int {
	n := 0
	for _, p := range r.Pages {
		if p.Err != nil {
			n++
		}
	}
	return n
}

type Processor struct {
	rasterizer Rasterizer
	recognizer Recognizer
	dpi        float64
	tempDir    string
}

// NewProcessor rasterizes PDFs with MuPDF and reads pages with recognizer,
// usually a *tesseract.Client.
func NewProcessor(cfg config.OCRConfig, recognizer Recognizer) *Processor {
	return NewProcessorWith(cfg, Fitz{}, recognizer)
}

func NewProcessorWith(cfg config.OCRConfig, rasterizer Rasterizer, recognizer Recognizer) *Processor {
	dpi := cfg.DPI
	if dpi <= 0 {
		dpi = config.DefaultDPI
	}
	return &Processor{
		rasterizer: rasterizer,
		recognizer: recognizer,
		dpi:        dpi,
		tempDir:    cfg.TempDir,
	}
}

func (p *Processor) Close() error {
	if c, ok := p.recognizer.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// ProcessPDF recognizes every page of the PDF at path. It never fails as a
// whole: a page that cannot be rendered or read is recorded and skipped.
func (p *Processor) ProcessPDF(ctx context.Context, path string) *Report {
	report := &Report{Source: path}
	log.Info().Str("path", path).Msg("Running OCR on PDF")

	doc, err := p.rasterizer.Open(path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("Error opening PDF for rasterization")
		report.Err = fmt.Errorf("open %s: %w", path, err)
		return report
	}
	defer doc.Close()

	numPages := doc.NumPage()
	log.Debug().Msgf("Rasterizing %d pages at %.0f DPI", numPages, p.dpi)
	for i := 0; i < numPages; i++ {
		if err := ctx.Err(); err != nil {
			report.Err = err
			break
		}
		page := p.processPage(ctx, doc, i)
		report.Pages = append(report.Pages, page)
		switch {
		case page.Err != nil:
			log.Warn().Err(page.Err).Int("page", page.Page).Msg("Skipping page")
		case strings.TrimSpace(page.Text) == "":
			log.Debug().Int("page", page.Page).Msg("No text found on page")
		default:
			log.Debug().Int("page", page.Page).Int("chars", len(page.Text)).Msg("Page recognized")
		}
	}

	log.Info().Str("path", path).Int("pages", numPages).Int("failed", report.Failed()).Msg("OCR finished")
	return report
}

func (p *Processor) processPage(ctx context.Context, doc Pages, index int) PageResult {
	result := PageResult{Page: index + 1}
	img, err := doc.ImageDPI(index, p.dpi)
	if err != nil {
		result.Err = fmt.Errorf("render page %d: %w", result.Page, err)
		return result
	}
	text, err := p.recognizer.Recognize(ctx, Enhance(img))
	if err != nil {
		result.Err = fmt.Errorf("recognize page %d: %w", result.Page, err)
		return result
	}
	result.Text = text
	return result
}

// ProcessImage recognizes a single image given as a path, raw bytes or a
// decoded image.
func (p *Processor) ProcessImage(ctx context.Context, src any) (string, error) {
	var (
		img image.Image
		err error
	)
	switch v := src.(type) {
	case string:
		img, err = imaging.Open(v)
	case []byte:
		img, err = imaging.Decode(bytes.NewReader(v))
	case image.Image:
		img = v
	default:
		return "", &UnsupportedTypeError{Type: fmt.Sprintf("%T", src)}
	}
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	text, err := p.recognizer.Recognize(ctx, Enhance(img))
	if err != nil {
		return "", fmt.Errorf("recognize image: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// ProcessFile runs OCR on an Upload or a file path, choosing PDF or image
// handling by extension. Uploads are written to a temporary file that is
// always removed before returning. Only an unsupported input type is
// returned as an error; everything else is reported.
func (p *Processor) ProcessFile(ctx context.Context, file any) (*Report, error) {
	switch v := file.(type) {
	case Upload:
		return p.processUpload(ctx, v), nil
	case *Upload:
		if v == nil {
			return nil, &UnsupportedTypeError{Type: "nil *ocr.Upload"}
		}
		return p.processUpload(ctx, *v), nil
	case string:
		return p.processPath(ctx, v, v), nil
	default:
		return nil, &UnsupportedTypeError{Type: fmt.Sprintf("%T", file)}
	}
}

func (p *Processor) processUpload(ctx context.Context, up Upload) *Report {
	ext := strings.ToLower(filepath.Ext(up.Name))
	tmp, err := os.CreateTemp(p.tempDir, "ocr-upload-*"+ext)
	if err != nil {
		return &Report{Source: up.Name, Err: fmt.Errorf("create temp file: %w", err)}
	}
	tmpPath := tmp.Name()
	defer func() {
		if err := os.Remove(tmpPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("path", tmpPath).Msg("Error removing temp file")
		}
	}()
	log.Debug().Str("upload", up.Name).Str("path", tmpPath).Msg("Temp file created")

	_, err = io.Copy(tmp, up.Reader)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return &Report{Source: up.Name, Err: fmt.Errorf("write temp file: %w", err)}
	}

	report := p.processPath(ctx, tmpPath, up.Name)
	report.Source = up.Name
	return report
}

// processPath dispatches on the extension of name, reading from path.
func (p *Processor) processPath(ctx context.Context, path, name string) *Report {
	if strings.EqualFold(filepath.Ext(name), ".pdf") {
		return p.ProcessPDF(ctx, path)
	}

	text, err := p.ProcessImage(ctx, path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("Error running OCR on image")
	}
	return &Report{Source: path, Pages: []PageResult{{Page: 1, Text: text, Err: err}}}
}
