package parser

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/nguyenthenguyen/docx"
	"github.com/rs/zerolog/log"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"

	"document-oracle/internal/config"
	"document-oracle/internal/models"
	"document-oracle/internal/ocr"
)

var ErrUnsupportedFormat = errors.New("unsupported file format")

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".tif":  true,
	".tiff": true,
	".bmp":  true,
	".gif":  true,
}

var (
	wordTextRe  = regexp.MustCompile(`<w:t(?:\s[^>]*)?>([^<]*)</w:t>`)
	slideTextRe = regexp.MustCompile(`<a:t(?:\s[^>]*)?>([^<]*)</a:t>`)
	slideNameRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)
)

// Parser turns a file into a Document, picking the extraction route by
// extension.
type Parser struct {
	gate   *Gate
	ocr    OCR
	loader config.LoaderConfig
	tmpDir string
}

func New(cfg *config.Config, gate *Gate, ocr OCR) *Parser {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Parser{gate: gate, ocr: ocr, loader: cfg.Loader, tmpDir: cfg.OCR.TempDir}
}

func (p *Parser) ParseDocument(ctx context.Context, filePath string) (*models.Document, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	if ext == ".pdf" {
		return p.gate.Extract(ctx, filePath)
	}
	if imageExtensions[ext] {
		return p.parseImage(ctx, filePath)
	}

	var (
		text string
		err  error
	)
	switch ext {
	case ".docx":
		text, err = parseDOCX(filePath)
	case ".pptx":
		text, err = parsePPTX(filePath)
	case ".xlsx":
		text, err = parseXLSX(filePath)
	case ".xlsm", ".xltx", ".xltm":
		text, err = parseExcelize(filePath)
	case ".txt":
		text, err = parseText(ctx, filePath)
	case ".csv":
		text, err = parseCSV(ctx, filePath)
	case ".md", ".markdown":
		text, err = parseMarkdown(filePath)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, &ExtractionError{Source: filePath, Kind: KindProcessing, Err: err}
	}
	return loaded(filePath, text)
}

// ParseUpload stores an uploaded file under a temporary name keeping its
// extension, parses it and removes the temporary file.
func (p *Parser) ParseUpload(ctx context.Context, up ocr.Upload) (*models.Document, error) {
	tmp, err := os.CreateTemp(p.tmpDir, "upload-*"+strings.ToLower(filepath.Ext(up.Name)))
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	_, err = io.Copy(tmp, up.Reader)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("write temp file: %w", err)
	}

	doc, err := p.ParseDocument(ctx, tmp.Name())
	if doc != nil {
		doc.Source = up.Name
	}
	var extractErr *ExtractionError
	if errors.As(err, &extractErr) {
		extractErr.Source = up.Name
	}
	return doc, err
}

func (p *Parser) parseImage(ctx context.Context, filePath string) (*models.Document, error) {
	report, err := p.ocr.ProcessFile(ctx, filePath)
	if err != nil {
		return nil, &ExtractionError{Source: filePath, Kind: KindProcessing, Err: err}
	}
	text := report.Text()
	if strings.TrimSpace(text) == "" {
		var pageErr error
		if len(report.Pages) > 0 {
			pageErr = report.Pages[0].Err
		}
		return nil, &ExtractionError{Source: filePath, Kind: KindNoText, Err: pageErr}
	}
	return &models.Document{
		Source:   filePath,
		Text:     text,
		Method:   models.MethodOCR,
		Stats:    Measure(text),
		OCRPages: len(report.Pages),
	}, nil
}

func loaded(source, text string) (*models.Document, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &ExtractionError{Source: source, Kind: KindNoText}
	}
	log.Debug().Str("path", source).Int("chars", len(text)).Msg("Document loaded")
	return &models.Document{Source: source, Text: text, Method: models.MethodLoader, Stats: Measure(text)}, nil
}

func parseDOCX(filePath string) (string, error) {
	r, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return "", err
	}
	defer r.Close()

	content := r.Editable().GetContent()
	var paragraphs []string
	for _, p := range strings.Split(content, "</w:p>") {
		text := extractTextFromXML(p, wordTextRe, "")
		if strings.TrimSpace(text) != "" {
			paragraphs = append(paragraphs, text)
		}
	}
	return strings.Join(paragraphs, "\n"), nil
}

func parsePPTX(filePath string) (string, error) {
	f, err := zip.OpenReader(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	type slide struct {
		num  int
		text string
	}
	var slides []slide
	for _, file := range f.File {
		m := slideNameRe.FindStringSubmatch(file.Name)
		if m == nil {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			continue
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}
		num, _ := strconv.Atoi(m[1])
		slides = append(slides, slide{num: num, text: extractTextFromXML(string(data), slideTextRe, " ")})
	}
	// zip order is not slide order
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	var texts []string
	for _, s := range slides {
		if strings.TrimSpace(s.text) != "" {
			texts = append(texts, s.text)
		}
	}
	return strings.Join(texts, "\n\n"), nil
}

func parseXLSX(filePath string) (string, error) {
	f, err := xlsx.OpenFile(filePath)
	if err != nil {
		return "", err
	}

	var text strings.Builder
	for _, sheet := range f.Sheets {
		text.WriteString(fmt.Sprintf("## Sheet: %s\n", sheet.Name))
		for _, row := range sheet.Rows {
			for _, cell := range row.Cells {
				text.WriteString(cell.String() + "\t")
			}
			text.WriteString("\n")
		}
	}
	return text.String(), nil
}

func parseExcelize(filePath string) (string, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var text strings.Builder
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}
		text.WriteString(fmt.Sprintf("## Sheet: %s\n", sheetName))
		for _, row := range rows {
			for _, cell := range row {
				text.WriteString(cell + "\t")
			}
			text.WriteString("\n")
		}
	}
	return text.String(), nil
}

// extractTextFromXML concatenates the text runs matched by re.
func extractTextFromXML(xmlContent string, re *regexp.Regexp, sep string) string {
	var parts []string
	for _, m := range re.FindAllStringSubmatch(xmlContent, -1) {
		parts = append(parts, html.UnescapeString(m[1]))
	}
	return strings.Join(parts, sep)
}
