package parser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"document-oracle/internal/config"
	"document-oracle/internal/models"
	"document-oracle/internal/ocr"
)

var ErrNoText = errors.New("no text could be extracted")

type Kind int

const (
	// KindNoText: every extraction route ran and produced only whitespace.
	KindNoText Kind = iota + 1
	// KindProcessing: the document could not be processed.
	KindProcessing
)

// ExtractionError reports a document that yielded no usable text. Callers
// should not build a chunk set from it; Sentinel gives the message to show
// the user instead.
type ExtractionError struct {
	Source string
	Kind   Kind
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Kind == KindNoText {
		if e.Err != nil {
			return fmt.Sprintf("extract %s: %s: %v", e.Source, ErrNoText, e.Err)
		}
		return fmt.Sprintf("extract %s: %s", e.Source, ErrNoText)
	}
	return fmt.Sprintf("extract %s: %v", e.Source, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

func (e *ExtractionError) Is(target error) bool {
	return target == ErrNoText && e.Kind == KindNoText
}

func (e *ExtractionError) Sentinel() string {
	if e.Kind == KindNoText {
		return models.NoTextMessage
	}
	return models.ProcessingErrorMessage
}

// TextExtractor pulls the embedded text layer out of a PDF.
type TextExtractor interface {
	ExtractText(ctx context.Context, path string) (string, error)
}

// OCR is the fallback used when the text layer is missing or garbled.
type OCR interface {
	ProcessFile(ctx context.Context, file any) (*ocr.Report, error)
}

// Gate extracts PDF text directly and falls back to OCR when the result
// does not look like real text.
type Gate struct {
	direct     TextExtractor
	ocr        OCR
	thresholds config.ExtractionConfig
}

func NewGate(cfg config.ExtractionConfig, direct TextExtractor, ocr OCR) *Gate {
	if cfg.MinChars <= 0 {
		cfg.MinChars = config.DefaultMinChars
	}
	if cfg.MinWords <= 0 {
		cfg.MinWords = config.DefaultMinWords
	}
	if cfg.MaxCharsPerWord <= 0 {
		cfg.MaxCharsPerWord = config.DefaultMaxCharsPerWord
	}
	return &Gate{direct: direct, ocr: ocr, thresholds: cfg}
}

// Measure computes the figures the gate decides on. Characters are counted
// on the trimmed text, words on the raw text.
func Measure(text string) models.TextStats {
	chars := utf8.RuneCountInString(strings.TrimSpace(text))
	words := len(strings.Fields(text))
	return models.TextStats{
		Chars:        chars,
		Words:        words,
		CharsPerWord: float64(chars) / float64(max(words, 1)),
	}
}

// NeedsOCR reports whether text with stats is too short, too sparse or made
// of implausibly long words (typical of a garbled text layer).
func (g *Gate) NeedsOCR(stats models.TextStats) bool {
	return stats.Chars < g.thresholds.MinChars ||
		stats.Words < g.thresholds.MinWords ||
		stats.CharsPerWord > g.thresholds.MaxCharsPerWord
}

// Extract returns the text of the PDF at path. It never panics; failures
// are returned as *ExtractionError.
func (g *Gate) Extract(ctx context.Context, path string) (doc *models.Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("path", path).Msg("Recovered while extracting PDF")
			doc = nil
			err = &ExtractionError{Source: path, Kind: KindProcessing, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	log.Info().Str("path", path).Msg("Extracting PDF text")
	text, directErr := g.direct.ExtractText(ctx, path)
	if directErr != nil {
		log.Warn().Err(directErr).Str("path", path).Msg("Direct extraction failed")
		text = ""
	}

	stats := Measure(text)
	log.Debug().Int("chars", stats.Chars).Int("words", stats.Words).Float64("chars_per_word", stats.CharsPerWord).Msg("Direct extraction stats")

	doc = &models.Document{Source: path, Text: text, Method: models.MethodDirect, Stats: stats}
	if g.NeedsOCR(stats) {
		log.Info().Str("path", path).Msg("Text looks invalid or too short, trying OCR")
		report, err := g.ocr.ProcessFile(ctx, path)
		if err != nil {
			return nil, &ExtractionError{Source: path, Kind: KindProcessing, Err: err}
		}
		doc.Text = report.Text()
		doc.Method = models.MethodOCR
		doc.Stats = Measure(doc.Text)
		doc.OCRPages = len(report.Pages)
		doc.OCRFailedPages = report.Failed()
		log.Info().Int("chars", doc.Stats.Chars).Int("pages", doc.OCRPages).Int("failed", doc.OCRFailedPages).Msg("Text extracted via OCR")

		if strings.TrimSpace(doc.Text) == "" {
			if directErr != nil {
				return nil, &ExtractionError{Source: path, Kind: KindProcessing, Err: directErr}
			}
			return nil, &ExtractionError{Source: path, Kind: KindNoText, Err: report.Err}
		}
	}

	if strings.TrimSpace(doc.Text) == "" {
		return nil, &ExtractionError{Source: path, Kind: KindNoText}
	}
	return doc, nil
}
