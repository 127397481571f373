package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"document-oracle/internal/chunker"
	"document-oracle/internal/config"
	"document-oracle/internal/helper"
	"document-oracle/internal/llmservice"
	"document-oracle/internal/models"
	"document-oracle/internal/ocr"
	"document-oracle/internal/ocr/tesseract"
	"document-oracle/internal/parser"
	"document-oracle/internal/rag"
	"document-oracle/internal/retriever"
	"document-oracle/internal/session"
)

const (
	configFilePath = "./configs/config.yaml"
	previewLen     = 120
)

func main() {
	configPath := flag.String("config", configFilePath, "Path to the config file")
	filePath := flag.String("file", "", "Path to the document file, - to read it from stdin")
	uploadName := flag.String("name", "upload.pdf", "File name used for its extension when -file is -")
	siteURL := flag.String("url", "", "Web page to load instead of a file")
	query := flag.String("query", "", "Ask a single question and exit")
	dryRun := flag.Bool("dry-run", false, "Extract and chunk the document, print the chunks and exit")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		setupLogger("info", *debug)
		log.Fatal().Err(err).Msg("Error loading config")
	}
	setupLogger(cfg.LogLevel, *debug)
	log.Debug().Interface("chunker", cfg.Chunker).Interface("ocr", cfg.OCR).Interface("extraction", cfg.Extraction).Msg("Loaded config")

	if (*filePath == "") == (*siteURL == "") {
		log.Fatal().Msg("Please provide either a document using the -file flag or a web page using the -url flag")
	}
	if *filePath == "-" && *query == "" && !*dryRun {
		log.Fatal().Msg("Reading the document from stdin requires -query or -dry-run")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	engine := newOCR(cfg.OCR)
	if c, ok := engine.(interface{ Close() error }); ok {
		defer c.Close()
	}
	gate := parser.NewGate(cfg.Extraction, parser.PDFText{}, engine)
	docParser := parser.New(cfg, gate, engine)

	doc, err := loadDocument(ctx, docParser, *filePath, *uploadName, *siteURL)
	if err != nil {
		var extractErr *parser.ExtractionError
		if errors.As(err, &extractErr) {
			fmt.Println(extractErr.Sentinel())
		}
		log.Fatal().Err(err).Msg("Error loading document")
	}
	log.Info().Str("source", doc.Source).Str("method", doc.Method).Int("chars", doc.Stats.Chars).Int("words", doc.Stats.Words).Msg("Document loaded")
	if doc.OCRFailedPages > 0 {
		log.Warn().Msgf("%d of %d pages failed OCR", doc.OCRFailedPages, doc.OCRPages)
	}

	chunks := chunker.New(cfg.Chunker).Split(doc.Text)
	log.Info().Msgf("Document split into %d chunks", len(chunks))

	if *dryRun {
		helper.PrettyPrint(chunks)
		return
	}

	sess, err := session.New()
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating session")
	}
	sess.Load(doc, chunks)

	llm, err := llmservice.New(&cfg.LLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing LLM")
	}
	assistant := rag.NewAssistant(llm, retriever.New(cfg.Retriever.TopK))

	if *query != "" {
		if err := ask(ctx, assistant, sess, *query); err != nil {
			log.Fatal().Err(err).Msg("Error querying")
		}
		return
	}
	chat(ctx, assistant, sess)
}

func setupLogger(level string, debug bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if debug {
		lvl = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Caller().Logger()
}

// unavailableOCR stands in when tesseract cannot be initialized, so that
// documents with a good text layer still load.
type unavailableOCR struct {
	err error
}

func (u unavailableOCR) ProcessFile(_ context.Context, file any) (*ocr.Report, error) {
	return &ocr.Report{Source: fmt.Sprint(file), Err: u.err}, nil
}

func newOCR(cfg config.OCRConfig) parser.OCR {
	tess, err := tesseract.New(cfg.Language, cfg.PageSegMode)
	if err != nil {
		log.Warn().Err(err).Msg("OCR unavailable, scanned documents will not be readable")
		return unavailableOCR{err: err}
	}
	return ocr.NewProcessor(cfg, tess)
}

func loadDocument(ctx context.Context, p *parser.Parser, filePath, uploadName, siteURL string) (*models.Document, error) {
	switch {
	case siteURL != "":
		return p.LoadSite(ctx, siteURL)
	case filePath == "-":
		return p.ParseUpload(ctx, ocr.Upload{Name: uploadName, Reader: os.Stdin})
	default:
		return p.ParseDocument(ctx, filePath)
	}
}

func ask(ctx context.Context, assistant *rag.Assistant, sess *session.Session, query string) error {
	log.Info().Msg("Query: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", query)

	log.Info().Msg("Assistant: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	resp, err := assistant.Ask(ctx, sess, query, func(token string) {
		fmt.Print(token)
	})
	fmt.Print("\n\n")
	if err != nil {
		return err
	}
	log.Debug().Str("context", helper.Preview(resp.Context, previewLen)).Msg("Answer grounded on")
	return nil
}

// chat reads questions from stdin until EOF. /clear resets the
// conversation, /history prints it.
func chat(ctx context.Context, assistant *rag.Assistant, sess *session.Session) {
	fmt.Println("Ask a question about the document (/clear, /history, /quit).")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return
		case "/clear":
			if err := sess.Reset(ctx); err != nil {
				log.Error().Err(err).Msg("Error clearing history")
			}
			fmt.Println("History cleared.")
			continue
		case "/history":
			turns, err := sess.Turns(ctx)
			if err != nil {
				log.Error().Err(err).Msg("Error reading history")
				continue
			}
			for _, t := range turns {
				fmt.Printf("[%s] %s\n", t.Role, t.Text)
			}
			continue
		}

		if err := ask(ctx, assistant, sess, line); err != nil {
			log.Error().Err(err).Msg("Error querying")
		}
		if ctx.Err() != nil {
			return
		}
	}
}
