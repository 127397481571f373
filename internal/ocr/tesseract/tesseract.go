// Package tesseract wraps libtesseract through cgo. Importing it needs the
// tesseract and leptonica headers; package ocr and its users do not.
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
	"github.com/rs/zerolog/log"

	"document-oracle/internal/ocr"
)

var _ ocr.Recognizer = (*Client)(nil)

// Client recognizes text through libtesseract. It is not safe for
// concurrent use.
type Client struct {
	client *gosseract.Client
}

func New(language string, pageSegMode int) (*Client, error) {
	client := gosseract.NewClient()
	if err := client.SetLanguage(language); err != nil {
		client.Close()
		return nil, fmt.Errorf("set tesseract language %q: %w", language, err)
	}
	if err := client.SetPageSegMode(gosseract.PageSegMode(pageSegMode)); err != nil {
		client.Close()
		return nil, fmt.Errorf("set tesseract page segmentation mode %d: %w", pageSegMode, err)
	}
	log.Debug().Str("version", gosseract.Version()).Str("language", language).Int("psm", pageSegMode).Msg("Tesseract ready")
	return &Client{client: client}, nil
}

func (t *Client) Recognize(ctx context.Context, img image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return "", fmt.Errorf("encode page image: %w", err)
	}
	if err := t.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", fmt.Errorf("load page image: %w", err)
	}
	return t.client.Text()
}

func (t *Client) Close() error {
	return t.client.Close()
}
