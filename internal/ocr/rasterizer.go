package ocr

import (
	"image"

	"github.com/gen2brain/go-fitz"
)

// Pages renders the pages of an opened document. Page numbers are zero based.
type Pages interface {
	NumPage() int
	ImageDPI(page int, dpi float64) (*image.RGBA, error)
	Close() error
}

type Rasterizer interface {
	Open(path string) (Pages, error)
}

// Fitz rasterizes PDF pages with MuPDF.
type Fitz struct{}

func (Fitz) Open(path string) (Pages, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	return doc, nil
}
