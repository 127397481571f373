package parser

import (
	"context"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFText reads the text layer of a PDF with ledongthuc/pdf.
type PDFText struct{}

// ExtractText joins the plain text of every page with a single space.
func (PDFText) ExtractText(ctx context.Context, path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	numPages := reader.NumPage()
	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", err
		}
		pages = append(pages, pageText)
	}
	return strings.Join(pages, " "), nil
}
