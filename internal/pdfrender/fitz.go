// Package pdfrender implements the PageRenderer capability with MuPDF
// via go-fitz.
package pdfrender

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/gen2brain/go-fitz"
)

// FitzRenderer rasterizes PDF pages using go-fitz.
type FitzRenderer struct{}

// New creates a FitzRenderer.
func New() *FitzRenderer {
	return &FitzRenderer{}
}

// RenderFirstPage renders the first page of the PDF as PNG. Invoices are
// almost always single-page; multi-page documents lose trailing pages.
func (r *FitzRenderer) RenderFirstPage(pdf []byte) ([]byte, error) {
	doc, err := fitz.NewFromMemory(pdf)
	if err != nil {
		return nil, fmt.Errorf("opening pdf: %w", err)
	}
	defer func() { _ = doc.Close() }()

	if doc.NumPage() == 0 {
		return nil, fmt.Errorf("pdf has no pages")
	}

	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("rendering pdf page: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}
