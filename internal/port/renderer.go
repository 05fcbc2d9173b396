package port

// PageRenderer rasterizes the first page of a PDF into an image. The
// normalizer consumes this capability; it never parses PDFs itself.
type PageRenderer interface {
	RenderFirstPage(pdf []byte) ([]byte, error) // returns PNG bytes
}
