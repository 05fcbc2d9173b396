// Package normalize validates raw uploads and text submissions and produces
// the canonical DocumentInput consumed by the rest of the pipeline.
package normalize

import (
	"fmt"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"hoadon/internal/domain"
	"hoadon/internal/port"
)

// Normalizer validates size, extension, and content type constraints and
// converts PDFs to images via the injected renderer. It holds no mutable
// state and is safe for concurrent use.
type Normalizer struct {
	maxBytes     int64
	allowed      map[string]domain.FileType
	allowedTypes map[domain.FileType]bool
	renderer     port.PageRenderer
}

// New creates a Normalizer. allowedExtensions is the configured extension
// allow-list (without dots); unknown entries are ignored. renderer may be nil,
// in which case PDF inputs are rejected.
func New(maxBytes int64, allowedExtensions []string, renderer port.PageRenderer) *Normalizer {
	allowed := make(map[string]domain.FileType, len(allowedExtensions))
	allowedTypes := make(map[domain.FileType]bool, len(allowedExtensions))
	for _, ext := range allowedExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ft, ok := domain.AllowedExtensions[ext]; ok {
			allowed[ext] = ft
			allowedTypes[ft] = true
		}
	}
	return &Normalizer{maxBytes: maxBytes, allowed: allowed, allowedTypes: allowedTypes, renderer: renderer}
}

// NormalizeFile validates an uploaded file and returns the image variant of
// DocumentInput. The input bytes are never mutated; PDFs are rasterized to a
// fresh PNG buffer.
func (n *Normalizer) NormalizeFile(raw []byte, fileName string) (domain.DocumentInput, error) {
	if len(raw) == 0 {
		return domain.DocumentInput{}, domain.NewInvalidInput("empty file")
	}
	if int64(len(raw)) > n.maxBytes {
		return domain.DocumentInput{}, domain.NewInvalidInput(
			fmt.Sprintf("file size %d exceeds maximum %d bytes", len(raw), n.maxBytes))
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
	if _, ok := n.allowed[ext]; !ok {
		return domain.DocumentInput{}, domain.NewInvalidInput(
			fmt.Sprintf("unsupported file extension %q; allowed: %s", ext, strings.Join(n.allowedList(), ", ")))
	}

	// Magic-byte sniffing, never trust the declared extension alone.
	sniffLen := len(raw)
	if sniffLen > 512 {
		sniffLen = 512
	}
	detected := http.DetectContentType(raw[:sniffLen])
	fileType, ok := domain.AllowedContentTypes[detected]
	if !ok || !n.allowedTypes[fileType] {
		return domain.DocumentInput{}, domain.NewInvalidInput(
			fmt.Sprintf("unsupported content type %q", detected))
	}

	if fileType == domain.FileTypePDF {
		if n.renderer == nil {
			return domain.DocumentInput{}, domain.NewInvalidInput("pdf input is not supported in this deployment")
		}
		png, err := n.renderer.RenderFirstPage(raw)
		if err != nil {
			return domain.DocumentInput{}, domain.NewInvalidInput(fmt.Sprintf("rendering pdf: %v", err))
		}
		return domain.DocumentInput{Image: png, ContentType: "image/png"}, nil
	}

	return domain.DocumentInput{Image: raw, ContentType: domain.AllowedFileTypes[fileType]}, nil
}

// NormalizeText validates a raw-text submission and returns the text variant
// of DocumentInput.
func (n *Normalizer) NormalizeText(text string) (domain.DocumentInput, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return domain.DocumentInput{}, domain.NewInvalidInput("empty invoice text")
	}
	if int64(len(trimmed)) > n.maxBytes {
		return domain.DocumentInput{}, domain.NewInvalidInput(
			fmt.Sprintf("text size %d exceeds maximum %d bytes", len(trimmed), n.maxBytes))
	}
	if !utf8.ValidString(trimmed) {
		return domain.DocumentInput{}, domain.NewInvalidInput("invoice text is not valid UTF-8")
	}
	return domain.DocumentInput{Text: trimmed}, nil
}

func (n *Normalizer) allowedList() []string {
	out := make([]string, 0, len(n.allowed))
	for ext := range n.allowed {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}
