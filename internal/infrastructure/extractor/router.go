package extractor

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/kirillkom/project-brain/internal/core/domain"
	"github.com/kirillkom/project-brain/internal/core/ports"
)

// Router picks the page extractor for a document by MIME type, falling back
// to the file extension when the upload carried a generic type.
type Router struct {
	pdf  ports.PageExtractor
	text ports.PageExtractor
}

func NewRouter(pdf, text ports.PageExtractor) *Router {
	return &Router{pdf: pdf, text: text}
}

func (r *Router) ExtractPages(ctx context.Context, doc *domain.Document) ([]domain.PageText, error) {
	if IsPDF(doc.Filename, doc.MimeType) {
		return r.pdf.ExtractPages(ctx, doc)
	}
	return r.text.ExtractPages(ctx, doc)
}

func IsPDF(filename, mimeType string) bool {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	if mt == "application/pdf" {
		return true
	}
	return strings.EqualFold(filepath.Ext(filename), ".pdf")
}
