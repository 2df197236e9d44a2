package plaintext

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/project-brain/internal/core/domain"
	"github.com/kirillkom/project-brain/internal/core/ports"
)

// maxDocumentBytes bounds how much of a text upload is read into memory.
const maxDocumentBytes = 32 << 20

type Extractor struct {
	storage ports.ObjectStorage
}

func NewExtractor(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

// ExtractPages treats form feeds as page breaks; text without them is one page.
func (e *Extractor) ExtractPages(ctx context.Context, doc *domain.Document) ([]domain.PageText, error) {
	reader, err := e.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(io.LimitReader(reader, maxDocumentBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read source document: %w", err)
	}
	if len(raw) > maxDocumentBytes {
		return nil, domain.WrapError(domain.ErrInvalidInput, "extract text", fmt.Errorf("%s exceeds %d bytes", doc.Filename, maxDocumentBytes))
	}
	if !utf8.Valid(raw) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "extract text", fmt.Errorf("%s is not valid utf-8 text", doc.Filename))
	}
	return SplitPages(string(raw)), nil
}

// SplitPages numbers form-feed separated pages from 1. Blank pages keep their
// number so later pages stay aligned with the source.
func SplitPages(text string) []domain.PageText {
	parts := strings.Split(text, "\f")
	out := make([]domain.PageText, 0, len(parts))
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, domain.PageText{PageNumber: i + 1, Text: part})
	}
	return out
}
