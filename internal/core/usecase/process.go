package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/project-brain/internal/core/domain"
	"github.com/kirillkom/project-brain/internal/core/lexical"
	"github.com/kirillkom/project-brain/internal/core/ports"
)

type ProcessDocumentUseCase struct {
	repo      ports.DocumentRepository
	extractor ports.PageExtractor
	chunker   ports.Chunker
	embedder  ports.Embedder
	chunks    ports.ChunkRepository
	queue     ports.MessageQueue
	dimension int
}

func NewProcessDocumentUseCase(
	repo ports.DocumentRepository,
	extractor ports.PageExtractor,
	chunker ports.Chunker,
	embedder ports.Embedder,
	chunks ports.ChunkRepository,
	queue ports.MessageQueue,
	dimension int,
) *ProcessDocumentUseCase {
	if dimension <= 0 {
		dimension = domain.EmbeddingDimension
	}
	return &ProcessDocumentUseCase{
		repo:      repo,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		chunks:    chunks,
		queue:     queue,
		dimension: dimension,
	}
}

func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, documentID string) error {
	if err := uc.markStatus(ctx, documentID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	chunks, err := uc.processPipeline(ctx, documentID)
	if err != nil {
		if failErr := uc.markFailed(ctx, documentID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.MarkIndexed(ctx, documentID, len(chunks)); err != nil {
		return fmt.Errorf("set status=ready: %w", err)
	}

	if err := uc.queue.PublishDocumentIndexed(ctx, documentID); err != nil {
		return fmt.Errorf("publish indexed event: %w", err)
	}
	return nil
}

func (uc *ProcessDocumentUseCase) processPipeline(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	doc, err := uc.loadDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	pages, err := uc.extractPages(ctx, doc)
	if err != nil {
		return nil, err
	}

	chunks, err := uc.chunk(doc, pages)
	if err != nil {
		return nil, err
	}

	if err := uc.embed(ctx, chunks); err != nil {
		return nil, err
	}

	if err := uc.persist(ctx, doc.ID, chunks); err != nil {
		return nil, err
	}
	return chunks, nil
}

func (uc *ProcessDocumentUseCase) loadDocument(ctx context.Context, documentID string) (*domain.Document, error) {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch document by id: %w", err)
	}
	return doc, nil
}

func (uc *ProcessDocumentUseCase) extractPages(ctx context.Context, doc *domain.Document) ([]domain.PageText, error) {
	pages, err := uc.extractor.ExtractPages(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}
	for _, p := range pages {
		if strings.TrimSpace(p.Text) != "" {
			return pages, nil
		}
	}
	return nil, domain.WrapError(domain.ErrInvalidInput, "extract text", errors.New("empty extracted text"))
}

// chunk splits every page separately so each chunk keeps its page number.
func (uc *ProcessDocumentUseCase) chunk(doc *domain.Document, pages []domain.PageText) ([]domain.Chunk, error) {
	out := make([]domain.Chunk, 0, len(pages)*2)
	for _, page := range pages {
		if strings.TrimSpace(page.Text) == "" {
			continue
		}
		for i, text := range uc.chunker.Split(page.Text) {
			out = append(out, domain.Chunk{
				ChunkID:         domain.ChunkID(doc.ID, page.PageNumber, i),
				DocumentID:      doc.ID,
				Filename:        doc.Filename,
				PageNumber:      page.PageNumber,
				ChunkIndex:      i,
				Text:            text,
				TermFrequencies: lexical.TermFrequencies(text),
			})
		}
	}
	if len(out) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "chunk document", errors.New("chunking produced zero chunks"))
	}
	return out, nil
}

func (uc *ProcessDocumentUseCase) embed(ctx context.Context, chunks []domain.Chunk) error {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := uc.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return domain.WrapError(
			domain.ErrInvalidInput,
			"embed chunks",
			fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(chunks)),
		)
	}
	for i, v := range vectors {
		if len(v) != uc.dimension {
			return domain.WrapError(
				domain.ErrInvalidInput,
				"embed chunks",
				fmt.Errorf("chunk %s: embedding dimension %d, want %d", chunks[i].ChunkID, len(v), uc.dimension),
			)
		}
		chunks[i].Embedding = v
	}
	return nil
}

func (uc *ProcessDocumentUseCase) persist(ctx context.Context, documentID string, chunks []domain.Chunk) error {
	if err := uc.chunks.SaveChunks(ctx, documentID, chunks); err != nil {
		return fmt.Errorf("save chunks: %w", err)
	}
	return nil
}

func (uc *ProcessDocumentUseCase) markStatus(ctx context.Context, documentID string, status domain.DocumentStatus, errMessage string) error {
	return uc.repo.UpdateStatus(ctx, documentID, status, errMessage)
}

func (uc *ProcessDocumentUseCase) markFailed(ctx context.Context, documentID string, processErr error) error {
	if processErr == nil {
		return nil
	}
	return uc.markStatus(ctx, documentID, domain.StatusFailed, processErr.Error())
}
