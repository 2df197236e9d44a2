package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/project-brain/internal/core/domain"
	"github.com/kirillkom/project-brain/internal/core/ports"
)

// CacheClearer is the part of the answer cache invalidated on new content.
type CacheClearer interface {
	Clear()
}

// IndexSyncUseCase keeps the in-process index in step with persisted chunks.
type IndexSyncUseCase struct {
	chunks ports.ChunkRepository
	index  ports.ChunkIndex
	cache  CacheClearer
}

func NewIndexSyncUseCase(chunks ports.ChunkRepository, index ports.ChunkIndex, cache CacheClearer) *IndexSyncUseCase {
	return &IndexSyncUseCase{chunks: chunks, index: index, cache: cache}
}

// Warm loads every persisted chunk. A document whose chunks are rejected by
// the index is logged and skipped.
func (uc *IndexSyncUseCase) Warm(ctx context.Context) (int, error) {
	all, err := uc.chunks.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("list chunks: %w", err)
	}

	order := make([]string, 0)
	byDocument := make(map[string][]domain.Chunk)
	for _, c := range all {
		if _, ok := byDocument[c.DocumentID]; !ok {
			order = append(order, c.DocumentID)
		}
		byDocument[c.DocumentID] = append(byDocument[c.DocumentID], c)
	}

	loaded := 0
	for _, docID := range order {
		batch := byDocument[docID]
		if err := uc.index.Add(batch); err != nil {
			slog.Warn("index_warm_document_skipped", "document_id", docID, "error", err.Error())
			continue
		}
		loaded += len(batch)
	}
	if uc.cache != nil {
		uc.cache.Clear()
	}
	return loaded, nil
}

// HandleIndexed loads a newly indexed document and drops stale cached answers.
func (uc *IndexSyncUseCase) HandleIndexed(ctx context.Context, documentID string) error {
	chunks, err := uc.chunks.ListByDocument(ctx, documentID)
	if err != nil {
		return fmt.Errorf("list document chunks: %w", err)
	}
	if err := uc.index.Add(chunks); err != nil {
		return fmt.Errorf("add document chunks to index: %w", err)
	}
	if uc.cache != nil {
		uc.cache.Clear()
	}
	slog.Info("index_document_loaded", "document_id", documentID, "chunks", len(chunks), "index_size", uc.index.Len())
	return nil
}
