package usecase

import (
	"context"
	"fmt"

	"github.com/kirillkom/project-brain/internal/core/domain"
	"github.com/kirillkom/project-brain/internal/core/ports"
)

const (
	extractionQueryK     = 10
	extractionMaxChunks  = 15
	extractionMaxSources = 10
)

var extractionQueries = map[domain.EntityType][]string{
	domain.EntityDoorSchedule: {
		"door schedule specifications",
		"door types fire rating dimensions",
		"door hardware requirements",
	},
	domain.EntityRoomSummary: {
		"room schedule area floor finish",
		"room types specifications ceiling",
		"space planning room dimensions",
	},
	domain.EntityEquipmentList: {
		"mechanical equipment HVAC specifications",
		"electrical equipment MEP systems",
		"plumbing fixtures equipment schedule",
	},
}

type ExtractUseCase struct {
	search    ports.SearchService
	generator ports.RecordGenerator
}

func NewExtractUseCase(search ports.SearchService, generator ports.RecordGenerator) *ExtractUseCase {
	return &ExtractUseCase{search: search, generator: generator}
}

func (uc *ExtractUseCase) Extract(ctx context.Context, entityType domain.EntityType) (*domain.ExtractionResult, error) {
	queries, ok := extractionQueries[entityType]
	if !ok {
		return nil, domain.WrapError(domain.ErrInvalidInput, "extract", fmt.Errorf("unsupported entity type %q", entityType))
	}

	chunks, err := uc.gatherContext(ctx, queries)
	if err != nil {
		return nil, err
	}
	result := &domain.ExtractionResult{
		EntityType: entityType,
		Records:    []domain.StructuredRecord{},
		Sources:    []domain.SourceRef{},
	}
	if len(chunks) == 0 {
		return result, nil
	}

	raw, err := uc.generator.GenerateRecords(ctx, entityType, chunks)
	if err != nil {
		return nil, domain.WrapError(domain.ErrComputeFailure, "generate records", err)
	}

	chunkIDs := make([]string, len(chunks))
	plain := make([]domain.Chunk, len(chunks))
	for i, c := range chunks {
		chunkIDs[i] = c.Chunk.ChunkID
		plain[i] = c.Chunk
	}

	records, dropped, err := ValidateRecords(raw, entityType, chunkIDs)
	if err != nil {
		return nil, err
	}
	result.Records = records
	result.Dropped = dropped
	result.Sources = uniqueSourceRefs(plain)
	if len(result.Sources) > extractionMaxSources {
		result.Sources = result.Sources[:extractionMaxSources]
	}
	return result, nil
}

// gatherContext runs the preset queries and keeps the first occurrence of each chunk.
func (uc *ExtractUseCase) gatherContext(ctx context.Context, queries []string) ([]domain.ScoredChunk, error) {
	seen := map[string]struct{}{}
	out := make([]domain.ScoredChunk, 0, extractionMaxChunks)
	for _, q := range queries {
		res, err := uc.search.Search(ctx, q, extractionQueryK, domain.SearchFilter{})
		if err != nil {
			return nil, fmt.Errorf("retrieve extraction context: %w", err)
		}
		for _, c := range res.Chunks {
			if _, dup := seen[c.Chunk.ChunkID]; dup {
				continue
			}
			seen[c.Chunk.ChunkID] = struct{}{}
			out = append(out, c)
			if len(out) == extractionMaxChunks {
				return out, nil
			}
		}
	}
	return out, nil
}
