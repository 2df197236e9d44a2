package ports

import (
	"context"
	"io"

	"github.com/kirillkom/project-brain/internal/core/domain"
)

// DocumentIngestor is the inbound contract for document upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, filename, mimeType string, body io.Reader) (*domain.Document, error)
}

// DocumentReader is the inbound read model for document metadata/state.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context) ([]domain.Document, error)
}

// DocumentProcessor is the inbound contract for asynchronous document processing.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}

// SearchService ranks indexed chunks for a query.
type SearchService interface {
	Search(ctx context.Context, query string, k int, filter domain.SearchFilter) (domain.RetrievalResult, error)
}

// QueryService answers chat questions and administers the answer cache.
type QueryService interface {
	Answer(ctx context.Context, req domain.QueryRequest) (*domain.Answer, error)
	CacheStats() domain.CacheStats
	ClearCache()
}

// ExtractionService produces validated structured records for an entity type.
type ExtractionService interface {
	Extract(ctx context.Context, entityType domain.EntityType) (*domain.ExtractionResult, error)
}

// ConflictService scans the whole corpus for contradictory statements.
type ConflictService interface {
	DetectConflicts(ctx context.Context) (*domain.ConflictReport, error)
}

// AnalyticsReader reports query history aggregates.
type AnalyticsReader interface {
	Analytics(ctx context.Context) (*domain.Analytics, error)
}
