package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/project-brain/internal/core/domain"
)

// DocumentRepository persists and reads document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context) ([]domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	MarkIndexed(ctx context.Context, id string, chunkCount int) error
}

// ChunkRepository is the durable copy of indexed chunks.
type ChunkRepository interface {
	SaveChunks(ctx context.Context, documentID string, chunks []domain.Chunk) error
	ListAll(ctx context.Context) ([]domain.Chunk, error)
	ListByDocument(ctx context.Context, documentID string) ([]domain.Chunk, error)
}

// ChunkIndex is the in-process index store read by retrieval and conflict detection.
type ChunkIndex interface {
	Add(chunks []domain.Chunk) error
	All() []domain.Chunk
	ByFilter(filter domain.SearchFilter) []domain.Chunk
	Len() int
}

// AnswerCache memoizes answers per normalized query, filter set and k.
type AnswerCache interface {
	GetOrCompute(
		query string,
		filter domain.SearchFilter,
		k int,
		ttl time.Duration,
		compute func() (*domain.Answer, error),
	) (*domain.Answer, bool, error)
	Stats() domain.CacheStats
	Clear()
}

// QueryHistoryStore records answered queries for analytics.
type QueryHistoryStore interface {
	Record(ctx context.Context, entry domain.QueryHistoryEntry) error
}

// ConversationStore keeps chat turns per conversation id in arrival order.
type ConversationStore interface {
	RecentTurns(ctx context.Context, conversationID string, limit int) ([]domain.ConversationTurn, error)
	AppendTurns(ctx context.Context, conversationID string, turns ...domain.ConversationTurn) error
}

// ObjectStorage stores source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes ingestion events.
type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, documentID string) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error
	PublishDocumentIndexed(ctx context.Context, documentID string) error
	SubscribeDocumentIndexed(ctx context.Context, handler func(context.Context, string) error) error
}

// PageExtractor extracts per-page plain text from a stored document.
type PageExtractor interface {
	ExtractPages(ctx context.Context, doc *domain.Document) ([]domain.PageText, error)
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Chunker splits text into semantically usable chunks.
type Chunker interface {
	Split(text string) []string
}

// AnswerGenerator creates the final user-facing answer.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, question string, history []domain.ConversationTurn, chunks []domain.ScoredChunk) (string, error)
}

// RecordGenerator asks the language model for raw structured records.
type RecordGenerator interface {
	GenerateRecords(ctx context.Context, entityType domain.EntityType, chunks []domain.ScoredChunk) ([]map[string]any, error)
}
