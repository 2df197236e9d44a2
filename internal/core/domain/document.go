package domain

import (
	"fmt"
	"time"
)

// EmbeddingDimension is the vector width produced by the default embedding model.
const EmbeddingDimension = 384

// DefaultTopK is the result count adapters use when a request omits k.
const DefaultTopK = 5

type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "uploaded"
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusFailed     DocumentStatus = "failed"
)

type Document struct {
	ID          string         `json:"document_id"`
	Filename    string         `json:"filename"`
	MimeType    string         `json:"mime_type"`
	StoragePath string         `json:"storage_path"`
	Status      DocumentStatus `json:"status"`
	Error       string         `json:"error,omitempty"`
	ChunkCount  int            `json:"chunk_count"`
	CreatedAt   time.Time      `json:"upload_time"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Chunk is an immutable slice of document text with its positional metadata
// and precomputed embedding. Chunks are owned by the index store once added.
type Chunk struct {
	ChunkID         string         `json:"chunk_id"`
	DocumentID      string         `json:"document_id"`
	Filename        string         `json:"filename"`
	PageNumber      int            `json:"page_number"`
	ChunkIndex      int            `json:"chunk_index"`
	Text            string         `json:"text"`
	Embedding       []float32      `json:"-"`
	TermFrequencies map[string]int `json:"-"`
}

// PageText is the extracted text of one document page, 1-based.
type PageText struct {
	PageNumber int
	Text       string
}

func ChunkID(documentID string, page, index int) string {
	return fmt.Sprintf("%s_page%d_chunk%d", documentID, page, index)
}
