package domain

// ValueExtractor pulls the governing value for a topic out of chunk text.
// ok is false when the text carries no parseable value.
type ValueExtractor func(text string) (value string, ok bool)

// TopicRule is one row of the keyword to topic table used by conflict detection.
type TopicRule struct {
	Topic    string
	Keywords []string
	Extract  ValueExtractor
}

type ConflictStatement struct {
	ChunkID    string `json:"chunk_id"`
	DocumentID string `json:"document_id"`
	Excerpt    string `json:"excerpt"`
	Value      string `json:"value"`
}

type SourceRef struct {
	Filename   string `json:"filename"`
	PageNumber int    `json:"page_number"`
}

// ConflictRecord always references chunks from at least two distinct documents.
type ConflictRecord struct {
	Topic      string              `json:"topic"`
	Statements []ConflictStatement `json:"statements"`
	Sources    []SourceRef         `json:"sources"`
}

type ConflictReport struct {
	ConflictsFound int              `json:"conflicts_found"`
	Conflicts      []ConflictRecord `json:"conflicts"`
	Analysis       string           `json:"analysis"`
}
