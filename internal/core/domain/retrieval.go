package domain

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// SearchFilter restricts retrieval. Nil bounds match everything.
type SearchFilter struct {
	// Document matches a chunk's filename or document id exactly.
	Document      string   `json:"document,omitempty"`
	PageMin       *int     `json:"page_min,omitempty"`
	PageMax       *int     `json:"page_max,omitempty"`
	MinConfidence *float64 `json:"min_confidence,omitempty"`
}

func (f SearchFilter) Matches(c Chunk) bool {
	if f.Document != "" && c.Filename != f.Document && c.DocumentID != f.Document {
		return false
	}
	if f.PageMin != nil && c.PageNumber < *f.PageMin {
		return false
	}
	if f.PageMax != nil && c.PageNumber > *f.PageMax {
		return false
	}
	return true
}

// Canonical returns the set filter options as sorted key=value pairs.
func (f SearchFilter) Canonical() []string {
	out := make([]string, 0, 4)
	if f.Document != "" {
		out = append(out, "document="+f.Document)
	}
	if f.PageMin != nil {
		out = append(out, "page_min="+strconv.Itoa(*f.PageMin))
	}
	if f.PageMax != nil {
		out = append(out, "page_max="+strconv.Itoa(*f.PageMax))
	}
	if f.MinConfidence != nil {
		out = append(out, "min_confidence="+strconv.FormatFloat(*f.MinConfidence, 'f', -1, 64))
	}
	sort.Strings(out)
	return out
}

// ParseSearchFilter converts a loosely typed filter mapping into a SearchFilter.
// Unknown keys are ignored; known keys with unusable values are rejected.
func ParseSearchFilter(raw map[string]any) (SearchFilter, error) {
	var f SearchFilter
	for key, value := range raw {
		if value == nil {
			continue
		}
		switch key {
		case "document":
			s, ok := value.(string)
			if !ok {
				return SearchFilter{}, WrapError(ErrInvalidInput, "parse filters", fmt.Errorf("document must be a string"))
			}
			f.Document = strings.TrimSpace(s)
		case "page_min", "page_max":
			n, err := filterInt(value)
			if err != nil {
				return SearchFilter{}, WrapError(ErrInvalidInput, "parse filters", fmt.Errorf("%s: %w", key, err))
			}
			if key == "page_min" {
				f.PageMin = &n
			} else {
				f.PageMax = &n
			}
		case "min_confidence":
			v, err := filterFloat(value)
			if err != nil {
				return SearchFilter{}, WrapError(ErrInvalidInput, "parse filters", fmt.Errorf("min_confidence: %w", err))
			}
			if v < 0 || v > 1 {
				return SearchFilter{}, WrapError(ErrInvalidInput, "parse filters", fmt.Errorf("min_confidence must be within [0,1]"))
			}
			f.MinConfidence = &v
		}
	}
	if f.PageMin != nil && f.PageMax != nil && *f.PageMin > *f.PageMax {
		return SearchFilter{}, WrapError(ErrInvalidInput, "parse filters", fmt.Errorf("page_min %d exceeds page_max %d", *f.PageMin, *f.PageMax))
	}
	return f, nil
}

func filterInt(value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, errors.New("must be a whole number")
		}
		return int(v), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, errors.New("must be a whole number")
		}
		return n, nil
	default:
		return 0, errors.New("must be a whole number")
	}
}

func filterFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, errors.New("must be a number")
		}
		return f, nil
	default:
		return 0, errors.New("must be a number")
	}
}

type ScoredChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"relevance_score"`
}

// RetrievalResult is ordered by non-increasing score with unique chunk ids.
type RetrievalResult struct {
	Chunks []ScoredChunk `json:"chunks"`
}

func (r RetrievalResult) Scores() []float64 {
	out := make([]float64, len(r.Chunks))
	for i, c := range r.Chunks {
		out[i] = c.Score
	}
	return out
}

func (r RetrievalResult) ChunkIDs() []string {
	out := make([]string, len(r.Chunks))
	for i, c := range r.Chunks {
		out[i] = c.Chunk.ChunkID
	}
	return out
}

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
	ConfidenceNoData Confidence = "no_data"
)

// Rank orders buckets for comparison; no_data ranks below low.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	default:
		return 0
	}
}

type Source struct {
	Filename       string  `json:"filename"`
	PageNumber     int     `json:"page_number"`
	RelevanceScore float64 `json:"relevance_score"`
	Preview        string  `json:"preview"`
}

type QueryRequest struct {
	Question       string
	ConversationID string
	Limit          int
	Filter         SearchFilter
}

type Answer struct {
	Text           string             `json:"answer"`
	Sources        []Source           `json:"sources"`
	Confidence     Confidence         `json:"confidence"`
	ChunksFound    int                `json:"chunks_found"`
	ConversationID string             `json:"conversation_id"`
	Cached         bool               `json:"cached"`
	StructuredData []StructuredRecord `json:"structured_data,omitempty"`
}

type CacheStats struct {
	TotalEntries int `json:"total_cached_queries"`
	ValidEntries int `json:"valid_cache_entries"`
	TTLSeconds   int `json:"cache_ttl_seconds"`
}
