package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/kirillkom/project-brain/internal/core/domain"
	"github.com/kirillkom/project-brain/internal/core/lexical"
	"github.com/kirillkom/project-brain/internal/core/ports"
)

const (
	DefaultHybridAlpha = 0.5
	DefaultTopK        = domain.DefaultTopK
)

type RetrieverOptions struct {
	// Alpha weights the dense score; 1-Alpha weights the lexical score. Nil
	// means DefaultHybridAlpha. Pure lexical ranking is Alpha pointing at 0.
	Alpha     *float64
	BM25K1    float64
	BM25B     float64
	Dimension int
}

// Alpha returns a pointer for RetrieverOptions.Alpha.
func Alpha(v float64) *float64 {
	return &v
}

// HybridRetriever fuses cosine similarity with BM25 over a filtered candidate set.
type HybridRetriever struct {
	index     ports.ChunkIndex
	embedder  ports.Embedder
	alpha     float64
	bm25      lexical.BM25
	dimension int
}

func NewHybridRetriever(index ports.ChunkIndex, embedder ports.Embedder, opts RetrieverOptions) *HybridRetriever {
	alpha := DefaultHybridAlpha
	if opts.Alpha != nil && *opts.Alpha >= 0 && *opts.Alpha <= 1 {
		alpha = *opts.Alpha
	}
	dimension := opts.Dimension
	if dimension <= 0 {
		dimension = domain.EmbeddingDimension
	}
	return &HybridRetriever{
		index:     index,
		embedder:  embedder,
		alpha:     alpha,
		bm25:      lexical.NewBM25(opts.BM25K1, opts.BM25B),
		dimension: dimension,
	}
}

func (r *HybridRetriever) Search(
	ctx context.Context,
	query string,
	k int,
	filter domain.SearchFilter,
) (domain.RetrievalResult, error) {
	if strings.TrimSpace(query) == "" {
		return domain.RetrievalResult{}, domain.WrapError(domain.ErrInvalidInput, "search", errors.New("query is required"))
	}
	if err := validateK(k); err != nil {
		return domain.RetrievalResult{}, err
	}

	candidates := r.index.ByFilter(filter)
	if len(candidates) == 0 || k == 0 {
		return emptyResult(), nil
	}

	queryVector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return domain.RetrievalResult{}, fmt.Errorf("embed query: %w", err)
	}
	if err := r.validateVector(queryVector); err != nil {
		return domain.RetrievalResult{}, err
	}
	return r.rank(query, queryVector, k, filter, candidates), nil
}

// Rank scores the filtered index against an already embedded query.
func (r *HybridRetriever) Rank(
	query string,
	queryVector []float32,
	k int,
	filter domain.SearchFilter,
) (domain.RetrievalResult, error) {
	if err := validateK(k); err != nil {
		return domain.RetrievalResult{}, err
	}
	if err := r.validateVector(queryVector); err != nil {
		return domain.RetrievalResult{}, err
	}
	candidates := r.index.ByFilter(filter)
	if len(candidates) == 0 || k == 0 {
		return emptyResult(), nil
	}
	return r.rank(query, queryVector, k, filter, candidates), nil
}

func validateK(k int) error {
	if k < 0 {
		return domain.WrapError(domain.ErrInvalidInput, "search", fmt.Errorf("k must not be negative, got %d", k))
	}
	return nil
}

func (r *HybridRetriever) validateVector(v []float32) error {
	if len(v) != r.dimension {
		return domain.WrapError(
			domain.ErrInvalidInput,
			"search",
			fmt.Errorf("query embedding dimension %d, want %d", len(v), r.dimension),
		)
	}
	return nil
}

func (r *HybridRetriever) rank(
	query string,
	queryVector []float32,
	k int,
	filter domain.SearchFilter,
	candidates []domain.Chunk,
) domain.RetrievalResult {
	termStats := make([]map[string]int, len(candidates))
	for i, c := range candidates {
		termStats[i] = c.TermFrequencies
		if termStats[i] == nil {
			termStats[i] = lexical.TermFrequencies(c.Text)
		}
	}
	lexicalScores := lexical.MinMax(r.bm25.Score(lexical.Tokenize(query), termStats))

	scored := make([]domain.ScoredChunk, 0, len(candidates))
	for i, c := range candidates {
		dense := (cosine(queryVector, c.Embedding) + 1) / 2
		fused := r.alpha*dense + (1-r.alpha)*lexicalScores[i]
		scored = append(scored, domain.ScoredChunk{Chunk: c, Score: clamp01(fused)})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Chunk.ChunkID < scored[j].Chunk.ChunkID
	})

	if filter.MinConfidence != nil {
		kept := scored[:0]
		for _, s := range scored {
			if s.Score >= *filter.MinConfidence {
				kept = append(kept, s)
			}
		}
		scored = kept
	}

	return domain.RetrievalResult{Chunks: trimCandidates(scored, k)}
}

func trimCandidates(chunks []domain.ScoredChunk, limit int) []domain.ScoredChunk {
	if len(chunks) <= limit {
		return chunks
	}
	return chunks[:limit]
}

func emptyResult() domain.RetrievalResult {
	return domain.RetrievalResult{Chunks: []domain.ScoredChunk{}}
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(cos) {
		return 0
	}
	return math.Max(-1, math.Min(1, cos))
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
