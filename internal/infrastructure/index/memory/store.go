// Package memory is the in-process index store. It keeps chunk records
// together with their dense vectors and lexical term statistics.
//
// Readers work on an immutable snapshot loaded through an atomic pointer, so
// search and conflict scans never block and never observe a half-applied Add.
// Writers build the next snapshot under a mutex and publish it in one swap.
package memory

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/kirillkom/project-brain/internal/core/domain"
	"github.com/kirillkom/project-brain/internal/core/lexical"
)

type snapshot struct {
	chunks []domain.Chunk
	ids    map[string]struct{}
}

var emptySnapshot = &snapshot{ids: map[string]struct{}{}}

type Store struct {
	dimension int

	writeMu sync.Mutex
	current atomic.Pointer[snapshot]
}

func NewStore(dimension int) *Store {
	if dimension <= 0 {
		dimension = domain.EmbeddingDimension
	}
	s := &Store{dimension: dimension}
	s.current.Store(emptySnapshot)
	return s
}

func (s *Store) Dimension() int {
	return s.dimension
}

// Add appends chunks. Chunk ids already present are skipped. The whole batch
// is rejected when any chunk is malformed.
func (s *Store) Add(chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	for _, c := range chunks {
		if c.ChunkID == "" {
			return domain.WrapError(domain.ErrInvalidInput, "index add", fmt.Errorf("chunk id is required"))
		}
		if len(c.Embedding) != s.dimension {
			return domain.WrapError(
				domain.ErrInvalidInput,
				"index add",
				fmt.Errorf("chunk %s: embedding dimension %d, want %d", c.ChunkID, len(c.Embedding), s.dimension),
			)
		}
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	prev := s.current.Load()
	next := &snapshot{
		chunks: make([]domain.Chunk, len(prev.chunks), len(prev.chunks)+len(chunks)),
		ids:    make(map[string]struct{}, len(prev.ids)+len(chunks)),
	}
	copy(next.chunks, prev.chunks)
	for id := range prev.ids {
		next.ids[id] = struct{}{}
	}

	for _, c := range chunks {
		if _, exists := next.ids[c.ChunkID]; exists {
			continue
		}
		next.ids[c.ChunkID] = struct{}{}
		next.chunks = append(next.chunks, freeze(c))
	}

	s.current.Store(next)
	return nil
}

// All returns every chunk of the current snapshot.
func (s *Store) All() []domain.Chunk {
	snap := s.current.Load()
	out := make([]domain.Chunk, len(snap.chunks))
	copy(out, snap.chunks)
	return out
}

func (s *Store) ByFilter(filter domain.SearchFilter) []domain.Chunk {
	snap := s.current.Load()
	out := make([]domain.Chunk, 0, len(snap.chunks))
	for _, c := range snap.chunks {
		if filter.Matches(c) {
			out = append(out, c)
		}
	}
	return out
}

func (s *Store) Len() int {
	return len(s.current.Load().chunks)
}

// Clear drops every chunk.
func (s *Store) Clear() {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.current.Store(emptySnapshot)
}

// freeze detaches a chunk from caller-owned slices and maps.
func freeze(c domain.Chunk) domain.Chunk {
	embedding := make([]float32, len(c.Embedding))
	copy(embedding, c.Embedding)
	c.Embedding = embedding

	if c.TermFrequencies == nil {
		c.TermFrequencies = lexical.TermFrequencies(c.Text)
	} else {
		tf := make(map[string]int, len(c.TermFrequencies))
		for term, n := range c.TermFrequencies {
			tf[term] = n
		}
		c.TermFrequencies = tf
	}
	return c
}
