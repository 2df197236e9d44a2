package memory

import (
	"fmt"
	"sync"
	"testing"

	"github.com/kirillkom/project-brain/internal/core/domain"
)

func testChunk(docID, filename string, page, idx int, text string) domain.Chunk {
	return domain.Chunk{
		ChunkID:    domain.ChunkID(docID, page, idx),
		DocumentID: docID,
		Filename:   filename,
		PageNumber: page,
		ChunkIndex: idx,
		Text:       text,
		Embedding:  make([]float32, 4),
	}
}

func intPtr(v int) *int { return &v }

func TestEmptyStoreFiltersToEmpty(t *testing.T) {
	s := NewStore(4)
	if got := s.ByFilter(domain.SearchFilter{Document: "a.pdf"}); len(got) != 0 {
		t.Fatalf("expected empty result, got %d", len(got))
	}
	if got := s.All(); len(got) != 0 {
		t.Fatalf("expected empty store, got %d", len(got))
	}
}

func TestAddRejectsWrongDimension(t *testing.T) {
	s := NewStore(4)
	c := testChunk("doc-1", "a.pdf", 1, 0, "text")
	c.Embedding = make([]float32, 3)
	err := s.Add([]domain.Chunk{c})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("expected rejected batch to leave store empty, got %d", s.Len())
	}
}

func TestAddSkipsDuplicateIDsAndFillsTermFrequencies(t *testing.T) {
	s := NewStore(4)
	c := testChunk("doc-1", "a.pdf", 1, 0, "Fire rating fire")
	if err := s.Add([]domain.Chunk{c, c}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := s.Add([]domain.Chunk{c}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	all := s.All()
	if len(all) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(all))
	}
	if all[0].TermFrequencies["fire"] != 2 {
		t.Fatalf("expected derived term frequency 2, got %d", all[0].TermFrequencies["fire"])
	}
}

func TestByFilterDocumentAndPageRange(t *testing.T) {
	s := NewStore(4)
	var chunks []domain.Chunk
	for page := 1; page <= 12; page++ {
		chunks = append(chunks, testChunk("doc-a", "a.pdf", page, 0, "a"))
		chunks = append(chunks, testChunk("doc-b", "b.pdf", page, 0, "b"))
	}
	if err := s.Add(chunks); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	got := s.ByFilter(domain.SearchFilter{Document: "a.pdf", PageMin: intPtr(5), PageMax: intPtr(10)})
	if len(got) != 6 {
		t.Fatalf("expected 6 chunks, got %d", len(got))
	}
	for _, c := range got {
		if c.Filename != "a.pdf" || c.PageNumber < 5 || c.PageNumber > 10 {
			t.Fatalf("chunk %s escaped filter", c.ChunkID)
		}
	}

	byID := s.ByFilter(domain.SearchFilter{Document: "doc-b"})
	if len(byID) != 12 {
		t.Fatalf("expected document id filter to match 12 chunks, got %d", len(byID))
	}
}

func TestClearEmptiesStore(t *testing.T) {
	s := NewStore(4)
	if err := s.Add([]domain.Chunk{testChunk("doc-1", "a.pdf", 1, 0, "x")}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	s.Clear()
	if s.Len() != 0 {
		t.Fatalf("expected empty store after Clear, got %d", s.Len())
	}
}

func TestConcurrentReadersSeeWholeBatches(t *testing.T) {
	s := NewStore(4)
	const batches = 50
	const perBatch = 8

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for b := 0; b < batches; b++ {
			batch := make([]domain.Chunk, 0, perBatch)
			for i := 0; i < perBatch; i++ {
				batch = append(batch, testChunk(fmt.Sprintf("doc-%d", b), "f.pdf", 1, i, "x"))
			}
			if err := s.Add(batch); err != nil {
				t.Errorf("Add() error = %v", err)
				return
			}
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				if n := len(s.All()); n%perBatch != 0 {
					t.Errorf("observed partial batch: %d chunks", n)
					return
				}
			}
		}()
	}
	wg.Wait()

	if s.Len() != batches*perBatch {
		t.Fatalf("expected %d chunks, got %d", batches*perBatch, s.Len())
	}
}
