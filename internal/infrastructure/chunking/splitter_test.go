package chunking

import (
	"strings"
	"testing"
)

func TestSplitShortTextIsOneChunk(t *testing.T) {
	s := NewSplitter(1000, 200)
	got := s.Split("  Fire rating: 2 hour.  ")
	if len(got) != 1 || got[0] != "Fire rating: 2 hour." {
		t.Fatalf("unexpected chunks %q", got)
	}
	if s.Split("") != nil {
		t.Fatalf("expected nil for empty text")
	}
}

func TestSplitRespectsSizeAndOverlap(t *testing.T) {
	word := "concrete "
	text := strings.Repeat(word, 300)
	s := NewSplitter(100, 20)
	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if n := len([]rune(c)); n > 100 {
			t.Fatalf("chunk %d has %d runes", i, n)
		}
		if strings.HasPrefix(c, "oncrete") || strings.HasSuffix(c, "concret") {
			t.Fatalf("chunk %d split a word: %q", i, c)
		}
	}
	if !strings.HasPrefix(chunks[1], "concrete") {
		t.Fatalf("expected overlap to begin at a word, got %q", chunks[1])
	}
}

func TestSplitPrefersParagraphBreak(t *testing.T) {
	first := strings.Repeat("a", 70)
	second := strings.Repeat("b", 70)
	chunks := NewSplitter(100, 10).Split(first + "\n\n" + second)
	if chunks[0] != first {
		t.Fatalf("expected first chunk to end at the paragraph break, got %q", chunks[0])
	}
}

func TestNewSplitterNormalizesConfig(t *testing.T) {
	s := NewSplitter(0, -5)
	if s.ChunkSize != DefaultChunkSize || s.Overlap != 0 {
		t.Fatalf("unexpected splitter %+v", s)
	}
	s = NewSplitter(100, 150)
	if s.Overlap != 25 {
		t.Fatalf("expected overlap clamp to 25, got %d", s.Overlap)
	}
}
