package usecase

import (
	"testing"

	"github.com/kirillkom/project-brain/internal/core/domain"
)

func TestScoreConfidenceBuckets(t *testing.T) {
	cases := []struct {
		name   string
		scores []float64
		want   domain.Confidence
	}{
		{"empty", nil, domain.ConfidenceNoData},
		{"high", []float64{0.9, 0.8, 0.75}, domain.ConfidenceHigh},
		{"exactly 0.7 is medium", []float64{0.7, 0.7, 0.7}, domain.ConfidenceMedium},
		{"medium", []float64{0.6, 0.55}, domain.ConfidenceMedium},
		{"exactly 0.5 is low", []float64{0.5}, domain.ConfidenceLow},
		{"low", []float64{0.2, 0.1, 0.3}, domain.ConfidenceLow},
		{"only top three count", []float64{0.1, 0.95, 0.9, 0.1, 0.85}, domain.ConfidenceHigh},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ScoreConfidence(tc.scores); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestScoreConfidenceMonotonic(t *testing.T) {
	prev := domain.ConfidenceNoData
	for i := 0; i <= 100; i++ {
		v := float64(i) / 100
		got := ScoreConfidence([]float64{v, v, v})
		if got.Rank() < prev.Rank() {
			t.Fatalf("bucket decreased at mean %.2f: %s after %s", v, got, prev)
		}
		prev = got
	}
}

func TestScoreConfidenceDoesNotReorderInput(t *testing.T) {
	scores := []float64{0.1, 0.9, 0.5}
	_ = ScoreConfidence(scores)
	if scores[0] != 0.1 || scores[1] != 0.9 || scores[2] != 0.5 {
		t.Fatalf("input mutated: %v", scores)
	}
}
